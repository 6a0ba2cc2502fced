package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/krishna/internal/models"
	"github.com/example/krishna/internal/utils"
)

const (
	testJWTSecret = "auth-service-test-secret"
	fixturePhone  = "1234567890"
	fixtureOTP    = "123456"
)

func newTestAuthService(t *testing.T, db *gorm.DB, fixture *FixtureIdentity) (*AuthService, *fakeSMS) {
	t.Helper()
	otp, sms := newTestOTPService(t, db)
	return NewAuthService(db, otp, fixture, testJWTSecret, time.Hour), sms
}

func countCoupons(t *testing.T, db *gorm.DB, user *models.User) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.UserCoupon{}).Where("user_id = ?", user.ID).Count(&count).Error)
	return count
}

func TestRegisterCreatesUnverifiedUserAndSendsOTP(t *testing.T) {
	db := openTestDB(t)
	svc, sms := newTestAuthService(t, db, nil)

	result, err := svc.Register(RegisterInput{Name: "Asha Rao", Phone: "9000000001", Email: "asha@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "9000000001", result.Phone)
	assert.Equal(t, "asha-rao", result.Slug)
	assert.False(t, result.TestUser)

	var user models.User
	require.NoError(t, db.Where("phone = ?", "9000000001").First(&user).Error)
	assert.False(t, user.IsVerified)
	assert.True(t, user.IsActive)
	assert.Equal(t, models.RoleCustomer, user.Role)
	assert.False(t, user.GiftReceived)

	require.Len(t, sms.sent, 1)
	assert.Equal(t, "9000000001", sms.sent[0].To)
	assert.Contains(t, sms.sent[0].Message, "registration")
}

func TestRegisterValidation(t *testing.T) {
	db := openTestDB(t)
	svc, _ := newTestAuthService(t, db, nil)

	tests := []struct {
		name   string
		input  RegisterInput
		fields []string
	}{
		{"missing everything", RegisterInput{}, []string{"name", "phone"}},
		{"bad phone", RegisterInput{Name: "Asha Rao", Phone: "12345"}, []string{"phone"}},
		{"bad email", RegisterInput{Name: "Asha Rao", Phone: "9000000001", Email: "nope"}, []string{"email"}},
		{"short name", RegisterInput{Name: "A", Phone: "9000000001"}, []string{"name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(tt.input)
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			for _, field := range tt.fields {
				assert.Contains(t, validation.Fields, field)
			}
		})
	}
}

func TestRegisterConflicts(t *testing.T) {
	db := openTestDB(t)
	svc, _ := newTestAuthService(t, db, nil)

	_, err := svc.Register(RegisterInput{Name: "Asha Rao", Phone: "9000000001", Email: "asha@example.com"})
	require.NoError(t, err)

	_, err = svc.Register(RegisterInput{Name: "Other", Phone: "9000000001"})
	assert.ErrorIs(t, err, ErrPhoneExists)

	_, err = svc.Register(RegisterInput{Name: "Other", Phone: "9000000002", Email: "asha@example.com"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegisterGeneratesUniqueSlugs(t *testing.T) {
	db := openTestDB(t)
	svc, _ := newTestAuthService(t, db, nil)

	first, err := svc.Register(RegisterInput{Name: "Asha Rao", Phone: "9000000001"})
	require.NoError(t, err)
	second, err := svc.Register(RegisterInput{Name: "Asha Rao", Phone: "9000000002"})
	require.NoError(t, err)

	assert.Equal(t, "asha-rao", first.Slug)
	assert.Equal(t, "asha-rao-2", second.Slug)
}

// Register with phone 9000000001, fail with a wrong code, then succeed with
// the right one before expiry.
func TestRegistrationScenario(t *testing.T) {
	db := openTestDB(t)
	svc, sms := newTestAuthService(t, db, nil)

	_, err := svc.Register(RegisterInput{Name: "Asha Rao", Phone: "9000000001"})
	require.NoError(t, err)
	code := lastSentCode(t, sms)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, err = svc.CompleteRegistration("9000000001", wrong)
	assert.ErrorIs(t, err, ErrOTPInvalid)

	session, err := svc.CompleteRegistration("9000000001", code)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.True(t, session.User.IsVerified)
	assert.Equal(t, "9000000001", session.User.Phone)

	claims, err := utils.ParseToken(testJWTSecret, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
	assert.Equal(t, models.RoleCustomer, claims.Role)
	assert.Equal(t, "9000000001", claims.Phone)
}

func TestCompleteRegistrationWithoutAccount(t *testing.T) {
	db := openTestDB(t)
	svc, sms := newTestAuthService(t, db, nil)

	_, err := svc.Register(RegisterInput{Name: "Asha Rao", Phone: "9000000001"})
	require.NoError(t, err)
	code := lastSentCode(t, sms)

	require.NoError(t, db.Where("phone = ?", "9000000001").Delete(&models.User{}).Error)

	_, err = svc.CompleteRegistration("9000000001", code)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestWelcomeGiftGrantedExactlyOnce(t *testing.T) {
	db := openTestDB(t)
	svc, sms := newTestAuthService(t, db, nil)

	_, err := svc.Register(RegisterInput{Name: "Asha Rao", Phone: "9000000001"})
	require.NoError(t, err)
	session, err := svc.CompleteRegistration("9000000001", lastSentCode(t, sms))
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", session.User.ID).Error)
	assert.True(t, user.GiftReceived)
	assert.EqualValues(t, 1, countCoupons(t, db, &user))

	// A later completed login must not grant a second gift.
	_, err = svc.Login("9000000001")
	require.NoError(t, err)
	_, err = svc.CompleteLogin("9000000001", lastSentCode(t, sms))
	require.NoError(t, err)

	assert.EqualValues(t, 1, countCoupons(t, db, &user))
}

func TestLoginUnknownPhone(t *testing.T) {
	db := openTestDB(t)
	svc, _ := newTestAuthService(t, db, nil)

	_, err := svc.Login("9000000009")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLoginDeactivatedAccount(t *testing.T) {
	db := openTestDB(t)
	svc, sms := newTestAuthService(t, db, nil)

	_, err := svc.Register(RegisterInput{Name: "Asha Rao", Phone: "9000000001"})
	require.NoError(t, err)
	_, err = svc.CompleteRegistration("9000000001", lastSentCode(t, sms))
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.User{}).Where("phone = ?", "9000000001").Update("is_active", false).Error)

	_, err = svc.Login("9000000001")
	assert.ErrorIs(t, err, ErrAccountDeactivated)
}

func TestCompleteLoginDeactivatedAccount(t *testing.T) {
	db := openTestDB(t)
	svc, sms := newTestAuthService(t, db, nil)

	_, err := svc.Register(RegisterInput{Name: "Asha Rao", Phone: "9000000001"})
	require.NoError(t, err)
	_, err = svc.CompleteRegistration("9000000001", lastSentCode(t, sms))
	require.NoError(t, err)

	_, err = svc.Login("9000000001")
	require.NoError(t, err)
	code := lastSentCode(t, sms)

	require.NoError(t, db.Model(&models.User{}).Where("phone = ?", "9000000001").Update("is_active", false).Error)

	_, err = svc.CompleteLogin("9000000001", code)
	assert.ErrorIs(t, err, ErrAccountDeactivated)
}

// Login with the fixture phone, complete with the fixed code: the account
// is provisioned lazily, no OTP record is ever created, and a second login
// reuses the same user id.
func TestFixtureLoginScenario(t *testing.T) {
	db := openTestDB(t)
	fixture := NewFixtureIdentity(fixturePhone, fixtureOTP)
	svc, sms := newTestAuthService(t, db, fixture)

	result, err := svc.Login(fixturePhone)
	require.NoError(t, err)
	assert.True(t, result.TestUser)

	session, err := svc.CompleteLogin(fixturePhone, fixtureOTP)
	require.NoError(t, err)
	assert.True(t, session.User.IsVerified)
	require.Len(t, session.User.AdditionalAddresses, 2)
	assert.True(t, session.User.AdditionalAddresses[0].IsDefault)
	assert.False(t, session.User.AdditionalAddresses[1].IsDefault)

	var user models.User
	require.NoError(t, db.Where("phone = ?", fixturePhone).First(&user).Error)
	assert.True(t, user.GiftReceived)
	assert.EqualValues(t, 1, countCoupons(t, db, &user))

	var otpCount int64
	require.NoError(t, db.Model(&models.OTPCode{}).Where("phone = ?", fixturePhone).Count(&otpCount).Error)
	assert.Zero(t, otpCount, "the fixture must never touch the OTP ledger")
	assert.Empty(t, sms.sent)

	again, err := svc.CompleteLogin(fixturePhone, fixtureOTP)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, again.User.ID, "second login reuses the provisioned account")
	assert.EqualValues(t, 1, countCoupons(t, db, &user))
}

func TestFixtureRejectsWrongCode(t *testing.T) {
	db := openTestDB(t)
	fixture := NewFixtureIdentity(fixturePhone, fixtureOTP)
	svc, _ := newTestAuthService(t, db, fixture)

	_, err := svc.CompleteLogin(fixturePhone, "654321")
	assert.ErrorIs(t, err, ErrOTPInvalid)
}

func TestFixtureUnconfiguredNeverMatches(t *testing.T) {
	db := openTestDB(t)
	svc, _ := newTestAuthService(t, db, NewFixtureIdentity("", ""))

	_, err := svc.Login(fixturePhone)
	assert.ErrorIs(t, err, ErrUserNotFound, "unset fixture must leave no bypass path")

	_, err = svc.CompleteLogin(fixturePhone, fixtureOTP)
	assert.ErrorIs(t, err, ErrOTPNotFound)
}

func TestFixtureRegistrationSkipsLedger(t *testing.T) {
	db := openTestDB(t)
	fixture := NewFixtureIdentity(fixturePhone, fixtureOTP)
	svc, sms := newTestAuthService(t, db, fixture)

	result, err := svc.Register(RegisterInput{Name: "Test User", Phone: fixturePhone})
	require.NoError(t, err)
	assert.True(t, result.TestUser)
	assert.Empty(t, sms.sent)

	session, err := svc.CompleteRegistration(fixturePhone, fixtureOTP)
	require.NoError(t, err)
	assert.True(t, session.User.IsVerified)

	var otpCount int64
	require.NoError(t, db.Model(&models.OTPCode{}).Where("phone = ?", fixturePhone).Count(&otpCount).Error)
	assert.Zero(t, otpCount)
}

func TestResendOTPFixtureIsNoOp(t *testing.T) {
	db := openTestDB(t)
	fixture := NewFixtureIdentity(fixturePhone, fixtureOTP)
	svc, sms := newTestAuthService(t, db, fixture)

	require.NoError(t, svc.ResendOTP(fixturePhone, models.PurposeLogin))
	assert.Empty(t, sms.sent)
}

func TestResendOTPValidation(t *testing.T) {
	db := openTestDB(t)
	svc, _ := newTestAuthService(t, db, nil)

	err := svc.ResendOTP("12", "renew")
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "phone")
	assert.Contains(t, validation.Fields, "purpose")
}

func TestUpdateProfileKeepsPhoneAndRole(t *testing.T) {
	db := openTestDB(t)
	svc, sms := newTestAuthService(t, db, nil)

	_, err := svc.Register(RegisterInput{Name: "Asha Rao", Phone: "9000000001"})
	require.NoError(t, err)
	session, err := svc.CompleteRegistration("9000000001", lastSentCode(t, sms))
	require.NoError(t, err)

	name := "Asha R"
	dob := time.Date(1994, 6, 15, 0, 0, 0, 0, time.UTC)
	user, err := svc.UpdateProfile(session.User.ID, ProfileUpdateInput{
		Name:        &name,
		DateOfBirth: &dob,
		Address:     &PrimaryAddressInput{Street: "12 MG Road", City: "Chennai", State: "TN", Pincode: "600001"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha R", user.Name)
	assert.Equal(t, "9000000001", user.Phone)
	assert.Equal(t, models.RoleCustomer, user.Role)
	require.NotNil(t, user.Address)
	assert.Equal(t, "12 MG Road, Chennai, TN, 600001", user.Address.FullAddress)
	require.NotNil(t, user.DateOfBirth)
}

func TestSeedFixtureUserIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	fixture := NewFixtureIdentity(fixturePhone, fixtureOTP)
	svc, _ := newTestAuthService(t, db, fixture)

	user, created, err := svc.SeedFixtureUser()
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, user.AdditionalAddresses, 2)
	assert.True(t, user.GiftReceived)

	again, created, err := svc.SeedFixtureUser()
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
}
