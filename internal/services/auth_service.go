package services

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/krishna/internal/models"
	"github.com/example/krishna/internal/utils"
)

var (
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// AuthService coordinates registration and login around the OTP ledger,
// provisioning accounts and minting session tokens.
type AuthService struct {
	db        *gorm.DB
	otp       *OTPService
	fixture   *FixtureIdentity
	jwtSecret string
	tokenTTL  time.Duration
}

// NewAuthService constructs an AuthService. fixture may be nil, in which
// case no phone number ever takes the bypass path.
func NewAuthService(db *gorm.DB, otp *OTPService, fixture *FixtureIdentity, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		db:        db,
		otp:       otp,
		fixture:   fixture,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// RegisterInput is the payload for starting a registration.
type RegisterInput struct {
	Name  string
	Phone string
	Email string
}

// RegisterResult reports a started registration.
type RegisterResult struct {
	UserID   uuid.UUID
	Phone    string
	Slug     string
	TestUser bool
}

// LoginResult reports a started login.
type LoginResult struct {
	Phone    string
	TestUser bool
}

// PublicUser is the projection of a user returned alongside a session token.
type PublicUser struct {
	ID                  uuid.UUID              `json:"id"`
	Name                string                 `json:"name"`
	Phone               string                 `json:"phone"`
	Slug                string                 `json:"slug"`
	Role                string                 `json:"role"`
	IsVerified          bool                   `json:"isVerified"`
	Address             *models.PrimaryAddress `json:"address"`
	AdditionalAddresses models.AddressList     `json:"additionalAddresses"`
}

// SessionResult carries a minted token and the public user projection.
type SessionResult struct {
	Token string
	User  PublicUser
}

// Register validates input, creates an unverified user with a unique slug
// and dispatches a registration OTP. The fixture identity skips delivery
// and is told to use the fixed code instead.
func (s *AuthService) Register(in RegisterInput) (*RegisterResult, error) {
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	var existing models.User
	if err := s.db.Where("phone = ?", in.Phone).First(&existing).Error; err == nil {
		return nil, ErrPhoneExists
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if in.Email != "" {
		if err := s.db.Where("email = ?", in.Email).First(&existing).Error; err == nil {
			return nil, ErrEmailExists
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	slug, err := s.uniqueSlug(in.Name)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:                in.Name,
		Phone:               in.Phone,
		Role:                models.RoleCustomer,
		Slug:                slug,
		IsVerified:          false,
		IsActive:            true,
		AdditionalAddresses: models.AddressList{},
	}
	if in.Email != "" {
		email := in.Email
		user.Email = &email
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	result := &RegisterResult{UserID: user.ID, Phone: user.Phone, Slug: user.Slug}

	if s.fixture.Matches(in.Phone) {
		result.TestUser = true
		return result, nil
	}

	if _, err := s.otp.Issue(in.Phone, models.PurposeRegister); err != nil {
		// The user row and (on delivery failure) the OTP record stay
		// persisted; the client can recover via resend.
		return result, err
	}

	return result, nil
}

// CompleteRegistration verifies the submitted code, marks the user
// verified, grants the one-time welcome gift and mints a session.
func (s *AuthService) CompleteRegistration(phone, code string) (*SessionResult, error) {
	if err := s.checkCode(phone, models.PurposeRegister, code); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.Where("phone = ?", phone).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := s.markVerified(&user); err != nil {
		return nil, err
	}

	return s.issueSession(&user)
}

// Login checks the account and dispatches a login OTP. The fixture identity
// is allowed through without a pre-existing account; it is provisioned
// lazily at completion.
func (s *AuthService) Login(phone string) (*LoginResult, error) {
	if !phonePattern.MatchString(phone) {
		return nil, NewValidationError(map[string]string{"phone": "must be a 10-digit number"})
	}

	var user models.User
	err := s.db.Where("phone = ?", phone).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		if s.fixture.Matches(phone) {
			return &LoginResult{Phone: phone, TestUser: true}, nil
		}
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	if s.fixture.Matches(phone) {
		return &LoginResult{Phone: phone, TestUser: true}, nil
	}

	if _, err := s.otp.Issue(phone, models.PurposeLogin); err != nil {
		return nil, err
	}

	return &LoginResult{Phone: phone}, nil
}

// CompleteLogin verifies the submitted code and mints a session. A fixture
// identity with no account yet gets a fully provisioned test user.
func (s *AuthService) CompleteLogin(phone, code string) (*SessionResult, error) {
	if err := s.checkCode(phone, models.PurposeLogin, code); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.Where("phone = ?", phone).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		if !s.fixture.Matches(phone) {
			return nil, ErrUserNotFound
		}
		provisioned, perr := s.provisionFixtureUser()
		if perr != nil {
			return nil, perr
		}
		user = *provisioned
	} else if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	if err := s.markVerified(&user); err != nil {
		return nil, err
	}

	return s.issueSession(&user)
}

// ResendOTP invalidates any outstanding code for (phone, purpose) and
// issues a fresh one. The fixture identity never gets a real code.
func (s *AuthService) ResendOTP(phone, purpose string) error {
	fields := map[string]string{}
	if !phonePattern.MatchString(phone) {
		fields["phone"] = "must be a 10-digit number"
	}
	if !models.ValidPurpose(purpose) {
		fields["purpose"] = "must be one of register, login, reset"
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}

	if s.fixture.Matches(phone) {
		return nil
	}

	_, err := s.otp.Resend(phone, purpose)
	return err
}

// CurrentUser loads a user by id.
func (s *AuthService) CurrentUser(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ProfileUpdateInput is the patch accepted by UpdateProfile. Role and phone
// are immutable through this path.
type ProfileUpdateInput struct {
	Name        *string
	Email       *string
	DateOfBirth *time.Time
	Address     *PrimaryAddressInput
}

// PrimaryAddressInput is the structured main-address payload.
type PrimaryAddressInput struct {
	Street  string
	City    string
	State   string
	Pincode string
}

// UpdateProfile merges the patch over the user's profile fields.
func (s *AuthService) UpdateProfile(id uuid.UUID, in ProfileUpdateInput) (*models.User, error) {
	user, err := s.CurrentUser(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil && *in.Name != "" {
		updates["name"] = *in.Name
	}
	if in.Email != nil && *in.Email != "" {
		if !emailPattern.MatchString(*in.Email) {
			return nil, NewValidationError(map[string]string{"email": "must be a valid email address"})
		}
		var existing models.User
		err := s.db.Where("email = ? AND id <> ?", *in.Email, id).First(&existing).Error
		if err == nil {
			return nil, ErrEmailExists
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		updates["email"] = *in.Email
	}
	if in.DateOfBirth != nil {
		updates["date_of_birth"] = *in.DateOfBirth
	}
	if in.Address != nil {
		updates["address"] = models.NewPrimaryAddress(in.Address.Street, in.Address.City, in.Address.State, in.Address.Pincode)
	}

	if len(updates) == 0 {
		return user, nil
	}
	updates["updated_at"] = time.Now()

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}

	return s.CurrentUser(id)
}

// CompleteProfile records date of birth and the primary address after
// first login.
func (s *AuthService) CompleteProfile(id uuid.UUID, dob *time.Time, address *PrimaryAddressInput) (*models.User, error) {
	return s.UpdateProfile(id, ProfileUpdateInput{DateOfBirth: dob, Address: address})
}

// SeedFixtureUser creates the fixture account up front, as the seed command
// does. Returns the existing account when it is already provisioned.
func (s *AuthService) SeedFixtureUser() (*models.User, bool, error) {
	if s.fixture == nil {
		return nil, false, NewValidationError(map[string]string{"fixture": "test identity is not configured"})
	}

	var existing models.User
	err := s.db.Where("phone = ?", s.fixture.Phone()).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}

	user, err := s.provisionFixtureUser()
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// PublicProjection builds the response-facing view of a user.
func PublicProjection(user *models.User) PublicUser {
	addresses := user.AdditionalAddresses
	if addresses == nil {
		addresses = models.AddressList{}
	}
	return PublicUser{
		ID:                  user.ID,
		Name:                user.Name,
		Phone:               user.Phone,
		Slug:                user.Slug,
		Role:                user.Role,
		IsVerified:          user.IsVerified,
		Address:             user.Address,
		AdditionalAddresses: addresses,
	}
}

// checkCode routes verification either through the fixture's fixed code or
// the OTP ledger. The fixture path never touches the ledger.
func (s *AuthService) checkCode(phone, purpose, code string) error {
	if s.fixture.Matches(phone) {
		if code != s.fixture.Code() {
			return ErrOTPInvalid
		}
		return nil
	}
	return s.otp.Verify(phone, purpose, code)
}

// markVerified flips the verified flag and grants the welcome gift exactly
// once, guarded by gift_received.
func (s *AuthService) markVerified(user *models.User) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"is_verified": true}
		if !user.GiftReceived {
			if err := createWelcomeGiftCoupon(tx, user.ID); err != nil {
				return err
			}
			updates["gift_received"] = true
		}
		if err := tx.Model(user).Updates(updates).Error; err != nil {
			return err
		}
		user.IsVerified = true
		user.GiftReceived = true
		return nil
	})
}

func (s *AuthService) issueSession(user *models.User) (*SessionResult, error) {
	token, err := utils.GenerateToken(s.jwtSecret, utils.TokenClaims{
		UserID: user.ID,
		Role:   user.Role,
		Phone:  user.Phone,
	}, s.tokenTTL)
	if err != nil {
		return nil, err
	}

	return &SessionResult{Token: token, User: PublicProjection(user)}, nil
}

// provisionFixtureUser creates the fully formed test account: verified,
// active, two seed addresses (one default) and the welcome gift already
// granted.
func (s *AuthService) provisionFixtureUser() (*models.User, error) {
	slug, err := s.uniqueSlug("Test User")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	email := "test@example.com"
	user := models.User{
		Name:       "Test User",
		Phone:      s.fixture.Phone(),
		Email:      &email,
		Role:       models.RoleCustomer,
		Slug:       slug,
		IsVerified: true,
		IsActive:   true,
		Address:    models.NewPrimaryAddress("123 Test Street", "Test City", "Test State", "123456"),
		AdditionalAddresses: models.AddressList{
			{
				ID:        "test-address-1",
				Name:      "Test User",
				Phone:     s.fixture.Phone(),
				Street:    "123 Test Street",
				City:      "Test City",
				State:     "Test State",
				Pincode:   "123456",
				Type:      models.AddressTypeHome,
				IsDefault: true,
				CreatedAt: now,
				UpdatedAt: now,
			},
			{
				ID:        "test-address-2",
				Name:      "Test User",
				Phone:     s.fixture.Phone(),
				Street:    "456 Work Avenue",
				City:      "Work City",
				State:     "Work State",
				Pincode:   "654321",
				Type:      models.AddressTypeWork,
				IsDefault: false,
				CreatedAt: now,
				UpdatedAt: now,
			},
		},
		GiftReceived: false,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if err := createWelcomeGiftCoupon(tx, user.ID); err != nil {
			return err
		}
		user.GiftReceived = true
		return tx.Model(&user).Update("gift_received", true).Error
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *AuthService) uniqueSlug(name string) (string, error) {
	var taken []string
	if err := s.db.Model(&models.User{}).Pluck("slug", &taken).Error; err != nil {
		return "", err
	}
	return utils.GenerateSlug(name, taken), nil
}

// createWelcomeGiftCoupon creates the first-purchase discount and links it
// to the user.
func createWelcomeGiftCoupon(tx *gorm.DB, userID uuid.UUID) error {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	coupon := models.Coupon{
		Code:           "WELCOME" + suffix,
		Description:    "Welcome to our store! Enjoy this special discount on your first purchase.",
		DiscountType:   "percentage",
		DiscountValue:  10,
		MinOrderAmount: 0,
		MaxDiscount:    500,
		ValidFrom:      time.Now(),
		ValidUntil:     time.Now().Add(30 * 24 * time.Hour),
		UsageLimit:     1,
		IsSingleUse:    true,
		IsActive:       true,
	}

	if err := tx.Create(&coupon).Error; err != nil {
		return err
	}

	return tx.Create(&models.UserCoupon{
		UserID:   userID,
		CouponID: coupon.ID,
		IsUsed:   false,
	}).Error
}

func validateRegistration(in RegisterInput) error {
	fields := map[string]string{}

	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "name is required"
	} else if len(strings.TrimSpace(in.Name)) < 2 {
		fields["name"] = "name must be at least 2 characters"
	}

	if in.Phone == "" {
		fields["phone"] = "phone is required"
	} else if !phonePattern.MatchString(in.Phone) {
		fields["phone"] = "must be a 10-digit number"
	}

	if in.Email != "" && !emailPattern.MatchString(in.Email) {
		fields["email"] = "must be a valid email address"
	}

	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}
