package services

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/krishna/internal/models"
	"github.com/example/krishna/internal/utils"
)

// OTPService issues, verifies and expires single-use codes scoped by
// (phone, purpose).
type OTPService struct {
	db  *gorm.DB
	sms SMSSender
	ttl time.Duration
}

// NewOTPService constructs an OTPService.
func NewOTPService(db *gorm.DB, sms SMSSender, ttl time.Duration) *OTPService {
	return &OTPService{db: db, sms: sms, ttl: ttl}
}

// Issue replaces any existing code for (phone, purpose) with a fresh one and
// hands it to the SMS gateway. The pair carries a unique key and the replace
// is a single insert-or-update, so two concurrent issues cannot leave more
// than one record behind; the later writer wins.
//
// On delivery failure the record is NOT rolled back: the code stays valid
// and the caller may fall back to resend. ErrSMSDelivery reports the
// failed send.
func (s *OTPService) Issue(phone, purpose string) (*models.OTPCode, error) {
	code, err := utils.GenerateOTP()
	if err != nil {
		return nil, err
	}

	hash, err := utils.HashOTP(code)
	if err != nil {
		return nil, err
	}

	record := models.OTPCode{
		Phone:     phone,
		Purpose:   purpose,
		Code:      hash,
		ExpiresAt: time.Now().Add(s.ttl),
		IsUsed:    false,
	}

	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}, {Name: "purpose"}},
		DoUpdates: clause.AssignmentColumns([]string{"id", "code", "expires_at", "is_used", "created_at", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return nil, err
	}

	result := s.sms.Send(phone, OTPMessage(code, purpose, s.ttl))
	if !result.Success {
		return &record, ErrSMSDelivery
	}

	return &record, nil
}

// Verify checks a candidate code against the unused record for
// (phone, purpose). A matching code consumes the record; a mismatch leaves
// it unused so the caller may retry until expiry. An expired record is
// consumed regardless of the candidate.
func (s *OTPService) Verify(phone, purpose, candidate string) error {
	var record models.OTPCode
	err := s.db.Where("phone = ? AND purpose = ? AND is_used = ?", phone, purpose, false).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrOTPNotFound
		}
		return err
	}

	if time.Now().After(record.ExpiresAt) {
		if err := s.db.Model(&record).Update("is_used", true).Error; err != nil {
			return err
		}
		return ErrOTPExpired
	}

	if !utils.CheckOTP(record.Code, candidate) {
		return ErrOTPInvalid
	}

	return s.db.Model(&record).Update("is_used", true).Error
}

// Resend invalidates any still-unconsumed code for (phone, purpose) and
// issues a fresh one.
func (s *OTPService) Resend(phone, purpose string) (*models.OTPCode, error) {
	return s.Issue(phone, purpose)
}

// SweepExpired deletes every record past its expiry, used or not. Meant to
// run on a schedule; verification checks expiry on its own and does not
// depend on the sweep.
func (s *OTPService) SweepExpired() (int64, error) {
	result := s.db.Where("expires_at < ?", time.Now()).Delete(&models.OTPCode{})
	return result.RowsAffected, result.Error
}
