package models

import (
	"time"
)

// OTP purposes.
const (
	PurposeRegister = "register"
	PurposeLogin    = "login"
	PurposeReset    = "reset"
)

// OTPCode keeps track of one-time codes sent to phone numbers. The unique
// (phone, purpose) key means at most one row exists per pair; issuance
// overwrites whatever row is there, used or not. The code column holds a
// bcrypt hash, never the plaintext digits.
type OTPCode struct {
	BaseModel
	Phone     string    `gorm:"uniqueIndex:idx_otp_phone_purpose" json:"phone"`
	Purpose   string    `gorm:"uniqueIndex:idx_otp_phone_purpose" json:"purpose"`
	Code      string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsUsed    bool      `json:"isUsed"`
}

// ValidPurpose reports whether p is a recognized OTP purpose.
func ValidPurpose(p string) bool {
	return p == PurposeRegister || p == PurposeLogin || p == PurposeReset
}
