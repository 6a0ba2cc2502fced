package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Failure kinds returned by the service layer. Handlers translate these to
// HTTP statuses; anything not in this taxonomy is an unexpected fault and
// propagates as-is.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrPhoneExists        = errors.New("user with this phone number already exists")
	ErrEmailExists        = errors.New("user with this email already exists")
	ErrAccountDeactivated = errors.New("account is deactivated")
	ErrOTPNotFound        = errors.New("otp not found or used")
	ErrOTPInvalid         = errors.New("invalid otp")
	ErrOTPExpired         = errors.New("otp expired")
	ErrSMSDelivery        = errors.New("failed to send sms")
	ErrAddressNotFound    = errors.New("address not found")
)

// ValidationError reports malformed or missing input with field-level detail.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}
