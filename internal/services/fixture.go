package services

// FixtureIdentity is the configured test phone/code pair that bypasses real
// OTP delivery for deterministic end-to-end testing. A nil *FixtureIdentity
// never matches, so deployments that leave the fixture unconfigured cannot
// reach the bypass at all.
type FixtureIdentity struct {
	phone string
	code  string
}

// NewFixtureIdentity returns the fixture for the given pair, or nil when no
// phone is configured.
func NewFixtureIdentity(phone, code string) *FixtureIdentity {
	if phone == "" {
		return nil
	}
	return &FixtureIdentity{phone: phone, code: code}
}

// Matches reports whether the phone belongs to the fixture identity.
func (f *FixtureIdentity) Matches(phone string) bool {
	return f != nil && phone == f.phone
}

// Code returns the fixed verification code.
func (f *FixtureIdentity) Code() string {
	if f == nil {
		return ""
	}
	return f.code
}

// Phone returns the fixture phone number.
func (f *FixtureIdentity) Phone() string {
	if f == nil {
		return ""
	}
	return f.phone
}
