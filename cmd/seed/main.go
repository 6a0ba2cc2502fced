package main

import (
	"log"

	"github.com/example/krishna/internal/config"
	"github.com/example/krishna/internal/database"
	"github.com/example/krishna/internal/services"
)

// Seeds the fixture test account so end-to-end tests can log in with the
// configured fixed OTP without touching the SMS gateway.
func main() {
	cfg := config.Load()
	if cfg.TestUserPhone == "" {
		log.Fatal("TEST_USER_PHONE must be set to seed the test user")
	}

	db := database.Connect(cfg.DatabaseURL)

	sms := services.NewFast2SMSService(cfg.Fast2SMSAPIKey, cfg.Fast2SMSSenderID, cfg.Fast2SMSTemplateID)
	otpService := services.NewOTPService(db, sms, cfg.OTPExpiry)
	fixture := services.NewFixtureIdentity(cfg.TestUserPhone, cfg.TestUserOTP)
	authService := services.NewAuthService(db, otpService, fixture, cfg.JWTSecret, cfg.TokenExpires)

	user, created, err := authService.SeedFixtureUser()
	if err != nil {
		log.Fatalf("failed to seed test user: %v", err)
	}

	if created {
		log.Printf("test user created: id=%s phone=%s addresses=%d", user.ID, user.Phone, len(user.AdditionalAddresses))
	} else {
		log.Printf("test user already exists: id=%s phone=%s", user.ID, user.Phone)
	}
	log.Printf("login with phone %s and OTP %s", cfg.TestUserPhone, cfg.TestUserOTP)
}
