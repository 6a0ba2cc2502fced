package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/krishna/internal/config"
	"github.com/example/krishna/internal/handlers"
	"github.com/example/krishna/internal/middleware"
	"github.com/example/krishna/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	sms := services.NewFast2SMSService(cfg.Fast2SMSAPIKey, cfg.Fast2SMSSenderID, cfg.Fast2SMSTemplateID)
	otpService := services.NewOTPService(db, sms, cfg.OTPExpiry)
	fixture := services.NewFixtureIdentity(cfg.TestUserPhone, cfg.TestUserOTP)
	authService := services.NewAuthService(db, otpService, fixture, cfg.JWTSecret, cfg.TokenExpires)
	addressService := services.NewAddressService(db)

	authHandler := handlers.NewAuthHandler(authService, cfg)
	profileHandler := handlers.NewProfileHandler(db, addressService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/verify-otp", authHandler.VerifyOTP)
	auth.Post("/login", authHandler.Login)
	auth.Post("/verify-login", authHandler.VerifyLogin)
	auth.Post("/resend-otp", authHandler.ResendOTP)

	protected := auth.Group("", middleware.AuthMiddleware(cfg))
	protected.Post("/logout", authHandler.Logout)
	protected.Get("/me", authHandler.GetMe)
	protected.Put("/me", authHandler.UpdateMe)
	protected.Post("/complete-profile", authHandler.CompleteProfile)

	protected.Get("/addresses", profileHandler.ListAddresses)
	protected.Post("/addresses", profileHandler.AddAddress)
	protected.Put("/addresses/:addressId", profileHandler.UpdateAddress)
	protected.Delete("/addresses/:addressId", profileHandler.DeleteAddress)
	protected.Put("/addresses/:addressId/default", profileHandler.SetDefaultAddress)

	protected.Get("/coupons", profileHandler.ListCoupons)
}
