package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/krishna/internal/config"
	"github.com/example/krishna/internal/database"
	"github.com/example/krishna/internal/routes"
	"github.com/example/krishna/internal/services"
)

// How often expired OTP records are swept from storage. Verification checks
// expiry on its own, so the interval is not correctness-critical.
const otpSweepInterval = time.Minute

func sweepExpiredOTPs(otp *services.OTPService) {
	ticker := time.NewTicker(otpSweepInterval)
	defer ticker.Stop()

	for {
		<-ticker.C

		deleted, err := otp.SweepExpired()
		if err != nil {
			log.Printf("otp sweep failed: %v", err)
			continue
		}
		if deleted > 0 {
			log.Printf("otp sweep removed %d expired record(s)", deleted)
		}
	}
}

// corsConfig builds the CORS policy. With an origin allowlist configured,
// credentials are allowed so browsers can present the token cookie
// cross-origin; without one, any origin is accepted but credentials are not
// (the wildcard and credentials must never be combined).
func corsConfig(cfg *config.Config) cors.Config {
	if cfg.CORSOrigins == "" {
		return cors.Config{}
	}
	return cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
	}
}

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	app := fiber.New(fiber.Config{
		AppName: "Krishna Digital World API",
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(corsConfig(cfg)))

	routes.Register(app, db, cfg)

	sms := services.NewFast2SMSService(cfg.Fast2SMSAPIKey, cfg.Fast2SMSSenderID, cfg.Fast2SMSTemplateID)
	go sweepExpiredOTPs(services.NewOTPService(db, sms, cfg.OTPExpiry))

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
