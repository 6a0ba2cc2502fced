package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/krishna/internal/models"
)

// openTestDB returns an isolated in-memory database migrated for this
// subsystem's models.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	migrations := []interface{}{
		&models.User{},
		&models.OTPCode{},
		&models.Coupon{},
		&models.UserCoupon{},
	}
	for _, migration := range migrations {
		if err := db.AutoMigrate(migration); err != nil {
			t.Fatalf("failed to migrate: %v", err)
		}
	}

	return db
}

type sentSMS struct {
	To      string
	Message string
}

// fakeSMS records outgoing messages and can be flipped into failure mode.
type fakeSMS struct {
	fail bool
	sent []sentSMS
}

func (f *fakeSMS) Send(to, message string) SMSResult {
	f.sent = append(f.sent, sentSMS{To: to, Message: message})
	if f.fail {
		return SMSResult{Success: false, Message: "Failed to send SMS"}
	}
	return SMSResult{Success: true, Message: "SMS sent successfully"}
}

func newTestOTPService(t *testing.T, db *gorm.DB) (*OTPService, *fakeSMS) {
	t.Helper()
	sms := &fakeSMS{}
	return NewOTPService(db, sms, 10*time.Minute), sms
}
