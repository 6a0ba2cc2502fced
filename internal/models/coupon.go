package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon is a discount voucher. The only coupons this subsystem creates are
// welcome gifts, granted once per user at first successful verification.
type Coupon struct {
	BaseModel
	Code           string    `gorm:"uniqueIndex" json:"code"`
	Description    string    `json:"description"`
	DiscountType   string    `json:"discountType"`
	DiscountValue  float64   `json:"discountValue"`
	MinOrderAmount float64   `json:"minOrderAmount"`
	MaxDiscount    float64   `json:"maxDiscount"`
	ValidFrom      time.Time `json:"validFrom"`
	ValidUntil     time.Time `json:"validUntil"`
	UsageLimit     int       `json:"usageLimit"`
	IsSingleUse    bool      `json:"isSingleUse"`
	IsActive       bool      `json:"isActive"`
}

// UserCoupon links a coupon to the user it was granted to.
type UserCoupon struct {
	BaseModel
	UserID   uuid.UUID `gorm:"type:uuid;index" json:"userId"`
	CouponID uuid.UUID `gorm:"type:uuid;index" json:"couponId"`
	IsUsed   bool      `json:"isUsed"`
	Coupon   Coupon    `json:"coupon"`
}
