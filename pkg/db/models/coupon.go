package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Coupon is a named percentage discount with an expiry.
type Coupon struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name            string          `gorm:"column:name;not null;uniqueIndex"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	ExpiresAt       time.Time       `gorm:"column:expires_at;not null"`
	Active          bool            `gorm:"column:active;not null;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// IsValidAt reports whether the coupon can be applied at now.
func (c Coupon) IsValidAt(now time.Time) bool {
	return c.Active && c.ExpiresAt.After(now)
}
