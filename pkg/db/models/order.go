package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopcore-backend/pkg/enums"
	"github.com/angelmondragon/shopcore-backend/pkg/types"
)

// Order is the immutable priced result of converting a cart.
type Order struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	PublicID         string                `gorm:"column:public_id;not null;uniqueIndex"`
	UserID           uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	LineItems        []CartItem            `gorm:"column:line_items;type:jsonb;serializer:json"`
	ShippingAddress  types.ShippingAddress `gorm:"column:shipping_address;type:jsonb"`
	CouponCode       *string               `gorm:"column:coupon_code"`
	Subtotal         decimal.Decimal       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount         decimal.Decimal       `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	TaxPrice         decimal.Decimal       `gorm:"column:tax_price;type:numeric(12,2);not null;default:0"`
	ShippingPrice    decimal.Decimal       `gorm:"column:shipping_price;type:numeric(12,2);not null;default:0"`
	TotalPrice       decimal.Decimal       `gorm:"column:total_price;type:numeric(12,2);not null"`
	PaymentMethod    enums.PaymentMethod   `gorm:"column:payment_method;not null"`
	PaymentSessionID *string               `gorm:"column:payment_session_id;uniqueIndex"`
	IsPaid           bool                  `gorm:"column:is_paid;not null;default:false"`
	PaidAt           *time.Time            `gorm:"column:paid_at"`
	IsDelivered      bool                  `gorm:"column:is_delivered;not null;default:false"`
	DeliveredAt      *time.Time            `gorm:"column:delivered_at"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
