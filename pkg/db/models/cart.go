package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopcore-backend/pkg/types"
)

// Cart is the single mutable basket a user owns. Line items live inside the
// row as a JSON document and are copied verbatim into the order at checkout.
type Cart struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID             uuid.UUID           `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Items              []CartItem          `gorm:"column:items;type:jsonb;serializer:json"`
	CouponCode         *string             `gorm:"column:coupon_code"`
	CouponPercent      decimal.NullDecimal `gorm:"column:coupon_percent;type:numeric(5,2)"`
	CouponExpiresAt    *time.Time          `gorm:"column:coupon_expires_at"`
	Subtotal           decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	Discount           decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	TotalAfterDiscount decimal.Decimal     `gorm:"column:total_after_discount;type:numeric(12,2);not null;default:0"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem is a priced snapshot of one variant in a cart or order.
type CartItem struct {
	ProductID    uuid.UUID        `json:"product_id"`
	VariantSKU   string           `json:"variant_sku"`
	Title        string           `json:"title"`
	Quantity     int              `json:"quantity"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	LineSubtotal decimal.Decimal  `json:"line_subtotal"`
	Attributes   types.Attributes `json:"attributes,omitempty"`
	ImageURL     string           `json:"image_url,omitempty"`
}

// HasCoupon reports whether a coupon with a positive percent is attached.
func (c *Cart) HasCoupon() bool {
	return c.CouponCode != nil && *c.CouponCode != "" && c.CouponPercent.Valid && c.CouponPercent.Decimal.IsPositive()
}

// CouponActiveAt reports whether the attached coupon still discounts at now.
func (c *Cart) CouponActiveAt(now time.Time) bool {
	return c.HasCoupon() && c.CouponExpiresAt != nil && c.CouponExpiresAt.After(now)
}

// ItemIndex returns the position of sku in the cart or -1.
func (c *Cart) ItemIndex(sku string) int {
	for i := range c.Items {
		if c.Items[i].VariantSKU == sku {
			return i
		}
	}
	return -1
}
