package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
)

// AddItemInput is the request to put a variant into the cart.
type AddItemInput struct {
	ProductID  uuid.UUID `json:"product_id" validate:"required"`
	VariantSKU string    `json:"variant_sku" validate:"required,sku"`
	Quantity   int       `json:"quantity" validate:"required,min=1"`
}

// CartDTO is the public representation of a cart.
type CartDTO struct {
	ID                 uuid.UUID         `json:"id"`
	UserID             uuid.UUID         `json:"user_id"`
	Items              []models.CartItem `json:"items"`
	CouponCode         *string           `json:"coupon_code,omitempty"`
	CouponPercent      *decimal.Decimal  `json:"coupon_percent,omitempty"`
	CouponExpiresAt    *time.Time        `json:"coupon_expires_at,omitempty"`
	Subtotal           decimal.Decimal   `json:"subtotal"`
	Discount           decimal.Decimal   `json:"discount"`
	TotalAfterDiscount decimal.Decimal   `json:"total_after_discount"`
	ItemCount          int               `json:"item_count"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// ToDTO maps a cart model onto its transport shape.
func ToDTO(c *models.Cart) *CartDTO {
	dto := &CartDTO{
		ID:                 c.ID,
		UserID:             c.UserID,
		Items:              c.Items,
		CouponCode:         c.CouponCode,
		CouponExpiresAt:    c.CouponExpiresAt,
		Subtotal:           c.Subtotal,
		Discount:           c.Discount,
		TotalAfterDiscount: c.TotalAfterDiscount,
		UpdatedAt:          c.UpdatedAt,
	}
	if dto.Items == nil {
		dto.Items = []models.CartItem{}
	}
	if c.CouponPercent.Valid {
		p := c.CouponPercent.Decimal
		dto.CouponPercent = &p
	}
	for _, item := range c.Items {
		dto.ItemCount += item.Quantity
	}
	return dto
}
