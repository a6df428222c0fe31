package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
	"github.com/angelmondragon/shopcore-backend/pkg/enums"
	"github.com/angelmondragon/shopcore-backend/pkg/types"
)

// Actor is the authenticated caller an order query runs on behalf of.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// CanSee reports whether the actor may read the order.
func (a Actor) CanSee(order *models.Order) bool {
	return a.Role.IsStaff() || order.UserID == a.UserID
}

// PaymentConfirmation is what the payment gateway reports for a completed
// hosted checkout.
type PaymentConfirmation struct {
	SessionID        string
	CartID           string
	CustomerEmail    string
	AmountTotalMinor int64
	ShippingAddress  types.ShippingAddress
}

// CashOrderInput is the body of a cash-on-delivery checkout.
type CashOrderInput struct {
	ShippingAddress types.ShippingAddress `json:"shipping_address" validate:"required"`
}

// OrderDTO is the public representation of an order.
type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	PublicID        string                `json:"public_id"`
	UserID          uuid.UUID             `json:"user_id"`
	LineItems       []models.CartItem     `json:"line_items"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	CouponCode      *string               `json:"coupon_code,omitempty"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	Discount        decimal.Decimal       `json:"discount"`
	TaxPrice        decimal.Decimal       `json:"tax_price"`
	ShippingPrice   decimal.Decimal       `json:"shipping_price"`
	TotalPrice      decimal.Decimal       `json:"total_price"`
	PaymentMethod   enums.PaymentMethod   `json:"payment_method"`
	IsPaid          bool                  `json:"is_paid"`
	PaidAt          *time.Time            `json:"paid_at,omitempty"`
	IsDelivered     bool                  `json:"is_delivered"`
	DeliveredAt     *time.Time            `json:"delivered_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

func toDTO(o *models.Order) *OrderDTO {
	items := o.LineItems
	if items == nil {
		items = []models.CartItem{}
	}
	return &OrderDTO{
		ID:              o.ID,
		PublicID:        o.PublicID,
		UserID:          o.UserID,
		LineItems:       items,
		ShippingAddress: o.ShippingAddress,
		CouponCode:      o.CouponCode,
		Subtotal:        o.Subtotal,
		Discount:        o.Discount,
		TaxPrice:        o.TaxPrice,
		ShippingPrice:   o.ShippingPrice,
		TotalPrice:      o.TotalPrice,
		PaymentMethod:   o.PaymentMethod,
		IsPaid:          o.IsPaid,
		PaidAt:          o.PaidAt,
		IsDelivered:     o.IsDelivered,
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt,
	}
}
