package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
)

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Recompute derives every money field of c from its items and coupon:
// line subtotals, subtotal, discount and the discounted total, each rounded
// to cents. A coupon that expired by now no longer discounts. It must run
// after every cart mutation and before persisting.
func Recompute(c *models.Cart, now time.Time) {
	if c == nil {
		return
	}
	reprice(c, now)
	if !now.IsZero() {
		c.UpdatedAt = now
	}
}

func reprice(c *models.Cart, now time.Time) {
	subtotal := decimal.Zero
	for i := range c.Items {
		item := &c.Items[i]
		item.LineSubtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(moneyPlaces)
		subtotal = subtotal.Add(item.LineSubtotal)
	}
	c.Subtotal = subtotal.Round(moneyPlaces)

	c.Discount = decimal.Zero
	if c.CouponActiveAt(now) {
		c.Discount = c.Subtotal.Mul(c.CouponPercent.Decimal).Div(hundred).Round(moneyPlaces)
	}

	total := c.Subtotal.Sub(c.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	c.TotalAfterDiscount = total.Round(moneyPlaces)
}

// PayableAmount reprices c at now and returns what the buyer owes for its
// goods: the discounted total while the coupon is live, otherwise the subtotal.
func PayableAmount(c *models.Cart, now time.Time) decimal.Decimal {
	reprice(c, now)
	if c.CouponActiveAt(now) {
		return c.TotalAfterDiscount
	}
	return c.Subtotal
}
