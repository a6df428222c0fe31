package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/coupon"
)

// SessionLine is one purchasable row of a hosted checkout session.
type SessionLine struct {
	Name            string
	Description     string
	Images          []string
	Quantity        int64
	UnitAmountMinor int64
}

// SessionRequest describes the checkout session to open for a cart.
type SessionRequest struct {
	CartID         string
	CustomerEmail  string
	Lines          []SessionLine
	CouponPercent  float64
	Metadata       map[string]string
	IdempotencyKey string
}

// Session is the gateway's answer for a created checkout session.
type Session struct {
	ID  string
	URL string
}

// CreateCheckoutSession opens a payment-mode session. A positive CouponPercent
// is turned into a one-time gateway coupon first.
func (c *Client) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if c == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if len(req.Lines) == 0 {
		return nil, errors.New("checkout session requires at least one line")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(c.successURL),
		CancelURL:         stripe.String(c.cancelURL),
		ClientReferenceID: stripe.String(req.CartID),
	}
	params.Context = ctx
	if email := strings.TrimSpace(req.CustomerEmail); email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	for _, line := range req.Lines {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(line.Name),
		}
		if line.Description != "" {
			product.Description = stripe.String(line.Description)
		}
		if len(line.Images) > 0 {
			product.Images = stripe.StringSlice(line.Images)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(line.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(c.currency),
				UnitAmount:  stripe.Int64(line.UnitAmountMinor),
				ProductData: product,
			},
		})
	}

	if req.CouponPercent > 0 {
		couponID, err := c.createOneTimeCoupon(ctx, req.CouponPercent)
		if err != nil {
			return nil, err
		}
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{{Coupon: stripe.String(couponID)}}
	}

	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}

	created, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return &Session{ID: created.ID, URL: created.URL}, nil
}

func (c *Client) createOneTimeCoupon(ctx context.Context, percent float64) (string, error) {
	params := &stripe.CouponParams{
		PercentOff: stripe.Float64(percent),
		Duration:   stripe.String(string(stripe.CouponDurationOnce)),
	}
	params.Context = ctx
	created, err := coupon.New(params)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}
