package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopcore-backend/pkg/db"
	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
	"github.com/angelmondragon/shopcore-backend/pkg/stripe"
	"github.com/angelmondragon/shopcore-backend/pkg/types"
)

var minorUnits = decimal.NewFromInt(100)

type cartReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
}

type productSummaries interface {
	FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type sessionGateway interface {
	CreateCheckoutSession(ctx context.Context, req stripe.SessionRequest) (*stripe.Session, error)
}

// Customer identifies the shopper opening a checkout session.
type Customer struct {
	UserID uuid.UUID
	Email  string
}

// SessionInput is the body of a checkout session request.
type SessionInput struct {
	ShippingAddress types.ShippingAddress `json:"shipping_address" validate:"required"`
}

// SessionDTO is returned to the client to redirect into hosted checkout.
type SessionDTO struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// Service opens hosted payment sessions for carts.
type Service interface {
	CreateSession(ctx context.Context, customer Customer, cartID uuid.UUID, address types.ShippingAddress, idempotencyKey string) (*SessionDTO, error)
}

type service struct {
	carts    cartReader
	products productSummaries
	gateway  sessionGateway
	now      func() time.Time
}

// NewService builds the checkout session service.
func NewService(carts cartReader, products productSummaries, gateway sessionGateway, now func() time.Time) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{carts: carts, products: products, gateway: gateway, now: now}, nil
}

// CreateSession prices the caller's cart into a hosted checkout session. The
// cart id travels as the client reference and the address as metadata so the
// completion webhook can rebuild the order.
func (s *service) CreateSession(ctx context.Context, customer Customer, cartID uuid.UUID, address types.ShippingAddress, idempotencyKey string) (*SessionDTO, error) {
	if customer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	email := strings.TrimSpace(customer.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}

	c, err := s.carts.FindByID(ctx, cartID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if c.UserID != customer.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	if len(c.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	ids := make([]uuid.UUID, 0, len(c.Items))
	seen := make(map[uuid.UUID]struct{}, len(c.Items))
	for _, item := range c.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product summaries")
	}

	lines := make([]stripe.SessionLine, 0, len(c.Items))
	for _, item := range c.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart references an unavailable product").
				WithDetails(map[string]any{"sku": item.VariantSKU})
		}
		lines = append(lines, sessionLine(item, product))
	}

	req := stripe.SessionRequest{
		CartID:         c.ID.String(),
		CustomerEmail:  email,
		Lines:          lines,
		Metadata:       address.Metadata(),
		IdempotencyKey: idempotencyKey,
	}
	if c.CouponActiveAt(s.now()) {
		req.CouponPercent = c.CouponPercent.Decimal.InexactFloat64()
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	return &SessionDTO{SessionID: session.ID, URL: session.URL}, nil
}

func sessionLine(item models.CartItem, product models.Product) stripe.SessionLine {
	name := product.Title
	if name == "" {
		name = item.Title
	}
	var images []string
	switch {
	case item.ImageURL != "":
		images = []string{item.ImageURL}
	case product.ImageCover != "":
		images = []string{product.ImageCover}
	}
	return stripe.SessionLine{
		Name:            name,
		Description:     product.Description,
		Images:          images,
		Quantity:        int64(item.Quantity),
		UnitAmountMinor: toMinor(item.UnitPrice),
	}
}

func toMinor(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnits).Round(0).IntPart()
}
