package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopcore-backend/internal/cart"
	"github.com/angelmondragon/shopcore-backend/internal/catalog"
	"github.com/angelmondragon/shopcore-backend/pkg/db"
	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
	"github.com/angelmondragon/shopcore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
	"github.com/angelmondragon/shopcore-backend/pkg/logger"
	"github.com/angelmondragon/shopcore-backend/pkg/metrics"
	"github.com/angelmondragon/shopcore-backend/pkg/pagination"
	"github.com/angelmondragon/shopcore-backend/pkg/types"
)

const publicIDLength = 10

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
}

type userFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type stockAdjuster interface {
	AdjustStockAndSold(ctx context.Context, adjustments []catalog.StockAdjustment) error
}

// Service converts carts into orders and manages their lifecycle.
type Service interface {
	CreateCashOrder(ctx context.Context, userID, cartID uuid.UUID, address types.ShippingAddress) (*OrderDTO, error)
	CreateCardOrderFromPayment(ctx context.Context, payment PaymentConfirmation) (*OrderDTO, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	ListOrders(ctx context.Context, actor Actor, params pagination.Params) (*pagination.Page[OrderDTO], error)
}

// ServiceParams wires the order service dependencies.
type ServiceParams struct {
	Repo    Repository
	Carts   cartReader
	Users   userFinder
	Stock   stockAdjuster
	Tx      txRunner
	Metrics *metrics.ShopMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    Repository
	carts   cartReader
	users   userFinder
	stock   stockAdjuster
	tx      txRunner
	metrics *metrics.ShopMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if p.Users == nil {
		return nil, fmt.Errorf("user finder required")
	}
	if p.Stock == nil {
		return nil, fmt.Errorf("stock adjuster required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    p.Repo,
		carts:   p.Carts,
		users:   p.Users,
		stock:   p.Stock,
		tx:      p.Tx,
		metrics: p.Metrics,
		logg:    p.Logger,
		now:     now,
	}, nil
}

// CreateCashOrder converts the caller's cart into an unpaid cash-on-delivery
// order. A cart owned by someone else is reported as missing.
func (s *service) CreateCashOrder(ctx context.Context, userID, cartID uuid.UUID, address types.ShippingAddress) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	c, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}

	price := cart.PayableAmount(c, s.now())
	order, err := s.assemble(c, address, enums.PaymentMethodCash)
	if err != nil {
		return nil, err
	}
	order.TotalPrice = order.TaxPrice.Add(order.ShippingPrice).Add(price)

	if err := s.commit(ctx, order, c); err != nil {
		return nil, err
	}
	return toDTO(order), nil
}

// CreateCardOrderFromPayment records a paid card order for a completed
// checkout session. Replaying the same session returns the existing order.
func (s *service) CreateCardOrderFromPayment(ctx context.Context, payment PaymentConfirmation) (*OrderDTO, error) {
	sessionID := strings.TrimSpace(payment.SessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment session id is required")
	}
	if existing, err := s.repo.FindByPaymentSession(ctx, sessionID); err == nil {
		return toDTO(existing), nil
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order by payment session")
	}

	cartID, err := uuid.Parse(strings.TrimSpace(payment.CartID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart reference")
	}
	c, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, payment.CustomerEmail)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if c.UserID != user.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart does not belong to the paying user")
	}

	order, err := s.assemble(c, payment.ShippingAddress, enums.PaymentMethodCard)
	if err != nil {
		return nil, err
	}
	paidAt := s.now().UTC()
	order.TotalPrice = decimal.New(payment.AmountTotalMinor, -2)
	order.PaymentSessionID = &sessionID
	order.IsPaid = true
	order.PaidAt = &paidAt

	if err := s.commit(ctx, order, c); err != nil {
		if db.IsUniqueViolation(err, "") {
			if existing, findErr := s.repo.FindByPaymentSession(ctx, sessionID); findErr == nil {
				return toDTO(existing), nil
			}
		}
		return nil, err
	}
	return toDTO(order), nil
}

func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	return s.stamp(ctx, orderID, s.repo.MarkPaid)
}

func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	return s.stamp(ctx, orderID, s.repo.MarkDelivered)
}

// GetOrder returns the order when the actor owns it or is staff.
func (s *service) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return toDTO(order), nil
}

// ListOrders pages through orders newest first. Staff see every order.
func (s *service) ListOrders(ctx context.Context, actor Actor, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	var scope *uuid.UUID
	if !actor.Role.IsStaff() {
		scope = &actor.UserID
	}

	rows, err := s.repo.List(ctx, scope, cursor, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *toDTO(&rows[i]))
	}
	page := pagination.Trim(dtos, limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

func (s *service) loadCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	c, err := s.carts.FindByID(ctx, cartID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return c, nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// assemble deep-copies the cart snapshot into a new order. Tax and shipping
// are zero. The coupon code is kept only when it discounted the cart.
func (s *service) assemble(c *models.Cart, address types.ShippingAddress, method enums.PaymentMethod) (*models.Order, error) {
	if len(c.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	publicID, err := gonanoid.New(publicIDLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order public id")
	}

	items := make([]models.CartItem, len(c.Items))
	for i, item := range c.Items {
		item.Attributes = item.Attributes.Clone()
		items[i] = item
	}

	order := &models.Order{
		ID:              uuid.New(),
		PublicID:        publicID,
		UserID:          c.UserID,
		LineItems:       items,
		ShippingAddress: address,
		Subtotal:        c.Subtotal,
		Discount:        c.Discount,
		TaxPrice:        decimal.Zero,
		ShippingPrice:   decimal.Zero,
		PaymentMethod:   method,
		CreatedAt:       s.now().UTC(),
	}
	if c.HasCoupon() && c.Discount.IsPositive() {
		code := *c.CouponCode
		order.CouponCode = &code
	}
	return order, nil
}

// commit inserts the order and deletes the cart atomically, then moves stock
// to sold outside the transaction. Stock failures never undo the order.
func (s *service) commit(ctx context.Context, order *models.Order, c *models.Cart) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return err
		}
		deleted, err := repo.DeleteCart(ctx, c.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart was already converted")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil || db.IsUniqueViolation(err, "") {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	s.metrics.IncOrderCreated(string(order.PaymentMethod))

	adjustments := make([]catalog.StockAdjustment, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		adjustments = append(adjustments, catalog.StockAdjustment{SKU: item.VariantSKU, Qty: item.Quantity})
	}
	if err := s.stock.AdjustStockAndSold(ctx, adjustments); err != nil {
		gaps := multierr.Errors(err)
		s.metrics.AddStockAdjustGaps(len(gaps))
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":  order.ID.String(),
			"public_id": order.PublicID,
			"gaps":      len(gaps),
		})
		s.logg.Error(logCtx, "stock adjustment incomplete for order", pkgerrors.Wrap(pkgerrors.CodeConflict, err, "stock adjustment gap"))
	}
	return nil
}

func (s *service) stamp(ctx context.Context, orderID uuid.UUID, apply func(context.Context, uuid.UUID, time.Time) (bool, error)) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	updated, err := apply(ctx, orderID, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toDTO(order), nil
}
