package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopcore-backend/pkg/db"
	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
)

type cartRepository interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	Update(ctx context.Context, cart *models.Cart) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type catalogReader interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariantBySKU(ctx context.Context, sku string) (*models.Variant, error)
}

type couponResolver interface {
	ResolveActive(ctx context.Context, name string) (*models.Coupon, error)
}

// Service manages the single cart each user owns.
type Service interface {
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateItemQuantity(ctx context.Context, userID uuid.UUID, sku string, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, sku string) (*CartDTO, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*CartDTO, error)
}

type service struct {
	repo    cartRepository
	catalog catalogReader
	coupons couponResolver
	now     func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo cartRepository, catalog catalogReader, coupons couponResolver, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon resolver required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, catalog: catalog, coupons: coupons, now: now}, nil
}

// AddItem puts a variant into the user's cart, clamped to available stock.
// Adding a SKU already in the cart replaces its quantity.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	sku := strings.TrimSpace(input.VariantSKU)

	product, err := s.catalog.FindProduct(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	variant, ok := product.VariantBySKU(sku)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}

	qty, err := clampToStock(input.Quantity, variant)
	if err != nil {
		return nil, err
	}

	cart, isNew, err := s.loadOrNew(ctx, userID)
	if err != nil {
		return nil, err
	}

	if idx := cart.ItemIndex(sku); idx >= 0 {
		cart.Items[idx].Quantity = qty
	} else {
		cart.Items = append(cart.Items, models.CartItem{
			ProductID:  product.ID,
			VariantSKU: variant.SKU,
			Title:      product.Title,
			Quantity:   qty,
			UnitPrice:  variant.Price,
			Attributes: variant.Attributes.Clone(),
			ImageURL:   variant.Images.First(),
		})
	}

	return s.persist(ctx, cart, isNew)
}

// UpdateItemQuantity sets the quantity of a line already in the cart, clamped
// to the variant's current stock.
func (s *service) UpdateItemQuantity(ctx context.Context, userID uuid.UUID, sku string, quantity int) (*CartDTO, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := cart.ItemIndex(sku)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}

	variant, err := s.catalog.FindVariantBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	qty, err := clampToStock(quantity, variant)
	if err != nil {
		return nil, err
	}
	cart.Items[idx].Quantity = qty

	return s.persist(ctx, cart, false)
}

// RemoveItem drops a line from the cart. Removing an absent SKU is a no-op.
func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, sku string) (*CartDTO, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := cart.ItemIndex(sku)
	if idx < 0 {
		reprice(cart, s.now())
		return ToDTO(cart), nil
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	return s.persist(ctx, cart, false)
}

func (s *service) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	reprice(cart, s.now())
	return ToDTO(cart), nil
}

// ApplyCoupon attaches an active coupon to the cart. An invalid coupon leaves
// the cart untouched.
func (s *service) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*CartDTO, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	coupon, err := s.coupons.ResolveActive(ctx, code)
	if err != nil {
		return nil, err
	}

	name := coupon.Name
	cart.CouponCode = &name
	cart.CouponPercent = decimal.NewNullDecimal(coupon.DiscountPercent)
	expiresAt := coupon.ExpiresAt.UTC()
	cart.CouponExpiresAt = &expiresAt
	return s.persist(ctx, cart, false)
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) loadOrNew(ctx context.Context, userID uuid.UUID) (*models.Cart, bool, error) {
	cart, err := s.load(ctx, userID)
	if err == nil {
		return cart, false, nil
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, false, err
	}
	return &models.Cart{ID: uuid.New(), UserID: userID}, true, nil
}

func (s *service) persist(ctx context.Context, cart *models.Cart, isNew bool) (*CartDTO, error) {
	Recompute(cart, s.now())

	var err error
	if isNew {
		err = s.repo.Create(ctx, cart)
	} else {
		err = s.repo.Update(ctx, cart)
	}
	if err != nil {
		if isNew && db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart was created concurrently, retry the request")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return ToDTO(cart), nil
}

func clampToStock(requested int, variant *models.Variant) (int, error) {
	qty := requested
	if variant.Stock < qty {
		qty = variant.Stock
	}
	if qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "variant out of stock").
			WithDetails(map[string]any{"sku": variant.SKU})
	}
	return qty, nil
}
