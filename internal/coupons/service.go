package coupons

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

var maxPercent = decimal.NewFromInt(100)

type couponRepository interface {
	FindActiveByName(ctx context.Context, name string, now time.Time) (*models.Coupon, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	Create(ctx context.Context, coupon *models.Coupon) error
	Save(ctx context.Context, coupon *models.Coupon) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service resolves coupons for carts and manages them for staff.
type Service interface {
	ResolveActive(ctx context.Context, name string) (*models.Coupon, error)
	Create(ctx context.Context, input CreateInput) (*CouponDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CouponDTO, error)
	List(ctx context.Context) ([]CouponDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*CouponDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo couponRepository
	now  func() time.Time
}

// NewService builds the coupon service. now defaults to time.Now.
func NewService(repo couponRepository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

// CreateInput is the payload for a new coupon.
type CreateInput struct {
	Name            string          `json:"name" validate:"required,max=64"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	ExpiresAt       time.Time       `json:"expires_at" validate:"required"`
	Active          *bool           `json:"active,omitempty"`
}

// UpdateInput carries the fields to change; nil fields are left untouched.
type UpdateInput struct {
	Name            *string          `json:"name,omitempty" validate:"omitempty,max=64"`
	DiscountPercent *decimal.Decimal `json:"discount_percent,omitempty"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
	Active          *bool            `json:"active,omitempty"`
}

// CouponDTO is the admin representation of a coupon.
type CouponDTO struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	ExpiresAt       time.Time       `json:"expires_at"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ResolveActive returns the active, unexpired coupon with exactly this name.
// Unknown, inactive and expired coupons are all reported as validation errors.
func (s *service) ResolveActive(ctx context.Context, name string) (*models.Coupon, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	coupon, err := s.repo.FindActiveByName(ctx, name, s.now().UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is invalid or expired")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CouponDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon name is required")
	}
	if err := validatePercent(input.DiscountPercent); err != nil {
		return nil, err
	}
	if input.ExpiresAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon expiry is required")
	}

	coupon := &models.Coupon{
		ID:              uuid.New(),
		Name:            name,
		DiscountPercent: input.DiscountPercent.Round(2),
		ExpiresAt:       input.ExpiresAt.UTC(),
		Active:          true,
	}
	if input.Active != nil {
		coupon.Active = *input.Active
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return toDTO(coupon), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CouponDTO, error) {
	coupon, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDTO(coupon), nil
}

func (s *service) List(ctx context.Context) ([]CouponDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	out := make([]CouponDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*CouponDTO, error) {
	coupon, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon name is required")
		}
		coupon.Name = name
	}
	if input.DiscountPercent != nil {
		if err := validatePercent(*input.DiscountPercent); err != nil {
			return nil, err
		}
		coupon.DiscountPercent = input.DiscountPercent.Round(2)
	}
	if input.ExpiresAt != nil {
		if input.ExpiresAt.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon expiry is required")
		}
		coupon.ExpiresAt = input.ExpiresAt.UTC()
	}
	if input.Active != nil {
		coupon.Active = *input.Active
	}

	if err := s.repo.Save(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
	}
	return toDTO(coupon), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete coupon")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

func validatePercent(p decimal.Decimal) error {
	if !p.IsPositive() || p.GreaterThan(maxPercent) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be greater than 0 and at most 100").
			WithDetails(map[string]any{"discount_percent": p.String()})
	}
	return nil
}

func toDTO(c *models.Coupon) *CouponDTO {
	return &CouponDTO{
		ID:              c.ID,
		Name:            c.Name,
		DiscountPercent: c.DiscountPercent,
		ExpiresAt:       c.ExpiresAt,
		Active:          c.Active,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}
