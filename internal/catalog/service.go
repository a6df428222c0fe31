package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopcore-backend/pkg/db"
	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
	"github.com/angelmondragon/shopcore-backend/pkg/types"
)

type productStore interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
}

// Service exposes the catalog to shoppers and staff.
type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
}

type service struct {
	repo productStore
}

// NewService builds the catalog service.
func NewService(repo productStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

// CreateProductInput is the staff payload for a new product. Variant SKUs are
// always generated server side.
type CreateProductInput struct {
	Title          string               `json:"title" validate:"required,max=200"`
	Description    string               `json:"description" validate:"max=4000"`
	ImageCover     string               `json:"image_cover,omitempty" validate:"omitempty,url"`
	Images         []string             `json:"images,omitempty" validate:"omitempty,dive,url"`
	IsFreeShipping bool                 `json:"is_free_shipping"`
	Variants       []CreateVariantInput `json:"variants" validate:"required,min=1,dive"`
}

// CreateVariantInput describes one purchasable option of a new product.
type CreateVariantInput struct {
	Attributes      types.Attributes `json:"attributes,omitempty"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
	Stock           int              `json:"stock" validate:"min=0"`
	Images          []string         `json:"images,omitempty" validate:"omitempty,dive,url"`
}

// ProductDTO is the public representation of a product.
type ProductDTO struct {
	ID             uuid.UUID        `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	ImageCover     string           `json:"image_cover,omitempty"`
	Images         types.StringList `json:"images,omitempty"`
	IsFreeShipping bool             `json:"is_free_shipping"`
	Variants       []VariantDTO     `json:"variants"`
}

// VariantDTO is the public representation of a variant.
type VariantDTO struct {
	SKU             string           `json:"sku"`
	Attributes      types.Attributes `json:"attributes,omitempty"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
	Stock           int              `json:"stock"`
	Images          types.StringList `json:"images,omitempty"`
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return toProductDTO(product), nil
}

// CreateProduct persists a product with its variants. Each variant gets its
// SKU here, once.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product title is required")
	}
	if len(input.Variants) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one variant is required")
	}

	product := &models.Product{
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		ImageCover:     strings.TrimSpace(input.ImageCover),
		Images:         types.StringList(input.Images),
		IsFreeShipping: input.IsFreeShipping,
		Variants:       make([]models.Variant, 0, len(input.Variants)),
	}
	for i, in := range input.Variants {
		if err := validateVariant(in); err != nil {
			return nil, err.WithDetails(map[string]any{"variant": i})
		}
		v := models.Variant{
			Attributes: in.Attributes.Clone(),
			Price:      in.Price.Round(2),
			Stock:      in.Stock,
			Images:     types.StringList(in.Images),
		}
		if in.DiscountedPrice != nil {
			v.DiscountedPrice = decimal.NewNullDecimal(in.DiscountedPrice.Round(2))
		}
		product.Variants = append(product.Variants, v)
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "generated sku collided, retry the request")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return toProductDTO(product), nil
}

func validateVariant(in CreateVariantInput) *pkgerrors.Error {
	if !in.Price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant price must be positive")
	}
	if in.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant stock cannot be negative")
	}
	if in.DiscountedPrice != nil {
		if !in.DiscountedPrice.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "discounted price must be positive")
		}
		if !in.DiscountedPrice.LessThan(in.Price) {
			return pkgerrors.New(pkgerrors.CodeValidation, "discounted price must be below price")
		}
	}
	return nil
}

func toProductDTO(p *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:             p.ID,
		Title:          p.Title,
		Description:    p.Description,
		ImageCover:     p.ImageCover,
		Images:         p.Images,
		IsFreeShipping: p.IsFreeShipping,
		Variants:       make([]VariantDTO, 0, len(p.Variants)),
	}
	for _, v := range p.Variants {
		vd := VariantDTO{
			SKU:        v.SKU,
			Attributes: v.Attributes,
			Price:      v.Price,
			Stock:      v.Stock,
			Images:     v.Images,
		}
		if v.DiscountedPrice.Valid {
			d := v.DiscountedPrice.Decimal
			vd.DiscountedPrice = &d
		}
		dto.Variants = append(dto.Variants, vd)
	}
	return dto
}
