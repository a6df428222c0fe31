package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
)

// ErrInsufficientStock is reported for an adjustment whose conditional update
// matched no row.
var ErrInsufficientStock = errors.New("insufficient stock")

// StockAdjustment moves qty units of sku from stock to sold.
type StockAdjustment struct {
	SKU string
	Qty int
}

// Repository persists products and variants.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a catalog repository to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindProduct loads a live product and its variants.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProducts loads the live products among ids, keyed by id.
func (r *Repository) FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_deleted = ?", ids, false).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// FindVariantBySKU loads a variant whose product is still live.
func (r *Repository) FindVariantBySKU(ctx context.Context, sku string) (*models.Variant, error) {
	var variant models.Variant
	err := r.db.WithContext(ctx).
		Joins("JOIN products ON products.id = variants.product_id AND products.is_deleted = ?", false).
		Where("variants.sku = ?", sku).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// CreateProduct inserts product with its variants, assigning ids and SKUs.
// SKUs already present on a variant are kept.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	for i := range product.Variants {
		v := &product.Variants[i]
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.ProductID = product.ID
		if v.SKU != "" {
			continue
		}
		sku, err := GenerateSKU()
		if err != nil {
			return err
		}
		v.SKU = sku
	}
	return r.db.WithContext(ctx).Create(product).Error
}

// AdjustStockAndSold applies each adjustment as an independent conditional
// update (stock >= qty). Failed rows do not stop the rest of the batch; their
// errors are combined and returned.
func (r *Repository) AdjustStockAndSold(ctx context.Context, adjustments []StockAdjustment) error {
	var errs error
	for _, adj := range adjustments {
		if adj.Qty <= 0 {
			continue
		}
		res := r.db.WithContext(ctx).
			Model(&models.Variant{}).
			Where("sku = ? AND stock >= ?", adj.SKU, adj.Qty).
			Updates(map[string]any{
				"stock": gorm.Expr("stock - ?", adj.Qty),
				"sold":  gorm.Expr("sold + ?", adj.Qty),
			})
		switch {
		case res.Error != nil:
			errs = multierr.Append(errs, fmt.Errorf("adjust sku %s: %w", adj.SKU, res.Error))
		case res.RowsAffected == 0:
			errs = multierr.Append(errs, fmt.Errorf("adjust sku %s by %d: %w", adj.SKU, adj.Qty, ErrInsufficientStock))
		}
	}
	return errs
}
