package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopcore-backend/pkg/types"
)

// Product represents a catalog listing; buyers always purchase one of its variants.
type Product struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Title          string           `gorm:"column:title;not null"`
	Description    string           `gorm:"column:description;not null;default:''"`
	ImageCover     string           `gorm:"column:image_cover"`
	Images         types.StringList `gorm:"column:images;type:jsonb;serializer:json"`
	IsFreeShipping bool             `gorm:"column:is_free_shipping;not null;default:false"`
	IsDeleted      bool             `gorm:"column:is_deleted;not null;default:false"`
	Variants       []Variant        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// Variant is a purchasable option of a product, identified by its SKU.
type Variant struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProductID       uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	SKU             string              `gorm:"column:sku;not null;uniqueIndex"`
	Attributes      types.Attributes    `gorm:"column:attributes;type:jsonb;serializer:json"`
	Price           decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountedPrice decimal.NullDecimal `gorm:"column:discounted_price;type:numeric(12,2)"`
	Stock           int                 `gorm:"column:stock;not null;default:0"`
	Sold            int                 `gorm:"column:sold;not null;default:0"`
	Images          types.StringList    `gorm:"column:images;type:jsonb;serializer:json"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// VariantBySKU returns the variant of p carrying sku.
func (p *Product) VariantBySKU(sku string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].SKU == sku {
			return &p.Variants[i], true
		}
	}
	return nil, false
}
