// Package dbtest opens throwaway SQLite databases migrated from the models,
// plus fixtures shared by repository and service tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
	"github.com/angelmondragon/shopcore-backend/pkg/enums"
	"github.com/angelmondragon/shopcore-backend/pkg/types"
)

// Open returns an isolated in-memory database with every model migrated.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:shopcore_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// MustCreateUser inserts a user with the given role.
func MustCreateUser(t *testing.T, db *gorm.DB, role enums.UserRole) *models.User {
	t.Helper()
	id := uuid.New()
	user := &models.User{
		ID:    id,
		Name:  "Test Buyer",
		Email: fmt.Sprintf("buyer_%s@example.com", id.String()[:8]),
		Role:  role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// VariantSpec describes a variant fixture.
type VariantSpec struct {
	SKU             string
	Price           string
	DiscountedPrice string
	Stock           int
	Color           string
}

// MustCreateProduct inserts a product with the given variants.
func MustCreateProduct(t *testing.T, db *gorm.DB, title string, variants ...VariantSpec) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:          uuid.New(),
		Title:       title,
		Description: title + " description",
		ImageCover:  "https://cdn.example.com/" + title + "/cover.jpg",
		Images:      types.StringList{"https://cdn.example.com/" + title + "/1.jpg"},
	}
	for _, spec := range variants {
		v := models.Variant{
			ID:         uuid.New(),
			ProductID:  product.ID,
			SKU:        spec.SKU,
			Attributes: types.Attributes{"color": spec.Color},
			Price:      decimal.RequireFromString(spec.Price),
			Stock:      spec.Stock,
			Images:     types.StringList{"https://cdn.example.com/" + spec.SKU + ".jpg"},
		}
		if spec.DiscountedPrice != "" {
			v.DiscountedPrice = decimal.NewNullDecimal(decimal.RequireFromString(spec.DiscountedPrice))
		}
		product.Variants = append(product.Variants, v)
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// MustCreateCoupon inserts a coupon.
func MustCreateCoupon(t *testing.T, db *gorm.DB, name, percent string, expiresAt time.Time, active bool) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		ID:              uuid.New(),
		Name:            name,
		DiscountPercent: decimal.RequireFromString(percent),
		ExpiresAt:       expiresAt.UTC(),
		Active:          true,
	}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon: %v", err)
	}
	if !active {
		// gorm skips zero-value bools with a default tag on insert
		if err := db.Model(coupon).Update("active", false).Error; err != nil {
			t.Fatalf("deactivate coupon: %v", err)
		}
		coupon.Active = false
	}
	return coupon
}

// MustLoadVariant reloads a variant by SKU.
func MustLoadVariant(t *testing.T, db *gorm.DB, sku string) models.Variant {
	t.Helper()
	var v models.Variant
	if err := db.Where("sku = ?", sku).First(&v).Error; err != nil {
		t.Fatalf("load variant %s: %v", sku, err)
	}
	return v
}
