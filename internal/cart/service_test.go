package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopcore-backend/internal/catalog"
	"github.com/angelmondragon/shopcore-backend/internal/coupons"
	"github.com/angelmondragon/shopcore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
	"github.com/angelmondragon/shopcore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
)

type fixture struct {
	db      *gorm.DB
	svc     Service
	user    *models.User
	product *models.Product
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	f := &fixture{db: db, now: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }
	now := f.now

	couponSvc, err := coupons.NewService(coupons.NewRepository(db), clock)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(db), catalog.NewRepository(db), couponSvc, clock)
	require.NoError(t, err)

	product := dbtest.MustCreateProduct(t, db, "tee",
		dbtest.VariantSpec{SKU: "PROD-TEE0000RED", Price: "25.00", Stock: 3, Color: "red"},
		dbtest.VariantSpec{SKU: "PROD-TEE000BLUE", Price: "30.00", DiscountedPrice: "20.00", Stock: 10, Color: "blue"},
		dbtest.VariantSpec{SKU: "PROD-TEE000GREY", Price: "25.00", Stock: 0, Color: "grey"},
	)
	dbtest.MustCreateCoupon(t, db, "SAVE20", "20", now.Add(time.Hour), true)
	dbtest.MustCreateCoupon(t, db, "EXPIRED", "50", now.Add(-time.Hour), true)

	f.svc = svc
	f.user = dbtest.MustCreateUser(t, db, enums.UserRoleUser)
	f.product = product
	return f
}

func (f *fixture) add(t *testing.T, sku string, qty int) *CartDTO {
	t.Helper()
	cart, err := f.svc.AddItem(context.Background(), f.user.ID, AddItemInput{ProductID: f.product.ID, VariantSKU: sku, Quantity: qty})
	require.NoError(t, err)
	return cart
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, code), "expected %s, got %v", code, err)
}

func TestAddItemCreatesCartWithSnapshot(t *testing.T) {
	f := newFixture(t)

	cart := f.add(t, "PROD-TEE000BLUE", 2)

	require.Len(t, cart.Items, 1)
	line := cart.Items[0]
	assert.Equal(t, "tee", line.Title)
	assert.Equal(t, "30.00", line.UnitPrice.StringFixed(2), "list price is snapshotted, not the discounted price")
	assert.Equal(t, "60.00", line.LineSubtotal.StringFixed(2))
	assert.Equal(t, "blue", line.Attributes["color"])
	assert.Equal(t, "https://cdn.example.com/PROD-TEE000BLUE.jpg", line.ImageURL)
	assert.Equal(t, "60.00", cart.Subtotal.StringFixed(2))
	assert.Equal(t, 2, cart.ItemCount)
}

func TestAddItemClampsToStockAndReplacesQuantity(t *testing.T) {
	f := newFixture(t)

	cart := f.add(t, "PROD-TEE0000RED", 5)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, "75.00", cart.Subtotal.StringFixed(2))

	cart = f.add(t, "PROD-TEE0000RED", 1)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, "25.00", cart.Subtotal.StringFixed(2))

	cart = f.add(t, "PROD-TEE000BLUE", 1)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, "55.00", cart.Subtotal.StringFixed(2))
}

func TestAddItemRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.user.ID, AddItemInput{ProductID: f.product.ID, VariantSKU: "PROD-TEE000GREY", Quantity: 1})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.AddItem(ctx, f.user.ID, AddItemInput{ProductID: f.product.ID, VariantSKU: "PROD-TEE0000RED", Quantity: 0})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.AddItem(ctx, f.user.ID, AddItemInput{ProductID: uuid.New(), VariantSKU: "PROD-TEE0000RED", Quantity: 1})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.AddItem(ctx, f.user.ID, AddItemInput{ProductID: f.product.ID, VariantSKU: "PROD-NOTTHERE01", Quantity: 1})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.GetCart(ctx, f.user.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateItemQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateItemQuantity(ctx, f.user.ID, "PROD-TEE0000RED", 1)
	requireCode(t, err, pkgerrors.CodeNotFound)

	f.add(t, "PROD-TEE0000RED", 1)

	cart, err := f.svc.UpdateItemQuantity(ctx, f.user.ID, "PROD-TEE0000RED", 9)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, "75.00", cart.Subtotal.StringFixed(2))

	_, err = f.svc.UpdateItemQuantity(ctx, f.user.ID, "PROD-TEE000BLUE", 1)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.UpdateItemQuantity(ctx, f.user.ID, "PROD-TEE0000RED", -1)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestRemoveItemAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RemoveItem(ctx, f.user.ID, "PROD-TEE0000RED")
	requireCode(t, err, pkgerrors.CodeNotFound)

	f.add(t, "PROD-TEE0000RED", 2)
	f.add(t, "PROD-TEE000BLUE", 1)

	cart, err := f.svc.RemoveItem(ctx, f.user.ID, "PROD-NOTTHERE01")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)

	cart, err = f.svc.RemoveItem(ctx, f.user.ID, "PROD-TEE0000RED")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "30.00", cart.Subtotal.StringFixed(2))

	require.NoError(t, f.svc.ClearCart(ctx, f.user.ID))
	require.NoError(t, f.svc.ClearCart(ctx, f.user.ID))
	_, err = f.svc.GetCart(ctx, f.user.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestApplyCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyCoupon(ctx, f.user.ID, "SAVE20")
	requireCode(t, err, pkgerrors.CodeNotFound)

	f.add(t, "PROD-TEE000BLUE", 4)

	_, err = f.svc.ApplyCoupon(ctx, f.user.ID, "EXPIRED")
	requireCode(t, err, pkgerrors.CodeValidation)

	unchanged, err := f.svc.GetCart(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Nil(t, unchanged.CouponCode)
	assert.Equal(t, "120.00", unchanged.TotalAfterDiscount.StringFixed(2))

	cart, err := f.svc.ApplyCoupon(ctx, f.user.ID, "SAVE20")
	require.NoError(t, err)
	require.NotNil(t, cart.CouponCode)
	assert.Equal(t, "SAVE20", *cart.CouponCode)
	require.NotNil(t, cart.CouponExpiresAt)
	assert.True(t, cart.CouponExpiresAt.Equal(f.now.Add(time.Hour)))
	assert.Equal(t, "24.00", cart.Discount.StringFixed(2))
	assert.Equal(t, "96.00", cart.TotalAfterDiscount.StringFixed(2))

	// the coupon follows later mutations
	cart = f.add(t, "PROD-TEE000BLUE", 10)
	assert.Equal(t, "300.00", cart.Subtotal.StringFixed(2))
	assert.Equal(t, "240.00", cart.TotalAfterDiscount.StringFixed(2))

	reloaded, err := f.svc.GetCart(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "240.00", reloaded.TotalAfterDiscount.StringFixed(2))
}

func TestCouponStopsDiscountingOnceExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.add(t, "PROD-TEE0000RED", 2)
	cart, err := f.svc.ApplyCoupon(ctx, f.user.ID, "SAVE20")
	require.NoError(t, err)
	require.Equal(t, "10.00", cart.Discount.StringFixed(2))

	f.now = f.now.Add(48 * time.Hour)

	viewed, err := f.svc.GetCart(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, viewed.Discount.IsZero())
	assert.Equal(t, "50.00", viewed.TotalAfterDiscount.StringFixed(2))

	cart, err = f.svc.UpdateItemQuantity(ctx, f.user.ID, "PROD-TEE0000RED", 3)
	require.NoError(t, err)
	assert.Equal(t, "75.00", cart.Subtotal.StringFixed(2))
	assert.True(t, cart.Discount.IsZero())
	assert.Equal(t, "75.00", cart.TotalAfterDiscount.StringFixed(2))

	var stored models.Cart
	require.NoError(t, f.db.Where("user_id = ?", f.user.ID).First(&stored).Error)
	assert.True(t, stored.Discount.IsZero())
	assert.Equal(t, "75.00", stored.TotalAfterDiscount.StringFixed(2))
}
