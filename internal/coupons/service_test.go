package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopcore-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
)

func newTestService(t *testing.T, now time.Time) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo, func() time.Time { return now })
	require.NoError(t, err)
	return svc, repo
}

func TestResolveActive(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, repo := newTestService(t, now)
	ctx := context.Background()

	dbtest.MustCreateCoupon(t, repo.db, "SPRING20", "20", now.Add(24*time.Hour), true)
	dbtest.MustCreateCoupon(t, repo.db, "OLD10", "10", now.Add(-time.Hour), true)
	dbtest.MustCreateCoupon(t, repo.db, "OFF5", "5", now.Add(24*time.Hour), false)

	coupon, err := svc.ResolveActive(ctx, " SPRING20 ")
	require.NoError(t, err)
	assert.True(t, coupon.DiscountPercent.Equal(decimal.NewFromInt(20)))

	for _, name := range []string{"OLD10", "OFF5", "spring20", "MISSING", ""} {
		_, err := svc.ResolveActive(ctx, name)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "coupon %q: %v", name, err)
	}
}

func TestCreateValidatesAndRejectsDuplicates(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)
	ctx := context.Background()

	inactive := false
	created, err := svc.Create(ctx, CreateInput{
		Name:            "VIP",
		DiscountPercent: decimal.RequireFromString("15.5"),
		ExpiresAt:       now.Add(48 * time.Hour),
		Active:          &inactive,
	})
	require.NoError(t, err)
	assert.False(t, created.Active)

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	_, err = svc.Create(ctx, CreateInput{Name: "VIP", DiscountPercent: decimal.NewFromInt(10), ExpiresAt: now.Add(time.Hour)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "expected conflict, got %v", err)

	for _, percent := range []string{"0", "-5", "100.01"} {
		_, err := svc.Create(ctx, CreateInput{Name: "P" + percent, DiscountPercent: decimal.RequireFromString(percent), ExpiresAt: now.Add(time.Hour)})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "percent %s: %v", percent, err)
	}

	_, err = svc.Create(ctx, CreateInput{Name: "NOEXP", DiscountPercent: decimal.NewFromInt(100)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateListAndDelete(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Name: "SUMMER", DiscountPercent: decimal.NewFromInt(10), ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)

	percent := decimal.NewFromInt(25)
	active := false
	updated, err := svc.Update(ctx, created.ID, UpdateInput{DiscountPercent: &percent, Active: &active})
	require.NoError(t, err)
	assert.True(t, updated.DiscountPercent.Equal(percent))
	assert.False(t, updated.Active)

	bad := decimal.NewFromInt(101)
	_, err = svc.Update(ctx, created.ID, UpdateInput{DiscountPercent: &bad})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Active)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, created.ID), pkgerrors.CodeNotFound))

	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.Update(ctx, uuid.New(), UpdateInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
