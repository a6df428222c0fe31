package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopcore-backend/api/middleware"
	cartsvc "github.com/angelmondragon/shopcore-backend/internal/cart"
	"github.com/angelmondragon/shopcore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
)

const sku = "PROD-HOODIE0BLK"

type stubCartService struct {
	cartsvc.Service

	added      cartsvc.AddItemInput
	updatedQty int
	coupon     string
	cleared    bool
}

func (s *stubCartService) AddItem(_ context.Context, userID uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.CartDTO, error) {
	s.added = input
	return &cartsvc.CartDTO{UserID: userID, ItemCount: input.Quantity}, nil
}

func (s *stubCartService) UpdateItemQuantity(_ context.Context, userID uuid.UUID, _ string, quantity int) (*cartsvc.CartDTO, error) {
	s.updatedQty = quantity
	return &cartsvc.CartDTO{UserID: userID}, nil
}

func (s *stubCartService) ApplyCoupon(_ context.Context, userID uuid.UUID, code string) (*cartsvc.CartDTO, error) {
	if code != "SAVE20" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is invalid or expired")
	}
	s.coupon = code
	return &cartsvc.CartDTO{UserID: userID}, nil
}

func (s *stubCartService) ClearCart(context.Context, uuid.UUID) error {
	s.cleared = true
	return nil
}

func newCartRouter(svc cartsvc.Service, actor middleware.Actor) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithActor(req.Context(), actor)))
		})
	})
	r.Post("/cart", CartAddItem(svc, nil))
	r.Delete("/cart", CartClear(svc, nil))
	r.Put("/cart/apply-coupon", CartApplyCoupon(svc, nil))
	r.Put("/cart/{sku}", CartUpdateItem(svc, nil))
	return r
}

func do(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCartAddItem(t *testing.T) {
	svc := &stubCartService{}
	handler := newCartRouter(svc, middleware.Actor{UserID: uuid.New(), Role: enums.UserRoleUser})
	productID := uuid.New()

	rec := do(handler, http.MethodPost, "/cart", `{"product_id":"`+productID.String()+`","variant_sku":"`+sku+`","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, productID, svc.added.ProductID)
	assert.Equal(t, 2, svc.added.Quantity)

	rec = do(handler, http.MethodPost, "/cart", `{"product_id":"`+productID.String()+`","variant_sku":"hoodie","quantity":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(handler, http.MethodPost, "/cart", `{"product_id":"`+productID.String()+`","variant_sku":"`+sku+`","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartUpdateItemValidatesSKU(t *testing.T) {
	svc := &stubCartService{}
	handler := newCartRouter(svc, middleware.Actor{UserID: uuid.New(), Role: enums.UserRoleUser})

	rec := do(handler, http.MethodPut, "/cart/"+sku, `{"quantity":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, svc.updatedQty)

	rec = do(handler, http.MethodPut, "/cart/not-a-sku", `{"quantity":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartApplyCouponTrimsCode(t *testing.T) {
	svc := &stubCartService{}
	handler := newCartRouter(svc, middleware.Actor{UserID: uuid.New(), Role: enums.UserRoleUser})

	rec := do(handler, http.MethodPut, "/cart/apply-coupon", `{"coupon_code":"  SAVE20 "}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "SAVE20", svc.coupon)

	rec = do(handler, http.MethodPut, "/cart/apply-coupon", `{"coupon_code":"EXPIRED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartClearReturnsNoContent(t *testing.T) {
	svc := &stubCartService{}
	handler := newCartRouter(svc, middleware.Actor{UserID: uuid.New(), Role: enums.UserRoleUser})

	rec := do(handler, http.MethodDelete, "/cart", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, svc.cleared)
}
