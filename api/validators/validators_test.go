package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
)

type addItemBody struct {
	VariantSKU string `json:"variant_sku" validate:"required,sku"`
	Quantity   int    `json:"quantity" validate:"min=1"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"variant_sku":"PROD-ABC123XYZ9","quantity":2}`))
	var body addItemBody
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, 2, body.Quantity)
}

func TestDecodeJSONBodyValidationDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"variant_sku":"prod-1","quantity":0}`))
	var body addItemBody
	err := DecodeJSONBody(req, &body)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must look like PROD-XXXXXXXXXX", details["variant_sku"])
	assert.Equal(t, "must be at least 1", details["quantity"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"variant_sku":"PROD-ABC123XYZ9","quantity":1,"price":"0.01"}`))
	var body addItemBody
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestParsePathParams(t *testing.T) {
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", "6f1c7a9e-2f4b-4bb8-9b54-8c1d2e3f4a5b")
	id, err := ParseUUIDParam(req, "orderId")
	require.NoError(t, err)
	assert.Equal(t, "6f1c7a9e-2f4b-4bb8-9b54-8c1d2e3f4a5b", id.String())

	_, err = ParseUUIDParam(withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", "nope"), "orderId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	sku, err := ParseSKUParam(withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "sku", "PROD-0123456789"), "sku")
	require.NoError(t, err)
	assert.Equal(t, "PROD-0123456789", sku)

	_, err = ParseSKUParam(withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "sku", "PROD-short"), "sku")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5", nil)
	v, err := ParseQueryInt(req, "limit", 20, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	req = httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	_, err = ParseQueryInt(req, "limit", 20, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	v, err = ParseQueryInt(req, "limit", 20, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 20, v)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "SAVE", SanitizeString("  SAVE20  ", 4))
	assert.Equal(t, "SAVE20", SanitizeString(" SAVE20 ", 0))
}

func TestSanitizeStringIsRuneSafe(t *testing.T) {
	assert.Equal(t, "ÉTÉ", SanitizeString("ÉTÉ2026", 3))
	assert.Equal(t, "SAVE20", SanitizeString("SAVE\x0020\n", 0))
}

func TestParseQueryCursor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders?cursor=%20abc%20", nil)
	cursor, err := ParseQueryCursor(req, "cursor")
	require.NoError(t, err)
	assert.Equal(t, "abc", cursor)

	req = httptest.NewRequest(http.MethodGet, "/orders?cursor="+strings.Repeat("a", maxCursorLength+1), nil)
	_, err = ParseQueryCursor(req, "cursor")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
