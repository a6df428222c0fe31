package validators

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/shopcore-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
)

// ParseUUIDParam reads a chi URL parameter as a UUID.
func ParseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name).
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

// ParseSKUParam reads a chi URL parameter as a variant SKU.
func ParseSKUParam(r *http.Request, name string) (string, error) {
	sku := strings.TrimSpace(chi.URLParam(r, name))
	if !catalog.IsValidSKU(sku) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid sku").
			WithDetails(map[string]any{"field": name})
	}
	return sku, nil
}
