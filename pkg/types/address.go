package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ShippingAddress is the delivery destination captured at checkout.
type ShippingAddress struct {
	Details    string `json:"details" validate:"required,max=500"`
	Phone      string `json:"phone" validate:"required,max=32"`
	City       string `json:"city" validate:"required,max=120"`
	PostalCode string `json:"postal_code,omitempty" validate:"max=20"`
}

const (
	metadataDetails    = "details"
	metadataPhone      = "phone"
	metadataCity       = "city"
	metadataPostalCode = "postal_code"
)

// Value stores the address as a JSON document.
func (a ShippingAddress) Value() (driver.Value, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("shipping address: %w", err)
	}
	return string(raw), nil
}

// Scan decodes the JSON document written by Value.
func (a *ShippingAddress) Scan(value any) error {
	if value == nil {
		*a = ShippingAddress{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("shipping address: unsupported scan type %T", value)
	}
	return json.Unmarshal(raw, a)
}

// Metadata flattens the address into payment-session metadata.
func (a ShippingAddress) Metadata() map[string]string {
	meta := map[string]string{
		metadataDetails: strings.TrimSpace(a.Details),
		metadataPhone:   strings.TrimSpace(a.Phone),
		metadataCity:    strings.TrimSpace(a.City),
	}
	if pc := strings.TrimSpace(a.PostalCode); pc != "" {
		meta[metadataPostalCode] = pc
	}
	return meta
}

// ShippingAddressFromMetadata is the inverse of Metadata.
func ShippingAddressFromMetadata(meta map[string]string) ShippingAddress {
	if meta == nil {
		return ShippingAddress{}
	}
	return ShippingAddress{
		Details:    meta[metadataDetails],
		Phone:      meta[metadataPhone],
		City:       meta[metadataCity],
		PostalCode: meta[metadataPostalCode],
	}
}
