package catalog

import (
	"fmt"
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	skuPrefix   = "PROD-"
	skuAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	skuLength   = 10
)

// SKUPattern matches every SKU produced by GenerateSKU.
var SKUPattern = regexp.MustCompile(`^PROD-[A-Z0-9]{10}$`)

// GenerateSKU returns a fresh variant SKU. It is called exactly once per
// variant, when the variant is first persisted.
func GenerateSKU() (string, error) {
	code, err := gonanoid.Generate(skuAlphabet, skuLength)
	if err != nil {
		return "", fmt.Errorf("generate sku: %w", err)
	}
	return skuPrefix + code, nil
}

// IsValidSKU reports whether sku has the generated shape.
func IsValidSKU(sku string) bool {
	return SKUPattern.MatchString(sku)
}
