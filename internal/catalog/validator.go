package catalog

// Package catalog provides configuration validation.

import (
	"fmt"
	"strings"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(catalog *Catalog) error {
	if catalog.Currency != "UAH" {
		return fmt.Errorf("only UAH currency is supported")
	}

	if len(catalog.Packages) == 0 {
		return fmt.Errorf("at least one package is required")
	}

	skus := make(map[string]bool)
	for i, pkg := range catalog.Packages {
		if err := v.validatePackage(&pkg); err != nil {
			return fmt.Errorf("package %d validation failed: %w", i, err)
		}

		if skus[pkg.SKU] {
			return fmt.Errorf("duplicate SKU: %s", pkg.SKU)
		}
		skus[pkg.SKU] = true
	}

	return nil
}

func (v *Validator) validatePackage(pkg *PackageConfig) error {
	if strings.TrimSpace(pkg.SKU) == "" {
		return fmt.Errorf("package SKU is required")
	}

	if strings.TrimSpace(pkg.Name) == "" {
		return fmt.Errorf("package name is required")
	}

	if pkg.PriceCents <= 0 {
		return fmt.Errorf("package price must be positive")
	}

	if pkg.ProductToCount && pkg.StickerCount <= 0 {
		return fmt.Errorf("sticker count must be positive for raffle packages")
	}

	if !pkg.ProductToCount && pkg.StickerCount != 0 {
		return fmt.Errorf("sticker count must be zero for non-raffle packages")
	}

	return nil
}
