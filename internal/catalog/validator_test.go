package catalog

import (
	"strings"
	"testing"
)

func validCatalog() *Catalog {
	return &Catalog{
		Currency: "UAH",
		Packages: []PackageConfig{
			{SKU: "starter-pack", Name: "Стартовий пакет", PriceCents: 25000, StickerCount: 1, ProductToCount: true, Active: true},
			{SKU: "keychain", Name: "Брелок", PriceCents: 15000, ProductToCount: false, Active: true},
		},
	}
}

func TestValidateCatalog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Catalog)
		wantErr string
	}{
		{
			name:   "valid catalog",
			mutate: func(c *Catalog) {},
		},
		{
			name:    "wrong currency",
			mutate:  func(c *Catalog) { c.Currency = "USD" },
			wantErr: "UAH",
		},
		{
			name:    "no packages",
			mutate:  func(c *Catalog) { c.Packages = nil },
			wantErr: "at least one package",
		},
		{
			name:    "duplicate sku",
			mutate:  func(c *Catalog) { c.Packages[1].SKU = c.Packages[0].SKU },
			wantErr: "duplicate SKU",
		},
		{
			name:    "empty sku",
			mutate:  func(c *Catalog) { c.Packages[0].SKU = "  " },
			wantErr: "SKU is required",
		},
		{
			name:    "zero price",
			mutate:  func(c *Catalog) { c.Packages[0].PriceCents = 0 },
			wantErr: "price must be positive",
		},
		{
			name:    "raffle package without sticker count",
			mutate:  func(c *Catalog) { c.Packages[0].StickerCount = 0 },
			wantErr: "sticker count must be positive",
		},
		{
			name:    "non-raffle package with sticker count",
			mutate:  func(c *Catalog) { c.Packages[1].StickerCount = 3 },
			wantErr: "sticker count must be zero",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			catalog := validCatalog()
			tt.mutate(catalog)

			err := NewValidator().Validate(catalog)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}
