package catalog

// Package catalog provides catalog.yaml parsing functionality.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Catalog struct {
	Currency string          `yaml:"currency"`
	Packages []PackageConfig `yaml:"packages"`
}

// PackageConfig is one purchasable sticker package. StickerCount is how many
// raffle entries one unit of the package is worth; ProductToCount false means
// the package sells without participating in the raffle.
type PackageConfig struct {
	SKU            string `yaml:"sku"`
	Name           string `yaml:"name"`
	PriceCents     int    `yaml:"price_cents"`
	StickerCount   int    `yaml:"sticker_count"`
	ProductToCount bool   `yaml:"product_to_count"`
	Active         bool   `yaml:"active"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(content, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &catalog, nil
}

func (p *Parser) ParseFromString(content string) (*Catalog, error) {
	return p.Parse([]byte(content))
}

// Load reads, parses and validates the catalog file in one step.
func Load(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	catalog, err := NewParser().Parse(content)
	if err != nil {
		return nil, err
	}

	if err := NewValidator().Validate(catalog); err != nil {
		return nil, fmt.Errorf("catalog validation failed: %w", err)
	}

	return catalog, nil
}

// Find returns the active package with the given SKU, or nil.
func (c *Catalog) Find(sku string) *PackageConfig {
	for i := range c.Packages {
		if c.Packages[i].SKU == sku && c.Packages[i].Active {
			return &c.Packages[i]
		}
	}
	return nil
}
