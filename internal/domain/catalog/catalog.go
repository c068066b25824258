// Package catalog defines the product lookup contract the engine consumes.
// Catalog management itself lives outside this core; orders only need a
// price/stock snapshot at validation time.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is the catalog snapshot used for order validation and pricing.
type Product struct {
	ID       string
	Name     string
	Category string
	Material string
	Price    decimal.Decimal
	// MakingChargePercent overrides the category configuration when set.
	MakingChargePercent *decimal.Decimal
	Stock               int
}

// MakingChargeRates is the category-level making-charge configuration.
type MakingChargeRates struct {
	DefaultPercent decimal.Decimal
	// ByMaterial maps a material name (e.g. "gold", "silver") to its percent.
	ByMaterial map[string]decimal.Decimal
}

// Repository provides catalog snapshots.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	// MakingChargeRates returns the configured rates for a category. A category
	// without configuration yields zero rates, not an error.
	MakingChargeRates(ctx context.Context, category string) (MakingChargeRates, error)
}

// ResolveMakingChargePercent applies the resolution order: explicit product
// override, then category+material percent, then category default, then zero.
func ResolveMakingChargePercent(p Product, rates MakingChargeRates) decimal.Decimal {
	if p.MakingChargePercent != nil {
		return *p.MakingChargePercent
	}
	if pct, ok := rates.ByMaterial[p.Material]; ok {
		return pct
	}
	return rates.DefaultPercent
}
