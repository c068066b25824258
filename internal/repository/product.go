package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/aurumcart/aurum-backend/internal/domain/catalog"
)

const (
	getProductSQL = `SELECT id, name, category, material, price, making_charge_percent, stock
		FROM products WHERE id = $1 AND active = TRUE`

	getProductsSQL = `SELECT id, name, category, material, price, making_charge_percent, stock
		FROM products WHERE id = ANY($1) AND active = TRUE`

	getCategoryRatesSQL = `SELECT making_percent_default, making_percent_by_material
		FROM categories WHERE name = $1`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID returns an active product or catalog.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs batch fetches active products. Missing ids are simply absent from
// the result; the caller decides whether that is an error.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products: %w", err)
	}

	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products: %w", err)
	}
	return products, nil
}

// MakingChargeRates returns the category's making-charge configuration. An
// unconfigured category yields zero rates.
func (r *ProductRepository) MakingChargeRates(ctx context.Context, category string) (catalog.MakingChargeRates, error) {
	var (
		rates      catalog.MakingChargeRates
		byMaterial []byte
	)
	err := r.pool.QueryRow(ctx, getCategoryRatesSQL, category).Scan(&rates.DefaultPercent, &byMaterial)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.MakingChargeRates{}, nil
		}
		return catalog.MakingChargeRates{}, fmt.Errorf("getting rates for category %q: %w", category, err)
	}
	if err := json.Unmarshal(byMaterial, &rates.ByMaterial); err != nil {
		return catalog.MakingChargeRates{}, fmt.Errorf("decoding rates for category %q: %w", category, err)
	}
	return rates, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p       catalog.Product
		percent *decimal.Decimal
		stock   int32
	)
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Material, &p.Price, &percent, &stock)
	p.MakingChargePercent = percent
	p.Stock = int(stock)
	return p, err
}
