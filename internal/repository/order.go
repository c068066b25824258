package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurumcart/aurum-backend/internal/domain/order"
	"github.com/aurumcart/aurum-backend/internal/domain/payment"
)

const (
	orderColumns = `id, human_id, account_id, items, subtotal, making_charges, tax,
		shipping_fee, COALESCE(voucher_code, ''), voucher_discount, points_used,
		points_discount, total_amount, status, payment, COALESCE(gateway_order_id, ''),
		tracking, notes, created_at, updated_at`

	insertOrderSQL = `INSERT INTO orders
		(id, human_id, account_id, items, subtotal, making_charges, tax, shipping_fee,
		 voucher_code, voucher_discount, points_used, points_discount, total_amount,
		 status, payment, gateway_order_id, tracking, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at`

	getOrderSQL        = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	getOrderByHumanSQL = `SELECT ` + orderColumns + ` FROM orders WHERE human_id = $1`

	updateOrderSQL = `UPDATE orders
		SET status = $2, payment = $3, tracking = $4, total_amount = $5,
			voucher_code = $6, voucher_discount = $7, points_used = $8,
			points_discount = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	countOrdersOnDaySQL = `SELECT COUNT(*) FROM orders
		WHERE created_at >= $1 AND created_at < $2`

	clearCartSQL = `UPDATE carts SET items = '[]'::jsonb, updated_at = now()
		WHERE account_id = $1`

	getCartSQL = `SELECT items FROM carts WHERE account_id = $1`
)

var (
	_ order.Repository     = (*OrderRepository)(nil)
	_ order.CartRepository = (*CartRepository)(nil)
)

// OrderRepository implements order.Repository backed by PostgreSQL. Items,
// payment terms, and tracking history live in JSONB columns; the amounts an
// order is filtered or summed by are real columns.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and, when clearCart is set, empties the account's
// cart in the same transaction. A human-id collision surfaces as
// order.ErrHumanIDTaken for the caller's retry loop.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, clearCart bool) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	paymentJSON, err := json.Marshal(o.Payment)
	if err != nil {
		return fmt.Errorf("marshaling payment terms: %w", err)
	}
	trackingJSON, err := json.Marshal(o.Tracking)
	if err != nil {
		return fmt.Errorf("marshaling tracking: %w", err)
	}

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertOrderSQL,
			o.ID, o.HumanID, o.AccountID, itemsJSON, o.Subtotal, o.MakingCharges,
			o.Tax, o.ShippingFee, nullable(o.VoucherCode), o.VoucherDiscount,
			o.PointsUsed, o.PointsDiscount, o.TotalAmount, string(o.Status),
			paymentJSON, nullable(o.GatewayOrderID), trackingJSON, o.Notes,
		).Scan(&o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return err
		}
		if clearCart {
			if _, err := tx.Exec(ctx, clearCartSQL, o.AccountID); err != nil {
				return fmt.Errorf("clearing cart: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode && pgErr.ConstraintName == "orders_human_id_key" {
			return order.ErrHumanIDTaken
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// Get returns an order by id or order.ErrNotFound.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderSQL, id)
}

// GetByHumanID returns an order by its human id or order.ErrNotFound.
func (r *OrderRepository) GetByHumanID(ctx context.Context, humanID string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByHumanSQL, humanID)
}

func (r *OrderRepository) getOne(ctx context.Context, sql, key string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, key)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", key, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", key, err)
	}
	return &o, nil
}

// List returns orders matching the filter, newest first, with the unpaged
// total.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, int, error) {
	where := `WHERE ($1 = '' OR account_id = $1) AND ($2 = '' OR status = $2)`

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders `+where,
		f.AccountID, string(f.Status),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders `+where+`
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		f.AccountID, string(f.Status), limit, f.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	return orders, total, nil
}

// Update persists the order's mutable fields.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	paymentJSON, err := json.Marshal(o.Payment)
	if err != nil {
		return fmt.Errorf("marshaling payment terms: %w", err)
	}
	trackingJSON, err := json.Marshal(o.Tracking)
	if err != nil {
		return fmt.Errorf("marshaling tracking: %w", err)
	}

	err = r.pool.QueryRow(ctx, updateOrderSQL,
		o.ID, string(o.Status), paymentJSON, trackingJSON, o.TotalAmount,
		nullable(o.VoucherCode), o.VoucherDiscount, o.PointsUsed, o.PointsDiscount,
	).Scan(&o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.ErrNotFound
		}
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	return nil
}

// CountCreatedOn returns how many orders were created on the given calendar
// day in the day's local zone.
func (r *OrderRepository) CountCreatedOn(ctx context.Context, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var count int
	err := r.pool.QueryRow(ctx, countOrdersOnDaySQL, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting orders: %w", err)
	}
	return count, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o            order.Order
		itemsJSON    []byte
		paymentJSON  []byte
		trackingJSON []byte
		status       string
	)
	err := row.Scan(
		&o.ID, &o.HumanID, &o.AccountID, &itemsJSON, &o.Subtotal, &o.MakingCharges,
		&o.Tax, &o.ShippingFee, &o.VoucherCode, &o.VoucherDiscount, &o.PointsUsed,
		&o.PointsDiscount, &o.TotalAmount, &status, &paymentJSON, &o.GatewayOrderID,
		&trackingJSON, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("decoding order items: %w", err)
	}
	var terms payment.Terms
	if err := json.Unmarshal(paymentJSON, &terms); err != nil {
		return o, fmt.Errorf("decoding payment terms: %w", err)
	}
	o.Payment = terms
	if err := json.Unmarshal(trackingJSON, &o.Tracking); err != nil {
		return o, fmt.Errorf("decoding tracking: %w", err)
	}
	return o, nil
}

// CartRepository implements order.CartRepository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the account's cart items. A missing cart is an empty cart.
func (r *CartRepository) Get(ctx context.Context, accountID string) ([]order.CartItem, error) {
	var itemsJSON []byte
	err := r.pool.QueryRow(ctx, getCartSQL, accountID).Scan(&itemsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting cart for %q: %w", accountID, err)
	}

	var items []order.CartItem
	if err := json.Unmarshal(itemsJSON, &items); err != nil {
		return nil, fmt.Errorf("decoding cart for %q: %w", accountID, err)
	}
	return items, nil
}
