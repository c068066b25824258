package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurumcart/aurum-backend/internal/domain/invoice"
)

const (
	invoiceColumns = `id, invoice_number, order_id, order_human_id, account_id, billing_type,
		seller, buyer, line_items, taxable_amount, cgst_rate, cgst_amount, sgst_rate,
		sgst_amount, shipping_fee, discount, round_off, grand_total, amount_in_words,
		notes, status, issued_at`

	insertInvoiceSQL = `INSERT INTO invoices
		(id, invoice_number, order_id, order_human_id, account_id, billing_type,
		 seller, buyer, line_items, taxable_amount, cgst_rate, cgst_amount, sgst_rate,
		 sgst_amount, shipping_fee, discount, round_off, grand_total, amount_in_words,
		 notes, status, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

	getInvoiceSQL         = `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	getInvoiceByNumberSQL = `SELECT ` + invoiceColumns + ` FROM invoices WHERE invoice_number = $1`
	getLiveInvoiceSQL     = `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE order_id = $1 AND status <> 'cancelled'`

	setInvoiceStatusSQL = `UPDATE invoices SET status = $2 WHERE id = $1`

	countInvoicesForYearSQL = `SELECT COUNT(*) FROM invoices
		WHERE invoice_number LIKE 'INV-' || $1::text || '-%'`
)

var _ invoice.Repository = (*InvoiceRepository)(nil)

// InvoiceRepository implements invoice.Repository backed by PostgreSQL.
type InvoiceRepository struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository returns an InvoiceRepository that uses the given pool.
func NewInvoiceRepository(pool *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

// Create persists the invoice. Unique-index violations map to the sentinel
// the service retries or short-circuits on: number collisions to
// invoice.ErrNumberTaken, a second live invoice to invoice.ErrOrderInvoiced.
func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	sellerJSON, err := json.Marshal(inv.Seller)
	if err != nil {
		return fmt.Errorf("marshaling seller: %w", err)
	}
	buyerJSON, err := json.Marshal(inv.Buyer)
	if err != nil {
		return fmt.Errorf("marshaling buyer: %w", err)
	}
	itemsJSON, err := json.Marshal(inv.Items)
	if err != nil {
		return fmt.Errorf("marshaling line items: %w", err)
	}

	_, err = r.pool.Exec(ctx, insertInvoiceSQL,
		inv.ID, inv.Number, inv.OrderID, inv.OrderHumanID, inv.AccountID,
		string(inv.BillingType), sellerJSON, buyerJSON, itemsJSON, inv.TaxableAmount,
		inv.CGSTRate, inv.CGSTAmount, inv.SGSTRate, inv.SGSTAmount,
		inv.ShippingFee, inv.Discount, inv.RoundOff, inv.GrandTotal,
		inv.AmountInWords, inv.Notes, string(inv.Status), inv.IssuedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			switch pgErr.ConstraintName {
			case "invoices_invoice_number_key":
				return invoice.ErrNumberTaken
			case "invoices_order_live_uidx":
				return invoice.ErrOrderInvoiced
			}
		}
		return fmt.Errorf("creating invoice %q: %w", inv.Number, err)
	}
	return nil
}

// Get returns an invoice by id or invoice.ErrNotFound.
func (r *InvoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	return r.getOne(ctx, getInvoiceSQL, id)
}

// GetByNumber returns an invoice by number or invoice.ErrNotFound.
func (r *InvoiceRepository) GetByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	return r.getOne(ctx, getInvoiceByNumberSQL, number)
}

// GetLiveByOrder returns the order's non-cancelled invoice or
// invoice.ErrNotFound.
func (r *InvoiceRepository) GetLiveByOrder(ctx context.Context, orderID string) (*invoice.Invoice, error) {
	return r.getOne(ctx, getLiveInvoiceSQL, orderID)
}

func (r *InvoiceRepository) getOne(ctx context.Context, sql, key string) (*invoice.Invoice, error) {
	rows, err := r.pool.Query(ctx, sql, key)
	if err != nil {
		return nil, fmt.Errorf("getting invoice %q: %w", key, err)
	}

	inv, err := pgx.CollectExactlyOneRow(rows, scanInvoice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invoice.ErrNotFound
		}
		return nil, fmt.Errorf("getting invoice %q: %w", key, err)
	}
	return &inv, nil
}

// List returns invoices matching the filter, newest first, with the unpaged
// total.
func (r *InvoiceRepository) List(ctx context.Context, f invoice.ListFilter) ([]invoice.Invoice, int, error) {
	where := `WHERE ($1 = '' OR account_id = $1)`

	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices `+where, f.AccountID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting invoices: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices `+where+`
		ORDER BY issued_at DESC LIMIT $2 OFFSET $3`,
		f.AccountID, limit, f.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing invoices: %w", err)
	}
	invoices, err := pgx.CollectRows(rows, scanInvoice)
	if err != nil {
		return nil, 0, fmt.Errorf("listing invoices: %w", err)
	}
	return invoices, total, nil
}

// SetStatus updates the invoice status.
func (r *InvoiceRepository) SetStatus(ctx context.Context, id string, status invoice.Status) error {
	tag, err := r.pool.Exec(ctx, setInvoiceStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("updating invoice %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return invoice.ErrNotFound
	}
	return nil
}

// CountForYear returns how many invoices exist for the given year.
func (r *InvoiceRepository) CountForYear(ctx context.Context, year int) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, countInvoicesForYearSQL, year).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting invoices: %w", err)
	}
	return count, nil
}

func scanInvoice(row pgx.CollectableRow) (invoice.Invoice, error) {
	var (
		inv         invoice.Invoice
		billingType string
		sellerJSON  []byte
		buyerJSON   []byte
		itemsJSON   []byte
		status      string
	)
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.OrderID, &inv.OrderHumanID, &inv.AccountID,
		&billingType, &sellerJSON, &buyerJSON, &itemsJSON, &inv.TaxableAmount,
		&inv.CGSTRate, &inv.CGSTAmount, &inv.SGSTRate, &inv.SGSTAmount,
		&inv.ShippingFee, &inv.Discount, &inv.RoundOff, &inv.GrandTotal,
		&inv.AmountInWords, &inv.Notes, &status, &inv.IssuedAt,
	)
	if err != nil {
		return inv, err
	}
	inv.BillingType = invoice.BillingType(billingType)
	inv.Status = invoice.Status(status)
	if err := json.Unmarshal(sellerJSON, &inv.Seller); err != nil {
		return inv, fmt.Errorf("decoding seller: %w", err)
	}
	if err := json.Unmarshal(buyerJSON, &inv.Buyer); err != nil {
		return inv, fmt.Errorf("decoding buyer: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &inv.Items); err != nil {
		return inv, fmt.Errorf("decoding line items: %w", err)
	}
	return inv, nil
}
