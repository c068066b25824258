// Package invoice produces tax invoices for orders, with GST split into CGST
// and SGST and the grand total rounded to the nearest rupee.
package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// hsnJewellery is the HSN classification for articles of jewellery.
const hsnJewellery = "7113"

// Status of an invoice. A cancelled invoice stays on record; at most one
// non-cancelled invoice exists per order, enforced by a partial unique index.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusGenerated Status = "generated"
	StatusCancelled Status = "cancelled"
)

// BillingType selects whether GST is levied on the invoice.
type BillingType string

const (
	BillingWithGST    BillingType = "with_gst"
	BillingWithoutGST BillingType = "without_gst"
)

var (
	// ErrNotFound is returned when no invoice matches.
	ErrNotFound = errors.New("invoice not found")
	// ErrNumberTaken is returned by Create on an invoice-number collision.
	ErrNumberTaken = errors.New("invoice number already taken")
	// ErrOrderInvoiced is returned when the order already has a live invoice.
	ErrOrderInvoiced = errors.New("order already has an invoice")
	// ErrOrderNotBillable is returned for orders that are cancelled or unpaid.
	ErrOrderNotBillable = errors.New("order is not billable")
	// ErrBillingType is returned for an unrecognized billing type.
	ErrBillingType = errors.New("billing type must be with_gst or without_gst")
)

// Party identifies one side of the invoice.
type Party struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	GSTIN   string `json:"gstin,omitempty"`
}

// Item is one billed line. Tax is computed per line and rounded to the paisa
// before the invoice totals are summed.
type Item struct {
	Description   string          `json:"description"`
	HSNCode       string          `json:"hsnCode"`
	Quantity      int             `json:"quantity"`
	Rate          decimal.Decimal `json:"rate"`
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
	CGSTRate      decimal.Decimal `json:"cgstRate"`
	CGSTAmount    decimal.Decimal `json:"cgstAmount"`
	SGSTRate      decimal.Decimal `json:"sgstRate"`
	SGSTAmount    decimal.Decimal `json:"sgstAmount"`
	Total         decimal.Decimal `json:"total"`
}

// Invoice is the persisted tax document.
type Invoice struct {
	ID            string
	Number        string
	OrderID       string
	OrderHumanID  string
	AccountID     string
	BillingType   BillingType
	Seller        Party
	Buyer         Party
	Items         []Item
	TaxableAmount decimal.Decimal
	CGSTRate      decimal.Decimal
	CGSTAmount    decimal.Decimal
	SGSTRate      decimal.Decimal
	SGSTAmount    decimal.Decimal
	ShippingFee   decimal.Decimal
	Discount      decimal.Decimal
	RoundOff      decimal.Decimal
	GrandTotal    decimal.Decimal
	AmountInWords string
	Notes         string
	Status        Status
	IssuedAt      time.Time
}

// ListFilter narrows an invoice listing.
type ListFilter struct {
	AccountID string
	Limit     int
	Offset    int
}

// Repository stores invoices.
type Repository interface {
	// Create persists the invoice. Returns ErrNumberTaken when the invoice
	// number collides, ErrOrderInvoiced when the order already has a live one.
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	// GetLiveByOrder returns the order's non-cancelled invoice, or ErrNotFound.
	GetLiveByOrder(ctx context.Context, orderID string) (*Invoice, error)
	List(ctx context.Context, f ListFilter) ([]Invoice, int, error)
	SetStatus(ctx context.Context, id string, status Status) error
	// CountForYear returns how many invoices exist for the given year, used to
	// derive the next sequence number.
	CountForYear(ctx context.Context, year int) (int, error)
}

// Number builds the invoice number: INV-<year>-<5-digit sequence>.
func Number(year, seq int) string {
	return fmt.Sprintf("INV-%d-%05d", year, seq)
}
