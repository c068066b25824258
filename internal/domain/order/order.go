// Package order owns the purchase lifecycle: creation from a priced cart,
// payment confirmation, status transitions, and tracking.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/aurumcart/aurum-backend/internal/domain/payment"
)

// Status of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Payment receipt is not a status of its own; it lands in the tracking
// history while the order stays where it is.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

var (
	// ErrNotFound is returned when no order matches.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyItems is returned when neither the request nor the cart has items.
	ErrEmptyItems = errors.New("items required")
	// ErrHumanIDTaken is returned by Create on a human-id collision.
	ErrHumanIDTaken = errors.New("order number already taken")
	// ErrNotCancellable is returned when cancellation is requested after shipping.
	ErrNotCancellable = errors.New("order can no longer be cancelled")
	// ErrSignatureMismatch is returned when gateway signature verification fails.
	ErrSignatureMismatch = errors.New("payment signature verification failed")
	// ErrAlreadyPaid is returned when a completed payment is verified again.
	ErrAlreadyPaid = errors.New("payment already completed")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InsufficientStockError indicates the requested quantity exceeds stock.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %s: requested %d, only %d in stock", e.ProductID, e.Requested, e.Available)
}

// TransitionError indicates a disallowed status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// Item is an order line frozen at creation time. Prices never change after
// the order exists, whatever happens to the catalog.
type Item struct {
	ProductID    string          `json:"productId"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	MakingCharge decimal.Decimal `json:"makingCharge"`
	Size         string          `json:"size,omitempty"`
	LineTotal    decimal.Decimal `json:"lineTotal"`
}

// TrackingEvent is one entry in an order's tracking history.
type TrackingEvent struct {
	Status    Status    `json:"status"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Order is the persisted purchase.
type Order struct {
	ID              string
	HumanID         string
	AccountID       string
	Items           []Item
	Subtotal        decimal.Decimal
	MakingCharges   decimal.Decimal
	Tax             decimal.Decimal
	ShippingFee     decimal.Decimal
	VoucherCode     string
	VoucherDiscount decimal.Decimal
	PointsUsed      int64
	PointsDiscount  decimal.Decimal
	TotalAmount     decimal.Decimal
	Payment         payment.Terms
	GatewayOrderID  string
	Status          Status
	Tracking        []TrackingEvent
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ListFilter narrows an order listing.
type ListFilter struct {
	AccountID string
	Status    Status // empty = all
	Limit     int
	Offset    int
}

// Repository stores orders.
type Repository interface {
	// Create persists the order and, when clearCart is set, empties the
	// account's cart in the same transaction. Returns ErrHumanIDTaken when
	// the human id collides with a concurrent insert.
	Create(ctx context.Context, o *Order, clearCart bool) error
	Get(ctx context.Context, id string) (*Order, error)
	GetByHumanID(ctx context.Context, humanID string) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, int, error)
	Update(ctx context.Context, o *Order) error
	// CountCreatedOn returns how many orders were created on the given day,
	// used to derive the next human-id sequence number.
	CountCreatedOn(ctx context.Context, day time.Time) (int, error)
}

// CartItem is one line of an account's cart.
type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
}

// CartRepository reads the cart an order is created from.
type CartRepository interface {
	Get(ctx context.Context, accountID string) ([]CartItem, error)
}

// HumanID builds the customer-facing order number: the day as YYYYMMDD
// followed by a 4-digit sequence within the day.
func HumanID(day time.Time, seq int) string {
	return day.Format("20060102") + fmt.Sprintf("%04d", seq)
}
