// Package voucher implements discount-code validation and pricing.
package voucher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported voucher discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies value% of the cart total, capped by MaxDiscount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed amount, capped at the cart total.
	DiscountFixed DiscountType = "fixed"
)

// Each usability failure is distinct so callers can surface the exact reason.
var (
	ErrNotFound          = errors.New("voucher not found")
	ErrInactive          = errors.New("voucher is not active")
	ErrNotYetValid       = errors.New("voucher is not yet valid")
	ErrExpired           = errors.New("voucher has expired")
	ErrUsageLimitReached = errors.New("voucher usage limit reached")
)

// MinAmountError indicates the cart total does not meet the voucher minimum.
type MinAmountError struct {
	Code      string
	MinAmount decimal.Decimal
}

func (e *MinAmountError) Error() string {
	return fmt.Sprintf("voucher %s: minimum amount not met (requires %s)", e.Code, e.MinAmount)
}

// Voucher is a discount code with its eligibility constraints.
type Voucher struct {
	Code          string
	Description   string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MinAmount     decimal.Decimal
	MaxDiscount   *decimal.Decimal
	StartDate     *time.Time
	EndDate       *time.Time
	UsageLimit    *int
	UsedCount     int
	Active        bool
}

// Application is the result of applying a voucher to a cart total.
type Application struct {
	Voucher   Voucher
	CartTotal decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
}

// Repository provides voucher lookup and the transactional claim mutation.
type Repository interface {
	// FindByCode looks a voucher up case-insensitively.
	// Returns ErrNotFound when absent.
	FindByCode(ctx context.Context, code string) (*Voucher, error)
	// Claim atomically increments used_count (guarded by the usage limit) and
	// appends a claim record for the account. Returns ErrUsageLimitReached when
	// a concurrent claim exhausted the voucher after the caller's read.
	Claim(ctx context.Context, code, accountID, orderID string) error
	// Release decrements used_count and removes the order's claim record,
	// undoing a Claim whose checkout did not complete.
	Release(ctx context.Context, code, orderID string) error
	// ListUsable returns active vouchers currently inside their window with
	// remaining uses.
	ListUsable(ctx context.Context, now time.Time) ([]Voucher, error)
	// ListClaimedBy returns vouchers the account has claimed.
	ListClaimedBy(ctx context.Context, accountID string) ([]Voucher, error)
}

// Usable reports why the voucher cannot be used at the given instant, or nil.
func (v *Voucher) Usable(now time.Time) error {
	if !v.Active {
		return ErrInactive
	}
	if v.StartDate != nil && now.Before(*v.StartDate) {
		return ErrNotYetValid
	}
	if v.EndDate != nil && now.After(*v.EndDate) {
		return ErrExpired
	}
	if v.UsageLimit != nil && v.UsedCount >= *v.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// Discount computes the discount the voucher yields for the given cart total.
// The result is capped by MaxDiscount (when set) and by the cart total itself,
// so the final total can never go negative.
func (v *Voucher) Discount(cartTotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch v.DiscountType {
	case DiscountPercentage:
		amount = v.DiscountValue.Div(decimal.NewFromInt(100)).Mul(cartTotal)
	default:
		amount = v.DiscountValue
	}

	if v.MaxDiscount != nil {
		amount = decimal.Min(amount, *v.MaxDiscount)
	}
	amount = decimal.Min(amount, cartTotal)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount.Round(2)
}
