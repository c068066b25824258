// Package loyalty implements the points ledger and the reward engine on top
// of it.
//
// The ledger is append-only: corrections are offsetting entries, never edits.
// The account's cached balance and the entry's balanceAfter are written in the
// same transaction, so replaying an account's entries in creation order always
// reproduces its current balance.
package loyalty

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Direction of a ledger entry.
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// Source identifies what caused a ledger entry.
type Source string

const (
	SourceReferralReward  Source = "referral_reward"
	SourceCashback        Source = "cashback"
	SourceRefund          Source = "refund"
	SourceOrderPayment    Source = "order_payment"
	SourcePackagePayment  Source = "package_payment"
	SourceAdminAdjustment Source = "admin_adjustment"
	SourceWelcomeBonus    Source = "welcome_bonus"
	SourceExpired         Source = "expired"
)

var (
	// ErrInsufficientBalance is returned by a debit exceeding the balance.
	// No partial effect occurs.
	ErrInsufficientBalance = errors.New("insufficient loyalty points")
	// ErrInvalidPoints is returned when a mutation asks for zero or negative points.
	ErrInvalidPoints = errors.New("points must be greater than 0")
)

// Entry is one immutable ledger record.
type Entry struct {
	ID            string
	AccountID     string
	Direction     Direction
	Points        int64
	BalanceAfter  int64
	Source        Source
	Description   string
	ReferenceID   string
	ReferenceType string
	CreatedAt     time.Time
}

// Mutation is the input for a credit or debit.
type Mutation struct {
	AccountID     string
	Points        int64
	Source        Source
	Description   string
	ReferenceID   string
	ReferenceType string
}

// HistoryFilter narrows a ledger listing.
type HistoryFilter struct {
	AccountID string
	Direction Direction // empty = both
	Source    Source    // empty = all
	Limit     int
	Offset    int
}

// Stats aggregates ledger activity.
type Stats struct {
	TotalCredited int64
	TotalDebited  int64
	Net           int64
}

// Ledger is the durable store. Credit and Debit are transactional: balance
// read, guard, balance write, and entry append happen as one atomic unit.
type Ledger interface {
	Credit(ctx context.Context, m Mutation) (*Entry, error)
	// Debit fails with ErrInsufficientBalance when m.Points exceeds the
	// current balance.
	Debit(ctx context.Context, m Mutation) (*Entry, error)
	Balance(ctx context.Context, accountID string) (int64, error)
	History(ctx context.Context, f HistoryFilter) ([]Entry, int, error)
	Stats(ctx context.Context) (Stats, error)
}
