// Package referral links new customers to the accounts that brought them in
// and pays the referrer once the referee completes a purchase.
package referral

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status of a referral relationship.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRewarded Status = "rewarded"
	StatusExpired  Status = "expired"
)

var (
	// ErrNotFound is returned when no referral row matches.
	ErrNotFound = errors.New("referral not found")
	// ErrCodeNotFound is returned when the presented code belongs to no account.
	ErrCodeNotFound = errors.New("referral code not found")
	// ErrSelfReferral is returned when an account presents its own code.
	ErrSelfReferral = errors.New("cannot use your own referral code")
	// ErrAlreadyReferred is returned when the account already has a referrer.
	ErrAlreadyReferred = errors.New("account already has a referrer")
	// ErrAlreadyRewarded is returned on a second settle attempt for a referee.
	ErrAlreadyRewarded = errors.New("referral already rewarded")
)

// Referral is one referrer-referee link. A referee has at most one rewarded
// referral, enforced by a partial unique index in storage.
type Referral struct {
	ID            string
	ReferrerID    string
	RefereeID     string
	Code          string
	Status        Status
	RewardPoints  int64
	RewardedAt    *time.Time
	QualifyingRef string // order id that triggered the payout
	CreatedAt     time.Time
}

// HistoryFilter narrows a referral listing.
type HistoryFilter struct {
	ReferrerID string
	Status     Status // empty = all
	Limit      int
	Offset     int
}

// Stats summarizes a referrer's program activity.
type Stats struct {
	Total        int
	Pending      int
	Rewarded     int
	PointsEarned int64
}

// Repository stores referral links.
type Repository interface {
	// FindRewardedByReferee returns ErrNotFound when the referee has no
	// rewarded referral yet.
	FindRewardedByReferee(ctx context.Context, refereeID string) (*Referral, error)
	// FindOrCreatePending returns the referee's pending referral, creating it
	// when absent.
	FindOrCreatePending(ctx context.Context, referrerID, refereeID, code string) (*Referral, error)
	// MarkRewarded flips the referral to rewarded, stamps the payout, and
	// credits the referrer's ledger in the same transaction. The partial
	// unique index on (referee) makes a concurrent second settle fail.
	MarkRewarded(ctx context.Context, id string, points int64, orderID string) (*Referral, error)
	// MarkExpired flips a still-pending referral to expired. A referral that
	// is no longer pending is left untouched.
	MarkExpired(ctx context.Context, id string) error
	ListByReferrer(ctx context.Context, f HistoryFilter) ([]Referral, int, error)
	StatsByReferrer(ctx context.Context, referrerID string) (Stats, error)
}

// RewardPoints converts the amount actually paid into referral points:
// round(amountPaid * rewardPercent / 100) to the nearest whole point.
func RewardPoints(amountPaid, rewardPercent decimal.Decimal) int64 {
	return amountPaid.Mul(rewardPercent).Div(decimal.NewFromInt(100)).Round(0).IntPart()
}
