// Package account holds the customer identity the financial engine operates on.
package account

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no account exists for the given id or code.
var ErrNotFound = errors.New("account not found")

// MembershipStatus enumerates the membership lifecycle states.
type MembershipStatus string

const (
	MembershipInactive MembershipStatus = "inactive"
	MembershipActive   MembershipStatus = "active"
	MembershipExpired  MembershipStatus = "expired"
)

// Membership is the optional membership record attached to an account.
type Membership struct {
	Status          MembershipStatus
	ExpiresAt       *time.Time
	DiscountPercent float64
}

// Account is a customer. LoyaltyPoints is a cached projection of the loyalty
// ledger; the ledger is the source of truth.
type Account struct {
	ID             string
	Name           string
	Email          string
	LoyaltyPoints  int64
	ReferralCode   string
	ReferredBy     string
	ReferredByCode string
	Membership     Membership
	Active         bool
	CreatedAt      time.Time
}

// Repository provides account lookup and the mutations the engine needs.
// Point-balance mutations go through the loyalty ledger, never through here.
type Repository interface {
	Get(ctx context.Context, id string) (*Account, error)
	FindByReferralCode(ctx context.Context, code string) (*Account, error)
	// EnsureReferralCode persists code for the account when it has none and
	// returns the effective code.
	EnsureReferralCode(ctx context.Context, id, code string) (string, error)
	// SetReferredBy stamps the referrer back-reference exactly once.
	SetReferredBy(ctx context.Context, id, referrerID, code string) error
}

// DeriveReferralCode produces a stable 8-character uppercase code from the
// account id. Stability matters: handing out a fresh code on every call would
// orphan codes already shared.
func DeriveReferralCode(accountID string) string {
	sum := sha256.Sum256([]byte("referral:" + accountID))
	encoded := hex.EncodeToString(sum[:])

	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var b strings.Builder
	b.Grow(8)
	for i := 0; i < 8; i++ {
		b.WriteByte(alphabet[int(encoded[i*2])%len(alphabet)])
	}
	return b.String()
}
