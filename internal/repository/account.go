package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurumcart/aurum-backend/internal/domain/account"
)

const (
	getAccountSQL = `SELECT id, name, email, loyalty_points, referral_code, referred_by,
		referred_by_code, membership_status, membership_expires_at,
		membership_discount_percent, active, created_at
		FROM accounts WHERE id = $1`

	findAccountByReferralCodeSQL = `SELECT id, name, email, loyalty_points, referral_code,
		referred_by, referred_by_code, membership_status, membership_expires_at,
		membership_discount_percent, active, created_at
		FROM accounts WHERE UPPER(referral_code) = UPPER($1)`

	ensureReferralCodeSQL = `UPDATE accounts
		SET referral_code = COALESCE(referral_code, $2), updated_at = now()
		WHERE id = $1
		RETURNING referral_code`

	setReferredBySQL = `UPDATE accounts
		SET referred_by = $2, referred_by_code = $3, updated_at = now()
		WHERE id = $1 AND referred_by IS NULL`
)

var _ account.Repository = (*AccountRepository)(nil)

// AccountRepository implements account.Repository backed by PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns an AccountRepository that uses the given pool.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Get returns the account or account.ErrNotFound.
func (r *AccountRepository) Get(ctx context.Context, id string) (*account.Account, error) {
	rows, err := r.pool.Query(ctx, getAccountSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting account %q: %w", id, err)
	}

	acc, err := pgx.CollectExactlyOneRow(rows, scanAccount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("getting account %q: %w", id, err)
	}
	return &acc, nil
}

// FindByReferralCode looks an account up by its referral code
// (case-insensitive). Returns account.ErrNotFound when no account carries it.
func (r *AccountRepository) FindByReferralCode(ctx context.Context, code string) (*account.Account, error) {
	rows, err := r.pool.Query(ctx, findAccountByReferralCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding account by referral code %q: %w", code, err)
	}

	acc, err := pgx.CollectExactlyOneRow(rows, scanAccount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("finding account by referral code %q: %w", code, err)
	}
	return &acc, nil
}

// EnsureReferralCode persists code when the account has none yet. COALESCE
// keeps an already assigned code, so handing out a code is a one-time event.
func (r *AccountRepository) EnsureReferralCode(ctx context.Context, id, code string) (string, error) {
	var effective string
	err := r.pool.QueryRow(ctx, ensureReferralCodeSQL, id, code).Scan(&effective)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", account.ErrNotFound
		}
		return "", fmt.Errorf("ensuring referral code for account %q: %w", id, err)
	}
	return effective, nil
}

// SetReferredBy stamps the referrer back-reference. The referred_by IS NULL
// guard makes the stamp first-writer-wins under concurrency.
func (r *AccountRepository) SetReferredBy(ctx context.Context, id, referrerID, code string) error {
	tag, err := r.pool.Exec(ctx, setReferredBySQL, id, referrerID, code)
	if err != nil {
		return fmt.Errorf("setting referrer for account %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("account missing or already referred")
	}
	return nil
}

func scanAccount(row pgx.CollectableRow) (account.Account, error) {
	var (
		acc             account.Account
		referralCode    *string
		referredBy      *string
		referredByCode  *string
		status          string
		discountPercent *float64
	)
	err := row.Scan(
		&acc.ID, &acc.Name, &acc.Email, &acc.LoyaltyPoints, &referralCode, &referredBy,
		&referredByCode, &status, &acc.Membership.ExpiresAt,
		&discountPercent, &acc.Active, &acc.CreatedAt,
	)
	if referralCode != nil {
		acc.ReferralCode = *referralCode
	}
	if referredBy != nil {
		acc.ReferredBy = *referredBy
	}
	if referredByCode != nil {
		acc.ReferredByCode = *referredByCode
	}
	acc.Membership.Status = account.MembershipStatus(status)
	if discountPercent != nil {
		acc.Membership.DiscountPercent = *discountPercent
	}
	return acc, err
}
