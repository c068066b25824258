package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurumcart/aurum-backend/internal/domain/loyalty"
	"github.com/aurumcart/aurum-backend/internal/domain/referral"
)

const (
	referralColumns = `id, referrer_id, referee_id, code, status, reward_points,
		COALESCE(order_id, ''), rewarded_at, created_at`

	findRewardedByRefereeSQL = `SELECT ` + referralColumns + `
		FROM referrals WHERE referee_id = $1 AND status = 'rewarded'`

	insertReferralSQL = `INSERT INTO referrals (id, referrer_id, referee_id, code)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (referee_id, referrer_id) DO NOTHING`

	getReferralByPairSQL = `SELECT ` + referralColumns + `
		FROM referrals WHERE referee_id = $1 AND referrer_id = $2`

	// The status guard plus the partial unique index on rewarded referees make
	// concurrent settlements collapse to one winner.
	markRewardedSQL = `UPDATE referrals
		SET status = 'rewarded', reward_points = $2, order_id = $3,
			ledger_entry_id = $4, rewarded_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + referralColumns

	markExpiredSQL = `UPDATE referrals
		SET status = 'expired'
		WHERE id = $1 AND status = 'pending'`

	referralStatsSQL = `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'pending'),
		COUNT(*) FILTER (WHERE status = 'rewarded'),
		COALESCE(SUM(reward_points) FILTER (WHERE status = 'rewarded'), 0)
		FROM referrals WHERE referrer_id = $1`

	uniqueViolationCode = "23505"
)

var _ referral.Repository = (*ReferralRepository)(nil)

// ReferralRepository implements referral.Repository backed by PostgreSQL.
type ReferralRepository struct {
	pool *pgxpool.Pool
}

// NewReferralRepository returns a ReferralRepository that uses the given pool.
func NewReferralRepository(pool *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{pool: pool}
}

// FindRewardedByReferee returns the referee's rewarded referral, or
// referral.ErrNotFound.
func (r *ReferralRepository) FindRewardedByReferee(ctx context.Context, refereeID string) (*referral.Referral, error) {
	rows, err := r.pool.Query(ctx, findRewardedByRefereeSQL, refereeID)
	if err != nil {
		return nil, fmt.Errorf("finding rewarded referral for %q: %w", refereeID, err)
	}

	ref, err := pgx.CollectExactlyOneRow(rows, scanReferral)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, referral.ErrNotFound
		}
		return nil, fmt.Errorf("finding rewarded referral for %q: %w", refereeID, err)
	}
	return &ref, nil
}

// FindOrCreatePending returns the pair's referral, inserting a pending row
// when absent. ON CONFLICT DO NOTHING makes concurrent creates converge.
func (r *ReferralRepository) FindOrCreatePending(ctx context.Context, referrerID, refereeID, code string) (*referral.Referral, error) {
	_, err := r.pool.Exec(ctx, insertReferralSQL, uuid.NewString(), referrerID, refereeID, code)
	if err != nil {
		return nil, fmt.Errorf("creating referral: %w", err)
	}

	rows, err := r.pool.Query(ctx, getReferralByPairSQL, refereeID, referrerID)
	if err != nil {
		return nil, fmt.Errorf("loading referral: %w", err)
	}
	ref, err := pgx.CollectExactlyOneRow(rows, scanReferral)
	if err != nil {
		return nil, fmt.Errorf("loading referral: %w", err)
	}
	return &ref, nil
}

// MarkRewarded flips the referral to rewarded and credits the referrer's
// ledger in the same transaction. Returns referral.ErrAlreadyRewarded when
// another settlement won the race.
func (r *ReferralRepository) MarkRewarded(ctx context.Context, id string, points int64, orderID string) (*referral.Referral, error) {
	var ref referral.Referral
	entryID := uuid.NewString()

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, markRewardedSQL, id, points, orderID, entryID)
		if err != nil {
			return fmt.Errorf("updating referral: %w", err)
		}
		ref, err = pgx.CollectExactlyOneRow(rows, scanReferral)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return referral.ErrAlreadyRewarded
			}
			return fmt.Errorf("updating referral: %w", err)
		}

		var balanceAfter int64
		err = tx.QueryRow(ctx, creditPointsSQL, ref.ReferrerID, points).Scan(&balanceAfter)
		if err != nil {
			return fmt.Errorf("crediting referrer: %w", err)
		}
		var createdAt time.Time
		err = tx.QueryRow(ctx, insertLoyaltyEntrySQL,
			entryID, ref.ReferrerID, string(loyalty.Credit), points, balanceAfter,
			string(loyalty.SourceReferralReward),
			"Referral reward for order "+orderID, &orderID, ptr("Order"),
		).Scan(&createdAt)
		if err != nil {
			return fmt.Errorf("appending reward entry: %w", err)
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, referral.ErrAlreadyRewarded
		}
		if errors.Is(err, referral.ErrAlreadyRewarded) {
			return nil, referral.ErrAlreadyRewarded
		}
		return nil, fmt.Errorf("rewarding referral %q: %w", id, err)
	}
	return &ref, nil
}

// MarkExpired flips a still-pending referral to expired. Rows already rewarded
// or expired are left untouched.
func (r *ReferralRepository) MarkExpired(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, markExpiredSQL, id); err != nil {
		return fmt.Errorf("expiring referral %q: %w", id, err)
	}
	return nil
}

// ListByReferrer lists a referrer's referrals newest first, with the unpaged
// total.
func (r *ReferralRepository) ListByReferrer(ctx context.Context, f referral.HistoryFilter) ([]referral.Referral, int, error) {
	where := `WHERE referrer_id = $1 AND ($2 = '' OR status = $2)`

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM referrals `+where,
		f.ReferrerID, string(f.Status),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting referrals: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+referralColumns+` FROM referrals `+where+`
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		f.ReferrerID, string(f.Status), limit, f.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing referrals: %w", err)
	}
	refs, err := pgx.CollectRows(rows, scanReferral)
	if err != nil {
		return nil, 0, fmt.Errorf("listing referrals: %w", err)
	}
	return refs, total, nil
}

// StatsByReferrer aggregates a referrer's program activity.
func (r *ReferralRepository) StatsByReferrer(ctx context.Context, referrerID string) (referral.Stats, error) {
	var s referral.Stats
	err := r.pool.QueryRow(ctx, referralStatsSQL, referrerID).Scan(
		&s.Total, &s.Pending, &s.Rewarded, &s.PointsEarned,
	)
	if err != nil {
		return referral.Stats{}, fmt.Errorf("aggregating referral stats: %w", err)
	}
	return s, nil
}

func scanReferral(row pgx.CollectableRow) (referral.Referral, error) {
	var (
		ref    referral.Referral
		status string
	)
	err := row.Scan(&ref.ID, &ref.ReferrerID, &ref.RefereeID, &ref.Code, &status,
		&ref.RewardPoints, &ref.QualifyingRef, &ref.RewardedAt, &ref.CreatedAt)
	ref.Status = referral.Status(status)
	return ref, err
}
