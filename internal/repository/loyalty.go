package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurumcart/aurum-backend/internal/domain/loyalty"
)

const (
	creditPointsSQL = `UPDATE accounts
		SET loyalty_points = loyalty_points + $2, updated_at = now()
		WHERE id = $1
		RETURNING loyalty_points`

	// The balance guard turns an overdraft into zero affected rows instead of
	// violating the non-negative check.
	debitPointsSQL = `UPDATE accounts
		SET loyalty_points = loyalty_points - $2, updated_at = now()
		WHERE id = $1 AND loyalty_points >= $2
		RETURNING loyalty_points`

	insertLoyaltyEntrySQL = `INSERT INTO loyalty_entries
		(id, account_id, direction, points, balance_after, source, description, reference_id, reference_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	getBalanceSQL = `SELECT loyalty_points FROM accounts WHERE id = $1`

	loyaltyStatsSQL = `SELECT
		COALESCE(SUM(points) FILTER (WHERE direction = 'credit'), 0),
		COALESCE(SUM(points) FILTER (WHERE direction = 'debit'), 0)
		FROM loyalty_entries`
)

var _ loyalty.Ledger = (*LoyaltyRepository)(nil)

// LoyaltyRepository implements loyalty.Ledger backed by PostgreSQL. The
// account's cached balance and the appended entry are written in one
// transaction, keeping balance_after consistent with replay.
type LoyaltyRepository struct {
	pool *pgxpool.Pool
}

// NewLoyaltyRepository returns a LoyaltyRepository that uses the given pool.
func NewLoyaltyRepository(pool *pgxpool.Pool) *LoyaltyRepository {
	return &LoyaltyRepository{pool: pool}
}

// Credit adds points and appends the ledger entry atomically.
func (r *LoyaltyRepository) Credit(ctx context.Context, m loyalty.Mutation) (*loyalty.Entry, error) {
	return r.mutate(ctx, m, loyalty.Credit, creditPointsSQL)
}

// Debit subtracts points, failing with loyalty.ErrInsufficientBalance when the
// balance does not cover the mutation. No partial effect occurs.
func (r *LoyaltyRepository) Debit(ctx context.Context, m loyalty.Mutation) (*loyalty.Entry, error) {
	return r.mutate(ctx, m, loyalty.Debit, debitPointsSQL)
}

func (r *LoyaltyRepository) mutate(ctx context.Context, m loyalty.Mutation, dir loyalty.Direction, balanceSQL string) (*loyalty.Entry, error) {
	entry := &loyalty.Entry{
		ID:            uuid.NewString(),
		AccountID:     m.AccountID,
		Direction:     dir,
		Points:        m.Points,
		Source:        m.Source,
		Description:   m.Description,
		ReferenceID:   m.ReferenceID,
		ReferenceType: m.ReferenceType,
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, balanceSQL, m.AccountID, m.Points).Scan(&entry.BalanceAfter)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) && dir == loyalty.Debit {
				return loyalty.ErrInsufficientBalance
			}
			return fmt.Errorf("updating balance: %w", err)
		}

		err = tx.QueryRow(ctx, insertLoyaltyEntrySQL,
			entry.ID, entry.AccountID, string(entry.Direction), entry.Points, entry.BalanceAfter,
			string(entry.Source), entry.Description, nullable(entry.ReferenceID), nullable(entry.ReferenceType),
		).Scan(&entry.CreatedAt)
		if err != nil {
			return fmt.Errorf("appending entry: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, loyalty.ErrInsufficientBalance) {
			return nil, loyalty.ErrInsufficientBalance
		}
		return nil, fmt.Errorf("recording %s for account %q: %w", dir, m.AccountID, err)
	}
	return entry, nil
}

// Balance returns the account's cached point balance.
func (r *LoyaltyRepository) Balance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, getBalanceSQL, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading balance for account %q: %w", accountID, err)
	}
	return balance, nil
}

// History lists ledger entries newest first, with the unpaged total.
func (r *LoyaltyRepository) History(ctx context.Context, f loyalty.HistoryFilter) ([]loyalty.Entry, int, error) {
	where := `WHERE account_id = $1
		AND ($2 = '' OR direction = $2)
		AND ($3 = '' OR source = $3)`

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM loyalty_entries `+where,
		f.AccountID, string(f.Direction), string(f.Source),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting loyalty entries: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, direction, points, balance_after, source, description,
			COALESCE(reference_id, ''), COALESCE(reference_type, ''), created_at
		FROM loyalty_entries `+where+`
		ORDER BY created_at DESC LIMIT $4 OFFSET $5`,
		f.AccountID, string(f.Direction), string(f.Source), limit, f.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing loyalty entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (loyalty.Entry, error) {
		var (
			e         loyalty.Entry
			direction string
			source    string
		)
		err := row.Scan(&e.ID, &e.AccountID, &direction, &e.Points, &e.BalanceAfter,
			&source, &e.Description, &e.ReferenceID, &e.ReferenceType, &e.CreatedAt)
		e.Direction = loyalty.Direction(direction)
		e.Source = loyalty.Source(source)
		return e, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("listing loyalty entries: %w", err)
	}
	return entries, total, nil
}

// Stats aggregates ledger-wide credit and debit totals.
func (r *LoyaltyRepository) Stats(ctx context.Context) (loyalty.Stats, error) {
	var s loyalty.Stats
	err := r.pool.QueryRow(ctx, loyaltyStatsSQL).Scan(&s.TotalCredited, &s.TotalDebited)
	if err != nil {
		return loyalty.Stats{}, fmt.Errorf("aggregating loyalty stats: %w", err)
	}
	s.Net = s.TotalCredited - s.TotalDebited
	return s, nil
}

// nullable maps an empty string to NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func ptr(s string) *string { return &s }
