package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurumcart/aurum-backend/internal/domain/voucher"
)

const (
	voucherColumns = `code, description, discount_type, discount_value, min_amount,
		max_discount, start_date, end_date, usage_limit, used_count, active`

	findVoucherByCodeSQL = `SELECT ` + voucherColumns + `
		FROM vouchers WHERE UPPER(code) = UPPER($1)`

	listUsableVouchersSQL = `SELECT ` + voucherColumns + `
		FROM vouchers
		WHERE active = TRUE
		  AND (start_date IS NULL OR start_date <= $1)
		  AND (end_date IS NULL OR end_date >= $1)
		  AND (usage_limit IS NULL OR used_count < usage_limit)
		ORDER BY code`

	listClaimedVouchersSQL = `SELECT ` + voucherColumns + `
		FROM vouchers v
		JOIN voucher_claims c ON c.code = v.code
		WHERE c.account_id = $1
		ORDER BY c.claimed_at DESC`

	// The used_count guard makes the increment fail instead of overshooting
	// the limit when claims race.
	claimVoucherSQL = `UPDATE vouchers
		SET used_count = used_count + 1
		WHERE code = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`

	insertVoucherClaimSQL = `INSERT INTO voucher_claims (id, code, account_id, order_id)
		VALUES ($1, $2, $3, $4)`

	releaseVoucherSQL = `UPDATE vouchers
		SET used_count = GREATEST(used_count - 1, 0)
		WHERE code = $1`

	deleteVoucherClaimSQL = `DELETE FROM voucher_claims
		WHERE code = $1 AND order_id = $2`
)

var _ voucher.Repository = (*VoucherRepository)(nil)

// VoucherRepository implements voucher.Repository backed by PostgreSQL.
type VoucherRepository struct {
	pool *pgxpool.Pool
}

// NewVoucherRepository returns a VoucherRepository that uses the given pool.
func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// FindByCode looks a voucher up case-insensitively.
func (r *VoucherRepository) FindByCode(ctx context.Context, code string) (*voucher.Voucher, error) {
	rows, err := r.pool.Query(ctx, findVoucherByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding voucher %q: %w", code, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVoucher)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, voucher.ErrNotFound
		}
		return nil, fmt.Errorf("finding voucher %q: %w", code, err)
	}
	return &v, nil
}

// Claim increments used_count under the usage-limit guard and records the
// claim, both in one transaction.
func (r *VoucherRepository) Claim(ctx context.Context, code, accountID, orderID string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, claimVoucherSQL, code)
		if err != nil {
			return fmt.Errorf("incrementing used count: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return voucher.ErrUsageLimitReached
		}
		if _, err := tx.Exec(ctx, insertVoucherClaimSQL, uuid.NewString(), code, accountID, orderID); err != nil {
			return fmt.Errorf("recording claim: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, voucher.ErrUsageLimitReached) {
			return voucher.ErrUsageLimitReached
		}
		return fmt.Errorf("claiming voucher %q: %w", code, err)
	}
	return nil
}

// Release decrements used_count and drops the order's claim record, undoing a
// Claim whose checkout failed. Releasing an unclaimed voucher is a no-op.
func (r *VoucherRepository) Release(ctx context.Context, code, orderID string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, deleteVoucherClaimSQL, code, orderID)
		if err != nil {
			return fmt.Errorf("removing claim: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, releaseVoucherSQL, code); err != nil {
			return fmt.Errorf("decrementing used count: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("releasing voucher %q: %w", code, err)
	}
	return nil
}

// ListUsable returns active vouchers inside their window with remaining uses.
func (r *VoucherRepository) ListUsable(ctx context.Context, now time.Time) ([]voucher.Voucher, error) {
	rows, err := r.pool.Query(ctx, listUsableVouchersSQL, now)
	if err != nil {
		return nil, fmt.Errorf("listing usable vouchers: %w", err)
	}
	vouchers, err := pgx.CollectRows(rows, scanVoucher)
	if err != nil {
		return nil, fmt.Errorf("listing usable vouchers: %w", err)
	}
	return vouchers, nil
}

// ListClaimedBy returns vouchers the account has claimed, newest first.
func (r *VoucherRepository) ListClaimedBy(ctx context.Context, accountID string) ([]voucher.Voucher, error) {
	rows, err := r.pool.Query(ctx, listClaimedVouchersSQL, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing claimed vouchers: %w", err)
	}
	vouchers, err := pgx.CollectRows(rows, scanVoucher)
	if err != nil {
		return nil, fmt.Errorf("listing claimed vouchers: %w", err)
	}
	return vouchers, nil
}

func scanVoucher(row pgx.CollectableRow) (voucher.Voucher, error) {
	var (
		v            voucher.Voucher
		discountType string
		usageLimit   *int32
		usedCount    int32
	)
	err := row.Scan(
		&v.Code, &v.Description, &discountType, &v.DiscountValue, &v.MinAmount,
		&v.MaxDiscount, &v.StartDate, &v.EndDate, &usageLimit, &usedCount, &v.Active,
	)
	v.DiscountType = voucher.DiscountType(discountType)
	if usageLimit != nil {
		limit := int(*usageLimit)
		v.UsageLimit = &limit
	}
	v.UsedCount = int(usedCount)
	return v, err
}
