package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/aurumcart/aurum-backend/internal/domain/payment"
)

const (
	getEMIPlanSQL = `SELECT id, months, interest_rate, min_amount, max_amount, processing_fee, active
		FROM emi_plans WHERE id = $1 AND active = TRUE`

	listEMIPlansForAmountSQL = `SELECT id, months, interest_rate, min_amount, max_amount, processing_fee, active
		FROM emi_plans
		WHERE active = TRUE AND min_amount <= $1 AND max_amount >= $1
		ORDER BY months`
)

var _ payment.PlanRepository = (*EMIPlanRepository)(nil)

// EMIPlanRepository implements payment.PlanRepository backed by PostgreSQL.
type EMIPlanRepository struct {
	pool *pgxpool.Pool
}

// NewEMIPlanRepository returns an EMIPlanRepository that uses the given pool.
func NewEMIPlanRepository(pool *pgxpool.Pool) *EMIPlanRepository {
	return &EMIPlanRepository{pool: pool}
}

// GetByID returns an active plan or payment.ErrPlanNotFound.
func (r *EMIPlanRepository) GetByID(ctx context.Context, id string) (*payment.InstallmentPlan, error) {
	rows, err := r.pool.Query(ctx, getEMIPlanSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting emi plan %q: %w", id, err)
	}

	plan, err := pgx.CollectExactlyOneRow(rows, scanEMIPlan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPlanNotFound
		}
		return nil, fmt.Errorf("getting emi plan %q: %w", id, err)
	}
	return &plan, nil
}

// ListForAmount returns active plans covering the amount, shortest tenure first.
func (r *EMIPlanRepository) ListForAmount(ctx context.Context, amount decimal.Decimal) ([]payment.InstallmentPlan, error) {
	rows, err := r.pool.Query(ctx, listEMIPlansForAmountSQL, amount)
	if err != nil {
		return nil, fmt.Errorf("listing emi plans: %w", err)
	}
	plans, err := pgx.CollectRows(rows, scanEMIPlan)
	if err != nil {
		return nil, fmt.Errorf("listing emi plans: %w", err)
	}
	return plans, nil
}

func scanEMIPlan(row pgx.CollectableRow) (payment.InstallmentPlan, error) {
	var (
		p      payment.InstallmentPlan
		months int32
	)
	err := row.Scan(&p.ID, &months, &p.InterestRate, &p.MinAmount, &p.MaxAmount, &p.ProcessingFee, &p.Active)
	p.Months = int(months)
	return p, err
}
