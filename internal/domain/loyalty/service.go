package loyalty

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/aurumcart/aurum-backend/internal/domain/settings"
)

// MinRedemptionError indicates a redemption below the configured threshold
// that is not a full-balance redemption.
type MinRedemptionError struct {
	MinRedemption int64
}

func (e *MinRedemptionError) Error() string {
	return fmt.Sprintf("minimum %d points required for redemption", e.MinRedemption)
}

// BalanceSummary is the checkout-facing view of an account's points.
type BalanceSummary struct {
	Points          int64
	PointValue      decimal.Decimal
	Value           decimal.Decimal // Points * PointValue
	MinRedemption   int64
	MaxUsagePercent decimal.Decimal
	CanRedeem       bool
}

// UsageQuote is the result of capping a requested redemption against an order.
type UsageQuote struct {
	AvailablePoints int64
	MaxUsablePoints int64
	PointsToUse     int64
	PointValue      decimal.Decimal
	Discount        decimal.Decimal
	NewTotal        decimal.Decimal
}

// Service is the reward engine: redemption policy and reward crediting over
// the raw ledger. All tunables come from the settings store at call time.
type Service struct {
	ledger   Ledger
	settings settings.Store
}

// NewService creates a loyalty Service.
func NewService(ledger Ledger, st settings.Store) *Service {
	return &Service{ledger: ledger, settings: st}
}

// BalanceSummary returns the account's balance with the current redemption
// tunables applied.
func (s *Service) BalanceSummary(ctx context.Context, accountID string) (*BalanceSummary, error) {
	balance, err := s.ledger.Balance(ctx, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "read balance")
	}
	cfg, err := settings.Loyalty(ctx, s.settings)
	if err != nil {
		return nil, errors.Wrap(err, "resolve loyalty settings")
	}

	return &BalanceSummary{
		Points:          balance,
		PointValue:      cfg.PointValue,
		Value:           cfg.PointValue.Mul(decimal.NewFromInt(balance)),
		MinRedemption:   cfg.MinRedemption,
		MaxUsagePercent: cfg.MaxUsagePercent,
		CanRedeem:       balance >= cfg.MinRedemption,
	}, nil
}

// CalculateUsage caps a requested redemption for an order:
// usable = min(available, floor(orderTotal * maxUsagePercent / 100 / pointValue)).
// Requests below the minimum threshold are rejected unless they redeem the
// whole balance.
func (s *Service) CalculateUsage(ctx context.Context, accountID string, orderTotal decimal.Decimal, pointsToUse int64) (*UsageQuote, error) {
	if !orderTotal.IsPositive() {
		return nil, errors.New("order total must be greater than 0")
	}

	available, err := s.ledger.Balance(ctx, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "read balance")
	}
	cfg, err := settings.Loyalty(ctx, s.settings)
	if err != nil {
		return nil, errors.Wrap(err, "resolve loyalty settings")
	}

	maxForOrder := orderTotal.
		Mul(cfg.MaxUsagePercent).
		Div(decimal.NewFromInt(100)).
		Div(cfg.PointValue).
		IntPart()
	maxUsable := min(available, maxForOrder)

	var actual int64
	if pointsToUse > 0 {
		if pointsToUse < cfg.MinRedemption && pointsToUse != available {
			return nil, &MinRedemptionError{MinRedemption: cfg.MinRedemption}
		}
		actual = min(pointsToUse, maxUsable)
	}

	discount := cfg.PointValue.Mul(decimal.NewFromInt(actual))
	return &UsageQuote{
		AvailablePoints: available,
		MaxUsablePoints: maxUsable,
		PointsToUse:     actual,
		PointValue:      cfg.PointValue,
		Discount:        discount,
		NewTotal:        orderTotal.Sub(discount),
	}, nil
}

// Redeem debits points for a payment. The caller is expected to have capped
// the amount via CalculateUsage first; the ledger still enforces the balance.
func (s *Service) Redeem(ctx context.Context, m Mutation) (*Entry, error) {
	if m.Points <= 0 {
		return nil, ErrInvalidPoints
	}
	return s.ledger.Debit(ctx, m)
}

// CreditReward credits points from an earn event (referral, cashback, bonus).
func (s *Service) CreditReward(ctx context.Context, m Mutation) (*Entry, error) {
	if m.Points <= 0 {
		return nil, ErrInvalidPoints
	}
	return s.ledger.Credit(ctx, m)
}

// AdminAdjust applies a manual correction as a regular ledger entry with the
// admin_adjustment source.
func (s *Service) AdminAdjust(ctx context.Context, accountID string, points int64, direction Direction, description, adminID string) (*Entry, error) {
	if points <= 0 {
		return nil, ErrInvalidPoints
	}
	m := Mutation{
		AccountID:     accountID,
		Points:        points,
		Source:        SourceAdminAdjustment,
		Description:   description,
		ReferenceID:   adminID,
		ReferenceType: "Admin",
	}
	if direction == Debit {
		return s.ledger.Debit(ctx, m)
	}
	return s.ledger.Credit(ctx, m)
}

// History lists ledger entries for an account.
func (s *Service) History(ctx context.Context, f HistoryFilter) ([]Entry, int, error) {
	return s.ledger.History(ctx, f)
}

// Stats aggregates ledger-wide credit/debit totals.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.ledger.Stats(ctx)
}
