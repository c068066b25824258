package voucher

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Evaluator validates and prices voucher codes against a cart total.
type Evaluator struct {
	repo Repository
	now  func() time.Time
}

// NewEvaluator creates an Evaluator backed by the given Repository.
func NewEvaluator(repo Repository) *Evaluator {
	return &Evaluator{repo: repo, now: time.Now}
}

// Preview validates the code and computes the discount without claiming a use.
func (e *Evaluator) Preview(ctx context.Context, code string, cartTotal decimal.Decimal) (*Application, error) {
	v, err := e.lookupUsable(ctx, code)
	if err != nil {
		return nil, err
	}
	return e.price(v, cartTotal)
}

// Apply validates the code, computes the discount, and claims one use for the
// account. The claim is the sole side effect; a checkout that fails after
// claiming must hand the use back via Release.
func (e *Evaluator) Apply(ctx context.Context, code, accountID, orderID string, cartTotal decimal.Decimal) (*Application, error) {
	v, err := e.lookupUsable(ctx, code)
	if err != nil {
		return nil, err
	}

	app, err := e.price(v, cartTotal)
	if err != nil {
		return nil, err
	}

	if err := e.repo.Claim(ctx, v.Code, accountID, orderID); err != nil {
		if errors.Is(err, ErrUsageLimitReached) {
			return nil, ErrUsageLimitReached
		}
		return nil, errors.Wrap(err, "claim voucher")
	}
	return app, nil
}

// Release returns a use claimed for the order, undoing a prior Apply.
func (e *Evaluator) Release(ctx context.Context, code, orderID string) error {
	if err := e.repo.Release(ctx, code, orderID); err != nil {
		return errors.Wrap(err, "release voucher")
	}
	return nil
}

// ListUsable returns the vouchers currently open for use.
func (e *Evaluator) ListUsable(ctx context.Context) ([]Voucher, error) {
	return e.repo.ListUsable(ctx, e.now())
}

func (e *Evaluator) lookupUsable(ctx context.Context, code string) (*Voucher, error) {
	v, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup voucher")
	}
	if err := v.Usable(e.now()); err != nil {
		return nil, err
	}
	return v, nil
}

func (e *Evaluator) price(v *Voucher, cartTotal decimal.Decimal) (*Application, error) {
	if cartTotal.LessThan(v.MinAmount) {
		return nil, &MinAmountError{Code: v.Code, MinAmount: v.MinAmount}
	}

	discount := v.Discount(cartTotal)
	return &Application{
		Voucher:   *v,
		CartTotal: cartTotal,
		Discount:  discount,
		Total:     cartTotal.Sub(discount).Round(2),
	}, nil
}
