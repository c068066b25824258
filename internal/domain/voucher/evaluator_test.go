package voucher

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockVoucherRepo struct {
	voucher      *Voucher
	findErr      error
	claimErr     error
	claimCode    string
	claimOrder   string
	releaseErr   error
	releaseCode  string
	releaseOrder string
}

func (m *mockVoucherRepo) FindByCode(_ context.Context, _ string) (*Voucher, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.voucher, nil
}

func (m *mockVoucherRepo) Claim(_ context.Context, code, _, orderID string) error {
	m.claimCode = code
	m.claimOrder = orderID
	return m.claimErr
}

func (m *mockVoucherRepo) Release(_ context.Context, code, orderID string) error {
	m.releaseCode = code
	m.releaseOrder = orderID
	return m.releaseErr
}

func (m *mockVoucherRepo) ListUsable(_ context.Context, _ time.Time) ([]Voucher, error) {
	return nil, nil
}

func (m *mockVoucherRepo) ListClaimedBy(_ context.Context, _ string) ([]Voucher, error) {
	return nil, nil
}

func newTestEvaluator(repo *mockVoucherRepo) *Evaluator {
	e := NewEvaluator(repo)
	e.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestEvaluator_Preview(t *testing.T) {
	t.Run("prices a usable voucher", func(t *testing.T) {
		repo := &mockVoucherRepo{voucher: &Voucher{
			Code:          "FLAT500",
			DiscountType:  DiscountFixed,
			DiscountValue: decimal.NewFromInt(500),
			MinAmount:     decimal.NewFromInt(10000),
			Active:        true,
		}}

		app, err := newTestEvaluator(repo).Preview(context.Background(), "FLAT500", decimal.NewFromInt(12000))
		require.NoError(t, err)
		assert.True(t, app.Discount.Equal(decimal.NewFromInt(500)))
		assert.True(t, app.Total.Equal(decimal.NewFromInt(11500)))
		assert.Empty(t, repo.claimCode, "preview must not claim a use")
	})

	t.Run("unknown code", func(t *testing.T) {
		repo := &mockVoucherRepo{findErr: ErrNotFound}
		_, err := newTestEvaluator(repo).Preview(context.Background(), "BOGUS", decimal.NewFromInt(1000))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("cart below minimum", func(t *testing.T) {
		repo := &mockVoucherRepo{voucher: &Voucher{
			Code:          "FLAT500",
			DiscountType:  DiscountFixed,
			DiscountValue: decimal.NewFromInt(500),
			MinAmount:     decimal.NewFromInt(10000),
			Active:        true,
		}}

		_, err := newTestEvaluator(repo).Preview(context.Background(), "FLAT500", decimal.NewFromInt(9999))
		var minErr *MinAmountError
		require.ErrorAs(t, err, &minErr)
		assert.Equal(t, "FLAT500", minErr.Code)
		assert.True(t, minErr.MinAmount.Equal(decimal.NewFromInt(10000)))
	})

	t.Run("expired voucher", func(t *testing.T) {
		past := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		repo := &mockVoucherRepo{voucher: &Voucher{Code: "OLD", Active: true, EndDate: &past}}

		_, err := newTestEvaluator(repo).Preview(context.Background(), "OLD", decimal.NewFromInt(1000))
		assert.ErrorIs(t, err, ErrExpired)
	})
}

func TestEvaluator_Apply(t *testing.T) {
	welcome := func() *Voucher {
		cap := decimal.NewFromInt(2000)
		return &Voucher{
			Code:          "WELCOME10",
			DiscountType:  DiscountPercentage,
			DiscountValue: decimal.NewFromInt(10),
			MinAmount:     decimal.NewFromInt(1000),
			MaxDiscount:   &cap,
			Active:        true,
		}
	}

	t.Run("claims one use on success", func(t *testing.T) {
		repo := &mockVoucherRepo{voucher: welcome()}

		app, err := newTestEvaluator(repo).Apply(context.Background(), "WELCOME10", "acc1", "ord1", decimal.NewFromInt(30000))
		require.NoError(t, err)
		assert.True(t, app.Discount.Equal(decimal.NewFromInt(2000)), "capped discount = %s", app.Discount)
		assert.Equal(t, "WELCOME10", repo.claimCode)
		assert.Equal(t, "ord1", repo.claimOrder)
	})

	t.Run("concurrent exhaustion surfaces as usage limit", func(t *testing.T) {
		repo := &mockVoucherRepo{voucher: welcome(), claimErr: ErrUsageLimitReached}

		_, err := newTestEvaluator(repo).Apply(context.Background(), "WELCOME10", "acc1", "ord1", decimal.NewFromInt(5000))
		assert.ErrorIs(t, err, ErrUsageLimitReached)
	})

	t.Run("below minimum never claims", func(t *testing.T) {
		repo := &mockVoucherRepo{voucher: welcome()}

		_, err := newTestEvaluator(repo).Apply(context.Background(), "WELCOME10", "acc1", "ord1", decimal.NewFromInt(500))
		var minErr *MinAmountError
		assert.ErrorAs(t, err, &minErr)
		assert.Empty(t, repo.claimCode)
	})
}

func TestEvaluator_Release(t *testing.T) {
	t.Run("hands the claimed use back", func(t *testing.T) {
		repo := &mockVoucherRepo{}

		err := newTestEvaluator(repo).Release(context.Background(), "WELCOME10", "ord1")
		require.NoError(t, err)
		assert.Equal(t, "WELCOME10", repo.releaseCode)
		assert.Equal(t, "ord1", repo.releaseOrder)
	})

	t.Run("wraps repository failure", func(t *testing.T) {
		repo := &mockVoucherRepo{releaseErr: context.DeadlineExceeded}

		err := newTestEvaluator(repo).Release(context.Background(), "WELCOME10", "ord1")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
