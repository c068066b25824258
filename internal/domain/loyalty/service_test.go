package loyalty

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	balance    int64
	balanceErr error
	credits    []Mutation
	debits     []Mutation
}

func (f *fakeLedger) Credit(_ context.Context, m Mutation) (*Entry, error) {
	f.credits = append(f.credits, m)
	f.balance += m.Points
	return &Entry{Direction: Credit, Points: m.Points, BalanceAfter: f.balance}, nil
}

func (f *fakeLedger) Debit(_ context.Context, m Mutation) (*Entry, error) {
	if m.Points > f.balance {
		return nil, ErrInsufficientBalance
	}
	f.debits = append(f.debits, m)
	f.balance -= m.Points
	return &Entry{Direction: Debit, Points: m.Points, BalanceAfter: f.balance}, nil
}

func (f *fakeLedger) Balance(_ context.Context, _ string) (int64, error) {
	return f.balance, f.balanceErr
}

func (f *fakeLedger) History(_ context.Context, _ HistoryFilter) ([]Entry, int, error) {
	return nil, 0, nil
}

func (f *fakeLedger) Stats(_ context.Context) (Stats, error) {
	return Stats{}, nil
}

// fakeSettings answers every lookup with the provided default, mirroring an
// empty app_settings table.
type fakeSettings struct{}

func (fakeSettings) GetString(_ context.Context, _ string, def string) (string, error) {
	return def, nil
}

func (fakeSettings) GetInt(_ context.Context, _ string, def int) (int, error) {
	return def, nil
}

func (fakeSettings) GetDecimal(_ context.Context, _ string, def decimal.Decimal) (decimal.Decimal, error) {
	return def, nil
}

func (fakeSettings) Set(_ context.Context, _ string, _ any, _, _ string) error {
	return nil
}

func TestService_CalculateUsage(t *testing.T) {
	// Defaults: point value 1, min redemption 100, max usage 50%.
	tests := []struct {
		name        string
		balance     int64
		orderTotal  string
		pointsToUse int64
		wantMax     int64
		wantPoints  int64
		wantErr     bool
	}{
		{
			name:        "request within balance and order cap",
			balance:     1000,
			orderTotal:  "3000",
			pointsToUse: 500,
			wantMax:     1000,
			wantPoints:  500,
		},
		{
			name:        "capped by order percent",
			balance:     5000,
			orderTotal:  "1000",
			pointsToUse: 2000,
			wantMax:     500,
			wantPoints:  500,
		},
		{
			name:        "capped by balance",
			balance:     300,
			orderTotal:  "10000",
			pointsToUse: 4000,
			wantMax:     300,
			wantPoints:  300,
		},
		{
			name:        "below minimum rejected",
			balance:     1000,
			orderTotal:  "3000",
			pointsToUse: 50,
			wantErr:     true,
		},
		{
			name:        "full balance below minimum allowed",
			balance:     80,
			orderTotal:  "3000",
			pointsToUse: 80,
			wantMax:     80,
			wantPoints:  80,
		},
		{
			name:        "zero request quotes without redeeming",
			balance:     1000,
			orderTotal:  "3000",
			pointsToUse: 0,
			wantMax:     1000,
			wantPoints:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&fakeLedger{balance: tt.balance}, fakeSettings{})
			total, err := decimal.NewFromString(tt.orderTotal)
			require.NoError(t, err)

			quote, err := svc.CalculateUsage(context.Background(), "acc1", total, tt.pointsToUse)
			if tt.wantErr {
				var minErr *MinRedemptionError
				require.ErrorAs(t, err, &minErr)
				assert.EqualValues(t, 100, minErr.MinRedemption)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.balance, quote.AvailablePoints)
			assert.Equal(t, tt.wantMax, quote.MaxUsablePoints)
			assert.Equal(t, tt.wantPoints, quote.PointsToUse)

			wantDiscount := decimal.NewFromInt(tt.wantPoints)
			assert.True(t, quote.Discount.Equal(wantDiscount), "discount = %s", quote.Discount)
			assert.True(t, quote.NewTotal.Equal(total.Sub(wantDiscount)), "new total = %s", quote.NewTotal)
		})
	}

	t.Run("non-positive order total", func(t *testing.T) {
		svc := NewService(&fakeLedger{balance: 1000}, fakeSettings{})
		_, err := svc.CalculateUsage(context.Background(), "acc1", decimal.Zero, 100)
		assert.Error(t, err)
	})
}

func TestService_BalanceSummary(t *testing.T) {
	svc := NewService(&fakeLedger{balance: 250}, fakeSettings{})

	summary, err := svc.BalanceSummary(context.Background(), "acc1")
	require.NoError(t, err)
	assert.EqualValues(t, 250, summary.Points)
	assert.True(t, summary.Value.Equal(decimal.NewFromInt(250)))
	assert.True(t, summary.CanRedeem)

	svc = NewService(&fakeLedger{balance: 50}, fakeSettings{})
	summary, err = svc.BalanceSummary(context.Background(), "acc1")
	require.NoError(t, err)
	assert.False(t, summary.CanRedeem)
}

func TestService_Redeem(t *testing.T) {
	t.Run("debits the ledger", func(t *testing.T) {
		ledger := &fakeLedger{balance: 500}
		svc := NewService(ledger, fakeSettings{})

		entry, err := svc.Redeem(context.Background(), Mutation{
			AccountID: "acc1", Points: 200, Source: SourceOrderPayment, ReferenceID: "ord1",
		})
		require.NoError(t, err)
		assert.EqualValues(t, 300, entry.BalanceAfter)
		require.Len(t, ledger.debits, 1)
		assert.Equal(t, SourceOrderPayment, ledger.debits[0].Source)
	})

	t.Run("rejects non-positive points", func(t *testing.T) {
		svc := NewService(&fakeLedger{balance: 500}, fakeSettings{})
		_, err := svc.Redeem(context.Background(), Mutation{AccountID: "acc1", Points: 0})
		assert.ErrorIs(t, err, ErrInvalidPoints)
	})

	t.Run("overdraw surfaces insufficient balance", func(t *testing.T) {
		svc := NewService(&fakeLedger{balance: 100}, fakeSettings{})
		_, err := svc.Redeem(context.Background(), Mutation{AccountID: "acc1", Points: 500})
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})
}

func TestService_AdminAdjust(t *testing.T) {
	ledger := &fakeLedger{balance: 100}
	svc := NewService(ledger, fakeSettings{})

	_, err := svc.AdminAdjust(context.Background(), "acc1", 50, Credit, "goodwill", "admin1")
	require.NoError(t, err)
	require.Len(t, ledger.credits, 1)
	assert.Equal(t, SourceAdminAdjustment, ledger.credits[0].Source)
	assert.Equal(t, "Admin", ledger.credits[0].ReferenceType)

	_, err = svc.AdminAdjust(context.Background(), "acc1", 30, Debit, "correction", "admin1")
	require.NoError(t, err)
	require.Len(t, ledger.debits, 1)

	_, err = svc.AdminAdjust(context.Background(), "acc1", -5, Credit, "bad", "admin1")
	assert.ErrorIs(t, err, ErrInvalidPoints)
}
