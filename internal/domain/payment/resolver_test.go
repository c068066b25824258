package payment

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPlanRepo struct {
	plans map[string]*InstallmentPlan
}

func (m *mockPlanRepo) GetByID(_ context.Context, id string) (*InstallmentPlan, error) {
	p, ok := m.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	return p, nil
}

func (m *mockPlanRepo) ListForAmount(_ context.Context, amount decimal.Decimal) ([]InstallmentPlan, error) {
	var out []InstallmentPlan
	for _, p := range m.plans {
		if p.Covers(amount) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func twelveMonthPlan() *InstallmentPlan {
	return &InstallmentPlan{
		ID:            "emi_12m",
		Months:        12,
		InterestRate:  decimal.NewFromInt(15),
		MinAmount:     decimal.NewFromInt(1000),
		MaxAmount:     decimal.NewFromInt(1000000),
		ProcessingFee: decimal.NewFromInt(249),
		Active:        true,
	}
}

func TestResolver_Resolve_Full(t *testing.T) {
	r := NewResolver(&mockPlanRepo{})
	total := decimal.NewFromInt(25000)

	t.Run("explicit full", func(t *testing.T) {
		terms, err := r.Resolve(context.Background(), total, Request{Method: MethodOnline, Type: TypeFull})
		require.NoError(t, err)
		assert.Equal(t, TypeFull, terms.Type)
		assert.Equal(t, StatusPending, terms.Status)
		assert.True(t, terms.AmountToPay.Equal(total))
		assert.True(t, terms.AmountPaid.IsZero())
	})

	t.Run("empty type defaults to full, empty method to cash", func(t *testing.T) {
		terms, err := r.Resolve(context.Background(), total, Request{})
		require.NoError(t, err)
		assert.Equal(t, TypeFull, terms.Type)
		assert.Equal(t, MethodCash, terms.Method)
		assert.True(t, terms.AmountToPay.Equal(total))
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), total, Request{Type: "layaway"})
		assert.Error(t, err)
	})
}

func TestResolver_Resolve_Partial(t *testing.T) {
	r := NewResolver(&mockPlanRepo{})
	total := decimal.NewFromInt(10000)

	t.Run("inside band", func(t *testing.T) {
		terms, err := r.Resolve(context.Background(), total, Request{
			Method: MethodOnline, Type: TypePartial, PartialAmount: decimal.NewFromInt(4000),
		})
		require.NoError(t, err)
		assert.True(t, terms.PartialAmount.Equal(decimal.NewFromInt(4000)))
		assert.True(t, terms.RemainingAmount.Equal(decimal.NewFromInt(6000)))
		assert.True(t, terms.AmountToPay.Equal(decimal.NewFromInt(4000)))
	})

	t.Run("below 10 percent", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), total, Request{
			Type: TypePartial, PartialAmount: decimal.NewFromInt(999),
		})
		var bandErr *OutOfBandError
		require.ErrorAs(t, err, &bandErr)
		assert.True(t, bandErr.Lower.Equal(decimal.NewFromInt(1000)), "lower = %s", bandErr.Lower)
		assert.True(t, bandErr.Upper.Equal(decimal.NewFromInt(9000)), "upper = %s", bandErr.Upper)
	})

	t.Run("above 90 percent", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), total, Request{
			Type: TypePartial, PartialAmount: decimal.NewFromInt(9001),
		})
		var bandErr *OutOfBandError
		assert.ErrorAs(t, err, &bandErr)
	})

	t.Run("band edges are inclusive", func(t *testing.T) {
		for _, amount := range []int64{1000, 9000} {
			_, err := r.Resolve(context.Background(), total, Request{
				Type: TypePartial, PartialAmount: decimal.NewFromInt(amount),
			})
			assert.NoError(t, err, "amount %d", amount)
		}
	})
}

func TestResolver_Resolve_EMI(t *testing.T) {
	repo := &mockPlanRepo{plans: map[string]*InstallmentPlan{"emi_12m": twelveMonthPlan()}}
	r := NewResolver(repo)
	total := decimal.NewFromInt(10000)

	t.Run("seeded plan", func(t *testing.T) {
		terms, err := r.Resolve(context.Background(), total, Request{
			Method: MethodOnline, Type: TypeEMI, PlanID: "emi_12m",
		})
		require.NoError(t, err)
		require.NotNil(t, terms.Schedule)

		// 10000 at 15% flat: total 11500.00, 12 installments of 958.33.
		assert.Equal(t, 12, terms.Schedule.Months)
		assert.True(t, terms.Schedule.TotalAmount.Equal(decimal.RequireFromString("11500.00")),
			"total = %s", terms.Schedule.TotalAmount)
		assert.True(t, terms.Schedule.MonthlyInstallment.Equal(decimal.RequireFromString("958.33")),
			"monthly = %s", terms.Schedule.MonthlyInstallment)
		assert.True(t, terms.AmountToPay.Equal(terms.Schedule.MonthlyInstallment))
		assert.Zero(t, terms.Schedule.InstallmentsPaid)
	})

	t.Run("adhoc plan uses fixed rate table", func(t *testing.T) {
		terms, err := r.Resolve(context.Background(), total, Request{Type: TypeEMI, PlanID: "adhoc_6"})
		require.NoError(t, err)
		require.NotNil(t, terms.Schedule)
		assert.Equal(t, 6, terms.Schedule.Months)
		assert.True(t, terms.Schedule.InterestRate.Equal(decimal.NewFromInt(13)))
	})

	t.Run("adhoc months outside table", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), total, Request{Type: TypeEMI, PlanID: "adhoc_7"})
		assert.Error(t, err)
	})

	t.Run("missing plan id", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), total, Request{Type: TypeEMI})
		assert.ErrorIs(t, err, ErrPlanRequired)
	})

	t.Run("unknown plan id", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), total, Request{Type: TypeEMI, PlanID: "emi_99m"})
		assert.ErrorIs(t, err, ErrPlanNotFound)
	})

	t.Run("amount outside plan range", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), decimal.NewFromInt(500), Request{
			Type: TypeEMI, PlanID: "emi_12m",
		})
		var rangeErr *AmountRangeError
		require.ErrorAs(t, err, &rangeErr)
		assert.Equal(t, "emi_12m", rangeErr.PlanID)
	})
}

func TestResolver_QuotePlans(t *testing.T) {
	repo := &mockPlanRepo{plans: map[string]*InstallmentPlan{"emi_12m": twelveMonthPlan()}}
	r := NewResolver(repo)

	t.Run("quotes covering plans", func(t *testing.T) {
		quotes, err := r.QuotePlans(context.Background(), decimal.NewFromInt(10000))
		require.NoError(t, err)
		require.Len(t, quotes, 1)
		assert.Equal(t, "emi_12m", quotes[0].PlanID)
		assert.True(t, quotes[0].TotalAmount.Equal(decimal.RequireFromString("11500.00")))
		assert.True(t, quotes[0].ProcessingFee.Equal(decimal.NewFromInt(249)))
	})

	t.Run("rejects amounts below the installment minimum", func(t *testing.T) {
		_, err := r.QuotePlans(context.Background(), decimal.NewFromInt(999))
		assert.Error(t, err)
	})
}

func TestParseAdhocPlanID(t *testing.T) {
	tests := []struct {
		id         string
		wantMonths int
		wantOK     bool
	}{
		{"adhoc_3", 3, true},
		{"adhoc_24", 24, true},
		{"adhoc_0", 0, false},
		{"adhoc_x", 0, false},
		{"emi_12m", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		months, ok := parseAdhocPlanID(tt.id)
		assert.Equal(t, tt.wantOK, ok, tt.id)
		if tt.wantOK {
			assert.Equal(t, tt.wantMonths, months, tt.id)
		}
	}
}

func TestAccountSettings_Merge(t *testing.T) {
	enabled := true
	disabled := false
	notes := "verified customer"
	score := 720
	limit := decimal.NewFromInt(200000)

	base := AccountSettings{
		EMIEnabled:        false,
		AllowedEMITenures: []int{3, 6},
		Notes:             "new customer",
	}

	t.Run("nil fields leave values untouched", func(t *testing.T) {
		merged := base.Merge(SettingsPatch{})
		assert.Equal(t, base, merged)
	})

	t.Run("set fields overwrite", func(t *testing.T) {
		merged := base.Merge(SettingsPatch{
			EMIEnabled:        &enabled,
			AllowedEMITenures: []int{3, 6, 12},
			CreditLimit:       &limit,
			TrustScore:        &score,
			Notes:             &notes,
		})
		assert.True(t, merged.EMIEnabled)
		assert.Equal(t, []int{3, 6, 12}, merged.AllowedEMITenures)
		require.NotNil(t, merged.CreditLimit)
		assert.True(t, merged.CreditLimit.Equal(limit))
		assert.Equal(t, notes, merged.Notes)

		// Base stays unchanged; Merge is by value.
		assert.False(t, base.EMIEnabled)
	})

	t.Run("explicit false is applied", func(t *testing.T) {
		on := base
		on.PartialPaymentEnabled = true
		merged := on.Merge(SettingsPatch{PartialPaymentEnabled: &disabled})
		assert.False(t, merged.PartialPaymentEnabled)
	})
}
