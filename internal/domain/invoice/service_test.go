package invoice

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/aurumcart/aurum-backend/internal/domain/account"
	"github.com/aurumcart/aurum-backend/internal/domain/order"
	"github.com/aurumcart/aurum-backend/internal/domain/payment"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeInvoiceRepo struct {
	mu           sync.Mutex
	liveByOrder  map[string]*Invoice
	takenNumbers map[string]bool
	// conflictWith simulates a concurrent generation: Create for this order
	// fails with ErrOrderInvoiced and conflictInvoice becomes the live one.
	conflictWith    string
	conflictInvoice *Invoice
	// countLag makes CountForYear report stale totals for that many reads,
	// the way a count raced by concurrent commits would.
	countLag    int
	createCalls int
	countCalls  int
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{liveByOrder: map[string]*Invoice{}, takenNumbers: map[string]bool{}}
}

func (f *fakeInvoiceRepo) Create(_ context.Context, inv *Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.conflictWith == inv.OrderID {
		f.liveByOrder[inv.OrderID] = f.conflictInvoice
		return ErrOrderInvoiced
	}
	if f.takenNumbers[inv.Number] {
		return ErrNumberTaken
	}
	if _, ok := f.liveByOrder[inv.OrderID]; ok {
		return ErrOrderInvoiced
	}
	f.takenNumbers[inv.Number] = true
	f.liveByOrder[inv.OrderID] = inv
	return nil
}

func (f *fakeInvoiceRepo) Get(_ context.Context, _ string) (*Invoice, error) {
	return nil, ErrNotFound
}

func (f *fakeInvoiceRepo) GetByNumber(_ context.Context, _ string) (*Invoice, error) {
	return nil, ErrNotFound
}

func (f *fakeInvoiceRepo) GetLiveByOrder(_ context.Context, orderID string) (*Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.liveByOrder[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return inv, nil
}

func (f *fakeInvoiceRepo) List(_ context.Context, _ ListFilter) ([]Invoice, int, error) {
	return nil, 0, nil
}

func (f *fakeInvoiceRepo) SetStatus(_ context.Context, _ string, _ Status) error {
	return nil
}

func (f *fakeInvoiceRepo) CountForYear(_ context.Context, _ int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	count := len(f.takenNumbers)
	if f.countLag > 0 {
		count -= f.countLag
		f.countLag--
	}
	return count, nil
}

type fakeOrderSource struct {
	orders map[string]*order.Order
}

func (f *fakeOrderSource) Get(_ context.Context, orderID string) (*order.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

type fakeAccountRepo struct {
	accounts map[string]*account.Account
}

func (f *fakeAccountRepo) Get(_ context.Context, id string) (*account.Account, error) {
	acc, ok := f.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return acc, nil
}

func (f *fakeAccountRepo) FindByReferralCode(_ context.Context, _ string) (*account.Account, error) {
	return nil, account.ErrNotFound
}

func (f *fakeAccountRepo) EnsureReferralCode(_ context.Context, _, code string) (string, error) {
	return code, nil
}

func (f *fakeAccountRepo) SetReferredBy(_ context.Context, _, _, _ string) error {
	return nil
}

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

func paidOrder() *order.Order {
	return &order.Order{
		ID:        "ord1",
		HumanID:   "202603100001",
		AccountID: "acc1",
		Items: []order.Item{
			{
				ProductID:    "p1",
				Name:         "Gold Band",
				Quantity:     1,
				UnitPrice:    decimal.NewFromInt(10000),
				MakingCharge: decimal.NewFromInt(1000),
				Size:         "12",
				LineTotal:    decimal.NewFromInt(11000),
			},
		},
		Subtotal:        decimal.NewFromInt(10000),
		MakingCharges:   decimal.NewFromInt(1000),
		ShippingFee:     decimal.NewFromInt(99),
		VoucherDiscount: decimal.NewFromInt(500),
		PointsDiscount:  decimal.NewFromInt(480),
		TotalAmount:     decimal.NewFromInt(10449),
		Status:          order.StatusDelivered,
		Payment:         payment.Terms{Status: payment.StatusCompleted},
	}
}

func newTestService(repo *fakeInvoiceRepo, orders *fakeOrderSource, accounts *fakeAccountRepo) *Service {
	svc := NewService(repo, orders, accounts, fakeSettings{})
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestService_Generate(t *testing.T) {
	setup := func() (*fakeInvoiceRepo, *fakeOrderSource, *fakeAccountRepo) {
		return newFakeInvoiceRepo(),
			&fakeOrderSource{orders: map[string]*order.Order{"ord1": paidOrder()}},
			&fakeAccountRepo{accounts: map[string]*account.Account{
				"acc1": {ID: "acc1", Name: "Asha Nair", Email: "asha@example.com"},
			}}
	}

	t.Run("generates the invoice with per-line GST and totals", func(t *testing.T) {
		repo, orders, accounts := setup()
		inv, err := newTestService(repo, orders, accounts).Generate(context.Background(), GenerateRequest{OrderID: "ord1"})
		require.NoError(t, err)

		assert.Equal(t, "INV-2026-00001", inv.Number)
		assert.Equal(t, "202603100001", inv.OrderHumanID)
		assert.Equal(t, BillingWithGST, inv.BillingType)
		assert.Equal(t, StatusGenerated, inv.Status)

		// taxable 11000; CGST and SGST at 1.5% are 165 each.
		assert.True(t, inv.TaxableAmount.Equal(decimal.NewFromInt(11000)))
		assert.True(t, inv.CGSTAmount.Equal(decimal.NewFromInt(165)), "cgst = %s", inv.CGSTAmount)
		assert.True(t, inv.SGSTAmount.Equal(decimal.NewFromInt(165)), "sgst = %s", inv.SGSTAmount)
		assert.True(t, inv.Discount.Equal(decimal.NewFromInt(980)))
		// 11000 + 165 + 165 + 99 - 980 = 10449, already whole.
		assert.True(t, inv.GrandTotal.Equal(decimal.NewFromInt(10449)), "grand = %s", inv.GrandTotal)
		assert.True(t, inv.RoundOff.IsZero())
		assert.Equal(t, "Rupees Ten Thousand Four Hundred Forty Nine Only", inv.AmountInWords)

		assert.Equal(t, "Aurum Jewellery", inv.Seller.Name)
		assert.Equal(t, "Asha Nair", inv.Buyer.Name)

		require.Len(t, inv.Items, 1)
		line := inv.Items[0]
		assert.Equal(t, "Gold Band (Size 12)", line.Description)
		assert.Equal(t, "7113", line.HSNCode)
		assert.True(t, line.Rate.Equal(decimal.NewFromInt(11000)))
		assert.True(t, line.TaxableAmount.Equal(decimal.NewFromInt(11000)))
		assert.True(t, line.CGSTAmount.Equal(decimal.NewFromInt(165)))
		assert.True(t, line.SGSTAmount.Equal(decimal.NewFromInt(165)))
		assert.True(t, line.Total.Equal(decimal.NewFromInt(11330)), "line total = %s", line.Total)
	})

	t.Run("without GST zeroes the tax and keeps line totals taxable", func(t *testing.T) {
		repo, orders, accounts := setup()
		inv, err := newTestService(repo, orders, accounts).Generate(context.Background(), GenerateRequest{
			OrderID:     "ord1",
			BillingType: BillingWithoutGST,
		})
		require.NoError(t, err)

		assert.Equal(t, BillingWithoutGST, inv.BillingType)
		assert.True(t, inv.CGSTRate.IsZero())
		assert.True(t, inv.CGSTAmount.IsZero())
		assert.True(t, inv.SGSTRate.IsZero())
		assert.True(t, inv.SGSTAmount.IsZero())
		// 11000 + 99 - 980 = 10119 without any GST.
		assert.True(t, inv.GrandTotal.Equal(decimal.NewFromInt(10119)), "grand = %s", inv.GrandTotal)

		require.Len(t, inv.Items, 1)
		assert.True(t, inv.Items[0].CGSTAmount.IsZero())
		assert.True(t, inv.Items[0].Total.Equal(decimal.NewFromInt(11000)))
	})

	t.Run("unknown billing type is rejected", func(t *testing.T) {
		repo, orders, accounts := setup()
		_, err := newTestService(repo, orders, accounts).Generate(context.Background(), GenerateRequest{
			OrderID:     "ord1",
			BillingType: "gst_sometimes",
		})
		assert.ErrorIs(t, err, ErrBillingType)
		assert.Zero(t, repo.createCalls)
	})

	t.Run("carries buyer GSTIN and notes", func(t *testing.T) {
		repo, orders, accounts := setup()
		inv, err := newTestService(repo, orders, accounts).Generate(context.Background(), GenerateRequest{
			OrderID:       "ord1",
			CustomerGSTIN: "29ABCDE1234F1Z5",
			Notes:         "Gift wrap",
		})
		require.NoError(t, err)
		assert.Equal(t, "29ABCDE1234F1Z5", inv.Buyer.GSTIN)
		assert.Equal(t, "Gift wrap", inv.Notes)
	})

	t.Run("fractional totals round to the rupee with round-off recorded", func(t *testing.T) {
		repo, orders, accounts := setup()
		o := orders.orders["ord1"]
		o.Items[0].LineTotal = decimal.RequireFromString("10999.50")
		o.Subtotal = decimal.RequireFromString("9999.50")
		o.MakingCharges = decimal.NewFromInt(1000)
		o.ShippingFee = decimal.Zero
		o.VoucherDiscount = decimal.Zero
		o.PointsDiscount = decimal.Zero

		inv, err := newTestService(repo, orders, accounts).Generate(context.Background(), GenerateRequest{OrderID: "ord1"})
		require.NoError(t, err)

		// taxable 10999.50, CGST/SGST 164.99 each, exact 11329.48.
		assert.True(t, inv.GrandTotal.Equal(decimal.NewFromInt(11329)), "grand = %s", inv.GrandTotal)
		assert.True(t, inv.RoundOff.Equal(decimal.RequireFromString("-0.48")), "round off = %s", inv.RoundOff)
	})

	t.Run("idempotent per order", func(t *testing.T) {
		repo, orders, accounts := setup()
		svc := newTestService(repo, orders, accounts)

		first, err := svc.Generate(context.Background(), GenerateRequest{OrderID: "ord1"})
		require.NoError(t, err)
		second, err := svc.Generate(context.Background(), GenerateRequest{OrderID: "ord1"})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, repo.createCalls)
	})

	t.Run("unpaid order is not billable", func(t *testing.T) {
		repo, orders, accounts := setup()
		orders.orders["ord1"].Payment.Status = payment.StatusPending

		_, err := newTestService(repo, orders, accounts).Generate(context.Background(), GenerateRequest{OrderID: "ord1"})
		assert.ErrorIs(t, err, ErrOrderNotBillable)
	})

	t.Run("cancelled order is not billable", func(t *testing.T) {
		repo, orders, accounts := setup()
		orders.orders["ord1"].Status = order.StatusCancelled

		_, err := newTestService(repo, orders, accounts).Generate(context.Background(), GenerateRequest{OrderID: "ord1"})
		assert.ErrorIs(t, err, ErrOrderNotBillable)
	})

	t.Run("number collision re-reads the count and bumps the sequence", func(t *testing.T) {
		repo, orders, accounts := setup()
		repo.takenNumbers["INV-2026-00001"] = true
		repo.countLag = 1 // first count read predates the concurrent commit

		inv, err := newTestService(repo, orders, accounts).Generate(context.Background(), GenerateRequest{OrderID: "ord1"})
		require.NoError(t, err)
		assert.Equal(t, "INV-2026-00002", inv.Number)
		assert.Equal(t, 2, repo.countCalls)
		assert.Equal(t, 2, repo.createCalls)
	})

	t.Run("losing the order race returns the winner", func(t *testing.T) {
		repo, orders, accounts := setup()
		repo.conflictWith = "ord1"
		repo.conflictInvoice = &Invoice{ID: "inv_winner", OrderID: "ord1", Status: StatusGenerated}

		inv, err := newTestService(repo, orders, accounts).Generate(context.Background(), GenerateRequest{OrderID: "ord1"})
		require.NoError(t, err)
		assert.Equal(t, "inv_winner", inv.ID)
	})

	t.Run("missing buyer account still generates", func(t *testing.T) {
		repo, orders, _ := setup()
		inv, err := newTestService(repo, orders, &fakeAccountRepo{}).Generate(context.Background(), GenerateRequest{OrderID: "ord1"})
		require.NoError(t, err)
		assert.Empty(t, inv.Buyer.Name)
	})
}

func TestService_Generate_ConcurrentNumbers(t *testing.T) {
	const writers = 50

	repo := newFakeInvoiceRepo()
	orders := &fakeOrderSource{orders: map[string]*order.Order{}}
	for i := 1; i <= writers; i++ {
		o := paidOrder()
		o.ID = fmt.Sprintf("ord%d", i)
		o.HumanID = fmt.Sprintf("2026031000%02d", i)
		orders.orders[o.ID] = o
	}
	svc := newTestService(repo, orders, &fakeAccountRepo{})

	var g errgroup.Group
	for i := 1; i <= writers; i++ {
		orderID := fmt.Sprintf("ord%d", i)
		g.Go(func() error {
			_, err := svc.Generate(context.Background(), GenerateRequest{OrderID: orderID})
			return err
		})
	}
	require.NoError(t, g.Wait())

	// Numbers must come out dense and unique: every sequence from 1 to 50
	// issued exactly once.
	require.Len(t, repo.takenNumbers, writers)
	for i := 1; i <= writers; i++ {
		assert.True(t, repo.takenNumbers[Number(2026, i)], "missing %s", Number(2026, i))
	}
}
