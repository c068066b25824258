package invoice

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurumcart/aurum-backend/internal/domain/account"
	"github.com/aurumcart/aurum-backend/internal/domain/order"
	"github.com/aurumcart/aurum-backend/internal/domain/payment"
	"github.com/aurumcart/aurum-backend/internal/domain/settings"
)

// OrderSource is the slice of the order service invoicing needs.
type OrderSource interface {
	Get(ctx context.Context, orderID string) (*order.Order, error)
}

// GenerateRequest carries the invoicing input. BillingType defaults to
// with_gst; CustomerGSTIN and Notes are optional.
type GenerateRequest struct {
	OrderID       string
	BillingType   BillingType
	CustomerGSTIN string
	Notes         string
}

// Service generates and manages invoices.
type Service struct {
	invoices Repository
	orders   OrderSource
	accounts account.Repository
	settings settings.Store
	now      func() time.Time
}

// NewService creates an invoice Service.
func NewService(invoices Repository, orders OrderSource, accounts account.Repository, st settings.Store) *Service {
	return &Service{
		invoices: invoices,
		orders:   orders,
		accounts: accounts,
		settings: st,
		now:      time.Now,
	}
}

// Generate issues the invoice for a fully paid order. Generation is
// idempotent: when a live invoice already exists it is returned as is. GST is
// computed per line and rounded to the paisa; the grand total is rounded to
// the whole rupee, with the difference recorded as RoundOff.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*Invoice, error) {
	billingType := req.BillingType
	if billingType == "" {
		billingType = BillingWithGST
	}
	if billingType != BillingWithGST && billingType != BillingWithoutGST {
		return nil, ErrBillingType
	}

	orderID := req.OrderID
	if existing, err := s.invoices.GetLiveByOrder(ctx, orderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "check existing invoice")
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "load order")
	}
	if o.Status == order.StatusCancelled || o.Payment.Status != payment.StatusCompleted {
		return nil, ErrOrderNotBillable
	}

	buyer := Party{GSTIN: req.CustomerGSTIN}
	if acc, err := s.accounts.Get(ctx, o.AccountID); err == nil {
		buyer.Name = acc.Name
		buyer.Email = acc.Email
	} else if !errors.Is(err, account.ErrNotFound) {
		return nil, errors.Wrap(err, "load buyer")
	}

	seller, err := s.seller(ctx)
	if err != nil {
		return nil, err
	}

	cgstRate := decimal.Zero
	sgstRate := decimal.Zero
	if billingType == BillingWithGST {
		cgstRate, err = s.settings.GetDecimal(ctx, settings.KeyCGSTRate, decimal.NewFromFloat(1.5))
		if err != nil {
			return nil, errors.Wrap(err, "resolve cgst rate")
		}
		sgstRate, err = s.settings.GetDecimal(ctx, settings.KeySGSTRate, decimal.NewFromFloat(1.5))
		if err != nil {
			return nil, errors.Wrap(err, "resolve sgst rate")
		}
	}

	hundred := decimal.NewFromInt(100)
	taxable := decimal.Zero
	cgst := decimal.Zero
	sgst := decimal.Zero
	items := make([]Item, len(o.Items))
	for i, it := range o.Items {
		desc := it.Name
		if it.Size != "" {
			desc += " (Size " + it.Size + ")"
		}
		lineTaxable := it.LineTotal.Round(2)
		lineCGST := lineTaxable.Mul(cgstRate).Div(hundred).Round(2)
		lineSGST := lineTaxable.Mul(sgstRate).Div(hundred).Round(2)
		items[i] = Item{
			Description:   desc,
			HSNCode:       hsnJewellery,
			Quantity:      it.Quantity,
			Rate:          it.UnitPrice.Add(it.MakingCharge),
			TaxableAmount: lineTaxable,
			CGSTRate:      cgstRate,
			CGSTAmount:    lineCGST,
			SGSTRate:      sgstRate,
			SGSTAmount:    lineSGST,
			Total:         lineTaxable.Add(lineCGST).Add(lineSGST),
		}
		taxable = taxable.Add(lineTaxable)
		cgst = cgst.Add(lineCGST)
		sgst = sgst.Add(lineSGST)
	}
	discount := o.VoucherDiscount.Add(o.PointsDiscount)

	exact := taxable.Add(cgst).Add(sgst).Add(o.ShippingFee).Sub(discount)
	if exact.IsNegative() {
		exact = decimal.Zero
	}
	grand := exact.Round(0)
	roundOff := grand.Sub(exact).Round(2)

	now := s.now()
	inv := &Invoice{
		ID:            uuid.NewString(),
		OrderID:       o.ID,
		OrderHumanID:  o.HumanID,
		AccountID:     o.AccountID,
		BillingType:   billingType,
		Seller:        seller,
		Buyer:         buyer,
		Items:         items,
		TaxableAmount: taxable,
		CGSTRate:      cgstRate,
		CGSTAmount:    cgst,
		SGSTRate:      sgstRate,
		SGSTAmount:    sgst,
		ShippingFee:   o.ShippingFee,
		Discount:      discount.Round(2),
		RoundOff:      roundOff,
		GrandTotal:    grand,
		AmountInWords: AmountInWords(grand),
		Notes:         req.Notes,
		Status:        StatusGenerated,
		IssuedAt:      now,
	}

	// A number collision means another generation committed that number, so
	// the re-read count is strictly larger. Each retry moves the sequence
	// forward and the loop terminates once the burst of writers drains.
	for {
		count, err := s.invoices.CountForYear(ctx, now.Year())
		if err != nil {
			return nil, errors.Wrap(err, "count invoices")
		}
		inv.Number = Number(now.Year(), count+1)
		err = s.invoices.Create(ctx, inv)
		if err == nil {
			return inv, nil
		}
		if errors.Is(err, ErrOrderInvoiced) {
			// Lost the race to a concurrent generation; hand back the winner.
			return s.invoices.GetLiveByOrder(ctx, orderID)
		}
		if !errors.Is(err, ErrNumberTaken) {
			return nil, errors.Wrap(err, "persist invoice")
		}
	}
}

// Cancel voids an invoice, freeing the order for regeneration.
func (s *Service) Cancel(ctx context.Context, id string) error {
	return s.invoices.SetStatus(ctx, id, StatusCancelled)
}

// Get returns an invoice by id.
func (s *Service) Get(ctx context.Context, id string) (*Invoice, error) {
	return s.invoices.Get(ctx, id)
}

// GetByNumber returns an invoice by its number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	return s.invoices.GetByNumber(ctx, number)
}

// GetByOrder returns the order's live invoice.
func (s *Service) GetByOrder(ctx context.Context, orderID string) (*Invoice, error) {
	return s.invoices.GetLiveByOrder(ctx, orderID)
}

// List returns invoices matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Invoice, int, error) {
	return s.invoices.List(ctx, f)
}

func (s *Service) seller(ctx context.Context) (Party, error) {
	name, err := s.settings.GetString(ctx, settings.KeyBusinessName, "Aurum Jewellery")
	if err != nil {
		return Party{}, errors.Wrap(err, "resolve business name")
	}
	address, err := s.settings.GetString(ctx, settings.KeyBusinessAddress, "")
	if err != nil {
		return Party{}, errors.Wrap(err, "resolve business address")
	}
	phone, err := s.settings.GetString(ctx, settings.KeyBusinessPhone, "")
	if err != nil {
		return Party{}, errors.Wrap(err, "resolve business phone")
	}
	email, err := s.settings.GetString(ctx, settings.KeyBusinessEmail, "")
	if err != nil {
		return Party{}, errors.Wrap(err, "resolve business email")
	}
	gstin, err := s.settings.GetString(ctx, settings.KeyBusinessGSTIN, "")
	if err != nil {
		return Party{}, errors.Wrap(err, "resolve business gstin")
	}
	return Party{Name: name, Address: address, Phone: phone, Email: email, GSTIN: gstin}, nil
}
