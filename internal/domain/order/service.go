package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurumcart/aurum-backend/internal/domain/catalog"
	"github.com/aurumcart/aurum-backend/internal/domain/loyalty"
	"github.com/aurumcart/aurum-backend/internal/domain/payment"
	"github.com/aurumcart/aurum-backend/internal/domain/pricing"
	"github.com/aurumcart/aurum-backend/internal/domain/referral"
	"github.com/aurumcart/aurum-backend/internal/domain/settings"
	"github.com/aurumcart/aurum-backend/internal/domain/voucher"
)

// humanIDAttempts bounds the retry loop on human-id collisions.
const humanIDAttempts = 5

// VoucherApplier validates and claims a voucher code for an order, and hands
// the claim back when the checkout does not go through.
type VoucherApplier interface {
	Apply(ctx context.Context, code, accountID, orderID string, cartTotal decimal.Decimal) (*voucher.Application, error)
	Release(ctx context.Context, code, orderID string) error
}

// PointsEngine is the slice of the loyalty service orders need.
type PointsEngine interface {
	CalculateUsage(ctx context.Context, accountID string, orderTotal decimal.Decimal, pointsToUse int64) (*loyalty.UsageQuote, error)
	Redeem(ctx context.Context, m loyalty.Mutation) (*loyalty.Entry, error)
	CreditReward(ctx context.Context, m loyalty.Mutation) (*loyalty.Entry, error)
}

// TermsResolver derives payment terms for an order total.
type TermsResolver interface {
	Resolve(ctx context.Context, total decimal.Decimal, req payment.Request) (*payment.Terms, error)
}

// ReferralSettler pays out the referrer after a completed payment.
type ReferralSettler interface {
	Settle(ctx context.Context, refereeID, orderID string, amountPaid decimal.Decimal) (*referral.Referral, error)
}

// CreateRequest is the checkout input. When Items is empty the account's cart
// is used and cleared on success.
type CreateRequest struct {
	AccountID   string
	Items       []CartItem
	VoucherCode string
	PointsToUse int64
	Payment     payment.Request
	Notes       string
}

// Service wires pricing, vouchers, loyalty, payments, and referrals into the
// order lifecycle.
type Service struct {
	orders    Repository
	carts     CartRepository
	catalog   catalog.Repository
	settings  settings.Store
	vouchers  VoucherApplier
	points    PointsEngine
	terms     TermsResolver
	referrals ReferralSettler
	gateway   payment.Gateway
	now       func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	orders Repository,
	carts CartRepository,
	cat catalog.Repository,
	st settings.Store,
	vouchers VoucherApplier,
	points PointsEngine,
	terms TermsResolver,
	referrals ReferralSettler,
	gateway payment.Gateway,
) *Service {
	return &Service{
		orders:    orders,
		carts:     carts,
		catalog:   cat,
		settings:  st,
		vouchers:  vouchers,
		points:    points,
		terms:     terms,
		referrals: referrals,
		gateway:   gateway,
		now:       time.Now,
	}
}

// Create prices the items, applies the voucher and point redemption, resolves
// the payment terms, and persists the order under a unique human id. When a
// later step fails, any voucher claim and point redemption already made are
// handed back.
func (s *Service) Create(ctx context.Context, req CreateRequest) (_ *Order, err error) {
	items := req.Items
	fromCart := false
	if len(items) == 0 {
		cartItems, err := s.carts.Get(ctx, req.AccountID)
		if err != nil {
			return nil, errors.Wrap(err, "load cart")
		}
		items = cartItems
		fromCart = true
	}
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	lines, orderItems, err := s.priceLines(ctx, items)
	if err != nil {
		return nil, err
	}

	cfg, err := settings.Pricing(ctx, s.settings)
	if err != nil {
		return nil, errors.Wrap(err, "resolve pricing settings")
	}
	breakdown := pricing.Quote(lines, cfg)
	for i, line := range breakdown.Lines {
		orderItems[i].MakingCharge = line.MakingCharge
		orderItems[i].LineTotal = line.LineTotal
	}

	o := &Order{
		ID:            uuid.NewString(),
		AccountID:     req.AccountID,
		Items:         orderItems,
		Subtotal:      breakdown.Subtotal,
		MakingCharges: breakdown.MakingCharges,
		Tax:           breakdown.Tax,
		ShippingFee:   breakdown.ShippingFee,
		Status:        StatusPending,
		Notes:         req.Notes,
	}

	// The gateway call sits between the debits and the insert, so the whole
	// checkout cannot share one database transaction. Compensate instead.
	defer func() {
		if err != nil {
			s.releaseCheckout(ctx, o)
		}
	}()

	if req.VoucherCode != "" {
		app, err := s.vouchers.Apply(ctx, req.VoucherCode, req.AccountID, o.ID, breakdown.GrandTotal)
		if err != nil {
			return nil, err
		}
		o.VoucherCode = app.Voucher.Code
		o.VoucherDiscount = app.Discount
		breakdown = breakdown.ApplyDiscount(app.Discount)
	}

	if req.PointsToUse > 0 {
		quote, err := s.points.CalculateUsage(ctx, req.AccountID, breakdown.GrandTotal, req.PointsToUse)
		if err != nil {
			return nil, err
		}
		if quote.PointsToUse > 0 {
			if _, err := s.points.Redeem(ctx, loyalty.Mutation{
				AccountID:     req.AccountID,
				Points:        quote.PointsToUse,
				Source:        loyalty.SourceOrderPayment,
				Description:   "Points redeemed at checkout",
				ReferenceID:   o.ID,
				ReferenceType: "Order",
			}); err != nil {
				return nil, errors.Wrap(err, "redeem points")
			}
			o.PointsUsed = quote.PointsToUse
			o.PointsDiscount = quote.Discount
			breakdown = breakdown.ApplyDiscount(quote.Discount)
		}
	}

	o.TotalAmount = breakdown.GrandTotal

	terms, err := s.terms.Resolve(ctx, o.TotalAmount, req.Payment)
	if err != nil {
		return nil, err
	}
	o.Payment = *terms

	if o.Payment.Method == payment.MethodOnline && o.Payment.AmountToPay.IsPositive() {
		gatewayID, err := s.gateway.CreateRemoteOrder(ctx, o.Payment.AmountToPay, "INR", map[string]string{
			"accountId": req.AccountID,
			"orderId":   o.ID,
		})
		if err != nil {
			return nil, errors.Wrap(err, "create gateway order")
		}
		o.GatewayOrderID = gatewayID
	}

	now := s.now()
	o.Tracking = []TrackingEvent{{Status: StatusPending, Note: "Order placed", Timestamp: now}}

	count, err := s.orders.CountCreatedOn(ctx, now)
	if err != nil {
		return nil, errors.Wrap(err, "count orders")
	}
	seq := count + 1
	for attempt := 0; ; attempt++ {
		o.HumanID = HumanID(now, seq)
		err = s.orders.Create(ctx, o, fromCart)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, ErrHumanIDTaken) || attempt+1 >= humanIDAttempts {
			return nil, errors.Wrap(err, "persist order")
		}
		seq++
	}
}

// releaseCheckout undoes the voucher claim and point redemption held by a
// checkout that failed after the debits were taken. Release failures are
// logged and left to reconciliation; the caller's error already stands.
func (s *Service) releaseCheckout(ctx context.Context, o *Order) {
	lg := zctx.From(ctx)
	if o.VoucherCode != "" {
		if rerr := s.vouchers.Release(ctx, o.VoucherCode, o.ID); rerr != nil {
			lg.Warn("Releasing voucher after failed checkout",
				zap.String("code", o.VoucherCode),
				zap.String("order_id", o.ID),
				zap.Error(rerr),
			)
		}
	}
	if o.PointsUsed > 0 {
		if _, rerr := s.points.CreditReward(ctx, loyalty.Mutation{
			AccountID:     o.AccountID,
			Points:        o.PointsUsed,
			Source:        loyalty.SourceRefund,
			Description:   "Points released for failed checkout",
			ReferenceID:   o.ID,
			ReferenceType: "Order",
		}); rerr != nil {
			lg.Warn("Refunding points after failed checkout",
				zap.Int64("points", o.PointsUsed),
				zap.String("order_id", o.ID),
				zap.Error(rerr),
			)
		}
	}
}

// ConfirmPayment verifies the gateway signature, marks the checkout payment
// completed, and settles the referral reward for the buyer's first purchase.
// Verifying an already completed payment returns ErrAlreadyPaid.
func (s *Service) ConfirmPayment(ctx context.Context, orderID, paymentID, signature string) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Payment.Status == payment.StatusCompleted {
		return nil, ErrAlreadyPaid
	}
	if !s.gateway.VerifySignature(o.GatewayOrderID, paymentID, signature) {
		return nil, ErrSignatureMismatch
	}

	o.Payment.AmountPaid = o.Payment.AmountPaid.Add(o.Payment.AmountToPay)
	switch o.Payment.Type {
	case payment.TypeFull:
		o.Payment.Status = payment.StatusCompleted
	case payment.TypePartial:
		// Up-front slice paid; the remainder stays pending.
		o.Payment.Status = payment.StatusPending
	case payment.TypeEMI:
		if o.Payment.Schedule != nil {
			o.Payment.Schedule.InstallmentsPaid++
		}
		o.Payment.Status = payment.StatusPending
	}

	o.Tracking = append(o.Tracking, TrackingEvent{
		Status:    o.Status,
		Note:      "Payment received",
		Timestamp: s.now(),
	})
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}

	if _, err := s.referrals.Settle(ctx, o.AccountID, o.ID, o.Payment.AmountPaid); err != nil {
		return nil, errors.Wrap(err, "settle referral")
	}
	return o, nil
}

// RecordFollowUpPayment applies a later payment against a partial balance or
// an installment schedule. The payment flips to completed once the full
// amount is collected.
func (s *Service) RecordFollowUpPayment(ctx context.Context, orderID string, amount decimal.Decimal) (*Order, error) {
	if !amount.IsPositive() {
		return nil, errors.New("payment amount must be greater than 0")
	}
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch o.Payment.Type {
	case payment.TypePartial:
		if amount.GreaterThan(o.Payment.RemainingAmount) {
			return nil, errors.Errorf("amount %s exceeds remaining balance %s", amount, o.Payment.RemainingAmount)
		}
		o.Payment.RemainingAmount = o.Payment.RemainingAmount.Sub(amount)
		o.Payment.AmountPaid = o.Payment.AmountPaid.Add(amount)
		if o.Payment.RemainingAmount.IsZero() {
			o.Payment.Status = payment.StatusCompleted
		}

	case payment.TypeEMI:
		if o.Payment.Schedule == nil {
			return nil, errors.New("order has no installment schedule")
		}
		o.Payment.AmountPaid = o.Payment.AmountPaid.Add(amount)
		o.Payment.Schedule.InstallmentsPaid++
		if o.Payment.Schedule.InstallmentsPaid >= o.Payment.Schedule.Months {
			o.Payment.Status = payment.StatusCompleted
		}

	default:
		return nil, errors.Errorf("order payment type %s takes no follow-up payments", o.Payment.Type)
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}

// UpdateStatus moves the order through its lifecycle. Delivery implies the
// money was collected: payment flips to completed with the full amount paid.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, to Status, note string) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, &TransitionError{From: o.Status, To: to}
	}

	o.Status = to
	o.Tracking = append(o.Tracking, TrackingEvent{Status: to, Note: note, Timestamp: s.now()})

	if to == StatusDelivered {
		o.Payment.Status = payment.StatusCompleted
		o.Payment.AmountPaid = o.TotalAmount
		o.Payment.RemainingAmount = decimal.Zero
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}

// Cancel aborts an order that has not shipped and refunds any redeemed points.
func (s *Service) Cancel(ctx context.Context, orderID, reason string) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return nil, ErrNotCancellable
	}

	o.Status = StatusCancelled
	o.Tracking = append(o.Tracking, TrackingEvent{Status: StatusCancelled, Note: reason, Timestamp: s.now()})
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}

	if o.PointsUsed > 0 {
		if _, err := s.points.CreditReward(ctx, loyalty.Mutation{
			AccountID:     o.AccountID,
			Points:        o.PointsUsed,
			Source:        loyalty.SourceRefund,
			Description:   "Points refunded for cancelled order " + o.HumanID,
			ReferenceID:   o.ID,
			ReferenceType: "Order",
		}); err != nil {
			return nil, errors.Wrap(err, "refund points")
		}
	}
	return o, nil
}

// Get returns an order by id.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.Get(ctx, orderID)
}

// Track returns an order by its human id.
func (s *Service) Track(ctx context.Context, humanID string) (*Order, error) {
	return s.orders.GetByHumanID(ctx, humanID)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, int, error) {
	return s.orders.List(ctx, f)
}

// priceLines resolves products and making charges for the requested items.
func (s *Service) priceLines(ctx context.Context, items []CartItem) ([]pricing.LineItem, []Item, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	fetched, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, errors.Wrap(err, "get products")
	}
	productMap := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	ratesByCategory := make(map[string]catalog.MakingChargeRates)
	lines := make([]pricing.LineItem, len(items))
	orderItems := make([]Item, len(items))
	for i, item := range items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		if p.Stock < item.Quantity {
			return nil, nil, &InsufficientStockError{
				ProductID: p.ID,
				Requested: item.Quantity,
				Available: p.Stock,
			}
		}

		rates, ok := ratesByCategory[p.Category]
		if !ok {
			rates, err = s.catalog.MakingChargeRates(ctx, p.Category)
			if err != nil {
				return nil, nil, errors.Wrap(err, "making charge rates")
			}
			ratesByCategory[p.Category] = rates
		}

		lines[i] = pricing.LineItem{
			ProductID:           p.ID,
			Quantity:            item.Quantity,
			UnitPrice:           p.Price,
			MakingChargePercent: catalog.ResolveMakingChargePercent(p, rates),
			Size:                item.Size,
		}
		orderItems[i] = Item{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
			Size:      item.Size,
		}
	}

	return lines, orderItems, nil
}
