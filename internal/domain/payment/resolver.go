package payment

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Ad-hoc plans let the client quote installments before any plan rows are
// seeded. The id form is "adhoc_<months>"; only month counts in this table are
// accepted, with their fixed rates.
const adhocPlanPrefix = "adhoc_"

var adhocRates = map[int]int64{
	3:  12,
	6:  13,
	9:  14,
	12: 15,
	15: 16,
	18: 17,
	24: 18,
}

// emiMinimum is the smallest order total eligible for installments.
var emiMinimum = decimal.NewFromInt(1000)

var (
	partialLowerFactor = decimal.NewFromFloat(0.10)
	partialUpperFactor = decimal.NewFromFloat(0.90)
)

// Request describes the payment mode chosen at checkout.
type Request struct {
	Method        Method
	Type          Type
	PartialAmount decimal.Decimal
	PlanID        string
}

// PlanQuote is one installment option priced for a concrete amount.
type PlanQuote struct {
	PlanID             string
	Months             int
	InterestRate       decimal.Decimal
	MonthlyInstallment decimal.Decimal
	TotalAmount        decimal.Decimal
	ProcessingFee      decimal.Decimal
}

// Resolver turns a requested payment mode into concrete payment terms.
type Resolver struct {
	plans PlanRepository
}

// NewResolver creates a Resolver backed by the given plan repository.
func NewResolver(plans PlanRepository) *Resolver {
	return &Resolver{plans: plans}
}

// Resolve derives the payment terms for an order total. The returned Terms
// always satisfy: full → AmountToPay == total; partial → PartialAmount +
// RemainingAmount == total; emi → AmountToPay is the first installment and the
// full schedule is attached.
func (r *Resolver) Resolve(ctx context.Context, total decimal.Decimal, req Request) (*Terms, error) {
	method := req.Method
	if method == "" {
		method = MethodCash
	}

	terms := &Terms{
		Method:      method,
		Type:        req.Type,
		Status:      StatusPending,
		AmountPaid:  decimal.Zero,
		AmountToPay: total,
	}

	switch req.Type {
	case TypePartial:
		lower := total.Mul(partialLowerFactor)
		upper := total.Mul(partialUpperFactor)
		if req.PartialAmount.LessThan(lower) || req.PartialAmount.GreaterThan(upper) {
			return nil, &OutOfBandError{
				Partial: req.PartialAmount,
				Lower:   lower.Round(2),
				Upper:   upper.Round(2),
			}
		}
		terms.PartialAmount = req.PartialAmount
		terms.RemainingAmount = total.Sub(req.PartialAmount)
		terms.AmountToPay = req.PartialAmount

	case TypeEMI:
		plan, err := r.resolvePlan(ctx, req.PlanID, total)
		if err != nil {
			return nil, err
		}
		terms.Schedule = &Schedule{
			PlanID:             plan.ID,
			Months:             plan.Months,
			InterestRate:       plan.InterestRate,
			MonthlyInstallment: plan.MonthlyInstallment(total),
			TotalAmount:        plan.TotalPayable(total),
			InstallmentsPaid:   0,
		}
		terms.AmountToPay = terms.Schedule.MonthlyInstallment

	case TypeFull, "":
		terms.Type = TypeFull
		terms.AmountToPay = total

	default:
		return nil, errors.Errorf("unsupported payment type: %q", req.Type)
	}

	return terms, nil
}

// QuotePlans lists installment options for an amount, each with the computed
// monthly installment and total payable.
func (r *Resolver) QuotePlans(ctx context.Context, amount decimal.Decimal) ([]PlanQuote, error) {
	if amount.LessThan(emiMinimum) {
		return nil, errors.Errorf("installments available only for amounts of %s and above", emiMinimum)
	}

	plans, err := r.plans.ListForAmount(ctx, amount)
	if err != nil {
		return nil, errors.Wrap(err, "list plans")
	}

	quotes := make([]PlanQuote, len(plans))
	for i, p := range plans {
		quotes[i] = PlanQuote{
			PlanID:             p.ID,
			Months:             p.Months,
			InterestRate:       p.InterestRate,
			MonthlyInstallment: p.MonthlyInstallment(amount),
			TotalAmount:        p.TotalPayable(amount),
			ProcessingFee:      p.ProcessingFee,
		}
	}
	return quotes, nil
}

func (r *Resolver) resolvePlan(ctx context.Context, planID string, total decimal.Decimal) (*InstallmentPlan, error) {
	if planID == "" {
		return nil, ErrPlanRequired
	}

	if months, ok := parseAdhocPlanID(planID); ok {
		rate, ok := adhocRates[months]
		if !ok {
			return nil, errors.Errorf("no installment option for %d months", months)
		}
		return &InstallmentPlan{
			ID:           planID,
			Months:       months,
			InterestRate: decimal.NewFromInt(rate),
			MinAmount:    emiMinimum,
			MaxAmount:    total,
			Active:       true,
		}, nil
	}

	plan, err := r.plans.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, errors.Wrap(err, "lookup plan")
	}
	if !plan.Covers(total) {
		return nil, &AmountRangeError{
			PlanID:    plan.ID,
			Amount:    total,
			MinAmount: plan.MinAmount,
			MaxAmount: plan.MaxAmount,
		}
	}
	return plan, nil
}

func parseAdhocPlanID(id string) (months int, ok bool) {
	rest, found := strings.CutPrefix(id, adhocPlanPrefix)
	if !found {
		return 0, false
	}
	months, err := strconv.Atoi(rest)
	if err != nil || months < 1 {
		return 0, false
	}
	return months, true
}
