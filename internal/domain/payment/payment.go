// Package payment resolves how an order total is paid: in full, partially up
// front, or as equated monthly installments.
package payment

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Method is the payment channel.
type Method string

const (
	MethodOnline Method = "online"
	MethodCash   Method = "cash"
)

// Type is the payment structure.
type Type string

const (
	TypeFull    Type = "full"
	TypePartial Type = "partial"
	TypeEMI     Type = "emi"
)

// Status of a payment sub-record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var (
	// ErrPlanNotFound is returned when a referenced installment plan does not exist.
	ErrPlanNotFound = errors.New("installment plan not found")
	// ErrPlanRequired is returned for EMI requests without a plan reference.
	ErrPlanRequired = errors.New("installment plan is required")
)

// OutOfBandError indicates a partial amount outside the allowed band.
type OutOfBandError struct {
	Partial decimal.Decimal
	Lower   decimal.Decimal
	Upper   decimal.Decimal
}

func (e *OutOfBandError) Error() string {
	return fmt.Sprintf("partial payment %s outside allowed band [%s, %s]", e.Partial, e.Lower, e.Upper)
}

// AmountRangeError indicates an order total outside an installment plan's range.
type AmountRangeError struct {
	PlanID    string
	Amount    decimal.Decimal
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
}

func (e *AmountRangeError) Error() string {
	return fmt.Sprintf("installments unavailable for amount %s: plan %s covers %s-%s",
		e.Amount, e.PlanID, e.MinAmount, e.MaxAmount)
}

// InstallmentPlan is immutable reference data looked up by amount range.
type InstallmentPlan struct {
	ID            string
	Months        int
	InterestRate  decimal.Decimal // percent
	MinAmount     decimal.Decimal
	MaxAmount     decimal.Decimal
	ProcessingFee decimal.Decimal
	Active        bool
}

// TotalPayable is principal * (1 + rate/100), rounded to 2 decimal places.
func (p InstallmentPlan) TotalPayable(principal decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(p.InterestRate.Div(decimal.NewFromInt(100)))
	return principal.Mul(factor).Round(2)
}

// MonthlyInstallment is TotalPayable / months, rounded to 2 decimal places.
func (p InstallmentPlan) MonthlyInstallment(principal decimal.Decimal) decimal.Decimal {
	return p.TotalPayable(principal).Div(decimal.NewFromInt(int64(p.Months))).Round(2)
}

// Covers reports whether the amount falls inside the plan's range.
func (p InstallmentPlan) Covers(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(p.MinAmount) && amount.LessThanOrEqual(p.MaxAmount)
}

// Schedule is the EMI state stored on an order.
type Schedule struct {
	PlanID             string          `json:"planId,omitempty"`
	Months             int             `json:"months"`
	InterestRate       decimal.Decimal `json:"interestRate"`
	MonthlyInstallment decimal.Decimal `json:"monthlyInstallment"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	InstallmentsPaid   int             `json:"installmentsPaid"`
}

// Terms is the resolved payment sub-record for a new order.
type Terms struct {
	Method          Method          `json:"method"`
	Type            Type            `json:"type"`
	Status          Status          `json:"status"`
	AmountPaid      decimal.Decimal `json:"amountPaid"`
	AmountToPay     decimal.Decimal `json:"amountToPay"`
	PartialAmount   decimal.Decimal `json:"partialAmount,omitempty"`
	RemainingAmount decimal.Decimal `json:"remainingAmount,omitempty"`
	Schedule        *Schedule       `json:"emiPlan,omitempty"`
}

// PlanRepository provides installment-plan reference data.
type PlanRepository interface {
	// GetByID returns ErrPlanNotFound when the plan does not exist.
	GetByID(ctx context.Context, id string) (*InstallmentPlan, error)
	// ListForAmount returns active plans covering the amount, ordered by months.
	ListForAmount(ctx context.Context, amount decimal.Decimal) ([]InstallmentPlan, error)
}

// Gateway is the external payment provider, consumed as a one-shot blocking
// capability. Calls are not retried by this core.
type Gateway interface {
	CreateRemoteOrder(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (gatewayOrderID string, err error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}
