package httpapi

import (
	"net/http"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/aurumcart/aurum-backend/internal/domain/invoice"
	"github.com/aurumcart/aurum-backend/internal/domain/loyalty"
	"github.com/aurumcart/aurum-backend/internal/domain/order"
	"github.com/aurumcart/aurum-backend/internal/domain/payment"
	"github.com/aurumcart/aurum-backend/internal/domain/referral"
	"github.com/aurumcart/aurum-backend/internal/domain/voucher"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"order not found", order.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", errors.Wrap(invoice.ErrNotFound, "load invoice"), http.StatusNotFound},
		{"unknown referral code", referral.ErrCodeNotFound, http.StatusNotFound},
		{"empty items", order.ErrEmptyItems, http.StatusBadRequest},
		{"plan required", payment.ErrPlanRequired, http.StatusBadRequest},
		{"signature mismatch", order.ErrSignatureMismatch, http.StatusBadRequest},
		{"bad billing type", invoice.ErrBillingType, http.StatusBadRequest},
		{"expired voucher", voucher.ErrExpired, http.StatusUnprocessableEntity},
		{"voucher exhausted", voucher.ErrUsageLimitReached, http.StatusUnprocessableEntity},
		{"insufficient points", loyalty.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{"self referral", referral.ErrSelfReferral, http.StatusUnprocessableEntity},
		{"not cancellable", order.ErrNotCancellable, http.StatusUnprocessableEntity},
		{"already invoiced", invoice.ErrOrderInvoiced, http.StatusConflict},
		{"already paid", order.ErrAlreadyPaid, http.StatusConflict},
		{
			"voucher minimum",
			&voucher.MinAmountError{Code: "FLAT500", MinAmount: decimal.NewFromInt(10000)},
			http.StatusUnprocessableEntity,
		},
		{
			"partial out of band",
			&payment.OutOfBandError{Partial: decimal.NewFromInt(1)},
			http.StatusUnprocessableEntity,
		},
		{
			"low stock",
			&order.InsufficientStockError{ProductID: "p1", Requested: 5, Available: 2},
			http.StatusUnprocessableEntity,
		},
		{
			"bad transition",
			&order.TransitionError{From: order.StatusShipped, To: order.StatusCancelled},
			http.StatusUnprocessableEntity,
		},
		{
			"unknown product",
			&order.ProductNotFoundError{ProductID: "ghost"},
			http.StatusBadRequest,
		},
		{
			"zero quantity",
			&order.InvalidQuantityError{ProductID: "p1"},
			http.StatusBadRequest,
		},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := mapDomainError(tt.err)
			assert.Equal(t, tt.want, status)
			assert.NotEmpty(t, msg)
		})
	}
}
