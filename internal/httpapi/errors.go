package httpapi

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/aurumcart/aurum-backend/internal/domain/account"
	"github.com/aurumcart/aurum-backend/internal/domain/catalog"
	"github.com/aurumcart/aurum-backend/internal/domain/invoice"
	"github.com/aurumcart/aurum-backend/internal/domain/loyalty"
	"github.com/aurumcart/aurum-backend/internal/domain/order"
	"github.com/aurumcart/aurum-backend/internal/domain/payment"
	"github.com/aurumcart/aurum-backend/internal/domain/referral"
	"github.com/aurumcart/aurum-backend/internal/domain/voucher"
)

// mapDomainError translates domain errors into HTTP status and message.
// Anything unmatched is an internal error.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, invoice.ErrNotFound),
		errors.Is(err, voucher.ErrNotFound),
		errors.Is(err, account.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, referral.ErrNotFound),
		errors.Is(err, referral.ErrCodeNotFound),
		errors.Is(err, payment.ErrPlanNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, payment.ErrPlanRequired),
		errors.Is(err, loyalty.ErrInvalidPoints),
		errors.Is(err, invoice.ErrBillingType):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, voucher.ErrInactive),
		errors.Is(err, voucher.ErrNotYetValid),
		errors.Is(err, voucher.ErrExpired),
		errors.Is(err, voucher.ErrUsageLimitReached),
		errors.Is(err, loyalty.ErrInsufficientBalance),
		errors.Is(err, referral.ErrSelfReferral),
		errors.Is(err, referral.ErrAlreadyReferred),
		errors.Is(err, order.ErrNotCancellable),
		errors.Is(err, invoice.ErrOrderNotBillable):
		return http.StatusUnprocessableEntity, err.Error()

	case errors.Is(err, invoice.ErrOrderInvoiced),
		errors.Is(err, order.ErrAlreadyPaid):
		return http.StatusConflict, err.Error()

	case errors.Is(err, order.ErrSignatureMismatch):
		return http.StatusBadRequest, err.Error()
	}

	var (
		minAmount   *voucher.MinAmountError
		minRedeem   *loyalty.MinRedemptionError
		outOfBand   *payment.OutOfBandError
		amountRange *payment.AmountRangeError
		badQuantity *order.InvalidQuantityError
		missing     *order.ProductNotFoundError
		lowStock    *order.InsufficientStockError
		badTransit  *order.TransitionError
	)
	switch {
	case errors.As(err, &minAmount),
		errors.As(err, &minRedeem),
		errors.As(err, &outOfBand),
		errors.As(err, &amountRange),
		errors.As(err, &lowStock),
		errors.As(err, &badTransit):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &badQuantity),
		errors.As(err, &missing):
		return http.StatusBadRequest, err.Error()
	}

	return http.StatusInternalServerError, err.Error()
}
