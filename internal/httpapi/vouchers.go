package httpapi

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aurumcart/aurum-backend/internal/domain/voucher"
)

type voucherResponse struct {
	Code          string           `json:"code"`
	Description   string           `json:"description,omitempty"`
	DiscountType  string           `json:"discountType"`
	DiscountValue decimal.Decimal  `json:"discountValue"`
	MinAmount     decimal.Decimal  `json:"minAmount"`
	MaxDiscount   *decimal.Decimal `json:"maxDiscount,omitempty"`
	EndDate       *time.Time       `json:"endDate,omitempty"`
}

func toVoucherResponse(v voucher.Voucher) voucherResponse {
	return voucherResponse{
		Code:          v.Code,
		Description:   v.Description,
		DiscountType:  string(v.DiscountType),
		DiscountValue: v.DiscountValue,
		MinAmount:     v.MinAmount,
		MaxDiscount:   v.MaxDiscount,
		EndDate:       v.EndDate,
	}
}

func (s *Server) listVouchers(w http.ResponseWriter, r *http.Request) {
	vouchers, err := s.vouchers.ListUsable(r.Context())
	if err != nil {
		serveDomainError(w, r, err)
		return
	}

	out := make([]voucherResponse, len(vouchers))
	for i, v := range vouchers {
		out[i] = toVoucherResponse(v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"vouchers": out})
}

type previewVoucherRequest struct {
	Code      string          `json:"code"`
	CartTotal decimal.Decimal `json:"cartTotal"`
}

func (s *Server) previewVoucher(w http.ResponseWriter, r *http.Request) {
	var req previewVoucherRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	app, err := s.vouchers.Preview(r.Context(), req.Code, req.CartTotal)
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"voucher":   toVoucherResponse(app.Voucher),
		"cartTotal": app.CartTotal,
		"discount":  app.Discount,
		"total":     app.Total,
	})
}
