package httpapi

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/aurumcart/aurum-backend/internal/domain/payment"
)

func (s *Server) quoteEMIPlans(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("amount")
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount query parameter is required")
		return
	}

	quotes, err := s.plans.QuotePlans(r.Context(), amount)
	if err != nil {
		serveDomainError(w, r, err)
		return
	}

	type quoteResponse struct {
		PlanID             string          `json:"planId"`
		Months             int             `json:"months"`
		InterestRate       decimal.Decimal `json:"interestRate"`
		MonthlyInstallment decimal.Decimal `json:"monthlyInstallment"`
		TotalAmount        decimal.Decimal `json:"totalAmount"`
		ProcessingFee      decimal.Decimal `json:"processingFee"`
	}
	out := make([]quoteResponse, len(quotes))
	for i, q := range quotes {
		out[i] = quoteResponse{
			PlanID:             q.PlanID,
			Months:             q.Months,
			InterestRate:       q.InterestRate,
			MonthlyInstallment: q.MonthlyInstallment,
			TotalAmount:        q.TotalAmount,
			ProcessingFee:      q.ProcessingFee,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"amount": amount, "plans": out})
}

func (s *Server) patchPaymentSettings(w http.ResponseWriter, r *http.Request) {
	var patch payment.SettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	merged, err := s.paySettings.UpdateSettings(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}
