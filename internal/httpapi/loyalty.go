package httpapi

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/aurumcart/aurum-backend/internal/domain/loyalty"
)

func (s *Server) loyaltyBalance(w http.ResponseWriter, r *http.Request, accountID string) {
	summary, err := s.loyalty.BalanceSummary(r.Context(), accountID)
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"points":          summary.Points,
		"pointValue":      summary.PointValue,
		"value":           summary.Value,
		"minRedemption":   summary.MinRedemption,
		"maxUsagePercent": summary.MaxUsagePercent,
		"canRedeem":       summary.CanRedeem,
	})
}

func (s *Server) loyaltyHistory(w http.ResponseWriter, r *http.Request, accountID string) {
	entries, total, err := s.loyalty.History(r.Context(), loyalty.HistoryFilter{
		AccountID: accountID,
		Direction: loyalty.Direction(r.URL.Query().Get("direction")),
		Source:    loyalty.Source(r.URL.Query().Get("source")),
		Limit:     queryInt(r, "limit", 20),
		Offset:    queryInt(r, "offset", 0),
	})
	if err != nil {
		serveDomainError(w, r, err)
		return
	}

	type entryResponse struct {
		ID           string    `json:"id"`
		Direction    string    `json:"direction"`
		Points       int64     `json:"points"`
		BalanceAfter int64     `json:"balanceAfter"`
		Source       string    `json:"source"`
		Description  string    `json:"description,omitempty"`
		CreatedAt    string    `json:"createdAt"`
	}
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = entryResponse{
			ID:           e.ID,
			Direction:    string(e.Direction),
			Points:       e.Points,
			BalanceAfter: e.BalanceAfter,
			Source:       string(e.Source),
			Description:  e.Description,
			CreatedAt:    e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out, "total": total})
}

type loyaltyCalculateRequest struct {
	OrderTotal  decimal.Decimal `json:"orderTotal"`
	PointsToUse int64           `json:"pointsToUse"`
}

func (s *Server) loyaltyCalculate(w http.ResponseWriter, r *http.Request, accountID string) {
	var req loyaltyCalculateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	quote, err := s.loyalty.CalculateUsage(r.Context(), accountID, req.OrderTotal, req.PointsToUse)
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"availablePoints": quote.AvailablePoints,
		"maxUsablePoints": quote.MaxUsablePoints,
		"pointsToUse":     quote.PointsToUse,
		"pointValue":      quote.PointValue,
		"discount":        quote.Discount,
		"newTotal":        quote.NewTotal,
	})
}

type adjustPointsRequest struct {
	AccountID   string `json:"accountId"`
	Points      int64  `json:"points"`
	Direction   string `json:"direction"`
	Description string `json:"description,omitempty"`
	AdminID     string `json:"adminId,omitempty"`
}

func (s *Server) adminAdjustPoints(w http.ResponseWriter, r *http.Request) {
	var req adjustPointsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	entry, err := s.loyalty.AdminAdjust(r.Context(), req.AccountID, req.Points,
		loyalty.Direction(req.Direction), req.Description, req.AdminID)
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           entry.ID,
		"balanceAfter": entry.BalanceAfter,
	})
}

func (s *Server) loyaltyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.loyalty.Stats(r.Context())
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalCredited": stats.TotalCredited,
		"totalDebited":  stats.TotalDebited,
		"net":           stats.Net,
	})
}
