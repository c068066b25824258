package httpapi

import (
	"net/http"

	"github.com/aurumcart/aurum-backend/internal/domain/referral"
)

func (s *Server) referralCode(w http.ResponseWriter, r *http.Request, accountID string) {
	code, err := s.referrals.MyCode(r.Context(), accountID)
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": code})
}

func (s *Server) validateReferralCode(w http.ResponseWriter, r *http.Request) {
	info, err := s.referrals.ValidateCode(r.Context(), r.PathValue("code"))
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":         info.Code,
		"referrerName": info.ReferrerName,
		"valid":        info.Valid,
	})
}

type applyReferralRequest struct {
	Code string `json:"code"`
}

func (s *Server) applyReferralCode(w http.ResponseWriter, r *http.Request, accountID string) {
	var req applyReferralRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ref, err := s.referrals.ApplyCode(r.Context(), accountID, req.Code)
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     ref.ID,
		"code":   ref.Code,
		"status": ref.Status,
	})
}

func (s *Server) listReferrals(w http.ResponseWriter, r *http.Request, accountID string) {
	refs, total, err := s.referrals.History(r.Context(), referral.HistoryFilter{
		ReferrerID: accountID,
		Status:     referral.Status(r.URL.Query().Get("status")),
		Limit:      queryInt(r, "limit", 20),
		Offset:     queryInt(r, "offset", 0),
	})
	if err != nil {
		serveDomainError(w, r, err)
		return
	}

	type referralResponse struct {
		ID           string `json:"id"`
		RefereeID    string `json:"refereeId"`
		Status       string `json:"status"`
		RewardPoints int64  `json:"rewardPoints"`
		CreatedAt    string `json:"createdAt"`
	}
	out := make([]referralResponse, len(refs))
	for i, ref := range refs {
		out[i] = referralResponse{
			ID:           ref.ID,
			RefereeID:    ref.RefereeID,
			Status:       string(ref.Status),
			RewardPoints: ref.RewardPoints,
			CreatedAt:    ref.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"referrals": out, "total": total})
}

func (s *Server) referralStats(w http.ResponseWriter, r *http.Request, accountID string) {
	stats, err := s.referrals.Stats(r.Context(), accountID)
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	var conversion float64
	if stats.Total > 0 {
		conversion = float64(stats.Rewarded) / float64(stats.Total) * 100
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":          stats.Total,
		"pending":        stats.Pending,
		"rewarded":       stats.Rewarded,
		"pointsEarned":   stats.PointsEarned,
		"conversionRate": conversion,
	})
}
