package httpapi

import (
	"net/http"
)

type putSettingRequest struct {
	Value       any    `json:"value"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

func (s *Server) putSetting(w http.ResponseWriter, r *http.Request) {
	var req putSettingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}

	key := r.PathValue("key")
	if err := s.settings.Set(r.Context(), key, req.Value, req.Description, req.Category); err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": req.Value})
}
