package handler

import "net/http"

// handleGetDashboard returns the organization summary.
func (h *Handler) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}

	dashboard, err := h.dashboards.Get(r.Context(), org)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, dashboard)
}
