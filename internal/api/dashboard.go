package api

import "net/http"

// GetDashboardStats returns aggregate counts and per-campaign engagement
// rates for the caller, cached for a short window
func (h *Handlers) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.Stats.GetDashboard(r.Context(), userID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load dashboard stats")
		return
	}
	respondJSON(w, http.StatusOK, dashboard)
}
