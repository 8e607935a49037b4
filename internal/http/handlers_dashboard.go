package http

import (
	"net/http"
	"time"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())

	if cached, ok := s.dashboardCache.Get(owner); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	dashboard, err := s.expenses.Dashboard(r.Context(), owner, time.Now())
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.dashboardCache.Set(owner, dashboard)
	respondJSON(w, http.StatusOK, dashboard)
}
