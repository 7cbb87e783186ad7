package adapthttp

import "net/http"

func (s *Server) handleStatsSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, _ := userFrom(r.Context())
	writeJSON(w, http.StatusOK, s.svc.Stats.Summary(r.Context(), user.ID, intQuery(r, "days", 7)))
}

func (s *Server) handleStatsDaily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, _ := userFrom(r.Context())
	points, err := s.svc.Stats.Daily(r.Context(), user.ID, intQuery(r, "days", 30))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": points})
}
