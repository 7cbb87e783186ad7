package adapthttp

import (
	"net/http"

	"mindtrack/internal/domain"
)

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, _ := userFrom(r.Context())
	tasks, err := s.svc.Game.ListDailyTasks(r.Context(), user.ID, r.URL.Query().Get("day"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": tasks})
}

func (s *Server) handleTaskComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var body struct {
		TaskID string `json:"taskId"`
		Day    string `json:"day"`
	}
	if err := parseJSON(w, r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	user, _ := userFrom(r.Context())
	res, err := s.svc.Game.CompleteDailyTask(r.Context(), user.ID, body.TaskID, body.Day)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, _ := userFrom(r.Context())
	items, err := s.svc.Game.ListAchievements(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleAchievementUnlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var body struct {
		AchievementID string `json:"achievementId"`
	}
	if err := parseJSON(w, r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	user, _ := userFrom(r.Context())
	res, err := s.svc.Game.UnlockAchievement(r.Context(), user.ID, body.AchievementID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAchievementEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	user, _ := userFrom(r.Context())
	unlocked, err := s.svc.Game.EvaluateAchievements(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if unlocked == nil {
		unlocked = []domain.Achievement{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"unlocked": unlocked})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, _ := userFrom(r.Context())
	p, err := s.svc.Game.Progress(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleXPHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, _ := userFrom(r.Context())
	items, err := s.svc.Game.History(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if items == nil {
		items = []domain.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
