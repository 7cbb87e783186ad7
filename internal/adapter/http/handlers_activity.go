package adapthttp

import (
	"net/http"

	"mindtrack/internal/domain"
	"mindtrack/internal/exercise"
)

func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": exercise.Catalog})
}

func (s *Server) handleExerciseComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var body struct {
		ExerciseID string `json:"exerciseId"`
		Seconds    int    `json:"seconds"`
	}
	if err := parseJSON(w, r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	user, _ := userFrom(r.Context())
	res, err := s.svc.Activity.CompleteExercise(r.Context(), user.ID, body.ExerciseID, body.Seconds)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExerciseLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, _ := userFrom(r.Context())
	logs, err := s.svc.Activity.Exercises(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if logs == nil {
		logs = []domain.ExerciseLog{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": logs})
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var body struct {
		Kind       string `json:"kind"`
		ResourceID string `json:"resourceId"`
	}
	if err := parseJSON(w, r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	user, _ := userFrom(r.Context())
	res, err := s.svc.Activity.RecordView(r.Context(), user.ID, domain.ViewKind(body.Kind), body.ResourceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
