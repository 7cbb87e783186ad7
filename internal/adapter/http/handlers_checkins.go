package adapthttp

import (
	"encoding/json"
	"net/http"

	"mindtrack/internal/app"
	"mindtrack/internal/domain"
)

// checkInRequest is the submit payload. Date defaults to today, trainingLoad
// to "none" and preCompetition to false.
type checkInRequest struct {
	Date *string `json:"date"`
	domain.Ratings
	SleepHours     *float64 `json:"sleepHours"`
	Note           *string  `json:"note"`
	TrainingLoad   *string  `json:"trainingLoad"`
	PreCompetition *bool    `json:"preCompetition"`
}

func (req checkInRequest) input() app.CheckInInput {
	in := app.CheckInInput{Ratings: req.Ratings, SleepHours: req.SleepHours}
	if req.Date != nil {
		in.Date = *req.Date
	}
	if req.Note != nil {
		in.Note = sanitizeText(*req.Note)
	}
	if req.TrainingLoad != nil {
		in.TrainingLoad = domain.TrainingLoad(*req.TrainingLoad)
	}
	if req.PreCompetition != nil {
		in.PreCompetition = *req.PreCompetition
	}
	return in
}

func (s *Server) handleCheckIns(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	switch r.Method {
	case http.MethodPost:
		raw, err := readBody(w, r)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if err := validateCheckInPayload(raw); err != nil {
			writeServiceError(w, err)
			return
		}
		var req checkInRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			writeServiceError(w, domain.Invalid("body", "invalid json: %v", err))
			return
		}
		res, err := s.svc.CheckIns.Submit(r.Context(), user.ID, req.input())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)

	case http.MethodGet:
		q := r.URL.Query()
		var (
			items []domain.CheckIn
			err   error
		)
		if from, to := q.Get("from"), q.Get("to"); from != "" || to != "" {
			items, err = s.svc.CheckIns.ListRange(r.Context(), user.ID, from, to)
		} else {
			items, err = s.svc.CheckIns.Recent(r.Context(), user.ID, min(intQuery(r, "days", 7), 366))
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if items == nil {
			items = []domain.CheckIn{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleCheckInToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, _ := userFrom(r.Context())
	view, err := s.svc.CheckIns.Today(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, _ := userFrom(r.Context())
	st, err := s.svc.CheckIns.CurrentStreak(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
