package adapthttp

import (
	"net/http"

	"mindtrack/internal/app"
)

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	switch r.Method {
	case http.MethodGet:
		p, err := s.svc.Profiles.Get(r.Context(), user.ID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)

	case http.MethodPost:
		var in app.ProfileInput
		if err := parseJSON(w, r, &in); err != nil {
			writeServiceError(w, err)
			return
		}
		if in.About != nil {
			about := sanitizeText(*in.About)
			in.About = &about
		}
		p, err := s.svc.Profiles.EnsureProfile(r.Context(), user.ID, user.Email, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleUsernameAvailable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, _ := userFrom(r.Context())
	ok, err := s.svc.Profiles.UsernameAvailable(r.Context(), user.ID, r.URL.Query().Get("username"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": ok})
}
