package adapthttp

import (
	"net/http"

	"niblet/internal/domain"
)

func (s *Server) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Profiles.Get(r.Context(), userFromContext(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProfilePut(w http.ResponseWriter, r *http.Request) {
	var in domain.Profile
	if err := parseJSON(r, &in); err != nil {
		fail(w, r, err)
		return
	}
	p, err := s.svc.Profiles.Update(r.Context(), userFromContext(r).ID, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Profiles.CompleteOnboarding(r.Context(), userFromContext(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
