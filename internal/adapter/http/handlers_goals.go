package adapthttp

import (
	"net/http"

	"niblet/internal/app"
	"niblet/internal/domain"
)

func (s *Server) handleGoalsList(w http.ResponseWriter, r *http.Request) {
	goals, err := s.svc.Goals.List(r.Context(), userFromContext(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": goals})
}

func (s *Server) handleGoalCurrent(w http.ResponseWriter, r *http.Request) {
	g, err := s.svc.Goals.Current(r.Context(), userFromContext(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleGoalCreate(w http.ResponseWriter, r *http.Request) {
	var in app.GoalInput
	if err := parseJSON(r, &in); err != nil {
		fail(w, r, err)
		return
	}
	g, err := s.svc.Goals.Create(r.Context(), userFromContext(r).ID, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleGoalUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var in app.GoalInput
	if err := parseJSON(r, &in); err != nil {
		fail(w, r, err)
		return
	}
	g, err := s.svc.Goals.Update(r.Context(), userFromContext(r).ID, id, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleGoalDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := s.svc.Goals.Delete(r.Context(), userFromContext(r).ID, id); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleCalculateCalories(w http.ResponseWriter, r *http.Request) {
	var in domain.CalorieInput
	if err := parseJSON(r, &in); err != nil {
		fail(w, r, err)
		return
	}
	rec, err := s.svc.Goals.CalculateCalories(in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
