package adapthttp

import (
	"net/http"
	"time"
)

func (s *Server) handleWeightList(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Weights.List(r.Context(), userFromContext(r).ID, dayRange(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleWeightCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Weight float64 `json:"weight"`
		Unit   string  `json:"unit"`
		Notes  string  `json:"notes"`
	}
	if err := parseJSON(r, &body); err != nil {
		fail(w, r, err)
		return
	}
	entry, err := s.svc.Weights.RecordWeight(r.Context(), userFromContext(r).ID, body.Weight, body.Unit, body.Notes)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleWeightToday(w http.ResponseWriter, r *http.Request) {
	today := localDayString(time.Now())
	entry, err := s.svc.Weights.GetTodayWeight(r.Context(), userFromContext(r).ID, today)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"today": today, "entry": entry})
}

func (s *Server) handleWeightProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Weights.Progress(r.Context(), userFromContext(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleWeightUndoLast(w http.ResponseWriter, r *http.Request) {
	deleted, entry, today, err := s.svc.Weights.UndoLast(r.Context(), userFromContext(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": deleted, "today": today, "entry": entry})
}

func (s *Server) handleWeightDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := s.svc.Weights.Delete(r.Context(), userFromContext(r).ID, id); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
