package adapthttp

import (
	"errors"
	"net/http"
	"time"
)

func (s *Server) handleChartsDaily(w http.ResponseWriter, r *http.Request) {
	days := intQuery(r, "days", 90)
	points, err := s.svc.Charts.GetDaily(r.Context(), userFromContext(r).ID, days)
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"days":  days,
		"unit":  "lb",
		"today": localDayString(time.Now()),
		"items": points,
	})
}

func (s *Server) handleReportsWeekly(w http.ResponseWriter, r *http.Request) {
	if s.svc.Reports == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("reports are not configured"))
		return
	}
	weeks := intQuery(r, "weeks", 4)
	items, err := s.svc.Reports.Weekly(r.Context(), userFromContext(r).ID, weeks)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"weeks": weeks, "items": items})
}
