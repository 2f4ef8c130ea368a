package adapthttp

import (
	"net/http"
	"strings"
	"time"

	"niblet/internal/app"
	"niblet/internal/domain"
)

const maxUploadBytes = 10 << 20

func (s *Server) handleMealsList(w http.ResponseWriter, r *http.Request) {
	meals, err := s.svc.Meals.List(r.Context(), userFromContext(r).ID, dayRange(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": meals})
}

// handleMealsCreate accepts a JSON meal or a multipart photo upload in the
// "image" field.
func (s *Server) handleMealsCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFromContext(r)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			fail(w, r, domain.Validationf("invalid upload: %v", err))
			return
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			fail(w, r, domain.Validationf("image file is required"))
			return
		}
		_ = file.Close()
		meal, err := s.svc.Meals.LogPhoto(ctx, user.ID, header.Filename, domain.MealType(r.FormValue("mealType")))
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, meal)
		return
	}

	var in app.MealInput
	if err := parseJSON(r, &in); err != nil {
		fail(w, r, err)
		return
	}
	meal, err := s.svc.Meals.Create(ctx, user.ID, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, meal)
}

func (s *Server) handleMealsSummary(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("date")
	if day == "" {
		day = localDayString(time.Now())
	}
	sum, err := s.svc.Meals.Summary(r.Context(), userFromContext(r).ID, day)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleMealsAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := parseJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	est, err := s.svc.Meals.Analyze(req.Text)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) handleMealGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	meal, err := s.svc.Meals.Get(r.Context(), userFromContext(r).ID, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meal)
}

func (s *Server) handleMealUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var in app.MealInput
	if err := parseJSON(r, &in); err != nil {
		fail(w, r, err)
		return
	}
	meal, err := s.svc.Meals.Update(r.Context(), userFromContext(r).ID, id, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meal)
}

func (s *Server) handleMealDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := s.svc.Meals.Delete(r.Context(), userFromContext(r).ID, id); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleMealRate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req struct {
		Rating int `json:"rating"`
	}
	if err := parseJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	meal, err := s.svc.Meals.Rate(r.Context(), userFromContext(r).ID, id, req.Rating)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meal)
}
