package adapthttp

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"niblet/internal/app"
	"niblet/internal/domain"
)

func (s *Server) handleChatCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Personality string `json:"personality"`
	}
	if err := parseOptionalJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	sess, err := s.svc.Chat.CreateSession(r.Context(), userFromContext(r).ID, req.Personality)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleChatGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.Chat.Session(r.Context(), userFromContext(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleChatSend runs one turn. A multipart body with an "image" file is a
// meal photo.
func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userFromContext(r).ID
	sessionID := chi.URLParam(r, "id")

	var (
		msgs []domain.Message
		err  error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			fail(w, r, domain.Validationf("invalid upload: %v", err))
			return
		}
		file, _, ferr := r.FormFile("image")
		if ferr != nil {
			fail(w, r, domain.Validationf("image file is required"))
			return
		}
		_ = file.Close()
		msgs, err = s.svc.Chat.Photo(ctx, userID, sessionID)
	} else {
		var req struct {
			Text string `json:"text"`
		}
		if err := parseJSON(r, &req); err != nil {
			fail(w, r, err)
			return
		}
		msgs, err = s.svc.Chat.Send(ctx, userID, sessionID, req.Text)
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleChatConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action   app.ConfirmAction `json:"action"`
		Calories int               `json:"calories"`
	}
	if err := parseJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	msgs, err := s.svc.Chat.Confirm(r.Context(), userFromContext(r).ID, chi.URLParam(r, "id"), chi.URLParam(r, "messageID"), req.Action, req.Calories)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleChatRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rating int `json:"rating"`
	}
	if err := parseJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	msgs, err := s.svc.Chat.Rate(r.Context(), userFromContext(r).ID, chi.URLParam(r, "id"), chi.URLParam(r, "messageID"), req.Rating)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleOnboardingStart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Onboarding.Start(r.Context(), userFromContext(r).ID))
}

func (s *Server) handleOnboardingAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := parseJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	step, err := s.svc.Onboarding.Answer(r.Context(), userFromContext(r).ID, req.Text)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, step)
}

func (s *Server) handleOnboardingState(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Onboarding.State(userFromContext(r).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
