package adapthttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"niblet/internal/domain"
)

func (s *Server) handlePersonalitiesList(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Personalities.ListPersonalities(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "default": s.svc.Personalities.DefaultID()})
}

func (s *Server) handlePersonalitySave(w http.ResponseWriter, r *http.Request) {
	var p domain.Personality
	if err := parseJSON(r, &p); err != nil {
		fail(w, r, err)
		return
	}
	p.ID = chi.URLParam(r, "id")
	saved, err := s.svc.Personalities.SavePersonality(r.Context(), p)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handlePersonalityDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Personalities.DeletePersonality(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleTemplatesList(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Personalities.ListTemplates(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleTemplateSave(w http.ResponseWriter, r *http.Request) {
	var t domain.PromptTemplate
	if err := parseJSON(r, &t); err != nil {
		fail(w, r, err)
		return
	}
	t.ID = chi.URLParam(r, "id")
	saved, err := s.svc.Personalities.SaveTemplate(r.Context(), t)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleTemplateDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Personalities.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleTemplateRender(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Variables map[string]any `json:"variables"`
	}
	if err := parseOptionalJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	text, err := s.svc.Personalities.Render(r.Context(), chi.URLParam(r, "id"), req.Variables)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}
