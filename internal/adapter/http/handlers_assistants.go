package adapthttp

import (
	"errors"
	"net/http"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"niblet/internal/adapter/mcp"
	"niblet/internal/domain"
)

var errNoAssistant = errors.New("assistant is not configured")

func (s *Server) handleAssistantThread(w http.ResponseWriter, r *http.Request) {
	if s.svc.Responder == nil {
		writeError(w, http.StatusServiceUnavailable, errNoAssistant)
		return
	}
	id, err := s.svc.Responder.CreateThread(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"threadId": id})
}

func (s *Server) handleAssistantMessage(w http.ResponseWriter, r *http.Request) {
	if s.svc.Responder == nil {
		writeError(w, http.StatusServiceUnavailable, errNoAssistant)
		return
	}
	var req struct {
		ThreadID    string `json:"threadId"`
		Message     string `json:"message"`
		Personality string `json:"personality"`
	}
	if err := parseJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.ThreadID == "" || req.Message == "" {
		fail(w, r, domain.Validationf("threadId and message are required"))
		return
	}
	if s.svc.Personalities != nil {
		req.Personality = s.svc.Personalities.Resolve(r.Context(), req.Personality)
	}
	reply, err := s.svc.Responder.Send(r.Context(), req.ThreadID, req.Personality, req.Message)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleMCPTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"server": mcp.Info, "tools": mcp.Catalog})
}

func (s *Server) handleMCPCall(w http.ResponseWriter, r *http.Request) {
	if s.svc.MCP == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("mcp tools are not configured"))
		return
	}
	var req protocol.CallToolRequest
	if err := parseJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	res, err := s.svc.MCP.Call(r.Context(), userFromContext(r).ID, &req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
