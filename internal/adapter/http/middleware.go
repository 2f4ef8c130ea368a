package adapthttp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"niblet/internal/domain"
)

type contextKey string

const userContextKey contextKey = "user"

// localUsername owns all data when auth is disabled.
const localUsername = "local"

// authMiddleware resolves the caller from a forward-auth header, a bearer
// token or the session cookie.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.authenticate(r)
		if err != nil {
			fail(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) authenticate(r *http.Request) (*domain.User, error) {
	ctx := r.Context()
	if s.disableAuth {
		return s.svc.Auth.ValidateForwardAuth(ctx, localUsername)
	}

	// Authelia-style forward auth header first.
	if remoteUser := r.Header.Get("Remote-User"); remoteUser != "" {
		return s.svc.Auth.ValidateForwardAuth(ctx, remoteUser)
	}

	token := sessionToken(r)
	if token == "" {
		return nil, fmt.Errorf("%w: not logged in", domain.ErrAuth)
	}
	return s.svc.Auth.ValidateSession(ctx, token)
}

// adminOnly rejects non-admin users. It must run after authMiddleware.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.disableAuth && !userFromContext(r).IsAdmin() {
			writeError(w, http.StatusForbidden, errors.New("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userFromContext(r *http.Request) *domain.User {
	u, _ := r.Context().Value(userContextKey).(*domain.User)
	return u
}

// sessionToken reads a bearer token, falling back to the session cookie.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController and the websocket upgrader reach the
// underlying writer.
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// Hijack passes websocket upgrades through to the underlying writer.
func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rec.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// loggingMiddleware logs method, path, status and duration of each request.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		reqID := middleware.GetReqID(r.Context())
		if reqID == "" {
			reqID = "-"
		}
		log.Printf("[http] %s %s %d %s req=%s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond), reqID)
	})
}
