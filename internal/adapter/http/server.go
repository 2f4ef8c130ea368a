package adapthttp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/oauth2"

	"niblet/internal/adapter/mcp"
	"niblet/internal/app"
	"niblet/internal/assistant"
	"niblet/internal/speech"
)

// Services are the application services the HTTP adapter drives. Reports,
// Responder and MCP may be nil; their routes then answer 503.
type Services struct {
	Auth          *app.AuthService
	Profiles      *app.ProfileService
	Meals         *app.MealService
	Weights       *app.WeightService
	Goals         *app.GoalService
	Charts        *app.ChartsService
	Reports       *app.ReportService
	Chat          *app.ChatService
	Onboarding    *app.OnboardingService
	Personalities *app.PersonalityService
	Responder     assistant.Responder
	MCP           *mcp.Tools
}

// OIDCConfig holds the single sign-on provider. The zero value disables SSO.
type OIDCConfig struct {
	Enabled      bool
	Provider     *oidc.Provider
	OAuth2Config oauth2.Config
}

// NewOIDCConfig discovers issuer and builds the code-flow configuration.
func NewOIDCConfig(ctx context.Context, issuer, clientID, clientSecret, redirectURL string) (OIDCConfig, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return OIDCConfig{}, fmt.Errorf("oidc discovery: %w", err)
	}
	return OIDCConfig{
		Enabled:  true,
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	svc         Services
	webDir      string
	oidcConfig  OIDCConfig
	disableAuth bool
	speech      speech.Factory
	upgrader    websocket.Upgrader
}

// New creates a Server wired to the given application services.
func New(svc Services, webDir string) *Server {
	return &Server{
		svc:    svc,
		webDir: webDir,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// WithOIDC enables SSO login.
func (s *Server) WithOIDC(cfg OIDCConfig) *Server {
	s.oidcConfig = cfg
	return s
}

// WithoutAuth serves every request as a single local user.
func (s *Server) WithoutAuth() *Server {
	s.disableAuth = true
	return s
}

// WithSpeech lets websocket clients stream speech through recognizers built
// by f.
func (s *Server) WithSpeech(f speech.Factory) *Server {
	s.speech = f
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		})
		api.Get("/config", s.handleConfig)

		api.Route("/auth", func(a chi.Router) {
			a.Post("/register", s.handleRegister)
			a.Post("/login", s.handleLogin)
			a.Post("/logout", s.handleLogout)
			a.Post("/setup", s.handleSetupUser)
			a.Post("/forgotpassword", s.handleForgotPassword)
			a.Put("/resetpassword/{token}", s.handleResetPassword)
			a.Get("/sso/login", s.handleSSOLogin)
			a.Get("/sso/callback", s.handleSSOCallback)
			a.With(s.authMiddleware).Get("/me", s.handleMe)
			a.With(s.authMiddleware).Put("/updatepassword", s.handleUpdatePassword)
		})

		api.Group(func(p chi.Router) {
			p.Use(s.authMiddleware)

			p.Get("/users/profile", s.handleProfileGet)
			p.Put("/users/profile", s.handleProfilePut)
			p.Put("/users/complete-onboarding", s.handleCompleteOnboarding)

			p.Route("/meals", func(m chi.Router) {
				m.Get("/", s.handleMealsList)
				m.Post("/", s.handleMealsCreate)
				m.Get("/summary", s.handleMealsSummary)
				m.Post("/analyze-text", s.handleMealsAnalyze)
				m.Get("/{id}", s.handleMealGet)
				m.Put("/{id}", s.handleMealUpdate)
				m.Delete("/{id}", s.handleMealDelete)
				m.Post("/{id}/rating", s.handleMealRate)
			})

			p.Route("/weight", func(wr chi.Router) {
				wr.Get("/", s.handleWeightList)
				wr.Post("/", s.handleWeightCreate)
				wr.Get("/today", s.handleWeightToday)
				wr.Get("/progress", s.handleWeightProgress)
				wr.Post("/undo-last", s.handleWeightUndoLast)
				wr.Delete("/{id}", s.handleWeightDelete)
			})

			p.Route("/goals", func(g chi.Router) {
				g.Get("/", s.handleGoalsList)
				g.Post("/", s.handleGoalCreate)
				g.Get("/current", s.handleGoalCurrent)
				g.Post("/calculate-calories", s.handleCalculateCalories)
				g.Put("/{id}", s.handleGoalUpdate)
				g.Delete("/{id}", s.handleGoalDelete)
			})

			p.Get("/charts/daily", s.handleChartsDaily)
			p.Get("/reports/weekly", s.handleReportsWeekly)

			p.Route("/chat", func(c chi.Router) {
				c.Get("/ws", s.handleChatSocket)
				c.Post("/sessions", s.handleChatCreate)
				c.Get("/sessions/{id}", s.handleChatGet)
				c.Post("/sessions/{id}/messages", s.handleChatSend)
				c.Post("/sessions/{id}/messages/{messageID}/confirm", s.handleChatConfirm)
				c.Post("/sessions/{id}/messages/{messageID}/rating", s.handleChatRate)
			})

			p.Post("/onboarding/start", s.handleOnboardingStart)
			p.Post("/onboarding/answer", s.handleOnboardingAnswer)
			p.Get("/onboarding", s.handleOnboardingState)

			p.Post("/assistants/thread", s.handleAssistantThread)
			p.Post("/assistants/message", s.handleAssistantMessage)

			p.Get("/mcp", s.handleMCPTools)
			p.Post("/mcp", s.handleMCPCall)

			p.Route("/admin", func(ad chi.Router) {
				ad.Use(s.adminOnly)
				ad.Get("/personalities", s.handlePersonalitiesList)
				ad.Put("/personalities/{id}", s.handlePersonalitySave)
				ad.Delete("/personalities/{id}", s.handlePersonalityDelete)
				ad.Get("/templates", s.handleTemplatesList)
				ad.Put("/templates/{id}", s.handleTemplateSave)
				ad.Delete("/templates/{id}", s.handleTemplateDelete)
				ad.Post("/templates/{id}/render", s.handleTemplateRender)
			})
		})
	})

	r.Handle("/*", spaFromDisk(s.webDir))
	return withNoCache(r)
}
