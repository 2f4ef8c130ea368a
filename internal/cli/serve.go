package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	adapthttp "niblet/internal/adapter/http"
	"niblet/internal/adapter/mcp"
	"niblet/internal/adapter/memory"
	"niblet/internal/adapter/postgres"
	"niblet/internal/adapter/sqlite"
	"niblet/internal/analytics"
	"niblet/internal/app"
	"niblet/internal/assistant"
	"niblet/internal/config"
	"niblet/internal/domain"
)

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
	chatIdleTTL     = 24 * time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// repository is everything a storage backend provides besides sessions.
type repository interface {
	domain.UserRepository
	domain.ResetTokenRepository
	domain.WeightRepository
	domain.MealRepository
	domain.GoalRepository
	domain.ProfileRepository
	domain.PersonalityRepository
	domain.TemplateRepository
}

type backend struct {
	repo     repository
	sessions domain.SessionRepository
	close    func() error
}

func openBackend(c config.StorageConfig) (*backend, error) {
	switch c.Driver {
	case config.StoragePostgres:
		db, err := postgres.Open(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres open: %w", err)
		}
		return &backend{repo: db, sessions: postgres.NewSessionRepo(db), close: db.Close}, nil
	case config.StorageSQLite:
		s, err := sqlite.Open(c.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite open: %w", err)
		}
		return &backend{repo: s, sessions: sqlite.NewSessionRepo(s), close: s.Close}, nil
	default:
		db := memory.New()
		return &backend{repo: db, sessions: db.NewSessionRepo(), close: func() error { return nil }}, nil
	}
}

// newResponder prefers the Assistants API and falls back to an Ark chat
// model. Neither configured yields nil, which the chat handles with canned
// replies.
func newResponder(ctx context.Context, cfg *config.Config, personalities *app.PersonalityService) (assistant.Responder, error) {
	if cfg.Assistant.Enabled() {
		c, err := assistant.NewClient(cfg.Assistant.Client())
		if err != nil {
			return nil, err
		}
		log.Printf("[serve] assistant: assistants api (%s)", cfg.Assistant.BaseURL)
		return c, nil
	}
	if cfg.Ark.Enabled() {
		cm, err := assistant.NewArkChatModel(ctx, cfg.Ark)
		if err != nil {
			return nil, fmt.Errorf("ark chat model: %w", err)
		}
		r, err := assistant.NewEinoResponder(ctx, cm, personalities.Lookup)
		if err != nil {
			return nil, err
		}
		log.Printf("[serve] assistant: ark model %s", cfg.Ark.Model)
		return r, nil
	}
	log.Printf("[serve] assistant: none configured, nutrition questions get canned replies")
	return nil, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("[serve] no .env file loaded: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = be.close() }()
	log.Printf("[serve] storage: %s", cfg.Storage.Driver)

	personalities := app.NewPersonalityService(be.repo, be.repo, cfg.Assistant.DefaultPersonality)
	if err := personalities.Seed(ctx); err != nil {
		return fmt.Errorf("seed personalities: %w", err)
	}

	responder, err := newResponder(ctx, cfg, personalities)
	if err != nil {
		return err
	}

	auth := app.NewAuthService(be.repo, be.sessions, be.repo)
	profiles := app.NewProfileService(be.repo)
	meals := app.NewMealService(be.repo, be.repo)
	weights := app.NewWeightService(be.repo, be.repo, be.repo)
	goals := app.NewGoalService(be.repo)
	chat := app.NewChatService(meals, weights, responder, personalities)

	svc := adapthttp.Services{
		Auth:          auth,
		Profiles:      profiles,
		Meals:         meals,
		Weights:       weights,
		Goals:         goals,
		Charts:        app.NewChartsService(be.repo, be.repo),
		Chat:          chat,
		Onboarding:    app.NewOnboardingService(profiles, goals),
		Personalities: personalities,
		Responder:     responder,
		MCP:           mcp.New(meals, weights),
	}

	reporter, err := analytics.Open()
	if err != nil {
		log.Printf("[serve] weekly reports disabled: %v", err)
	} else {
		defer func() { _ = reporter.Close() }()
		svc.Reports = app.NewReportService(be.repo, be.repo, reporter)
	}

	srv := adapthttp.New(svc, cfg.Server.WebDir)
	if cfg.Auth.Disabled {
		log.Printf("[serve] authentication disabled, all requests act as the local user")
		srv.WithoutAuth()
	}
	if cfg.Auth.OIDCEnabled() {
		oidcCfg, err := adapthttp.NewOIDCConfig(ctx, cfg.Auth.OIDCIssuer, cfg.Auth.OIDCClientID, cfg.Auth.OIDCClientSecret, cfg.Auth.OIDCRedirectURL)
		if err != nil {
			return err
		}
		srv.WithOIDC(oidcCfg)
		log.Printf("[serve] sso enabled (%s)", cfg.Auth.OIDCIssuer)
	}

	go purgeLoop(ctx, auth, chat)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[serve] listening on %s", cfg.Server.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("[serve] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// purgeLoop drops expired login sessions and chat sessions left idle past
// chatIdleTTL.
func purgeLoop(ctx context.Context, auth *app.AuthService, chat *app.ChatService) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := auth.PurgeExpired(ctx); err != nil {
				log.Printf("[serve] purging expired sessions failed: %v", err)
			}
			if n := chat.PurgeIdle(time.Now().Add(-chatIdleTTL)); n > 0 {
				log.Printf("[serve] discarded %d idle chat sessions", n)
			}
		}
	}
}
