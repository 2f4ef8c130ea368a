// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"niblet/internal/assistant"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config aggregates every setting of the service.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Auth      AuthConfig
	Assistant AssistantConfig
	Ark       assistant.ArkConfig
}

// Load reads the configuration from the process environment. Call
// godotenv.Load first to pick up a .env file.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}
	storage, err := loadStorageConfig()
	if err != nil {
		return nil, err
	}
	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}
	asst, err := loadAssistantConfig()
	if err != nil {
		return nil, err
	}
	ark, err := loadArkConfig()
	if err != nil {
		return nil, err
	}
	return &Config{Server: server, Storage: storage, Auth: auth, Assistant: asst, Ark: ark}, nil
}

// ServerConfig is the HTTP listener.
type ServerConfig struct {
	Addr   string
	WebDir string
}

func loadServerConfig() (ServerConfig, error) {
	addr := strings.TrimSpace(os.Getenv("ADDR"))
	if addr == "" {
		port := getEnvOrDefault("PORT", "8080")
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		addr = port
		if !strings.Contains(port, ":") {
			addr = ":" + port
		}
	}
	return ServerConfig{Addr: addr, WebDir: getEnvOrDefault("WEB_DIR", "web")}, nil
}

// StorageConfig selects the repository backend.
type StorageConfig struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
}

func loadStorageConfig() (StorageConfig, error) {
	c := StorageConfig{
		Driver:      strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE"))),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:  getEnvOrDefault("SQLITE_PATH", "niblet.db"),
	}
	if c.Driver == "" {
		c.Driver = StorageMemory
		if c.DatabaseURL != "" {
			c.Driver = StoragePostgres
		}
	}
	switch c.Driver {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return StorageConfig{}, fmt.Errorf("DATABASE_URL is required for STORAGE=%s", c.Driver)
		}
	default:
		return StorageConfig{}, fmt.Errorf("invalid STORAGE value %q", c.Driver)
	}
	return c, nil
}

// AuthConfig covers local sessions and SSO.
type AuthConfig struct {
	Disabled         bool
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string
}

// OIDCEnabled reports whether SSO is fully configured.
func (c AuthConfig) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != "" && c.OIDCRedirectURL != ""
}

func loadAuthConfig() (AuthConfig, error) {
	disabled, err := parseBoolEnv("DISABLE_AUTH", false)
	if err != nil {
		return AuthConfig{}, err
	}
	return AuthConfig{
		Disabled:         disabled,
		OIDCIssuer:       strings.TrimSpace(os.Getenv("OIDC_ISSUER")),
		OIDCClientID:     strings.TrimSpace(os.Getenv("OIDC_CLIENT_ID")),
		OIDCClientSecret: strings.TrimSpace(os.Getenv("OIDC_CLIENT_SECRET")),
		OIDCRedirectURL:  strings.TrimSpace(os.Getenv("OIDC_REDIRECT_URL")),
	}, nil
}

// AssistantConfig configures the Assistants API client and the chat
// defaults.
type AssistantConfig struct {
	APIKey             string
	BaseURL            string
	AssistantID        string
	PollAttempts       int
	DefaultPersonality string
	APIURL             string
}

// Enabled reports whether the Assistants API client can be built.
func (c AssistantConfig) Enabled() bool {
	return c.APIKey != "" && c.AssistantID != ""
}

// Client returns the assistant client configuration.
func (c AssistantConfig) Client() assistant.Config {
	return assistant.Config{
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		AssistantID: c.AssistantID,
		MaxAttempts: c.PollAttempts,
	}
}

func loadAssistantConfig() (AssistantConfig, error) {
	attempts, err := parseOptionalIntEnv("ASSISTANT_POLL_ATTEMPTS")
	if err != nil {
		return AssistantConfig{}, err
	}
	c := AssistantConfig{
		APIKey:             strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		BaseURL:            getEnvOrDefault("OPENAI_BASE_URL", assistant.DefaultBaseURL),
		AssistantID:        getEnvOrDefault("ASSISTANT_ID", strings.TrimSpace(os.Getenv("NEXT_PUBLIC_ASSISTANT_ID"))),
		PollAttempts:       assistant.DefaultMaxAttempts,
		DefaultPersonality: getEnvOrDefault("DEFAULT_PERSONALITY", "best-friend"),
		APIURL:             getEnvOrDefault("API_URL", getEnvOrDefault("NEXT_PUBLIC_API_URL", "http://localhost:8080")),
	}
	if attempts != nil {
		if *attempts < 1 {
			return AssistantConfig{}, fmt.Errorf("invalid ASSISTANT_POLL_ATTEMPTS value %d", *attempts)
		}
		c.PollAttempts = *attempts
	}
	return c, nil
}

func loadArkConfig() (assistant.ArkConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return assistant.ArkConfig{}, err
	}
	return assistant.ArkConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil, nil
	}
	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil, nil
	}
	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
