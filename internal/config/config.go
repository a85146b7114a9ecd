package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/erauner12/daycare-client/internal/apiclient"
	"github.com/erauner12/daycare-client/internal/notifications"
	"github.com/erauner12/daycare-client/internal/tokenstore"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Token store kinds
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

const (
	defaultAPIPath = "/api"
	defaultOrigin  = "http://localhost:5000"
	defaultProfile = "default"
	defaultSecret  = "dev-secret-change-in-production"
)

// Config holds client and devserver settings
type Config struct {
	Env      string
	LogLevel string

	// APIURL is the absolute API base, e.g. http://localhost:5000/api
	APIURL         string
	RequestTimeout time.Duration

	TokenStore  string
	TokenFile   string
	DatabaseURL string
	Profile     string

	NotifySchedule string

	HTTPAddr  string
	JWTSecret string
}

// Load reads .env (if present) and then the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not read .env, using environment only")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv without touching .env files
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}

	apiPath := env("DAYCARE_API_URL", env("VITE_API_URL", defaultAPIPath))
	apiURL, err := ResolveAPIURL(apiPath, env("DAYCARE_ORIGIN", defaultOrigin))
	if err != nil {
		return nil, err
	}

	timeout := apiclient.DefaultTimeout
	if raw := env("REQUEST_TIMEOUT", ""); raw != "" {
		timeout, err = time.ParseDuration(raw)
		if err != nil || timeout <= 0 {
			return nil, fmt.Errorf("invalid REQUEST_TIMEOUT %q", raw)
		}
	}

	cfg := &Config{
		Env:            env("ENV", ""),
		LogLevel:       env("LOG_LEVEL", "info"),
		APIURL:         apiURL,
		RequestTimeout: timeout,
		TokenStore:     strings.ToLower(env("TOKEN_STORE", StoreFile)),
		TokenFile:      env("TOKEN_FILE", ""),
		DatabaseURL:    env("DATABASE_URL", ""),
		Profile:        env("PROFILE", defaultProfile),
		NotifySchedule: env("NOTIFY_SCHEDULE", notifications.DefaultSchedule),
		HTTPAddr:       env("HTTP_ADDR", ":5000"),
		JWTSecret:      env("JWT_HS256_SECRET", defaultSecret),
	}

	switch cfg.TokenStore {
	case StoreMemory, StoreFile:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("TOKEN_STORE=postgres requires DATABASE_URL")
		}
	default:
		return nil, fmt.Errorf("invalid TOKEN_STORE %q (must be memory, file or postgres)", cfg.TokenStore)
	}

	if cfg.TokenStore == StoreFile && cfg.TokenFile == "" {
		cfg.TokenFile = defaultTokenFile(cfg.Profile)
	}
	return cfg, nil
}

// IsDev reports whether ENV=dev
func (c *Config) IsDev() bool { return c.Env == "dev" }

// UsesDefaultSecret reports whether the devserver would sign with the
// built-in secret
func (c *Config) UsesDefaultSecret() bool { return c.JWTSecret == defaultSecret }

// ResolveAPIURL turns a relative API path such as "/api" into an absolute
// URL against origin. Absolute URLs are returned without a trailing slash.
func ResolveAPIURL(apiURL, origin string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid API URL %q: %w", apiURL, err)
	}
	if !u.IsAbs() {
		base, err := url.Parse(origin)
		if err != nil || !base.IsAbs() {
			return "", fmt.Errorf("invalid DAYCARE_ORIGIN %q", origin)
		}
		u = base.ResolveReference(&url.URL{Path: "/" + strings.TrimPrefix(u.Path, "/"), RawQuery: u.RawQuery})
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// OpenStore builds the configured token store. The returned close func is
// never nil.
func (c *Config) OpenStore(ctx context.Context) (tokenstore.Store, func(), error) {
	switch c.TokenStore {
	case StoreMemory:
		return tokenstore.NewMemory(), func() {}, nil
	case StorePostgres:
		pg, err := tokenstore.OpenPostgres(ctx, c.DatabaseURL, c.Profile)
		if err != nil {
			return nil, func() {}, err
		}
		return pg, pg.Close, nil
	default:
		return tokenstore.NewFile(c.TokenFile), func() {}, nil
	}
}

func defaultTokenFile(profile string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "daycare", profile+".json")
}
