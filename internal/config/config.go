package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName           = "User Mirror"
	defaultAppEnv            = "development"
	defaultHTTPAddr          = ":8001"
	defaultShutdownTimeout   = 5 * time.Second
	defaultLogLevel          = "info"
	defaultIdentityTimeout   = 10 * time.Second
	defaultLoginEventTimeout = 2 * time.Second
	defaultRateLimitRequests = 30
	defaultRateLimitWindow   = time.Minute
	defaultDBMaxConns        = int32(4)
	defaultDBConnLifetime    = 30 * time.Minute
	defaultDBConnIdleTime    = 5 * time.Minute
)

type Config struct {
	AppName         string
	AppEnv          string
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string
	AllowedOrigins  []string
	Identity        IdentityConfig
	Auth            AuthConfig
	Database        DatabaseConfig
}

type IdentityConfig struct {
	URL       string
	APIKey    string
	JWTSecret string
	Timeout   time.Duration
	CacheTTL  time.Duration
	RedisURL  string
}

type AuthConfig struct {
	LoginEventTimeout time.Duration
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production") || strings.EqualFold(c.AppEnv, "prod")
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		AppName:         defaultAppName,
		AppEnv:          defaultAppEnv,
		HTTPAddr:        defaultHTTPAddr,
		ShutdownTimeout: defaultShutdownTimeout,
		LogLevel:        defaultLogLevel,
		AllowedOrigins:  []string{"*"},
		Auth: AuthConfig{
			LoginEventTimeout: defaultLoginEventTimeout,
			RateLimitRequests: defaultRateLimitRequests,
			RateLimitWindow:   defaultRateLimitWindow,
		},
		Database: DatabaseConfig{
			MaxConns:        defaultDBMaxConns,
			MaxConnLifetime: defaultDBConnLifetime,
			MaxConnIdleTime: defaultDBConnIdleTime,
		},
	}

	if v := env("APP_NAME"); v != "" {
		cfg.AppName = v
	}
	if v := env("APP_ENV"); v != "" {
		cfg.AppEnv = v
	}
	if v := env("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	} else if v := env("PORT"); v != "" {
		cfg.HTTPAddr = ":" + v
	}
	if v := env("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := env("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	if err := parseDurations([]durationEnv{
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout},
		{"LOGIN_EVENT_TIMEOUT", &cfg.Auth.LoginEventTimeout},
		{"AUTH_RATE_LIMIT_WINDOW", &cfg.Auth.RateLimitWindow},
		{"DATABASE_MAX_CONN_LIFETIME", &cfg.Database.MaxConnLifetime},
		{"DATABASE_MAX_CONN_IDLE_TIME", &cfg.Database.MaxConnIdleTime},
	}); err != nil {
		return Config{}, err
	}

	identity, err := identityFromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg.Identity = identity

	if v := env("AUTH_RATE_LIMIT_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, errors.New("AUTH_RATE_LIMIT_REQUESTS must be a non-negative integer")
		}
		cfg.Auth.RateLimitRequests = n
	}
	if cfg.Auth.LoginEventTimeout <= 0 {
		cfg.Auth.LoginEventTimeout = defaultLoginEventTimeout
	}
	if cfg.Auth.RateLimitWindow <= 0 {
		cfg.Auth.RateLimitWindow = defaultRateLimitWindow
	}

	dbURL := env("DATABASE_URL")
	if dbURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	cfg.Database.URL = dbURL

	if v := env("DATABASE_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return Config{}, errors.New("DATABASE_MAX_CONNS must be a positive 32-bit integer")
		}
		cfg.Database.MaxConns = int32(n)
	}

	return cfg, nil
}

// LoadIdentity reads an optional .env file and returns only the identity
// provider settings. DATABASE_URL is not required.
func LoadIdentity() (IdentityConfig, error) {
	_ = godotenv.Load()
	return identityFromEnv()
}

func identityFromEnv() (IdentityConfig, error) {
	cfg := IdentityConfig{Timeout: defaultIdentityTimeout}
	if err := parseDurations([]durationEnv{
		{"IDENTITY_TIMEOUT", &cfg.Timeout},
		{"IDENTITY_CACHE_TTL", &cfg.CacheTTL},
	}); err != nil {
		return IdentityConfig{}, err
	}

	cfg.URL = strings.TrimRight(env("SUPABASE_URL"), "/")
	cfg.APIKey = env("SUPABASE_SERVICE_KEY")
	if cfg.APIKey == "" {
		cfg.APIKey = env("SUPABASE_ANON_KEY")
	}
	cfg.JWTSecret = env("SUPABASE_JWT_SECRET")
	cfg.RedisURL = env("REDIS_URL")

	if cfg.JWTSecret == "" {
		if cfg.URL == "" {
			return IdentityConfig{}, errors.New("SUPABASE_URL or SUPABASE_JWT_SECRET is required")
		}
		u, err := url.Parse(cfg.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return IdentityConfig{}, errors.New("SUPABASE_URL must be a valid absolute URL")
		}
		if cfg.APIKey == "" {
			return IdentityConfig{}, errors.New("SUPABASE_SERVICE_KEY or SUPABASE_ANON_KEY is required")
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultIdentityTimeout
	}
	if cfg.CacheTTL < 0 {
		cfg.CacheTTL = 0
	}
	return cfg, nil
}

type durationEnv struct {
	key string
	dst *time.Duration
}

func parseDurations(entries []durationEnv) error {
	for _, d := range entries {
		v := env(d.key)
		if v == "" {
			continue
		}
		parsed, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, errors.New("empty duration")
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}
