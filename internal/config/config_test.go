package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/usermirror")
	t.Setenv("SUPABASE_URL", "https://project.supabase.co/")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")
}

func TestFromEnvDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, ":8001", cfg.HTTPAddr)
	require.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	require.Equal(t, "https://project.supabase.co", cfg.Identity.URL)
	require.Equal(t, "service-key", cfg.Identity.APIKey)
	require.Equal(t, 10*time.Second, cfg.Identity.Timeout)
	require.Zero(t, cfg.Identity.CacheTTL)
	require.Equal(t, 2*time.Second, cfg.Auth.LoginEventTimeout)
	require.Equal(t, int32(4), cfg.Database.MaxConns)
	require.False(t, cfg.IsProduction())
}

func TestFromEnvOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SUPABASE_SERVICE_KEY", "")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,,")
	t.Setenv("IDENTITY_CACHE_TTL", "30")
	t.Setenv("LOGIN_EVENT_TIMEOUT", "500ms")
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "production")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "anon-key", cfg.Identity.APIKey)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	require.Equal(t, 30*time.Second, cfg.Identity.CacheTTL)
	require.Equal(t, 500*time.Millisecond, cfg.Auth.LoginEventTimeout)
	require.Equal(t, ":9000", cfg.HTTPAddr)
	require.True(t, cfg.IsProduction())
}

func TestFromEnvRequiresDatabaseURL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "")

	_, err := FromEnv()
	require.EqualError(t, err, "DATABASE_URL is required")
}

func TestFromEnvRequiresIdentityProvider(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SUPABASE_URL", "")

	_, err := FromEnv()
	require.Error(t, err)

	t.Setenv("SUPABASE_JWT_SECRET", "local-secret")
	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "local-secret", cfg.Identity.JWTSecret)
}

func TestFromEnvRejectsBadDuration(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("IDENTITY_TIMEOUT", "soon")

	_, err := FromEnv()
	require.ErrorContains(t, err, "IDENTITY_TIMEOUT")
}

func TestIdentityFromEnvDoesNotNeedDatabase(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("IDENTITY_CACHE_TTL", "1m")

	cfg, err := identityFromEnv()
	require.NoError(t, err)
	require.Equal(t, "https://project.supabase.co", cfg.URL)
	require.Equal(t, time.Minute, cfg.CacheTTL)

	t.Setenv("SUPABASE_SERVICE_KEY", "")
	_, err = identityFromEnv()
	require.EqualError(t, err, "SUPABASE_SERVICE_KEY or SUPABASE_ANON_KEY is required")
}

func TestFromEnvRejectsOversizedMaxConns(t *testing.T) {
	setBaseEnv(t)

	for _, v := range []string{"2147483648", "4294967300", "0", "-1", "many"} {
		t.Setenv("DATABASE_MAX_CONNS", v)
		_, err := FromEnv()
		require.ErrorContains(t, err, "DATABASE_MAX_CONNS", v)
	}

	t.Setenv("DATABASE_MAX_CONNS", "2147483647")
	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, int32(2147483647), cfg.Database.MaxConns)
}
