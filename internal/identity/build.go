package identity

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/cache"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/config"
)

const redisKeyPrefix = "usermirror:"

// FromConfig builds the verifier chain for cfg. A JWT secret selects local
// verification, otherwise tokens go to the provider's REST endpoint. A
// positive CacheTTL puts a cache in front, backed by Redis when RedisURL is
// set. The returned func releases the cache.
func FromConfig(ctx context.Context, cfg config.IdentityConfig, results *prometheus.CounterVec) (Verifier, func() error, error) {
	var v Verifier
	if cfg.JWTSecret != "" {
		v = NewLocal(cfg.JWTSecret)
	} else {
		v = NewRemote(cfg.URL, cfg.APIKey, cfg.Timeout)
	}

	closeFn := func() error { return nil }
	if cfg.CacheTTL > 0 {
		var store cache.Cache
		if cfg.RedisURL != "" {
			r, err := cache.NewRedis(ctx, cfg.RedisURL, redisKeyPrefix)
			if err != nil {
				return nil, nil, fmt.Errorf("identity cache: %w", err)
			}
			store = r
		} else {
			store = cache.NewMemory(cfg.CacheTTL)
		}
		v = NewCached(v, store, cfg.CacheTTL)
		closeFn = store.Close
	}

	return Instrument(v, results), closeFn, nil
}
