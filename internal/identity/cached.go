package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/cache"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/logger"
)

// sharedVerifyTimeout bounds an upstream verification shared by several
// callers. It is detached from each caller's own cancellation.
const sharedVerifyTimeout = 15 * time.Second

// Cached remembers successful verifications for ttl and collapses concurrent
// verifications of the same token into one upstream call. Failures are never
// cached.
type Cached struct {
	next  Verifier
	store cache.Cache
	ttl   time.Duration
	group singleflight.Group
}

func NewCached(next Verifier, store cache.Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, store: store, ttl: ttl}
}

func (c *Cached) Verify(ctx context.Context, token string) (Identity, error) {
	key := cacheKey(token)
	log := logger.From(ctx)

	if raw, err := c.store.Get(ctx, key); err == nil {
		var hit Identity
		if err := json.Unmarshal(raw, &hit); err == nil && hit.ID != "" {
			return hit, nil
		}
	}

	ch := c.group.DoChan(key, func() (any, error) {
		upCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedVerifyTimeout)
		defer cancel()

		id, err := c.next.Verify(upCtx, token)
		if err != nil {
			return Identity{}, err
		}
		raw, err := json.Marshal(id)
		if err == nil {
			err = c.store.Set(upCtx, key, raw, c.ttl)
		}
		if err != nil {
			log.Warn("identity cache write failed", zap.Error(err))
		}
		return id, nil
	})

	select {
	case <-ctx.Done():
		return Identity{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Identity{}, res.Err
		}
		return res.Val.(Identity), nil
	}
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "identity:" + hex.EncodeToString(sum[:])
}
