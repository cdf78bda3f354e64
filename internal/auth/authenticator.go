package auth

import (
	"context"
	"sync"
	"time"

	"fleet-sentinel/internal/config"
	"fleet-sentinel/internal/store"
)

type cacheEntry struct {
	identity  string
	expiresAt time.Time
}

// Authenticator validates ingest API keys: static config keys first, then an
// in-memory TTL cache, then Redis.
type Authenticator struct {
	localCache sync.Map
	redis      *store.RedisStore
	ttl        time.Duration
	staticKeys map[string]bool
}

func NewAuthenticator(cfg *config.Config, redis *store.RedisStore) *Authenticator {
	staticKeys := make(map[string]bool, len(cfg.ValidAPIKeys))
	for _, k := range cfg.ValidAPIKeys {
		if k != "" {
			staticKeys[k] = true
		}
	}

	return &Authenticator{
		redis:      redis,
		ttl:        time.Duration(cfg.AuthCacheTTLSeconds) * time.Second,
		staticKeys: staticKeys,
	}
}

func (a *Authenticator) Validate(ctx context.Context, apiKey string) bool {
	// Level 0: static config keys
	if a.staticKeys[apiKey] {
		return true
	}

	// Level 1: in-memory cache
	if raw, ok := a.localCache.Load(apiKey); ok {
		entry := raw.(cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			return true
		}
		a.localCache.Delete(apiKey)
	}

	// Level 2: Redis lookup
	identity, err := a.redis.GetAPIKey(ctx, apiKey)
	if err != nil || identity == "" {
		return false
	}

	a.localCache.Store(apiKey, cacheEntry{
		identity:  identity,
		expiresAt: time.Now().Add(a.ttl),
	})

	return true
}
