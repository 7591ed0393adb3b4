package gateway

import (
	"context"
	"sync"
	"time"
)

// refreshMargin is how long before the real expiry a cached token is treated
// as stale.
const refreshMargin = 5 * time.Minute

// tokenCache holds one bearer token for the whole process. The mutex is held
// across the refresh call, so concurrent callers wait for a single refresh
// instead of each issuing their own login request.
type tokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
	fetch     func(ctx context.Context) (string, time.Duration, error)
}

func newTokenCache(fetch func(ctx context.Context) (string, time.Duration, error), now func() time.Time) *tokenCache {
	return &tokenCache{
		now:   now,
		fetch: fetch,
	}
}

func (c *tokenCache) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Add(refreshMargin).Before(c.expiresAt) {
		return c.token, nil
	}

	token, ttl, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiresAt = c.now().Add(ttl)
	return token, nil
}
