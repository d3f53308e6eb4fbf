// Copyright © 2025 OpenCHAMI a Series of LF Projects, LLC
//
// SPDX-License-Identifier: MIT

package discovery

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/openchami/pam-oidc/pkg/errors"
	"github.com/openchami/pam-oidc/pkg/jwt"
	"github.com/openchami/pam-oidc/pkg/logging"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCacheSize bounds the number of discovery URLs remembered.
	DefaultCacheSize = 32
	// DefaultMaxAge evicts entries regardless of the TTL a caller asks for.
	DefaultMaxAge = 24 * time.Hour
	// DefaultFetchTimeout bounds a shared fetch started without a deadline.
	DefaultFetchTimeout = 10 * time.Second
)

type entry struct {
	config    *Configuration
	keys      *jwt.KeySet
	fetchedAt time.Time
}

type result struct {
	config *Configuration
	keys   *jwt.KeySet
}

// Cache remembers resolved documents per discovery URL. Concurrent misses
// for the same URL share one fetch; each caller waits at most until its own
// context is done. Failures are never cached.
type Cache struct {
	entries *expirable.LRU[string, entry]
	group   singleflight.Group
	now     func() time.Time
}

// CacheOption configures a Cache
type CacheOption func(*Cache)

// WithCacheClock sets the time source used for freshness checks.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates a cache holding at most size entries, each kept no
// longer than maxAge.
func NewCache(size int, maxAge time.Duration, opts ...CacheOption) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	c := &Cache{
		entries: expirable.NewLRU[string, entry](size, nil, maxAge),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the entry for discoveryURL if it is younger than ttl, and
// otherwise resolves it through source. A ttl of zero bypasses the cache.
func (c *Cache) Resolve(ctx context.Context, source Source, discoveryURL string, ttl time.Duration) (*Configuration, *jwt.KeySet, error) {
	if ttl <= 0 {
		return source.Resolve(ctx, discoveryURL)
	}

	logger := logging.NewStructuredLoggerFromContext(ctx, "discovery-cache").
		WithField("discovery_url", discoveryURL)

	if e, ok := c.entries.Get(discoveryURL); ok && c.now().Sub(e.fetchedAt) < ttl {
		logger.Debug("discovery cache hit")
		return e.config, e.keys, nil
	}

	ch := c.group.DoChan(discoveryURL, func() (interface{}, error) {
		fetchCtx, cancel := sharedContext(ctx)
		defer cancel()

		config, keys, err := source.Resolve(fetchCtx, discoveryURL)
		if err != nil {
			return nil, err
		}
		c.entries.Add(discoveryURL, entry{config: config, keys: keys, fetchedAt: c.now()})
		return result{config: config, keys: keys}, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, nil, res.Err
		}
		if res.Shared {
			logger.Debug("joined in-flight discovery fetch")
		}
		r := res.Val.(result)
		return r.config, r.keys, nil
	case <-ctx.Done():
		return nil, nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "gave up waiting for discovery fetch").
			WithDetails("discovery_url", discoveryURL)
	}
}

// Invalidate drops the entry for discoveryURL.
func (c *Cache) Invalidate(discoveryURL string) {
	c.entries.Remove(discoveryURL)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// sharedContext detaches a fetch from the caller that started it, so that
// caller giving up does not fail the others waiting on the same fetch. The
// caller's deadline, if any, still bounds the fetch.
func sharedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(detached, deadline)
	}
	return context.WithTimeout(detached, DefaultFetchTimeout)
}
