// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"

	"github.com/Originate-Group/common-mcp-submodule/internal/log"
)

const (
	// defaultKeySetTTL is how long a fetched key set is considered fresh.
	defaultKeySetTTL = 10 * time.Minute
	// defaultFetchTimeout bounds a single JWKS fetch.
	defaultFetchTimeout = 5 * time.Second
)

// ErrKeyNotFound reports that a key id is absent from the key set even after
// a refresh.
var ErrKeyNotFound = errors.New("key not found in JWKS")

// keySetSnapshot is an immutable fetched key set. Readers load it through an
// atomic pointer and never mutate it.
type keySetSnapshot struct {
	set       jwk.Set
	fetchedAt time.Time
}

// KeySetCache caches a remote JWKS document. Reads are lock-free; a stale set
// keeps serving while one goroutine refreshes it in the background, so token
// verification latency does not spike when the TTL lapses. Only an unknown
// key id forces a synchronous refresh.
type KeySetCache struct {
	url          string
	ttl          time.Duration
	fetchTimeout time.Duration
	httpClient   *http.Client
	logger       log.Logger

	snapshot   atomic.Pointer[keySetSnapshot]
	group      singleflight.Group
	refreshing atomic.Bool
}

// KeySetCacheOption configures a KeySetCache.
type KeySetCacheOption func(*KeySetCache)

// WithKeySetTTL sets the freshness window of a fetched key set.
func WithKeySetTTL(ttl time.Duration) KeySetCacheOption {
	return func(c *KeySetCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithFetchTimeout bounds a single JWKS fetch.
func WithFetchTimeout(timeout time.Duration) KeySetCacheOption {
	return func(c *KeySetCache) {
		if timeout > 0 {
			c.fetchTimeout = timeout
		}
	}
}

// WithHTTPClient sets the HTTP client used for JWKS fetches.
func WithHTTPClient(client *http.Client) KeySetCacheOption {
	return func(c *KeySetCache) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCacheLogger sets the logger.
func WithCacheLogger(logger log.Logger) KeySetCacheOption {
	return func(c *KeySetCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewKeySetCache creates a cache for the JWKS document at url. No fetch
// happens until the first Get or Lookup.
func NewKeySetCache(url string, opts ...KeySetCacheOption) *KeySetCache {
	c := &KeySetCache{
		url:          url,
		ttl:          defaultKeySetTTL,
		fetchTimeout: defaultFetchTimeout,
		httpClient:   http.DefaultClient,
		logger:       log.NewZapLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached key set, fetching it on first use. A stale set is
// returned immediately while a background refresh runs.
func (c *KeySetCache) Get(ctx context.Context) (jwk.Set, error) {
	snap := c.snapshot.Load()
	if snap == nil {
		return c.refresh(ctx)
	}
	if time.Since(snap.fetchedAt) > c.ttl {
		c.refreshAsync(ctx)
	}
	return snap.set, nil
}

// Lookup returns the key with the given id. An unknown id triggers one
// synchronous refresh before failing, so rotated signing keys are picked up
// without waiting for the TTL.
func (c *KeySetCache) Lookup(ctx context.Context, kid string) (jwk.Key, error) {
	set, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	if key, ok := set.LookupKeyID(kid); ok {
		return key, nil
	}

	set, err = c.refresh(ctx)
	if err != nil {
		return nil, err
	}
	if key, ok := set.LookupKeyID(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: kid=%s", ErrKeyNotFound, kid)
}

// refresh fetches the key set, deduplicating concurrent callers. On fetch
// failure an existing snapshot keeps serving.
func (c *KeySetCache) refresh(ctx context.Context) (jwk.Set, error) {
	result, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		// The fetch outlives any single caller; cancellation of one
		// request must not fail the others sharing this flight.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		set, err := jwk.Fetch(fetchCtx, c.url, jwk.WithHTTPClient(c.httpClient))
		if err != nil {
			if snap := c.snapshot.Load(); snap != nil {
				c.logger.Warnf("JWKS refresh failed, serving stale key set: url=%s error=%v", c.url, err)
				return snap.set, nil
			}
			return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", c.url, err)
		}

		c.snapshot.Store(&keySetSnapshot{set: set, fetchedAt: time.Now()})
		c.logger.Debugf("JWKS refreshed: url=%s keys=%d", c.url, set.Len())
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(jwk.Set), nil
}

// refreshAsync starts a background refresh unless one is already running.
func (c *KeySetCache) refreshAsync(ctx context.Context) {
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		defer c.refreshing.Store(false)
		if _, err := c.refresh(detached); err != nil {
			c.logger.Warnf("background JWKS refresh failed: url=%s error=%v", c.url, err)
		}
	}()
}
