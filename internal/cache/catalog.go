// Package cache keeps fetched catalogs for a bounded interval: an in-process
// LRU with expiry in front of an optional shared Redis tier.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bluele/gcache"

	"ygnbus/internal/domain"
)

// Source fetches catalogs from the remote service.
type Source interface {
	FetchStops(ctx context.Context) ([]domain.Stop, error)
	FetchLines(ctx context.Context) ([]domain.Line, error)
}

// Remote is a shared cache tier.
type Remote interface {
	Store(ctx context.Context, key string, value any, ttl time.Duration) error
	Load(ctx context.Context, key string, dest any) (bool, error)
	Invalidate(ctx context.Context, keys ...string) error
}

type Stats struct {
	Hits       int64 `json:"hits"`
	RemoteHits int64 `json:"remote_hits"`
	Misses     int64 `json:"misses"`
}

// Catalog wraps a Source and serves repeated fetches from cache until the
// TTL elapses. A failing remote tier only degrades to the source.
type Catalog struct {
	source Source
	local  gcache.Cache
	remote Remote
	ttl    time.Duration
	logger *slog.Logger

	hits       atomic.Int64
	remoteHits atomic.Int64
	misses     atomic.Int64
}

func NewCatalog(source Source, remote Remote, size int, ttl time.Duration, logger *slog.Logger) *Catalog {
	builder := gcache.New(size).LRU()
	if ttl > 0 {
		builder = builder.Expiration(ttl)
	}
	return &Catalog{
		source: source,
		local:  builder.Build(),
		remote: remote,
		ttl:    ttl,
		logger: logger.With("component", "catalog_cache"),
	}
}

func (c *Catalog) FetchStops(ctx context.Context) ([]domain.Stop, error) {
	return fetch(ctx, c, KeyStops, c.source.FetchStops)
}

func (c *Catalog) FetchLines(ctx context.Context) ([]domain.Line, error) {
	return fetch(ctx, c, KeyLines, c.source.FetchLines)
}

// Invalidate drops both tiers so the next fetch reaches the source.
func (c *Catalog) Invalidate(ctx context.Context) error {
	c.local.Purge()
	if c.remote == nil {
		return nil
	}
	if err := c.remote.Invalidate(ctx, KeyStops, KeyLines); err != nil {
		return fmt.Errorf("invalidating remote cache: %w", err)
	}
	return nil
}

func (c *Catalog) Stats() Stats {
	return Stats{
		Hits:       c.hits.Load(),
		RemoteHits: c.remoteHits.Load(),
		Misses:     c.misses.Load(),
	}
}

func fetch[T any](ctx context.Context, c *Catalog, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	if v, err := c.local.Get(key); err == nil {
		if items, ok := v.([]T); ok {
			c.hits.Add(1)
			return items, nil
		}
	}

	if c.remote != nil {
		var items []T
		found, err := c.remote.Load(ctx, key, &items)
		if err != nil {
			c.logger.Warn("remote cache read failed", "key", key, "error", err)
		} else if found {
			c.remoteHits.Add(1)
			c.storeLocal(key, items)
			return items, nil
		}
	}

	c.misses.Add(1)
	items, err := load(ctx)
	if err != nil {
		return nil, err
	}

	c.storeLocal(key, items)
	if c.remote != nil {
		if err := c.remote.Store(ctx, key, items, c.ttl); err != nil {
			c.logger.Warn("remote cache write failed", "key", key, "error", err)
		}
	}
	return items, nil
}

func (c *Catalog) storeLocal(key string, value any) {
	if err := c.local.Set(key, value); err != nil {
		c.logger.Debug("local cache write failed", "key", key, "error", err)
	}
}
