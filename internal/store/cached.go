package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"resultsync/internal/domain"
	"resultsync/internal/query"
	"resultsync/internal/results"
)

const (
	defaultFetchCacheSize = 512
	defaultFetchTTL       = time.Minute
	defaultFetchWorkers   = 4
)

// CachedConfig configures the fetch cache
type CachedConfig struct {
	// Size is the number of entities kept by the LRU
	Size int
	// TTL is how long a fetched entity is served without asking the remote
	TTL time.Duration
	// Workers bounds FetchMany concurrency
	Workers int
}

// Sink receives everything the remote returns. *cache.ObjectCache satisfies it.
type Sink interface {
	Put(e domain.Entity)
	// Refresh stores e without notifying anyone when nothing but the
	// cache time changed
	Refresh(e domain.Entity) bool
}

type fetched struct {
	entity   domain.Entity
	storedAt time.Time
}

// Cached decorates a Store with a TTL fetch cache and optional write-through
// of search and fetch results into a Sink
type Cached struct {
	next    results.Store
	sink    Sink
	lru     *lru.Cache[domain.EntityID, fetched]
	ttl     time.Duration
	workers int
	group   singleflight.Group
	now     func() time.Time
}

// NewCached wraps next. Zero config values fall back to defaults; sink may be nil.
func NewCached(next results.Store, sink Sink, cfg CachedConfig) (*Cached, error) {
	if next == nil {
		return nil, fmt.Errorf("cached store: %w: store is required", query.ErrConfiguration)
	}
	if cfg.Size <= 0 {
		cfg.Size = defaultFetchCacheSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultFetchTTL
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultFetchWorkers
	}
	cache, err := lru.New[domain.EntityID, fetched](cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("cached store: %w", err)
	}
	return &Cached{
		next:    next,
		sink:    sink,
		lru:     cache,
		ttl:     cfg.TTL,
		workers: cfg.Workers,
		now:     time.Now,
	}, nil
}

// Search always asks the remote and refreshes the fetch cache with the answer.
// Unchanged entities are not republished to the sink.
func (c *Cached) Search(ctx context.Context, req query.Request) ([]domain.Entity, error) {
	found, err := c.next.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	now := c.now()
	for _, e := range found {
		c.lru.Add(e.ID, fetched{entity: e.Clone(), storedAt: now})
		if c.sink != nil {
			c.sink.Refresh(e)
		}
	}
	return found, nil
}

// Fetch serves fresh entries from the LRU. Concurrent misses for one identity
// share a single remote call.
func (c *Cached) Fetch(ctx context.Context, id domain.EntityID) (domain.Entity, error) {
	if entry, ok := c.lru.Get(id); ok {
		if c.now().Sub(entry.storedAt) < c.ttl {
			return entry.entity.Clone(), nil
		}
		c.lru.Remove(id)
	}

	v, err, shared := c.group.Do(id.String(), func() (any, error) {
		e, err := c.next.Fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		c.lru.Add(id, fetched{entity: e.Clone(), storedAt: c.now()})
		if c.sink != nil {
			c.sink.Put(e)
		}
		return e, nil
	})
	if err != nil {
		return domain.Entity{}, err
	}
	if shared {
		log.Printf("store: fetch %s shared with a concurrent caller", id)
	}
	return v.(domain.Entity).Clone(), nil
}

// FetchMany fetches ids concurrently and returns them in input order. The
// first failure cancels the rest.
func (c *Cached) FetchMany(ctx context.Context, ids []domain.EntityID) ([]domain.Entity, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	out := make([]domain.Entity, len(ids))
	for i, id := range ids {
		g.Go(func() error {
			e, err := c.Fetch(ctx, id)
			if err != nil {
				return err
			}
			out[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate drops id from the fetch cache
func (c *Cached) Invalidate(id domain.EntityID) {
	c.lru.Remove(id)
}

// Len returns the number of entries in the fetch cache, fresh or not
func (c *Cached) Len() int {
	return c.lru.Len()
}

// Snapshotter is the local cache view RefreshStale works on
type Snapshotter interface {
	All(entityType string) []domain.Entity
	Delete(id domain.EntityID) bool
}

// RefreshStale refetches every local entity of entityType cached longer than
// maxAge ago. Entities the remote no longer knows are deleted locally. It
// returns the number of entities refreshed or deleted.
func (c *Cached) RefreshStale(ctx context.Context, local Snapshotter, entityType string, maxAge time.Duration) (int, error) {
	if c.sink == nil {
		return 0, fmt.Errorf("refresh stale %s: %w: no sink to write to", entityType, query.ErrConfiguration)
	}
	cutoff := c.now().Add(-maxAge)
	var stale []domain.EntityID
	for _, e := range local.All(entityType) {
		if e.CachedAt.Before(cutoff) {
			stale = append(stale, e.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, id := range stale {
		c.Invalidate(id)
		g.Go(func() error {
			_, err := c.Fetch(ctx, id)
			if errors.Is(err, ErrNotFound) {
				local.Delete(id)
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("refresh stale %s: %w", entityType, err)
	}
	log.Printf("store: refreshed %d stale %s entities", len(stale), entityType)
	return len(stale), nil
}
