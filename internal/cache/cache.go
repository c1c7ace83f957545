// Package cache is the local object cache: entities keyed by type and id,
// with live subscriptions that report every change to matching entities.
package cache

import (
	"errors"
	"sort"
	"sync"
	"time"

	"resultsync/internal/domain"
	"resultsync/internal/eventbus"
)

// ErrClosed is returned by Subscribe after Close
var ErrClosed = errors.New("object cache closed")

// ObjectCache is an in-memory entity store publishing its mutations on a bus.
// It is safe for concurrent use.
type ObjectCache struct {
	mu       sync.RWMutex
	entities map[domain.EntityID]domain.Entity
	version  uint64
	closed   bool

	bus eventbus.EventBus
	now func() time.Time
}

// New creates an empty cache publishing on bus
func New(bus eventbus.EventBus) *ObjectCache {
	return &ObjectCache{
		entities: make(map[domain.EntityID]domain.Entity),
		bus:      bus,
		now:      time.Now,
	}
}

// Get returns a copy of the cached entity
func (c *ObjectCache) Get(id domain.EntityID) (domain.Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entities[id]
	if !ok {
		return domain.Entity{}, false
	}
	return e.Clone(), true
}

// All returns every cached entity of one type ordered by id
func (c *ObjectCache) All(entityType string) []domain.Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.allLocked(entityType)
}

func (c *ObjectCache) allLocked(entityType string) []domain.Entity {
	out := make([]domain.Entity, 0)
	for id, e := range c.entities {
		if entityType == "" || id.Type == entityType {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID.Type != out[j].ID.Type {
			return out[i].ID.Type < out[j].ID.Type
		}
		return out[i].ID.ID < out[j].ID.ID
	})
	return out
}

// Len returns the number of cached entities
func (c *ObjectCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entities)
}

// Put inserts or overwrites an entity and stamps CachedAt
func (c *ObjectCache) Put(e domain.Entity) {
	e = e.Clone()
	e.CachedAt = c.now()
	c.store(e)
}

// Refresh stores e like Put unless the cached copy already has the same
// fields. Then only CachedAt moves and nothing is published. It reports
// whether an event was published.
func (c *ObjectCache) Refresh(e domain.Entity) bool {
	c.mu.Lock()
	cur, ok := c.entities[e.ID]
	if ok && cur.SameFields(e) {
		cur.CachedAt = c.now()
		c.entities[e.ID] = cur
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()
	c.Put(e)
	return true
}

// PutAll stores entities in order
func (c *ObjectCache) PutAll(entities []domain.Entity) {
	for _, e := range entities {
		c.Put(e)
	}
}

// store keeps CachedAt as given. The event is published under the lock so bus
// order matches mutation order.
func (c *ObjectCache) store(e domain.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, existed := c.entities[e.ID]
	c.entities[e.ID] = e
	c.version++
	if c.bus != nil {
		c.bus.Publish(eventbus.EntityStoredEvent{Entity: e.Clone(), Created: !existed, Version: c.version})
	}
}

// Delete removes an entity, reporting whether it was present
func (c *ObjectCache) Delete(id domain.EntityID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entities[id]
	if !ok {
		return false
	}
	delete(c.entities, id)
	c.version++
	if c.bus != nil {
		c.bus.Publish(eventbus.EntityRemovedEvent{Entity: e, Version: c.version})
	}
	return true
}

// Update applies fn to a copy of the cached entity and stores the result
func (c *ObjectCache) Update(id domain.EntityID, fn func(*domain.Entity)) bool {
	e, ok := c.Get(id)
	if !ok {
		return false
	}
	fn(&e)
	e.ID = id
	c.Put(e)
	return true
}

// Close rejects new subscriptions. Existing ones keep running until closed.
func (c *ObjectCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
