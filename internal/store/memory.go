// Package store holds results.Store implementations: an in-process remote,
// an HTTP client with its matching handler, and a caching decorator.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"resultsync/internal/domain"
	"resultsync/internal/query"
)

// Memory is an in-process stand-in for the remote service. It is safe for
// concurrent use.
type Memory struct {
	mu       sync.RWMutex
	entities map[domain.EntityID]domain.Entity
	latency  time.Duration
	failNext error
	searches int
}

// NewMemory creates a remote dataset holding entities
func NewMemory(entities ...domain.Entity) *Memory {
	m := &Memory{entities: make(map[domain.EntityID]domain.Entity, len(entities))}
	for _, e := range entities {
		m.entities[e.ID] = e.Clone()
	}
	return m
}

// SetLatency delays every call by d
func (m *Memory) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// FailNext makes the next Search return err
func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Put adds or replaces an entity on the remote side
func (m *Memory) Put(e domain.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[e.ID] = e.Clone()
}

// Remove deletes an entity on the remote side
func (m *Memory) Remove(id domain.EntityID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[id]; !ok {
		return false
	}
	delete(m.entities, id)
	return true
}

// Searches returns how many searches reached the dataset
func (m *Memory) Searches() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.searches
}

// Search returns every entity of req.EntityType matching req.Predicate,
// sorted by req.SortKeys with the id as last tiebreak
func (m *Memory) Search(ctx context.Context, req query.Request) ([]domain.Entity, error) {
	if err := req.Predicate.Validate(); err != nil {
		return nil, fmt.Errorf("search %s: %w", req.EntityType, err)
	}
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	if err := m.failNext; err != nil {
		m.failNext = nil
		return nil, err
	}

	var out []domain.Entity
	for id, e := range m.entities {
		if id.Type == req.EntityType && req.Predicate.Match(e) {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.ID < out[j].ID.ID })
	query.SortStable(out, req.SortKeys)
	return out, nil
}

// Fetch returns one entity or ErrNotFound
func (m *Memory) Fetch(ctx context.Context, id domain.EntityID) (domain.Entity, error) {
	if err := m.wait(ctx); err != nil {
		return domain.Entity{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[id]
	if !ok {
		return domain.Entity{}, fmt.Errorf("fetch %s: %w", id, ErrNotFound)
	}
	return e.Clone(), nil
}

func (m *Memory) wait(ctx context.Context) error {
	m.mu.RLock()
	d := m.latency
	m.mu.RUnlock()

	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
