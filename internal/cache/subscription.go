package cache

import (
	"fmt"
	"sync"

	"resultsync/internal/domain"
	"resultsync/internal/eventbus"
	"resultsync/internal/query"
)

const subscriptionBuffer = 256

// subscription translates cache events into change events for one query.
// Handlers run on the bus dispatcher, so membership needs no extra locking
// beyond the send guard.
type subscription struct {
	local    query.Local
	snapshot []domain.Entity
	since    uint64
	members  map[domain.EntityID]bool

	events chan domain.Change
	done   chan struct{}

	mu          sync.Mutex
	closed      bool
	closeOnce   sync.Once
	unsubscribe []func()
}

// Subscribe starts a live view of entities matching local. The snapshot is
// sorted by local.Order; later changes arrive on Events.
func (c *ObjectCache) Subscribe(local query.Local) (domain.Subscription, error) {
	if local.EntityType == "" {
		return nil, fmt.Errorf("subscribe: entity type is required")
	}
	if err := local.Predicate.Validate(); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	if c.bus == nil {
		return nil, fmt.Errorf("subscribe: cache has no event bus")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}

	s := &subscription{
		local:   local,
		since:   c.version,
		members: make(map[domain.EntityID]bool),
		events:  make(chan domain.Change, subscriptionBuffer),
		done:    make(chan struct{}),
	}
	for _, e := range c.allLocked(local.EntityType) {
		if local.Predicate.Match(e) {
			s.snapshot = append(s.snapshot, e)
			s.members[e.ID] = true
		}
	}
	query.SortStable(s.snapshot, local.Order)

	// registered while holding the read lock: no mutation can slip between
	// the snapshot and the subscription, and queued older events are skipped
	// by version
	s.unsubscribe = []func(){
		c.bus.Subscribe(eventbus.EventEntityStored, s.onStored),
		c.bus.Subscribe(eventbus.EventEntityRemoved, s.onRemoved),
	}
	return s, nil
}

func (s *subscription) Snapshot() []domain.Entity {
	out := make([]domain.Entity, len(s.snapshot))
	for i, e := range s.snapshot {
		out[i] = e.Clone()
	}
	return out
}

func (s *subscription) Events() <-chan domain.Change { return s.events }

// Close unsubscribes and closes the events channel
func (s *subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()
		for _, unsubscribe := range s.unsubscribe {
			unsubscribe()
		}
	})
}

func (s *subscription) onStored(ev eventbus.DomainEvent) {
	e, ok := ev.(eventbus.EntityStoredEvent)
	if !ok || e.Version <= s.since || e.Entity.ID.Type != s.local.EntityType {
		return
	}
	known := s.members[e.Entity.ID]
	matches := s.local.Predicate.Match(e.Entity)

	switch {
	case matches && !known:
		s.members[e.Entity.ID] = true
		s.send(domain.Change{Kind: domain.ChangeInsert, Entity: e.Entity, From: -1, To: -1})
	case matches && known:
		s.send(domain.Change{Kind: domain.ChangeUpdate, Entity: e.Entity, From: -1, To: -1})
	case !matches && known:
		delete(s.members, e.Entity.ID)
		s.send(domain.Change{Kind: domain.ChangeDelete, Entity: e.Entity, From: -1, To: -1})
	}
}

func (s *subscription) onRemoved(ev eventbus.DomainEvent) {
	e, ok := ev.(eventbus.EntityRemovedEvent)
	if !ok || e.Version <= s.since || !s.members[e.Entity.ID] {
		return
	}
	delete(s.members, e.Entity.ID)
	s.send(domain.Change{Kind: domain.ChangeDelete, Entity: e.Entity, From: -1, To: -1})
}

func (s *subscription) send(c domain.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- c:
	case <-s.done:
	}
}
