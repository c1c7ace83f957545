// Package results keeps a sorted, duplicate-free list of entities in sync with
// a remote search and the local object cache, reporting every change as a
// minimal insert/delete/update/move script.
package results

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"sync/atomic"

	"resultsync/internal/domain"
	"resultsync/internal/query"
)

// Store is the remote data access object. Search and Fetch block until the
// remote call finishes or ctx ends.
type Store interface {
	Search(ctx context.Context, req query.Request) ([]domain.Entity, error)
	Fetch(ctx context.Context, id domain.EntityID) (domain.Entity, error)
}

// LocalSource opens live subscriptions over the local object cache
type LocalSource interface {
	Subscribe(local query.Local) (domain.Subscription, error)
}

// Option configures a Controller
type Option func(*Controller)

// WithObserver sets the initial observer
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.SetObserver(o) }
}

// WithLocalSource enables LoadLocalCache
func WithLocalSource(src LocalSource) Option {
	return func(c *Controller) { c.local = src }
}

// WithLocalSort prepends client-only sort keys to the query's effective order
func WithLocalSort(keys ...query.SortKey) Option {
	return func(c *Controller) { c.localKeys = append(c.localKeys, keys...) }
}

// WithExecutor replaces the default owning goroutine
func WithExecutor(ex Executor) Option {
	return func(c *Controller) { c.exec = ex }
}

// WithLocalBrackets wraps every local change in WillChangeContent/DidChangeContent
func WithLocalBrackets() Option {
	return func(c *Controller) { c.bracketLocal = true }
}

type observerBox struct{ o Observer }

// Controller owns one query and the ordered result list it produces.
//
// All list mutations and observer callbacks happen on the owning executor.
// Count, ObjectAt, Objects and IndexOf may be called from any goroutine.
type Controller struct {
	spec         query.Spec
	order        query.Order
	store        Store
	local        LocalSource
	localKeys    []query.SortKey
	exec         Executor
	queue        *serialQueue // set when exec is the default queue
	bracketLocal bool

	mu      sync.RWMutex
	objects []domain.Entity

	observer atomic.Pointer[observerBox]
	closed   atomic.Bool
	seq      atomic.Uint64

	// owned by exec
	sub domain.Subscription
}

// New builds a controller for spec. Spec must carry at least one server sort
// key; the query cannot be changed afterwards.
func New(spec query.Spec, store Store, opts ...Option) (*Controller, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("results controller: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("results controller: %w: store is required", query.ErrConfiguration)
	}

	c := &Controller{
		spec:  spec,
		store: store,
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.localKeys) > 0 {
		c.spec = c.spec.WithLocalSort(c.localKeys...)
	}
	if err := c.spec.Validate(); err != nil {
		return nil, fmt.Errorf("results controller: %w", err)
	}
	c.order = c.spec.EffectiveOrder()
	if c.exec == nil {
		c.queue = newSerialQueue()
		c.exec = c.queue
	}
	return c, nil
}

// MustNew is New that panics on a configuration error
func MustNew(spec query.Spec, store Store, opts ...Option) *Controller {
	c, err := New(spec, store, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Spec returns the query including any local sort keys
func (c *Controller) Spec() query.Spec { return c.spec }

// SetObserver replaces the observer; nil detaches
func (c *Controller) SetObserver(o Observer) {
	if o == nil {
		c.observer.Store(nil)
		return
	}
	c.observer.Store(&observerBox{o: o})
}

// Detach drops the observer. No callback starts after Detach returns; one
// already running may finish. Safe to call from inside a callback.
func (c *Controller) Detach() {
	c.observer.Store(nil)
}

func (c *Controller) currentObserver() Observer {
	if b := c.observer.Load(); b != nil {
		return b.o
	}
	return nil
}

// Count returns the length of the ordered result list
func (c *Controller) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}

// ObjectAt returns the entity at position i
func (c *Controller) ObjectAt(i int) (domain.Entity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.objects) {
		return domain.Entity{}, &IndexError{Index: i, Count: len(c.objects)}
	}
	return c.objects[i].Clone(), nil
}

// Objects returns a copy of the ordered result list
func (c *Controller) Objects() []domain.Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Entity, len(c.objects))
	for i, e := range c.objects {
		out[i] = e.Clone()
	}
	return out
}

// IndexOf returns the position of id, -1 if absent
func (c *Controller) IndexOf(id domain.EntityID) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexOfLocked(id)
}

func (c *Controller) indexOfLocked(id domain.EntityID) int {
	return slices.IndexFunc(c.objects, func(e domain.Entity) bool { return e.ID == id })
}

// LoadLocalCache (re)subscribes to the local cache and replaces the list with
// the entities already cached, reported as one bracketed pass. Later local
// changes flow in as single-entity changes. It waits for the owning context,
// so it must not be called from an observer callback.
func (c *Controller) LoadLocalCache() error {
	if c.closed.Load() {
		return &SubscriptionError{EntityType: c.spec.EntityType(), Err: ErrClosed}
	}
	if c.local == nil {
		return &SubscriptionError{EntityType: c.spec.EntityType(), Err: ErrNoLocalSource}
	}

	var err error
	done := make(chan struct{})
	accepted := c.exec.Do(func() {
		defer close(done)
		if c.closed.Load() {
			err = &SubscriptionError{EntityType: c.spec.EntityType(), Err: ErrClosed}
			return
		}
		if c.sub != nil {
			c.sub.Close()
			c.sub = nil
		}

		sub, subErr := c.local.Subscribe(c.spec.Local())
		if subErr != nil {
			err = &SubscriptionError{EntityType: c.spec.EntityType(), Err: subErr}
			return
		}
		c.sub = sub

		next := c.prepare(sub.Snapshot())
		log.Printf("results: loaded %d cached %s entities", len(next), c.spec.EntityType())
		c.applyBatch(next)

		go c.pump(sub)
	})
	if !accepted {
		return &SubscriptionError{EntityType: c.spec.EntityType(), Err: ErrClosed}
	}
	<-done
	return err
}

// pump forwards one subscription's changes to the owning context until the
// subscription is closed or replaced
func (c *Controller) pump(sub domain.Subscription) {
	for change := range sub.Events() {
		ok := c.exec.Do(func() {
			if c.closed.Load() || c.sub != sub {
				return
			}
			c.applyLocal(change)
		})
		if !ok {
			return
		}
	}
}

// PerformSearch starts one remote search and returns immediately. The outcome
// arrives through DidPerformSearch. Overlapping searches are neither merged nor
// cancelled; the last one to complete decides membership.
func (c *Controller) PerformSearch(ctx context.Context) {
	seq := c.seq.Add(1)
	if c.closed.Load() {
		return
	}
	req := c.spec.Request()

	go func() {
		found, err := c.store.Search(ctx, req)
		c.exec.Do(func() {
			if c.closed.Load() {
				return
			}
			if err != nil {
				log.Printf("results: search #%d for %s failed: %v", seq, req.EntityType, err)
				c.searchDone(&SearchError{Seq: seq, EntityType: req.EntityType, Err: err})
				return
			}

			next := c.prepare(found)
			log.Printf("results: search #%d for %s returned %d entities", seq, req.EntityType, len(next))
			c.applyBatch(next)
			c.searchDone(nil)
		})
	}()
}

func (c *Controller) searchDone(err error) {
	if o := c.currentObserver(); o != nil {
		o.DidPerformSearch(c, err)
	}
}

// prepare dedupes (first seen wins) and sorts a fresh membership list
func (c *Controller) prepare(list []domain.Entity) []domain.Entity {
	out := make([]domain.Entity, 0, len(list))
	for _, e := range query.Dedupe(list) {
		out = append(out, e.Clone())
	}
	query.SortStable(out, c.order)
	return out
}

// applyBatch replaces the list with next and reports the edit script inside
// exactly one bracket, even when the script is empty
func (c *Controller) applyBatch(next []domain.Entity) {
	changes := Reconcile(c.objects, next)

	c.mu.Lock()
	c.objects = next
	c.mu.Unlock()

	o := c.currentObserver()
	if o == nil {
		return
	}
	o.WillChangeContent(c)
	for _, change := range changes {
		if o = c.currentObserver(); o == nil {
			return
		}
		notify(o, change)
	}
	if o = c.currentObserver(); o != nil {
		o.DidChangeContent(c)
	}
}

// applyLocal reconciles one change from the local subscription
func (c *Controller) applyLocal(change domain.Change) {
	var out domain.Change
	var emit bool

	c.mu.Lock()
	idx := c.indexOfLocked(change.Entity.ID)
	switch change.Kind {
	case domain.ChangeDelete:
		if idx >= 0 {
			out, emit = domain.Deleted(c.objects[idx], idx), true
			c.objects = slices.Delete(c.objects, idx, idx+1)
		}
	default:
		e := change.Entity.Clone()
		if idx >= 0 {
			out, emit = c.relocateLocked(idx, e), true
		} else {
			to := query.SearchPosition(c.objects, e, c.order)
			c.objects = slices.Insert(c.objects, to, e)
			out, emit = domain.Inserted(e, to), true
		}
	}
	c.mu.Unlock()

	if !emit {
		return
	}
	o := c.currentObserver()
	if o == nil {
		return
	}
	if c.bracketLocal {
		o.WillChangeContent(c)
	}
	notify(o, out)
	if c.bracketLocal {
		if o = c.currentObserver(); o != nil {
			o.DidChangeContent(c)
		}
	}
}

// relocateLocked stores the new snapshot at idx. If it still sorts between its
// neighbours it stays and the change is an Update, otherwise it is moved.
func (c *Controller) relocateLocked(idx int, e domain.Entity) domain.Change {
	c.objects[idx] = e
	if c.inPlaceLocked(idx) {
		return domain.Updated(e, idx)
	}
	c.objects = slices.Delete(c.objects, idx, idx+1)
	to := query.SearchPosition(c.objects, e, c.order)
	c.objects = slices.Insert(c.objects, to, e)
	return domain.Moved(e, idx, to)
}

func (c *Controller) inPlaceLocked(idx int) bool {
	e := c.objects[idx]
	if idx > 0 && c.order.Compare(c.objects[idx-1], e) > 0 {
		return false
	}
	if idx < len(c.objects)-1 && c.order.Compare(e, c.objects[idx+1]) > 0 {
		return false
	}
	return true
}

// Close unsubscribes from the local cache, detaches the observer and stops the
// owning goroutine. Searches still in flight are discarded when they finish.
// Like LoadLocalCache it waits for the owning context.
func (c *Controller) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.Detach()

	done := make(chan struct{})
	if c.exec.Do(func() {
		defer close(done)
		if c.sub != nil {
			c.sub.Close()
			c.sub = nil
		}
	}) {
		<-done
	}
	if c.queue != nil {
		c.queue.stop()
	}
}
