package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resultsync/internal/domain"
	"resultsync/internal/eventbus"
	"resultsync/internal/query"
)

func bug(id uint64, status string, prio int) domain.Entity {
	return domain.Entity{
		ID:     domain.EntityID{Type: "bug", ID: id},
		Fields: map[string]any{"status": status, "prio": prio},
	}
}

func openBugs() query.Local {
	return query.MustNew("bug", query.Where(query.Eq("status", "open")), []query.SortKey{query.Asc("prio")}).Local()
}

func next(t *testing.T, sub domain.Subscription) domain.Change {
	t.Helper()
	select {
	case c, ok := <-sub.Events():
		require.True(t, ok, "events channel closed")
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a change")
	}
	return domain.Change{}
}

func newCache(t *testing.T) *ObjectCache {
	t.Helper()
	bus := eventbus.New()
	t.Cleanup(bus.Close)
	return New(bus)
}

func TestSnapshotIsFilteredAndSorted(t *testing.T) {
	c := newCache(t)
	c.Put(bug(1, "open", 3))
	c.Put(bug(2, "closed", 1))
	c.Put(bug(3, "open", 1))
	c.Put(domain.Entity{ID: domain.EntityID{Type: "task", ID: 4}, Fields: map[string]any{"status": "open"}})

	sub, err := c.Subscribe(openBugs())
	require.NoError(t, err)
	defer sub.Close()

	snap := sub.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, uint64(3), snap[0].ID.ID)
	assert.Equal(t, uint64(1), snap[1].ID.ID)
	assert.False(t, snap[0].CachedAt.IsZero(), "Put stamps CachedAt")
}

func TestSubscriptionTranslatesTransitions(t *testing.T) {
	c := newCache(t)
	c.Put(bug(1, "open", 1))

	sub, err := c.Subscribe(openBugs())
	require.NoError(t, err)
	defer sub.Close()

	c.Put(bug(2, "open", 5))
	got := next(t, sub)
	assert.Equal(t, domain.ChangeInsert, got.Kind)
	assert.Equal(t, uint64(2), got.Entity.ID.ID)

	c.Put(bug(2, "open", 0))
	assert.Equal(t, domain.ChangeUpdate, next(t, sub).Kind)

	c.Put(bug(1, "closed", 1))
	got = next(t, sub)
	assert.Equal(t, domain.ChangeDelete, got.Kind, "leaving the predicate is a delete")
	assert.Equal(t, uint64(1), got.Entity.ID.ID)

	c.Put(bug(3, "closed", 1))
	c.Put(bug(1, "open", 1))
	got = next(t, sub)
	assert.Equal(t, domain.ChangeInsert, got.Kind, "non-matching entity produced no change, re-entry is an insert")
	assert.Equal(t, uint64(1), got.Entity.ID.ID)

	require.True(t, c.Delete(domain.EntityID{Type: "bug", ID: 2}))
	got = next(t, sub)
	assert.Equal(t, domain.ChangeDelete, got.Kind)
	assert.Equal(t, uint64(2), got.Entity.ID.ID)
	assert.False(t, c.Delete(domain.EntityID{Type: "bug", ID: 2}))
}

func TestRefreshSkipsUnchangedFields(t *testing.T) {
	c := newCache(t)
	clock := time.Unix(1_000_000, 0)
	c.now = func() time.Time { return clock }
	c.Put(bug(1, "open", 1))

	sub, err := c.Subscribe(openBugs())
	require.NoError(t, err)
	defer sub.Close()

	clock = clock.Add(time.Hour)
	assert.False(t, c.Refresh(bug(1, "open", 1)), "same fields publish nothing")
	got, ok := c.Get(domain.EntityID{Type: "bug", ID: 1})
	require.True(t, ok)
	assert.Equal(t, clock, got.CachedAt, "cache time still moves")

	assert.True(t, c.Refresh(bug(1, "open", 2)))
	change := next(t, sub)
	assert.Equal(t, domain.ChangeUpdate, change.Kind, "first event is the real change")
	assert.Equal(t, 2, change.Entity.Field("prio"))

	assert.True(t, c.Refresh(bug(4, "open", 0)), "unknown entities are stored")
	assert.Equal(t, domain.ChangeInsert, next(t, sub).Kind)
}

func TestSubscribeErrors(t *testing.T) {
	c := newCache(t)

	_, err := c.Subscribe(query.Local{})
	require.Error(t, err)

	_, err = c.Subscribe(query.Local{EntityType: "bug", Predicate: query.Where(query.Condition{Field: "x", Op: "??"})})
	require.ErrorIs(t, err, query.ErrConfiguration)

	_, err = New(nil).Subscribe(openBugs())
	require.Error(t, err, "a cache without a bus cannot report changes")

	c.Close()
	_, err = c.Subscribe(openBugs())
	require.ErrorIs(t, err, ErrClosed)
}

func TestCloseEndsEvents(t *testing.T) {
	c := newCache(t)
	sub, err := c.Subscribe(openBugs())
	require.NoError(t, err)

	sub.Close()
	sub.Close()
	_, ok := <-sub.Events()
	assert.False(t, ok)

	// mutations after close must not panic on the closed channel
	c.Put(bug(1, "open", 1))
	time.Sleep(20 * time.Millisecond)
}

func TestUpdateHelper(t *testing.T) {
	c := newCache(t)
	c.Put(bug(1, "open", 1))

	ok := c.Update(domain.EntityID{Type: "bug", ID: 1}, func(e *domain.Entity) {
		e.Fields["prio"] = 9
	})
	require.True(t, ok)
	e, _ := c.Get(domain.EntityID{Type: "bug", ID: 1})
	assert.Equal(t, 9, e.Field("prio"))
	assert.False(t, c.Update(domain.EntityID{Type: "bug", ID: 99}, func(*domain.Entity) {}))
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")

	c := newCache(t)
	c.Put(bug(1, "open", 2))
	c.Put(bug(2, "closed", 1))
	require.NoError(t, c.SaveFile(path))
	before, _ := c.Get(domain.EntityID{Type: "bug", ID: 1})

	restored := newCache(t)
	n, err := restored.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, restored.Len())

	after, ok := restored.Get(domain.EntityID{Type: "bug", ID: 1})
	require.True(t, ok)
	assert.True(t, before.SameFields(after))
	assert.True(t, before.CachedAt.Equal(after.CachedAt), "loading keeps the original stamp")

	n, err = newCache(t).LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Zero(t, n)
}
