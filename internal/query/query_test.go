package query

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resultsync/internal/domain"
)

func ent(id uint64, fields map[string]any) domain.Entity {
	return domain.Entity{ID: bugID(id), Fields: fields}
}

func bugID(id uint64) domain.EntityID {
	return domain.EntityID{Type: "bug", ID: id}
}

func TestNewRequiresSortKey(t *testing.T) {
	_, err := New("bug", Predicate{}, nil)
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = New("", Predicate{}, []SortKey{Asc("k")})
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = New("bug", Where(Condition{Field: "k", Op: "like"}), []SortKey{Asc("k")})
	require.ErrorIs(t, err, ErrConfiguration, "unknown op must be rejected")

	require.Panics(t, func() { MustNew("bug", Predicate{}, nil) })
	require.ErrorIs(t, Spec{}.Validate(), ErrConfiguration, "zero spec is invalid")
}

func TestEffectiveOrderPrependsLocalKeys(t *testing.T) {
	s := MustNew("bug", Predicate{}, []SortKey{Asc("id")}, WithLocalSort(Desc("starred")))

	assert.Equal(t, Order{Desc("starred"), Asc("id")}, s.EffectiveOrder())
	assert.Equal(t, Order{Asc("id")}, s.Request().SortKeys, "local keys are not sent to the server")
	assert.Equal(t, s.EffectiveOrder(), s.Local().Order)

	more := s.WithLocalSort(Asc("pinned"))
	assert.Equal(t, Order{Asc("pinned"), Desc("starred"), Asc("id")}, more.EffectiveOrder())
	assert.Equal(t, Order{Desc("starred"), Asc("id")}, s.EffectiveOrder(), "original spec is unchanged")
}

func TestCompareValues(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"nil first", nil, 1, -1},
		{"int vs float", 2, 2.5, -1},
		{"equal cross kind numbers", int64(3), 3.0, 0},
		{"strings", "a", "b", -1},
		{"bools", true, false, 1},
		{"times", now, now.Add(time.Second), -1},
		{"kind order", "a", 1, 1},
		{"large unsigned above small unsigned", uint64(math.MaxUint64), uint64(1), 1},
		{"large unsigned values", uint64(math.MaxInt64 + 1), uint64(math.MaxUint64), -1},
		{"large unsigned above negative", uint64(math.MaxUint64), -1, 1},
		{"signed below large unsigned", int64(math.MaxInt64), uint64(math.MaxInt64 + 1), -1},
		{"small unsigned vs signed", uint32(2), int8(-3), 1},
		{"large unsigned vs float", uint64(math.MaxUint64), 1.5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareValues(tt.a, tt.b))
		})
	}
}

func TestOrderCompareAndStableSort(t *testing.T) {
	order := Order{Asc("k"), Desc("p")}
	list := []domain.Entity{
		ent(1, map[string]any{"k": 2, "p": 1}),
		ent(2, map[string]any{"k": 1, "p": 1}),
		ent(3, map[string]any{"k": 2, "p": 5}),
		ent(4, map[string]any{"k": 1, "p": 1}),
	}
	SortStable(list, order)

	want := []domain.EntityID{bugID(2), bugID(4), bugID(3), bugID(1)}
	if diff := cmp.Diff(want, domain.IDs(list)); diff != "" {
		t.Fatalf("sorted order mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, IsSorted(list, order))
}

func TestDedupeKeepsFirst(t *testing.T) {
	list := []domain.Entity{
		ent(1, map[string]any{"k": 1}),
		ent(2, map[string]any{"k": 2}),
		ent(1, map[string]any{"k": 9}),
	}
	out := Dedupe(list)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Field("k"))
}

func TestSearchPositionAfterEqualRun(t *testing.T) {
	order := Order{Asc("k")}
	list := []domain.Entity{
		ent(1, map[string]any{"k": 1}),
		ent(2, map[string]any{"k": 2}),
		ent(3, map[string]any{"k": 2}),
		ent(4, map[string]any{"k": 3}),
	}
	assert.Equal(t, 3, SearchPosition(list, ent(9, map[string]any{"k": 2}), order))
	assert.Equal(t, 0, SearchPosition(list, ent(9, map[string]any{"k": 0}), order))
	assert.Equal(t, 4, SearchPosition(list, ent(9, map[string]any{"k": 7}), order))
}

func TestPredicateMatch(t *testing.T) {
	e := ent(1, map[string]any{"status": "open", "title": "Crash on Launch", "prio": 3})

	assert.True(t, Predicate{}.Match(e))
	assert.True(t, Where(Eq("status", "open")).Match(e))
	assert.False(t, Where(Eq("status", "closed")).Match(e))
	assert.True(t, Where(Condition{Field: "title", Op: OpContains, Value: "launch"}).Match(e))
	assert.True(t, Where(Condition{Field: "title", Op: OpPrefix, Value: "crash"}).Match(e))
	assert.True(t, Where(Condition{Field: "prio", Op: OpGe, Value: 3.0}).Match(e))
	assert.False(t, Where(Condition{Field: "prio", Op: OpLt, Value: "3"}).Match(e), "kind mismatch never orders")
	assert.True(t, Where(Condition{Field: "missing", Op: OpNe, Value: 1}).Match(e))
	assert.False(t, Where(Eq("status", "open"), Eq("prio", 1)).Match(e), "conditions are a conjunction")
}

func TestParseSortKey(t *testing.T) {
	k, err := ParseSortKey("-updated")
	require.NoError(t, err)
	assert.Equal(t, Desc("updated"), k)
	assert.Equal(t, "-updated", k.String())

	_, err = ParseSortKey(" - ")
	require.ErrorIs(t, err, ErrConfiguration)
}
