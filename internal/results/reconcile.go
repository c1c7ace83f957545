package results

import (
	"fmt"
	"slices"
	"sort"

	"resultsync/internal/domain"
)

// Reconcile computes the edit script turning old into next. Both lists must be
// duplicate free and sorted by the same order.
//
// Changes are ordered deletes (highest index first), moves, inserts (lowest
// final index first), then updates at final indices. Every index refers to the
// list as left by the changes before it, so Apply(old, Reconcile(old, next))
// equals next. Survivors on the longest increasing run of final positions stay
// put; every other survivor gets exactly one Move.
func Reconcile(old, next []domain.Entity) []domain.Change {
	nextIndex := make(map[domain.EntityID]int, len(next))
	for i, e := range next {
		nextIndex[e.ID] = i
	}
	oldByID := make(map[domain.EntityID]domain.Entity, len(old))
	for _, e := range old {
		oldByID[e.ID] = e
	}

	var changes []domain.Change

	for i := len(old) - 1; i >= 0; i-- {
		if _, ok := nextIndex[old[i].ID]; !ok {
			changes = append(changes, domain.Deleted(old[i], i))
		}
	}

	work := make([]domain.EntityID, 0, len(old))
	for _, e := range old {
		if _, ok := nextIndex[e.ID]; ok {
			work = append(work, e.ID)
		}
	}

	targets := make([]int, len(work))
	for i, id := range work {
		targets[i] = nextIndex[id]
	}
	keep := increasingRun(targets)

	settled := make(map[domain.EntityID]bool, len(work))
	var displaced []domain.EntityID
	for i, id := range work {
		if keep[i] {
			settled[id] = true
		} else {
			displaced = append(displaced, id)
		}
	}
	sort.Slice(displaced, func(i, j int) bool {
		return nextIndex[displaced[i]] < nextIndex[displaced[j]]
	})

	moved := make(map[domain.EntityID]bool, len(displaced))
	for _, id := range displaced {
		from := slices.Index(work, id)
		work = slices.Delete(work, from, from+1)

		to := 0
		for j := nextIndex[id] - 1; j >= 0; j-- {
			if settled[next[j].ID] {
				to = slices.Index(work, next[j].ID) + 1
				break
			}
		}
		work = slices.Insert(work, to, id)
		settled[id] = true

		if from != to {
			moved[id] = true
			changes = append(changes, domain.Moved(next[nextIndex[id]], from, to))
		}
	}

	for i, e := range next {
		if _, ok := oldByID[e.ID]; !ok {
			changes = append(changes, domain.Inserted(e, i))
		}
	}

	for i, e := range next {
		prev, ok := oldByID[e.ID]
		if ok && !moved[e.ID] && !prev.SameFields(e) {
			changes = append(changes, domain.Updated(e, i))
		}
	}

	return changes
}

// increasingRun marks one longest strictly increasing subsequence of values.
// Ties between equally long runs resolve the same way for the same input.
func increasingRun(values []int) []bool {
	keep := make([]bool, len(values))
	if len(values) == 0 {
		return keep
	}

	// tails[k] is the index of the smallest tail of a run of length k+1
	tails := make([]int, 0, len(values))
	prev := make([]int, len(values))
	for i, v := range values {
		k := sort.Search(len(tails), func(j int) bool { return values[tails[j]] >= v })
		if k > 0 {
			prev[i] = tails[k-1]
		} else {
			prev[i] = -1
		}
		if k == len(tails) {
			tails = append(tails, i)
		} else {
			tails[k] = i
		}
	}

	for i := tails[len(tails)-1]; i >= 0; i = prev[i] {
		keep[i] = true
	}
	return keep
}

// Apply runs an edit script against list and returns the result. It fails if a
// change refers to a position that does not hold the expected entity.
func Apply(list []domain.Entity, changes []domain.Change) ([]domain.Entity, error) {
	out := slices.Clone(list)
	for n, c := range changes {
		switch c.Kind {
		case domain.ChangeInsert:
			if c.To < 0 || c.To > len(out) {
				return nil, fmt.Errorf("change %d (%s): insert index out of range", n, c)
			}
			out = slices.Insert(out, c.To, c.Entity)
		case domain.ChangeDelete:
			if err := expectAt(out, c.From, c.Entity.ID); err != nil {
				return nil, fmt.Errorf("change %d (%s): %w", n, c, err)
			}
			out = slices.Delete(out, c.From, c.From+1)
		case domain.ChangeMove:
			if err := expectAt(out, c.From, c.Entity.ID); err != nil {
				return nil, fmt.Errorf("change %d (%s): %w", n, c, err)
			}
			out = slices.Delete(out, c.From, c.From+1)
			if c.To < 0 || c.To > len(out) {
				return nil, fmt.Errorf("change %d (%s): move target out of range", n, c)
			}
			out = slices.Insert(out, c.To, c.Entity)
		case domain.ChangeUpdate:
			if err := expectAt(out, c.To, c.Entity.ID); err != nil {
				return nil, fmt.Errorf("change %d (%s): %w", n, c, err)
			}
			out[c.To] = c.Entity
		default:
			return nil, fmt.Errorf("change %d: unknown kind %d", n, c.Kind)
		}
	}
	return out, nil
}

func expectAt(list []domain.Entity, i int, id domain.EntityID) error {
	if i < 0 || i >= len(list) {
		return &IndexError{Index: i, Count: len(list)}
	}
	if list[i].ID != id {
		return fmt.Errorf("position %d holds %s, not %s", i, list[i].ID, id)
	}
	return nil
}
