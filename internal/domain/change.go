package domain

import "fmt"

// ChangeKind tags a Change
type ChangeKind int

const (
	ChangeInsert ChangeKind = iota
	ChangeUpdate
	ChangeMove
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeUpdate:
		return "update"
	case ChangeMove:
		return "move"
	case ChangeDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change describes one edit of an ordered result list.
//
// Insert uses To, Delete uses From, Update uses To (the current index) and Move
// uses both. Changes coming from a local subscription carry -1 in both indices.
type Change struct {
	Kind   ChangeKind
	Entity Entity
	From   int
	To     int
}

func Inserted(e Entity, at int) Change {
	return Change{Kind: ChangeInsert, Entity: e, From: -1, To: at}
}
func Deleted(e Entity, at int) Change { return Change{Kind: ChangeDelete, Entity: e, From: at, To: -1} }
func Updated(e Entity, at int) Change { return Change{Kind: ChangeUpdate, Entity: e, From: at, To: at} }
func Moved(e Entity, from, to int) Change {
	return Change{Kind: ChangeMove, Entity: e, From: from, To: to}
}

func (c Change) String() string {
	switch c.Kind {
	case ChangeInsert:
		return fmt.Sprintf("insert %s at %d", c.Entity.ID, c.To)
	case ChangeDelete:
		return fmt.Sprintf("delete %s at %d", c.Entity.ID, c.From)
	case ChangeUpdate:
		return fmt.Sprintf("update %s at %d", c.Entity.ID, c.To)
	case ChangeMove:
		return fmt.Sprintf("move %s %d -> %d", c.Entity.ID, c.From, c.To)
	}
	return "unknown change"
}

// Subscription is a live view over the local object cache
type Subscription interface {
	// Snapshot returns the matching entities at subscribe time, in subscription order
	Snapshot() []Entity
	// Events delivers one change per mutation of a matching entity. Closed by Close.
	Events() <-chan Change
	Close()
}
