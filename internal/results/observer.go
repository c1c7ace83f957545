package results

import "resultsync/internal/domain"

// Observer receives the controller's notifications. Every method runs on the
// controller's owning context; when a callback runs, the controller's list
// already reflects the whole pass it belongs to.
type Observer interface {
	WillChangeContent(c *Controller)
	DidInsert(e domain.Entity, at int)
	DidDelete(e domain.Entity, at int)
	DidUpdate(e domain.Entity, at int)
	DidMove(e domain.Entity, from, to int)
	DidChangeContent(c *Controller)
	// DidPerformSearch reports the outcome of one PerformSearch call; err is nil on success
	DidPerformSearch(c *Controller, err error)
}

// NopObserver ignores every notification. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) WillChangeContent(*Controller)       {}
func (NopObserver) DidInsert(domain.Entity, int)        {}
func (NopObserver) DidDelete(domain.Entity, int)        {}
func (NopObserver) DidUpdate(domain.Entity, int)        {}
func (NopObserver) DidMove(domain.Entity, int, int)     {}
func (NopObserver) DidChangeContent(*Controller)        {}
func (NopObserver) DidPerformSearch(*Controller, error) {}

// ObserverFuncs adapts optional functions to Observer. Change receives every
// insert, delete, update and move as one value.
type ObserverFuncs struct {
	Will   func(*Controller)
	Change func(domain.Change)
	Did    func(*Controller)
	Search func(*Controller, error)
}

func (f ObserverFuncs) WillChangeContent(c *Controller) {
	if f.Will != nil {
		f.Will(c)
	}
}

func (f ObserverFuncs) DidInsert(e domain.Entity, at int) { f.change(domain.Inserted(e, at)) }
func (f ObserverFuncs) DidDelete(e domain.Entity, at int) { f.change(domain.Deleted(e, at)) }
func (f ObserverFuncs) DidUpdate(e domain.Entity, at int) { f.change(domain.Updated(e, at)) }
func (f ObserverFuncs) DidMove(e domain.Entity, from, to int) {
	f.change(domain.Moved(e, from, to))
}

func (f ObserverFuncs) DidChangeContent(c *Controller) {
	if f.Did != nil {
		f.Did(c)
	}
}

func (f ObserverFuncs) DidPerformSearch(c *Controller, err error) {
	if f.Search != nil {
		f.Search(c, err)
	}
}

func (f ObserverFuncs) change(c domain.Change) {
	if f.Change != nil {
		f.Change(c)
	}
}

// notify routes one change to the matching callback
func notify(o Observer, c domain.Change) {
	switch c.Kind {
	case domain.ChangeInsert:
		o.DidInsert(c.Entity, c.To)
	case domain.ChangeDelete:
		o.DidDelete(c.Entity, c.From)
	case domain.ChangeUpdate:
		o.DidUpdate(c.Entity, c.To)
	case domain.ChangeMove:
		o.DidMove(c.Entity, c.From, c.To)
	}
}
