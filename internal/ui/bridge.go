package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"resultsync/internal/domain"
	"resultsync/internal/results"
)

// Sender delivers messages to a running program; *tea.Program satisfies it
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge forwards controller notifications to the program as messages, in
// the order they were emitted. The model only learns about rows this way.
type Bridge struct {
	send Sender
}

var _ results.Observer = (*Bridge)(nil)

// NewBridge creates a bridge sending to s
func NewBridge(s Sender) *Bridge {
	return &Bridge{send: s}
}

func (b *Bridge) WillChangeContent(*results.Controller) { b.send.Send(BeginMsg{}) }
func (b *Bridge) DidChangeContent(*results.Controller)  { b.send.Send(EndMsg{}) }

func (b *Bridge) DidInsert(e domain.Entity, at int) {
	b.send.Send(ChangeMsg{Change: domain.Inserted(e, at)})
}

func (b *Bridge) DidDelete(e domain.Entity, at int) {
	b.send.Send(ChangeMsg{Change: domain.Deleted(e, at)})
}

func (b *Bridge) DidUpdate(e domain.Entity, at int) {
	b.send.Send(ChangeMsg{Change: domain.Updated(e, at)})
}

func (b *Bridge) DidMove(e domain.Entity, from, to int) {
	b.send.Send(ChangeMsg{Change: domain.Moved(e, from, to)})
}

func (b *Bridge) DidPerformSearch(_ *results.Controller, err error) {
	b.send.Send(SearchDoneMsg{Err: err})
}
