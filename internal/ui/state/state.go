package state

import (
	"fmt"
	"slices"

	"resultsync/internal/domain"
)

const maxHistory = 1000

// AppState contains all the application state
type AppState struct {
	// Result rows, maintained only from change notifications
	Rows []domain.Entity

	// Selection state
	SelectedIndex int // currently selected row

	// Batch state
	InBatch      bool // between BeginMsg and EndMsg
	BatchChanges int  // changes applied in the current batch
	LastBatch    int  // changes in the last completed batch

	// Marks flags rows touched by the last pass: "+" inserted, "~" updated,
	// "↕" moved
	Marks map[domain.EntityID]string
	// History is the change log shown in the pager, oldest first
	History []string

	// UI state
	ViewportOffset int // offset for scrolling
	ViewportHeight int // available height for the row list
	Searching      bool
	Searches       int // completed searches
	ShowHelp       bool
	StatusMessage  string // status bar message
	LastError      error  // last failed search or local edit
}

// NewAppState creates a new application state
func NewAppState() *AppState {
	return &AppState{
		Rows:           make([]domain.Entity, 0),
		Marks:          make(map[domain.EntityID]string),
		ViewportHeight: 20, // Default
	}
}

// Selected returns the selected row
func (s *AppState) Selected() (domain.Entity, bool) {
	if s.SelectedIndex < 0 || s.SelectedIndex >= len(s.Rows) {
		return domain.Entity{}, false
	}
	return s.Rows[s.SelectedIndex], true
}

// BeginBatch marks the start of a bracketed change pass
func (s *AppState) BeginBatch() {
	s.InBatch = true
	s.BatchChanges = 0
	clear(s.Marks)
}

// EndBatch marks the end of a bracketed change pass
func (s *AppState) EndBatch() {
	s.InBatch = false
	s.LastBatch = s.BatchChanges
}

// Apply performs one change on Rows. The selection follows the selected
// entity. A change whose index does not match the rows is rejected.
func (s *AppState) Apply(c domain.Change) error {
	if !s.InBatch {
		clear(s.Marks)
	}
	switch c.Kind {
	case domain.ChangeInsert:
		if c.To < 0 || c.To > len(s.Rows) {
			return fmt.Errorf("insert %s at %d: %d rows", c.Entity.ID, c.To, len(s.Rows))
		}
		if len(s.Rows) > 0 && s.SelectedIndex >= c.To {
			s.SelectedIndex++
		}
		s.Rows = slices.Insert(s.Rows, c.To, c.Entity)

	case domain.ChangeDelete:
		if err := s.expect(c.Entity.ID, c.From); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		s.Rows = slices.Delete(s.Rows, c.From, c.From+1)
		if s.SelectedIndex > c.From {
			s.SelectedIndex--
		}
		delete(s.Marks, c.Entity.ID)

	case domain.ChangeUpdate:
		if err := s.expect(c.Entity.ID, c.To); err != nil {
			return fmt.Errorf("update: %w", err)
		}
		s.Rows[c.To] = c.Entity

	case domain.ChangeMove:
		if err := s.expect(c.Entity.ID, c.From); err != nil {
			return fmt.Errorf("move: %w", err)
		}
		if c.To < 0 || c.To >= len(s.Rows) {
			return fmt.Errorf("move %s to %d: %d rows", c.Entity.ID, c.To, len(s.Rows))
		}
		s.Rows = slices.Delete(s.Rows, c.From, c.From+1)
		s.Rows = slices.Insert(s.Rows, c.To, c.Entity)
		switch {
		case s.SelectedIndex == c.From:
			s.SelectedIndex = c.To
		case c.From < s.SelectedIndex && s.SelectedIndex <= c.To:
			s.SelectedIndex--
		case c.To <= s.SelectedIndex && s.SelectedIndex < c.From:
			s.SelectedIndex++
		}

	default:
		return fmt.Errorf("unknown change kind %v", c.Kind)
	}

	switch c.Kind {
	case domain.ChangeInsert:
		s.Marks[c.Entity.ID] = "+"
	case domain.ChangeUpdate:
		if s.Marks[c.Entity.ID] == "" {
			s.Marks[c.Entity.ID] = "~"
		}
	case domain.ChangeMove:
		s.Marks[c.Entity.ID] = "↕"
	}
	s.record(c.String())
	s.BatchChanges++
	s.clampSelection()
	return nil
}

// record appends to History, dropping the oldest lines past maxHistory
func (s *AppState) record(line string) {
	s.History = append(s.History, line)
	if over := len(s.History) - maxHistory; over > 0 {
		s.History = slices.Delete(s.History, 0, over)
	}
}

// Note adds a line to History that is not a row change
func (s *AppState) Note(line string) {
	s.record(line)
}

func (s *AppState) expect(id domain.EntityID, at int) error {
	if at < 0 || at >= len(s.Rows) {
		return fmt.Errorf("%s at %d: %d rows", id, at, len(s.Rows))
	}
	if s.Rows[at].ID != id {
		return fmt.Errorf("row %d holds %s, not %s", at, s.Rows[at].ID, id)
	}
	return nil
}

// MoveSelection moves the selection by delta rows
func (s *AppState) MoveSelection(delta int) {
	s.SelectedIndex += delta
	s.clampSelection()
}

func (s *AppState) clampSelection() {
	if s.SelectedIndex >= len(s.Rows) {
		s.SelectedIndex = len(s.Rows) - 1
	}
	if s.SelectedIndex < 0 {
		s.SelectedIndex = 0
	}
	s.ensureSelectedVisible()
}

// ensureSelectedVisible scrolls the viewport to the selection
func (s *AppState) ensureSelectedVisible() {
	if s.ViewportHeight <= 0 {
		return
	}
	if s.SelectedIndex < s.ViewportOffset {
		s.ViewportOffset = s.SelectedIndex
	}
	if s.SelectedIndex >= s.ViewportOffset+s.ViewportHeight {
		s.ViewportOffset = s.SelectedIndex - s.ViewportHeight + 1
	}
	if maxOffset := len(s.Rows) - s.ViewportHeight; s.ViewportOffset > maxOffset {
		s.ViewportOffset = max(maxOffset, 0)
	}
}

// VisibleRows returns the rows inside the viewport and the index of the first
func (s *AppState) VisibleRows() ([]domain.Entity, int) {
	start := min(s.ViewportOffset, len(s.Rows))
	end := len(s.Rows)
	if s.ViewportHeight > 0 {
		end = min(start+s.ViewportHeight, len(s.Rows))
	}
	return s.Rows[start:end], start
}
