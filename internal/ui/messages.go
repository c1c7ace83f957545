package ui

import (
	"resultsync/internal/domain"
)

// BeginMsg opens a bracketed pass of changes
type BeginMsg struct{}

// ChangeMsg carries one insert, delete, update or move
type ChangeMsg struct {
	Change domain.Change
}

// EndMsg closes a bracketed pass
type EndMsg struct{}

// SearchDoneMsg reports the outcome of one search; Err is nil on success
type SearchDoneMsg struct {
	Err error
}

// historyPagerMsg contains the result of the history pager
type historyPagerMsg struct {
	err error
}

// startSearchMsg triggers the search issued on start
type startSearchMsg struct{}

// ErrorMsg reports a failure outside a search, such as a local cache that
// could not be attached
type ErrorMsg struct {
	Err error
}
