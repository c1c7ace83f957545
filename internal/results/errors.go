package results

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is returned for positions beyond the current list
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrNoLocalSource is returned by LoadLocalCache when no source was configured
	ErrNoLocalSource = errors.New("no local source configured")
	// ErrClosed is returned by operations on a closed controller
	ErrClosed = errors.New("results controller closed")
)

// IndexError reports a lookup beyond the list
type IndexError struct {
	Index int
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range [0,%d)", e.Index, e.Count)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// SubscriptionError reports that the local change observer could not be attached
type SubscriptionError struct {
	EntityType string
	Err        error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("failed to subscribe to local %s cache: %v", e.EntityType, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// SearchError reports a failed remote search. Seq is the number of the
// PerformSearch call it belongs to.
type SearchError struct {
	Seq        uint64
	EntityType string
	Err        error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search #%d for %s failed: %v", e.Seq, e.EntityType, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }
