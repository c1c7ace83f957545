// Package query describes what a results controller fetches and how the
// results are ordered, both on the server and in the local cache.
package query

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks a query that can never be executed, such as one without
// a server sort key. It is a programming error, not a runtime condition.
var ErrConfiguration = errors.New("invalid query configuration")

// Spec is an immutable query specification
type Spec struct {
	entityType string
	predicate  Predicate
	sortKeys   Order
	localKeys  Order
}

// Option customises a Spec at construction
type Option func(*Spec)

// WithLocalSort adds sort keys applied only to the client-held list. They are
// never sent to the server.
func WithLocalSort(keys ...SortKey) Option {
	return func(s *Spec) {
		s.localKeys = append(s.localKeys, keys...)
	}
}

// New validates and builds a Spec. At least one server sort key is required.
func New(entityType string, pred Predicate, sortKeys []SortKey, opts ...Option) (Spec, error) {
	s := Spec{
		entityType: entityType,
		predicate:  Predicate{All: append([]Condition(nil), pred.All...)},
		sortKeys:   append(Order(nil), sortKeys...),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// MustNew is New that panics on an invalid configuration
func MustNew(entityType string, pred Predicate, sortKeys []SortKey, opts ...Option) Spec {
	s, err := New(entityType, pred, sortKeys, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks the construction invariants. The zero Spec is invalid.
func (s Spec) Validate() error {
	if s.entityType == "" {
		return fmt.Errorf("%w: entity type is required", ErrConfiguration)
	}
	if len(s.sortKeys) == 0 {
		return fmt.Errorf("%w: at least one sort key is required", ErrConfiguration)
	}
	for _, k := range append(append(Order(nil), s.localKeys...), s.sortKeys...) {
		if k.Field == "" {
			return fmt.Errorf("%w: sort key with empty field", ErrConfiguration)
		}
	}
	return s.predicate.Validate()
}

func (s Spec) EntityType() string   { return s.entityType }
func (s Spec) Predicate() Predicate { return s.predicate }

// SortKeys returns the server-side sort keys
func (s Spec) SortKeys() Order { return append(Order(nil), s.sortKeys...) }

// LocalSortKeys returns the client-only sort keys
func (s Spec) LocalSortKeys() Order { return append(Order(nil), s.localKeys...) }

// EffectiveOrder is the local keys followed by the server keys
func (s Spec) EffectiveOrder() Order {
	out := make(Order, 0, len(s.localKeys)+len(s.sortKeys))
	out = append(out, s.localKeys...)
	return append(out, s.sortKeys...)
}

// WithLocalSort returns a copy with more local keys prepended to the existing ones
func (s Spec) WithLocalSort(keys ...SortKey) Spec {
	out := s
	out.localKeys = append(append(Order(nil), keys...), s.localKeys...)
	return out
}

// Request is the server-facing part of a Spec
type Request struct {
	EntityType string    `json:"entity_type"`
	Predicate  Predicate `json:"predicate"`
	SortKeys   Order     `json:"sort"`
}

// Request strips the local-only sort keys
func (s Spec) Request() Request {
	return Request{
		EntityType: s.entityType,
		Predicate:  s.predicate,
		SortKeys:   s.SortKeys(),
	}
}

// Local is what a local change observer subscribes with
type Local struct {
	EntityType string
	Predicate  Predicate
	Order      Order
}

// Local uses the effective order so the local path sorts like the server path
func (s Spec) Local() Local {
	return Local{
		EntityType: s.entityType,
		Predicate:  s.predicate,
		Order:      s.EffectiveOrder(),
	}
}

func (s Spec) String() string {
	return fmt.Sprintf("%s where %s order by %s", s.entityType, s.predicate, s.EffectiveOrder())
}
