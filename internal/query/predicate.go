package query

import (
	"fmt"
	"strings"

	"resultsync/internal/domain"
)

// Op is a comparison operator used by Condition
type Op string

const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpLt       Op = "lt"
	OpLe       Op = "le"
	OpGt       Op = "gt"
	OpGe       Op = "ge"
	OpContains Op = "contains"
	OpPrefix   Op = "prefix"
)

// Condition compares one field against a constant
type Condition struct {
	Field string `json:"field" toml:"field"`
	Op    Op     `json:"op" toml:"op"`
	Value any    `json:"value" toml:"value"`
}

// Predicate is a conjunction of conditions. The zero value matches everything.
type Predicate struct {
	All []Condition `json:"all,omitempty" toml:"all,omitempty"`
}

// Where builds a predicate from conditions
func Where(conds ...Condition) Predicate {
	return Predicate{All: append([]Condition(nil), conds...)}
}

// Eq is shorthand for an equality condition
func Eq(field string, value any) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

// Validate rejects empty field names and unknown operators
func (p Predicate) Validate() error {
	for i, c := range p.All {
		if c.Field == "" {
			return fmt.Errorf("%w: condition %d has no field", ErrConfiguration, i)
		}
		switch c.Op {
		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpContains, OpPrefix:
		default:
			return fmt.Errorf("%w: condition %d has unknown op %q", ErrConfiguration, i, c.Op)
		}
	}
	return nil
}

// Match reports whether e satisfies every condition
func (p Predicate) Match(e domain.Entity) bool {
	for _, c := range p.All {
		if !c.Match(e) {
			return false
		}
	}
	return true
}

// Match evaluates the condition against e
func (c Condition) Match(e domain.Entity) bool {
	v := e.Field(c.Field)
	switch c.Op {
	case OpEq:
		return kindOf(v) == kindOf(c.Value) && CompareValues(v, c.Value) == 0
	case OpNe:
		return kindOf(v) != kindOf(c.Value) || CompareValues(v, c.Value) != 0
	case OpLt, OpLe, OpGt, OpGe:
		if kindOf(v) != kindOf(c.Value) {
			return false
		}
		cmp := CompareValues(v, c.Value)
		switch c.Op {
		case OpLt:
			return cmp < 0
		case OpLe:
			return cmp <= 0
		case OpGt:
			return cmp > 0
		default:
			return cmp >= 0
		}
	case OpContains, OpPrefix:
		s, ok := v.(string)
		want, wok := c.Value.(string)
		if !ok || !wok {
			return false
		}
		s, want = strings.ToLower(s), strings.ToLower(want)
		if c.Op == OpContains {
			return strings.Contains(s, want)
		}
		return strings.HasPrefix(s, want)
	}
	return false
}

func (p Predicate) String() string {
	if len(p.All) == 0 {
		return "true"
	}
	parts := make([]string, len(p.All))
	for i, c := range p.All {
		parts[i] = fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
	}
	return strings.Join(parts, " and ")
}
