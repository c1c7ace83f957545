package query

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"resultsync/internal/domain"
)

// SortKey orders entities by one field
type SortKey struct {
	Field      string `json:"field" toml:"field"`
	Descending bool   `json:"descending,omitempty" toml:"descending,omitempty"`
}

// Asc sorts by field ascending
func Asc(field string) SortKey { return SortKey{Field: field} }

// Desc sorts by field descending
func Desc(field string) SortKey { return SortKey{Field: field, Descending: true} }

// ParseSortKey reads "field" or "-field"
func ParseSortKey(s string) (SortKey, error) {
	s = strings.TrimSpace(s)
	desc := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return SortKey{}, fmt.Errorf("%w: empty sort key", ErrConfiguration)
	}
	return SortKey{Field: s, Descending: desc}, nil
}

func (k SortKey) String() string {
	if k.Descending {
		return "-" + k.Field
	}
	return k.Field
}

// Order is a lexicographic list of sort keys
type Order []SortKey

// Compare returns -1, 0 or 1. Equal results leave the tie to the caller.
func (o Order) Compare(a, b domain.Entity) int {
	for _, key := range o {
		c := CompareValues(a.Field(key.Field), b.Field(key.Field))
		if c == 0 {
			continue
		}
		if key.Descending {
			return -c
		}
		return c
	}
	return 0
}

func (o Order) String() string {
	parts := make([]string, len(o))
	for i, k := range o {
		parts[i] = k.String()
	}
	return strings.Join(parts, ",")
}

// SortStable sorts in place; entities with equal keys keep their relative order
func SortStable(entities []domain.Entity, order Order) {
	sort.SliceStable(entities, func(i, j int) bool {
		return order.Compare(entities[i], entities[j]) < 0
	})
}

// Dedupe drops repeated identities, the first occurrence wins
func Dedupe(entities []domain.Entity) []domain.Entity {
	seen := make(map[domain.EntityID]bool, len(entities))
	out := make([]domain.Entity, 0, len(entities))
	for _, e := range entities {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	return out
}

// SearchPosition returns where e belongs in the sorted list. Equal keys place
// e after the existing run.
func SearchPosition(list []domain.Entity, e domain.Entity, order Order) int {
	return sort.Search(len(list), func(i int) bool {
		return order.Compare(list[i], e) > 0
	})
}

// IsSorted reports whether list is ordered under order
func IsSorted(list []domain.Entity, order Order) bool {
	for i := 1; i < len(list); i++ {
		if order.Compare(list[i-1], list[i]) > 0 {
			return false
		}
	}
	return true
}

// value kinds in their cross-kind ordering
const (
	kindNil = iota
	kindBool
	kindNumber
	kindString
	kindTime
	kindOther
)

func kindOf(v any) int {
	switch v.(type) {
	case nil:
		return kindNil
	case bool:
		return kindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return kindNumber
	case string:
		return kindString
	case time.Time:
		return kindTime
	default:
		return kindOther
	}
}

// CompareValues orders two field values. Nil sorts first, numbers compare
// numerically across int and float kinds, values of different kinds compare by kind.
func CompareValues(a, b any) int {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return cmpInt(ka, kb)
	}
	switch ka {
	case kindNil:
		return 0
	case kindBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case kindNumber:
		return compareNumbers(a, b)
	case kindString:
		return strings.Compare(a.(string), b.(string))
	case kindTime:
		return a.(time.Time).Compare(b.(time.Time))
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

func compareNumbers(a, b any) int {
	ai, aInt := asInt(a)
	bi, bInt := asInt(b)
	if aInt && bInt {
		return cmpInt(ai, bi)
	}
	// past this point at least one side may be an unsigned value above MaxInt64
	au, aUint := asUint(a)
	bu, bUint := asUint(b)
	switch {
	case aUint && bUint:
		return cmpInt(au, bu)
	case aUint && bInt:
		return 1
	case aInt && bUint:
		return -1
	}
	af, bf := asFloat(a), asFloat(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	}
	return 0
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint, uint64:
		if u, _ := asUint(n); u <= math.MaxInt64 {
			return int64(u), true
		}
	}
	return 0, false
}

func asUint(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	}
	return 0, false
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	}
	if i, ok := asInt(v); ok {
		return float64(i)
	}
	u, _ := asUint(v)
	return float64(u)
}

func cmpInt[T int | int64 | uint64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
