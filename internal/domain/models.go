package domain

import (
	"fmt"
	"reflect"
	"time"
)

// EntityID identifies a remote-backed record
type EntityID struct {
	Type string
	ID   uint64
}

func (id EntityID) String() string {
	return fmt.Sprintf("%s/%d", id.Type, id.ID)
}

// Entity is a snapshot of one record as held by the local cache
type Entity struct {
	ID     EntityID
	Fields map[string]any // string, bool, integer, float, time.Time or nil

	// CachedAt is stamped by the object cache. Only the presentation layer reads it.
	CachedAt time.Time
}

// Field returns the named field value, nil if missing
func (e Entity) Field(name string) any {
	if e.Fields == nil {
		return nil
	}
	return e.Fields[name]
}

// Clone returns a copy whose field map can be modified independently
func (e Entity) Clone() Entity {
	out := e
	if e.Fields != nil {
		out.Fields = make(map[string]any, len(e.Fields))
		for k, v := range e.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// SameFields reports whether both snapshots carry the same field values.
// CachedAt is ignored.
func (e Entity) SameFields(other Entity) bool {
	if len(e.Fields) != len(other.Fields) {
		return false
	}
	for k, v := range e.Fields {
		ov, ok := other.Fields[k]
		if !ok {
			return false
		}
		if t, isTime := v.(time.Time); isTime {
			ot, ok := ov.(time.Time)
			if !ok || !t.Equal(ot) {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(normalize(v), normalize(ov)) {
			return false
		}
	}
	return true
}

// normalize folds numeric kinds so that 3 and int64(3) compare equal after a
// JSON round trip
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return float64(n)
	}
	return v
}

// IDs extracts the identities of a list, preserving order
func IDs(entities []Entity) []EntityID {
	ids := make([]EntityID, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
	}
	return ids
}
