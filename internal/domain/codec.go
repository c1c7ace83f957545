package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// entityJSON is the wire and file form of an Entity. Field values carry a kind
// tag so integers and times survive a round trip.
type entityJSON struct {
	Type     string               `json:"type"`
	ID       uint64               `json:"id"`
	Fields   map[string]valueJSON `json:"fields,omitempty"`
	CachedAt *time.Time           `json:"cached_at,omitempty"`
}

type valueJSON struct {
	Kind  string          `json:"k"`
	Value json.RawMessage `json:"v,omitempty"`
}

func (e Entity) MarshalJSON() ([]byte, error) {
	out := entityJSON{Type: e.ID.Type, ID: e.ID.ID}
	if !e.CachedAt.IsZero() {
		t := e.CachedAt
		out.CachedAt = &t
	}
	if len(e.Fields) > 0 {
		out.Fields = make(map[string]valueJSON, len(e.Fields))
		for name, v := range e.Fields {
			enc, err := encodeValue(v)
			if err != nil {
				return nil, fmt.Errorf("field %s of %s: %w", name, e.ID, err)
			}
			out.Fields[name] = enc
		}
	}
	return json.Marshal(out)
}

func (e *Entity) UnmarshalJSON(data []byte) error {
	var in entityJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = Entity{ID: EntityID{Type: in.Type, ID: in.ID}}
	if in.CachedAt != nil {
		e.CachedAt = *in.CachedAt
	}
	if len(in.Fields) > 0 {
		e.Fields = make(map[string]any, len(in.Fields))
		for name, raw := range in.Fields {
			v, err := decodeValue(raw)
			if err != nil {
				return fmt.Errorf("field %s of %s: %w", name, e.ID, err)
			}
			e.Fields[name] = v
		}
	}
	return nil
}

func encodeValue(v any) (valueJSON, error) {
	var kind string
	switch n := v.(type) {
	case nil:
		return valueJSON{Kind: "null"}, nil
	case bool:
		kind = "bool"
	case string:
		kind = "string"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		kind = "int"
	case float32, float64:
		kind = "float"
	case time.Time:
		kind = "time"
		v = n.Format(time.RFC3339Nano)
	default:
		return valueJSON{}, fmt.Errorf("unsupported value type %T", v)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return valueJSON{}, err
	}
	return valueJSON{Kind: kind, Value: raw}, nil
}

func decodeValue(in valueJSON) (any, error) {
	switch in.Kind {
	case "null":
		return nil, nil
	case "bool":
		var b bool
		err := json.Unmarshal(in.Value, &b)
		return b, err
	case "string":
		var s string
		err := json.Unmarshal(in.Value, &s)
		return s, err
	case "int":
		var i int64
		err := json.Unmarshal(in.Value, &i)
		return i, err
	case "float":
		var f float64
		err := json.Unmarshal(in.Value, &f)
		return f, err
	case "time":
		var s string
		if err := json.Unmarshal(in.Value, &s); err != nil {
			return nil, err
		}
		return time.Parse(time.RFC3339Nano, s)
	}
	return nil, fmt.Errorf("unknown value kind %q", in.Kind)
}
