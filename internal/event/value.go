package event

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Value is a sealed interface for property values.
// Only String, Int, Float, and Bool implement it.
type Value interface {
	value() // Sealed - only these types implement it
	fmt.Stringer
}

// String is a string property value.
type String string

func (String) value() {}

func (s String) String() string { return string(s) }

// Int is an integer property value.
type Int int64

func (Int) value() {}

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// Float is a floating point property value.
type Float float64

func (Float) value() {}

func (f Float) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

// Bool is a boolean property value.
type Bool bool

func (Bool) value() {}

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Props is a property bag attached to create, props, and start events.
// Use SortedKeys() for deterministic iteration.
type Props map[string]Value

// P is a key-value pair for ergonomic Props construction.
type P struct {
	Key   string
	Value Value
}

// NewProps builds a Props from pairs.
// Example: NewProps(P{"color", String("#f00")}, P{"level", Float(0.5)})
func NewProps(pairs ...P) Props {
	props := make(Props, len(pairs))
	for _, p := range pairs {
		props[p.Key] = p.Value
	}
	return props
}

// SortedKeys returns the keys of p in lexical order.
func (p Props) SortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Has reports whether key is present.
func (p Props) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Str returns the value under key if it is a String.
func (p Props) Str(key string) (string, bool) {
	s, ok := p[key].(String)
	return string(s), ok
}

// Flag returns the value under key if it is a Bool.
func (p Props) Flag(key string) (bool, bool) {
	b, ok := p[key].(Bool)
	return bool(b), ok
}

// Clone returns a shallow copy of p. Values are immutable so this is a full copy.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes p as a JSON object with native scalar values.
func (p Props) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p))
	for k, v := range p {
		switch val := v.(type) {
		case String:
			m[k] = string(val)
		case Int:
			m[k] = int64(val)
		case Float:
			m[k] = float64(val)
		case Bool:
			m[k] = bool(val)
		default:
			return nil, fmt.Errorf("property %q: unsupported value type %T", k, v)
		}
	}
	return json.Marshal(m)
}

// ValueOf converts a decoded scalar (from YAML or JSON) into a Value.
// Integers become Int, floating point numbers Float.
func ValueOf(v any) (Value, error) {
	switch val := v.(type) {
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		return Int(val), nil
	case float64:
		return Float(val), nil
	case float32:
		return Float(val), nil
	default:
		return nil, fmt.Errorf("unsupported property value type %T", v)
	}
}
