package event

import (
	"fmt"
	"math"
)

// Well-known property keys.
const (
	PropLabel       = "label"
	PropDescription = "description"
	PropColor       = "color"
	PropLevel       = "level"
)

// PropertyError reports a property that violates the schema.
type PropertyError struct {
	Key    string
	Reason string
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("property %q: %s", e.Key, e.Reason)
}

// Validate checks p against the property schema and returns the first
// violation in key order, or nil.
func (p Props) Validate() error {
	for _, key := range p.SortedKeys() {
		if err := validateProp(key, p[key]); err != nil {
			return err
		}
	}
	return nil
}

func validateProp(key string, v Value) error {
	switch key {
	case PropLabel, PropDescription:
		s, ok := v.(String)
		if !ok {
			return &PropertyError{Key: key, Reason: fmt.Sprintf("must be a string, got %T", v)}
		}
		if err := ValidateMarkup(string(s)); err != nil {
			return &PropertyError{Key: key, Reason: err.Error()}
		}

	case PropColor:
		s, ok := v.(String)
		if !ok {
			return &PropertyError{Key: key, Reason: fmt.Sprintf("must be a string, got %T", v)}
		}
		if _, err := ParseColor(string(s)); err != nil {
			return &PropertyError{Key: key, Reason: err.Error()}
		}

	case PropLevel:
		f, ok := v.(Float)
		if !ok {
			return &PropertyError{Key: key, Reason: fmt.Sprintf("must be a float, got %T", v)}
		}
		if math.IsNaN(float64(f)) || f <= 0 || f > 1 {
			return &PropertyError{Key: key, Reason: fmt.Sprintf("must be in (0.0, 1.0], got %v", float64(f))}
		}
	}
	return nil
}
