package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// Nullable carries a value that may be undefined. The zero value is undefined.
type Nullable[T any] struct {
	Value T
	Valid bool
}

type (
	// Float is a nullable weighted estimate.
	Float = Nullable[float64]
	// Count is a nullable observation count.
	Count = Nullable[int64]
	// Text is a nullable categorical label.
	Text = Nullable[string]
)

// Some wraps a defined value.
func Some[T any](v T) Nullable[T] { return Nullable[T]{Value: v, Valid: true} }

// None returns an undefined value.
func None[T any]() Nullable[T] { return Nullable[T]{} }

// Get returns the value and whether it is defined.
func (n Nullable[T]) Get() (T, bool) { return n.Value, n.Valid }

// Or returns the value, or def when undefined.
func (n Nullable[T]) Or(def T) T {
	if !n.Valid {
		return def
	}
	return n.Value
}

// MarshalJSON encodes undefined values as null.
func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON decodes null as undefined.
func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = Nullable[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}

// FloatOf converts a raw float into a Float, mapping NaN and Inf to undefined.
func FloatOf(v float64) Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return None[float64]()
	}
	return Some(v)
}

// TextOf returns an undefined Text for the empty string.
func TextOf(s string) Text {
	if s == "" {
		return None[string]()
	}
	return Some(s)
}

// FormatFloat renders a Float for tabular output; undefined renders as "".
func FormatFloat(f Float) string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Value, 'f', -1, 64)
}

// FormatCount renders a Count for tabular output; undefined renders as "".
func FormatCount(c Count) string {
	if !c.Valid {
		return ""
	}
	return strconv.FormatInt(c.Value, 10)
}

// ParseFloat is the inverse of FormatFloat.
func ParseFloat(s string) (Float, error) {
	if s == "" {
		return None[float64](), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return None[float64](), err
	}
	return FloatOf(v), nil
}

// ParseCount is the inverse of FormatCount.
func ParseCount(s string) (Count, error) {
	if s == "" {
		return None[int64](), nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return None[int64](), err
	}
	return Some(v), nil
}
