package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the concrete type held by a Value.
type Kind uint8

// Supported parameter value kinds.
const (
	KindInteger Kind = iota
	KindFloat
	KindString
	KindBool
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// Value is a tagged variant over the primitive kinds a parameter may hold.
//
// A parameter's kind may change across sets; the store enforces nothing
// beyond what was last assigned. JSON serialization round-trips each kind
// losslessly: integers stay integers, floats stay floats.
//
// The zero Value is the integer 0.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
}

// Integer creates an integer Value.
func Integer(v int64) Value { return Value{kind: KindInteger, i: v} }

// Float creates a float Value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// String creates a string Value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Bool creates a boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// FromAny converts a dynamically-typed value (as produced by the yaml or
// json decoders) into a Value.
//
// Returns ErrUnsupportedType for anything outside the supported kinds
// (null, arrays, nested objects, ...).
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case int:
		return Integer(int64(x)), nil
	case int64:
		return Integer(x), nil
	case float64:
		return Float(x), nil
	case float32:
		return Float(float64(x)), nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case json.Number:
		// Preserve integers exactly; fall back to float for everything else.
		if i, err := x.Int64(); err == nil {
			return Integer(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: malformed number %q", ErrUnsupportedType, x.String())
		}
		return Float(f), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

// Kind returns the kind currently held by the value.
func (v Value) Kind() Kind { return v.kind }

// Int returns the integer payload. Only meaningful when Kind() == KindInteger.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload. Only meaningful when Kind() == KindFloat.
func (v Value) Float() float64 { return v.f }

// Str returns the string payload. Only meaningful when Kind() == KindString.
func (v Value) Str() string { return v.s }

// Bool returns the boolean payload. Only meaningful when Kind() == KindBool.
func (v Value) Bool() bool { return v.b }

// Any returns the payload as a dynamically-typed value.
func (v Value) Any() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether two values hold the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	default:
		return false
	}
}

// String formats the value for logging and diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "<invalid>"
	}
}

// MarshalJSON serializes the underlying payload without a wrapper object,
// so a snapshot marshals as a plain {"name": value, ...} map.
//
// Floats holding an integral value are written with a trailing ".0" so
// the kind survives a decode on the receiving side: Float(10) marshals
// as 10.0, not 10.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind != KindFloat {
		return json.Marshal(v.Any())
	}

	if math.IsInf(v.f, 0) || math.IsNaN(v.f) {
		return nil, fmt.Errorf("%w: %v is not valid JSON", ErrUnsupportedType, v.f)
	}

	b := strconv.AppendFloat(nil, v.f, 'g', -1, 64)
	if !bytes.ContainsAny(b, ".eE") {
		// Integral float such as 10 or -3.
		b = append(b, '.', '0')
	}
	return b, nil
}

// UnmarshalJSON parses a JSON scalar into the matching kind.
// Numbers without a fractional part decode as integers.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("params: decoding value: %w", err)
	}

	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
