package dag

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"unicode/utf16"
)

// maxSafeInteger is the largest integer exactly representable as a
// float64 (2^53). Integers beyond this range cannot be normalized to a
// single canonical form, so they are rejected rather than silently
// rounded.
const maxSafeInteger = int64(1) << 53

// Value is a sealed interface representing the canonicalizable value
// space: mappings with string keys, ordered sequences, strings, finite
// numbers, booleans, and null. Only Null, String, Number, Bool, Array,
// and Object implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents a JSON null.
type Null struct{}

func (Null) value() {}

// String represents a string value. Preserved byte-for-byte up to NFC
// normalization at the serialization boundary.
type String string

func (String) value() {}

// Number represents a finite numeric value. Integral values canonicalize
// without a fractional part, so 1 and 1.0 are the same value.
type Number float64

func (Number) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// Array represents an ordered sequence. Element order is semantically
// significant and is preserved.
type Array []Value

func (Array) value() {}

// Object represents a mapping with string keys. Key insertion order is
// NOT significant; canonicalization sorts keys deterministically.
type Object map[string]Value

func (Object) value() {}

// UnsupportedValueError reports a value outside the supported shape set
// (non-finite numbers, unrepresentable Go types, oversized integers).
// Canonicalization failures are local: they never corrupt state.
type UnsupportedValueError struct {
	Reason string
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("unsupported value: %s", e.Reason)
}

// IsUnsupportedValue reports whether err is an UnsupportedValueError.
// Uses errors.As to handle wrapped errors.
func IsUnsupportedValue(err error) bool {
	var ue *UnsupportedValueError
	return errors.As(err, &ue)
}

// SortedKeys returns the object's keys in UTF-16 code unit order per
// RFC 8785. Go's sort.Strings compares UTF-8 bytes, which produces a
// different order for keys outside the BMP.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

// compareKeysUTF16 compares strings by UTF-16 code units as required by
// RFC 8785. utf16.Encode handles surrogate pairs correctly.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// FromJSON decodes JSON bytes into a Value.
//
// Numbers are decoded via json.Number so that integers up to 2^53 survive
// exactly; integers beyond that range and non-finite values return
// UnsupportedValueError.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return FromGo(raw)
}

// FromGo converts a dynamically typed Go value (as produced by
// encoding/json or yaml decoding) into a Value. Values outside the
// supported shape set return UnsupportedValueError.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		return numberFromDecimal(string(val))
	case int:
		return numberFromInt(int64(val))
	case int64:
		return numberFromInt(val)
	case float64:
		return numberFromFloat(val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			converted, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = converted
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			converted, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = converted
		}
		return obj, nil
	case map[any]any:
		// yaml.v3 produces map[string]any for string keys; anything else
		// means a non-string key was used.
		obj := make(Object, len(val))
		for k, elem := range val {
			key, ok := k.(string)
			if !ok {
				return nil, &UnsupportedValueError{Reason: fmt.Sprintf("non-string object key %v (%T)", k, k)}
			}
			converted, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", key, err)
			}
			obj[key] = converted
		}
		return obj, nil
	default:
		return nil, &UnsupportedValueError{Reason: fmt.Sprintf("type %T", v)}
	}
}

func numberFromInt(n int64) (Value, error) {
	if n > maxSafeInteger || n < -maxSafeInteger {
		return nil, &UnsupportedValueError{Reason: fmt.Sprintf("integer %d exceeds 2^53, no exact canonical form", n)}
	}
	return Number(n), nil
}

func numberFromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &UnsupportedValueError{Reason: "non-finite number"}
	}
	return Number(f), nil
}

func numberFromDecimal(s string) (Value, error) {
	num := json.Number(s)
	if i, err := num.Int64(); err == nil {
		return numberFromInt(i)
	}
	f, err := num.Float64()
	if err != nil {
		return nil, &UnsupportedValueError{Reason: fmt.Sprintf("unparseable number %q", s)}
	}
	return numberFromFloat(f)
}
