package dag

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical byte form of a Value.
//
// This is the ONLY serialization that may be used for content-addressed
// digest computation. Properties:
//
//  1. Object keys sorted by UTF-16 code units (RFC 8785 ordering)
//  2. No insignificant whitespace
//  3. No HTML escaping (< > & are emitted literally)
//  4. Strings NFC normalized at the serialization boundary
//  5. One numeric representation: integral values print without a
//     fractional part, other finite values use shortest round-trip form
//  6. Non-finite numbers return UnsupportedValueError
func MarshalCanonical(v Value) ([]byte, error) {
	return appendCanonical(make([]byte, 0, 64), v)
}

func appendCanonical(buf []byte, v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, &UnsupportedValueError{Reason: "untyped nil value"}
	case Null:
		return append(buf, "null"...), nil
	case Bool:
		if val {
			return append(buf, "true"...), nil
		}
		return append(buf, "false"...), nil
	case Number:
		return appendCanonicalNumber(buf, float64(val))
	case String:
		return appendCanonicalString(buf, string(val)), nil
	case Array:
		return appendCanonicalArray(buf, val)
	case Object:
		return appendCanonicalObject(buf, val)
	default:
		return nil, &UnsupportedValueError{Reason: fmt.Sprintf("unknown Value type %T", v)}
	}
}

// appendCanonicalNumber normalizes numeric formatting. Integral values in
// the safe range print as integers, so Number(1) and Number(1.0) share
// one canonical form. Negative zero normalizes to "0".
func appendCanonicalNumber(buf []byte, f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &UnsupportedValueError{Reason: "non-finite number"}
	}
	if f == math.Trunc(f) && math.Abs(f) <= float64(maxSafeInteger) {
		return strconv.AppendInt(buf, int64(f), 10), nil
	}
	return strconv.AppendFloat(buf, f, 'g', -1, 64), nil
}

// appendCanonicalString emits a JSON string with the RFC 8785 escaping
// rules: only the quote, the backslash, and control characters below
// U+0020 are escaped. Everything else, including < > & and the U+2028 /
// U+2029 separators, is emitted as literal UTF-8. The string is NFC
// normalized first.
func appendCanonicalString(buf []byte, s string) []byte {
	s = norm.NFC.String(s)

	buf = append(buf, '"')
	for _, b := range []byte(s) {
		switch b {
		case '"':
			buf = append(buf, '\\', '"')
		case '\\':
			buf = append(buf, '\\', '\\')
		case '\b':
			buf = append(buf, '\\', 'b')
		case '\f':
			buf = append(buf, '\\', 'f')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\t':
			buf = append(buf, '\\', 't')
		default:
			if b < 0x20 {
				buf = append(buf, '\\', 'u', '0', '0', hexDigit(b>>4), hexDigit(b&0xf))
			} else {
				buf = append(buf, b)
			}
		}
	}
	return append(buf, '"')
}

func hexDigit(n byte) byte {
	if n < 10 {
		return '0' + n
	}
	return 'a' + n - 10
}

func appendCanonicalArray(buf []byte, arr Array) ([]byte, error) {
	buf = append(buf, '[')
	for i, elem := range arr {
		if i > 0 {
			buf = append(buf, ',')
		}
		var err error
		buf, err = appendCanonical(buf, elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	return append(buf, ']'), nil
}

func appendCanonicalObject(buf []byte, obj Object) ([]byte, error) {
	buf = append(buf, '{')
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendCanonicalString(buf, k)
		buf = append(buf, ':')
		var err error
		buf, err = appendCanonical(buf, obj[k])
		if err != nil {
			return nil, fmt.Errorf("object[%q]: %w", k, err)
		}
	}
	return append(buf, '}'), nil
}
