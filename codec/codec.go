package codec

//go:generate mockgen -source codec.go -destination codec_mocks.go -package codec

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

/*
A codec converts application values to payload bytes and back. Values are
restricted to a closed set of shapes so that encode and decode are symmetric:

	nil, bool, string
	every integer and float kind
	[]any, map[string]any
	[]string, []int, []int64, []float64
	map[string]string, map[string]int, map[string]int64, map[string]float64

Nested containers may hold any supported shape. Everything else is rejected
with an EncodeError, including structs, pointers, []byte, maps with non-string
keys, non-finite floats, and strings or map keys that are not valid UTF-8.

Decoded values are canonical: integral numbers that fit in an int64 come back
as int64, other numbers as float64, sequences as []any and mappings as
map[string]any. Canonical returns the form a value will decode to.
*/

////////////////////////////////////////////////////////////////////////////////

// Codec encodes and decodes node payloads.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte) (any, error)
}

// EncodeError is returned when a value is outside the supported set or
// otherwise cannot be serialized.
type EncodeError struct {
	Type string
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to encode %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("unsupported payload type %s", e.Type)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when payload bytes are malformed or were not
// produced by the codec. On a stored record it indicates corruption or a
// codec mismatch.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func unsupported(v any) error {
	return &EncodeError{Type: fmt.Sprintf("%T", v)}
}

// Validate returns an EncodeError if v contains a value outside the supported
// set.
func Validate(v any) error {
	_, err := Canonical(v)
	return err
}

// Canonical returns the canonical form of v, which is what decoding its
// encoding produces.
func Canonical(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return x, nil
	case string:
		if err := checkUTF8(x); err != nil {
			return nil, err
		}
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return canonicalUint(uint64(x)), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return canonicalUint(x), nil
	case float32:
		return canonicalFloat(float64(x))
	case float64:
		return canonicalFloat(x)
	case []any:
		return canonicalSlice(x)
	case []string:
		return canonicalSlice(x)
	case []int:
		return canonicalSlice(x)
	case []int64:
		return canonicalSlice(x)
	case []float64:
		return canonicalSlice(x)
	case map[string]any:
		return canonicalMap(x)
	case map[string]string:
		return canonicalMap(x)
	case map[string]int:
		return canonicalMap(x)
	case map[string]int64:
		return canonicalMap(x)
	case map[string]float64:
		return canonicalMap(x)
	default:
		return nil, unsupported(v)
	}
}

var errInvalidUTF8 = errors.New("string is not valid UTF-8")

func checkUTF8(s string) error {
	if !utf8.ValidString(s) {
		return &EncodeError{Type: "string", Err: fmt.Errorf("%w: %q", errInvalidUTF8, s)}
	}
	return nil
}

func canonicalUint(x uint64) any {
	if x > math.MaxInt64 {
		return float64(x)
	}
	return int64(x)
}

func canonicalFloat(x float64) (any, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, &EncodeError{Type: "float64", Err: fmt.Errorf("non-finite value %v", x)}
	}
	if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
		return int64(x), nil
	}
	return x, nil
}

func canonicalSlice[T any](xs []T) (any, error) {
	if xs == nil {
		return nil, nil
	}
	result := make([]any, len(xs))
	for i, x := range xs {
		c, err := Canonical(x)
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func canonicalMap[T any](m map[string]T) (any, error) {
	if m == nil {
		return nil, nil
	}
	result := make(map[string]any, len(m))
	for k, x := range m {
		if err := checkUTF8(k); err != nil {
			return nil, err
		}
		c, err := Canonical(x)
		if err != nil {
			return nil, err
		}
		result[k] = c
	}
	return result, nil
}
