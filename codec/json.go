package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

type jsonCodec struct{}

// NewJSON returns a codec that stores payloads as JSON.
func NewJSON() Codec {
	return jsonCodec{}
}

func (jsonCodec) Encode(v any) ([]byte, error) {
	c, err := Canonical(v)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, &EncodeError{Type: fmt.Sprintf("%T", v), Err: err}
	}
	return data, nil
}

func (jsonCodec) Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &DecodeError{Err: err}
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, &DecodeError{Err: errors.New("trailing data after payload")}
	}
	result, err := fromJSON(v)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return result, nil
}

func (jsonCodec) String() string {
	return "json"
}

func fromJSON(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", x, err)
		}
		return canonicalFloat(f)
	case []any:
		for i, e := range x {
			c, err := fromJSON(e)
			if err != nil {
				return nil, err
			}
			x[i] = c
		}
		return x, nil
	case map[string]any:
		for k, e := range x {
			c, err := fromJSON(e)
			if err != nil {
				return nil, err
			}
			x[k] = c
		}
		return x, nil
	default:
		return x, nil
	}
}
