package codec

import (
	"fmt"

	"github.com/golang/snappy"
)

type snappyCodec struct {
	inner Codec
}

// NewSnappy wraps inner so that encoded payloads are snappy-compressed.
// Payloads written without compression will not decode.
func NewSnappy(inner Codec) Codec {
	return snappyCodec{inner: inner}
}

func (c snappyCodec) Encode(v any) ([]byte, error) {
	data, err := c.inner.Encode(v)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, data), nil
}

func (c snappyCodec) Decode(data []byte) (any, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("snappy: %w", err)}
	}
	return c.inner.Decode(decompressed)
}

func (c snappyCodec) String() string {
	return fmt.Sprintf("snappy(%v)", c.inner)
}
