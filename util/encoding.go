package util

/*
Binary encoding helpers for on-disk records. Write functions do not check
lengths; callers size the destination buffer up front. The prefixed read
functions check lengths and return an error on short input, since they run
over bytes read back from storage.
*/

import (
	"encoding/binary"
	"errors"
)

// ErrShortBuffer is returned when a prefixed value runs past the input.
var ErrShortBuffer = errors.New("short buffer")

// ReadU64 reads a uint64 from src and stores it in x, returning the read length.
func ReadU64(src []byte, x *uint64) int {
	*x = binary.LittleEndian.Uint64(src)
	return 8
}

// ReadBool reads a bool from src and stores it in x, returning the read length.
func ReadBool(src []byte, x *bool) int {
	*x = src[0] == 1
	return 1
}

// U64 writes a uint64 to dst and returns the written length.
func U64(dst []byte, src uint64) int {
	binary.LittleEndian.PutUint64(dst, src)
	return 8
}

// Bool writes a bool to dst and returns the written length.
func Bool(dst []byte, src bool) int {
	if src {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
	return 1
}

// WritePrefixedString writes a length-prefixed string to buf and returns the
// written length.
func WritePrefixedString(buf []byte, s string) int {
	if len(buf) < 4+len(s) {
		panic("buffer too small")
	}
	binary.LittleEndian.PutUint32(buf, uint32(len(s)))
	return 4 + copy(buf[4:], s)
}

// WritePrefixedBytes writes a length-prefixed byte slice to buf and returns
// the written length.
func WritePrefixedBytes(buf []byte, b []byte) int {
	if len(buf) < 4+len(b) {
		panic("buffer too small")
	}
	binary.LittleEndian.PutUint32(buf, uint32(len(b)))
	return 4 + copy(buf[4:], b)
}

func readPrefixed(data []byte) ([]byte, int, error) {
	if len(data) < 4 {
		return nil, 0, ErrShortBuffer
	}
	length := int(binary.LittleEndian.Uint32(data))
	if len(data[4:]) < length {
		return nil, 0, ErrShortBuffer
	}
	return data[4 : 4+length], 4 + length, nil
}

// ReadPrefixedStringChecked reads a length-prefixed string from data into s,
// returning the read length.
func ReadPrefixedStringChecked(data []byte, s *string) (int, error) {
	b, n, err := readPrefixed(data)
	if err != nil {
		return 0, err
	}
	*s = string(b)
	return n, nil
}

// ReadPrefixedBytes reads a length-prefixed byte slice from data into b,
// returning the read length. The result is a copy.
func ReadPrefixedBytes(data []byte, b *[]byte) (int, error) {
	v, n, err := readPrefixed(data)
	if err != nil {
		return 0, err
	}
	*b = append([]byte{}, v...)
	return n, nil
}
