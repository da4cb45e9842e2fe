package util_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/lazytree/util"
)

func TestReadBool(t *testing.T) {
	var x bool
	n := util.ReadBool([]byte{0x01}, &x)
	require.Equal(t, 1, n)
	require.True(t, x)

	n = util.ReadBool([]byte{0x00}, &x)
	require.Equal(t, 1, n)
	require.False(t, x)
}

func TestBool(t *testing.T) {
	buf := make([]byte, 1)
	n := util.Bool(buf, true)
	require.Equal(t, 1, n)
	require.Equal(t, []byte{0x01}, buf)

	n = util.Bool(buf, false)
	require.Equal(t, 1, n)
	require.Equal(t, []byte{0x00}, buf)
}

func TestU64(t *testing.T) {
	buf := make([]byte, 8)
	n := util.U64(buf, 0x0807060504030201)
	require.Equal(t, 8, n)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}, buf)

	var x uint64
	n = util.ReadU64(buf, &x)
	require.Equal(t, 8, n)
	require.Equal(t, uint64(0x0807060504030201), x)
}

func TestPrefixedString(t *testing.T) {
	buf := make([]byte, 9)
	n := util.WritePrefixedString(buf, "hello")
	require.Equal(t, 9, n)

	var s string
	n, err := util.ReadPrefixedStringChecked(buf, &s)
	require.NoError(t, err)
	require.Equal(t, 9, n)
	require.Equal(t, "hello", s)

	_, err = util.ReadPrefixedStringChecked(buf[:6], &s)
	require.ErrorIs(t, err, util.ErrShortBuffer)
	_, err = util.ReadPrefixedStringChecked(buf[:2], &s)
	require.ErrorIs(t, err, util.ErrShortBuffer)
}

func TestPrefixedBytes(t *testing.T) {
	buf := make([]byte, 7)
	n := util.WritePrefixedBytes(buf, []byte{1, 2, 3})
	require.Equal(t, 7, n)

	var b []byte
	n, err := util.ReadPrefixedBytes(buf, &b)
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.Equal(t, []byte{1, 2, 3}, b)

	buf[4] = 9
	require.Equal(t, []byte{1, 2, 3}, b, "result must not alias the input")

	t.Run("empty", func(t *testing.T) {
		buf := make([]byte, 4)
		util.WritePrefixedBytes(buf, nil)
		var b []byte
		n, err := util.ReadPrefixedBytes(buf, &b)
		require.NoError(t, err)
		require.Equal(t, 4, n)
		require.Empty(t, b)
	})
}
