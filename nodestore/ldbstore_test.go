package nodestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEncoding(t *testing.T) {
	cases := []struct {
		assertion string
		record    Record
	}{
		{"root with payload", Record{ID: 1, Name: "root", Payload: []byte("data")}},
		{"child", Record{ID: 7, Name: "child", Parent: NodeID(3).Ptr(), Payload: []byte{1}}},
		{"empty name and payload", Record{ID: 2, Name: "", Payload: []byte{}}},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			decoded, err := decodeRecord(c.record.ID, encodeRecord(c.record))
			require.NoError(t, err)
			assert.Equal(t, c.record, *decoded)
		})
	}
	t.Run("truncated records are rejected", func(t *testing.T) {
		data := encodeRecord(Record{ID: 1, Name: "abc", Parent: NodeID(2).Ptr(), Payload: []byte("xyz")})
		for i := 0; i < len(data); i++ {
			_, err := decodeRecord(1, data[:i])
			assert.Error(t, err, "length %d", i)
		}
	})
}

func TestChildKeys(t *testing.T) {
	root := childKey(nil, 5)
	child := childKey(NodeID(5).Ptr(), 6)
	assert.Equal(t, childScanPrefix(nil), root[:len(childScanPrefix(nil))])
	assert.Equal(t, childScanPrefix(NodeID(5).Ptr()), child[:len(childScanPrefix(NodeID(5).Ptr()))])
	assert.NotEqual(t, childScanPrefix(nil), childScanPrefix(NodeID(0).Ptr()))
}
