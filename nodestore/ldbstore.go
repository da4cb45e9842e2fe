package nodestore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	ldbutil "github.com/syndtr/goleveldb/leveldb/util"
	"github.com/wkalt/lazytree/util"
)

/*
levelDBStore keeps node records in a leveldb database. The keyspace has three
regions:

	n/<id>             record
	c/<parent><id>     child index entry, empty value
	s/seq              last allocated ID

<id> is the big-endian 8-byte ID so that prefix iteration returns children in
ID order. <parent> is a single 0x00 byte for roots, or 0x01 followed by the
parent ID. An insert writes all three keys in one synced batch.
*/

////////////////////////////////////////////////////////////////////////////////

var (
	recordPrefix = []byte("n/")
	childPrefix  = []byte("c/")
	sequenceKey  = []byte("s/seq")
)

var syncWrites = &opt.WriteOptions{Sync: true}

type levelDBStore struct {
	db   *leveldb.DB
	path string
	mtx  *sync.Mutex
	last NodeID
}

// NewLevelDBStore opens (or creates) a leveldb node store in the directory at
// path.
func NewLevelDBStore(path string) (Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}
	s := &levelDBStore{db: db, path: path, mtx: &sync.Mutex{}}
	seq, err := db.Get(sequenceKey, nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("failed to read sequence: %w", err)
	case len(seq) != 8:
		db.Close()
		return nil, fmt.Errorf("corrupt sequence value of length %d", len(seq))
	default:
		s.last = nodeIDFromBytes(seq)
	}
	return s, nil
}

func recordKey(id NodeID) []byte {
	return append(append([]byte{}, recordPrefix...), id.bytes()...)
}

func childScanPrefix(parent *NodeID) []byte {
	key := append([]byte{}, childPrefix...)
	if parent == nil {
		return append(key, 0)
	}
	key = append(key, 1)
	return append(key, parent.bytes()...)
}

func childKey(parent *NodeID, id NodeID) []byte {
	return append(childScanPrefix(parent), id.bytes()...)
}

func (s *levelDBStore) Insert(ctx context.Context, name string, payload []byte, parent *NodeID) (NodeID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if parent != nil {
		ok, err := s.db.Has(recordKey(*parent), nil)
		if err != nil {
			return 0, fmt.Errorf("failed to check parent: %w", err)
		}
		if !ok {
			return 0, NewIntegrityError(*parent)
		}
	}
	id := s.last + 1
	record := Record{ID: id, Name: name, Parent: parent, Payload: payload}
	batch := new(leveldb.Batch)
	batch.Put(recordKey(id), encodeRecord(record))
	batch.Put(childKey(parent, id), nil)
	batch.Put(sequenceKey, id.bytes())
	if err := s.db.Write(batch, syncWrites); err != nil {
		return 0, fmt.Errorf("failed to write node: %w", err)
	}
	s.last = id
	return id, nil
}

func (s *levelDBStore) Get(ctx context.Context, id NodeID) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.db.Get(recordKey(id), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
		}
		return nil, fmt.Errorf("failed to read node: %w", err)
	}
	record, err := decodeRecord(id, data)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *levelDBStore) ChildrenOf(ctx context.Context, parent *NodeID) ([]Record, error) {
	prefix := childScanPrefix(parent)
	it := s.db.NewIterator(ldbutil.BytesPrefix(prefix), nil)
	defer it.Release()
	records := []Record{}
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := nodeIDFromBytes(it.Key()[len(prefix):])
		record, err := s.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve child %d: %w", id, err)
		}
		records = append(records, *record)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate children: %w", err)
	}
	return records, nil
}

func (s *levelDBStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close leveldb: %w", err)
	}
	return nil
}

func (s *levelDBStore) String() string {
	return fmt.Sprintf("leveldb(%s)", s.path)
}

// encodeRecord serializes everything but the ID, which lives in the key.
func encodeRecord(r Record) []byte {
	buf := make([]byte, 4+len(r.Name)+1+8+4+len(r.Payload))
	offset := util.WritePrefixedString(buf, r.Name)
	offset += util.Bool(buf[offset:], r.Parent != nil)
	if r.Parent != nil {
		offset += util.U64(buf[offset:], uint64(*r.Parent))
	}
	offset += util.WritePrefixedBytes(buf[offset:], r.Payload)
	return buf[:offset]
}

func decodeRecord(id NodeID, data []byte) (*Record, error) {
	record := &Record{ID: id}
	offset, err := util.ReadPrefixedStringChecked(data, &record.Name)
	if err != nil {
		return nil, fmt.Errorf("corrupt record %d: %w", id, err)
	}
	if len(data[offset:]) < 1 {
		return nil, fmt.Errorf("corrupt record %d: missing parent flag", id)
	}
	var hasParent bool
	offset += util.ReadBool(data[offset:], &hasParent)
	if hasParent {
		if len(data[offset:]) < 8 {
			return nil, fmt.Errorf("corrupt record %d: short parent", id)
		}
		var parent uint64
		offset += util.ReadU64(data[offset:], &parent)
		record.Parent = NodeID(parent).Ptr()
	}
	var payload []byte
	if _, err := util.ReadPrefixedBytes(data[offset:], &payload); err != nil {
		return nil, fmt.Errorf("corrupt record %d: %w", id, err)
	}
	record.Payload = payload
	return record, nil
}
