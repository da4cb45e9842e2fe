package nodestore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/exp/maps"
)

/*
memStore is an in-memory Store backed by a map. It does not survive a restart
and is only suitable for tests and throwaway trees.
*/

////////////////////////////////////////////////////////////////////////////////

type memStore struct {
	records map[NodeID]Record
	last    NodeID
	mtx     *sync.RWMutex
}

// NewMemStore returns a new in-memory store.
func NewMemStore() Store {
	return &memStore{
		records: make(map[NodeID]Record),
		mtx:     &sync.RWMutex{},
	}
}

func (m *memStore) Insert(_ context.Context, name string, payload []byte, parent *NodeID) (NodeID, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if parent != nil {
		if _, ok := m.records[*parent]; !ok {
			return 0, NewIntegrityError(*parent)
		}
		parent = parent.Ptr()
	}
	m.last++
	m.records[m.last] = Record{
		ID:      m.last,
		Name:    name,
		Parent:  parent,
		Payload: append([]byte{}, payload...),
	}
	return m.last, nil
}

func (m *memStore) Get(_ context.Context, id NodeID) (*Record, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	record, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	return &record, nil
}

func (m *memStore) ChildrenOf(_ context.Context, parent *NodeID) ([]Record, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	ids := maps.Keys(m.records)
	slices.Sort(ids)
	records := []Record{}
	for _, id := range ids {
		record := m.records[id]
		switch {
		case parent == nil && record.Parent == nil:
		case parent != nil && record.Parent != nil && *parent == *record.Parent:
		default:
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (m *memStore) Close() error {
	return nil
}

func (m *memStore) String() string {
	return "memory"
}
