package util

import (
	"fmt"
	"strings"
	"sync"
)

/*
LRU is a fixed-capacity cache with strict least-recently-used eviction. Get and
Put count as accesses; Contains and Keys do not, so probing the cache never
changes what gets evicted next. All entries weigh the same.
*/

////////////////////////////////////////////////////////////////////////////////

// LRU is a simple LRU cache.
type LRU[K comparable, V any] struct {
	cache      map[K]*listNode[K, V]
	head, tail *listNode[K, V]
	count      int64
	cap        int64
	onEvict    func(K, V)
	mtx        *sync.Mutex
}

type listNode[K comparable, V any] struct {
	key        K
	value      V
	prev, next *listNode[K, V]
}

// NewLRU returns a new LRU cache with the given capacity.
func NewLRU[K comparable, V any](capacity int64) *LRU[K, V] {
	head, tail := &listNode[K, V]{}, &listNode[K, V]{}
	head.next = tail
	tail.prev = head
	return &LRU[K, V]{
		cache: make(map[K]*listNode[K, V]),
		head:  head,
		tail:  tail,
		cap:   capacity,
		count: 0,
		mtx:   &sync.Mutex{},
	}
}

// OnEvict registers f to be called with each entry removed for capacity. It
// runs with the cache lock held and must not call back into the cache.
func (lru *LRU[K, V]) OnEvict(f func(K, V)) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	lru.onEvict = f
}

// Reset clears the cache.
func (lru *LRU[K, V]) Reset() {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	lru.cache = make(map[K]*listNode[K, V])
	lru.head.next = lru.tail
	lru.tail.prev = lru.head
	lru.count = 0
}

func (lru *LRU[K, V]) addToFront(node *listNode[K, V]) {
	node.next = lru.head.next
	node.prev = lru.head
	lru.head.next.prev = node
	lru.head.next = node
}

func (lru *LRU[K, V]) removeNode(node *listNode[K, V]) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

func (lru *LRU[K, V]) moveToFront(node *listNode[K, V]) {
	lru.removeNode(node)
	lru.addToFront(node)
}

// Put adds a new key-value pair to the cache. If the key already exists, the
// value is updated. Either way the key becomes the most recently used.
func (lru *LRU[K, V]) Put(key K, value V) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	if node, exists := lru.cache[key]; exists {
		node.value = value
		lru.moveToFront(node)
		return
	}
	for lru.count >= lru.cap && lru.count > 0 {
		lru.evict()
	}
	node := &listNode[K, V]{key: key, value: value}
	lru.cache[key] = node
	lru.addToFront(node)
	lru.count++
}

// Get returns the value associated with the given key and marks it most
// recently used. The second return value is true if the key exists in the
// cache.
func (lru *LRU[K, V]) Get(key K) (V, bool) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	if node, exists := lru.cache[key]; exists {
		lru.moveToFront(node)
		return node.value, true
	}
	var v V
	return v, false
}

// Contains reports whether key is resident. It does not affect recency.
func (lru *LRU[K, V]) Contains(key K) bool {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	_, exists := lru.cache[key]
	return exists
}

// Len returns the number of resident entries.
func (lru *LRU[K, V]) Len() int64 {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	return lru.count
}

// Cap returns the capacity of the cache.
func (lru *LRU[K, V]) Cap() int64 {
	return lru.cap
}

// Keys returns the resident keys, most recently used first.
func (lru *LRU[K, V]) Keys() []K {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	keys := make([]K, 0, lru.count)
	for node := lru.head.next; node != lru.tail; node = node.next {
		keys = append(keys, node.key)
	}
	return keys
}

func (lru *LRU[K, V]) evict() {
	if lru.tail.prev == lru.head {
		return // Cache is empty
	}
	victim := lru.tail.prev
	lru.count--
	delete(lru.cache, victim.key)
	lru.removeNode(victim)
	if lru.onEvict != nil {
		lru.onEvict(victim.key, victim.value)
	}
}

// String returns a string representation of the cache.
func (lru *LRU[K, V]) String() string {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	sb := &strings.Builder{}
	sb.WriteString(fmt.Sprintf("(%d/%d) [", lru.count, lru.cap))
	for node := lru.head.next; node != lru.tail; node = node.next {
		sb.WriteString(fmt.Sprintf("%v:%v", node.key, node.value))
		if node.next != lru.tail {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
