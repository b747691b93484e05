package cmap

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the default number of shards.
const DefaultShardCount = 16

// Hasher maps a key to a 64-bit hash used for shard selection.
type Hasher[K comparable] func(key K) uint64

// StringHasher hashes string keys with murmur3.
func StringHasher(key string) uint64 {
	return murmur3.Sum64([]byte(key))
}

// Int64Hasher hashes integer keys with murmur3.
func Int64Hasher(key int64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(key))
	return murmur3.Sum64(b[:])
}

// Map is a concurrent-safe sharded map.
type Map[K comparable, V any] struct {
	shards    []*shard[K, V]
	shardMask uint64
	hash      Hasher[K]
}

type shard[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// New creates a sharded map with the default shard count.
// A nil hasher falls back to hashing the key's %v formatting.
func New[K comparable, V any](hasher Hasher[K]) *Map[K, V] {
	return NewWithShards[K, V](DefaultShardCount, hasher)
}

// NewWithShards creates a sharded map with the given shard count, which
// must be a power of 2; other values select DefaultShardCount.
func NewWithShards[K comparable, V any](shardCount int, hasher Hasher[K]) *Map[K, V] {
	if shardCount <= 0 || shardCount&(shardCount-1) != 0 {
		shardCount = DefaultShardCount
	}
	if hasher == nil {
		hasher = func(key K) uint64 {
			return murmur3.Sum64([]byte(fmt.Sprintf("%v", key)))
		}
	}

	m := &Map[K, V]{
		shards:    make([]*shard[K, V], shardCount),
		shardMask: uint64(shardCount - 1),
		hash:      hasher,
	}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{items: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) getShard(key K) *shard[K, V] {
	return m.shards[m.hash(key)&m.shardMask]
}

// Get retrieves a value by key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.getShard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.items[key]
	return val, ok
}

// Set stores a key-value pair.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// Delete removes a key.
func (m *Map[K, V]) Delete(key K) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Has checks if a key exists.
func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Count returns the total number of items.
func (m *Map[K, V]) Count() int {
	count := 0
	for _, s := range m.shards {
		s.mu.RLock()
		count += len(s.items)
		s.mu.RUnlock()
	}
	return count
}

// Clear removes all items.
func (m *Map[K, V]) Clear() {
	for _, s := range m.shards {
		s.mu.Lock()
		s.items = make(map[K]V)
		s.mu.Unlock()
	}
}
