// Package cmap provides a concurrent map sharded by a murmur3 hash of the key.
//
// Each shard has its own RWMutex, so operations on keys in different shards
// never contend. respkv uses it for the live connection registry and the
// per-IP rate limiters, both of which are touched from every connection
// goroutine.
//
// Usage:
//
//	m := cmap.New[int64, *client](cmap.Int64Hasher)
//	m.Set(id, c)
//	c, ok := m.Get(id)
//
// Iteration locks one shard at a time, so Range does not observe a single
// consistent snapshot of the whole map.
package cmap
