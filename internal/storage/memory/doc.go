// Package memory provides the volatile key-value store behind respkv.
//
// All keys live in one map guarded by a single mutex, so every operation is
// atomic with respect to every other operation on the same Store.
//
// Expiry:
//
// Entries written with a TTL carry an absolute deadline. A read that finds
// an entry past its deadline removes it on the spot (lazy expiry). Deadlines
// are also kept in a min-heap that RunExpiry drains in the background
// (active expiry). Each entry knows its heap position, so overwriting a key,
// clearing its TTL or removing it lazily takes the old deadline out of the
// heap immediately. The heap therefore never holds more deadlines than there
// are keys, and a stale deadline can never remove a rewritten key.
package memory
