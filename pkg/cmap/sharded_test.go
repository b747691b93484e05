package cmap

import (
	"fmt"
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	m := New[string, int](StringHasher)
	if m == nil {
		t.Fatal("New() returned nil")
	}
	if len(m.shards) != DefaultShardCount {
		t.Errorf("shard count = %d, want %d", len(m.shards), DefaultShardCount)
	}
}

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},
		{-1, DefaultShardCount},
		{3, DefaultShardCount},
		{1, 1},
		{8, 8},
		{32, 32},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := NewWithShards[string, int](tt.input, StringHasher)
			if len(m.shards) != tt.expected {
				t.Errorf("NewWithShards(%d) shard count = %d, want %d",
					tt.input, len(m.shards), tt.expected)
			}
		})
	}
}

func TestNilHasherFallback(t *testing.T) {
	type key struct{ a, b int }
	m := New[key, string](nil)

	m.Set(key{1, 2}, "x")
	if v, ok := m.Get(key{1, 2}); !ok || v != "x" {
		t.Errorf("Get = (%q, %v), want (x, true)", v, ok)
	}
}

func TestHashersAreStable(t *testing.T) {
	if StringHasher("abc") != StringHasher("abc") {
		t.Error("StringHasher is not deterministic")
	}
	if Int64Hasher(42) != Int64Hasher(42) {
		t.Error("Int64Hasher is not deterministic")
	}
	if Int64Hasher(1) == Int64Hasher(2) {
		t.Error("Int64Hasher(1) == Int64Hasher(2)")
	}
}

func TestInt64KeysSpreadAcrossShards(t *testing.T) {
	m := New[int64, struct{}](Int64Hasher)
	for i := int64(1); i <= 256; i++ {
		m.Set(i, struct{}{})
	}

	used := 0
	for _, s := range m.shards {
		if len(s.items) > 0 {
			used++
		}
	}
	if used < DefaultShardCount/2 {
		t.Errorf("only %d of %d shards used for sequential ids", used, DefaultShardCount)
	}
}

func TestSetGetDelete(t *testing.T) {
	m := New[string, int](StringHasher)

	m.Set("key1", 100)
	m.Set("key2", 200)

	if val, ok := m.Get("key1"); !ok || val != 100 {
		t.Errorf("Get(key1) = (%d, %v), want (100, true)", val, ok)
	}
	if !m.Has("key2") {
		t.Error("Has(key2) should return true")
	}

	m.Delete("key1")
	if _, ok := m.Get("key1"); ok {
		t.Error("key1 should not exist after deletion")
	}
	m.Delete("nonexistent")

	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}

	m.Clear()
	if m.Count() != 0 {
		t.Errorf("Count() after Clear() = %d, want 0", m.Count())
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New[int64, int](Int64Hasher)
	var wg sync.WaitGroup
	numGoroutines := 50
	numOps := 500

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				key := int64(base*numOps + j)
				m.Set(key, j)
				m.Get(key)
				m.Has(key)
			}
		}(i)
	}
	wg.Wait()

	if m.Count() != numGoroutines*numOps {
		t.Errorf("Count() = %d, want %d", m.Count(), numGoroutines*numOps)
	}
}
