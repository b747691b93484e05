package cmap

// Range calls fn for every item until fn returns false.
// fn must not call back into the map for a key in the shard being visited.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Keys returns all keys.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Count())
	m.Range(func(key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Values returns all values.
func (m *Map[K, V]) Values() []V {
	values := make([]V, 0, m.Count())
	m.Range(func(_ K, value V) bool {
		values = append(values, value)
		return true
	})
	return values
}

// GetOrSet returns the existing value for key, or stores and returns the
// value built by create. loaded reports whether the value already existed.
// create runs under the shard lock.
func (m *Map[K, V]) GetOrSet(key K, create func() V) (actual V, loaded bool) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.items[key]; ok {
		return v, true
	}
	v := create()
	s.items[key] = v
	return v, false
}

// Pop removes key and returns its value.
func (m *Map[K, V]) Pop(key K) (V, bool) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return v, ok
}

// RemoveIf deletes every item for which fn returns true and reports how
// many were removed.
func (m *Map[K, V]) RemoveIf(fn func(key K, value V) bool) int {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if fn(k, v) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}
