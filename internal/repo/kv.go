package repo

import (
	"sort"
	"sync"
)

// kv is the map shared by the flat scalar repositories.
type kv[K ~string, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func (r *kv[K, V]) init() {
	r.m = make(map[K]V)
}

// Get returns the value stored under key.
func (r *kv[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.m[key]
	return v, ok
}

// Has reports whether key is present.
func (r *kv[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.m[key]
	return ok
}

// Set stores value under key, replacing any previous value.
func (r *kv[K, V]) Set(key K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[key] = value
}

// Delete removes key and reports whether it was present.
func (r *kv[K, V]) Delete(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[key]; !ok {
		return false
	}
	delete(r.m, key)
	return true
}

// Keys returns every key in sorted order.
func (r *kv[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.m)
}

// Len returns the number of entries.
func (r *kv[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}

// All returns a copy of the underlying map.
func (r *kv[K, V]) All() map[K]V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[K]V, len(r.m))
	for k, v := range r.m {
		out[k] = v
	}
	return out
}

// replace swaps the whole map, used when restoring a snapshot.
func (r *kv[K, V]) replace(m map[K]V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m = make(map[K]V, len(m))
	for k, v := range m {
		r.m[k] = v
	}
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
