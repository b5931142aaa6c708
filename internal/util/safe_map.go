package util

import (
	"sync"
)

// SafeMap is a string-keyed map guarded by a RWMutex
type SafeMap[V any] struct {
	mu   sync.RWMutex
	data map[string]V
}

func NewSafeMap[V any]() *SafeMap[V] {
	return &SafeMap[V]{
		data: make(map[string]V),
	}
}

func (sm *SafeMap[V]) Set(key string, value V) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.data[key] = value
}

func (sm *SafeMap[V]) Get(key string) (V, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	val, ok := sm.data[key]
	return val, ok
}

// Update applies fn to the current value (zero value and false when absent)
// under the write lock and stores the result.
func (sm *SafeMap[V]) Update(key string, fn func(V, bool) V) V {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	cur, ok := sm.data[key]
	next := fn(cur, ok)
	sm.data[key] = next
	return next
}

// SetIfAbsent stores value only when key is not present and reports whether it did
func (sm *SafeMap[V]) SetIfAbsent(key string, value V) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, ok := sm.data[key]; ok {
		return false
	}
	sm.data[key] = value
	return true
}

func (sm *SafeMap[V]) Delete(key string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.data, key)
}

func (sm *SafeMap[V]) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.data)
}
