package msync

import "sync"

// DataGuard wraps a value with a mutex so that every access to the value
// happens under the lock. Callbacks must not retain references into the
// value past their return.
type DataGuard[T any] struct {
	mutex sync.RWMutex
	value T
}

// NewDataGuard returns a new DataGuard that wraps the given value.
func NewDataGuard[T any](val T) *DataGuard[T] {
	return &DataGuard[T]{
		value: val,
	}
}

// Load runs the given callback under a read lock, passing it the stored
// value.
func (g *DataGuard[T]) Load(cb func(T)) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	cb(g.value)
}

// Store runs the callback under a write lock and replaces the stored
// value with the callback’s return.
func (g *DataGuard[T]) Store(cb func(T) T) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.value = cb(g.value)
}

// Update is like Store but also returns a value derived from the update,
// computed under the same lock.
func Update[T, R any](g *DataGuard[T], cb func(T) (T, R)) R {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	var ret R
	g.value, ret = cb(g.value)

	return ret
}

// Read returns a value derived from the stored value under a read lock.
func Read[T, R any](g *DataGuard[T], cb func(T) R) R {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return cb(g.value)
}
