package service

import "sync"

// keyedMutex serializes validate-then-write sections per key (one key per
// teacher). Entries are never evicted; the population is bounded by the
// teacher roster.
type keyedMutex struct {
	locks sync.Map
}

// lock acquires the mutex for key and returns its unlock func.
func (m *keyedMutex) lock(key string) func() {
	value, _ := m.locks.LoadOrStore(key, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
