package sessionstore

import "sync"

// MemoryStore is a server-side store backed by a process-local map. One
// instance corresponds to one visitor session; the host application is
// responsible for mapping visitors to instances.
type MemoryStore struct {
	lock   sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// ensureStarted lazily initializes the backing map. Safe to call on every
// access; only the first call allocates. Callers must hold the write lock.
func (s *MemoryStore) ensureStarted() {
	if s.values == nil {
		s.values = make(map[string]string)
	}
}

func (s *MemoryStore) Get(field string) (string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	value, ok := s.values[field]
	return value, ok
}

func (s *MemoryStore) Set(field, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.ensureStarted()
	s.values[field] = value
	return nil
}

func (s *MemoryStore) Delete(field string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.values, field)
	return nil
}
