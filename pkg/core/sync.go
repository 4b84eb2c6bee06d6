package core

import (
	"sync"

	"dbc/pkg/monitor"
)

// SyncMap serializes access to a Map so it can be shared by server
// goroutines.
type SyncMap[K comparable, V any] struct {
	mu sync.Mutex
	m  *Map[K, V]
}

func NewSyncMap[K comparable, V any](m *Map[K, V]) *SyncMap[K, V] {
	return &SyncMap[K, V]{m: m}
}

func (s *SyncMap[K, V]) Put(key K, value V) (V, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Put(key, value)
}

func (s *SyncMap[K, V]) Get(key K) (V, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Get(key)
}

func (s *SyncMap[K, V]) Remove(key K) (V, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Remove(key)
}

func (s *SyncMap[K, V]) Size() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Size()
}

func (s *SyncMap[K, V]) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Clear()
}

// Keys returns a snapshot of all keys.
func (s *SyncMap[K, V]) Keys() ([]K, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.m.Keys()
	if err != nil {
		return nil, err
	}
	return it.Collect()
}

// Snapshot copies the whole map into memory.
func (s *SyncMap[K, V]) Snapshot() (map[K]V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.m.Entries()
	if err != nil {
		return nil, err
	}
	entries, err := it.Collect()
	if err != nil {
		return nil, err
	}
	out := make(map[K]V, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, nil
}

func (s *SyncMap[K, V]) Stats() *monitor.WorkloadStats {
	return s.m.Stats()
}

func (s *SyncMap[K, V]) Table() string {
	return s.m.Table()
}
