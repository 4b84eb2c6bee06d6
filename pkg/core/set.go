package core

import (
	"fmt"

	"dbc/pkg/common"
	"dbc/pkg/monitor"
	"dbc/pkg/storage"
)

// Set is a collection of distinct elements, stored as map keys with null
// values. Nil elements are never stored.
type Set[E any] struct {
	e *engine
}

func NewSet[E any](store *storage.Store, opts Options) (*Set[E], error) {
	e, err := newEngine(store, kindSet, opts)
	if err != nil {
		return nil, err
	}
	return &Set[E]{e: e}, nil
}

// Add inserts v and reports whether it was not already present.
func (s *Set[E]) Add(v E) (bool, error) {
	if isNil(v) {
		return false, nil
	}
	ok, err := s.e.containsKey(v)
	if err != nil || ok {
		return false, err
	}
	if err := s.e.insert(v, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Set[E]) AddAll(items []E) (bool, error) {
	changed := false
	for _, v := range items {
		added, err := s.Add(v)
		if err != nil {
			return changed, err
		}
		changed = changed || added
	}
	return changed, nil
}

// Remove deletes v and reports whether it was present.
func (s *Set[E]) Remove(v E) (bool, error) {
	_, found, err := s.e.remove(v)
	return found, err
}

func (s *Set[E]) RemoveAll(items []E) (bool, error) {
	changed := false
	for _, v := range items {
		removed, err := s.Remove(v)
		if err != nil {
			return changed, err
		}
		changed = changed || removed
	}
	return changed, nil
}

func (s *Set[E]) Contains(v E) (bool, error) {
	return s.e.containsKey(v)
}

func (s *Set[E]) ContainsAll(items []E) (bool, error) {
	for _, v := range items {
		ok, err := s.e.containsKey(v)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// RetainAll deletes every element not in items.
func (s *Set[E]) RetainAll(items []E) (bool, error) {
	vals := make([]any, len(items))
	for i, v := range items {
		vals[i] = v
	}
	return s.e.retainAll(common.ColID, common.ColKeyType, vals)
}

func (s *Set[E]) Size() (int, error) {
	return s.e.size()
}

func (s *Set[E]) IsEmpty() (bool, error) {
	n, err := s.e.size()
	return n == 0, err
}

func (s *Set[E]) Clear() error {
	return s.e.clear()
}

func (s *Set[E]) Iterator() (*Iterator[E], error) {
	cur, err := s.e.openCursor("")
	if err != nil {
		return nil, err
	}
	return newIterator(cur, projectKey[E]), nil
}

func (s *Set[E]) ToSlice() ([]E, error) {
	it, err := s.Iterator()
	if err != nil {
		return nil, err
	}
	return it.Collect()
}

func (s *Set[E]) Table() string {
	return s.e.table
}

func (s *Set[E]) Stats() *monitor.WorkloadStats {
	return s.e.stats
}

func (s *Set[E]) String() string {
	return fmt.Sprintf("%s(%s@%s)", s.e.kind, s.e.table, s.e.store.Identity())
}

func (s *Set[E]) Close() {
	s.e.close()
}
