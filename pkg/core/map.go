package core

import (
	"fmt"

	"dbc/pkg/common"
	"dbc/pkg/monitor"
	"dbc/pkg/storage"
)

// Map is an associative container whose entries live in a table of store.
//
// Keys and values may be of any type the codec registry can encode. Null
// keys (nil interfaces or nil pointers) are never stored: Put and Remove
// ignore them and Get reports them absent. Null values are stored.
//
// A Map is not safe for concurrent use. Several Maps may address the same
// table; they share one size cache entry.
type Map[K comparable, V any] struct {
	e *engine
}

func NewMap[K comparable, V any](store *storage.Store, opts Options) (*Map[K, V], error) {
	e, err := newEngine(store, kindMap, opts)
	if err != nil {
		return nil, err
	}
	return &Map[K, V]{e: e}, nil
}

// Put associates value with key and returns the previous value. The second
// result reports whether key was present.
func (m *Map[K, V]) Put(key K, value V) (V, bool, error) {
	prev, found, err := m.e.put(key, value)
	if err != nil {
		var zero V
		return zero, false, err
	}
	v, err := cast[V]("put", prev)
	return v, found, err
}

// Get returns the value of key. found is false when key is absent; a present
// key with a null value yields the zero V and found set.
func (m *Map[K, V]) Get(key K) (V, bool, error) {
	raw, found, err := m.e.get(key)
	if err != nil || !found {
		var zero V
		return zero, false, err
	}
	v, err := cast[V]("get", raw)
	return v, err == nil, err
}

func (m *Map[K, V]) ContainsKey(key K) (bool, error) {
	return m.e.containsKey(key)
}

func (m *Map[K, V]) ContainsValue(value V) (bool, error) {
	return m.e.containsValue(value)
}

// Remove deletes key and returns its previous value.
func (m *Map[K, V]) Remove(key K) (V, bool, error) {
	prev, found, err := m.e.remove(key)
	if err != nil || !found {
		var zero V
		return zero, false, err
	}
	v, err := cast[V]("remove", prev)
	return v, true, err
}

// RemoveValue deletes one entry holding value.
func (m *Map[K, V]) RemoveValue(value V) (bool, error) {
	return m.e.removeValue(value)
}

func (m *Map[K, V]) Size() (int, error) {
	return m.e.size()
}

func (m *Map[K, V]) IsEmpty() (bool, error) {
	n, err := m.e.size()
	return n == 0, err
}

func (m *Map[K, V]) Clear() error {
	return m.e.clear()
}

func (m *Map[K, V]) PutAll(src map[K]V) error {
	for k, v := range src {
		if _, _, err := m.e.put(k, v); err != nil {
			return err
		}
	}
	return nil
}

// PutAllFrom copies every entry of src, replacing entries with equal keys.
// When both maps live in the same database the rows are copied in bulk.
func (m *Map[K, V]) PutAllFrom(src *Map[K, V]) error {
	return m.e.putAllFrom(src.e)
}

// RetainAllKeys deletes every entry whose key is not in keys. It reports
// whether anything was deleted.
func (m *Map[K, V]) RetainAllKeys(keys []K) (bool, error) {
	vals := make([]any, len(keys))
	for i, k := range keys {
		vals[i] = k
	}
	return m.e.retainAll(common.ColID, common.ColKeyType, vals)
}

// RetainAllValues deletes every entry whose value is not in values.
func (m *Map[K, V]) RetainAllValues(values []V) (bool, error) {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return m.e.retainAll(common.ColValueHash, common.ColValueType, vals)
}

func (m *Map[K, V]) Keys() (*Iterator[K], error) {
	cur, err := m.e.openCursor("")
	if err != nil {
		return nil, err
	}
	return newIterator(cur, projectKey[K]), nil
}

func (m *Map[K, V]) Values() (*Iterator[V], error) {
	cur, err := m.e.openCursor("")
	if err != nil {
		return nil, err
	}
	return newIterator(cur, projectValue[V]), nil
}

func (m *Map[K, V]) Entries() (*Iterator[*Entry[K, V]], error) {
	cur, err := m.e.openCursor("")
	if err != nil {
		return nil, err
	}
	return newIterator(cur, func(rec *common.Record) (*Entry[K, V], error) {
		k, err := cast[K]("next", rec.Key)
		if err != nil {
			return nil, err
		}
		v, err := cast[V]("next", rec.Value)
		if err != nil {
			return nil, err
		}
		return &Entry[K, V]{Key: k, Value: v, m: m}, nil
	}), nil
}

func (m *Map[K, V]) Table() string {
	return m.e.table
}

func (m *Map[K, V]) Stats() *monitor.WorkloadStats {
	return m.e.stats
}

func (m *Map[K, V]) String() string {
	return fmt.Sprintf("%s(%s@%s)", m.e.kind, m.e.table, m.e.store.Identity())
}

// Close releases prepared statements. The store stays open.
func (m *Map[K, V]) Close() {
	m.e.close()
}

// Entry is a key/value pair read by an entry iterator.
type Entry[K comparable, V any] struct {
	Key   K
	Value V

	m *Map[K, V]
}

// SetValue writes value through to the map and returns the previous value.
func (en *Entry[K, V]) SetValue(value V) (V, error) {
	prev, _, err := en.m.Put(en.Key, value)
	if err != nil {
		return prev, err
	}
	en.Value = value
	return prev, nil
}

func (en *Entry[K, V]) String() string {
	return fmt.Sprintf("%v=%v", en.Key, en.Value)
}
