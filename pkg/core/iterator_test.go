package core

import (
	"errors"
	"testing"

	"dbc/pkg/common"
	"dbc/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIteratorSeesSnapshotAtOpen(t *testing.T) {
	s, _ := openStore(t)
	m := newTestMap[string, int](t, s, testOptions("M"))

	before, err := m.Keys()
	require.NoError(t, err)
	defer before.Close()

	_, _, err = m.Put("a", 1)
	require.NoError(t, err)

	assert.False(t, before.HasNext())
	_, err = before.Next()
	assert.True(t, errors.Is(err, common.ErrIteratorExhausted))

	after, err := m.Keys()
	require.NoError(t, err)
	defer after.Close()
	assert.True(t, after.HasNext())
}

func TestIteratorIgnoresConcurrentWrites(t *testing.T) {
	s, _ := openStore(t)
	m := newTestMap[int, string](t, s, testOptions("M"))
	require.NoError(t, m.PutAll(map[int]string{1: "a", 2: "b"}))

	it, err := m.Values()
	require.NoError(t, err)
	defer it.Close()
	assert.Equal(t, 2, it.Len())

	// Writes through the map land while the read view stays open.
	_, _, err = m.Put(3, "c")
	require.NoError(t, err)
	_, _, err = m.Remove(1)
	require.NoError(t, err)

	got, err := it.Collect()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, got)
}

func TestIteratorRemove(t *testing.T) {
	s, _ := openStore(t)
	m := newTestMap[string, int](t, s, testOptions("M"))
	require.NoError(t, m.PutAll(map[string]int{"a": 1, "b": 2, "c": 3}))

	it, err := m.Entries()
	require.NoError(t, err)
	defer it.Close()

	err = it.Remove()
	assert.True(t, errors.Is(err, common.ErrIteratorExhausted))

	for it.HasNext() {
		e, err := it.Next()
		require.NoError(t, err)
		if e.Value != 2 {
			require.NoError(t, it.Remove())
			// A second Remove needs another Next.
			assert.Error(t, it.Remove())
		}
	}

	keys, err := m.Keys()
	require.NoError(t, err)
	got, err := keys.Collect()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got)

	size, err := m.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestListIteratorIsOrdered(t *testing.T) {
	l := newTestList(t, testOptions("L"), "c", "a", "b")
	require.NoError(t, l.Insert(0, "first"))

	it, err := l.Iterator()
	require.NoError(t, err)
	var got []string
	for it.HasNext() {
		v, err := it.Next()
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []string{"first", "c", "a", "b"}, got)

	_, err = it.Next()
	assert.True(t, errors.Is(err, common.ErrIteratorExhausted))
	it.Close()
	it.Close()
}

func TestIteratorOverEmptyMap(t *testing.T) {
	s, _ := openStore(t)
	m := newTestMap[string, int](t, s, testOptions("M"))

	it, err := m.Keys()
	require.NoError(t, err)
	got, err := it.Collect()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func openMemoryStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	require.NoError(t, err)
	require.True(t, s.InMemory())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMemoryIteratorRemove(t *testing.T) {
	s := openMemoryStore(t)
	m := newTestMap[string, int](t, s, testOptions("M"))
	require.NoError(t, m.PutAll(map[string]int{"a": 1, "b": 2}))

	it, err := m.Keys()
	require.NoError(t, err)
	defer it.Close()

	first, err := it.Next()
	require.NoError(t, err)
	require.NoError(t, it.Remove())

	size, err := m.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)
	ok, err := m.ContainsKey(first)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, it.HasNext())
	_, err = it.Next()
	require.NoError(t, err)
	assert.False(t, it.HasNext())
}

func TestMemoryIteratorIgnoresConcurrentWrites(t *testing.T) {
	s := openMemoryStore(t)
	m := newTestMap[int, string](t, s, testOptions("M"))
	require.NoError(t, m.PutAll(map[int]string{1: "a", 2: "b"}))

	it, err := m.Values()
	require.NoError(t, err)
	defer it.Close()
	assert.Equal(t, 2, it.Len())

	_, _, err = m.Put(3, "c")
	require.NoError(t, err)
	_, _, err = m.Remove(1)
	require.NoError(t, err)

	got, err := it.Collect()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, got)
}

func TestMemoryEntrySetValueWhileIterating(t *testing.T) {
	s := openMemoryStore(t)
	m := newTestMap[string, int](t, s, testOptions("M"))
	require.NoError(t, m.PutAll(map[string]int{"a": 1, "b": 2}))

	it, err := m.Entries()
	require.NoError(t, err)
	defer it.Close()
	for it.HasNext() {
		e, err := it.Next()
		require.NoError(t, err)
		_, err = e.SetValue(e.Value * 10)
		require.NoError(t, err)
	}

	v, _, err := m.Get("b")
	require.NoError(t, err)
	assert.Equal(t, 20, v)
}

func TestMemoryListShiftWhileIterating(t *testing.T) {
	s := openMemoryStore(t)
	l, err := NewList[string](s, testOptions("L"))
	require.NoError(t, err)
	defer l.Close()
	for _, v := range []string{"a", "b"} {
		require.NoError(t, l.Add(v))
	}

	it, err := l.Iterator()
	require.NoError(t, err)
	defer it.Close()

	require.NoError(t, l.Insert(0, "z"))
	got, err := it.Collect()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, []string{"z", "a", "b"}, contents(t, l))
}

func TestIteratorStopsAfterUndecodableRow(t *testing.T) {
	s, path := openStore(t)
	m := newTestMap[string, any](t, s, testOptions("M"))
	require.NoError(t, m.PutAll(map[string]any{"a": tagged{Name: "x"}, "b": tagged{Name: "y"}}))

	// A fresh registry cannot decode the stored type.
	s2, err := storage.Open(path)
	require.NoError(t, err)
	defer s2.Close()
	opts := testOptions("M")
	opts.DropExistingOnStart = false
	other := newTestMap[string, any](t, s2, opts)

	it, err := other.Values()
	require.NoError(t, err)
	defer it.Close()
	require.True(t, it.HasNext())

	_, err = it.Next()
	assert.True(t, errors.Is(err, common.ErrEncoding))
	assert.False(t, it.HasNext())
	_, err = it.Next()
	assert.True(t, errors.Is(err, common.ErrIteratorExhausted))

	// The read view is gone, so the table can be cleared.
	require.NoError(t, other.Clear())
	size, err := m.Size()
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}
