package core

import (
	"errors"
	"path/filepath"
	"testing"

	"dbc/pkg/codec"
	"dbc/pkg/common"
	"dbc/pkg/monitor"
	"dbc/pkg/sizecache"
	"dbc/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) (*storage.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dbc.db")
	s, err := storage.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

// testOptions isolates each test from process-wide state.
func testOptions(table string) Options {
	opts := DefaultOptions()
	opts.TableName = table
	opts.DropExistingOnStart = true
	opts.Codecs = codec.NewRegistry()
	opts.SizeCache = sizecache.New()
	opts.Namer = storage.NewNamer()
	opts.Logger = monitor.NopLogger()
	return opts
}

func newTestMap[K comparable, V any](t *testing.T, s *storage.Store, opts Options) *Map[K, V] {
	t.Helper()
	m, err := NewMap[K, V](s, opts)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestPutGetReturnsPrevious(t *testing.T) {
	s, _ := openStore(t)
	m := newTestMap[string, int](t, s, testOptions("M"))

	prev, existed, err := m.Put("a", 1)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, 0, prev)

	prev, existed, err = m.Put("a", 2)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, 1, prev)

	v, found, err := m.Get("a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, v)

	_, found, err = m.Get("missing")
	require.NoError(t, err)
	assert.False(t, found)

	size, err := m.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestNullValues(t *testing.T) {
	s, _ := openStore(t)
	m := newTestMap[string, any](t, s, testOptions("M"))

	_, _, err := m.Put("k", "v")
	require.NoError(t, err)
	prev, existed, err := m.Put("k", nil)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, "v", prev)

	v, found, err := m.Get("k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, v)

	ok, err := m.ContainsValue(nil)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.ContainsValue("v")
	require.NoError(t, err)
	assert.False(t, ok)

	// A value can change type in place.
	_, _, err = m.Put("k", 42)
	require.NoError(t, err)
	v, _, err = m.Get("k")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	ok, err = m.ContainsValue(nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNilKeysAreIgnored(t *testing.T) {
	s, _ := openStore(t)
	m := newTestMap[*string, string](t, s, testOptions("M"))

	_, existed, err := m.Put(nil, "x")
	require.NoError(t, err)
	assert.False(t, existed)

	_, found, err := m.Get(nil)
	require.NoError(t, err)
	assert.False(t, found)

	ok, err := m.ContainsKey(nil)
	require.NoError(t, err)
	assert.False(t, ok)

	_, found, err = m.Remove(nil)
	require.NoError(t, err)
	assert.False(t, found)

	size, err := m.Size()
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

type tagged struct {
	Name string
}

func (tagged) Hash() int64 { return 7 }

func TestEqualHashesOfDifferentTypesDoNotCollide(t *testing.T) {
	s, _ := openStore(t)
	m := newTestMap[any, string](t, s, testOptions("M"))

	// int 7 hashes to 7, and so does every tagged value.
	_, _, err := m.Put(7, "A")
	require.NoError(t, err)
	_, _, err = m.Put(tagged{Name: "seven"}, "B")
	require.NoError(t, err)

	v, _, err := m.Get(7)
	require.NoError(t, err)
	assert.Equal(t, "A", v)
	v, _, err = m.Get(tagged{Name: "seven"})
	require.NoError(t, err)
	assert.Equal(t, "B", v)

	size, err := m.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, size)
}

func TestEqualValueHashesOfDifferentTypes(t *testing.T) {
	s, _ := openStore(t)
	m := newTestMap[string, any](t, s, testOptions("M"))

	_, _, err := m.Put("a", tagged{Name: "x"})
	require.NoError(t, err)

	ok, err := m.ContainsValue(7)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = m.ContainsValue(tagged{Name: "x"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemoveAndClear(t *testing.T) {
	s, _ := openStore(t)
	m := newTestMap[int, string](t, s, testOptions("M"))

	for i, v := range []string{"a", "b", "c"} {
		_, _, err := m.Put(i, v)
		require.NoError(t, err)
	}

	prev, found, err := m.Remove(1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "b", prev)

	ok, err := m.ContainsKey(1)
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err := m.RemoveValue("c")
	require.NoError(t, err)
	assert.True(t, removed)

	size, err := m.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	require.NoError(t, m.Clear())
	empty, err := m.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestRetainAllKeys(t *testing.T) {
	s, _ := openStore(t)
	m := newTestMap[string, int](t, s, testOptions("M"))
	require.NoError(t, m.PutAll(map[string]int{"a": 1, "b": 2, "c": 3}))

	changed, err := m.RetainAllKeys([]string{"a", "c", "zzz"})
	require.NoError(t, err)
	assert.True(t, changed)

	keys, err := m.Keys()
	require.NoError(t, err)
	got, err := keys.Collect()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c"}, got)

	changed, err = m.RetainAllKeys([]string{"a", "c"})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRetainAllKeysEmptyClears(t *testing.T) {
	s, _ := openStore(t)
	m := newTestMap[string, int](t, s, testOptions("M"))
	require.NoError(t, m.PutAll(map[string]int{"a": 1, "b": 2}))

	changed, err := m.RetainAllKeys(nil)
	require.NoError(t, err)
	assert.True(t, changed)

	size, err := m.Size()
	require.NoError(t, err)
	assert.Equal(t, 0, size)

	changed, err = m.RetainAllKeys(nil)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRetainAllValuesWithNull(t *testing.T) {
	s, _ := openStore(t)
	m := newTestMap[string, any](t, s, testOptions("M"))
	require.NoError(t, m.PutAll(map[string]any{"a": 1, "b": nil, "c": "x", "d": 1}))

	changed, err := m.RetainAllValues([]any{1})
	require.NoError(t, err)
	assert.True(t, changed)

	keys, err := m.Keys()
	require.NoError(t, err)
	got, err := keys.Collect()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "d"}, got)

	require.NoError(t, m.PutAll(map[string]any{"b": nil}))
	changed, err = m.RetainAllValues([]any{nil})
	require.NoError(t, err)
	assert.True(t, changed)
	keys, err = m.Keys()
	require.NoError(t, err)
	got, err = keys.Collect()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got)
}

func TestSizeCacheSharedAcrossHandles(t *testing.T) {
	_, path := openStore(t)
	cache := sizecache.New()

	open := func() *Map[string, int] {
		s, err := storage.Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		opts := testOptions("SHARED")
		opts.DropExistingOnStart = false
		opts.CacheSize = true
		opts.SizeCache = cache
		return newTestMap[string, int](t, s, opts)
	}
	a, b := open(), open()

	sizeOf := func(m *Map[string, int]) int {
		n, err := m.Size()
		require.NoError(t, err)
		return n
	}
	assert.Equal(t, 0, sizeOf(a))
	assert.Equal(t, 0, sizeOf(b))

	_, _, err := a.Put("x", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sizeOf(b))
	assert.Equal(t, 1, sizeOf(a))

	_, _, err = b.Remove("x")
	require.NoError(t, err)
	assert.Equal(t, 0, sizeOf(a))

	_, _, err = b.Put("y", 2)
	require.NoError(t, err)
	require.NoError(t, b.Clear())
	assert.Equal(t, 0, sizeOf(a))

	assert.True(t, a.Stats().SizeHitCount > 0)
}

func TestPutAllFromSameStore(t *testing.T) {
	s, _ := openStore(t)
	opts := testOptions("SRC")
	src := newTestMap[string, any](t, s, opts)
	opts.TableName = "DST"
	dst := newTestMap[string, any](t, s, opts)

	require.NoError(t, src.PutAll(map[string]any{"a": 1, "b": nil}))
	require.NoError(t, dst.PutAll(map[string]any{"a": "old", "c": 3}))

	require.NoError(t, dst.PutAllFrom(src))

	v, _, err := dst.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, found, err := dst.Get("b")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, v)

	size, err := dst.Size()
	require.NoError(t, err)
	assert.Equal(t, 3, size)

	// Copying a map onto itself changes nothing.
	require.NoError(t, dst.PutAllFrom(dst))
	size, err = dst.Size()
	require.NoError(t, err)
	assert.Equal(t, 3, size)
}

func TestPutAllFromOtherStore(t *testing.T) {
	s1, _ := openStore(t)
	s2, _ := openStore(t)
	opts := testOptions("M")
	src := newTestMap[string, int](t, s1, opts)
	dst := newTestMap[string, int](t, s2, opts)

	require.NoError(t, src.PutAll(map[string]int{"a": 1, "b": 2}))
	require.NoError(t, dst.PutAllFrom(src))

	v, _, err := dst.Get("b")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestUnknownStoredTypeIsEncodingError(t *testing.T) {
	s, path := openStore(t)
	opts := testOptions("M")
	m := newTestMap[string, any](t, s, opts)
	_, _, err := m.Put("k", tagged{Name: "x"})
	require.NoError(t, err)

	// A second process with a fresh registry has never seen the type.
	s2, err := storage.Open(path)
	require.NoError(t, err)
	defer s2.Close()
	opts2 := testOptions("M")
	opts2.DropExistingOnStart = false
	other := newTestMap[string, any](t, s2, opts2)

	_, _, err = other.Get("k")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrEncoding))
	assert.True(t, errors.Is(err, common.ErrBackend))

	opts2.Codecs.Register(tagged{})
	v, _, err := other.Get("k")
	require.NoError(t, err)
	assert.Equal(t, tagged{Name: "x"}, v)
}

func TestAutoNamedTablesStartEmpty(t *testing.T) {
	s, _ := openStore(t)
	opts := testOptions("")
	namer := opts.Namer

	m := newTestMap[string, int](t, s, opts)
	assert.Equal(t, "DBMap_1", m.Table())
	_, _, err := m.Put("a", 1)
	require.NoError(t, err)

	// A fresh namer hands out the same name again; the table is emptied.
	opts.Namer = storage.NewNamer()
	again := newTestMap[string, int](t, s, opts)
	assert.Equal(t, "DBMap_1", again.Table())
	size, err := again.Size()
	require.NoError(t, err)
	assert.Equal(t, 0, size)

	opts.Namer = namer
	next := newTestMap[string, int](t, s, opts)
	assert.Equal(t, "DBMap_2", next.Table())
}

func TestMirrorColumns(t *testing.T) {
	s, _ := openStore(t)
	opts := testOptions("M")
	opts.DebugMirrorColumns = true
	m := newTestMap[string, int](t, s, opts)

	_, _, err := m.Put("k", 5)
	require.NoError(t, err)

	var ks, vs string
	require.NoError(t, s.DB().QueryRow("SELECT KEY_TO_STRING, VALUE_TO_STRING FROM M").Scan(&ks, &vs))
	assert.Equal(t, "k", ks)
	assert.Equal(t, "5", vs)
}

func TestEntrySetValueWritesThrough(t *testing.T) {
	s, _ := openStore(t)
	m := newTestMap[string, int](t, s, testOptions("M"))
	_, _, err := m.Put("a", 1)
	require.NoError(t, err)

	it, err := m.Entries()
	require.NoError(t, err)
	entries, err := it.Collect()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	prev, err := entries[0].SetValue(10)
	require.NoError(t, err)
	assert.Equal(t, 1, prev)
	assert.Equal(t, "a=10", entries[0].String())

	v, _, err := m.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 10, v)
}
