package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"dbc/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIdentityIsAbsolutePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.db")

	s1, err := Open(path)
	require.NoError(t, err)
	defer s1.Close()
	s2, err := Open("file:" + path + "?_txlock=immediate")
	require.NoError(t, err)
	defer s2.Close()

	assert.Equal(t, s1.Identity(), s2.Identity())
	assert.True(t, filepath.IsAbs(s1.Identity()))
	assert.False(t, s1.InMemory())
}

func TestMemoryStoresAreDistinct(t *testing.T) {
	a, err := Open(":memory:")
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(":memory:")
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Identity(), b.Identity())
	assert.True(t, a.InMemory())
	assert.True(t, b.InMemory())
}

func TestOpenEmptyDSN(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConnectivity))
}

func TestEnsureTableReuseAndTruncate(t *testing.T) {
	s := openTemp(t)

	created, err := s.EnsureTable("DBMap_1", false)
	require.NoError(t, err)
	assert.True(t, created)

	_, err = s.DB().Exec("INSERT INTO DBMap_1 (ID_HASH, KEY_TYPE, KEY_INT) VALUES (1, 'int', 1)")
	require.NoError(t, err)

	created, err = s.EnsureTable("DBMap_1", false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, count(t, s, "DBMap_1"))

	created, err = s.EnsureTable("DBMap_1", true)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 0, count(t, s, "DBMap_1"))
}

func TestEnsureTableRejectsBadNames(t *testing.T) {
	s := openTemp(t)
	for _, name := range []string{"", "1abc", "a-b", "x; DROP TABLE y"} {
		_, err := s.EnsureTable(name, false)
		assert.Error(t, err, name)
	}
}

func TestPrimaryKeyIsHashAndType(t *testing.T) {
	s := openTemp(t)
	_, err := s.EnsureTable("T", false)
	require.NoError(t, err)

	_, err = s.DB().Exec("INSERT INTO T (ID_HASH, KEY_TYPE) VALUES (7, 'int'), (7, 'string')")
	require.NoError(t, err)
	_, err = s.DB().Exec("INSERT INTO T (ID_HASH, KEY_TYPE) VALUES (7, 'int')")
	assert.Error(t, err)
}

func TestNamerCountsPerKind(t *testing.T) {
	n := NewNamer()
	assert.Equal(t, "DBMap_1", n.Next("DBMap"))
	assert.Equal(t, "DBMap_2", n.Next("DBMap"))
	assert.Equal(t, "DBList_1", n.Next("DBList"))
}

func TestMetadataManager(t *testing.T) {
	s := openTemp(t)
	m, err := NewMetadataManager(s)
	require.NoError(t, err)

	self, found, err := m.Get(MetaTable)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, MetaVersion, self.Version)

	require.NoError(t, m.Register("DBMap_1", "map"))
	require.NoError(t, m.Register("DBMap_1", "map"))

	md, found, err := m.Get("DBMap_1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "map", md.Data)

	md.Version = "1.1"
	require.NoError(t, m.Update(md))
	md, _, err = m.Get("DBMap_1")
	require.NoError(t, err)
	assert.Equal(t, "1.1", md.Version)

	require.NoError(t, m.Remove("DBMap_1"))
	_, found, err = m.Get("DBMap_1")
	require.NoError(t, err)
	assert.False(t, found)

	// A second manager on the same store finds its own row already present.
	_, err = NewMetadataManager(s)
	require.NoError(t, err)
}

func count(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
