package core

import (
	"errors"
	"testing"

	"dbc/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestList[E any](t *testing.T, opts Options, items ...E) *List[E] {
	t.Helper()
	s, _ := openStore(t)
	l, err := NewList[E](s, opts)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	for _, v := range items {
		require.NoError(t, l.Add(v))
	}
	return l
}

func contents[E any](t *testing.T, l *List[E]) []E {
	t.Helper()
	got, err := l.ToSlice()
	require.NoError(t, err)
	return got
}

func TestListInsertRemoveIndexOf(t *testing.T) {
	l := newTestList(t, testOptions("L"), "a", "b", "c")

	require.NoError(t, l.Insert(1, "x"))
	assert.Equal(t, []string{"a", "x", "b", "c"}, contents(t, l))

	idx, err := l.IndexOf("b")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	removed, err := l.RemoveAt(0)
	require.NoError(t, err)
	assert.Equal(t, "a", removed)
	assert.Equal(t, []string{"x", "b", "c"}, contents(t, l))

	idx, err = l.IndexOf("b")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	for i, want := range []string{"x", "b", "c"} {
		got, err := l.Get(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestListInsertAtEndsAndShiftsTwice(t *testing.T) {
	l := newTestList(t, testOptions("L"), 1, 2, 3)

	require.NoError(t, l.Insert(0, 0))
	require.NoError(t, l.Add(4))
	require.NoError(t, l.Insert(2, 99))
	assert.Equal(t, []int{0, 1, 99, 2, 3, 4}, contents(t, l))

	_, err := l.RemoveAt(5)
	require.NoError(t, err)
	_, err = l.RemoveAt(2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, contents(t, l))

	assert.True(t, l.Stats().ShiftCount >= 3)
}

func TestListSet(t *testing.T) {
	l := newTestList(t, testOptions("L"), "a", "b")

	prev, err := l.Set(1, "B")
	require.NoError(t, err)
	assert.Equal(t, "b", prev)
	assert.Equal(t, []string{"a", "B"}, contents(t, l))
}

func TestListBoundsAreCheckedBeforeMutation(t *testing.T) {
	l := newTestList(t, testOptions("L"), "a", "b")

	_, err := l.Get(2)
	assert.True(t, errors.Is(err, common.ErrIndexOutOfRange))
	_, err = l.Get(-1)
	assert.True(t, errors.Is(err, common.ErrIndexOutOfRange))
	_, err = l.Set(5, "z")
	assert.True(t, errors.Is(err, common.ErrIndexOutOfRange))
	_, err = l.RemoveAt(2)
	assert.True(t, errors.Is(err, common.ErrIndexOutOfRange))
	err = l.Insert(3, "z")
	assert.True(t, errors.Is(err, common.ErrIndexOutOfRange))
	err = l.Insert(2, "z")
	assert.True(t, errors.Is(err, common.ErrIndexOutOfRange))
	err = l.RemoveRange(1, 0)
	assert.True(t, errors.Is(err, common.ErrIndexOutOfRange))

	var ie *common.IndexError
	_, err = l.Get(7)
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 7, ie.Index)
	assert.Equal(t, 2, ie.Size)

	assert.Equal(t, []string{"a", "b"}, contents(t, l))
	assert.Zero(t, l.Stats().ShiftCount)
}

func TestListRemoveRange(t *testing.T) {
	opts := testOptions("L")
	opts.CacheSize = true
	l := newTestList(t, opts, "a", "b", "c", "d", "e", "f")

	require.NoError(t, l.RemoveRange(1, 3))
	assert.Equal(t, []string{"a", "e", "f"}, contents(t, l))

	size, err := l.Size()
	require.NoError(t, err)
	assert.Equal(t, 3, size)

	require.NoError(t, l.RemoveRange(1, 2))
	assert.Equal(t, []string{"a"}, contents(t, l))
}

func TestListIndexOfWithDuplicatesAndNull(t *testing.T) {
	l := newTestList[any](t, testOptions("L"), "a", nil, "b", "a", nil)

	idx, err := l.IndexOf("a")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	idx, err = l.LastIndexOf("a")
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	idx, err = l.IndexOf(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	idx, err = l.LastIndexOf(nil)
	require.NoError(t, err)
	assert.Equal(t, 4, idx)

	idx, err = l.IndexOf("zzz")
	require.NoError(t, err)
	assert.Equal(t, -1, idx)

	ok, err := l.Contains(nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListMirrorColumnsFollowShifts(t *testing.T) {
	opts := testOptions("L")
	opts.DebugMirrorColumns = true
	l := newTestList(t, opts, "a", "b")

	require.NoError(t, l.Insert(0, "z"))

	var pos string
	require.NoError(t, l.e.db.QueryRow("SELECT KEY_TO_STRING FROM L WHERE VALUE_STRING = 'b'").Scan(&pos))
	assert.Equal(t, "2", pos)
}

func TestListClear(t *testing.T) {
	l := newTestList(t, testOptions("L"), 1, 2)
	require.NoError(t, l.Clear())

	empty, err := l.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, l.Add(5))
	assert.Equal(t, []int{5}, contents(t, l))
}

func TestListInsertAfterShiftFailsReportsSequenceConsistency(t *testing.T) {
	l := newTestList(t, testOptions("L"), "a", "b")
	_, err := l.e.db.Exec("CREATE TRIGGER L_NO_INSERT BEFORE INSERT ON L BEGIN SELECT RAISE(ABORT, 'insert blocked'); END")
	require.NoError(t, err)

	err = l.Insert(0, "z")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrSequenceConsistency))
	assert.True(t, errors.Is(err, common.ErrBackend))
	assert.EqualValues(t, 1, l.Stats().ShiftCount)

	// Appending does not shift, so it fails as a plain insert.
	err = l.Add("c")
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrSequenceConsistency))
}

func TestListShiftAfterRemoveFailsReportsSequenceConsistency(t *testing.T) {
	l := newTestList(t, testOptions("L"), "a", "b", "c", "d", "e")
	_, err := l.e.db.Exec("CREATE TRIGGER L_NO_UPDATE BEFORE UPDATE ON L BEGIN SELECT RAISE(ABORT, 'update blocked'); END")
	require.NoError(t, err)

	_, err = l.RemoveAt(0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrSequenceConsistency))

	err = l.RemoveRange(1, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrSequenceConsistency))

	// Both deletes went through; only the renumbering is missing.
	size, err := l.Size()
	require.NoError(t, err)
	require.Equal(t, 2, size)
	_, err = l.e.db.Exec("DROP TRIGGER L_NO_UPDATE")
	require.NoError(t, err)
	assert.Zero(t, l.Stats().ShiftCount)
}
