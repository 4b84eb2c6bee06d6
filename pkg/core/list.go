package core

import (
	"database/sql"
	"errors"
	"fmt"

	"dbc/pkg/common"
	"dbc/pkg/monitor"
	"dbc/pkg/storage"
)

// List is an ordered sequence stored as a map from position to element.
//
// Positions are 0-based and contiguous. Because an int key hashes to itself,
// the row id equals the position, and inserting or removing in the middle
// renumbers the whole suffix with one pair of UPDATE statements instead of
// one round trip per element.
//
// A shift and the insert or delete that depends on it are separate steps.
// If the second step fails the sequence may have a gap or a duplicate and
// the error matches common.ErrSequenceConsistency.
type List[E any] struct {
	e       *engine
	keyType string

	shiftUp   string
	shiftDown string
	findFirst string
	findLast  string
	nullFirst string
	nullLast  string
	dropRange string
}

func NewList[E any](store *storage.Store, opts Options) (*List[E], error) {
	e, err := newEngine(store, kindList, opts)
	if err != nil {
		return nil, err
	}

	t := e.table
	id, kt, pos := common.ColID, common.ColKeyType, common.ColIntKey
	vh, vt := common.ColValueHash, common.ColValueType

	mirror := ""
	if e.opts.DebugMirrorColumns {
		mirror = fmt.Sprintf(", %s = CAST(%s AS TEXT)", common.ColKeyString, pos)
	}

	find := "SELECT %s FROM %s WHERE %s = ? AND %s = ? AND %s = ? ORDER BY %s %s LIMIT 1"
	l := &List[E]{
		e:       e,
		keyType: typeNameOf(e.codecs, 0),
		// shiftUp parks every moved row on a negative id and shiftDown flips
		// it back. Primary keys are checked per row, so moving ids in place
		// would collide with the neighbour that has not moved yet.
		shiftUp: fmt.Sprintf("UPDATE %s SET %s = -(%s + ?) - 1, %s = %s + ? WHERE %s = ? AND %s >= ?",
			t, id, id, pos, pos, kt, pos),
		shiftDown: fmt.Sprintf("UPDATE %s SET %s = -%s - 1%s WHERE %s = ? AND %s < 0",
			t, id, id, mirror, kt, id),
		findFirst: fmt.Sprintf(find, pos, t, kt, vh, vt, pos, "ASC"),
		findLast:  fmt.Sprintf(find, pos, t, kt, vh, vt, pos, "DESC"),
		nullFirst: fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s IS NULL AND %s IS NULL ORDER BY %s ASC LIMIT 1",
			pos, t, kt, vh, vt, pos),
		nullLast: fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s IS NULL AND %s IS NULL ORDER BY %s DESC LIMIT 1",
			pos, t, kt, vh, vt, pos),
		dropRange: fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s BETWEEN ? AND ?", t, kt, pos),
	}
	return l, nil
}

func (l *List[E]) Size() (int, error) {
	return l.e.size()
}

func (l *List[E]) IsEmpty() (bool, error) {
	n, err := l.e.size()
	return n == 0, err
}

func (l *List[E]) Contains(v E) (bool, error) {
	return l.e.containsValue(v)
}

func checkIndex(i, size int) error {
	if i < 0 || i >= size {
		return &common.IndexError{Index: i, Size: size}
	}
	return nil
}

func (l *List[E]) Get(i int) (E, error) {
	var zero E
	size, err := l.e.size()
	if err != nil {
		return zero, err
	}
	if err := checkIndex(i, size); err != nil {
		return zero, err
	}

	raw, found, err := l.e.get(i)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, common.SequenceConsistency("get", fmt.Sprintf("no element at position %d of %d", i, size), nil)
	}
	return cast[E]("get", raw)
}

// Set replaces the element at i and returns the old one.
func (l *List[E]) Set(i int, v E) (E, error) {
	var zero E
	size, err := l.e.size()
	if err != nil {
		return zero, err
	}
	if err := checkIndex(i, size); err != nil {
		return zero, err
	}

	prev, _, err := l.e.put(i, v)
	if err != nil {
		return zero, err
	}
	return cast[E]("set", prev)
}

// Add appends v.
func (l *List[E]) Add(v E) error {
	size, err := l.e.size()
	if err != nil {
		return err
	}
	return l.e.insert(size, v)
}

// Insert places v at position i, moving the element at i and everything
// after it up by one. i must be in [0, Size); use Add to append.
func (l *List[E]) Insert(i int, v E) error {
	size, err := l.e.size()
	if err != nil {
		return err
	}
	if err := checkIndex(i, size); err != nil {
		return err
	}

	if err := l.shift(i, 1); err != nil {
		return err
	}
	if err := l.e.insert(i, v); err != nil {
		return common.SequenceConsistency("insert", fmt.Sprintf("positions from %d were shifted but the insert failed", i), err)
	}
	return nil
}

// RemoveAt deletes the element at i and returns it.
func (l *List[E]) RemoveAt(i int) (E, error) {
	var zero E
	size, err := l.e.size()
	if err != nil {
		return zero, err
	}
	if err := checkIndex(i, size); err != nil {
		return zero, err
	}

	prev, found, err := l.e.remove(i)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, common.SequenceConsistency("remove", fmt.Sprintf("no element at position %d of %d", i, size), nil)
	}
	if i < size-1 {
		if err := l.shift(i+1, -1); err != nil {
			return zero, common.SequenceConsistency("remove", fmt.Sprintf("element %d was removed but the shift failed", i), err)
		}
	}
	return cast[E]("remove", prev)
}

// RemoveRange deletes the elements at positions from through to, inclusive.
func (l *List[E]) RemoveRange(from, to int) error {
	size, err := l.e.size()
	if err != nil {
		return err
	}
	if err := checkIndex(from, size); err != nil {
		return err
	}
	if err := checkIndex(to, size); err != nil {
		return err
	}
	if from > to {
		return fmt.Errorf("%w: range start %d is after end %d", common.ErrIndexOutOfRange, from, to)
	}

	l.e.stats.RecordRemove()
	_, err = l.e.db.Exec(l.dropRange, l.keyType, from, to)
	l.e.invalidate()
	if err != nil {
		return common.Connectivity("remove range", l.e.table, err)
	}
	if to < size-1 {
		if err := l.shift(to+1, -(to - from + 1)); err != nil {
			return common.SequenceConsistency("remove range",
				fmt.Sprintf("positions %d..%d were removed but the shift failed", from, to), err)
		}
	}
	return nil
}

// shift adds delta to the position of every element at or after from.
func (l *List[E]) shift(from, delta int) error {
	tx, err := l.e.db.Begin()
	if err != nil {
		return common.Connectivity("shift", l.e.table, err)
	}
	if _, err := tx.Exec(l.shiftUp, delta, delta, l.keyType, from); err != nil {
		tx.Rollback()
		return common.Connectivity("shift", l.e.table, err)
	}
	if _, err := tx.Exec(l.shiftDown, l.keyType); err != nil {
		tx.Rollback()
		return common.Connectivity("shift", l.e.table, err)
	}
	if err := tx.Commit(); err != nil {
		return common.Connectivity("shift", l.e.table, err)
	}
	l.e.stats.RecordShift()
	return nil
}

// IndexOf returns the first position holding v, or -1.
func (l *List[E]) IndexOf(v E) (int, error) {
	return l.position(v, l.findFirst, l.nullFirst)
}

// LastIndexOf returns the last position holding v, or -1.
func (l *List[E]) LastIndexOf(v E) (int, error) {
	return l.position(v, l.findLast, l.nullLast)
}

func (l *List[E]) position(v E, query, nullQuery string) (int, error) {
	ok, err := l.e.containsValue(v)
	if err != nil || !ok {
		return -1, err
	}

	var row *sql.Row
	if isNil(v) {
		row = l.e.db.QueryRow(nullQuery, l.keyType)
	} else {
		vc := l.e.codecs.For(v)
		h, err := vc.Hash(v)
		if err != nil {
			return -1, err
		}
		row = l.e.db.QueryRow(query, l.keyType, h, vc.TypeName())
	}

	var pos int
	err = row.Scan(&pos)
	if errors.Is(err, sql.ErrNoRows) {
		return -1, nil
	}
	if err != nil {
		return -1, common.Connectivity("index of", l.e.table, err)
	}
	return pos, nil
}

func (l *List[E]) Clear() error {
	return l.e.clear()
}

// Iterator walks the elements in position order.
func (l *List[E]) Iterator() (*Iterator[E], error) {
	cur, err := l.e.openCursor(common.ColIntKey + " ASC")
	if err != nil {
		return nil, err
	}
	return newIterator(cur, projectValue[E]), nil
}

func (l *List[E]) ToSlice() ([]E, error) {
	it, err := l.Iterator()
	if err != nil {
		return nil, err
	}
	return it.Collect()
}

func (l *List[E]) Table() string {
	return l.e.table
}

func (l *List[E]) Stats() *monitor.WorkloadStats {
	return l.e.stats
}

func (l *List[E]) String() string {
	return fmt.Sprintf("%s(%s@%s)", l.e.kind, l.e.table, l.e.store.Identity())
}

func (l *List[E]) Close() {
	l.e.close()
}
