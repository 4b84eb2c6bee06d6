package core

import (
	"database/sql"
	"fmt"
	"reflect"

	"dbc/pkg/codec"
	"dbc/pkg/common"
)

// cursor reads a table inside its own read transaction. The row count is
// taken first; WAL mode keeps that snapshot stable until the transaction
// ends, so writes made through any handle after the cursor opened are not
// seen.
//
// On an in-memory store the rows are read up front and the transaction ends
// before the cursor is returned, since shared-cache table locks would
// otherwise stall every write until the cursor closes.
type cursor struct {
	e      *engine
	tx     *sql.Tx
	rows   *sql.Rows
	buf    [][]any
	cols   map[string]int
	total  int
	read   int
	last   *common.Record
	done   bool
	failed bool // a row could not be read; iteration is over
}

func (e *engine) openCursor(orderBy string) (*cursor, error) {
	tx, err := e.db.Begin()
	if err != nil {
		return nil, common.Connectivity("iterator", e.table, err)
	}

	c := &cursor{e: e, tx: tx}
	if err := tx.QueryRow(e.q.count).Scan(&c.total); err != nil {
		tx.Rollback()
		return nil, common.Connectivity("iterator", e.table, err)
	}

	q := e.q.selectAll
	if orderBy != "" {
		q += " ORDER BY " + orderBy
	}
	rows, err := tx.Query(q)
	if err != nil {
		tx.Rollback()
		return nil, common.Connectivity("iterator", e.table, err)
	}
	names, err := rows.Columns()
	if err != nil {
		rows.Close()
		tx.Rollback()
		return nil, common.Connectivity("iterator", e.table, err)
	}

	c.rows = rows
	c.cols = make(map[string]int, len(names))
	for i, n := range names {
		c.cols[n] = i
	}
	e.stats.RecordIterator()

	if e.store.InMemory() && c.total > 0 {
		if err := c.drain(); err != nil {
			c.release()
			return nil, err
		}
	}
	if c.total == 0 || c.buf != nil {
		c.release()
	}
	return c, nil
}

// drain reads every row of the snapshot into buf.
func (c *cursor) drain() error {
	buf := make([][]any, 0, c.total)
	for c.rows.Next() {
		raw, err := c.scan()
		if err != nil {
			return err
		}
		buf = append(buf, raw)
	}
	if err := c.rows.Err(); err != nil {
		return common.Connectivity("iterator", c.e.table, err)
	}
	c.buf = buf
	c.total = len(buf)
	return nil
}

func (c *cursor) scan() ([]any, error) {
	raw := make([]any, len(c.cols))
	ptrs := make([]any, len(raw))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		return nil, common.Connectivity("next", c.e.table, err)
	}
	return raw, nil
}

func (c *cursor) hasNext() bool {
	if c.failed {
		return false
	}
	if c.buf != nil {
		return c.read < len(c.buf)
	}
	return !c.done && c.read < c.total
}

func (c *cursor) next() (*common.Record, error) {
	if !c.hasNext() {
		return nil, common.IteratorExhausted("next", fmt.Sprintf("%d of %d rows read", c.read, c.total))
	}

	var raw []any
	if c.buf != nil {
		raw = c.buf[c.read]
	} else {
		if !c.rows.Next() {
			err := c.rows.Err()
			c.release()
			if err != nil {
				return nil, common.Connectivity("next", c.e.table, err)
			}
			return nil, common.IteratorExhausted("next",
				fmt.Sprintf("cursor ended after %d of %d rows", c.read, c.total))
		}
		var err error
		if raw, err = c.scan(); err != nil {
			c.fail()
			return nil, err
		}
	}

	rec, err := c.decode(raw)
	if err != nil {
		c.read++
		c.fail()
		return nil, err
	}
	c.read++
	c.last = rec
	if c.buf == nil && c.read >= c.total {
		c.release()
	}
	return rec, nil
}

func (c *cursor) decode(raw []any) (*common.Record, error) {
	id, ok := raw[c.cols[common.ColID]].(int64)
	if !ok {
		return nil, common.Encoding("next", fmt.Sprintf("unexpected %s %T", common.ColID, raw[c.cols[common.ColID]]), nil)
	}
	rec := &common.Record{ID: id, KeyType: text(raw[c.cols[common.ColKeyType]])}

	kc := c.e.codecs.ByTypeName(rec.KeyType)
	key, err := kc.Decode(raw[c.cols[kc.KeyColumn()]])
	if err != nil {
		return nil, wrapDecode(err, rec.KeyType)
	}
	rec.Key = key

	rec.ValueType = text(raw[c.cols[common.ColValueType]])
	if rec.ValueType == "" {
		return rec, nil
	}
	vc := c.e.codecs.ByTypeName(rec.ValueType)
	value, err := vc.Decode(raw[c.cols[vc.ValueColumn()]])
	if err != nil {
		return nil, wrapDecode(err, rec.ValueType)
	}
	rec.Value = value
	return rec, nil
}

func wrapDecode(err error, typeName string) error {
	if _, ok := err.(*common.BackendError); ok {
		return err
	}
	return common.Encoding("decode", typeName, err)
}

func text(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}

// remove deletes the row last returned by next.
func (c *cursor) remove() error {
	if c.last == nil {
		return common.IteratorExhausted("remove", "next has not been called")
	}
	last := c.last
	c.last = nil
	return c.e.deleteRow(last.ID, last.KeyType)
}

// release ends the read transaction. Failures are logged, never returned.
func (c *cursor) release() {
	if c.done {
		return
	}
	c.done = true
	if c.rows != nil {
		if err := c.rows.Close(); err != nil {
			c.e.log.Warn("closing iterator rows failed", "err", err)
		}
	}
	if err := c.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		c.e.log.Warn("ending iterator read view failed", "err", err)
	}
}

func (c *cursor) fail() {
	c.failed = true
	c.release()
}

func (c *cursor) close() {
	c.release()
}

// Iterator walks a snapshot of a container taken when it was opened. It must
// be closed unless it was read to the end.
type Iterator[T any] struct {
	cur     *cursor
	project func(*common.Record) (T, error)
}

func newIterator[T any](cur *cursor, project func(*common.Record) (T, error)) *Iterator[T] {
	return &Iterator[T]{cur: cur, project: project}
}

// HasNext compares the rows read with the count taken at open.
func (it *Iterator[T]) HasNext() bool {
	return it.cur.hasNext()
}

func (it *Iterator[T]) Next() (T, error) {
	var zero T
	rec, err := it.cur.next()
	if err != nil {
		return zero, err
	}
	return it.project(rec)
}

// Remove deletes the element last returned by Next. It fails when Next has
// not been called since the iterator opened or since the previous Remove.
func (it *Iterator[T]) Remove() error {
	return it.cur.remove()
}

// Len is the number of elements in the snapshot.
func (it *Iterator[T]) Len() int {
	return it.cur.total
}

func (it *Iterator[T]) Close() {
	it.cur.close()
}

// Collect reads the remaining elements and closes the iterator.
func (it *Iterator[T]) Collect() ([]T, error) {
	defer it.Close()
	out := make([]T, 0, it.cur.total-it.cur.read)
	for it.HasNext() {
		v, err := it.Next()
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// cast converts a decoded value to T. Null becomes the zero value.
func cast[T any](op string, v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, common.Encoding(op, fmt.Sprintf("stored %T is not %s", v, reflect.TypeFor[T]()), nil)
	}
	return t, nil
}

func projectKey[T any](rec *common.Record) (T, error) {
	return cast[T]("next", rec.Key)
}

func projectValue[T any](rec *common.Record) (T, error) {
	return cast[T]("next", rec.Value)
}

// typeNameOf is the persisted type name of v under registry r.
func typeNameOf(r *codec.Registry, v any) string {
	return r.For(v).TypeName()
}
