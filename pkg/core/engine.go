package core

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"dbc/pkg/access"
	"dbc/pkg/codec"
	"dbc/pkg/common"
	"dbc/pkg/monitor"
	"dbc/pkg/sizecache"
	"dbc/pkg/storage"
)

const (
	kindMap  = "DBMap"
	kindList = "DBList"
	kindSet  = "DBSet"
)

// engine runs container operations against one table. It works on untyped
// values; Map, List and Set add the Go types on top.
//
// An engine is not safe for concurrent use.
type engine struct {
	store   *storage.Store
	db      *sql.DB
	table   string
	kind    string
	opts    Options
	codecs  *codec.Registry
	sizes   *sizecache.Cache
	sizeKey sizecache.Key
	access  *access.Cache
	acfg    access.Config
	log     *slog.Logger
	stats   *monitor.WorkloadStats
	q       queries
}

type queries struct {
	valueType     string
	containsKey   string
	containsValue string
	containsNull  string
	remove        string
	removeValue   string
	removeNull    string
	count         string
	clear         string
	selectAll     string
}

func buildQueries(t string) queries {
	id, kt := common.ColID, common.ColKeyType
	vh, vt := common.ColValueHash, common.ColValueType
	return queries{
		valueType:     fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ?", vt, t, id, kt),
		containsKey:   fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ? AND %s = ? LIMIT 1", t, id, kt),
		containsValue: fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ? AND %s = ? LIMIT 1", t, vh, vt),
		containsNull:  fmt.Sprintf("SELECT 1 FROM %s WHERE %s IS NULL AND %s IS NULL LIMIT 1", t, vh, vt),
		remove:        fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?", t, id, kt),
		removeValue: fmt.Sprintf("DELETE FROM %s WHERE rowid = (SELECT rowid FROM %s WHERE %s = ? AND %s = ? LIMIT 1)",
			t, t, vh, vt),
		removeNull: fmt.Sprintf("DELETE FROM %s WHERE rowid = (SELECT rowid FROM %s WHERE %s IS NULL AND %s IS NULL LIMIT 1)",
			t, t, vh, vt),
		count:     "SELECT COUNT(*) FROM " + t,
		clear:     "DELETE FROM " + t,
		selectAll: fmt.Sprintf("SELECT %s FROM %s", strings.Join(storage.AllColumns(), ", "), t),
	}
}

func newEngine(store *storage.Store, kind string, opts Options) (*engine, error) {
	if store == nil {
		return nil, common.Connectivity("open", "no store", nil)
	}
	opts = opts.withDefaults(kind)

	if _, err := store.EnsureTable(opts.TableName, opts.DropExistingOnStart); err != nil {
		return nil, err
	}
	meta, err := storage.NewMetadataManager(store)
	if err != nil {
		return nil, err
	}
	if err := meta.Register(opts.TableName, kind); err != nil {
		return nil, err
	}

	log := opts.Logger.With("component", "core", "table", opts.TableName)
	ac, err := access.NewCache(opts.AccessCacheSize, log)
	if err != nil {
		return nil, err
	}

	e := &engine{
		store:   store,
		db:      store.DB(),
		table:   opts.TableName,
		kind:    kind,
		opts:    opts,
		codecs:  opts.Codecs,
		sizes:   opts.SizeCache,
		sizeKey: sizecache.Key{Endpoint: store.Identity(), Table: strings.ToUpper(opts.TableName)},
		access:  ac,
		acfg:    access.Config{DB: store.DB(), Table: opts.TableName, Mirror: opts.DebugMirrorColumns},
		log:     log,
		stats:   opts.Stats,
		q:       buildQueries(opts.TableName),
	}
	// The table may have been emptied or written by a previous run.
	e.invalidate()
	log.Debug("container ready", "kind", kind, "drop_existing", opts.DropExistingOnStart)
	return e, nil
}

// isNil reports whether v is a null key or value: a nil interface or a nil
// pointer, map, slice, channel or func.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func (e *engine) invalidate() {
	e.sizes.Invalidate(e.sizeKey)
}

func (e *engine) identify(key any) (codec.Codec, int64, error) {
	kc := e.codecs.For(key)
	h, err := kc.Hash(key)
	if err != nil {
		return nil, 0, err
	}
	return kc, h, nil
}

// strategy returns the access strategy for kc and vc; a nil vc selects null
// access.
func (e *engine) strategy(kc, vc codec.Codec) (access.Access, error) {
	pair := access.KeyValueTypePair{Key: kc.TypeName()}
	if vc != nil {
		pair.Value = vc.TypeName()
	}
	return e.access.GetOrCreate(pair, func() (access.Access, error) {
		if vc == nil {
			n, err := access.NewNull(e.acfg, kc)
			if err != nil {
				return nil, err
			}
			return n, nil
		}
		t, err := access.NewTyped(e.acfg, kc, vc)
		if err != nil {
			return nil, err
		}
		return t, nil
	})
}

func (e *engine) valueCodec(value any) codec.Codec {
	if isNil(value) {
		return nil
	}
	return e.codecs.For(value)
}

// valueType reads the persisted value type of a key. An empty type with
// found set means the stored value is null.
func (e *engine) valueType(kc codec.Codec, hash int64) (string, bool, error) {
	var vt sql.NullString
	err := e.db.QueryRow(e.q.valueType, hash, kc.TypeName()).Scan(&vt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, common.Connectivity("get", e.table, err)
	}
	return vt.String, true, nil
}

func (e *engine) exists(op, query string, args ...any) (bool, error) {
	var one int
	err := e.db.QueryRow(query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, common.Connectivity(op, e.table, err)
	}
	return true, nil
}

func (e *engine) get(key any) (any, bool, error) {
	if isNil(key) {
		return nil, false, nil
	}
	e.stats.RecordRead()

	kc, h, err := e.identify(key)
	if err != nil {
		return nil, false, err
	}
	vt, found, err := e.valueType(kc, h)
	if err != nil || !found {
		return nil, false, err
	}
	if vt == "" {
		return nil, true, nil
	}

	vc, ok := e.codecs.Lookup(vt)
	if !ok {
		// Not cached as a strategy: the type may be registered later.
		_, err := e.codecs.ByTypeName(vt).Decode(nil)
		return nil, true, err
	}
	a, err := e.strategy(kc, vc)
	if err != nil {
		return nil, false, err
	}
	return a.Get(key)
}

// put stores value under key and returns the previous value. A null key is
// ignored.
func (e *engine) put(key, value any) (any, bool, error) {
	if isNil(key) {
		return nil, false, nil
	}
	prev, found, err := e.get(key)
	if err != nil {
		return nil, false, err
	}

	a, err := e.strategy(e.codecs.For(key), e.valueCodec(value))
	if err != nil {
		return nil, false, err
	}
	e.stats.RecordWrite()

	if found {
		if err := a.Update(key, value); err != nil {
			return nil, false, err
		}
		return prev, true, nil
	}

	err = a.Add(key, value)
	e.invalidate()
	if err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

// insert adds a row for a key the caller knows to be absent.
func (e *engine) insert(key, value any) error {
	a, err := e.strategy(e.codecs.For(key), e.valueCodec(value))
	if err != nil {
		return err
	}
	e.stats.RecordWrite()
	err = a.Add(key, value)
	e.invalidate()
	return err
}

func (e *engine) containsKey(key any) (bool, error) {
	if isNil(key) {
		return false, nil
	}
	kc, h, err := e.identify(key)
	if err != nil {
		return false, err
	}
	return e.exists("contains key", e.q.containsKey, h, kc.TypeName())
}

func (e *engine) containsValue(value any) (bool, error) {
	if isNil(value) {
		return e.exists("contains value", e.q.containsNull)
	}
	vc := e.codecs.For(value)
	h, err := vc.Hash(value)
	if err != nil {
		return false, err
	}
	return e.exists("contains value", e.q.containsValue, h, vc.TypeName())
}

func (e *engine) remove(key any) (any, bool, error) {
	if isNil(key) {
		return nil, false, nil
	}
	prev, found, err := e.get(key)
	if err != nil || !found {
		return nil, false, err
	}

	kc, h, err := e.identify(key)
	if err != nil {
		return nil, false, err
	}
	e.stats.RecordRemove()
	_, err = e.db.Exec(e.q.remove, h, kc.TypeName())
	e.invalidate()
	if err != nil {
		return nil, false, common.Connectivity("remove", e.table, err)
	}
	return prev, true, nil
}

// removeValue deletes one row holding value, if any.
func (e *engine) removeValue(value any) (bool, error) {
	var res sql.Result
	var err error
	if isNil(value) {
		res, err = e.db.Exec(e.q.removeNull)
	} else {
		vc := e.codecs.For(value)
		h, herr := vc.Hash(value)
		if herr != nil {
			return false, herr
		}
		res, err = e.db.Exec(e.q.removeValue, h, vc.TypeName())
	}
	e.invalidate()
	if err != nil {
		return false, common.Connectivity("remove value", e.table, err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		e.stats.RecordRemove()
	}
	return n > 0, nil
}

// deleteRow removes the row identified by its primary key.
func (e *engine) deleteRow(id int64, keyType string) error {
	e.stats.RecordRemove()
	_, err := e.db.Exec(e.q.remove, id, keyType)
	e.invalidate()
	if err != nil {
		return common.Connectivity("remove", e.table, err)
	}
	return nil
}

func (e *engine) count() (int, error) {
	var n int
	if err := e.db.QueryRow(e.q.count).Scan(&n); err != nil {
		return 0, common.Connectivity("size", e.table, err)
	}
	return n, nil
}

func (e *engine) size() (int, error) {
	if !e.opts.CacheSize {
		n, err := e.count()
		if err == nil {
			e.stats.RecordSize(false)
		}
		return n, err
	}
	n, hit, err := e.sizes.GetOrCompute(e.sizeKey, e.count)
	if err == nil {
		e.stats.RecordSize(hit)
	}
	return n, err
}

func (e *engine) clear() error {
	_, err := e.db.Exec(e.q.clear)
	e.invalidate()
	if err != nil {
		return common.Connectivity("clear", e.table, err)
	}
	return nil
}

// retainAll deletes every row whose (hashCol, typeCol) pair does not match
// one of values. An empty values clears the table. IS is used instead of =
// so rows with a null value compare as false rather than NULL.
func (e *engine) retainAll(hashCol, typeCol string, values []any) (bool, error) {
	if len(values) == 0 {
		n, err := e.count()
		if err != nil {
			return false, err
		}
		if err := e.clear(); err != nil {
			return false, err
		}
		return n > 0, nil
	}

	type pair struct {
		hash int64
		typ  string
	}
	seen := make(map[pair]struct{}, len(values))
	var clauses []string
	var args []any
	nullSeen := false

	for _, v := range values {
		if isNil(v) {
			if !nullSeen {
				nullSeen = true
				clauses = append(clauses, fmt.Sprintf("(%s IS NULL AND %s IS NULL)", hashCol, typeCol))
			}
			continue
		}
		c := e.codecs.For(v)
		h, err := c.Hash(v)
		if err != nil {
			return false, err
		}
		p := pair{h, c.TypeName()}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		clauses = append(clauses, fmt.Sprintf("(%s IS ? AND %s IS ?)", hashCol, typeCol))
		args = append(args, p.hash, p.typ)
	}

	q := fmt.Sprintf("DELETE FROM %s WHERE NOT (%s)", e.table, strings.Join(clauses, " OR "))
	res, err := e.db.Exec(q, args...)
	e.invalidate()
	if err != nil {
		return false, common.Connectivity("retain all", e.table, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// putAllFrom copies every row of src. Tables in the same database are copied
// with two statements; otherwise rows are decoded and written one by one.
func (e *engine) putAllFrom(src *engine) error {
	if src.store.Identity() != e.store.Identity() {
		return e.copyEntries(src)
	}
	if strings.EqualFold(src.table, e.table) {
		return nil
	}

	cols := strings.Join(storage.AllColumns(), ", ")
	del := fmt.Sprintf("DELETE FROM %[1]s WHERE EXISTS (SELECT 1 FROM %[2]s WHERE %[2]s.%[3]s = %[1]s.%[3]s AND %[2]s.%[4]s = %[1]s.%[4]s)",
		e.table, src.table, common.ColID, common.ColKeyType)
	ins := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", e.table, cols, cols, src.table)

	tx, err := e.db.Begin()
	if err != nil {
		return common.Connectivity("put all", e.table, err)
	}
	defer e.invalidate()
	if _, err := tx.Exec(del); err != nil {
		tx.Rollback()
		return common.Connectivity("put all", e.table, err)
	}
	if _, err := tx.Exec(ins); err != nil {
		tx.Rollback()
		return common.Connectivity("put all", e.table, err)
	}
	if err := tx.Commit(); err != nil {
		return common.Connectivity("put all", e.table, err)
	}
	e.stats.RecordWrite()
	return nil
}

func (e *engine) copyEntries(src *engine) error {
	cur, err := src.openCursor("")
	if err != nil {
		return err
	}
	defer cur.close()

	for cur.hasNext() {
		rec, err := cur.next()
		if err != nil {
			return err
		}
		if _, _, err := e.put(rec.Key, rec.Value); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) close() {
	e.access.Purge()
}
