package access

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dbc/pkg/codec"
	"dbc/pkg/common"
)

// Typed handles rows whose value is non-null and of one fixed type.
type Typed struct {
	cfg        Config
	keyCodec   codec.Codec
	valueCodec codec.Codec

	insert *sql.Stmt
	update *sql.Stmt
	get    *sql.Stmt
}

func NewTyped(cfg Config, kc, vc codec.Codec) (*Typed, error) {
	t := &Typed{cfg: cfg, keyCodec: kc, valueCodec: vc}

	cols := []string{common.ColID, common.ColKeyType, kc.KeyColumn(),
		common.ColValueHash, common.ColValueType, vc.ValueColumn()}
	if cfg.Mirror {
		cols = append(cols, common.ColKeyString, common.ColValueString)
	}
	insertQ := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		cfg.Table, strings.Join(cols, ", "), placeholders(len(cols)))

	// Every other value column is reset so a value that changes type never
	// leaves its old payload behind.
	sets := []string{common.ColValueHash + " = ?", common.ColValueType + " = ?", vc.ValueColumn() + " = ?"}
	for _, c := range common.ValueColumns {
		if c != vc.ValueColumn() {
			sets = append(sets, c+" = NULL")
		}
	}
	if cfg.Mirror {
		sets = append(sets, common.ColValueString+" = ?")
	}
	updateQ := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ? AND %s = ?",
		cfg.Table, strings.Join(sets, ", "), common.ColID, common.ColKeyType)

	getQ := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ?",
		vc.ValueColumn(), cfg.Table, common.ColID, common.ColKeyType)

	var err error
	if t.insert, err = cfg.prepare("prepare insert", insertQ); err != nil {
		return nil, err
	}
	if t.update, err = cfg.prepare("prepare update", updateQ); err != nil {
		t.Close()
		return nil, err
	}
	if t.get, err = cfg.prepare("prepare get", getQ); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

func (t *Typed) encodeValue(value any) (int64, any, error) {
	h, err := t.valueCodec.Hash(value)
	if err != nil {
		return 0, nil, err
	}
	p, err := t.valueCodec.Encode(value)
	if err != nil {
		return 0, nil, err
	}
	return h, p, nil
}

func (t *Typed) Add(key, value any) error {
	k, err := encodeKey(t.keyCodec, key)
	if err != nil {
		return err
	}
	vh, vp, err := t.encodeValue(value)
	if err != nil {
		return err
	}

	args := []any{k.hash, t.keyCodec.TypeName(), k.payload, vh, t.valueCodec.TypeName(), vp}
	if t.cfg.Mirror {
		args = append(args, fmt.Sprint(key), fmt.Sprint(value))
	}
	if _, err := t.insert.Exec(args...); err != nil {
		return common.Connectivity("add", t.cfg.Table, err)
	}
	return nil
}

func (t *Typed) Update(key, value any) error {
	k, err := encodeKey(t.keyCodec, key)
	if err != nil {
		return err
	}
	vh, vp, err := t.encodeValue(value)
	if err != nil {
		return err
	}

	args := []any{vh, t.valueCodec.TypeName(), vp}
	if t.cfg.Mirror {
		args = append(args, fmt.Sprint(value))
	}
	args = append(args, k.hash, t.keyCodec.TypeName())
	if _, err := t.update.Exec(args...); err != nil {
		return common.Connectivity("update", t.cfg.Table, err)
	}
	return nil
}

func (t *Typed) Get(key any) (any, bool, error) {
	k, err := encodeKey(t.keyCodec, key)
	if err != nil {
		return nil, false, err
	}

	var raw any
	err = t.get.QueryRow(k.hash, t.keyCodec.TypeName()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, common.Connectivity("get", t.cfg.Table, err)
	}

	v, err := t.valueCodec.Decode(raw)
	if err != nil {
		return nil, true, err
	}
	return v, true, nil
}

func (t *Typed) Close() error {
	return closeAll(t.insert, t.update, t.get)
}
