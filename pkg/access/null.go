package access

import (
	"database/sql"
	"fmt"
	"strings"

	"dbc/pkg/codec"
	"dbc/pkg/common"
)

// Null handles rows whose value is null. Only the key columns are written.
type Null struct {
	cfg      Config
	keyCodec codec.Codec

	insert *sql.Stmt
	clear  *sql.Stmt
}

func NewNull(cfg Config, kc codec.Codec) (*Null, error) {
	n := &Null{cfg: cfg, keyCodec: kc}

	cols := []string{common.ColID, common.ColKeyType, kc.KeyColumn()}
	if cfg.Mirror {
		cols = append(cols, common.ColKeyString)
	}
	insertQ := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		cfg.Table, strings.Join(cols, ", "), placeholders(len(cols)))

	sets := []string{common.ColValueHash + " = NULL", common.ColValueType + " = NULL"}
	for _, c := range common.ValueColumns {
		sets = append(sets, c+" = NULL")
	}
	if cfg.Mirror {
		sets = append(sets, common.ColValueString+" = NULL")
	}
	clearQ := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ? AND %s = ?",
		cfg.Table, strings.Join(sets, ", "), common.ColID, common.ColKeyType)

	var err error
	if n.insert, err = cfg.prepare("prepare insert", insertQ); err != nil {
		return nil, err
	}
	if n.clear, err = cfg.prepare("prepare update", clearQ); err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

// Add inserts key with a null value; value is ignored.
func (n *Null) Add(key, _ any) error {
	k, err := encodeKey(n.keyCodec, key)
	if err != nil {
		return err
	}
	args := []any{k.hash, n.keyCodec.TypeName(), k.payload}
	if n.cfg.Mirror {
		args = append(args, fmt.Sprint(key))
	}
	if _, err := n.insert.Exec(args...); err != nil {
		return common.Connectivity("add", n.cfg.Table, err)
	}
	return nil
}

// Update clears the value of key, leaving the key payload untouched.
func (n *Null) Update(key, _ any) error {
	k, err := encodeKey(n.keyCodec, key)
	if err != nil {
		return err
	}
	if _, err := n.clear.Exec(k.hash, n.keyCodec.TypeName()); err != nil {
		return common.Connectivity("update", n.cfg.Table, err)
	}
	return nil
}

// Get always yields the null value. Existence is the caller's business.
func (n *Null) Get(any) (any, bool, error) {
	return nil, true, nil
}

func (n *Null) Close() error {
	return closeAll(n.insert, n.clear)
}
