package storage

import (
	"fmt"
	"strings"

	"dbc/pkg/common"
)

// containerColumns is the physical layout of every container table: the
// identity pair, one column per key kind, the value hash and type, one column
// per value kind and the two debug mirrors.
var containerColumns = []struct {
	name, decl string
}{
	{common.ColID, "INTEGER NOT NULL"},
	{common.ColKeyType, "TEXT NOT NULL"},
	{common.ColKey, "BLOB"},
	{common.ColIntKey, "INTEGER"},
	{common.ColLongKey, "INTEGER"},
	{common.ColFloatKey, "REAL"},
	{common.ColDoubleKey, "REAL"},
	{common.ColByteKey, "INTEGER"},
	{common.ColCharKey, "TEXT"},
	{common.ColBooleanKey, "INTEGER"},
	{common.ColStringKey, "TEXT"},
	{common.ColValueHash, "INTEGER"},
	{common.ColValueType, "TEXT"},
	{common.ColValue, "BLOB"},
	{common.ColIntValue, "INTEGER"},
	{common.ColLongValue, "INTEGER"},
	{common.ColFloatValue, "REAL"},
	{common.ColDoubleValue, "REAL"},
	{common.ColByteValue, "INTEGER"},
	{common.ColCharValue, "TEXT"},
	{common.ColBooleanValue, "INTEGER"},
	{common.ColStringValue, "TEXT"},
	{common.ColKeyString, "TEXT"},
	{common.ColValueString, "TEXT"},
}

// AllColumns returns the column names of a container table in declaration order.
func AllColumns() []string {
	cols := make([]string, len(containerColumns))
	for i, c := range containerColumns {
		cols[i] = c.name
	}
	return cols
}

func createTableSQL(table string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", table)
	for _, c := range containerColumns {
		fmt.Fprintf(&b, "\t%s %s,\n", c.name, c.decl)
	}
	fmt.Fprintf(&b, "\tPRIMARY KEY (%s, %s)\n)", common.ColID, common.ColKeyType)
	return b.String()
}

// EnsureTable creates the container table if it is missing. An existing
// table is reused, or emptied when dropExisting is set. The result reports
// whether the table was created by this call.
func (s *Store) EnsureTable(table string, dropExisting bool) (bool, error) {
	if err := ValidTableName(table); err != nil {
		return false, err
	}

	_, createErr := s.db.Exec(createTableSQL(table))
	if createErr == nil {
		if err := s.createIndexes(table); err != nil {
			return true, err
		}
		s.log.Debug("table created", "component", "storage", "table", table)
		return true, nil
	}

	exists, err := s.TableExists(table)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, common.Connectivity("create table", table, createErr)
	}

	// The table is already there; this is the expected schema conflict.
	s.log.Debug("table exists", "component", "storage", "table", table, "drop_existing", dropExisting)
	if dropExisting {
		if err := s.Truncate(table); err != nil {
			return false, err
		}
	}
	return false, s.createIndexes(table)
}

func (s *Store) createIndexes(table string) error {
	stmts := []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_VALUE_IDX ON %s (%s, %s)",
			table, table, common.ColValueHash, common.ColValueType),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_POS_IDX ON %s (%s)",
			table, table, common.ColIntKey),
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return common.Connectivity("create index", table, err)
		}
	}
	return nil
}

// DropTable removes table and its indexes.
func (s *Store) DropTable(table string) error {
	if err := ValidTableName(table); err != nil {
		return err
	}
	if _, err := s.db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
		return common.Connectivity("drop table", table, err)
	}
	return nil
}
