package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"dbc/pkg/common"

	"github.com/cespare/xxhash/v2"
)

const (
	MetaTable      = "DBC_METATABLE"
	MetaVersion    = "1.0"
	metaColID      = "T_ID"
	metaColName    = "T_NAME"
	metaColVersion = "T_VERSION"
	metaColData    = "T_META_DATA"
)

// Metadata describes one container table.
type Metadata struct {
	Name    string
	Version string
	Data    string
}

// MetadataManager keeps one row per container table in DBC_METATABLE.
type MetadataManager struct {
	store *Store
}

// NewMetadataManager creates the metadata table if needed and records it in
// itself.
func NewMetadataManager(store *Store) (*MetadataManager, error) {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		%s INTEGER PRIMARY KEY,
		%s TEXT NOT NULL,
		%s TEXT,
		%s TEXT
	)`, MetaTable, metaColID, metaColName, metaColVersion, metaColData)
	if _, err := store.db.Exec(q); err != nil {
		return nil, common.Connectivity("metadata", "cannot create "+MetaTable, err)
	}

	m := &MetadataManager{store: store}
	if _, found, err := m.Get(MetaTable); err != nil {
		return nil, err
	} else if !found {
		if err := m.Insert(Metadata{Name: MetaTable, Version: MetaVersion}); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func metaID(name string) int64 {
	return int64(xxhash.Sum64String(name))
}

func (m *MetadataManager) Get(name string) (Metadata, bool, error) {
	var md Metadata
	var version, data sql.NullString
	err := m.store.db.QueryRow(
		fmt.Sprintf("SELECT %s, %s, %s FROM %s WHERE %s = ?", metaColName, metaColVersion, metaColData, MetaTable, metaColID),
		metaID(name),
	).Scan(&md.Name, &version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return Metadata{}, false, nil
	}
	if err != nil {
		return Metadata{}, false, common.Connectivity("metadata get", name, err)
	}
	md.Version = version.String
	md.Data = data.String
	return md, true, nil
}

func (m *MetadataManager) Insert(md Metadata) error {
	_, err := m.store.db.Exec(
		fmt.Sprintf("INSERT INTO %s (%s, %s, %s, %s) VALUES (?, ?, ?, ?)",
			MetaTable, metaColID, metaColName, metaColVersion, metaColData),
		metaID(md.Name), md.Name, md.Version, md.Data,
	)
	if err != nil {
		return common.Connectivity("metadata insert", md.Name, err)
	}
	return nil
}

func (m *MetadataManager) Update(md Metadata) error {
	_, err := m.store.db.Exec(
		fmt.Sprintf("UPDATE %s SET %s = ?, %s = ? WHERE %s = ?",
			MetaTable, metaColVersion, metaColData, metaColID),
		md.Version, md.Data, metaID(md.Name),
	)
	if err != nil {
		return common.Connectivity("metadata update", md.Name, err)
	}
	return nil
}

func (m *MetadataManager) Remove(name string) error {
	_, err := m.store.db.Exec(
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", MetaTable, metaColID),
		metaID(name),
	)
	if err != nil {
		return common.Connectivity("metadata remove", name, err)
	}
	return nil
}

// Register replaces the metadata row of table with a fresh one at the
// current version.
func (m *MetadataManager) Register(table, data string) error {
	if err := m.Remove(table); err != nil {
		return err
	}
	return m.Insert(Metadata{Name: table, Version: MetaVersion, Data: data})
}
