// Package access performs single-row writes and reads against a container
// table for one resolved (key type, value type) combination.
package access

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"dbc/pkg/codec"
	"dbc/pkg/common"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Access inserts, updates and reads the row of a key. Implementations own
// prepared statements and must be closed.
type Access interface {
	Add(key, value any) error
	Update(key, value any) error
	// Get returns the stored value. found is false when no row exists.
	Get(key any) (value any, found bool, err error)
	Close() error
}

// KeyValueTypePair identifies a resolved combination of key and value type.
// Value is empty for null values.
type KeyValueTypePair struct {
	Key   string
	Value string
}

func (p KeyValueTypePair) String() string {
	if p.Value == "" {
		return p.Key + "/<nil>"
	}
	return p.Key + "/" + p.Value
}

// Config is shared by every strategy of one table.
type Config struct {
	DB     *sql.DB
	Table  string
	Mirror bool // write KEY_TO_STRING / VALUE_TO_STRING
}

func (c Config) prepare(op, query string) (*sql.Stmt, error) {
	stmt, err := c.DB.Prepare(query)
	if err != nil {
		return nil, common.Connectivity(op, fmt.Sprintf("cannot prepare statement on %s", c.Table), err)
	}
	return stmt, nil
}

type keyArgs struct {
	hash    int64
	payload any
}

func encodeKey(kc codec.Codec, key any) (keyArgs, error) {
	h, err := kc.Hash(key)
	if err != nil {
		return keyArgs{}, err
	}
	p, err := kc.Encode(key)
	if err != nil {
		return keyArgs{}, err
	}
	return keyArgs{hash: h, payload: p}, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func closeAll(stmts ...*sql.Stmt) error {
	var first error
	for _, s := range stmts {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Cache memoises strategies per KeyValueTypePair. Evicted strategies are
// closed.
type Cache struct {
	lru *lru.Cache[KeyValueTypePair, Access]
}

func NewCache(size int, log *slog.Logger) (*Cache, error) {
	if size <= 0 {
		size = 64
	}
	if log == nil {
		log = slog.Default()
	}
	c, err := lru.NewWithEvict(size, func(pair KeyValueTypePair, a Access) {
		if err := a.Close(); err != nil {
			log.Warn("closing access strategy failed", "component", "access", "types", pair.String(), "err", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// GetOrCreate returns the cached strategy for pair, building it with create
// on a miss.
func (c *Cache) GetOrCreate(pair KeyValueTypePair, create func() (Access, error)) (Access, error) {
	if a, ok := c.lru.Get(pair); ok {
		return a, nil
	}
	a, err := create()
	if err != nil {
		return nil, err
	}
	c.lru.Add(pair, a)
	return a, nil
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge closes and drops every cached strategy.
func (c *Cache) Purge() {
	c.lru.Purge()
}
