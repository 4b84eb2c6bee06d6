package storage

import (
	"fmt"
	"regexp"
	"sync"

	"dbc/pkg/common"
)

// Table names are spliced into SQL text, so they are restricted to plain
// identifiers.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func ValidTableName(name string) error {
	if !identRe.MatchString(name) {
		return common.SchemaConflict("table name", fmt.Sprintf("%q is not a valid identifier", name), nil)
	}
	return nil
}

// Namer hands out table names of the form <Kind>_<n>, counting per kind.
type Namer struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewNamer() *Namer {
	return &Namer{counts: make(map[string]int)}
}

var defaultNamer = NewNamer()

// DefaultNamer is shared by every container of the process.
func DefaultNamer() *Namer {
	return defaultNamer
}

func (n *Namer) Next(kind string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counts[kind]++
	return fmt.Sprintf("%s_%d", kind, n.counts[kind])
}
