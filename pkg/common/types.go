package common

import "fmt"

// Record is one decoded row of a container table.
type Record struct {
	ID        int64
	KeyType   string
	Key       any
	ValueType string // empty when the stored value is null
	Value     any
}

// HasValue reports whether the row carries a non-null value.
func (r *Record) HasValue() bool {
	return r.ValueType != ""
}

// String 方便调试打印
func (r *Record) String() string {
	if !r.HasValue() {
		return fmt.Sprintf("Record{ID: %d, Key: %v (%s), Value: <nil>}", r.ID, r.Key, r.KeyType)
	}
	return fmt.Sprintf("Record{ID: %d, Key: %v (%s), Value: %v (%s)}", r.ID, r.Key, r.KeyType, r.Value, r.ValueType)
}
