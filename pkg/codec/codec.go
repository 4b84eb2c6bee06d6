// Package codec maps Go values onto the typed payload columns of a container
// table.
//
// A small closed set of primitive kinds gets a dedicated column each; every
// other type falls back to the generic codec, which stores a JSON payload in
// the binary KEY/VALUE columns. Changing a codec changes persisted bytes, so
// type names and column choices are a compatibility boundary.
package codec

import "fmt"

// Kind identifies the column family a codec writes to.
type Kind uint8

const (
	KindGeneric Kind = iota
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindByte
	KindChar
	KindBool
	KindString
)

var kindNames = [...]string{
	KindGeneric: "generic",
	KindInt:     "integer",
	KindLong:    "long",
	KindFloat:   "float",
	KindDouble:  "double",
	KindByte:    "byte",
	KindChar:    "char",
	KindBool:    "boolean",
	KindString:  "string",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Char is a single character. Go has no distinct character type (rune is an
// alias of int32), so character keys and values use this type.
type Char rune

func (c Char) String() string { return string(rune(c)) }

// Hasher lets opaque types choose their own hash. Without it the hash of the
// encoded payload is used.
type Hasher interface {
	Hash() int64
}

// Codec encodes and decodes values of one Go type.
// Implementations must be safe for concurrent use.
type Codec interface {
	// TypeName is the name persisted in the KEY_TYPE / VALUE_TYPE columns.
	TypeName() string
	Kind() Kind
	KeyColumn() string
	ValueColumn() string

	// Encode returns the statement argument for v.
	Encode(v any) (any, error)
	// Decode converts a scanned column back into a value of the codec's type.
	Decode(raw any) (any, error)
	// Hash returns the hash persisted in ID_HASH / VALUE_HASH.
	Hash(v any) (int64, error)
}
