package codec

import (
	"fmt"
	"reflect"

	"dbc/pkg/common"

	"github.com/cespare/xxhash/v2"
	gojson "github.com/goccy/go-json"
)

// genericCodec stores any other Go type as a JSON document in the binary
// KEY / VALUE columns. Only exported fields survive a round trip.
type genericCodec struct {
	name string
	typ  reflect.Type
}

func newGenericCodec(t reflect.Type) *genericCodec {
	return &genericCodec{name: typeName(t), typ: t}
}

func (g *genericCodec) TypeName() string    { return g.name }
func (g *genericCodec) Kind() Kind          { return KindGeneric }
func (g *genericCodec) KeyColumn() string   { return common.ColKey }
func (g *genericCodec) ValueColumn() string { return common.ColValue }

func (g *genericCodec) Encode(v any) (any, error) {
	if reflect.TypeOf(v) != g.typ {
		return nil, common.Encoding("encode", fmt.Sprintf("codec %s cannot handle %T", g.name, v), nil)
	}
	b, err := gojson.Marshal(v)
	if err != nil {
		return nil, common.Encoding("encode", fmt.Sprintf("marshal %s", g.name), err)
	}
	return b, nil
}

func (g *genericCodec) Decode(raw any) (any, error) {
	b, err := asBytes(raw)
	if err != nil {
		return nil, common.Encoding("decode", fmt.Sprintf("column for %s", g.name), err)
	}
	ptr := reflect.New(g.typ)
	if err := gojson.Unmarshal(b, ptr.Interface()); err != nil {
		return nil, common.Encoding("decode", fmt.Sprintf("unmarshal %s", g.name), err)
	}
	return ptr.Elem().Interface(), nil
}

func (g *genericCodec) Hash(v any) (int64, error) {
	if h, ok := v.(Hasher); ok {
		return h.Hash(), nil
	}
	payload, err := g.Encode(v)
	if err != nil {
		return 0, err
	}
	return int64(xxhash.Sum64(payload.([]byte))), nil
}

// unknownCodec stands in for a persisted type name this process has never
// seen. Lookups succeed; any attempt to decode fails.
type unknownCodec struct {
	name string
}

func (u unknownCodec) TypeName() string    { return u.name }
func (u unknownCodec) Kind() Kind          { return KindGeneric }
func (u unknownCodec) KeyColumn() string   { return common.ColKey }
func (u unknownCodec) ValueColumn() string { return common.ColValue }

func (u unknownCodec) Encode(v any) (any, error) {
	return nil, u.unregistered("encode")
}

func (u unknownCodec) Decode(raw any) (any, error) {
	return nil, u.unregistered("decode")
}

func (u unknownCodec) Hash(v any) (int64, error) {
	return 0, u.unregistered("hash")
}

func (u unknownCodec) unregistered(op string) error {
	return common.Encoding(op, fmt.Sprintf("type %q is not registered", u.name), nil)
}

// typeName is the package-qualified name of t, e.g. "example.com/app.User" or
// "*example.com/app.User". Unnamed types use their literal form ("[]int").
func typeName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer && t.Name() == "" {
		return "*" + typeName(t.Elem())
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
