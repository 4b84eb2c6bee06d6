package codec

import (
	"fmt"
	"math"
	"unicode/utf8"

	"dbc/pkg/common"

	"github.com/cespare/xxhash/v2"
)

type primitive struct {
	name     string
	kind     Kind
	keyCol   string
	valueCol string
	encode   func(v any) (any, bool)
	decode   func(raw any) (any, error)
	hash     func(v any) int64
}

func (p *primitive) TypeName() string    { return p.name }
func (p *primitive) Kind() Kind          { return p.kind }
func (p *primitive) KeyColumn() string   { return p.keyCol }
func (p *primitive) ValueColumn() string { return p.valueCol }

func (p *primitive) Encode(v any) (any, error) {
	arg, ok := p.encode(v)
	if !ok {
		return nil, p.mismatch("encode", v)
	}
	return arg, nil
}

func (p *primitive) Decode(raw any) (any, error) {
	v, err := p.decode(raw)
	if err != nil {
		return nil, common.Encoding("decode", fmt.Sprintf("column for %s", p.name), err)
	}
	return v, nil
}

func (p *primitive) Hash(v any) (int64, error) {
	if _, ok := p.encode(v); !ok {
		return 0, p.mismatch("hash", v)
	}
	return p.hash(v), nil
}

func (p *primitive) mismatch(op string, v any) error {
	return common.Encoding(op, fmt.Sprintf("codec %s cannot handle %T", p.name, v), nil)
}

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8
}

// integerCodec stores T in an integer column. The hash of an integer is the
// integer itself; list positions rely on that.
func integerCodec[T integer](name string, kind Kind, keyCol, valueCol string) *primitive {
	return &primitive{
		name:     name,
		kind:     kind,
		keyCol:   keyCol,
		valueCol: valueCol,
		encode: func(v any) (any, bool) {
			t, ok := v.(T)
			return int64(t), ok
		},
		decode: func(raw any) (any, error) {
			n, err := asInt64(raw)
			if err != nil {
				return nil, err
			}
			t := T(n)
			if int64(t) != n {
				return nil, fmt.Errorf("value %d overflows %s", n, name)
			}
			return t, nil
		},
		hash: func(v any) int64 { return int64(v.(T)) },
	}
}

var float32Codec = &primitive{
	name:     "float32",
	kind:     KindFloat,
	keyCol:   common.ColFloatKey,
	valueCol: common.ColFloatValue,
	encode: func(v any) (any, bool) {
		f, ok := v.(float32)
		return float64(f), ok
	},
	decode: func(raw any) (any, error) {
		f, err := asFloat64(raw)
		return float32(f), err
	},
	hash: func(v any) int64 { return int64(math.Float32bits(v.(float32))) },
}

var float64Codec = &primitive{
	name:     "float64",
	kind:     KindDouble,
	keyCol:   common.ColDoubleKey,
	valueCol: common.ColDoubleValue,
	encode: func(v any) (any, bool) {
		f, ok := v.(float64)
		return f, ok
	},
	decode: func(raw any) (any, error) {
		return asFloat64(raw)
	},
	hash: func(v any) int64 { return int64(math.Float64bits(v.(float64))) },
}

var charCodec = &primitive{
	name:     "codec.Char",
	kind:     KindChar,
	keyCol:   common.ColCharKey,
	valueCol: common.ColCharValue,
	encode: func(v any) (any, bool) {
		c, ok := v.(Char)
		return string(rune(c)), ok
	},
	decode: func(raw any) (any, error) {
		s, err := asString(raw)
		if err != nil {
			return nil, err
		}
		r, size := utf8.DecodeRuneInString(s)
		if size == 0 {
			return nil, fmt.Errorf("empty character column")
		}
		return Char(r), nil
	},
	hash: func(v any) int64 { return int64(v.(Char)) },
}

var boolCodec = &primitive{
	name:     "bool",
	kind:     KindBool,
	keyCol:   common.ColBooleanKey,
	valueCol: common.ColBooleanValue,
	encode: func(v any) (any, bool) {
		b, ok := v.(bool)
		return b, ok
	},
	decode: func(raw any) (any, error) {
		if b, ok := raw.(bool); ok {
			return b, nil
		}
		n, err := asInt64(raw)
		return n != 0, err
	},
	hash: func(v any) int64 {
		if v.(bool) {
			return 1231
		}
		return 1237
	},
}

var stringCodec = &primitive{
	name:     "string",
	kind:     KindString,
	keyCol:   common.ColStringKey,
	valueCol: common.ColStringValue,
	encode: func(v any) (any, bool) {
		s, ok := v.(string)
		return s, ok
	},
	decode: func(raw any) (any, error) {
		return asString(raw)
	},
	hash: func(v any) int64 { return int64(xxhash.Sum64String(v.(string))) },
}

var (
	intCodec   = integerCodec[int]("int", KindInt, common.ColIntKey, common.ColIntValue)
	int32Codec = integerCodec[int32]("int32", KindInt, common.ColIntKey, common.ColIntValue)
	int16Codec = integerCodec[int16]("int16", KindInt, common.ColIntKey, common.ColIntValue)
	int64Codec = integerCodec[int64]("int64", KindLong, common.ColLongKey, common.ColLongValue)
	int8Codec  = integerCodec[int8]("int8", KindByte, common.ColByteKey, common.ColByteValue)
	uint8Codec = integerCodec[uint8]("uint8", KindByte, common.ColByteKey, common.ColByteValue)
)

// builtins is filled once at package init and never mutated afterwards.
var builtins = map[string]*primitive{}

func init() {
	for _, p := range []*primitive{
		intCodec, int32Codec, int16Codec, int64Codec, int8Codec, uint8Codec,
		float32Codec, float64Codec, charCodec, boolCodec, stringCodec,
	} {
		builtins[p.name] = p
	}
}

func primitiveFor(v any) (*primitive, bool) {
	switch v.(type) {
	case int:
		return intCodec, true
	case int32:
		return int32Codec, true
	case int16:
		return int16Codec, true
	case int64:
		return int64Codec, true
	case int8:
		return int8Codec, true
	case uint8:
		return uint8Codec, true
	case float32:
		return float32Codec, true
	case float64:
		return float64Codec, true
	case Char:
		return charCodec, true
	case bool:
		return boolCodec, true
	case string:
		return stringCodec, true
	default:
		return nil, false
	}
}
