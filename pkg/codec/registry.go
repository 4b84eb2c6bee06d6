package codec

import (
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"
)

// Registry resolves codecs by value or by persisted type name.
//
// The primitive codecs are fixed. Generic codecs are learned the first time a
// type is encoded and are never removed, so a type written by this process can
// always be read back. Types written by another process must be announced
// with Register before they can be decoded.
type Registry struct {
	generic *xsync.MapOf[string, *genericCodec]
}

func NewRegistry() *Registry {
	return &Registry{
		generic: xsync.NewMapOf[string, *genericCodec](),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// For returns the codec for v. It never fails: types without a primitive
// codec resolve to the generic codec. v must not be nil.
func (r *Registry) For(v any) Codec {
	if p, ok := primitiveFor(v); ok {
		return p
	}
	t := reflect.TypeOf(v)
	if t == nil {
		return unknownCodec{name: "<nil>"}
	}
	return r.learn(t)
}

// ByTypeName returns the codec for a persisted type name. Names that are
// neither primitive nor registered resolve to a codec whose Decode reports an
// encoding error.
func (r *Registry) ByTypeName(name string) Codec {
	if c, ok := r.Lookup(name); ok {
		return c
	}
	return unknownCodec{name: name}
}

// Lookup is ByTypeName without the fallback.
func (r *Registry) Lookup(name string) (Codec, bool) {
	if p, ok := builtins[name]; ok {
		return p, true
	}
	if g, ok := r.generic.Load(name); ok {
		return g, true
	}
	return nil, false
}

// Register announces the type of sample so rows written by other processes
// can be decoded. It returns the codec that now serves the type.
func (r *Registry) Register(sample any) Codec {
	return r.For(sample)
}

// Known reports how many generic types the registry has learned.
func (r *Registry) Known() int {
	return r.generic.Size()
}

func (r *Registry) learn(t reflect.Type) *genericCodec {
	name := typeName(t)
	g, _ := r.generic.LoadOrCompute(name, func() *genericCodec {
		return newGenericCodec(t)
	})
	return g
}
