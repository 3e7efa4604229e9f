package evaluator

import (
	"maps"
	"net/url"
	"sync"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/functions/library"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// StaticContext is the compile-time environment of an expression: the
// namespace bindings, the default namespaces, the static base URI and the
// functions that calls resolve against.
//
// A StaticContext is immutable once built and may be shared by any number
// of compilations and evaluations.
type StaticContext struct {
	namespaces        map[string]string
	baseURI           *url.URL
	defaultModelNS    string
	defaultFunctionNS string
	useWildcard       bool
	functions         *functions.Registry
}

// DefaultStaticContext returns the static context used when none is given:
// the well-known prefixes, no base URI and the built-in function library.
var DefaultStaticContext = sync.OnceValue(func() *StaticContext {
	sc, err := NewStaticContextBuilder().Build()
	if err != nil {
		panic(err)
	}
	return sc
})

// NamespaceURI returns the URI bound to prefix.
func (sc *StaticContext) NamespaceURI(prefix string) (string, bool) {
	uri, ok := sc.namespaces[prefix]
	return uri, ok
}

// Namespaces returns a copy of the prefix bindings.
func (sc *StaticContext) Namespaces() map[string]string {
	return maps.Clone(sc.namespaces)
}

// BaseURI returns the static base URI, or nil.
func (sc *StaticContext) BaseURI() *url.URL {
	return sc.baseURI
}

// DefaultModelNamespace is applied to unprefixed assembly and field names.
func (sc *StaticContext) DefaultModelNamespace() string {
	return sc.defaultModelNS
}

// DefaultFunctionNamespace is applied to unprefixed function names.
func (sc *StaticContext) DefaultFunctionNamespace() string {
	return sc.defaultFunctionNS
}

// UseWildcardWhenNamespaceNotDefaulted reports whether an unprefixed model
// name matches any namespace when no default model namespace is set.
func (sc *StaticContext) UseWildcardWhenNamespaceNotDefaulted() bool {
	return sc.useWildcard
}

// Functions returns the function registry calls are resolved against.
func (sc *StaticContext) Functions() *functions.Registry {
	return sc.functions
}

// expand resolves a lexical name, applying defaultNS to unprefixed names.
func (sc *StaticContext) expand(name string, defaultNS string) (types.QName, error) {
	ln := types.ParseLexicalName(name)
	switch {
	case ln.HasURI:
		return types.NewQName(ln.URI, ln.Local), nil
	case ln.Prefix != "":
		uri, ok := sc.namespaces[ln.Prefix]
		if !ok {
			return types.QName{}, types.Errorf(types.ErrPrefixNotExpandable,
				"the namespace prefix '%s' is not bound", ln.Prefix).WithToken(name)
		}
		return types.NewQName(uri, ln.Local), nil
	}
	return types.NewQName(defaultNS, ln.Local), nil
}

// ResolveModelName resolves the name of an assembly or field. wildcard is
// set when the name is unprefixed, no default model namespace is set and
// wildcard matching is enabled, in which case only the local part of the
// name is significant.
func (sc *StaticContext) ResolveModelName(name string) (qn types.QName, wildcard bool, err error) {
	qn, err = sc.expand(name, sc.defaultModelNS)
	if err != nil {
		return qn, false, err
	}
	ln := types.ParseLexicalName(name)
	wildcard = !ln.HasURI && ln.Prefix == "" && sc.defaultModelNS == "" && sc.useWildcard
	return qn, wildcard, nil
}

// ResolveFlagName resolves the name of a flag. Unprefixed flag names are
// never in a namespace.
func (sc *StaticContext) ResolveFlagName(name string) (types.QName, error) {
	return sc.expand(name, "")
}

// ResolveFunctionName resolves a function name, applying the default
// function namespace.
func (sc *StaticContext) ResolveFunctionName(name string) (types.QName, error) {
	return sc.expand(name, sc.defaultFunctionNS)
}

// ResolveVariableName resolves a variable name. Unprefixed variable names
// are never in a namespace.
func (sc *StaticContext) ResolveVariableName(name string) (types.QName, error) {
	return sc.expand(name, "")
}

// ResolveTypeName resolves an atomic type name. Unprefixed names are in the
// XML Schema namespace.
func (sc *StaticContext) ResolveTypeName(name string) (types.QName, error) {
	return sc.expand(name, types.NSXMLSchema)
}

// LookupAtomicType resolves name to a built-in atomic type.
func (sc *StaticContext) LookupAtomicType(name string) (*item.AtomicType, error) {
	qn, err := sc.ResolveTypeName(name)
	if err != nil {
		return nil, err
	}
	t, ok := item.LookupAtomicType(qn)
	if !ok {
		return nil, types.Errorf(types.ErrUnknownType, "unknown atomic type '%s'", name).WithToken(name)
	}
	return t, nil
}

// LookupFunction finds the function called name with arity arguments.
func (sc *StaticContext) LookupFunction(name types.QName, arity int) (*functions.Definition, error) {
	d, ok := sc.functions.Lookup(name, arity)
	if !ok {
		return nil, types.Errorf(types.ErrNoFunctionMatch,
			"unable to find function with name '%s' having arity '%d'", name, arity)
	}
	return d, nil
}

// StaticContextBuilder builds a StaticContext. The zero value is not
// usable; start from NewStaticContextBuilder.
type StaticContextBuilder struct {
	namespaces        map[string]string
	baseURI           string
	defaultModelNS    string
	defaultFunctionNS string
	useWildcard       bool
	functions         *functions.Registry
	err               error
}

// NewStaticContextBuilder returns a builder preloaded with the well-known
// prefixes (mp, xs, fn, math, array, map), the fn namespace as default
// function namespace, wildcard fallback for unprefixed model names and the
// built-in function library.
func NewStaticContextBuilder() *StaticContextBuilder {
	return &StaticContextBuilder{
		namespaces:        maps.Clone(types.WellKnownNamespaces),
		defaultFunctionNS: types.NSMetapathFunctions,
		useWildcard:       true,
		functions:         library.Default(),
	}
}

// Namespace binds prefix to uri, replacing any earlier binding, including
// a well-known one. The xml and xmlns prefixes cannot be bound.
func (b *StaticContextBuilder) Namespace(prefix, uri string) *StaticContextBuilder {
	if types.IsReservedPrefix(prefix) {
		b.fail(types.Errorf(types.ErrNamespaceMisuse, "the prefix '%s' cannot be bound", prefix).WithToken(prefix))
		return b
	}
	if uri == types.NSXML {
		b.fail(types.Errorf(types.ErrNamespaceMisuse, "the namespace '%s' cannot be bound to '%s'", uri, prefix))
		return b
	}
	b.namespaces[prefix] = uri
	return b
}

// BaseURI sets the static base URI used to resolve relative document URIs.
func (b *StaticContextBuilder) BaseURI(uri string) *StaticContextBuilder {
	b.baseURI = uri
	return b
}

// DefaultModelNamespace sets the namespace of unprefixed model names.
func (b *StaticContextBuilder) DefaultModelNamespace(uri string) *StaticContextBuilder {
	b.defaultModelNS = uri
	return b
}

// DefaultFunctionNamespace sets the namespace of unprefixed function names.
func (b *StaticContextBuilder) DefaultFunctionNamespace(uri string) *StaticContextBuilder {
	b.defaultFunctionNS = uri
	return b
}

// UseWildcardWhenNamespaceNotDefaulted controls the fallback for unprefixed
// model names when no default model namespace is set.
func (b *StaticContextBuilder) UseWildcardWhenNamespaceNotDefaulted(enabled bool) *StaticContextBuilder {
	b.useWildcard = enabled
	return b
}

// Functions replaces the function registry.
func (b *StaticContextBuilder) Functions(r *functions.Registry) *StaticContextBuilder {
	b.functions = r
	return b
}

func (b *StaticContextBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build returns the static context, or the first error recorded by the
// builder methods.
func (b *StaticContextBuilder) Build() (*StaticContext, error) {
	if b.err != nil {
		return nil, b.err
	}
	sc := &StaticContext{
		namespaces:        maps.Clone(b.namespaces),
		defaultModelNS:    b.defaultModelNS,
		defaultFunctionNS: b.defaultFunctionNS,
		useWildcard:       b.useWildcard,
		functions:         b.functions,
	}
	if sc.functions == nil {
		sc.functions = library.Default()
	}
	if b.baseURI != "" {
		u, err := url.Parse(b.baseURI)
		if err != nil {
			return nil, types.Errorf(types.ErrInvalidURIArgument, "invalid base URI '%s'", b.baseURI).WithCause(err)
		}
		sc.baseURI = u
	}
	return sc, nil
}

// Builder returns a builder preloaded with the settings of sc, for
// deriving a modified static context.
func (sc *StaticContext) Builder() *StaticContextBuilder {
	b := &StaticContextBuilder{
		namespaces:        maps.Clone(sc.namespaces),
		defaultModelNS:    sc.defaultModelNS,
		defaultFunctionNS: sc.defaultFunctionNS,
		useWildcard:       sc.useWildcard,
		functions:         sc.functions,
	}
	if sc.baseURI != nil {
		b.baseURI = sc.baseURI.String()
	}
	return b
}
