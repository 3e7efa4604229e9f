// Package functions defines the contract between the Metapath evaluator and
// the functions it can call.
//
// A function is described by a [Definition]: its qualified name, its
// parameter and result sequence types, its properties and an
// implementation. Definitions are grouped in a [Registry] keyed by name and
// arity, which the compiler consults to resolve static function calls.
//
// Users can register their own functions next to the built-in library via
// [evaluator.WithFunctions].
//
// # Example
//
//	greet := &functions.Definition{
//	    Name:       types.NewQName("urn:example", "greet"),
//	    Params:     []functions.Param{{Name: "name", Type: item.One(item.StringType)}},
//	    Result:     item.One(item.StringType),
//	    Properties: functions.Deterministic,
//	    Impl: func(ctx context.Context, fc functions.Context, args []item.Sequence, focus item.Item) (item.Sequence, error) {
//	        name := args[0].At(0).(item.AtomicItem).StringValue()
//	        return item.Of(item.NewString("Hello, " + name + "!")), nil
//	    },
//	}
package functions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Property is a bit set of function properties.
type Property uint8

const (
	// Deterministic functions return the same result for the same
	// arguments within one evaluation, so their results may be cached.
	Deterministic Property = 1 << iota
	// ContextDependent functions read the dynamic context (time, documents).
	ContextDependent
	// FocusDependent functions read the context item when called.
	FocusDependent
)

// Impl is the implementation of a function. args have already been
// converted to the declared parameter types. focus is the context item at
// the call site, or nil when there is none.
type Impl func(ctx context.Context, fc Context, args []item.Sequence, focus item.Item) (item.Sequence, error)

// Context is the part of the dynamic context that function implementations
// may use.
type Context interface {
	// StaticBaseURI is the base URI of the static context, or nil.
	StaticBaseURI() *url.URL
	// CurrentDateTime is fixed for the duration of an evaluation.
	CurrentDateTime() time.Time
	ImplicitTimezone() *time.Location
	// LoadDocument resolves uri against the static base URI and returns
	// the document node, loading it at most once per evaluation.
	LoadDocument(ctx context.Context, uri string) (item.NodeItem, error)
	// Call invokes a function item, such as an argument to fn:for-each.
	Call(ctx context.Context, fn item.FunctionItem, args []item.Sequence) (item.Sequence, error)
	// Evaluate compiles expr against the static context and evaluates it
	// with the given focus.
	Evaluate(ctx context.Context, expr string, focus item.Item) (item.Sequence, error)
	// LookupFunction resolves a lexical function name against the static
	// context. It returns nil when no function matches.
	LookupFunction(name string, arity int) (item.FunctionItem, error)
	// ContextPosition returns the position of the context item within the
	// sequence being processed and the size of that sequence, or zeros when
	// there is no focus.
	ContextPosition() (position, size int)
	Logger() *slog.Logger
}

// Param is a named, typed function parameter.
type Param struct {
	Name string
	Type item.SequenceType
}

// Definition describes a function available to Metapath expressions.
//
// A Definition is a function item: it can be returned by a named function
// reference and passed around as a value.
type Definition struct {
	Name   types.QName
	Params []Param
	// Variadic functions accept any number of arguments at or above the
	// number of parameters; the last parameter type repeats.
	Variadic   bool
	Result     item.SequenceType
	Properties Property
	Impl       Impl
}

// ItemType implements item.Item.
func (d *Definition) ItemType() item.ItemType { return item.AnyFunction }

// FunctionName implements item.FunctionItem.
func (d *Definition) FunctionName() types.QName { return d.Name }

// Arity implements item.FunctionItem.
func (d *Definition) Arity() int { return len(d.Params) }

// Identity implements item.FunctionItem.
func (d *Definition) Identity() string {
	return fmt.Sprintf("%s#%d", d.Name, len(d.Params))
}

// Is reports whether every property in p is set.
func (d *Definition) Is(p Property) bool {
	return d.Properties&p == p
}

// Accepts reports whether the function can be called with n arguments.
func (d *Definition) Accepts(n int) bool {
	if d.Variadic {
		return n >= len(d.Params)
	}
	return n == len(d.Params)
}

// ParamType returns the type of the i-th argument.
func (d *Definition) ParamType(i int) item.SequenceType {
	if i >= len(d.Params) {
		return d.Params[len(d.Params)-1].Type
	}
	return d.Params[i].Type
}

// Invoke checks the argument count, converts each argument to its declared
// type and calls the implementation.
func (d *Definition) Invoke(ctx context.Context, fc Context, args []item.Sequence, focus item.Item) (item.Sequence, error) {
	if !d.Accepts(len(args)) {
		return nil, types.Errorf(types.ErrFunctionArityMatch,
			"function %s cannot be called with %d arguments", d.Signature(), len(args))
	}
	converted := make([]item.Sequence, len(args))
	for i, arg := range args {
		c, err := d.ParamType(i).Convert(arg)
		if err != nil {
			var ce *types.Error
			if errors.As(err, &ce) {
				return nil, types.Errorf(ce.Code, "argument %d of %s: %s", i+1, d.Name.Prefixed(), ce.Message).WithCause(err)
			}
			return nil, types.Errorf(types.ErrInvalidType, "argument %d of %s: %v", i+1, d.Name.Prefixed(), err).WithCause(err)
		}
		converted[i] = c
	}
	return d.Impl(ctx, fc, converted, focus)
}

// Signature renders the function in XPath signature notation, e.g.
// "fn:count($arg as item()*) as xs:integer".
func (d *Definition) Signature() string {
	var b strings.Builder
	b.WriteString(d.Name.Prefixed())
	b.WriteByte('(')
	for i, p := range d.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%s as %s", p.Name, p.Type)
	}
	if d.Variadic {
		b.WriteString(", ...")
	}
	b.WriteString(") as ")
	b.WriteString(d.Result.String())
	return b.String()
}

func (d *Definition) String() string {
	return d.Signature()
}

// Registry holds function definitions keyed by name and arity.
//
// Safe for concurrent use by multiple goroutines.
type Registry struct {
	mu     sync.RWMutex
	byName map[types.QName][]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[types.QName][]*Definition)}
}

// Register adds definitions. Registering a name and arity that is already
// present replaces the earlier definition.
func (r *Registry) Register(defs ...*Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range defs {
		if d.Impl == nil {
			return fmt.Errorf("function %s: missing implementation", d.Name)
		}
		if d.Variadic && len(d.Params) == 0 {
			return fmt.Errorf("function %s: variadic function needs at least one parameter", d.Name)
		}
		overloads := r.byName[d.Name]
		overloads = slices.DeleteFunc(overloads, func(o *Definition) bool {
			return len(o.Params) == len(d.Params) && o.Variadic == d.Variadic
		})
		r.byName[d.Name] = append(overloads, d)
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(defs ...*Definition) {
	if err := r.Register(defs...); err != nil {
		panic(err)
	}
}

// Lookup finds the definition of name accepting arity arguments. Fixed
// arity overloads win over variadic ones.
func (r *Registry) Lookup(name types.QName, arity int) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var variadic *Definition
	for _, d := range r.byName[name] {
		if !d.Variadic && len(d.Params) == arity {
			return d, true
		}
		if d.Accepts(arity) {
			variadic = d
		}
	}
	return variadic, variadic != nil
}

// Has reports whether any overload of name is registered.
func (r *Registry) Has(name types.QName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName[name]) > 0
}

// All returns every definition ordered by namespace, name and arity.
func (r *Registry) All() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Definition
	for _, defs := range r.byName {
		out = append(out, defs...)
	}
	slices.SortFunc(out, func(a, b *Definition) int {
		if c := strings.Compare(a.Name.Namespace, b.Name.Namespace); c != 0 {
			return c
		}
		if c := strings.Compare(a.Name.Local, b.Name.Local); c != 0 {
			return c
		}
		return len(a.Params) - len(b.Params)
	})
	return out
}

// Clone returns a registry holding the same definitions, which can be
// extended without affecting r.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := NewRegistry()
	for name, defs := range r.byName {
		c.byName[name] = slices.Clone(defs)
	}
	return c
}
