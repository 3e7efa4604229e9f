package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/sandrolain/gometapath/pkg/cache"
	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/nodes"
	"github.com/sandrolain/gometapath/pkg/types"
)

// DocumentLoader loads the document at an absolute URI. *nodes.Loader
// implements it.
type DocumentLoader interface {
	LoadDocument(ctx context.Context, uri *url.URL) (item.NodeItem, error)
}

// DynamicContext is the run-time environment of an evaluation.
//
// It is split in two: the variable bindings and the execution stack are
// local to a scope, while the time snapshot, the document cache, the
// function result cache and the configuration live in a session shared by
// every scope derived from the same top-level context. Deriving a scope
// with a new binding is cheap and never changes the parent.
//
// A DynamicContext must not be used by two evaluations at once, but the
// session may be shared by the goroutines of a concurrent evaluation.
type DynamicContext struct {
	static  *StaticContext
	vars    *binding
	stack   *ExecutionStack
	session *session
}

// binding is a persistent list of variable bindings, innermost first.
type binding struct {
	name  types.Handle
	value item.Sequence
	next  *binding
}

type session struct {
	id         string
	now        time.Time
	tz         *time.Location
	logger     *slog.Logger
	debug      bool
	predicates bool
	concurrent bool
	maxDepth   int

	loader DocumentLoader
	docsMu sync.Mutex
	docs   map[string]item.NodeItem
	group  singleflight.Group

	memo      *cache.Cache[string, item.Sequence]
	memoGroup singleflight.Group
	compiled  *cache.Cache[string, *Expression]
}

// NewDynamicContext creates a top-level dynamic context for evaluations
// against sc. A nil sc means DefaultStaticContext().
func NewDynamicContext(sc *StaticContext, opts ...EvalOption) *DynamicContext {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newDynamicContext(sc, &o)
}

func newDynamicContext(sc *StaticContext, o *EvalOptions) *DynamicContext {
	if sc == nil {
		sc = DefaultStaticContext()
	}
	id := uuid.NewString()
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	if o.Clock != nil {
		now = o.Clock
	}
	tz := o.Timezone
	if tz == nil {
		tz = time.Local
	}
	loader := o.DocumentLoader
	if loader == nil {
		loader = nodes.NewLoader(nodes.WithLoaderLogger(logger))
	}
	var memoOpts []cache.Option
	if o.MemoCacheTTL > 0 {
		memoOpts = append(memoOpts, cache.WithIdleTimeout(o.MemoCacheTTL))
	}
	if o.Clock != nil {
		memoOpts = append(memoOpts, cache.WithClock(o.Clock))
	}
	return &DynamicContext{
		static: sc,
		stack:  &ExecutionStack{},
		session: &session{
			id:         id,
			now:        now(),
			tz:         tz,
			logger:     logger.With("eval_id", id),
			debug:      o.Debug,
			predicates: o.PredicateEvaluation,
			concurrent: o.Concurrency,
			maxDepth:   o.MaxDepth,
			loader:     loader,
			docs:       make(map[string]item.NodeItem),
			memo:       cache.New[string, item.Sequence](o.MemoCacheSize, memoOpts...),
			compiled:   cache.New[string, *Expression](64),
		},
	}
}

// StaticContext returns the static context the dynamic context belongs to.
func (dc *DynamicContext) StaticContext() *StaticContext {
	return dc.static
}

// ID identifies the session in log output.
func (dc *DynamicContext) ID() string {
	return dc.session.id
}

// SubContext returns a context sharing the session and the current
// bindings. Bindings added to the sub-context are invisible to dc.
func (dc *DynamicContext) SubContext() *DynamicContext {
	sub := *dc
	return &sub
}

// Bind returns a sub-context in which name is bound to value. The value is
// materialized first so repeated reads see the same items.
func (dc *DynamicContext) Bind(name types.QName, value item.Sequence) *DynamicContext {
	return dc.bind(name.Intern(), item.Materialize(value))
}

func (dc *DynamicContext) bind(name types.Handle, value item.Sequence) *DynamicContext {
	sub := dc.SubContext()
	sub.vars = &binding{name: name, value: value, next: dc.vars}
	return sub
}

// Variable returns the value bound to name in the innermost scope.
func (dc *DynamicContext) Variable(name types.QName) (item.Sequence, bool) {
	return dc.variable(name.Intern())
}

func (dc *DynamicContext) variable(name types.Handle) (item.Sequence, bool) {
	for b := dc.vars; b != nil; b = b.next {
		if b.name == name {
			return b.value, true
		}
	}
	return nil, false
}

// fork returns a context for another goroutine: same scope, own stack.
func (dc *DynamicContext) fork() *DynamicContext {
	sub := dc.SubContext()
	sub.stack = dc.stack.clone()
	return sub
}

// Stack returns the execution stack of the current scope.
func (dc *DynamicContext) Stack() *ExecutionStack {
	return dc.stack
}

// PredicateEvaluation reports whether predicates filter their input. When
// disabled, predicates pass every item through, which shows which nodes an
// expression would visit.
func (dc *DynamicContext) PredicateEvaluation() bool {
	return dc.session.predicates
}

// StaticBaseURI implements functions.Context.
func (dc *DynamicContext) StaticBaseURI() *url.URL {
	return dc.static.BaseURI()
}

// CurrentDateTime implements functions.Context. The value is sampled once
// when the context is created.
func (dc *DynamicContext) CurrentDateTime() time.Time {
	return dc.session.now
}

// ImplicitTimezone implements functions.Context.
func (dc *DynamicContext) ImplicitTimezone() *time.Location {
	return dc.session.tz
}

// Logger implements functions.Context.
func (dc *DynamicContext) Logger() *slog.Logger {
	return dc.session.logger
}

// ContextPosition implements functions.Context. A context without a focus
// has no position; see focusContext.
func (dc *DynamicContext) ContextPosition() (int, int) {
	return 0, 0
}

// AddDocument makes doc available under uri without loading it.
func (dc *DynamicContext) AddDocument(uri string, doc item.NodeItem) error {
	u, err := dc.resolveURI(uri)
	if err != nil {
		return err
	}
	dc.session.docsMu.Lock()
	defer dc.session.docsMu.Unlock()
	dc.session.docs[u.String()] = doc
	return nil
}

// resolveURI resolves uri against the static base URI.
func (dc *DynamicContext) resolveURI(uri string) (*url.URL, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, types.Errorf(types.ErrInvalidDocumentURI, "invalid document URI '%s'", uri).WithCause(err)
	}
	if base := dc.static.BaseURI(); base != nil && !u.IsAbs() {
		u = base.ResolveReference(u)
	}
	return u, nil
}

// LoadDocument implements functions.Context. Each resolved URI is loaded
// at most once per session, even when requested concurrently.
func (dc *DynamicContext) LoadDocument(ctx context.Context, uri string) (item.NodeItem, error) {
	u, err := dc.resolveURI(uri)
	if err != nil {
		return nil, err
	}
	key := u.String()

	s := dc.session
	s.docsMu.Lock()
	doc, ok := s.docs[key]
	s.docsMu.Unlock()
	if ok {
		return doc, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		doc, err := s.loader.LoadDocument(ctx, u)
		if err != nil {
			return nil, err
		}
		s.docsMu.Lock()
		s.docs[key] = doc
		s.docsMu.Unlock()
		return doc, nil
	})
	if err != nil {
		var coded *types.Error
		if errors.As(err, &coded) {
			return nil, err
		}
		return nil, types.Errorf(types.ErrRetrievingResource, "unable to load document '%s'", key).WithCause(err)
	}
	return v.(item.NodeItem), nil
}

// Call implements functions.Context: it invokes a function item without a
// focus. Built-ins see a focusContext, whose Call passes the focus on.
func (dc *DynamicContext) Call(ctx context.Context, fn item.FunctionItem, args []item.Sequence) (item.Sequence, error) {
	return dc.invoke(ctx, fn, args, Focus{})
}

// Evaluate implements functions.Context. Compiled forms of expr are kept
// for the rest of the session.
func (dc *DynamicContext) Evaluate(ctx context.Context, expr string, focus item.Item) (item.Sequence, error) {
	x, err := dc.session.compiled.GetOrCompute(expr, func() (*Expression, error) {
		return Compile(expr, dc.static)
	})
	if err != nil {
		return nil, err
	}
	return dc.eval(ctx, x.root, focusOn(focus))
}

// LookupFunction implements functions.Context.
func (dc *DynamicContext) LookupFunction(name string, arity int) (item.FunctionItem, error) {
	qn, err := dc.static.ResolveFunctionName(name)
	if err != nil {
		return nil, err
	}
	d, ok := dc.static.Functions().Lookup(qn, arity)
	if !ok {
		return nil, nil
	}
	return d, nil
}

// memoKey identifies a call of d: the function identity, the argument
// values and the context item when d is focus-dependent. ok is false when
// some argument has no stable identity. Inline function arguments are
// never keyed: they see the caller's focus and may call back into d.
func memoKey(d *functions.Definition, args []item.Sequence, focus item.Item) (string, bool) {
	var b strings.Builder
	b.WriteString(d.Identity())
	for _, arg := range args {
		b.WriteByte('(')
		for it := range arg.All() {
			if _, ok := it.(*Function); ok {
				return "", false
			}
			if !writeIdentity(&b, it) {
				return "", false
			}
		}
		b.WriteByte(')')
	}
	if d.Is(functions.FocusDependent) {
		b.WriteByte('@')
		if focus != nil && !writeIdentity(&b, focus) {
			return "", false
		}
	}
	return b.String(), true
}

func writeIdentity(b *strings.Builder, it item.Item) bool {
	switch v := it.(type) {
	case item.AtomicItem:
		b.WriteString(v.Type().Name().Local)
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(v.StringValue(), `"`, `""`))
		b.WriteByte('"')
	case item.NodeItem:
		fmt.Fprintf(b, "node@%p", v)
	case item.FunctionItem:
		b.WriteString(v.Identity())
	default:
		return false
	}
	b.WriteByte(' ')
	return true
}
