// Package evaluator implements the Metapath compiler and evaluation engine.
//
// Source text is parsed by package parser, compiled against a StaticContext
// into an expression tree, and evaluated against a DynamicContext that holds
// variable bindings, loaded documents and cached function results.
//
// # Example
//
//	ev := evaluator.New()
//	expr, err := ev.Compile("//control[@id = 'ac-1']/title")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := ev.Eval(ctx, expr, doc)
//
// # Concurrency
//
// Compiled expressions and static contexts are immutable and may be shared.
// Each evaluation uses its own DynamicContext. With WithConcurrency(true),
// the arguments of a function call are evaluated on separate goroutines.
package evaluator

import (
	"context"
	"log/slog"
	"time"

	"github.com/sandrolain/gometapath/pkg/cache"
	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
)

// Evaluator compiles and evaluates expressions with a fixed configuration.
type Evaluator struct {
	opts   EvalOptions
	logger *slog.Logger
	static *StaticContext
	cache  *cache.Cache[string, *Expression] // non-nil when Caching is enabled
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// Caching enables caching of compiled expressions by source text.
	Caching bool
	// CacheSize sets the maximum number of cached expressions. Defaults
	// to 256.
	CacheSize int
	// Concurrency enables concurrent evaluation of function arguments.
	Concurrency bool
	// MaxDepth limits the depth of the execution stack.
	MaxDepth int
	// Timeout bounds each evaluation started by Eval.
	Timeout time.Duration
	// Debug enables debug logging.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
	// MemoCacheSize bounds the per-context cache of deterministic function
	// results.
	MemoCacheSize int
	// MemoCacheTTL evicts cached function results unused for this long.
	MemoCacheTTL time.Duration
	// DocumentLoader loads documents for fn:doc. Defaults to a nodes.Loader.
	DocumentLoader DocumentLoader
	// PredicateEvaluation can be turned off to make predicates pass every
	// item through.
	PredicateEvaluation bool
	// Clock supplies the current time. Defaults to time.Now.
	Clock func() time.Time
	// Timezone is the implicit timezone. Defaults to time.Local.
	Timezone *time.Location
	// StaticContext is the static context expressions are compiled
	// against. Defaults to DefaultStaticContext().
	StaticContext *StaticContext
	// Functions are registered on top of the static context's library.
	Functions []*functions.Definition
}

// defaultConcurrency is false on WebAssembly targets; see
// evaluator_wasm.go.
var defaultConcurrency = true

func defaultOptions() EvalOptions {
	return EvalOptions{
		Concurrency:         defaultConcurrency,
		MaxDepth:            10000,
		Timeout:             30 * time.Second,
		MemoCacheSize:       1024,
		PredicateEvaluation: true,
	}
}

// New creates an Evaluator. It panics if WithFunctions is given an invalid
// definition.
func New(opts ...EvalOption) *Evaluator {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	static := options.StaticContext
	if static == nil {
		static = DefaultStaticContext()
	}
	if len(options.Functions) > 0 {
		r := static.Functions().Clone()
		r.MustRegister(options.Functions...)
		sc, err := static.Builder().Functions(r).Build()
		if err != nil {
			panic(err)
		}
		static = sc
	}

	var c *cache.Cache[string, *Expression]
	if options.Caching {
		size := options.CacheSize
		if size <= 0 {
			size = 256
		}
		c = cache.New[string, *Expression](size)
	}

	return &Evaluator{
		opts:   options,
		logger: options.Logger,
		static: static,
		cache:  c,
	}
}

// StaticContext returns the static context expressions are compiled
// against.
func (e *Evaluator) StaticContext() *StaticContext {
	return e.static
}

// Compile compiles source, reusing a cached compilation when caching is
// enabled.
func (e *Evaluator) Compile(source string) (*Expression, error) {
	compile := func() (*Expression, error) {
		x, err := Compile(source, e.static)
		if err != nil {
			return nil, err
		}
		if e.opts.Debug {
			e.logger.Debug("compiled expression", "source", source, "static_type", x.StaticType().String())
		}
		return x, nil
	}
	if e.cache == nil {
		return compile()
	}
	return e.cache.GetOrCompute(source, compile)
}

// NewDynamicContext creates a dynamic context configured by the
// evaluator's options.
func (e *Evaluator) NewDynamicContext() *DynamicContext {
	return newDynamicContext(e.static, &e.opts)
}

// Eval evaluates expr with focus as the context item in a fresh dynamic
// context. A nil focus means there is no context item.
func (e *Evaluator) Eval(ctx context.Context, expr *Expression, focus item.Item) (item.Sequence, error) {
	return e.EvalWithContext(ctx, expr, focus, e.NewDynamicContext())
}

// EvalWithContext evaluates expr in dc, applying the evaluator's timeout.
func (e *Evaluator) EvalWithContext(ctx context.Context, expr *Expression, focus item.Item, dc *DynamicContext) (item.Sequence, error) {
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}
	if e.opts.Debug {
		e.logger.Debug("evaluating expression", "eval_id", dc.ID(), "source", expr.Source())
	}
	return expr.EvaluateWithContext(ctx, focus, dc)
}

// EvalWithBindings evaluates expr with the given variables bound. Keys are
// variable names as written in expressions, without the "$".
func (e *Evaluator) EvalWithBindings(ctx context.Context, expr *Expression, focus item.Item, bindings map[string]item.Sequence) (item.Sequence, error) {
	dc := e.NewDynamicContext()
	for name, value := range bindings {
		qn, err := e.static.ResolveVariableName(name)
		if err != nil {
			return nil, err
		}
		dc = dc.Bind(qn, value)
	}
	return e.EvalWithContext(ctx, expr, focus, dc)
}

// EvalAs evaluates expr and converts the result to rt.
func (e *Evaluator) EvalAs(ctx context.Context, expr *Expression, focus item.Item, rt ResultType) (any, error) {
	s, err := e.Eval(ctx, expr, focus)
	if err != nil {
		return nil, err
	}
	v, err := ConvertResult(s, rt)
	if err != nil {
		return nil, withExpression(err, expr.Source())
	}
	return v, nil
}

// Cache returns the expression cache, or nil if caching is disabled.
func (e *Evaluator) Cache() *cache.Cache[string, *Expression] {
	return e.cache
}

// EvalOption configures evaluation behavior.
type EvalOption func(*EvalOptions)

// WithCaching enables or disables caching of compiled expressions.
func WithCaching(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Caching = enabled
	}
}

// WithCacheSize sets the maximum number of cached expressions.
// Only effective when combined with WithCaching(true).
func WithCacheSize(size int) EvalOption {
	return func(opts *EvalOptions) {
		opts.CacheSize = size
	}
}

// WithConcurrency enables or disables concurrent argument evaluation.
func WithConcurrency(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Concurrency = enabled
	}
}

// WithTimeout sets the evaluation timeout.
func WithTimeout(timeout time.Duration) EvalOption {
	return func(opts *EvalOptions) {
		opts.Timeout = timeout
	}
}

// WithDebug enables or disables debug logging.
func WithDebug(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// WithMaxDepth sets the maximum depth of the execution stack. Exceeding it
// raises MPDY0100.
func WithMaxDepth(depth int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxDepth = depth
	}
}

// WithMemoCacheSize bounds the cache of deterministic function results.
func WithMemoCacheSize(size int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MemoCacheSize = size
	}
}

// WithMemoCacheTTL evicts cached function results idle for longer than d.
func WithMemoCacheTTL(d time.Duration) EvalOption {
	return func(opts *EvalOptions) {
		opts.MemoCacheTTL = d
	}
}

// WithDocumentLoader sets the loader used by fn:doc.
func WithDocumentLoader(l DocumentLoader) EvalOption {
	return func(opts *EvalOptions) {
		opts.DocumentLoader = l
	}
}

// WithPredicateEvaluation enables or disables predicate filtering.
func WithPredicateEvaluation(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.PredicateEvaluation = enabled
	}
}

// WithClock sets the source of the current time, sampled once per
// dynamic context.
func WithClock(now func() time.Time) EvalOption {
	return func(opts *EvalOptions) {
		opts.Clock = now
	}
}

// WithTimezone sets the implicit timezone.
func WithTimezone(loc *time.Location) EvalOption {
	return func(opts *EvalOptions) {
		opts.Timezone = loc
	}
}

// WithStaticContext sets the static context expressions are compiled
// against.
func WithStaticContext(sc *StaticContext) EvalOption {
	return func(opts *EvalOptions) {
		opts.StaticContext = sc
	}
}

// WithFunctions registers additional functions. A definition with the
// name and arity of a built-in replaces it.
//
// Example:
//
//	greet := &functions.Definition{
//	    Name:   types.NewQName("urn:example", "greet"),
//	    Params: []functions.Param{{Name: "name", Type: item.One(item.StringType)}},
//	    Result: item.One(item.StringType),
//	    Impl:   greetImpl,
//	}
//	ev := evaluator.New(evaluator.WithFunctions(greet))
func WithFunctions(defs ...*functions.Definition) EvalOption {
	return func(opts *EvalOptions) {
		opts.Functions = append(opts.Functions, defs...)
	}
}

// DisablePredicateEvaluation turns predicate filtering off for every
// scope sharing dc's session.
func (dc *DynamicContext) DisablePredicateEvaluation() {
	dc.session.predicates = false
}

var _ functions.Context = (*DynamicContext)(nil)
