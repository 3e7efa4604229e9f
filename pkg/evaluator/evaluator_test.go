package evaluator

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/nodes"
	"github.com/sandrolain/gometapath/pkg/types"
)

func loadCatalog(t testing.TB) item.NodeItem {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", "catalog.xml"))
	require.NoError(t, err)
	defer f.Close()
	doc, err := nodes.ParseXML(f, "file:///testdata/catalog.xml")
	require.NoError(t, err)
	return doc
}

// values atomizes s and returns the string value of every item.
func values(t testing.TB, s item.Sequence) []string {
	t.Helper()
	atoms, err := item.Atomize(s)
	require.NoError(t, err)
	out := make([]string, 0, atoms.Len())
	for it := range atoms.All() {
		out = append(out, it.(item.AtomicItem).StringValue())
	}
	return out
}

func evalString(t testing.TB, ev *Evaluator, source string, focus item.Item) (item.Sequence, error) {
	t.Helper()
	expr, err := ev.Compile(source)
	if err != nil {
		return nil, err
	}
	return ev.Eval(context.Background(), expr, focus)
}

func requireCode(t testing.TB, err error, code types.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	got, ok := types.CodeOf(err)
	require.True(t, ok, "expected a coded error, got %v", err)
	assert.Equal(t, code, got, "error: %v", err)
}

func TestEvalBasics(t *testing.T) {
	ev := New()
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{"precedence", "1 + 2 * 3", []string{"7"}},
		{"for", "for $x in (1, 2, 3) return $x * $x", []string{"1", "4", "9"}},
		{"for over empty", "for $x in () return $x", []string{}},
		{"some", "some $x in (1, 2, 3) satisfies $x gt 2", []string{"true"}},
		{"every", "every $x in (1, 2, 3) satisfies $x gt 2", []string{"false"}},
		{"every over empty", "every $x in () satisfies false()", []string{"true"}},
		{"general comparison", "(1, 2) = (2, 3)", []string{"true"}},
		{"value comparison", "1 eq 2", []string{"false"}},
		{"value comparison empty", "() eq 1", []string{}},
		{"castable", `"abc" castable as xs:integer`, []string{"false"}},
		{"castable empty", "() castable as xs:integer?", []string{"true"}},
		{"cast", `("12" cast as xs:integer) + 1`, []string{"13"}},
		{"let shadowing", "let $x := 1 return (let $x := 2 return $x, $x)", []string{"2", "1"}},
		{"let chain", "let $a := 2, $b := $a * 3 return $b", []string{"6"}},
		{"range", "1 to 3", []string{"1", "2", "3"}},
		{"reversed range", "3 to 1", []string{}},
		{"string concat", `"a" || 1 || ()`, []string{"a1"}},
		{"if", "if (()) then 'yes' else 'no'", []string{"no"}},
		{"trailing string literal", "'abc'", []string{"abc"}},
		{"string equality", `"abc" = "abc"`, []string{"true"}},
		{"escaped quote", `'it''s'`, []string{"it's"}},
		{"huge range", "count(9223372036854775806 to 9223372036854775807)", []string{"2"}},
		{"simple map", "(1, 2) ! (. * 10)", []string{"10", "20"}},
		{"unary minus", "-(1 + 1)", []string{"-2"}},
		{"double negation", "--3", []string{"3"}},
		{"integer division", "7 idiv 2", []string{"3"}},
		{"decimal division", "1 div 4", []string{"0.25"}},
		{"instance of", "(1, 2) instance of xs:integer+", []string{"true"}},
		{"instance of empty", "() instance of xs:integer", []string{"false"}},
		{"and short circuit", "false() and error()", []string{"false"}},
		{"position and last", "(10, 20, 30)[position() = last()]", []string{"30"}},
		{"numeric predicate", "(10, 20, 30)[2]", []string{"20"}},
		{"nested focus", "(1, 2)[. = (2, 3)[. gt 1]]", []string{"2"}},
		{"context item", "(4, 5) ! string(.)", []string{"4", "5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := evalString(t, ev, tt.expr, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, values(t, out))
		})
	}
}

func TestEvalPaths(t *testing.T) {
	doc := loadCatalog(t)
	ev := New()
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{"child steps", "/catalog/metadata/version", []string{"1.0"}},
		{"flag", "/catalog/@uuid", []string{"74c8ba1e-5cd4-4ad1-bbfd-d888e2f6c724"}},
		{"descendants", "//control/@id", []string{"ac-1", "ac-2", "au-1"}},
		{"predicate on flag", "//control[@id = 'ac-2']/title", []string{"Account Management"}},
		{"positional", "/catalog/group[2]/title", []string{"Audit"}},
		{"last of path", "(//title)[last()]", []string{"Audit Policy"}},
		{"relative from root", "catalog/group/@id", []string{"ac", "au"}},
		{"parent", "//control[@id = 'au-1']/../@id", []string{"au"}},
		{"ancestor nearest first", "//control[@id = 'au-1']/ancestor::*[1]/@id", []string{"au"}},
		{"preceding sibling nearest first", "//control[@id = 'ac-2']/preceding-sibling::*[1]/@id", []string{"ac-1"}},
		{"following sibling", "//control[@id = 'ac-1']/following-sibling::control/@id", []string{"ac-2"}},
		{"self", "//group/self::group/@id", []string{"ac", "au"}},
		{"wildcard", "/catalog/*[2]/@id", []string{"ac"}},
		{"document order", "(//control[@id = 'au-1'] | //group) ! @id", []string{"ac", "au", "au-1"}},
		{"dedup", "count(//control/.. | //group)", []string{"2"}},
		{"except", "count(//title except //control/title)", []string{"3"}},
		{"intersect", "//group/title intersect //title[. = 'Audit']", []string{"Audit"}},
		{"count", "count(//control)", []string{"3"}},
		{"flag kind test", "(//control)[1]/flag(id)", []string{"ac-1"}},
		{"predicate per parent", "//control[1]/@id", []string{"ac-1", "au-1"}},
		{"field kind test", "/catalog/metadata/field(version)", []string{"1.0"}},
		{"document node", "count(/self::document-node())", []string{"1"}},
		{"general comparison on nodes", "//group[title = 'Audit']/@id", []string{"au"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := evalString(t, ev, tt.expr, doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, values(t, out))
		})
	}
}

func TestEvalNamespaces(t *testing.T) {
	doc := loadCatalog(t)

	sc, err := NewStaticContextBuilder().
		Namespace("c", "http://example.com/ns/catalog").
		Build()
	require.NoError(t, err)
	ev := New(WithStaticContext(sc))

	out, err := evalString(t, ev, "/c:catalog/c:metadata/c:version", doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0"}, values(t, out))

	out, err = evalString(t, ev, "count(//*:control)", doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, values(t, out))

	out, err = evalString(t, ev, "count(//Q{http://example.com/ns/catalog}control)", doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, values(t, out))

	t.Run("default model namespace", func(t *testing.T) {
		other, err := NewStaticContextBuilder().DefaultModelNamespace("urn:other").Build()
		require.NoError(t, err)
		out, err := evalString(t, New(WithStaticContext(other)), "//control", doc)
		require.NoError(t, err)
		assert.True(t, out.IsEmpty())
	})

	t.Run("no wildcard fallback", func(t *testing.T) {
		strict, err := NewStaticContextBuilder().UseWildcardWhenNamespaceNotDefaulted(false).Build()
		require.NoError(t, err)
		out, err := evalString(t, New(WithStaticContext(strict)), "//control", doc)
		require.NoError(t, err)
		assert.True(t, out.IsEmpty())
	})
}

func TestEvalFunctionsAndCollections(t *testing.T) {
	ev := New()
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{"inline function", "let $f := function($x) { $x * 2 } return $f(21)", []string{"42"}},
		{"closure", "let $n := 10, $f := function($x) { $x + $n } return $f(1)", []string{"11"}},
		{"typed params", "let $f := function($a as xs:string, $b as xs:integer) as xs:string { $a || $b } return $f('x', 1)", []string{"x1"}},
		{"higher order", "for-each((1, 2), function($x) { $x + 1 })", []string{"2", "3"}},
		{"named function reference", "count#1((1, 2))", []string{"2"}},
		{"arrow", "(1, 2, 3) => sum()", []string{"6"}},
		{"arrow chain", "'a b' => tokenize(' ') => count()", []string{"2"}},
		{"arrow to variable", "let $f := function($s) { upper-case($s) } return 'x' => $f()", []string{"X"}},
		{"map lookup", "map { 'a': 1, 'b': 2 }?b", []string{"2"}},
		{"map call", "map { 'a': 1 }('a')", []string{"1"}},
		{"missing key", "map { 'a': 1 }?c", []string{}},
		{"map wildcard", "map { 'a': 1 }?*", []string{"1"}},
		{"array lookup", "[1, (2, 3), 4]?2", []string{"2", "3"}},
		{"curly array", "array { 1, 2 }?*", []string{"1", "2"}},
		{"array call", "[10, 20](2)", []string{"20"}},
		{"unary lookup", "([10, 20], [30]) ! ?1", []string{"10", "30"}},
		{"lookup by expression", "map { 1: 'one' }?(0 + 1)", []string{"one"}},
		{"nested arrays", "[[1, 2], [3]]?*?*", []string{"1", "2", "3"}},
		{"body sees caller focus", "(10, 20) ! (function() { . + 1 })()", []string{"11", "21"}},
		{"bound function sees caller focus", "let $f := function() { . } return (1, 2) ! $f()", []string{"1", "2"}},
		{"higher order passes focus", "let $f := function($x) { $x + . } return (10, 20) ! for-each(1, $f)", []string{"11", "21"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := evalString(t, ev, tt.expr, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, values(t, out))
		})
	}
}

func TestEvalErrors(t *testing.T) {
	doc := loadCatalog(t)
	ev := New()
	tests := []struct {
		name  string
		expr  string
		focus item.Item
		code  types.ErrorCode
	}{
		{"syntax", "1 +", nil, types.ErrInvalidPathGrammar},
		{"unbound variable", "$x", nil, types.ErrNotDefined},
		{"inline function without focus", "let $f := function() { . } return $f()", nil, types.ErrContextAbsent},
		{"unknown function", "nope()", nil, types.ErrNoFunctionMatch},
		{"unbound prefix", "foo:bar", nil, types.ErrPrefixNotExpandable},
		{"unknown cast type", "1 cast as xs:foo", nil, types.ErrCastUnknownType},
		{"cast to anyAtomicType", "1 cast as xs:anyAtomicType", nil, types.ErrCastAnyAtomic},
		{"duplicate parameter", "function($a, $a) { $a }", nil, types.ErrDuplicateParameter},
		{"value comparison on many", "(1, 2) eq 1", nil, types.ErrInvalidType},
		{"treat mismatch", "1 treat as xs:string", nil, types.ErrTreatMismatch},
		{"context absent", "title", nil, types.ErrContextAbsent},
		{"context not a node", "1 ! title", nil, types.ErrContextNotNode},
		{"step on atomic", "(1, 2)/title", nil, types.ErrStepOnNonNode},
		{"mixed path result", "/catalog/(group, 1)", doc, types.ErrMixedPathResult},
		{"arity mismatch", "function($x) { $x }(1, 2)", nil, types.ErrFunctionArityMatch},
		{"array out of bounds", "[1, 2](3)", nil, types.ErrArrayIndexOutOfBounds},
		{"duplicate map key", "map { 'a': 1, 'a': 2 }", nil, types.ErrDuplicateMapKey},
		{"division by zero", "1 idiv 0", nil, types.ErrDivisionByZero},
		{"invalid cast value", `"abc" cast as xs:integer`, nil, types.ErrInvalidCastValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evalString(t, ev, tt.expr, tt.focus)
			requireCode(t, err, tt.code)

			var coded *types.Error
			require.True(t, errors.As(err, &coded))
			assert.Equal(t, tt.expr, coded.Expression)
		})
	}
}

func TestErrorStack(t *testing.T) {
	ev := New()
	_, err := evalString(t, ev, `1 + (2 * ("a" + 1))`, nil)
	require.Error(t, err)

	var coded *types.Error
	require.True(t, errors.As(err, &coded))
	assert.Equal(t, []string{
		`Arithmetic '1 + (2 * ("a" + 1))'`,
		`Arithmetic '2 * ("a" + 1)'`,
		`Arithmetic '"a" + 1'`,
	}, coded.Stack)
	assert.Contains(t, coded.Detail(), "\n  at Arithmetic '1 + (2 * (\"a\" + 1))'")
}

func TestRecursionLimit(t *testing.T) {
	ev := New(WithMaxDepth(50))
	_, err := evalString(t, ev,
		"let $f := function($g, $n) { if ($n eq 0) then 0 else $g($g, $n - 1) } return $f($f, 1000)", nil)
	requireCode(t, err, types.ErrRecursionLimit)

	out, err := evalString(t, ev,
		"let $f := function($g, $n) { if ($n eq 0) then 0 else $g($g, $n - 1) } return $f($f, 2)", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, values(t, out))

	// A built-in re-entered with the same arguments through a callback.
	_, err = evalString(t, ev,
		"let $f := function($g) { for-each($g, $g) } return $f($f)", nil)
	requireCode(t, err, types.ErrRecursionLimit)
}

func TestCancellation(t *testing.T) {
	ev := New()
	expr, err := ev.Compile("sum(1 to 10)")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ev.Eval(ctx, expr, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func counter(name string, props functions.Property, calls *atomic.Int32) *functions.Definition {
	return &functions.Definition{
		Name:       types.NewQName("urn:test", name),
		Params:     []functions.Param{{Name: "n", Type: item.One(item.IntegerType)}},
		Result:     item.One(item.IntegerType),
		Properties: props,
		Impl: func(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
			calls.Add(1)
			return args[0], nil
		},
	}
}

func TestMemoization(t *testing.T) {
	var pure, impure atomic.Int32
	sc, err := NewStaticContextBuilder().Namespace("t", "urn:test").Build()
	require.NoError(t, err)
	ev := New(
		WithStaticContext(sc),
		WithFunctions(
			counter("pure", functions.Deterministic, &pure),
			counter("impure", 0, &impure),
		),
	)

	out, err := evalString(t, ev, "(t:pure(1), t:pure(1), t:pure(2))", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "1", "2"}, values(t, out))
	assert.Equal(t, int32(2), pure.Load())

	out, err = evalString(t, ev, "(t:impure(1), t:impure(1))", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "1"}, values(t, out))
	assert.Equal(t, int32(2), impure.Load())

	// A new evaluation starts with an empty cache.
	_, err = evalString(t, ev, "t:pure(1)", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), pure.Load())
}

// pair returns a fresh two-item sequence on every invocation, after delay.
func pair(delay time.Duration, calls *atomic.Int32) *functions.Definition {
	return &functions.Definition{
		Name:       types.NewQName("urn:test", "pair"),
		Params:     []functions.Param{{Name: "n", Type: item.One(item.IntegerType)}},
		Result:     item.Many(item.AnyAtomicType),
		Properties: functions.Deterministic,
		Impl: func(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
			calls.Add(1)
			time.Sleep(delay)
			return item.FromSlice([]item.Item{args[0].At(0), item.NewString("x")}), nil
		},
	}
}

func sameSequence(a, b item.Sequence) bool {
	return a.Len() > 0 && a.Len() == b.Len() && &a.Items()[0] == &b.Items()[0]
}

func TestMemoizedResultIdentity(t *testing.T) {
	ctx := context.Background()
	args := []item.Sequence{item.Of(item.NewInteger(7))}

	t.Run("sequential", func(t *testing.T) {
		var calls atomic.Int32
		def := pair(0, &calls)
		dc := New().NewDynamicContext()

		first, err := dc.callDefinition(ctx, def, args, Focus{})
		require.NoError(t, err)
		second, err := dc.callDefinition(ctx, def, args, Focus{})
		require.NoError(t, err)

		assert.Equal(t, int32(1), calls.Load())
		assert.True(t, sameSequence(first, second), "memoized call returned a different sequence")
		assert.Equal(t, []string{"7", "x"}, values(t, second))
	})

	t.Run("concurrent", func(t *testing.T) {
		var calls atomic.Int32
		def := pair(50*time.Millisecond, &calls)
		dc := New().NewDynamicContext()

		const n = 8
		results := make([]item.Sequence, n)
		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				out, err := dc.fork().callDefinition(ctx, def, args, Focus{})
				assert.NoError(t, err)
				results[i] = out
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		for i := 1; i < n; i++ {
			assert.True(t, sameSequence(results[0], results[i]), "caller %d got a different sequence", i)
		}
	})
}

func TestMemoizationAcrossConcurrentArguments(t *testing.T) {
	var calls atomic.Int32
	sc, err := NewStaticContextBuilder().Namespace("t", "urn:test").Build()
	require.NoError(t, err)
	ev := New(
		WithStaticContext(sc),
		WithConcurrency(true),
		WithFunctions(pair(50*time.Millisecond, &calls)),
	)

	out, err := evalString(t, ev, "string-join((t:pair(1), t:pair(1)), '-')", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1-x-1-x"}, values(t, out))

	out, err = evalString(t, ev, "concat(string-join(t:pair(2)), string-join(t:pair(2)))", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"2x2x"}, values(t, out))
	assert.Equal(t, int32(2), calls.Load())
}

func TestCompileIsDeterministic(t *testing.T) {
	doc := loadCatalog(t)
	sources := []string{
		"//control[@id = 'ac-1']/title",
		"for $g in /catalog/group return count($g/control)",
		"let $f := function($x as xs:integer) as xs:integer { $x * 2 } return $f(21)",
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			a, err := Compile(src, DefaultStaticContext())
			require.NoError(t, err)
			b, err := Compile(src, DefaultStaticContext())
			require.NoError(t, err)

			assert.NotSame(t, a, b)
			assert.Equal(t, a.StaticType().String(), b.StaticType().String())
			assert.Equal(t, a.Tree(), b.Tree())

			ctx := context.Background()
			ra, err := a.Evaluate(ctx, doc)
			require.NoError(t, err)
			rb, err := b.Evaluate(ctx, doc)
			require.NoError(t, err)
			assert.Equal(t, values(t, ra), values(t, rb))
		})
	}
}

func TestBindings(t *testing.T) {
	ev := New()
	expr, err := ev.Compile("$a + $b")
	require.NoError(t, err)

	out, err := ev.EvalWithBindings(context.Background(), expr, nil, map[string]item.Sequence{
		"a": item.Of(item.NewInteger(40)),
		"b": item.Of(item.NewInteger(2)),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, values(t, out))

	_, err = ev.EvalWithBindings(context.Background(), expr, nil, map[string]item.Sequence{
		"nope:a": item.Empty(),
	})
	requireCode(t, err, types.ErrPrefixNotExpandable)
}

func TestEvalAs(t *testing.T) {
	doc := loadCatalog(t)
	ev := New()
	tests := []struct {
		expr string
		rt   ResultType
		want any
	}{
		{"//control[1]/title", ResultString, "Policy and Procedures"},
		{"()", ResultString, ""},
		{"count(//control) gt 2", ResultBoolean, true},
		{"//nothing", ResultBoolean, false},
		{"()", ResultItem, nil},
	}
	for _, tt := range tests {
		t.Run(tt.expr+" as "+tt.rt.String(), func(t *testing.T) {
			expr, err := ev.Compile(tt.expr)
			require.NoError(t, err)
			got, err := ev.EvalAs(context.Background(), expr, doc, tt.rt)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("number", func(t *testing.T) {
		expr, err := ev.Compile("/catalog/metadata/version")
		require.NoError(t, err)
		got, err := ev.EvalAs(context.Background(), expr, doc, ResultNumber)
		require.NoError(t, err)
		n, ok := got.(item.NumericItem)
		require.True(t, ok)
		assert.Equal(t, "1", n.StringValue())
	})

	t.Run("item requires a singleton", func(t *testing.T) {
		expr, err := ev.Compile("(1, 2)")
		require.NoError(t, err)
		_, err = ev.EvalAs(context.Background(), expr, nil, ResultItem)
		require.Error(t, err)
	})

	rt, err := ParseResultType("boolean")
	require.NoError(t, err)
	assert.Equal(t, ResultBoolean, rt)
	_, err = ParseResultType("float")
	assert.Error(t, err)
}

func TestDisablePredicateEvaluation(t *testing.T) {
	doc := loadCatalog(t)
	ev := New()
	expr, err := ev.Compile("//control[@id = 'ac-2']")
	require.NoError(t, err)

	dc := ev.NewDynamicContext()
	dc.DisablePredicateEvaluation()
	out, err := ev.EvalWithContext(context.Background(), expr, doc, dc)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())

	out, err = evalString(t, New(WithPredicateEvaluation(false)), "//control[@id = 'ac-2']", doc)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())
}

type countingLoader struct {
	calls atomic.Int32
	doc   item.NodeItem
}

func (l *countingLoader) LoadDocument(_ context.Context, _ *url.URL) (item.NodeItem, error) {
	l.calls.Add(1)
	return l.doc, nil
}

func TestDocumentLoading(t *testing.T) {
	loader := &countingLoader{doc: loadCatalog(t)}
	sc, err := NewStaticContextBuilder().BaseURI("https://example.com/catalogs/").Build()
	require.NoError(t, err)
	ev := New(WithStaticContext(sc), WithDocumentLoader(loader))

	out, err := evalString(t, ev, "(doc('catalog.xml')//group/@id, doc('catalog.xml')/catalog/@uuid)", nil)
	require.NoError(t, err)
	assert.Len(t, values(t, out), 3)
	assert.Equal(t, int32(1), loader.calls.Load())

	t.Run("file loader", func(t *testing.T) {
		abs, err := filepath.Abs(filepath.Join("testdata", "catalog.xml"))
		require.NoError(t, err)
		out, err := evalString(t, New(), "count(doc('file://"+filepath.ToSlash(abs)+"')//control)", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"3"}, values(t, out))
	})

	t.Run("missing document", func(t *testing.T) {
		_, err := evalString(t, New(), "doc('file:///does/not/exist.xml')", nil)
		requireCode(t, err, types.ErrRetrievingResource)
	})
}

func TestCurrentDateTimeIsStable(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ev := New(WithClock(func() time.Time { return fixed }), WithTimezone(time.UTC))

	out, err := evalString(t, ev, "current-date() eq current-date()", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"true"}, values(t, out))

	out, err = evalString(t, ev, "string(current-date())", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-01Z"}, values(t, out))
}

func TestCompileCaching(t *testing.T) {
	ev := New(WithCaching(true), WithCacheSize(2))
	a, err := ev.Compile("1 + 1")
	require.NoError(t, err)
	b, err := ev.Compile("1 + 1")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, ev.Cache().Len())

	_, err = ev.Compile("1 +")
	require.Error(t, err)
	assert.Equal(t, 1, ev.Cache().Len(), "compile errors are not cached")

	assert.Nil(t, New().Cache())
}

func TestConcurrentArguments(t *testing.T) {
	doc := loadCatalog(t)
	for _, concurrent := range []bool{true, false} {
		ev := New(WithConcurrency(concurrent))
		out, err := evalString(t, ev, "concat(count(//control), '-', //group[1]/@id, '-', sum(1 to 4))", doc)
		require.NoError(t, err)
		assert.Equal(t, []string{"3-ac-10"}, values(t, out))
	}
}

func TestStaticContextBuilderErrors(t *testing.T) {
	_, err := NewStaticContextBuilder().Namespace("xml", "urn:x").Build()
	requireCode(t, err, types.ErrNamespaceMisuse)

	_, err = NewStaticContextBuilder().Namespace("x", types.NSXML).Build()
	requireCode(t, err, types.ErrNamespaceMisuse)

	_, err = NewStaticContextBuilder().BaseURI("://bad").Build()
	requireCode(t, err, types.ErrInvalidURIArgument)
}
