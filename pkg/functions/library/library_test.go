package library

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/nodes"
	"github.com/sandrolain/gometapath/pkg/types"
)

// fakeContext is a minimal dynamic context for calling functions directly.
type fakeContext struct {
	base *url.URL
	now  time.Time
	docs map[string]item.NodeItem

	position, size int
}

func newFakeContext() *fakeContext {
	base, _ := url.Parse("http://example.com/catalogs/")
	return &fakeContext{
		base: base,
		now:  time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		docs: map[string]item.NodeItem{},
	}
}

func (f *fakeContext) StaticBaseURI() *url.URL          { return f.base }
func (f *fakeContext) CurrentDateTime() time.Time       { return f.now }
func (f *fakeContext) ImplicitTimezone() *time.Location { return time.FixedZone("", 2*3600) }
func (f *fakeContext) Logger() *slog.Logger             { return slog.Default() }
func (f *fakeContext) ContextPosition() (int, int)      { return f.position, f.size }

func (f *fakeContext) LoadDocument(_ context.Context, uri string) (item.NodeItem, error) {
	if d, ok := f.docs[uri]; ok {
		return d, nil
	}
	return nil, types.Errorf(types.ErrRetrievingResource, "cannot load '%s'", uri)
}

func (f *fakeContext) Call(ctx context.Context, fn item.FunctionItem, args []item.Sequence) (item.Sequence, error) {
	d, ok := fn.(*functions.Definition)
	if !ok {
		return nil, errors.New("fake context can only call definitions")
	}
	return d.Invoke(ctx, f, args, nil)
}

func (f *fakeContext) Evaluate(context.Context, string, item.Item) (item.Sequence, error) {
	return nil, errors.New("not supported")
}

func (f *fakeContext) LookupFunction(name string, arity int) (item.FunctionItem, error) {
	d, ok := Default().Lookup(types.NewQName(types.NSMetapathFunctions, name), arity)
	if !ok {
		return nil, nil
	}
	return d, nil
}

func call(t *testing.T, ns, name string, args ...item.Sequence) (item.Sequence, error) {
	t.Helper()
	return callWithFocus(t, ns, name, nil, args...)
}

func callWithFocus(t *testing.T, ns, name string, focus item.Item, args ...item.Sequence) (item.Sequence, error) {
	t.Helper()
	d, ok := Default().Lookup(types.NewQName(ns, name), len(args))
	require.True(t, ok, "function %s#%d not registered", name, len(args))
	return d.Invoke(context.Background(), newFakeContext(), args, focus)
}

func fn(t *testing.T, name string, args ...item.Sequence) item.Sequence {
	t.Helper()
	out, err := call(t, types.NSMetapathFunctions, name, args...)
	require.NoError(t, err)
	return out
}

func str(s string) item.Sequence { return item.Of(item.NewString(s)) }

func integer(i int64) item.Sequence { return item.Of(item.NewInteger(i)) }

func dec(t *testing.T, s string) item.Sequence {
	t.Helper()
	d, _, err := apd.NewFromString(s)
	require.NoError(t, err)
	return item.Of(item.NewDecimal(d))
}

func ints(values ...int64) item.Sequence {
	out := make([]item.Item, len(values))
	for i, v := range values {
		out[i] = item.NewInteger(v)
	}
	return item.FromSlice(out)
}

func strs(values ...string) item.Sequence {
	return stringItems(values)
}

// texts renders each item's string value.
func texts(t *testing.T, s item.Sequence) []string {
	t.Helper()
	out := make([]string, 0, s.Len())
	for it := range s.All() {
		v, err := item.StringValue(it)
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func single(t *testing.T, s item.Sequence) string {
	t.Helper()
	require.Equal(t, 1, s.Len(), "expected a single item, got %v", s)
	return texts(t, s)[0]
}

func requireCode(t *testing.T, err error, code types.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	c, ok := types.CodeOf(err)
	require.True(t, ok, "not a coded error: %v", err)
	assert.Equal(t, code, c, "error: %v", err)
}

func TestRegistryCatalog(t *testing.T) {
	r := Default()
	for _, name := range []types.QName{
		types.NewQName(types.NSMetapathFunctions, "count"),
		types.NewQName(types.NSMath, "sqrt"),
		types.NewQName(types.NSMap, "merge"),
		types.NewQName(types.NSArray, "flatten"),
		types.NewQName(types.NSMetapath, "recurse-depth"),
		types.NewQName(types.NSXMLSchema, "date"),
		types.NewQName(types.NSXMLSchema, "integer"),
	} {
		assert.True(t, r.Has(name), name.String())
	}
	assert.False(t, r.Has(types.NewQName(types.NSXMLSchema, "anyAtomicType")))

	concat, ok := r.Lookup(types.NewQName(types.NSMetapathFunctions, "concat"), 5)
	require.True(t, ok)
	assert.True(t, concat.Variadic)

	for _, d := range r.All() {
		assert.NotNil(t, d.Impl, d.Signature())
	}
}

func TestBooleanFunctions(t *testing.T) {
	assert.Equal(t, "true", single(t, fn(t, "true")))
	assert.Equal(t, "false", single(t, fn(t, "not", str("x"))))
	assert.Equal(t, "false", single(t, fn(t, "boolean", item.Empty())))
	assert.Equal(t, "true", single(t, fn(t, "exists", ints(1, 2))))
	assert.Equal(t, "true", single(t, fn(t, "empty", item.Empty())))

	_, err := call(t, types.NSMetapathFunctions, "boolean", ints(1, 2))
	requireCode(t, err, types.ErrInvalidArgumentType)
}

func TestNumericFunctions(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		args []item.Sequence
		want string
	}{
		{"abs integer", "abs", []item.Sequence{integer(-3)}, "3"},
		{"abs decimal", "abs", []item.Sequence{dec(t, "-2.5")}, "2.5"},
		{"ceiling", "ceiling", []item.Sequence{dec(t, "1.2")}, "2"},
		{"floor negative", "floor", []item.Sequence{dec(t, "-1.2")}, "-2"},
		{"round half up", "round", []item.Sequence{dec(t, "2.5")}, "3"},
		{"round negative half", "round", []item.Sequence{dec(t, "-2.5")}, "-2"},
		{"round precision", "round", []item.Sequence{dec(t, "3.14159"), integer(2)}, "3.14"},
		{"round negative precision", "round", []item.Sequence{integer(1250), integer(-2)}, "1300"},
		{"count", "count", []item.Sequence{ints(1, 2, 3)}, "3"},
		{"sum", "sum", []item.Sequence{ints(1, 2, 3)}, "6"},
		{"sum empty", "sum", []item.Sequence{item.Empty()}, "0"},
		{"sum mixed", "sum", []item.Sequence{item.Concat(integer(1), dec(t, "0.5"))}, "1.5"},
		{"avg", "avg", []item.Sequence{ints(1, 2)}, "1.5"},
		{"min", "min", []item.Sequence{ints(3, 1, 2)}, "1"},
		{"max strings", "max", []item.Sequence{strs("b", "c", "a")}, "c"},
		{"max untyped", "max", []item.Sequence{item.Of(item.NewUntypedAtomic("10"), item.NewUntypedAtomic("9"))}, "10"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, single(t, fn(t, tc.fn, tc.args...)))
		})
	}

	assert.True(t, fn(t, "abs", item.Empty()).IsEmpty())
	assert.True(t, fn(t, "avg", item.Empty()).IsEmpty())
	assert.Equal(t, "x", single(t, fn(t, "sum", item.Empty(), str("x"))))

	abs := fn(t, "abs", integer(-3)).At(0).(item.NumericItem)
	assert.True(t, abs.IsInteger(), "abs keeps integers")

	_, err := call(t, types.NSMetapathFunctions, "max", item.Of(item.NewInteger(1), item.NewString("a")))
	requireCode(t, err, types.ErrInvalidArgumentType)
	_, err = call(t, types.NSMetapathFunctions, "sum", strs("a"))
	requireCode(t, err, types.ErrInvalidArgumentType)
}

func TestStringFunctions(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		args []item.Sequence
		want string
	}{
		{"concat", "concat", []item.Sequence{str("a"), item.Empty(), integer(1), str("b")}, "a1b"},
		{"string-join", "string-join", []item.Sequence{strs("a", "b", "c"), str("-")}, "a-b-c"},
		{"string-join no separator", "string-join", []item.Sequence{strs("a", "b")}, "ab"},
		{"substring", "substring", []item.Sequence{str("motor car"), integer(6)}, " car"},
		{"substring length", "substring", []item.Sequence{str("metadata"), integer(4), integer(3)}, "ada"},
		{"substring rounding", "substring", []item.Sequence{str("12345"), dec(t, "1.5"), dec(t, "2.6")}, "234"},
		{"substring before start", "substring", []item.Sequence{str("12345"), integer(-3), integer(5)}, "1"},
		{"substring empty", "substring", []item.Sequence{item.Empty(), integer(1)}, ""},
		{"string-length", "string-length", []item.Sequence{str("h\u00e9llo")}, "5"},
		{"normalize-space", "normalize-space", []item.Sequence{str("  a \t b\n c  ")}, "a b c"},
		{"upper-case", "upper-case", []item.Sequence{str("abCd0")}, "ABCD0"},
		{"lower-case", "lower-case", []item.Sequence{str("ABc!D")}, "abc!d"},
		{"normalize-unicode", "normalize-unicode", []item.Sequence{str("e\u0301")}, "\u00e9"},
		{"normalize-unicode NFD", "normalize-unicode", []item.Sequence{str("\u00e9"), str("nfd")}, "e\u0301"},
		{"translate", "translate", []item.Sequence{str("bar"), str("abc"), str("ABC")}, "BAr"},
		{"translate remove", "translate", []item.Sequence{str("--aaa--"), str("abc-"), str("ABC")}, "AAA"},
		{"compare", "compare", []item.Sequence{str("abc"), str("abd")}, "-1"},
		{"contains", "contains", []item.Sequence{str("tattoo"), str("t")}, "true"},
		{"contains empty", "contains", []item.Sequence{item.Empty(), str("")}, "true"},
		{"starts-with", "starts-with", []item.Sequence{str("tattoo"), str("tat")}, "true"},
		{"ends-with", "ends-with", []item.Sequence{str("tattoo"), str("tat")}, "false"},
		{"substring-before", "substring-before", []item.Sequence{str("tattoo"), str("attoo")}, "t"},
		{"substring-before missing", "substring-before", []item.Sequence{str("tattoo"), str("x")}, ""},
		{"substring-after", "substring-after", []item.Sequence{str("tattoo"), str("tat")}, "too"},
		{"string of number", "string", []item.Sequence{dec(t, "1.50")}, "1.5"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, single(t, fn(t, tc.fn, tc.args...)))
		})
	}

	assert.True(t, fn(t, "compare", item.Empty(), str("a")).IsEmpty())

	_, err := call(t, types.NSMetapathFunctions, "normalize-unicode", str("x"), str("FULLY-NORMALIZED"))
	requireCode(t, err, types.ErrUnsupportedNormalize)
}

func TestFocusFunctions(t *testing.T) {
	doc := nodes.NewDocument("file:///catalog.xml")
	root := doc.AddAssembly(types.NewQName("", "catalog"))
	title := root.AddField(types.NewQName("", "title"), " Sample  Catalog ")

	out, err := callWithFocus(t, types.NSMetapathFunctions, "string-length", title)
	require.NoError(t, err)
	assert.Equal(t, "17", single(t, out))

	out, err = callWithFocus(t, types.NSMetapathFunctions, "normalize-space", title)
	require.NoError(t, err)
	assert.Equal(t, "Sample Catalog", single(t, out))

	out, err = callWithFocus(t, types.NSMetapathFunctions, "data", title)
	require.NoError(t, err)
	assert.Equal(t, item.UntypedAtomicType, out.At(0).(item.AtomicItem).Type())

	_, err = callWithFocus(t, types.NSMetapathFunctions, "string", nil)
	requireCode(t, err, types.ErrContextAbsent)

	_, err = callWithFocus(t, types.NSMetapathFunctions, "name", item.NewString("x"))
	requireCode(t, err, types.ErrContextNotNode)

	fc := newFakeContext()
	fc.position, fc.size = 2, 5
	position, _ := Default().Lookup(types.NewQName(types.NSMetapathFunctions, "position"), 0)
	last, _ := Default().Lookup(types.NewQName(types.NSMetapathFunctions, "last"), 0)
	out, err = position.Invoke(context.Background(), fc, nil, title)
	require.NoError(t, err)
	assert.Equal(t, "2", single(t, out))
	out, err = last.Invoke(context.Background(), fc, nil, title)
	require.NoError(t, err)
	assert.Equal(t, "5", single(t, out))

	_, err = position.Invoke(context.Background(), newFakeContext(), nil, nil)
	requireCode(t, err, types.ErrContextAbsent)
}

func TestRegexFunctions(t *testing.T) {
	assert.Equal(t, "true", single(t, fn(t, "matches", str("abracadabra"), str("bra"))))
	assert.Equal(t, "true", single(t, fn(t, "matches", str("abracadabra"), str("^a.*a$"))))
	assert.Equal(t, "false", single(t, fn(t, "matches", str("abracadabra"), str("^bra"))))
	assert.Equal(t, "true", single(t, fn(t, "matches", str("ABC"), str("abc"), str("i"))))
	assert.Equal(t, "true", single(t, fn(t, "matches", str("a.c"), str("."), str("q"))))
	assert.Equal(t, "false", single(t, fn(t, "matches", str("abc"), str("a.c"), str("q"))))
	assert.Equal(t, "true", single(t, fn(t, "matches", str("helloworld"), str("hello world"), str("x"))))

	assert.Equal(t, "a*cada*", single(t, fn(t, "replace", str("abracadabra"), str("bra"), str("*"))))
	assert.Equal(t, "abbraccaddabbra", single(t, fn(t, "replace", str("abracadabra"), str("a(.)"), str("a$1$1"))))
	assert.Equal(t, "$a", single(t, fn(t, "replace", str("a"), str("a"), str(`\$a`))))

	assert.Equal(t, []string{"The", "cat", "sat"}, texts(t, fn(t, "tokenize", str(" The cat  sat "))))
	assert.Equal(t, []string{"1", "15", "24", "50"}, texts(t, fn(t, "tokenize", str("1, 15, 24, 50"), str(",\\s*"))))
	assert.Equal(t, []string{"", "a", ""}, texts(t, fn(t, "tokenize", str(",a,"), str(","))))
	assert.True(t, fn(t, "tokenize", str(""), str(",")).IsEmpty())

	_, err := call(t, types.NSMetapathFunctions, "matches", str("a"), str("a"), str("z"))
	requireCode(t, err, types.ErrInvalidRegexFlags)
	_, err = call(t, types.NSMetapathFunctions, "matches", str("a"), str("("))
	requireCode(t, err, types.ErrInvalidRegex)
	_, err = call(t, types.NSMetapathFunctions, "replace", str("abc"), str("x*"), str("-"))
	requireCode(t, err, types.ErrRegexMatchesEmpty)
}

func TestSequenceFunctions(t *testing.T) {
	seq := ints(1, 2, 3, 4, 5)
	assert.Equal(t, []string{"1"}, texts(t, fn(t, "head", seq)))
	assert.Equal(t, []string{"2", "3", "4", "5"}, texts(t, fn(t, "tail", seq)))
	assert.Equal(t, []string{"5", "4", "3", "2", "1"}, texts(t, fn(t, "reverse", seq)))
	assert.Equal(t, []string{"3", "4", "5"}, texts(t, fn(t, "subsequence", seq, integer(3))))
	assert.Equal(t, []string{"2", "3"}, texts(t, fn(t, "subsequence", seq, dec(t, "1.5"), integer(2))))
	assert.Equal(t, []string{"1", "2"}, texts(t, fn(t, "subsequence", seq, integer(0), integer(3))))
	assert.True(t, fn(t, "head", item.Empty()).IsEmpty())
	assert.True(t, fn(t, "tail", integer(1)).IsEmpty())

	distinct := fn(t, "distinct-values", item.Of(item.NewInteger(1), item.NewDecimal(apd.New(10, -1)), item.NewString("1"), item.NewUntypedAtomic("1")))
	assert.Equal(t, []string{"1", "1"}, texts(t, distinct))
	assert.Equal(t, item.StringType, distinct.At(1).(item.AtomicItem).Type())

	assert.Equal(t, []string{"2", "4"}, texts(t, fn(t, "index-of", ints(10, 20, 30, 20), integer(20))))
	assert.True(t, fn(t, "index-of", strs("a"), integer(1)).IsEmpty())

	assert.Equal(t, []string{"1", "9", "2"}, texts(t, fn(t, "insert-before", ints(1, 2), integer(2), integer(9))))
	assert.Equal(t, []string{"1", "2", "9"}, texts(t, fn(t, "insert-before", ints(1, 2), integer(7), integer(9))))
	assert.Equal(t, []string{"1", "3"}, texts(t, fn(t, "remove", ints(1, 2, 3), integer(2))))
	assert.Equal(t, []string{"1", "2"}, texts(t, fn(t, "remove", ints(1, 2), integer(5))))

	assert.Equal(t, "true", single(t, fn(t, "deep-equal", ints(1, 2), ints(1, 2))))
	assert.Equal(t, "false", single(t, fn(t, "deep-equal", ints(1, 2), ints(2, 1))))

	tests := []struct {
		fn   string
		arg  item.Sequence
		code types.ErrorCode
	}{
		{"exactly-one", item.Empty(), types.ErrExactlyOne},
		{"exactly-one", ints(1, 2), types.ErrExactlyOne},
		{"zero-or-one", ints(1, 2), types.ErrZeroOrOne},
		{"one-or-more", item.Empty(), types.ErrOneOrMore},
	}
	for _, tc := range tests {
		t.Run(tc.fn, func(t *testing.T) {
			_, err := call(t, types.NSMetapathFunctions, tc.fn, tc.arg)
			requireCode(t, err, tc.code)
		})
	}
	assert.Equal(t, []string{"1"}, texts(t, fn(t, "exactly-one", integer(1))))
}

func TestNodeFunctions(t *testing.T) {
	doc := nodes.NewDocument("file:///catalog.xml")
	catalog := doc.AddAssembly(types.NewQName("urn:catalog", "catalog"))
	g1 := catalog.AddAssembly(types.NewQName("urn:catalog", "group"))
	g2 := catalog.AddAssembly(types.NewQName("urn:catalog", "group"))
	id := g2.AddFlag(types.NewQName("", "id"), "au")
	title := g2.AddField(types.NewQName("urn:catalog", "title"), "Audit")

	assert.Equal(t, "group", single(t, fn(t, "name", item.Of(g1))))
	assert.Equal(t, "", single(t, fn(t, "local-name", item.Empty())))
	assert.Equal(t, "urn:catalog", single(t, fn(t, "namespace-uri", item.Of(title))))
	assert.Equal(t, doc, fn(t, "root", item.Of(id)).At(0))
	assert.Equal(t, "/Q{urn:catalog}catalog[1]/Q{urn:catalog}group[2]/@id", single(t, fn(t, "path", item.Of(id))))
	assert.Equal(t, "/", single(t, fn(t, "path", item.Of(doc))))
	assert.Equal(t, "true", single(t, fn(t, "has-children", item.Of(g2))))
	assert.Equal(t, "false", single(t, fn(t, "has-children", item.Of(g1))))

	all := item.Of(title, catalog, g2, g1)
	assert.Equal(t, []item.Item{g1, title}, fn(t, "innermost", all).Items())
	assert.Equal(t, []item.Item{catalog}, fn(t, "outermost", all).Items())

	unqualified := nodes.NewDocument("").AddAssembly(types.NewQName("", "a"))
	assert.Equal(t, "/a[1]", single(t, fn(t, "path", item.Of(unqualified))))
}

func TestDocumentFunctions(t *testing.T) {
	fc := newFakeContext()
	doc := nodes.NewDocument("http://example.com/catalogs/a.json")
	fc.docs["a.json"] = doc

	invoke := func(name string, args ...item.Sequence) (item.Sequence, error) {
		d, ok := Default().Lookup(types.NewQName(types.NSMetapathFunctions, name), len(args))
		require.True(t, ok)
		return d.Invoke(context.Background(), fc, args, nil)
	}

	out, err := invoke("doc", str("a.json"))
	require.NoError(t, err)
	assert.Equal(t, doc, out.At(0))

	_, err = invoke("doc", str("missing.json"))
	requireCode(t, err, types.ErrRetrievingResource)

	out, err = invoke("doc-available", str("missing.json"))
	require.NoError(t, err)
	assert.Equal(t, "false", single(t, out))

	assert.Equal(t, "http://example.com/catalogs/a.json", single(t, fn(t, "document-uri", item.Of(doc))))
	assert.Equal(t, "http://example.com/catalogs/", single(t, fn(t, "static-base-uri")))
	assert.Equal(t, "http://example.com/catalogs/b.xml", single(t, fn(t, "resolve-uri", str("b.xml"))))
	assert.Equal(t, "http://other.org/x/y", single(t, fn(t, "resolve-uri", str("y"), str("http://other.org/x/z"))))
	assert.Equal(t, "urn:abs", single(t, fn(t, "resolve-uri", str("urn:abs"), str("http://other.org/"))))

	_, err = call(t, types.NSMetapathFunctions, "resolve-uri", str("y"), str("relative/"))
	requireCode(t, err, types.ErrNoBaseURI)
}

func TestDateTimeFunctions(t *testing.T) {
	assert.Equal(t, "2024-03-15T12:30:00+02:00", single(t, fn(t, "current-dateTime")))
	assert.Equal(t, "2024-03-15+02:00", single(t, fn(t, "current-date")))
	assert.Equal(t, "PT2H", single(t, fn(t, "implicit-timezone")))
}

func TestHigherOrderFunctions(t *testing.T) {
	abs, _ := Default().Lookup(types.NewQName(types.NSMetapathFunctions, "abs"), 1)
	exists, _ := Default().Lookup(types.NewQName(types.NSMetapathFunctions, "exists"), 1)
	concat, _ := Default().Lookup(types.NewQName(types.NSMetapathFunctions, "concat"), 2)

	assert.Equal(t, []string{"1", "2"}, texts(t, fn(t, "for-each", ints(-1, 2), item.Of(abs))))
	assert.Equal(t, []string{"1", "2"}, texts(t, fn(t, "filter", ints(1, 2), item.Of(exists))))
	assert.Equal(t, "abc", single(t, fn(t, "fold-left", strs("b", "c"), str("a"), item.Of(concat))))
	assert.Equal(t, "bca", single(t, fn(t, "fold-right", strs("b", "c"), str("a"), item.Of(concat))))
	assert.Equal(t, "xy", single(t, fn(t, "apply", item.Of(concat), item.Of(item.NewArray(str("x"), str("y"))))))

	assert.Equal(t, "1", single(t, fn(t, "function-arity", item.Of(abs))))
	assert.Equal(t, "Q{"+types.NSMetapathFunctions+"}abs", single(t, fn(t, "function-name", item.Of(abs))))
	assert.Equal(t, abs, fn(t, "function-lookup", str("abs"), integer(1)).At(0))
	assert.True(t, fn(t, "function-lookup", str("abs"), integer(7)).IsEmpty())

	_, err := call(t, types.NSMetapathFunctions, "filter", ints(1), item.Of(abs))
	requireCode(t, err, types.ErrInvalidType)
}

func TestMathFunctions(t *testing.T) {
	math := func(name string, args ...item.Sequence) string {
		out, err := call(t, types.NSMath, name, args...)
		require.NoError(t, err)
		return single(t, out)
	}
	assert.Equal(t, "3", math("sqrt", integer(9)))
	assert.Equal(t, "1024", math("pow", integer(2), integer(10)))
	assert.Equal(t, "2", math("log10", integer(100)))
	assert.Equal(t, "1000", math("exp10", integer(3)))
	assert.Equal(t, "0", math("log", integer(1)))
	assert.Contains(t, math("pi"), "3.14159265358979")

	out, err := call(t, types.NSMath, "sqrt", integer(16))
	require.NoError(t, err)
	assert.Equal(t, item.DoubleType, out.At(0).(item.AtomicItem).Type())

	_, err = call(t, types.NSMath, "sqrt", integer(-1))
	requireCode(t, err, types.ErrNumericOverflow)
}

func TestMapFunctions(t *testing.T) {
	m1, err := item.NewMap(
		item.MapEntry{Key: item.NewString("a"), Value: integer(1)},
		item.MapEntry{Key: item.NewString("b"), Value: integer(2)},
	)
	require.NoError(t, err)
	m2, err := item.NewMap(item.MapEntry{Key: item.NewString("a"), Value: integer(3)})
	require.NoError(t, err)

	mapFn := func(name string, args ...item.Sequence) (item.Sequence, error) {
		return call(t, types.NSMap, name, args...)
	}
	get := func(m item.Sequence, key string) []string {
		v, ok := m.At(0).(*item.MapItem).Get(item.NewString(key))
		require.True(t, ok, key)
		return texts(t, v)
	}

	merged, err := mapFn("merge", item.Of(m1, m2))
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, get(merged, "a"))

	opts := func(policy string) item.Sequence {
		m, err := item.NewMap(item.MapEntry{Key: item.NewString("duplicates"), Value: str(policy)})
		require.NoError(t, err)
		return item.Of(m)
	}
	merged, err = mapFn("merge", item.Of(m1, m2), opts("use-last"))
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, get(merged, "a"))

	merged, err = mapFn("merge", item.Of(m1, m2), opts("combine"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, get(merged, "a"))

	_, err = mapFn("merge", item.Of(m1, m2), opts("reject"))
	requireCode(t, err, types.ErrDuplicateMapKey)

	size, err := mapFn("size", item.Of(m1))
	require.NoError(t, err)
	assert.Equal(t, "2", single(t, size))

	keys, err := mapFn("keys", item.Of(m1))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, texts(t, keys))

	has, err := mapFn("contains", item.Of(m1), str("b"))
	require.NoError(t, err)
	assert.Equal(t, "true", single(t, has))

	v, err := mapFn("get", item.Of(m1), str("z"))
	require.NoError(t, err)
	assert.True(t, v.IsEmpty())

	put, err := mapFn("put", item.Of(m1), str("c"), integer(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, get(put, "c"))
	assert.False(t, m1.Contains(item.NewString("c")), "map:put copies")

	removed, err := mapFn("remove", item.Of(m1), strs("a", "z"))
	require.NoError(t, err)
	assert.Equal(t, 1, removed.At(0).(*item.MapItem).Size())

	entry, err := mapFn("entry", str("k"), integer(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, get(entry, "k"))

	nested := item.Of(item.NewArray(item.Of(m1), item.Of(m2)))
	found, err := mapFn("find", nested, str("a"))
	require.NoError(t, err)
	assert.Equal(t, "[1, 3]", found.At(0).(*item.ArrayItem).String())

	concat, _ := Default().Lookup(types.NewQName(types.NSMetapathFunctions, "concat"), 2)
	pairs, err := mapFn("for-each", item.Of(m1), item.Of(concat))
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "b2"}, texts(t, pairs))
}

func TestArrayFunctions(t *testing.T) {
	arr := item.Of(item.NewArray(str("a"), str("b"), str("c")))
	arrayFn := func(name string, args ...item.Sequence) (item.Sequence, error) {
		return call(t, types.NSArray, name, args...)
	}
	render := func(s item.Sequence, err error) string {
		require.NoError(t, err)
		return s.At(0).(*item.ArrayItem).String()
	}

	size, err := arrayFn("size", arr)
	require.NoError(t, err)
	assert.Equal(t, "3", single(t, size))

	got, err := arrayFn("get", arr, integer(2))
	require.NoError(t, err)
	assert.Equal(t, "b", single(t, got))

	_, err = arrayFn("get", arr, integer(4))
	requireCode(t, err, types.ErrArrayIndexOutOfBounds)

	assert.Equal(t, "[a, x, c]", render(arrayFn("put", arr, integer(2), str("x"))))
	assert.Equal(t, "[a, b, c, d]", render(arrayFn("append", arr, str("d"))))
	assert.Equal(t, "[b, c]", render(arrayFn("subarray", arr, integer(2))))
	assert.Equal(t, "[b]", render(arrayFn("subarray", arr, integer(2), integer(1))))
	assert.Equal(t, "[b]", render(arrayFn("remove", arr, ints(1, 3))))
	assert.Equal(t, "[a, z, b, c]", render(arrayFn("insert-before", arr, integer(2), str("z"))))
	assert.Equal(t, "[b, c]", render(arrayFn("tail", arr)))
	assert.Equal(t, "[c, b, a]", render(arrayFn("reverse", arr)))
	assert.Equal(t, "[a, b, c, a, b, c]", render(arrayFn("join", item.Of(arr.At(0), arr.At(0)))))

	head, err := arrayFn("head", arr)
	require.NoError(t, err)
	assert.Equal(t, "a", single(t, head))

	_, err = arrayFn("subarray", arr, integer(2), integer(-1))
	requireCode(t, err, types.ErrNegativeArrayLength)

	nested := item.Of(item.NewArray(str("a"), item.Of(item.NewArray(str("b"), strs("c", "d")))), item.NewString("e"))
	flat, err := arrayFn("flatten", nested)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, texts(t, flat))
}

func TestBase64Functions(t *testing.T) {
	const text = "Mr. Watson, come here, I need you"
	const encoded = "TXIuIFdhdHNvbiwgY29tZSBoZXJlLCBJIG5lZWQgeW91"
	assert.Equal(t, encoded, single(t, fn(t, "base64-encode-text", str(text))))
	assert.Equal(t, text, single(t, fn(t, "base64-decode-text", str(encoded))))

	_, err := call(t, types.NSMetapathFunctions, "base64-decode-text", str("%%%"))
	requireCode(t, err, types.ErrInvalidCastValue)
}

func TestConstructorFunctions(t *testing.T) {
	out, err := call(t, types.NSXMLSchema, "date", str("2024-01-02"))
	require.NoError(t, err)
	assert.Equal(t, item.DateType, out.At(0).(item.AtomicItem).Type())

	out, err = call(t, types.NSXMLSchema, "integer", item.Of(item.NewUntypedAtomic(" 42 ")))
	require.NoError(t, err)
	assert.Equal(t, "42", single(t, out))

	out, err = call(t, types.NSXMLSchema, "string", item.Empty())
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())

	_, err = call(t, types.NSXMLSchema, "integer", str("4.2"))
	requireCode(t, err, types.ErrInvalidCastValue)
}

func TestInvokeConvertsArguments(t *testing.T) {
	_, err := call(t, types.NSMetapathFunctions, "string-length", integer(1))
	requireCode(t, err, types.ErrInvalidType)
	assert.Contains(t, err.Error(), "argument 1 of fn:string-length")

	out := fn(t, "upper-case", item.Of(item.NewUntypedAtomic("abc")))
	assert.Equal(t, "ABC", single(t, out))
}
