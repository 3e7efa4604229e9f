// Package gometapath evaluates Metapath expressions, the XPath 3.1 dialect
// used to query Metaschema-based content such as OSCAL catalogs.
//
// Documents in XML, JSON or YAML are loaded into a uniform node tree of
// assemblies, fields and flags, and queried with path expressions,
// FLWOR-style bindings, maps, arrays and a library of built-in functions.
//
// # Quick Start
//
//	doc, err := gometapath.LoadDocument("catalog.xml")
//
//	// Simple evaluation
//	result, err := gometapath.Eval("//control/@id", doc)
//
//	// Compile once, evaluate many times
//	expr, err := gometapath.Compile("//control[@id = $id]/title")
//	ev := evaluator.New()
//	result, _ := ev.EvalWithBindings(ctx, expr, doc, map[string]item.Sequence{
//	    "id": item.Of(item.NewString("ac-1")),
//	})
//
//	// With options
//	result, err := gometapath.Eval("count(//control)", doc,
//	    evaluator.WithTimeout(5*time.Second),
//	    evaluator.WithMaxDepth(500),
//	)
//
// # More Information
//
// For detailed documentation, see:
//   - Parser: github.com/sandrolain/gometapath/pkg/parser
//   - Evaluator: github.com/sandrolain/gometapath/pkg/evaluator
//   - Functions: github.com/sandrolain/gometapath/pkg/functions
//   - Nodes: github.com/sandrolain/gometapath/pkg/nodes
package gometapath

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/sandrolain/gometapath/pkg/evaluator"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/nodes"
	"github.com/sandrolain/gometapath/pkg/parser"
)

// Version returns the current version of gometapath.
func Version() string {
	return "v0.1.0-dev"
}

// ResultType selects the conversion applied by EvalAs.
type ResultType = evaluator.ResultType

// Result types.
const (
	ResultSequence = evaluator.ResultSequence
	ResultItem     = evaluator.ResultItem
	ResultNumber   = evaluator.ResultNumber
	ResultString   = evaluator.ResultString
	ResultBoolean  = evaluator.ResultBoolean
)

// Compile compiles a Metapath expression against the default static
// context.
//
// The compiled expression can be evaluated multiple times against different
// documents. It is safe for concurrent use.
func Compile(query string, opts ...parser.CompileOption) (*evaluator.Expression, error) {
	return evaluator.Compile(query, evaluator.DefaultStaticContext(), opts...)
}

// MustCompile is like Compile but panics if the expression cannot be compiled.
// It simplifies safe initialization of global variables.
func MustCompile(query string) *evaluator.Expression {
	expr, err := Compile(query)
	if err != nil {
		panic(fmt.Sprintf("gometapath: Compile(%q): %v", query, err))
	}
	return expr
}

// Eval compiles and evaluates an expression in a single call, with focus as
// the context item. A nil focus means there is no context item.
//
// The evaluation is bounded by the evaluator timeout, 30 seconds unless
// evaluator.WithTimeout says otherwise. For repeated evaluations of the same
// expression, use Compile instead.
func Eval(query string, focus item.Item, opts ...evaluator.EvalOption) (item.Sequence, error) {
	return EvalWithContext(context.Background(), query, focus, opts...)
}

// EvalWithContext evaluates an expression with a custom context.
func EvalWithContext(ctx context.Context, query string, focus item.Item, opts ...evaluator.EvalOption) (item.Sequence, error) {
	ev := evaluator.New(opts...)
	expr, err := ev.Compile(query)
	if err != nil {
		return nil, err
	}
	return ev.Eval(ctx, expr, focus)
}

// EvalAs evaluates an expression and converts the result to rt.
func EvalAs(ctx context.Context, query string, focus item.Item, rt ResultType, opts ...evaluator.EvalOption) (any, error) {
	ev := evaluator.New(opts...)
	expr, err := ev.Compile(query)
	if err != nil {
		return nil, err
	}
	return ev.EvalAs(ctx, expr, focus, rt)
}

// LoadDocument reads an XML, JSON or YAML document from a file. The format
// is chosen by the file extension.
func LoadDocument(path string) (item.NodeItem, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	uri := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return nodes.Parse(f, nodes.FormatFromPath(abs), uri.String())
}
