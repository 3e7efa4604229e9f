// Package parser implements the Metapath grammar front end.
//
// The parser is a hand-written recursive descent parser. It turns source
// text into an untyped parse tree whose shape follows the grammar
// productions; resolving names, folding operator chains and typing the
// result is left to the compiler in package evaluator.
//
// # Architecture
//
// The parser consists of two components:
//   - Lexer: Tokenizes the input expression into a stream of tokens
//   - Parser: Builds a parse tree from tokens, with arbitrary lookahead
//
// Productions that contain a single operand are not wrapped: parsing "1"
// yields a Literal node, not an Expr/Or/And/... chain around it.
//
// # Example
//
//	tree, err := parser.Parse("//control[@id = 'ac-1']/title")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(tree)
package parser

// Parse parses a Metapath expression and returns its parse tree.
//
// If parsing fails, it returns a *types.Error with code MPST0003 carrying
// the position and the offending token.
func Parse(query string, opts ...CompileOption) (*Node, error) {
	p := NewParser(query, opts...)
	return p.Parse()
}

// CompileOption configures parsing behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// MaxDepth limits nesting depth to prevent stack overflow.
	MaxDepth int
}

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}
