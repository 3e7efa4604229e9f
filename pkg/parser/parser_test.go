package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gometapath/pkg/types"
)

func TestParseTrees(t *testing.T) {
	tests := []struct {
		name  string
		input string
		tree  string
	}{
		{"integer", "42", "(Literal 42)"},
		{"string with doubled quote", `'it''s'`, "(Literal it's)"},
		{"context item", ".", "(ContextItem)"},
		{"empty sequence", "()", "(Parenthesized)"},
		{"precedence", "1 + 2 * 3", "(Additive (Literal 1) + (Multiplicative (Literal 2) * (Literal 3)))"},
		{"left chain", "1 - 2 + 3", "(Additive (Literal 1) - (Literal 2) + (Literal 3))"},
		{"unary", "--1", "(Unary - - (Literal 1))"},
		{"comma", "1, 2", "(Expr (Literal 1) , (Literal 2))"},
		{"value comparison", "$a eq 2", "(Comparison (VarRef a) eq (Literal 2))"},
		{"logical", "1 or 2 and 3", "(Or (Literal 1) or (And (Literal 2) and (Literal 3)))"},
		{"range", "1 to 3", "(Range (Literal 1) to (Literal 3))"},
		{"concat", "'a' || 'b'", "(StringConcat (Literal a) || (Literal b))"},
		{"name step", "title", "(AbbrevStep (NameTest title))"},
		{"root", "/", "(Path /)"},
		{
			"descendant path with predicate",
			"//control[@id = 'ac-1']/title",
			"(Path // (RelativePath (AbbrevStep (NameTest control) (Predicate (Comparison (AxisStep @ (NameTest id)) = (Literal ac-1)))) / (AbbrevStep (NameTest title))))",
		},
		{"axis step", "child::a/..", "(RelativePath (AxisStep child (NameTest a)) / (AbbrevParent ..))"},
		{"kind test", "field()", "(AbbrevStep (KindTest field))"},
		{"wildcards", "*:title | p:*", "(Union (AbbrevStep (Wildcard *:title)) | (AbbrevStep (Wildcard p:*)))"},
		{"simple map", "a ! b", "(SimpleMap (AbbrevStep (NameTest a)) ! (AbbrevStep (NameTest b)))"},
		{"function call", "fn:count(a)", "(FunctionCall fn:count (ArgumentList (AbbrevStep (NameTest a))))"},
		{"named function ref", "count#1", "(NamedFunctionRef count 1)"},
		{"arrow", "'abc' => upper-case()", "(Arrow (Literal abc) upper-case (ArgumentList))"},
		{
			"for",
			"for $i in (1,2,3) return $i * $i",
			"(For (Binding i (Parenthesized (Expr (Literal 1) , (Literal 2) , (Literal 3)))) (Multiplicative (VarRef i) * (VarRef i)))",
		},
		{
			"let with two bindings",
			"let $a := 1, $b := 2 return $a + $b",
			"(Let (Binding a (Literal 1)) (Binding b (Literal 2)) (Additive (VarRef a) + (VarRef b)))",
		},
		{
			"quantified",
			"some $x in (1,2,3) satisfies $x gt 2",
			"(Quantified some (Binding x (Parenthesized (Expr (Literal 1) , (Literal 2) , (Literal 3)))) (Comparison (VarRef x) gt (Literal 2)))",
		},
		{"if", "if (1) then 2 else 3", "(If (Literal 1) (Literal 2) (Literal 3))"},
		{"instance of", "$x instance of xs:integer+", "(InstanceOf (VarRef x) (SequenceType (TypeName xs:integer) +))"},
		{"cast", "'1' cast as xs:integer?", "(Cast (Literal 1) (SingleType (TypeName xs:integer) ?))"},
		{"castable", "'a' castable as xs:integer", "(Castable (Literal a) (SingleType (TypeName xs:integer)))"},
		{"treat", "$x treat as empty-sequence()", "(Treat (VarRef x) (SequenceType empty-sequence))"},
		{"map lookup", "map { 'a': 1 }?a", "(Postfix (MapConstructor (MapEntry (Literal a) (Literal 1))) (Lookup a))"},
		{"square array", "[1, 2][1]", "(Postfix (SquareArray (Literal 1) (Literal 2)) (Predicate (Literal 1)))"},
		{"curly array", "array { 1, 2 }", "(CurlyArray (Expr (Literal 1) , (Literal 2)))"},
		{"unary lookup", "?*", "(UnaryLookup *)"},
		{
			"inline function call",
			"function($x as xs:integer) as xs:integer { $x + 1 }(2)",
			"(Postfix (InlineFunction (ParamList (Param x (SequenceType (TypeName xs:integer)))) (SequenceType (TypeName xs:integer)) (Additive (VarRef x) + (Literal 1))) (ArgumentList (Literal 2)))",
		},
		{"empty function body", "function() {}", "(InlineFunction (ParamList) (Parenthesized))"},
		{"keyword as name", "for", "(AbbrevStep (NameTest for))"},
		{"comment", "(: lead :) 1 (: trail :)", "(Literal 1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.tree, tree.String())
		})
	}
}

func TestParseSpans(t *testing.T) {
	tree, err := Parse("1 + 'x'")
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Start)
	assert.Equal(t, 7, tree.End)
	assert.Equal(t, "1 + 'x'", tree.Text)
	assert.Equal(t, "'x'", tree.Child(2).Text)
	assert.Nil(t, tree.Child(3))
	assert.True(t, tree.Child(1).Is("+"))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		position int
	}{
		{"empty", "", 0},
		{"dangling operator", "1 +", 3},
		{"unexpected close", "1 + )", 4},
		{"trailing token", "1 2", 2},
		{"unclosed paren", "(1", 2},
		{"unterminated string", "'abc", 1},
		{"reserved function name", "item()", 0},
		{"unknown axis", "sideways::a", 0},
		{"missing return", "for $x in 1", 11},
		{"bad lookup key", "$m?p:q", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.True(t, types.Is(err, types.ErrInvalidPathGrammar), "got %v", err)

			var perr *types.Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.position, perr.Position)
		})
	}
}

func TestParseMaxDepth(t *testing.T) {
	_, err := Parse("((((1))))", WithMaxDepth(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nesting exceeds 3")

	_, err = Parse("((((1))))")
	assert.NoError(t, err)
}
