package evaluator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sandrolain/gometapath/pkg/item"
)

// Tree renders the expression tree, one node per line, indented by depth.
// Each line shows the node kind, its details in brackets and its static
// type, e.g.
//
//	Arithmetic[+] as xs:integer
//	  Literal[1] as xs:integer
//	  Arithmetic[*] as xs:integer
//	    Literal[2] as xs:integer
//	    Literal[3] as xs:integer
func (x *Expression) Tree() string {
	var b strings.Builder
	writeTree(&b, x.root, 0)
	return b.String()
}

// FormatTree renders e as Expression.Tree does.
func FormatTree(e Expr) string {
	var b strings.Builder
	writeTree(&b, e, 0)
	return b.String()
}

func writeTree(b *strings.Builder, e Expr, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(kindName(e))
	if d := details(e); d != "" {
		b.WriteByte('[')
		b.WriteString(d)
		b.WriteByte(']')
	}
	b.WriteString(" as ")
	b.WriteString(e.StaticType().String())
	b.WriteByte('\n')
	for _, c := range e.Children() {
		writeTree(b, c, depth+1)
	}
}

func details(e Expr) string {
	switch e := e.(type) {
	case *Literal:
		if e.Value.Type() == item.StringType {
			return strconv.Quote(e.Value.StringValue())
		}
		return e.Value.StringValue()
	case *VariableRef:
		return "$" + e.Name.String()
	case *Comparison:
		if e.General {
			return e.Op.Symbol()
		}
		return e.Op.String()
	case *Arithmetic:
		return e.Op.String()
	case *Negate:
		if e.Negative {
			return "-"
		}
		return "+"
	case *InstanceOf:
		return e.Type.String()
	case *Treat:
		return e.Type.String()
	case *Cast:
		return castTarget(e.Type, e.AllowEmpty)
	case *Castable:
		return castTarget(e.Type, e.AllowEmpty)
	case *RootPath:
		return pathSeparator(e.Descendant)
	case *Path:
		return pathSeparator(e.Descendant)
	case *Step:
		return e.Axis.String() + "::" + e.Test.String()
	case *For:
		return "$" + e.Var.Name.String()
	case *Let:
		return "$" + e.Var.Name.String()
	case *Quantified:
		names := make([]string, len(e.Vars))
		for i, v := range e.Vars {
			names[i] = "$" + v.Name.String()
		}
		kw := "some"
		if e.Every {
			kw = "every"
		}
		return kw + " " + strings.Join(names, ", ")
	case *StaticCall:
		return fmt.Sprintf("%s#%d", e.Name.Prefixed(), len(e.Args))
	case *FunctionRef:
		return fmt.Sprintf("%s#%d", e.Name.Prefixed(), e.Arity)
	case *InlineFunction:
		params := make([]string, len(e.Params))
		for i, p := range e.Params {
			params[i] = "$" + p.Name.String() + " as " + p.Type.String()
		}
		return "(" + strings.Join(params, ", ") + ") as " + e.Result.String()
	case *ArrayConstructor:
		if e.Curly {
			return "curly"
		}
		return "square"
	case *Lookup:
		return keyDetails(e.Key)
	case *UnaryLookup:
		return keyDetails(e.Key)
	}
	return ""
}

func castTarget(t *item.AtomicType, allowEmpty bool) string {
	if allowEmpty {
		return t.String() + "?"
	}
	return t.String()
}

func pathSeparator(descendant bool) string {
	if descendant {
		return "//"
	}
	return "/"
}

func keyDetails(k KeySpecifier) string {
	switch {
	case k.Wildcard:
		return "*"
	case k.IsInt:
		return strconv.Itoa(k.Integer)
	case k.Expr != nil:
		return "(expr)"
	}
	return k.Name
}
