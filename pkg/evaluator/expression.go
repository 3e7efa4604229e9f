package evaluator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Expression is a compiled Metapath expression. It is immutable and may
// be evaluated concurrently, each evaluation with its own DynamicContext.
type Expression struct {
	source string
	root   Expr
	static *StaticContext
}

// Source returns the expression text.
func (x *Expression) Source() string { return x.source }

// Root returns the root of the expression tree.
func (x *Expression) Root() Expr { return x.root }

// StaticContext returns the static context the expression was compiled
// against.
func (x *Expression) StaticContext() *StaticContext { return x.static }

// StaticType returns the item type the expression is known to produce.
func (x *Expression) StaticType() item.ItemType { return x.root.StaticType() }

func (x *Expression) String() string { return x.source }

// Evaluate evaluates the expression in a fresh dynamic context. A nil
// focus means there is no context item.
func (x *Expression) Evaluate(ctx context.Context, focus item.Item) (item.Sequence, error) {
	return x.EvaluateWithContext(ctx, focus, nil)
}

// EvaluateWithContext evaluates the expression with focus in dc, which
// carries the variable bindings, loaded documents and cached function
// results. A nil dc means a fresh context.
//
// Errors are returned with the expression text and the execution stack
// at the point of failure attached.
func (x *Expression) EvaluateWithContext(ctx context.Context, focus item.Item, dc *DynamicContext) (item.Sequence, error) {
	if dc == nil {
		dc = NewDynamicContext(x.static)
	}
	out, err := dc.eval(ctx, x.root, focusOn(focus))
	if err != nil {
		return nil, withExpression(err, x.source)
	}
	return out, nil
}

// ResultType selects the conversion applied by EvaluateAs.
type ResultType uint8

// Result types.
const (
	// ResultSequence returns the item.Sequence unchanged.
	ResultSequence ResultType = iota
	// ResultItem returns the single item, or nil for an empty result.
	ResultItem
	// ResultNumber returns the first atomized item as an item.NumericItem,
	// or nil for an empty result.
	ResultNumber
	// ResultString returns the string value of the first atomized item,
	// or "" for an empty result.
	ResultString
	// ResultBoolean returns the effective boolean value as a bool.
	ResultBoolean
)

var resultTypeNames = [...]string{"sequence", "item", "number", "string", "boolean"}

func (rt ResultType) String() string {
	if int(rt) < len(resultTypeNames) {
		return resultTypeNames[rt]
	}
	return fmt.Sprintf("ResultType(%d)", uint8(rt))
}

// ParseResultType maps a name such as "string" to its ResultType.
func ParseResultType(name string) (ResultType, error) {
	for i, n := range resultTypeNames {
		if n == name {
			return ResultType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown result type %q", name)
}

// EvaluateAs evaluates the expression and converts the result to rt.
func (x *Expression) EvaluateAs(ctx context.Context, focus item.Item, dc *DynamicContext, rt ResultType) (any, error) {
	s, err := x.EvaluateWithContext(ctx, focus, dc)
	if err != nil {
		return nil, err
	}
	v, err := ConvertResult(s, rt)
	if err != nil {
		return nil, withExpression(err, x.source)
	}
	return v, nil
}

// ConvertResult converts a sequence to rt.
func ConvertResult(s item.Sequence, rt ResultType) (any, error) {
	switch rt {
	case ResultSequence:
		return s, nil
	case ResultItem:
		return item.FirstItem(s, true)
	case ResultBoolean:
		return item.EffectiveBooleanValue(s)
	}

	first, err := item.FirstItem(s, false)
	if err != nil || first == nil {
		if rt == ResultString {
			return "", err
		}
		return nil, err
	}
	a, err := item.AtomizeItem(first)
	if err != nil {
		return nil, err
	}
	if rt == ResultString {
		if a == nil {
			return "", nil
		}
		return a.StringValue(), nil
	}
	if a == nil {
		return nil, nil
	}
	if n, ok := a.(item.NumericItem); ok {
		return n, nil
	}
	return item.Cast(a, item.DecimalType)
}

// withExpression attaches source to an error leaving the top level. Coded
// errors get it in their Expression field; other errors are wrapped.
func withExpression(err error, source string) error {
	var coded *types.Error
	if errors.As(err, &coded) {
		if coded.Expression == "" {
			coded.Expression = source
		}
		return err
	}
	return fmt.Errorf("evaluating '%s': %w", source, err)
}
