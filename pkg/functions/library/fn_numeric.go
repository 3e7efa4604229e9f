package library

import (
	"context"

	"github.com/cockroachdb/apd/v3"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

func numericFunctions() []*functions.Definition {
	numeric := param("arg", optNumeric)
	return []*functions.Definition{
		define("abs", optNumeric, pure, unaryNumeric(func(d, x *apd.Decimal) error {
			d.Abs(x)
			return nil
		}), numeric),
		define("ceiling", optNumeric, pure, unaryNumeric(func(d, x *apd.Decimal) error {
			_, err := decimalContext.Ceil(d, x)
			return err
		}), numeric),
		define("floor", optNumeric, pure, unaryNumeric(func(d, x *apd.Decimal) error {
			_, err := decimalContext.Floor(d, x)
			return err
		}), numeric),
		define("round", optNumeric, pure, fnRound, numeric),
		define("round", optNumeric, pure, fnRound, numeric, param("precision", oneInteger)),
		define("count", oneInteger, pure, fnCount, param("arg", anyItems)),
		define("sum", oneAnyAtomic, pure, fnSum, param("arg", atomics)),
		define("sum", optAtomic, pure, fnSum, param("arg", atomics), param("zero", optAtomic)),
		define("avg", optAtomic, pure, fnAvg, param("arg", atomics)),
		define("min", optAtomic, pure, minMax(item.OpLt), param("arg", atomics)),
		define("max", optAtomic, pure, minMax(item.OpGt), param("arg", atomics)),
	}
}

func unaryNumeric(op func(d, x *apd.Decimal) error) functions.Impl {
	return func(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
		if args[0].IsEmpty() {
			return item.Empty(), nil
		}
		n := args[0].At(0).(item.NumericItem)
		d := new(apd.Decimal)
		if err := op(d, n.Decimal()); err != nil {
			return nil, err
		}
		return sameKind(n, d)
	}
}

func fnRound(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	if args[0].IsEmpty() {
		return item.Empty(), nil
	}
	n := args[0].At(0).(item.NumericItem)
	var precision int
	if len(args) > 1 {
		var err error
		if precision, err = intArg(args[1]); err != nil {
			return nil, err
		}
	}
	d, err := roundHalfUp(n.Decimal(), int32(precision))
	if err != nil {
		return nil, err
	}
	return sameKind(n, d)
}

func fnCount(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	return intResult(args[0].Len()), nil
}

// numericOperands casts untyped values to xs:double, which aggregates
// treat as numbers.
func numericOperands(s item.Sequence) ([]item.AtomicItem, error) {
	out := make([]item.AtomicItem, 0, s.Len())
	for it := range s.All() {
		a := it.(item.AtomicItem)
		if a.Type() == item.UntypedAtomicType {
			c, err := item.Cast(a, item.DoubleType)
			if err != nil {
				return nil, err
			}
			a = c
		}
		out = append(out, a)
	}
	return out, nil
}

func total(values []item.AtomicItem) (item.AtomicItem, error) {
	acc := values[0]
	switch acc.(type) {
	case item.NumericItem, item.DurationItem:
	default:
		return nil, types.Errorf(types.ErrInvalidArgumentType, "cannot sum values of type %s", acc.Type())
	}
	for _, v := range values[1:] {
		next, err := item.Arithmetic(item.OpAdd, acc, v)
		if err != nil {
			return nil, types.Errorf(types.ErrInvalidArgumentType, "cannot sum %s and %s", acc.Type(), v.Type()).WithCause(err)
		}
		acc = next
	}
	return acc, nil
}

func fnSum(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	values, err := numericOperands(args[0])
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		if len(args) > 1 {
			return args[1], nil
		}
		return item.Of(item.NewInteger(0)), nil
	}
	sum, err := total(values)
	if err != nil {
		return nil, err
	}
	return item.Of(sum), nil
}

func fnAvg(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	values, err := numericOperands(args[0])
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return item.Empty(), nil
	}
	sum, err := total(values)
	if err != nil {
		return nil, err
	}
	avg, err := item.Arithmetic(item.OpDivide, sum, item.NewInteger(int64(len(values))))
	if err != nil {
		return nil, err
	}
	return item.Of(avg), nil
}

// minMax keeps the value v for which "v op best" holds. Strings and
// numbers cannot be mixed.
func minMax(op item.ComparisonOp) functions.Impl {
	return func(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
		values, err := numericOperands(args[0])
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return item.Empty(), nil
		}
		best := values[0]
		for _, v := range values[1:] {
			better, err := item.ValueCompare(op, v, best)
			if err != nil {
				return nil, types.Errorf(types.ErrInvalidArgumentType, "cannot compare %s with %s", v.Type(), best.Type()).WithCause(err)
			}
			if better {
				best = v
			}
		}
		if best.Type() == item.AnyURIType {
			best = item.NewString(best.StringValue())
		}
		return item.Of(best), nil
	}
}
