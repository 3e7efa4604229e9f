package library

import (
	"context"

	"github.com/cockroachdb/apd/v3"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

const piDigits = "3.141592653589793238462643383279503"

var optDouble = item.Optional(item.DoubleType)

func mathFunctions() []*functions.Definition {
	arg := param("arg", optDouble)
	return []*functions.Definition{
		defineNS(types.NSMath, "pi", item.One(item.DoubleType), pure, fnPi),
		defineNS(types.NSMath, "sqrt", optDouble, pure, mathUnary("sqrt", decimalContext.Sqrt), arg),
		defineNS(types.NSMath, "exp", optDouble, pure, mathUnary("exp", decimalContext.Exp), arg),
		defineNS(types.NSMath, "exp10", optDouble, pure, mathUnary("exp10", exp10), arg),
		defineNS(types.NSMath, "log", optDouble, pure, mathUnary("log", decimalContext.Ln), arg),
		defineNS(types.NSMath, "log10", optDouble, pure, mathUnary("log10", decimalContext.Log10), arg),
		defineNS(types.NSMath, "pow", optDouble, pure, fnPow, param("x", optDouble), param("y", oneDecimal)),
	}
}

func double(d *apd.Decimal) (item.Sequence, error) {
	v, err := item.Cast(item.NewDecimal(d), item.DoubleType)
	if err != nil {
		return nil, err
	}
	return item.Of(v), nil
}

func fnPi(context.Context, functions.Context, []item.Sequence, item.Item) (item.Sequence, error) {
	d, _, err := apd.NewFromString(piDigits)
	if err != nil {
		return nil, err
	}
	return double(d)
}

func exp10(d, x *apd.Decimal) (apd.Condition, error) {
	return decimalContext.Pow(d, apd.New(10, 0), x)
}

// Results that are not finite numbers, such as the square root of a
// negative value, are errors: xs:double carries no NaN or infinities here.
func mathUnary(name string, op func(d, x *apd.Decimal) (apd.Condition, error)) functions.Impl {
	return func(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
		if args[0].IsEmpty() {
			return item.Empty(), nil
		}
		d := new(apd.Decimal)
		if _, err := op(d, args[0].At(0).(item.NumericItem).Decimal()); err != nil || d.Form != apd.Finite {
			return nil, types.Errorf(types.ErrNumericOverflow, "math:%s(%s) has no finite result", name, args[0].At(0).(item.NumericItem).StringValue())
		}
		return double(d)
	}
}

func fnPow(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	if args[0].IsEmpty() {
		return item.Empty(), nil
	}
	x := args[0].At(0).(item.NumericItem)
	y := args[1].At(0).(item.NumericItem)
	d := new(apd.Decimal)
	if _, err := decimalContext.Pow(d, x.Decimal(), y.Decimal()); err != nil || d.Form != apd.Finite {
		return nil, types.Errorf(types.ErrNumericOverflow, "math:pow(%s, %s) has no finite result", x, y)
	}
	return double(d)
}
