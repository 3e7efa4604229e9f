package item

import (
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/sandrolain/gometapath/pkg/types"
)

// ArithmeticOp is a binary arithmetic operator.
type ArithmeticOp uint8

// Arithmetic operators.
const (
	OpAdd ArithmeticOp = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpIntegerDivide
	OpMod
)

var arithmeticOpNames = [...]string{"+", "-", "*", "div", "idiv", "mod"}

func (op ArithmeticOp) String() string { return arithmeticOpNames[op] }

// Arithmetic applies op to two atomic operands. Untyped operands are
// treated as xs:decimal.
func Arithmetic(op ArithmeticOp, a, b AtomicItem) (AtomicItem, error) {
	var err error
	if a.Type() == UntypedAtomicType {
		if a, err = Cast(a, DecimalType); err != nil {
			return nil, err
		}
	}
	if b.Type() == UntypedAtomicType {
		if b, err = Cast(b, DecimalType); err != nil {
			return nil, err
		}
	}

	switch x := a.(type) {
	case NumericItem:
		switch y := b.(type) {
		case NumericItem:
			return numericArithmetic(op, x, y)
		case DurationItem:
			if op == OpMultiply {
				return scaleDuration(y, x.d, false)
			}
		}
	case DateTimeItem:
		switch y := b.(type) {
		case DurationItem:
			if op == OpAdd || op == OpSubtract {
				return shiftDateTime(x, y, op == OpSubtract), nil
			}
		case DateTimeItem:
			if op == OpSubtract && x.typ == y.typ {
				return NewDayTimeDuration(x.t.Sub(y.t)), nil
			}
		}
	case DurationItem:
		switch y := b.(type) {
		case DurationItem:
			return durationArithmetic(op, x, y)
		case NumericItem:
			switch op {
			case OpMultiply:
				return scaleDuration(x, y.d, false)
			case OpDivide:
				return scaleDuration(x, y.d, true)
			}
		case DateTimeItem:
			if op == OpAdd {
				return shiftDateTime(y, x, false), nil
			}
		}
	}
	return nil, types.Errorf(types.ErrInvalidType, "operator '%s' is not defined for %s and %s", op, a.Type(), b.Type())
}

func numericArithmetic(op ArithmeticOp, x, y NumericItem) (AtomicItem, error) {
	integers := x.IsInteger() && y.IsInteger()
	resultType := DecimalType
	if x.typ == DoubleType || y.typ == DoubleType {
		resultType = DoubleType
	}
	ctx := decimalContext
	if integers {
		ctx = integerContext
		resultType = IntegerType
	}

	res := new(apd.Decimal)
	var cond apd.Condition
	var err error
	switch op {
	case OpAdd:
		cond, err = ctx.Add(res, x.d, y.d)
	case OpSubtract:
		cond, err = ctx.Sub(res, x.d, y.d)
	case OpMultiply:
		cond, err = ctx.Mul(res, x.d, y.d)
	case OpDivide:
		if y.d.IsZero() {
			return nil, types.NewError(types.ErrDivisionByZero, "division by zero")
		}
		if resultType == IntegerType {
			resultType = DecimalType
		}
		cond, err = decimalContext.Quo(res, x.d, y.d)
	case OpIntegerDivide:
		if y.d.IsZero() {
			return nil, types.NewError(types.ErrDivisionByZero, "integer division by zero")
		}
		resultType = IntegerType
		cond, err = integerContext.QuoInteger(res, x.d, y.d)
	case OpMod:
		if y.d.IsZero() {
			return nil, types.NewError(types.ErrDivisionByZero, "modulus by zero")
		}
		cond, err = ctx.Rem(res, x.d, y.d)
	}
	if err != nil {
		return nil, types.Errorf(types.ErrNumericOverflow, "numeric operation '%s' failed", op).WithCause(err)
	}
	if integers && cond.Inexact() {
		return nil, types.Errorf(types.ErrNumericOverflow, "integer overflow in '%s'", op)
	}
	return NumericItem{d: res, typ: resultType}, nil
}

// Negate returns the arithmetic negation of a numeric or duration value.
func Negate(a AtomicItem) (AtomicItem, error) {
	if a.Type() == UntypedAtomicType {
		var err error
		if a, err = Cast(a, DecimalType); err != nil {
			return nil, err
		}
	}
	switch x := a.(type) {
	case NumericItem:
		typ := x.typ
		if typ.DerivesFrom(IntegerType) {
			typ = IntegerType
		}
		return NumericItem{d: new(apd.Decimal).Neg(x.d), typ: typ}, nil
	case DurationItem:
		return DurationItem{months: -x.months, dur: -x.dur, typ: x.typ}, nil
	}
	return nil, types.Errorf(types.ErrInvalidType, "unary minus is not defined for %s", a.Type())
}

func shiftDateTime(d DateTimeItem, dur DurationItem, subtract bool) DateTimeItem {
	months, delta := dur.months, dur.dur
	if subtract {
		months, delta = -months, -delta
	}
	t := d.t.AddDate(0, int(months), 0).Add(delta)
	if d.typ == DateType {
		y, m, day := t.Date()
		t = time.Date(y, m, day, 0, 0, 0, 0, t.Location())
	}
	return DateTimeItem{t: t, hasTZ: d.hasTZ, typ: d.typ}
}

func durationArithmetic(op ArithmeticOp, x, y DurationItem) (AtomicItem, error) {
	if x.typ != y.typ || x.typ == DurationType {
		return nil, types.Errorf(types.ErrInvalidType, "operator '%s' is not defined for %s and %s", op, x.typ, y.typ)
	}
	switch op {
	case OpAdd:
		return DurationItem{months: x.months + y.months, dur: x.dur + y.dur, typ: x.typ}, nil
	case OpSubtract:
		return DurationItem{months: x.months - y.months, dur: x.dur - y.dur, typ: x.typ}, nil
	case OpDivide:
		num, den := apd.New(x.months, 0), apd.New(y.months, 0)
		if x.typ == DayTimeDurationType {
			num, den = apd.New(int64(x.dur), 0), apd.New(int64(y.dur), 0)
		}
		if den.IsZero() {
			return nil, types.NewError(types.ErrDivisionByZero, "division by zero duration")
		}
		res := new(apd.Decimal)
		if _, err := decimalContext.Quo(res, num, den); err != nil {
			return nil, types.NewError(types.ErrNumericOverflow, "duration division failed").WithCause(err)
		}
		return NumericItem{d: res, typ: DecimalType}, nil
	}
	return nil, types.Errorf(types.ErrInvalidType, "operator '%s' is not defined for %s", op, x.typ)
}

func scaleDuration(d DurationItem, factor *apd.Decimal, divide bool) (AtomicItem, error) {
	if d.typ == DurationType {
		return nil, types.Errorf(types.ErrInvalidType, "cannot scale %s", d.typ)
	}
	if divide && factor.IsZero() {
		return nil, types.NewError(types.ErrDivisionByZero, "division of duration by zero")
	}
	value := apd.New(d.months, 0)
	if d.typ == DayTimeDurationType {
		value = apd.New(int64(d.dur), 0)
	}
	res := new(apd.Decimal)
	var err error
	if divide {
		_, err = decimalContext.Quo(res, value, factor)
	} else {
		_, err = decimalContext.Mul(res, value, factor)
	}
	if err != nil {
		return nil, types.NewError(types.ErrNumericOverflow, "duration scaling failed").WithCause(err)
	}
	rounded := new(apd.Decimal)
	if _, err := decimalContext.RoundToIntegralValue(rounded, res); err != nil {
		return nil, types.NewError(types.ErrNumericOverflow, "duration scaling failed").WithCause(err)
	}
	n, err := rounded.Int64()
	if err != nil {
		return nil, types.NewError(types.ErrNumericOverflow, "duration out of range").WithCause(err)
	}
	if d.typ == DayTimeDurationType {
		return NewDayTimeDuration(time.Duration(n)), nil
	}
	return NewYearMonthDuration(n), nil
}
