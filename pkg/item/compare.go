package item

import (
	"strings"

	"github.com/sandrolain/gometapath/pkg/types"
)

// ComparisonOp is a comparison operator.
type ComparisonOp uint8

// Comparison operators.
const (
	OpEq ComparisonOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var (
	valueOpNames   = [...]string{"eq", "ne", "lt", "le", "gt", "ge"}
	generalOpNames = [...]string{"=", "!=", "<", "<=", ">", ">="}
)

// String returns the value comparison keyword.
func (op ComparisonOp) String() string { return valueOpNames[op] }

// Symbol returns the general comparison symbol.
func (op ComparisonOp) Symbol() string { return generalOpNames[op] }

func (op ComparisonOp) holds(c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	}
	return c >= 0
}

// ValueCompare applies a value comparison. Untyped operands compare as strings.
func ValueCompare(op ComparisonOp, a, b AtomicItem) (bool, error) {
	if a.Type() == UntypedAtomicType {
		a = NewString(a.StringValue())
	}
	if b.Type() == UntypedAtomicType {
		b = NewString(b.StringValue())
	}
	return compareWith(op, a, b)
}

// GeneralCompare applies a general comparison between two atomic values.
// An untyped operand is cast to the type of the other operand, or to
// xs:decimal when the other is numeric.
func GeneralCompare(op ComparisonOp, a, b AtomicItem) (bool, error) {
	var err error
	au, bu := a.Type() == UntypedAtomicType, b.Type() == UntypedAtomicType
	switch {
	case au && bu:
		return ValueCompare(op, a, b)
	case au:
		if a, err = promoteUntyped(a, b.Type()); err != nil {
			return false, err
		}
	case bu:
		if b, err = promoteUntyped(b, a.Type()); err != nil {
			return false, err
		}
	}
	return compareWith(op, a, b)
}

func promoteUntyped(v AtomicItem, other *AtomicType) (AtomicItem, error) {
	switch {
	case other.IsNumeric():
		return Cast(v, DecimalType)
	case other.DerivesFrom(StringType), other == AnyURIType:
		return NewString(v.StringValue()), nil
	}
	return Cast(v, other)
}

func compareWith(op ComparisonOp, a, b AtomicItem) (bool, error) {
	if d1, ok := a.(DurationItem); ok {
		if d2, ok := b.(DurationItem); ok && (op == OpEq || op == OpNe) {
			return op.holds(boolCompare(d1.months == d2.months && d1.dur == d2.dur)), nil
		}
	}
	c, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return op.holds(c), nil
}

func boolCompare(equal bool) int {
	if equal {
		return 0
	}
	return 1
}

// Compare orders two atomic values of comparable types.
func Compare(a, b AtomicItem) (int, error) {
	switch x := a.(type) {
	case NumericItem:
		if y, ok := b.(NumericItem); ok {
			return x.d.Cmp(y.d), nil
		}
	case StringItem:
		if y, ok := b.(StringItem); ok {
			return strings.Compare(x.value, y.value), nil
		}
	case BooleanItem:
		if y, ok := b.(BooleanItem); ok {
			switch {
			case x == y:
				return 0, nil
			case !x.Bool():
				return -1, nil
			}
			return 1, nil
		}
	case DateTimeItem:
		if y, ok := b.(DateTimeItem); ok && x.typ == y.typ {
			return x.t.Compare(y.t), nil
		}
	case DurationItem:
		if y, ok := b.(DurationItem); ok && x.typ == y.typ && x.typ != DurationType {
			if x.months != y.months {
				return cmpInt(x.months, y.months), nil
			}
			return cmpInt(int64(x.dur), int64(y.dur)), nil
		}
	}
	return 0, types.Errorf(types.ErrInvalidType, "cannot compare %s with %s", a.Type(), b.Type())
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// DeepEqual reports whether two items are equal: atomics by value
// (incomparable types are unequal), nodes by identity, maps and arrays
// member-wise.
func DeepEqual(a, b Item) bool {
	switch x := a.(type) {
	case AtomicItem:
		y, ok := b.(AtomicItem)
		if !ok {
			return false
		}
		eq, err := ValueCompare(OpEq, x, y)
		return err == nil && eq
	case *ArrayItem:
		y, ok := b.(*ArrayItem)
		if !ok || x.Size() != y.Size() {
			return false
		}
		for i := range x.members {
			if !SequenceDeepEqual(x.members[i].AsSequence(), y.members[i].AsSequence()) {
				return false
			}
		}
		return true
	case *MapItem:
		y, ok := b.(*MapItem)
		if !ok || x.Size() != y.Size() {
			return false
		}
		for k, e := range x.entries {
			f, ok := y.entries[k]
			if !ok || !SequenceDeepEqual(e.value.AsSequence(), f.value.AsSequence()) {
				return false
			}
		}
		return true
	}
	return a == b
}

// SequenceDeepEqual compares two sequences item by item with DeepEqual.
func SequenceDeepEqual(a, b Sequence) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		if !DeepEqual(a.At(i), b.At(i)) {
			return false
		}
	}
	return true
}
