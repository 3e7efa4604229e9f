package library

import (
	"math"

	"github.com/cockroachdb/apd/v3"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// optionalAtomic returns the single atomic item of s, or nil when s is empty.
func optionalAtomic(s item.Sequence) item.AtomicItem {
	if s.IsEmpty() {
		return nil
	}
	return s.At(0).(item.AtomicItem)
}

// stringArg returns the value of an optional string argument, "" when empty.
func stringArg(s item.Sequence) string {
	if a := optionalAtomic(s); a != nil {
		return a.StringValue()
	}
	return ""
}

func boolArg(s item.Sequence) bool {
	return bool(s.At(0).(item.BooleanItem))
}

func intArg(s item.Sequence) (int, error) {
	i, err := s.At(0).(item.NumericItem).Int64()
	return int(i), err
}

// roundedIntArg rounds a numeric argument half up to an int, as
// fn:substring and fn:subsequence do with their positions. Values beyond
// the int range are clamped.
func roundedIntArg(s item.Sequence) (int, error) {
	d, err := roundHalfUp(s.At(0).(item.NumericItem).Decimal(), 0)
	if err != nil {
		return 0, err
	}
	i, err := d.Int64()
	if err != nil {
		if d.Negative {
			return math.MinInt32, nil
		}
		return math.MaxInt32, nil
	}
	return int(max(min(i, math.MaxInt32), math.MinInt32)), nil
}

func focusItem(focus item.Item) (item.Item, error) {
	if focus == nil {
		return nil, types.NewError(types.ErrContextAbsent, "the context item is absent")
	}
	return focus, nil
}

func focusNode(focus item.Item) (item.NodeItem, error) {
	it, err := focusItem(focus)
	if err != nil {
		return nil, err
	}
	n, ok := it.(item.NodeItem)
	if !ok {
		return nil, types.Errorf(types.ErrContextNotNode, "the context item is not a node: %s", it.ItemType())
	}
	return n, nil
}

// itemArgOrFocus returns the single argument of a function that defaults
// to the context item, or nil when the argument is empty.
func itemArgOrFocus(args []item.Sequence, focus item.Item) (item.Item, error) {
	if len(args) == 0 {
		return focusItem(focus)
	}
	if args[0].IsEmpty() {
		return nil, nil
	}
	return args[0].At(0), nil
}

func nodeArgOrFocus(args []item.Sequence, focus item.Item) (item.NodeItem, error) {
	if len(args) == 0 {
		return focusNode(focus)
	}
	if args[0].IsEmpty() {
		return nil, nil
	}
	return args[0].At(0).(item.NodeItem), nil
}

func stringResult(s string) item.Sequence { return item.Of(item.NewString(s)) }

func boolResult(b bool) item.Sequence { return item.Of(item.NewBoolean(b)) }

func intResult(i int) item.Sequence { return item.Of(item.NewInteger(int64(i))) }

// sameKind rebuilds a numeric result with the type family of orig: an
// integer stays an integer, everything else becomes a decimal.
func sameKind(orig item.NumericItem, d *apd.Decimal) (item.Sequence, error) {
	if orig.IsInteger() {
		n, err := item.NewIntegerFromDecimal(d)
		if err != nil {
			return nil, err
		}
		return item.Of(n), nil
	}
	return item.Of(item.NewDecimal(d)), nil
}

// roundHalfUp rounds d to precision fractional digits, with halves going
// towards positive infinity.
func roundHalfUp(d *apd.Decimal, precision int32) (*apd.Decimal, error) {
	scaled := new(apd.Decimal).Set(d)
	scaled.Exponent += precision
	if _, err := decimalContext.Add(scaled, scaled, apd.New(5, -1)); err != nil {
		return nil, err
	}
	if _, err := decimalContext.Floor(scaled, scaled); err != nil {
		return nil, err
	}
	scaled.Exponent -= precision
	if _, _, err := decimalContext.Reduce(scaled, scaled); err != nil {
		return nil, err
	}
	if scaled.Exponent > 0 {
		if _, err := decimalContext.Quantize(scaled, scaled, 0); err != nil {
			return nil, err
		}
	}
	return scaled, nil
}
