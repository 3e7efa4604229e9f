package library

import (
	"context"
	"time"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

func sequenceFunctions() []*functions.Definition {
	seq := param("arg", anyItems)
	return []*functions.Definition{
		define("head", item.Optional(item.AnyItem), pure, fnHead, seq),
		define("tail", anyItems, pure, fnTail, seq),
		define("reverse", anyItems, pure, fnReverse, seq),
		define("subsequence", anyItems, pure, fnSubsequence, param("sourceSeq", anyItems), param("startingLoc", oneDecimal)),
		define("subsequence", anyItems, pure, fnSubsequence, param("sourceSeq", anyItems), param("startingLoc", oneDecimal), param("length", oneDecimal)),
		define("distinct-values", atomics, pure, fnDistinctValues, param("arg", atomics)),
		define("index-of", item.Many(item.IntegerType), pure, fnIndexOf, param("seq", atomics), param("search", oneAnyAtomic)),
		define("insert-before", anyItems, pure, fnInsertBefore, param("target", anyItems), param("position", oneInteger), param("inserts", anyItems)),
		define("remove", anyItems, pure, fnRemove, param("target", anyItems), param("position", oneInteger)),
		define("exactly-one", oneItem, pure, cardinality(types.ErrExactlyOne, item.ExactlyOne), seq),
		define("zero-or-one", item.Optional(item.AnyItem), pure, cardinality(types.ErrZeroOrOne, item.ZeroOrOne), seq),
		define("one-or-more", item.AtLeastOne(item.AnyItem), pure, cardinality(types.ErrOneOrMore, item.OneOrMore), seq),
		define("deep-equal", oneBoolean, pure, fnDeepEqual, param("parameter1", anyItems), param("parameter2", anyItems)),
		define("data", atomics, focusDep, fnData),
		define("data", atomics, pure, fnData, seq),
	}
}

func fnHead(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	if args[0].IsEmpty() {
		return item.Empty(), nil
	}
	return item.Of(args[0].At(0)), nil
}

func fnTail(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	if args[0].Len() <= 1 {
		return item.Empty(), nil
	}
	return item.FromSlice(args[0].Items()[1:]), nil
}

func fnReverse(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	items := args[0].Items()
	out := make([]item.Item, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it
	}
	return item.FromSlice(out), nil
}

func fnSubsequence(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	items := args[0].Items()
	start, err := roundedIntArg(args[1])
	if err != nil {
		return nil, err
	}
	end := len(items) + 1
	if len(args) > 2 {
		length, err := roundedIntArg(args[2])
		if err != nil {
			return nil, err
		}
		end = min(end, start+length)
	}
	from := max(start, 1)
	if from >= end {
		return item.Empty(), nil
	}
	return item.FromSlice(items[from-1 : end-1]), nil
}

// distinctKey maps values equal under eq to the same key. Integers and
// decimals share the numeric form, untyped values compare as strings, and
// date/times compare as instants.
func distinctKey(a item.AtomicItem) string {
	switch v := a.(type) {
	case item.NumericItem:
		return "n:" + v.StringValue()
	case item.StringItem:
		return "s:" + v.StringValue()
	case item.DateTimeItem:
		return v.Type().String() + ":" + v.Time().UTC().Format(time.RFC3339Nano)
	}
	return a.Type().String() + ":" + a.StringValue()
}

func fnDistinctValues(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	seen := make(map[string]struct{}, args[0].Len())
	var out []item.Item
	for it := range args[0].All() {
		a := it.(item.AtomicItem)
		k := distinctKey(a)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return item.FromSlice(out), nil
}

func fnIndexOf(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	search := args[1].At(0).(item.AtomicItem)
	var out []item.Item
	i := 0
	for it := range args[0].All() {
		i++
		// Incomparable values never match.
		if eq, err := item.ValueCompare(item.OpEq, it.(item.AtomicItem), search); err == nil && eq {
			out = append(out, item.NewInteger(int64(i)))
		}
	}
	return item.FromSlice(out), nil
}

func fnInsertBefore(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	target := args[0].Items()
	pos, err := intArg(args[1])
	if err != nil {
		return nil, err
	}
	pos = min(max(pos, 1), len(target)+1)
	out := make([]item.Item, 0, len(target)+args[2].Len())
	out = append(out, target[:pos-1]...)
	out = append(out, args[2].Items()...)
	out = append(out, target[pos-1:]...)
	return item.FromSlice(out), nil
}

func fnRemove(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	target := args[0].Items()
	pos, err := intArg(args[1])
	if err != nil {
		return nil, err
	}
	if pos < 1 || pos > len(target) {
		return args[0], nil
	}
	out := make([]item.Item, 0, len(target)-1)
	out = append(out, target[:pos-1]...)
	out = append(out, target[pos:]...)
	return item.FromSlice(out), nil
}

func cardinality(code types.ErrorCode, occurrence item.Occurrence) functions.Impl {
	return func(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
		if !occurrence.Allows(args[0].Len()) {
			return nil, types.Errorf(code, "expected %s items, got %d", occurrenceText(occurrence), args[0].Len())
		}
		return args[0], nil
	}
}

func occurrenceText(o item.Occurrence) string {
	switch o {
	case item.ExactlyOne:
		return "exactly one of"
	case item.ZeroOrOne:
		return "zero or one"
	}
	return "one or more"
}

func fnDeepEqual(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	return boolResult(item.SequenceDeepEqual(args[0], args[1])), nil
}

func fnData(_ context.Context, _ functions.Context, args []item.Sequence, focus item.Item) (item.Sequence, error) {
	if len(args) > 0 {
		return item.Atomize(args[0])
	}
	it, err := focusItem(focus)
	if err != nil {
		return nil, err
	}
	return item.Atomize(item.Of(it))
}
