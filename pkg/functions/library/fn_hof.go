package library

import (
	"context"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

func higherOrderFunctions() []*functions.Definition {
	seq := param("seq", anyItems)
	action := param("action", oneFunction)
	return []*functions.Definition{
		define("for-each", anyItems, pure, fnForEach, seq, action),
		define("filter", anyItems, pure, fnFilter, seq, param("f", oneFunction)),
		define("fold-left", anyItems, pure, fnFoldLeft, seq, param("zero", anyItems), param("f", oneFunction)),
		define("fold-right", anyItems, pure, fnFoldRight, seq, param("zero", anyItems), param("f", oneFunction)),
		define("apply", anyItems, pure, fnApply, param("function", oneFunction), param("array", oneArray)),
		define("function-lookup", item.Optional(item.AnyFunction), dynamic, fnFunctionLookup, param("name", oneString), param("arity", oneInteger)),
		define("function-name", optString, pure, fnFunctionName, param("func", oneFunction)),
		define("function-arity", oneInteger, pure, fnFunctionArity, param("func", oneFunction)),
	}
}

func function(s item.Sequence) item.FunctionItem {
	return s.At(0).(item.FunctionItem)
}

func fnForEach(ctx context.Context, fc functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	f := function(args[1])
	var out []item.Sequence
	for it := range args[0].All() {
		r, err := fc.Call(ctx, f, []item.Sequence{item.Of(it)})
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return item.Concat(out...), nil
}

func fnFilter(ctx context.Context, fc functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	f := function(args[1])
	var out []item.Item
	for it := range args[0].All() {
		r, err := fc.Call(ctx, f, []item.Sequence{item.Of(it)})
		if err != nil {
			return nil, err
		}
		b, ok := singleBoolean(r)
		if !ok {
			return nil, types.Errorf(types.ErrInvalidType, "fn:filter predicate must return a single boolean, got %s", r)
		}
		if b {
			out = append(out, it)
		}
	}
	return item.FromSlice(out), nil
}

func singleBoolean(s item.Sequence) (bool, bool) {
	if s.Len() != 1 {
		return false, false
	}
	b, ok := s.At(0).(item.BooleanItem)
	return bool(b), ok
}

func fnFoldLeft(ctx context.Context, fc functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	f := function(args[2])
	acc := args[1]
	for it := range args[0].All() {
		var err error
		if acc, err = fc.Call(ctx, f, []item.Sequence{acc, item.Of(it)}); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func fnFoldRight(ctx context.Context, fc functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	f := function(args[2])
	acc := args[1]
	items := args[0].Items()
	for i := len(items) - 1; i >= 0; i-- {
		var err error
		if acc, err = fc.Call(ctx, f, []item.Sequence{item.Of(items[i]), acc}); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func fnApply(ctx context.Context, fc functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	return fc.Call(ctx, function(args[0]), args[1].At(0).(*item.ArrayItem).Members())
}

func fnFunctionLookup(_ context.Context, fc functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	arity, err := intArg(args[1])
	if err != nil {
		return nil, err
	}
	f, err := fc.LookupFunction(stringArg(args[0]), arity)
	if err != nil || f == nil {
		return item.Empty(), err
	}
	return item.Of(f), nil
}

func fnFunctionName(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	name := function(args[0]).FunctionName()
	if name.Local == "" {
		return item.Empty(), nil
	}
	return stringResult(name.String()), nil
}

func fnFunctionArity(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	return intResult(function(args[0]).Arity()), nil
}
