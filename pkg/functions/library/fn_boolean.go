package library

import (
	"context"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
)

func booleanFunctions() []*functions.Definition {
	return []*functions.Definition{
		define("true", oneBoolean, pure, fnTrue),
		define("false", oneBoolean, pure, fnFalse),
		define("not", oneBoolean, pure, fnNot, param("arg", anyItems)),
		define("boolean", oneBoolean, pure, fnBoolean, param("arg", anyItems)),
		define("exists", oneBoolean, pure, fnExists, param("arg", anyItems)),
		define("empty", oneBoolean, pure, fnEmpty, param("arg", anyItems)),
	}
}

func fnTrue(context.Context, functions.Context, []item.Sequence, item.Item) (item.Sequence, error) {
	return item.Of(item.True), nil
}

func fnFalse(context.Context, functions.Context, []item.Sequence, item.Item) (item.Sequence, error) {
	return item.Of(item.False), nil
}

func fnNot(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	b, err := item.EffectiveBooleanValue(args[0])
	if err != nil {
		return nil, err
	}
	return boolResult(!b), nil
}

func fnBoolean(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	b, err := item.EffectiveBooleanValue(args[0])
	if err != nil {
		return nil, err
	}
	return boolResult(b), nil
}

func fnExists(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	return boolResult(!args[0].IsEmpty()), nil
}

func fnEmpty(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	return boolResult(args[0].IsEmpty()), nil
}
