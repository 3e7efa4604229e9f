package library

import (
	"context"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// focusFunctions read the context position and size, so their results
// are never cached.
func focusFunctions() []*functions.Definition {
	return []*functions.Definition{
		define("position", oneInteger, functions.FocusDependent, fnPosition),
		define("last", oneInteger, functions.FocusDependent, fnLast),
	}
}

func fnPosition(_ context.Context, fc functions.Context, _ []item.Sequence, _ item.Item) (item.Sequence, error) {
	pos, _ := fc.ContextPosition()
	if pos == 0 {
		return nil, types.NewError(types.ErrContextAbsent, "fn:position() requires a context item")
	}
	return intResult(pos), nil
}

func fnLast(_ context.Context, fc functions.Context, _ []item.Sequence, _ item.Item) (item.Sequence, error) {
	_, size := fc.ContextPosition()
	if size == 0 {
		return nil, types.NewError(types.ErrContextAbsent, "fn:last() requires a context item")
	}
	return intResult(size), nil
}
