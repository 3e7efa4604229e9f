package evaluator

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// focusContext is the function context of a call made with a focus. It
// reports the focus position to fn:position and fn:last.
type focusContext struct {
	*DynamicContext
	focus Focus
}

// Call invokes fn with the focus of the calling function.
func (fc focusContext) Call(ctx context.Context, fn item.FunctionItem, args []item.Sequence) (item.Sequence, error) {
	return fc.invoke(ctx, fn, args, fc.focus)
}

func (fc focusContext) ContextPosition() (int, int) {
	if fc.focus.Item == nil {
		return 0, 0
	}
	return fc.focus.Position, fc.focus.Size
}

// evalArgs evaluates call arguments. With concurrency enabled and more
// than one argument, each argument runs on its own goroutine with a
// forked stack.
func (dc *DynamicContext) evalArgs(ctx context.Context, args []Expr, focus Focus) ([]item.Sequence, error) {
	out := make([]item.Sequence, len(args))
	if !dc.session.concurrent || len(args) < 2 {
		for i, a := range args {
			s, err := dc.eval(ctx, a, focus)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range args {
		sub := dc.fork()
		g.Go(func() error {
			s, err := sub.eval(gctx, a, focus)
			if err != nil {
				return err
			}
			out[i] = item.Materialize(s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (dc *DynamicContext) evalStaticCall(ctx context.Context, e *StaticCall, focus Focus) (item.Sequence, error) {
	d, err := e.Function()
	if err != nil {
		// The resolution error is shared by every evaluation of e.
		var coded *types.Error
		if errors.As(err, &coded) {
			return nil, types.NewError(coded.Code, coded.Message).WithToken(e.Text())
		}
		return nil, err
	}
	args, err := dc.evalArgs(ctx, e.Args, focus)
	if err != nil {
		return nil, err
	}
	return dc.callDefinition(ctx, d, args, focus)
}

func (dc *DynamicContext) evalDynamicCall(ctx context.Context, e *DynamicCall, focus Focus) (item.Sequence, error) {
	callee, err := dc.eval(ctx, e.Callee, focus)
	if err != nil {
		return nil, err
	}
	if callee.Len() != 1 {
		return nil, types.Errorf(types.ErrInvalidType,
			"a dynamic call requires exactly one function item, got %d items", callee.Len()).WithToken(e.Callee.Text())
	}
	fn, ok := callee.At(0).(item.FunctionItem)
	if !ok {
		return nil, types.Errorf(types.ErrInvalidType,
			"a dynamic call requires a function item, got %s", callee.At(0).ItemType()).WithToken(e.Callee.Text())
	}
	args, err := dc.evalArgs(ctx, e.Args, focus)
	if err != nil {
		return nil, err
	}
	return dc.invoke(ctx, fn, args, focus)
}

// invoke calls any function item: a built-in, an inline function, a map
// (keyed by its argument) or an array (indexed by its argument).
func (dc *DynamicContext) invoke(ctx context.Context, fn item.FunctionItem, args []item.Sequence, focus Focus) (item.Sequence, error) {
	switch f := fn.(type) {
	case *functions.Definition:
		return dc.callDefinition(ctx, f, args, focus)
	case *Function:
		return f.call(ctx, dc, args, focus)
	case *item.MapItem:
		if len(args) != 1 {
			return nil, arityError(fn, len(args))
		}
		key, err := singleAtomic(args[0], "a map key")
		if err != nil {
			return nil, err
		}
		if key == nil {
			return nil, types.NewError(types.ErrInvalidType, "a map key must be a single atomic value, got an empty sequence")
		}
		v, _ := f.Get(key)
		return v, nil
	case *item.ArrayItem:
		if len(args) != 1 {
			return nil, arityError(fn, len(args))
		}
		key, err := singleAtomic(args[0], "an array index")
		if err != nil {
			return nil, err
		}
		if key == nil {
			return nil, types.NewError(types.ErrInvalidType, "an array index must be a single integer, got an empty sequence")
		}
		pos, err := arrayPosition(key)
		if err != nil {
			return nil, err
		}
		return f.Get(pos)
	}
	return nil, types.Errorf(types.ErrInvalidType, "%s is not callable", fn.ItemType())
}

func arityError(fn item.FunctionItem, n int) error {
	return types.Errorf(types.ErrFunctionArityMatch,
		"%s expects %d argument(s), got %d", fn.ItemType(), fn.Arity(), n)
}

// callDefinition invokes a built-in. Results of deterministic functions
// are cached for the session, keyed on the arguments.
func (dc *DynamicContext) callDefinition(ctx context.Context, d *functions.Definition, args []item.Sequence, focus Focus) (item.Sequence, error) {
	fc := focusContext{DynamicContext: dc, focus: focus}
	call := func() (item.Sequence, error) {
		out, err := d.Invoke(ctx, fc, args, focus.Item)
		if err != nil {
			return nil, err
		}
		return item.Materialize(out), nil
	}

	if !d.Is(functions.Deterministic) {
		return call()
	}
	key, ok := memoKey(d, args, focus.Item)
	if !ok {
		return call()
	}
	s := dc.session
	if out, hit := s.memo.Get(key); hit {
		if s.debug {
			s.logger.DebugContext(ctx, "function result cache hit", "function", d.Identity())
		}
		return out, nil
	}
	// Concurrent calls with the same key share one invocation, so every
	// caller receives the same sequence.
	v, err, _ := s.memoGroup.Do(key, func() (any, error) {
		if out, hit := s.memo.Get(key); hit {
			return out, nil
		}
		out, err := call()
		if err != nil {
			return nil, err
		}
		s.memo.Set(key, out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(item.Sequence), nil
}
