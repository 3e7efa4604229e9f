package library

import (
	"context"
	"encoding/base64"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

func metaschemaFunctions() []*functions.Definition {
	path := param("recursePath", oneString)
	return []*functions.Definition{
		define("base64-encode-text", optString, pure, fnBase64Encode, param("arg", optString)),
		define("base64-decode-text", optString, pure, fnBase64Decode, param("arg", optString)),
		defineNS(types.NSMetapath, "recurse-depth", nodeSeq, focusDep|functions.ContextDependent, fnRecurseDepth, path),
		defineNS(types.NSMetapath, "recurse-depth", nodeSeq, pure|functions.ContextDependent, fnRecurseDepth, param("context", nodeSeq), path),
	}
}

func fnBase64Encode(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	if args[0].IsEmpty() {
		return item.Empty(), nil
	}
	return stringResult(base64.StdEncoding.EncodeToString([]byte(stringArg(args[0])))), nil
}

func fnBase64Decode(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	if args[0].IsEmpty() {
		return item.Empty(), nil
	}
	b, err := base64.StdEncoding.DecodeString(stringArg(args[0]))
	if err != nil {
		return nil, types.Errorf(types.ErrInvalidCastValue, "invalid base64 value").WithCause(err)
	}
	return stringResult(string(b)), nil
}

// fnRecurseDepth evaluates recursePath against each node and, depth first,
// against every node it yields, returning each node before its results.
func fnRecurseDepth(ctx context.Context, fc functions.Context, args []item.Sequence, focus item.Item) (item.Sequence, error) {
	var initial item.Sequence
	if len(args) == 1 {
		n, err := focusNode(focus)
		if err != nil {
			return nil, err
		}
		initial = item.Of(n)
	} else {
		initial = args[0]
	}
	path := stringArg(args[len(args)-1])

	var out []item.Item
	onPath := make(map[item.NodeItem]bool)
	var recurse func(s item.Sequence) error
	recurse = func(s item.Sequence) error {
		for it := range s.All() {
			n, ok := it.(item.NodeItem)
			if !ok {
				return types.Errorf(types.ErrInvalidType, "mp:recurse-depth path '%s' must yield nodes, got %s", path, it.ItemType())
			}
			if onPath[n] {
				return types.Errorf(types.ErrRecursionLimit, "mp:recurse-depth path '%s' revisits %s", path, n.Name())
			}
			out = append(out, n)
			next, err := fc.Evaluate(ctx, path, n)
			if err != nil {
				return err
			}
			onPath[n] = true
			err = recurse(next)
			delete(onPath, n)
			if err != nil {
				return err
			}
		}
		return nil
	}
	if err := recurse(initial); err != nil {
		return nil, err
	}
	return item.FromSlice(out), nil
}
