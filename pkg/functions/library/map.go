package library

import (
	"context"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

func mapFunctions() []*functions.Definition {
	m := param("map", oneMap)
	key := param("key", oneAnyAtomic)
	def := func(local string, result item.SequenceType, impl functions.Impl, params ...functions.Param) *functions.Definition {
		return defineNS(types.NSMap, local, result, pure, impl, params...)
	}
	return []*functions.Definition{
		def("merge", oneMap, fnMapMerge, param("maps", maps)),
		def("merge", oneMap, fnMapMerge, param("maps", maps), param("options", oneMap)),
		def("size", oneInteger, fnMapSize, m),
		def("keys", atomics, fnMapKeys, m),
		def("contains", oneBoolean, fnMapContains, m, key),
		def("get", anyItems, fnMapGet, m, key),
		def("find", oneArray, fnMapFind, param("input", anyItems), key),
		def("put", oneMap, fnMapPut, m, key, param("value", anyItems)),
		def("entry", oneMap, fnMapEntry, key, param("value", anyItems)),
		def("remove", oneMap, fnMapRemove, m, param("keys", atomics)),
		def("for-each", anyItems, fnMapForEach, m, param("action", oneFunction)),
	}
}

func mapArg(s item.Sequence) *item.MapItem {
	return s.At(0).(*item.MapItem)
}

func keyArg(s item.Sequence) item.AtomicItem {
	return s.At(0).(item.AtomicItem)
}

// duplicatesPolicy reads the "duplicates" option of map:merge.
func duplicatesPolicy(args []item.Sequence) (string, error) {
	if len(args) < 2 {
		return "use-first", nil
	}
	v, ok := mapArg(args[1]).Get(item.NewString("duplicates"))
	if !ok || v.IsEmpty() {
		return "use-first", nil
	}
	policy := stringArg(v)
	switch policy {
	case "use-first", "use-last", "use-any", "combine", "reject":
		return policy, nil
	}
	return "", types.Errorf(types.ErrInvalidArgumentType, "invalid duplicates option '%s'", policy)
}

func fnMapMerge(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	policy, err := duplicatesPolicy(args)
	if err != nil {
		return nil, err
	}
	out, _ := item.NewMap()
	for it := range args[0].All() {
		for k, v := range it.(*item.MapItem).All() {
			existing, dup := out.Get(k)
			switch {
			case !dup, policy == "use-last":
				out = out.Put(k, v)
			case policy == "combine":
				out = out.Put(k, item.Concat(existing, v))
			case policy == "reject":
				return nil, types.Errorf(types.ErrDuplicateMapKey, "duplicate map key '%s'", k.StringValue())
			}
		}
	}
	return item.Of(out), nil
}

func fnMapSize(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	return intResult(mapArg(args[0]).Size()), nil
}

func fnMapKeys(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	keys := mapArg(args[0]).Keys()
	out := make([]item.Item, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return item.FromSlice(out), nil
}

func fnMapContains(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	return boolResult(mapArg(args[0]).Contains(keyArg(args[1]))), nil
}

func fnMapGet(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	v, _ := mapArg(args[0]).Get(keyArg(args[1]))
	return v, nil
}

// fnMapFind searches maps at any depth, including inside arrays, and
// collects every value bound to key.
func fnMapFind(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	key := keyArg(args[1])
	var found []item.Sequence
	var walk func(s item.Sequence)
	walk = func(s item.Sequence) {
		for it := range s.All() {
			switch v := it.(type) {
			case *item.MapItem:
				for k, value := range v.All() {
					if eq, err := item.ValueCompare(item.OpEq, k, key); err == nil && eq {
						found = append(found, value)
					}
					walk(value)
				}
			case *item.ArrayItem:
				for _, m := range v.Members() {
					walk(m)
				}
			}
		}
	}
	walk(args[0])
	return item.Of(item.NewArray(found...)), nil
}

func fnMapPut(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	return item.Of(mapArg(args[0]).Put(keyArg(args[1]), args[2])), nil
}

func fnMapEntry(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	m, err := item.NewMap(item.MapEntry{Key: keyArg(args[0]), Value: args[1]})
	if err != nil {
		return nil, err
	}
	return item.Of(m), nil
}

func fnMapRemove(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	m := mapArg(args[0])
	for k := range args[1].All() {
		m = m.Remove(k.(item.AtomicItem))
	}
	return item.Of(m), nil
}

func fnMapForEach(ctx context.Context, fc functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	f := function(args[1])
	var out []item.Sequence
	for k, v := range mapArg(args[0]).All() {
		r, err := fc.Call(ctx, f, []item.Sequence{item.Of(k), v})
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return item.Concat(out...), nil
}
