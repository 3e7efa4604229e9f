package library

import (
	"context"
	"slices"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

func arrayFunctions() []*functions.Definition {
	a := param("array", oneArray)
	pos := param("position", oneInteger)
	def := func(local string, result item.SequenceType, impl functions.Impl, params ...functions.Param) *functions.Definition {
		return defineNS(types.NSArray, local, result, pure, impl, params...)
	}
	return []*functions.Definition{
		def("size", oneInteger, fnArraySize, a),
		def("get", anyItems, fnArrayGet, a, pos),
		def("put", oneArray, fnArrayPut, a, pos, param("member", anyItems)),
		def("append", oneArray, fnArrayAppend, a, param("appendage", anyItems)),
		def("subarray", oneArray, fnArraySubarray, a, param("start", oneInteger)),
		def("subarray", oneArray, fnArraySubarray, a, param("start", oneInteger), param("length", oneInteger)),
		def("remove", oneArray, fnArrayRemove, a, param("positions", item.Many(item.IntegerType))),
		def("insert-before", oneArray, fnArrayInsertBefore, a, pos, param("member", anyItems)),
		def("head", anyItems, fnArrayHead, a),
		def("tail", oneArray, fnArrayTail, a),
		def("reverse", oneArray, fnArrayReverse, a),
		def("join", oneArray, fnArrayJoin, param("arrays", arrays)),
		def("flatten", anyItems, fnArrayFlatten, param("input", anyItems)),
	}
}

func arrayArg(s item.Sequence) *item.ArrayItem {
	return s.At(0).(*item.ArrayItem)
}

func arrayResult(a *item.ArrayItem, err error) (item.Sequence, error) {
	if err != nil {
		return nil, err
	}
	return item.Of(a), nil
}

func fnArraySize(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	return intResult(arrayArg(args[0]).Size()), nil
}

func fnArrayGet(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	pos, err := intArg(args[1])
	if err != nil {
		return nil, err
	}
	return arrayArg(args[0]).Get(pos)
}

func fnArrayPut(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	pos, err := intArg(args[1])
	if err != nil {
		return nil, err
	}
	return arrayResult(arrayArg(args[0]).Put(pos, args[2]))
}

func fnArrayAppend(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	return item.Of(arrayArg(args[0]).Append(args[1])), nil
}

func fnArraySubarray(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	a := arrayArg(args[0])
	start, err := intArg(args[1])
	if err != nil {
		return nil, err
	}
	length := a.Size() - start + 1
	if len(args) > 2 {
		if length, err = intArg(args[2]); err != nil {
			return nil, err
		}
	}
	return arrayResult(a.Subarray(start, length))
}

func fnArrayRemove(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	members := arrayArg(args[0]).Members()
	drop := make(map[int]bool, args[1].Len())
	for it := range args[1].All() {
		pos, err := intArg(item.Of(it))
		if err != nil {
			return nil, err
		}
		if pos < 1 || pos > len(members) {
			return nil, types.Errorf(types.ErrArrayIndexOutOfBounds, "array index %d out of bounds (1 to %d)", pos, len(members))
		}
		drop[pos] = true
	}
	kept := make([]item.Sequence, 0, len(members))
	for i, m := range members {
		if !drop[i+1] {
			kept = append(kept, m)
		}
	}
	return item.Of(item.NewArray(kept...)), nil
}

func fnArrayInsertBefore(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	members := arrayArg(args[0]).Members()
	pos, err := intArg(args[1])
	if err != nil {
		return nil, err
	}
	if pos < 1 || pos > len(members)+1 {
		return nil, types.Errorf(types.ErrArrayIndexOutOfBounds, "array index %d out of bounds (1 to %d)", pos, len(members)+1)
	}
	return item.Of(item.NewArray(slices.Insert(members, pos-1, args[2])...)), nil
}

func fnArrayHead(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	return arrayArg(args[0]).Get(1)
}

func fnArrayTail(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	a := arrayArg(args[0])
	if a.Size() == 0 {
		return nil, types.NewError(types.ErrArrayIndexOutOfBounds, "array:tail of an empty array")
	}
	return arrayResult(a.Subarray(2, a.Size()-1))
}

func fnArrayReverse(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	members := arrayArg(args[0]).Members()
	slices.Reverse(members)
	return item.Of(item.NewArray(members...)), nil
}

func fnArrayJoin(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	var members []item.Sequence
	for it := range args[0].All() {
		members = append(members, it.(*item.ArrayItem).Members()...)
	}
	return item.Of(item.NewArray(members...)), nil
}

// fnArrayFlatten replaces arrays, recursively, by their members.
func fnArrayFlatten(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	var out []item.Item
	var flatten func(s item.Sequence)
	flatten = func(s item.Sequence) {
		for it := range s.All() {
			if a, ok := it.(*item.ArrayItem); ok {
				for _, m := range a.Members() {
					flatten(m)
				}
				continue
			}
			out = append(out, it)
		}
	}
	flatten(args[0])
	return item.FromSlice(out), nil
}
