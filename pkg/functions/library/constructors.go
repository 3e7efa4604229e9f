package library

import (
	"context"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
)

// constructorFunctions defines a one-argument constructor function named
// after each atomic type, e.g. xs:date("2024-01-01"), equivalent to a cast
// that accepts the empty sequence.
func constructorFunctions() []*functions.Definition {
	var defs []*functions.Definition
	for _, t := range item.AtomicTypes() {
		if t == item.AnyAtomicType {
			continue
		}
		name := t.Name()
		defs = append(defs, defineNS(name.Namespace, name.Local, item.Optional(t), pure, construct(t), param("arg", optAtomic)))
	}
	return defs
}

func construct(t *item.AtomicType) functions.Impl {
	return func(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
		v := optionalAtomic(args[0])
		if v == nil {
			return item.Empty(), nil
		}
		c, err := item.Cast(v, t)
		if err != nil {
			return nil, err
		}
		return item.Of(c), nil
	}
}
