// Package item implements the Metapath data model: atomic values, nodes,
// functions, maps and arrays, and the sequences that hold them.
//
// Items and sequences are immutable once constructed and may be shared
// freely between goroutines.
package item

import "github.com/sandrolain/gometapath/pkg/types"

// Item is a member of a sequence.
type Item interface {
	// ItemType returns the most specific type the item is an instance of.
	ItemType() ItemType
}

// AtomicItem is an atomic value.
type AtomicItem interface {
	Item
	Type() *AtomicType
	// StringValue returns the canonical lexical form.
	StringValue() string
}

// FunctionItem is a callable item. Maps and arrays are function items too.
type FunctionItem interface {
	Item
	// FunctionName is the zero QName for anonymous functions.
	FunctionName() types.QName
	Arity() int
	// Identity distinguishes function instances for result caching.
	Identity() string
}
