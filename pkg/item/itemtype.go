package item

import "strings"

// ItemType describes a set of items.
type ItemType interface {
	Matches(it Item) bool
	// SubtypeOf reports whether every instance of the type is an instance of other.
	SubtypeOf(other ItemType) bool
	String() string
}

type anyItemType struct{}

// AnyItem is item(), the type of every item.
var AnyItem ItemType = anyItemType{}

func (anyItemType) Matches(Item) bool { return true }

func (anyItemType) SubtypeOf(other ItemType) bool {
	_, ok := other.(anyItemType)
	return ok
}

func (anyItemType) String() string { return "item()" }

// NodeType matches nodes whose kind is in a kind set.
type NodeType struct {
	Kinds NodeKind
}

// Node kind types.
var (
	AnyNode      = NodeType{Kinds: KindDocument | KindAssembly | KindField | KindFlag}
	DocumentNode = NodeType{Kinds: KindDocument}
	ElementNode  = NodeType{Kinds: KindAssembly | KindField}
	AssemblyNode = NodeType{Kinds: KindAssembly}
	FieldNode    = NodeType{Kinds: KindField}
	FlagNode     = NodeType{Kinds: KindFlag}
)

// Matches implements ItemType.
func (t NodeType) Matches(it Item) bool {
	n, ok := it.(NodeItem)
	return ok && n.Kind()&t.Kinds != 0
}

// SubtypeOf implements ItemType.
func (t NodeType) SubtypeOf(other ItemType) bool {
	switch o := other.(type) {
	case anyItemType:
		return true
	case NodeType:
		return t.Kinds&^o.Kinds == 0
	}
	return false
}

func (t NodeType) String() string {
	switch t {
	case AnyNode:
		return "node()"
	case DocumentNode:
		return "document-node()"
	case ElementNode:
		return "element()"
	case AssemblyNode:
		return "assembly()"
	case FieldNode:
		return "field()"
	case FlagNode:
		return "flag()"
	}
	var parts []string
	for _, k := range []NodeKind{KindDocument, KindAssembly, KindField, KindFlag} {
		if t.Kinds&k != 0 {
			parts = append(parts, k.String()+"()")
		}
	}
	return strings.Join(parts, "|")
}

type functionKind uint8

const (
	anyFunctionKind functionKind = iota
	mapKind
	arrayKind
)

// FunctionType matches function items; maps and arrays are function subtypes.
type FunctionType struct {
	kind functionKind
}

// Function item types.
var (
	AnyFunction = FunctionType{kind: anyFunctionKind}
	AnyMap      = FunctionType{kind: mapKind}
	AnyArray    = FunctionType{kind: arrayKind}
)

// Matches implements ItemType.
func (t FunctionType) Matches(it Item) bool {
	switch it.(type) {
	case *MapItem:
		return t.kind != arrayKind
	case *ArrayItem:
		return t.kind != mapKind
	case FunctionItem:
		return t.kind == anyFunctionKind
	}
	return false
}

// SubtypeOf implements ItemType.
func (t FunctionType) SubtypeOf(other ItemType) bool {
	switch o := other.(type) {
	case anyItemType:
		return true
	case FunctionType:
		return o.kind == anyFunctionKind || o.kind == t.kind
	}
	return false
}

func (t FunctionType) String() string {
	switch t.kind {
	case mapKind:
		return "map(*)"
	case arrayKind:
		return "array(*)"
	}
	return "function(*)"
}

// CommonSuperType returns the narrowest type that both a and b are subtypes of.
func CommonSuperType(a, b ItemType) ItemType {
	switch {
	case a.SubtypeOf(b):
		return b
	case b.SubtypeOf(a):
		return a
	}
	switch x := a.(type) {
	case *AtomicType:
		if y, ok := b.(*AtomicType); ok {
			for cur := x; cur != nil; cur = cur.parent {
				if y.DerivesFrom(cur) {
					return cur
				}
			}
		}
	case NodeType:
		if y, ok := b.(NodeType); ok {
			return NodeType{Kinds: x.Kinds | y.Kinds}
		}
	case FunctionType:
		if _, ok := b.(FunctionType); ok {
			return AnyFunction
		}
	}
	return AnyItem
}
