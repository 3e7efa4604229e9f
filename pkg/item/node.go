package item

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/sandrolain/gometapath/pkg/types"
)

// NodeKind is the kind of a node. Kinds are bit flags so that a set of
// kinds can be tested with a mask.
type NodeKind uint8

// Node kinds.
const (
	KindDocument NodeKind = 1 << iota
	KindAssembly
	KindField
	KindFlag
)

func (k NodeKind) String() string {
	switch k {
	case KindDocument:
		return "document-node"
	case KindAssembly:
		return "assembly"
	case KindField:
		return "field"
	case KindFlag:
		return "flag"
	}
	return fmt.Sprintf("NodeKind(%d)", uint8(k))
}

// NodeItem is a node of a Metaschema-style document tree. Documents hold
// one root assembly; assemblies hold flags, fields and assemblies; fields
// hold flags and a value.
//
// Node identity is the identity of the implementation value, so
// implementations must be pointer types.
type NodeItem interface {
	Item
	Kind() NodeKind
	Name() types.QName
	// Parent returns nil for a document node or a detached root.
	Parent() NodeItem
	// Children returns the model children (assemblies and fields) in
	// document order.
	Children() []NodeItem
	Flags() []NodeItem
	// Value returns the typed value of a field or flag, nil otherwise.
	Value() AtomicItem
	DocumentURI() string
	BaseURI() string
}

// NodeStringValue returns the value of a field or flag, or the
// concatenated values of all descendant fields.
func NodeStringValue(n NodeItem) string {
	if v := n.Value(); v != nil {
		return v.StringValue()
	}
	var b strings.Builder
	for d := range Descendants(n) {
		if v := d.Value(); v != nil {
			b.WriteString(v.StringValue())
		}
	}
	return b.String()
}

// Root returns the topmost ancestor-or-self of n.
func Root(n NodeItem) NodeItem {
	for p := n.Parent(); p != nil; p = n.Parent() {
		n = p
	}
	return n
}

// Ancestors yields the ancestors of n, nearest first.
func Ancestors(n NodeItem) iter.Seq[NodeItem] {
	return func(yield func(NodeItem) bool) {
		for p := n.Parent(); p != nil; p = p.Parent() {
			if !yield(p) {
				return
			}
		}
	}
}

// Descendants yields the model descendants of n in document order.
func Descendants(n NodeItem) iter.Seq[NodeItem] {
	return func(yield func(NodeItem) bool) {
		walkDescendants(n, yield)
	}
}

func walkDescendants(n NodeItem, yield func(NodeItem) bool) bool {
	for _, c := range n.Children() {
		if !yield(c) || !walkDescendants(c, yield) {
			return false
		}
	}
	return true
}

// siblings returns the list n belongs to and its index in it.
func siblings(n NodeItem) ([]NodeItem, int) {
	p := n.Parent()
	if p == nil {
		return nil, -1
	}
	list := p.Children()
	if n.Kind() == KindFlag {
		list = p.Flags()
	}
	for i, s := range list {
		if s == n {
			return list, i
		}
	}
	return nil, -1
}

// FollowingSiblings yields the siblings after n in document order. Flags
// have no siblings.
func FollowingSiblings(n NodeItem) iter.Seq[NodeItem] {
	return func(yield func(NodeItem) bool) {
		if n.Kind() == KindFlag {
			return
		}
		list, i := siblings(n)
		if i < 0 {
			return
		}
		for _, s := range list[i+1:] {
			if !yield(s) {
				return
			}
		}
	}
}

// PrecedingSiblings yields the siblings before n, nearest first.
func PrecedingSiblings(n NodeItem) iter.Seq[NodeItem] {
	return func(yield func(NodeItem) bool) {
		if n.Kind() == KindFlag {
			return
		}
		list, i := siblings(n)
		for j := i - 1; j >= 0; j-- {
			if !yield(list[j]) {
				return
			}
		}
	}
}

// Following yields the nodes after n in document order, excluding its
// descendants and flags.
func Following(n NodeItem) iter.Seq[NodeItem] {
	return func(yield func(NodeItem) bool) {
		cur := n
		if n.Kind() == KindFlag {
			cur = n.Parent()
			if cur == nil || !walkDescendants(cur, yield) {
				return
			}
		}
		for ; cur != nil; cur = cur.Parent() {
			for s := range FollowingSiblings(cur) {
				if !yield(s) || !walkDescendants(s, yield) {
					return
				}
			}
		}
	}
}

// Preceding yields the nodes before n, excluding its ancestors, nearest
// first.
func Preceding(n NodeItem) iter.Seq[NodeItem] {
	return func(yield func(NodeItem) bool) {
		cur := n
		if n.Kind() == KindFlag {
			cur = n.Parent()
		}
		for ; cur != nil; cur = cur.Parent() {
			for s := range PrecedingSiblings(cur) {
				subtree := append([]NodeItem{s}, slices.Collect(Descendants(s))...)
				for i := len(subtree) - 1; i >= 0; i-- {
					if !yield(subtree[i]) {
						return
					}
				}
			}
		}
	}
}

// ordinalPath locates n from its root: flags are numbered before children.
func ordinalPath(n NodeItem) []int {
	var path []int
	for p := n.Parent(); p != nil; n, p = p, p.Parent() {
		_, i := siblings(n)
		if n.Kind() != KindFlag {
			i += len(p.Flags())
		}
		path = append(path, i)
	}
	slices.Reverse(path)
	return path
}

// DocumentOrder compares the positions of two nodes. Nodes of different
// trees are ordered by document URI and then arbitrarily but stably.
func DocumentOrder(a, b NodeItem) int {
	if a == b {
		return 0
	}
	ra, rb := Root(a), Root(b)
	if ra != rb {
		if c := strings.Compare(ra.DocumentURI(), rb.DocumentURI()); c != 0 {
			return c
		}
		return strings.Compare(fmt.Sprintf("%p", ra), fmt.Sprintf("%p", rb))
	}
	return slices.Compare(ordinalPath(a), ordinalPath(b))
}

// SortDocumentOrder sorts nodes into document order and removes duplicates.
func SortDocumentOrder(nodes []NodeItem) []NodeItem {
	slices.SortStableFunc(nodes, DocumentOrder)
	return slices.CompactFunc(nodes, func(a, b NodeItem) bool { return a == b })
}
