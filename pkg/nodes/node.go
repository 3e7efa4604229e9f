// Package nodes provides an in-memory implementation of the Metapath node
// model, with loaders for XML, JSON and YAML content.
//
// The mapping from serialized content is schema-less: XML elements with
// child elements become assemblies, leaf elements become fields and
// attributes become flags. In JSON and YAML, objects become assemblies,
// scalars become fields and arrays repeat the member under the same name.
package nodes

import (
	"strconv"
	"strings"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Node is a document, assembly, field or flag node.
type Node struct {
	kind     item.NodeKind
	name     types.QName
	parent   *Node
	flags    []item.NodeItem
	children []item.NodeItem
	value    item.AtomicItem
	uri      string
}

// NewDocument creates an empty document node.
func NewDocument(uri string) *Node {
	return &Node{kind: item.KindDocument, uri: uri}
}

// AddAssembly appends an assembly child and returns it.
func (n *Node) AddAssembly(name types.QName) *Node {
	c := &Node{kind: item.KindAssembly, name: name, parent: n}
	n.children = append(n.children, c)
	return c
}

// AddField appends a field child with an untyped value and returns it.
func (n *Node) AddField(name types.QName, value string) *Node {
	c := &Node{kind: item.KindField, name: name, parent: n, value: item.NewUntypedAtomic(value)}
	n.children = append(n.children, c)
	return c
}

// AddFlag adds a flag with an untyped value and returns it.
func (n *Node) AddFlag(name types.QName, value string) *Node {
	f := &Node{kind: item.KindFlag, name: name, parent: n, value: item.NewUntypedAtomic(value)}
	n.flags = append(n.flags, f)
	return f
}

// SetValue replaces the typed value of a field or flag.
func (n *Node) SetValue(v item.AtomicItem) *Node {
	n.value = v
	return n
}

func (n *Node) ItemType() item.ItemType { return item.NodeType{Kinds: n.kind} }
func (n *Node) Kind() item.NodeKind { return n.kind }
func (n *Node) Name() types.QName { return n.name }
func (n *Node) Children() []item.NodeItem { return n.children }
func (n *Node) Flags() []item.NodeItem { return n.flags }
func (n *Node) Value() item.AtomicItem { return n.value }

// Parent returns the parent node, or nil for the document node.
func (n *Node) Parent() item.NodeItem {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// DocumentURI returns the URI of a document node, "" for other nodes.
func (n *Node) DocumentURI() string {
	if n.kind != item.KindDocument {
		return ""
	}
	return n.uri
}

// BaseURI returns the URI of the document the node belongs to.
func (n *Node) BaseURI() string {
	root := n
	for root.parent != nil {
		root = root.parent
	}
	return root.uri
}

// Path renders the location of the node as an XPath-like path, e.g.
// /catalog/group[2]/@id.
func (n *Node) Path() string {
	if n.parent == nil {
		return "/"
	}
	var parts []string
	for cur := n; cur.parent != nil; cur = cur.parent {
		if cur.kind == item.KindFlag {
			parts = append(parts, "@"+cur.name.Local)
			continue
		}
		pos, count := 0, 0
		for _, s := range cur.parent.children {
			if s.Name() == cur.name {
				count++
				if s == item.NodeItem(cur) {
					pos = count
				}
			}
		}
		seg := cur.name.Local
		if count > 1 {
			seg += "[" + strconv.Itoa(pos) + "]"
		}
		parts = append(parts, seg)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

func (n *Node) String() string {
	switch n.kind {
	case item.KindDocument:
		return "document-node(" + n.uri + ")"
	case item.KindField, item.KindFlag:
		return n.kind.String() + "(" + n.Path() + "=" + n.value.StringValue() + ")"
	}
	return n.kind.String() + "(" + n.Path() + ")"
}
