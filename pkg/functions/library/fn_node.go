package library

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

func nodeFunctions() []*functions.Definition {
	arg := param("arg", optNode)
	return []*functions.Definition{
		define("name", oneString, focusDep, fnName),
		define("name", oneString, pure, fnName, arg),
		define("local-name", oneString, focusDep, fnName),
		define("local-name", oneString, pure, fnName, arg),
		define("namespace-uri", item.One(item.AnyURIType), focusDep, fnNamespaceURI),
		define("namespace-uri", item.One(item.AnyURIType), pure, fnNamespaceURI, arg),
		define("root", optNode, focusDep, fnRoot),
		define("root", optNode, pure, fnRoot, arg),
		define("path", optString, focusDep, fnPath),
		define("path", optString, pure, fnPath, arg),
		define("has-children", oneBoolean, focusDep, fnHasChildren),
		define("has-children", oneBoolean, pure, fnHasChildren, arg),
		define("innermost", nodeSeq, pure, fnInnermost, param("nodes", nodeSeq)),
		define("outermost", nodeSeq, pure, fnOutermost, param("nodes", nodeSeq)),
	}
}

// fnName implements both fn:name and fn:local-name. Metaschema model
// names carry no prefix, so the two agree.
func fnName(_ context.Context, _ functions.Context, args []item.Sequence, focus item.Item) (item.Sequence, error) {
	n, err := nodeArgOrFocus(args, focus)
	if err != nil || n == nil {
		return stringResult(""), err
	}
	return stringResult(n.Name().Local), nil
}

func fnNamespaceURI(_ context.Context, _ functions.Context, args []item.Sequence, focus item.Item) (item.Sequence, error) {
	n, err := nodeArgOrFocus(args, focus)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return item.Of(item.NewAnyURI("")), nil
	}
	return item.Of(item.NewAnyURI(n.Name().Namespace)), nil
}

func fnRoot(_ context.Context, _ functions.Context, args []item.Sequence, focus item.Item) (item.Sequence, error) {
	n, err := nodeArgOrFocus(args, focus)
	if err != nil || n == nil {
		return item.Empty(), err
	}
	return item.Of(item.Root(n)), nil
}

// fnPath renders the location of a node as a path of positional steps
// from its root, e.g. /Q{ns}catalog[1]/Q{ns}group[2]/@id.
func fnPath(_ context.Context, _ functions.Context, args []item.Sequence, focus item.Item) (item.Sequence, error) {
	n, err := nodeArgOrFocus(args, focus)
	if err != nil || n == nil {
		return item.Empty(), err
	}
	var steps []string
	for cur := n; cur.Parent() != nil; cur = cur.Parent() {
		steps = append(steps, pathStep(cur))
	}
	slices.Reverse(steps)
	path := "/" + strings.Join(steps, "/")
	if item.Root(n).Kind() != item.KindDocument {
		path = "Q{" + types.NSMetapathFunctions + "}root()" + strings.TrimSuffix(path, "/")
	}
	return stringResult(path), nil
}

func pathStep(n item.NodeItem) string {
	name := n.Name()
	label := name.Local
	if name.Namespace != "" {
		label = "Q{" + name.Namespace + "}" + name.Local
	}
	if n.Kind() == item.KindFlag {
		return "@" + label
	}
	pos := 1
	for s := range item.PrecedingSiblings(n) {
		if s.Name() == name {
			pos++
		}
	}
	return fmt.Sprintf("%s[%d]", label, pos)
}

func fnHasChildren(_ context.Context, _ functions.Context, args []item.Sequence, focus item.Item) (item.Sequence, error) {
	n, err := nodeArgOrFocus(args, focus)
	if err != nil || n == nil {
		return boolResult(false), err
	}
	return boolResult(len(n.Children()) > 0), nil
}

func nodeList(s item.Sequence) []item.NodeItem {
	out := make([]item.NodeItem, 0, s.Len())
	for it := range s.All() {
		out = append(out, it.(item.NodeItem))
	}
	return item.SortDocumentOrder(out)
}

func nodeSequence(ns []item.NodeItem) item.Sequence {
	out := make([]item.Item, len(ns))
	for i, n := range ns {
		out[i] = n
	}
	return item.FromSlice(out)
}

func isAncestor(a, n item.NodeItem) bool {
	for p := range item.Ancestors(n) {
		if p == a {
			return true
		}
	}
	return false
}

// fnInnermost keeps the nodes that are not an ancestor of another node in
// the input.
func fnInnermost(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	ns := nodeList(args[0])
	out := slices.DeleteFunc(slices.Clone(ns), func(a item.NodeItem) bool {
		return slices.ContainsFunc(ns, func(n item.NodeItem) bool { return isAncestor(a, n) })
	})
	return nodeSequence(out), nil
}

// fnOutermost keeps the nodes that have no ancestor in the input.
func fnOutermost(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	ns := nodeList(args[0])
	out := slices.DeleteFunc(slices.Clone(ns), func(n item.NodeItem) bool {
		return slices.ContainsFunc(ns, func(a item.NodeItem) bool { return isAncestor(a, n) })
	})
	return nodeSequence(out), nil
}
