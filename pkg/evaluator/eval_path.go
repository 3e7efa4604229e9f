package evaluator

import (
	"context"
	"slices"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

func (dc *DynamicContext) evalRoot(focus Focus) (item.Sequence, error) {
	root, err := documentRoot(focus)
	if err != nil {
		return nil, err
	}
	return item.Of(root), nil
}

func documentRoot(focus Focus) (item.NodeItem, error) {
	n, err := focus.node()
	if err != nil {
		return nil, err
	}
	root := item.Root(n)
	if root.Kind() != item.KindDocument {
		return nil, types.Errorf(types.ErrNoDocumentRoot,
			"the root of the context node is a %s, not a document node", root.Kind())
	}
	return root, nil
}

func (dc *DynamicContext) evalRootPath(ctx context.Context, e *RootPath, focus Focus) (item.Sequence, error) {
	root, err := documentRoot(focus)
	if err != nil {
		return nil, err
	}
	return dc.applyPath(ctx, item.Of(root), e.Descendant, e.Path)
}

func (dc *DynamicContext) evalPath(ctx context.Context, e *Path, focus Focus) (item.Sequence, error) {
	left, err := dc.eval(ctx, e.Left, focus)
	if err != nil {
		return nil, err
	}
	return dc.applyPath(ctx, left, e.Descendant, e.Right)
}

// applyPath evaluates right once for every node of left. When descendant
// is set, left is first expanded to its descendants-or-self.
//
// A result made only of nodes is returned in document order without
// duplicates. A result made only of non-nodes keeps evaluation order.
func (dc *DynamicContext) applyPath(ctx context.Context, left item.Sequence, descendant bool, right Expr) (item.Sequence, error) {
	contexts := make([]item.Item, 0, left.Len())
	for it := range left.All() {
		n, ok := it.(item.NodeItem)
		if !ok {
			return nil, types.Errorf(types.ErrStepOnNonNode,
				"the left side of a path step must be a node, got %s", it.ItemType()).WithToken(right.Text())
		}
		if descendant {
			contexts = append(contexts, n)
			for d := range item.Descendants(n) {
				contexts = append(contexts, d)
			}
			continue
		}
		contexts = append(contexts, n)
	}
	if descendant {
		contexts = nodeItems(sortNodes(contexts))
	}

	var (
		out            []item.Item
		nodes, atomics int
	)
	for i, c := range contexts {
		s, err := dc.eval(ctx, right, Focus{Item: c, Position: i + 1, Size: len(contexts)})
		if err != nil {
			return nil, err
		}
		for it := range s.All() {
			if _, ok := it.(item.NodeItem); ok {
				nodes++
			} else {
				atomics++
			}
			out = append(out, it)
		}
		if nodes > 0 && atomics > 0 {
			return nil, types.NewError(types.ErrMixedPathResult,
				"a path step returned both nodes and non-node items").WithToken(right.Text())
		}
	}
	if atomics > 0 {
		return item.FromSlice(out), nil
	}
	return item.FromSlice(nodeItems(sortNodes(out))), nil
}

// sortNodes sorts a list of nodes in document order and drops duplicates.
func sortNodes(items []item.Item) []item.NodeItem {
	nodes := make([]item.NodeItem, len(items))
	for i, it := range items {
		nodes[i] = it.(item.NodeItem)
	}
	return item.SortDocumentOrder(nodes)
}

func nodeItems(nodes []item.NodeItem) []item.Item {
	out := make([]item.Item, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

// axisNodes lists the nodes of axis from n in axis order: reverse axes
// list the nearest node first.
func axisNodes(axis Axis, n item.NodeItem) []item.NodeItem {
	var out []item.NodeItem
	switch axis {
	case AxisChild:
		return n.Children()
	case AxisFlag:
		return n.Flags()
	case AxisSelf:
		return []item.NodeItem{n}
	case AxisParent:
		if p := n.Parent(); p != nil {
			return []item.NodeItem{p}
		}
		return nil
	case AxisDescendantOrSelf:
		out = append(out, n)
		fallthrough
	case AxisDescendant:
		for d := range item.Descendants(n) {
			out = append(out, d)
		}
	case AxisAncestorOrSelf:
		out = append(out, n)
		fallthrough
	case AxisAncestor:
		for a := range item.Ancestors(n) {
			out = append(out, a)
		}
	case AxisFollowingSibling:
		for s := range item.FollowingSiblings(n) {
			out = append(out, s)
		}
	case AxisPrecedingSibling:
		for s := range item.PrecedingSiblings(n) {
			out = append(out, s)
		}
	case AxisFollowing:
		for f := range item.Following(n) {
			out = append(out, f)
		}
	case AxisPreceding:
		for p := range item.Preceding(n) {
			out = append(out, p)
		}
	}
	return out
}

// evalStep selects the nodes of the step's axis that pass its node test,
// filters them with the predicates in axis order and returns them in
// document order.
func (dc *DynamicContext) evalStep(ctx context.Context, e *Step, focus Focus) (item.Sequence, error) {
	n, err := focus.node()
	if err != nil {
		return nil, err
	}
	candidates := axisNodes(e.Axis, n)
	selected := make([]item.Item, 0, len(candidates))
	for _, c := range candidates {
		if e.Test.Matches(c) {
			selected = append(selected, c)
		}
	}
	selected, err = dc.applyPredicates(ctx, selected, e.Predicates)
	if err != nil {
		return nil, err
	}
	if e.Axis.Reverse() {
		slices.Reverse(selected)
	}
	return item.FromSlice(selected), nil
}

func (dc *DynamicContext) evalFilter(ctx context.Context, e *Filter, focus Focus) (item.Sequence, error) {
	base, err := dc.eval(ctx, e.Base, focus)
	if err != nil {
		return nil, err
	}
	out, err := dc.applyPredicates(ctx, base.Items(), e.Predicates)
	if err != nil {
		return nil, err
	}
	return item.FromSlice(out), nil
}

// applyPredicates filters items through each predicate in turn. A
// predicate yielding a single number keeps the item at that position;
// any other result is reduced to its effective boolean value.
func (dc *DynamicContext) applyPredicates(ctx context.Context, items []item.Item, preds []Expr) ([]item.Item, error) {
	if !dc.session.predicates {
		return items, nil
	}
	for _, p := range preds {
		kept := make([]item.Item, 0, len(items))
		for i, it := range items {
			s, err := dc.eval(ctx, p, Focus{Item: it, Position: i + 1, Size: len(items)})
			if err != nil {
				return nil, err
			}
			keep, err := predicateTruth(s, i+1)
			if err != nil {
				return nil, err
			}
			if keep {
				kept = append(kept, it)
			}
		}
		items = kept
	}
	return items, nil
}

func predicateTruth(s item.Sequence, position int) (bool, error) {
	if s.Len() == 1 {
		if n, ok := s.At(0).(item.NumericItem); ok {
			return item.ValueCompare(item.OpEq, n, item.NewInteger(int64(position)))
		}
	}
	return item.EffectiveBooleanValue(s)
}
