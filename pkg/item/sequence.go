package item

import (
	"iter"
	"strconv"
	"strings"
	"sync"

	"github.com/sandrolain/gometapath/pkg/types"
)

// Sequence is an ordered list of items. Empty, singleton, list and
// stream-backed sequences behave identically; the representation is an
// optimization only.
type Sequence interface {
	CollectionValue
	Len() int
	IsEmpty() bool
	// At returns the item at 0-based index i.
	At(i int) Item
	// Items returns the items. The slice must not be modified.
	Items() []Item
	All() iter.Seq[Item]
}

// CollectionValue is the value of a map entry or array member: a single
// item or a sequence.
type CollectionValue interface {
	AsSequence() Sequence
}

type emptySequence struct{}

var empty Sequence = emptySequence{}

// Empty returns the empty sequence.
func Empty() Sequence { return empty }

func (emptySequence) AsSequence() Sequence { return empty }
func (emptySequence) Len() int { return 0 }
func (emptySequence) IsEmpty() bool { return true }
func (emptySequence) At(int) Item { panic("item: index out of range on empty sequence") }
func (emptySequence) Items() []Item { return nil }
func (emptySequence) All() iter.Seq[Item] { return func(func(Item) bool) {} }
func (emptySequence) String() string { return "()" }

type singleton struct {
	item Item
}

func (s singleton) AsSequence() Sequence { return s }
func (s singleton) Len() int { return 1 }
func (s singleton) IsEmpty() bool { return false }
func (s singleton) Items() []Item { return []Item{s.item} }
func (s singleton) String() string { return formatItems(s.Items()) }

func (s singleton) At(i int) Item {
	if i != 0 {
		panic("item: index out of range on singleton sequence")
	}
	return s.item
}

func (s singleton) All() iter.Seq[Item] {
	return func(yield func(Item) bool) { yield(s.item) }
}

type list []Item

func (l list) AsSequence() Sequence { return l }
func (l list) Len() int { return len(l) }
func (l list) IsEmpty() bool { return len(l) == 0 }
func (l list) At(i int) Item { return l[i] }
func (l list) Items() []Item { return l }
func (l list) String() string { return formatItems(l) }

func (l list) All() iter.Seq[Item] {
	return func(yield func(Item) bool) {
		for _, it := range l {
			if !yield(it) {
				return
			}
		}
	}
}

// lazy is backed by a producer that runs at most once, on first access.
type lazy struct {
	once  sync.Once
	next  iter.Seq[Item]
	items []Item
}

func (l *lazy) force() []Item {
	l.once.Do(func() {
		for it := range l.next {
			l.items = append(l.items, it)
		}
		l.next = nil
	})
	return l.items
}

func (l *lazy) AsSequence() Sequence { return l }
func (l *lazy) Len() int { return len(l.force()) }
func (l *lazy) IsEmpty() bool { return len(l.force()) == 0 }
func (l *lazy) At(i int) Item { return l.force()[i] }
func (l *lazy) Items() []Item { return l.force() }
func (l *lazy) All() iter.Seq[Item] { return list(l.force()).All() }
func (l *lazy) String() string { return formatItems(l.force()) }

// Of returns a sequence of the given items.
func Of(items ...Item) Sequence {
	switch len(items) {
	case 0:
		return empty
	case 1:
		return singleton{item: items[0]}
	}
	return list(items)
}

// FromSlice returns a sequence that takes ownership of items.
func FromSlice(items []Item) Sequence {
	return Of(items...)
}

// FromIter returns a stream-backed sequence. The producer is consumed once,
// the first time the sequence is accessed.
func FromIter(next iter.Seq[Item]) Sequence {
	return &lazy{next: next}
}

// Materialize forces stream-backed sequences into a list.
func Materialize(s Sequence) Sequence {
	if l, ok := s.(*lazy); ok {
		return Of(l.force()...)
	}
	return s
}

// Concat joins sequences in order.
func Concat(seqs ...Sequence) Sequence {
	var out []Item
	for _, s := range seqs {
		out = append(out, s.Items()...)
	}
	return Of(out...)
}

// ToCollectionValue normalizes s for storage in a map or array.
func ToCollectionValue(s Sequence) CollectionValue {
	switch s.Len() {
	case 0:
		return empty
	case 1:
		return singleton{item: s.At(0)}
	}
	return Materialize(s)
}

// FirstItem returns the first item, or nil for an empty sequence. With
// requireSingleton set, a sequence of more than one item is a type error.
func FirstItem(s Sequence, requireSingleton bool) (Item, error) {
	if s.IsEmpty() {
		return nil, nil
	}
	if requireSingleton && s.Len() > 1 {
		return nil, types.Errorf(types.ErrInvalidType, "expected at most one item, got %d", s.Len())
	}
	return s.At(0), nil
}

// Atomize replaces each item by its typed value. A sequence that is
// already atomic is returned unchanged.
func Atomize(s Sequence) (Sequence, error) {
	atomic := true
	for it := range s.All() {
		if _, ok := it.(AtomicItem); !ok {
			atomic = false
			break
		}
	}
	if atomic {
		return s, nil
	}
	out := make([]Item, 0, s.Len())
	var err error
	for it := range s.All() {
		if out, err = appendAtomized(out, it); err != nil {
			return nil, err
		}
	}
	return Of(out...), nil
}

// AtomizeItem atomizes a single item, which must yield at most one value.
func AtomizeItem(it Item) (AtomicItem, error) {
	out, err := appendAtomized(nil, it)
	if err != nil {
		return nil, err
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].(AtomicItem), nil
	}
	return nil, types.Errorf(types.ErrInvalidType, "atomized value has %d items", len(out))
}

func appendAtomized(dst []Item, it Item) ([]Item, error) {
	switch v := it.(type) {
	case AtomicItem:
		return append(dst, v), nil
	case NodeItem:
		tv := v.Value()
		if tv == nil {
			if v.Kind() == KindAssembly || v.Kind() == KindDocument {
				return append(dst, NewUntypedAtomic(NodeStringValue(v))), nil
			}
			return nil, types.Errorf(types.ErrNodeHasNoTypedValue, "node %s has no typed value", v.Name())
		}
		return append(dst, tv), nil
	case *ArrayItem:
		var err error
		for _, m := range v.members {
			for member := range m.AsSequence().All() {
				if dst, err = appendAtomized(dst, member); err != nil {
					return nil, err
				}
			}
		}
		return dst, nil
	}
	return nil, types.Errorf(types.ErrAtomizeFunction, "cannot atomize %s", it.ItemType())
}

// EffectiveBooleanValue computes the boolean value of a sequence: false for
// the empty sequence, true for a sequence starting with a node, and the
// truthiness of a single boolean, string or numeric item. Anything else is
// an error.
func EffectiveBooleanValue(s Sequence) (bool, error) {
	if s.IsEmpty() {
		return false, nil
	}
	first := s.At(0)
	if _, ok := first.(NodeItem); ok {
		return true, nil
	}
	if s.Len() == 1 {
		switch v := first.(type) {
		case BooleanItem:
			return bool(v), nil
		case StringItem:
			return v.value != "", nil
		case NumericItem:
			return !v.d.IsZero(), nil
		}
	}
	return false, types.Errorf(types.ErrInvalidArgumentType, "effective boolean value is not defined for %s", describe(s))
}

func describe(s Sequence) string {
	if s.Len() == 1 {
		return "a value of type " + s.At(0).ItemType().String()
	}
	return "a sequence of " + strconv.Itoa(s.Len()) + " items"
}

// StringValue returns the string value of an item: the lexical form of an
// atomic value or the string value of a node.
func StringValue(it Item) (string, error) {
	switch v := it.(type) {
	case AtomicItem:
		return v.StringValue(), nil
	case NodeItem:
		return NodeStringValue(v), nil
	}
	return "", types.Errorf(types.ErrAtomizeFunction, "%s has no string value", it.ItemType())
}

func formatItems(items []Item) string {
	parts := make([]string, len(items))
	for i, it := range items {
		if s, ok := it.(interface{ String() string }); ok {
			parts[i] = s.String()
		} else {
			parts[i] = it.ItemType().String()
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
