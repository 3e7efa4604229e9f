package item

import (
	"fmt"
	"iter"
	"time"

	"github.com/sandrolain/gometapath/pkg/types"
)

// MapEntry is a key/value pair used to build maps.
type MapEntry struct {
	Key   AtomicItem
	Value Sequence
}

type mapEntry struct {
	key   AtomicItem
	value CollectionValue
}

// MapItem is an immutable map keyed by atomic values. Keys are matched
// with same-key semantics: numerics by value regardless of type and
// string-like values by their string. Iteration follows insertion order.
type MapItem struct {
	entries map[string]mapEntry
	order   []string
}

// NewMap builds a map. Duplicate keys are an error.
func NewMap(entries ...MapEntry) (*MapItem, error) {
	m := &MapItem{entries: make(map[string]mapEntry, len(entries))}
	for _, e := range entries {
		k := sameKey(e.Key)
		if _, dup := m.entries[k]; dup {
			return nil, types.Errorf(types.ErrDuplicateMapKey, "duplicate map key '%s'", e.Key.StringValue())
		}
		m.entries[k] = mapEntry{key: e.Key, value: ToCollectionValue(e.Value)}
		m.order = append(m.order, k)
	}
	return m, nil
}

func (m *MapItem) ItemType() ItemType { return AnyMap }
func (m *MapItem) FunctionName() types.QName { return types.QName{} }
func (m *MapItem) Arity() int { return 1 }
func (m *MapItem) Identity() string { return fmt.Sprintf("map@%p", m) }
func (m *MapItem) Size() int { return len(m.order) }

// Get returns the value for key.
func (m *MapItem) Get(key AtomicItem) (Sequence, bool) {
	e, ok := m.entries[sameKey(key)]
	if !ok {
		return empty, false
	}
	return e.value.AsSequence(), true
}

// Contains reports whether key is present.
func (m *MapItem) Contains(key AtomicItem) bool {
	_, ok := m.entries[sameKey(key)]
	return ok
}

// Keys returns the keys in insertion order.
func (m *MapItem) Keys() []AtomicItem {
	keys := make([]AtomicItem, len(m.order))
	for i, k := range m.order {
		keys[i] = m.entries[k].key
	}
	return keys
}

// All yields entries in insertion order.
func (m *MapItem) All() iter.Seq2[AtomicItem, Sequence] {
	return func(yield func(AtomicItem, Sequence) bool) {
		for _, k := range m.order {
			e := m.entries[k]
			if !yield(e.key, e.value.AsSequence()) {
				return
			}
		}
	}
}

// Put returns a copy of m with key bound to value.
func (m *MapItem) Put(key AtomicItem, value Sequence) *MapItem {
	out := m.clone()
	k := sameKey(key)
	if _, ok := out.entries[k]; !ok {
		out.order = append(out.order, k)
	}
	out.entries[k] = mapEntry{key: key, value: ToCollectionValue(value)}
	return out
}

// Remove returns a copy of m without key.
func (m *MapItem) Remove(key AtomicItem) *MapItem {
	k := sameKey(key)
	if _, ok := m.entries[k]; !ok {
		return m
	}
	out := m.clone()
	delete(out.entries, k)
	out.order = out.order[:0]
	for _, o := range m.order {
		if o != k {
			out.order = append(out.order, o)
		}
	}
	return out
}

func (m *MapItem) clone() *MapItem {
	out := &MapItem{
		entries: make(map[string]mapEntry, len(m.entries)+1),
		order:   make([]string, len(m.order), len(m.order)+1),
	}
	for k, v := range m.entries {
		out.entries[k] = v
	}
	copy(out.order, m.order)
	return out
}

func (m *MapItem) String() string {
	s := "map{"
	for i, k := range m.order {
		if i > 0 {
			s += ", "
		}
		e := m.entries[k]
		s += fmt.Sprintf("%s: %s", e.key.StringValue(), formatItems(e.value.AsSequence().Items()))
	}
	return s + "}"
}

func sameKey(k AtomicItem) string {
	switch v := k.(type) {
	case NumericItem:
		return "n:" + formatDecimal(v.d)
	case StringItem:
		return "s:" + v.value
	case BooleanItem:
		return "b:" + v.StringValue()
	case DateTimeItem:
		return v.typ.name.Local + ":" + v.t.UTC().Format(time.RFC3339Nano)
	case DurationItem:
		return fmt.Sprintf("d:%d:%d", v.months, v.dur)
	}
	return k.Type().String() + ":" + k.StringValue()
}
