package item

import "github.com/sandrolain/gometapath/pkg/types"

// Occurrence is the cardinality indicator of a sequence type.
type Occurrence uint8

// Occurrence indicators.
const (
	ExactlyOne Occurrence = iota
	ZeroOrOne
	ZeroOrMore
	OneOrMore
)

func (o Occurrence) String() string {
	switch o {
	case ZeroOrOne:
		return "?"
	case ZeroOrMore:
		return "*"
	case OneOrMore:
		return "+"
	}
	return ""
}

// Allows reports whether a sequence of n items satisfies the occurrence.
func (o Occurrence) Allows(n int) bool {
	switch o {
	case ExactlyOne:
		return n == 1
	case ZeroOrOne:
		return n <= 1
	case OneOrMore:
		return n >= 1
	}
	return true
}

// SequenceType is an item type plus an occurrence, or the empty sequence type.
type SequenceType struct {
	Item       ItemType
	Occurrence Occurrence
	Empty      bool
}

// Common sequence types.
var (
	AnySequence       = SequenceType{Item: AnyItem, Occurrence: ZeroOrMore}
	EmptySequenceType = SequenceType{Empty: true}
)

// One is the sequence type of exactly one t.
func One(t ItemType) SequenceType { return SequenceType{Item: t, Occurrence: ExactlyOne} }

// Optional is the sequence type t?.
func Optional(t ItemType) SequenceType { return SequenceType{Item: t, Occurrence: ZeroOrOne} }

// Many is the sequence type t*.
func Many(t ItemType) SequenceType { return SequenceType{Item: t, Occurrence: ZeroOrMore} }

// AtLeastOne is the sequence type t+.
func AtLeastOne(t ItemType) SequenceType { return SequenceType{Item: t, Occurrence: OneOrMore} }

func (st SequenceType) String() string {
	if st.Empty {
		return "empty-sequence()"
	}
	return st.Item.String() + st.Occurrence.String()
}

// Matches reports whether s is an instance of st.
func (st SequenceType) Matches(s Sequence) bool {
	if st.Empty {
		return s.IsEmpty()
	}
	if !st.Occurrence.Allows(s.Len()) {
		return false
	}
	for it := range s.All() {
		if !st.Item.Matches(it) {
			return false
		}
	}
	return true
}

// Convert applies the function conversion rules to a value bound to a
// parameter or returned from a function of type st: atomization when an
// atomic type is expected, casting of untyped values, numeric and URI
// promotion, and a final occurrence and type check.
func (st SequenceType) Convert(s Sequence) (Sequence, error) {
	if st.Empty {
		if !s.IsEmpty() {
			return nil, types.Errorf(types.ErrInvalidType, "expected an empty sequence, got %d items", s.Len())
		}
		return s, nil
	}
	if target, ok := st.Item.(*AtomicType); ok {
		atomized, err := Atomize(s)
		if err != nil {
			return nil, err
		}
		if s, err = promote(atomized, target); err != nil {
			return nil, err
		}
	}
	if !st.Occurrence.Allows(s.Len()) {
		return nil, types.Errorf(types.ErrInvalidType, "expected %s, got %d items", st, s.Len())
	}
	for it := range s.All() {
		if !st.Item.Matches(it) {
			return nil, types.Errorf(types.ErrInvalidType, "expected %s, got %s", st, it.ItemType())
		}
	}
	return s, nil
}

func promote(s Sequence, target *AtomicType) (Sequence, error) {
	var out []Item
	for i, it := range s.Items() {
		a := it.(AtomicItem)
		converted := a
		var err error
		switch {
		case a.Type().DerivesFrom(target):
		case a.Type() == UntypedAtomicType && target != AnyAtomicType:
			converted, err = Cast(a, target)
		case target == DecimalType && a.Type() == DoubleType,
			target == DoubleType && a.Type().IsNumeric(),
			target == StringType && a.Type() == AnyURIType:
			converted, err = Cast(a, target)
		}
		if err != nil {
			return nil, err
		}
		if converted != a && out == nil {
			out = append(make([]Item, 0, s.Len()), s.Items()[:i]...)
		}
		if out != nil {
			out = append(out, converted)
		}
	}
	if out == nil {
		return s, nil
	}
	return Of(out...), nil
}
