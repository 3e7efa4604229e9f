package item

import (
	"sort"

	"github.com/sandrolain/gometapath/pkg/types"
)

// AtomicType is a node in the atomic type hierarchy rooted at
// xs:anyAtomicType. AtomicType values are singletons and compare by pointer.
type AtomicType struct {
	name   types.QName
	parent *AtomicType
}

func newAtomicType(ns, local string, parent *AtomicType) *AtomicType {
	t := &AtomicType{name: types.NewQName(ns, local), parent: parent}
	atomicTypes[t.name] = t
	return t
}

var atomicTypes = map[types.QName]*AtomicType{}

// Built-in atomic types.
var (
	AnyAtomicType          = newAtomicType(types.NSXMLSchema, "anyAtomicType", nil)
	UntypedAtomicType      = newAtomicType(types.NSXMLSchema, "untypedAtomic", AnyAtomicType)
	StringType             = newAtomicType(types.NSXMLSchema, "string", AnyAtomicType)
	TokenType              = newAtomicType(types.NSMetapath, "token", StringType)
	UUIDType               = newAtomicType(types.NSMetapath, "uuid", StringType)
	AnyURIType             = newAtomicType(types.NSXMLSchema, "anyURI", AnyAtomicType)
	BooleanType            = newAtomicType(types.NSXMLSchema, "boolean", AnyAtomicType)
	DecimalType            = newAtomicType(types.NSXMLSchema, "decimal", AnyAtomicType)
	IntegerType            = newAtomicType(types.NSXMLSchema, "integer", DecimalType)
	NonNegativeIntegerType = newAtomicType(types.NSXMLSchema, "nonNegativeInteger", IntegerType)
	PositiveIntegerType    = newAtomicType(types.NSXMLSchema, "positiveInteger", NonNegativeIntegerType)
	DoubleType             = newAtomicType(types.NSXMLSchema, "double", AnyAtomicType)
	DateType               = newAtomicType(types.NSXMLSchema, "date", AnyAtomicType)
	DateTimeType           = newAtomicType(types.NSXMLSchema, "dateTime", AnyAtomicType)
	DurationType           = newAtomicType(types.NSXMLSchema, "duration", AnyAtomicType)
	DayTimeDurationType    = newAtomicType(types.NSXMLSchema, "dayTimeDuration", DurationType)
	YearMonthDurationType  = newAtomicType(types.NSXMLSchema, "yearMonthDuration", DurationType)
)

// LookupAtomicType returns the built-in atomic type with the given name.
func LookupAtomicType(name types.QName) (*AtomicType, bool) {
	t, ok := atomicTypes[name]
	return t, ok
}

// AtomicTypes returns all built-in atomic types sorted by name.
func AtomicTypes() []*AtomicType {
	out := make([]*AtomicType, 0, len(atomicTypes))
	for _, t := range atomicTypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].name.String() < out[j].name.String()
	})
	return out
}

// Name returns the qualified type name.
func (t *AtomicType) Name() types.QName { return t.name }

// Parent returns the base type, nil for xs:anyAtomicType.
func (t *AtomicType) Parent() *AtomicType { return t.parent }

// DerivesFrom reports whether t is other or one of its subtypes.
func (t *AtomicType) DerivesFrom(other *AtomicType) bool {
	for cur := t; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

// IsNumeric reports whether t is xs:decimal, xs:double or a subtype.
func (t *AtomicType) IsNumeric() bool {
	return t.DerivesFrom(DecimalType) || t == DoubleType
}

// Matches implements ItemType.
func (t *AtomicType) Matches(it Item) bool {
	a, ok := it.(AtomicItem)
	return ok && a.Type().DerivesFrom(t)
}

// SubtypeOf implements ItemType.
func (t *AtomicType) SubtypeOf(other ItemType) bool {
	switch o := other.(type) {
	case anyItemType:
		return true
	case *AtomicType:
		return t.DerivesFrom(o)
	}
	return false
}

func (t *AtomicType) String() string {
	if prefix := wellKnownPrefix(t.name.Namespace); prefix != "" {
		return prefix + ":" + t.name.Local
	}
	return t.name.String()
}

func wellKnownPrefix(ns string) string {
	for prefix, uri := range types.WellKnownNamespaces {
		if uri == ns {
			return prefix
		}
	}
	return ""
}
