package item

import (
	"fmt"
	"strings"

	"github.com/sandrolain/gometapath/pkg/types"
)

// ArrayItem is an immutable array whose members are sequences. Member
// positions are 1-based.
type ArrayItem struct {
	members []CollectionValue
}

// NewArray builds an array with one member per sequence.
func NewArray(members ...Sequence) *ArrayItem {
	a := &ArrayItem{members: make([]CollectionValue, len(members))}
	for i, m := range members {
		a.members[i] = ToCollectionValue(m)
	}
	return a
}

func (a *ArrayItem) ItemType() ItemType { return AnyArray }
func (a *ArrayItem) FunctionName() types.QName { return types.QName{} }
func (a *ArrayItem) Arity() int { return 1 }
func (a *ArrayItem) Identity() string { return fmt.Sprintf("array@%p", a) }
func (a *ArrayItem) Size() int { return len(a.members) }

// Get returns the member at 1-based position.
func (a *ArrayItem) Get(position int) (Sequence, error) {
	if position < 1 || position > len(a.members) {
		return nil, types.Errorf(types.ErrArrayIndexOutOfBounds, "array index %d out of bounds (1 to %d)", position, len(a.members))
	}
	return a.members[position-1].AsSequence(), nil
}

// Members returns the members in order.
func (a *ArrayItem) Members() []Sequence {
	out := make([]Sequence, len(a.members))
	for i, m := range a.members {
		out[i] = m.AsSequence()
	}
	return out
}

// Put returns a copy of a with the member at position replaced.
func (a *ArrayItem) Put(position int, value Sequence) (*ArrayItem, error) {
	if position < 1 || position > len(a.members) {
		return nil, types.Errorf(types.ErrArrayIndexOutOfBounds, "array index %d out of bounds (1 to %d)", position, len(a.members))
	}
	out := &ArrayItem{members: append([]CollectionValue(nil), a.members...)}
	out.members[position-1] = ToCollectionValue(value)
	return out, nil
}

// Append returns a copy of a with value added as its last member.
func (a *ArrayItem) Append(value Sequence) *ArrayItem {
	members := make([]CollectionValue, len(a.members), len(a.members)+1)
	copy(members, a.members)
	return &ArrayItem{members: append(members, ToCollectionValue(value))}
}

// Subarray returns length members starting at 1-based start.
func (a *ArrayItem) Subarray(start, length int) (*ArrayItem, error) {
	if length < 0 {
		return nil, types.Errorf(types.ErrNegativeArrayLength, "negative array length %d", length)
	}
	if start < 1 || start+length-1 > len(a.members) {
		return nil, types.Errorf(types.ErrArrayIndexOutOfBounds, "array index %d out of bounds (1 to %d)", start, len(a.members))
	}
	return &ArrayItem{members: append([]CollectionValue(nil), a.members[start-1:start-1+length]...)}, nil
}

func (a *ArrayItem) String() string {
	parts := make([]string, len(a.members))
	for i, m := range a.members {
		s := m.AsSequence()
		if s.Len() == 1 {
			parts[i] = strings.Trim(formatItems(s.Items()), "()")
		} else {
			parts[i] = formatItems(s.Items())
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
