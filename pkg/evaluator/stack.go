package evaluator

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/sandrolain/gometapath/pkg/types"
)

// ExecutionStack records the expressions being evaluated, innermost last.
// It backs the recursion limit and the stack attached to errors.
type ExecutionStack struct {
	frames []Expr
}

func (s *ExecutionStack) push(e Expr, limit int) error {
	if limit > 0 && len(s.frames) >= limit {
		return types.Errorf(types.ErrRecursionLimit,
			"maximum evaluation depth of %d exceeded", limit).WithToken(e.Text())
	}
	s.frames = append(s.frames, e)
	return nil
}

func (s *ExecutionStack) pop() {
	s.frames[len(s.frames)-1] = nil
	s.frames = s.frames[:len(s.frames)-1]
}

// Depth returns the number of expressions being evaluated.
func (s *ExecutionStack) Depth() int {
	return len(s.frames)
}

// Snapshot renders the stack outermost first, one "Kind 'source'" entry
// per frame.
func (s *ExecutionStack) Snapshot() []string {
	out := make([]string, len(s.frames))
	for i, e := range s.frames {
		out[i] = fmt.Sprintf("%s '%s'", kindName(e), e.Text())
	}
	return out
}

func (s *ExecutionStack) clone() *ExecutionStack {
	return &ExecutionStack{frames: slices.Clone(s.frames)}
}

// kindName is the Go type name of an expression node, e.g. "Path".
func kindName(e Expr) string {
	t := reflect.TypeOf(e)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
