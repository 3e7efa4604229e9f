package evaluator

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Function is the value of an inline function expression. It closes over
// the variables in scope where it was created.
type Function struct {
	def   *InlineFunction
	scope *DynamicContext
	id    string
}

func newFunction(def *InlineFunction, scope *DynamicContext) *Function {
	return &Function{def: def, scope: scope, id: uuid.NewString()}
}

func (f *Function) ItemType() item.ItemType   { return item.AnyFunction }
func (f *Function) FunctionName() types.QName { return types.QName{} }
func (f *Function) Arity() int                { return len(f.def.Params) }
func (f *Function) Identity() string          { return "function@" + f.id }

// Signature renders the declared parameters and result type.
func (f *Function) Signature() string {
	var b strings.Builder
	b.WriteString("function(")
	for i, p := range f.def.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("$" + p.Name.Local + " as " + p.Type.String())
	}
	b.WriteString(") as ")
	b.WriteString(f.def.Result.String())
	return b.String()
}

func (f *Function) String() string { return f.Signature() }

// call binds the converted arguments in the closure scope and evaluates
// the body with the caller's focus. Evaluation uses the caller's stack so
// depth limits and error stacks span the call.
func (f *Function) call(ctx context.Context, caller *DynamicContext, args []item.Sequence, focus Focus) (item.Sequence, error) {
	if len(args) != len(f.def.Params) {
		return nil, arityError(f, len(args))
	}
	scope := f.scope.SubContext()
	scope.stack = caller.stack
	for i, p := range f.def.Params {
		v, err := p.Type.Convert(args[i])
		if err != nil {
			return nil, conversionError(err, "argument $"+p.Name.Local)
		}
		scope = scope.bind(p.key, item.Materialize(v))
	}
	out, err := scope.eval(ctx, f.def.Body, focus)
	if err != nil {
		return nil, err
	}
	out, err = f.def.Result.Convert(out)
	if err != nil {
		return nil, conversionError(err, "the result")
	}
	return out, nil
}

func conversionError(err error, what string) error {
	var ce *types.Error
	if errors.As(err, &ce) {
		return types.Errorf(ce.Code, "%s of inline function: %s", what, ce.Message).WithCause(err)
	}
	return types.Errorf(types.ErrInvalidType, "%s of inline function: %v", what, err).WithCause(err)
}
