package types

import (
	"errors"
	"fmt"
	"strings"
)

// Family identifies the error family prefix of a Metapath error code.
type Family string

// Error families.
const (
	FamilyStatic     Family = "MPST" // static (compile-time) errors
	FamilyDynamic    Family = "MPDY" // dynamic (evaluation) errors
	FamilyType       Family = "MPTY" // type errors
	FamilyArithmetic Family = "FOAR"
	FamilyCast       Family = "FOCA"
	FamilyArgument   Family = "FORG"
	FamilyArray      Family = "FOAY"
	FamilyDocument   Family = "FODC"
	FamilyFunction   Family = "FOTY"
	FamilyRegex      Family = "FORX"
	FamilyCharacter  Family = "FOCH"
	FamilyDateTime   Family = "FODT"
)

// ErrorCode is a family plus a numeric code. It renders as the family
// prefix followed by a zero-padded four digit number, e.g. "MPST0003".
type ErrorCode struct {
	Family Family
	Code   int
}

func (c ErrorCode) String() string {
	return fmt.Sprintf("%s%04d", c.Family, c.Code)
}

// Static errors.
var (
	ErrInvalidPathGrammar       = ErrorCode{FamilyStatic, 3}
	ErrNotDefined               = ErrorCode{FamilyStatic, 8}
	ErrAxisNamespaceUnsupported = ErrorCode{FamilyStatic, 10}
	ErrNoFunctionMatch          = ErrorCode{FamilyStatic, 17}
	ErrUnknownType              = ErrorCode{FamilyStatic, 51}
	ErrCastUnknownType          = ErrorCode{FamilyStatic, 52}
	ErrNamespaceMisuse          = ErrorCode{FamilyStatic, 70}
	ErrCastAnyAtomic            = ErrorCode{FamilyStatic, 80}
	ErrPrefixNotExpandable      = ErrorCode{FamilyStatic, 81}
	ErrDuplicateParameter       = ErrorCode{FamilyStatic, 134}
)

// Dynamic errors.
var (
	ErrContextAbsent     = ErrorCode{FamilyDynamic, 2}
	ErrTreatMismatch     = ErrorCode{FamilyDynamic, 50}
	ErrNoDocumentRoot    = ErrorCode{FamilyDynamic, 51}
	ErrRecursionLimit    = ErrorCode{FamilyDynamic, 100}
	ErrDuplicateMapKey   = ErrorCode{FamilyDynamic, 137}
	ErrNotAFunctionValue = ErrorCode{FamilyDynamic, 138}
)

// Type errors.
var (
	ErrInvalidType        = ErrorCode{FamilyType, 4}
	ErrMixedPathResult    = ErrorCode{FamilyType, 18}
	ErrStepOnNonNode      = ErrorCode{FamilyType, 19}
	ErrContextNotNode     = ErrorCode{FamilyType, 20}
	ErrFunctionArityMatch = ErrorCode{FamilyType, 117}
)

// Function library errors.
var (
	ErrDivisionByZero        = ErrorCode{FamilyArithmetic, 1}
	ErrNumericOverflow       = ErrorCode{FamilyArithmetic, 2}
	ErrInvalidCastValue      = ErrorCode{FamilyArgument, 1}
	ErrInvalidURIArgument    = ErrorCode{FamilyArgument, 2}
	ErrZeroOrOne             = ErrorCode{FamilyArgument, 3}
	ErrOneOrMore             = ErrorCode{FamilyArgument, 4}
	ErrExactlyOne            = ErrorCode{FamilyArgument, 5}
	ErrInvalidArgumentType   = ErrorCode{FamilyArgument, 6}
	ErrNoBaseURI             = ErrorCode{FamilyArgument, 9}
	ErrInvalidLexicalValue   = ErrorCode{FamilyCast, 2}
	ErrIntegerTooLarge       = ErrorCode{FamilyCast, 3}
	ErrArrayIndexOutOfBounds = ErrorCode{FamilyArray, 1}
	ErrNegativeArrayLength   = ErrorCode{FamilyArray, 2}
	ErrRetrievingResource    = ErrorCode{FamilyDocument, 2}
	ErrInvalidDocumentURI    = ErrorCode{FamilyDocument, 5}
	ErrNodeHasNoTypedValue   = ErrorCode{FamilyFunction, 12}
	ErrAtomizeFunction       = ErrorCode{FamilyFunction, 13}
	ErrInvalidRegexFlags     = ErrorCode{FamilyRegex, 1}
	ErrInvalidRegex          = ErrorCode{FamilyRegex, 2}
	ErrRegexMatchesEmpty     = ErrorCode{FamilyRegex, 3}
	ErrUnsupportedNormalize  = ErrorCode{FamilyCharacter, 3}
	ErrInvalidTimezone       = ErrorCode{FamilyDateTime, 3}
)

// Error is a coded Metapath error.
//
// Position is the byte offset into the expression source, or -1 when
// unknown. Expression and Stack are filled in once, when the error leaves
// the top-level evaluation.
type Error struct {
	Code       ErrorCode
	Message    string
	Position   int
	Token      string
	Expression string
	Stack      []string
	Err        error
}

// NewError creates a new coded error with no position.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Position: -1,
	}
}

// Errorf creates a new coded error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Detail renders the error with its position, the failing expression and
// the execution stack captured when it was raised, outermost first.
func (e *Error) Detail() string {
	var b strings.Builder
	if e.Expression != "" {
		fmt.Fprintf(&b, "An error occurred while evaluating the expression '%s'. ", e.Expression)
	}
	b.WriteString(e.Error())
	if e.Position >= 0 {
		fmt.Fprintf(&b, " (at position %d)", e.Position)
	}
	for _, frame := range e.Stack {
		b.WriteString("\n  at ")
		b.WriteString(frame)
	}
	return b.String()
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithToken adds token information to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithPosition sets the source offset.
func (e *Error) WithPosition(pos int) *Error {
	e.Position = pos
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return ErrorCode{}, false
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
