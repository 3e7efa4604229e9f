package item

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/sandrolain/gometapath/pkg/types"
)

const decimalPrecision = 34

var (
	// decimalContext is used for xs:decimal and xs:double arithmetic.
	decimalContext = apd.BaseContext.WithPrecision(decimalPrecision)
	// integerContext keeps integer arithmetic exact for any realistic operand.
	integerContext = apd.BaseContext.WithPrecision(1000)
)

// NumericItem is an xs:decimal, xs:double or xs:integer (or integer
// subtype) value. Doubles are carried with decimal semantics.
type NumericItem struct {
	d   *apd.Decimal
	typ *AtomicType
}

// NewInteger returns an xs:integer.
func NewInteger(i int64) NumericItem {
	return NumericItem{d: apd.New(i, 0), typ: IntegerType}
}

// NewDecimal returns an xs:decimal holding d. d must not be modified afterwards.
func NewDecimal(d *apd.Decimal) NumericItem {
	return NumericItem{d: d, typ: DecimalType}
}

// NewIntegerFromDecimal returns an xs:integer holding the integral value d.
func NewIntegerFromDecimal(d *apd.Decimal) (NumericItem, error) {
	if !isIntegral(d) {
		return NumericItem{}, types.Errorf(types.ErrInvalidCastValue, "'%s' is not an integer", formatDecimal(d))
	}
	return NumericItem{d: d, typ: IntegerType}, nil
}

// ParseInteger parses the xs:integer lexical form.
func ParseInteger(s string) (NumericItem, error) {
	if !isIntegerLexical(s) {
		return NumericItem{}, types.Errorf(types.ErrInvalidCastValue, "invalid integer '%s'", s)
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return NumericItem{}, types.Errorf(types.ErrInvalidCastValue, "invalid integer '%s'", s).WithCause(err)
	}
	return NumericItem{d: d, typ: IntegerType}, nil
}

// ParseDecimal parses the xs:decimal lexical form.
func ParseDecimal(s string) (NumericItem, error) {
	if !isDecimalLexical(s) {
		return NumericItem{}, types.Errorf(types.ErrInvalidCastValue, "invalid decimal '%s'", s)
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return NumericItem{}, types.Errorf(types.ErrInvalidCastValue, "invalid decimal '%s'", s).WithCause(err)
	}
	return NumericItem{d: d, typ: DecimalType}, nil
}

// ParseDouble parses the xs:double lexical form. Special values (INF, NaN)
// are not supported.
func ParseDouble(s string) (NumericItem, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil || d.Form != apd.Finite {
		return NumericItem{}, types.Errorf(types.ErrInvalidCastValue, "invalid double '%s'", s)
	}
	return NumericItem{d: d, typ: DoubleType}, nil
}

func (n NumericItem) ItemType() ItemType { return n.typ }
func (n NumericItem) Type() *AtomicType { return n.typ }
func (n NumericItem) StringValue() string { return formatDecimal(n.d) }
func (n NumericItem) String() string { return n.StringValue() }
func (n NumericItem) Decimal() *apd.Decimal { return n.d }

// IsInteger reports whether the value's type is xs:integer or a subtype.
func (n NumericItem) IsInteger() bool {
	return n.typ.DerivesFrom(IntegerType)
}

// Int64 returns the value as an int64, failing for fractional or
// out-of-range values.
func (n NumericItem) Int64() (int64, error) {
	if !isIntegral(n.d) {
		return 0, types.Errorf(types.ErrInvalidType, "'%s' is not an integer", n.StringValue())
	}
	var r apd.Decimal
	if _, _, err := integerContext.Reduce(&r, n.d); err != nil {
		return 0, err
	}
	i, err := r.Int64()
	if err != nil {
		return 0, types.Errorf(types.ErrIntegerTooLarge, "integer '%s' out of range", n.StringValue())
	}
	return i, nil
}

func isIntegral(d *apd.Decimal) bool {
	if d.Form != apd.Finite {
		return false
	}
	if d.Exponent >= 0 || d.IsZero() {
		return true
	}
	var r apd.Decimal
	if _, _, err := integerContext.Reduce(&r, d); err != nil {
		return false
	}
	return r.Exponent >= 0
}

// formatDecimal renders the canonical form: no exponent, no trailing
// fractional zeros, no negative zero.
func formatDecimal(d *apd.Decimal) string {
	if d.IsZero() {
		return "0"
	}
	var r apd.Decimal
	if _, _, err := integerContext.Reduce(&r, d); err != nil {
		return d.Text('f')
	}
	return r.Text('f')
}

func isIntegerLexical(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isDecimalLexical(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			digits++
		case s[i] == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// numericResult builds a result of the given type, checking the bounds of
// the integer subtypes.
func numericResult(d *apd.Decimal, typ *AtomicType) (NumericItem, error) {
	switch typ {
	case NonNegativeIntegerType:
		if d.Sign() < 0 {
			return NumericItem{}, types.Errorf(types.ErrInvalidCastValue, "'%s' is not a non-negative integer", formatDecimal(d))
		}
	case PositiveIntegerType:
		if d.Sign() <= 0 {
			return NumericItem{}, types.Errorf(types.ErrInvalidCastValue, "'%s' is not a positive integer", formatDecimal(d))
		}
	}
	return NumericItem{d: d, typ: typ}, nil
}

// truncate drops the fractional part, rounding toward zero.
func truncate(d *apd.Decimal) (*apd.Decimal, error) {
	r := new(apd.Decimal)
	var err error
	if d.Sign() < 0 {
		_, err = integerContext.Ceil(r, d)
	} else {
		_, err = integerContext.Floor(r, d)
	}
	return r, err
}
