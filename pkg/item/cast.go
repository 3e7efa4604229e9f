package item

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/sandrolain/gometapath/pkg/types"
)

var tokenPattern = regexp.MustCompile(`^(\p{L}|_)(\p{L}|\p{N}|[.\-_])*$`)

// Cast converts v to the target atomic type.
//
// Unsupported source/target combinations fail with a type error; lexical
// failures fail with an invalid cast value error.
func Cast(v AtomicItem, target *AtomicType) (AtomicItem, error) {
	if target == AnyAtomicType {
		return nil, types.NewError(types.ErrCastAnyAtomic, "cannot cast to xs:anyAtomicType")
	}
	if v.Type() == target {
		return v, nil
	}
	if s, ok := v.(StringItem); ok && target != StringType && target != UntypedAtomicType {
		return castFromString(strings.TrimSpace(s.value), target)
	}

	switch target {
	case StringType:
		return NewString(v.StringValue()), nil
	case UntypedAtomicType:
		return NewUntypedAtomic(v.StringValue()), nil
	case BooleanType:
		if n, ok := v.(NumericItem); ok {
			return NewBoolean(!n.d.IsZero()), nil
		}
	case DecimalType, DoubleType, IntegerType, NonNegativeIntegerType, PositiveIntegerType:
		return castToNumeric(v, target)
	case DateType:
		if d, ok := v.(DateTimeItem); ok {
			y, m, day := d.t.Date()
			return DateTimeItem{t: time.Date(y, m, day, 0, 0, 0, 0, d.t.Location()), hasTZ: d.hasTZ, typ: DateType}, nil
		}
	case DateTimeType:
		if d, ok := v.(DateTimeItem); ok {
			return DateTimeItem{t: d.t, hasTZ: d.hasTZ, typ: DateTimeType}, nil
		}
	case DurationType:
		if d, ok := v.(DurationItem); ok {
			return DurationItem{months: d.months, dur: d.dur, typ: DurationType}, nil
		}
	case DayTimeDurationType:
		if d, ok := v.(DurationItem); ok {
			return NewDayTimeDuration(d.dur), nil
		}
	case YearMonthDurationType:
		if d, ok := v.(DurationItem); ok {
			return NewYearMonthDuration(d.months), nil
		}
	case AnyURIType, TokenType, UUIDType:
		return castFromString(v.StringValue(), target)
	}
	return nil, types.Errorf(types.ErrInvalidType, "cannot cast %s to %s", v.Type(), target)
}

// Castable reports whether Cast would succeed.
func Castable(v AtomicItem, target *AtomicType) bool {
	_, err := Cast(v, target)
	return err == nil
}

func castFromString(s string, target *AtomicType) (AtomicItem, error) {
	switch target {
	case StringType:
		return NewString(s), nil
	case UntypedAtomicType:
		return NewUntypedAtomic(s), nil
	case AnyURIType:
		if _, err := url.Parse(s); err != nil {
			return nil, types.Errorf(types.ErrInvalidCastValue, "invalid URI '%s'", s).WithCause(err)
		}
		return NewAnyURI(s), nil
	case TokenType:
		if !tokenPattern.MatchString(s) {
			return nil, types.Errorf(types.ErrInvalidCastValue, "invalid token '%s'", s)
		}
		return StringItem{value: s, typ: TokenType}, nil
	case UUIDType:
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, types.Errorf(types.ErrInvalidCastValue, "invalid uuid '%s'", s).WithCause(err)
		}
		return StringItem{value: id.String(), typ: UUIDType}, nil
	case BooleanType:
		switch s {
		case "true", "1":
			return True, nil
		case "false", "0":
			return False, nil
		}
		return nil, types.Errorf(types.ErrInvalidCastValue, "invalid boolean '%s'", s)
	case DecimalType:
		return ParseDecimal(s)
	case DoubleType:
		return ParseDouble(s)
	case IntegerType, NonNegativeIntegerType, PositiveIntegerType:
		n, err := ParseInteger(s)
		if err != nil {
			return nil, err
		}
		return numericResult(n.d, target)
	case DateType:
		return ParseDate(s)
	case DateTimeType:
		return ParseDateTime(s)
	case DurationType, DayTimeDurationType, YearMonthDurationType:
		return ParseDuration(s, target)
	}
	return nil, types.Errorf(types.ErrInvalidType, "cannot cast string to %s", target)
}

func castToNumeric(v AtomicItem, target *AtomicType) (AtomicItem, error) {
	var d *apd.Decimal
	switch x := v.(type) {
	case NumericItem:
		d = x.d
	case BooleanItem:
		if x {
			d = apd.New(1, 0)
		} else {
			d = apd.New(0, 0)
		}
	default:
		return nil, types.Errorf(types.ErrInvalidType, "cannot cast %s to %s", v.Type(), target)
	}
	if target.DerivesFrom(IntegerType) {
		t, err := truncate(d)
		if err != nil {
			return nil, types.Errorf(types.ErrIntegerTooLarge, "cannot cast '%s' to %s", formatDecimal(d), target).WithCause(err)
		}
		d = t
	}
	return numericResult(d, target)
}
