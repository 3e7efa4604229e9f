package item

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sandrolain/gometapath/pkg/types"
)

const day = 24 * time.Hour

// ParseDate parses the xs:date lexical form, with optional timezone.
func ParseDate(s string) (DateTimeItem, error) {
	body, loc, hasTZ, err := splitTimezone(s)
	if err != nil {
		return DateTimeItem{}, err
	}
	t, err := time.ParseInLocation("2006-01-02", body, loc)
	if err != nil {
		return DateTimeItem{}, types.Errorf(types.ErrInvalidCastValue, "invalid date '%s'", s).WithCause(err)
	}
	return DateTimeItem{t: t, hasTZ: hasTZ, typ: DateType}, nil
}

// ParseDateTime parses the xs:dateTime lexical form, with optional
// fractional seconds and timezone.
func ParseDateTime(s string) (DateTimeItem, error) {
	body, loc, hasTZ, err := splitTimezone(s)
	if err != nil {
		return DateTimeItem{}, err
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", body, loc)
	if err != nil {
		return DateTimeItem{}, types.Errorf(types.ErrInvalidCastValue, "invalid dateTime '%s'", s).WithCause(err)
	}
	return DateTimeItem{t: t, hasTZ: hasTZ, typ: DateTimeType}, nil
}

func splitTimezone(s string) (string, *time.Location, bool, error) {
	if strings.HasSuffix(s, "Z") {
		return s[:len(s)-1], time.UTC, true, nil
	}
	n := len(s)
	if n > 6 && (s[n-6] == '+' || s[n-6] == '-') && s[n-3] == ':' {
		hh, err1 := strconv.Atoi(s[n-5 : n-3])
		mm, err2 := strconv.Atoi(s[n-2:])
		if err1 != nil || err2 != nil || hh > 14 || mm > 59 {
			return "", nil, false, types.Errorf(types.ErrInvalidCastValue, "invalid timezone in '%s'", s)
		}
		off := hh*3600 + mm*60
		if s[n-6] == '-' {
			off = -off
		}
		return s[:n-6], timezoneLocation(off), true, nil
	}
	return s, time.UTC, false, nil
}

func timezoneLocation(offset int) *time.Location {
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone("", offset)
}

var durationPattern = regexp.MustCompile(`^(-)?P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseDuration parses a duration lexical form into the given duration type.
func ParseDuration(s string, typ *AtomicType) (DurationItem, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "-P" || strings.HasSuffix(s, "T") {
		return DurationItem{}, types.Errorf(types.ErrInvalidCastValue, "invalid %s '%s'", typ, s)
	}
	hasYM := m[2] != "" || m[3] != ""
	hasDT := m[4] != "" || m[5] != "" || m[6] != "" || m[7] != ""
	if (typ == YearMonthDurationType && hasDT) || (typ == DayTimeDurationType && hasYM) {
		return DurationItem{}, types.Errorf(types.ErrInvalidCastValue, "invalid %s '%s'", typ, s)
	}
	num := func(v string) int64 {
		if v == "" {
			return 0
		}
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	months := num(m[2])*12 + num(m[3])
	dur := time.Duration(num(m[4]))*day + time.Duration(num(m[5]))*time.Hour + time.Duration(num(m[6]))*time.Minute
	if m[7] != "" {
		secs, err := time.ParseDuration(m[7] + "s")
		if err != nil {
			return DurationItem{}, types.Errorf(types.ErrInvalidCastValue, "invalid %s '%s'", typ, s).WithCause(err)
		}
		dur += secs
	}
	if m[1] != "" {
		months, dur = -months, -dur
	}
	return DurationItem{months: months, dur: dur, typ: typ}, nil
}

func formatDuration(months int64, dur time.Duration, typ *AtomicType) string {
	var b strings.Builder
	if months < 0 || dur < 0 {
		b.WriteByte('-')
		months, dur = -months, -dur
	}
	b.WriteByte('P')
	if y := months / 12; y > 0 {
		fmt.Fprintf(&b, "%dY", y)
	}
	if m := months % 12; m > 0 {
		fmt.Fprintf(&b, "%dM", m)
	}
	if d := dur / day; d > 0 {
		fmt.Fprintf(&b, "%dD", d)
	}
	if rem := dur % day; rem > 0 {
		b.WriteByte('T')
		if h := rem / time.Hour; h > 0 {
			fmt.Fprintf(&b, "%dH", h)
		}
		if m := (rem % time.Hour) / time.Minute; m > 0 {
			fmt.Fprintf(&b, "%dM", m)
		}
		if secs := rem % time.Minute; secs > 0 {
			whole, frac := secs/time.Second, secs%time.Second
			if frac == 0 {
				fmt.Fprintf(&b, "%dS", whole)
			} else {
				fraction := strings.TrimRight(fmt.Sprintf("%09d", frac), "0")
				fmt.Fprintf(&b, "%d.%sS", whole, fraction)
			}
		}
	}
	if months == 0 && dur == 0 {
		if typ == YearMonthDurationType {
			return "P0M"
		}
		return "PT0S"
	}
	return b.String()
}
