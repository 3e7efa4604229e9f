package item

import "time"

// StringItem is a value of one of the string-like types: xs:string,
// xs:untypedAtomic, xs:anyURI, mp:token and mp:uuid.
type StringItem struct {
	value string
	typ   *AtomicType
}

// NewString returns an xs:string.
func NewString(s string) StringItem { return StringItem{value: s, typ: StringType} }

// NewUntypedAtomic returns an xs:untypedAtomic, the type of node content.
func NewUntypedAtomic(s string) StringItem { return StringItem{value: s, typ: UntypedAtomicType} }

// NewAnyURI returns an xs:anyURI.
func NewAnyURI(s string) StringItem { return StringItem{value: s, typ: AnyURIType} }

func (s StringItem) ItemType() ItemType { return s.typ }
func (s StringItem) Type() *AtomicType { return s.typ }
func (s StringItem) StringValue() string { return s.value }
func (s StringItem) String() string { return s.value }

// BooleanItem is an xs:boolean.
type BooleanItem bool

// Boolean constants.
const (
	True  BooleanItem = true
	False BooleanItem = false
)

// NewBoolean returns an xs:boolean.
func NewBoolean(b bool) BooleanItem { return BooleanItem(b) }

func (b BooleanItem) ItemType() ItemType { return BooleanType }
func (b BooleanItem) Type() *AtomicType { return BooleanType }
func (b BooleanItem) Bool() bool { return bool(b) }
func (b BooleanItem) String() string { return b.StringValue() }

func (b BooleanItem) StringValue() string {
	if b {
		return "true"
	}
	return "false"
}

// DateTimeItem is an xs:date or xs:dateTime. Values without an explicit
// timezone are held in UTC and compare as if they were UTC.
type DateTimeItem struct {
	t     time.Time
	hasTZ bool
	typ   *AtomicType
}

// NewDateTime returns an xs:dateTime with t's timezone.
func NewDateTime(t time.Time) DateTimeItem {
	return DateTimeItem{t: t, hasTZ: true, typ: DateTimeType}
}

// NewDate returns the xs:date of t in t's timezone.
func NewDate(t time.Time) DateTimeItem {
	y, m, d := t.Date()
	return DateTimeItem{t: time.Date(y, m, d, 0, 0, 0, 0, t.Location()), hasTZ: true, typ: DateType}
}

func (d DateTimeItem) ItemType() ItemType { return d.typ }
func (d DateTimeItem) Type() *AtomicType { return d.typ }
func (d DateTimeItem) Time() time.Time { return d.t }
func (d DateTimeItem) HasTimezone() bool { return d.hasTZ }
func (d DateTimeItem) String() string { return d.StringValue() }

func (d DateTimeItem) StringValue() string {
	if d.typ == DateType {
		return d.t.Format("2006-01-02") + d.tzSuffix()
	}
	return d.t.Format("2006-01-02T15:04:05.999999999") + d.tzSuffix()
}

func (d DateTimeItem) tzSuffix() string {
	if !d.hasTZ {
		return ""
	}
	if _, off := d.t.Zone(); off == 0 {
		return "Z"
	}
	return d.t.Format("-07:00")
}

// DurationItem is an xs:duration, xs:dayTimeDuration or
// xs:yearMonthDuration. Months and the day-time part carry the same sign.
type DurationItem struct {
	months int64
	dur    time.Duration
	typ    *AtomicType
}

// NewDayTimeDuration returns an xs:dayTimeDuration.
func NewDayTimeDuration(d time.Duration) DurationItem {
	return DurationItem{dur: d, typ: DayTimeDurationType}
}

// NewYearMonthDuration returns an xs:yearMonthDuration.
func NewYearMonthDuration(months int64) DurationItem {
	return DurationItem{months: months, typ: YearMonthDurationType}
}

func (d DurationItem) ItemType() ItemType { return d.typ }
func (d DurationItem) Type() *AtomicType { return d.typ }
func (d DurationItem) Months() int64 { return d.months }
func (d DurationItem) Duration() time.Duration { return d.dur }
func (d DurationItem) StringValue() string { return formatDuration(d.months, d.dur, d.typ) }
func (d DurationItem) String() string { return d.StringValue() }

func isStringLike(a AtomicItem) bool {
	_, ok := a.(StringItem)
	return ok
}
