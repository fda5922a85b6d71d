package types

import (
	"time"

	"github.com/lib/pq/oid"
)

// Datum is one host value. The concrete Go type depends on the host type:
//
//	bool                       boolean
//	int16, int32, int64        smallint, integer, bigint
//	oid.Oid                    oid
//	float32, float64           real, double precision
//	*apd.Decimal               numeric
//	string                     text, varchar, bpchar, name (database encoding)
//	[]byte                     bytea
//	Date                       date
//	Timestamp, TimestampTZ     timestamp, timestamptz
//	JSON                       json, jsonb
//	uuid.UUID                  uuid
//	netip.Prefix               inet
//	*Array                     any array type
//	*Tuple                     any composite type
type Datum interface{}

// Date is a day number relative to the host epoch, 2000-01-01.
type Date int32

// Timestamp is microseconds since 2000-01-01 00:00:00.
type Timestamp int64

// TimestampTZ is microseconds since 2000-01-01 00:00:00 UTC.
type TimestampTZ int64

// JSON is the text of a json or jsonb value.
type JSON string

const (
	// UnixEpochJDate and PostgresEpochJDate are the Julian day numbers of
	// 1970-01-01 and 2000-01-01.
	UnixEpochJDate     = 2440588
	PostgresEpochJDate = 2451545

	// EpochOffsetDays is the number of days from the Unix epoch to the host
	// epoch.
	EpochOffsetDays = PostgresEpochJDate - UnixEpochJDate

	SecsPerDay  = 86_400
	USecsPerDay = SecsPerDay * 1_000_000

	// EpochOffsetUSecs is EpochOffsetDays in microseconds.
	EpochOffsetUSecs = EpochOffsetDays * USecsPerDay

	// MinDate and EndDate bound the valid dates, 4714-11-24 BC up to but
	// not including 5874898-01-01.
	MinDate Date = -PostgresEpochJDate
	EndDate Date = 2147483494 - PostgresEpochJDate

	// MinTimestamp and EndTimestamp bound the valid timestamps in
	// microseconds since the host epoch, 4714-11-24 00:00 BC up to but not
	// including 294277-01-01 00:00.
	MinTimestamp int64 = -211813488000000000
	EndTimestamp int64 = 9223371331200000000
)

var hostEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Time converts d to midnight UTC on that day.
func (d Date) Time() time.Time {
	return hostEpoch.AddDate(0, 0, int(d))
}

// DateOf returns the day containing t, in t's location.
func DateOf(t time.Time) Date {
	y, m, day := t.Date()
	u := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return Date(floorDiv(u.Unix()-hostEpoch.Unix(), SecsPerDay))
}

// Time converts ts to a time.Time in UTC.
func (ts Timestamp) Time() time.Time {
	return usecsToTime(int64(ts))
}

// Time converts ts to a time.Time in UTC.
func (ts TimestampTZ) Time() time.Time {
	return usecsToTime(int64(ts))
}

// TimestampOf returns the host timestamp for t, ignoring its location.
func TimestampOf(t time.Time) Timestamp {
	y, m, d := t.Date()
	u := time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return Timestamp(timeToUsecs(u))
}

// TimestampTZOf returns the host timestamp with time zone for t.
func TimestampTZOf(t time.Time) TimestampTZ {
	return TimestampTZ(timeToUsecs(t))
}

func usecsToTime(us int64) time.Time {
	sec := floorDiv(us, 1_000_000)
	usec := us - sec*1_000_000
	return time.Unix(hostEpoch.Unix()+sec, usec*1000).UTC()
}

func timeToUsecs(t time.Time) int64 {
	return (t.Unix()-hostEpoch.Unix())*1_000_000 + int64(t.Nanosecond()/1000)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Array is a host array value. Multi-dimensional arrays keep their
// elements flattened in storage (row-major) order.
type Array struct {
	ElemType oid.Oid
	Dims     []int
	LBound   []int
	Elems    []Datum
	Nulls    []bool
}

// NewArray returns a one-dimensional array with lower bound 1.
func NewArray(elemType oid.Oid, elems []Datum, nulls []bool) *Array {
	if nulls == nil {
		nulls = make([]bool, len(elems))
	}
	a := &Array{ElemType: elemType, Elems: elems, Nulls: nulls}
	if len(elems) > 0 {
		a.Dims = []int{len(elems)}
		a.LBound = []int{1}
	}
	return a
}

// Len returns the total number of elements.
func (a *Array) Len() int { return len(a.Elems) }

// NDims returns the number of dimensions; an empty array has none.
func (a *Array) NDims() int { return len(a.Dims) }

// Tuple is one row of a composite type. Values and Nulls have one slot per
// attribute of the row type, dropped attributes included.
type Tuple struct {
	TypeID oid.Oid
	Values []Datum
	Nulls  []bool
}

// Attr is one attribute of a row type.
type Attr struct {
	Name    string
	TypeID  oid.Oid
	Dropped bool
}

// TupleDesc describes the attributes of a row type in ordinal order.
type TupleDesc struct {
	TypeID oid.Oid
	Attrs  []Attr
}

// NumAttrs returns the number of attributes including dropped ones.
func (td *TupleDesc) NumAttrs() int { return len(td.Attrs) }

// Live returns the ordinals of the attributes that are not dropped.
func (td *TupleDesc) Live() []int {
	out := make([]int, 0, len(td.Attrs))
	for i, a := range td.Attrs {
		if !a.Dropped {
			out = append(out, i)
		}
	}
	return out
}
