package vm

import (
	"math"
	"strings"
	"time"
)

// Time is an instant in UTC, held as seconds and microseconds since the
// Unix epoch. Usec is always normalized to [0, 1e6).
type Time struct {
	header
	Sec  int64
	Usec int64
}

func (*Time) Kind() Kind { return KindTime }

// normalizeTime folds a possibly negative or oversized microsecond part
// into the seconds.
func normalizeTime(sec, usec int64) (int64, int64) {
	sec += usec / 1_000_000
	usec %= 1_000_000
	if usec < 0 {
		usec += 1_000_000
		sec--
	}
	return sec, usec
}

// EpochMicros returns microseconds since the Unix epoch. ok is false when
// that count does not fit in an int64.
func (t *Time) EpochMicros() (us int64, ok bool) {
	if t.Sec > (math.MaxInt64-t.Usec)/1_000_000 || t.Sec < math.MinInt64/1_000_000 {
		return 0, false
	}
	return t.Sec*1_000_000 + t.Usec, true
}

// Compare returns -1, 0 or +1 as t is before, at or after u.
func (t *Time) Compare(u *Time) int {
	switch {
	case t.Sec < u.Sec, t.Sec == u.Sec && t.Usec < u.Usec:
		return -1
	case t.Sec == u.Sec && t.Usec == u.Usec:
		return 0
	}
	return 1
}

// GoTime converts to a time.Time in UTC.
func (t *Time) GoTime() time.Time {
	return time.Unix(t.Sec, t.Usec*1000).UTC()
}

// ISO8601 renders the time as 2006-01-02T15:04:05Z, with microseconds when
// they are non-zero.
func (t *Time) ISO8601() string {
	gt := t.GoTime()
	if t.Usec == 0 {
		return gt.Format("2006-01-02T15:04:05Z")
	}
	s := gt.Format("2006-01-02T15:04:05.000000")
	return strings.TrimRight(s, "0") + "Z"
}
