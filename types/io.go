package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/lib/pq/oid"

	"github.com/chazu/plmaggie/plerror"
)

func invalidText(typ, s string) error {
	return plerror.InvalidTextf("invalid input syntax for type %s: %q", typ, s)
}

func outOfRange(typ, s string) error {
	return plerror.WithCode(
		errors.Newf("value %q is out of range for type %s", s, typ),
		plerror.CodeNumericValueOutOfRange)
}

func datumErr(d Datum, typ string) error {
	return errors.AssertionFailedf("unexpected %T datum for type %s", d, typ)
}

// ---------------------------------------------------------------------------
// boolean
// ---------------------------------------------------------------------------

func boolIn(s string) (Datum, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "y", "yes", "on", "1":
		return true, nil
	case "f", "false", "n", "no", "off", "0":
		return false, nil
	}
	return nil, invalidText("boolean", s)
}

func boolOut(d Datum) (string, error) {
	b, ok := d.(bool)
	if !ok {
		return "", datumErr(d, "boolean")
	}
	if b {
		return "t", nil
	}
	return "f", nil
}

// ---------------------------------------------------------------------------
// integers and oid
// ---------------------------------------------------------------------------

func parseInt(s, typ string, bits int) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, bits)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, outOfRange(typ, s)
		}
		return 0, invalidText(typ, s)
	}
	return n, nil
}

func int2In(s string) (Datum, error) {
	n, err := parseInt(s, "smallint", 16)
	return int16(n), err
}

func int4In(s string) (Datum, error) {
	n, err := parseInt(s, "integer", 32)
	return int32(n), err
}

func int8In(s string) (Datum, error) {
	n, err := parseInt(s, "bigint", 64)
	return n, err
}

func intOut(d Datum) (string, error) {
	switch n := d.(type) {
	case int16:
		return strconv.FormatInt(int64(n), 10), nil
	case int32:
		return strconv.FormatInt(int64(n), 10), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	}
	return "", datumErr(d, "integer")
}

func oidIn(s string) (Datum, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return nil, outOfRange("oid", s)
		}
		return nil, invalidText("oid", s)
	}
	return oid.Oid(n), nil
}

func oidOut(d Datum) (string, error) {
	o, ok := d.(oid.Oid)
	if !ok {
		return "", datumErr(d, "oid")
	}
	return strconv.FormatUint(uint64(o), 10), nil
}

// ---------------------------------------------------------------------------
// floating point and numeric
// ---------------------------------------------------------------------------

func parseFloat(s, typ string, bits int) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), bits)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, outOfRange(typ, s)
		}
		return 0, invalidText(typ, s)
	}
	return f, nil
}

func float4In(s string) (Datum, error) {
	f, err := parseFloat(s, "real", 32)
	return float32(f), err
}

func float8In(s string) (Datum, error) {
	return parseFloat(s, "double precision", 64)
}

// FormatFloat renders f the way the host does: the shortest text that
// reads back exactly, in exponent form when the decimal exponent is below
// -4 or at least digits.
func FormatFloat(f float64, bits, digits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	e := strconv.FormatFloat(f, 'e', -1, bits)
	exp, _ := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if exp < -4 || exp >= digits {
		return e
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

func float4Out(d Datum) (string, error) {
	f, ok := d.(float32)
	if !ok {
		return "", datumErr(d, "real")
	}
	return FormatFloat(float64(f), 32, 6), nil
}

func float8Out(d Datum) (string, error) {
	f, ok := d.(float64)
	if !ok {
		return "", datumErr(d, "double precision")
	}
	return FormatFloat(f, 64, 15), nil
}

func numericIn(s string) (Datum, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, invalidText("numeric", s)
	}
	return d, nil
}

func numericOut(d Datum) (string, error) {
	n, ok := d.(*apd.Decimal)
	if !ok {
		return "", datumErr(d, "numeric")
	}
	return n.Text('f'), nil
}

// ---------------------------------------------------------------------------
// text and bytea
// ---------------------------------------------------------------------------

func textIn(s string) (Datum, error) { return s, nil }

func textOut(d Datum) (string, error) {
	s, ok := d.(string)
	if !ok {
		return "", datumErr(d, "text")
	}
	return s, nil
}

func byteaIn(s string) (Datum, error) {
	if strings.HasPrefix(s, `\x`) {
		b, err := hex.DecodeString(s[2:])
		if err != nil {
			return nil, invalidText("bytea", s)
		}
		return b, nil
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			out = append(out, s[i])
			continue
		}
		switch {
		case i+1 < len(s) && s[i+1] == '\\':
			out = append(out, '\\')
			i++
		case i+3 < len(s):
			n, err := strconv.ParseUint(s[i+1:i+4], 8, 8)
			if err != nil {
				return nil, invalidText("bytea", s)
			}
			out = append(out, byte(n))
			i += 3
		default:
			return nil, invalidText("bytea", s)
		}
	}
	return out, nil
}

func byteaOut(d Datum) (string, error) {
	b, ok := d.([]byte)
	if !ok {
		return "", datumErr(d, "bytea")
	}
	return `\x` + hex.EncodeToString(b), nil
}

// ---------------------------------------------------------------------------
// date and timestamps
// ---------------------------------------------------------------------------

func dateIn(s string) (Datum, error) {
	text := strings.TrimSpace(s)
	bc := false
	if rest, ok := strings.CutSuffix(text, " BC"); ok {
		text, bc = rest, true
	}
	t, err := time.Parse("2006-01-02", text)
	if err != nil {
		return nil, invalidText("date", s)
	}
	if bc {
		t = time.Date(1-t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return DateOf(t), nil
}

func formatYMD(t time.Time) (string, string) {
	y := t.Year()
	if y <= 0 {
		return fmt.Sprintf("%04d-%02d-%02d", 1-y, int(t.Month()), t.Day()), " BC"
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, int(t.Month()), t.Day()), ""
}

func dateOut(d Datum) (string, error) {
	v, ok := d.(Date)
	if !ok {
		return "", datumErr(d, "date")
	}
	ymd, era := formatYMD(v.Time())
	return ymd + era, nil
}

var timestampLayouts = func() []string {
	var out []string
	for _, sep := range []string{" ", "T"} {
		for _, zone := range []string{"", "Z07:00", "Z07", "-0700"} {
			out = append(out, "2006-01-02"+sep+"15:04:05.999999999"+zone)
		}
		out = append(out, "2006-01-02"+sep+"15:04")
	}
	return append(out, "2006-01-02")
}()

func parseTimestamp(s, typ string, withZone bool) (time.Time, error) {
	text := strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, text)
		if err != nil {
			continue
		}
		if !withZone && t.Location() != time.UTC {
			// timestamp without time zone ignores an explicit offset.
			y, m, d := t.Date()
			t = time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		}
		return t.Round(time.Microsecond), nil
	}
	return time.Time{}, invalidText(typ, s)
}

func timestampIn(s string) (Datum, error) {
	t, err := parseTimestamp(s, "timestamp", false)
	if err != nil {
		return nil, err
	}
	return TimestampOf(t), nil
}

func timestamptzIn(s string) (Datum, error) {
	t, err := parseTimestamp(s, "timestamp with time zone", true)
	if err != nil {
		return nil, err
	}
	return TimestampTZOf(t), nil
}

func formatTimestamp(t time.Time) string {
	ymd, era := formatYMD(t)
	s := ymd + " " + t.Format("15:04:05")
	if us := t.Nanosecond() / 1000; us != 0 {
		s += strings.TrimRight(fmt.Sprintf(".%06d", us), "0")
	}
	return s + era
}

func timestampOut(d Datum) (string, error) {
	v, ok := d.(Timestamp)
	if !ok {
		return "", datumErr(d, "timestamp")
	}
	return formatTimestamp(v.Time()), nil
}

// timestamptzOut renders in UTC, the session time zone of this host.
func timestamptzOut(d Datum) (string, error) {
	v, ok := d.(TimestampTZ)
	if !ok {
		return "", datumErr(d, "timestamp with time zone")
	}
	s := formatTimestamp(v.Time())
	if rest, ok := strings.CutSuffix(s, " BC"); ok {
		return rest + "+00 BC", nil
	}
	return s + "+00", nil
}

// ---------------------------------------------------------------------------
// json, uuid, inet
// ---------------------------------------------------------------------------

func jsonIn(s string) (Datum, error) {
	if !json.Valid([]byte(s)) {
		return nil, invalidText("json", s)
	}
	return JSON(s), nil
}

func jsonOut(d Datum) (string, error) {
	j, ok := d.(JSON)
	if !ok {
		return "", datumErr(d, "json")
	}
	return string(j), nil
}

func uuidIn(s string) (Datum, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, invalidText("uuid", s)
	}
	return u, nil
}

func uuidOut(d Datum) (string, error) {
	u, ok := d.(uuid.UUID)
	if !ok {
		return "", datumErr(d, "uuid")
	}
	return u.String(), nil
}

func inetIn(s string) (Datum, error) {
	text := strings.TrimSpace(s)
	if strings.Contains(text, "/") {
		p, err := netip.ParsePrefix(text)
		if err != nil {
			return nil, invalidText("inet", s)
		}
		return p, nil
	}
	a, err := netip.ParseAddr(text)
	if err != nil {
		return nil, invalidText("inet", s)
	}
	return netip.PrefixFrom(a, a.BitLen()), nil
}

func inetOut(d Datum) (string, error) {
	p, ok := d.(netip.Prefix)
	if !ok {
		return "", datumErr(d, "inet")
	}
	if p.Bits() == p.Addr().BitLen() {
		return p.Addr().String(), nil
	}
	return p.String(), nil
}
