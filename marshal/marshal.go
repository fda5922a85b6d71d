package marshal

import (
	"math"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"

	"github.com/chazu/plmaggie/plerror"
	"github.com/chazu/plmaggie/types"
	"github.com/chazu/plmaggie/vm"
)

// ---------------------------------------------------------------------------
// Host to embedded
// ---------------------------------------------------------------------------

// ToEmbedded converts a host datum to a runtime value.
func (m *Marshaler) ToEmbedded(d types.Datum, isNull bool, desc *TypeDescriptor) (vm.Value, error) {
	if isNull || d == nil {
		return vm.Nil, nil
	}
	switch desc.Category {
	case CategoryArray:
		return m.arrayToEmbedded(d, desc)
	case CategoryComposite:
		t, ok := d.(*types.Tuple)
		if !ok {
			return nil, errors.AssertionFailedf("%T datum for row type %s", d, desc.Name())
		}
		td, err := desc.rowDesc(t)
		if err != nil {
			return nil, err
		}
		rc, err := desc.scope.RowConverter(td)
		if err != nil {
			return nil, err
		}
		return rc.ToEmbedded(t)
	}
	return m.scalarToEmbedded(d, desc)
}

func (m *Marshaler) arrayToEmbedded(d types.Datum, desc *TypeDescriptor) (vm.Value, error) {
	a, ok := d.(*types.Array)
	if !ok {
		return nil, errors.AssertionFailedf("%T datum for array type %s", d, desc.Name())
	}
	elem, err := desc.element()
	if err != nil {
		return nil, err
	}
	out := make([]vm.Value, len(a.Elems))
	for i, e := range a.Elems {
		null := i < len(a.Nulls) && a.Nulls[i]
		v, err := m.ToEmbedded(e, null, elem)
		if err != nil {
			return nil, errors.Wrapf(err, "array element %d", i+1)
		}
		out[i] = v
	}
	return m.VM.NewArray(out), nil
}

// timeFromHost builds a runtime Time from microseconds since the host
// epoch. The epoch shift is done in seconds so no int64 input overflows.
func (m *Marshaler) timeFromHost(us int64) vm.Value {
	sec := floorDiv(us, 1_000_000) + epochOffsetSecs
	return m.VM.NewTime(sec, floorMod(us, 1_000_000))
}

func (m *Marshaler) scalarToEmbedded(d types.Datum, desc *TypeDescriptor) (vm.Value, error) {
	switch desc.TypeID {
	case oid.T_oid:
		if x, ok := d.(oid.Oid); ok {
			return vm.Int(x), nil
		}
	case oid.T_bool:
		if x, ok := d.(bool); ok {
			return vm.FromBool(x), nil
		}
	case oid.T_int2:
		if x, ok := d.(int16); ok {
			return vm.Int(x), nil
		}
	case oid.T_int4:
		if x, ok := d.(int32); ok {
			return vm.Int(x), nil
		}
	case oid.T_int8:
		if x, ok := d.(int64); ok {
			return vm.Int(x), nil
		}
	case oid.T_float4:
		if x, ok := d.(float32); ok {
			return vm.Float(x), nil
		}
	case oid.T_float8:
		if x, ok := d.(float64); ok {
			return vm.Float(x), nil
		}
	case oid.T_numeric:
		if x, ok := d.(*apd.Decimal); ok {
			f, err := x.Float64()
			if err != nil {
				return nil, plerror.OutOfRangef("numeric %s does not fit a Float", x)
			}
			return vm.Float(f), nil
		}
	case oid.T_date:
		if x, ok := d.(types.Date); ok {
			sec := (int64(x) + types.EpochOffsetDays) * types.SecsPerDay
			return m.VM.NewTime(sec, 0), nil
		}
	case oid.T_timestamp:
		if x, ok := d.(types.Timestamp); ok {
			return m.timeFromHost(int64(x)), nil
		}
	case oid.T_timestamptz:
		if x, ok := d.(types.TimestampTZ); ok {
			return m.timeFromHost(int64(x)), nil
		}
	case oid.T_text, oid.T_varchar, oid.T_bpchar:
		if x, ok := d.(string); ok {
			s, err := m.Encoding.ToUTF8(x)
			if err != nil {
				return nil, err
			}
			return vm.String(s), nil
		}
	case oid.T_json, oid.T_jsonb:
		if x, ok := d.(types.JSON); ok {
			s, err := m.Encoding.ToUTF8(string(x))
			if err != nil {
				return nil, err
			}
			v, err := m.VM.ParseJSON(s)
			if err != nil {
				return nil, plerror.InvalidTextf("invalid input syntax for type %s: %v", desc.Name(), err)
			}
			return v, nil
		}
	}
	out, err := desc.output()
	if err != nil {
		return nil, err
	}
	text, err := out(d)
	if err != nil {
		return nil, err
	}
	s, err := m.Encoding.ToUTF8(text)
	if err != nil {
		return nil, err
	}
	return vm.String(s), nil
}

// ---------------------------------------------------------------------------
// Embedded to host
// ---------------------------------------------------------------------------

// ToHost converts a runtime value to a datum of the described type. The
// boolean result reports a null.
func (m *Marshaler) ToHost(v vm.Value, desc *TypeDescriptor) (types.Datum, bool, error) {
	if vm.IsNil(v) {
		return nil, true, nil
	}
	switch desc.Category {
	case CategoryArray:
		return m.arrayToHost(v, desc)
	case CategoryComposite:
		td, err := desc.rowDesc(nil)
		if err != nil {
			return nil, false, err
		}
		rc, err := desc.scope.RowConverter(td)
		if err != nil {
			return nil, false, err
		}
		t, err := rc.ToTuple(v, false)
		if err != nil {
			return nil, false, err
		}
		return t, false, nil
	}
	d, err := m.scalarToHost(v, desc)
	if err != nil {
		return nil, false, err
	}
	return d, false, nil
}

func (m *Marshaler) className(v vm.Value) string {
	return m.VM.ClassOf(v).Name
}

func (m *Marshaler) arrayToHost(v vm.Value, desc *TypeDescriptor) (types.Datum, bool, error) {
	a, ok := v.(*vm.Array)
	if !ok {
		return nil, false, plerror.TypeMismatchf("%s value must be an Array, not %s", desc.Name(), m.className(v))
	}
	elem, err := desc.element()
	if err != nil {
		return nil, false, err
	}
	elems := make([]types.Datum, len(a.Elems))
	nulls := make([]bool, len(a.Elems))
	for i, e := range a.Elems {
		d, null, err := m.ToHost(e, elem)
		if err != nil {
			return nil, false, errors.Wrapf(err, "array element %d", i+1)
		}
		elems[i], nulls[i] = d, null
	}
	return types.NewArray(desc.ElemType, elems, nulls), false, nil
}

func (m *Marshaler) intInRange(i vm.Int, lo, hi int64, desc *TypeDescriptor) error {
	if int64(i) < lo || int64(i) > hi {
		return plerror.OutOfRangef("value %d is out of range for type %s", int64(i), desc.Name())
	}
	return nil
}

func (m *Marshaler) scalarToHost(v vm.Value, desc *TypeDescriptor) (types.Datum, error) {
	switch desc.TypeID {
	case oid.T_oid:
		if i, ok := v.(vm.Int); ok {
			if err := m.intInRange(i, 0, math.MaxUint32, desc); err != nil {
				return nil, err
			}
			return oid.Oid(i), nil
		}
	case oid.T_bool:
		if b, ok := v.(vm.Bool); ok {
			return bool(b), nil
		}
	case oid.T_int2:
		if i, ok := v.(vm.Int); ok {
			if err := m.intInRange(i, math.MinInt16, math.MaxInt16, desc); err != nil {
				return nil, err
			}
			return int16(i), nil
		}
	case oid.T_int4:
		if i, ok := v.(vm.Int); ok {
			if err := m.intInRange(i, math.MinInt32, math.MaxInt32, desc); err != nil {
				return nil, err
			}
			return int32(i), nil
		}
	case oid.T_int8:
		if i, ok := v.(vm.Int); ok {
			return int64(i), nil
		}
	case oid.T_float4:
		if f, ok := v.(vm.Float); ok {
			return float32(f), nil
		}
	case oid.T_float8:
		if f, ok := v.(vm.Float); ok {
			return float64(f), nil
		}
	case oid.T_numeric:
		if f, ok := v.(vm.Float); ok {
			d, err := new(apd.Decimal).SetFloat64(float64(f))
			if err != nil {
				return nil, plerror.WrapTypeMismatch(err, "converting %g to numeric", float64(f))
			}
			return d, nil
		}
	case oid.T_date:
		if t, ok := v.(*vm.Time); ok {
			return dateToHost(t)
		}
	case oid.T_timestamp:
		if t, ok := v.(*vm.Time); ok {
			us, err := timestampToHost(t)
			return types.Timestamp(us), err
		}
	case oid.T_timestamptz:
		if t, ok := v.(*vm.Time); ok {
			us, err := timestampToHost(t)
			return types.TimestampTZ(us), err
		}
	case oid.T_text, oid.T_varchar, oid.T_bpchar:
		if s, ok := v.(vm.String); ok {
			return m.Encoding.FromUTF8(string(s))
		}
	case oid.T_json, oid.T_jsonb:
		if k := v.Kind(); k == vm.KindSequence || k == vm.KindMapping {
			s, err := m.VM.StringifyJSON(v)
			if err != nil {
				return nil, plerror.WrapTypeMismatch(err, "converting %s to %s", m.className(v), desc.Name())
			}
			s, err = m.Encoding.FromUTF8(s)
			if err != nil {
				return nil, err
			}
			return types.JSON(s), nil
		}
	}
	return m.viaText(v, desc)
}

// viaText renders v with displayString and parses the text with the host
// input function.
func (m *Marshaler) viaText(v vm.Value, desc *TypeDescriptor) (types.Datum, error) {
	in, err := desc.input()
	if err != nil {
		return nil, err
	}
	s, err := m.VM.DisplayString(v)
	if err != nil {
		return nil, plerror.WrapTypeMismatch(err, "cannot convert %s to %s", m.className(v), desc.Name())
	}
	s, err = m.Encoding.FromUTF8(s)
	if err != nil {
		return nil, err
	}
	d, err := in(s)
	if err != nil {
		return nil, plerror.WrapTypeMismatch(err, "cannot convert %s to %s", m.className(v), desc.Name())
	}
	return d, nil
}

// dateToHost truncates t to its UTC day. Usec is never negative, so the
// day follows from Sec alone.
func dateToHost(t *vm.Time) (types.Datum, error) {
	days := floorDiv(t.Sec, types.SecsPerDay) - types.EpochOffsetDays
	if days < int64(types.MinDate) || days >= int64(types.EndDate) {
		return nil, plerror.OutOfRangef("date out of range: epoch second %d", t.Sec)
	}
	return types.Date(days), nil
}

const (
	epochOffsetSecs = types.EpochOffsetDays * types.SecsPerDay
	minTimestampSec = types.MinTimestamp/1_000_000 + epochOffsetSecs
	endTimestampSec = types.EndTimestamp/1_000_000 + epochOffsetSecs
)

// timestampToHost returns t as microseconds since the host epoch. The
// range check is done on whole seconds; the top of the valid range does not
// fit in int64 microseconds since the Unix epoch.
func timestampToHost(t *vm.Time) (int64, error) {
	if t.Sec < minTimestampSec || t.Sec >= endTimestampSec {
		return 0, plerror.OutOfRangef("timestamp out of range: epoch second %d", t.Sec)
	}
	return (t.Sec-epochOffsetSecs)*1_000_000 + t.Usec, nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}
