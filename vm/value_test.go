package vm

import (
	"math"
	"testing"
)

func TestKinds(t *testing.T) {
	vm := New()
	tests := []struct {
		v    Value
		want Kind
	}{
		{Nil, KindNil},
		{True, KindBool},
		{Int(1), KindInt},
		{Float(1), KindFloat},
		{String("s"), KindText},
		{Symbol("s"), KindOther},
		{vm.NewArray(nil), KindSequence},
		{vm.NewDictionary(), KindMapping},
		{vm.NewTime(0, 0), KindTime},
		{vm.ObjectClass, KindOther},
	}
	for _, tt := range tests {
		if got := tt.v.Kind(); got != tt.want {
			t.Errorf("%T.Kind() = %s, want %s", tt.v, got, tt.want)
		}
	}
	if KindMapping.String() != "mapping" {
		t.Errorf("KindMapping.String() = %q", KindMapping.String())
	}
}

func TestClassOf(t *testing.T) {
	vm := New()
	tests := []struct {
		v    Value
		want *Class
	}{
		{Nil, vm.UndefinedObjectClass},
		{True, vm.TrueClass},
		{False, vm.FalseClass},
		{Int(3), vm.IntegerClass},
		{Float(3), vm.FloatClass},
		{String("x"), vm.StringClass},
		{Symbol("x"), vm.SymbolClass},
		{vm.NewArray(nil), vm.ArrayClass},
		{vm.NewDictionary(), vm.DictionaryClass},
		{vm.NewTime(0, 0), vm.TimeClass},
		{vm.IntegerClass, vm.ClassClass},
	}
	for _, tt := range tests {
		if got := vm.ClassOf(tt.v); got != tt.want {
			t.Errorf("ClassOf(%v) = %s, want %s", tt.v, got.Name, tt.want.Name)
		}
	}
}

func TestDictionaryKeys(t *testing.T) {
	d := newDictionary()
	d.Put(String("a"), Int(1))
	d.Put(Symbol("a"), Int(2))
	d.Put(Int(1), String("int"))
	d.Put(Float(1.0), String("float"))
	d.Put(Float(1.5), String("frac"))

	if d.Len() != 3 {
		t.Fatalf("Len = %d, want 3", d.Len())
	}
	if v, _ := d.GetString("a"); v != Int(2) {
		t.Errorf("String and Symbol keys should share an entry, got %v", v)
	}
	if d.Keys()[0] != String("a") {
		t.Error("an existing entry keeps its original key")
	}
	if v, _ := d.Get(Int(1)); v != String("float") {
		t.Errorf("integral Float keys should match Int keys, got %v", v)
	}

	if !d.Delete(Int(1)) || d.Delete(Int(1)) {
		t.Error("Delete should report presence")
	}
	if v, ok := d.Get(Float(1.5)); !ok || v != String("frac") {
		t.Error("entries after a deleted one should still be found")
	}
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		sec, usec         int64
		wantSec, wantUsec int64
	}{
		{0, 0, 0, 0},
		{0, -1, -1, 999999},
		{0, 1_500_000, 1, 500000},
		{10, -2_000_001, 7, 999999},
	}
	for _, tt := range tests {
		s, u := normalizeTime(tt.sec, tt.usec)
		if s != tt.wantSec || u != tt.wantUsec {
			t.Errorf("normalizeTime(%d, %d) = (%d, %d), want (%d, %d)", tt.sec, tt.usec, s, u, tt.wantSec, tt.wantUsec)
		}
	}
}

func TestTimeEpochMicros(t *testing.T) {
	vm := New()
	tests := []struct {
		sec, usec int64
		want      int64
		ok        bool
	}{
		{0, 0, 0, true},
		{-1, 999999, -1, true},
		{math.MaxInt64 / 1_000_000, 775807, math.MaxInt64, true},
		{math.MaxInt64 / 1_000_000, 775808, 0, false},
		{10_000_000_000_000, 0, 0, false},
		{math.MinInt64 / 1_000_000, 0, math.MinInt64 / 1_000_000 * 1_000_000, true},
		{math.MinInt64/1_000_000 - 1, 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := vm.NewTime(tt.sec, tt.usec).EpochMicros()
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("EpochMicros(%d, %d) = (%d, %v), want (%d, %v)", tt.sec, tt.usec, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTimeCompare(t *testing.T) {
	vm := New()
	a := vm.NewTime(5, 10)
	if c := a.Compare(vm.NewTime(5, 10)); c != 0 {
		t.Errorf("equal times compare %d", c)
	}
	if c := a.Compare(vm.NewTime(5, 11)); c != -1 {
		t.Errorf("earlier usec compares %d", c)
	}
	if c := vm.NewTime(math.MaxInt64/2, 0).Compare(a); c != 1 {
		t.Errorf("far future compares %d", c)
	}
}

func TestTimeISO8601(t *testing.T) {
	vm := New()
	tests := []struct {
		sec, usec int64
		want      string
	}{
		{0, 0, "1970-01-01T00:00:00Z"},
		{946684800, 0, "2000-01-01T00:00:00Z"},
		{946684800, 123000, "2000-01-01T00:00:00.123Z"},
		{-1, 999999, "1969-12-31T23:59:59.999999Z"},
	}
	for _, tt := range tests {
		if got := vm.NewTime(tt.sec, tt.usec).ISO8601(); got != tt.want {
			t.Errorf("ISO8601(%d, %d) = %s, want %s", tt.sec, tt.usec, got, tt.want)
		}
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{123.456, "123.456"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{1e16, "1e+16"},
		{-0.0, "0.0"},
		{math.Copysign(0, -1), "-0.0"},
		{math.Inf(1), "Infinity"},
		{math.NaN(), "NaN"},
	}
	for _, tt := range tests {
		if got := formatFloat(tt.in); got != tt.want {
			t.Errorf("formatFloat(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
