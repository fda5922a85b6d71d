package vm

import (
	"math"
	"testing"
)

func TestParseJSON(t *testing.T) {
	vm := New()
	v, err := vm.ParseJSON(`{"id": 7, "name": "ok", "tags": [1, 2.5, null, true], "big": 12345678901234567890}`)
	if err != nil {
		t.Fatal(err)
	}
	d, ok := v.(*Dictionary)
	if !ok {
		t.Fatalf("got %T, want *Dictionary", v)
	}

	if id, _ := d.GetString("id"); id != Int(7) {
		t.Errorf("id = %v", id)
	}
	if name, _ := d.GetString("name"); name != String("ok") {
		t.Errorf("name = %v", name)
	}
	tags, _ := d.GetString("tags")
	arr, ok := tags.(*Array)
	if !ok || arr.Len() != 4 {
		t.Fatalf("tags = %v", tags)
	}
	want := []Value{Int(1), Float(2.5), Nil, True}
	for i, w := range want {
		if arr.Elems[i] != w {
			t.Errorf("tags[%d] = %v, want %v", i, arr.Elems[i], w)
		}
	}
	if big, _ := d.GetString("big"); big.Kind() != KindFloat {
		t.Errorf("big should overflow to Float, got %v", big)
	}

	keys := d.Keys()
	if len(keys) != 4 || keys[0] != String("id") || keys[3] != String("big") {
		t.Errorf("keys should keep document order, got %v", keys)
	}
}

func TestParseJSONErrors(t *testing.T) {
	vm := New()
	for _, src := range []string{`{"a":}`, `[1, 2`, `1 2`, ``, `{"a" 1}`} {
		if _, err := vm.ParseJSON(src); err == nil {
			t.Errorf("ParseJSON(%q) should fail", src)
		}
	}
}

func TestStringifyJSON(t *testing.T) {
	vm := New()
	d := vm.NewDictionary()
	d.Put(String("id"), Int(7))
	d.Put(Symbol("name"), String("a\"b\n<"))
	d.Put(String("list"), vm.NewArray([]Value{Float(2.5), Nil, False, Float(3)}))
	d.Put(Int(1), String("one"))
	d.Put(String("at"), vm.NewTime(0, 0))

	got, err := vm.StringifyJSON(d)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":7,"name":"a\"b\n<","list":[2.5,null,false,3],"1":"one","at":"1970-01-01T00:00:00Z"}`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestStringifyJSONErrors(t *testing.T) {
	vm := New()
	if _, err := vm.StringifyJSON(Float(math.NaN())); err == nil {
		t.Error("NaN should not encode")
	}
	if _, err := vm.StringifyJSON(vm.NewNativeBlock(0, nil)); err == nil {
		t.Error("blocks should not encode")
	}

	cyclic := vm.NewArray(nil)
	cyclic.Elems = append(cyclic.Elems, cyclic)
	if _, err := vm.StringifyJSON(cyclic); err == nil {
		t.Error("cyclic arrays should fail")
	}
}

func TestJSONRoundTripFromSource(t *testing.T) {
	vm := New()
	v := evalOK(t, vm, `JSON stringify: (JSON parse: '{"a":[1,2,{"b":null}],"c":"d"}')`)
	if v != String(`{"a":[1,2,{"b":null}],"c":"d"}`) {
		t.Errorf("got %v", v)
	}
}

func TestJSONFloatFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.5, "1.5"},
		{3, "3"},
		{1e21, "1e+21"},
		{1e-7, "1e-7"},
		{-0.25, "-0.25"},
	}
	for _, tt := range tests {
		if got := jsonFloat(tt.in); got != tt.want {
			t.Errorf("jsonFloat(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
