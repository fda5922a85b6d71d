package vm

import "math"

// ---------------------------------------------------------------------------
// Array: growable ordered sequence
// ---------------------------------------------------------------------------

// Array is an ordered, growable sequence. Indexing from source is 1-based.
type Array struct {
	header
	Elems []Value
}

func (*Array) Kind() Kind { return KindSequence }

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.Elems) }

// ---------------------------------------------------------------------------
// Dictionary: insertion-ordered mapping
// ---------------------------------------------------------------------------

// Dictionary maps keys to values and remembers insertion order. String and
// Symbol keys with the same characters address the same entry; numbers,
// booleans, nil and times compare by value; other objects by identity.
type Dictionary struct {
	header
	keys  []Value
	vals  []Value
	index map[dictKey]int
}

func (*Dictionary) Kind() Kind { return KindMapping }

type dictKey struct {
	kind Kind
	s    string
	i    int64
	f    float64
	p    any
}

func keyOf(v Value) dictKey {
	switch x := v.(type) {
	case nilValue:
		return dictKey{kind: KindNil}
	case Bool:
		if x {
			return dictKey{kind: KindBool, i: 1}
		}
		return dictKey{kind: KindBool}
	case Int:
		return dictKey{kind: KindInt, i: int64(x)}
	case Float:
		f := float64(x)
		if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
			return dictKey{kind: KindInt, i: int64(f)}
		}
		return dictKey{kind: KindFloat, f: f}
	case String:
		return dictKey{kind: KindText, s: string(x)}
	case Symbol:
		return dictKey{kind: KindText, s: string(x)}
	case *Time:
		return dictKey{kind: KindTime, i: x.Sec, f: float64(x.Usec)}
	}
	return dictKey{kind: KindOther, p: v}
}

func newDictionary() *Dictionary {
	return &Dictionary{index: make(map[dictKey]int)}
}

// Len returns the number of entries.
func (d *Dictionary) Len() int { return len(d.keys) }

// Get returns the value stored under key.
func (d *Dictionary) Get(key Value) (Value, bool) {
	i, ok := d.index[keyOf(key)]
	if !ok {
		return Nil, false
	}
	return d.vals[i], true
}

// GetString looks up a text key.
func (d *Dictionary) GetString(key string) (Value, bool) {
	return d.Get(String(key))
}

// Put stores value under key. An existing entry keeps its position and
// its original key object.
func (d *Dictionary) Put(key, value Value) {
	k := keyOf(key)
	if i, ok := d.index[k]; ok {
		d.vals[i] = value
		return
	}
	d.index[k] = len(d.keys)
	d.keys = append(d.keys, key)
	d.vals = append(d.vals, value)
}

// Delete removes key and reports whether it was present.
func (d *Dictionary) Delete(key Value) bool {
	k := keyOf(key)
	i, ok := d.index[k]
	if !ok {
		return false
	}
	delete(d.index, k)
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	d.vals = append(d.vals[:i], d.vals[i+1:]...)
	for j := i; j < len(d.keys); j++ {
		d.index[keyOf(d.keys[j])] = j
	}
	return true
}

// Keys returns the keys in insertion order.
func (d *Dictionary) Keys() []Value {
	out := make([]Value, len(d.keys))
	copy(out, d.keys)
	return out
}

// Range calls fn for each entry in insertion order until fn returns false.
func (d *Dictionary) Range(fn func(key, value Value) bool) {
	for i := 0; i < len(d.keys); i++ {
		if !fn(d.keys[i], d.vals[i]) {
			return
		}
	}
}
