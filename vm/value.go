package vm

import "fmt"

// ---------------------------------------------------------------------------
// Value: the embedded runtime's dynamic value representation
// ---------------------------------------------------------------------------

// Kind is the coarse dynamic type of a Value. Host-side code switches on
// Kind rather than probing values with type predicates.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindSequence
	KindMapping
	KindTime
	KindOther
)

var kindNames = [...]string{
	KindNil:      "nil",
	KindBool:     "bool",
	KindInt:      "int",
	KindFloat:    "float",
	KindText:     "text",
	KindSequence: "sequence",
	KindMapping:  "mapping",
	KindTime:     "time",
	KindOther:    "other",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Value is any value the runtime can hold.
//
// The immediate values (Nil, Bool, Int, Float, String, Symbol) are plain Go
// values. Everything else is a pointer to a heap object that is tracked by
// the VM's arena while it is transient.
type Value interface {
	Kind() Kind
}

type nilValue struct{}

func (nilValue) Kind() Kind { return KindNil }

// Nil is the sole instance of UndefinedObject.
var Nil Value = nilValue{}

// Bool is true or false.
type Bool bool

func (Bool) Kind() Kind { return KindBool }

var (
	True  Value = Bool(true)
	False Value = Bool(false)
)

// Int is a 64-bit signed integer. Arithmetic that overflows signals
// ArithmeticError rather than wrapping.
type Int int64

func (Int) Kind() Kind { return KindInt }

// Float is an IEEE-754 double.
type Float float64

func (Float) Kind() Kind { return KindFloat }

// String is UTF-8 text.
type String string

func (String) Kind() Kind { return KindText }

// Symbol is an interned name such as #ok. Symbols are not text for the
// purpose of Kind, but compare equal to strings with the same characters.
type Symbol string

func (Symbol) Kind() Kind { return KindOther }

// IsNil reports whether v is nil (or a Go nil interface).
func IsNil(v Value) bool {
	return v == nil || v == Nil
}

// FromBool converts a Go bool.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// textOf returns the characters of a String or Symbol.
func textOf(v Value) (string, bool) {
	switch x := v.(type) {
	case String:
		return string(x), true
	case Symbol:
		return string(x), true
	}
	return "", false
}

// ---------------------------------------------------------------------------
// Heap objects
// ---------------------------------------------------------------------------

// header is embedded in every heap object. seq is the allocation number
// used for identity hashes; released is set when the arena drops the
// object.
type header struct {
	seq      uint64
	released bool
}

func (h *header) hdr() *header { return h }

type heapValue interface {
	Value
	hdr() *header
}
