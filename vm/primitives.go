package vm

import (
	"math"
	"strings"
	"unicode"
)

// ---------------------------------------------------------------------------
// Helpers shared by the primitive sets
// ---------------------------------------------------------------------------

func (vm *VM) typeName(v Value) string {
	return vm.ClassOf(v).Name
}

// argError signals InvalidArgument for a primitive that got the wrong kind
// of argument.
func (vm *VM) argError(selector, want string, got Value) {
	vm.signalf(vm.InvalidArgumentClass, "%s expects %s, got %s", selector, want, article(vm.typeName(got)))
}

func (vm *VM) intArg(selector string, v Value) int64 {
	switch x := v.(type) {
	case Int:
		return int64(x)
	case Float:
		f := float64(x)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
	}
	vm.argError(selector, "an Integer", v)
	return 0
}

func (vm *VM) floatArg(selector string, v Value) float64 {
	switch x := v.(type) {
	case Int:
		return float64(x)
	case Float:
		return float64(x)
	}
	vm.argError(selector, "a Number", v)
	return 0
}

func (vm *VM) textArg(selector string, v Value) string {
	if s, ok := textOf(v); ok {
		return s
	}
	vm.argError(selector, "a String", v)
	return ""
}

func (vm *VM) blockArg(selector string, v Value) *Block {
	if b, ok := v.(*Block); ok {
		return b
	}
	vm.argError(selector, "a Block", v)
	return nil
}

func (vm *VM) boolOf(selector string, v Value) bool {
	if b, ok := v.(Bool); ok {
		return bool(b)
	}
	vm.signalf(vm.InvalidArgumentClass, "%s: expected a Boolean, got %s", selector, article(vm.typeName(v)))
	return false
}

// valueOf evaluates v if it is a block, otherwise answers v itself.
func (vm *VM) valueOf(v Value) Value {
	if b, ok := v.(*Block); ok {
		return vm.callBlock(b, nil)
	}
	return v
}

// callOptional evaluates a one-argument block, or a zero-argument block when the
// caller's argument is optional.
func (vm *VM) callOptional(b *Block, arg Value) Value {
	if b.NumArgs() == 0 {
		return vm.callBlock(b, nil)
	}
	return vm.callBlock(b, []Value{arg})
}

// truthy is true only for true; callers that need a Boolean use boolOf.
func truthy(v Value) bool {
	b, ok := v.(Bool)
	return ok && bool(b)
}

// index converts a 1-based index into a 0-based one, signaling
// SubscriptOutOfBounds when it is outside [1, n].
func (vm *VM) index(selector string, v Value, n int) int {
	i := vm.intArg(selector, v)
	if i < 1 || i > int64(n) {
		vm.signalf(vm.SubscriptOutOfBoundsClass, "index %d out of bounds for size %d", i, n)
	}
	return int(i - 1)
}

// ---------------------------------------------------------------------------
// Equality
// ---------------------------------------------------------------------------

// equal compares by value: numbers numerically, text by characters (a
// String equals the Symbol with the same characters), collections element
// by element and times by instant. Instances of source classes are asked
// with =, so they can override it.
func (vm *VM) equal(a, b Value) bool {
	switch x := a.(type) {
	case nilValue:
		return IsNil(b)
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Int:
		switch y := b.(type) {
		case Int:
			return x == y
		case Float:
			return float64(x) == float64(y)
		}
		return false
	case Float:
		switch y := b.(type) {
		case Int:
			return float64(x) == float64(y)
		case Float:
			return x == y
		}
		return false
	case String, Symbol:
		xs, _ := textOf(a)
		ys, ok := textOf(b)
		return ok && xs == ys
	case *Array:
		y, ok := b.(*Array)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}
		if x == y {
			return true
		}
		for i := range x.Elems {
			if !vm.equal(x.Elems[i], y.Elems[i]) {
				return false
			}
		}
		return true
	case *Dictionary:
		y, ok := b.(*Dictionary)
		if !ok || x.Len() != y.Len() {
			return false
		}
		same := true
		x.Range(func(k, v Value) bool {
			w, found := y.Get(k)
			same = found && vm.equal(v, w)
			return same
		})
		return same
	case *Association:
		y, ok := b.(*Association)
		return ok && vm.equal(x.Key, y.Key) && vm.equal(x.Val, y.Val)
	case *Time:
		y, ok := b.(*Time)
		return ok && x.Compare(y) == 0
	case *Object:
		if _, ok := b.(*Object); !ok {
			return false
		}
		if m, _ := x.class.lookup("="); m != nil {
			return truthy(vm.invoke(m, x, []Value{b}))
		}
		return a == b
	}
	return a == b
}

// ---------------------------------------------------------------------------
// Text helpers
// ---------------------------------------------------------------------------

// article prefixes a class name with "a" or "an".
func article(name string) string {
	if name == "" {
		return name
	}
	switch unicode.ToLower(rune(name[0])) {
	case 'a', 'e', 'i', 'o', 'u':
		return "an " + name
	}
	return "a " + name
}

// quote renders s as a string literal, doubling embedded quotes.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
