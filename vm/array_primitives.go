package vm

import (
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Array Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerArrayPrimitives() {
	c := vm.ArrayClass

	// Class side: instance creation
	c.classPrim("new", func(vm *VM, recv Value, args []Value) Value {
		return vm.newArray(nil)
	})
	c.classPrim("new:", func(vm *VM, recv Value, args []Value) Value {
		return vm.newArray(vm.filled("new:", args[0], Nil))
	})
	c.classPrim("new:withAll:", func(vm *VM, recv Value, args []Value) Value {
		return vm.newArray(vm.filled("new:withAll:", args[0], args[1]))
	})
	with := func(vm *VM, recv Value, args []Value) Value {
		return vm.newArray(append([]Value(nil), args...))
	}
	c.classPrim("with:", with)
	c.classPrim("with:with:", with)
	c.classPrim("with:with:with:", with)
	c.classPrim("with:with:with:with:", with)
	c.classPrim("with:with:with:with:with:", with)

	arr := func(v Value) *Array { return v.(*Array) }

	// access
	c.prim("size", func(vm *VM, recv Value, args []Value) Value {
		return Int(arr(recv).Len())
	})
	c.prim("at:", func(vm *VM, recv Value, args []Value) Value {
		a := arr(recv)
		return a.Elems[vm.index("at:", args[0], len(a.Elems))]
	})
	c.prim("at:put:", func(vm *VM, recv Value, args []Value) Value {
		a := arr(recv)
		a.Elems[vm.index("at:put:", args[0], len(a.Elems))] = args[1]
		return args[1]
	})
	c.prim("at:ifAbsent:", func(vm *VM, recv Value, args []Value) Value {
		a := arr(recv)
		if i, ok := args[0].(Int); ok && i >= 1 && int(i) <= len(a.Elems) {
			return a.Elems[i-1]
		}
		return vm.valueOf(args[1])
	})
	c.prim("first", func(vm *VM, recv Value, args []Value) Value {
		a := arr(recv)
		if len(a.Elems) == 0 {
			vm.signalf(vm.SubscriptOutOfBoundsClass, "first of an empty Array")
		}
		return a.Elems[0]
	})
	c.prim("last", func(vm *VM, recv Value, args []Value) Value {
		a := arr(recv)
		if len(a.Elems) == 0 {
			vm.signalf(vm.SubscriptOutOfBoundsClass, "last of an empty Array")
		}
		return a.Elems[len(a.Elems)-1]
	})
	c.prim("isEmpty", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(arr(recv).Len() == 0)
	})
	c.prim("notEmpty", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(arr(recv).Len() != 0)
	})

	// growing and shrinking
	c.prim("add:", func(vm *VM, recv Value, args []Value) Value {
		a := arr(recv)
		a.Elems = append(a.Elems, args[0])
		return args[0]
	})
	c.prim("addFirst:", func(vm *VM, recv Value, args []Value) Value {
		a := arr(recv)
		a.Elems = append([]Value{args[0]}, a.Elems...)
		return args[0]
	})
	c.prim("addAll:", func(vm *VM, recv Value, args []Value) Value {
		a := arr(recv)
		other, ok := args[0].(*Array)
		if !ok {
			vm.argError("addAll:", "an Array", args[0])
		}
		a.Elems = append(a.Elems, other.Elems...)
		return args[0]
	})
	c.prim("removeFirst", func(vm *VM, recv Value, args []Value) Value {
		a := arr(recv)
		if len(a.Elems) == 0 {
			vm.signalf(vm.SubscriptOutOfBoundsClass, "removeFirst from an empty Array")
		}
		v := a.Elems[0]
		a.Elems = a.Elems[1:]
		return v
	})
	c.prim("removeLast", func(vm *VM, recv Value, args []Value) Value {
		a := arr(recv)
		if len(a.Elems) == 0 {
			vm.signalf(vm.SubscriptOutOfBoundsClass, "removeLast from an empty Array")
		}
		v := a.Elems[len(a.Elems)-1]
		a.Elems = a.Elems[:len(a.Elems)-1]
		return v
	})
	c.prim("remove:", func(vm *VM, recv Value, args []Value) Value {
		a := arr(recv)
		for i, e := range a.Elems {
			if vm.equal(e, args[0]) {
				a.Elems = append(a.Elems[:i], a.Elems[i+1:]...)
				return args[0]
			}
		}
		vm.signalf(vm.KeyNotFoundClass, "element not found: %s", vm.sendPrint(args[0]))
		return Nil
	})

	// searching
	c.prim("includes:", func(vm *VM, recv Value, args []Value) Value {
		for _, e := range arr(recv).Elems {
			if vm.equal(e, args[0]) {
				return True
			}
		}
		return False
	})
	c.prim("indexOf:", func(vm *VM, recv Value, args []Value) Value {
		for i, e := range arr(recv).Elems {
			if vm.equal(e, args[0]) {
				return Int(i + 1)
			}
		}
		return Int(0)
	})

	// enumeration
	c.prim("do:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("do:", args[0])
		for i := 0; i < len(arr(recv).Elems); i++ {
			vm.callBlock(b, []Value{arr(recv).Elems[i]})
		}
		return recv
	})
	c.prim("do:separatedBy:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("do:separatedBy:", args[0])
		sep := vm.blockArg("do:separatedBy:", args[1])
		for i := 0; i < len(arr(recv).Elems); i++ {
			if i > 0 {
				vm.callBlock(sep, nil)
			}
			vm.callBlock(b, []Value{arr(recv).Elems[i]})
		}
		return recv
	})
	c.prim("reverseDo:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("reverseDo:", args[0])
		elems := append([]Value(nil), arr(recv).Elems...)
		for i := len(elems) - 1; i >= 0; i-- {
			vm.callBlock(b, []Value{elems[i]})
		}
		return recv
	})
	keysAndValues := func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("keysAndValuesDo:", args[0])
		for i := 0; i < len(arr(recv).Elems); i++ {
			vm.callBlock(b, []Value{Int(i + 1), arr(recv).Elems[i]})
		}
		return recv
	}
	c.prim("keysAndValuesDo:", keysAndValues)
	c.prim("doWithIndex:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("doWithIndex:", args[0])
		for i := 0; i < len(arr(recv).Elems); i++ {
			vm.callBlock(b, []Value{arr(recv).Elems[i], Int(i + 1)})
		}
		return recv
	})
	c.prim("collect:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("collect:", args[0])
		src := append([]Value(nil), arr(recv).Elems...)
		out := make([]Value, len(src))
		for i, e := range src {
			out[i] = vm.callBlock(b, []Value{e})
		}
		return vm.newArray(out)
	})
	c.prim("with:collect:", func(vm *VM, recv Value, args []Value) Value {
		other, ok := args[0].(*Array)
		if !ok || other.Len() != arr(recv).Len() {
			vm.signalf(vm.InvalidArgumentClass, "with:collect: expects an Array of the same size")
		}
		b := vm.blockArg("with:collect:", args[1])
		out := make([]Value, arr(recv).Len())
		for i := range out {
			out[i] = vm.callBlock(b, []Value{arr(recv).Elems[i], other.Elems[i]})
		}
		return vm.newArray(out)
	})
	c.prim("select:", func(vm *VM, recv Value, args []Value) Value {
		return vm.newArray(vm.filter("select:", arr(recv), args[0], true))
	})
	c.prim("reject:", func(vm *VM, recv Value, args []Value) Value {
		return vm.newArray(vm.filter("reject:", arr(recv), args[0], false))
	})
	c.prim("detect:", func(vm *VM, recv Value, args []Value) Value {
		if v, ok := vm.detect("detect:", arr(recv), args[0]); ok {
			return v
		}
		vm.signalf(vm.KeyNotFoundClass, "no element satisfies the condition")
		return Nil
	})
	c.prim("detect:ifNone:", func(vm *VM, recv Value, args []Value) Value {
		if v, ok := vm.detect("detect:ifNone:", arr(recv), args[0]); ok {
			return v
		}
		return vm.valueOf(args[1])
	})
	c.prim("anySatisfy:", func(vm *VM, recv Value, args []Value) Value {
		_, ok := vm.detect("anySatisfy:", arr(recv), args[0])
		return FromBool(ok)
	})
	c.prim("allSatisfy:", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(len(vm.filter("allSatisfy:", arr(recv), args[0], false)) == 0)
	})
	c.prim("count:", func(vm *VM, recv Value, args []Value) Value {
		return Int(len(vm.filter("count:", arr(recv), args[0], true)))
	})
	c.prim("inject:into:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("inject:into:", args[1])
		acc := args[0]
		for _, e := range append([]Value(nil), arr(recv).Elems...) {
			acc = vm.callBlock(b, []Value{acc, e})
		}
		return acc
	})
	c.prim("sum", func(vm *VM, recv Value, args []Value) Value {
		var acc Value = Int(0)
		for _, e := range arr(recv).Elems {
			acc = vm.send(acc, "+", []Value{e})
		}
		return acc
	})
	c.prim("max", func(vm *VM, recv Value, args []Value) Value {
		return vm.extreme(arr(recv), ">")
	})
	c.prim("min", func(vm *VM, recv Value, args []Value) Value {
		return vm.extreme(arr(recv), "<")
	})

	// copying
	c.prim(",", func(vm *VM, recv Value, args []Value) Value {
		other, ok := args[0].(*Array)
		if !ok {
			vm.argError(",", "an Array", args[0])
		}
		out := make([]Value, 0, arr(recv).Len()+other.Len())
		out = append(out, arr(recv).Elems...)
		return vm.newArray(append(out, other.Elems...))
	})
	c.prim("copyFrom:to:", func(vm *VM, recv Value, args []Value) Value {
		a := arr(recv)
		from := vm.intArg("copyFrom:to:", args[0])
		to := vm.intArg("copyFrom:to:", args[1])
		if to < from {
			return vm.newArray(nil)
		}
		if from < 1 || to > int64(len(a.Elems)) {
			vm.signalf(vm.SubscriptOutOfBoundsClass, "range %d to %d out of bounds for size %d", from, to, len(a.Elems))
		}
		return vm.newArray(append([]Value(nil), a.Elems[from-1:to]...))
	})
	c.prim("reversed", func(vm *VM, recv Value, args []Value) Value {
		src := arr(recv).Elems
		out := make([]Value, len(src))
		for i, e := range src {
			out[len(src)-1-i] = e
		}
		return vm.newArray(out)
	})
	c.prim("asArray", func(vm *VM, recv Value, args []Value) Value {
		return recv
	})

	// sorting
	c.prim("sort", func(vm *VM, recv Value, args []Value) Value {
		vm.sortElems(arr(recv).Elems, nil)
		return recv
	})
	c.prim("sort:", func(vm *VM, recv Value, args []Value) Value {
		vm.sortElems(arr(recv).Elems, vm.blockArg("sort:", args[0]))
		return recv
	})
	c.prim("asSortedArray", func(vm *VM, recv Value, args []Value) Value {
		out := append([]Value(nil), arr(recv).Elems...)
		vm.sortElems(out, nil)
		return vm.newArray(out)
	})
	c.prim("asSortedArray:", func(vm *VM, recv Value, args []Value) Value {
		out := append([]Value(nil), arr(recv).Elems...)
		vm.sortElems(out, vm.blockArg("asSortedArray:", args[0]))
		return vm.newArray(out)
	})

	c.prim("join:", func(vm *VM, recv Value, args []Value) Value {
		sep := vm.textArg("join:", args[0])
		parts := make([]string, arr(recv).Len())
		for i, e := range arr(recv).Elems {
			parts[i] = vm.displayString(e)
		}
		return String(strings.Join(parts, sep))
	})
}

func (vm *VM) filled(sel string, size Value, fill Value) []Value {
	n := vm.intArg(sel, size)
	if n < 0 {
		vm.signalf(vm.InvalidArgumentClass, "negative size %d", n)
	}
	if lim := vm.arena.limit; lim > 0 && n > int64(lim) {
		vm.signalf(vm.ArenaOverflowClass, "Array of size %d exceeds the arena limit", n)
	}
	elems := make([]Value, n)
	for i := range elems {
		elems[i] = fill
	}
	return elems
}

func (vm *VM) filter(sel string, a *Array, block Value, keep bool) []Value {
	b := vm.blockArg(sel, block)
	var out []Value
	for _, e := range append([]Value(nil), a.Elems...) {
		if vm.boolOf(sel, vm.callBlock(b, []Value{e})) == keep {
			out = append(out, e)
		}
	}
	return out
}

func (vm *VM) detect(sel string, a *Array, block Value) (Value, bool) {
	b := vm.blockArg(sel, block)
	for _, e := range append([]Value(nil), a.Elems...) {
		if vm.boolOf(sel, vm.callBlock(b, []Value{e})) {
			return e, true
		}
	}
	return Nil, false
}

func (vm *VM) extreme(a *Array, sel string) Value {
	if a.Len() == 0 {
		vm.signalf(vm.SubscriptOutOfBoundsClass, "%s of an empty Array", map[string]string{">": "max", "<": "min"}[sel])
	}
	best := a.Elems[0]
	for _, e := range a.Elems[1:] {
		if truthy(vm.send(e, sel, []Value{best})) {
			best = e
		}
	}
	return best
}

// sortElems sorts in place with <= or a two-argument block answering
// whether its first argument sorts before or with its second.
func (vm *VM) sortElems(elems []Value, block *Block) {
	before := func(a, b Value) bool {
		if block != nil {
			return vm.boolOf("sort:", vm.callBlock(block, []Value{a, b}))
		}
		return vm.boolOf("sort", vm.send(a, "<=", []Value{b}))
	}
	sort.SliceStable(elems, func(i, j int) bool {
		return before(elems[i], elems[j]) && !before(elems[j], elems[i])
	})
}
