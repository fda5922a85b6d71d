package vm

// ---------------------------------------------------------------------------
// Boolean Primitives (True, False)
// ---------------------------------------------------------------------------

func (vm *VM) registerBooleanPrimitives() {
	b := vm.BooleanClass

	b.prim("not", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(!truthy(recv))
	})

	// & and | evaluate their argument eagerly.
	b.prim("&", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(truthy(recv) && vm.boolOf("&", args[0]))
	})
	b.prim("|", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(vm.boolOf("|", args[0]) || truthy(recv))
	})
	b.prim("xor:", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(truthy(recv) != vm.boolOf("xor:", vm.valueOf(args[0])))
	})

	// and: / or: short-circuit
	b.prim("and:", func(vm *VM, recv Value, args []Value) Value {
		if !truthy(recv) {
			return False
		}
		return vm.valueOf(args[0])
	})
	b.prim("or:", func(vm *VM, recv Value, args []Value) Value {
		if truthy(recv) {
			return True
		}
		return vm.valueOf(args[0])
	})

	b.prim("ifTrue:", func(vm *VM, recv Value, args []Value) Value {
		if truthy(recv) {
			return vm.valueOf(args[0])
		}
		return Nil
	})
	b.prim("ifFalse:", func(vm *VM, recv Value, args []Value) Value {
		if !truthy(recv) {
			return vm.valueOf(args[0])
		}
		return Nil
	})
	b.prim("ifTrue:ifFalse:", func(vm *VM, recv Value, args []Value) Value {
		if truthy(recv) {
			return vm.valueOf(args[0])
		}
		return vm.valueOf(args[1])
	})
	b.prim("ifFalse:ifTrue:", func(vm *VM, recv Value, args []Value) Value {
		if truthy(recv) {
			return vm.valueOf(args[1])
		}
		return vm.valueOf(args[0])
	})
}
