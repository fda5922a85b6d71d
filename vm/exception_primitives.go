package vm

// ---------------------------------------------------------------------------
// Exception Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerExceptionPrimitives() {
	c := vm.ExceptionClass

	// Class side
	c.classPrim("signal", func(vm *VM, recv Value, args []Value) Value {
		vm.signal(vm.newException(recv.(*Class), ""))
		return Nil
	})
	c.classPrim("signal:", func(vm *VM, recv Value, args []Value) Value {
		vm.signal(vm.newException(recv.(*Class), vm.displayString(args[0])))
		return Nil
	})
	// `ZeroDivide, KeyNotFound` builds an exception set for on:do:.
	c.classPrim(",", func(vm *VM, recv Value, args []Value) Value {
		return vm.newArray([]Value{recv, args[0]})
	})
	c.classPrim("handles:", func(vm *VM, recv Value, args []Value) Value {
		e, ok := args[0].(*Exception)
		return FromBool(ok && e.class.IsSubclassOf(recv.(*Class)))
	})

	exc := func(v Value) *Exception { return v.(*Exception) }

	c.prim("signal", func(vm *VM, recv Value, args []Value) Value {
		vm.signal(exc(recv))
		return Nil
	})
	c.prim("signal:", func(vm *VM, recv Value, args []Value) Value {
		e := exc(recv)
		e.MessageText = String(vm.displayString(args[0]))
		vm.signal(e)
		return Nil
	})
	c.prim("messageText", func(vm *VM, recv Value, args []Value) Value {
		e := exc(recv)
		if IsNil(e.MessageText) {
			return String(e.Description())
		}
		return e.MessageText
	})
	c.prim("messageText:", func(vm *VM, recv Value, args []Value) Value {
		exc(recv).MessageText = args[0]
		return recv
	})
	c.prim("description", func(vm *VM, recv Value, args []Value) Value {
		return String(exc(recv).Description())
	})

	// Handler actions. These unwind to the on:do: that is handling the
	// exception.
	c.prim("return:", func(vm *VM, recv Value, args []Value) Value {
		panic(&handlerExit{exc: exc(recv), value: args[0]})
	})
	c.prim("return", func(vm *VM, recv Value, args []Value) Value {
		panic(&handlerExit{exc: exc(recv), value: Nil})
	})
	c.prim("retry", func(vm *VM, recv Value, args []Value) Value {
		panic(&handlerExit{exc: exc(recv), value: Nil, retry: true})
	})
	c.prim("pass", func(vm *VM, recv Value, args []Value) Value {
		vm.signal(exc(recv))
		return Nil
	})
	c.prim("signalerClass", func(vm *VM, recv Value, args []Value) Value {
		return exc(recv).class
	})

	// MessageNotUnderstood class side: signal with a receiver and selector.
	vm.MessageNotUnderstoodClass.classPrim("receiver:selector:", func(vm *VM, recv Value, args []Value) Value {
		return vm.doesNotUnderstand(args[0], vm.textArg("receiver:selector:", args[1]))
	})
}
