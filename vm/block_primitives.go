package vm

// ---------------------------------------------------------------------------
// Block Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerBlockPrimitives() {
	c := vm.BlockClass

	value := func(vm *VM, recv Value, args []Value) Value {
		return vm.callBlock(recv.(*Block), args)
	}
	c.prim("value", value)
	c.prim("value:", value)
	c.prim("value:value:", value)
	c.prim("value:value:value:", value)
	c.prim("value:value:value:value:", value)
	c.prim("valueWithArguments:", func(vm *VM, recv Value, args []Value) Value {
		arr, ok := args[0].(*Array)
		if !ok {
			vm.argError("valueWithArguments:", "an Array", args[0])
		}
		return vm.callBlock(recv.(*Block), append([]Value(nil), arr.Elems...))
	})
	c.prim("numArgs", func(vm *VM, recv Value, args []Value) Value {
		return Int(recv.(*Block).NumArgs())
	})

	// loops
	c.prim("whileTrue:", func(vm *VM, recv Value, args []Value) Value {
		cond, body := recv.(*Block), vm.blockArg("whileTrue:", args[0])
		for vm.boolOf("whileTrue:", vm.callBlock(cond, nil)) {
			vm.checkInterrupt()
			vm.callBlock(body, nil)
		}
		return Nil
	})
	c.prim("whileFalse:", func(vm *VM, recv Value, args []Value) Value {
		cond, body := recv.(*Block), vm.blockArg("whileFalse:", args[0])
		for !vm.boolOf("whileFalse:", vm.callBlock(cond, nil)) {
			vm.checkInterrupt()
			vm.callBlock(body, nil)
		}
		return Nil
	})
	c.prim("whileTrue", func(vm *VM, recv Value, args []Value) Value {
		for vm.boolOf("whileTrue", vm.callBlock(recv.(*Block), nil)) {
			vm.checkInterrupt()
		}
		return Nil
	})
	c.prim("whileFalse", func(vm *VM, recv Value, args []Value) Value {
		for !vm.boolOf("whileFalse", vm.callBlock(recv.(*Block), nil)) {
			vm.checkInterrupt()
		}
		return Nil
	})
	c.prim("repeat", func(vm *VM, recv Value, args []Value) Value {
		for {
			vm.checkInterrupt()
			vm.callBlock(recv.(*Block), nil)
		}
	})

	// exception handling
	c.prim("on:do:", func(vm *VM, recv Value, args []Value) Value {
		return vm.onDo(recv.(*Block), args[0], args[1])
	})
	c.prim("ensure:", func(vm *VM, recv Value, args []Value) Value {
		return vm.ensure(recv.(*Block), vm.blockArg("ensure:", args[0]))
	})
	c.prim("ifCurtailed:", func(vm *VM, recv Value, args []Value) Value {
		return vm.ifCurtailed(recv.(*Block), vm.blockArg("ifCurtailed:", args[0]))
	})
}
