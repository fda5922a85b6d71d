package vm

// ---------------------------------------------------------------------------
// Dictionary Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerDictionaryPrimitives() {
	c := vm.DictionaryClass

	c.classPrim("new", func(vm *VM, recv Value, args []Value) Value {
		return vm.newDict()
	})
	c.classPrim("new:", func(vm *VM, recv Value, args []Value) Value {
		return vm.newDict()
	})

	dict := func(v Value) *Dictionary { return v.(*Dictionary) }

	c.prim("size", func(vm *VM, recv Value, args []Value) Value {
		return Int(dict(recv).Len())
	})
	c.prim("isEmpty", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(dict(recv).Len() == 0)
	})
	c.prim("notEmpty", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(dict(recv).Len() != 0)
	})

	// access
	c.prim("at:", func(vm *VM, recv Value, args []Value) Value {
		if v, ok := dict(recv).Get(args[0]); ok {
			return v
		}
		vm.signalf(vm.KeyNotFoundClass, "key not found: %s", vm.sendPrint(args[0]))
		return Nil
	})
	c.prim("at:put:", func(vm *VM, recv Value, args []Value) Value {
		dict(recv).Put(args[0], args[1])
		return args[1]
	})
	c.prim("at:ifAbsent:", func(vm *VM, recv Value, args []Value) Value {
		if v, ok := dict(recv).Get(args[0]); ok {
			return v
		}
		return vm.valueOf(args[1])
	})
	c.prim("at:ifAbsentPut:", func(vm *VM, recv Value, args []Value) Value {
		d := dict(recv)
		if v, ok := d.Get(args[0]); ok {
			return v
		}
		v := vm.valueOf(args[1])
		d.Put(args[0], v)
		return v
	})
	c.prim("at:ifPresent:", func(vm *VM, recv Value, args []Value) Value {
		if v, ok := dict(recv).Get(args[0]); ok {
			return vm.callOptional(vm.blockArg("at:ifPresent:", args[1]), v)
		}
		return Nil
	})
	c.prim("at:ifPresent:ifAbsent:", func(vm *VM, recv Value, args []Value) Value {
		if v, ok := dict(recv).Get(args[0]); ok {
			return vm.callOptional(vm.blockArg("at:ifPresent:ifAbsent:", args[1]), v)
		}
		return vm.valueOf(args[2])
	})
	c.prim("removeKey:", func(vm *VM, recv Value, args []Value) Value {
		d := dict(recv)
		v, ok := d.Get(args[0])
		if !ok {
			vm.signalf(vm.KeyNotFoundClass, "key not found: %s", vm.sendPrint(args[0]))
		}
		d.Delete(args[0])
		return v
	})
	c.prim("removeKey:ifAbsent:", func(vm *VM, recv Value, args []Value) Value {
		d := dict(recv)
		v, ok := d.Get(args[0])
		if !ok {
			return vm.valueOf(args[1])
		}
		d.Delete(args[0])
		return v
	})
	c.prim("includesKey:", func(vm *VM, recv Value, args []Value) Value {
		_, ok := dict(recv).Get(args[0])
		return FromBool(ok)
	})
	c.prim("includes:", func(vm *VM, recv Value, args []Value) Value {
		found := false
		dict(recv).Range(func(_, v Value) bool {
			found = vm.equal(v, args[0])
			return !found
		})
		return FromBool(found)
	})
	c.prim("keyAtValue:", func(vm *VM, recv Value, args []Value) Value {
		var key Value = Nil
		dict(recv).Range(func(k, v Value) bool {
			if vm.equal(v, args[0]) {
				key = k
				return false
			}
			return true
		})
		return key
	})

	// views
	c.prim("keys", func(vm *VM, recv Value, args []Value) Value {
		return vm.newArray(dict(recv).Keys())
	})
	c.prim("values", func(vm *VM, recv Value, args []Value) Value {
		return vm.newArray(append([]Value(nil), dict(recv).vals...))
	})
	c.prim("associations", func(vm *VM, recv Value, args []Value) Value {
		var out []Value
		dict(recv).Range(func(k, v Value) bool {
			a := &Association{Key: k, Val: v}
			vm.alloc(a)
			out = append(out, a)
			return true
		})
		return vm.newArray(out)
	})

	// enumeration; the receiver may be modified by the block, so iterate a
	// snapshot.
	each := func(d *Dictionary, fn func(k, v Value)) {
		keys := d.Keys()
		vals := append([]Value(nil), d.vals...)
		for i := range keys {
			fn(keys[i], vals[i])
		}
	}
	c.prim("do:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("do:", args[0])
		each(dict(recv), func(_, v Value) { vm.callBlock(b, []Value{v}) })
		return recv
	})
	c.prim("valuesDo:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("valuesDo:", args[0])
		each(dict(recv), func(_, v Value) { vm.callBlock(b, []Value{v}) })
		return recv
	})
	c.prim("keysDo:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("keysDo:", args[0])
		each(dict(recv), func(k, _ Value) { vm.callBlock(b, []Value{k}) })
		return recv
	})
	c.prim("keysAndValuesDo:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("keysAndValuesDo:", args[0])
		each(dict(recv), func(k, v Value) { vm.callBlock(b, []Value{k, v}) })
		return recv
	})
	c.prim("associationsDo:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("associationsDo:", args[0])
		each(dict(recv), func(k, v Value) {
			a := &Association{Key: k, Val: v}
			vm.alloc(a)
			vm.callBlock(b, []Value{a})
		})
		return recv
	})
	c.prim("collect:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("collect:", args[0])
		var out []Value
		each(dict(recv), func(_, v Value) { out = append(out, vm.callBlock(b, []Value{v})) })
		return vm.newArray(out)
	})
	c.prim("select:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("select:", args[0])
		out := vm.newDict()
		each(dict(recv), func(k, v Value) {
			if vm.boolOf("select:", vm.callBlock(b, []Value{v})) {
				out.Put(k, v)
			}
		})
		return out
	})
	c.prim("reject:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("reject:", args[0])
		out := vm.newDict()
		each(dict(recv), func(k, v Value) {
			if !vm.boolOf("reject:", vm.callBlock(b, []Value{v})) {
				out.Put(k, v)
			}
		})
		return out
	})
	c.prim("addAll:", func(vm *VM, recv Value, args []Value) Value {
		other, ok := args[0].(*Dictionary)
		if !ok {
			vm.argError("addAll:", "a Dictionary", args[0])
		}
		d := dict(recv)
		other.Range(func(k, v Value) bool {
			d.Put(k, v)
			return true
		})
		return args[0]
	})
}
