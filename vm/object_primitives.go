package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Object Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerObjectPrimitives() {
	c := vm.ObjectClass

	c.prim("==", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(recv == args[0])
	})
	c.prim("~~", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(recv != args[0])
	})
	c.prim("=", func(vm *VM, recv Value, args []Value) Value {
		if o, ok := recv.(*Object); ok {
			// Reached only when no source class overrides =.
			return FromBool(Value(o) == args[0])
		}
		return FromBool(vm.equal(recv, args[0]))
	})
	c.prim("~=", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(!truthy(vm.send(recv, "=", args)))
	})
	c.prim("class", func(vm *VM, recv Value, args []Value) Value {
		return vm.ClassOf(recv)
	})
	c.prim("yourself", func(vm *VM, recv Value, args []Value) Value {
		return recv
	})

	// nil tests
	c.prim("isNil", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(IsNil(recv))
	})
	c.prim("notNil", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(!IsNil(recv))
	})
	c.prim("ifNil:", func(vm *VM, recv Value, args []Value) Value {
		if IsNil(recv) {
			return vm.valueOf(args[0])
		}
		return recv
	})
	c.prim("ifNotNil:", func(vm *VM, recv Value, args []Value) Value {
		if IsNil(recv) {
			return Nil
		}
		return vm.callOptional(vm.blockArg("ifNotNil:", args[0]), recv)
	})
	c.prim("ifNil:ifNotNil:", func(vm *VM, recv Value, args []Value) Value {
		if IsNil(recv) {
			return vm.valueOf(args[0])
		}
		return vm.callOptional(vm.blockArg("ifNil:ifNotNil:", args[1]), recv)
	})
	c.prim("ifNotNil:ifNil:", func(vm *VM, recv Value, args []Value) Value {
		if IsNil(recv) {
			return vm.valueOf(args[1])
		}
		return vm.callOptional(vm.blockArg("ifNotNil:ifNil:", args[0]), recv)
	})

	// type tests
	kindTest := func(sel string, test func(Value) bool) {
		c.prim(sel, func(vm *VM, recv Value, args []Value) Value {
			return FromBool(test(recv))
		})
	}
	kindTest("isString", func(v Value) bool { _, ok := v.(String); return ok })
	kindTest("isSymbol", func(v Value) bool { _, ok := v.(Symbol); return ok })
	kindTest("isNumber", func(v Value) bool { k := v.Kind(); return k == KindInt || k == KindFloat })
	kindTest("isInteger", func(v Value) bool { return v.Kind() == KindInt })
	kindTest("isFloat", func(v Value) bool { return v.Kind() == KindFloat })
	kindTest("isArray", func(v Value) bool { return v.Kind() == KindSequence })
	kindTest("isDictionary", func(v Value) bool { return v.Kind() == KindMapping })
	kindTest("isBoolean", func(v Value) bool { return v.Kind() == KindBool })
	kindTest("isBlock", func(v Value) bool { _, ok := v.(*Block); return ok })
	kindTest("isClass", func(v Value) bool { _, ok := v.(*Class); return ok })
	kindTest("isTime", func(v Value) bool { return v.Kind() == KindTime })

	c.prim("isKindOf:", func(vm *VM, recv Value, args []Value) Value {
		cls, ok := args[0].(*Class)
		if !ok {
			vm.argError("isKindOf:", "a Class", args[0])
		}
		return FromBool(vm.ClassOf(recv).IsSubclassOf(cls))
	})
	c.prim("isMemberOf:", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(Value(vm.ClassOf(recv)) == args[0])
	})
	c.prim("respondsTo:", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(vm.respondsTo(recv, vm.textArg("respondsTo:", args[0])))
	})

	// reflection
	c.prim("perform:", func(vm *VM, recv Value, args []Value) Value {
		return vm.send(recv, vm.textArg("perform:", args[0]), nil)
	})
	c.prim("perform:with:", func(vm *VM, recv Value, args []Value) Value {
		return vm.send(recv, vm.textArg("perform:with:", args[0]), args[1:])
	})
	c.prim("perform:with:with:", func(vm *VM, recv Value, args []Value) Value {
		return vm.send(recv, vm.textArg("perform:with:with:", args[0]), args[1:])
	})
	c.prim("perform:withArguments:", func(vm *VM, recv Value, args []Value) Value {
		arr, ok := args[1].(*Array)
		if !ok {
			vm.argError("perform:withArguments:", "an Array", args[1])
		}
		return vm.send(recv, vm.textArg("perform:withArguments:", args[0]), append([]Value(nil), arr.Elems...))
	})
	c.prim("instVarNamed:", func(vm *VM, recv Value, args []Value) Value {
		name := vm.textArg("instVarNamed:", args[0])
		if obj := slotsOf(recv); obj != nil {
			if i := obj.class.InstVarIndex(name); i >= 0 {
				return obj.Slots[i]
			}
		}
		vm.signalf(vm.InvalidArgumentClass, "%s has no instance variable %s", article(vm.typeName(recv)), name)
		return Nil
	})
	c.prim("instVarNamed:put:", func(vm *VM, recv Value, args []Value) Value {
		name := vm.textArg("instVarNamed:put:", args[0])
		if obj := slotsOf(recv); obj != nil {
			if i := obj.class.InstVarIndex(name); i >= 0 {
				obj.Slots[i] = args[1]
				return args[1]
			}
		}
		vm.signalf(vm.InvalidArgumentClass, "%s has no instance variable %s", article(vm.typeName(recv)), name)
		return Nil
	})
	c.prim("copy", func(vm *VM, recv Value, args []Value) Value {
		return vm.shallowCopy(recv)
	})
	c.prim("->", func(vm *VM, recv Value, args []Value) Value {
		a := &Association{Key: recv, Val: args[0]}
		vm.alloc(a)
		return a
	})

	// errors
	c.prim("error:", func(vm *VM, recv Value, args []Value) Value {
		vm.signal(vm.newException(vm.ErrorClass, vm.displayString(args[0])))
		return Nil
	})
	c.prim("doesNotUnderstand:", func(vm *VM, recv Value, args []Value) Value {
		return vm.doesNotUnderstand(recv, vm.textArg("doesNotUnderstand:", args[0]))
	})

	// printing
	c.prim("printString", func(vm *VM, recv Value, args []Value) Value {
		return String(vm.printString(recv))
	})
	c.prim("displayString", func(vm *VM, recv Value, args []Value) Value {
		return String(vm.displayString(recv))
	})
	c.prim("printNl", func(vm *VM, recv Value, args []Value) Value {
		fmt.Fprintln(vm.out, vm.sendPrint(recv))
		return recv
	})
	c.prim("displayNl", func(vm *VM, recv Value, args []Value) Value {
		fmt.Fprintln(vm.out, vm.displayString(recv))
		return recv
	})

	// Association
	a := vm.AssociationClass
	a.prim("key", func(vm *VM, recv Value, args []Value) Value {
		return recv.(*Association).Key
	})
	a.prim("value", func(vm *VM, recv Value, args []Value) Value {
		return recv.(*Association).Val
	})
	a.prim("key:", func(vm *VM, recv Value, args []Value) Value {
		recv.(*Association).Key = args[0]
		return recv
	})
	a.prim("value:", func(vm *VM, recv Value, args []Value) Value {
		recv.(*Association).Val = args[0]
		return recv
	})
	a.classPrim("key:value:", func(vm *VM, recv Value, args []Value) Value {
		assoc := &Association{Key: args[0], Val: args[1]}
		vm.alloc(assoc)
		return assoc
	})

	// UndefinedObject
	vm.UndefinedObjectClass.prim("displayString", func(vm *VM, recv Value, args []Value) Value {
		return String("nil")
	})
}

func (vm *VM) shallowCopy(v Value) Value {
	switch x := v.(type) {
	case *Array:
		return vm.newArray(append([]Value(nil), x.Elems...))
	case *Dictionary:
		d := vm.newDict()
		x.Range(func(k, val Value) bool {
			d.Put(k, val)
			return true
		})
		return d
	case *Object:
		o := &Object{class: x.class, Slots: append([]Value(nil), x.Slots...)}
		vm.alloc(o)
		return o
	case *Association:
		a := &Association{Key: x.Key, Val: x.Val}
		vm.alloc(a)
		return a
	}
	return v
}

// ---------------------------------------------------------------------------
// Class Primitives: messages understood by every class
// ---------------------------------------------------------------------------

func (vm *VM) registerClassPrimitives() {
	// Class side of Object: instance creation for source classes.
	vm.ObjectClass.classPrim("new", func(vm *VM, recv Value, args []Value) Value {
		cls := recv.(*Class)
		if !vm.subclassable(cls) {
			vm.signalf(vm.InvalidArgumentClass, "%s cannot be instantiated with new", cls.Name)
		}
		return vm.newInstance(cls, vm.alloc)
	})

	c := vm.ClassClass
	c.prim("name", func(vm *VM, recv Value, args []Value) Value {
		return String(recv.(*Class).Name)
	})
	c.prim("printString", func(vm *VM, recv Value, args []Value) Value {
		return String(recv.(*Class).Name)
	})
	c.prim("superclass", func(vm *VM, recv Value, args []Value) Value {
		if s := recv.(*Class).Superclass; s != nil {
			return s
		}
		return Nil
	})
	c.prim("selectors", func(vm *VM, recv Value, args []Value) Value {
		sels := recv.(*Class).Selectors()
		elems := make([]Value, len(sels))
		for i, s := range sels {
			elems[i] = Symbol(s)
		}
		return vm.newArray(elems)
	})
	c.prim("includesSelector:", func(vm *VM, recv Value, args []Value) Value {
		sel := vm.textArg("includesSelector:", args[0])
		cls := recv.(*Class)
		_, ok := cls.Methods[sel]
		if !ok {
			_, ok = cls.prims[sel]
		}
		return FromBool(ok)
	})
	c.prim("inheritsFrom:", func(vm *VM, recv Value, args []Value) Value {
		other, ok := args[0].(*Class)
		cls := recv.(*Class)
		return FromBool(ok && cls != other && cls.IsSubclassOf(other))
	})
	c.prim("instVarNames", func(vm *VM, recv Value, args []Value) Value {
		names := recv.(*Class).AllInstVarNames()
		elems := make([]Value, len(names))
		for i, n := range names {
			elems[i] = String(n)
		}
		return vm.newArray(elems)
	})
	c.prim("comment", func(vm *VM, recv Value, args []Value) Value {
		return String(strings.TrimSpace(recv.(*Class).Doc))
	})
}
