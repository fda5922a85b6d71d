package vm

import (
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Float Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerFloatPrimitives() {
	c := vm.FloatClass

	c.prim("truncated", func(vm *VM, recv Value, args []Value) Value {
		return vm.floatToInt("truncated", math.Trunc(float64(recv.(Float))))
	})
	c.prim("asInteger", func(vm *VM, recv Value, args []Value) Value {
		return vm.floatToInt("asInteger", math.Trunc(float64(recv.(Float))))
	})
	c.prim("rounded", func(vm *VM, recv Value, args []Value) Value {
		return vm.floatToInt("rounded", math.Round(float64(recv.(Float))))
	})
	c.prim("floor", func(vm *VM, recv Value, args []Value) Value {
		return vm.floatToInt("floor", math.Floor(float64(recv.(Float))))
	})
	c.prim("ceiling", func(vm *VM, recv Value, args []Value) Value {
		return vm.floatToInt("ceiling", math.Ceil(float64(recv.(Float))))
	})
	c.prim("fractionPart", func(vm *VM, recv Value, args []Value) Value {
		f := float64(recv.(Float))
		return Float(f - math.Trunc(f))
	})
	c.prim("roundTo:", func(vm *VM, recv Value, args []Value) Value {
		q := vm.floatArg("roundTo:", args[0])
		if q == 0 {
			vm.signalf(vm.ZeroDivideClass, "division by zero")
		}
		return Float(math.Round(float64(recv.(Float))/q) * q)
	})
	c.prim("isNaN", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(math.IsNaN(float64(recv.(Float))))
	})
	c.prim("isInfinite", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(math.IsInf(float64(recv.(Float)), 0))
	})
	c.prim("isFinite", func(vm *VM, recv Value, args []Value) Value {
		f := float64(recv.(Float))
		return FromBool(!math.IsNaN(f) && !math.IsInf(f, 0))
	})
	c.prim("sin", func(vm *VM, recv Value, args []Value) Value {
		return Float(math.Sin(float64(recv.(Float))))
	})
	c.prim("cos", func(vm *VM, recv Value, args []Value) Value {
		return Float(math.Cos(float64(recv.(Float))))
	})
	c.prim("printString:", func(vm *VM, recv Value, args []Value) Value {
		digits := vm.intArg("printString:", args[0])
		if digits < 0 || digits > 17 {
			vm.signalf(vm.InvalidArgumentClass, "digits %d out of range 0..17", digits)
		}
		return String(strconv.FormatFloat(float64(recv.(Float)), 'f', int(digits), 64))
	})

	c.classPrim("nan", func(vm *VM, recv Value, args []Value) Value {
		return Float(math.NaN())
	})
	c.classPrim("infinity", func(vm *VM, recv Value, args []Value) Value {
		return Float(math.Inf(1))
	})
	c.classPrim("pi", func(vm *VM, recv Value, args []Value) Value {
		return Float(math.Pi)
	})
	c.classPrim("readFrom:", func(vm *VM, recv Value, args []Value) Value {
		s := strings.TrimSpace(vm.textArg("readFrom:", args[0]))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			vm.signalf(vm.InvalidArgumentClass, "invalid number %s", quote(s))
		}
		return Float(f)
	})
}
