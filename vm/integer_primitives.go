package vm

import (
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Number Primitives: shared by Integer and Float
// ---------------------------------------------------------------------------

// arith applies an operator to two numbers. Two Ints use intOp, which
// reports overflow; any Float operand promotes both sides.
func (vm *VM) arith(sel string, recv, arg Value, intOp func(a, b int64) (int64, bool), floatOp func(a, b float64) float64) Value {
	if a, ok := recv.(Int); ok {
		if b, ok := arg.(Int); ok {
			r, ok := intOp(int64(a), int64(b))
			if !ok {
				vm.signalf(vm.ArithmeticErrorClass, "integer overflow in %d %s %d", a, sel, b)
			}
			return Int(r)
		}
	}
	return Float(floatOp(vm.floatArg(sel, recv), vm.floatArg(sel, arg)))
}

func addInt(a, b int64) (int64, bool) {
	s := a + b
	return s, (a >= 0) != (b >= 0) || (s >= 0) == (a >= 0)
}

func subInt(a, b int64) (int64, bool) {
	s := a - b
	return s, (a >= 0) == (b >= 0) || (s >= 0) == (a >= 0)
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	hi, lo := bits.Mul64(uint64(absInt(a)), uint64(absInt(b)))
	neg := (a < 0) != (b < 0)
	if hi != 0 {
		return 0, false
	}
	if neg {
		if lo > 1<<63 {
			return 0, false
		}
		return -int64(lo), true
	}
	if lo >= 1<<63 {
		return 0, false
	}
	return int64(lo), true
}

// absInt returns |a| as an unsigned magnitude; MinInt64 maps to 2^63.
func absInt(a int64) uint64 {
	if a < 0 {
		return uint64(-(a + 1)) + 1
	}
	return uint64(a)
}

// floorDiv and floorMod round toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

func (vm *VM) compare(sel string, recv, arg Value) int {
	if a, ok := recv.(Int); ok {
		if b, ok := arg.(Int); ok {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			}
			return 0
		}
	}
	a, b := vm.floatArg(sel, recv), vm.floatArg(sel, arg)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	case a == b:
		return 0
	}
	// NaN compares unordered; every ordering test is false.
	return 2
}

func (vm *VM) isZero(v Value) bool {
	switch x := v.(type) {
	case Int:
		return x == 0
	case Float:
		return x == 0
	}
	return false
}

func (vm *VM) registerNumberPrimitives() {
	n := vm.NumberClass

	n.prim("+", func(vm *VM, recv Value, args []Value) Value {
		return vm.arith("+", recv, args[0], addInt, func(a, b float64) float64 { return a + b })
	})
	n.prim("-", func(vm *VM, recv Value, args []Value) Value {
		return vm.arith("-", recv, args[0], subInt, func(a, b float64) float64 { return a - b })
	})
	n.prim("*", func(vm *VM, recv Value, args []Value) Value {
		return vm.arith("*", recv, args[0], mulInt, func(a, b float64) float64 { return a * b })
	})
	n.prim("/", func(vm *VM, recv Value, args []Value) Value {
		if vm.isZero(args[0]) {
			vm.signalf(vm.ZeroDivideClass, "division by zero")
		}
		if a, ok := recv.(Int); ok {
			if b, ok := args[0].(Int); ok && a%b == 0 && !(a == math.MinInt64 && b == -1) {
				return a / b
			}
		}
		return Float(vm.floatArg("/", recv) / vm.floatArg("/", args[0]))
	})
	n.prim("//", func(vm *VM, recv Value, args []Value) Value {
		if vm.isZero(args[0]) {
			vm.signalf(vm.ZeroDivideClass, "division by zero")
		}
		if a, ok := recv.(Int); ok {
			if b, ok := args[0].(Int); ok {
				if a == math.MinInt64 && b == -1 {
					vm.signalf(vm.ArithmeticErrorClass, "integer overflow in %d // %d", a, b)
				}
				return Int(floorDiv(int64(a), int64(b)))
			}
		}
		return vm.floatToInt("//", math.Floor(vm.floatArg("//", recv)/vm.floatArg("//", args[0])))
	})
	n.prim("\\\\", func(vm *VM, recv Value, args []Value) Value {
		if vm.isZero(args[0]) {
			vm.signalf(vm.ZeroDivideClass, "division by zero")
		}
		if a, ok := recv.(Int); ok {
			if b, ok := args[0].(Int); ok {
				if b == -1 {
					return Int(0)
				}
				return Int(floorMod(int64(a), int64(b)))
			}
		}
		a, b := vm.floatArg("\\\\", recv), vm.floatArg("\\\\", args[0])
		return Float(a - b*math.Floor(a/b))
	})
	n.prim("rem:", func(vm *VM, recv Value, args []Value) Value {
		if vm.isZero(args[0]) {
			vm.signalf(vm.ZeroDivideClass, "division by zero")
		}
		if a, ok := recv.(Int); ok {
			if b, ok := args[0].(Int); ok {
				if b == -1 {
					return Int(0)
				}
				return a % b
			}
		}
		return Float(math.Mod(vm.floatArg("rem:", recv), vm.floatArg("rem:", args[0])))
	})
	n.prim("quo:", func(vm *VM, recv Value, args []Value) Value {
		if vm.isZero(args[0]) {
			vm.signalf(vm.ZeroDivideClass, "division by zero")
		}
		if a, ok := recv.(Int); ok {
			if b, ok := args[0].(Int); ok {
				if a == math.MinInt64 && b == -1 {
					vm.signalf(vm.ArithmeticErrorClass, "integer overflow in %d quo: %d", a, b)
				}
				return a / b
			}
		}
		return vm.floatToInt("quo:", math.Trunc(vm.floatArg("quo:", recv)/vm.floatArg("quo:", args[0])))
	})

	// comparison
	order := func(sel string, test func(c int) bool) {
		n.prim(sel, func(vm *VM, recv Value, args []Value) Value {
			return FromBool(test(vm.compare(sel, recv, args[0])))
		})
	}
	order("<", func(c int) bool { return c == -1 })
	order(">", func(c int) bool { return c == 1 })
	order("<=", func(c int) bool { return c == -1 || c == 0 })
	order(">=", func(c int) bool { return c == 1 || c == 0 })

	n.prim("max:", func(vm *VM, recv Value, args []Value) Value {
		if vm.compare("max:", recv, args[0]) == -1 {
			return args[0]
		}
		return recv
	})
	n.prim("min:", func(vm *VM, recv Value, args []Value) Value {
		if vm.compare("min:", recv, args[0]) == 1 {
			return args[0]
		}
		return recv
	})
	n.prim("between:and:", func(vm *VM, recv Value, args []Value) Value {
		lo := vm.compare("between:and:", recv, args[0])
		hi := vm.compare("between:and:", recv, args[1])
		return FromBool((lo == 0 || lo == 1) && (hi == 0 || hi == -1))
	})

	n.prim("negated", func(vm *VM, recv Value, args []Value) Value {
		return vm.arith("negated", Int(0), recv, subInt, func(a, b float64) float64 { return -b })
	})
	n.prim("abs", func(vm *VM, recv Value, args []Value) Value {
		if vm.compare("abs", recv, Int(0)) == -1 {
			return vm.arith("abs", Int(0), recv, subInt, func(a, b float64) float64 { return -b })
		}
		return recv
	})
	n.prim("sign", func(vm *VM, recv Value, args []Value) Value {
		switch vm.compare("sign", recv, Int(0)) {
		case -1:
			return Int(-1)
		case 1:
			return Int(1)
		}
		return Int(0)
	})
	n.prim("isZero", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(vm.isZero(recv))
	})
	n.prim("squared", func(vm *VM, recv Value, args []Value) Value {
		return vm.arith("squared", recv, recv, mulInt, func(a, b float64) float64 { return a * b })
	})
	n.prim("sqrt", func(vm *VM, recv Value, args []Value) Value {
		f := vm.floatArg("sqrt", recv)
		if f < 0 {
			vm.signalf(vm.ArithmeticErrorClass, "square root of negative number %s", formatFloat(f))
		}
		return Float(math.Sqrt(f))
	})
	n.prim("raisedTo:", func(vm *VM, recv Value, args []Value) Value {
		if a, ok := recv.(Int); ok {
			if e, ok := args[0].(Int); ok && e >= 0 {
				return vm.intPow(int64(a), int64(e))
			}
		}
		return Float(math.Pow(vm.floatArg("raisedTo:", recv), vm.floatArg("raisedTo:", args[0])))
	})
	n.prim("ln", func(vm *VM, recv Value, args []Value) Value {
		return Float(math.Log(vm.floatArg("ln", recv)))
	})
	n.prim("log:", func(vm *VM, recv Value, args []Value) Value {
		return Float(math.Log(vm.floatArg("log:", recv)) / math.Log(vm.floatArg("log:", args[0])))
	})
	n.prim("exp", func(vm *VM, recv Value, args []Value) Value {
		return Float(math.Exp(vm.floatArg("exp", recv)))
	})
	n.prim("asFloat", func(vm *VM, recv Value, args []Value) Value {
		return Float(vm.floatArg("asFloat", recv))
	})
	n.prim("asString", func(vm *VM, recv Value, args []Value) Value {
		return String(vm.printString(recv))
	})
	n.prim("displayString", func(vm *VM, recv Value, args []Value) Value {
		return String(vm.printString(recv))
	})

	// iteration
	n.prim("to:do:", func(vm *VM, recv Value, args []Value) Value {
		vm.toByDo(recv, args[0], Int(1), vm.blockArg("to:do:", args[1]))
		return recv
	})
	n.prim("to:by:do:", func(vm *VM, recv Value, args []Value) Value {
		vm.toByDo(recv, args[0], args[1], vm.blockArg("to:by:do:", args[2]))
		return recv
	})
	n.prim("to:", func(vm *VM, recv Value, args []Value) Value {
		var elems []Value
		vm.toByDo(recv, args[0], Int(1), vm.NewNativeBlock(1, func(a []Value) (Value, error) {
			elems = append(elems, a[0])
			return Nil, nil
		}))
		return vm.newArray(elems)
	})
}

// toByDo runs block for each value from start to stop stepping by step.
// Integer bounds iterate Ints; any Float bound iterates Floats.
func (vm *VM) toByDo(start, stop, step Value, block *Block) {
	if vm.isZero(step) {
		vm.signalf(vm.InvalidArgumentClass, "to:by:do: step must not be zero")
	}
	a, aok := start.(Int)
	b, bok := stop.(Int)
	s, sok := step.(Int)
	if aok && bok && sok {
		for i := int64(a); (s > 0 && i <= int64(b)) || (s < 0 && i >= int64(b)); i += int64(s) {
			vm.checkInterrupt()
			vm.callBlock(block, []Value{Int(i)})
			if (s > 0 && i > math.MaxInt64-int64(s)) || (s < 0 && i < math.MinInt64-int64(s)) {
				break
			}
		}
		return
	}
	fa, fb, fs := vm.floatArg("to:do:", start), vm.floatArg("to:do:", stop), vm.floatArg("to:do:", step)
	for f := fa; (fs > 0 && f <= fb) || (fs < 0 && f >= fb); f += fs {
		vm.checkInterrupt()
		vm.callBlock(block, []Value{Float(f)})
	}
}

func (vm *VM) intPow(base, exp int64) Value {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			r, ok := mulInt(result, base)
			if !ok {
				vm.signalf(vm.ArithmeticErrorClass, "integer overflow in raisedTo:")
			}
			result = r
		}
		exp >>= 1
		if exp > 0 {
			b, ok := mulInt(base, base)
			if !ok {
				vm.signalf(vm.ArithmeticErrorClass, "integer overflow in raisedTo:")
			}
			base = b
		}
	}
	return Int(result)
}

// floatToInt converts an integral float, signaling ArithmeticError when it
// is not finite or does not fit.
func (vm *VM) floatToInt(sel string, f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= 9.223372036854775807e18 || f < -9.223372036854775808e18 {
		vm.signalf(vm.ArithmeticErrorClass, "%s: %s cannot be converted to an Integer", sel, formatFloat(f))
	}
	return Int(int64(f))
}

// ---------------------------------------------------------------------------
// Integer Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerIntegerPrimitives() {
	c := vm.IntegerClass

	ident := func(vm *VM, recv Value, args []Value) Value { return recv }
	for _, sel := range []string{"asInteger", "truncated", "rounded", "floor", "ceiling"} {
		c.prim(sel, ident)
	}

	c.prim("even", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(recv.(Int)%2 == 0)
	})
	c.prim("odd", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(recv.(Int)%2 != 0)
	})
	c.prim("gcd:", func(vm *VM, recv Value, args []Value) Value {
		a, b := absInt(int64(recv.(Int))), absInt(vm.intArg("gcd:", args[0]))
		for b != 0 {
			a, b = b, a%b
		}
		if a > math.MaxInt64 {
			vm.signalf(vm.ArithmeticErrorClass, "integer overflow in gcd:")
		}
		return Int(a)
	})
	c.prim("factorial", func(vm *VM, recv Value, args []Value) Value {
		n := int64(recv.(Int))
		if n < 0 {
			vm.signalf(vm.ArithmeticErrorClass, "factorial of negative number %d", n)
		}
		result := int64(1)
		for i := int64(2); i <= n; i++ {
			r, ok := mulInt(result, i)
			if !ok {
				vm.signalf(vm.ArithmeticErrorClass, "integer overflow in factorial")
			}
			result = r
		}
		return Int(result)
	})
	c.prim("timesRepeat:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("timesRepeat:", args[0])
		for i := int64(0); i < int64(recv.(Int)); i++ {
			vm.checkInterrupt()
			vm.callBlock(b, nil)
		}
		return recv
	})

	// bitwise
	c.prim("bitAnd:", func(vm *VM, recv Value, args []Value) Value {
		return recv.(Int) & Int(vm.intArg("bitAnd:", args[0]))
	})
	c.prim("bitOr:", func(vm *VM, recv Value, args []Value) Value {
		return recv.(Int) | Int(vm.intArg("bitOr:", args[0]))
	})
	c.prim("bitXor:", func(vm *VM, recv Value, args []Value) Value {
		return recv.(Int) ^ Int(vm.intArg("bitXor:", args[0]))
	})
	c.prim("bitShift:", func(vm *VM, recv Value, args []Value) Value {
		a, n := int64(recv.(Int)), vm.intArg("bitShift:", args[0])
		switch {
		case n >= 0:
			if n >= 63 || (a != 0 && bits.Len64(absInt(a))+int(n) > 63) {
				if a != 0 {
					vm.signalf(vm.ArithmeticErrorClass, "integer overflow in bitShift:")
				}
				return Int(0)
			}
			return Int(a << uint(n))
		case n <= -64:
			if a < 0 {
				return Int(-1)
			}
			return Int(0)
		}
		return Int(a >> uint(-n))
	})

	c.prim("printString:", func(vm *VM, recv Value, args []Value) Value {
		base := vm.intArg("printString:", args[0])
		if base < 2 || base > 36 {
			vm.signalf(vm.InvalidArgumentClass, "radix %d out of range 2..36", base)
		}
		return String(strings.ToUpper(strconv.FormatInt(int64(recv.(Int)), int(base))))
	})
	c.prim("printPaddedWith:to:", func(vm *VM, recv Value, args []Value) Value {
		pad := vm.textArg("printPaddedWith:to:", args[0])
		width := int(vm.intArg("printPaddedWith:to:", args[1]))
		n := int64(recv.(Int))
		s := strconv.FormatInt(n, 10)
		neg := n < 0
		if neg {
			s = s[1:]
		}
		for len(s) < width && pad != "" {
			s = pad + s
		}
		if neg {
			s = "-" + s
		}
		return String(s)
	})
	c.prim("asCharacter", func(vm *VM, recv Value, args []Value) Value {
		n := int64(recv.(Int))
		if n < 0 || n > 0x10FFFF {
			vm.signalf(vm.InvalidArgumentClass, "%d is not a code point", n)
		}
		return String(string(rune(n)))
	})

	c.classPrim("readFrom:", func(vm *VM, recv Value, args []Value) Value {
		s := strings.TrimSpace(vm.textArg("readFrom:", args[0]))
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			vm.signalf(vm.InvalidArgumentClass, "invalid integer %s", quote(s))
		}
		return Int(n)
	})
}
