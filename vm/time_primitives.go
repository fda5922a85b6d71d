package vm

import (
	"math"
	"time"
)

// ---------------------------------------------------------------------------
// Time Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerTimePrimitives() {
	c := vm.TimeClass

	// Class side
	c.classPrim("now", func(vm *VM, recv Value, args []Value) Value {
		now := vm.clock()
		return vm.newTime(now.Unix(), int64(now.Nanosecond()/1000))
	})
	c.classPrim("fromSeconds:", func(vm *VM, recv Value, args []Value) Value {
		switch s := args[0].(type) {
		case Int:
			return vm.newTime(int64(s), 0)
		case Float:
			f := float64(s)
			sec := math.Floor(f)
			return vm.newTime(int64(sec), int64(math.Round((f-sec)*1e6)))
		}
		vm.argError("fromSeconds:", "a Number", args[0])
		return Nil
	})
	c.classPrim("fromSeconds:micros:", func(vm *VM, recv Value, args []Value) Value {
		return vm.newTime(vm.intArg("fromSeconds:micros:", args[0]), vm.intArg("fromSeconds:micros:", args[1]))
	})
	c.classPrim("fromEpochMicros:", func(vm *VM, recv Value, args []Value) Value {
		return vm.newTime(0, vm.intArg("fromEpochMicros:", args[0]))
	})
	c.classPrim("fromISO:", func(vm *VM, recv Value, args []Value) Value {
		s := vm.textArg("fromISO:", args[0])
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			vm.signalf(vm.InvalidArgumentClass, "invalid time %s", quote(s))
		}
		return vm.newTime(t.Unix(), int64(t.Nanosecond()/1000))
	})

	tm := func(v Value) *Time { return v.(*Time) }

	c.prim("seconds", func(vm *VM, recv Value, args []Value) Value {
		return Int(tm(recv).Sec)
	})
	c.prim("micros", func(vm *VM, recv Value, args []Value) Value {
		return Int(tm(recv).Usec)
	})
	c.prim("epochMicros", func(vm *VM, recv Value, args []Value) Value {
		us, ok := tm(recv).EpochMicros()
		if !ok {
			vm.signalf(vm.ArithmeticErrorClass, "%s is out of range for epochMicros", tm(recv).ISO8601())
		}
		return Int(us)
	})
	c.prim("asFloat", func(vm *VM, recv Value, args []Value) Value {
		t := tm(recv)
		return Float(float64(t.Sec) + float64(t.Usec)/1e6)
	})

	part := func(sel string, get func(time.Time) int) {
		c.prim(sel, func(vm *VM, recv Value, args []Value) Value {
			return Int(get(tm(recv).GoTime()))
		})
	}
	part("year", func(t time.Time) int { return t.Year() })
	part("month", func(t time.Time) int { return int(t.Month()) })
	part("day", func(t time.Time) int { return t.Day() })
	part("hour", func(t time.Time) int { return t.Hour() })
	part("minute", func(t time.Time) int { return t.Minute() })
	part("second", func(t time.Time) int { return t.Second() })
	part("dayOfWeek", func(t time.Time) int { return int(t.Weekday()) + 1 })
	part("dayOfYear", func(t time.Time) int { return t.YearDay() })

	// arithmetic: Time + seconds, Time - seconds, Time - Time (seconds)
	c.prim("+", func(vm *VM, recv Value, args []Value) Value {
		return vm.shiftTime(tm(recv), args[0], 1)
	})
	c.prim("-", func(vm *VM, recv Value, args []Value) Value {
		if other, ok := args[0].(*Time); ok {
			t := tm(recv)
			return Float(float64(t.Sec) - float64(other.Sec) + float64(t.Usec-other.Usec)/1e6)
		}
		return vm.shiftTime(tm(recv), args[0], -1)
	})
	c.prim("addMicros:", func(vm *VM, recv Value, args []Value) Value {
		t := tm(recv)
		return vm.newTime(t.Sec, t.Usec+vm.intArg("addMicros:", args[0]))
	})

	cmp := func(sel string, test func(c int) bool) {
		c.prim(sel, func(vm *VM, recv Value, args []Value) Value {
			other, ok := args[0].(*Time)
			if !ok {
				vm.argError(sel, "a Time", args[0])
			}
			return FromBool(test(tm(recv).Compare(other)))
		})
	}
	cmp("<", func(c int) bool { return c < 0 })
	cmp(">", func(c int) bool { return c > 0 })
	cmp("<=", func(c int) bool { return c <= 0 })
	cmp(">=", func(c int) bool { return c >= 0 })

	c.prim("asString", func(vm *VM, recv Value, args []Value) Value {
		return String(tm(recv).ISO8601())
	})
}

func (vm *VM) shiftTime(t *Time, delta Value, sign int64) Value {
	switch d := delta.(type) {
	case Int:
		return vm.newTime(t.Sec+sign*int64(d), t.Usec)
	case Float:
		us := int64(math.Round(float64(d) * 1e6))
		return vm.newTime(t.Sec, t.Usec+sign*us)
	}
	vm.argError("+", "a Number of seconds", delta)
	return Nil
}
