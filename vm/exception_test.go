package vm

import (
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Exception Class Hierarchy Tests
// ---------------------------------------------------------------------------

func TestExceptionClassesRegistered(t *testing.T) {
	vm := New()

	classes := []struct {
		name string
		ptr  *Class
	}{
		{"Exception", vm.ExceptionClass},
		{"Error", vm.ErrorClass},
		{"ZeroDivide", vm.ZeroDivideClass},
		{"MessageNotUnderstood", vm.MessageNotUnderstoodClass},
		{"SubscriptOutOfBounds", vm.SubscriptOutOfBoundsClass},
		{"KeyNotFound", vm.KeyNotFoundClass},
		{"ArithmeticError", vm.ArithmeticErrorClass},
		{"JSONError", vm.JSONErrorClass},
		{"StackOverflow", vm.StackOverflowClass},
		{"ArenaOverflow", vm.ArenaOverflowClass},
	}
	for _, tc := range classes {
		c, ok := vm.ClassNamed(tc.name)
		if !ok || c != tc.ptr {
			t.Errorf("class %s not registered", tc.name)
			continue
		}
		if !c.IsSubclassOf(vm.ExceptionClass) {
			t.Errorf("%s should inherit from Exception", tc.name)
		}
	}
	if !vm.ZeroDivideClass.IsSubclassOf(vm.ErrorClass) {
		t.Error("ZeroDivide should inherit from Error")
	}
}

// ---------------------------------------------------------------------------
// Handling
// ---------------------------------------------------------------------------

func TestOnDo(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Value
	}{
		{"zero divide", "[1/0] on: ZeroDivide do: [:e | e messageText]", String("division by zero")},
		{"superclass handler", "[1/0] on: Error do: [:e | e class name]", String("ZeroDivide")},
		{"dnu text", "[nil foo] on: MessageNotUnderstood do: [:e | e messageText]",
			String("UndefinedObject does not understand #foo")},
		{"return:", "[Error signal: 'boom'] on: Error do: [:e | e return: 5]", Int(5)},
		{"handler value", "[#(1 2) at: 5] on: SubscriptOutOfBounds do: [:e | -1]", Int(-1)},
		{"zero-arg handler", "[Dictionary new at: #k] on: KeyNotFound do: ['none']", String("none")},
		{"no exception", "[42] on: Error do: [:e | 0]", Int(42)},
		{"exception set", "[nil foo] on: ZeroDivide, MessageNotUnderstood do: [:e | 'caught']", String("caught")},
		{"retry",
			"| n | n := 0. [n := n + 1. n < 3 ifTrue: [Error signal: 'again']. n] on: Error do: [:e | e retry]",
			Int(3)},
		{"pass", "[[1/0] on: ZeroDivide do: [:e | e pass]] on: Error do: [:e | 'outer']", String("outer")},
		{"error:", "[nil error: 'custom'] on: Error do: [:e | e messageText]", String("custom")},
		{"description", "[Error new signal: 'x'] on: Error do: [:e | e description]", String("Error: x")},
		{"json error", "[JSON parse: '{'] on: JSONError do: [:e | 'bad']", String("bad")},
	}

	vm := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalOK(t, vm, tt.src)
			if !vm.equal(got, tt.want) {
				t.Errorf("got %s, want %s", vm.printString(got), vm.printString(tt.want))
			}
		})
	}
}

func TestUnhandledNotCaughtByWrongClass(t *testing.T) {
	vm := New()
	_, err := vm.Evaluate("[1/0] on: KeyNotFound do: [:e | 0]")
	var sig *Signal
	if !errors.As(err, &sig) || sig.Exception.Class() != vm.ZeroDivideClass {
		t.Fatalf("expected ZeroDivide to escape, got %v", err)
	}
}

func TestEnsureRunsOnUnwind(t *testing.T) {
	vm := New()
	v := evalOK(t, vm, `| log |
		log := Array new.
		[[1/0] ensure: [log add: 'cleanup']] on: ZeroDivide do: [:e | nil].
		[log add: 'body'] ensure: [log add: 'after'].
		log`)
	if got := vm.printString(v); got != "#('cleanup' 'body' 'after')" {
		t.Errorf("log = %s", got)
	}
}

func TestIfCurtailed(t *testing.T) {
	vm := New()
	v := evalOK(t, vm, `| log |
		log := Array new.
		[[1/0] ifCurtailed: [log add: 'curtailed']] on: ZeroDivide do: [:e | nil].
		[1] ifCurtailed: [log add: 'never'].
		log`)
	if got := vm.printString(v); got != "#('curtailed')" {
		t.Errorf("log = %s", got)
	}
}

func TestCustomExceptionClass(t *testing.T) {
	vm := New()
	loadOK(t, vm, `
InsufficientFunds subclass: Error
  instanceVars: needed
  method: needed [ ^needed ]
  method: needed: n [ needed := n ]
`)
	v := evalOK(t, vm, "[(InsufficientFunds new needed: 10; yourself) signal: 'short'] on: InsufficientFunds do: [:e | e needed]")
	if v != Int(10) {
		t.Errorf("got %v", v)
	}
	v = evalOK(t, vm, "[InsufficientFunds signal: 'x'] on: Error do: [:e | e description]")
	if v != String("InsufficientFunds: x") {
		t.Errorf("got %v", v)
	}
}

// ---------------------------------------------------------------------------
// Escaping to the host
// ---------------------------------------------------------------------------

func TestPendingException(t *testing.T) {
	vm := New()
	_, err := vm.Evaluate("1/0")
	var sig *Signal
	if !errors.As(err, &sig) {
		t.Fatalf("expected *Signal, got %v", err)
	}
	if err.Error() != "ZeroDivide: division by zero" {
		t.Errorf("Error() = %q", err.Error())
	}

	p := vm.Pending()
	if p == nil || p != sig.Exception {
		t.Fatal("pending slot should hold the escaped exception")
	}
	if taken := vm.TakePending(); taken != p {
		t.Error("TakePending returned a different exception")
	}
	if vm.Pending() != nil {
		t.Error("TakePending should clear the slot")
	}
}

func TestNativeBlockSignalIsCatchable(t *testing.T) {
	vm := New()
	b := vm.NewNativeBlock(0, func(args []Value) (Value, error) {
		// A nested send that fails returns the *Signal; handing it back
		// re-raises it in running code.
		return vm.Send(Int(1), "/", Int(0))
	})
	handler := vm.NewNativeBlock(1, func(args []Value) (Value, error) {
		return String("handled"), nil
	})
	v, err := vm.Send(b, "on:do:", vm.ZeroDivideClass, handler)
	if err != nil {
		t.Fatal(err)
	}
	if v != String("handled") {
		t.Errorf("got %v", v)
	}
}

func TestNativeBlockHostErrorIsNotCatchable(t *testing.T) {
	vm := New()
	boom := errors.New("host failure")
	b := vm.NewNativeBlock(0, func(args []Value) (Value, error) {
		return nil, boom
	})
	handler := vm.NewNativeBlock(1, func(args []Value) (Value, error) {
		return String("handled"), nil
	})
	_, err := vm.Send(b, "on:do:", vm.ErrorClass, handler)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want host error", err)
	}
	if vm.Pending() != nil {
		t.Error("host errors must not set the pending slot")
	}
}
