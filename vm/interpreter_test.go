package vm

import (
	"bytes"
	"testing"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func evalOK(t *testing.T, vm *VM, src string) Value {
	t.Helper()
	v, err := vm.Evaluate(src)
	if err != nil {
		t.Fatalf("Evaluate(%q): %v", src, err)
	}
	return v
}

func loadOK(t *testing.T, vm *VM, src string) []*Class {
	t.Helper()
	classes, err := vm.Load(&CompileContext{Filename: "test.mag"}, src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return classes
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func TestEvaluateExpressions(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		// arithmetic
		{"3 + 4", "7"},
		{"3 + 4 * 2", "14"},
		{"2 raisedTo: 10", "1024"},
		{"7 / 2", "3.5"},
		{"6 / 3", "2"},
		{"-7 // 2", "-4"},
		{"-7 \\\\ 2", "1"},
		{"-7 rem: 2", "-1"},
		{"0.1 + 0.2", "0.30000000000000004"},
		{"2 sqrt", "1.4142135623730951"},
		{"1000000000 * 1000000000", "1000000000000000000"},
		{"3 max: 9", "9"},
		{"3 = 3.0", "true"},
		{"255 printString: 16", "'FF'"},
		{"10 printPaddedWith: '0' to: 4", "'0010'"},
		{"3.7 floor", "3"},
		{"-3.5 rounded", "-4"},

		// booleans and nil
		{"3 > 2 ifTrue: ['yes'] ifFalse: ['no']", "'yes'"},
		{"(3 < 2) or: [true]", "true"},
		{"nil isNil", "true"},
		{"nil printString", "'nil'"},
		{"nil ifNil: [1] ifNotNil: [:x | 2]", "1"},
		{"5 ifNil: [1] ifNotNil: [:x | x * 2]", "10"},

		// text
		{"'hello' size", "5"},
		{"'hello' , ' world'", "'hello world'"},
		{"'hello' at: 1", "'h'"},
		{"'abc' reversed", "'cba'"},
		{"'a,b,c' substrings: ','", "#('a' 'b' 'c')"},
		{"'abc' = #abc", "true"},
		{"#foo", "#foo"},
		{"'it''s' printString", "'''it''''s'''"},
		{"'héllo' size", "5"},

		// collections
		{"#(1 2 3) collect: [:x | x * x]", "#(1 4 9)"},
		{"#(3 1 2) asSortedArray", "#(1 2 3)"},
		{"#(1 2 3 4) select: [:x | x even]", "#(2 4)"},
		{"(1 to: 5) inject: 0 into: [:a :b | a + b]", "15"},
		{"{1 + 1. 'x'}", "#(2 'x')"},
		{"| a | a := Array new. a add: 1; add: 2; yourself", "#(1 2)"},
		{"| d | d := Dictionary new. d at: #a put: 1. d at: 'b' put: 2. d", "a Dictionary(#a->1 'b'->2)"},
		{"| d | d := Dictionary new. d at: #a put: 1. d at: 'a'", "1"},
		{"(1 -> 2) key", "1"},
		{"#(1 2 3) includes: 2", "true"},

		// variables and blocks
		{"x := 5. x * 2", "10"},
		{"[:a :b | a + b] value: 1 value: 2", "3"},
		{"| s | s := 0. 1 to: 10 do: [:i | s := s + i]. s", "55"},
		{"| n | n := 0. [n < 3] whileTrue: [n := n + 1]. n", "3"},
		{"| n | n := 0. 4 timesRepeat: [n := n + 2]. n", "8"},
		{"[] value", "nil"},

		// time
		{"Time fromSeconds: 0 micros: 1500000", "1970-01-01T00:00:01.5Z"},
		{"(Time fromSeconds: 0 micros: -1) micros", "999999"},
		{"(Time fromSeconds: 86400) day", "2"},
	}

	vm := New()
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := vm.printString(evalOK(t, vm, tt.src))
			if got != tt.want {
				t.Errorf("%s => %s, want %s", tt.src, got, tt.want)
			}
		})
	}
}

func TestEvaluateReturnsLastStatement(t *testing.T) {
	vm := New()
	v := evalOK(t, vm, "1. 2. ^3. 4")
	if v != Int(3) {
		t.Errorf("got %v, want 3", v)
	}
}

func TestIntegerOverflowSignals(t *testing.T) {
	vm := New()
	for _, src := range []string{
		"9223372036854775807 + 1",
		"100 factorial",
		"2 raisedTo: 64",
	} {
		_, err := vm.Evaluate(src)
		sig, ok := err.(*Signal)
		if !ok {
			t.Fatalf("%s: expected *Signal, got %v", src, err)
		}
		if sig.Exception.Class() != vm.ArithmeticErrorClass {
			t.Errorf("%s: signaled %s, want ArithmeticError", src, sig.Exception.Class().Name)
		}
	}
}

func TestUndeclaredVariable(t *testing.T) {
	vm := New()
	_, err := vm.Evaluate("y + 1")
	sig, ok := err.(*Signal)
	if !ok || sig.Exception.Class() != vm.UndeclaredVariableClass {
		t.Fatalf("expected UndeclaredVariable, got %v", err)
	}
}

func TestMessageNotUnderstoodText(t *testing.T) {
	vm := New()
	_, err := vm.Evaluate("3 frobnicate")
	if err == nil || err.Error() != "MessageNotUnderstood: Integer does not understand #frobnicate" {
		t.Errorf("got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Classes, methods and dispatch
// ---------------------------------------------------------------------------

const animalsSource = `
Animal subclass: Object
  instanceVars: name
  method: name: aName [ name := aName ]
  method: name [ ^name ]
  method: speak [ ^name , ' makes a sound' ]

Dog subclass: Animal
  classMethod: named: aName [ ^self new name: aName ]
  method: speak [ ^super speak , ' (woof)' ]
`

func TestSuperSend(t *testing.T) {
	vm := New()
	loadOK(t, vm, animalsSource)

	v := evalOK(t, vm, "(Dog new name: 'Rex'; yourself) speak")
	if v != String("Rex makes a sound (woof)") {
		t.Errorf("got %v", v)
	}
	v = evalOK(t, vm, "(Dog named: 'Fido') name")
	if v != String("Fido") {
		t.Errorf("class-side method: got %v", v)
	}
}

func TestInstancePrintString(t *testing.T) {
	vm := New()
	loadOK(t, vm, animalsSource)

	if got := evalOK(t, vm, "Dog new printString"); got != String("a Dog") {
		t.Errorf("got %v", got)
	}
	if got := evalOK(t, vm, "Animal new printString"); got != String("an Animal") {
		t.Errorf("got %v", got)
	}
}

func TestOverriddenPrintStringInsideCollections(t *testing.T) {
	vm := New()
	loadOK(t, vm, `
Pt subclass: Object
  method: printString [ ^'<pt>' ]
`)
	if got := evalOK(t, vm, "(Array with: Pt new with: 1) printString"); got != String("#(<pt> 1)") {
		t.Errorf("got %v", got)
	}
}

func TestSendFromHost(t *testing.T) {
	vm := New()
	classes := loadOK(t, vm, `
Finder subclass: Object
  method: find: x in: arr [
    arr do: [:e | e = x ifTrue: [^'found']].
    ^'missing'
  ]
`)
	obj, err := vm.Instantiate(classes[0])
	if err != nil {
		t.Fatal(err)
	}
	arr := vm.NewArray([]Value{Int(1), Int(2), Int(3)})

	got, err := vm.Send(obj, "find:in:", Int(2), arr)
	if err != nil {
		t.Fatal(err)
	}
	if got != String("found") {
		t.Errorf("got %v, want 'found'", got)
	}
	got, _ = vm.Send(obj, "find:in:", Int(9), arr)
	if got != String("missing") {
		t.Errorf("got %v, want 'missing'", got)
	}
	if vm.depth != 0 {
		t.Errorf("depth = %d after sends, want 0", vm.depth)
	}
}

func TestBlockCannotReturnAfterHomeExits(t *testing.T) {
	vm := New()
	loadOK(t, vm, `
Maker subclass: Object
  method: make [ ^[:x | ^x] ]
`)
	_, err := vm.Evaluate("Maker new make value: 3")
	sig, ok := err.(*Signal)
	if !ok || sig.Exception.Class() != vm.BlockCannotReturnClass {
		t.Fatalf("expected BlockCannotReturn, got %v", err)
	}
}

func TestStackOverflow(t *testing.T) {
	vm := New(WithMaxDepth(100))
	loadOK(t, vm, `
Rec subclass: Object
  method: down [ ^self down ]
`)
	_, err := vm.Evaluate("Rec new down")
	sig, ok := err.(*Signal)
	if !ok || sig.Exception.Class() != vm.StackOverflowClass {
		t.Fatalf("expected StackOverflow, got %v", err)
	}
	if vm.depth != 0 {
		t.Errorf("depth = %d after overflow, want 0", vm.depth)
	}
}

func TestInterrupt(t *testing.T) {
	vm := New()
	vm.Interrupt()
	if _, err := vm.Evaluate("1 + 1"); err != ErrInterrupted {
		t.Fatalf("got %v, want ErrInterrupted", err)
	}
	if v := evalOK(t, vm, "1 + 1"); v != Int(2) {
		t.Errorf("after interrupt: got %v", v)
	}
}

func TestNativeBlock(t *testing.T) {
	vm := New()
	var seen []Value
	b := vm.NewNativeBlock(1, func(args []Value) (Value, error) {
		seen = append(seen, args[0])
		return Nil, nil
	})
	arr := vm.NewArray([]Value{Int(1), String("two")})
	if _, err := vm.Send(arr, "do:", b); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != Int(1) || seen[1] != String("two") {
		t.Errorf("seen = %v", seen)
	}
}

func TestDisplayString(t *testing.T) {
	vm := New()
	loadOK(t, vm, `
Money subclass: Object
  method: displayString [ ^'12.50 EUR' ]
Broken subclass: Object
  method: displayString [ ^1 / 0 ]
`)
	tests := []struct {
		src  string
		want string
	}{
		{"42", "42"},
		{"'text'", "text"},
		{"#sym", "sym"},
		{"#(1 'a')", "#(1 'a')"},
		{"Money new", "12.50 EUR"},
		{"3.0", "3.0"},
		{"nil", "nil"},
	}
	for _, tt := range tests {
		got, err := vm.DisplayString(evalOK(t, vm, tt.src))
		if err != nil {
			t.Fatalf("%s: %v", tt.src, err)
		}
		if got != tt.want {
			t.Errorf("DisplayString(%s) = %q, want %q", tt.src, got, tt.want)
		}
	}

	if _, err := vm.DisplayString(evalOK(t, vm, "Broken new")); err == nil {
		t.Error("expected an error from a failing displayString")
	}
	if vm.Pending() != nil {
		t.Error("pending exception should be cleared")
	}
}

func TestPrintNl(t *testing.T) {
	var buf bytes.Buffer
	vm := New(WithOutput(&buf))
	evalOK(t, vm, "42 printNl. 'hi' displayNl. 'hi' printNl")
	if got, want := buf.String(), "42\nhi\n'hi'\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
