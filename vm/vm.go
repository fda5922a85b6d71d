package vm

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chazu/plmaggie/compiler"
)

// DefaultMaxDepth bounds nested method and block activations.
const DefaultMaxDepth = 4096

// VM is one instance of the runtime: a class table, an arena of transient
// objects and the interpreter state. A VM is not safe for concurrent use;
// only Interrupt may be called from another goroutine.
type VM struct {
	classes map[string]*Class

	// Well-known classes
	ObjectClass          *Class
	UndefinedObjectClass *Class
	BooleanClass         *Class
	TrueClass            *Class
	FalseClass           *Class
	NumberClass          *Class
	IntegerClass         *Class
	FloatClass           *Class
	StringClass          *Class
	SymbolClass          *Class
	ArrayClass           *Class
	DictionaryClass      *Class
	AssociationClass     *Class
	TimeClass            *Class
	BlockClass           *Class
	JSONClass            *Class
	ClassClass           *Class

	ExceptionClass            *Class
	ErrorClass                *Class
	ZeroDivideClass           *Class
	MessageNotUnderstoodClass *Class
	SubscriptOutOfBoundsClass *Class
	KeyNotFoundClass          *Class
	ArithmeticErrorClass      *Class
	InvalidArgumentClass      *Class
	UndeclaredVariableClass   *Class
	BlockCannotReturnClass    *Class
	JSONErrorClass            *Class
	StackOverflowClass        *Class
	ArenaOverflowClass        *Class

	arena    *Arena
	pending  *Exception
	depth    int
	maxDepth int
	clock    func() time.Time
	out      io.Writer

	interrupted atomic.Bool
}

// Option configures a VM.
type Option func(*VM)

// WithArenaLimit caps the number of live objects running code may
// allocate. Zero means unlimited.
func WithArenaLimit(n int) Option {
	return func(vm *VM) { vm.arena.limit = n }
}

// WithMaxDepth sets the maximum activation depth before StackOverflow is
// signaled.
func WithMaxDepth(n int) Option {
	return func(vm *VM) { vm.maxDepth = n }
}

// WithClock replaces the clock used by `Time now`.
func WithClock(now func() time.Time) Option {
	return func(vm *VM) { vm.clock = now }
}

// WithOutput directs printNl and displayNl output to w.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// New creates a VM with the built-in classes installed.
func New(opts ...Option) *VM {
	vm := &VM{
		classes:  make(map[string]*Class),
		arena:    newArena(0),
		maxDepth: DefaultMaxDepth,
		clock:    time.Now,
		out:      io.Discard,
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.bootstrap()
	return vm
}

func (vm *VM) bootstrap() {
	vm.ObjectClass = vm.builtinClass("Object", nil)
	vm.UndefinedObjectClass = vm.builtinClass("UndefinedObject", vm.ObjectClass)
	vm.BooleanClass = vm.builtinClass("Boolean", vm.ObjectClass)
	vm.TrueClass = vm.builtinClass("True", vm.BooleanClass)
	vm.FalseClass = vm.builtinClass("False", vm.BooleanClass)
	vm.NumberClass = vm.builtinClass("Number", vm.ObjectClass)
	vm.IntegerClass = vm.builtinClass("Integer", vm.NumberClass)
	vm.FloatClass = vm.builtinClass("Float", vm.NumberClass)
	vm.StringClass = vm.builtinClass("String", vm.ObjectClass)
	vm.SymbolClass = vm.builtinClass("Symbol", vm.StringClass)
	vm.ArrayClass = vm.builtinClass("Array", vm.ObjectClass)
	vm.DictionaryClass = vm.builtinClass("Dictionary", vm.ObjectClass)
	vm.AssociationClass = vm.builtinClass("Association", vm.ObjectClass)
	vm.TimeClass = vm.builtinClass("Time", vm.ObjectClass)
	vm.BlockClass = vm.builtinClass("BlockClosure", vm.ObjectClass)
	vm.JSONClass = vm.builtinClass("JSON", vm.ObjectClass)
	vm.ClassClass = vm.builtinClass("Class", vm.ObjectClass)

	vm.ExceptionClass = vm.builtinClass("Exception", vm.ObjectClass)
	vm.ErrorClass = vm.builtinClass("Error", vm.ExceptionClass)
	vm.ZeroDivideClass = vm.builtinClass("ZeroDivide", vm.ErrorClass)
	vm.MessageNotUnderstoodClass = vm.builtinClass("MessageNotUnderstood", vm.ErrorClass)
	vm.SubscriptOutOfBoundsClass = vm.builtinClass("SubscriptOutOfBounds", vm.ErrorClass)
	vm.KeyNotFoundClass = vm.builtinClass("KeyNotFound", vm.ErrorClass)
	vm.ArithmeticErrorClass = vm.builtinClass("ArithmeticError", vm.ErrorClass)
	vm.InvalidArgumentClass = vm.builtinClass("InvalidArgument", vm.ErrorClass)
	vm.UndeclaredVariableClass = vm.builtinClass("UndeclaredVariable", vm.ErrorClass)
	vm.BlockCannotReturnClass = vm.builtinClass("BlockCannotReturn", vm.ErrorClass)
	vm.JSONErrorClass = vm.builtinClass("JSONError", vm.ErrorClass)
	vm.StackOverflowClass = vm.builtinClass("StackOverflow", vm.ErrorClass)
	vm.ArenaOverflowClass = vm.builtinClass("ArenaOverflow", vm.ErrorClass)

	vm.registerObjectPrimitives()
	vm.registerClassPrimitives()
	vm.registerBooleanPrimitives()
	vm.registerNumberPrimitives()
	vm.registerIntegerPrimitives()
	vm.registerFloatPrimitives()
	vm.registerStringPrimitives()
	vm.registerArrayPrimitives()
	vm.registerDictionaryPrimitives()
	vm.registerBlockPrimitives()
	vm.registerExceptionPrimitives()
	vm.registerTimePrimitives()
	vm.registerJSONPrimitives()
}

func (vm *VM) builtinClass(name string, super *Class) *Class {
	c := newClass(name, super, nil)
	c.builtin = true
	vm.classes[name] = c
	return c
}

// ---------------------------------------------------------------------------
// Classes
// ---------------------------------------------------------------------------

// ClassOf returns the class of any value.
func (vm *VM) ClassOf(v Value) *Class {
	switch x := v.(type) {
	case nil, nilValue:
		return vm.UndefinedObjectClass
	case Bool:
		if x {
			return vm.TrueClass
		}
		return vm.FalseClass
	case Int:
		return vm.IntegerClass
	case Float:
		return vm.FloatClass
	case String:
		return vm.StringClass
	case Symbol:
		return vm.SymbolClass
	case *Array:
		return vm.ArrayClass
	case *Dictionary:
		return vm.DictionaryClass
	case *Association:
		return vm.AssociationClass
	case *Time:
		return vm.TimeClass
	case *Block:
		return vm.BlockClass
	case *Class:
		return vm.ClassClass
	case *Object:
		return x.class
	case *Exception:
		return x.class
	}
	return vm.ObjectClass
}

// ClassNamed looks up a class by name.
func (vm *VM) ClassNamed(name string) (*Class, bool) {
	c, ok := vm.classes[name]
	return c, ok
}

// Classes returns the classes defined by Load, sorted by name.
func (vm *VM) Classes() []*Class {
	var out []*Class
	for _, c := range vm.classes {
		if !c.builtin {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RespondsTo reports whether v understands selector.
func (vm *VM) RespondsTo(v Value, selector string) bool {
	return vm.respondsTo(v, selector)
}

// ---------------------------------------------------------------------------
// Loading source
// ---------------------------------------------------------------------------

// CompileContext describes where loaded source came from. LineOffset is
// added to every reported line number, so a caller that wrapped user text
// in a header can report errors against the original text.
type CompileContext struct {
	Filename   string
	LineOffset int
}

// CompileError lists the problems found while loading source.
type CompileError struct {
	Filename string
	Errors   []*compiler.SyntaxError
}

func (e *CompileError) Error() string {
	if len(e.Errors) == 0 {
		return "compile error"
	}
	var sb strings.Builder
	if e.Filename != "" {
		sb.WriteString(e.Filename)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Errors[0].Error())
	if n := len(e.Errors) - 1; n > 0 {
		fmt.Fprintf(&sb, " (and %d more)", n)
	}
	return sb.String()
}

func (cc *CompileContext) compileError(errs []*compiler.SyntaxError) *CompileError {
	ce := &CompileError{}
	offset := 0
	if cc != nil {
		ce.Filename = cc.Filename
		offset = cc.LineOffset
	}
	for _, e := range errs {
		adj := *e
		adj.Pos.Line += offset
		if adj.Pos.Line < 1 {
			adj.Pos.Line = 1
		}
		ce.Errors = append(ce.Errors, &adj)
	}
	return ce
}

// Load parses source containing class definitions and installs the
// classes. Nothing is installed when any error is found. The classes are
// returned in source order.
func (vm *VM) Load(cc *CompileContext, source string) ([]*Class, error) {
	file, errs := compiler.ParseSource(source)
	if len(errs) > 0 {
		return nil, cc.compileError(errs)
	}

	defined := make(map[string]*Class)
	var out []*Class
	for _, def := range file.Classes {
		if existing, ok := vm.classes[def.Name]; ok && existing.builtin {
			errs = append(errs, &compiler.SyntaxError{Pos: def.SpanVal.Start,
				Msg: fmt.Sprintf("cannot redefine built-in class %s", def.Name)})
			continue
		}
		if _, dup := defined[def.Name]; dup {
			errs = append(errs, &compiler.SyntaxError{Pos: def.SpanVal.Start,
				Msg: fmt.Sprintf("class %s defined twice", def.Name)})
			continue
		}
		super, ok := defined[def.Superclass]
		if !ok {
			super, ok = vm.classes[def.Superclass]
		}
		if !ok {
			errs = append(errs, &compiler.SyntaxError{Pos: def.SpanVal.Start,
				Msg: fmt.Sprintf("unknown superclass %s", def.Superclass)})
			continue
		}
		if !vm.subclassable(super) {
			errs = append(errs, &compiler.SyntaxError{Pos: def.SpanVal.Start,
				Msg: fmt.Sprintf("cannot subclass %s", super.Name)})
			continue
		}
		c := newClass(def.Name, super, def.InstanceVariables)
		c.Doc = def.Doc
		for _, md := range def.Methods {
			c.Methods[md.Selector] = methodFrom(c, md, false)
		}
		for _, md := range def.ClassMethods {
			c.ClassMethods[md.Selector] = methodFrom(c, md, true)
		}
		defined[def.Name] = c
		out = append(out, c)
	}
	if len(errs) > 0 {
		return nil, cc.compileError(errs)
	}
	for _, c := range out {
		vm.classes[c.Name] = c
	}
	return out, nil
}

// subclassable reports whether source classes may inherit from c. Classes
// whose instances are Go values cannot carry slots.
func (vm *VM) subclassable(c *Class) bool {
	return !c.builtin || c == vm.ObjectClass || c.IsSubclassOf(vm.ExceptionClass)
}

func methodFrom(c *Class, md *compiler.MethodDef, classSide bool) *Method {
	return &Method{
		Class:     c,
		Selector:  md.Selector,
		Params:    md.Parameters,
		Temps:     md.Temps,
		Body:      md.Statements,
		Source:    md.SourceText,
		Doc:       md.Doc,
		ClassSide: classSide,
	}
}

// ---------------------------------------------------------------------------
// Running code
// ---------------------------------------------------------------------------

// Send sends selector to recv. An exception that escapes is returned as a
// *Signal and also left in the pending slot until taken.
func (vm *VM) Send(recv Value, selector string, args ...Value) (Value, error) {
	return vm.protect(func() Value {
		return vm.send(recv, selector, args)
	})
}

// Evaluate parses and runs a doIt. Assignments to undeclared names declare
// them for the rest of the doIt.
func (vm *VM) Evaluate(source string) (Value, error) {
	d, errs := compiler.ParseDoIt(source)
	if len(errs) > 0 {
		return Nil, (*CompileContext)(nil).compileError(errs)
	}
	return vm.protect(func() Value {
		return vm.runDoIt(d)
	})
}

// protect runs fn and turns an escaping unwind into an error.
func (vm *VM) protect(fn func() Value) (result Value, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		result = Nil
		switch x := r.(type) {
		case *Signal:
			vm.pending = x.Exception
			err = x
		case *hostError:
			err = x.err
		case *nonLocalReturn:
			err = errors.New("non-local return escaped to the host")
		case *handlerExit:
			err = errors.New("exception handler exit used outside its handler")
		default:
			panic(r)
		}
	}()
	return fn(), nil
}

// Pending returns the exception that last escaped to the host, if any.
func (vm *VM) Pending() *Exception { return vm.pending }

// ClearPending empties the pending exception slot.
func (vm *VM) ClearPending() { vm.pending = nil }

// TakePending returns and clears the pending exception.
func (vm *VM) TakePending() *Exception {
	e := vm.pending
	vm.pending = nil
	return e
}

// Interrupt asks running code to stop at its next message send. Send
// returns ErrInterrupted. Safe to call from any goroutine.
func (vm *VM) Interrupt() {
	vm.interrupted.Store(true)
}

func (vm *VM) checkInterrupt() {
	if vm.interrupted.Swap(false) {
		panic(&hostError{err: ErrInterrupted})
	}
}

func (vm *VM) enter() {
	vm.depth++
	if vm.maxDepth > 0 && vm.depth > vm.maxDepth {
		vm.depth--
		vm.signalf(vm.StackOverflowClass, "maximum call depth %d exceeded", vm.maxDepth)
	}
}

func (vm *VM) leave() { vm.depth-- }

// ---------------------------------------------------------------------------
// Memory
// ---------------------------------------------------------------------------

// Arena returns the VM's object arena.
func (vm *VM) Arena() *Arena { return vm.arena }

// Checkpoint saves the arena top.
func (vm *VM) Checkpoint() Checkpoint { return vm.arena.Save() }

// Restore releases every object allocated since cp.
func (vm *VM) Restore(cp Checkpoint) { vm.arena.Restore(cp) }

// alloc registers an object allocated by running code, signaling
// ArenaOverflow when the limit is reached.
func (vm *VM) alloc(obj heapValue) {
	if vm.arena.full() {
		exc := &Exception{
			Object:      Object{class: vm.ArenaOverflowClass, Slots: newSlots(vm.ArenaOverflowClass)},
			MessageText: String(fmt.Sprintf("arena limit of %d objects reached", vm.arena.limit)),
		}
		vm.arena.add(exc)
		vm.signal(exc)
	}
	vm.arena.add(obj)
}

// Instantiate creates an instance of c on behalf of the host.
func (vm *VM) Instantiate(c *Class) (Value, error) {
	if !vm.subclassable(c) {
		return Nil, fmt.Errorf("cannot instantiate %s", c.Name)
	}
	return vm.newInstance(c, vm.arena.add), nil
}

func (vm *VM) newInstance(c *Class, add func(heapValue)) Value {
	if c.IsSubclassOf(vm.ExceptionClass) {
		e := &Exception{Object: Object{class: c, Slots: newSlots(c)}, MessageText: Nil}
		add(e)
		return e
	}
	o := &Object{class: c, Slots: newSlots(c)}
	add(o)
	return o
}

// NewArray wraps elems in an Array owned by the arena.
func (vm *VM) NewArray(elems []Value) *Array {
	a := &Array{Elems: elems}
	vm.arena.add(a)
	return a
}

// NewDictionary creates an empty Dictionary owned by the arena.
func (vm *VM) NewDictionary() *Dictionary {
	d := newDictionary()
	vm.arena.add(d)
	return d
}

// NewTime creates a Time from seconds and microseconds since the Unix
// epoch. usec may be out of range; it is normalized.
func (vm *VM) NewTime(sec, usec int64) *Time {
	sec, usec = normalizeTime(sec, usec)
	t := &Time{Sec: sec, Usec: usec}
	vm.arena.add(t)
	return t
}

// NewNativeBlock wraps fn as a block taking arity arguments. A *Signal
// returned by fn is re-raised inside running code; any other error aborts
// the send that is running.
func (vm *VM) NewNativeBlock(arity int, fn NativeFunc) *Block {
	b := &Block{native: fn, arity: arity}
	vm.arena.add(b)
	return b
}

func (vm *VM) newArray(elems []Value) *Array {
	a := &Array{Elems: elems}
	vm.alloc(a)
	return a
}

func (vm *VM) newDict() *Dictionary {
	d := newDictionary()
	vm.alloc(d)
	return d
}

func (vm *VM) newTime(sec, usec int64) *Time {
	sec, usec = normalizeTime(sec, usec)
	t := &Time{Sec: sec, Usec: usec}
	vm.alloc(t)
	return t
}

// DisplayString sends displayString to v and returns the text. A failure
// leaves the pending slot empty.
func (vm *VM) DisplayString(v Value) (string, error) {
	r, err := vm.Send(v, "displayString")
	if err != nil {
		vm.ClearPending()
		return "", err
	}
	s, ok := textOf(r)
	if !ok {
		return "", fmt.Errorf("displayString answered a %s, not a String", vm.ClassOf(r).Name)
	}
	return s, nil
}
