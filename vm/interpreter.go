package vm

import (
	"errors"

	"github.com/chazu/plmaggie/compiler"
)

// ---------------------------------------------------------------------------
// frame: execution state for a method, block or doIt activation
// ---------------------------------------------------------------------------

type frame struct {
	self   Value
	method *Method // nil in a doIt
	names  []string
	vals   []Value
	parent *frame // lexically enclosing frame (blocks)
	home   *frame // method or doIt frame that ^ returns from

	// returned is set on a home frame once it has exited, after which
	// blocks created inside it can no longer ^-return.
	returned bool
	// workspace frames declare variables on first assignment.
	workspace bool
}

func (f *frame) bind(names []string, vals []Value) {
	for i, n := range names {
		f.names = append(f.names, n)
		if i < len(vals) {
			f.vals = append(f.vals, vals[i])
		} else {
			f.vals = append(f.vals, Nil)
		}
	}
}

// lookup finds the frame and slot holding name.
func (f *frame) lookup(name string) (*frame, int) {
	for cur := f; cur != nil; cur = cur.parent {
		for i := len(cur.names) - 1; i >= 0; i-- {
			if cur.names[i] == name {
				return cur, i
			}
		}
	}
	return nil, -1
}

// definingClass is the class whose method is running, for super sends.
func (f *frame) definingClass() *Class {
	if f.method == nil {
		return nil
	}
	return f.method.Class
}

// ---------------------------------------------------------------------------
// Interpreter: AST evaluation
// ---------------------------------------------------------------------------

// invoke runs a source method.
func (vm *VM) invoke(m *Method, recv Value, args []Value) (result Value) {
	vm.enter()
	defer vm.leave()

	f := &frame{self: recv, method: m}
	f.home = f
	f.bind(m.Params, args)
	f.bind(m.Temps, nil)

	defer func() {
		f.returned = true
		if r := recover(); r != nil {
			if nlr, ok := r.(*nonLocalReturn); ok && nlr.home == f {
				result = nlr.value
				return
			}
			panic(r)
		}
	}()

	for _, st := range m.Body {
		if ret, ok := st.(*compiler.Return); ok {
			return vm.eval(f, ret.Value)
		}
		vm.eval(f, st.(*compiler.ExprStmt).Expr)
	}
	return recv
}

// callBlock evaluates b with args. The value of a block is the value of
// its last statement, or nil when it has none.
func (vm *VM) callBlock(b *Block, args []Value) Value {
	if b.native != nil {
		if len(args) != b.arity {
			vm.signalf(vm.InvalidArgumentClass, "block expects %d arguments, got %d", b.arity, len(args))
		}
		v, err := b.native(args)
		if err != nil {
			var sig *Signal
			if errors.As(err, &sig) {
				vm.pending = nil
				panic(sig)
			}
			panic(&hostError{err: err})
		}
		if v == nil {
			return Nil
		}
		return v
	}

	node := b.node
	if len(args) != len(node.Parameters) {
		vm.signalf(vm.InvalidArgumentClass, "block expects %d arguments, got %d", len(node.Parameters), len(args))
	}

	vm.enter()
	defer vm.leave()

	f := &frame{
		self:   b.outer.self,
		method: b.outer.method,
		parent: b.outer,
		home:   b.outer.home,
	}
	f.bind(node.Parameters, args)
	f.bind(node.Temps, nil)

	var result Value = Nil
	for _, st := range node.Statements {
		if ret, ok := st.(*compiler.Return); ok {
			v := vm.eval(f, ret.Value)
			if f.home.returned {
				vm.signalf(vm.BlockCannotReturnClass, "block cannot return: its method has already returned")
			}
			panic(&nonLocalReturn{home: f.home, value: v})
		}
		result = vm.eval(f, st.(*compiler.ExprStmt).Expr)
	}
	return result
}

// runDoIt evaluates a parsed doIt with self bound to nil.
func (vm *VM) runDoIt(d *compiler.DoIt) (result Value) {
	f := &frame{self: Nil, workspace: true}
	f.home = f
	f.bind(d.Temps, nil)

	defer func() {
		f.returned = true
		if r := recover(); r != nil {
			if nlr, ok := r.(*nonLocalReturn); ok && nlr.home == f {
				result = nlr.value
				return
			}
			panic(r)
		}
	}()

	result = Nil
	for _, st := range d.Statements {
		if ret, ok := st.(*compiler.Return); ok {
			return vm.eval(f, ret.Value)
		}
		result = vm.eval(f, st.(*compiler.ExprStmt).Expr)
	}
	return result
}

// eval evaluates one expression.
func (vm *VM) eval(f *frame, e compiler.Expr) Value {
	switch n := e.(type) {
	case *compiler.IntLiteral:
		return Int(n.Value)
	case *compiler.FloatLiteral:
		return Float(n.Value)
	case *compiler.StringLiteral:
		return String(n.Value)
	case *compiler.SymbolLiteral:
		return Symbol(n.Value)
	case *compiler.NilLiteral:
		return Nil
	case *compiler.TrueLiteral:
		return True
	case *compiler.FalseLiteral:
		return False
	case *compiler.Self:
		return f.self
	case *compiler.Super:
		return f.self

	case *compiler.ArrayLiteral:
		elems := make([]Value, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = vm.eval(f, el)
		}
		return vm.newArray(elems)

	case *compiler.DynamicArray:
		elems := make([]Value, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = vm.eval(f, el)
		}
		return vm.newArray(elems)

	case *compiler.Variable:
		return vm.readVar(f, n.Name)

	case *compiler.Assignment:
		v := vm.eval(f, n.Value)
		vm.writeVar(f, n.Variable, v)
		return v

	case *compiler.Block:
		b := &Block{node: n, outer: f}
		vm.alloc(b)
		return b

	case *compiler.UnaryMessage:
		recv := vm.eval(f, n.Receiver)
		return vm.dispatch(f, n.Receiver, recv, n.Selector, nil)

	case *compiler.BinaryMessage:
		recv := vm.eval(f, n.Receiver)
		arg := vm.eval(f, n.Argument)
		return vm.dispatch(f, n.Receiver, recv, n.Selector, []Value{arg})

	case *compiler.KeywordMessage:
		recv := vm.eval(f, n.Receiver)
		args := make([]Value, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = vm.eval(f, a)
		}
		return vm.dispatch(f, n.Receiver, recv, n.Selector, args)

	case *compiler.Cascade:
		recv := vm.eval(f, n.Receiver)
		var result Value = Nil
		for _, m := range n.Messages {
			args := make([]Value, len(m.Arguments))
			for i, a := range m.Arguments {
				args[i] = vm.eval(f, a)
			}
			result = vm.dispatch(f, n.Receiver, recv, m.Selector, args)
		}
		return result
	}

	vm.signalf(vm.ErrorClass, "cannot evaluate %T", e)
	return Nil
}

// dispatch sends selector, routing super sends to the superclass of the
// running method's class.
func (vm *VM) dispatch(f *frame, recvNode compiler.Expr, recv Value, selector string, args []Value) Value {
	if _, ok := recvNode.(*compiler.Super); ok {
		return vm.sendSuper(f, selector, args)
	}
	return vm.send(recv, selector, args)
}

// send performs a message send.
func (vm *VM) send(recv Value, selector string, args []Value) Value {
	vm.checkInterrupt()

	if c, ok := recv.(*Class); ok {
		if m, p := c.lookupClassSide(selector); m != nil {
			return vm.invoke(m, recv, args)
		} else if p != nil {
			return p(vm, recv, args)
		}
	}

	m, p := vm.ClassOf(recv).lookup(selector)
	switch {
	case m != nil:
		return vm.invoke(m, recv, args)
	case p != nil:
		return p(vm, recv, args)
	}
	return vm.doesNotUnderstand(recv, selector)
}

func (vm *VM) sendSuper(f *frame, selector string, args []Value) Value {
	def := f.definingClass()
	if def == nil {
		vm.signalf(vm.ErrorClass, "super used outside a method")
	}
	if f.method.ClassSide {
		for cur := def.Superclass; cur != nil; cur = cur.Superclass {
			if m, p := cur.lookupClassSide(selector); m != nil {
				return vm.invoke(m, f.self, args)
			} else if p != nil {
				return p(vm, f.self, args)
			}
		}
		if m, p := vm.ClassClass.lookup(selector); m != nil {
			return vm.invoke(m, f.self, args)
		} else if p != nil {
			return p(vm, f.self, args)
		}
		return vm.doesNotUnderstand(f.self, selector)
	}
	if def.Superclass != nil {
		if m, p := def.Superclass.lookup(selector); m != nil {
			return vm.invoke(m, f.self, args)
		} else if p != nil {
			return p(vm, f.self, args)
		}
	}
	return vm.doesNotUnderstand(f.self, selector)
}

func (vm *VM) doesNotUnderstand(recv Value, selector string) Value {
	name := vm.ClassOf(recv).Name
	if c, ok := recv.(*Class); ok {
		name = c.Name + " class"
	}
	vm.signalf(vm.MessageNotUnderstoodClass, "%s does not understand #%s", name, selector)
	return Nil
}

// respondsTo reports whether recv has an implementation of selector.
func (vm *VM) respondsTo(recv Value, selector string) bool {
	if c, ok := recv.(*Class); ok {
		if m, p := c.lookupClassSide(selector); m != nil || p != nil {
			return true
		}
	}
	m, p := vm.ClassOf(recv).lookup(selector)
	return m != nil || p != nil
}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

func (vm *VM) readVar(f *frame, name string) Value {
	if fr, i := f.lookup(name); fr != nil {
		return fr.vals[i]
	}
	if obj := slotsOf(f.self); obj != nil {
		if i := obj.class.InstVarIndex(name); i >= 0 {
			return obj.Slots[i]
		}
	}
	if c, ok := vm.classes[name]; ok {
		return c
	}
	vm.signalf(vm.UndeclaredVariableClass, "undeclared variable %s", name)
	return Nil
}

func (vm *VM) writeVar(f *frame, name string, v Value) {
	if fr, i := f.lookup(name); fr != nil {
		fr.vals[i] = v
		return
	}
	if obj := slotsOf(f.self); obj != nil {
		if i := obj.class.InstVarIndex(name); i >= 0 {
			obj.Slots[i] = v
			return
		}
	}
	if f.home.workspace {
		if _, isClass := vm.classes[name]; !isClass {
			f.home.bind([]string{name}, []Value{v})
			return
		}
	}
	vm.signalf(vm.UndeclaredVariableClass, "cannot assign to undeclared variable %s", name)
}

// slotsOf returns the slot-bearing object behind v, if any.
func slotsOf(v Value) *Object {
	switch x := v.(type) {
	case *Object:
		return x
	case *Exception:
		return &x.Object
	}
	return nil
}
