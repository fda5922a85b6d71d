package vm

import (
	"sort"

	"github.com/chazu/plmaggie/compiler"
)

// ---------------------------------------------------------------------------
// Class: behavior shared by a family of values
// ---------------------------------------------------------------------------

// Primitive implements a message in Go. Primitives report errors by
// signaling (see VM.signal), never by returning them.
type Primitive func(vm *VM, recv Value, args []Value) Value

// Method is a compiled method: the parsed body plus its binding names.
type Method struct {
	Class     *Class
	Selector  string
	Params    []string
	Temps     []string
	Body      []compiler.Stmt
	Source    string
	Doc       string
	ClassSide bool
}

// Class describes instances: instance variable layout, methods defined in
// source, and primitives installed by the VM. Class-side methods answer
// messages sent to the class itself.
type Class struct {
	Name       string
	Superclass *Class
	InstVars   []string
	NumSlots   int
	Doc        string

	Methods      map[string]*Method
	ClassMethods map[string]*Method

	prims      map[string]Primitive
	classPrims map[string]Primitive
	builtin    bool
}

func (*Class) Kind() Kind { return KindOther }

func newClass(name string, super *Class, ivars []string) *Class {
	c := &Class{
		Name:         name,
		Superclass:   super,
		InstVars:     ivars,
		Methods:      make(map[string]*Method),
		ClassMethods: make(map[string]*Method),
		prims:        make(map[string]Primitive),
		classPrims:   make(map[string]Primitive),
	}
	c.NumSlots = c.instVarOffset() + len(ivars)
	return c
}

// InstVarIndex returns the slot index for an instance variable by name.
// Returns -1 if the variable is not found.
func (c *Class) InstVarIndex(name string) int {
	for i, n := range c.InstVars {
		if n == name {
			return c.instVarOffset() + i
		}
	}
	if c.Superclass != nil {
		return c.Superclass.InstVarIndex(name)
	}
	return -1
}

// instVarOffset returns the starting slot index for this class's instance
// variables, after the inherited ones.
func (c *Class) instVarOffset() int {
	if c.Superclass == nil {
		return 0
	}
	return c.Superclass.NumSlots
}

// AllInstVarNames returns all instance variable names including inherited ones.
func (c *Class) AllInstVarNames() []string {
	if c.Superclass == nil {
		return c.InstVars
	}
	inherited := c.Superclass.AllInstVarNames()
	result := make([]string, len(inherited)+len(c.InstVars))
	copy(result, inherited)
	copy(result[len(inherited):], c.InstVars)
	return result
}

// IsSubclassOf returns true if c is a subclass of other (or is the same class).
func (c *Class) IsSubclassOf(other *Class) bool {
	for current := c; current != nil; current = current.Superclass {
		if current == other {
			return true
		}
	}
	return false
}

// Builtin reports whether the class was installed by the VM.
func (c *Class) Builtin() bool { return c.builtin }

func (c *Class) prim(selector string, fn Primitive) {
	c.prims[selector] = fn
}

func (c *Class) classPrim(selector string, fn Primitive) {
	c.classPrims[selector] = fn
}

// lookup finds the instance-side implementation of selector, preferring a
// source method over a primitive at each level of the hierarchy.
func (c *Class) lookup(selector string) (*Method, Primitive) {
	for cur := c; cur != nil; cur = cur.Superclass {
		if m, ok := cur.Methods[selector]; ok {
			return m, nil
		}
		if p, ok := cur.prims[selector]; ok {
			return nil, p
		}
	}
	return nil, nil
}

// lookupClassSide finds a class-side implementation of selector.
func (c *Class) lookupClassSide(selector string) (*Method, Primitive) {
	for cur := c; cur != nil; cur = cur.Superclass {
		if m, ok := cur.ClassMethods[selector]; ok {
			return m, nil
		}
		if p, ok := cur.classPrims[selector]; ok {
			return nil, p
		}
	}
	return nil, nil
}

// Selectors returns the sorted selectors defined in source on this class.
func (c *Class) Selectors() []string {
	out := make([]string, 0, len(c.Methods))
	for sel := range c.Methods {
		out = append(out, sel)
	}
	sort.Strings(out)
	return out
}
