package vm

// ---------------------------------------------------------------------------
// Object: instances of user-defined classes
// ---------------------------------------------------------------------------

// Object is an instance of a class defined in source. Slots hold the
// instance variables in AllInstVarNames order.
type Object struct {
	header
	class *Class
	Slots []Value
}

func (*Object) Kind() Kind { return KindOther }

// Class returns the object's class.
func (o *Object) Class() *Class { return o.class }

// InstVar returns the named instance variable, or Nil if the class has no
// such variable.
func (o *Object) InstVar(name string) Value {
	if i := o.class.InstVarIndex(name); i >= 0 && i < len(o.Slots) {
		return o.Slots[i]
	}
	return Nil
}

func newSlots(c *Class) []Value {
	slots := make([]Value, c.NumSlots)
	for i := range slots {
		slots[i] = Nil
	}
	return slots
}

// ---------------------------------------------------------------------------
// Association: key->value pairs
// ---------------------------------------------------------------------------

// Association is the result of `key -> value`.
type Association struct {
	header
	Key Value
	Val Value
}

func (*Association) Kind() Kind { return KindOther }
