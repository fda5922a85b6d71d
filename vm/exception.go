package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Exceptions
// ---------------------------------------------------------------------------

// Exception is an instance of Exception or one of its subclasses. It embeds
// Object so that subclasses defined in source can add instance variables.
type Exception struct {
	Object
	MessageText Value
}

func (*Exception) Kind() Kind { return KindOther }

// Text returns the message text, or "" when none was given.
func (e *Exception) Text() string {
	if s, ok := textOf(e.MessageText); ok {
		return s
	}
	return ""
}

// Description renders the exception as "ClassName: message", or just the
// class name when there is no message.
func (e *Exception) Description() string {
	if t := e.Text(); t != "" {
		return e.class.Name + ": " + t
	}
	return e.class.Name
}

// Signal carries a signaled exception up the Go stack. It is also the
// error returned from Send when the exception is not handled.
type Signal struct {
	Exception *Exception
}

func (s *Signal) Error() string { return s.Exception.Description() }

// ErrInterrupted is returned by Send when the host interrupted the VM.
var ErrInterrupted = errors.New("execution interrupted")

// hostError carries a Go error from host code (native blocks, interrupts)
// through running code. Handlers installed with on:do: do not see it.
type hostError struct {
	err error
}

// nonLocalReturn unwinds to the method frame that created a block when the
// block executes ^expr.
type nonLocalReturn struct {
	home  *frame
	value Value
}

// handlerExit unwinds from inside a handler block to its on:do: for
// `ex return: value` and `ex retry`.
type handlerExit struct {
	exc   *Exception
	value Value
	retry bool
}

// signal raises exc. It never returns.
func (vm *VM) signal(exc *Exception) {
	panic(&Signal{Exception: exc})
}

// signalf instantiates class with a formatted message and raises it.
func (vm *VM) signalf(class *Class, format string, args ...any) {
	vm.signal(vm.newException(class, fmt.Sprintf(format, args...)))
}

func (vm *VM) newException(class *Class, text string) *Exception {
	e := &Exception{Object: Object{class: class, Slots: newSlots(class)}}
	if text != "" {
		e.MessageText = String(text)
	} else {
		e.MessageText = Nil
	}
	vm.alloc(e)
	return e
}

// handles reports whether the exception selector (a class, or an Array of
// classes built with `,`) matches exc.
func (vm *VM) handles(selector Value, exc *Exception) bool {
	switch s := selector.(type) {
	case *Class:
		return exc.class.IsSubclassOf(s)
	case *Array:
		for _, c := range s.Elems {
			if vm.handles(c, exc) {
				return true
			}
		}
	}
	return false
}

// onDo evaluates protected, running handler for any exception matched by
// selector. The handler's value becomes the value of the whole expression.
func (vm *VM) onDo(protected *Block, selector Value, handler Value) Value {
	for {
		var retry bool
		result := func() (res Value) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				sig, ok := r.(*Signal)
				if !ok || !vm.handles(selector, sig.Exception) {
					panic(r)
				}
				res = vm.runHandler(handler, sig.Exception, &retry)
			}()
			return vm.callBlock(protected, nil)
		}()
		if !retry {
			return result
		}
	}
}

func (vm *VM) runHandler(handler Value, exc *Exception, retry *bool) (res Value) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if hx, ok := r.(*handlerExit); ok && hx.exc == exc {
			*retry = hx.retry
			res = hx.value
			return
		}
		panic(r)
	}()

	b, ok := handler.(*Block)
	if !ok {
		return handler
	}
	if b.NumArgs() == 0 {
		return vm.callBlock(b, nil)
	}
	return vm.callBlock(b, []Value{exc})
}

// ensure evaluates body and then cleanup, whether body finishes normally
// or unwinds.
func (vm *VM) ensure(body, cleanup *Block) Value {
	defer vm.callBlock(cleanup, nil)
	return vm.callBlock(body, nil)
}

// ifCurtailed evaluates cleanup only when body unwinds.
func (vm *VM) ifCurtailed(body, cleanup *Block) Value {
	done := false
	defer func() {
		if !done {
			vm.callBlock(cleanup, nil)
		}
	}()
	v := vm.callBlock(body, nil)
	done = true
	return v
}
