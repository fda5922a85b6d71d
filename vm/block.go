package vm

import "github.com/chazu/plmaggie/compiler"

// NativeFunc is the body of a block implemented by the host.
type NativeFunc func(args []Value) (Value, error)

// Block is a closure over the frame that created it, or a host function
// wrapped so that it can be passed to messages like do:.
type Block struct {
	header
	node   *compiler.Block
	outer  *frame
	native NativeFunc
	arity  int
}

func (*Block) Kind() Kind { return KindOther }

// NumArgs returns the number of arguments the block takes.
func (b *Block) NumArgs() int {
	if b.node != nil {
		return len(b.node.Parameters)
	}
	return b.arity
}
