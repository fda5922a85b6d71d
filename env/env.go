// Package env keeps one runtime instance per principal and ties the
// objects a transaction allocates to that transaction's end.
package env

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/plmaggie/catalog"
	"github.com/chazu/plmaggie/plerror"
	"github.com/chazu/plmaggie/vm"
)

var log = commonlog.GetLogger("plmaggie.env")

// TxnID identifies a host transaction.
type TxnID = uuid.UUID

// NewTxnID returns a fresh transaction identity.
func NewTxnID() TxnID { return uuid.New() }

// XactEvent says how a transaction ended.
type XactEvent uint8

const (
	XactCommit XactEvent = iota
	XactAbort
	XactPrepare
)

func (e XactEvent) String() string {
	switch e {
	case XactCommit:
		return "commit"
	case XactAbort:
		return "abort"
	case XactPrepare:
		return "prepare"
	}
	return fmt.Sprintf("XactEvent(%d)", uint8(e))
}

// Environment is the runtime instance of one principal. Procedures
// compiled for the principal live in its VM.
//
// The VM's arena is a single checkpoint stack, so at most one transaction
// may hold open handles in an environment at a time.
type Environment struct {
	Owner   catalog.RoleID
	VM      *vm.VM
	Compile *vm.CompileContext

	txn TxnID // holder of the open handles; uuid.Nil when none
}

// Handle is one instantiated procedure object, valid until its
// transaction ends.
type Handle struct {
	Checkpoint vm.Checkpoint
	Env        *Environment
	Callable   vm.Value
	Selector   string
	Txn        TxnID

	next     *Handle
	released bool
}

// Registry holds the environments of every principal seen so far and the
// handles opened by each live transaction.
type Registry struct {
	envs    []*Environment
	pending map[TxnID]*Handle
	vmOpts  []vm.Option
}

// NewRegistry returns an empty registry. opts configure every VM it
// creates.
func NewRegistry(opts ...vm.Option) *Registry {
	return &Registry{pending: make(map[TxnID]*Handle), vmOpts: opts}
}

// Get returns the environment of owner, creating it on first use.
func (r *Registry) Get(owner catalog.RoleID) *Environment {
	for _, e := range r.envs {
		if e.Owner == owner {
			return e
		}
	}
	e := &Environment{
		Owner:   owner,
		VM:      vm.New(r.vmOpts...),
		Compile: &vm.CompileContext{Filename: fmt.Sprintf("role %d", owner)},
	}
	r.envs = append(r.envs, e)
	log.Infof("created runtime for role %d", owner)
	return e
}

// Len returns the number of environments.
func (r *Registry) Len() int { return len(r.envs) }

// Open instantiates class in e on behalf of txn. The handle's selector is
// the class's only method; classes with more than one use "call".
func (r *Registry) Open(txn TxnID, e *Environment, class *vm.Class) (*Handle, error) {
	if e.txn != uuid.Nil && e.txn != txn {
		return nil, errors.AssertionFailedf("runtime of role %d is in use by transaction %s", e.Owner, e.txn)
	}
	cp := e.VM.Checkpoint()
	obj, err := e.VM.Instantiate(class)
	if err != nil {
		e.VM.Restore(cp)
		return nil, errors.Wrapf(err, "instantiating %s", class.Name)
	}
	sel := "call"
	if sels := class.Selectors(); len(sels) == 1 {
		sel = sels[0]
	}
	h := &Handle{
		Checkpoint: cp,
		Env:        e,
		Callable:   obj,
		Selector:   sel,
		Txn:        txn,
		next:       r.pending[txn],
	}
	r.pending[txn] = h
	e.txn = txn
	return h, nil
}

// Pending returns the number of open handles of txn.
func (r *Registry) Pending(txn TxnID) int {
	n := 0
	for h := r.pending[txn]; h != nil; h = h.next {
		n++
	}
	return n
}

// OnTransactionEnd restores the checkpoint of every handle txn opened,
// most recent first, and forgets them. It returns the number released.
func (r *Registry) OnTransactionEnd(txn TxnID, ev XactEvent) int {
	n := 0
	for h := r.pending[txn]; h != nil; h = h.next {
		h.Env.VM.Restore(h.Checkpoint)
		h.Env.txn = uuid.Nil
		h.released = true
		n++
	}
	delete(r.pending, txn)
	if n > 0 {
		log.Debugf("%s of %s released %d handle(s)", ev, txn, n)
	}
	return n
}

// Released reports whether the handle's transaction has ended.
func (h *Handle) Released() bool { return h.released }

// Invoke sends the handle's selector with args. An exception that escapes
// is cleared from the VM and returned as a runtime error.
func (h *Handle) Invoke(args ...vm.Value) (vm.Value, error) {
	if h.released {
		return nil, errors.AssertionFailedf("handle used after its transaction ended")
	}
	res, err := h.Env.VM.Send(h.Callable, h.Selector, args...)
	if err == nil {
		return res, nil
	}
	if exc := h.Env.VM.TakePending(); exc != nil {
		return nil, plerror.Runtime(exc.Description())
	}
	return nil, plerror.WrapRuntime(err, "%s", h.Selector)
}
