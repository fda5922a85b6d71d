package call

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"

	"github.com/chazu/plmaggie/env"
	"github.com/chazu/plmaggie/marshal"
	"github.com/chazu/plmaggie/proc"
	"github.com/chazu/plmaggie/types"
	"github.com/chazu/plmaggie/vm"
)

// Site is the state kept for one call site between calls: the procedure
// resolved against the site's types and the object that runs it. It is
// rebuilt when the procedure is recompiled or the transaction changes.
// The zero value is ready to use.
type Site struct {
	proc   *proc.Procedure
	m      *marshal.Marshaler
	scope  *marshal.Scope
	handle *env.Handle
	txn    env.TxnID
}

// Procedure returns the procedure the site last resolved, or nil.
func (s *Site) Procedure() *proc.Procedure { return s.proc }

// VM returns the runtime the site's procedure runs in, or nil. Its
// Interrupt method may be called from another goroutine.
func (s *Site) VM() *vm.VM {
	if s.m == nil {
		return nil
	}
	return s.m.VM
}

// Close releases the site's conversion state.
func (s *Site) Close() {
	if s.scope != nil {
		s.scope.Close()
	}
	*s = Site{}
}

func (s *Site) bind(h *Handler, e *proc.Entry, fc *FunctionCall) error {
	if s.proc != nil && s.proc.Entry == e {
		return nil
	}
	if s.scope != nil {
		s.scope.Close()
	}
	s.m = marshal.New(e.Env.VM, h.cat, h.enc)
	s.scope = s.m.NewScope()
	s.handle = nil
	p, err := proc.Resolve(s.scope, e, fc.ArgTypes, fc.ResultType)
	if err != nil {
		s.Close()
		return err
	}
	s.proc = p
	log.Debugf("bound call site to %s", e.Name)
	return nil
}

func (s *Site) open(h *Handler, txn env.TxnID) error {
	if s.handle != nil && !s.handle.Released() && s.txn == txn {
		return nil
	}
	e := s.proc.Entry
	hd, err := h.envs.Open(txn, e.Env, e.Class)
	if err != nil {
		return err
	}
	s.handle, s.txn = hd, txn
	return nil
}

// callState is one call in progress.
type callState struct {
	site      *Site
	temporary bool
}

func (h *Handler) prepare(ctx context.Context, fc *FunctionCall) (*callState, error) {
	e, err := h.cache.LookupOrCompile(ctx, fc.ProcID, fc.Principal, options(fc))
	if err != nil {
		return nil, err
	}
	st := &callState{site: fc.Site}
	if st.site == nil {
		st.site, st.temporary = &Site{}, true
	}
	if err := st.site.bind(h, e, fc); err != nil {
		return nil, err
	}
	if err := st.site.open(h, fc.Txn); err != nil {
		st.done()
		return nil, err
	}
	return st, nil
}

func (st *callState) done() {
	if st.temporary {
		st.site.Close()
	}
}

// invoke converts the arguments of fc and runs the procedure. A method
// that ends without returning a value answers nil.
func (st *callState) invoke(fc *FunctionCall) (vm.Value, error) {
	p := st.site.proc
	if len(fc.Args) != len(p.Args) {
		return nil, errors.Newf("function %s takes %d argument(s), got %d", p.Name, len(p.Args), len(fc.Args))
	}
	args := make([]vm.Value, len(fc.Args))
	for i, d := range fc.Args {
		null := i < len(fc.Nulls) && fc.Nulls[i]
		v, err := st.site.m.ToEmbedded(d, null, p.Args[i])
		if err != nil {
			return nil, errors.Wrapf(err, "converting argument %d of %s", i+1, p.Name)
		}
		args[i] = v
	}
	return st.send(args)
}

func (st *callState) send(args []vm.Value) (vm.Value, error) {
	res, err := st.site.handle.Invoke(args...)
	if err != nil {
		return nil, err
	}
	if res == st.site.handle.Callable {
		return vm.Nil, nil
	}
	return res, nil
}

// resultDescriptor returns the descriptor of a scalar call's result, nil
// for void. Record results take their shape from the call.
func (st *callState) resultDescriptor(td *types.TupleDesc) (*marshal.TypeDescriptor, error) {
	p := st.site.proc
	if p.Result == nil {
		return nil, nil
	}
	if p.ReturnType == oid.T_record && td != nil {
		return st.site.scope.RecordDescriptor(td), nil
	}
	return p.Result, nil
}

// rowConverter returns the converter for the rows of a set-returning
// call and whether each row is a single value.
func (st *callState) rowConverter(td *types.TupleDesc) (*marshal.RowConverter, bool, error) {
	p := st.site.proc
	scalar := p.Result.Category != marshal.CategoryComposite
	if td == nil {
		if scalar {
			td = &types.TupleDesc{Attrs: []types.Attr{{Name: p.Name, TypeID: p.ReturnType}}}
		} else {
			var err error
			if td, err = st.site.m.Types.LookupTupleDesc(p.ReturnType); err != nil {
				return nil, false, errors.Wrapf(err, "row type of %s", p.Name)
			}
		}
	}
	rc, err := st.site.scope.RowConverter(td)
	if err != nil {
		return nil, false, err
	}
	return rc, scalar, nil
}
