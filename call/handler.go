// Package call is the procedural-language call handler: it looks up the
// compiled procedure, converts arguments into the runtime, runs the call
// and converts the result back for scalar, set-returning and trigger
// calls.
package call

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"
	"github.com/tliron/commonlog"

	"github.com/chazu/plmaggie/catalog"
	"github.com/chazu/plmaggie/env"
	"github.com/chazu/plmaggie/plerror"
	"github.com/chazu/plmaggie/proc"
	"github.com/chazu/plmaggie/types"
	"github.com/chazu/plmaggie/vm"
)

var log = commonlog.GetLogger("plmaggie.call")

// Option configures a Handler.
type Option func(*Handler)

// WithEncoding sets the database encoding. The default is UTF8.
func WithEncoding(enc *types.Encoding) Option {
	return func(h *Handler) { h.enc = enc }
}

// WithVMOptions configures every runtime the handler creates.
func WithVMOptions(opts ...vm.Option) Option {
	return func(h *Handler) { h.vmOpts = append(h.vmOpts, opts...) }
}

// Handler owns the procedure cache and the runtime environments of one
// host process.
type Handler struct {
	cat    catalog.Catalog
	enc    *types.Encoding
	vmOpts []vm.Option
	envs   *env.Registry
	cache  *proc.Cache
}

// NewHandler returns a handler reading definitions and types from cat.
func NewHandler(cat catalog.Catalog, opts ...Option) *Handler {
	h := &Handler{cat: cat, enc: types.UTF8}
	for _, opt := range opts {
		opt(h)
	}
	h.envs = env.NewRegistry(h.vmOpts...)
	h.cache = proc.NewCache(cat, h.envs)
	return h
}

// Cache returns the procedure cache.
func (h *Handler) Cache() *proc.Cache { return h.cache }

// Environments returns the environment registry.
func (h *Handler) Environments() *env.Registry { return h.envs }

// FunctionCall is one invocation as the host presents it.
type FunctionCall struct {
	ProcID    oid.Oid
	Principal catalog.RoleID
	Txn       env.TxnID
	Args      []types.Datum
	Nulls     []bool
	// ArgTypes and ResultType are the actual types at the call site. They
	// may be left empty unless the procedure is polymorphic.
	ArgTypes   []oid.Oid
	ResultType oid.Oid
	// ResultDesc is the row shape expected from a procedure returning
	// record.
	ResultDesc *types.TupleDesc
	// Site carries state between calls from the same call site. Nil
	// means no reuse.
	Site *Site

	// Used by Dispatch.
	ResultSet *ResultSet
	Trigger   *TriggerData
}

// ResultSet receives the rows of a set-returning call.
type ResultSet struct {
	Sink types.Sink
	// Desc is the row shape the caller expects. It may be nil for
	// procedures returning a scalar or a registered row type.
	Desc *types.TupleDesc
}

// Result is what Dispatch produced.
type Result struct {
	Datum types.Datum
	Null  bool
	// Tuple is the row returned by a trigger. Nil with Skipped unset means
	// the trigger's result was ignored.
	Tuple   *types.Tuple
	Skipped bool
}

// Call runs a procedure that returns a single value. A void procedure
// returns null.
func (h *Handler) Call(ctx context.Context, fc *FunctionCall) (types.Datum, bool, error) {
	st, err := h.prepare(ctx, fc)
	if err != nil {
		return nil, false, err
	}
	defer st.done()
	e := st.site.proc.Entry
	if e.Trigger {
		return nil, false, plerror.NotSupportedf("trigger functions can only be called as triggers")
	}
	if e.ReturnsSet {
		return nil, false, plerror.NotSupportedf("set-valued function called in context that cannot accept a set")
	}

	res, err := st.invoke(fc)
	if err != nil {
		return nil, false, err
	}
	desc, err := st.resultDescriptor(fc.ResultDesc)
	if err != nil || desc == nil {
		return nil, true, err
	}
	d, null, err := st.site.m.ToHost(res, desc)
	if err != nil {
		return nil, false, errors.Wrapf(err, "converting result of %s", e.Name)
	}
	return d, null, nil
}

// CallSRF runs a set-returning procedure. The procedure's result must be
// an Array or respond to do:; each element becomes one row of rs.
func (h *Handler) CallSRF(ctx context.Context, fc *FunctionCall, rs *ResultSet) error {
	if rs == nil || rs.Sink == nil {
		return plerror.NotSupportedf("set-valued function called in context that cannot accept a set")
	}
	st, err := h.prepare(ctx, fc)
	if err != nil {
		return err
	}
	defer st.done()
	p := st.site.proc
	if !p.ReturnsSet || p.Result == nil {
		return plerror.NotSupportedf("function %s does not return a set", p.Name)
	}
	if p.ReturnType == oid.T_record && rs.Desc == nil {
		return plerror.NotSupportedf("function returning record called in context that cannot accept type record")
	}

	res, err := st.invoke(fc)
	if err != nil {
		return err
	}
	rc, scalar, err := st.rowConverter(rs.Desc)
	if err != nil {
		return err
	}
	v := st.site.handle.Env.VM
	switch {
	case res.Kind() == vm.KindSequence:
		arr, ok := res.(*vm.Array)
		if !ok {
			return plerror.TypeMismatchf("set-returning function must return an Array or an object that responds to do:")
		}
		for i, elem := range arr.Elems {
			if err := rc.PutRow(rs.Sink, elem, scalar); err != nil {
				return errors.Wrapf(err, "row %d", i+1)
			}
		}
	case v.RespondsTo(res, "do:"):
		n := 0
		each := v.NewNativeBlock(1, func(args []vm.Value) (vm.Value, error) {
			n++
			if err := rc.PutRow(rs.Sink, args[0], scalar); err != nil {
				return nil, errors.Wrapf(err, "row %d", n)
			}
			return vm.Nil, nil
		})
		if _, err := v.Send(res, "do:", each); err != nil {
			if exc := v.TakePending(); exc != nil {
				return plerror.Runtime(exc.Description())
			}
			return err
		}
	default:
		return plerror.TypeMismatchf("set-returning function must return an Array or an object that responds to do:, not %s", v.ClassOf(res).Name)
	}
	return rs.Sink.Done()
}

// Dispatch runs fc as a trigger when it carries trigger data, as a
// set-returning call when the procedure returns a set, and as a scalar
// call otherwise.
func (h *Handler) Dispatch(ctx context.Context, fc *FunctionCall) (*Result, error) {
	if fc.Trigger != nil {
		t, err := h.CallTrigger(ctx, fc, fc.Trigger)
		if err != nil {
			return nil, err
		}
		skipped := t == nil && fc.Trigger.Level == LevelRow && fc.Trigger.When != WhenAfter
		return &Result{Tuple: t, Null: t == nil, Skipped: skipped}, nil
	}
	e, err := h.cache.LookupOrCompile(ctx, fc.ProcID, fc.Principal, options(fc))
	if err != nil {
		return nil, err
	}
	if e.ReturnsSet {
		if err := h.CallSRF(ctx, fc, fc.ResultSet); err != nil {
			return nil, err
		}
		return &Result{Null: true}, nil
	}
	d, null, err := h.Call(ctx, fc)
	if err != nil {
		return nil, err
	}
	return &Result{Datum: d, Null: null}, nil
}

// Validate checks the declared types of procedure id and compiles it for
// principal without running it.
func (h *Handler) Validate(ctx context.Context, id oid.Oid, principal catalog.RoleID) error {
	_, err := h.cache.LookupOrCompile(ctx, id, principal, proc.Options{})
	return err
}

// EndTransaction releases everything txn allocated in any runtime.
func (h *Handler) EndTransaction(txn env.TxnID, ev env.XactEvent) int {
	return h.envs.OnTransactionEnd(txn, ev)
}

func options(fc *FunctionCall) proc.Options {
	return proc.Options{ArgTypes: fc.ArgTypes, ReturnType: fc.ResultType}
}
