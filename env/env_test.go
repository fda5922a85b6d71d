package env_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/plmaggie/env"
	"github.com/chazu/plmaggie/plerror"
	"github.com/chazu/plmaggie/vm"
)

const counterSource = `Counter subclass: Object
  method: call: n [
    | parts |
    parts := Array new: n.
    ^parts size
  ]
`

func load(t *testing.T, e *env.Environment, src string) *vm.Class {
	t.Helper()
	classes, err := e.VM.Load(e.Compile, src)
	require.NoError(t, err)
	return classes[0]
}

func TestGetReusesEnvironment(t *testing.T) {
	r := env.NewRegistry()
	a := r.Get(10)
	assert.Same(t, a, r.Get(10))
	b := r.Get(11)
	assert.NotSame(t, a, b)
	assert.NotSame(t, a.VM, b.VM)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, "role 10", a.Compile.Filename)
}

func TestOpenUsesOnlySelector(t *testing.T) {
	r := env.NewRegistry()
	e := r.Get(10)
	class := load(t, e, counterSource)
	h, err := r.Open(env.NewTxnID(), e, class)
	require.NoError(t, err)
	assert.Equal(t, "call:", h.Selector)

	res, err := h.Invoke(vm.Int(3))
	require.NoError(t, err)
	assert.Equal(t, vm.Int(3), res)
}

func TestTransactionEndReleasesObjects(t *testing.T) {
	r := env.NewRegistry()
	e := r.Get(10)
	class := load(t, e, counterSource)
	base := e.VM.Arena().Len()

	txn := env.NewTxnID()
	var handles []*env.Handle
	for i := 0; i < 3; i++ {
		h, err := r.Open(txn, e, class)
		require.NoError(t, err)
		_, err = h.Invoke(vm.Int(2))
		require.NoError(t, err)
		handles = append(handles, h)
	}
	assert.Equal(t, 3, r.Pending(txn))
	assert.Greater(t, e.VM.Arena().Len(), base)

	assert.Equal(t, 3, r.OnTransactionEnd(txn, env.XactCommit))
	assert.Equal(t, base, e.VM.Arena().Len())
	assert.Zero(t, r.Pending(txn))
	for _, h := range handles {
		assert.True(t, h.Released())
		assert.False(t, e.VM.Arena().Live(h.Callable))
	}

	_, err := handles[0].Invoke(vm.Int(1))
	require.Error(t, err)
	assert.True(t, errors.IsAssertionFailure(err))

	// a second end of the same transaction is a no-op
	assert.Zero(t, r.OnTransactionEnd(txn, env.XactAbort))
}

func TestTransactionsAreIndependent(t *testing.T) {
	r := env.NewRegistry()
	e1, e2 := r.Get(10), r.Get(11)
	c1, c2 := load(t, e1, counterSource), load(t, e2, counterSource)

	t1, t2 := env.NewTxnID(), env.NewTxnID()
	h1, err := r.Open(t1, e1, c1)
	require.NoError(t, err)
	h2, err := r.Open(t2, e2, c2)
	require.NoError(t, err)

	r.OnTransactionEnd(t1, env.XactAbort)
	assert.True(t, h1.Released())
	assert.False(t, h2.Released())
	assert.True(t, e2.VM.Arena().Live(h2.Callable))

	res, err := h2.Invoke(vm.Int(5))
	require.NoError(t, err)
	assert.Equal(t, vm.Int(5), res)
}

func TestOneLiveTransactionPerEnvironment(t *testing.T) {
	r := env.NewRegistry()
	e := r.Get(10)
	class := load(t, e, counterSource)

	t1, t2 := env.NewTxnID(), env.NewTxnID()
	h1, err := r.Open(t1, e, class)
	require.NoError(t, err)
	_, err = r.Open(t1, e, class)
	require.NoError(t, err)

	_, err = r.Open(t2, e, class)
	require.Error(t, err)
	assert.True(t, errors.IsAssertionFailure(err))
	assert.Zero(t, r.Pending(t2))
	assert.True(t, e.VM.Arena().Live(h1.Callable))

	assert.Equal(t, 2, r.OnTransactionEnd(t1, env.XactCommit))
	h2, err := r.Open(t2, e, class)
	require.NoError(t, err)
	res, err := h2.Invoke(vm.Int(3))
	require.NoError(t, err)
	assert.Equal(t, vm.Int(3), res)
	assert.Equal(t, 1, r.OnTransactionEnd(t2, env.XactAbort))
}

func TestInvokeRuntimeError(t *testing.T) {
	r := env.NewRegistry()
	e := r.Get(10)
	class := load(t, e, "Boom subclass: Object\n  method: call [ ^1 / 0 ]\n")
	h, err := r.Open(env.NewTxnID(), e, class)
	require.NoError(t, err)
	assert.Equal(t, "call", h.Selector)

	_, err = h.Invoke()
	require.Error(t, err)
	assert.True(t, errors.Is(err, plerror.ErrRuntime))
	assert.Equal(t, plerror.CodeExternalRoutineExcept, plerror.GetCode(err))
	assert.Contains(t, err.Error(), "ZeroDivide")
	assert.Nil(t, e.VM.Pending())
}

func TestXactEventString(t *testing.T) {
	assert.Equal(t, "commit", env.XactCommit.String())
	assert.Equal(t, "abort", env.XactAbort.String())
	assert.Equal(t, "prepare", env.XactPrepare.String())
	assert.Equal(t, "XactEvent(9)", env.XactEvent(9).String())
}
