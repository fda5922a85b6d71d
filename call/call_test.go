package call_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/plmaggie/call"
	"github.com/chazu/plmaggie/catalog"
	"github.com/chazu/plmaggie/env"
	"github.com/chazu/plmaggie/plerror"
	"github.com/chazu/plmaggie/types"
)

const owner catalog.RoleID = 10

type fixture struct {
	cat  *catalog.Memory
	h    *call.Handler
	txn  env.TxnID
	pair *types.TypeInfo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat := catalog.NewMemory()
	pair, err := cat.DefineComposite("pair", []types.Attr{
		{Name: "id", TypeID: oid.T_int4},
		{Name: "name", TypeID: oid.T_text},
	})
	require.NoError(t, err)
	return &fixture{cat: cat, h: call.NewHandler(cat), txn: env.NewTxnID(), pair: pair}
}

func (f *fixture) define(t *testing.T, p *catalog.Proc) oid.Oid {
	t.Helper()
	got, err := f.cat.DefineProc(context.Background(), p)
	require.NoError(t, err)
	return got.ID
}

func (f *fixture) call(id oid.Oid, args ...types.Datum) *call.FunctionCall {
	return &call.FunctionCall{ProcID: id, Principal: owner, Txn: f.txn, Args: args, Nulls: make([]bool, len(args))}
}

func (f *fixture) pairDesc(t *testing.T) *types.TupleDesc {
	t.Helper()
	td, err := f.cat.LookupTupleDesc(f.pair.OID)
	require.NoError(t, err)
	return td
}

const pairBody = `    | d |
    d := Dictionary new.
    d at: #id put: 7.
    d at: #name put: 'ok'.
    ^d`

func TestScalarCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.define(t, &catalog.Proc{
		Name: "add", Source: "    ^a + b", ReturnType: oid.T_int4,
		ArgTypes: []oid.Oid{oid.T_int4, oid.T_int4}, ArgNames: []string{"a", "b"},
	})

	d, null, err := f.h.Call(ctx, f.call(id, int32(2), int32(3)))
	require.NoError(t, err)
	assert.False(t, null)
	assert.Equal(t, int32(5), d)

	fc := f.call(id, int32(2), nil)
	fc.Nulls[1] = true
	_, _, err = f.h.Call(ctx, fc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, plerror.ErrRuntime))
}

func TestCallWithoutReturnIsNull(t *testing.T) {
	f := newFixture(t)
	id := f.define(t, &catalog.Proc{Name: "noop", Source: "    | x |\n    x := 1", ReturnType: oid.T_int4})
	d, null, err := f.h.Call(context.Background(), f.call(id))
	require.NoError(t, err)
	assert.True(t, null)
	assert.Nil(t, d)

	void := f.define(t, &catalog.Proc{Name: "nothing", Source: "    ^42", ReturnType: oid.T_void})
	_, null, err = f.h.Call(context.Background(), f.call(void))
	require.NoError(t, err)
	assert.True(t, null)
}

func TestCompositeResult(t *testing.T) {
	f := newFixture(t)
	id := f.define(t, &catalog.Proc{Name: "mkpair", Source: pairBody, ReturnType: f.pair.OID})

	d, null, err := f.h.Call(context.Background(), f.call(id))
	require.NoError(t, err)
	require.False(t, null)
	tup, ok := d.(*types.Tuple)
	require.True(t, ok)
	assert.Equal(t, []types.Datum{int32(7), "ok"}, tup.Values)
	assert.Equal(t, []bool{false, false}, tup.Nulls)
}

func TestRecordResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.define(t, &catalog.Proc{Name: "anon", Source: pairBody, ReturnType: oid.T_record})

	_, _, err := f.h.Call(ctx, f.call(id))
	require.Error(t, err)
	assert.True(t, errors.Is(err, plerror.ErrUnsupportedType))

	fc := f.call(id)
	fc.ResultDesc = &types.TupleDesc{Attrs: []types.Attr{
		{Name: "name", TypeID: oid.T_text},
		{Name: "id", TypeID: oid.T_int8},
	}}
	d, _, err := f.h.Call(ctx, fc)
	require.NoError(t, err)
	assert.Equal(t, []types.Datum{"ok", int64(7)}, d.(*types.Tuple).Values)
}

func TestCompositeArgument(t *testing.T) {
	f := newFixture(t)
	id := f.define(t, &catalog.Proc{
		Name: "label", Source: "    ^(p at: #name), '#', (p at: #id) printString",
		ReturnType: oid.T_text, ArgTypes: []oid.Oid{f.pair.OID}, ArgNames: []string{"p"},
	})
	arg := &types.Tuple{TypeID: f.pair.OID, Values: []types.Datum{int32(3), "x"}, Nulls: []bool{false, false}}
	d, _, err := f.h.Call(context.Background(), f.call(id, arg))
	require.NoError(t, err)
	assert.Equal(t, "x#3", d)
}

func TestSetReturningArray(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.define(t, &catalog.Proc{
		Name: "three", Source: "    ^Array with: 1 with: nil with: 3", ReturnsSet: true, ReturnType: oid.T_int4,
	})

	store := types.NewTuplestore(nil)
	require.NoError(t, f.h.CallSRF(ctx, f.call(id), &call.ResultSet{Sink: store}))
	require.Equal(t, 3, store.Len())
	assert.Equal(t, []types.Datum{int32(1)}, store.Rows[0].Values)
	assert.Equal(t, []bool{true}, store.Rows[1].Nulls)
	assert.Equal(t, []types.Datum{int32(3)}, store.Rows[2].Values)

	err := f.h.CallSRF(ctx, f.call(id), nil)
	require.Error(t, err)
	assert.Equal(t, plerror.CodeFeatureNotSupported, plerror.GetCode(err))

	_, _, err = f.h.Call(ctx, f.call(id))
	require.Error(t, err)
	assert.Equal(t, plerror.CodeFeatureNotSupported, plerror.GetCode(err))
}

func TestSetReturningRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	body := `    | rows a b |
    a := Dictionary new.
    a at: #id put: 1.
    a at: #name put: 'one'.
    b := Dictionary new.
    b at: #id put: 2.
    b at: #name put: 'two'.
    rows := Dictionary new.
    rows at: 1 put: a.
    rows at: 2 put: b.
    ^rows`
	id := f.define(t, &catalog.Proc{Name: "pairs", Source: body, ReturnsSet: true, ReturnType: f.pair.OID})

	store := types.NewTuplestore(f.pairDesc(t))
	require.NoError(t, f.h.CallSRF(ctx, f.call(id), &call.ResultSet{Sink: store}))
	require.Equal(t, 2, store.Len())
	assert.Equal(t, []types.Datum{int32(1), "one"}, store.Rows[0].Values)
	assert.Equal(t, []types.Datum{int32(2), "two"}, store.Rows[1].Values)
}

func TestSetReturningRowErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missing := f.define(t, &catalog.Proc{
		Name: "partial", ReturnsSet: true, ReturnType: f.pair.OID,
		Source: "    | d |\n    d := Dictionary new.\n    d at: #id put: 1.\n    ^Array with: d",
	})
	err := f.h.CallSRF(ctx, f.call(missing), &call.ResultSet{Sink: types.NewTuplestore(f.pairDesc(t))})
	require.Error(t, err)
	assert.True(t, errors.Is(err, plerror.ErrFieldMismatch))

	scalar := f.define(t, &catalog.Proc{Name: "notset", ReturnsSet: true, ReturnType: oid.T_int4, Source: "    ^42"})
	err = f.h.CallSRF(ctx, f.call(scalar), &call.ResultSet{Sink: types.NewTuplestore(nil)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, plerror.ErrTypeMismatch))

	record := f.define(t, &catalog.Proc{Name: "recs", ReturnsSet: true, ReturnType: oid.T_record, Source: "    ^Array new"})
	err = f.h.CallSRF(ctx, f.call(record), &call.ResultSet{Sink: types.NewTuplestore(nil)})
	require.Error(t, err)
	assert.Equal(t, plerror.CodeFeatureNotSupported, plerror.GetCode(err))
}

func triggerData(f *fixture, t *testing.T, op call.TriggerOp) *call.TriggerData {
	row := &types.Tuple{TypeID: f.pair.OID, Values: []types.Datum{int32(1), "old"}, Nulls: []bool{false, false}}
	td := &call.TriggerData{
		Name: "audit", When: call.WhenBefore, Level: call.LevelRow, Op: op,
		RelID: f.pair.OID, Table: "pairs", Schema: "public",
		Desc: f.pairDesc(t), TrigTuple: row, Args: []string{"x", "y"},
	}
	if op == call.OpUpdate {
		td.NewTuple = &types.Tuple{TypeID: f.pair.OID, Values: []types.Datum{int32(1), "new"}, Nulls: []bool{false, false}}
	}
	return td
}

func TestTriggerResults(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		name    string
		body    string
		op      call.TriggerOp
		want    string
		skipped bool
		code    plerror.Code
	}{
		{name: "nil keeps row", body: "    ^nil", op: call.OpInsert, want: "old"},
		{name: "ok keeps new row", body: "    ^#ok", op: call.OpUpdate, want: "new"},
		{name: "no return keeps row", body: "    tg_name size", op: call.OpDelete, want: "old"},
		{name: "skip", body: "    ^#skip", op: call.OpInsert, skipped: true},
		{name: "bad symbol", body: "    ^#bogus", op: call.OpInsert, code: plerror.CodeDataException},
		{name: "modified row", body: "    new at: #name put: tg_argv first , tg_op.\n    ^new", op: call.OpInsert, want: "xinsert"},
		{name: "bad row", body: "    ^42", op: call.OpInsert, code: plerror.CodeDatatypeMismatch},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.define(t, &catalog.Proc{Name: "trg", Source: tc.body, ReturnType: oid.T_trigger})
			fc := f.call(id)
			fc.Trigger = triggerData(f, t, tc.op)

			res, err := f.h.Dispatch(ctx, fc)
			if tc.code != "" {
				require.Error(t, err)
				assert.Equal(t, tc.code, plerror.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.skipped, res.Skipped)
			if tc.skipped {
				assert.Nil(t, res.Tuple)
				return
			}
			require.NotNil(t, res.Tuple)
			assert.Equal(t, tc.want, res.Tuple.Values[1])
		})
	}
}

func TestTriggerArguments(t *testing.T) {
	f := newFixture(t)
	body := `    | parts |
    parts := Array new.
    parts add: (new at: #name).
    parts add: (old at: #name).
    parts add: tg_when.
    parts add: tg_level.
    parts add: tg_table_schema.
    parts add: tg_table_name.
    parts add: tg_argv size printString.
    new at: #name put: (parts join: ',').
    ^new`
	id := f.define(t, &catalog.Proc{Name: "trg", Source: body, ReturnType: oid.T_trigger})
	fc := f.call(id)
	fc.Trigger = triggerData(f, t, call.OpUpdate)

	res, err := f.h.Dispatch(context.Background(), fc)
	require.NoError(t, err)
	assert.Equal(t, "new,old,before,row,public,pairs,2", res.Tuple.Values[1])
}

func TestAfterAndStatementTriggersIgnoreResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.define(t, &catalog.Proc{Name: "trg", Source: "    ^#bogus", ReturnType: oid.T_trigger})

	fc := f.call(id)
	fc.Trigger = triggerData(f, t, call.OpInsert)
	fc.Trigger.When = call.WhenAfter
	res, err := f.h.Dispatch(ctx, fc)
	require.NoError(t, err)
	assert.Nil(t, res.Tuple)
	assert.False(t, res.Skipped)

	fc = f.call(id)
	fc.Trigger = &call.TriggerData{Name: "stmt", When: call.WhenBefore, Level: call.LevelStatement, Op: call.OpTruncate, Table: "pairs"}
	res, err = f.h.Dispatch(ctx, fc)
	require.NoError(t, err)
	assert.Nil(t, res.Tuple)

	_, _, err = f.h.Call(ctx, f.call(id))
	require.Error(t, err)
	assert.Equal(t, plerror.CodeFeatureNotSupported, plerror.GetCode(err))
}

func TestSiteReuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.define(t, &catalog.Proc{
		Name: "twice", Source: "    ^x * 2", ReturnType: oid.T_int8,
		ArgTypes: []oid.Oid{oid.T_int8}, ArgNames: []string{"x"},
	})
	site := &call.Site{}
	defer site.Close()

	for i := int64(1); i <= 3; i++ {
		fc := f.call(id, i)
		fc.Site = site
		d, _, err := f.h.Call(ctx, fc)
		require.NoError(t, err)
		assert.Equal(t, 2*i, d)
	}
	assert.Equal(t, 1, f.h.Environments().Pending(f.txn))
	require.NotNil(t, site.Procedure())
	assert.NotNil(t, site.VM())

	f.h.EndTransaction(f.txn, env.XactCommit)
	next := env.NewTxnID()
	fc := &call.FunctionCall{ProcID: id, Principal: owner, Txn: next, Args: []types.Datum{int64(5)}, Nulls: []bool{false}, Site: site}
	d, _, err := f.h.Call(ctx, fc)
	require.NoError(t, err)
	assert.Equal(t, int64(10), d)
	assert.Equal(t, 1, f.h.Environments().Pending(next))
}

func TestTransactionEndReleasesCallObjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.define(t, &catalog.Proc{Name: "mkpair", Source: pairBody, ReturnType: f.pair.OID})
	b := f.define(t, &catalog.Proc{Name: "list", Source: "    ^(Array new: 10) size", ReturnType: oid.T_int4})

	v := f.h.Environments().Get(owner).VM
	start := v.Arena().Stats()
	for _, id := range []oid.Oid{a, b, a} {
		_, _, err := f.h.Call(ctx, f.call(id))
		require.NoError(t, err)
	}
	assert.Greater(t, v.Arena().Len(), start.Live)
	assert.Equal(t, 3, f.h.EndTransaction(f.txn, env.XactCommit))
	end := v.Arena().Stats()
	assert.Equal(t, start.Live, end.Live)
	assert.Equal(t, end.Allocated-start.Allocated, end.Released-start.Released)
}

func TestRecompiledProcedureIsUsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.cat.DefineProc(ctx, &catalog.Proc{Name: "v", Source: "    ^1", ReturnType: oid.T_int4})
	require.NoError(t, err)
	site := &call.Site{}
	defer site.Close()

	fc := f.call(p.ID)
	fc.Site = site
	d, _, err := f.h.Call(ctx, fc)
	require.NoError(t, err)
	assert.Equal(t, int32(1), d)

	p.Source = "    ^2"
	_, err = f.cat.ReplaceProc(ctx, p)
	require.NoError(t, err)
	d, _, err = f.h.Call(ctx, fc)
	require.NoError(t, err)
	assert.Equal(t, int32(2), d)
}

func TestValidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	good := f.define(t, &catalog.Proc{Name: "good", Source: "    ^1", ReturnType: oid.T_int4})
	bad := f.define(t, &catalog.Proc{Name: "bad", Source: "    ^1 +", ReturnType: oid.T_int4})

	require.NoError(t, f.h.Validate(ctx, good, owner))
	err := f.h.Validate(ctx, bad, owner)
	require.Error(t, err)
	assert.True(t, errors.Is(err, plerror.ErrCompile))
	assert.Equal(t, 1, f.h.Cache().Len())
}

func TestPolymorphicCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.define(t, &catalog.Proc{
		Name: "head", Source: "    ^xs first", ReturnType: oid.T_anyelement,
		ArgTypes: []oid.Oid{oid.T_anyarray}, ArgNames: []string{"xs"},
	})
	fc := f.call(id, types.NewArray(oid.T_text, []types.Datum{"a", "b"}, nil))
	fc.ArgTypes = []oid.Oid{oid.T__text}
	d, _, err := f.h.Call(ctx, fc)
	require.NoError(t, err)
	assert.Equal(t, "a", d)
}

func TestArgumentCount(t *testing.T) {
	f := newFixture(t)
	id := f.define(t, &catalog.Proc{
		Name: "one", Source: "    ^x", ReturnType: oid.T_int4,
		ArgTypes: []oid.Oid{oid.T_int4}, ArgNames: []string{"x"},
	})
	_, _, err := f.h.Call(context.Background(), f.call(id))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "takes 1 argument(s), got 0")
}
