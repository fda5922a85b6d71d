package proc_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/plmaggie/catalog"
	"github.com/chazu/plmaggie/env"
	"github.com/chazu/plmaggie/marshal"
	"github.com/chazu/plmaggie/plerror"
	"github.com/chazu/plmaggie/proc"
	"github.com/chazu/plmaggie/vm"
)

const alice, bob catalog.RoleID = 10, 11

type fixture struct {
	cat   *catalog.Memory
	envs  *env.Registry
	cache *proc.Cache
}

func newFixture() *fixture {
	cat := catalog.NewMemory()
	envs := env.NewRegistry()
	return &fixture{cat: cat, envs: envs, cache: proc.NewCache(cat, envs)}
}

func (f *fixture) define(t *testing.T, p *catalog.Proc) *catalog.Proc {
	t.Helper()
	got, err := f.cat.DefineProc(context.Background(), p)
	require.NoError(t, err)
	return got
}

func addProc() *catalog.Proc {
	return &catalog.Proc{
		Name:       "add",
		Source:     "    ^a + b",
		ReturnType: oid.T_int4,
		ArgTypes:   []oid.Oid{oid.T_int4, oid.T_int4},
		ArgNames:   []string{"a", "b"},
	}
}

func TestWrap(t *testing.T) {
	assert.Equal(t, "call", proc.Selector(0))
	assert.Equal(t, "call:", proc.Selector(1))
	assert.Equal(t, "call:with:with:", proc.Selector(3))
	assert.Equal(t, "PLProc_16384", proc.ClassName(16384))

	src := proc.Wrap(16384, []string{"a", "b"}, "^a + b")
	assert.Equal(t, "PLProc_16384 subclass: Object\n  method: call: a with: b [\n^a + b\n  ]\n", src)
	assert.Equal(t, "PLProc_7 subclass: Object\n  method: call [\nnil\n  ]\n", proc.Wrap(7, nil, "nil"))
}

func TestParamName(t *testing.T) {
	assert.Equal(t, "total", proc.ParamName("total", 1))
	assert.Equal(t, "_2", proc.ParamName("", 2))
	assert.Equal(t, "_3", proc.ParamName("self", 3))
	assert.Equal(t, "_1", proc.ParamName("my col", 1))
}

func TestCacheHit(t *testing.T) {
	f := newFixture()
	p := f.define(t, addProc())
	ctx := context.Background()

	e1, err := f.cache.LookupOrCompile(ctx, p.ID, alice, proc.Options{})
	require.NoError(t, err)
	e2, err := f.cache.LookupOrCompile(ctx, p.ID, alice, proc.Options{})
	require.NoError(t, err)

	assert.Same(t, e1, e2)
	assert.Equal(t, proc.Stats{Hits: 1, Compiles: 1}, f.cache.Stats())
	assert.Equal(t, "call:with:", e1.Selector)
	assert.Equal(t, []string{"a", "b"}, e1.ArgNames)
	assert.Equal(t, proc.ClassName(p.ID), e1.Class.Name)

	h, err := f.envs.Open(env.NewTxnID(), e1.Env, e1.Class)
	require.NoError(t, err)
	res, err := h.Invoke(vm.Int(2), vm.Int(40))
	require.NoError(t, err)
	assert.Equal(t, vm.Int(42), res)
}

func TestRecompileOnReplace(t *testing.T) {
	f := newFixture()
	p := f.define(t, addProc())
	ctx := context.Background()

	e1, err := f.cache.LookupOrCompile(ctx, p.ID, alice, proc.Options{})
	require.NoError(t, err)

	p.Source = "    ^a * b"
	_, err = f.cat.ReplaceProc(ctx, p)
	require.NoError(t, err)

	e2, err := f.cache.LookupOrCompile(ctx, p.ID, alice, proc.Options{})
	require.NoError(t, err)
	assert.NotSame(t, e1, e2)
	assert.NotEqual(t, e1.Token, e2.Token)
	assert.Equal(t, 1, f.cache.Len())
	assert.Equal(t, proc.Stats{Compiles: 2, Evictions: 1}, f.cache.Stats())

	h, err := f.envs.Open(env.NewTxnID(), e2.Env, e2.Class)
	require.NoError(t, err)
	res, err := h.Invoke(vm.Int(6), vm.Int(7))
	require.NoError(t, err)
	assert.Equal(t, vm.Int(42), res)
}

func TestRecompileForOtherPrincipal(t *testing.T) {
	f := newFixture()
	p := f.define(t, addProc())
	ctx := context.Background()

	ea, err := f.cache.LookupOrCompile(ctx, p.ID, alice, proc.Options{})
	require.NoError(t, err)
	eb, err := f.cache.LookupOrCompile(ctx, p.ID, bob, proc.Options{})
	require.NoError(t, err)

	assert.NotSame(t, ea, eb)
	assert.NotSame(t, ea.Env, eb.Env)
	assert.Equal(t, bob, eb.Token.Principal)
	assert.Equal(t, 2, f.envs.Len())
}

func TestCompileErrorLeavesNoEntry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := addProc()
	p.Source = "    ^a + )"
	p = f.define(t, p)

	_, err := f.cache.LookupOrCompile(ctx, p.ID, alice, proc.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, plerror.ErrCompile))
	assert.Equal(t, plerror.CodeSyntaxError, plerror.GetCode(err))
	assert.Contains(t, err.Error(), "add: line 1")
	assert.Zero(t, f.cache.Len())

	p.Source = "    ^a + b"
	_, err = f.cat.ReplaceProc(ctx, p)
	require.NoError(t, err)
	e, err := f.cache.LookupOrCompile(ctx, p.ID, alice, proc.Options{})
	require.NoError(t, err)
	assert.NotNil(t, e.Class)
}

func TestFailedRecompileEvicts(t *testing.T) {
	f := newFixture()
	p := f.define(t, addProc())
	ctx := context.Background()

	good, err := f.cache.LookupOrCompile(ctx, p.ID, alice, proc.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, f.cache.Len())

	p.Source = "    ^a + )"
	_, err = f.cat.ReplaceProc(ctx, p)
	require.NoError(t, err)
	_, err = f.cache.LookupOrCompile(ctx, p.ID, alice, proc.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, plerror.ErrCompile))
	assert.Zero(t, f.cache.Len())
	assert.Equal(t, proc.Stats{Compiles: 1, Evictions: 1}, f.cache.Stats())

	p.Source = "    ^a - b"
	_, err = f.cat.ReplaceProc(ctx, p)
	require.NoError(t, err)
	fresh, err := f.cache.LookupOrCompile(ctx, p.ID, alice, proc.Options{})
	require.NoError(t, err)
	assert.NotSame(t, good.Class, fresh.Class)
	assert.NotEqual(t, good.Token, fresh.Token)
	assert.Equal(t, proc.Stats{Compiles: 2, Evictions: 1}, f.cache.Stats())

	h, err := f.envs.Open(env.NewTxnID(), fresh.Env, fresh.Class)
	require.NoError(t, err)
	res, err := h.Invoke(vm.Int(50), vm.Int(8))
	require.NoError(t, err)
	assert.Equal(t, vm.Int(42), res)
}

func TestCompileErrorLineInBody(t *testing.T) {
	f := newFixture()
	p := addProc()
	p.Source = "    | x |\n    x := a.\n    ^x + )"
	p = f.define(t, p)

	_, err := f.cache.LookupOrCompile(context.Background(), p.ID, alice, proc.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestBodyCannotCloseMethod(t *testing.T) {
	f := newFixture()
	p := addProc()
	p.Source = "    ^1 ]\n  method: other [ ^2"
	p = f.define(t, p)

	_, err := f.cache.LookupOrCompile(context.Background(), p.ID, alice, proc.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, plerror.ErrCompile))
	assert.Contains(t, err.Error(), "must not define methods")
	_, ok := f.envs.Get(alice).VM.ClassNamed(proc.ClassName(p.ID))
	assert.False(t, ok)
}

func TestPositionalParams(t *testing.T) {
	f := newFixture()
	p := f.define(t, &catalog.Proc{
		Name:       "second",
		Source:     "    ^_2",
		ReturnType: oid.T_text,
		ArgTypes:   []oid.Oid{oid.T_int4, oid.T_text, oid.T_int4},
		ArgNames:   []string{"", "", "result"},
		ArgModes:   []catalog.ArgMode{catalog.ArgIn, catalog.ArgIn, catalog.ArgOut},
	})
	e, err := f.cache.LookupOrCompile(context.Background(), p.ID, alice, proc.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"_1", "_2"}, e.ArgNames)
	assert.Equal(t, []oid.Oid{oid.T_int4, oid.T_text}, e.ArgTypes)
	assert.Equal(t, "call:with:", e.Selector)
}

func TestUnknownProcedure(t *testing.T) {
	f := newFixture()
	_, err := f.cache.LookupOrCompile(context.Background(), 99999, alice, proc.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrNotFound))
	assert.Equal(t, plerror.CodeUndefinedFunction, plerror.GetCode(err))
}

func TestUnsupportedPseudoTypes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for _, tc := range []struct {
		name string
		p    *catalog.Proc
	}{
		{"cstring argument", &catalog.Proc{Name: "f1", Source: "^1", ReturnType: oid.T_int4, ArgTypes: []oid.Oid{oid.T_cstring}}},
		{"internal result", &catalog.Proc{Name: "f2", Source: "^1", ReturnType: oid.T_internal}},
		{"void argument", &catalog.Proc{Name: "f3", Source: "^1", ReturnType: oid.T_int4, ArgTypes: []oid.Oid{oid.T_void}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := f.define(t, tc.p)
			_, err := f.cache.LookupOrCompile(ctx, p.ID, alice, proc.Options{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, plerror.ErrUnsupportedType))
		})
	}
}

func TestPolymorphicNeedsCallSite(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.define(t, &catalog.Proc{
		Name: "ident", Source: "^x", ReturnType: oid.T_anyelement,
		ArgTypes: []oid.Oid{oid.T_anyelement}, ArgNames: []string{"x"},
	})

	_, err := f.cache.LookupOrCompile(ctx, p.ID, alice, proc.Options{ArgTypes: []oid.Oid{0}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, plerror.ErrUnsupportedType))

	e, err := f.cache.LookupOrCompile(ctx, p.ID, alice, proc.Options{ArgTypes: []oid.Oid{oid.T_int8}})
	require.NoError(t, err)
	assert.Equal(t, []oid.Oid{oid.T_anyelement}, e.ArgTypes)
}

func TestTriggerEntry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.define(t, &catalog.Proc{Name: "trg", Source: "^#ok", ReturnType: oid.T_trigger})
	e, err := f.cache.LookupOrCompile(ctx, p.ID, alice, proc.Options{})
	require.NoError(t, err)
	assert.True(t, e.Trigger)
	assert.Equal(t, proc.Selector(len(proc.TriggerParams)), e.Selector)

	bad := f.define(t, &catalog.Proc{Name: "trg2", Source: "^#ok", ReturnType: oid.T_trigger, ArgTypes: []oid.Oid{oid.T_int4}})
	_, err = f.cache.LookupOrCompile(ctx, bad.ID, alice, proc.Options{})
	require.Error(t, err)
	assert.Equal(t, plerror.CodeFeatureNotSupported, plerror.GetCode(err))
}

func TestEvict(t *testing.T) {
	f := newFixture()
	p := f.define(t, addProc())
	_, err := f.cache.LookupOrCompile(context.Background(), p.ID, alice, proc.Options{})
	require.NoError(t, err)
	f.cache.Evict(p.ID)
	f.cache.Evict(p.ID)
	assert.Zero(t, f.cache.Len())
	assert.Equal(t, uint64(1), f.cache.Stats().Evictions)
}

func TestResolve(t *testing.T) {
	f := newFixture()
	m := marshal.New(vm.New(), f.cat, nil)
	s := m.NewScope()
	defer s.Close()

	e := &proc.Entry{
		Name:       "first",
		ReturnType: oid.T_anyelement,
		ArgTypes:   []oid.Oid{oid.T_anyarray},
	}
	p, err := proc.Resolve(s, e, []oid.Oid{oid.T__int4}, 0)
	require.NoError(t, err)
	assert.Equal(t, []oid.Oid{oid.T__int4}, p.ArgTypes)
	assert.Equal(t, oid.T_int4, p.ReturnType)
	assert.Equal(t, marshal.CategoryArray, p.Args[0].Category)
	assert.Equal(t, marshal.CategoryScalar, p.Result.Category)

	e = &proc.Entry{
		Name:       "wrap",
		ReturnType: oid.T_anyarray,
		ArgTypes:   []oid.Oid{oid.T_anyelement},
	}
	p, err = proc.Resolve(s, e, []oid.Oid{oid.T_text}, 0)
	require.NoError(t, err)
	assert.Equal(t, oid.T__text, p.ReturnType)

	_, err = proc.Resolve(s, e, nil, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, plerror.ErrUnsupportedType))

	e = &proc.Entry{Name: "noop", ReturnType: oid.T_void}
	p, err = proc.Resolve(s, e, nil, 0)
	require.NoError(t, err)
	assert.Nil(t, p.Result)
}
