package catalog_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/plmaggie/catalog"
	"github.com/chazu/plmaggie/types"
)

func sample() *catalog.Proc {
	return &catalog.Proc{
		Name:       "add",
		Source:     "^a + b",
		ReturnType: oid.T_int4,
		ArgTypes:   []oid.Oid{oid.T_int4, oid.T_int4},
		ArgNames:   []string{"a", "b"},
		ArgModes:   []catalog.ArgMode{catalog.ArgIn, catalog.ArgIn},
		Owner:      10,
	}
}

func testStores(t *testing.T) map[string]catalog.ProcStore {
	t.Helper()
	ctx := context.Background()
	s, err := catalog.OpenSQLStore(ctx, "sqlite", filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return map[string]catalog.ProcStore{
		"memory": catalog.NewMemory(),
		"sqlite": s,
	}
}

func TestProcStores(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			p, err := store.DefineProc(ctx, sample())
			require.NoError(t, err)
			assert.Equal(t, catalog.FirstNormalObjectID, p.ID)
			assert.NotZero(t, p.Xmin)

			got, err := store.LookupProc(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, p, got)

			byName, err := store.ProcByName(ctx, "add")
			require.NoError(t, err)
			assert.Equal(t, p.ID, byName.ID)

			_, err = store.DefineProc(ctx, sample())
			assert.Error(t, err, "duplicate name")

			edited := got
			edited.Source = "^a - b"
			replaced, err := store.ReplaceProc(ctx, edited)
			require.NoError(t, err)
			assert.Equal(t, p.ID, replaced.ID)
			assert.NotEqual(t, p.Token(10), replaced.Token(10), "replacement changes the freshness token")

			second := sample()
			second.Name = "sub"
			second.ArgNames = nil
			second.ArgModes = nil
			q, err := store.DefineProc(ctx, second)
			require.NoError(t, err)
			assert.Equal(t, p.ID+1, q.ID)

			all, err := store.Procs(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "^a - b", all[0].Source)
			assert.Equal(t, "sub", all[1].Name)
			assert.Empty(t, all[1].ArgNames)
			assert.Equal(t, catalog.ArgIn, all[1].Mode(0))
			assert.Equal(t, "", all[1].ArgName(1))

			require.NoError(t, store.DropProc(ctx, q.ID))
			_, err = store.LookupProc(ctx, q.ID)
			assert.True(t, errors.Is(err, catalog.ErrNotFound))
			assert.True(t, errors.Is(store.DropProc(ctx, q.ID), catalog.ErrNotFound))

			missing := sample()
			missing.ID = 99999
			_, err = store.ReplaceProc(ctx, missing)
			assert.True(t, errors.Is(err, catalog.ErrNotFound))
		})
	}
}

func TestValidateProc(t *testing.T) {
	m := catalog.NewMemory()
	ctx := context.Background()

	_, err := m.DefineProc(ctx, &catalog.Proc{})
	assert.Error(t, err)

	bad := sample()
	bad.ArgNames = []string{"a"}
	_, err = m.DefineProc(ctx, bad)
	assert.ErrorContains(t, err, "1 argument names for 2 arguments")
}

func TestSQLStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	s, err := catalog.OpenSQLStore(ctx, "sqlite", path)
	require.NoError(t, err)
	p, err := s.DefineProc(ctx, sample())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = catalog.OpenSQLStore(ctx, "sqlite", path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.LookupProc(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Token(10), got.Token(10))

	next := sample()
	next.Name = "other"
	q, err := s.DefineProc(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, p.ID+1, q.ID)
	assert.Greater(t, q.Xmin, p.Xmin)
}

func TestTIDs(t *testing.T) {
	ctx := context.Background()
	m := catalog.NewMemory()
	p, err := m.DefineProc(ctx, sample())
	require.NoError(t, err)
	assert.Equal(t, catalog.TID{Block: 0, Offset: 2}, p.TID)
	assert.Equal(t, "(0,2)", p.TID.String())
}

func TestCompositeTypes(t *testing.T) {
	m := catalog.NewMemory()
	info, err := m.DefineComposite("pair", []types.Attr{
		{Name: "id", TypeID: oid.T_int4},
		{Name: "gone", TypeID: oid.T_text},
		{Name: "label", TypeID: oid.T_text},
	})
	require.NoError(t, err)
	assert.True(t, info.IsComposite())

	_, err = m.DefineComposite("pair", nil)
	assert.Error(t, err)

	require.NoError(t, m.DropColumn(info.OID, "gone"))
	td, err := m.LookupTupleDesc(info.OID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, td.Live())
	assert.True(t, td.Attrs[1].Dropped)
	assert.True(t, errors.Is(m.DropColumn(info.OID, "gone"), catalog.ErrNotFound))

	arr, err := m.TypeByName("pair[]")
	require.NoError(t, err)
	assert.Equal(t, info.Array, arr.OID)
	assert.Equal(t, info.OID, arr.Elem)

	out, err := info.Output(&types.Tuple{
		TypeID: info.OID,
		Values: []types.Datum{int32(7), nil, "ok"},
		Nulls:  []bool{false, true, false},
	})
	require.NoError(t, err)
	assert.Equal(t, "(7,ok)", out)
}

func TestTypeByName(t *testing.T) {
	m := catalog.NewMemory()
	for name, want := range map[string]oid.Oid{
		"integer":          oid.T_int4,
		"INT8":             oid.T_int8,
		"text[]":           oid.T__text,
		"double precision": oid.T_float8,
		"timestamptz":      oid.T_timestamptz,
	} {
		info, err := m.TypeByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, info.OID, name)
	}
	_, err := m.TypeByName("nope")
	assert.True(t, errors.Is(err, catalog.ErrNotFound))
}

func TestCompose(t *testing.T) {
	ctx := context.Background()
	m := catalog.NewMemory()
	p, err := m.DefineProc(ctx, sample())
	require.NoError(t, err)

	cat := catalog.Compose(m, m)
	got, err := cat.LookupProc(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "add", got.Name)
	info, err := cat.LookupType(oid.T_int4)
	require.NoError(t, err)
	assert.Equal(t, "int4", info.Name)
}
