package types_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/plmaggie/plerror"
	"github.com/chazu/plmaggie/types"
)

func builtin(t *testing.T, id oid.Oid) *types.TypeInfo {
	t.Helper()
	typ, ok := types.Builtin(id)
	require.True(t, ok, "type %d", id)
	return typ
}

func lookup(id oid.Oid) (*types.TypeInfo, error) {
	if typ, ok := types.Builtin(id); ok {
		return typ, nil
	}
	return nil, errors.Newf("no type %d", id)
}

func TestScalarTextIO(t *testing.T) {
	tests := []struct {
		typ  oid.Oid
		in   string
		want string
	}{
		{oid.T_bool, "true", "t"},
		{oid.T_bool, " off ", "f"},
		{oid.T_int2, "-32768", "-32768"},
		{oid.T_int4, "2147483647", "2147483647"},
		{oid.T_int8, "-9223372036854775808", "-9223372036854775808"},
		{oid.T_oid, "4294967295", "4294967295"},
		{oid.T_float8, "1e16", "1e+16"},
		{oid.T_float8, "0.0001", "0.0001"},
		{oid.T_float8, "1e-5", "1e-05"},
		{oid.T_float8, "-0", "-0"},
		{oid.T_float8, "123456789012345", "123456789012345"},
		{oid.T_float8, "NaN", "NaN"},
		{oid.T_float8, "-inf", "-Infinity"},
		{oid.T_float4, "1.5", "1.5"},
		{oid.T_float4, "1000000", "1e+06"},
		{oid.T_numeric, "3.14159", "3.14159"},
		{oid.T_numeric, "-0.5", "-0.5"},
		{oid.T_text, "héllo", "héllo"},
		{oid.T_bytea, `\x6869`, `\x6869`},
		{oid.T_bytea, "hi", `\x6869`},
		{oid.T_date, "2000-01-01", "2000-01-01"},
		{oid.T_date, "1999-12-31", "1999-12-31"},
		{oid.T_date, "0001-01-01 BC", "0001-01-01 BC"},
		{oid.T_timestamp, "2000-01-01 00:00:00", "2000-01-01 00:00:00"},
		{oid.T_timestamp, "1999-12-31 23:59:59.999999", "1999-12-31 23:59:59.999999"},
		{oid.T_timestamp, "2024-02-29T12:30:00.5", "2024-02-29 12:30:00.5"},
		{oid.T_timestamptz, "2000-01-01 02:00:00+02", "2000-01-01 00:00:00+00"},
		{oid.T_json, `{"a": 1}`, `{"a": 1}`},
		{oid.T_uuid, "A0EEBC99-9C0B-4EF8-BB6D-6BB9BD380A11", "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"},
		{oid.T_inet, "10.0.0.1", "10.0.0.1"},
		{oid.T_inet, "10.0.0.0/8", "10.0.0.0/8"},
	}
	for _, tt := range tests {
		typ := builtin(t, tt.typ)
		t.Run(typ.Name+"/"+tt.in, func(t *testing.T) {
			d, err := typ.Input(tt.in)
			require.NoError(t, err)
			out, err := typ.Output(d)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestDatumRepresentation(t *testing.T) {
	d, err := builtin(t, oid.T_date).Input("2000-01-01")
	require.NoError(t, err)
	assert.Equal(t, types.Date(0), d)

	d, err = builtin(t, oid.T_date).Input("1970-01-01")
	require.NoError(t, err)
	assert.Equal(t, types.Date(-types.EpochOffsetDays), d)

	d, err = builtin(t, oid.T_timestamp).Input("2000-01-01 00:00:01")
	require.NoError(t, err)
	assert.Equal(t, types.Timestamp(1_000_000), d)

	d, err = builtin(t, oid.T_int2).Input("7")
	require.NoError(t, err)
	assert.Equal(t, int16(7), d)

	assert.Equal(t, 10957, types.EpochOffsetDays)
}

func TestInvalidInput(t *testing.T) {
	tests := []struct {
		typ  oid.Oid
		in   string
		code plerror.Code
	}{
		{oid.T_int4, "abc", plerror.CodeInvalidTextRepresent},
		{oid.T_int2, "40000", plerror.CodeNumericValueOutOfRange},
		{oid.T_int8, "99999999999999999999", plerror.CodeNumericValueOutOfRange},
		{oid.T_bool, "maybe", plerror.CodeInvalidTextRepresent},
		{oid.T_json, "{", plerror.CodeInvalidTextRepresent},
		{oid.T_date, "2000-13-01", plerror.CodeInvalidTextRepresent},
		{oid.T_uuid, "nope", plerror.CodeInvalidTextRepresent},
		{oid.T__int4, "{1,2", plerror.CodeInvalidTextRepresent},
		{oid.T__int4, "{{1},{2,3}}", plerror.CodeInvalidTextRepresent},
	}
	for _, tt := range tests {
		_, err := builtin(t, tt.typ).Input(tt.in)
		require.Error(t, err, "%s", tt.in)
		assert.Equal(t, tt.code, plerror.GetCode(err), "%s: %v", tt.in, err)
	}
}

func TestOutputRejectsWrongDatum(t *testing.T) {
	_, err := builtin(t, oid.T_int4).Output("7")
	assert.Error(t, err)
}

func TestArrayTextIO(t *testing.T) {
	int4s := builtin(t, oid.T__int4)

	d, err := int4s.Input("{1,2,NULL,4}")
	require.NoError(t, err)
	arr := d.(*types.Array)
	assert.Equal(t, []int{4}, arr.Dims)
	assert.Equal(t, []int{1}, arr.LBound)
	assert.Equal(t, []bool{false, false, true, false}, arr.Nulls)
	assert.Equal(t, int32(4), arr.Elems[3])

	tests := []struct {
		typ  oid.Oid
		in   string
		want string
	}{
		{oid.T__int4, "{1,2,NULL,4}", "{1,2,NULL,4}"},
		{oid.T__int4, " { {1, 2} , {3,4} } ", "{{1,2},{3,4}}"},
		{oid.T__int4, "{}", "{}"},
		{oid.T__int4, "[0:1]={7,8}", "[0:1]={7,8}"},
		{oid.T__text, `{"a b","",NULL,"NULL",x}`, `{"a b","",NULL,"NULL",x}`},
		{oid.T__text, `{"say \"hi\""}`, `{"say \"hi\""}`},
		{oid.T__bool, "{t,f}", "{t,f}"},
	}
	for _, tt := range tests {
		typ := builtin(t, tt.typ)
		d, err := typ.Input(tt.in)
		require.NoError(t, err, tt.in)
		out, err := typ.Output(d)
		require.NoError(t, err)
		assert.Equal(t, tt.want, out)
	}

	d, err = builtin(t, oid.T__int4).Input("{{1,2},{3,4}}")
	require.NoError(t, err)
	arr = d.(*types.Array)
	assert.Equal(t, []int{2, 2}, arr.Dims)
	assert.Equal(t, []types.Datum{int32(1), int32(2), int32(3), int32(4)}, arr.Elems)

	d, err = builtin(t, oid.T__text).Input(`{"NULL",NULL}`)
	require.NoError(t, err)
	arr = d.(*types.Array)
	assert.Equal(t, "NULL", arr.Elems[0])
	assert.True(t, arr.Nulls[1])
}

func TestNewArray(t *testing.T) {
	arr := types.NewArray(oid.T_int4, []types.Datum{int32(1), int32(2)}, nil)
	assert.Equal(t, 2, arr.Len())
	assert.Equal(t, []bool{false, false}, arr.Nulls)
	assert.Equal(t, 1, arr.NDims())

	empty := types.NewArray(oid.T_int4, nil, nil)
	assert.Equal(t, 0, empty.NDims())
	out, err := builtin(t, oid.T__int4).Output(empty)
	require.NoError(t, err)
	assert.Equal(t, "{}", out)
}

func TestRecordTextIO(t *testing.T) {
	td := &types.TupleDesc{
		TypeID: 90001,
		Attrs: []types.Attr{
			{Name: "id", TypeID: oid.T_int4},
			{Name: "gone", TypeID: oid.T_int4, Dropped: true},
			{Name: "name", TypeID: oid.T_text},
		},
	}
	typ := types.CompositeType(90001, 90002, "item", td, lookup)
	assert.True(t, typ.IsComposite())
	assert.Equal(t, []int{0, 2}, td.Live())

	d, err := typ.Input("(7,ok)")
	require.NoError(t, err)
	tup := d.(*types.Tuple)
	assert.Equal(t, []types.Datum{int32(7), nil, "ok"}, tup.Values)
	assert.Equal(t, []bool{false, true, false}, tup.Nulls)

	tests := []struct{ in, want string }{
		{"(7,ok)", "(7,ok)"},
		{`(,"a,b")`, `(,"a,b")`},
		{`(1,"say ""hi""")`, `(1,"say ""hi""")`},
		{`(1,"")`, `(1,"")`},
	}
	for _, tt := range tests {
		d, err := typ.Input(tt.in)
		require.NoError(t, err, tt.in)
		out, err := typ.Output(d)
		require.NoError(t, err)
		assert.Equal(t, tt.want, out)
	}

	_, err = typ.Input("(1)")
	assert.Error(t, err)
	_, err = typ.Input("1,2")
	assert.Error(t, err)

	arrays := types.ArrayTypeOf(90002, typ)
	out, err := arrays.Output(types.NewArray(90001, []types.Datum{tup}, nil))
	require.NoError(t, err)
	assert.Equal(t, `{"(7,ok)"}`, out)
}

func TestEncodings(t *testing.T) {
	latin1, err := types.LookupEncoding("latin-1")
	require.NoError(t, err)
	assert.Same(t, types.LATIN1, latin1)
	assert.True(t, latin1.Converts())

	s, err := latin1.ToUTF8("\xe9t\xe9")
	require.NoError(t, err)
	assert.Equal(t, "été", s)

	s, err = latin1.FromUTF8("été")
	require.NoError(t, err)
	assert.Equal(t, "\xe9t\xe9", s)

	_, err = latin1.FromUTF8("€")
	require.Error(t, err)
	assert.Equal(t, plerror.CodeUntranslatableCharacter, plerror.GetCode(err))

	win, err := types.LookupEncoding("WIN1252")
	require.NoError(t, err)
	s, err = win.FromUTF8("€")
	require.NoError(t, err)
	assert.Equal(t, "\x80", s)

	utf8, err := types.LookupEncoding("utf-8")
	require.NoError(t, err)
	assert.False(t, utf8.Converts())
	_, err = utf8.ToUTF8("\xff")
	assert.Error(t, err)

	s, err = utf8.FromUTF8("été")
	require.NoError(t, err)
	assert.Equal(t, "été", s)
	_, err = utf8.FromUTF8("a\xffb")
	require.Error(t, err)
	assert.Equal(t, plerror.CodeUntranslatableCharacter, plerror.GetCode(err))
	s, err = types.SQLASCII.FromUTF8("a\xffb")
	require.NoError(t, err)
	assert.Equal(t, "a\xffb", s)

	_, err = types.LookupEncoding("EBCDIC")
	assert.Error(t, err)
}

func TestTuplestore(t *testing.T) {
	td := &types.TupleDesc{Attrs: []types.Attr{{Name: "a", TypeID: oid.T_int4}}}
	ts := types.NewTuplestore(td)

	vals := []types.Datum{int32(1)}
	require.NoError(t, ts.PutValues(vals, []bool{false}))
	vals[0] = int32(99)
	require.NoError(t, ts.PutValues([]types.Datum{nil}, []bool{true}))
	assert.Error(t, ts.PutValues([]types.Datum{1, 2}, []bool{false, false}))
	require.NoError(t, ts.Done())
	assert.Error(t, ts.PutValues(vals, []bool{false}))

	require.Equal(t, 2, ts.Len())
	assert.Equal(t, int32(1), ts.Rows[0].Values[0], "rows are copied")
	assert.True(t, ts.Rows[1].Nulls[0])
}

func TestBuiltinMetadata(t *testing.T) {
	int4 := builtin(t, oid.T_int4)
	assert.Equal(t, types.CategoryNumeric, int4.Category)
	assert.Equal(t, oid.T__int4, int4.Array)
	assert.True(t, int4.ByVal)

	arr := builtin(t, oid.T__int4)
	assert.True(t, arr.IsArray())
	assert.Equal(t, oid.T_int4, arr.Elem)
	assert.Equal(t, "integer[]", arr.Name)

	rec := builtin(t, oid.T_record)
	assert.True(t, rec.IsPseudo())
	assert.Nil(t, rec.Input)

	assert.True(t, types.IsPolymorphic(oid.T_anyelement))
	assert.False(t, types.IsPolymorphic(oid.T_record))
	assert.Equal(t, "text", types.Name(oid.T_text))
	assert.Equal(t, "type 123456", types.Name(123456))
}
