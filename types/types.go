// Package types models the host engine's type system: type identities,
// per-type metadata as the catalog reports it, the Go representation of
// host values (datums), and the textual input/output function of every
// built-in type.
package types

import (
	"strconv"

	"github.com/lib/pq/oid"
)

// Category is a PostgreSQL typcategory letter.
type Category byte

const (
	CategoryArray     Category = 'A'
	CategoryBoolean   Category = 'B'
	CategoryComposite Category = 'C'
	CategoryDateTime  Category = 'D'
	CategoryEnum      Category = 'E'
	CategoryNetwork   Category = 'I'
	CategoryNumeric   Category = 'N'
	CategoryPseudo    Category = 'P'
	CategoryString    Category = 'S'
	CategoryUser      Category = 'U'
	CategoryUnknown   Category = 'X'
)

// Typtype is a PostgreSQL typtype letter.
type Typtype byte

const (
	TyptypeBase      Typtype = 'b'
	TyptypeComposite Typtype = 'c'
	TyptypeDomain    Typtype = 'd'
	TyptypeEnum      Typtype = 'e'
	TyptypePseudo    Typtype = 'p'
)

// InputFunc parses the text form of a value, in the database encoding.
type InputFunc func(text string) (Datum, error)

// OutputFunc renders a value as text in the database encoding.
type OutputFunc func(d Datum) (string, error)

// TypeInfo is the catalog's description of one type.
type TypeInfo struct {
	OID      oid.Oid
	Name     string
	Category Category
	Type     Typtype
	// Elem is the element type of an array type.
	Elem oid.Oid
	// Array is the array type whose elements are this type.
	Array oid.Oid
	// RelID identifies the row type of a composite type. It equals OID
	// for the composite types this package models.
	RelID oid.Oid
	Len   int16
	ByVal bool
	Align byte
	// Input and Output are nil for pseudo-types.
	Input  InputFunc
	Output OutputFunc
}

// IsArray reports whether t is an array type.
func (t *TypeInfo) IsArray() bool { return t.Elem != 0 && t.Category == CategoryArray }

// IsComposite reports whether t is a row type.
func (t *TypeInfo) IsComposite() bool { return t.Type == TyptypeComposite }

// IsPseudo reports whether t is a pseudo-type.
func (t *TypeInfo) IsPseudo() bool { return t.Type == TyptypePseudo }

// IsPolymorphic reports whether id is resolved from the call site.
func IsPolymorphic(id oid.Oid) bool {
	switch id {
	case oid.T_anyelement, oid.T_anyarray, oid.T_anynonarray, oid.T_anyenum:
		return true
	}
	return false
}

// Name returns the SQL name of a built-in type, or the number.
func Name(id oid.Oid) string {
	if t, ok := builtins[id]; ok {
		return t.Name
	}
	return "type " + strconv.FormatUint(uint64(id), 10)
}

// Builtin returns the metadata for a built-in type.
func Builtin(id oid.Oid) (*TypeInfo, bool) {
	t, ok := builtins[id]
	return t, ok
}

// Builtins returns every built-in type.
func Builtins() []*TypeInfo {
	out := make([]*TypeInfo, 0, len(builtins))
	for _, t := range builtins {
		out = append(out, t)
	}
	return out
}

var builtins = make(map[oid.Oid]*TypeInfo)

type scalarDef struct {
	id, array oid.Oid
	name      string
	cat       Category
	len       int16
	byVal     bool
	align     byte
	in        InputFunc
	out       OutputFunc
}

var scalarDefs = []scalarDef{
	{oid.T_bool, oid.T__bool, "boolean", CategoryBoolean, 1, true, 'c', boolIn, boolOut},
	{oid.T_int2, oid.T__int2, "smallint", CategoryNumeric, 2, true, 's', int2In, intOut},
	{oid.T_int4, oid.T__int4, "integer", CategoryNumeric, 4, true, 'i', int4In, intOut},
	{oid.T_int8, oid.T__int8, "bigint", CategoryNumeric, 8, true, 'd', int8In, intOut},
	{oid.T_oid, oid.T__oid, "oid", CategoryNumeric, 4, true, 'i', oidIn, oidOut},
	{oid.T_float4, oid.T__float4, "real", CategoryNumeric, 4, true, 'i', float4In, float4Out},
	{oid.T_float8, oid.T__float8, "double precision", CategoryNumeric, 8, true, 'd', float8In, float8Out},
	{oid.T_numeric, oid.T__numeric, "numeric", CategoryNumeric, -1, false, 'i', numericIn, numericOut},
	{oid.T_text, oid.T__text, "text", CategoryString, -1, false, 'i', textIn, textOut},
	{oid.T_varchar, oid.T__varchar, "character varying", CategoryString, -1, false, 'i', textIn, textOut},
	{oid.T_bpchar, oid.T__bpchar, "character", CategoryString, -1, false, 'i', textIn, textOut},
	{oid.T_name, oid.T__name, "name", CategoryString, 64, false, 'c', textIn, textOut},
	{oid.T_bytea, oid.T__bytea, "bytea", CategoryUser, -1, false, 'i', byteaIn, byteaOut},
	{oid.T_date, oid.T__date, "date", CategoryDateTime, 4, true, 'i', dateIn, dateOut},
	{oid.T_timestamp, oid.T__timestamp, "timestamp without time zone", CategoryDateTime, 8, true, 'd', timestampIn, timestampOut},
	{oid.T_timestamptz, oid.T__timestamptz, "timestamp with time zone", CategoryDateTime, 8, true, 'd', timestamptzIn, timestamptzOut},
	{oid.T_json, oid.T__json, "json", CategoryUser, -1, false, 'i', jsonIn, jsonOut},
	{oid.T_jsonb, oid.T__jsonb, "jsonb", CategoryUser, -1, false, 'i', jsonIn, jsonOut},
	{oid.T_uuid, oid.T__uuid, "uuid", CategoryUser, 16, false, 'c', uuidIn, uuidOut},
	{oid.T_inet, oid.T__inet, "inet", CategoryNetwork, -1, false, 'i', inetIn, inetOut},
}

var pseudoDefs = []struct {
	id   oid.Oid
	name string
}{
	{oid.T_record, "record"},
	{oid.T__record, "record[]"},
	{oid.T_anyelement, "anyelement"},
	{oid.T_anyarray, "anyarray"},
	{oid.T_anynonarray, "anynonarray"},
	{oid.T_anyenum, "anyenum"},
	{oid.T_void, "void"},
	{oid.T_trigger, "trigger"},
	{oid.T_event_trigger, "event_trigger"},
	{oid.T_internal, "internal"},
	{oid.T_cstring, "cstring"},
	{oid.T_language_handler, "language_handler"},
	{oid.T_fdw_handler, "fdw_handler"},
	{oid.T_opaque, "opaque"},
	{oid.T_unknown, "unknown"},
}

func init() {
	for _, d := range scalarDefs {
		elem := &TypeInfo{
			OID: d.id, Name: d.name, Category: d.cat, Type: TyptypeBase,
			Array: d.array, Len: d.len, ByVal: d.byVal, Align: d.align,
			Input: d.in, Output: d.out,
		}
		builtins[d.id] = elem
		builtins[d.array] = ArrayTypeOf(d.array, elem)
	}
	for _, p := range pseudoDefs {
		builtins[p.id] = &TypeInfo{
			OID: p.id, Name: p.name, Category: CategoryPseudo, Type: TyptypePseudo,
			Len: 4, ByVal: true, Align: 'i',
		}
	}
	builtins[oid.T_record].Array = oid.T__record
	builtins[oid.T__record].Elem = oid.T_record
	builtins[oid.T_anyarray].Len = -1
}

// ArrayTypeOf builds the metadata of the array type id whose elements are
// elem.
func ArrayTypeOf(id oid.Oid, elem *TypeInfo) *TypeInfo {
	return &TypeInfo{
		OID: id, Name: elem.Name + "[]", Category: CategoryArray, Type: TyptypeBase,
		Elem: elem.OID, Len: -1, Align: elem.Align,
		Input:  ArrayIn(elem),
		Output: ArrayOut(elem),
	}
}
