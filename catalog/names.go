package catalog

import "github.com/lib/pq/oid"

// typeAliases maps the SQL spellings of built-in types to their identity.
var typeAliases = map[string]oid.Oid{
	"bool": oid.T_bool, "boolean": oid.T_bool,
	"int2": oid.T_int2, "smallint": oid.T_int2,
	"int4": oid.T_int4, "int": oid.T_int4, "integer": oid.T_int4,
	"int8": oid.T_int8, "bigint": oid.T_int8,
	"oid":    oid.T_oid,
	"float4": oid.T_float4, "real": oid.T_float4,
	"float8": oid.T_float8, "double precision": oid.T_float8,
	"numeric": oid.T_numeric, "decimal": oid.T_numeric,
	"text":    oid.T_text,
	"varchar": oid.T_varchar, "character varying": oid.T_varchar,
	"bpchar": oid.T_bpchar, "char": oid.T_bpchar, "character": oid.T_bpchar,
	"name":      oid.T_name,
	"bytea":     oid.T_bytea,
	"date":      oid.T_date,
	"timestamp": oid.T_timestamp, "timestamp without time zone": oid.T_timestamp,
	"timestamptz": oid.T_timestamptz, "timestamp with time zone": oid.T_timestamptz,
	"json":  oid.T_json,
	"jsonb": oid.T_jsonb,
	"uuid":  oid.T_uuid,
	"inet":  oid.T_inet,

	"record":           oid.T_record,
	"void":             oid.T_void,
	"trigger":          oid.T_trigger,
	"anyelement":       oid.T_anyelement,
	"anyarray":         oid.T_anyarray,
	"anynonarray":      oid.T_anynonarray,
	"anyenum":          oid.T_anyenum,
	"internal":         oid.T_internal,
	"cstring":          oid.T_cstring,
	"language_handler": oid.T_language_handler,
}
