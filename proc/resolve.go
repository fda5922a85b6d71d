package proc

import (
	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"

	"github.com/chazu/plmaggie/marshal"
	"github.com/chazu/plmaggie/plerror"
	"github.com/chazu/plmaggie/types"
)

// Procedure is a compiled entry bound to the types of one call site.
type Procedure struct {
	*Entry
	ArgTypes   []oid.Oid
	ReturnType oid.Oid
	Args       []*marshal.TypeDescriptor
	// Result is nil for procedures returning void or trigger.
	Result *marshal.TypeDescriptor
}

// Resolve binds e to the actual argument and result types of a call.
// argTypes and retType may be empty when the call site does not know
// them; declared polymorphic types then cannot be resolved.
func Resolve(s *marshal.Scope, e *Entry, argTypes []oid.Oid, retType oid.Oid) (*Procedure, error) {
	p := &Procedure{Entry: e, ArgTypes: make([]oid.Oid, len(e.ArgTypes))}
	tc := s.Marshaler().Types

	// the element type every anyelement shares with anyarray
	var elem oid.Oid
	for i, t := range e.ArgTypes {
		var actual oid.Oid
		if i < len(argTypes) {
			actual = argTypes[i]
		}
		switch t {
		case oid.T_anyelement, oid.T_anynonarray, oid.T_anyenum:
			if actual != 0 && elem == 0 {
				elem = actual
			}
		case oid.T_anyarray:
			if actual != 0 && elem == 0 {
				info, err := tc.LookupType(actual)
				if err != nil {
					return nil, errors.Wrapf(err, "resolving anyarray argument of %s", e.Name)
				}
				if !info.IsArray() {
					return nil, plerror.TypeMismatchf("argument %d of %s must be an array, not %s", i+1, e.Name, info.Name)
				}
				elem = info.Elem
			}
		}
	}

	for i, t := range e.ArgTypes {
		var actual oid.Oid
		if i < len(argTypes) {
			actual = argTypes[i]
		}
		r, err := resolveType(tc, e.Name, t, actual, elem)
		if err != nil {
			return nil, err
		}
		d, err := s.Descriptor(r)
		if err != nil {
			return nil, err
		}
		p.ArgTypes[i] = r
		p.Args = append(p.Args, d)
	}

	switch e.ReturnType {
	case oid.T_void, oid.T_trigger:
		p.ReturnType = e.ReturnType
		return p, nil
	}
	r, err := resolveType(tc, e.Name, e.ReturnType, retType, elem)
	if err != nil {
		return nil, err
	}
	p.ReturnType = r
	if p.Result, err = s.Descriptor(r); err != nil {
		return nil, err
	}
	return p, nil
}

type typeLookup interface {
	LookupType(id oid.Oid) (*types.TypeInfo, error)
}

func resolveType(tc typeLookup, fn string, declared, actual, elem oid.Oid) (oid.Oid, error) {
	if !types.IsPolymorphic(declared) {
		return declared, nil
	}
	if actual != 0 {
		return actual, nil
	}
	if elem == 0 {
		return 0, plerror.UnsupportedTypef("could not determine actual type of %s for function %s", types.Name(declared), fn)
	}
	if declared != oid.T_anyarray {
		return elem, nil
	}
	info, err := tc.LookupType(elem)
	if err != nil {
		return 0, errors.Wrapf(err, "resolving anyarray for %s", fn)
	}
	if info.Array == 0 {
		return 0, plerror.UnsupportedTypef("could not find array type for data type %s", info.Name)
	}
	return info.Array, nil
}
