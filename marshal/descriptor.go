// Package marshal converts values between the host's typed datums and the
// embedded runtime's dynamic values.
package marshal

import (
	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"

	"github.com/chazu/plmaggie/catalog"
	"github.com/chazu/plmaggie/plerror"
	"github.com/chazu/plmaggie/types"
	"github.com/chazu/plmaggie/vm"
)

// Category selects the conversion path of a descriptor.
type Category uint8

const (
	CategoryScalar Category = iota
	CategoryArray
	CategoryComposite
)

func (c Category) String() string {
	switch c {
	case CategoryArray:
		return "array"
	case CategoryComposite:
		return "composite"
	}
	return "scalar"
}

// TypeDescriptor is the resolved conversion metadata of one host type.
// For arrays TypeID and ElemType both name the element type; ArrayType is
// the array type itself.
type TypeDescriptor struct {
	TypeID    oid.Oid
	ElemType  oid.Oid
	ArrayType oid.Oid
	Category  Category
	Len       int16
	ByVal     bool
	Align     byte
	// Tuple is the row shape of an anonymous record supplied by the call
	// site. Registered row types leave it nil and are looked up.
	Tuple *types.TupleDesc

	name  string
	scope *Scope
	in    types.InputFunc
	out   types.OutputFunc
	elem  *TypeDescriptor
}

// Name returns the SQL name of the described type.
func (d *TypeDescriptor) Name() string {
	if d.Category == CategoryArray {
		return d.name + "[]"
	}
	return d.name
}

func (d *TypeDescriptor) lookup() (*types.TypeInfo, error) {
	info, err := d.scope.m.Types.LookupType(d.TypeID)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving conversion for %s", d.Name())
	}
	return info, nil
}

// input returns the host input function of the (element) type, resolving
// it on first use.
func (d *TypeDescriptor) input() (types.InputFunc, error) {
	if d.in != nil {
		return d.in, nil
	}
	info, err := d.lookup()
	if err != nil {
		return nil, err
	}
	if info.Input == nil {
		return nil, plerror.UnsupportedTypef("type %s has no input function", info.Name)
	}
	d.in = info.Input
	return d.in, nil
}

// output is input's counterpart.
func (d *TypeDescriptor) output() (types.OutputFunc, error) {
	if d.out != nil {
		return d.out, nil
	}
	info, err := d.lookup()
	if err != nil {
		return nil, err
	}
	if info.Output == nil {
		return nil, plerror.UnsupportedTypef("type %s has no output function", info.Name)
	}
	d.out = info.Output
	return d.out, nil
}

// element returns the descriptor of an array's elements.
func (d *TypeDescriptor) element() (*TypeDescriptor, error) {
	if d.elem == nil {
		e, err := d.scope.Descriptor(d.ElemType)
		if err != nil {
			return nil, err
		}
		d.elem = e
	}
	return d.elem, nil
}

// rowDesc returns the row shape for a composite value. Anonymous records
// take their shape from the value itself.
func (d *TypeDescriptor) rowDesc(t *types.Tuple) (*types.TupleDesc, error) {
	if d.Tuple != nil {
		return d.Tuple, nil
	}
	id := d.TypeID
	if id == oid.T_record && t != nil {
		id = t.TypeID
	}
	if id == oid.T_record || id == 0 {
		return nil, plerror.UnsupportedTypef("record type has not been registered")
	}
	td, err := d.scope.m.Types.LookupTupleDesc(id)
	if err != nil {
		return nil, errors.Wrapf(err, "looking up row type %d", id)
	}
	return td, nil
}

// ---------------------------------------------------------------------------
// Scope
// ---------------------------------------------------------------------------

// Scope owns the descriptors and row converters built while converting
// one value, row or result set. Descriptors are never shared between
// scopes.
type Scope struct {
	m      *Marshaler
	descs  map[oid.Oid]*TypeDescriptor
	rows   map[*types.TupleDesc]*RowConverter
	closed bool
}

// NewScope returns an empty scope.
func (m *Marshaler) NewScope() *Scope {
	return &Scope{
		m:     m,
		descs: make(map[oid.Oid]*TypeDescriptor),
		rows:  make(map[*types.TupleDesc]*RowConverter),
	}
}

// Marshaler returns the marshaler the scope converts for.
func (s *Scope) Marshaler() *Marshaler { return s.m }

// Descriptor returns the descriptor of type id, building it on first use.
func (s *Scope) Descriptor(id oid.Oid) (*TypeDescriptor, error) {
	if s.closed {
		return nil, errors.AssertionFailedf("descriptor lookup in a closed scope")
	}
	if d, ok := s.descs[id]; ok {
		return d, nil
	}
	info, err := s.m.Types.LookupType(id)
	if err != nil {
		return nil, errors.Wrapf(err, "looking up type %d", id)
	}
	d := &TypeDescriptor{Len: info.Len, ByVal: info.ByVal, Align: info.Align, scope: s}
	switch {
	case info.IsArray() || id == oid.T__record:
		elem, err := s.m.Types.LookupType(info.Elem)
		if err != nil {
			return nil, errors.Wrapf(err, "looking up element type of %s", info.Name)
		}
		d.Category = CategoryArray
		d.TypeID, d.ElemType, d.ArrayType = info.Elem, info.Elem, id
		d.name = elem.Name
	case info.IsComposite() || id == oid.T_record:
		d.Category = CategoryComposite
		d.TypeID, d.name = id, info.Name
	default:
		d.Category = CategoryScalar
		d.TypeID, d.name = id, info.Name
	}
	s.descs[id] = d
	return d, nil
}

// RecordDescriptor returns a descriptor for an anonymous record of shape
// td.
func (s *Scope) RecordDescriptor(td *types.TupleDesc) *TypeDescriptor {
	return &TypeDescriptor{
		TypeID: oid.T_record, Category: CategoryComposite, Len: -1, Align: 'd',
		Tuple: td, name: "record", scope: s,
	}
}

// RowConverter returns the converter for rows of shape td, building it on
// first use. It lives as long as the scope.
func (s *Scope) RowConverter(td *types.TupleDesc) (*RowConverter, error) {
	if s.closed {
		return nil, errors.AssertionFailedf("row conversion in a closed scope")
	}
	if rc, ok := s.rows[td]; ok {
		return rc, nil
	}
	rc, err := newRowConverter(s, td)
	if err != nil {
		return nil, err
	}
	s.rows[td] = rc
	return rc, nil
}

// Close releases everything the scope built.
func (s *Scope) Close() {
	s.closed = true
	s.descs = nil
	s.rows = nil
}

// ---------------------------------------------------------------------------
// Marshaler
// ---------------------------------------------------------------------------

// Marshaler converts values for one runtime instance.
type Marshaler struct {
	VM       *vm.VM
	Types    catalog.TypeCatalog
	Encoding *types.Encoding
}

// New returns a marshaler. A nil encoding means UTF8.
func New(v *vm.VM, tc catalog.TypeCatalog, enc *types.Encoding) *Marshaler {
	if enc == nil {
		enc = types.UTF8
	}
	return &Marshaler{VM: v, Types: tc, Encoding: enc}
}
