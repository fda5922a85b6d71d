package marshal

import (
	"github.com/cockroachdb/errors"

	"github.com/chazu/plmaggie/plerror"
	"github.com/chazu/plmaggie/types"
	"github.com/chazu/plmaggie/vm"
)

// RowConverter converts rows of one shape. names, types and ordinals are
// parallel and cover only the live columns; ordinals maps each back to its
// attribute number in the row.
type RowConverter struct {
	desc     *types.TupleDesc
	names    []string
	types    []*TypeDescriptor
	ordinals []int
	scope    *Scope
	owned    bool
}

// NewRowConverter builds a converter for rows of shape td in a scope of
// its own. Close releases it.
func NewRowConverter(m *Marshaler, td *types.TupleDesc) (*RowConverter, error) {
	s := m.NewScope()
	rc, err := newRowConverter(s, td)
	if err != nil {
		s.Close()
		return nil, err
	}
	rc.owned = true
	return rc, nil
}

func newRowConverter(s *Scope, td *types.TupleDesc) (*RowConverter, error) {
	rc := &RowConverter{desc: td, scope: s}
	for _, ord := range td.Live() {
		a := td.Attrs[ord]
		d, err := s.Descriptor(a.TypeID)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", a.Name)
		}
		name, err := s.m.Encoding.ToUTF8(a.Name)
		if err != nil {
			return nil, err
		}
		rc.names = append(rc.names, name)
		rc.types = append(rc.types, d)
		rc.ordinals = append(rc.ordinals, ord)
	}
	return rc, nil
}

// Names returns the live column names in order.
func (rc *RowConverter) Names() []string { return rc.names }

// Close releases the converter's scope if it owns one.
func (rc *RowConverter) Close() {
	if rc.owned {
		rc.scope.Close()
	}
}

func (rc *RowConverter) marshaler() *Marshaler { return rc.scope.m }

// ToEmbedded converts a row to a Dictionary keyed by column name.
func (rc *RowConverter) ToEmbedded(t *types.Tuple) (*vm.Dictionary, error) {
	m := rc.marshaler()
	dict := m.VM.NewDictionary()
	for i, name := range rc.names {
		ord := rc.ordinals[i]
		var d types.Datum
		null := true
		if ord < len(t.Values) {
			d, null = t.Values[ord], t.Nulls[ord]
		}
		v, err := m.ToEmbedded(d, null, rc.types[i])
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", name)
		}
		dict.Put(vm.String(name), v)
	}
	return dict, nil
}

// ToRow converts v to the values and null flags of a row. The slices have
// one slot per attribute; dropped attributes are always null. With scalar
// set, v is the value of every live column instead of a mapping.
func (rc *RowConverter) ToRow(v vm.Value, scalar bool) ([]types.Datum, []bool, error) {
	m := rc.marshaler()
	n := rc.desc.NumAttrs()
	values := make([]types.Datum, n)
	nulls := make([]bool, n)
	for i := range nulls {
		nulls[i] = true
	}

	if scalar {
		for i, ord := range rc.ordinals {
			d, null, err := m.ToHost(v, rc.types[i])
			if err != nil {
				return nil, nil, err
			}
			values[ord], nulls[ord] = d, null
		}
		return values, nulls, nil
	}

	dict, ok := v.(*vm.Dictionary)
	if !ok {
		return nil, nil, plerror.TypeMismatchf("row value must be a Dictionary, not %s", m.className(v))
	}
	var missing []string
	for _, name := range rc.names {
		if _, ok := dict.GetString(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, plerror.FieldMismatch(missing)
	}
	for i, name := range rc.names {
		val, _ := dict.GetString(name)
		d, null, err := m.ToHost(val, rc.types[i])
		if err != nil {
			return nil, nil, errors.Wrapf(err, "column %q", name)
		}
		values[rc.ordinals[i]], nulls[rc.ordinals[i]] = d, null
	}
	return values, nulls, nil
}

// ToTuple converts v to a standalone row.
func (rc *RowConverter) ToTuple(v vm.Value, scalar bool) (*types.Tuple, error) {
	values, nulls, err := rc.ToRow(v, scalar)
	if err != nil {
		return nil, err
	}
	return &types.Tuple{TypeID: rc.desc.TypeID, Values: values, Nulls: nulls}, nil
}

// PutRow converts v and appends it to sink.
func (rc *RowConverter) PutRow(sink types.Sink, v vm.Value, scalar bool) error {
	values, nulls, err := rc.ToRow(v, scalar)
	if err != nil {
		return err
	}
	return sink.PutValues(values, nulls)
}
