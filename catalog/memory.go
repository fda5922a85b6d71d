package catalog

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"

	"github.com/chazu/plmaggie/types"
)

// Memory is an in-process catalog holding procedures and user-defined row
// types. Every definition or replacement of a procedure gets a new
// transaction stamp and row location, as a heap update would.
type Memory struct {
	mu      sync.RWMutex
	procs   map[oid.Oid]*Proc
	byName  map[string]oid.Oid
	types   map[oid.Oid]*types.TypeInfo
	descs   map[oid.Oid]*types.TupleDesc
	nextOID oid.Oid
	xid     uint32
	version uint64
}

// NewMemory returns an empty catalog.
func NewMemory() *Memory {
	return &Memory{
		procs:   make(map[oid.Oid]*Proc),
		byName:  make(map[string]oid.Oid),
		types:   make(map[oid.Oid]*types.TypeInfo),
		descs:   make(map[oid.Oid]*types.TupleDesc),
		nextOID: FirstNormalObjectID,
		xid:     2,
	}
}

func (m *Memory) allocOID() oid.Oid {
	id := m.nextOID
	m.nextOID++
	return id
}

// stamp gives p a new row version.
func (m *Memory) stamp(p *Proc) {
	m.xid++
	m.version++
	p.Xmin = m.xid
	p.TID = tidOf(m.version)
}

// DefineProc adds a procedure. A zero ID is assigned.
func (m *Memory) DefineProc(_ context.Context, p *Proc) (*Proc, error) {
	if err := validateProc(p); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.byName[p.Name]; dup {
		return nil, errors.Newf("function %q already exists", p.Name)
	}
	c := p.clone()
	if c.ID == 0 {
		c.ID = m.allocOID()
	} else if _, dup := m.procs[c.ID]; dup {
		return nil, errors.Newf("function with OID %d already exists", c.ID)
	} else if c.ID >= m.nextOID {
		m.nextOID = c.ID + 1
	}
	m.stamp(c)
	m.procs[c.ID] = c
	m.byName[c.Name] = c.ID
	log.Debugf("defined %s (%d) at xmin %d tid %s", c.Name, c.ID, c.Xmin, c.TID)
	return c.clone(), nil
}

// ReplaceProc overwrites the definition with p.ID.
func (m *Memory) ReplaceProc(_ context.Context, p *Proc) (*Proc, error) {
	if err := validateProc(p); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.procs[p.ID]
	if !ok {
		return nil, procNotFound(p.ID)
	}
	if id, taken := m.byName[p.Name]; taken && id != p.ID {
		return nil, errors.Newf("function %q already exists", p.Name)
	}
	c := p.clone()
	m.stamp(c)
	delete(m.byName, old.Name)
	m.procs[c.ID] = c
	m.byName[c.Name] = c.ID
	log.Debugf("replaced %s (%d) at xmin %d tid %s", c.Name, c.ID, c.Xmin, c.TID)
	return c.clone(), nil
}

// DropProc removes a procedure.
func (m *Memory) DropProc(_ context.Context, id oid.Oid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.procs[id]
	if !ok {
		return procNotFound(id)
	}
	delete(m.procs, id)
	delete(m.byName, p.Name)
	return nil
}

// LookupProc returns a copy of the definition with the given identity.
func (m *Memory) LookupProc(_ context.Context, id oid.Oid) (*Proc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.procs[id]
	if !ok {
		return nil, procNotFound(id)
	}
	return p.clone(), nil
}

// ProcByName returns a copy of the named definition.
func (m *Memory) ProcByName(ctx context.Context, name string) (*Proc, error) {
	m.mu.RLock()
	id, ok := m.byName[name]
	m.mu.RUnlock()
	if !ok {
		return nil, procNameNotFound(name)
	}
	return m.LookupProc(ctx, id)
}

// Procs returns every definition ordered by identity.
func (m *Memory) Procs(_ context.Context) ([]*Proc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Proc, 0, len(m.procs))
	for _, p := range m.procs {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DefineComposite creates a row type and its array type.
func (m *Memory) DefineComposite(name string, attrs []types.Attr) (*types.TypeInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.types {
		if t.Name == name {
			return nil, errors.Newf("type %q already exists", name)
		}
	}
	id, arrayID := m.allocOID(), m.allocOID()
	td := &types.TupleDesc{TypeID: id, Attrs: append([]types.Attr(nil), attrs...)}
	info := types.CompositeType(id, arrayID, name, td, m.LookupType)
	m.types[id] = info
	m.types[arrayID] = types.ArrayTypeOf(arrayID, info)
	m.descs[id] = td
	return info, nil
}

// DropColumn marks a column of a row type as dropped. The column keeps
// its ordinal.
func (m *Memory) DropColumn(typeID oid.Oid, column string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	td, ok := m.descs[typeID]
	if !ok {
		return errors.Mark(errors.Newf("type %d is not a row type", typeID), ErrNotFound)
	}
	for i := range td.Attrs {
		if td.Attrs[i].Name == column && !td.Attrs[i].Dropped {
			td.Attrs[i].Dropped = true
			td.Attrs[i].Name = "........pg.dropped." + strconv.Itoa(i+1) + "........"
			return nil
		}
	}
	return errors.Mark(errors.Newf("column %q does not exist", column), ErrNotFound)
}

// LookupType returns built-in or user-defined type metadata.
func (m *Memory) LookupType(id oid.Oid) (*types.TypeInfo, error) {
	if t, ok := types.Builtin(id); ok {
		return t, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.types[id]; ok {
		return t, nil
	}
	return nil, errors.Mark(errors.Newf("cache lookup failed for type %d", id), ErrNotFound)
}

// LookupTupleDesc returns the descriptor of a user-defined row type.
func (m *Memory) LookupTupleDesc(id oid.Oid) (*types.TupleDesc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if td, ok := m.descs[id]; ok {
		return td, nil
	}
	return nil, errors.Mark(errors.Newf("type %d is not a row type", id), ErrNotFound)
}

// TypeByName finds a built-in or user-defined type by its SQL name.
// "name[]" is the array type of name.
func (m *Memory) TypeByName(name string) (*types.TypeInfo, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if base, ok := strings.CutSuffix(name, "[]"); ok {
		elem, err := m.TypeByName(base)
		if err != nil {
			return nil, err
		}
		if elem.Array == 0 {
			return nil, errors.Newf("type %s has no array type", elem.Name)
		}
		return m.LookupType(elem.Array)
	}
	if id, ok := typeAliases[name]; ok {
		return m.LookupType(id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.types {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, errors.Mark(errors.Newf("type %q does not exist", name), ErrNotFound)
}
