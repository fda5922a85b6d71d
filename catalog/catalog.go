// Package catalog provides the catalog lookups the procedural-language
// handler consumes: procedure definitions with their change tokens, type
// metadata and row descriptors.
package catalog

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"
	"github.com/tliron/commonlog"

	"github.com/chazu/plmaggie/types"
)

var log = commonlog.GetLogger("plmaggie.catalog")

// ErrNotFound marks lookups of objects that do not exist.
var ErrNotFound = errors.New("catalog object not found")

// RoleID identifies a principal.
type RoleID = oid.Oid

// FirstNormalObjectID is the first identity handed out to user objects.
const FirstNormalObjectID oid.Oid = 16384

// TID is the physical location of a catalog row version.
type TID struct {
	Block  uint32
	Offset uint16
}

func (t TID) String() string { return fmt.Sprintf("(%d,%d)", t.Block, t.Offset) }

// tidOf maps a row version number to a location, filling each block
// before moving to the next.
func tidOf(version uint64) TID {
	const perBlock = 256
	return TID{Block: uint32(version / perBlock), Offset: uint16(version%perBlock) + 1}
}

// Freshness identifies one compiled form of a procedure: the catalog row
// version that was compiled and the principal it was compiled for.
type Freshness struct {
	Xmin      uint32
	TID       TID
	Principal RoleID
}

// ArgMode is a PostgreSQL proargmodes letter.
type ArgMode byte

const (
	ArgIn       ArgMode = 'i'
	ArgOut      ArgMode = 'o'
	ArgInOut    ArgMode = 'b'
	ArgVariadic ArgMode = 'v'
	ArgTable    ArgMode = 't'
)

// IsInput reports whether arguments of this mode are passed to the
// procedure.
func (m ArgMode) IsInput() bool {
	return m == ArgIn || m == ArgInOut || m == ArgVariadic
}

// Proc is one procedure definition. ArgTypes, ArgNames and ArgModes are
// parallel; ArgNames and ArgModes may be empty, meaning unnamed IN
// arguments.
type Proc struct {
	ID         oid.Oid
	Name       string
	Source     string
	ReturnsSet bool
	ReturnType oid.Oid
	ArgTypes   []oid.Oid
	ArgNames   []string
	ArgModes   []ArgMode
	Owner      RoleID
	Xmin       uint32
	TID        TID
}

// Token returns the freshness token of p when compiled for principal.
func (p *Proc) Token(principal RoleID) Freshness {
	return Freshness{Xmin: p.Xmin, TID: p.TID, Principal: principal}
}

// Mode returns the mode of argument i.
func (p *Proc) Mode(i int) ArgMode {
	if i < len(p.ArgModes) {
		return p.ArgModes[i]
	}
	return ArgIn
}

// ArgName returns the declared name of argument i, or "".
func (p *Proc) ArgName(i int) string {
	if i < len(p.ArgNames) {
		return p.ArgNames[i]
	}
	return ""
}

func (p *Proc) clone() *Proc {
	c := *p
	c.ArgTypes = append([]oid.Oid(nil), p.ArgTypes...)
	c.ArgNames = append([]string(nil), p.ArgNames...)
	c.ArgModes = append([]ArgMode(nil), p.ArgModes...)
	return &c
}

// ProcCatalog looks up procedure definitions.
type ProcCatalog interface {
	LookupProc(ctx context.Context, id oid.Oid) (*Proc, error)
}

// TypeCatalog looks up type metadata.
type TypeCatalog interface {
	LookupType(id oid.Oid) (*types.TypeInfo, error)
	LookupTupleDesc(id oid.Oid) (*types.TupleDesc, error)
}

// Catalog is everything the handler needs from the host.
type Catalog interface {
	ProcCatalog
	TypeCatalog
}

// ProcStore is a ProcCatalog that can also be edited.
type ProcStore interface {
	ProcCatalog
	DefineProc(ctx context.Context, p *Proc) (*Proc, error)
	ReplaceProc(ctx context.Context, p *Proc) (*Proc, error)
	DropProc(ctx context.Context, id oid.Oid) error
	ProcByName(ctx context.Context, name string) (*Proc, error)
	Procs(ctx context.Context) ([]*Proc, error)
}

type composed struct {
	ProcCatalog
	TypeCatalog
}

// Compose combines separate procedure and type catalogs.
func Compose(procs ProcCatalog, typs TypeCatalog) Catalog {
	return composed{ProcCatalog: procs, TypeCatalog: typs}
}

func procNotFound(id oid.Oid) error {
	return errors.Mark(errors.Newf("function with OID %d does not exist", id), ErrNotFound)
}

func procNameNotFound(name string) error {
	return errors.Mark(errors.Newf("function %q does not exist", name), ErrNotFound)
}

func validateProc(p *Proc) error {
	if p.Name == "" {
		return errors.New("procedure needs a name")
	}
	if len(p.ArgNames) > 0 && len(p.ArgNames) != len(p.ArgTypes) {
		return errors.Newf("procedure %s: %d argument names for %d arguments", p.Name, len(p.ArgNames), len(p.ArgTypes))
	}
	if len(p.ArgModes) > 0 && len(p.ArgModes) != len(p.ArgTypes) {
		return errors.Newf("procedure %s: %d argument modes for %d arguments", p.Name, len(p.ArgModes), len(p.ArgTypes))
	}
	return nil
}
