// Package proc compiles procedure definitions into runtime classes and
// caches them until the catalog row or the calling principal changes.
package proc

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"
	"github.com/tliron/commonlog"

	"github.com/chazu/plmaggie/catalog"
	"github.com/chazu/plmaggie/compiler"
	"github.com/chazu/plmaggie/env"
	"github.com/chazu/plmaggie/plerror"
	"github.com/chazu/plmaggie/types"
	"github.com/chazu/plmaggie/vm"
)

var log = commonlog.GetLogger("plmaggie.proc")

// Entry is one compiled procedure. Entries are never modified after they
// are published; a stale entry is replaced by a new one.
type Entry struct {
	ProcID     oid.Oid
	Name       string
	Source     string
	ReturnsSet bool
	ReturnType oid.Oid
	// ArgTypes and ArgNames cover the parameters only: IN, INOUT and
	// VARIADIC arguments.
	ArgTypes []oid.Oid
	ArgNames []string
	Trigger  bool
	Class    *vm.Class
	Selector string
	Env      *env.Environment
	Token    catalog.Freshness
}

// Options carry what the call site knows. When ArgTypes is set, every
// polymorphic parameter must resolve against it.
type Options struct {
	ArgTypes   []oid.Oid
	ReturnType oid.Oid
}

// Stats counts cache activity.
type Stats struct {
	Hits      uint64
	Compiles  uint64
	Evictions uint64
}

// Cache maps procedure identities to compiled entries.
type Cache struct {
	procs   catalog.ProcCatalog
	envs    *env.Registry
	entries map[oid.Oid]*Entry
	stats   Stats
}

// NewCache returns an empty cache that reads definitions from procs and
// compiles into the environments of envs.
func NewCache(procs catalog.ProcCatalog, envs *env.Registry) *Cache {
	return &Cache{procs: procs, envs: envs, entries: make(map[oid.Oid]*Entry)}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int { return len(c.entries) }

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats { return c.stats }

// LookupOrCompile returns the compiled form of procedure id for
// principal, compiling it when there is no entry or the entry's token no
// longer matches the catalog.
func (c *Cache) LookupOrCompile(ctx context.Context, id oid.Oid, principal catalog.RoleID, opts Options) (*Entry, error) {
	p, err := c.procs.LookupProc(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, errors.Mark(plerror.UndefinedFunctionf("cache lookup failed for function %d", id), catalog.ErrNotFound)
		}
		return nil, errors.Wrapf(err, "looking up function %d", id)
	}
	token := p.Token(principal)
	old, ok := c.entries[id]
	if ok && old.Token == token {
		c.stats.Hits++
		return old, nil
	}
	if ok {
		delete(c.entries, id)
		c.stats.Evictions++
		log.Debugf("%s is stale: %v != %v", p.Name, old.Token, token)
	}

	e, err := c.compile(p, principal, opts)
	if err != nil {
		return nil, err
	}
	c.entries[id] = e
	c.stats.Compiles++
	log.Debugf("compiled %s (%d) for role %d at xmin %d tid %s", p.Name, id, principal, token.Xmin, token.TID)
	return e, nil
}

// Evict drops the entry for id, if any.
func (c *Cache) Evict(id oid.Oid) {
	if _, ok := c.entries[id]; ok {
		delete(c.entries, id)
		c.stats.Evictions++
	}
}

func (c *Cache) compile(p *catalog.Proc, principal catalog.RoleID, opts Options) (*Entry, error) {
	e := &Entry{
		ProcID:     p.ID,
		Name:       p.Name,
		Source:     p.Source,
		ReturnsSet: p.ReturnsSet,
		ReturnType: p.ReturnType,
		Trigger:    p.ReturnType == oid.T_trigger,
		Token:      p.Token(principal),
	}
	if err := checkType(p.Name, p.ReturnType, true, opts.ReturnType, opts.ReturnType != 0); err != nil {
		return nil, err
	}
	for i, t := range p.ArgTypes {
		if !p.Mode(i).IsInput() {
			continue
		}
		pos := len(e.ArgTypes)
		var actual oid.Oid
		known := opts.ArgTypes != nil
		if pos < len(opts.ArgTypes) {
			actual = opts.ArgTypes[pos]
		}
		if err := checkType(p.Name, t, false, actual, known); err != nil {
			return nil, err
		}
		e.ArgTypes = append(e.ArgTypes, t)
		e.ArgNames = append(e.ArgNames, ParamName(p.ArgName(i), pos+1))
	}

	params := e.ArgNames
	if e.Trigger {
		if len(e.ArgTypes) > 0 {
			return nil, plerror.NotSupportedf("trigger functions cannot have declared arguments")
		}
		params = TriggerParams
	}
	e.Selector = Selector(len(params))
	src := Wrap(p.ID, params, p.Source)

	if err := checkShape(p, src, e.Selector); err != nil {
		return nil, err
	}
	environ := c.envs.Get(principal)
	cc := &vm.CompileContext{Filename: p.Name, LineOffset: -HeaderLines}
	classes, err := environ.VM.Load(cc, src)
	if err != nil {
		log.Infof("compiling %s failed: %v", p.Name, err)
		return nil, plerror.Compile(err, "compiling function %s", p.Name)
	}
	e.Class = classes[0]
	e.Env = environ
	return e, nil
}

// checkShape rejects bodies that close the generated method early.
func checkShape(p *catalog.Proc, src, selector string) error {
	file, errs := compiler.ParseSource(src)
	if len(errs) > 0 {
		// reported with positions by Load
		return nil
	}
	name := ClassName(p.ID)
	if len(file.Classes) != 1 || file.Classes[0].Name != name {
		return plerror.Compile(errors.New("procedure body must not define classes"), "compiling function %s", p.Name)
	}
	cd := file.Classes[0]
	if len(cd.Methods) != 1 || len(cd.ClassMethods) != 0 || cd.Methods[0].Selector != selector {
		return plerror.Compile(errors.New("procedure body must not define methods"), "compiling function %s", p.Name)
	}
	return nil
}

// checkType accepts a declared argument or return type. Polymorphic types
// are accepted unless the call site is known and leaves them unresolved.
func checkType(fn string, id oid.Oid, isReturn bool, actual oid.Oid, known bool) error {
	what := "accept"
	if isReturn {
		what = "return"
	}
	switch {
	case types.IsPolymorphic(id):
		if known && actual == 0 {
			return plerror.UnsupportedTypef("could not determine actual type of %s for function %s", types.Name(id), fn)
		}
		return nil
	case id == oid.T_record || id == oid.T__record:
		return nil
	case isReturn && (id == oid.T_void || id == oid.T_trigger):
		return nil
	}
	if info, ok := types.Builtin(id); ok && info.IsPseudo() {
		log.Warningf("function %s cannot %s type %s", fn, what, info.Name)
		return plerror.UnsupportedTypef("functions cannot %s type %s", what, info.Name)
	}
	return nil
}
