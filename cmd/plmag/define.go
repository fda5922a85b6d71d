package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/chazu/plmaggie/catalog"
	"github.com/chazu/plmaggie/compiler"
)

// defaultRole owns procedures and runs calls unless --as says otherwise.
const defaultRole catalog.RoleID = 10

type defineOptions struct {
	args    []string
	returns string
	setof   bool
	source  string
	file    string
	replace bool
	owner   uint32
}

func newDefineCmd(a *app) *cobra.Command {
	var opts defineOptions
	cmd := &cobra.Command{
		Use:   "define NAME",
		Short: "define or replace a procedure",
		Long: `
Define a procedure whose body is Maggie source. The body runs as the method
called for each invocation; arguments are visible under their declared names
or as _1, _2, ... when unnamed.

  plmag define add --arg a:int4 --arg b:int4 --returns int4 --source '^a + b'
  plmag define squares --arg n:int4 --returns int4 --setof --file squares.mag
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.buildProc(args[0], &opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if opts.replace {
				if old, err := a.store.ProcByName(ctx, p.Name); err == nil {
					p.ID = old.ID
					p, err = a.store.ReplaceProc(ctx, p)
					if err != nil {
						return err
					}
					return a.validateDefinition(cmd, p, "replaced")
				} else if !errors.Is(err, catalog.ErrNotFound) {
					return err
				}
			}
			if p, err = a.store.DefineProc(ctx, p); err != nil {
				return err
			}
			if err := a.validateDefinition(cmd, p, "defined"); err != nil {
				if derr := a.store.DropProc(ctx, p.ID); derr != nil {
					log.Errorf("dropping %s after a failed definition: %s", p.Name, derr)
				}
				return err
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&opts.args, "arg", nil, "argument as name:type, or just type for a positional argument (repeatable)")
	f.StringVar(&opts.returns, "returns", "void", "return type")
	f.BoolVar(&opts.setof, "setof", false, "return a set of the return type")
	f.StringVar(&opts.source, "source", "", "procedure body")
	f.StringVar(&opts.file, "file", "", "read the procedure body from a file")
	f.BoolVar(&opts.replace, "replace", false, "replace an existing procedure of the same name")
	f.Uint32Var(&opts.owner, "owner", uint32(defaultRole), "owning role")
	cmd.MarkFlagsMutuallyExclusive("source", "file")
	return cmd
}

func (a *app) buildProc(name string, opts *defineOptions) (*catalog.Proc, error) {
	src := opts.source
	if opts.file != "" {
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot read %s", opts.file)
		}
		src = string(data)
	}
	if strings.TrimSpace(src) == "" {
		return nil, errors.New("a procedure body is required (--source or --file)")
	}

	ret, err := a.types.TypeByName(opts.returns)
	if err != nil {
		return nil, err
	}
	p := &catalog.Proc{
		Name:       name,
		Source:     src,
		ReturnsSet: opts.setof,
		ReturnType: ret.OID,
		Owner:      catalog.RoleID(opts.owner),
	}
	named := false
	for _, arg := range opts.args {
		argName, typeName, ok := strings.Cut(arg, ":")
		if !ok {
			argName, typeName = "", arg
		}
		argName = strings.TrimSpace(argName)
		if argName != "" {
			if !compiler.IsIdentifier(argName) {
				return nil, errors.Newf("argument name %q is not a valid identifier", argName)
			}
			named = true
		}
		t, err := a.types.TypeByName(typeName)
		if err != nil {
			return nil, err
		}
		p.ArgTypes = append(p.ArgTypes, t.OID)
		p.ArgNames = append(p.ArgNames, argName)
	}
	if !named {
		p.ArgNames = nil
	}
	return p, nil
}

// validateDefinition compiles the stored definition for its owner.
func (a *app) validateDefinition(cmd *cobra.Command, p *catalog.Proc, verb string) error {
	if err := a.handler.Validate(cmd.Context(), p.ID, p.Owner); err != nil {
		return errors.Wrapf(err, "compiling %s", p.Name)
	}
	fmt.Fprintf(a.out, "%s %s (%d)\n", verb, p.Name, p.ID)
	return nil
}
