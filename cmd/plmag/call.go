package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"
	"github.com/spf13/cobra"

	"github.com/chazu/plmaggie/call"
	"github.com/chazu/plmaggie/catalog"
	"github.com/chazu/plmaggie/env"
	"github.com/chazu/plmaggie/types"
)

func newCallCmd(a *app) *cobra.Command {
	var role uint32
	cmd := &cobra.Command{
		Use:   "call NAME [ARG...]",
		Short: "call a procedure",
		Long: `
Call a procedure with arguments given in their text form. NULL passes a null;
value::type gives the type of an argument declared anyelement or anyarray.
Set-returning procedures print one row per line.

  plmag call add 2 3
  plmag call first '{4,5}'::int4[]
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd.Context(), args[0], args[1:], catalog.RoleID(role))
		},
	}
	cmd.Flags().Uint32Var(&role, "as", uint32(defaultRole), "role the call runs as")
	return cmd
}

func (a *app) call(ctx context.Context, name string, argv []string, role catalog.RoleID) error {
	p, err := a.store.ProcByName(ctx, name)
	if err != nil {
		return err
	}
	var declared []oid.Oid
	for i, t := range p.ArgTypes {
		if p.Mode(i).IsInput() {
			declared = append(declared, t)
		}
	}
	if len(argv) != len(declared) {
		return errors.Newf("function %s takes %d argument(s), got %d", p.Name, len(declared), len(argv))
	}

	fc := &call.FunctionCall{
		ProcID:    p.ID,
		Principal: role,
		Txn:       env.NewTxnID(),
		Args:      make([]types.Datum, len(argv)),
		Nulls:     make([]bool, len(argv)),
		ArgTypes:  make([]oid.Oid, len(argv)),
		Site:      &call.Site{},
	}
	defer fc.Site.Close()
	defer func() {
		n := a.handler.EndTransaction(fc.Txn, env.XactCommit)
		log.Debugf("released %d handle(s) of %s", n, fc.Txn)
	}()
	for i, s := range argv {
		if fc.Args[i], fc.Nulls[i], fc.ArgTypes[i], err = a.parseArg(s, declared[i]); err != nil {
			return errors.Wrapf(err, "argument %d of %s", i+1, p.Name)
		}
	}

	if p.ReturnsSet {
		store := types.NewTuplestore(nil)
		if err := a.handler.CallSRF(ctx, fc, &call.ResultSet{Sink: store}); err != nil {
			return err
		}
		ret := fc.Site.Procedure().ReturnType
		for _, row := range store.Rows {
			line, err := a.formatRow(row, ret)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, line)
		}
		return nil
	}

	d, null, err := a.handler.Call(ctx, fc)
	if err != nil {
		return err
	}
	ret := fc.Site.Procedure().ReturnType
	if ret == oid.T_void {
		return nil
	}
	line, err := a.format(d, null, ret)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, line)
	return nil
}

// parseArg reads one argument given as text, optionally followed by
// ::type. It returns the value and its actual type.
func (a *app) parseArg(s string, declared oid.Oid) (types.Datum, bool, oid.Oid, error) {
	actual := declared
	if i := strings.LastIndex(s, "::"); i >= 0 {
		if t, err := a.types.TypeByName(s[i+2:]); err == nil {
			s, actual = s[:i], t.OID
		}
	}
	if types.IsPolymorphic(declared) {
		if actual == declared {
			return nil, false, 0, errors.Newf("type %s needs an explicit type, as in value::int4", types.Name(declared))
		}
	} else if actual != declared {
		return nil, false, 0, errors.Newf("expected %s, not %s", types.Name(declared), types.Name(actual))
	}
	if s == "NULL" {
		return nil, true, actual, nil
	}

	info, err := a.types.LookupType(actual)
	if err != nil {
		return nil, false, 0, err
	}
	if info.Input == nil {
		return nil, false, 0, errors.Newf("type %s has no text form", info.Name)
	}
	text, err := a.enc.FromUTF8(s)
	if err != nil {
		return nil, false, 0, err
	}
	d, err := info.Input(text)
	if err != nil {
		return nil, false, 0, err
	}
	return d, false, actual, nil
}

func (a *app) format(d types.Datum, null bool, typ oid.Oid) (string, error) {
	if null {
		return "NULL", nil
	}
	info, err := a.types.LookupType(typ)
	if err != nil {
		return "", err
	}
	if info.Output == nil {
		return "", errors.Newf("type %s has no text form", info.Name)
	}
	s, err := info.Output(d)
	if err != nil {
		return "", err
	}
	return a.enc.ToUTF8(s)
}

func (a *app) formatRow(row *types.Tuple, typ oid.Oid) (string, error) {
	info, err := a.types.LookupType(typ)
	if err != nil {
		return "", err
	}
	if info.IsComposite() {
		return a.format(row, false, typ)
	}
	if len(row.Values) != 1 {
		return "", errors.AssertionFailedf("row of %d columns for scalar type %s", len(row.Values), info.Name)
	}
	return a.format(row.Values[0], row.Nulls[0], typ)
}
