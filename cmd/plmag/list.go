package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/chazu/plmaggie/catalog"
	"github.com/chazu/plmaggie/types"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list the procedures in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			procs, err := a.store.Procs(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "OID\tNAME\tRETURNS\tOWNER")
			for _, p := range procs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", p.ID, signature(p), returns(p), p.Owner)
			}
			return w.Flush()
		},
	}
}

func newDropCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "drop NAME",
		Short: "remove a procedure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.store.ProcByName(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.store.DropProc(ctx, p.ID); err != nil {
				return errors.Wrapf(err, "dropping %s", p.Name)
			}
			a.handler.Cache().Evict(p.ID)
			fmt.Fprintf(a.out, "dropped %s (%d)\n", p.Name, p.ID)
			return nil
		},
	}
}

func signature(p *catalog.Proc) string {
	args := make([]string, len(p.ArgTypes))
	for i, t := range p.ArgTypes {
		a := types.Name(t)
		if n := p.ArgName(i); n != "" {
			a = n + " " + a
		}
		if m := p.Mode(i); m != catalog.ArgIn {
			a = modeName(m) + " " + a
		}
		args[i] = a
	}
	return p.Name + "(" + strings.Join(args, ", ") + ")"
}

func modeName(m catalog.ArgMode) string {
	switch m {
	case catalog.ArgOut:
		return "OUT"
	case catalog.ArgInOut:
		return "INOUT"
	case catalog.ArgVariadic:
		return "VARIADIC"
	case catalog.ArgTable:
		return "TABLE"
	}
	return "IN"
}

func returns(p *catalog.Proc) string {
	if p.ReturnsSet {
		return "SETOF " + types.Name(p.ReturnType)
	}
	return types.Name(p.ReturnType)
}
