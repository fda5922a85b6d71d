package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/plmaggie/vm"
)

func newEvalCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "eval EXPR...",
		Short: "evaluate Maggie statements and print the result",
		Long: `
Evaluate a doIt in a fresh runtime configured like the ones procedures run
in, and print the displayString of its last statement.

  plmag eval '| x | x := 3 + 4. x * 2'
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := vm.New(append(a.manifest.VMOptions(), vm.WithOutput(a.out))...)
			res, err := v.Evaluate(strings.Join(args, " "))
			if err != nil {
				return err
			}
			s, err := v.DisplayString(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, s)
			return nil
		},
	}
}
