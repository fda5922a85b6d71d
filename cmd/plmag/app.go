package main

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/plmaggie/call"
	"github.com/chazu/plmaggie/catalog"
	"github.com/chazu/plmaggie/manifest"
	"github.com/chazu/plmaggie/types"
)

var log = commonlog.GetLogger("plmaggie.cli")

// app is the state shared by every subcommand of one invocation.
type app struct {
	configDir string
	verbose   int
	out       io.Writer

	manifest *manifest.Manifest
	enc      *types.Encoding
	types    *catalog.Memory
	store    catalog.ProcStore
	handler  *call.Handler
	close    func() error
}

// open loads the configuration, sets up logging and opens the catalog.
func (a *app) open(ctx context.Context) error {
	m, err := a.loadManifest()
	if err != nil {
		return err
	}
	a.manifest = m
	commonlog.Configure(m.Log.Verbosity+a.verbose, m.LogFile())

	if a.enc, err = m.Encoding(); err != nil {
		return err
	}
	a.types = catalog.NewMemory()
	switch m.Catalog.Driver {
	case "memory":
		a.store = a.types
	default:
		s, err := catalog.OpenSQLStore(ctx, m.Catalog.Driver, m.DataSource())
		if err != nil {
			return err
		}
		a.store, a.close = s, s.Close
	}
	log.Debugf("catalog %s %s", m.Catalog.Driver, m.DataSource())

	a.handler = call.NewHandler(
		catalog.Compose(a.store, a.types),
		call.WithEncoding(a.enc),
		call.WithVMOptions(m.VMOptions()...),
	)
	return nil
}

func (a *app) loadManifest() (*manifest.Manifest, error) {
	if a.configDir != "" {
		return manifest.Load(a.configDir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "cannot determine working directory")
	}
	m, err := manifest.FindAndLoad(wd)
	if err != nil || m != nil {
		return m, err
	}
	return manifest.Default(wd), nil
}

func (a *app) shutdown() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

// run executes the command line args, writing results to out.
func run(ctx context.Context, args []string, out io.Writer) error {
	a := &app{out: out}
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := a.shutdown(); err == nil {
		err = cerr
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "plmag",
		Short:         "define and run Maggie procedures",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
	}
	root.SetOut(a.out)
	root.PersistentFlags().StringVar(&a.configDir, "config", "", "directory holding "+manifest.FileName)
	root.PersistentFlags().CountVarP(&a.verbose, "verbose", "v", "increase log verbosity (repeatable)")

	root.AddCommand(
		newDefineCmd(a),
		newCallCmd(a),
		newListCmd(a),
		newDropCmd(a),
		newEvalCmd(a),
	)
	return root
}
