// Package manifest handles plmaggie.toml configuration.
package manifest

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"

	"github.com/chazu/plmaggie/types"
	"github.com/chazu/plmaggie/vm"
)

// FileName is the name of the configuration file.
const FileName = "plmaggie.toml"

// ErrInvalid marks a manifest that does not match the schema.
var ErrInvalid = errors.New("invalid manifest")

//go:embed schema.cue
var schemaSource string

// Manifest is the contents of a plmaggie.toml file.
type Manifest struct {
	Runtime Runtime `toml:"runtime"`
	Host    Host    `toml:"host"`
	Catalog Catalog `toml:"catalog"`
	Log     Log     `toml:"log"`

	// Dir is the directory holding the file (set at load time).
	Dir string `toml:"-"`
}

// Runtime limits every VM the handler creates. Zero means the VM default.
type Runtime struct {
	ArenaLimit int `toml:"arena_limit"`
	MaxDepth   int `toml:"max_depth"`
}

// Host describes the database the handler is embedded in.
type Host struct {
	Encoding string `toml:"encoding"`
}

// Catalog selects where procedure definitions are stored.
type Catalog struct {
	// Driver is one of memory, sqlite, duckdb or postgres.
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when dir has no plmaggie.toml.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Host.Encoding == "" {
		m.Host.Encoding = "UTF8"
	}
	if m.Catalog.Driver == "" {
		m.Catalog.Driver = "sqlite"
	}
	if m.Catalog.DSN == "" && m.Catalog.Driver != "memory" && m.Catalog.Driver != "postgres" {
		m.Catalog.DSN = "plmaggie.db"
	}
}

// Load reads plmaggie.toml from dir. A missing file yields the defaults.
func Load(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot resolve path %s", dir)
	}
	path := filepath.Join(abs, FileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(abs), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "parse error in %s", path)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := validate(raw); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parse error in %s", path)
	}
	if m.Catalog.Driver == "postgres" && m.Catalog.DSN == "" {
		return nil, errors.Mark(errors.Newf("%s: catalog.dsn is required for the postgres driver", path), ErrInvalid)
	}
	m.Dir = abs
	m.applyDefaults()
	return &m, nil
}

// validate checks the decoded document against the #Manifest schema.
func validate(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename(FileName+".cue"))
	if err := schema.Err(); err != nil {
		return errors.Wrap(err, "compiling manifest schema")
	}
	v := schema.LookupPath(cue.ParsePath("#Manifest")).Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		msg := strings.TrimSpace(cueerrors.Details(err, nil))
		return errors.Mark(errors.Newf("%s", msg), ErrInvalid)
	}
	return nil
}

// FindAndLoad walks up from startDir to find a plmaggie.toml file and
// loads it. It returns nil if none is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// VMOptions returns the runtime options the manifest asks for.
func (m *Manifest) VMOptions() []vm.Option {
	var opts []vm.Option
	if m.Runtime.ArenaLimit > 0 {
		opts = append(opts, vm.WithArenaLimit(m.Runtime.ArenaLimit))
	}
	if m.Runtime.MaxDepth > 0 {
		opts = append(opts, vm.WithMaxDepth(m.Runtime.MaxDepth))
	}
	return opts
}

// Encoding returns the configured database encoding.
func (m *Manifest) Encoding() (*types.Encoding, error) {
	return types.LookupEncoding(m.Host.Encoding)
}

// DataSource returns the catalog DSN. Relative file names for the
// sqlite and duckdb drivers are taken relative to Dir.
func (m *Manifest) DataSource() string {
	dsn := m.Catalog.DSN
	switch m.Catalog.Driver {
	case "sqlite", "duckdb":
		if dsn != "" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") && !filepath.IsAbs(dsn) {
			return filepath.Join(m.Dir, dsn)
		}
	}
	return dsn
}

// LogFile returns the log file path, nil for stderr.
func (m *Manifest) LogFile() *string {
	if m.Log.File == "" {
		return nil
	}
	p := m.Log.File
	if !filepath.IsAbs(p) {
		p = filepath.Join(m.Dir, p)
	}
	return &p
}
