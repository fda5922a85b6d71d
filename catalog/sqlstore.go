package catalog

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/fxamacker/cbor/v2"
	_ "github.com/lib/pq"
	"github.com/lib/pq/oid"
	_ "modernc.org/sqlite"
)

var argsEncMode cbor.EncMode

func init() {
	var err error
	argsEncMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic("catalog: cbor enc mode: " + err.Error())
	}
}

// procArgs is the CBOR payload of the args column.
type procArgs struct {
	Types []uint32 `cbor:"1,keyasint"`
	Names []string `cbor:"2,keyasint,omitempty"`
	Modes []byte   `cbor:"3,keyasint,omitempty"`
}

// SQLStore keeps procedure definitions in a SQL database. It works with
// the "sqlite", "duckdb" and "postgres" drivers; the CLI registers duckdb.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// OpenSQLStore opens dsn with driver and prepares the schema.
func OpenSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s catalog", driver)
	}
	s, err := NewSQLStore(ctx, db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database and prepares the schema.
func NewSQLStore(ctx context.Context, db *sql.DB, driver string) (*SQLStore, error) {
	if driver == "sqlite" {
		// An in-memory database exists per connection.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			return nil, errors.Wrap(err, "setting busy timeout")
		}
	}
	s := &SQLStore{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) blobType() string {
	if s.driver == "postgres" {
		return "BYTEA"
	}
	return "BLOB"
}

func (s *SQLStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pl_proc (
			id          BIGINT PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			source      TEXT NOT NULL,
			returns_set INTEGER NOT NULL,
			return_type BIGINT NOT NULL,
			args        ` + s.blobType() + ` NOT NULL,
			owner       BIGINT NOT NULL,
			xmin        BIGINT NOT NULL,
			tid_block   BIGINT NOT NULL,
			tid_offset  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pl_seq (
			name  TEXT PRIMARY KEY,
			value BIGINT NOT NULL
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "creating catalog tables")
		}
	}
	seeds := map[string]int64{"oid": int64(FirstNormalObjectID), "xid": 2, "tid": 0}
	for name, v := range seeds {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO pl_seq (name, value) SELECT CAST($1 AS TEXT), CAST($2 AS BIGINT)
			 WHERE NOT EXISTS (SELECT 1 FROM pl_seq WHERE name = $1)`, name, v); err != nil {
			return errors.Wrapf(err, "seeding %s counter", name)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func next(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	if _, err := tx.ExecContext(ctx, "UPDATE pl_seq SET value = value + 1 WHERE name = $1", name); err != nil {
		return 0, errors.Wrapf(err, "advancing %s", name)
	}
	var v int64
	if err := tx.QueryRowContext(ctx, "SELECT value FROM pl_seq WHERE name = $1", name).Scan(&v); err != nil {
		return 0, errors.Wrapf(err, "reading %s", name)
	}
	return v, nil
}

// stamp assigns a new row version to p inside tx.
func stamp(ctx context.Context, tx *sql.Tx, p *Proc) error {
	xid, err := next(ctx, tx, "xid")
	if err != nil {
		return err
	}
	version, err := next(ctx, tx, "tid")
	if err != nil {
		return err
	}
	p.Xmin = uint32(xid)
	p.TID = tidOf(uint64(version))
	return nil
}

func encodeArgs(p *Proc) ([]byte, error) {
	a := procArgs{Names: p.ArgNames}
	for _, t := range p.ArgTypes {
		a.Types = append(a.Types, uint32(t))
	}
	for _, m := range p.ArgModes {
		a.Modes = append(a.Modes, byte(m))
	}
	return argsEncMode.Marshal(a)
}

func decodeArgs(data []byte, p *Proc) error {
	var a procArgs
	if err := cbor.Unmarshal(data, &a); err != nil {
		return errors.Wrapf(err, "decoding arguments of %s", p.Name)
	}
	p.ArgTypes = nil
	for _, t := range a.Types {
		p.ArgTypes = append(p.ArgTypes, oid.Oid(t))
	}
	p.ArgNames = a.Names
	p.ArgModes = nil
	for _, m := range a.Modes {
		p.ArgModes = append(p.ArgModes, ArgMode(m))
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning catalog transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing catalog transaction")
}

// DefineProc inserts a procedure. A zero ID is assigned.
func (s *SQLStore) DefineProc(ctx context.Context, p *Proc) (*Proc, error) {
	if err := validateProc(p); err != nil {
		return nil, err
	}
	c := p.clone()
	args, err := encodeArgs(c)
	if err != nil {
		return nil, errors.Wrap(err, "encoding arguments")
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM pl_proc WHERE name = $1", c.Name).Scan(&n); err != nil {
			return errors.Wrap(err, "checking name")
		}
		if n > 0 {
			return errors.Newf("function %q already exists", c.Name)
		}
		if c.ID == 0 {
			id, err := next(ctx, tx, "oid")
			if err != nil {
				return err
			}
			// the counter holds the last identity handed out
			c.ID = oid.Oid(id - 1)
		}
		if err := stamp(ctx, tx, c); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO pl_proc (id, name, source, returns_set, return_type, args, owner, xmin, tid_block, tid_offset)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			int64(c.ID), c.Name, c.Source, boolInt(c.ReturnsSet), int64(c.ReturnType), args,
			int64(c.Owner), int64(c.Xmin), int64(c.TID.Block), int(c.TID.Offset))
		return errors.Wrapf(err, "inserting %s", c.Name)
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("stored %s (%d) at xmin %d tid %s", c.Name, c.ID, c.Xmin, c.TID)
	return c, nil
}

// ReplaceProc overwrites the definition with p.ID and gives it a new row
// version.
func (s *SQLStore) ReplaceProc(ctx context.Context, p *Proc) (*Proc, error) {
	if err := validateProc(p); err != nil {
		return nil, err
	}
	c := p.clone()
	args, err := encodeArgs(c)
	if err != nil {
		return nil, errors.Wrap(err, "encoding arguments")
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := stamp(ctx, tx, c); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE pl_proc SET name = $2, source = $3, returns_set = $4, return_type = $5, args = $6,
			 owner = $7, xmin = $8, tid_block = $9, tid_offset = $10 WHERE id = $1`,
			int64(c.ID), c.Name, c.Source, boolInt(c.ReturnsSet), int64(c.ReturnType), args,
			int64(c.Owner), int64(c.Xmin), int64(c.TID.Block), int(c.TID.Offset))
		if err != nil {
			return errors.Wrapf(err, "updating %s", c.Name)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return procNotFound(c.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("replaced %s (%d) at xmin %d tid %s", c.Name, c.ID, c.Xmin, c.TID)
	return c, nil
}

// DropProc deletes a procedure.
func (s *SQLStore) DropProc(ctx context.Context, id oid.Oid) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM pl_proc WHERE id = $1", int64(id))
	if err != nil {
		return errors.Wrapf(err, "deleting function %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return procNotFound(id)
	}
	return nil
}

const procColumns = "id, name, source, returns_set, return_type, args, owner, xmin, tid_block, tid_offset"

type scanner interface {
	Scan(dest ...any) error
}

func scanProc(row scanner) (*Proc, error) {
	var (
		p                        Proc
		id, rettype, owner, xmin int64
		block                    int64
		offset, retset           int
		args                     []byte
	)
	if err := row.Scan(&id, &p.Name, &p.Source, &retset, &rettype, &args, &owner, &xmin, &block, &offset); err != nil {
		return nil, err
	}
	p.ID = oid.Oid(id)
	p.ReturnsSet = retset != 0
	p.ReturnType = oid.Oid(rettype)
	p.Owner = RoleID(owner)
	p.Xmin = uint32(xmin)
	p.TID = TID{Block: uint32(block), Offset: uint16(offset)}
	if err := decodeArgs(args, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// LookupProc reads the definition with the given identity.
func (s *SQLStore) LookupProc(ctx context.Context, id oid.Oid) (*Proc, error) {
	p, err := scanProc(s.db.QueryRowContext(ctx, "SELECT "+procColumns+" FROM pl_proc WHERE id = $1", int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, procNotFound(id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading function %d", id)
	}
	return p, nil
}

// ProcByName reads the named definition.
func (s *SQLStore) ProcByName(ctx context.Context, name string) (*Proc, error) {
	p, err := scanProc(s.db.QueryRowContext(ctx, "SELECT "+procColumns+" FROM pl_proc WHERE name = $1", name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, procNameNotFound(name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading function %s", name)
	}
	return p, nil
}

// Procs lists every definition ordered by identity.
func (s *SQLStore) Procs(ctx context.Context) ([]*Proc, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+procColumns+" FROM pl_proc ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "listing functions")
	}
	defer rows.Close()
	var out []*Proc
	for rows.Next() {
		p, err := scanProc(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning function")
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "listing functions")
}
