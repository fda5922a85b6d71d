package types

import "github.com/cockroachdb/errors"

// Sink receives the rows of a set-returning call one at a time and is
// finalized once after the last row.
type Sink interface {
	PutValues(values []Datum, nulls []bool) error
	Done() error
}

// Tuplestore is an in-memory Sink.
type Tuplestore struct {
	Desc *TupleDesc
	Rows []*Tuple
	done bool
}

// NewTuplestore returns an empty store for rows of shape desc. desc may be
// nil for scalar results, which are stored as one-column rows.
func NewTuplestore(desc *TupleDesc) *Tuplestore {
	return &Tuplestore{Desc: desc}
}

// PutValues copies one row into the store.
func (ts *Tuplestore) PutValues(values []Datum, nulls []bool) error {
	if ts.done {
		return errors.AssertionFailedf("tuplestore: PutValues after Done")
	}
	if len(values) != len(nulls) {
		return errors.AssertionFailedf("tuplestore: %d values but %d null flags", len(values), len(nulls))
	}
	if ts.Desc != nil && len(values) != ts.Desc.NumAttrs() {
		return errors.AssertionFailedf("tuplestore: row has %d columns, want %d", len(values), ts.Desc.NumAttrs())
	}
	row := &Tuple{
		Values: append([]Datum(nil), values...),
		Nulls:  append([]bool(nil), nulls...),
	}
	if ts.Desc != nil {
		row.TypeID = ts.Desc.TypeID
	}
	ts.Rows = append(ts.Rows, row)
	return nil
}

// Done finalizes the store.
func (ts *Tuplestore) Done() error {
	ts.done = true
	return nil
}

// Len returns the number of rows stored.
func (ts *Tuplestore) Len() int { return len(ts.Rows) }
