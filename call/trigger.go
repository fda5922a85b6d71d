package call

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"

	"github.com/chazu/plmaggie/marshal"
	"github.com/chazu/plmaggie/plerror"
	"github.com/chazu/plmaggie/types"
	"github.com/chazu/plmaggie/vm"
)

// TriggerWhen says when a trigger fired relative to its event.
type TriggerWhen uint8

const (
	WhenBefore TriggerWhen = iota
	WhenAfter
	WhenInsteadOf
)

var whenSymbols = [...]vm.Symbol{"before", "after", "instead_of"}

func (w TriggerWhen) String() string { return string(whenSymbols[w]) }

// TriggerLevel is row or statement.
type TriggerLevel uint8

const (
	LevelRow TriggerLevel = iota
	LevelStatement
)

var levelSymbols = [...]vm.Symbol{"row", "statement"}

func (l TriggerLevel) String() string { return string(levelSymbols[l]) }

// TriggerOp is the statement that fired a trigger.
type TriggerOp uint8

const (
	OpInsert TriggerOp = iota
	OpUpdate
	OpDelete
	OpTruncate
)

var opSymbols = [...]vm.Symbol{"insert", "update", "delete", "truncate"}

func (o TriggerOp) String() string { return string(opSymbols[o]) }

// TriggerData describes the event a trigger procedure is called for.
type TriggerData struct {
	Name   string
	When   TriggerWhen
	Level  TriggerLevel
	Op     TriggerOp
	RelID  oid.Oid
	Table  string
	Schema string
	// Desc is the row shape of the relation.
	Desc *types.TupleDesc
	// TrigTuple is the row the event is about: the inserted, deleted or
	// old updated row. NewTuple is the new row of an UPDATE.
	TrigTuple *types.Tuple
	NewTuple  *types.Tuple
	Args      []string
}

// unmodified is the row returned when the procedure leaves it alone.
func (td *TriggerData) unmodified() *types.Tuple {
	if td.Op == OpUpdate {
		return td.NewTuple
	}
	return td.TrigTuple
}

// CallTrigger runs a trigger procedure. The procedure receives new, old,
// tg_name, tg_when, tg_level, tg_op, tg_relid, tg_table_name,
// tg_table_schema and tg_argv. For row-level BEFORE and INSTEAD OF
// triggers the result decides the row: nil or #ok keeps it, #skip drops it
// (a nil tuple) and a mapping replaces it. Other triggers always return a
// nil tuple.
func (h *Handler) CallTrigger(ctx context.Context, fc *FunctionCall, td *TriggerData) (*types.Tuple, error) {
	st, err := h.prepare(ctx, fc)
	if err != nil {
		return nil, err
	}
	defer st.done()
	p := st.site.proc
	if !p.Trigger {
		return nil, plerror.NotSupportedf("function %s is not a trigger function", p.Name)
	}
	m := st.site.m

	var rc *marshal.RowConverter
	if td.Level == LevelRow {
		if td.Desc == nil {
			return nil, errors.AssertionFailedf("row-level trigger %s without a row descriptor", td.Name)
		}
		if rc, err = st.site.scope.RowConverter(td.Desc); err != nil {
			return nil, err
		}
	}
	args, err := triggerArgs(m, rc, td)
	if err != nil {
		return nil, errors.Wrapf(err, "preparing trigger %s", td.Name)
	}

	res, err := st.send(args)
	if err != nil {
		return nil, err
	}
	if td.Level == LevelStatement || td.When == WhenAfter {
		return nil, nil
	}
	if vm.IsNil(res) {
		return td.unmodified(), nil
	}
	if sym, ok := res.(vm.Symbol); ok {
		switch sym {
		case "ok":
			return td.unmodified(), nil
		case "skip":
			return nil, nil
		}
		log.Warningf("trigger %s on %s returned #%s", td.Name, td.Table, sym)
		return nil, plerror.DataExceptionf("returned an invalid symbol from trigger function")
	}
	t, err := rc.ToTuple(res, false)
	if err != nil {
		return nil, errors.Wrapf(err, "converting row returned by trigger %s", td.Name)
	}
	return t, nil
}

func triggerArgs(m *marshal.Marshaler, rc *marshal.RowConverter, td *TriggerData) ([]vm.Value, error) {
	row := func(t *types.Tuple) (vm.Value, error) {
		if t == nil || rc == nil {
			return vm.Nil, nil
		}
		d, err := rc.ToEmbedded(t)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	var newRow, oldRow *types.Tuple
	switch td.Op {
	case OpInsert:
		newRow = td.TrigTuple
	case OpDelete:
		oldRow = td.TrigTuple
	case OpUpdate:
		newRow, oldRow = td.NewTuple, td.TrigTuple
	}
	newVal, err := row(newRow)
	if err != nil {
		return nil, err
	}
	oldVal, err := row(oldRow)
	if err != nil {
		return nil, err
	}

	text := func(s string) (vm.Value, error) {
		u, err := m.Encoding.ToUTF8(s)
		if err != nil {
			return nil, err
		}
		return vm.String(u), nil
	}
	name, err := text(td.Name)
	if err != nil {
		return nil, err
	}
	table, err := text(td.Table)
	if err != nil {
		return nil, err
	}
	schema, err := text(td.Schema)
	if err != nil {
		return nil, err
	}
	argv := make([]vm.Value, len(td.Args))
	for i, a := range td.Args {
		if argv[i], err = text(a); err != nil {
			return nil, err
		}
	}

	return []vm.Value{
		newVal,
		oldVal,
		name,
		whenSymbols[td.When],
		levelSymbols[td.Level],
		opSymbols[td.Op],
		vm.Int(td.RelID),
		table,
		schema,
		m.VM.NewArray(argv),
	}, nil
}
