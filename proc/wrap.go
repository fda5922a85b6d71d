package proc

import (
	"fmt"
	"strings"

	"github.com/lib/pq/oid"

	"github.com/chazu/plmaggie/compiler"
)

// HeaderLines is the number of generated lines before the procedure body.
const HeaderLines = 2

// TriggerParams are the parameters of every trigger procedure.
var TriggerParams = []string{
	"new", "old", "tg_name", "tg_when", "tg_level", "tg_op",
	"tg_relid", "tg_table_name", "tg_table_schema", "tg_argv",
}

// ClassName returns the name of the class that holds procedure id.
func ClassName(id oid.Oid) string {
	return fmt.Sprintf("PLProc_%d", id)
}

// Selector returns the call selector for n parameters: call, call:,
// call:with:, call:with:with: and so on.
func Selector(n int) string {
	if n == 0 {
		return "call"
	}
	return "call:" + strings.Repeat("with:", n-1)
}

// ParamName returns name if it can be bound as a parameter, otherwise the
// positional name _pos.
func ParamName(name string, pos int) string {
	if compiler.IsIdentifier(name) {
		return name
	}
	return fmt.Sprintf("_%d", pos)
}

// Wrap builds the source of the class holding one procedure. The body
// starts on line HeaderLines+1.
func Wrap(id oid.Oid, params []string, body string) string {
	var sb strings.Builder
	sb.WriteString(ClassName(id))
	sb.WriteString(" subclass: Object\n  method: call")
	for i, p := range params {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString(" with: ")
		}
		sb.WriteString(p)
	}
	sb.WriteString(" [\n")
	sb.WriteString(body)
	sb.WriteString("\n  ]\n")
	return sb.String()
}
