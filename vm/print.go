package vm

import (
	"math"
	"strconv"
	"strings"
)

// formatFloat renders f so that it reads back as a Float: plain notation
// for moderate magnitudes, exponent notation otherwise, and always with a
// decimal point or exponent.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	var s string
	if abs := math.Abs(f); abs == 0 || (abs >= 1e-4 && abs < 1e16) {
		s = strconv.FormatFloat(f, 'f', -1, 64)
	} else {
		s = strconv.FormatFloat(f, 'g', -1, 64)
	}
	if !strings.ContainsAny(s, ".eEN") {
		s += ".0"
	}
	return s
}

// printString renders v the way the printString primitive does. Elements
// of collections are printed by sending printString, so source classes
// that override it print correctly inside arrays and dictionaries.
func (vm *VM) printString(v Value) string {
	switch x := v.(type) {
	case nil, nilValue:
		return "nil"
	case Bool:
		if x {
			return "true"
		}
		return "false"
	case Int:
		return strconv.FormatInt(int64(x), 10)
	case Float:
		return formatFloat(float64(x))
	case String:
		return quote(string(x))
	case Symbol:
		if isPlainSymbol(string(x)) {
			return "#" + string(x)
		}
		return "#" + quote(string(x))
	case *Array:
		var sb strings.Builder
		sb.WriteString("#(")
		for i, e := range x.Elems {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(vm.sendPrint(e))
		}
		sb.WriteByte(')')
		return sb.String()
	case *Dictionary:
		var sb strings.Builder
		sb.WriteString("a Dictionary(")
		first := true
		x.Range(func(k, val Value) bool {
			if !first {
				sb.WriteByte(' ')
			}
			first = false
			sb.WriteString(vm.sendPrint(k))
			sb.WriteString("->")
			sb.WriteString(vm.sendPrint(val))
			return true
		})
		sb.WriteByte(')')
		return sb.String()
	case *Association:
		return vm.sendPrint(x.Key) + "->" + vm.sendPrint(x.Val)
	case *Time:
		return x.ISO8601()
	case *Block:
		return "a BlockClosure"
	case *Class:
		return x.Name
	case *Exception:
		return x.Description()
	}
	return article(vm.typeName(v))
}

// displayString is printString without literal syntax for text.
func (vm *VM) displayString(v Value) string {
	if s, ok := textOf(v); ok {
		return s
	}
	return vm.sendPrint(v)
}

// sendPrint sends printString and answers the text.
func (vm *VM) sendPrint(v Value) string {
	r := vm.send(v, "printString", nil)
	if s, ok := textOf(r); ok {
		return s
	}
	return vm.printString(r)
}

func isPlainSymbol(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == ':' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
