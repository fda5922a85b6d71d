package vm

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// String Primitives (String and Symbol)
// ---------------------------------------------------------------------------

// Indexing is by character, 1-based. Characters are answered as
// one-character Strings.

func (vm *VM) registerStringPrimitives() {
	c := vm.StringClass

	text := func(v Value) string {
		s, _ := textOf(v)
		return s
	}

	c.classPrim("new", func(vm *VM, recv Value, args []Value) Value {
		return String("")
	})
	c.classPrim("new:withAll:", func(vm *VM, recv Value, args []Value) Value {
		n := vm.intArg("new:withAll:", args[0])
		if n < 0 {
			vm.signalf(vm.InvalidArgumentClass, "negative size %d", n)
		}
		return String(strings.Repeat(vm.textArg("new:withAll:", args[1]), int(n)))
	})
	c.classPrim("cr", func(vm *VM, recv Value, args []Value) Value {
		return String("\n")
	})
	c.classPrim("tab", func(vm *VM, recv Value, args []Value) Value {
		return String("\t")
	})

	c.prim("size", func(vm *VM, recv Value, args []Value) Value {
		return Int(utf8.RuneCountInString(text(recv)))
	})
	c.prim("at:", func(vm *VM, recv Value, args []Value) Value {
		rs := []rune(text(recv))
		return String(string(rs[vm.index("at:", args[0], len(rs))]))
	})
	c.prim("isEmpty", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(text(recv) == "")
	})
	c.prim("notEmpty", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(text(recv) != "")
	})
	c.prim(",", func(vm *VM, recv Value, args []Value) Value {
		return String(text(recv) + vm.textArg(",", args[0]))
	})

	// comparison
	cmp := func(sel string, test func(int) bool) {
		c.prim(sel, func(vm *VM, recv Value, args []Value) Value {
			return FromBool(test(strings.Compare(text(recv), vm.textArg(sel, args[0]))))
		})
	}
	cmp("<", func(r int) bool { return r < 0 })
	cmp(">", func(r int) bool { return r > 0 })
	cmp("<=", func(r int) bool { return r <= 0 })
	cmp(">=", func(r int) bool { return r >= 0 })
	c.prim("sameAs:", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(strings.EqualFold(text(recv), vm.textArg("sameAs:", args[0])))
	})

	// searching
	c.prim("includesSubstring:", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(strings.Contains(text(recv), vm.textArg("includesSubstring:", args[0])))
	})
	c.prim("startsWith:", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(strings.HasPrefix(text(recv), vm.textArg("startsWith:", args[0])))
	})
	c.prim("endsWith:", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(strings.HasSuffix(text(recv), vm.textArg("endsWith:", args[0])))
	})
	c.prim("indexOf:", func(vm *VM, recv Value, args []Value) Value {
		s, sub := text(recv), vm.textArg("indexOf:", args[0])
		i := strings.Index(s, sub)
		if i < 0 {
			return Int(0)
		}
		return Int(utf8.RuneCountInString(s[:i]) + 1)
	})
	c.prim("occurrencesOf:", func(vm *VM, recv Value, args []Value) Value {
		sub := vm.textArg("occurrencesOf:", args[0])
		if sub == "" {
			return Int(0)
		}
		return Int(strings.Count(text(recv), sub))
	})

	// copying
	c.prim("copyFrom:to:", func(vm *VM, recv Value, args []Value) Value {
		rs := []rune(text(recv))
		from := vm.intArg("copyFrom:to:", args[0])
		to := vm.intArg("copyFrom:to:", args[1])
		if to < from {
			return String("")
		}
		if from < 1 || to > int64(len(rs)) {
			vm.signalf(vm.SubscriptOutOfBoundsClass, "range %d to %d out of bounds for size %d", from, to, len(rs))
		}
		return String(string(rs[from-1 : to]))
	})
	c.prim("copyReplaceAll:with:", func(vm *VM, recv Value, args []Value) Value {
		old := vm.textArg("copyReplaceAll:with:", args[0])
		if old == "" {
			return String(text(recv))
		}
		return String(strings.ReplaceAll(text(recv), old, vm.textArg("copyReplaceAll:with:", args[1])))
	})
	c.prim("reversed", func(vm *VM, recv Value, args []Value) Value {
		rs := []rune(text(recv))
		for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
			rs[i], rs[j] = rs[j], rs[i]
		}
		return String(string(rs))
	})
	c.prim("asUppercase", func(vm *VM, recv Value, args []Value) Value {
		return String(strings.ToUpper(text(recv)))
	})
	c.prim("asLowercase", func(vm *VM, recv Value, args []Value) Value {
		return String(strings.ToLower(text(recv)))
	})
	c.prim("trimmed", func(vm *VM, recv Value, args []Value) Value {
		return String(strings.TrimSpace(text(recv)))
	})
	c.prim("substrings", func(vm *VM, recv Value, args []Value) Value {
		return vm.stringArray(strings.Fields(text(recv)))
	})
	c.prim("substrings:", func(vm *VM, recv Value, args []Value) Value {
		seps := vm.textArg("substrings:", args[0])
		parts := strings.FieldsFunc(text(recv), func(r rune) bool {
			return strings.ContainsRune(seps, r)
		})
		return vm.stringArray(parts)
	})
	c.prim("lines", func(vm *VM, recv Value, args []Value) Value {
		s := strings.TrimSuffix(strings.ReplaceAll(text(recv), "\r\n", "\n"), "\n")
		if s == "" {
			return vm.newArray(nil)
		}
		return vm.stringArray(strings.Split(s, "\n"))
	})
	c.prim("join:", func(vm *VM, recv Value, args []Value) Value {
		arr, ok := args[0].(*Array)
		if !ok {
			vm.argError("join:", "an Array", args[0])
		}
		parts := make([]string, len(arr.Elems))
		for i, e := range arr.Elems {
			parts[i] = vm.displayString(e)
		}
		return String(strings.Join(parts, text(recv)))
	})

	// iteration
	c.prim("do:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("do:", args[0])
		for _, r := range text(recv) {
			vm.callBlock(b, []Value{String(string(r))})
		}
		return recv
	})
	c.prim("keysAndValuesDo:", func(vm *VM, recv Value, args []Value) Value {
		b := vm.blockArg("keysAndValuesDo:", args[0])
		i := 0
		for _, r := range text(recv) {
			i++
			vm.callBlock(b, []Value{Int(i), String(string(r))})
		}
		return recv
	})
	c.prim("asArray", func(vm *VM, recv Value, args []Value) Value {
		var elems []Value
		for _, r := range text(recv) {
			elems = append(elems, String(string(r)))
		}
		return vm.newArray(elems)
	})

	// characters
	c.prim("isVowel", func(vm *VM, recv Value, args []Value) Value {
		s := text(recv)
		return FromBool(utf8.RuneCountInString(s) == 1 && strings.ContainsRune("aeiouAEIOU", []rune(s)[0]))
	})
	c.prim("isDigit", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(allRunes(text(recv), unicode.IsDigit))
	})
	c.prim("isLetter", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(allRunes(text(recv), unicode.IsLetter))
	})
	c.prim("isSeparator", func(vm *VM, recv Value, args []Value) Value {
		return FromBool(allRunes(text(recv), unicode.IsSpace))
	})
	c.prim("asInteger", func(vm *VM, recv Value, args []Value) Value {
		s := strings.TrimSpace(text(recv))
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(n)
		}
		return Nil
	})
	c.prim("asNumber", func(vm *VM, recv Value, args []Value) Value {
		s := strings.TrimSpace(text(recv))
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(n)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f)
		}
		return Nil
	})
	c.prim("codePoint", func(vm *VM, recv Value, args []Value) Value {
		r, n := utf8.DecodeRuneInString(text(recv))
		if n == 0 {
			vm.signalf(vm.InvalidArgumentClass, "codePoint of an empty String")
		}
		return Int(r)
	})

	// conversion
	c.prim("asString", func(vm *VM, recv Value, args []Value) Value {
		return String(text(recv))
	})
	c.prim("asSymbol", func(vm *VM, recv Value, args []Value) Value {
		return Symbol(text(recv))
	})
	c.prim("displayString", func(vm *VM, recv Value, args []Value) Value {
		return String(text(recv))
	})
	c.prim("hash", func(vm *VM, recv Value, args []Value) Value {
		s := text(recv)
		var h uint64 = 14695981039346656037
		for i := 0; i < len(s); i++ {
			h ^= uint64(s[i])
			h *= 1099511628211
		}
		return Int(int64(h >> 1))
	})

	vm.SymbolClass.classPrim("new", func(vm *VM, recv Value, args []Value) Value {
		vm.signalf(vm.InvalidArgumentClass, "Symbols are created with asSymbol")
		return Nil
	})
}

func (vm *VM) stringArray(parts []string) *Array {
	elems := make([]Value, len(parts))
	for i, p := range parts {
		elems[i] = String(p)
	}
	return vm.newArray(elems)
}

func allRunes(s string, pred func(rune) bool) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !pred(r) {
			return false
		}
	}
	return true
}
