package vm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// JSON: conversion between JSON text and runtime values
// ---------------------------------------------------------------------------

// maxJSONDepth bounds nesting in both directions. Stringifying a cyclic
// structure fails here instead of recursing forever.
const maxJSONDepth = 512

// ParseJSON converts JSON text into runtime values: objects become
// Dictionaries (in document order), arrays become Arrays, integral numbers
// that fit in 64 bits become Ints and all other numbers Floats.
func (vm *VM) ParseJSON(text string) (Value, error) {
	return parseJSON(text, vm.arena.add)
}

// StringifyJSON renders v as compact JSON. Symbols and Times are written
// as strings; Dictionary keys that are not text are written with their
// displayString.
func (vm *VM) StringifyJSON(v Value) (string, error) {
	var sb strings.Builder
	if err := vm.writeJSON(&sb, v, 0); err != nil {
		return "", err
	}
	return sb.String(), nil
}

type jsonReader struct {
	dec *json.Decoder
	add func(heapValue)
}

func parseJSON(text string, add func(heapValue)) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	r := &jsonReader{dec: dec, add: add}
	v, err := r.value(0)
	if err != nil {
		return Nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Nil, errors.New("json: unexpected data after top-level value")
	}
	return v, nil
}

func (r *jsonReader) value(depth int) (Value, error) {
	if depth > maxJSONDepth {
		return Nil, errors.New("json: nesting too deep")
	}
	tok, err := r.dec.Token()
	if err == io.EOF {
		return Nil, errors.New("json: unexpected end of input")
	}
	if err != nil {
		return Nil, fmt.Errorf("json: %w", err)
	}
	switch t := tok.(type) {
	case nil:
		return Nil, nil
	case bool:
		return FromBool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		if n, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return Int(n), nil
		}
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return Nil, fmt.Errorf("json: invalid number %s", t)
		}
		return Float(f), nil
	case json.Delim:
		switch t {
		case '[':
			a := &Array{}
			r.add(a)
			for r.dec.More() {
				v, err := r.value(depth + 1)
				if err != nil {
					return Nil, err
				}
				a.Elems = append(a.Elems, v)
			}
			if _, err := r.dec.Token(); err != nil {
				return Nil, fmt.Errorf("json: %w", err)
			}
			return a, nil
		case '{':
			d := newDictionary()
			r.add(d)
			for r.dec.More() {
				key, err := r.dec.Token()
				if err != nil {
					return Nil, fmt.Errorf("json: %w", err)
				}
				v, err := r.value(depth + 1)
				if err != nil {
					return Nil, err
				}
				d.Put(String(key.(string)), v)
			}
			if _, err := r.dec.Token(); err != nil {
				return Nil, fmt.Errorf("json: %w", err)
			}
			return d, nil
		}
	}
	return Nil, fmt.Errorf("json: unexpected token %v", tok)
}

func (vm *VM) writeJSON(sb *strings.Builder, v Value, depth int) error {
	if depth > maxJSONDepth {
		return errors.New("json: nesting too deep (cyclic structure?)")
	}
	switch x := v.(type) {
	case nil, nilValue:
		sb.WriteString("null")
	case Bool:
		sb.WriteString(strconv.FormatBool(bool(x)))
	case Int:
		sb.WriteString(strconv.FormatInt(int64(x), 10))
	case Float:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("json: unsupported value %s", formatFloat(f))
		}
		sb.WriteString(jsonFloat(f))
	case String:
		writeJSONString(sb, string(x))
	case Symbol:
		writeJSONString(sb, string(x))
	case *Time:
		writeJSONString(sb, x.ISO8601())
	case *Array:
		sb.WriteByte('[')
		for i, e := range x.Elems {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := vm.writeJSON(sb, e, depth+1); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case *Dictionary:
		sb.WriteByte('{')
		var err error
		first := true
		x.Range(func(k, val Value) bool {
			if !first {
				sb.WriteByte(',')
			}
			first = false
			key, ok := textOf(k)
			if !ok {
				key = vm.printString(k)
			}
			writeJSONString(sb, key)
			sb.WriteByte(':')
			err = vm.writeJSON(sb, val, depth+1)
			return err == nil
		})
		if err != nil {
			return err
		}
		sb.WriteByte('}')
	default:
		return fmt.Errorf("json: cannot encode %s", article(vm.typeName(v)))
	}
	return nil
}

// jsonFloat formats like encoding/json: plain notation unless the exponent
// is very small or very large.
func jsonFloat(f float64) string {
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, 64)
	if format == 'e' {
		// clean up e-09 to e-9
		n := len(s)
		if n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
	}
	return s
}

const hexDigits = "0123456789abcdef"

func writeJSONString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"' || c == '\\':
				sb.WriteByte('\\')
				sb.WriteByte(c)
			case c == '\n':
				sb.WriteString(`\n`)
			case c == '\r':
				sb.WriteString(`\r`)
			case c == '\t':
				sb.WriteString(`\t`)
			case c < 0x20:
				sb.WriteString(`\u00`)
				sb.WriteByte(hexDigits[c>>4])
				sb.WriteByte(hexDigits[c&0xf])
			default:
				sb.WriteByte(c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			sb.WriteString(`\ufffd`)
		case r == '\u2028' || r == '\u2029':
			sb.WriteString(`\u202`)
			sb.WriteByte(hexDigits[r&0xf])
		default:
			sb.WriteString(s[i : i+size])
		}
		i += size
	}
	sb.WriteByte('"')
}

// ---------------------------------------------------------------------------
// JSON class primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerJSONPrimitives() {
	c := vm.JSONClass

	c.classPrim("parse:", func(vm *VM, recv Value, args []Value) Value {
		v, err := parseJSON(vm.textArg("parse:", args[0]), vm.alloc)
		if err != nil {
			vm.signalf(vm.JSONErrorClass, "%s", err.Error())
		}
		return v
	})
	c.classPrim("stringify:", func(vm *VM, recv Value, args []Value) Value {
		s, err := vm.StringifyJSON(args[0])
		if err != nil {
			vm.signalf(vm.JSONErrorClass, "%s", err.Error())
		}
		return String(s)
	})
	vm.ObjectClass.prim("asJSON", func(vm *VM, recv Value, args []Value) Value {
		s, err := vm.StringifyJSON(recv)
		if err != nil {
			vm.signalf(vm.JSONErrorClass, "%s", err.Error())
		}
		return String(s)
	})
}
