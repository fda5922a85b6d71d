package types

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"
)

// TypeLookup resolves a type identity to its metadata.
type TypeLookup func(id oid.Oid) (*TypeInfo, error)

// ---------------------------------------------------------------------------
// Arrays
// ---------------------------------------------------------------------------

// ArrayIn returns the input function of the array type over elem. It reads
// the host's brace syntax, including nested dimensions and an optional
// [lo:hi] bounds decoration.
func ArrayIn(elem *TypeInfo) InputFunc {
	return func(s string) (Datum, error) {
		p := &arrayParser{src: s}
		lbound, err := p.bounds()
		if err != nil {
			return nil, invalidText(elem.Name+"[]", s)
		}
		p.skipSpace()
		if !p.eat('{') {
			return nil, invalidText(elem.Name+"[]", s)
		}
		if err := p.level(0); err != nil {
			return nil, errors.Wrapf(invalidText(elem.Name+"[]", s), "%s", err)
		}
		p.skipSpace()
		if p.pos != len(p.src) {
			return nil, invalidText(elem.Name+"[]", s)
		}
		if lbound != nil && len(lbound) != len(p.dims) {
			return nil, invalidText(elem.Name+"[]", s)
		}

		arr := &Array{ElemType: elem.OID, Elems: make([]Datum, len(p.items)), Nulls: make([]bool, len(p.items))}
		if len(p.items) > 0 {
			arr.Dims = p.dims
			arr.LBound = lbound
			if arr.LBound == nil {
				arr.LBound = make([]int, len(p.dims))
				for i := range arr.LBound {
					arr.LBound[i] = 1
				}
			}
		}
		for i, it := range p.items {
			if it.null {
				arr.Nulls[i] = true
				continue
			}
			v, err := elem.Input(it.text)
			if err != nil {
				return nil, err
			}
			arr.Elems[i] = v
		}
		return arr, nil
	}
}

type arrayItem struct {
	text string
	null bool
}

type arrayParser struct {
	src   string
	pos   int
	dims  []int
	items []arrayItem
}

func (p *arrayParser) skipSpace() {
	for p.pos < len(p.src) && isArraySpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *arrayParser) eat(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

// bounds parses an optional "[lo:hi][lo:hi]=" prefix.
func (p *arrayParser) bounds() ([]int, error) {
	p.skipSpace()
	var lbound []int
	for p.eat('[') {
		end := strings.IndexByte(p.src[p.pos:], ']')
		if end < 0 {
			return nil, errors.New("unterminated bounds")
		}
		lo, hi, ok := strings.Cut(p.src[p.pos:p.pos+end], ":")
		if !ok {
			return nil, errors.New("missing colon in bounds")
		}
		l, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, err
		}
		if _, err := strconv.Atoi(strings.TrimSpace(hi)); err != nil {
			return nil, err
		}
		lbound = append(lbound, l)
		p.pos += end + 1
	}
	if lbound != nil {
		p.skipSpace()
		if !p.eat('=') {
			return nil, errors.New("missing = after bounds")
		}
	}
	return lbound, nil
}

// level parses the contents of one brace level; the opening brace has
// been consumed.
func (p *arrayParser) level(depth int) error {
	count := 0
	p.skipSpace()
	if p.eat('}') {
		if depth == 0 && len(p.items) == 0 {
			return nil
		}
		return errors.New("empty sub-array")
	}
	for {
		p.skipSpace()
		if p.eat('{') {
			if err := p.level(depth + 1); err != nil {
				return err
			}
		} else {
			if len(p.dims) > depth+1 {
				return errors.New("expected sub-array")
			}
			it, err := p.element()
			if err != nil {
				return err
			}
			p.items = append(p.items, it)
		}
		count++
		p.skipSpace()
		if p.eat(',') {
			continue
		}
		if p.eat('}') {
			break
		}
		return errors.New("expected , or }")
	}
	for len(p.dims) <= depth {
		p.dims = append(p.dims, -1)
	}
	switch p.dims[depth] {
	case -1:
		p.dims[depth] = count
	case count:
	default:
		return errors.New("multidimensional arrays must have matching sub-arrays")
	}
	return nil
}

func (p *arrayParser) element() (arrayItem, error) {
	var sb strings.Builder
	quoted := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '"':
			quoted = true
			p.pos++
			for {
				if p.pos >= len(p.src) {
					return arrayItem{}, errors.New("unterminated quoted element")
				}
				c := p.src[p.pos]
				p.pos++
				if c == '"' {
					break
				}
				if c == '\\' && p.pos < len(p.src) {
					c = p.src[p.pos]
					p.pos++
				}
				sb.WriteByte(c)
			}
		case c == '\\':
			if p.pos+1 >= len(p.src) {
				return arrayItem{}, errors.New("trailing backslash")
			}
			sb.WriteByte(p.src[p.pos+1])
			p.pos += 2
		case c == ',' || c == '}':
			text := sb.String()
			if !quoted {
				text = strings.TrimRight(text, " \t\n\r\v\f")
				if text == "" {
					return arrayItem{}, errors.New("empty element")
				}
				if strings.EqualFold(text, "NULL") {
					return arrayItem{null: true}, nil
				}
			}
			return arrayItem{text: text}, nil
		case c == '{':
			return arrayItem{}, errors.New("unexpected {")
		default:
			if !quoted || !isArraySpace(c) {
				sb.WriteByte(c)
			}
			p.pos++
		}
	}
	return arrayItem{}, errors.New("unterminated array")
}

func isArraySpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// ArrayOut returns the output function of the array type over elem.
func ArrayOut(elem *TypeInfo) OutputFunc {
	return func(d Datum) (string, error) {
		arr, ok := d.(*Array)
		if !ok {
			return "", datumErr(d, elem.Name+"[]")
		}
		if arr.NDims() == 0 {
			return "{}", nil
		}
		var sb strings.Builder
		for _, lb := range arr.LBound {
			if lb != 1 {
				for i, lo := range arr.LBound {
					sb.WriteString("[" + strconv.Itoa(lo) + ":" + strconv.Itoa(lo+arr.Dims[i]-1) + "]")
				}
				sb.WriteByte('=')
				break
			}
		}
		next := 0
		var write func(depth int) error
		write = func(depth int) error {
			sb.WriteByte('{')
			for i := 0; i < arr.Dims[depth]; i++ {
				if i > 0 {
					sb.WriteByte(',')
				}
				if depth+1 < len(arr.Dims) {
					if err := write(depth + 1); err != nil {
						return err
					}
					continue
				}
				if arr.Nulls[next] {
					sb.WriteString("NULL")
				} else {
					s, err := elem.Output(arr.Elems[next])
					if err != nil {
						return err
					}
					writeQuoted(&sb, s, needsArrayQuote(s), '\\')
				}
				next++
			}
			sb.WriteByte('}')
			return nil
		}
		if err := write(0); err != nil {
			return "", err
		}
		return sb.String(), nil
	}
}

func needsArrayQuote(s string) bool {
	if s == "" || strings.EqualFold(s, "NULL") {
		return true
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{', '}', ',', '"', '\\':
			return true
		}
		if isArraySpace(s[i]) {
			return true
		}
	}
	return false
}

// writeQuoted writes s, in double quotes when quote is set. Inside quotes
// '"' and '\' are escaped with esc ('\\' for arrays, doubling for rows).
func writeQuoted(sb *strings.Builder, s string, quote bool, esc byte) {
	if !quote {
		sb.WriteString(s)
		return
	}
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			if esc == '\\' {
				sb.WriteByte('\\')
			} else {
				sb.WriteByte(s[i])
			}
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
}

// ---------------------------------------------------------------------------
// Rows
// ---------------------------------------------------------------------------

// CompositeType builds the metadata of the row type id described by td.
// Column types are resolved through lookup when a value is converted, so
// row types may refer to types defined later.
func CompositeType(id, arrayID oid.Oid, name string, td *TupleDesc, lookup TypeLookup) *TypeInfo {
	return &TypeInfo{
		OID: id, Name: name, Category: CategoryComposite, Type: TyptypeComposite,
		Array: arrayID, RelID: id, Len: -1, Align: 'd',
		Input:  RecordIn(td, lookup),
		Output: RecordOut(td, lookup),
	}
}

// RecordOut renders a row as (a,b,...). Dropped attributes are skipped
// and null attributes are left empty.
func RecordOut(td *TupleDesc, lookup TypeLookup) OutputFunc {
	return func(d Datum) (string, error) {
		t, ok := d.(*Tuple)
		if !ok {
			return "", datumErr(d, "record")
		}
		var sb strings.Builder
		sb.WriteByte('(')
		first := true
		for i, a := range td.Attrs {
			if a.Dropped {
				continue
			}
			if !first {
				sb.WriteByte(',')
			}
			first = false
			if i >= len(t.Values) || t.Nulls[i] {
				continue
			}
			typ, err := lookup(a.TypeID)
			if err != nil {
				return "", err
			}
			s, err := typ.Output(t.Values[i])
			if err != nil {
				return "", err
			}
			writeQuoted(&sb, s, needsRecordQuote(s), '"')
		}
		sb.WriteByte(')')
		return sb.String(), nil
	}
}

func needsRecordQuote(s string) bool {
	if s == "" {
		return true
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', ')', ',', '"', '\\':
			return true
		}
		if isArraySpace(s[i]) {
			return true
		}
	}
	return false
}

// RecordIn parses (a,b,...) into a tuple with one slot per attribute.
func RecordIn(td *TupleDesc, lookup TypeLookup) InputFunc {
	return func(s string) (Datum, error) {
		text := strings.TrimSpace(s)
		if len(text) < 2 || text[0] != '(' || text[len(text)-1] != ')' {
			return nil, invalidText("record", s)
		}
		fields, nulls, err := splitRecord(text[1 : len(text)-1])
		if err != nil {
			return nil, errors.Wrapf(invalidText("record", s), "%s", err)
		}
		live := td.Live()
		if len(fields) != len(live) {
			return nil, errors.Wrapf(invalidText("record", s),
				"expected %d columns, got %d", len(live), len(fields))
		}
		t := &Tuple{
			TypeID: td.TypeID,
			Values: make([]Datum, td.NumAttrs()),
			Nulls:  make([]bool, td.NumAttrs()),
		}
		for i := range t.Nulls {
			t.Nulls[i] = true
		}
		for i, ord := range live {
			if nulls[i] {
				continue
			}
			typ, err := lookup(td.Attrs[ord].TypeID)
			if err != nil {
				return nil, err
			}
			v, err := typ.Input(fields[i])
			if err != nil {
				return nil, err
			}
			t.Values[ord], t.Nulls[ord] = v, false
		}
		return t, nil
	}
}

func splitRecord(body string) ([]string, []bool, error) {
	var fields []string
	var nulls []bool
	var sb strings.Builder
	empty := true
	for i := 0; i <= len(body); i++ {
		if i == len(body) || body[i] == ',' {
			fields = append(fields, sb.String())
			nulls = append(nulls, empty)
			sb.Reset()
			empty = true
			continue
		}
		c := body[i]
		empty = false
		switch c {
		case '"':
			i++
			for ; ; i++ {
				if i >= len(body) {
					return nil, nil, errors.New("unterminated quoted field")
				}
				if body[i] == '"' {
					if i+1 < len(body) && body[i+1] == '"' {
						sb.WriteByte('"')
						i++
						continue
					}
					break
				}
				if body[i] == '\\' && i+1 < len(body) {
					i++
				}
				sb.WriteByte(body[i])
			}
		case '\\':
			if i+1 < len(body) {
				i++
				sb.WriteByte(body[i])
			}
		default:
			sb.WriteByte(c)
		}
	}
	return fields, nulls, nil
}
