package types

import (
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/chazu/plmaggie/plerror"
)

// Encoding is a database encoding. Text datums hold bytes in the database
// encoding; the embedded runtime always works in UTF-8.
type Encoding struct {
	Name string
	enc  encoding.Encoding // nil when no conversion is needed
}

var (
	UTF8     = &Encoding{Name: "UTF8"}
	SQLASCII = &Encoding{Name: "SQL_ASCII"}
	LATIN1   = &Encoding{Name: "LATIN1", enc: charmap.ISO8859_1}
)

var encodings = map[string]*Encoding{
	"UTF8":       UTF8,
	"SQL_ASCII":  SQLASCII,
	"LATIN1":     LATIN1,
	"LATIN2":     {Name: "LATIN2", enc: charmap.ISO8859_2},
	"LATIN9":     {Name: "LATIN9", enc: charmap.ISO8859_15},
	"ISO_8859_5": {Name: "ISO_8859_5", enc: charmap.ISO8859_5},
	"WIN1250":    {Name: "WIN1250", enc: charmap.Windows1250},
	"WIN1251":    {Name: "WIN1251", enc: charmap.Windows1251},
	"WIN1252":    {Name: "WIN1252", enc: charmap.Windows1252},
	"KOI8R":      {Name: "KOI8R", enc: charmap.KOI8R},
}

// LookupEncoding finds an encoding by its host name, ignoring case and
// punctuation ("utf-8", "Latin1").
func LookupEncoding(name string) (*Encoding, error) {
	key := strings.ToUpper(strings.NewReplacer("-", "", "_", "").Replace(name))
	for n, e := range encodings {
		if strings.ReplaceAll(n, "_", "") == key {
			return e, nil
		}
	}
	return nil, errors.Newf("unknown database encoding %q", name)
}

// Converts reports whether text changes bytes when crossing the boundary.
func (e *Encoding) Converts() bool { return e.enc != nil }

// ToUTF8 converts database text to UTF-8.
func (e *Encoding) ToUTF8(s string) (string, error) {
	if e.enc == nil {
		if e == UTF8 && !utf8.ValidString(s) {
			return "", plerror.WithCode(
				errors.New("invalid byte sequence for encoding UTF8"),
				plerror.CodeUntranslatableCharacter)
		}
		return s, nil
	}
	out, err := e.enc.NewDecoder().String(s)
	if err != nil {
		return "", plerror.Untranslatablef("cannot convert from %s to UTF8: %v", e.Name, err)
	}
	return out, nil
}

// FromUTF8 converts UTF-8 text to the database encoding. Runtime strings
// may hold arbitrary bytes, so UTF8 databases check them too.
func (e *Encoding) FromUTF8(s string) (string, error) {
	if e.enc == nil {
		if e == UTF8 && !utf8.ValidString(s) {
			return "", plerror.WithCode(
				errors.New("invalid byte sequence for encoding UTF8"),
				plerror.CodeUntranslatableCharacter)
		}
		return s, nil
	}
	out, err := e.enc.NewEncoder().String(s)
	if err != nil {
		return "", plerror.Untranslatablef("character with no equivalent in encoding %s: %q", e.Name, s)
	}
	return out, nil
}
