package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the procedure dialect lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger    // 42, 16rFF, 2r1010
	TokenFloat      // 3.14, 1.5e10
	TokenString     // 'hello'
	TokenDocstring  // """docstring"""
	TokenSymbol     // #foo, #'hello world', #+
	TokenCharacter  // $a
	TokenIdentifier // foo, Bar

	// Keywords and selectors
	TokenKeyword        // foo:, at:put:
	TokenBinarySelector // +, -, *, /, <, >, =, ->, etc.

	// Delimiters
	TokenLParen     // (
	TokenRParen     // )
	TokenLBracket   // [
	TokenRBracket   // ]
	TokenLBrace     // {
	TokenRBrace     // }
	TokenHash       // #
	TokenHashLParen // #(
	TokenCaret      // ^
	TokenPeriod     // .
	TokenSemicolon  // ;
	TokenAssign     // :=
	TokenColon      // :
	TokenBar        // |

	// Reserved identifiers
	TokenSelf
	TokenSuper
	TokenNil
	TokenTrue
	TokenFalse
)

var tokenNames = map[TokenType]string{
	TokenEOF:            "EOF",
	TokenError:          "ERROR",
	TokenInteger:        "INTEGER",
	TokenFloat:          "FLOAT",
	TokenString:         "STRING",
	TokenDocstring:      "DOCSTRING",
	TokenSymbol:         "SYMBOL",
	TokenCharacter:      "CHARACTER",
	TokenIdentifier:     "IDENTIFIER",
	TokenKeyword:        "KEYWORD",
	TokenBinarySelector: "BINARY",
	TokenLParen:         "(",
	TokenRParen:         ")",
	TokenLBracket:       "[",
	TokenRBracket:       "]",
	TokenLBrace:         "{",
	TokenRBrace:         "}",
	TokenHash:           "#",
	TokenHashLParen:     "#(",
	TokenCaret:          "^",
	TokenPeriod:         ".",
	TokenSemicolon:      ";",
	TokenAssign:         ":=",
	TokenColon:          ":",
	TokenBar:            "|",
	TokenSelf:           "self",
	TokenSuper:          "super",
	TokenNil:            "nil",
	TokenTrue:           "true",
	TokenFalse:          "false",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"self":  TokenSelf,
	"super": TokenSuper,
	"nil":   TokenNil,
	"true":  TokenTrue,
	"false": TokenFalse,
}

// IsReserved reports whether name is a pseudo-variable that cannot be bound
// as a parameter or temporary.
func IsReserved(name string) bool {
	_, ok := reservedWords[name]
	return ok
}

// IsIdentifier reports whether name lexes as a single plain identifier.
func IsIdentifier(name string) bool {
	if name == "" || IsReserved(name) {
		return false
	}
	for i, r := range name {
		if i == 0 && !(isLetter(r) || r == '_') {
			return false
		}
		if !(isLetter(r) || isDigit(r) || r == '_') {
			return false
		}
	}
	return true
}

// IsBinaryChar returns true if r is a valid binary selector character.
func IsBinaryChar(r rune) bool {
	switch r {
	case '+', '-', '*', '/', '\\', '~', '<', '>', '=', '@', '%', '|', '&', '?', '!', ',':
		return true
	}
	return false
}
