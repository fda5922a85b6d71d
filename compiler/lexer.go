package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for the procedure dialect
// ---------------------------------------------------------------------------

// Lexer tokenizes Maggie source code.
type Lexer struct {
	input     string
	pos       int  // current position in input
	readPos   int  // reading position (after current char)
	ch        rune // current character
	line      int  // line of ch (1-based)
	lineStart int  // offset of the start of ch's line

	// operand is true when the previous token can end an operand, which
	// makes a following '-' a binary selector rather than a sign.
	operand bool
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.lineStart = l.readPos
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the position of the current character.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: utf8.RuneCountInString(l.input[l.lineStart:l.pos]) + 1,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	tok := l.nextToken()
	switch tok.Type {
	case TokenInteger, TokenFloat, TokenString, TokenSymbol, TokenCharacter,
		TokenIdentifier, TokenRParen, TokenRBracket, TokenRBrace,
		TokenSelf, TokenSuper, TokenNil, TokenTrue, TokenFalse:
		l.operand = true
	default:
		l.operand = false
	}
	return tok
}

func (l *Lexer) nextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()

	single := func(t TokenType, lit string) Token {
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}
	}

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Literal: "", Pos: pos}
	case l.ch == '(':
		return single(TokenLParen, "(")
	case l.ch == ')':
		return single(TokenRParen, ")")
	case l.ch == '[':
		return single(TokenLBracket, "[")
	case l.ch == ']':
		return single(TokenRBracket, "]")
	case l.ch == '{':
		return single(TokenLBrace, "{")
	case l.ch == '}':
		return single(TokenRBrace, "}")
	case l.ch == '^':
		return single(TokenCaret, "^")
	case l.ch == '.':
		return single(TokenPeriod, ".")
	case l.ch == ';':
		return single(TokenSemicolon, ";")
	case l.ch == '|':
		return single(TokenBar, "|")

	case l.ch == ':':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenAssign, Literal: ":=", Pos: pos}
		}
		return Token{Type: TokenColon, Literal: ":", Pos: pos}

	case l.ch == '"' && strings.HasPrefix(l.input[l.pos:], `"""`):
		return l.readDocstring(pos)

	case l.ch == '#':
		return l.readHashToken(pos)

	case l.ch == '\'':
		return l.readString(pos)

	case l.ch == '$':
		return l.readCharacter(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case l.ch == '-' && isDigit(l.peekChar()) && !l.operand:
		return l.readNumber(pos)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifierOrKeyword(pos)

	case IsBinaryChar(l.ch):
		return l.readBinarySelector(pos)

	default:
		ch := l.ch
		l.readChar()
		return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character: %c", ch), Pos: pos}
	}
}

// skipWhitespaceAndComments skips whitespace and "..." comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '"' && !strings.HasPrefix(l.input[l.pos:], `"""`) {
			l.readChar()
			for l.ch != '"' && l.ch != 0 {
				l.readChar()
			}
			if l.ch == '"' {
				l.readChar()
			}
			continue
		}

		// Hash line comments: # followed by whitespace or EOF.
		if l.ch == '#' {
			peek := l.peekChar()
			if peek == ' ' || peek == '\t' || peek == '\n' || peek == '\r' || peek == 0 {
				for l.ch != '\n' && l.ch != 0 {
					l.readChar()
				}
				continue
			}
		}

		break
	}
}

// readHashToken reads a token starting with #.
func (l *Lexer) readHashToken(pos Position) Token {
	l.readChar() // consume #

	switch {
	case l.ch == '(':
		l.readChar()
		return Token{Type: TokenHashLParen, Literal: "#(", Pos: pos}

	case l.ch == '\'':
		lit, ok := l.readQuoted()
		if !ok {
			return Token{Type: TokenError, Literal: "unterminated symbol", Pos: pos}
		}
		return Token{Type: TokenSymbol, Literal: lit, Pos: pos}

	case isLetter(l.ch) || l.ch == '_':
		return l.readSymbol(pos)

	case IsBinaryChar(l.ch):
		start := l.pos
		for IsBinaryChar(l.ch) {
			l.readChar()
		}
		return Token{Type: TokenSymbol, Literal: l.input[start:l.pos], Pos: pos}

	default:
		return Token{Type: TokenHash, Literal: "#", Pos: pos}
	}
}

// readSymbol reads a symbol starting with a letter, including keyword
// symbols such as #at:put:.
func (l *Lexer) readSymbol(pos Position) Token {
	var sb strings.Builder
	for {
		for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
			sb.WriteRune(l.ch)
			l.readChar()
		}
		if l.ch == ':' && l.peekChar() != '=' {
			sb.WriteRune(':')
			l.readChar()
			if isLetter(l.ch) || l.ch == '_' {
				continue
			}
		}
		break
	}
	return Token{Type: TokenSymbol, Literal: sb.String(), Pos: pos}
}

// readQuoted reads a '...' literal with doubled-quote escapes. It reports
// false when the input ends before the closing quote.
func (l *Lexer) readQuoted() (string, bool) {
	l.readChar() // consume opening '

	var sb strings.Builder
	for l.ch != 0 {
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				sb.WriteRune('\'')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // consume closing '
			return sb.String(), true
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	return sb.String(), false
}

// readDocstring reads a triple-quoted docstring literal: """..."""
func (l *Lexer) readDocstring(pos Position) Token {
	l.readChar()
	l.readChar()
	l.readChar()

	var sb strings.Builder
	for l.ch != 0 {
		if l.ch == '"' && strings.HasPrefix(l.input[l.pos:], `"""`) {
			l.readChar()
			l.readChar()
			l.readChar()
			return Token{Type: TokenDocstring, Literal: strings.TrimSpace(sb.String()), Pos: pos}
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	return Token{Type: TokenError, Literal: "unterminated docstring", Pos: pos}
}

// readString reads a string literal.
func (l *Lexer) readString(pos Position) Token {
	lit, ok := l.readQuoted()
	if !ok {
		return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
	}
	return Token{Type: TokenString, Literal: lit, Pos: pos}
}

// readCharacter reads a character literal.
func (l *Lexer) readCharacter(pos Position) Token {
	l.readChar() // consume $
	if l.ch == 0 {
		return Token{Type: TokenError, Literal: "unexpected EOF in character literal", Pos: pos}
	}
	ch := l.ch
	l.readChar()
	return Token{Type: TokenCharacter, Literal: string(ch), Pos: pos}
}

// readNumber reads an integer or float literal.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	isFloat := false

	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}

	// Radix notation (16rFF)
	if l.ch == 'r' && isAlnum(l.peekChar()) {
		l.readChar()
		for isAlnum(l.ch) {
			l.readChar()
		}
		return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if (l.ch == 'e' || l.ch == 'E') && exponentFollows(l.input[l.readPos:]) {
		isFloat = true
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if isFloat {
		return Token{Type: TokenFloat, Literal: l.input[start:l.pos], Pos: pos}
	}
	return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
}

// exponentFollows reports whether rest (the text after an 'e') is an
// exponent, so that `2 even` style sends are not swallowed.
func exponentFollows(rest string) bool {
	if rest != "" && (rest[0] == '+' || rest[0] == '-') {
		rest = rest[1:]
	}
	return rest != "" && rest[0] >= '0' && rest[0] <= '9'
}

// readIdentifierOrKeyword reads an identifier or keyword.
func (l *Lexer) readIdentifierOrKeyword(pos Position) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	literal := l.input[start:l.pos]

	if l.ch == ':' && l.peekChar() != '=' {
		l.readChar()
		return Token{Type: TokenKeyword, Literal: literal + ":", Pos: pos}
	}
	if tokType, ok := reservedWords[literal]; ok {
		return Token{Type: tokType, Literal: literal, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: literal, Pos: pos}
}

// readBinarySelector reads a binary selector.
func (l *Lexer) readBinarySelector(pos Position) Token {
	start := l.pos
	for IsBinaryChar(l.ch) && l.ch != '|' {
		// A '-' directly before a digit starts a negative literal
		// argument, as in `x*-1`.
		if l.ch == '-' && l.pos > start && isDigit(l.peekChar()) {
			break
		}
		l.readChar()
	}
	return Token{Type: TokenBinarySelector, Literal: l.input[start:l.pos], Pos: pos}
}

// Helper functions

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlnum(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// Tokenize returns all tokens from the input.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}
	return tokens
}
