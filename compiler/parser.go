package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for the procedure dialect
// ---------------------------------------------------------------------------

// maxErrors bounds the number of syntax errors collected for one input.
const maxErrors = 20

// SyntaxError is a parse error at a source position.
type SyntaxError struct {
	Pos Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// Parser parses Maggie source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    []*SyntaxError
	input     string // original source text (for source preservation)
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
		input: input,
	}
	p.nextToken()
	p.nextToken()
	return p
}

// ParseSource parses a file of class definitions.
func ParseSource(input string) (*SourceFile, []*SyntaxError) {
	p := NewParser(input)
	sf := p.ParseSourceFile()
	return sf, p.Errors()
}

// ParseDoIt parses a statement sequence with optional leading temporaries.
func ParseDoIt(input string) (*DoIt, []*SyntaxError) {
	p := NewParser(input)
	d := p.ParseDoIt()
	return d, p.Errors()
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.describe(p.curToken))
	return false
}

func (p *Parser) describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenError:
		return tok.Literal
	case TokenIdentifier, TokenKeyword, TokenBinarySelector:
		return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
	}
	return tok.Type.String()
}

// errorf records a parse error at the current token.
func (p *Parser) errorf(format string, args ...interface{}) {
	if len(p.errors) >= maxErrors {
		return
	}
	p.errors = append(p.errors, &SyntaxError{Pos: p.curToken.Pos, Msg: fmt.Sprintf(format, args...)})
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []*SyntaxError {
	return p.errors
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Expr {
	return p.parseKeywordSend()
}

// ParseStatement parses a single statement.
func (p *Parser) ParseStatement() Stmt {
	if p.curTokenIs(TokenCaret) {
		return p.parseReturn()
	}
	expr := p.parseKeywordSend()
	if expr == nil {
		return nil
	}
	return &ExprStmt{SpanVal: expr.Span(), Expr: expr}
}

// ParseStatements parses statements separated by periods, stopping at EOF
// or a closing bracket or brace.
func (p *Parser) ParseStatements() []Stmt {
	var stmts []Stmt
	for !p.curTokenIs(TokenEOF) && !p.curTokenIs(TokenRBracket) && !p.curTokenIs(TokenRBrace) {
		stmt := p.ParseStatement()
		if stmt == nil {
			break
		}
		stmts = append(stmts, stmt)
		if _, ok := stmt.(*Return); ok && !p.curTokenIs(TokenPeriod) {
			break
		}
		if !p.curTokenIs(TokenPeriod) {
			break
		}
		for p.curTokenIs(TokenPeriod) {
			p.nextToken()
		}
	}
	return stmts
}

// ParseDoIt parses `| temps | statements` up to the end of input.
func (p *Parser) ParseDoIt() *DoIt {
	start := p.curToken.Pos
	d := &DoIt{}
	if p.curTokenIs(TokenBar) {
		d.Temps = p.parseTemporaries()
	}
	d.Statements = p.ParseStatements()
	if !p.curTokenIs(TokenEOF) && len(p.errors) == 0 {
		p.errorf("unexpected %s", p.describe(p.curToken))
	}
	d.SpanVal = MakeSpan(start, p.curToken.Pos)
	return d
}

// parseMethodSignature parses a method signature.
func (p *Parser) parseMethodSignature() (string, []string) {
	switch {
	case p.curTokenIs(TokenIdentifier):
		selector := p.curToken.Literal
		p.nextToken()
		return selector, nil

	case p.curTokenIs(TokenBinarySelector) || p.curTokenIs(TokenBar):
		selector := p.curToken.Literal
		p.nextToken()
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected parameter name after binary selector")
			return "", nil
		}
		param := p.curToken.Literal
		p.nextToken()
		return selector, []string{param}

	case p.curTokenIs(TokenKeyword):
		var selector strings.Builder
		var params []string
		for p.curTokenIs(TokenKeyword) {
			selector.WriteString(p.curToken.Literal)
			p.nextToken()
			if !p.curTokenIs(TokenIdentifier) {
				p.errorf("expected parameter name after keyword, got %s", p.describe(p.curToken))
				return "", nil
			}
			params = append(params, p.curToken.Literal)
			p.nextToken()
		}
		return selector.String(), params

	default:
		p.errorf("expected method signature")
		return "", nil
	}
}

// parseTemporaries parses | temp1 temp2 |
func (p *Parser) parseTemporaries() []string {
	p.nextToken() // consume |
	var temps []string
	for p.curTokenIs(TokenIdentifier) {
		temps = append(temps, p.curToken.Literal)
		p.nextToken()
	}
	if !p.expect(TokenBar) {
		return nil
	}
	return temps
}

// parseReturn parses ^expr
func (p *Parser) parseReturn() *Return {
	startPos := p.curToken.Pos
	p.nextToken() // consume ^

	value := p.parseKeywordSend()
	if value == nil {
		return nil
	}
	return &Return{
		SpanVal: MakeSpan(startPos, value.Span().End),
		Value:   value,
	}
}

// ---------------------------------------------------------------------------
// Expression parsing (message precedence)
// ---------------------------------------------------------------------------

// parseKeywordSend parses keyword message sends (lowest precedence) and
// any cascade that follows.
func (p *Parser) parseKeywordSend() Expr {
	receiver := p.parseBinarySend()
	if receiver == nil {
		return nil
	}

	result := receiver
	if p.curTokenIs(TokenKeyword) {
		result = p.parseKeywordMessage(receiver)
		if result == nil {
			return nil
		}
	}

	if p.curTokenIs(TokenSemicolon) {
		return p.parseCascade(result)
	}
	return result
}

// parseKeywordArgs parses `key1: arg1 key2: arg2`.
func (p *Parser) parseKeywordArgs() (string, []Expr) {
	var selector strings.Builder
	var args []Expr
	for p.curTokenIs(TokenKeyword) {
		selector.WriteString(p.curToken.Literal)
		p.nextToken()
		arg := p.parseBinarySend()
		if arg == nil {
			return "", nil
		}
		args = append(args, arg)
	}
	return selector.String(), args
}

// parseKeywordMessage parses a keyword message with given receiver.
func (p *Parser) parseKeywordMessage(receiver Expr) Expr {
	startPos := receiver.Span().Start
	selector, args := p.parseKeywordArgs()
	if selector == "" {
		return nil
	}
	return &KeywordMessage{
		SpanVal:   MakeSpan(startPos, p.curToken.Pos),
		Receiver:  receiver,
		Selector:  selector,
		Arguments: args,
	}
}

// parseBinarySend parses binary message sends (middle precedence).
func (p *Parser) parseBinarySend() Expr {
	left := p.parseUnarySend()
	if left == nil {
		return nil
	}

	// '|' is a binary selector in expression context.
	for p.curTokenIs(TokenBinarySelector) || p.curTokenIs(TokenBar) {
		selector := p.curToken.Literal
		p.nextToken()

		right := p.parseUnarySend()
		if right == nil {
			return nil
		}
		left = &BinaryMessage{
			SpanVal:  MakeSpan(left.Span().Start, right.Span().End),
			Receiver: left,
			Selector: selector,
			Argument: right,
		}
	}
	return left
}

// parseCascade parses cascaded messages; first is the first message send.
func (p *Parser) parseCascade(first Expr) Expr {
	var receiver Expr
	var messages []CascadedMessage

	switch msg := first.(type) {
	case *UnaryMessage:
		receiver = msg.Receiver
		messages = append(messages, CascadedMessage{Selector: msg.Selector})
	case *BinaryMessage:
		receiver = msg.Receiver
		messages = append(messages, CascadedMessage{Selector: msg.Selector, Arguments: []Expr{msg.Argument}})
	case *KeywordMessage:
		receiver = msg.Receiver
		messages = append(messages, CascadedMessage{Selector: msg.Selector, Arguments: msg.Arguments})
	default:
		p.errorf("cascade requires a message send")
		return nil
	}

	for p.curTokenIs(TokenSemicolon) {
		p.nextToken() // consume ;
		msg := p.parseCascadedMessage()
		if msg == nil {
			return nil
		}
		messages = append(messages, *msg)
	}

	return &Cascade{
		SpanVal:  MakeSpan(first.Span().Start, p.curToken.Pos),
		Receiver: receiver,
		Messages: messages,
	}
}

// parseCascadedMessage parses a single cascaded message (without receiver).
func (p *Parser) parseCascadedMessage() *CascadedMessage {
	switch {
	case p.curTokenIs(TokenIdentifier):
		selector := p.curToken.Literal
		p.nextToken()
		return &CascadedMessage{Selector: selector}

	case p.curTokenIs(TokenBinarySelector) || p.curTokenIs(TokenBar):
		selector := p.curToken.Literal
		p.nextToken()
		arg := p.parseUnarySend()
		if arg == nil {
			return nil
		}
		return &CascadedMessage{Selector: selector, Arguments: []Expr{arg}}

	case p.curTokenIs(TokenKeyword):
		selector, args := p.parseKeywordArgs()
		if selector == "" {
			return nil
		}
		return &CascadedMessage{Selector: selector, Arguments: args}

	default:
		p.errorf("expected message in cascade")
		return nil
	}
}

// parseUnarySend parses unary message sends (highest precedence).
func (p *Parser) parseUnarySend() Expr {
	primary := p.parsePrimary()
	if primary == nil {
		return nil
	}

	for p.curTokenIs(TokenIdentifier) && !p.peekTokenIs(TokenAssign) {
		selector := p.curToken.Literal
		end := p.curToken.Pos
		p.nextToken()
		primary = &UnaryMessage{
			SpanVal:  MakeSpan(primary.Span().Start, end),
			Receiver: primary,
			Selector: selector,
		}
	}
	return primary
}

// parsePrimary parses primary expressions.
func (p *Parser) parsePrimary() Expr {
	switch p.curToken.Type {
	case TokenInteger:
		return p.parseInteger()
	case TokenFloat:
		return p.parseFloat()
	case TokenString, TokenCharacter:
		return p.parseString()
	case TokenSymbol:
		return p.parseSymbol()
	case TokenHashLParen:
		return p.parseLiteralArray()
	case TokenLParen:
		return p.parseParenExpr()
	case TokenLBracket:
		return p.parseBlock()
	case TokenLBrace:
		return p.parseDynamicArray()
	case TokenIdentifier:
		return p.parseIdentifier()
	case TokenSelf:
		return &Self{SpanVal: p.consumeSpan()}
	case TokenSuper:
		return &Super{SpanVal: p.consumeSpan()}
	case TokenNil:
		return &NilLiteral{SpanVal: p.consumeSpan()}
	case TokenTrue:
		return &TrueLiteral{SpanVal: p.consumeSpan()}
	case TokenFalse:
		return &FalseLiteral{SpanVal: p.consumeSpan()}
	default:
		p.errorf("unexpected %s", p.describe(p.curToken))
		return nil
	}
}

// consumeSpan returns the span of the current token and advances.
func (p *Parser) consumeSpan() Span {
	pos := p.curToken.Pos
	p.nextToken()
	return MakeSpan(pos, p.curToken.Pos)
}

// ---------------------------------------------------------------------------
// Literal parsing
// ---------------------------------------------------------------------------

func (p *Parser) parseInteger() Expr {
	pos := p.curToken.Pos
	literal := p.curToken.Literal

	var value int64
	var err error
	if idx := strings.Index(literal, "r"); idx > 0 {
		neg := strings.HasPrefix(literal, "-")
		radix, rerr := strconv.ParseInt(strings.TrimPrefix(literal[:idx], "-"), 10, 64)
		if rerr != nil || radix < 2 || radix > 36 {
			err = fmt.Errorf("bad radix")
		} else {
			value, err = strconv.ParseInt(literal[idx+1:], int(radix), 64)
			if neg {
				value = -value
			}
		}
	} else {
		value, err = strconv.ParseInt(literal, 10, 64)
	}
	if err != nil {
		p.errorf("invalid integer: %s", literal)
		value = 0
	}

	p.nextToken()
	return &IntLiteral{
		SpanVal: MakeSpan(pos, p.curToken.Pos),
		Value:   value,
	}
}

func (p *Parser) parseFloat() Expr {
	pos := p.curToken.Pos
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf("invalid float: %s", p.curToken.Literal)
		value = 0
	}
	p.nextToken()
	return &FloatLiteral{
		SpanVal: MakeSpan(pos, p.curToken.Pos),
		Value:   value,
	}
}

func (p *Parser) parseString() Expr {
	pos := p.curToken.Pos
	value := p.curToken.Literal
	p.nextToken()
	return &StringLiteral{
		SpanVal: MakeSpan(pos, p.curToken.Pos),
		Value:   value,
	}
}

func (p *Parser) parseSymbol() Expr {
	pos := p.curToken.Pos
	value := p.curToken.Literal
	p.nextToken()
	return &SymbolLiteral{
		SpanVal: MakeSpan(pos, p.curToken.Pos),
		Value:   value,
	}
}

func (p *Parser) parseLiteralArray() Expr {
	pos := p.curToken.Pos
	p.nextToken() // consume #( or (

	var elements []Expr
	for !p.curTokenIs(TokenRParen) && !p.curTokenIs(TokenEOF) {
		elem := p.parseLiteralArrayElement()
		if elem == nil {
			return nil
		}
		elements = append(elements, elem)
	}
	if !p.expect(TokenRParen) {
		return nil
	}

	return &ArrayLiteral{
		SpanVal:  MakeSpan(pos, p.curToken.Pos),
		Elements: elements,
	}
}

func (p *Parser) parseLiteralArrayElement() Expr {
	switch p.curToken.Type {
	case TokenInteger:
		return p.parseInteger()
	case TokenFloat:
		return p.parseFloat()
	case TokenString, TokenCharacter:
		return p.parseString()
	case TokenSymbol:
		return p.parseSymbol()
	case TokenKeyword, TokenIdentifier:
		// Bare words inside literal arrays are symbols.
		return p.parseSymbol()
	case TokenBinarySelector:
		if p.curToken.Literal == "-" && (p.peekTokenIs(TokenInteger) || p.peekTokenIs(TokenFloat)) {
			p.nextToken()
			switch lit := p.parseLiteralArrayElement().(type) {
			case *IntLiteral:
				lit.Value = -lit.Value
				return lit
			case *FloatLiteral:
				lit.Value = -lit.Value
				return lit
			}
			return nil
		}
		return p.parseSymbol()
	case TokenHashLParen, TokenLParen:
		return p.parseLiteralArray()
	case TokenNil:
		return &NilLiteral{SpanVal: p.consumeSpan()}
	case TokenTrue:
		return &TrueLiteral{SpanVal: p.consumeSpan()}
	case TokenFalse:
		return &FalseLiteral{SpanVal: p.consumeSpan()}
	default:
		p.errorf("unexpected %s in literal array", p.describe(p.curToken))
		return nil
	}
}

func (p *Parser) parseParenExpr() Expr {
	p.nextToken() // consume (
	expr := p.parseKeywordSend()
	if expr == nil {
		return nil
	}
	if !p.expect(TokenRParen) {
		return nil
	}
	return expr
}

func (p *Parser) parseDynamicArray() Expr {
	pos := p.curToken.Pos
	p.nextToken() // consume {

	var elements []Expr
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		elem := p.parseKeywordSend()
		if elem == nil {
			return nil
		}
		elements = append(elements, elem)
		if p.curTokenIs(TokenPeriod) {
			p.nextToken()
		} else if !p.curTokenIs(TokenRBrace) {
			break
		}
	}
	if !p.expect(TokenRBrace) {
		return nil
	}

	return &DynamicArray{
		SpanVal:  MakeSpan(pos, p.curToken.Pos),
		Elements: elements,
	}
}

func (p *Parser) parseBlock() Expr {
	pos := p.curToken.Pos
	p.nextToken() // consume [

	var params []string
	for p.curTokenIs(TokenColon) {
		p.nextToken() // consume :
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected parameter name after :")
			return nil
		}
		params = append(params, p.curToken.Literal)
		p.nextToken()
	}
	if len(params) > 0 && !p.curTokenIs(TokenRBracket) {
		if !p.expect(TokenBar) {
			return nil
		}
	}

	var temps []string
	if p.curTokenIs(TokenBar) {
		temps = p.parseTemporaries()
	}

	stmts := p.ParseStatements()
	if !p.expect(TokenRBracket) {
		return nil
	}

	return &Block{
		SpanVal:    MakeSpan(pos, p.curToken.Pos),
		Parameters: params,
		Temps:      temps,
		Statements: stmts,
	}
}

func (p *Parser) parseIdentifier() Expr {
	pos := p.curToken.Pos
	name := p.curToken.Literal
	p.nextToken()

	if p.curTokenIs(TokenAssign) {
		p.nextToken() // consume :=
		value := p.parseKeywordSend()
		if value == nil {
			return nil
		}
		return &Assignment{
			SpanVal:  MakeSpan(pos, value.Span().End),
			Variable: name,
			Value:    value,
		}
	}

	return &Variable{
		SpanVal: MakeSpan(pos, p.curToken.Pos),
		Name:    name,
	}
}

// ---------------------------------------------------------------------------
// Source file parsing (class definitions)
// ---------------------------------------------------------------------------

// ParseSourceFile parses a complete source file of class definitions.
//
// File format:
//
//	Counter subclass: Object
//	  instanceVars: count
//	  method: increment [ count := count + 1. ^count ]
//	  classMethod: new [ ^super new init ]
func (p *Parser) ParseSourceFile() *SourceFile {
	startPos := p.curToken.Pos
	sf := &SourceFile{}

	for !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenKeyword) && p.peekToken.Literal == "subclass:" {
			classStart := p.curToken.Pos
			name := p.curToken.Literal
			p.nextToken()
			if classDef := p.parseClassDefBody(name, classStart); classDef != nil {
				sf.Classes = append(sf.Classes, classDef)
			}
			continue
		}
		p.errorf("expected class definition, got %s", p.describe(p.curToken))
		p.skipUntilClass()
	}

	sf.SpanVal = MakeSpan(startPos, p.curToken.Pos)
	return sf
}

// atClassStart reports whether the parser sits on `Name subclass:`.
func (p *Parser) atClassStart() bool {
	return p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenKeyword) && p.peekToken.Literal == "subclass:"
}

func (p *Parser) skipUntilClass() {
	for !p.curTokenIs(TokenEOF) && !p.atClassStart() {
		p.nextToken()
	}
}

// parseClassDefBody parses the body of a class definition after the class name.
func (p *Parser) parseClassDefBody(className string, startPos Position) *ClassDef {
	p.nextToken() // consume "subclass:"

	var superclass string
	switch {
	case p.curTokenIs(TokenIdentifier):
		superclass = p.curToken.Literal
		p.nextToken()
	case p.curTokenIs(TokenNil):
		superclass = "nil"
		p.nextToken()
	default:
		p.errorf("expected superclass name after 'subclass:'")
		p.skipUntilClass()
		return nil
	}

	classDef := &ClassDef{
		Name:       className,
		Superclass: superclass,
	}

	for !p.curTokenIs(TokenEOF) && !p.atClassStart() {
		switch {
		case p.curTokenIs(TokenDocstring):
			classDef.Doc = p.curToken.Literal
			p.nextToken()

		case p.curTokenIs(TokenKeyword) && (p.curToken.Literal == "instanceVars:" || p.curToken.Literal == "instanceVariables:"):
			classDef.InstanceVariables = append(classDef.InstanceVariables, p.parseInstanceVars()...)

		case p.curTokenIs(TokenKeyword) && p.curToken.Literal == "method:":
			if m := p.parseMethodInBrackets(); m != nil {
				classDef.Methods = append(classDef.Methods, m)
			}

		case p.curTokenIs(TokenKeyword) && p.curToken.Literal == "classMethod:":
			if m := p.parseMethodInBrackets(); m != nil {
				classDef.ClassMethods = append(classDef.ClassMethods, m)
			}

		default:
			p.errorf("unexpected %s in body of %s", p.describe(p.curToken), className)
			p.skipClassBodyNoise()
		}
	}

	classDef.SpanVal = MakeSpan(startPos, p.curToken.Pos)
	return classDef
}

// skipClassBodyNoise skips tokens until something that can start a class
// body element.
func (p *Parser) skipClassBodyNoise() {
	p.nextToken()
	for !p.curTokenIs(TokenEOF) && !p.atClassStart() {
		if p.curTokenIs(TokenKeyword) {
			switch p.curToken.Literal {
			case "method:", "classMethod:", "instanceVars:", "instanceVariables:":
				return
			}
		}
		p.nextToken()
	}
}

// parseInstanceVars parses instance variable declarations.
// Format: instanceVars: name1 name2 name3
// OR:     instanceVariables: 'name1 name2 name3'
func (p *Parser) parseInstanceVars() []string {
	p.nextToken() // consume "instanceVars:" or "instanceVariables:"

	if p.curTokenIs(TokenString) {
		str := p.curToken.Literal
		p.nextToken()
		return strings.Fields(str)
	}

	var vars []string
	for p.curTokenIs(TokenIdentifier) && !p.atClassStart() {
		vars = append(vars, p.curToken.Literal)
		p.nextToken()
	}
	return vars
}

// parseMethodInBrackets parses `method: selector [body]` or
// `classMethod: selector [body]`.
func (p *Parser) parseMethodInBrackets() *MethodDef {
	startPos := p.curToken.Pos
	p.nextToken() // consume "method:" or "classMethod:"

	selector, params := p.parseMethodSignature()
	if selector == "" {
		p.skipClassBodyNoise()
		return nil
	}

	if !p.curTokenIs(TokenLBracket) {
		p.errorf("expected '[' after method signature")
		p.skipClassBodyNoise()
		return nil
	}
	bodyStart := p.curToken.Pos.Offset
	p.nextToken() // consume [

	var doc string
	if p.curTokenIs(TokenDocstring) {
		doc = p.curToken.Literal
		p.nextToken()
	}

	var temps []string
	if p.curTokenIs(TokenBar) {
		temps = p.parseTemporaries()
	}

	stmts := p.ParseStatements()
	if !p.curTokenIs(TokenRBracket) {
		p.errorf("expected ']' to close method %s, got %s", selector, p.describe(p.curToken))
		p.syncBracket()
		return nil
	}
	bodyEnd := p.curToken.Pos.Offset + 1
	p.nextToken() // consume ]

	return &MethodDef{
		SpanVal:    MakeSpan(startPos, p.curToken.Pos),
		Selector:   selector,
		Parameters: params,
		Temps:      temps,
		Statements: stmts,
		Doc:        doc,
		SourceText: p.input[bodyStart:bodyEnd],
	}
}

// syncBracket skips to just past the ']' that closes the current method body.
func (p *Parser) syncBracket() {
	depth := 0
	for !p.curTokenIs(TokenEOF) {
		switch {
		case p.curTokenIs(TokenLBracket):
			depth++
		case p.curTokenIs(TokenRBracket):
			if depth == 0 {
				p.nextToken()
				return
			}
			depth--
		}
		p.nextToken()
	}
}
