package compiler

// Position is a point in procedure source. Line and Column count from 1;
// Offset is in bytes.
type Position struct {
	Offset int
	Line   int
	Column int
}

// Span covers the text a node was parsed from.
type Span struct {
	Start Position
	End   Position
}

// MakeSpan returns the span from start to end.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// Node is any parsed construct. For procedures, span positions are relative
// to the wrapped class source and callers shift them back to the body.
type Node interface {
	Span() Span
	node()
}

// Expr is a node that yields a value.
type Expr interface {
	Node
	expr()
}

// Stmt is one period-separated statement of a method, block or doit.
type Stmt interface {
	Node
	stmt()
}

// exprNode and stmtNode supply the marker methods.
type exprNode struct{}

func (exprNode) node() {}
func (exprNode) expr() {}

type stmtNode struct{}

func (stmtNode) node() {}
func (stmtNode) stmt() {}

// Literals.

// IntLiteral holds an Integer constant with any radix prefix decoded.
type IntLiteral struct {
	exprNode
	SpanVal Span
	Value   int64
}

// FloatLiteral holds a Float constant.
type FloatLiteral struct {
	exprNode
	SpanVal Span
	Value   float64
}

// StringLiteral is 'text' with doubled quotes undone. A character
// constant such as $a is a one-character string.
type StringLiteral struct {
	exprNode
	SpanVal Span
	Value   string
}

// SymbolLiteral is #name or #with:with: without the hash.
type SymbolLiteral struct {
	exprNode
	SpanVal Span
	Value   string
}

// ArrayLiteral is #( ... ). Its elements are themselves literals.
type ArrayLiteral struct {
	exprNode
	SpanVal  Span
	Elements []Expr
}

// DynamicArray is { a. b + 1 }, built fresh each time it is evaluated.
type DynamicArray struct {
	exprNode
	SpanVal  Span
	Elements []Expr
}

// NilLiteral, TrueLiteral and FalseLiteral are the constant
// pseudo-variables.
type NilLiteral struct {
	exprNode
	SpanVal Span
}

type TrueLiteral struct {
	exprNode
	SpanVal Span
}

type FalseLiteral struct {
	exprNode
	SpanVal Span
}

// Names.

// Variable names a temporary, argument, instance variable or global class.
// Procedure parameters resolve as arguments of the generated method.
type Variable struct {
	exprNode
	SpanVal Span
	Name    string
}

// Self refers to the receiver. In a procedure body that is the
// per-transaction instance of the generated class.
type Self struct {
	exprNode
	SpanVal Span
}

// Super sends to the receiver, starting lookup above the defining class.
type Super struct {
	exprNode
	SpanVal Span
}

// Assignment stores Value into the named variable and yields it.
type Assignment struct {
	exprNode
	SpanVal  Span
	Variable string
	Value    Expr
}

// Sends.

// UnaryMessage is "rows size".
type UnaryMessage struct {
	exprNode
	SpanVal  Span
	Receiver Expr
	Selector string
}

// BinaryMessage is "a + b". Selector is the operator text.
type BinaryMessage struct {
	exprNode
	SpanVal  Span
	Receiver Expr
	Selector string
	Argument Expr
}

// KeywordMessage is "d at: k put: v". Selector joins the keywords, as in
// "at:put:", with one argument per keyword.
type KeywordMessage struct {
	exprNode
	SpanVal   Span
	Receiver  Expr
	Selector  string
	Arguments []Expr
}

// Cascade sends several messages to one receiver: "s add: 1; add: 2;
// yourself". Messages starts with the first send, and the value is that
// of the last.
type Cascade struct {
	exprNode
	SpanVal  Span
	Receiver Expr
	Messages []CascadedMessage
}

// CascadedMessage is one part of a Cascade. The receiver is implied.
type CascadedMessage struct {
	Selector  string
	Arguments []Expr
}

// Block is [:x :y | | t | stmts]. Blocks close over the enclosing frame.
type Block struct {
	exprNode
	SpanVal    Span
	Parameters []string
	Temps      []string
	Statements []Stmt
}

// Statements.

// ExprStmt evaluates Expr for effect.
type ExprStmt struct {
	stmtNode
	SpanVal Span
	Expr    Expr
}

// Return is ^expr. Inside a block it returns from the home method.
type Return struct {
	stmtNode
	SpanVal Span
	Value   Expr
}

// MethodDef is one "method: sel [ ... ]" or "classMethod: sel [ ... ]"
// clause. SourceText keeps the clause as written.
type MethodDef struct {
	SpanVal    Span
	Selector   string
	Parameters []string
	Temps      []string
	Statements []Stmt
	Doc        string
	SourceText string
}

// ClassDef is "Name subclass: Super" with its instance variables and
// methods. Procedures compile to exactly one ClassDef with one method.
type ClassDef struct {
	SpanVal           Span
	Name              string
	Superclass        string
	InstanceVariables []string
	Doc               string
	Methods           []*MethodDef
	ClassMethods      []*MethodDef
}

// SourceFile is the result of ParseSource.
type SourceFile struct {
	SpanVal Span
	Classes []*ClassDef
}

// DoIt is the result of ParseDoIt: optional temporaries then statements,
// run outside any class.
type DoIt struct {
	SpanVal    Span
	Temps      []string
	Statements []Stmt
}

func (n *IntLiteral) Span() Span     { return n.SpanVal }
func (n *FloatLiteral) Span() Span   { return n.SpanVal }
func (n *StringLiteral) Span() Span  { return n.SpanVal }
func (n *SymbolLiteral) Span() Span  { return n.SpanVal }
func (n *ArrayLiteral) Span() Span   { return n.SpanVal }
func (n *DynamicArray) Span() Span   { return n.SpanVal }
func (n *NilLiteral) Span() Span     { return n.SpanVal }
func (n *TrueLiteral) Span() Span    { return n.SpanVal }
func (n *FalseLiteral) Span() Span   { return n.SpanVal }
func (n *Variable) Span() Span       { return n.SpanVal }
func (n *Self) Span() Span           { return n.SpanVal }
func (n *Super) Span() Span          { return n.SpanVal }
func (n *Assignment) Span() Span     { return n.SpanVal }
func (n *UnaryMessage) Span() Span   { return n.SpanVal }
func (n *BinaryMessage) Span() Span  { return n.SpanVal }
func (n *KeywordMessage) Span() Span { return n.SpanVal }
func (n *Cascade) Span() Span        { return n.SpanVal }
func (n *Block) Span() Span          { return n.SpanVal }
func (n *ExprStmt) Span() Span       { return n.SpanVal }
func (n *Return) Span() Span         { return n.SpanVal }
func (n *MethodDef) Span() Span      { return n.SpanVal }
func (n *ClassDef) Span() Span       { return n.SpanVal }
func (n *SourceFile) Span() Span     { return n.SpanVal }
func (n *DoIt) Span() Span           { return n.SpanVal }

func (*MethodDef) node()  {}
func (*ClassDef) node()   {}
func (*SourceFile) node() {}
func (*DoIt) node()       {}
