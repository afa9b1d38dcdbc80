// Package ast defines the syntax tree for SysY, the C subset accepted by the
// compiler. Every syntax category is a closed set of node types selected with
// a type switch.
package ast

// Node is the base interface for all syntax tree nodes
type Node interface {
	implNode()
}

// Expr is the interface for all expression nodes
type Expr interface {
	Node
	implExpr()
}

// BlockItem is a declaration or a statement inside a block
type BlockItem interface {
	Node
	implBlockItem()
}

// Stmt is the interface for all statement nodes
type Stmt interface {
	BlockItem
	implStmt()
}

// TopLevel is a global declaration or a function definition
type TopLevel interface {
	Node
	implTopLevel()
}

// BinaryOp represents binary operators
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd // &&
	OpOr  // ||
)

func (op BinaryOp) String() string {
	names := []string{"+", "-", "*", "/", "%", "<", "<=", ">", ">=", "==", "!=", "&&", "||"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// UnaryOp represents unary operators
type UnaryOp int

const (
	OpPlus UnaryOp = iota // +
	OpNeg                 // -
	OpNot                 // !
)

func (op UnaryOp) String() string {
	names := []string{"+", "-", "!"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// Pos is a source position (1-based)
type Pos struct {
	Line, Col int
}

// --- Expressions ---

// Number is an integer literal
type Number struct {
	Value int32
}

// LVal names a variable, optionally indexed: a, a[i], a[i][j]
type LVal struct {
	Pos     Pos
	Name    string
	Indices []Expr
}

// Call is a function call
type Call struct {
	Pos  Pos
	Name string
	Args []Expr
}

// Unary is a unary expression
type Unary struct {
	Op UnaryOp
	X  Expr
}

// Binary is a binary expression, including the short-circuit operators
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// --- Declarations ---

// InitVal is either a single expression or a brace list
type InitVal struct {
	Expr Expr       // set for a scalar initializer
	List []*InitVal // set for a brace list (may be empty)
}

// IsList reports whether the initializer is a brace list
func (iv *InitVal) IsList() bool {
	return iv.Expr == nil
}

// Def declares one name: x, x = 1, a[2][3] = {...}
type Def struct {
	Pos  Pos
	Name string
	Dims []Expr // constant expressions
	Init *InitVal
}

// Decl is a const or variable declaration list
type Decl struct {
	Const bool
	Defs  []*Def
}

// Param is a function parameter; array parameters omit the first dimension
type Param struct {
	Name    string
	IsArray bool
	Dims    []Expr // dimensions after the leading []
}

// FuncDef is a function definition
type FuncDef struct {
	Pos    Pos
	Void   bool
	Name   string
	Params []*Param
	Body   *Block
}

// CompUnit is a whole translation unit
type CompUnit struct {
	Items []TopLevel
}

// --- Statements ---

// Block is a braced sequence of declarations and statements
type Block struct {
	Items []BlockItem
}

// Assign stores into an lvalue
type Assign struct {
	Target *LVal
	Value  Expr
}

// ExprStmt evaluates an expression for its effects; Expr is nil for ";"
type ExprStmt struct {
	Expr Expr
}

// If is the open form: an if without an else
type If struct {
	Cond Expr
	Then Stmt
}

// IfElse is the closed form: both branches present
type IfElse struct {
	Cond Expr
	Then Stmt
	Else Stmt
}

// While is a pre-tested loop
type While struct {
	Cond Expr
	Body Stmt
}

// Break leaves the innermost loop
type Break struct {
	Pos Pos
}

// Continue restarts the innermost loop
type Continue struct {
	Pos Pos
}

// Return leaves the function
type Return struct {
	Value Expr // nil for bare return
}

// Marker methods for interface implementation
func (*Number) implNode() {}
func (*Number) implExpr() {}

func (*LVal) implNode() {}
func (*LVal) implExpr() {}

func (*Call) implNode() {}
func (*Call) implExpr() {}

func (*Unary) implNode() {}
func (*Unary) implExpr() {}

func (*Binary) implNode() {}
func (*Binary) implExpr() {}

func (*Decl) implNode()      {}
func (*Decl) implBlockItem() {}
func (*Decl) implTopLevel()  {}

func (*FuncDef) implNode()     {}
func (*FuncDef) implTopLevel() {}

func (*Block) implNode()      {}
func (*Block) implStmt()      {}
func (*Block) implBlockItem() {}

func (*Assign) implNode()      {}
func (*Assign) implStmt()      {}
func (*Assign) implBlockItem() {}

func (*ExprStmt) implNode()      {}
func (*ExprStmt) implStmt()      {}
func (*ExprStmt) implBlockItem() {}

func (*If) implNode()      {}
func (*If) implStmt()      {}
func (*If) implBlockItem() {}

func (*IfElse) implNode()      {}
func (*IfElse) implStmt()      {}
func (*IfElse) implBlockItem() {}

func (*While) implNode()      {}
func (*While) implStmt()      {}
func (*While) implBlockItem() {}

func (*Break) implNode()      {}
func (*Break) implStmt()      {}
func (*Break) implBlockItem() {}

func (*Continue) implNode()      {}
func (*Continue) implStmt()      {}
func (*Continue) implBlockItem() {}

func (*Return) implNode()      {}
func (*Return) implStmt()      {}
func (*Return) implBlockItem() {}
