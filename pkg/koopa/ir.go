// Package koopa defines the block-structured intermediate representation
// between the syntax tree and RISC-V assembly. Values are named: globals and
// functions carry an '@' prefix, everything function-local a '%' prefix, and
// compiler temporaries are numeric ("%3").
package koopa

// --- Values ---

// Value is an operand: *Symbol, *Integer or *Undef
type Value interface {
	implValue()
}

// Symbol references a named value
type Symbol struct {
	Name string
}

// Integer is a 32-bit literal
type Integer struct {
	Value int32
}

// Undef is an unspecified value
type Undef struct{}

// Sym is shorthand for &Symbol{name}
func Sym(name string) Value { return &Symbol{Name: name} }

// Int is shorthand for &Integer{v}
func Int(v int32) Value { return &Integer{Value: v} }

// --- Initializers ---

// Initializer describes the initial contents of a memory slot
type Initializer interface {
	implInit()
}

// IntInit is a literal initial value
type IntInit struct {
	Value int32
}

// UndefInit leaves memory unspecified
type UndefInit struct{}

// Aggregate initializes an array element by element
type Aggregate struct {
	Elems []Initializer
}

// ZeroInit fills the whole slot with zeros
type ZeroInit struct{}

// --- Statements ---

// Stmt is a non-terminator statement: *Def, *Store, *StoreInit or *CallStmt
type Stmt interface {
	implStmt()
}

// Def binds a fresh name to the result of an operation
type Def struct {
	Name string
	Op   Operation
}

// Operation is the right-hand side of a Def
type Operation interface {
	implOperation()
}

// Alloc reserves a slot of type Type; the defined name is a pointer to it
type Alloc struct {
	Type Type
}

// Load reads through a pointer
type Load struct {
	Src string
}

// GetPtr offsets a pointer by Index elements of its pointee type
type GetPtr struct {
	Src   string
	Index Value
}

// GetElemPtr addresses element Index of the array Src points to
type GetElemPtr struct {
	Src   string
	Index Value
}

// Binary applies a two-operand operator
type Binary struct {
	Op  BinaryOp
	LHS Value
	RHS Value
}

// Call invokes a function
type Call struct {
	Callee string
	Args   []Value
}

// Store writes a value through a pointer
type Store struct {
	Value Value
	Dest  string
}

// StoreInit writes an initializer into a stack slot
type StoreInit struct {
	Init Initializer
	Dest string
}

// CallStmt is a call whose result, if any, is discarded
type CallStmt struct {
	Call *Call
}

// BinaryOp enumerates the binary operators
type BinaryOp int

const (
	OpNe BinaryOp = iota
	OpEq
	OpGt
	OpLt
	OpGe
	OpLe
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpSar
)

func (op BinaryOp) String() string {
	names := []string{"ne", "eq", "gt", "lt", "ge", "le", "add", "sub", "mul",
		"div", "mod", "and", "or", "xor", "shl", "shr", "sar"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// --- Terminators ---

// Terminator ends a block: *Branch, *Jump or *Return
type Terminator interface {
	implTerminator()
}

// Branch jumps to True if Cond is non-zero, otherwise to False
type Branch struct {
	Cond  Value
	True  string
	False string
}

// Jump transfers control unconditionally
type Jump struct {
	Target string
}

// Return leaves the function; Value is nil for void functions
type Return struct {
	Value Value
}

// --- Structure ---

// Block is a basic block. Preds/Succs are indices into the owning function's
// Blocks and are only valid after the CFG has been built. LiveAfter runs
// parallel to Stmts and, together with TermLive, is filled by liveness
// analysis.
type Block struct {
	Label     string
	Stmts     []Stmt
	Term      Terminator
	LoopDepth int // while-nesting depth at which the block was created

	Preds []int
	Succs []int

	LiveAfter []NameSet
	TermLive  NameSet
}

// Param is a function parameter
type Param struct {
	Name string
	Type Type
}

// Function is a function definition. Blocks[0] is the entry block.
type Function struct {
	Name   string
	Params []Param
	Ret    Type // nil for void
	Blocks []*Block
}

// FuncDecl declares an externally defined function
type FuncDecl struct {
	Name   string
	Params []Type
	Ret    Type
}

// Global is a global variable; Type is the type of the slot
type Global struct {
	Name string
	Type Type
	Init Initializer
}

// Program is a whole translation unit
type Program struct {
	Decls   []FuncDecl
	Globals []Global
	Funcs   []*Function
}

// BlockIndex returns the position of the block with the given label, or -1
func (f *Function) BlockIndex(label string) int {
	for i, b := range f.Blocks {
		if b.Label == label {
			return i
		}
	}
	return -1
}

// Marker methods for interface implementation
func (*Symbol) implValue()  {}
func (*Integer) implValue() {}
func (*Undef) implValue()   {}

func (*IntInit) implInit()   {}
func (*UndefInit) implInit() {}
func (*Aggregate) implInit() {}
func (*ZeroInit) implInit()  {}

func (*Def) implStmt()       {}
func (*Store) implStmt()     {}
func (*StoreInit) implStmt() {}
func (*CallStmt) implStmt()  {}

func (*Alloc) implOperation()      {}
func (*Load) implOperation()       {}
func (*GetPtr) implOperation()     {}
func (*GetElemPtr) implOperation() {}
func (*Binary) implOperation()     {}
func (*Call) implOperation()       {}

func (*Branch) implTerminator() {}
func (*Jump) implTerminator()   {}
func (*Return) implTerminator() {}
