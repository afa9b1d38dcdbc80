// Package riscv defines the RV32IM assembly representation.
// This is the final output of the compiler. Instructions are grouped by
// encoding format; pseudo-instructions the assembler expands (li, la, mv,
// call, ret, ...) are modeled directly.
package riscv

// Reg is an integer register x0..x31
type Reg int

const (
	Zero Reg = iota // x0, hardwired zero
	RA              // x1, return address
	SP              // x2, stack pointer
	GP
	TP
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6
)

var regNames = [...]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

func (r Reg) String() string {
	if r >= 0 && int(r) < len(regNames) {
		return regNames[r]
	}
	return "x?"
}

// ArgRegs are the argument registers in ABI order
var ArgRegs = [8]Reg{A0, A1, A2, A3, A4, A5, A6, A7}

// Allocatable lists the registers handed out by the register allocator, in
// color order: argument class, temporary class, callee-saved class. t0 and
// t1 are reserved as scratch registers.
var Allocatable = [25]Reg{
	A0, A1, A2, A3, A4, A5, A6, A7,
	T2, T3, T4, T5, T6,
	S0, S1, S2, S3, S4, S5, S6, S7, S8, S9, S10, S11,
}

// IsArg reports whether r passes arguments
func IsArg(r Reg) bool { return r >= A0 && r <= A7 }

// IsTemp reports whether r is an allocatable temporary (t2..t6)
func IsTemp(r Reg) bool { return r == T2 || (r >= T3 && r <= T6) }

// IsCalleeSaved reports whether a callee must preserve r
func IsCalleeSaved(r Reg) bool {
	return r == S0 || r == S1 || (r >= S2 && r <= S11)
}

// Label is a branch target
type Label string

// ImmMin and ImmMax bound the 12-bit signed immediate field
const (
	ImmMin = -2048
	ImmMax = 2047
)

// FitsImm reports whether v fits an I-type or S-type immediate
func FitsImm(v int32) bool { return v >= ImmMin && v <= ImmMax }

// --- Instruction Interface ---

// Instruction is the interface for RV32 instructions and labels
type Instruction interface {
	implInstruction()
}

// ROp is a register-register operation
type ROp int

const (
	ADD ROp = iota
	SUB
	MUL
	DIV
	REM
	AND
	OR
	XOR
	SLL
	SRL
	SRA
	SLT
	SGT
)

var rOpNames = [...]string{"add", "sub", "mul", "div", "rem", "and", "or", "xor", "sll", "srl", "sra", "slt", "sgt"}

func (op ROp) String() string { return rOpNames[op] }

// IOp is a register-immediate operation
type IOp int

const (
	ADDI IOp = iota
	ANDI
	ORI
	XORI
	SLLI
	SRLI
	SRAI
	SLTI
)

var iOpNames = [...]string{"addi", "andi", "ori", "xori", "slli", "srli", "srai", "slti"}

func (op IOp) String() string { return iOpNames[op] }

// UOp is a one-source pseudo-instruction
type UOp int

const (
	MV UOp = iota
	NEG
	SEQZ
	SNEZ
)

var uOpNames = [...]string{"mv", "neg", "seqz", "snez"}

func (op UOp) String() string { return uOpNames[op] }

// BOp is a two-register conditional branch
type BOp int

const (
	BEQ BOp = iota
	BNE
	BLT
	BGE
)

var bOpNames = [...]string{"beq", "bne", "blt", "bge"}

func (op BOp) String() string { return bOpNames[op] }

// RType computes Rd = Rs1 op Rs2
type RType struct {
	Op       ROp
	Rd       Reg
	Rs1, Rs2 Reg
}

// IType computes Rd = Rs1 op Imm
type IType struct {
	Op  IOp
	Rd  Reg
	Rs1 Reg
	Imm int32
}

// Unary computes Rd = op Rs
type Unary struct {
	Op UOp
	Rd Reg
	Rs Reg
}

// Li loads a 32-bit constant
type Li struct {
	Rd  Reg
	Imm int32
}

// La loads the address of a symbol
type La struct {
	Rd     Reg
	Symbol string
}

// Lw loads a word from Offset(Base)
type Lw struct {
	Rd     Reg
	Base   Reg
	Offset int32
}

// Sw stores a word to Offset(Base)
type Sw struct {
	Src    Reg
	Base   Reg
	Offset int32
}

// Branch jumps to Target when Rs1 op Rs2 holds
type Branch struct {
	Op       BOp
	Rs1, Rs2 Reg
	Target   Label
}

// Bnez jumps to Target when Rs is non-zero
type Bnez struct {
	Rs     Reg
	Target Label
}

// J jumps unconditionally
type J struct {
	Target Label
}

// Call calls a function by name
type Call struct {
	Target string
}

// Ret returns to ra
type Ret struct{}

// LabelDef defines a label
type LabelDef struct {
	Name Label
}

func (RType) implInstruction()    {}
func (IType) implInstruction()    {}
func (Unary) implInstruction()    {}
func (Li) implInstruction()       {}
func (La) implInstruction()       {}
func (Lw) implInstruction()       {}
func (Sw) implInstruction()       {}
func (Branch) implInstruction()   {}
func (Bnez) implInstruction()     {}
func (J) implInstruction()        {}
func (Call) implInstruction()     {}
func (Ret) implInstruction()      {}
func (LabelDef) implInstruction() {}

// --- Data ---

// Directive is one item of a global's initial contents
type Directive interface {
	implDirective()
}

// Word emits one 32-bit value
type Word struct {
	Value int32
}

// ZeroBytes emits Size zero bytes
type ZeroBytes struct {
	Size int
}

func (Word) implDirective()      {}
func (ZeroBytes) implDirective() {}

// --- Function and Program ---

// Function represents an assembly function
type Function struct {
	Name string
	Code []Instruction
}

// Global represents a global variable in the data section
type Global struct {
	Name string
	Data []Directive
}

// Program represents a complete assembly program
type Program struct {
	Globals   []Global
	Functions []*Function
}

// NewFunction creates a new assembly function
func NewFunction(name string) *Function {
	return &Function{Name: name}
}

// Append adds instructions to the function
func (f *Function) Append(insts ...Instruction) {
	f.Code = append(f.Code, insts...)
}

// AppendLabel adds a label definition
func (f *Function) AppendLabel(name Label) {
	f.Code = append(f.Code, LabelDef{Name: name})
}
