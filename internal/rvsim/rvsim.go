// Package rvsim executes pkg/riscv programs on a simulated RV32IM machine.
// It runs the assembly representation directly, without encoding, and
// emulates the SysY runtime library. Tests use it to check emitted code
// against the IR interpreter.
//
// Beyond computing results it checks the calling convention: runtime
// calls clobber every caller-saved register, and main must return with
// sp and the callee-saved registers as it found them.
package rvsim

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/raymyers/sysy-cc/pkg/riscv"
)

// ErrStepLimit is returned when a program runs longer than Machine.MaxSteps
var ErrStepLimit = errors.New("step limit exceeded")

const (
	dataBase  = 0x1000
	stackTop  = 0x7fff0000
	returnPC  = -1         // ra of main; returning there ends the run
	clobbered = 0x5a5a5a5a // value left in caller-saved registers by runtime calls
)

// Result summarizes one run
type Result struct {
	Exit  int32 // a0 when main returns
	Steps int   // instructions executed
	Divs  int   // div and rem instructions executed
}

// Machine is one simulated hart with flat memory
type Machine struct {
	MaxSteps int

	code    []riscv.Instruction
	owner   []string // function each code index belongs to
	labels  map[riscv.Label]int
	entries map[string]int
	symbols map[string]int32

	regs [32]int32
	mem  map[int32]int32
	pc   int
	in   *bufio.Reader
	out  io.Writer
	res  Result
}

// Run executes main with the runtime library bound to in and out
func Run(prog *riscv.Program, in io.Reader, out io.Writer) (*Result, error) {
	m, err := New(prog, in, out)
	if err != nil {
		return nil, err
	}
	return m.Run()
}

// New links prog: code is laid out function by function, labels are
// resolved and globals are placed in memory
func New(prog *riscv.Program, in io.Reader, out io.Writer) (*Machine, error) {
	m := &Machine{
		MaxSteps: 100_000_000,
		labels:   make(map[riscv.Label]int),
		entries:  make(map[string]int),
		symbols:  make(map[string]int32),
		mem:      make(map[int32]int32),
		in:       bufio.NewReader(in),
		out:      out,
	}
	for _, f := range prog.Functions {
		if _, dup := m.entries[f.Name]; dup {
			return nil, fmt.Errorf("function %s defined twice", f.Name)
		}
		m.entries[f.Name] = len(m.code)
		for _, inst := range f.Code {
			if l, ok := inst.(riscv.LabelDef); ok {
				if _, dup := m.labels[l.Name]; dup {
					return nil, fmt.Errorf("label %s defined twice", l.Name)
				}
				m.labels[l.Name] = len(m.code)
			}
			m.code = append(m.code, inst)
			m.owner = append(m.owner, f.Name)
		}
	}

	addr := int32(dataBase)
	for _, g := range prog.Globals {
		m.symbols[g.Name] = addr
		for _, d := range g.Data {
			switch dd := d.(type) {
			case riscv.Word:
				m.mem[addr] = dd.Value
				addr += 4
			case riscv.ZeroBytes:
				addr += int32(dd.Size)
			}
		}
	}
	return m, nil
}

// Reg returns the current value of r
func (m *Machine) Reg(r riscv.Reg) int32 {
	return m.regs[r]
}

// Run executes main until it returns
func (m *Machine) Run() (*Result, error) {
	entry, ok := m.entries["main"]
	if !ok {
		return nil, errors.New("no main")
	}
	m.regs[riscv.SP] = stackTop
	m.regs[riscv.RA] = returnPC
	var saved [12]int32
	for i, r := range calleeSaved {
		saved[i] = int32(0x1000_0000 + i)
		m.regs[r] = saved[i]
	}

	m.pc = entry
	for m.pc != returnPC {
		if m.pc < 0 || m.pc >= len(m.code) {
			return nil, fmt.Errorf("jump to invalid code address %d", m.pc)
		}
		if err := m.exec(m.code[m.pc]); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", m.owner[m.pc], riscv.FormatInstruction(m.code[m.pc]), err)
		}
		if m.MaxSteps > 0 && m.res.Steps > m.MaxSteps {
			return nil, ErrStepLimit
		}
	}

	if sp := m.regs[riscv.SP]; sp != stackTop {
		return nil, fmt.Errorf("main returned with sp %#x, want %#x", sp, stackTop)
	}
	for i, r := range calleeSaved {
		if m.regs[r] != saved[i] {
			return nil, fmt.Errorf("main did not preserve %s", r)
		}
	}
	m.res.Exit = m.regs[riscv.A0]
	return &m.res, nil
}

var calleeSaved = [12]riscv.Reg{
	riscv.S0, riscv.S1, riscv.S2, riscv.S3, riscv.S4, riscv.S5,
	riscv.S6, riscv.S7, riscv.S8, riscv.S9, riscv.S10, riscv.S11,
}

func (m *Machine) set(r riscv.Reg, v int32) {
	if r != riscv.Zero {
		m.regs[r] = v
	}
}

func (m *Machine) jump(target riscv.Label) error {
	pc, ok := m.labels[target]
	if !ok {
		return fmt.Errorf("undefined label %s", target)
	}
	m.pc = pc
	return nil
}

func (m *Machine) load(addr int32) (int32, error) {
	if addr&3 != 0 {
		return 0, fmt.Errorf("misaligned load from %#x", addr)
	}
	if addr < dataBase {
		return 0, fmt.Errorf("load from invalid address %#x", addr)
	}
	return m.mem[addr], nil
}

func (m *Machine) store(addr, v int32) error {
	if addr&3 != 0 {
		return fmt.Errorf("misaligned store to %#x", addr)
	}
	if addr < dataBase {
		return fmt.Errorf("store to invalid address %#x", addr)
	}
	m.mem[addr] = v
	return nil
}

func (m *Machine) exec(inst riscv.Instruction) error {
	if _, ok := inst.(riscv.LabelDef); ok {
		m.pc++
		return nil
	}
	m.res.Steps++
	next := m.pc + 1
	r := &m.regs

	switch i := inst.(type) {
	case riscv.RType:
		v, err := m.rtype(i.Op, r[i.Rs1], r[i.Rs2])
		if err != nil {
			return err
		}
		m.set(i.Rd, v)
	case riscv.IType:
		v, err := itype(i.Op, r[i.Rs1], i.Imm)
		if err != nil {
			return err
		}
		m.set(i.Rd, v)
	case riscv.Unary:
		m.set(i.Rd, unary(i.Op, r[i.Rs]))
	case riscv.Li:
		m.set(i.Rd, i.Imm)
	case riscv.La:
		addr, ok := m.symbols[i.Symbol]
		if !ok {
			return fmt.Errorf("undefined symbol %s", i.Symbol)
		}
		m.set(i.Rd, addr)
	case riscv.Lw:
		if !riscv.FitsImm(i.Offset) {
			return fmt.Errorf("offset %d out of range", i.Offset)
		}
		v, err := m.load(r[i.Base] + i.Offset)
		if err != nil {
			return err
		}
		m.set(i.Rd, v)
	case riscv.Sw:
		if !riscv.FitsImm(i.Offset) {
			return fmt.Errorf("offset %d out of range", i.Offset)
		}
		if err := m.store(r[i.Base]+i.Offset, r[i.Src]); err != nil {
			return err
		}
	case riscv.Branch:
		if branchTaken(i.Op, r[i.Rs1], r[i.Rs2]) {
			return m.jump(i.Target)
		}
	case riscv.Bnez:
		if r[i.Rs] != 0 {
			return m.jump(i.Target)
		}
	case riscv.J:
		return m.jump(i.Target)
	case riscv.Call:
		if entry, ok := m.entries[i.Target]; ok {
			m.set(riscv.RA, int32(next))
			m.pc = entry
			return nil
		}
		if err := m.runtime(i.Target); err != nil {
			return err
		}
	case riscv.Ret:
		m.pc = int(r[riscv.RA])
		return nil
	default:
		return fmt.Errorf("unknown instruction %T", inst)
	}
	m.pc = next
	return nil
}

// rtype follows RV32M for division: x/0 = -1 and x%0 = x
func (m *Machine) rtype(op riscv.ROp, a, b int32) (int32, error) {
	switch op {
	case riscv.ADD:
		return a + b, nil
	case riscv.SUB:
		return a - b, nil
	case riscv.MUL:
		return a * b, nil
	case riscv.DIV:
		m.res.Divs++
		if b == 0 {
			return -1, nil
		}
		return a / b, nil
	case riscv.REM:
		m.res.Divs++
		if b == 0 {
			return a, nil
		}
		return a % b, nil
	case riscv.AND:
		return a & b, nil
	case riscv.OR:
		return a | b, nil
	case riscv.XOR:
		return a ^ b, nil
	case riscv.SLL:
		return a << (uint32(b) & 31), nil
	case riscv.SRL:
		return int32(uint32(a) >> (uint32(b) & 31)), nil
	case riscv.SRA:
		return a >> (uint32(b) & 31), nil
	case riscv.SLT:
		return bool32(a < b), nil
	case riscv.SGT:
		return bool32(a > b), nil
	}
	return 0, fmt.Errorf("unknown operation %d", op)
}

func itype(op riscv.IOp, a, imm int32) (int32, error) {
	switch op {
	case riscv.SLLI, riscv.SRLI, riscv.SRAI:
		if imm < 0 || imm > 31 {
			return 0, fmt.Errorf("shift amount %d out of range", imm)
		}
	default:
		if !riscv.FitsImm(imm) {
			return 0, fmt.Errorf("immediate %d out of range", imm)
		}
	}
	switch op {
	case riscv.ADDI:
		return a + imm, nil
	case riscv.ANDI:
		return a & imm, nil
	case riscv.ORI:
		return a | imm, nil
	case riscv.XORI:
		return a ^ imm, nil
	case riscv.SLLI:
		return a << uint32(imm), nil
	case riscv.SRLI:
		return int32(uint32(a) >> uint32(imm)), nil
	case riscv.SRAI:
		return a >> uint32(imm), nil
	case riscv.SLTI:
		return bool32(a < imm), nil
	}
	return 0, fmt.Errorf("unknown operation %d", op)
}

func unary(op riscv.UOp, a int32) int32 {
	switch op {
	case riscv.NEG:
		return -a
	case riscv.SEQZ:
		return bool32(a == 0)
	case riscv.SNEZ:
		return bool32(a != 0)
	}
	return a
}

func branchTaken(op riscv.BOp, a, b int32) bool {
	switch op {
	case riscv.BEQ:
		return a == b
	case riscv.BNE:
		return a != b
	case riscv.BLT:
		return a < b
	case riscv.BGE:
		return a >= b
	}
	return false
}

func bool32(c bool) int32 {
	if c {
		return 1
	}
	return 0
}

// runtime emulates a call into the SysY runtime library and then clobbers
// the caller-saved registers other than the result
func (m *Machine) runtime(name string) error {
	a0, a1 := m.regs[riscv.A0], m.regs[riscv.A1]
	var ret int32 = clobbered
	switch name {
	case "getint":
		ret = 0
		fmt.Fscan(m.in, &ret)
	case "getch":
		ch, err := m.in.ReadByte()
		ret = int32(ch)
		if err != nil {
			ret = -1
		}
	case "getarray":
		var n int32
		fmt.Fscan(m.in, &n)
		for i := int32(0); i < n; i++ {
			var v int32
			fmt.Fscan(m.in, &v)
			if err := m.store(a0+4*i, v); err != nil {
				return err
			}
		}
		ret = n
	case "putint":
		fmt.Fprintf(m.out, "%d", a0)
	case "putch":
		fmt.Fprintf(m.out, "%c", byte(a0))
	case "putarray":
		fmt.Fprintf(m.out, "%d:", a0)
		for i := int32(0); i < a0; i++ {
			v, err := m.load(a1 + 4*i)
			if err != nil {
				return err
			}
			fmt.Fprintf(m.out, " %d", v)
		}
		fmt.Fprintln(m.out)
	case "starttime", "stoptime":
	default:
		return fmt.Errorf("call to undefined function %s", name)
	}
	for _, r := range []riscv.Reg{riscv.T0, riscv.T1, riscv.T2, riscv.T3, riscv.T4, riscv.T5, riscv.T6} {
		m.regs[r] = clobbered
	}
	for _, r := range riscv.ArgRegs[1:] {
		m.regs[r] = clobbered
	}
	m.regs[riscv.A0] = ret
	return nil
}
