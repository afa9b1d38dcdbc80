// Package kinterp executes IR programs directly. Tests use it as a reference
// for what a program computes before and after the backend passes.
package kinterp

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/raymyers/sysy-cc/pkg/koopa"
)

// ErrStepLimit is returned when a program runs longer than Machine.MaxSteps
var ErrStepLimit = errors.New("step limit exceeded")

// Result summarizes one run
type Result struct {
	Exit  int32 // main's return value
	Steps int   // statements and terminators executed
	Divs  int   // div and mod operations executed
}

// Machine interprets one program
type Machine struct {
	MaxSteps int

	funcs   map[string]*koopa.Function
	mem     map[int32]int32 // word-addressed by byte address
	brk     int32
	globals map[string]int32
	gtypes  map[string]koopa.Type
	in      *bufio.Reader
	out     io.Writer
	res     Result
}

// frame is the environment of one activation
type frame struct {
	vals  map[string]int32
	types map[string]koopa.Type
}

// Run executes @main with the runtime library bound to in and out
func Run(prog *koopa.Program, in io.Reader, out io.Writer) (*Result, error) {
	m := New(prog, in, out)
	return m.Run()
}

// New prepares a machine; globals are laid out immediately
func New(prog *koopa.Program, in io.Reader, out io.Writer) *Machine {
	m := &Machine{
		MaxSteps: 50_000_000,
		funcs:    make(map[string]*koopa.Function),
		mem:      make(map[int32]int32),
		brk:      0x1000,
		globals:  make(map[string]int32),
		gtypes:   make(map[string]koopa.Type),
		in:       bufio.NewReader(in),
		out:      out,
	}
	for _, fn := range prog.Funcs {
		m.funcs[fn.Name] = fn
	}
	for _, g := range prog.Globals {
		addr := m.alloc(g.Type)
		m.globals[g.Name] = addr
		m.gtypes[g.Name] = &koopa.Pointer{Elem: g.Type}
		m.writeInit(addr, g.Type, g.Init)
	}
	return m
}

// Run executes @main
func (m *Machine) Run() (*Result, error) {
	main, ok := m.funcs["@main"]
	if !ok {
		return nil, errors.New("no @main")
	}
	v, err := m.call(main, nil)
	if err != nil {
		return nil, err
	}
	m.res.Exit = v
	return &m.res, nil
}

func (m *Machine) alloc(t koopa.Type) int32 {
	addr := m.brk
	size := int32(t.Size())
	if size < 4 {
		size = 4
	}
	m.brk += size
	return addr
}

func (m *Machine) writeInit(addr int32, t koopa.Type, init koopa.Initializer) {
	switch in := init.(type) {
	case *koopa.IntInit:
		m.mem[addr] = in.Value
	case *koopa.ZeroInit, *koopa.UndefInit:
		for off := int32(0); off < int32(t.Size()); off += 4 {
			m.mem[addr+off] = 0
		}
	case *koopa.Aggregate:
		arr := t.(*koopa.Array)
		stride := int32(arr.Elem.Size())
		for i, e := range in.Elems {
			m.writeInit(addr+int32(i)*stride, arr.Elem, e)
		}
	}
}

func (m *Machine) call(fn *koopa.Function, args []int32) (int32, error) {
	fr := &frame{vals: make(map[string]int32), types: make(map[string]koopa.Type)}
	for i, p := range fn.Params {
		fr.vals[p.Name] = args[i]
		fr.types[p.Name] = p.Type
	}
	labels := make(map[string]*koopa.Block, len(fn.Blocks))
	for _, b := range fn.Blocks {
		labels[b.Label] = b
	}

	block := fn.Blocks[0]
	for {
		for _, s := range block.Stmts {
			if err := m.step(); err != nil {
				return 0, err
			}
			if err := m.exec(fr, s); err != nil {
				return 0, fmt.Errorf("%s: %w", fn.Name, err)
			}
		}
		if err := m.step(); err != nil {
			return 0, err
		}
		var next string
		switch t := block.Term.(type) {
		case *koopa.Return:
			if t.Value == nil {
				return 0, nil
			}
			return m.value(fr, t.Value), nil
		case *koopa.Jump:
			next = t.Target
		case *koopa.Branch:
			next = t.False
			if m.value(fr, t.Cond) != 0 {
				next = t.True
			}
		default:
			return 0, fmt.Errorf("%s: block %s has no terminator", fn.Name, block.Label)
		}
		block = labels[next]
		if block == nil {
			return 0, fmt.Errorf("%s: unknown label %s", fn.Name, next)
		}
	}
}

func (m *Machine) step() error {
	m.res.Steps++
	if m.MaxSteps > 0 && m.res.Steps > m.MaxSteps {
		return ErrStepLimit
	}
	return nil
}

func (m *Machine) lookup(fr *frame, name string) (int32, koopa.Type) {
	if addr, ok := m.globals[name]; ok {
		return addr, m.gtypes[name]
	}
	return fr.vals[name], fr.types[name]
}

func (m *Machine) value(fr *frame, v koopa.Value) int32 {
	switch vv := v.(type) {
	case *koopa.Integer:
		return vv.Value
	case *koopa.Symbol:
		val, _ := m.lookup(fr, vv.Name)
		return val
	}
	return 0
}

func (m *Machine) exec(fr *frame, s koopa.Stmt) error {
	switch st := s.(type) {
	case *koopa.Def:
		val, typ, err := m.eval(fr, st.Op)
		if err != nil {
			return err
		}
		fr.vals[st.Name] = val
		fr.types[st.Name] = typ
	case *koopa.Store:
		addr, _ := m.lookup(fr, st.Dest)
		m.mem[addr] = m.value(fr, st.Value)
	case *koopa.StoreInit:
		addr, typ := m.lookup(fr, st.Dest)
		m.writeInit(addr, koopa.ElemOf(typ), st.Init)
	case *koopa.CallStmt:
		_, err := m.doCall(fr, st.Call)
		return err
	}
	return nil
}

func (m *Machine) eval(fr *frame, op koopa.Operation) (int32, koopa.Type, error) {
	switch o := op.(type) {
	case *koopa.Alloc:
		return m.alloc(o.Type), &koopa.Pointer{Elem: o.Type}, nil
	case *koopa.Load:
		addr, typ := m.lookup(fr, o.Src)
		return m.mem[addr], koopa.ElemOf(typ), nil
	case *koopa.GetElemPtr:
		addr, typ := m.lookup(fr, o.Src)
		elem := koopa.ElemOf(koopa.ElemOf(typ))
		return addr + m.value(fr, o.Index)*int32(elem.Size()), &koopa.Pointer{Elem: elem}, nil
	case *koopa.GetPtr:
		addr, typ := m.lookup(fr, o.Src)
		elem := koopa.ElemOf(typ)
		return addr + m.value(fr, o.Index)*int32(elem.Size()), typ, nil
	case *koopa.Binary:
		return m.binary(o.Op, m.value(fr, o.LHS), m.value(fr, o.RHS)), koopa.I32, nil
	case *koopa.Call:
		v, err := m.doCall(fr, o)
		return v, koopa.I32, err
	}
	return 0, nil, fmt.Errorf("unknown operation %T", op)
}

// binary follows RV32M semantics, including division by zero
func (m *Machine) binary(op koopa.BinaryOp, l, r int32) int32 {
	b := func(c bool) int32 {
		if c {
			return 1
		}
		return 0
	}
	switch op {
	case koopa.OpNe:
		return b(l != r)
	case koopa.OpEq:
		return b(l == r)
	case koopa.OpGt:
		return b(l > r)
	case koopa.OpLt:
		return b(l < r)
	case koopa.OpGe:
		return b(l >= r)
	case koopa.OpLe:
		return b(l <= r)
	case koopa.OpAdd:
		return l + r
	case koopa.OpSub:
		return l - r
	case koopa.OpMul:
		return l * r
	case koopa.OpDiv:
		m.res.Divs++
		if r == 0 {
			return -1
		}
		return l / r
	case koopa.OpMod:
		m.res.Divs++
		if r == 0 {
			return l
		}
		return l % r
	case koopa.OpAnd:
		return l & r
	case koopa.OpOr:
		return l | r
	case koopa.OpXor:
		return l ^ r
	case koopa.OpShl:
		return l << (uint32(r) & 31)
	case koopa.OpShr:
		return int32(uint32(l) >> (uint32(r) & 31))
	case koopa.OpSar:
		return l >> (uint32(r) & 31)
	}
	return 0
}

func (m *Machine) doCall(fr *frame, c *koopa.Call) (int32, error) {
	args := make([]int32, len(c.Args))
	for i, a := range c.Args {
		args[i] = m.value(fr, a)
	}
	if fn, ok := m.funcs[c.Callee]; ok {
		return m.call(fn, args)
	}
	return m.runtime(c.Callee, args)
}

func (m *Machine) runtime(name string, args []int32) (int32, error) {
	switch name {
	case "@getint":
		var v int32
		fmt.Fscan(m.in, &v)
		return v, nil
	case "@getch":
		ch, err := m.in.ReadByte()
		if err != nil {
			return -1, nil
		}
		return int32(ch), nil
	case "@getarray":
		var n int32
		fmt.Fscan(m.in, &n)
		for i := int32(0); i < n; i++ {
			var v int32
			fmt.Fscan(m.in, &v)
			m.mem[args[0]+4*i] = v
		}
		return n, nil
	case "@putint":
		fmt.Fprintf(m.out, "%d", args[0])
	case "@putch":
		fmt.Fprintf(m.out, "%c", byte(args[0]))
	case "@putarray":
		fmt.Fprintf(m.out, "%d:", args[0])
		for i := int32(0); i < args[0]; i++ {
			fmt.Fprintf(m.out, " %d", m.mem[args[1]+4*i])
		}
		fmt.Fprintln(m.out)
	case "@starttime", "@stoptime":
	default:
		return 0, fmt.Errorf("call to undefined function %s", name)
	}
	return 0, nil
}
