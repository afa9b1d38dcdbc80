package asmgen

import (
	"fmt"
	"math/bits"
	"sort"

	"github.com/raymyers/sysy-cc/pkg/diag"
	"github.com/raymyers/sysy-cc/pkg/koopa"
	"github.com/raymyers/sysy-cc/pkg/regalloc"
	"github.com/raymyers/sysy-cc/pkg/riscv"
	"github.com/raymyers/sysy-cc/pkg/stacking"
)

// Scratch registers. Operands that are not in a register are staged in
// these; they are never handed out by the allocator.
const (
	scratch0 = riscv.T0
	scratch1 = riscv.T1
)

// zeroLoopWords is the array size from which zero-filling uses a loop
// instead of one store per word
const zeroLoopWords = 16

// funcEmitter translates one allocated IR function
type funcEmitter struct {
	fn    *koopa.Function
	vi    *VarInfo
	alloc *regalloc.Allocation
	frame *stacking.FrameLayout
	out   *riscv.Function
	name  string

	next      string // label of the block emitted after the current one
	skipCount int
	err       error
}

func newFuncEmitter(fn *koopa.Function, vi *VarInfo, alloc *regalloc.Allocation, frame *stacking.FrameLayout) *funcEmitter {
	name := fn.Name[1:]
	return &funcEmitter{
		fn:    fn,
		vi:    vi,
		alloc: alloc,
		frame: frame,
		out:   riscv.NewFunction(name),
		name:  name,
	}
}

func (e *funcEmitter) emit(insts ...riscv.Instruction) {
	e.out.Append(insts...)
}

func (e *funcEmitter) fail(format string, args ...any) {
	if e.err == nil {
		e.err = diag.Errorf(diag.KindInternal, "%s: %s", e.fn.Name, fmt.Sprintf(format, args...))
	}
}

// label maps an IR block label to its assembly label
func (e *funcEmitter) label(l string) riscv.Label {
	return riscv.Label(e.name + "_" + l[1:])
}

func (e *funcEmitter) newSkipLabel() riscv.Label {
	l := riscv.Label(fmt.Sprintf("%s_skip_%d", e.name, e.skipCount))
	e.skipCount++
	return l
}

// function emits the prologue, every block in order and an epilogue at
// each return
func (e *funcEmitter) function() (*riscv.Function, error) {
	e.emit(stacking.GeneratePrologue(e.frame)...)
	e.moveParams()
	for i, b := range e.fn.Blocks {
		e.next = ""
		if i+1 < len(e.fn.Blocks) {
			e.next = e.fn.Blocks[i+1].Label
		}
		e.out.AppendLabel(e.label(b.Label))
		for j, s := range b.Stmts {
			e.stmt(s, b.LiveAfter[j])
		}
		e.terminator(b.Term)
	}
	return e.out, e.err
}

// moveParams carries incoming parameters from their ABI locations to their
// allocated ones. Spilled register parameters are stored first, then the
// register-to-register moves run as one parallel move, then stack
// parameters are loaded.
func (e *funcEmitter) moveParams() {
	live := e.alloc.Liveness.EntryLive
	var moves []regMove
	for i, p := range e.fn.Params {
		if i >= len(riscv.ArgRegs) || !live.Contains(p.Name) {
			continue
		}
		loc := e.vi.Loc(p.Name)
		switch loc.Kind {
		case LocSpill:
			e.emit(stacking.StoreSP(riscv.ArgRegs[i], loc.Offset, scratch0)...)
		case LocReg:
			moves = append(moves, regMove{Src: riscv.ArgRegs[i], Dst: loc.Reg})
		}
	}
	e.emit(resolveParallelMoves(moves, scratch0)...)

	for i := len(riscv.ArgRegs); i < len(e.fn.Params); i++ {
		p := e.fn.Params[i]
		if !live.Contains(p.Name) {
			continue
		}
		in := e.frame.IncomingArgOffset(i)
		loc := e.vi.Loc(p.Name)
		switch loc.Kind {
		case LocReg:
			e.emit(stacking.LoadSP(loc.Reg, in)...)
		case LocSpill:
			e.emit(stacking.LoadSP(scratch0, in)...)
			e.emit(stacking.StoreSP(scratch0, loc.Offset, scratch1)...)
		}
	}
}

// --- Operands ---

// value makes v available in a register, staging it in scratch if needed
func (e *funcEmitter) value(v koopa.Value, scratch riscv.Reg) riscv.Reg {
	switch vv := v.(type) {
	case *koopa.Integer:
		if vv.Value == 0 {
			return riscv.Zero
		}
		e.emit(riscv.Li{Rd: scratch, Imm: vv.Value})
		return scratch
	case *koopa.Symbol:
		loc := e.vi.Loc(vv.Name)
		switch loc.Kind {
		case LocReg:
			return loc.Reg
		case LocSpill:
			e.emit(stacking.LoadSP(scratch, loc.Offset)...)
			return scratch
		case LocAggregate:
			e.emit(stacking.AddrSP(scratch, loc.Offset)...)
			return scratch
		case LocGlobal:
			e.emit(riscv.La{Rd: scratch, Symbol: loc.Symbol})
			return scratch
		}
	}
	// undef, or a name that is never live
	return riscv.Zero
}

// valueInto materializes v in rd
func (e *funcEmitter) valueInto(v koopa.Value, rd riscv.Reg) {
	if i, ok := v.(*koopa.Integer); ok {
		e.emit(riscv.Li{Rd: rd, Imm: i.Value})
		return
	}
	if r := e.value(v, rd); r != rd {
		e.emit(riscv.Unary{Op: riscv.MV, Rd: rd, Rs: r})
	}
}

// target returns the register a definition of name should compute into and
// a function that commits it to the name's home afterwards
func (e *funcEmitter) target(name string) (riscv.Reg, func()) {
	loc := e.vi.Loc(name)
	switch loc.Kind {
	case LocReg:
		return loc.Reg, func() {}
	case LocSpill:
		return scratch0, func() {
			e.emit(stacking.StoreSP(scratch0, loc.Offset, scratch1)...)
		}
	}
	return scratch0, func() {}
}

// address puts the address denoted by name plus offset in rd
func (e *funcEmitter) address(name string, offset int32, rd riscv.Reg) {
	loc := e.vi.Loc(name)
	if loc.Kind == LocAggregate {
		e.emit(stacking.AddrSP(rd, loc.Offset+offset)...)
		return
	}
	base := e.value(koopa.Sym(name), rd)
	e.addImm(rd, base, offset)
}

// addImm computes rd = rs + imm
func (e *funcEmitter) addImm(rd, rs riscv.Reg, imm int32) {
	switch {
	case imm == 0:
		if rd != rs {
			e.emit(riscv.Unary{Op: riscv.MV, Rd: rd, Rs: rs})
		}
	case riscv.FitsImm(imm):
		e.emit(riscv.IType{Op: riscv.ADDI, Rd: rd, Rs1: rs, Imm: imm})
	default:
		tmp := scratch1
		if rs == scratch1 {
			tmp = scratch0
		}
		e.emit(riscv.Li{Rd: tmp, Imm: imm}, riscv.RType{Op: riscv.ADD, Rd: rd, Rs1: rs, Rs2: tmp})
	}
}

// --- Statements ---

func (e *funcEmitter) stmt(s koopa.Stmt, liveAfter koopa.NameSet) {
	switch st := s.(type) {
	case *koopa.Def:
		e.def(st, liveAfter)
	case *koopa.Store:
		e.store(st)
	case *koopa.StoreInit:
		e.storeInit(st)
	case *koopa.CallStmt:
		e.call(st.Call, "", liveAfter)
	default:
		e.fail("unknown statement %T", s)
	}
}

func (e *funcEmitter) def(d *koopa.Def, liveAfter koopa.NameSet) {
	switch op := d.Op.(type) {
	case *koopa.Alloc:
		// slots live in registers or spill slots, arrays in the frame
	case *koopa.Load:
		e.load(d.Name, op)
	case *koopa.GetElemPtr:
		e.indexPtr(d.Name, op, op.Src, op.Index)
	case *koopa.GetPtr:
		e.indexPtr(d.Name, op, op.Src, op.Index)
	case *koopa.Binary:
		e.binary(d.Name, op)
	case *koopa.Call:
		e.call(op, d.Name, liveAfter)
	default:
		e.fail("unknown operation %T", d.Op)
	}
}

func (e *funcEmitter) load(name string, op *koopa.Load) {
	if e.vi.Loc(name).Kind == LocNone {
		return
	}
	rd, commit := e.target(name)
	src := e.vi.Loc(op.Src)
	switch {
	case e.vi.Slots.Contains(op.Src):
		e.valueInto(koopa.Sym(op.Src), rd)
	case src.Kind == LocAggregate:
		e.emit(stacking.LoadSP(rd, src.Offset)...)
	default:
		base := e.value(koopa.Sym(op.Src), scratch0)
		e.emit(riscv.Lw{Rd: rd, Base: base, Offset: 0})
	}
	commit()
}

// indexPtr lowers getelemptr and getptr: name = src + index*stride
func (e *funcEmitter) indexPtr(name string, op koopa.Operation, src string, index koopa.Value) {
	// frame addresses fold into the loads and stores that use them
	if k := e.vi.Loc(name).Kind; k == LocNone || k == LocAggregate {
		return
	}
	size := stride(op, e.vi.Types[src])
	rd, commit := e.target(name)

	if k, ok := index.(*koopa.Integer); ok {
		off := int64(k.Value) * int64(size)
		e.address(src, int32(off), rd)
		commit()
		return
	}

	idx := e.value(index, scratch1)
	if size&(size-1) == 0 {
		e.emit(riscv.IType{Op: riscv.SLLI, Rd: scratch1, Rs1: idx, Imm: int32(bits.TrailingZeros32(uint32(size)))})
	} else {
		e.emit(riscv.Li{Rd: scratch0, Imm: size}, riscv.RType{Op: riscv.MUL, Rd: scratch1, Rs1: idx, Rs2: scratch0})
	}
	base := scratch0
	if loc := e.vi.Loc(src); loc.Kind == LocReg {
		base = loc.Reg
	} else {
		e.address(src, 0, scratch0)
	}
	e.emit(riscv.RType{Op: riscv.ADD, Rd: rd, Rs1: base, Rs2: scratch1})
	commit()
}

var immOps = map[koopa.BinaryOp]riscv.IOp{
	koopa.OpAdd: riscv.ADDI,
	koopa.OpAnd: riscv.ANDI,
	koopa.OpOr:  riscv.ORI,
	koopa.OpXor: riscv.XORI,
	koopa.OpLt:  riscv.SLTI,
}

var regOps = map[koopa.BinaryOp]riscv.ROp{
	koopa.OpAdd: riscv.ADD,
	koopa.OpSub: riscv.SUB,
	koopa.OpMul: riscv.MUL,
	koopa.OpDiv: riscv.DIV,
	koopa.OpMod: riscv.REM,
	koopa.OpAnd: riscv.AND,
	koopa.OpOr:  riscv.OR,
	koopa.OpXor: riscv.XOR,
	koopa.OpShl: riscv.SLL,
	koopa.OpShr: riscv.SRL,
	koopa.OpSar: riscv.SRA,
	koopa.OpLt:  riscv.SLT,
	koopa.OpGt:  riscv.SGT,
}

func (e *funcEmitter) binary(name string, op *koopa.Binary) {
	if e.vi.Loc(name).Kind == LocNone {
		return
	}
	rd, commit := e.target(name)
	defer commit()

	if k, ok := op.RHS.(*koopa.Integer); ok {
		imm := k.Value
		iop, hasImm := immOps[op.Op]
		if op.Op == koopa.OpSub && imm != -2147483648 {
			iop, hasImm, imm = riscv.ADDI, true, -imm
		}
		if hasImm && riscv.FitsImm(imm) {
			l := e.value(op.LHS, scratch0)
			e.emit(riscv.IType{Op: iop, Rd: rd, Rs1: l, Imm: imm})
			return
		}
	}

	l := e.value(op.LHS, scratch0)
	r := e.value(op.RHS, scratch1)
	switch op.Op {
	case koopa.OpEq:
		e.emit(riscv.RType{Op: riscv.XOR, Rd: rd, Rs1: l, Rs2: r}, riscv.Unary{Op: riscv.SEQZ, Rd: rd, Rs: rd})
	case koopa.OpNe:
		e.emit(riscv.RType{Op: riscv.XOR, Rd: rd, Rs1: l, Rs2: r}, riscv.Unary{Op: riscv.SNEZ, Rd: rd, Rs: rd})
	case koopa.OpLe:
		e.emit(riscv.RType{Op: riscv.SGT, Rd: rd, Rs1: l, Rs2: r}, riscv.Unary{Op: riscv.SEQZ, Rd: rd, Rs: rd})
	case koopa.OpGe:
		e.emit(riscv.RType{Op: riscv.SLT, Rd: rd, Rs1: l, Rs2: r}, riscv.Unary{Op: riscv.SEQZ, Rd: rd, Rs: rd})
	default:
		rop, ok := regOps[op.Op]
		if !ok {
			e.fail("unsupported operator %s", op.Op)
			return
		}
		e.emit(riscv.RType{Op: rop, Rd: rd, Rs1: l, Rs2: r})
	}
}

func (e *funcEmitter) store(st *koopa.Store) {
	dest := e.vi.Loc(st.Dest)
	switch {
	case e.vi.Slots.Contains(st.Dest):
		switch dest.Kind {
		case LocReg:
			e.valueInto(st.Value, dest.Reg)
		case LocSpill:
			r := e.value(st.Value, scratch0)
			e.emit(stacking.StoreSP(r, dest.Offset, scratch1)...)
		}
	case dest.Kind == LocAggregate:
		r := e.value(st.Value, scratch0)
		e.emit(stacking.StoreSP(r, dest.Offset, scratch1)...)
	default:
		r := e.value(st.Value, scratch0)
		base := e.value(koopa.Sym(st.Dest), scratch1)
		e.emit(riscv.Sw{Src: r, Base: base, Offset: 0})
	}
}

// storeInit writes an initializer into an array slot. Large arrays are
// zeroed by a loop before the non-zero words are stored.
func (e *funcEmitter) storeInit(st *koopa.StoreInit) {
	if e.vi.Slots.Contains(st.Dest) {
		var v koopa.Value = koopa.Int(0)
		if i, ok := st.Init.(*koopa.IntInit); ok {
			v = koopa.Int(i.Value)
		}
		e.store(&koopa.Store{Value: v, Dest: st.Dest})
		return
	}
	dest := e.vi.Loc(st.Dest)
	if dest.Kind != LocAggregate {
		e.fail("initializer stored to %s, which is not a local array", st.Dest)
		return
	}
	words := flattenInit(st.Init, elemOrI32(e.vi.Types[st.Dest]))

	zeroed := false
	if len(words) >= zeroLoopWords {
		e.zeroFill(dest.Offset, int32(len(words))*4)
		zeroed = true
	}
	for k, w := range words {
		if w == 0 && zeroed {
			continue
		}
		r := riscv.Zero
		if w != 0 {
			e.emit(riscv.Li{Rd: scratch0, Imm: w})
			r = scratch0
		}
		e.emit(stacking.StoreSP(r, dest.Offset+int32(k)*4, scratch1)...)
	}
}

func (e *funcEmitter) zeroFill(offset, size int32) {
	loop := e.newSkipLabel()
	e.emit(stacking.AddrSP(scratch0, offset)...)
	e.emit(stacking.AddrSP(scratch1, offset+size)...)
	e.out.AppendLabel(loop)
	e.emit(
		riscv.Sw{Src: riscv.Zero, Base: scratch0, Offset: 0},
		riscv.IType{Op: riscv.ADDI, Rd: scratch0, Rs1: scratch0, Imm: 4},
		riscv.Branch{Op: riscv.BLT, Rs1: scratch0, Rs2: scratch1, Target: loop},
	)
}

// call emits a full call sequence: save live caller-saved registers, pass
// arguments, call, move the result, restore
func (e *funcEmitter) call(c *koopa.Call, dest string, liveAfter koopa.NameSet) {
	saved := e.callerSaved(liveAfter, dest)
	for _, r := range saved {
		e.emit(stacking.StoreSP(r, e.frame.CallerSave[r], scratch0)...)
	}

	for i := len(riscv.ArgRegs); i < len(c.Args); i++ {
		r := e.value(c.Args[i], scratch0)
		e.emit(stacking.StoreSP(r, e.frame.OutgoingArgOffset(i), scratch1)...)
	}
	var moves []regMove
	var rest []int
	for i, a := range c.Args {
		if i >= len(riscv.ArgRegs) {
			break
		}
		if s, ok := a.(*koopa.Symbol); ok {
			if loc := e.vi.Loc(s.Name); loc.Kind == LocReg {
				moves = append(moves, regMove{Src: loc.Reg, Dst: riscv.ArgRegs[i]})
				continue
			}
		}
		rest = append(rest, i)
	}
	e.emit(resolveParallelMoves(moves, scratch0)...)
	for _, i := range rest {
		e.valueInto(c.Args[i], riscv.ArgRegs[i])
	}

	e.emit(riscv.Call{Target: c.Callee[1:]})

	if dest != "" {
		loc := e.vi.Loc(dest)
		switch loc.Kind {
		case LocReg:
			if loc.Reg != riscv.A0 {
				e.emit(riscv.Unary{Op: riscv.MV, Rd: loc.Reg, Rs: riscv.A0})
			}
		case LocSpill:
			e.emit(stacking.StoreSP(riscv.A0, loc.Offset, scratch0)...)
		}
	}
	for _, r := range saved {
		e.emit(stacking.LoadSP(r, e.frame.CallerSave[r])...)
	}
}

// callerSaved returns the caller-saved registers holding values that are
// live after a call, other than the call's own result
func (e *funcEmitter) callerSaved(liveAfter koopa.NameSet, dest string) []riscv.Reg {
	set := make(map[riscv.Reg]bool)
	for name := range liveAfter {
		if name == dest {
			continue
		}
		if loc := e.vi.Loc(name); loc.Kind == LocReg && !riscv.IsCalleeSaved(loc.Reg) {
			set[loc.Reg] = true
		}
	}
	regs := make([]riscv.Reg, 0, len(set))
	for r := range set {
		regs = append(regs, r)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i] < regs[j] })
	return regs
}

// --- Terminators ---

func (e *funcEmitter) terminator(t koopa.Terminator) {
	switch tt := t.(type) {
	case *koopa.Return:
		if tt.Value != nil {
			e.valueInto(tt.Value, riscv.A0)
		}
		e.emit(stacking.GenerateEpilogue(e.frame)...)
	case *koopa.Jump:
		e.jump(tt.Target)
	case *koopa.Branch:
		e.branch(tt)
	default:
		e.fail("block without terminator")
	}
}

func (e *funcEmitter) jump(target string) {
	if target != e.next {
		e.emit(riscv.J{Target: e.label(target)})
	}
}

// branch keeps conditional branches short: the conditional instruction
// only ever skips over one jump, so targets may be arbitrarily far away
func (e *funcEmitter) branch(br *koopa.Branch) {
	if k, ok := br.Cond.(*koopa.Integer); ok {
		if k.Value != 0 {
			e.jump(br.True)
		} else {
			e.jump(br.False)
		}
		return
	}
	if br.True == br.False {
		e.jump(br.True)
		return
	}
	cond := e.value(br.Cond, scratch0)
	skip := e.newSkipLabel()
	if br.True == e.next {
		e.emit(riscv.Branch{Op: riscv.BNE, Rs1: cond, Rs2: riscv.Zero, Target: skip})
		e.emit(riscv.J{Target: e.label(br.False)})
		e.out.AppendLabel(skip)
		return
	}
	e.emit(riscv.Branch{Op: riscv.BEQ, Rs1: cond, Rs2: riscv.Zero, Target: skip})
	e.emit(riscv.J{Target: e.label(br.True)})
	e.out.AppendLabel(skip)
	e.jump(br.False)
}
