// Package stacking lays out activation records for RV32 functions and
// generates their prologue and epilogue.
package stacking

import (
	"sort"

	"github.com/raymyers/sysy-cc/pkg/koopa"
	"github.com/raymyers/sysy-cc/pkg/regalloc"
	"github.com/raymyers/sysy-cc/pkg/riscv"
)

const (
	stackAlignment  = 16 // the ilp32 ABI keeps sp 16-byte aligned
	wordSize        = 4
	minOutgoingArgs = 8
)

// RV32 frame layout (called function's view), addresses growing upward:
//
//	+---------------------------+  <- old sp; incoming stack args at +0, +4, ...
//	| ra                        |
//	| callee-saved registers    |
//	| aggregate locals          |
//	| spill slots               |
//	| caller-save area          |
//	| outgoing arguments        |  stack argument i (i >= 8) at sp + 4*(i-8)
//	+---------------------------+  <- sp (16-byte aligned)
//
// There is no frame pointer; everything is addressed from sp.

// FrameLayout describes the concrete stack frame of one function
type FrameLayout struct {
	// HasCall is set when the function calls anything
	HasCall bool
	// MaxArgs is the largest argument count of any call made
	MaxArgs int

	OutgoingSize int32

	// CallerSave gives the slot of each caller-saved register that calls
	// may need to preserve
	CallerSave map[riscv.Reg]int32
	// Spill gives the slot of each spilled value
	Spill map[string]int32
	// Locals gives the base offset of each aggregate alloc
	Locals map[string]int32

	CalleeSave *CalleeSaveInfo

	// RAOffset is the slot of ra, or -1 when ra is not saved
	RAOffset int32

	// TotalSize is the amount sp is decremented by
	TotalSize int32
}

// PlanFrame computes the frame of fn from its register allocation
func PlanFrame(fn *koopa.Function, alloc *regalloc.Allocation) *FrameLayout {
	l := &FrameLayout{
		CallerSave: make(map[riscv.Reg]int32),
		Spill:      make(map[string]int32),
		Locals:     make(map[string]int32),
		RAOffset:   -1,
	}
	l.HasCall, l.MaxArgs = scanCalls(fn)

	offset := int32(0)
	if l.HasCall {
		n := l.MaxArgs
		if n < minOutgoingArgs {
			n = minOutgoingArgs
		}
		l.OutgoingSize = int32(n) * wordSize
		offset = l.OutgoingSize
		for _, r := range alloc.UsedRegs() {
			if !riscv.IsCalleeSaved(r) {
				l.CallerSave[r] = offset
				offset += wordSize
			}
		}
	}

	for _, name := range alloc.Spilled {
		l.Spill[name] = offset
		offset += wordSize
	}

	aggs := regalloc.AggregateSlots(fn)
	names := make([]string, 0, len(aggs))
	for n := range aggs {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		l.Locals[n] = offset
		offset += int32(aggs[n].Size())
	}

	l.CalleeSave = NewCalleeSaveInfo(FindUsedCalleeSaveRegs(alloc), offset)
	offset += int32(len(l.CalleeSave.Regs)) * wordSize

	if l.HasCall {
		l.RAOffset = offset
		offset += wordSize
	}

	l.TotalSize = alignUp(offset, stackAlignment)
	return l
}

// scanCalls reports whether fn calls anything and the widest call
func scanCalls(fn *koopa.Function) (bool, int) {
	has, most := false, 0
	for _, b := range fn.Blocks {
		for _, s := range b.Stmts {
			var c *koopa.Call
			switch st := s.(type) {
			case *koopa.CallStmt:
				c = st.Call
			case *koopa.Def:
				c, _ = st.Op.(*koopa.Call)
			}
			if c == nil {
				continue
			}
			has = true
			if len(c.Args) > most {
				most = len(c.Args)
			}
		}
	}
	return has, most
}

// OutgoingArgOffset returns the sp offset of outgoing argument i (i >= 8)
func (l *FrameLayout) OutgoingArgOffset(i int) int32 {
	return int32(i-len(riscv.ArgRegs)) * wordSize
}

// IncomingArgOffset returns the sp offset, after the prologue, of incoming
// argument i (i >= 8). It lies in the caller's outgoing area.
func (l *FrameLayout) IncomingArgOffset(i int) int32 {
	return l.TotalSize + int32(i-len(riscv.ArgRegs))*wordSize
}

// alignUp rounds n up to a multiple of align
func alignUp(n, align int32) int32 {
	return (n + align - 1) / align * align
}
