package stacking

import (
	"github.com/raymyers/sysy-cc/pkg/regalloc"
	"github.com/raymyers/sysy-cc/pkg/riscv"
)

// CalleeSaveInfo records which callee-saved registers a function clobbers
// and where the prologue stores them
type CalleeSaveInfo struct {
	Regs        []riscv.Reg
	SaveOffsets []int32
}

// NewCalleeSaveInfo assigns consecutive slots starting at base
func NewCalleeSaveInfo(regs []riscv.Reg, base int32) *CalleeSaveInfo {
	info := &CalleeSaveInfo{Regs: regs, SaveOffsets: make([]int32, len(regs))}
	for i := range regs {
		info.SaveOffsets[i] = base + int32(i)*wordSize
	}
	return info
}

// FindUsedCalleeSaveRegs returns the callee-saved registers the allocation
// hands out, in color order
func FindUsedCalleeSaveRegs(alloc *regalloc.Allocation) []riscv.Reg {
	var result []riscv.Reg
	for _, r := range alloc.UsedRegs() {
		if riscv.IsCalleeSaved(r) {
			result = append(result, r)
		}
	}
	return result
}
