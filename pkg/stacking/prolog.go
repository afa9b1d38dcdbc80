package stacking

import "github.com/raymyers/sysy-cc/pkg/riscv"

// GeneratePrologue allocates the frame and saves ra and the callee-saved
// registers
func GeneratePrologue(layout *FrameLayout) []riscv.Instruction {
	var prologue []riscv.Instruction
	prologue = append(prologue, AdjustSP(-layout.TotalSize)...)
	if layout.RAOffset >= 0 {
		prologue = append(prologue, StoreSP(riscv.RA, layout.RAOffset, riscv.T0)...)
	}
	cs := layout.CalleeSave
	for i, r := range cs.Regs {
		prologue = append(prologue, StoreSP(r, cs.SaveOffsets[i], riscv.T0)...)
	}
	return prologue
}

// GenerateEpilogue restores what the prologue saved, releases the frame and
// returns. a0 is left untouched.
func GenerateEpilogue(layout *FrameLayout) []riscv.Instruction {
	var epilogue []riscv.Instruction
	cs := layout.CalleeSave
	for i := len(cs.Regs) - 1; i >= 0; i-- {
		epilogue = append(epilogue, LoadSP(cs.Regs[i], cs.SaveOffsets[i])...)
	}
	if layout.RAOffset >= 0 {
		epilogue = append(epilogue, LoadSP(riscv.RA, layout.RAOffset)...)
	}
	epilogue = append(epilogue, AdjustSP(layout.TotalSize)...)
	return append(epilogue, riscv.Ret{})
}

// AdjustSP adds delta to sp, going through t0 when delta does not fit an
// immediate
func AdjustSP(delta int32) []riscv.Instruction {
	if delta == 0 {
		return nil
	}
	if riscv.FitsImm(delta) {
		return []riscv.Instruction{riscv.IType{Op: riscv.ADDI, Rd: riscv.SP, Rs1: riscv.SP, Imm: delta}}
	}
	return []riscv.Instruction{
		riscv.Li{Rd: riscv.T0, Imm: delta},
		riscv.RType{Op: riscv.ADD, Rd: riscv.SP, Rs1: riscv.SP, Rs2: riscv.T0},
	}
}

// AddrSP computes sp+offset into rd
func AddrSP(rd riscv.Reg, offset int32) []riscv.Instruction {
	if riscv.FitsImm(offset) {
		return []riscv.Instruction{riscv.IType{Op: riscv.ADDI, Rd: rd, Rs1: riscv.SP, Imm: offset}}
	}
	return []riscv.Instruction{
		riscv.Li{Rd: rd, Imm: offset},
		riscv.RType{Op: riscv.ADD, Rd: rd, Rs1: riscv.SP, Rs2: rd},
	}
}

// LoadSP loads the word at sp+offset into rd. Out-of-range offsets build
// the address in rd itself.
func LoadSP(rd riscv.Reg, offset int32) []riscv.Instruction {
	if riscv.FitsImm(offset) {
		return []riscv.Instruction{riscv.Lw{Rd: rd, Base: riscv.SP, Offset: offset}}
	}
	return append(AddrSP(rd, offset), riscv.Lw{Rd: rd, Base: rd, Offset: 0})
}

// StoreSP stores src to sp+offset. Out-of-range offsets build the address
// in scratch, which must differ from src.
func StoreSP(src riscv.Reg, offset int32, scratch riscv.Reg) []riscv.Instruction {
	if riscv.FitsImm(offset) {
		return []riscv.Instruction{riscv.Sw{Src: src, Base: riscv.SP, Offset: offset}}
	}
	return append(AddrSP(scratch, offset), riscv.Sw{Src: src, Base: scratch, Offset: 0})
}
