// Package peephole cleans up the emitted instruction stream
package peephole

import "github.com/raymyers/sysy-cc/pkg/riscv"

// Optimize rewrites a store to k(sp) immediately followed by a load from
// k(sp): the load becomes a register move, or disappears when it would
// reload the register just stored. The input slice is not modified.
func Optimize(insts []riscv.Instruction) []riscv.Instruction {
	out, _ := optimize(insts)
	return out
}

// OptimizeProgram applies Optimize to every function and returns the
// number of loads it rewrote
func OptimizeProgram(prog *riscv.Program) int {
	total := 0
	for _, f := range prog.Functions {
		var n int
		f.Code, n = optimize(f.Code)
		total += n
	}
	return total
}

func optimize(insts []riscv.Instruction) ([]riscv.Instruction, int) {
	out := make([]riscv.Instruction, 0, len(insts))
	rewritten := 0
	for i := 0; i < len(insts); i++ {
		out = append(out, insts[i])
		if i+1 == len(insts) {
			break
		}
		sw, ok := insts[i].(riscv.Sw)
		if !ok || sw.Base != riscv.SP {
			continue
		}
		lw, ok := insts[i+1].(riscv.Lw)
		if !ok || lw.Base != riscv.SP || lw.Offset != sw.Offset {
			continue
		}
		if lw.Rd != sw.Src {
			out = append(out, riscv.Unary{Op: riscv.MV, Rd: lw.Rd, Rs: sw.Src})
		}
		rewritten++
		i++
	}
	return out, rewritten
}
