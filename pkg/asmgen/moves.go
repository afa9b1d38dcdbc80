package asmgen

import "github.com/raymyers/sysy-cc/pkg/riscv"

// regMove copies Src into Dst
type regMove struct {
	Src, Dst riscv.Reg
}

// resolveParallelMoves sequences a parallel assignment between registers.
// Destinations must be distinct. A move is emitted once its destination is
// no longer needed as a source; what remains then consists of cycles, each
// broken by parking one value in scratch.
func resolveParallelMoves(moves []regMove, scratch riscv.Reg) []riscv.Instruction {
	var pending []regMove
	for _, m := range moves {
		if m.Src != m.Dst {
			pending = append(pending, m)
		}
	}

	var result []riscv.Instruction
	for len(pending) > 0 {
		progress := false
		for i := 0; i < len(pending); i++ {
			m := pending[i]
			if isSource(pending, m.Dst) {
				continue
			}
			result = append(result, riscv.Unary{Op: riscv.MV, Rd: m.Dst, Rs: m.Src})
			pending = append(pending[:i], pending[i+1:]...)
			i--
			progress = true
		}
		if progress {
			continue
		}
		// every destination is still a source: a cycle
		park := pending[0].Src
		result = append(result, riscv.Unary{Op: riscv.MV, Rd: scratch, Rs: park})
		for i := range pending {
			if pending[i].Src == park {
				pending[i].Src = scratch
			}
		}
	}
	return result
}

func isSource(moves []regMove, r riscv.Reg) bool {
	for _, m := range moves {
		if m.Src == r {
			return true
		}
	}
	return false
}
