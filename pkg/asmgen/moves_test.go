package asmgen

import (
	"testing"

	"github.com/raymyers/sysy-cc/pkg/riscv"
)

// applyMoves runs the sequenced moves over a register file
func applyMoves(regs map[riscv.Reg]int, insts []riscv.Instruction) {
	for _, inst := range insts {
		mv := inst.(riscv.Unary)
		regs[mv.Rd] = regs[mv.Rs]
	}
}

func TestResolveParallelMoves(t *testing.T) {
	tests := []struct {
		name  string
		moves []regMove
		max   int
	}{
		{"identity", []regMove{{riscv.A0, riscv.A0}}, 0},
		{"chain", []regMove{{riscv.A0, riscv.A1}, {riscv.A1, riscv.A2}}, 2},
		{"swap", []regMove{{riscv.A0, riscv.A1}, {riscv.A1, riscv.A0}}, 3},
		{"rotation", []regMove{{riscv.A0, riscv.A1}, {riscv.A1, riscv.A2}, {riscv.A2, riscv.A0}}, 4},
		{"fan out", []regMove{{riscv.S1, riscv.A0}, {riscv.S1, riscv.A1}, {riscv.A0, riscv.A2}}, 3},
		{"two cycles", []regMove{{riscv.A0, riscv.A1}, {riscv.A1, riscv.A0}, {riscv.A2, riscv.A3}, {riscv.A3, riscv.A2}}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regs := map[riscv.Reg]int{}
			for r := riscv.Reg(0); r < 32; r++ {
				regs[r] = int(r) * 100
			}
			want := map[riscv.Reg]int{}
			for _, m := range tt.moves {
				want[m.Dst] = regs[m.Src]
			}

			insts := resolveParallelMoves(tt.moves, riscv.T0)
			if len(insts) > tt.max {
				t.Errorf("%d moves, want at most %d", len(insts), tt.max)
			}
			applyMoves(regs, insts)
			for dst, v := range want {
				if regs[dst] != v {
					t.Errorf("%s = %d, want %d", dst, regs[dst], v)
				}
			}
		})
	}
}
