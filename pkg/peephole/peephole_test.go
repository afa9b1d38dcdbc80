package peephole

import (
	"testing"

	"github.com/raymyers/sysy-cc/pkg/riscv"
)

func format(insts []riscv.Instruction) []string {
	out := make([]string, len(insts))
	for i, inst := range insts {
		out[i] = riscv.FormatInstruction(inst)
	}
	return out
}

func TestOptimize(t *testing.T) {
	tests := []struct {
		name string
		in   []riscv.Instruction
		want []string
	}{
		{
			name: "reload of same register dropped",
			in: []riscv.Instruction{
				riscv.Sw{Src: riscv.T0, Base: riscv.SP, Offset: 8},
				riscv.Lw{Rd: riscv.T0, Base: riscv.SP, Offset: 8},
				riscv.Ret{},
			},
			want: []string{"sw t0, 8(sp)", "ret"},
		},
		{
			name: "reload into other register becomes move",
			in: []riscv.Instruction{
				riscv.Sw{Src: riscv.A0, Base: riscv.SP, Offset: 4},
				riscv.Lw{Rd: riscv.A1, Base: riscv.SP, Offset: 4},
			},
			want: []string{"sw a0, 4(sp)", "mv a1, a0"},
		},
		{
			name: "different offsets kept",
			in: []riscv.Instruction{
				riscv.Sw{Src: riscv.T0, Base: riscv.SP, Offset: 4},
				riscv.Lw{Rd: riscv.T0, Base: riscv.SP, Offset: 8},
			},
			want: []string{"sw t0, 4(sp)", "lw t0, 8(sp)"},
		},
		{
			name: "other base kept",
			in: []riscv.Instruction{
				riscv.Sw{Src: riscv.T0, Base: riscv.A0, Offset: 0},
				riscv.Lw{Rd: riscv.T0, Base: riscv.A0, Offset: 0},
			},
			want: []string{"sw t0, 0(a0)", "lw t0, 0(a0)"},
		},
		{
			name: "label in between kept",
			in: []riscv.Instruction{
				riscv.Sw{Src: riscv.T0, Base: riscv.SP, Offset: 0},
				riscv.LabelDef{Name: "f_loop"},
				riscv.Lw{Rd: riscv.T0, Base: riscv.SP, Offset: 0},
			},
			want: []string{"sw t0, 0(sp)", "f_loop:", "lw t0, 0(sp)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := format(Optimize(tt.in))
			if len(got) != len(tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestOptimizeProgramCounts(t *testing.T) {
	f := riscv.NewFunction("f")
	f.Append(
		riscv.Sw{Src: riscv.T0, Base: riscv.SP, Offset: 0},
		riscv.Lw{Rd: riscv.T0, Base: riscv.SP, Offset: 0},
		riscv.Sw{Src: riscv.T0, Base: riscv.SP, Offset: 4},
		riscv.Lw{Rd: riscv.A0, Base: riscv.SP, Offset: 4},
		riscv.Ret{},
	)
	prog := &riscv.Program{Functions: []*riscv.Function{f}}
	if n := OptimizeProgram(prog); n != 2 {
		t.Errorf("rewrote %d loads, want 2", n)
	}
	if len(f.Code) != 4 {
		t.Errorf("got %d instructions, want 4", len(f.Code))
	}
}
