package stacking

import (
	"fmt"
	"strings"
	"testing"

	"github.com/raymyers/sysy-cc/pkg/irgen"
	"github.com/raymyers/sysy-cc/pkg/koopa"
	"github.com/raymyers/sysy-cc/pkg/lexer"
	"github.com/raymyers/sysy-cc/pkg/optim"
	"github.com/raymyers/sysy-cc/pkg/parser"
	"github.com/raymyers/sysy-cc/pkg/regalloc"
	"github.com/raymyers/sysy-cc/pkg/riscv"
)

func plan(t *testing.T, src string) map[string]*FrameLayout {
	t.Helper()
	p := parser.New(lexer.New(src))
	cu := p.ParseCompUnit()
	if len(p.Errors()) > 0 {
		t.Fatalf("parser errors: %v", p.Errors())
	}
	prog, err := irgen.Build(cu, irgen.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	frames := make(map[string]*FrameLayout)
	for _, fn := range prog.Funcs {
		frames[fn.Name] = planFunction(t, fn)
	}
	return frames
}

func planFunction(t *testing.T, fn *koopa.Function) *FrameLayout {
	t.Helper()
	optim.EliminateDeadBlocks(fn)
	optim.EliminateDeadValues(fn)
	optim.BuildCFG(fn)
	alloc, err := regalloc.AllocateFunction(fn, regalloc.Options{Seed: 1})
	if err != nil {
		t.Fatalf("allocate %s: %v", fn.Name, err)
	}
	return PlanFrame(fn, alloc)
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		n, align, want int32
	}{
		{0, 16, 0},
		{1, 16, 16},
		{15, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{36, 16, 48},
	}
	for _, tt := range tests {
		if got := alignUp(tt.n, tt.align); got != tt.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", tt.n, tt.align, got, tt.want)
		}
	}
}

func TestPlanFrameLeaf(t *testing.T) {
	l := plan(t, "int main() { int a = 3, b = 4; return a + b * 2; }")["@main"]
	if l.HasCall || l.TotalSize != 0 || l.RAOffset != -1 {
		t.Errorf("leaf frame = %+v, want empty", l)
	}
}

func TestPlanFrameWithCall(t *testing.T) {
	l := plan(t, "int main() { putint(getint()); return 0; }")["@main"]
	if !l.HasCall {
		t.Fatal("HasCall = false")
	}
	if l.OutgoingSize != 32 {
		t.Errorf("OutgoingSize = %d, want 32 (eight slots minimum)", l.OutgoingSize)
	}
	if l.RAOffset < l.OutgoingSize || l.RAOffset+4 > l.TotalSize {
		t.Errorf("ra slot %d outside [%d, %d)", l.RAOffset, l.OutgoingSize, l.TotalSize)
	}
}

func TestPlanFrameWideCall(t *testing.T) {
	frames := plan(t, `
int f(int a, int b, int c, int d, int e, int g, int h, int i, int j, int k) { return j + k; }
int main() { return f(1, 2, 3, 4, 5, 6, 7, 8, 9, 10); }`)
	main := frames["@main"]
	if main.MaxArgs != 10 || main.OutgoingSize != 40 {
		t.Errorf("MaxArgs %d OutgoingSize %d, want 10 and 40", main.MaxArgs, main.OutgoingSize)
	}
	if got := main.OutgoingArgOffset(9); got != 4 {
		t.Errorf("OutgoingArgOffset(9) = %d, want 4", got)
	}
	f := frames["@f"]
	if got := f.IncomingArgOffset(8); got != f.TotalSize {
		t.Errorf("IncomingArgOffset(8) = %d, want frame size %d", got, f.TotalSize)
	}
}

func TestPlanFrameArraysAndSpills(t *testing.T) {
	var b strings.Builder
	b.WriteString("int main() {\n  int buf[100];\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "  int v%d = getint();\n", i)
	}
	b.WriteString("  buf[0] = v0")
	for i := 1; i < 40; i++ {
		fmt.Fprintf(&b, " + v%d", i)
	}
	b.WriteString(";\n  return buf[0];\n}\n")

	l := plan(t, b.String())["@main"]
	if len(l.Spill) == 0 {
		t.Error("expected spill slots")
	}
	base, ok := l.Locals["%buf_0"]
	if !ok {
		t.Fatal("array has no frame slot")
	}
	for name, off := range l.Spill {
		if off >= base && off < base+400 {
			t.Errorf("spill slot of %s at %d overlaps the array at %d", name, off, base)
		}
	}
}

func TestFrameSizeAligned(t *testing.T) {
	srcs := []string{
		"int main() { return 0; }",
		"int main() { int a[3]; a[0] = getint(); return a[0]; }",
		"int main() { int a[7]; putint(1); return 0; }",
		"int g(int x) { return g(x - 1) + x; } int main() { return g(3); }",
	}
	for _, src := range srcs {
		for name, l := range plan(t, src) {
			if l.TotalSize%16 != 0 {
				t.Errorf("%s: frame size %d not 16-byte aligned", name, l.TotalSize)
			}
		}
	}
}

func TestCalleeSaveSlots(t *testing.T) {
	info := NewCalleeSaveInfo([]riscv.Reg{riscv.S0, riscv.S3}, 24)
	if info.SaveOffsets[0] != 24 || info.SaveOffsets[1] != 28 {
		t.Errorf("offsets = %v, want [24 28]", info.SaveOffsets)
	}
}
