package optim

import (
	"testing"

	"github.com/raymyers/sysy-cc/pkg/irgen"
	"github.com/raymyers/sysy-cc/pkg/koopa"
	"github.com/raymyers/sysy-cc/pkg/lexer"
	"github.com/raymyers/sysy-cc/pkg/parser"
)

func lower(t *testing.T, src string) *koopa.Program {
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
	return prog
}

func labels(fn *koopa.Function) []string {
	out := make([]string, len(fn.Blocks))
	for i, b := range fn.Blocks {
		out[i] = b.Label
	}
	return out
}

func TestBuildCFG(t *testing.T) {
	fn := lower(t, "int main() { int a = 1; if (a) a = 2; else a = 3; return a; }").Funcs[0]
	BuildCFG(fn)
	// %entry, %then_0, %else_1, %if_end_2
	wantSuccs := [][]int{{1, 2}, {3}, {3}, nil}
	wantPreds := [][]int{nil, {0}, {0}, {1, 2}}
	for i, b := range fn.Blocks {
		if !equalInts(b.Succs, wantSuccs[i]) {
			t.Errorf("%s succs = %v, want %v", b.Label, b.Succs, wantSuccs[i])
		}
		if !equalInts(b.Preds, wantPreds[i]) {
			t.Errorf("%s preds = %v, want %v", b.Label, b.Preds, wantPreds[i])
		}
	}
}

func TestBuildCFGSameTargetsOnce(t *testing.T) {
	fn := &koopa.Function{Name: "@f", Blocks: []*koopa.Block{
		{Label: "%entry", Term: &koopa.Branch{Cond: koopa.Int(1), True: "%x", False: "%x"}},
		{Label: "%x", Term: &koopa.Return{}},
	}}
	BuildCFG(fn)
	if len(fn.Blocks[0].Succs) != 1 || len(fn.Blocks[1].Preds) != 1 {
		t.Errorf("succs %v preds %v, want one edge", fn.Blocks[0].Succs, fn.Blocks[1].Preds)
	}
}

func TestEliminateDeadBlocks(t *testing.T) {
	fn := lower(t, `
int main() {
  int a = 0;
  while (1) {
    a = a + 1;
    if (a > 5) return a;
    continue;
    a = 100;
  }
  return -1;
}`).Funcs[0]
	before := len(fn.Blocks)
	removed := EliminateDeadBlocks(fn)
	if removed == 0 {
		t.Fatalf("no blocks removed from %v", labels(fn))
	}
	if len(fn.Blocks) != before-removed {
		t.Errorf("block count %d, want %d", len(fn.Blocks), before-removed)
	}
	if fn.Blocks[0].Label != "%entry" {
		t.Errorf("entry block moved: %v", labels(fn))
	}
	for i, ok := range Reachable(fn) {
		if !ok {
			t.Errorf("block %s survived but is unreachable", fn.Blocks[i].Label)
		}
	}
	for _, b := range fn.Blocks {
		for _, p := range b.Preds {
			if p >= len(fn.Blocks) {
				t.Errorf("%s has stale predecessor %d", b.Label, p)
			}
		}
	}
}

func TestTunnelJumps(t *testing.T) {
	fn := &koopa.Function{Name: "@f", Blocks: []*koopa.Block{
		{Label: "%entry", Term: &koopa.Branch{Cond: koopa.Int(1), True: "%a", False: "%c"}},
		{Label: "%a", Term: &koopa.Jump{Target: "%b"}},
		{Label: "%b", Term: &koopa.Jump{Target: "%c"}},
		{Label: "%c", Term: &koopa.Return{}},
		{Label: "%loop", Term: &koopa.Jump{Target: "%loop"}},
	}}
	// entry's true edge and %a's jump both skip ahead
	if n := TunnelJumps(fn); n != 2 {
		t.Errorf("retargeted %d edges, want 2", n)
	}
	br := fn.Blocks[0].Term.(*koopa.Branch)
	if br.True != "%c" || br.False != "%c" {
		t.Errorf("branch targets %s/%s, want %%c/%%c", br.True, br.False)
	}
	if got := fn.Blocks[4].Term.(*koopa.Jump).Target; got != "%loop" {
		t.Errorf("self loop retargeted to %s", got)
	}
	EliminateDeadBlocks(fn)
	want := []string{"%entry", "%c"}
	if got := labels(fn); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("blocks after cleanup = %v, want %v", got, want)
	}
}

func TestEliminateDeadValues(t *testing.T) {
	fn := &koopa.Function{Name: "@main", Ret: koopa.I32, Blocks: []*koopa.Block{{
		Label: "%entry",
		Stmts: []koopa.Stmt{
			&koopa.Def{Name: "%0", Op: &koopa.Binary{Op: koopa.OpAdd, LHS: koopa.Int(1), RHS: koopa.Int(2)}},
			&koopa.Def{Name: "%1", Op: &koopa.Binary{Op: koopa.OpMul, LHS: koopa.Sym("%0"), RHS: koopa.Int(2)}},
			&koopa.Def{Name: "%2", Op: &koopa.Call{Callee: "@getint"}},
			&koopa.Def{Name: "%x_0", Op: &koopa.Alloc{Type: koopa.I32}},
			&koopa.Store{Value: koopa.Int(4), Dest: "%x_0"},
			&koopa.Def{Name: "%3", Op: &koopa.Load{Src: "%x_0"}},
		},
		Term: &koopa.Return{Value: koopa.Sym("%3")},
	}}}

	// %1 dies first, which kills %0 on the second pass
	if n := EliminateDeadValues(fn); n != 3 {
		t.Errorf("cut %d definitions, want 3", n)
	}
	var got []string
	for _, s := range fn.Blocks[0].Stmts {
		got = append(got, koopa.StmtString(s))
	}
	want := []string{
		"call @getint()",
		"%x_0 = alloc i32",
		"store 4, %x_0",
		"%3 = load %x_0",
	}
	if len(got) != len(want) {
		t.Fatalf("statements = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stmt %d = %q, want %q", i, got[i], want[i])
		}
	}

	if n := EliminateDeadValues(fn); n != 0 {
		t.Errorf("second run cut %d definitions, want 0", n)
	}
}

func TestPassesIdempotentOnPrograms(t *testing.T) {
	srcs := []string{
		"int main() { int a = 3, b = 4; return a + b * 2; }",
		"int main() { return 1 || (1 / 0); }",
		"int f(int x) { int y = x * 2; getint(); return x; } int main() { return f(3); }",
	}
	for _, src := range srcs {
		for _, fn := range lower(t, src).Funcs {
			EliminateDeadBlocks(fn)
			EliminateDeadValues(fn)
			if n := EliminateDeadBlocks(fn); n != 0 {
				t.Errorf("%s: second dead block pass removed %d", fn.Name, n)
			}
			if n := EliminateDeadValues(fn); n != 0 {
				t.Errorf("%s: second dead value pass cut %d", fn.Name, n)
			}
		}
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
