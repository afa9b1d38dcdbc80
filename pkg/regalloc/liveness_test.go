package regalloc

import (
	"testing"

	"github.com/raymyers/sysy-cc/pkg/irgen"
	"github.com/raymyers/sysy-cc/pkg/koopa"
	"github.com/raymyers/sysy-cc/pkg/lexer"
	"github.com/raymyers/sysy-cc/pkg/optim"
	"github.com/raymyers/sysy-cc/pkg/parser"
)

// prepare lowers src and runs the passes that precede allocation
func prepare(t *testing.T, src string) *koopa.Program {
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
	for _, fn := range prog.Funcs {
		optim.EliminateDeadBlocks(fn)
		optim.EliminateDeadValues(fn)
		optim.BuildCFG(fn)
	}
	return prog
}

func TestLivenessStraightLine(t *testing.T) {
	fn := prepare(t, "int main() { int a = 3, b = 4; return a + b * 2; }").Funcs[0]
	AnalyzeLiveness(fn)
	b := fn.Blocks[0]

	// %a_0 = alloc; store 3; %b_0 = alloc; store 4; %0 = load a; %1 = load b; %2 = mul; %3 = add
	want := [][]string{
		{},
		{"%a_0"},
		{"%a_0"},
		{"%a_0", "%b_0"},
		{"%0", "%b_0"},
		{"%0", "%1"},
		{"%0", "%2"},
		{"%3"},
	}
	if len(b.LiveAfter) != len(want) {
		t.Fatalf("got %d live sets, want %d", len(b.LiveAfter), len(want))
	}
	for i, w := range want {
		if !b.LiveAfter[i].Equal(koopa.NewNameSet(w...)) {
			t.Errorf("live after %q = %v, want %v", koopa.StmtString(b.Stmts[i]), b.LiveAfter[i].Slice(), w)
		}
	}
	if len(b.TermLive) != 0 {
		t.Errorf("live after ret = %v, want empty", b.TermLive.Slice())
	}
}

func TestLivenessLoopCarried(t *testing.T) {
	fn := prepare(t, `
int main() {
  int i = 0, s = 0;
  while (i < 10) { s = s + i; i = i + 1; }
  return s;
}`).Funcs[0]
	AnalyzeLiveness(fn)
	for _, b := range fn.Blocks {
		if b.Label != "%while_body_1" {
			continue
		}
		if !b.TermLive.Contains("%i_0") || !b.TermLive.Contains("%s_0") {
			t.Errorf("loop back edge live set %v misses i or s", b.TermLive.Slice())
		}
		return
	}
	t.Fatal("no loop body block")
}

func TestLivenessEntryHoldsParams(t *testing.T) {
	fn := prepare(t, "int f(int a, int b, int c) { return a + c; }").Funcs[0]
	lv := AnalyzeLiveness(fn)
	if !lv.EntryLive.Equal(koopa.NewNameSet("%a", "%b", "%c")) {
		t.Errorf("entry live = %v", lv.EntryLive.Slice())
	}
	if !lv.Slots.Contains("%a_0") {
		t.Errorf("parameter slot not promoted: %v", lv.Slots.Slice())
	}
}

// point addresses one statement (idx < len(Stmts)) or the terminator
type point struct {
	block, idx int
}

func TestLivenessSoundness(t *testing.T) {
	srcs := []string{
		"int main() { int a = 3, b = 4; return a + b * 2; }",
		`int g(int n) {
  int i = 0, acc = 1;
  while (i < n) {
    if (i % 2 == 0 && acc < 100) acc = acc * 2; else { acc = acc + i; continue; }
    i = i + 1;
  }
  return acc;
}`,
		`int h(int x[], int n) {
  int t = x[0];
  if (n > 1 || t) { t = t + x[1]; }
  return t;
}`,
	}
	for _, src := range srcs {
		for _, fn := range prepare(t, src).Funcs {
			lv := AnalyzeLiveness(fn)
			checkSound(t, fn, lv)
		}
	}
}

// checkSound searches forward from every point for an upward-exposed use
// and requires the name to be in that point's live-after set
func checkSound(t *testing.T, fn *koopa.Function, lv *Liveness) {
	t.Helper()
	defUse := func(p point) (string, []string) {
		b := fn.Blocks[p.block]
		if p.idx < len(b.Stmts) {
			return PointDefUse(b.Stmts[p.idx], lv.Slots)
		}
		return "", koopa.TermUses(b.Term)
	}
	next := func(p point) []point {
		b := fn.Blocks[p.block]
		if p.idx < len(b.Stmts) {
			return []point{{p.block, p.idx + 1}}
		}
		var out []point
		for _, s := range b.Succs {
			out = append(out, point{s, 0})
		}
		return out
	}
	liveAfter := func(p point) koopa.NameSet {
		b := fn.Blocks[p.block]
		if p.idx < len(b.Stmts) {
			return b.LiveAfter[p.idx]
		}
		return b.TermLive
	}

	names := Candidates(fn)
	for bi, b := range fn.Blocks {
		for idx := 0; idx <= len(b.Stmts); idx++ {
			p := point{bi, idx}
			for n := range names {
				if !usedLater(n, next(p), defUse, next) {
					continue
				}
				if !liveAfter(p).Contains(n) {
					t.Errorf("%s: %s is used later but not live after %s[%d]", fn.Name, n, b.Label, idx)
				}
			}
		}
	}
}

func usedLater(n string, start []point, defUse func(point) (string, []string), next func(point) []point) bool {
	seen := make(map[point]bool)
	work := append([]point(nil), start...)
	for len(work) > 0 {
		p := work[len(work)-1]
		work = work[:len(work)-1]
		if seen[p] {
			continue
		}
		seen[p] = true
		def, uses := defUse(p)
		for _, u := range uses {
			if u == n {
				return true
			}
		}
		if def == n {
			continue
		}
		work = append(work, next(p)...)
	}
	return false
}

func TestFrameAddresses(t *testing.T) {
	fn := prepare(t, `
int main() {
  int a[4];
  int b[2][3];
  int i = getint();
  a[1] = 7;
  b[1][2] = a[1];
  b[0][i] = 3;
  putarray(4, a);
  return b[1][2];
}`).Funcs[0]
	folded := FrameAddresses(fn)

	// name the geps by their rendering so the test does not depend on numbering
	want := map[string]bool{
		"getelemptr %a_0, 1": true,
		"getelemptr %b_0, 1": true,
		"getelemptr %b_0, 0": false, // feeds a variable index
		"getelemptr %a_0, 0": false, // passed to a call
	}
	byOp := make(map[string]string)
	for _, b := range fn.Blocks {
		for _, s := range b.Stmts {
			if d, ok := s.(*koopa.Def); ok {
				if _, isGep := d.Op.(*koopa.GetElemPtr); isGep {
					text := koopa.StmtString(s)
					byOp[text[len(d.Name)+3:]] = d.Name
					if _, isConst := d.Op.(*koopa.GetElemPtr).Index.(*koopa.Integer); !isConst && folded.Contains(d.Name) {
						t.Errorf("%s has a variable index but was folded", text)
					}
				}
			}
		}
	}
	for op, in := range want {
		name, ok := byOp[op]
		if !ok {
			t.Fatalf("no %q in IR", op)
		}
		if folded.Contains(name) != in {
			t.Errorf("%s (%s): folded = %v, want %v", name, op, !in, in)
		}
	}
	for n := range folded {
		if Candidates(fn).Contains(n) {
			t.Errorf("frame address %s is still a register candidate", n)
		}
	}
}
