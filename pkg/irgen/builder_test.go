package irgen

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/raymyers/sysy-cc/internal/kinterp"
	"github.com/raymyers/sysy-cc/pkg/diag"
	"github.com/raymyers/sysy-cc/pkg/koopa"
	"github.com/raymyers/sysy-cc/pkg/lexer"
	"github.com/raymyers/sysy-cc/pkg/parser"
	"gopkg.in/yaml.v3"
)

type irTestSpec struct {
	Name   string `yaml:"name"`
	Input  string `yaml:"input"`
	Expect string `yaml:"expect"`
}

type irTestFile struct {
	Tests []irTestSpec `yaml:"tests"`
}

func build(t *testing.T, src string, opts Options) (*koopa.Program, error) {
	t.Helper()
	p := parser.New(lexer.New(src))
	cu := p.ParseCompUnit()
	if len(p.Errors()) > 0 {
		t.Fatalf("parser errors: %v", p.Errors())
	}
	return Build(cu, opts)
}

func mustBuild(t *testing.T, src string) *koopa.Program {
	t.Helper()
	prog, err := build(t, src, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return prog
}

// printBody prints globals and functions but not the runtime declarations
func printBody(prog *koopa.Program) string {
	var buf bytes.Buffer
	body := *prog
	body.Decls = nil
	koopa.NewPrinter(&buf).PrintProgram(&body)
	return buf.String()
}

func TestBuildYAML(t *testing.T) {
	data, err := os.ReadFile("../../testdata/irgen.yaml")
	if err != nil {
		t.Fatalf("failed to read irgen.yaml: %v", err)
	}
	var testFile irTestFile
	if err := yaml.Unmarshal(data, &testFile); err != nil {
		t.Fatalf("failed to parse irgen.yaml: %v", err)
	}

	for _, tc := range testFile.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			got := strings.TrimSpace(printBody(mustBuild(t, tc.Input)))
			want := strings.TrimSpace(tc.Expect)
			if got != want {
				t.Errorf("IR mismatch\ngot:\n%s\nwant:\n%s", got, want)
			}
		})
	}
}

func TestRuntimeDeclsComeFirst(t *testing.T) {
	prog := mustBuild(t, "int main() { return 0; }")
	if len(prog.Decls) != 8 {
		t.Fatalf("got %d declarations, want 8", len(prog.Decls))
	}
	var buf bytes.Buffer
	koopa.NewPrinter(&buf).PrintProgram(prog)
	if !strings.HasPrefix(buf.String(), "decl @getint(): i32\n") {
		t.Errorf("program does not start with the getint declaration:\n%s", buf.String())
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  error
	}{
		{"undeclared variable", "int main() { return y; }", diag.ErrUndeclared},
		{"undeclared function", "int main() { return g(); }", diag.ErrUndeclared},
		{"redefinition in scope", "int main() { int a; int a; return 0; }", diag.ErrRedefinition},
		{"global redefinition", "int a; int a() { return 0; }", diag.ErrRedefinition},
		{"duplicate parameter", "int f(int a, int a) { return a; }", diag.ErrRedefinition},
		{"break outside loop", "int main() { break; return 0; }", diag.ErrLoopControl},
		{"continue outside loop", "int main() { continue; }", diag.ErrLoopControl},
		{"call a variable", "int main() { int f = 1; return f(); }", diag.ErrNotFunction},
		{"read a function", "int g() { return 1; } int main() { return g + 1; }", diag.ErrNotVariable},
		{"assign a function", "int g() { return 1; } int main() { g = 2; return 0; }", diag.ErrNotVariable},
		{"non-constant global", "int a = 1; int b = a; int main() { return b; }", diag.ErrNotConstant},
		{"non-constant dimension", "int main() { int n = 2; int a[n]; return 0; }", diag.ErrNotConstant},
		{"constant division by zero", "const int z = 1 / 0;", diag.ErrNotConstant},
		{"misaligned brace", "int a[2][2] = {1, {2, 3}, 4};", diag.ErrInternal},
		{"too many initializers", "int a[2] = {1, 2, 3};", diag.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := build(t, tt.input, Options{})
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, tt.kind) {
				t.Errorf("error %q is not %v", err, tt.kind)
			}
		})
	}
}

func TestErrorNamesFunction(t *testing.T) {
	_, err := build(t, "int helper() { return q; }", Options{})
	if err == nil || !strings.Contains(err.Error(), "function helper") {
		t.Errorf("error %v does not name the function", err)
	}
}

func TestProfileHooks(t *testing.T) {
	prog, err := build(t, "int main() { if (1) return 1; return 2; }", Options{Profile: true})
	if err != nil {
		t.Fatal(err)
	}
	main := prog.Funcs[0]
	first := koopa.StmtString(main.Blocks[0].Stmts[0])
	if first != "call @starttime()" {
		t.Errorf("first statement = %q, want call @starttime()", first)
	}
	returns := 0
	for _, b := range main.Blocks {
		if _, ok := b.Term.(*koopa.Return); !ok {
			continue
		}
		returns++
		last := koopa.StmtString(b.Stmts[len(b.Stmts)-1])
		if last != "call @stoptime()" {
			t.Errorf("block %s returns after %q, want call @stoptime()", b.Label, last)
		}
	}
	if returns != 2 {
		t.Errorf("got %d returning blocks, want 2", returns)
	}
}

func TestLoopDepth(t *testing.T) {
	prog := mustBuild(t, `
int main() {
  int i = 0;
  while (i < 3) {
    int j = 0;
    while (j < 3) j = j + 1;
    i = i + 1;
  }
  return i;
}`)
	depth := map[string]int{}
	for _, b := range prog.Funcs[0].Blocks {
		depth[b.Label] = b.LoopDepth
	}
	want := map[string]int{
		"%entry":         0,
		"%while_begin_0": 1,
		"%while_body_1":  1,
		"%while_begin_3": 2,
		"%while_body_4":  2,
		"%while_end_5":   1,
		"%while_end_2":   0,
	}
	for label, d := range want {
		if depth[label] != d {
			t.Errorf("LoopDepth(%s) = %d, want %d", label, depth[label], d)
		}
	}
}

func TestEveryBlockTerminated(t *testing.T) {
	prog := mustBuild(t, `
int f(int x) {
  while (1) {
    if (x > 3) return x;
    x = x + 1;
    continue;
    x = 0;
  }
}
void g() {}
int main() { g(); return f(0); }`)
	for _, fn := range prog.Funcs {
		for _, b := range fn.Blocks {
			if b.Term == nil {
				t.Errorf("%s: block %s has no terminator", fn.Name, b.Label)
			}
		}
	}
}

func TestExecution(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		stdin  string
		exit   int32
		stdout string
	}{
		{
			name:  "arithmetic",
			input: "int main() { int a = 3, b = 4; return a + b * 2; }",
			exit:  11,
		},
		{
			name: "array row sum",
			input: `
int main() {
  int a[2][3] = {{1, 2, 3}, {4, 5, 6}};
  int i = 0, s = 0;
  while (i < 3) { s = s + a[0][i]; i = i + 1; }
  return s;
}`,
			exit: 6,
		},
		{
			name: "brace alignment",
			input: `
int main() {
  int a[2][3] = {1, 2, 3, {4}};
  return a[1][0] * 10 + a[1][1] + a[0][2];
}`,
			exit: 43,
		},
		{
			name: "flat initializer",
			input: `
int main() {
  int a[2][3] = {1, 2, 3, 4, 5, 6};
  return a[1][2];
}`,
			exit: 6,
		},
		{
			name:  "negative modulo",
			input: "int main() { return -7 % 3 + 10; }",
			exit:  9,
		},
		{
			name: "recursion",
			input: `
int fib(int n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); }
int main() { return fib(10); }`,
			exit: 55,
		},
		{
			name: "array parameter decay",
			input: `
int sum(int v[][2], int n) {
  int i = 0, s = 0;
  while (i < n) { s = s + v[i][0] + v[i][1]; i = i + 1; }
  return s;
}
int first(int r[]) { return r[0] + r[1]; }
int main() {
  int m[3][2] = {1, 2, 3, 4, 5, 6};
  return sum(m, 3) + first(m[2]);
}`,
			exit: 32,
		},
		{
			name: "io runtime",
			input: `
int a[4];
int main() {
  int n = getarray(a);
  putarray(n, a);
  putint(getint());
  putch(10);
  return n;
}`,
			stdin:  "3 7 8 9 42",
			exit:   3,
			stdout: "3: 7 8 9\n42\n",
		},
		{
			name: "globals and consts",
			input: `
const int K[3] = {2, 4, 8};
int total;
void add(int x) { total = total + x; }
int main() {
  add(K[0]); add(K[2]);
  return total;
}`,
			exit: 10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			res, err := kinterp.Run(mustBuild(t, tt.input), strings.NewReader(tt.stdin), &out)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if res.Exit != tt.exit {
				t.Errorf("exit = %d, want %d", res.Exit, tt.exit)
			}
			if out.String() != tt.stdout {
				t.Errorf("stdout = %q, want %q", out.String(), tt.stdout)
			}
		})
	}
}

func TestShortCircuitSkipsDivision(t *testing.T) {
	res, err := kinterp.Run(mustBuild(t, "int main() { return 1 || (1 / 0); }"), strings.NewReader(""), &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Exit != 1 {
		t.Errorf("exit = %d, want 1", res.Exit)
	}
	if res.Divs != 0 {
		t.Errorf("executed %d divisions, want 0", res.Divs)
	}
}
