package parser

import (
	"bytes"
	"os"
	"testing"

	"github.com/raymyers/sysy-cc/pkg/ast"
	"github.com/raymyers/sysy-cc/pkg/lexer"
	"gopkg.in/yaml.v3"
)

// TestSpec represents a test case from parse.yaml
type TestSpec struct {
	Name   string `yaml:"name"`
	Input  string `yaml:"input"`
	Expect string `yaml:"expect"`
}

// TestFile represents the parse.yaml file structure
type TestFile struct {
	Tests []TestSpec `yaml:"tests"`
}

func parse(t *testing.T, input string) *ast.CompUnit {
	t.Helper()
	p := New(lexer.New(input))
	cu := p.ParseCompUnit()
	if len(p.Errors()) > 0 {
		t.Fatalf("parser errors: %v", p.Errors())
	}
	return cu
}

func TestParseYAML(t *testing.T) {
	data, err := os.ReadFile("../../testdata/parse.yaml")
	if err != nil {
		t.Fatalf("failed to read parse.yaml: %v", err)
	}

	var testFile TestFile
	if err := yaml.Unmarshal(data, &testFile); err != nil {
		t.Fatalf("failed to parse parse.yaml: %v", err)
	}

	for _, tc := range testFile.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			cu := parse(t, tc.Input)
			var buf bytes.Buffer
			ast.NewPrinter(&buf).PrintCompUnit(cu)
			if got := buf.String(); got != tc.Expect {
				t.Errorf("printed tree mismatch\ngot:\n%s\nwant:\n%s", got, tc.Expect)
			}
		})
	}
}

func TestDanglingElseBindsInner(t *testing.T) {
	cu := parse(t, "int f(int a, int b) { if (a) if (b) return 1; else return 2; return 3; }")
	fn := cu.Items[0].(*ast.FuncDef)
	outer, ok := fn.Body.Items[0].(*ast.If)
	if !ok {
		t.Fatalf("outer statement is %T, want *ast.If (open form)", fn.Body.Items[0])
	}
	inner, ok := outer.Then.(*ast.IfElse)
	if !ok {
		t.Fatalf("inner statement is %T, want *ast.IfElse (closed form)", outer.Then)
	}
	if r, ok := inner.Else.(*ast.Return); !ok || ast.ExprString(r.Value) != "2" {
		t.Errorf("inner else = %#v, want return 2", inner.Else)
	}
}

func TestAssignmentVersusExpression(t *testing.T) {
	cu := parse(t, "int main() { int a[2]; a[1] = 3; a[1] + 1; return 0; }")
	items := cu.Items[0].(*ast.FuncDef).Body.Items
	if _, ok := items[1].(*ast.Assign); !ok {
		t.Errorf("items[1] is %T, want *ast.Assign", items[1])
	}
	if _, ok := items[2].(*ast.ExprStmt); !ok {
		t.Errorf("items[2] is %T, want *ast.ExprStmt", items[2])
	}
}

func TestMinInt(t *testing.T) {
	cu := parse(t, "int main() { return -2147483648; }")
	ret := cu.Items[0].(*ast.FuncDef).Body.Items[0].(*ast.Return)
	u := ret.Value.(*ast.Unary)
	if n := u.X.(*ast.Number); n.Value != -2147483648 {
		t.Errorf("literal = %d, want -2147483648", n.Value)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing semicolon", "int main() { return 0 }"},
		{"const without init", "const int x;"},
		{"void variable", "void x;"},
		{"bad literal", "int main() { return 09; }"},
		{"stray token", "int main() { ) }"},
		{"unterminated block", "int main() { return 0;"},
		{"bad top level", "return 0;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(lexer.New(tt.input))
			p.ParseCompUnit()
			if len(p.Errors()) == 0 {
				t.Error("expected a parse error")
			}
		})
	}
}
