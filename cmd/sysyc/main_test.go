package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sampleSrc = "int main() { int a = 2; return a * 21; }\n"

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.c")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the root command with args as given on the command line
func execute(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(normalizeFlags(args))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestFlagsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	for _, name := range []string{"koopa", "riscv", "perf", "output", "config", "seed", "no-peephole", "verbose"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag --%s to exist", name)
		}
	}
}

func TestNormalizeFlags(t *testing.T) {
	got := normalizeFlags([]string{"-koopa", "in.c", "-o", "out.koopa", "-riscv", "-perf", "-v"})
	want := []string{"--koopa", "in.c", "-o", "out.koopa", "--riscv", "--perf", "-v"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("normalizeFlags = %v, want %v", got, want)
	}
}

func TestModeRequired(t *testing.T) {
	src := writeSource(t, sampleSrc)
	tests := []struct {
		name string
		args []string
	}{
		{"none", []string{src}},
		{"two", []string{"-koopa", "-riscv", src}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, err := execute(tt.args...)
			if !errors.Is(err, ErrMode) {
				t.Errorf("err = %v, want ErrMode", err)
			}
			if !strings.Contains(errOut, "sysyc: error:") {
				t.Errorf("stderr = %q", errOut)
			}
		})
	}
}

func TestKoopaToFile(t *testing.T) {
	src := writeSource(t, sampleSrc)
	dst := filepath.Join(t.TempDir(), "out.koopa")
	if _, errOut, err := execute("-koopa", src, "-o", dst); err != nil {
		t.Fatalf("err = %v, stderr %q", err, errOut)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "fun @main(): i32 {") {
		t.Errorf("output is not Koopa IR:\n%s", data)
	}
}

func TestRISCVToStdout(t *testing.T) {
	src := writeSource(t, sampleSrc)
	out, _, err := execute("-riscv", src)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "\t.globl main\nmain:\n") {
		t.Errorf("output is not assembly:\n%s", out)
	}
}

func TestFailedCompileWritesNothing(t *testing.T) {
	src := writeSource(t, "int main() { return x; }")
	dst := filepath.Join(t.TempDir(), "out.S")
	_, errOut, err := execute("-riscv", src, "-o", dst)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(errOut, "error:") || !strings.Contains(errOut, "undeclared identifier") {
		t.Errorf("stderr = %q", errOut)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("output file exists after a failed compile")
	}
}

func TestMissingInput(t *testing.T) {
	_, _, err := execute("-riscv", filepath.Join(t.TempDir(), "missing.c"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestConfigFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "sysyc.toml")
	if err := os.WriteFile(cfg, []byte("colors = 2\npeephole = true\nlog_level = \"silent\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := writeSource(t, sampleSrc)

	if _, _, err := execute("-riscv", src, "--config", cfg, "--seed", "7"); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	_, errOut, err := execute("-riscv", src, "--config", cfg, "-v")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(errOut, "[asmgen]") {
		t.Errorf("-v did not override the configured log level: %q", errOut)
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("colors = 99\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := execute("-riscv", src, "--config", bad); err == nil {
		t.Error("out of range colors accepted")
	}
}

func TestUnderscoreFlagNames(t *testing.T) {
	src := writeSource(t, sampleSrc)
	if _, _, err := execute("-riscv", src, "--no_peephole"); err != nil {
		t.Errorf("--no_peephole rejected: %v", err)
	}
}
