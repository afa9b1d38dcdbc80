// Package compiler drives the whole pipeline: SysY source is parsed,
// lowered to Koopa IR, cleaned up, register allocated and emitted as RV32
// assembly text.
package compiler

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/raymyers/sysy-cc/pkg/asmgen"
	"github.com/raymyers/sysy-cc/pkg/ast"
	"github.com/raymyers/sysy-cc/pkg/config"
	"github.com/raymyers/sysy-cc/pkg/diag"
	"github.com/raymyers/sysy-cc/pkg/irgen"
	"github.com/raymyers/sysy-cc/pkg/koopa"
	"github.com/raymyers/sysy-cc/pkg/lexer"
	"github.com/raymyers/sysy-cc/pkg/optim"
	"github.com/raymyers/sysy-cc/pkg/parser"
	"github.com/raymyers/sysy-cc/pkg/peephole"
	"github.com/raymyers/sysy-cc/pkg/riscv"
)

// Mode selects the output artifact
type Mode int

const (
	ModeKoopa Mode = iota // IR text
	ModeRISCV             // assembly
	ModePerf              // assembly with main bracketed by timer calls
)

var modeNames = [...]string{"koopa", "riscv", "perf"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "?"
}

// ParseMode maps a mode name, with or without leading dashes, to a Mode
func ParseMode(s string) (Mode, error) {
	name := strings.TrimLeft(s, "-")
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// Options controls one compilation
type Options struct {
	config.Options
	// Logger receives pass tracing; may be nil
	Logger *diag.Logger
}

// DefaultOptions returns the default configuration without a logger
func DefaultOptions() Options {
	return Options{Options: config.Default()}
}

// Parse turns source text into a syntax tree. Parser diagnostics become a
// single syntax error.
func Parse(src string) (*ast.CompUnit, error) {
	p := parser.New(lexer.New(src))
	cu := p.ParseCompUnit()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, diag.Errorf(diag.KindSyntax, "%s", strings.Join(errs, "; "))
	}
	return cu, nil
}

// Compile runs the pipeline for mode and returns the output text
func Compile(src string, mode Mode, opts Options) (string, error) {
	prog, err := Lower(src, mode == ModePerf)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if mode == ModeKoopa {
		koopa.NewPrinter(&buf).PrintProgram(prog)
		return buf.String(), nil
	}
	asm, err := Backend(prog, opts)
	if err != nil {
		return "", err
	}
	riscv.NewPrinter(&buf).PrintProgram(asm)
	return buf.String(), nil
}

// Lower parses src and builds its IR. With profile set, main is bracketed
// by timer calls.
func Lower(src string, profile bool) (*koopa.Program, error) {
	cu, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return irgen.Build(cu, irgen.Options{Profile: profile})
}

// Backend optimizes prog in place and translates it to assembly
func Backend(prog *koopa.Program, opts Options) (*riscv.Program, error) {
	Optimize(prog, opts.Logger)
	asm, err := asmgen.TransformProgram(prog, asmgen.Options{
		Colors: opts.Colors,
		Seed:   opts.SpillSeed,
		Logger: opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	if opts.Peephole {
		n := peephole.OptimizeProgram(asm)
		opts.Logger.Tracef("peephole", "%d reloads rewritten", n)
	}
	return asm, nil
}

// Optimize runs the IR cleanup passes on every function and leaves the CFG
// current for allocation
func Optimize(prog *koopa.Program, log *diag.Logger) {
	for _, fn := range prog.Funcs {
		blocks := optim.EliminateDeadBlocks(fn)
		tunneled := optim.TunnelJumps(fn)
		if tunneled > 0 {
			blocks += optim.EliminateDeadBlocks(fn)
		}
		defs := optim.EliminateDeadValues(fn)
		optim.BuildCFG(fn)
		log.Tracef("optim", "%s: %d blocks removed, %d jumps tunneled, %d definitions removed",
			fn.Name, blocks, tunneled, defs)
	}
}
