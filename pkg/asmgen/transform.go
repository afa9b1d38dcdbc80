// Package asmgen translates register-allocated Koopa IR to RV32IM
// assembly. Each function is allocated, given a frame and then emitted
// block by block; globals become data directives.
package asmgen

import (
	"github.com/raymyers/sysy-cc/pkg/diag"
	"github.com/raymyers/sysy-cc/pkg/koopa"
	"github.com/raymyers/sysy-cc/pkg/optim"
	"github.com/raymyers/sysy-cc/pkg/regalloc"
	"github.com/raymyers/sysy-cc/pkg/riscv"
	"github.com/raymyers/sysy-cc/pkg/stacking"
)

// Options controls code generation
type Options struct {
	// Colors limits the registers the allocator may use; zero means all
	Colors int
	// Seed is passed to the register allocator
	Seed int64
	// Logger receives per-function tracing; may be nil
	Logger *diag.Logger
}

// TransformProgram translates a whole program
func TransformProgram(prog *koopa.Program, opts Options) (*riscv.Program, error) {
	out := &riscv.Program{}
	globals := make(map[string]koopa.Type, len(prog.Globals))
	for _, g := range prog.Globals {
		globals[g.Name] = g.Type
		out.Globals = append(out.Globals, globalData(g))
	}
	for _, fn := range prog.Funcs {
		f, err := TransformFunction(fn, globals, opts)
		if err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, f)
	}
	return out, nil
}

// TransformFunction allocates registers for fn, lays out its frame and
// emits its code. globals maps each global name to its slot type.
func TransformFunction(fn *koopa.Function, globals map[string]koopa.Type, opts Options) (*riscv.Function, error) {
	optim.BuildCFG(fn)
	alloc, err := regalloc.AllocateFunction(fn, regalloc.Options{Colors: opts.Colors, Seed: opts.Seed})
	if err != nil {
		return nil, err
	}
	frame := stacking.PlanFrame(fn, alloc)
	opts.Logger.Tracef("asmgen", "%s: %d in registers, %d spilled, frame %d bytes",
		fn.Name, len(alloc.Colors), len(alloc.Spilled), frame.TotalSize)

	vi := NewVarInfo(fn, globals, alloc, frame)
	return newFuncEmitter(fn, vi, alloc, frame).function()
}
