package asmgen

import (
	"github.com/raymyers/sysy-cc/pkg/koopa"
	"github.com/raymyers/sysy-cc/pkg/regalloc"
	"github.com/raymyers/sysy-cc/pkg/riscv"
	"github.com/raymyers/sysy-cc/pkg/stacking"
)

// LocKind says where a name lives
type LocKind int

const (
	LocNone      LocKind = iota // never live, never materialized
	LocReg                      // register-resident value or scalar slot
	LocSpill                    // value or scalar slot kept in a frame word
	LocAggregate                // array alloc or frame address; the name denotes sp+Offset
	LocGlobal                   // global; the name denotes its address
)

// Loc is the location of one name
type Loc struct {
	Kind   LocKind
	Reg    riscv.Reg
	Offset int32
	Symbol string
}

// VarInfo gathers, for one function, the type and location of every name
type VarInfo struct {
	Types map[string]koopa.Type
	Locs  map[string]Loc
	Slots koopa.NameSet
}

// NewVarInfo infers types and combines the allocation with the frame
func NewVarInfo(fn *koopa.Function, globals map[string]koopa.Type, alloc *regalloc.Allocation, frame *stacking.FrameLayout) *VarInfo {
	vi := &VarInfo{
		Types: inferTypes(fn, globals),
		Locs:  make(map[string]Loc),
		Slots: alloc.Liveness.Slots,
	}
	for name := range globals {
		vi.Locs[name] = Loc{Kind: LocGlobal, Symbol: name[1:]}
	}
	for name, c := range alloc.Colors {
		vi.Locs[name] = Loc{Kind: LocReg, Reg: riscv.Allocatable[c]}
	}
	for name, off := range frame.Spill {
		vi.Locs[name] = Loc{Kind: LocSpill, Offset: off}
	}
	for name, off := range frame.Locals {
		vi.Locs[name] = Loc{Kind: LocAggregate, Offset: off}
	}
	vi.foldFrameAddresses(fn)
	return vi
}

// foldFrameAddresses gives each frame address the sp offset it denotes.
// Bases may be defined in a later block, so it repeats until settled.
func (vi *VarInfo) foldFrameAddresses(fn *koopa.Function) {
	folded := regalloc.FrameAddresses(fn)
	for progress := true; progress; {
		progress = false
		for _, b := range fn.Blocks {
			for _, s := range b.Stmts {
				d, ok := s.(*koopa.Def)
				if !ok || !folded.Contains(d.Name) {
					continue
				}
				if _, done := vi.Locs[d.Name]; done {
					continue
				}
				var src string
				var index koopa.Value
				switch op := d.Op.(type) {
				case *koopa.GetElemPtr:
					src, index = op.Src, op.Index
				case *koopa.GetPtr:
					src, index = op.Src, op.Index
				}
				base, ok := vi.Locs[src]
				if !ok || base.Kind != LocAggregate {
					continue
				}
				off := int64(index.(*koopa.Integer).Value) * int64(stride(d.Op, vi.Types[src]))
				vi.Locs[d.Name] = Loc{Kind: LocAggregate, Offset: base.Offset + int32(off)}
				progress = true
			}
		}
	}
}

// Loc returns the location of name; unknown names are LocNone
func (vi *VarInfo) Loc(name string) Loc {
	return vi.Locs[name]
}

// inferTypes assigns a type to every name a function defines or reads.
// Globals and allocs are pointers to their storage.
func inferTypes(fn *koopa.Function, globals map[string]koopa.Type) map[string]koopa.Type {
	types := make(map[string]koopa.Type)
	for name, t := range globals {
		types[name] = &koopa.Pointer{Elem: t}
	}
	for _, p := range fn.Params {
		types[p.Name] = p.Type
	}
	for _, b := range fn.Blocks {
		for _, s := range b.Stmts {
			def, ok := s.(*koopa.Def)
			if !ok {
				continue
			}
			switch op := def.Op.(type) {
			case *koopa.Alloc:
				types[def.Name] = &koopa.Pointer{Elem: op.Type}
			case *koopa.Load:
				types[def.Name] = elemOrI32(types[op.Src])
			case *koopa.GetElemPtr:
				types[def.Name] = &koopa.Pointer{Elem: elemOrI32(elemOrI32(types[op.Src]))}
			case *koopa.GetPtr:
				types[def.Name] = types[op.Src]
			default:
				types[def.Name] = koopa.I32
			}
		}
	}
	return types
}

func elemOrI32(t koopa.Type) koopa.Type {
	if t == nil {
		return koopa.I32
	}
	if e := koopa.ElemOf(t); e != nil {
		return e
	}
	return koopa.I32
}

// stride returns the byte distance between consecutive elements addressed
// by op on a pointer of type t
func stride(op koopa.Operation, t koopa.Type) int32 {
	switch op.(type) {
	case *koopa.GetElemPtr:
		return int32(elemOrI32(elemOrI32(t)).Size())
	default:
		return int32(elemOrI32(t).Size())
	}
}
