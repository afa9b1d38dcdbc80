// Package regalloc assigns registers to the values of an IR function by
// graph coloring. Liveness is computed per statement; values that cannot be
// colored are spilled to the stack frame.
package regalloc

import "github.com/raymyers/sysy-cc/pkg/koopa"

// Liveness holds the function-wide results of AnalyzeLiveness. The
// per-statement sets are stored on the blocks themselves (LiveAfter and
// TermLive).
type Liveness struct {
	// EntryLive is live on entry to the function: used parameters and any
	// slot read before it is written
	EntryLive koopa.NameSet
	// Slots are the scalar allocs kept in registers. A store into a slot
	// defines it and a load from it reads it.
	Slots koopa.NameSet
}

// PromotedSlots returns the names bound to scalar allocs (i32 or pointer).
// Their address never escapes, so they live in registers like temporaries.
func PromotedSlots(fn *koopa.Function) koopa.NameSet {
	slots := koopa.NewNameSet()
	for _, b := range fn.Blocks {
		for _, s := range b.Stmts {
			def, ok := s.(*koopa.Def)
			if !ok {
				continue
			}
			if a, ok := def.Op.(*koopa.Alloc); ok && koopa.IsScalar(a.Type) {
				slots.Add(def.Name)
			}
		}
	}
	return slots
}

// AggregateSlots returns the names bound to array allocs, which always live
// in the frame
func AggregateSlots(fn *koopa.Function) map[string]koopa.Type {
	aggs := make(map[string]koopa.Type)
	for _, b := range fn.Blocks {
		for _, s := range b.Stmts {
			def, ok := s.(*koopa.Def)
			if !ok {
				continue
			}
			if a, ok := def.Op.(*koopa.Alloc); ok && !koopa.IsScalar(a.Type) {
				aggs[def.Name] = a.Type
			}
		}
	}
	return aggs
}

// FrameAddresses returns the element pointers that sit at a constant offset
// from a local array and are only loaded from, stored to or offset again by
// a constant. Their addresses fold into sp-relative memory operands, so they
// never compete for registers.
func FrameAddresses(fn *koopa.Function) koopa.NameSet {
	aggs := AggregateSlots(fn)
	src := make(map[string]string)
	set := koopa.NewNameSet()
	for _, b := range fn.Blocks {
		for _, s := range b.Stmts {
			if base, ok := constOffsetBase(s); ok {
				src[koopa.DefName(s)] = base
				set.Add(koopa.DefName(s))
			}
		}
	}
	for changed := true; changed; {
		changed = false
		drop := koopa.NewNameSet()
		for n := range set {
			if _, ok := aggs[src[n]]; !ok && !set.Contains(src[n]) {
				drop.Add(n)
			}
		}
		for _, b := range fn.Blocks {
			for _, s := range b.Stmts {
				for _, u := range koopa.StmtUses(s) {
					if set.Contains(u) && !addressOnly(s, u, set) {
						drop.Add(u)
					}
				}
			}
			for _, u := range koopa.TermUses(b.Term) {
				drop.Add(u)
			}
		}
		for n := range drop {
			if set.Contains(n) {
				delete(set, n)
				changed = true
			}
		}
	}
	return set
}

// constOffsetBase returns the pointer a getelemptr or getptr with a
// constant index offsets
func constOffsetBase(s koopa.Stmt) (string, bool) {
	d, ok := s.(*koopa.Def)
	if !ok {
		return "", false
	}
	switch op := d.Op.(type) {
	case *koopa.GetElemPtr:
		_, isConst := op.Index.(*koopa.Integer)
		return op.Src, isConst
	case *koopa.GetPtr:
		_, isConst := op.Index.(*koopa.Integer)
		return op.Src, isConst
	}
	return "", false
}

// addressOnly reports whether s reads name only as a memory address or as
// the base of another folded pointer
func addressOnly(s koopa.Stmt, name string, set koopa.NameSet) bool {
	switch st := s.(type) {
	case *koopa.Store:
		v, isSym := st.Value.(*koopa.Symbol)
		return st.Dest == name && !(isSym && v.Name == name)
	case *koopa.StoreInit:
		return true
	case *koopa.Def:
		switch st.Op.(type) {
		case *koopa.Load:
			return true
		case *koopa.GetElemPtr, *koopa.GetPtr:
			base, ok := constOffsetBase(s)
			return ok && base == name && set.Contains(st.Name)
		}
	}
	return false
}

// PointDefUse returns the names a statement defines and reads, given the set
// of register-held slots. Global names are never reported.
func PointDefUse(s koopa.Stmt, slots koopa.NameSet) (def string, uses []string) {
	if st, ok := s.(*koopa.Store); ok && slots.Contains(st.Dest) {
		if v, ok := st.Value.(*koopa.Symbol); ok && !koopa.IsGlobalName(v.Name) {
			uses = append(uses, v.Name)
		}
		return st.Dest, uses
	}
	for _, n := range koopa.StmtUses(s) {
		if !koopa.IsGlobalName(n) {
			uses = append(uses, n)
		}
	}
	return koopa.DefName(s), uses
}

// AnalyzeLiveness computes the live-after set of every statement and
// terminator of fn. Block successor lists must be current (optim.BuildCFG).
//
// The fixpoint runs over blocks; a final backward sweep per block then
// records the statement-level sets, which equal those of a statement-level
// work-list solution.
func AnalyzeLiveness(fn *koopa.Function) *Liveness {
	lv := &Liveness{Slots: PromotedSlots(fn), EntryLive: koopa.NewNameSet()}
	n := len(fn.Blocks)
	if n == 0 {
		return lv
	}

	liveIn := make([]koopa.NameSet, n)
	for i := range liveIn {
		liveIn[i] = koopa.NewNameSet()
	}
	for changed := true; changed; {
		changed = false
		for i := n - 1; i >= 0; i-- {
			b := fn.Blocks[i]
			in := lv.transfer(b, liveOut(b, liveIn), false)
			if !in.Equal(liveIn[i]) {
				liveIn[i] = in
				changed = true
			}
		}
	}

	for _, b := range fn.Blocks {
		lv.transfer(b, liveOut(b, liveIn), true)
	}
	lv.EntryLive = liveIn[0]
	return lv
}

func liveOut(b *koopa.Block, liveIn []koopa.NameSet) koopa.NameSet {
	out := koopa.NewNameSet()
	for _, s := range b.Succs {
		for name := range liveIn[s] {
			out.Add(name)
		}
	}
	return out
}

// transfer walks b backwards from its live-out set and returns its live-in
// set. With record set, the per-statement sets are stored on b.
func (lv *Liveness) transfer(b *koopa.Block, out koopa.NameSet, record bool) koopa.NameSet {
	live := out
	if record {
		b.TermLive = live.Copy()
		b.LiveAfter = make([]koopa.NameSet, len(b.Stmts))
	}
	for _, n := range koopa.TermUses(b.Term) {
		live.Add(n)
	}
	for i := len(b.Stmts) - 1; i >= 0; i-- {
		if record {
			b.LiveAfter[i] = live.Copy()
		}
		def, uses := PointDefUse(b.Stmts[i], lv.Slots)
		if def != "" {
			delete(live, def)
		}
		for _, u := range uses {
			live.Add(u)
		}
	}
	return live
}
