package optim

import "github.com/raymyers/sysy-cc/pkg/koopa"

// EliminateDeadValues removes definitions whose name is never referenced
// anywhere in fn, repeating until a full pass removes nothing. A dead call
// keeps its side effect as a bare call statement. Returns the number of
// definitions cut.
//
// A store's destination and a load's source count as references, so a slot
// stays alive as long as anything touches it.
func EliminateDeadValues(fn *koopa.Function) int {
	total := 0
	for {
		used := collectUses(fn)
		cut := 0
		for _, b := range fn.Blocks {
			kept := b.Stmts[:0]
			for _, s := range b.Stmts {
				def, ok := s.(*koopa.Def)
				if !ok || used.Contains(def.Name) {
					kept = append(kept, s)
					continue
				}
				cut++
				if call, isCall := def.Op.(*koopa.Call); isCall {
					kept = append(kept, &koopa.CallStmt{Call: call})
				}
			}
			b.Stmts = kept
		}
		if cut == 0 {
			return total
		}
		total += cut
	}
}

func collectUses(fn *koopa.Function) koopa.NameSet {
	used := koopa.NewNameSet()
	for _, b := range fn.Blocks {
		for _, s := range b.Stmts {
			for _, n := range koopa.StmtUses(s) {
				used.Add(n)
			}
		}
		for _, n := range koopa.TermUses(b.Term) {
			used.Add(n)
		}
	}
	return used
}
