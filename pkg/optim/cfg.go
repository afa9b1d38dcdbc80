// Package optim holds the function-level IR passes that run between
// lowering and register allocation: CFG construction, jump tunneling and
// dead code removal.
package optim

import "github.com/raymyers/sysy-cc/pkg/koopa"

// BuildCFG recomputes Preds and Succs for every block of fn. Edges are block
// indices into fn.Blocks; a branch whose targets coincide yields one edge.
func BuildCFG(fn *koopa.Function) {
	index := make(map[string]int, len(fn.Blocks))
	for i, b := range fn.Blocks {
		index[b.Label] = i
		b.Preds = nil
		b.Succs = nil
	}
	for i, b := range fn.Blocks {
		for _, target := range koopa.TermTargets(b.Term) {
			j, ok := index[target]
			if !ok || contains(b.Succs, j) {
				continue
			}
			b.Succs = append(b.Succs, j)
			fn.Blocks[j].Preds = append(fn.Blocks[j].Preds, i)
		}
	}
}

// Reachable marks the blocks reachable from the entry block. BuildCFG must
// have run.
func Reachable(fn *koopa.Function) []bool {
	seen := make([]bool, len(fn.Blocks))
	if len(fn.Blocks) == 0 {
		return seen
	}
	stack := []int{0}
	seen[0] = true
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range fn.Blocks[n].Succs {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return seen
}

func contains(xs []int, x int) bool {
	for _, y := range xs {
		if y == x {
			return true
		}
	}
	return false
}
