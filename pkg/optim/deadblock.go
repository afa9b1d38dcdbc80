package optim

import "github.com/raymyers/sysy-cc/pkg/koopa"

// EliminateDeadBlocks removes blocks that cannot be reached from the entry
// block and rebuilds the CFG. It returns the number of blocks removed.
func EliminateDeadBlocks(fn *koopa.Function) int {
	BuildCFG(fn)
	live := Reachable(fn)

	kept := fn.Blocks[:0]
	removed := 0
	for i, b := range fn.Blocks {
		if live[i] {
			kept = append(kept, b)
		} else {
			removed++
		}
	}
	fn.Blocks = kept

	// indices shifted, so the edges are rebuilt rather than patched
	BuildCFG(fn)
	return removed
}
