package optim

import "github.com/raymyers/sysy-cc/pkg/koopa"

// TunnelJumps retargets branches and jumps that lead to an empty block
// whose only action is another jump. "jump %a" where %a is "jump %b"
// becomes "jump %b". The bypassed blocks become unreachable and are left
// for EliminateDeadBlocks. Returns the number of retargeted edges.
func TunnelJumps(fn *koopa.Function) int {
	forward := make(map[string]string)
	for i, b := range fn.Blocks {
		if i == 0 || len(b.Stmts) > 0 {
			continue
		}
		if j, ok := b.Term.(*koopa.Jump); ok {
			forward[b.Label] = j.Target
		}
	}
	if len(forward) == 0 {
		return 0
	}

	changed := 0
	resolve := func(label string) string {
		final := resolveLabel(label, forward)
		if final != label {
			changed++
		}
		return final
	}
	for _, b := range fn.Blocks {
		switch t := b.Term.(type) {
		case *koopa.Jump:
			t.Target = resolve(t.Target)
		case *koopa.Branch:
			t.True = resolve(t.True)
			t.False = resolve(t.False)
		}
	}
	return changed
}

// resolveLabel follows a chain of forwarding blocks. A cycle of empty
// jumps stops at the label where it closes.
func resolveLabel(label string, forward map[string]string) string {
	visited := make(map[string]bool)
	current := label
	for {
		if visited[current] {
			return current
		}
		visited[current] = true
		next, ok := forward[current]
		if !ok {
			return current
		}
		current = next
	}
}
