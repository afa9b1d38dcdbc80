package regalloc

import (
	"sort"

	"github.com/raymyers/sysy-cc/pkg/koopa"
)

// InterferenceGraph represents the register interference graph.
// Two names interfere if they are both live at the same point.
type InterferenceGraph struct {
	// Nodes are the register candidates
	Nodes koopa.NameSet
	// Edges maps each node to its interfering neighbors
	Edges map[string]koopa.NameSet
}

// NewInterferenceGraph creates an empty interference graph
func NewInterferenceGraph() *InterferenceGraph {
	return &InterferenceGraph{
		Nodes: koopa.NewNameSet(),
		Edges: make(map[string]koopa.NameSet),
	}
}

// AddNode adds a name to the graph
func (g *InterferenceGraph) AddNode(n string) {
	g.Nodes.Add(n)
	if g.Edges[n] == nil {
		g.Edges[n] = koopa.NewNameSet()
	}
}

// AddEdge adds an interference edge between two names
func (g *InterferenceGraph) AddEdge(a, b string) {
	if a == b {
		return // No self-edges
	}
	g.AddNode(a)
	g.AddNode(b)
	g.Edges[a].Add(b)
	g.Edges[b].Add(a)
}

// HasEdge returns true if there is an interference edge
func (g *InterferenceGraph) HasEdge(a, b string) bool {
	return g.Edges[a].Contains(b)
}

// Degree returns the number of neighbors of a name
func (g *InterferenceGraph) Degree(n string) int {
	return len(g.Edges[n])
}

// Neighbors returns the interfering neighbors of a name, sorted
func (g *InterferenceGraph) Neighbors(n string) []string {
	return g.Edges[n].Slice()
}

// Sorted returns the nodes in name order
func (g *InterferenceGraph) Sorted() []string {
	return g.Nodes.Slice()
}

// Candidates returns the names that compete for registers: parameters and
// every defined value except aggregate allocs and frame addresses
func Candidates(fn *koopa.Function) koopa.NameSet {
	c := koopa.NewNameSet()
	for _, p := range fn.Params {
		c.Add(p.Name)
	}
	aggs := AggregateSlots(fn)
	frame := FrameAddresses(fn)
	for _, b := range fn.Blocks {
		for _, s := range b.Stmts {
			if name := koopa.DefName(s); name != "" {
				if _, isAgg := aggs[name]; !isAgg && !frame.Contains(name) {
					c.Add(name)
				}
			}
		}
	}
	return c
}

// BuildInterferenceGraph constructs the interference graph over candidates
// from the live-after sets that AnalyzeLiveness stored on fn's blocks.
// Edges come from three sources:
//   - names co-live after any statement or terminator
//   - a definition against everything live after it, even when the defined
//     value is itself dead
//   - names live on entry, which are all defined before the first statement
func BuildInterferenceGraph(fn *koopa.Function, lv *Liveness, candidates koopa.NameSet) *InterferenceGraph {
	g := NewInterferenceGraph()
	for n := range candidates {
		g.AddNode(n)
	}

	clique := func(set koopa.NameSet) {
		names := make([]string, 0, len(set))
		for n := range set {
			if candidates.Contains(n) {
				names = append(names, n)
			}
		}
		sort.Strings(names)
		for i := range names {
			for j := i + 1; j < len(names); j++ {
				g.AddEdge(names[i], names[j])
			}
		}
	}

	for _, b := range fn.Blocks {
		for i, s := range b.Stmts {
			after := b.LiveAfter[i]
			clique(after)
			def, _ := PointDefUse(s, lv.Slots)
			if def == "" || !candidates.Contains(def) {
				continue
			}
			for n := range after {
				if candidates.Contains(n) {
					g.AddEdge(def, n)
				}
			}
		}
		clique(b.TermLive)
	}
	clique(lv.EntryLive)
	return g
}
