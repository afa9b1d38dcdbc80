package regalloc

import (
	"math/rand"
	"sort"

	"github.com/raymyers/sysy-cc/pkg/diag"
	"github.com/raymyers/sysy-cc/pkg/koopa"
	"github.com/raymyers/sysy-cc/pkg/riscv"
)

// loopWeight multiplies the spill cost of references inside loop bodies
const loopWeight = 10

// Options controls allocation
type Options struct {
	// Colors is the number of registers handed out, at most
	// len(riscv.Allocatable). Zero means all of them.
	Colors int
	// Seed fixes the order in which spill candidates get a second chance
	Seed int64
}

// Allocation is the result of allocating one function
type Allocation struct {
	// Colors maps register-resident names to an index into riscv.Allocatable
	Colors map[string]int
	// Spilled lists the names kept in the frame, sorted
	Spilled []string
	// Liveness is the analysis the allocation was computed from
	Liveness *Liveness
	// Graph is the interference graph
	Graph *InterferenceGraph
}

// Reg returns the register assigned to name, if any
func (a *Allocation) Reg(name string) (riscv.Reg, bool) {
	c, ok := a.Colors[name]
	if !ok {
		return 0, false
	}
	return riscv.Allocatable[c], true
}

// UsedRegs returns the distinct registers handed out, in color order
func (a *Allocation) UsedRegs() []riscv.Reg {
	used := make([]bool, len(riscv.Allocatable))
	for _, c := range a.Colors {
		used[c] = true
	}
	var regs []riscv.Reg
	for c, u := range used {
		if u {
			regs = append(regs, riscv.Allocatable[c])
		}
	}
	return regs
}

// Allocator colors one function's interference graph.
// It is a Chaitin-style simplify/select allocator with optimistic coloring
// of spill candidates and no coalescing.
type Allocator struct {
	fn      *koopa.Function
	graph   *InterferenceGraph
	K       int
	seed    int64
	weights map[string]int
	colors  map[string]int

	selectStack []string
	spillStack  []string
}

// NewAllocator creates an allocator over an already built graph
func NewAllocator(fn *koopa.Function, graph *InterferenceGraph, opts Options) *Allocator {
	k := opts.Colors
	if k <= 0 || k > len(riscv.Allocatable) {
		k = len(riscv.Allocatable)
	}
	return &Allocator{
		fn:      fn,
		graph:   graph,
		K:       k,
		seed:    opts.Seed,
		weights: spillWeights(fn, graph.Nodes),
		colors:  make(map[string]int),
	}
}

// AllocateFunction runs liveness, builds the interference graph and colors
// it. Block successor lists must be current.
func AllocateFunction(fn *koopa.Function, opts Options) (*Allocation, error) {
	lv := AnalyzeLiveness(fn)
	graph := BuildInterferenceGraph(fn, lv, Candidates(fn))
	a := NewAllocator(fn, graph, opts)
	alloc, err := a.Allocate()
	if err != nil {
		return nil, err
	}
	alloc.Liveness = lv
	return alloc, nil
}

// spillWeights counts references to each node, with references inside
// loops counting loopWeight times
func spillWeights(fn *koopa.Function, nodes koopa.NameSet) map[string]int {
	w := make(map[string]int, len(nodes))
	for _, p := range fn.Params {
		w[p.Name]++
	}
	slots := PromotedSlots(fn)
	for _, b := range fn.Blocks {
		inc := 1
		if b.LoopDepth > 0 {
			inc = loopWeight
		}
		for _, s := range b.Stmts {
			def, uses := PointDefUse(s, slots)
			if def != "" {
				w[def] += inc
			}
			for _, u := range uses {
				w[u] += inc
			}
		}
		for _, u := range koopa.TermUses(b.Term) {
			w[u] += inc
		}
	}
	return w
}

// Allocate performs simplify, spill selection and select, then remaps
// argument registers away from named variables
func (a *Allocator) Allocate() (*Allocation, error) {
	a.simplify()
	a.assignColors()
	if err := a.verify(); err != nil {
		return nil, err
	}
	a.remapArgColors()

	alloc := &Allocation{Colors: a.colors, Graph: a.graph}
	for _, n := range a.graph.Sorted() {
		if _, ok := a.colors[n]; !ok {
			alloc.Spilled = append(alloc.Spilled, n)
		}
	}
	return alloc, nil
}

// simplify removes nodes of degree < K onto the select stack. When only
// significant-degree nodes remain, the one with the lowest weight/degree is
// removed as a spill candidate.
func (a *Allocator) simplify() {
	degree := make(map[string]int, len(a.graph.Nodes))
	removed := make(map[string]bool, len(a.graph.Nodes))
	var worklist []string
	for _, n := range a.graph.Sorted() {
		degree[n] = a.graph.Degree(n)
		if degree[n] < a.K {
			worklist = append(worklist, n)
		}
	}
	queued := make(map[string]bool, len(worklist))
	for _, n := range worklist {
		queued[n] = true
	}

	remove := func(n string) {
		removed[n] = true
		for _, m := range a.graph.Neighbors(n) {
			if removed[m] {
				continue
			}
			degree[m]--
			if degree[m] < a.K && !queued[m] {
				queued[m] = true
				worklist = append(worklist, m)
			}
		}
	}

	left := len(a.graph.Nodes)
	for left > 0 {
		if len(worklist) > 0 {
			n := worklist[0]
			worklist = worklist[1:]
			if removed[n] {
				continue
			}
			a.selectStack = append(a.selectStack, n)
			remove(n)
			left--
			continue
		}
		n := a.pickSpill(degree, removed)
		a.spillStack = append(a.spillStack, n)
		remove(n)
		left--
	}
}

// pickSpill returns the remaining node with minimum weight/degree; ties go
// to the first name in order
func (a *Allocator) pickSpill(degree map[string]int, removed map[string]bool) string {
	best := ""
	var bestW, bestD int
	for _, n := range a.graph.Sorted() {
		if removed[n] {
			continue
		}
		w, d := a.weights[n], degree[n]
		// w/d < bestW/bestD without division
		if best == "" || w*bestD < bestW*d {
			best, bestW, bestD = n, w, d
		}
	}
	return best
}

// assignColors pops the select stack, then gives spill candidates a second
// chance in a shuffled order fixed by the seed
func (a *Allocator) assignColors() {
	for i := len(a.selectStack) - 1; i >= 0; i-- {
		n := a.selectStack[i]
		if c, ok := a.lowestFree(n); ok {
			a.colors[n] = c
		}
	}

	candidates := append([]string(nil), a.spillStack...)
	sort.Strings(candidates)
	rng := rand.New(rand.NewSource(a.seed))
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for _, n := range candidates {
		if c, ok := a.lowestFree(n); ok {
			a.colors[n] = c
		}
	}
}

func (a *Allocator) lowestFree(n string) (int, bool) {
	used := make([]bool, a.K)
	for _, m := range a.graph.Neighbors(n) {
		if c, ok := a.colors[m]; ok {
			used[c] = true
		}
	}
	for c := 0; c < a.K; c++ {
		if !used[c] {
			return c, true
		}
	}
	return 0, false
}

// verify checks that every simplified node got a color and that no two
// neighbors share one
func (a *Allocator) verify() error {
	for _, n := range a.selectStack {
		if _, ok := a.colors[n]; !ok {
			return diag.Errorf(diag.KindAllocator, "%s: %s was simplified but left uncolored", a.fn.Name, n)
		}
	}
	for n, c := range a.colors {
		for _, m := range a.graph.Neighbors(n) {
			if cm, ok := a.colors[m]; ok && cm == c {
				return diag.Errorf(diag.KindAllocator, "%s: %s and %s interfere but share %s",
					a.fn.Name, n, m, riscv.Allocatable[c])
			}
		}
	}
	return nil
}

// remapArgColors moves every color class that holds a named variable out of
// the argument registers, into a temporary color nobody uses. Classes move
// whole, so the coloring stays valid.
func (a *Allocator) remapArgColors() {
	used := make([]bool, a.K)
	named := make([]bool, a.K)
	for n, c := range a.colors {
		used[c] = true
		if !koopa.IsTemp(n) {
			named[c] = true
		}
	}

	var free []int
	for c := 0; c < a.K; c++ {
		if riscv.IsTemp(riscv.Allocatable[c]) && !used[c] {
			free = append(free, c)
		}
	}

	remap := make(map[int]int)
	for c := 0; c < a.K && len(free) > 0; c++ {
		if riscv.IsArg(riscv.Allocatable[c]) && named[c] {
			remap[c] = free[0]
			free = free[1:]
		}
	}
	for n, c := range a.colors {
		if to, ok := remap[c]; ok {
			a.colors[n] = to
		}
	}
}
