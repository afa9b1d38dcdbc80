package irgen

import (
	"fmt"
	"strconv"

	"github.com/raymyers/sysy-cc/pkg/koopa"
)

// loopLabels are the jump targets of one enclosing while loop
type loopLabels struct {
	begin string // continue target
	end   string // break target
}

// LoopStack tracks enclosing loops, innermost last
type LoopStack struct {
	frames []loopLabels
}

// Push enters a loop
func (s *LoopStack) Push(begin, end string) {
	s.frames = append(s.frames, loopLabels{begin: begin, end: end})
}

// Pop leaves the innermost loop
func (s *LoopStack) Pop() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Top returns the innermost loop, if any
func (s *LoopStack) Top() (loopLabels, bool) {
	if len(s.frames) == 0 {
		return loopLabels{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Depth returns the loop nesting depth
func (s *LoopStack) Depth() int {
	return len(s.frames)
}

// funcContext is the per-function lowering state. It is created when a
// function definition starts and dropped when it ends.
type funcContext struct {
	fn        *koopa.Function
	cur       *koopa.Block // nil right after a terminator
	nextTemp  int
	nextLabel int
	used      map[string]bool // every local name handed out so far
	loops     LoopStack
	retInt    bool
	profile   bool // emit timer calls around main
}

func newFuncContext(fn *koopa.Function) *funcContext {
	return &funcContext{fn: fn, used: make(map[string]bool)}
}

// newTemp returns a fresh numeric temporary
func (c *funcContext) newTemp() string {
	name := "%" + strconv.Itoa(c.nextTemp)
	c.nextTemp++
	return name
}

// newLabel returns a fresh block label with the given stem
func (c *funcContext) newLabel(stem string) string {
	label := fmt.Sprintf("%%%s_%d", stem, c.nextLabel)
	c.nextLabel++
	return label
}

// uniqueLocal returns a function-unique name for a surface identifier:
// %x_0, %x_1, ...
func (c *funcContext) uniqueLocal(ident string) string {
	for i := 0; ; i++ {
		name := "%" + ident + "_" + strconv.Itoa(i)
		if !c.used[name] {
			c.used[name] = true
			return name
		}
	}
}

// reserve marks a name as taken, reporting whether it was free
func (c *funcContext) reserve(name string) bool {
	if c.used[name] {
		return false
	}
	c.used[name] = true
	return true
}

// startBlock opens a new block. An open predecessor falls through to it.
func (c *funcContext) startBlock(label string) {
	if c.cur != nil && c.cur.Term == nil {
		c.cur.Term = &koopa.Jump{Target: label}
	}
	c.cur = &koopa.Block{Label: label, LoopDepth: c.loops.Depth()}
	c.fn.Blocks = append(c.fn.Blocks, c.cur)
}

// ensureBlock opens an unreachable block when code follows a terminator
func (c *funcContext) ensureBlock() {
	if c.cur == nil {
		c.startBlock(c.newLabel("unreachable"))
	}
}

func (c *funcContext) emit(s koopa.Stmt) {
	c.ensureBlock()
	c.cur.Stmts = append(c.cur.Stmts, s)
}

// define emits "name = op" under a fresh temporary and returns it as a value
func (c *funcContext) define(op koopa.Operation) *koopa.Symbol {
	name := c.newTemp()
	c.emit(&koopa.Def{Name: name, Op: op})
	return &koopa.Symbol{Name: name}
}

// terminate ends the current block
func (c *funcContext) terminate(t koopa.Terminator) {
	c.ensureBlock()
	c.cur.Term = t
	c.cur = nil
}

// jumpTo ends the current block with a jump, unless control already left it
func (c *funcContext) jumpTo(label string) {
	if c.cur != nil {
		c.terminate(&koopa.Jump{Target: label})
	}
}
