package irgen

import "github.com/raymyers/sysy-cc/pkg/koopa"

// symKind distinguishes what a surface identifier is bound to
type symKind int

const (
	symConst symKind = iota // compile-time constant scalar
	symVar                  // runtime variable (scalar or array)
	symFunc                 // function
)

// symbol is one binding in a scope
type symbol struct {
	kind symKind

	// symConst
	value int32

	// symVar: irName names a slot of type typ (a pointer to it, in IR terms).
	// For array parameters the slot holds a pointer, and isParam is set.
	irName  string
	typ     koopa.Type
	isParam bool
	// depth is the number of index operations the slot accepts
	depth int
	// constant arrays keep their flattened contents for constant folding
	constElems []int32
	dims       []int

	// symFunc
	returnsInt bool
	params     []koopa.Type
}

// scope maps identifiers to symbols
type scope map[string]*symbol

// SymbolTable is a stack of scopes; index 0 is the global scope
type SymbolTable struct {
	scopes []scope
}

// NewSymbolTable creates a table holding only the global scope
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{scopes: []scope{make(scope)}}
}

// Push opens a new innermost scope
func (t *SymbolTable) Push() {
	t.scopes = append(t.scopes, make(scope))
}

// Pop closes the innermost scope. The global scope is never popped.
func (t *SymbolTable) Pop() {
	if len(t.scopes) > 1 {
		t.scopes = t.scopes[:len(t.scopes)-1]
	}
}

// Depth returns the number of open scopes, including the global one
func (t *SymbolTable) Depth() int {
	return len(t.scopes)
}

// define binds name in the innermost scope. It reports false if the name is
// already bound there.
func (t *SymbolTable) define(name string, sym *symbol) bool {
	inner := t.scopes[len(t.scopes)-1]
	if _, exists := inner[name]; exists {
		return false
	}
	inner[name] = sym
	return true
}

// lookup finds the innermost binding of name
func (t *SymbolTable) lookup(name string) (*symbol, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if sym, ok := t.scopes[i][name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// indexDepth counts how many index operations a slot of type t accepts
func indexDepth(t koopa.Type) int {
	n := 0
	for {
		elem := koopa.ElemOf(t)
		if elem == nil {
			return n
		}
		n++
		t = elem
	}
}
