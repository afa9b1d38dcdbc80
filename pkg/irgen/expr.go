package irgen

import (
	"github.com/raymyers/sysy-cc/pkg/ast"
	"github.com/raymyers/sysy-cc/pkg/diag"
	"github.com/raymyers/sysy-cc/pkg/koopa"
)

var binaryOps = map[ast.BinaryOp]koopa.BinaryOp{
	ast.OpAdd: koopa.OpAdd,
	ast.OpSub: koopa.OpSub,
	ast.OpMul: koopa.OpMul,
	ast.OpDiv: koopa.OpDiv,
	ast.OpMod: koopa.OpMod,
	ast.OpLt:  koopa.OpLt,
	ast.OpLe:  koopa.OpLe,
	ast.OpGt:  koopa.OpGt,
	ast.OpGe:  koopa.OpGe,
	ast.OpEq:  koopa.OpEq,
	ast.OpNe:  koopa.OpNe,
}

// expr lowers an expression into the current block and returns its value
func (b *Builder) expr(e ast.Expr) koopa.Value {
	fc := b.fc
	switch ex := e.(type) {
	case *ast.Number:
		return koopa.Int(ex.Value)

	case *ast.LVal:
		return b.lvalValue(ex)

	case *ast.Unary:
		x := b.expr(ex.X)
		switch ex.Op {
		case ast.OpNeg:
			return fc.define(&koopa.Binary{Op: koopa.OpSub, LHS: koopa.Int(0), RHS: x})
		case ast.OpNot:
			return fc.define(&koopa.Binary{Op: koopa.OpEq, LHS: x, RHS: koopa.Int(0)})
		}
		return x

	case *ast.Binary:
		if ex.Op == ast.OpAnd || ex.Op == ast.OpOr {
			return b.shortCircuit(ex)
		}
		l := b.expr(ex.Left)
		r := b.expr(ex.Right)
		return fc.define(&koopa.Binary{Op: binaryOps[ex.Op], LHS: l, RHS: r})

	case *ast.Call:
		return b.call(ex)
	}
	b.fail(diag.KindInternal, "unknown expression %T", e)
	return nil
}

// shortCircuit lowers && and || through a stack slot:
//
//	  res = alloc i32
//	  br lhs, <rhs|short>, <short|rhs>
//	rhs:
//	  store (ne rhs, 0), res; jump end
//	short:
//	  store 0 (&&) or 1 (||), res; jump end
//	end:
//	  load res
func (b *Builder) shortCircuit(ex *ast.Binary) koopa.Value {
	fc := b.fc
	lhs := b.expr(ex.Left)
	res := fc.newTemp()
	fc.emit(&koopa.Def{Name: res, Op: &koopa.Alloc{Type: koopa.I32}})

	rhsLabel, shortLabel, end := fc.newLabel("sc_rhs"), fc.newLabel("sc_short"), fc.newLabel("sc_end")
	br := &koopa.Branch{Cond: lhs, True: rhsLabel, False: shortLabel}
	shortValue := int32(0)
	if ex.Op == ast.OpOr {
		br.True, br.False = shortLabel, rhsLabel
		shortValue = 1
	}
	fc.terminate(br)

	fc.startBlock(rhsLabel)
	rhs := b.expr(ex.Right)
	norm := fc.define(&koopa.Binary{Op: koopa.OpNe, LHS: rhs, RHS: koopa.Int(0)})
	fc.emit(&koopa.Store{Value: norm, Dest: res})
	fc.jumpTo(end)

	fc.startBlock(shortLabel)
	fc.emit(&koopa.Store{Value: koopa.Int(shortValue), Dest: res})
	fc.jumpTo(end)

	fc.startBlock(end)
	return fc.define(&koopa.Load{Src: res})
}

// call evaluates arguments left to right. Only int-returning callees get a
// result binding.
func (b *Builder) call(ex *ast.Call) koopa.Value {
	sym, ok := b.syms.lookup(ex.Name)
	if !ok {
		b.fail(diag.KindUndeclared, "%s at line %d", ex.Name, ex.Pos.Line)
	}
	if sym.kind != symFunc {
		b.fail(diag.KindNotFunction, "%s at line %d", ex.Name, ex.Pos.Line)
	}
	if len(ex.Args) != len(sym.params) {
		b.fail(diag.KindInternal, "%s expects %d arguments, got %d", ex.Name, len(sym.params), len(ex.Args))
	}
	args := make([]koopa.Value, len(ex.Args))
	for i, a := range ex.Args {
		args[i] = b.expr(a)
	}
	c := &koopa.Call{Callee: "@" + ex.Name, Args: args}
	if !sym.returnsInt {
		b.fc.emit(&koopa.CallStmt{Call: c})
		return &koopa.Undef{}
	}
	return b.fc.define(c)
}

func (b *Builder) lookupVar(lv *ast.LVal) *symbol {
	sym, ok := b.syms.lookup(lv.Name)
	if !ok {
		b.fail(diag.KindUndeclared, "%s at line %d", lv.Name, lv.Pos.Line)
	}
	if sym.kind == symFunc {
		b.fail(diag.KindNotVariable, "%s at line %d is a function", lv.Name, lv.Pos.Line)
	}
	if len(lv.Indices) > sym.depth {
		b.fail(diag.KindInternal, "%s indexed %d times but has %d dimensions", lv.Name, len(lv.Indices), sym.depth)
	}
	return sym
}

// indexChain walks the indices of lv and returns a pointer name. Array
// parameters hold a pointer in their slot, so the first step loads it and
// uses getptr; every other step is getelemptr.
func (b *Builder) indexChain(sym *symbol, indices []ast.Expr) string {
	fc := b.fc
	ptr := sym.irName
	if sym.isParam && sym.depth > 0 {
		if len(indices) == 0 {
			return ptr
		}
		base := fc.define(&koopa.Load{Src: ptr})
		idx := b.expr(indices[0])
		ptr = fc.define(&koopa.GetPtr{Src: base.Name, Index: idx}).Name
		indices = indices[1:]
	}
	for _, ie := range indices {
		idx := b.expr(ie)
		ptr = fc.define(&koopa.GetElemPtr{Src: ptr, Index: idx}).Name
	}
	return ptr
}

// lvalValue reads an lvalue. A partially indexed array decays to a pointer
// to its first element.
func (b *Builder) lvalValue(lv *ast.LVal) koopa.Value {
	sym := b.lookupVar(lv)
	if sym.kind == symConst {
		if len(lv.Indices) > 0 {
			b.fail(diag.KindInternal, "constant %s cannot be indexed", lv.Name)
		}
		return koopa.Int(sym.value)
	}
	fc := b.fc
	ptr := b.indexChain(sym, lv.Indices)
	switch {
	case len(lv.Indices) == sym.depth:
		return fc.define(&koopa.Load{Src: ptr})
	case sym.isParam && len(lv.Indices) == 0:
		// the slot already holds the decayed pointer
		return fc.define(&koopa.Load{Src: ptr})
	default:
		return fc.define(&koopa.GetElemPtr{Src: ptr, Index: koopa.Int(0)})
	}
}

// lvalAddr returns the pointer an assignment stores through
func (b *Builder) lvalAddr(lv *ast.LVal) string {
	sym := b.lookupVar(lv)
	if sym.kind != symVar || sym.constElems != nil {
		b.fail(diag.KindInternal, "cannot assign to constant %s", lv.Name)
	}
	if len(lv.Indices) != sym.depth {
		b.fail(diag.KindInternal, "cannot assign to array %s", lv.Name)
	}
	return b.indexChain(sym, lv.Indices)
}
