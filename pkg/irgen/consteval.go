package irgen

import (
	"github.com/raymyers/sysy-cc/pkg/ast"
	"github.com/raymyers/sysy-cc/pkg/diag"
)

// evalConst folds a constant expression: literals, constants, constant
// array elements with constant indices, and operators over those.
// Arithmetic wraps like the target's 32-bit instructions.
func (b *Builder) evalConst(e ast.Expr) int32 {
	switch ex := e.(type) {
	case *ast.Number:
		return ex.Value
	case *ast.LVal:
		return b.evalConstLVal(ex)
	case *ast.Unary:
		x := b.evalConst(ex.X)
		switch ex.Op {
		case ast.OpNeg:
			return -x
		case ast.OpNot:
			return boolInt(x == 0)
		}
		return x
	case *ast.Binary:
		return b.evalConstBinary(ex)
	case *ast.Call:
		b.fail(diag.KindNotConstant, "call to %s in constant expression", ex.Name)
	}
	b.fail(diag.KindNotConstant, "unsupported constant expression")
	return 0
}

func (b *Builder) evalConstLVal(lv *ast.LVal) int32 {
	sym, ok := b.syms.lookup(lv.Name)
	if !ok {
		b.fail(diag.KindUndeclared, "%s", lv.Name)
	}
	if sym.kind == symConst && len(lv.Indices) == 0 {
		return sym.value
	}
	if sym.kind != symVar || sym.constElems == nil || len(lv.Indices) != len(sym.dims) {
		b.fail(diag.KindNotConstant, "%s is not a constant", lv.Name)
	}
	k := 0
	for i, idx := range lv.Indices {
		v := b.evalConst(idx)
		if v < 0 || int(v) >= sym.dims[i] {
			b.fail(diag.KindNotConstant, "index %d out of range for %s", v, lv.Name)
		}
		k = k*sym.dims[i] + int(v)
	}
	return sym.constElems[k]
}

func (b *Builder) evalConstBinary(ex *ast.Binary) int32 {
	l := b.evalConst(ex.Left)
	switch ex.Op {
	case ast.OpAnd:
		if l == 0 {
			return 0
		}
		return boolInt(b.evalConst(ex.Right) != 0)
	case ast.OpOr:
		if l != 0 {
			return 1
		}
		return boolInt(b.evalConst(ex.Right) != 0)
	}
	r := b.evalConst(ex.Right)
	switch ex.Op {
	case ast.OpAdd:
		return l + r
	case ast.OpSub:
		return l - r
	case ast.OpMul:
		return l * r
	case ast.OpDiv, ast.OpMod:
		if r == 0 {
			b.fail(diag.KindNotConstant, "division by zero in constant expression")
		}
		if ex.Op == ast.OpDiv {
			return l / r
		}
		return l % r
	case ast.OpLt:
		return boolInt(l < r)
	case ast.OpLe:
		return boolInt(l <= r)
	case ast.OpGt:
		return boolInt(l > r)
	case ast.OpGe:
		return boolInt(l >= r)
	case ast.OpEq:
		return boolInt(l == r)
	case ast.OpNe:
		return boolInt(l != r)
	}
	b.fail(diag.KindInternal, "unknown operator %s", ex.Op)
	return 0
}

func boolInt(c bool) int32 {
	if c {
		return 1
	}
	return 0
}
