package irgen

import (
	"github.com/raymyers/sysy-cc/pkg/ast"
	"github.com/raymyers/sysy-cc/pkg/diag"
	"github.com/raymyers/sysy-cc/pkg/koopa"
)

func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// evalDims evaluates array bounds, which must be positive constants
func (b *Builder) evalDims(exprs []ast.Expr) []int {
	dims := make([]int, len(exprs))
	for i, e := range exprs {
		v := b.evalConst(e)
		if v <= 0 {
			b.fail(diag.KindNotConstant, "array dimension must be positive, got %d", v)
		}
		dims[i] = int(v)
	}
	return dims
}

// flattenInit lays a brace initializer out in row-major order against dims.
// The result always has product(dims) entries; nil entries are implicit
// zeros. A nested brace list fills the largest sub-array that the current
// position is aligned to.
func (b *Builder) flattenInit(iv *ast.InitVal, dims []int) []ast.Expr {
	if !iv.IsList() {
		b.fail(diag.KindInternal, "array initialized with a scalar")
	}
	return b.fillInit(iv.List, dims)
}

func (b *Builder) fillInit(list []*ast.InitVal, dims []int) []ast.Expr {
	total := product(dims)
	out := make([]ast.Expr, 0, total)
	for _, item := range list {
		if len(out) >= total {
			b.fail(diag.KindInternal, "too many initializers for array of %d elements", total)
		}
		if !item.IsList() {
			out = append(out, item.Expr)
			continue
		}
		k := 1
		for k < len(dims) && len(out)%product(dims[k:]) != 0 {
			k++
		}
		if k == len(dims) {
			b.fail(diag.KindInternal, "brace list where a scalar element is expected")
		}
		out = append(out, b.fillInit(item.List, dims[k:])...)
	}
	for len(out) < total {
		out = append(out, nil)
	}
	return out
}

// aggregateInit rebuilds the nested initializer for flat row-major contents.
// All-zero contents collapse to zeroinit.
func aggregateInit(elems []int32, dims []int) koopa.Initializer {
	allZero := true
	for _, e := range elems {
		if e != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return &koopa.ZeroInit{}
	}
	return nest(elems, dims)
}

func nest(elems []int32, dims []int) koopa.Initializer {
	if len(dims) == 0 {
		return &koopa.IntInit{Value: elems[0]}
	}
	stride := product(dims[1:])
	agg := &koopa.Aggregate{Elems: make([]koopa.Initializer, dims[0])}
	for i := range agg.Elems {
		agg.Elems[i] = nest(elems[i*stride:(i+1)*stride], dims[1:])
	}
	return agg
}
