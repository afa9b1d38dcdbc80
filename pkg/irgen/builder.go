// Package irgen lowers the SysY syntax tree into the block-structured IR.
// Lowering threads an explicit Builder (scopes, counters, current function)
// through every call; there is no package-level mutable state.
package irgen

import (
	"fmt"

	"github.com/raymyers/sysy-cc/pkg/ast"
	"github.com/raymyers/sysy-cc/pkg/diag"
	"github.com/raymyers/sysy-cc/pkg/koopa"
)

// Options controls lowering
type Options struct {
	// Profile brackets main with calls to @starttime and @stoptime
	Profile bool
}

// Builder holds the lowering state for one translation unit
type Builder struct {
	opts Options
	prog *koopa.Program
	syms *SymbolTable
	fc   *funcContext // nil outside function bodies
}

// bailout carries a fatal error from deep inside lowering up to Build
type bailout struct {
	err error
}

func (b *Builder) fail(kind diag.Kind, format string, args ...any) {
	err := error(diag.Errorf(kind, format, args...))
	if b.fc != nil {
		err = fmt.Errorf("function %s: %w", b.fc.fn.Name[1:], err)
	}
	panic(bailout{err: err})
}

// Build lowers a translation unit. The first violated contract stops
// lowering and is returned as a *diag.Error (possibly wrapped).
func Build(cu *ast.CompUnit, opts Options) (prog *koopa.Program, err error) {
	b := &Builder{
		opts: opts,
		prog: &koopa.Program{Decls: koopa.RuntimeDecls()},
		syms: NewSymbolTable(),
	}
	defer func() {
		if r := recover(); r != nil {
			bo, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			prog, err = nil, bo.err
		}
	}()

	for _, d := range b.prog.Decls {
		b.syms.define(d.Name[1:], &symbol{kind: symFunc, returnsInt: d.Ret != nil, params: d.Params})
	}
	for _, item := range cu.Items {
		switch it := item.(type) {
		case *ast.Decl:
			b.globalDecl(it)
		case *ast.FuncDef:
			b.funcDef(it)
		}
	}
	return b.prog, nil
}

func (b *Builder) bind(name string, sym *symbol) {
	if !b.syms.define(name, sym) {
		b.fail(diag.KindRedefinition, "%s is already defined in this scope", name)
	}
}

// --- Globals ---

func (b *Builder) globalDecl(d *ast.Decl) {
	for _, def := range d.Defs {
		dims := b.evalDims(def.Dims)
		if len(dims) == 0 {
			b.globalScalar(def, d.Const)
			continue
		}
		typ := koopa.ArrayOf(koopa.I32, dims)
		elems := make([]int32, product(dims))
		if def.Init != nil {
			for i, e := range b.flattenInit(def.Init, dims) {
				if e != nil {
					elems[i] = b.evalConst(e)
				}
			}
		}
		name := "@" + def.Name
		sym := &symbol{kind: symVar, irName: name, typ: typ, depth: len(dims)}
		if d.Const {
			sym.constElems, sym.dims = elems, dims
		}
		b.bind(def.Name, sym)
		b.prog.Globals = append(b.prog.Globals, koopa.Global{Name: name, Type: typ, Init: aggregateInit(elems, dims)})
	}
}

func (b *Builder) globalScalar(def *ast.Def, isConst bool) {
	var v int32
	if def.Init != nil {
		if def.Init.IsList() {
			b.fail(diag.KindInternal, "scalar %s initialized with a brace list", def.Name)
		}
		v = b.evalConst(def.Init.Expr)
	}
	if isConst {
		b.bind(def.Name, &symbol{kind: symConst, value: v})
		return
	}
	name := "@" + def.Name
	b.bind(def.Name, &symbol{kind: symVar, irName: name, typ: koopa.I32})
	var init koopa.Initializer = &koopa.ZeroInit{}
	if def.Init != nil {
		init = &koopa.IntInit{Value: v}
	}
	b.prog.Globals = append(b.prog.Globals, koopa.Global{Name: name, Type: koopa.I32, Init: init})
}

// --- Functions ---

func (b *Builder) funcDef(f *ast.FuncDef) {
	fn := &koopa.Function{Name: "@" + f.Name}
	if !f.Void {
		fn.Ret = koopa.I32
	}
	paramTypes := make([]koopa.Type, len(f.Params))
	for i, prm := range f.Params {
		paramTypes[i] = b.paramType(prm)
	}
	// bound before the body so that recursion resolves
	b.bind(f.Name, &symbol{kind: symFunc, returnsInt: !f.Void, params: paramTypes})

	b.fc = newFuncContext(fn)
	b.fc.retInt = !f.Void
	b.fc.profile = b.opts.Profile && f.Name == "main"
	b.syms.Push()

	b.fc.startBlock("%entry")
	if b.fc.profile {
		b.fc.emit(&koopa.CallStmt{Call: &koopa.Call{Callee: "@starttime"}})
	}
	for i, prm := range f.Params {
		argName := "%" + prm.Name
		if !b.fc.reserve(argName) {
			b.fail(diag.KindRedefinition, "parameter %s is already defined", prm.Name)
		}
		fn.Params = append(fn.Params, koopa.Param{Name: argName, Type: paramTypes[i]})
		slot := b.fc.uniqueLocal(prm.Name)
		b.fc.emit(&koopa.Def{Name: slot, Op: &koopa.Alloc{Type: paramTypes[i]}})
		b.fc.emit(&koopa.Store{Value: koopa.Sym(argName), Dest: slot})
		b.bind(prm.Name, &symbol{
			kind:    symVar,
			irName:  slot,
			typ:     paramTypes[i],
			isParam: true,
			depth:   indexDepth(paramTypes[i]),
		})
	}

	// the body shares the parameters' scope
	for _, item := range f.Body.Items {
		b.blockItem(item)
	}
	if b.fc.cur != nil {
		b.emitReturn(nil)
	}

	b.syms.Pop()
	b.prog.Funcs = append(b.prog.Funcs, fn)
	b.fc = nil
}

func (b *Builder) paramType(prm *ast.Param) koopa.Type {
	if !prm.IsArray {
		return koopa.I32
	}
	return &koopa.Pointer{Elem: koopa.ArrayOf(koopa.I32, b.evalDims(prm.Dims))}
}

// emitReturn ends the current block with a return. A nil value returns 0
// from int functions.
func (b *Builder) emitReturn(v koopa.Value) {
	if b.fc.profile {
		b.fc.emit(&koopa.CallStmt{Call: &koopa.Call{Callee: "@stoptime"}})
	}
	if !b.fc.retInt {
		b.fc.terminate(&koopa.Return{})
		return
	}
	if v == nil {
		v = koopa.Int(0)
	}
	b.fc.terminate(&koopa.Return{Value: v})
}

// --- Local declarations ---

func (b *Builder) localDecl(d *ast.Decl) {
	for _, def := range d.Defs {
		dims := b.evalDims(def.Dims)
		if len(dims) == 0 {
			b.localScalar(def, d.Const)
		} else {
			b.localArray(def, dims, d.Const)
		}
	}
}

func (b *Builder) localScalar(def *ast.Def, isConst bool) {
	if def.Init != nil && def.Init.IsList() {
		b.fail(diag.KindInternal, "scalar %s initialized with a brace list", def.Name)
	}
	if isConst {
		if def.Init == nil {
			b.fail(diag.KindNotConstant, "const %s has no initializer", def.Name)
		}
		b.bind(def.Name, &symbol{kind: symConst, value: b.evalConst(def.Init.Expr)})
		return
	}
	// the initializer is evaluated before the name comes into scope
	var v koopa.Value
	if def.Init != nil {
		v = b.expr(def.Init.Expr)
	}
	slot := b.fc.uniqueLocal(def.Name)
	b.fc.emit(&koopa.Def{Name: slot, Op: &koopa.Alloc{Type: koopa.I32}})
	if v != nil {
		b.fc.emit(&koopa.Store{Value: v, Dest: slot})
	}
	b.bind(def.Name, &symbol{kind: symVar, irName: slot, typ: koopa.I32})
}

func (b *Builder) localArray(def *ast.Def, dims []int, isConst bool) {
	typ := koopa.ArrayOf(koopa.I32, dims)
	var flat []ast.Expr
	if def.Init != nil {
		flat = b.flattenInit(def.Init, dims)
	}

	sym := &symbol{kind: symVar, typ: typ, depth: len(dims)}
	var values []koopa.Value
	allConst := true
	if isConst {
		sym.constElems, sym.dims = make([]int32, product(dims)), dims
		for i, e := range flat {
			if e != nil {
				sym.constElems[i] = b.evalConst(e)
			}
		}
	} else if def.Init != nil {
		values = make([]koopa.Value, len(flat))
		for i, e := range flat {
			if e == nil {
				values[i] = koopa.Int(0)
				continue
			}
			values[i] = b.expr(e)
			if _, ok := values[i].(*koopa.Integer); !ok {
				allConst = false
			}
		}
	}

	sym.irName = b.fc.uniqueLocal(def.Name)
	b.fc.emit(&koopa.Def{Name: sym.irName, Op: &koopa.Alloc{Type: typ}})
	switch {
	case isConst:
		b.fc.emit(&koopa.StoreInit{Init: aggregateInit(sym.constElems, dims), Dest: sym.irName})
	case def.Init == nil:
	case allConst:
		elems := make([]int32, len(values))
		for i, v := range values {
			elems[i] = v.(*koopa.Integer).Value
		}
		b.fc.emit(&koopa.StoreInit{Init: aggregateInit(elems, dims), Dest: sym.irName})
	default:
		for i, v := range values {
			ptr := b.elemPtr(sym.irName, dims, i)
			b.fc.emit(&koopa.Store{Value: v, Dest: ptr})
		}
	}
	b.bind(def.Name, sym)
}

// elemPtr addresses flat element k of an array slot with the given dims
func (b *Builder) elemPtr(slot string, dims []int, k int) string {
	ptr := slot
	stride := product(dims)
	for _, d := range dims {
		stride /= d
		idx := k / stride
		k %= stride
		ptr = b.fc.define(&koopa.GetElemPtr{Src: ptr, Index: koopa.Int(int32(idx))}).Name
	}
	return ptr
}
