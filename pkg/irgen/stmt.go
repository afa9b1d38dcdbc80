package irgen

import (
	"github.com/raymyers/sysy-cc/pkg/ast"
	"github.com/raymyers/sysy-cc/pkg/diag"
	"github.com/raymyers/sysy-cc/pkg/koopa"
)

func (b *Builder) blockItem(item ast.BlockItem) {
	switch it := item.(type) {
	case *ast.Decl:
		b.localDecl(it)
	case ast.Stmt:
		b.stmt(it)
	}
}

func (b *Builder) stmt(s ast.Stmt) {
	fc := b.fc
	switch st := s.(type) {
	case *ast.Block:
		b.syms.Push()
		for _, item := range st.Items {
			b.blockItem(item)
		}
		b.syms.Pop()

	case *ast.Assign:
		v := b.expr(st.Value)
		fc.emit(&koopa.Store{Value: v, Dest: b.lvalAddr(st.Target)})

	case *ast.ExprStmt:
		if st.Expr != nil {
			b.expr(st.Expr)
		}

	case *ast.If:
		then, end := fc.newLabel("then"), fc.newLabel("if_end")
		fc.terminate(&koopa.Branch{Cond: b.expr(st.Cond), True: then, False: end})
		fc.startBlock(then)
		b.stmt(st.Then)
		fc.jumpTo(end)
		fc.startBlock(end)

	case *ast.IfElse:
		then, els, end := fc.newLabel("then"), fc.newLabel("else"), fc.newLabel("if_end")
		fc.terminate(&koopa.Branch{Cond: b.expr(st.Cond), True: then, False: els})
		fc.startBlock(then)
		b.stmt(st.Then)
		fc.jumpTo(end)
		fc.startBlock(els)
		b.stmt(st.Else)
		fc.jumpTo(end)
		fc.startBlock(end)

	case *ast.While:
		begin, body, end := fc.newLabel("while_begin"), fc.newLabel("while_body"), fc.newLabel("while_end")
		fc.jumpTo(begin)
		fc.loops.Push(begin, end)
		fc.startBlock(begin)
		fc.terminate(&koopa.Branch{Cond: b.expr(st.Cond), True: body, False: end})
		fc.startBlock(body)
		b.stmt(st.Body)
		fc.jumpTo(begin)
		fc.loops.Pop()
		fc.startBlock(end)

	case *ast.Break:
		loop, ok := fc.loops.Top()
		if !ok {
			b.fail(diag.KindLoopControl, "break outside a loop at line %d", st.Pos.Line)
		}
		fc.terminate(&koopa.Jump{Target: loop.end})

	case *ast.Continue:
		loop, ok := fc.loops.Top()
		if !ok {
			b.fail(diag.KindLoopControl, "continue outside a loop at line %d", st.Pos.Line)
		}
		fc.terminate(&koopa.Jump{Target: loop.begin})

	case *ast.Return:
		var v koopa.Value
		if st.Value != nil {
			v = b.expr(st.Value)
		}
		b.emitReturn(v)

	default:
		b.fail(diag.KindInternal, "unknown statement %T", s)
	}
}
