package ast

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs the syntax tree as normalized SysY source. Expressions are
// fully parenthesized so the printed form shows how the parser grouped them.
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a new syntax tree printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintCompUnit prints a complete translation unit
func (p *Printer) PrintCompUnit(cu *CompUnit) {
	for _, item := range cu.Items {
		switch it := item.(type) {
		case *Decl:
			p.printDecl(it)
		case *FuncDef:
			p.printFuncDef(it)
		}
	}
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
}

func (p *Printer) printFuncDef(f *FuncDef) {
	ret := "int"
	if f.Void {
		ret = "void"
	}
	params := make([]string, len(f.Params))
	for i, prm := range f.Params {
		params[i] = "int " + prm.Name
		if prm.IsArray {
			params[i] += "[]" + dimsString(prm.Dims)
		}
	}
	fmt.Fprintf(p.w, "%s %s(%s) ", ret, f.Name, strings.Join(params, ", "))
	p.printBlock(f.Body)
	fmt.Fprintln(p.w)
}

func (p *Printer) printDecl(d *Decl) {
	p.writeIndent()
	if d.Const {
		fmt.Fprint(p.w, "const ")
	}
	defs := make([]string, len(d.Defs))
	for i, def := range d.Defs {
		defs[i] = def.Name + dimsString(def.Dims)
		if def.Init != nil {
			defs[i] += " = " + initString(def.Init)
		}
	}
	fmt.Fprintf(p.w, "int %s;\n", strings.Join(defs, ", "))
}

func (p *Printer) printBlock(b *Block) {
	fmt.Fprintln(p.w, "{")
	p.indent++
	for _, item := range b.Items {
		switch it := item.(type) {
		case *Decl:
			p.printDecl(it)
		case Stmt:
			p.printStmt(it)
		}
	}
	p.indent--
	p.writeIndent()
	fmt.Fprint(p.w, "}")
}

func (p *Printer) printStmt(s Stmt) {
	p.writeIndent()
	p.printStmtBody(s)
}

// printStmtBody prints s at the current position without leading indent
func (p *Printer) printStmtBody(s Stmt) {
	switch st := s.(type) {
	case *Block:
		p.printBlock(st)
		fmt.Fprintln(p.w)
	case *Assign:
		fmt.Fprintf(p.w, "%s = %s;\n", ExprString(st.Target), ExprString(st.Value))
	case *ExprStmt:
		if st.Expr != nil {
			fmt.Fprint(p.w, ExprString(st.Expr))
		}
		fmt.Fprintln(p.w, ";")
	case *If:
		fmt.Fprintf(p.w, "if (%s) ", ExprString(st.Cond))
		p.printStmtBody(st.Then)
	case *IfElse:
		fmt.Fprintf(p.w, "if (%s) ", ExprString(st.Cond))
		p.printStmtBody(st.Then)
		p.writeIndent()
		fmt.Fprint(p.w, "else ")
		p.printStmtBody(st.Else)
	case *While:
		fmt.Fprintf(p.w, "while (%s) ", ExprString(st.Cond))
		p.printStmtBody(st.Body)
	case *Break:
		fmt.Fprintln(p.w, "break;")
	case *Continue:
		fmt.Fprintln(p.w, "continue;")
	case *Return:
		if st.Value == nil {
			fmt.Fprintln(p.w, "return;")
		} else {
			fmt.Fprintf(p.w, "return %s;\n", ExprString(st.Value))
		}
	default:
		fmt.Fprintf(p.w, "/* unknown statement %T */\n", s)
	}
}

func dimsString(dims []Expr) string {
	var sb strings.Builder
	for _, d := range dims {
		sb.WriteString("[" + ExprString(d) + "]")
	}
	return sb.String()
}

func initString(iv *InitVal) string {
	if !iv.IsList() {
		return ExprString(iv.Expr)
	}
	parts := make([]string, len(iv.List))
	for i, sub := range iv.List {
		parts[i] = initString(sub)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ExprString renders an expression with explicit grouping
func ExprString(e Expr) string {
	switch ex := e.(type) {
	case *Number:
		return fmt.Sprintf("%d", ex.Value)
	case *LVal:
		return ex.Name + dimsString(ex.Indices)
	case *Call:
		args := make([]string, len(ex.Args))
		for i, a := range ex.Args {
			args[i] = ExprString(a)
		}
		return ex.Name + "(" + strings.Join(args, ", ") + ")"
	case *Unary:
		return ex.Op.String() + ExprString(ex.X)
	case *Binary:
		return "(" + ExprString(ex.Left) + " " + ex.Op.String() + " " + ExprString(ex.Right) + ")"
	}
	return fmt.Sprintf("/* %T */", e)
}
