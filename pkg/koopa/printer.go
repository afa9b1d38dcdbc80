package koopa

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs the IR in its textual form
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new IR printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram prints declarations, globals and functions. Declarations are
// followed by a blank line, as are globals and each function.
func (p *Printer) PrintProgram(prog *Program) {
	for _, d := range prog.Decls {
		p.printDecl(d)
	}
	if len(prog.Decls) > 0 {
		fmt.Fprintln(p.w)
	}

	for _, g := range prog.Globals {
		fmt.Fprintf(p.w, "global %s = alloc %s, %s\n", g.Name, g.Type, InitString(g.Init))
	}
	if len(prog.Globals) > 0 {
		fmt.Fprintln(p.w)
	}

	for _, fn := range prog.Funcs {
		p.PrintFunction(fn)
		fmt.Fprintln(p.w)
	}
}

func (p *Printer) printDecl(d FuncDecl) {
	params := make([]string, len(d.Params))
	for i, t := range d.Params {
		params[i] = t.String()
	}
	fmt.Fprintf(p.w, "decl %s(%s)", d.Name, strings.Join(params, ", "))
	if d.Ret != nil {
		fmt.Fprintf(p.w, ": %s", d.Ret)
	}
	fmt.Fprintln(p.w)
}

// PrintFunction prints one function definition
func (p *Printer) PrintFunction(fn *Function) {
	params := make([]string, len(fn.Params))
	for i, prm := range fn.Params {
		params[i] = prm.Name + ": " + prm.Type.String()
	}
	fmt.Fprintf(p.w, "fun %s(%s)", fn.Name, strings.Join(params, ", "))
	if fn.Ret != nil {
		fmt.Fprintf(p.w, ": %s", fn.Ret)
	}
	fmt.Fprintln(p.w, " {")

	for _, b := range fn.Blocks {
		fmt.Fprintf(p.w, "%s:\n", b.Label)
		for _, s := range b.Stmts {
			fmt.Fprintf(p.w, "\t%s\n", StmtString(s))
		}
		if b.Term != nil {
			fmt.Fprintf(p.w, "\t%s\n", TermString(b.Term))
		}
	}
	fmt.Fprintln(p.w, "}")
}

// ValueString formats an operand
func ValueString(v Value) string {
	switch vv := v.(type) {
	case *Symbol:
		return vv.Name
	case *Integer:
		return fmt.Sprintf("%d", vv.Value)
	case *Undef:
		return "undef"
	}
	return "?"
}

// InitString formats an initializer
func InitString(init Initializer) string {
	switch in := init.(type) {
	case *IntInit:
		return fmt.Sprintf("%d", in.Value)
	case *UndefInit:
		return "undef"
	case *ZeroInit:
		return "zeroinit"
	case *Aggregate:
		parts := make([]string, len(in.Elems))
		for i, e := range in.Elems {
			parts[i] = InitString(e)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "?"
}

// StmtString formats a statement without indentation
func StmtString(s Stmt) string {
	switch st := s.(type) {
	case *Def:
		return st.Name + " = " + opString(st.Op)
	case *Store:
		return fmt.Sprintf("store %s, %s", ValueString(st.Value), st.Dest)
	case *StoreInit:
		return fmt.Sprintf("store %s, %s", InitString(st.Init), st.Dest)
	case *CallStmt:
		return callString(st.Call)
	}
	return fmt.Sprintf("?%T", s)
}

func opString(op Operation) string {
	switch o := op.(type) {
	case *Alloc:
		return "alloc " + o.Type.String()
	case *Load:
		return "load " + o.Src
	case *GetPtr:
		return fmt.Sprintf("getptr %s, %s", o.Src, ValueString(o.Index))
	case *GetElemPtr:
		return fmt.Sprintf("getelemptr %s, %s", o.Src, ValueString(o.Index))
	case *Binary:
		return fmt.Sprintf("%s %s, %s", o.Op, ValueString(o.LHS), ValueString(o.RHS))
	case *Call:
		return callString(o)
	}
	return fmt.Sprintf("?%T", op)
}

func callString(c *Call) string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = ValueString(a)
	}
	return fmt.Sprintf("call %s(%s)", c.Callee, strings.Join(args, ", "))
}

// TermString formats a terminator
func TermString(t Terminator) string {
	switch tt := t.(type) {
	case *Branch:
		return fmt.Sprintf("br %s, %s, %s", ValueString(tt.Cond), tt.True, tt.False)
	case *Jump:
		return "jump " + tt.Target
	case *Return:
		if tt.Value == nil {
			return "ret"
		}
		return "ret " + ValueString(tt.Value)
	}
	return fmt.Sprintf("?%T", t)
}
