package riscv

import (
	"fmt"
	"io"
)

// Printer outputs RV32 assembly in GNU as syntax
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new assembly printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram outputs globals, then functions, each separated by a blank line
func (p *Printer) PrintProgram(prog *Program) {
	for _, g := range prog.Globals {
		p.printGlobal(g)
		fmt.Fprintln(p.w)
	}
	for _, f := range prog.Functions {
		p.PrintFunction(f)
		fmt.Fprintln(p.w)
	}
}

func (p *Printer) printGlobal(g Global) {
	fmt.Fprintf(p.w, "\t.data\n\t.globl %s\n%s:\n", g.Name, g.Name)
	for _, d := range g.Data {
		switch dd := d.(type) {
		case Word:
			fmt.Fprintf(p.w, "\t.word %d\n", dd.Value)
		case ZeroBytes:
			fmt.Fprintf(p.w, "\t.zero %d\n", dd.Size)
		}
	}
}

// PrintFunction outputs one function
func (p *Printer) PrintFunction(f *Function) {
	fmt.Fprintf(p.w, "\t.text\n\t.globl %s\n%s:\n", f.Name, f.Name)
	for _, inst := range f.Code {
		if l, ok := inst.(LabelDef); ok {
			fmt.Fprintf(p.w, "%s:\n", l.Name)
			continue
		}
		fmt.Fprintf(p.w, "\t%s\n", FormatInstruction(inst))
	}
}

// FormatInstruction renders one instruction without indentation
func FormatInstruction(inst Instruction) string {
	switch i := inst.(type) {
	case RType:
		return fmt.Sprintf("%s %s, %s, %s", i.Op, i.Rd, i.Rs1, i.Rs2)
	case IType:
		return fmt.Sprintf("%s %s, %s, %d", i.Op, i.Rd, i.Rs1, i.Imm)
	case Unary:
		return fmt.Sprintf("%s %s, %s", i.Op, i.Rd, i.Rs)
	case Li:
		return fmt.Sprintf("li %s, %d", i.Rd, i.Imm)
	case La:
		return fmt.Sprintf("la %s, %s", i.Rd, i.Symbol)
	case Lw:
		return fmt.Sprintf("lw %s, %d(%s)", i.Rd, i.Offset, i.Base)
	case Sw:
		return fmt.Sprintf("sw %s, %d(%s)", i.Src, i.Offset, i.Base)
	case Branch:
		return fmt.Sprintf("%s %s, %s, %s", i.Op, i.Rs1, i.Rs2, i.Target)
	case Bnez:
		return fmt.Sprintf("bnez %s, %s", i.Rs, i.Target)
	case J:
		return fmt.Sprintf("j %s", i.Target)
	case Call:
		return fmt.Sprintf("call %s", i.Target)
	case Ret:
		return "ret"
	case LabelDef:
		return string(i.Name) + ":"
	}
	return fmt.Sprintf("# unknown instruction %T", inst)
}
