package koopa

import "strings"

// DefName returns the name a statement defines, or "" if it defines none
func DefName(s Stmt) string {
	if d, ok := s.(*Def); ok {
		return d.Name
	}
	return ""
}

// StmtUses returns every name a statement reads, in operand order. A store's
// destination counts as a use: the slot must exist for the store to happen.
func StmtUses(s Stmt) []string {
	var uses []string
	switch st := s.(type) {
	case *Def:
		switch op := st.Op.(type) {
		case *Load:
			uses = append(uses, op.Src)
		case *GetPtr:
			uses = append(uses, op.Src)
			uses = appendValue(uses, op.Index)
		case *GetElemPtr:
			uses = append(uses, op.Src)
			uses = appendValue(uses, op.Index)
		case *Binary:
			uses = appendValue(uses, op.LHS)
			uses = appendValue(uses, op.RHS)
		case *Call:
			for _, a := range op.Args {
				uses = appendValue(uses, a)
			}
		}
	case *Store:
		uses = appendValue(uses, st.Value)
		uses = append(uses, st.Dest)
	case *StoreInit:
		uses = append(uses, st.Dest)
	case *CallStmt:
		for _, a := range st.Call.Args {
			uses = appendValue(uses, a)
		}
	}
	return uses
}

// TermUses returns the names a terminator reads
func TermUses(t Terminator) []string {
	switch tt := t.(type) {
	case *Branch:
		return appendValue(nil, tt.Cond)
	case *Return:
		return appendValue(nil, tt.Value)
	}
	return nil
}

// TermTargets returns the labels a terminator may transfer control to
func TermTargets(t Terminator) []string {
	switch tt := t.(type) {
	case *Branch:
		return []string{tt.True, tt.False}
	case *Jump:
		return []string{tt.Target}
	}
	return nil
}

func appendValue(uses []string, v Value) []string {
	if s, ok := v.(*Symbol); ok {
		return append(uses, s.Name)
	}
	return uses
}

// IsGlobalName reports whether name refers to a global or function
func IsGlobalName(name string) bool {
	return strings.HasPrefix(name, "@")
}

// IsTemp reports whether name is a compiler temporary such as "%12"
func IsTemp(name string) bool {
	if len(name) < 2 || name[0] != '%' {
		return false
	}
	for i := 1; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return true
}
