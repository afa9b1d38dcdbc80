// Package diag defines the compiler's error kinds and its terminal logger.
package diag

import "fmt"

// Kind classifies a compilation failure
type Kind int

const (
	KindSyntax       Kind = iota // malformed source text
	KindUndeclared               // use of an unbound identifier
	KindRedefinition             // name already bound in the current scope
	KindLoopControl              // break/continue outside a loop
	KindNotFunction              // call of a name that is not a function
	KindNotVariable              // a function name used as a value
	KindNotConstant              // constant expression required
	KindAllocator                // register allocator invariant broken
	KindInternal                 // any other broken invariant
)

func (k Kind) String() string {
	names := []string{
		"syntax error",
		"undeclared identifier",
		"redefinition",
		"loop control outside loop",
		"not a function",
		"not a variable",
		"not a constant",
		"register allocation failure",
		"internal error",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// Error is a fatal compilation error. Compilation never continues past one.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

// Is reports whether target is an *Error of the same kind, so the sentinels
// below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Errorf builds an *Error of the given kind
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is
var (
	ErrSyntax       = &Error{Kind: KindSyntax}
	ErrUndeclared   = &Error{Kind: KindUndeclared}
	ErrRedefinition = &Error{Kind: KindRedefinition}
	ErrLoopControl  = &Error{Kind: KindLoopControl}
	ErrNotFunction  = &Error{Kind: KindNotFunction}
	ErrNotVariable  = &Error{Kind: KindNotVariable}
	ErrNotConstant  = &Error{Kind: KindNotConstant}
	ErrAllocator    = &Error{Kind: KindAllocator}
	ErrInternal     = &Error{Kind: KindInternal}
)
