package koopa

import (
	"fmt"
	"strings"
)

// Type is an IR type: Int32, *Array, *Pointer or *FuncType
type Type interface {
	// Size is the storage size in bytes
	Size() int
	String() string
	implType()
}

// Int32 is the only scalar type
type Int32 struct{}

// Array is a fixed-length array
type Array struct {
	Elem Type
	Len  int
}

// Pointer points to a value of type Elem
type Pointer struct {
	Elem Type
}

// FuncType is the type of a function; Ret is nil for void
type FuncType struct {
	Params []Type
	Ret    Type
}

// I32 is the shared Int32 instance
var I32 Type = Int32{}

func (Int32) Size() int { return 4 }

func (a *Array) Size() int { return a.Len * a.Elem.Size() }

func (*Pointer) Size() int { return 4 }

func (*FuncType) Size() int { return 4 }

func (Int32) String() string { return "i32" }

func (a *Array) String() string {
	return fmt.Sprintf("[%s, %d]", a.Elem, a.Len)
}

func (p *Pointer) String() string { return "*" + p.Elem.String() }

func (f *FuncType) String() string {
	params := make([]string, len(f.Params))
	for i, t := range f.Params {
		params[i] = t.String()
	}
	s := "(" + strings.Join(params, ", ") + ")"
	if f.Ret != nil {
		s += ": " + f.Ret.String()
	}
	return s
}

func (Int32) implType()     {}
func (*Array) implType()    {}
func (*Pointer) implType()  {}
func (*FuncType) implType() {}

// ArrayOf builds a multi-dimensional array type bottom-up: dims {2, 3}
// yields [[i32, 3], 2]
func ArrayOf(elem Type, dims []int) Type {
	t := elem
	for i := len(dims) - 1; i >= 0; i-- {
		t = &Array{Elem: t, Len: dims[i]}
	}
	return t
}

// IsScalar reports whether values of t fit in one register
func IsScalar(t Type) bool {
	switch t.(type) {
	case Int32, *Pointer:
		return true
	}
	return false
}

// ElemOf returns the element type of an array or pointer, or nil
func ElemOf(t Type) Type {
	switch tt := t.(type) {
	case *Array:
		return tt.Elem
	case *Pointer:
		return tt.Elem
	}
	return nil
}
