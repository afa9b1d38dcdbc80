package koopa

// RuntimeDecls returns the declarations of the SysY runtime library, in the
// order they prefix every program
func RuntimeDecls() []FuncDecl {
	ptr := &Pointer{Elem: I32}
	return []FuncDecl{
		{Name: "@getint", Ret: I32},
		{Name: "@getch", Ret: I32},
		{Name: "@getarray", Params: []Type{ptr}, Ret: I32},
		{Name: "@putint", Params: []Type{I32}},
		{Name: "@putch", Params: []Type{I32}},
		{Name: "@putarray", Params: []Type{I32, ptr}},
		{Name: "@starttime"},
		{Name: "@stoptime"},
	}
}
