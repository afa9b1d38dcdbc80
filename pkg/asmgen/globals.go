package asmgen

import (
	"github.com/raymyers/sysy-cc/pkg/koopa"
	"github.com/raymyers/sysy-cc/pkg/riscv"
)

// flattenInit lays an initializer out as one value per word of t
func flattenInit(init koopa.Initializer, t koopa.Type) []int32 {
	words := make([]int32, t.Size()/4)
	fillWords(words, init, t)
	return words
}

func fillWords(words []int32, init koopa.Initializer, t koopa.Type) {
	switch in := init.(type) {
	case *koopa.IntInit:
		if len(words) > 0 {
			words[0] = in.Value
		}
	case *koopa.Aggregate:
		arr, ok := t.(*koopa.Array)
		if !ok {
			return
		}
		n := arr.Elem.Size() / 4
		for i, e := range in.Elems {
			if (i+1)*n > len(words) {
				break
			}
			fillWords(words[i*n:(i+1)*n], e, arr.Elem)
		}
	}
	// zeroinit and undef leave the words zero
}

// globalData renders a global's contents: .word per non-zero word and one
// .zero per run of zero words
func globalData(g koopa.Global) riscv.Global {
	out := riscv.Global{Name: g.Name[1:]}
	zeros := 0
	flush := func() {
		if zeros > 0 {
			out.Data = append(out.Data, riscv.ZeroBytes{Size: zeros * 4})
			zeros = 0
		}
	}
	for _, w := range flattenInit(g.Init, g.Type) {
		if w == 0 {
			zeros++
			continue
		}
		flush()
		out.Data = append(out.Data, riscv.Word{Value: w})
	}
	flush()
	return out
}
