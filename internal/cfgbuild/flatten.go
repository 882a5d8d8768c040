package cfgbuild

import "github.com/tacpass/tacpass/internal/ir"

// Flatten concatenates a BlockMap's blocks, in program order, back into
// a single linear instruction stream — the inverse of FormBlocks. A
// block whose first instruction is not already a matching Label gets
// one synthesized ahead of it, so that any jmp/br introduced by
// AddTerminators or by loopopt.Unroll (which targets blocks purely by
// BlockMap name, not necessarily a name that started life as a source
// label) still resolves when the stream is re-parsed.
func Flatten(bm *BlockMap) []ir.Instruction {
	var out []ir.Instruction
	for _, name := range bm.Keys() {
		b := bm.MustGet(name)
		if len(b.Instrs) == 0 || !b.Instrs[0].IsLabel() || b.Instrs[0].Label != name {
			out = append(out, ir.Instruction{Label: name})
		}
		out = append(out, b.Instrs...)
	}
	return out
}
