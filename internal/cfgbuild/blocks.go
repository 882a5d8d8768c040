// Package cfgbuild turns a function's linear instruction stream into an
// ordered sequence of basic blocks (BlockFormer) and then a
// control-flow graph over those blocks (CFG).
package cfgbuild

import (
	"fmt"

	"github.com/tacpass/tacpass/internal/ir"
)

// BasicBlock is a non-empty ordered instruction sequence whose only
// terminator, if any, is its last instruction. Name is either the
// leading Label's name or a synthesized one distinct from every label
// in the function.
type BasicBlock struct {
	Name   string
	Instrs []ir.Instruction
}

// Terminator returns the block's terminating instruction, if it has one.
func (b *BasicBlock) Terminator() (ir.Instruction, bool) {
	if len(b.Instrs) == 0 {
		return ir.Instruction{}, false
	}
	last := b.Instrs[len(b.Instrs)-1]
	if last.IsTerminator() {
		return last, true
	}
	return ir.Instruction{}, false
}

// FormBlocks splits a linear instruction list into basic blocks.
//
// A new block starts at each Label instruction and immediately after
// each terminator (jmp/br/ret); a block's name is its leading Label's
// name, or else a freshly synthesized name; empty blocks are discarded;
// block order matches instruction order.
func FormBlocks(instrs []ir.Instruction) []*BasicBlock {
	existing := make(map[string]bool)
	for _, in := range instrs {
		if in.IsLabel() {
			existing[in.Label] = true
		}
	}
	namer := newSynthesizer(existing)

	var blocks []*BasicBlock
	var cur []ir.Instruction

	flush := func() {
		if len(cur) == 0 {
			return
		}
		name := namer.nameFor(cur[0])
		blocks = append(blocks, &BasicBlock{Name: name, Instrs: cur})
		cur = nil
	}

	for _, in := range instrs {
		if in.IsLabel() {
			flush()
			cur = append(cur, in)
			continue
		}
		cur = append(cur, in)
		if in.IsTerminator() {
			flush()
		}
	}
	flush()
	return blocks
}

// nameFor returns a block's name: its leading label, or a fresh
// synthesized name.
func (s *synthesizer) nameFor(first ir.Instruction) string {
	if first.IsLabel() {
		return first.Label
	}
	return s.fresh()
}

type synthesizer struct {
	taken map[string]bool
	next  int
}

func newSynthesizer(existing map[string]bool) *synthesizer {
	return &synthesizer{taken: existing}
}

func (s *synthesizer) fresh() string {
	for {
		name := fmt.Sprintf("bb%d", s.next)
		s.next++
		if !s.taken[name] {
			s.taken[name] = true
			return name
		}
	}
}
