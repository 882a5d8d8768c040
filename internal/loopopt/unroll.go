package loopopt

import (
	"fmt"

	"github.com/tacpass/tacpass/internal/cfgbuild"
	"github.com/tacpass/tacpass/internal/ir"
)

// DefaultBudget bounds total instruction growth, mirroring
// original_source/loop_unroll.py's check_unroll: trip * bodySize < budget.
const DefaultBudget = 1024

// CheckUnroll reports whether trip is a usable, non-negative trip count
// and the resulting unrolled body stays under budget.
func CheckUnroll(bm *cfgbuild.BlockMap, l *Loop, trip int, budget int) bool {
	if trip < 0 {
		return false
	}
	bodySize := 0
	for node := range l.Nodes {
		if b, ok := bm.Get(node); ok {
			bodySize += len(b.Instrs) - 1 // exclude the terminator
		}
	}
	return trip*bodySize < budget
}

// Unroll fully unrolls l inside bm trip times and returns a new
// BlockMap with the loop replaced by trip sequential copies of its
// body, following original_source/loop_unroll.py's unroll.
//
// Every duplicated block is renamed "<loop.Name>_<i>_<original
// name>". When !ExitFromExit, the last copy's back edge goes to the
// landing copy of entry indexed trip, which re-runs entry's
// non-branch instructions and then jumps to the real post-loop
// continuation. When ExitFromExit, no landing copy is built for
// trip > 0, so the last copy's back edge is redirected straight to the
// real post-loop continuation instead of dangling as it does in
// original_source. Either way every rewritten label points at a block
// that exists — see DESIGN.md.
func Unroll(bm *cfgbuild.BlockMap, cfg *cfgbuild.CFG, l *Loop, trip int) *cfgbuild.BlockMap {
	var out []*cfgbuild.BasicBlock

	for _, name := range bm.Keys() {
		if _, inLoop := l.Nodes[name]; inLoop {
			continue
		}
		b, _ := bm.Get(name)
		out = append(out, redirectIntoLoop(b, name, cfg, l))
	}

	entryOutside := outsideSuccessors(l.Entry, l.Nodes, cfg.Succs)
	exitOutside := outsideSuccessors(l.Exit, l.Nodes, cfg.Succs)
	dest := finalDestination(entryOutside, exitOutside)

	for i := 0; i < trip; i++ {
		last := i == trip-1
		for _, node := range orderedNodes(bm, l.Nodes) {
			b, _ := bm.Get(node)
			out = append(out, duplicateForIteration(b, l, i, last, dest))
		}
	}

	if trip == 0 || !l.ExitFromExit {
		out = append(out, landingBlock(bm, l, trip, dest))
	}

	newBM, ok := cfgbuild.NewBlockMap(out)
	if !ok {
		// Unreachable under well-formed input: unroll only ever
		// introduces names qualified by loop.Name, which cannot
		// collide with a surviving unqualified block name or with
		// another loop's distinctly-named copies.
		panic("loopopt: unroll produced a duplicate block name")
	}
	return newBM
}

// redirectIntoLoop copies a block living outside the loop, retargeting
// a plain jmp into the loop's entry to the loop's first iteration
// copy. rawName is the block's name in bm, used as-is to look up its
// successors in cfg, which the caller has built from that same bm.
func redirectIntoLoop(b *cfgbuild.BasicBlock, rawName string, cfg *cfgbuild.CFG, l *Loop) *cfgbuild.BasicBlock {
	cp := cloneBlock(b, b.Name)
	if !containsString(cfg.Succs[rawName], l.Entry) {
		return cp
	}
	term, ok := cp.Terminator()
	if !ok || term.Op != ir.OpJmp {
		return cp
	}
	cp.Instrs[len(cp.Instrs)-1].Args = []string{qualify(l.Name, 0, l.Entry)}
	return cp
}

// duplicateForIteration copies a loop-body block for iteration i,
// renaming its label and rewriting its terminator's targets. On the
// last iteration, an edge back to entry resolves to the landing copy
// of entry (index i+1) when !ExitFromExit, and directly to dest, the
// real post-loop continuation, when ExitFromExit — a true conditional
// branch still works there, since the statically known trip count
// guarantees which arm actually gets taken at run time.
func duplicateForIteration(b *cfgbuild.BasicBlock, l *Loop, i int, last bool, dest string) *cfgbuild.BasicBlock {
	newName := qualify(l.Name, i, b.Name)
	cp := cloneBlock(b, newName)

	term, ok := cp.Terminator()
	if !ok {
		return cp
	}
	ti := len(cp.Instrs) - 1

	rewrite := func(target string) string {
		if target == l.Entry {
			if last && l.ExitFromExit {
				return dest
			}
			return qualify(l.Name, i+1, l.Entry)
		}
		if _, inLoop := l.Nodes[target]; inLoop {
			return qualify(l.Name, i, target)
		}
		return target
	}

	switch term.Op {
	case ir.OpJmp:
		cp.Instrs[ti].Args = []string{rewrite(term.Args[0])}
	case ir.OpBr:
		cp.Instrs[ti].Args = []string{term.Args[0], rewrite(term.Args[1]), rewrite(term.Args[2])}
	}
	return cp
}

// finalDestination is the real post-loop continuation: the outside
// successor of whichever of entry/exit carries it.
func finalDestination(entryOutside, exitOutside []string) string {
	if len(exitOutside) == 1 {
		return exitOutside[0]
	}
	return entryOutside[0]
}

// landingBlock synthesizes the (trip)'th copy of entry used both for
// the !ExitFromExit case and for a trip==0 loop body
// (which never gets a copy of its own), so that the redirect installed
// by redirectIntoLoop and any last-copy back edge always resolve. Its
// terminator always collapses to an unconditional jump to dest: the
// copy exists only to preserve entry's non-branch instructions running
// once more before control leaves the loop for good.
func landingBlock(bm *cfgbuild.BlockMap, l *Loop, trip int, dest string) *cfgbuild.BasicBlock {
	entryBlock, _ := bm.Get(l.Entry)
	newName := qualify(l.Name, trip, l.Entry)
	cp := cloneBlock(entryBlock, newName)

	if _, ok := cp.Terminator(); ok {
		cp.Instrs[len(cp.Instrs)-1] = ir.Instruction{Op: ir.OpJmp, Args: []string{dest}}
	} else {
		cp.Instrs = append(cp.Instrs, ir.Instruction{Op: ir.OpJmp, Args: []string{dest}})
	}
	return cp
}

// cloneBlock deep-copies a block under a new name, renaming its
// leading label instruction (if any) to match.
func cloneBlock(b *cfgbuild.BasicBlock, newName string) *cfgbuild.BasicBlock {
	instrs := make([]ir.Instruction, len(b.Instrs))
	copy(instrs, b.Instrs)
	if len(instrs) > 0 && instrs[0].IsLabel() {
		instrs[0] = ir.Instruction{Label: newName}
	}
	return &cfgbuild.BasicBlock{Name: newName, Instrs: instrs}
}

func qualify(loopName string, i int, name string) string {
	return fmt.Sprintf("%s_%d_%s", loopName, i, name)
}

func orderedNodes(bm *cfgbuild.BlockMap, nodes map[string]struct{}) []string {
	var out []string
	for _, k := range bm.Keys() {
		if _, ok := nodes[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
