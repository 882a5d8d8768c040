package loopopt

import (
	"testing"

	"github.com/tacpass/tacpass/internal/cfgbuild"
	"github.com/tacpass/tacpass/internal/dom"
	"github.com/tacpass/tacpass/internal/ir"
)

func buildCFG(t *testing.T, blocks []*cfgbuild.BasicBlock) (*cfgbuild.BlockMap, *cfgbuild.CFG, dom.Map) {
	t.Helper()
	bm, ok := cfgbuild.NewBlockMap(blocks)
	if !ok {
		t.Fatalf("duplicate block names")
	}
	cfg := cfgbuild.Build(bm)
	return bm, cfg, dom.Compute(bm, cfg)
}

func blk(name string, instrs ...ir.Instruction) *cfgbuild.BasicBlock {
	return &cfgbuild.BasicBlock{Name: name, Instrs: instrs}
}

// forLoopBlocks builds the canonical "for i := 0; i < bound; i += step"
// shape used across this package's tests: entry sets up the induction
// variable and bound, loop is the header testing it, body advances it
// and re-tests for the next iteration, exit is the sole continuation.
func forLoopBlocks() []*cfgbuild.BasicBlock {
	return []*cfgbuild.BasicBlock{
		blk("entry",
			ir.Instruction{Op: ir.OpConst, Dest: "i", Value: int64(0)},
			ir.Instruction{Op: ir.OpConst, Dest: "bound", Value: int64(3)},
			ir.Instruction{Op: ir.OpConst, Dest: "step", Value: int64(1)},
			ir.Instruction{Op: ir.OpLt, Dest: "t", Args: []string{"i", "bound"}},
			ir.Instruction{Op: ir.OpJmp, Args: []string{"loop"}},
		),
		blk("loop",
			ir.Instruction{Op: ir.OpBr, Args: []string{"t", "body", "exit"}},
		),
		blk("body",
			ir.Instruction{Op: ir.OpPrint, Args: []string{"i"}},
			ir.Instruction{Op: ir.OpAdd, Dest: "i", Args: []string{"i", "step"}},
			ir.Instruction{Op: ir.OpLt, Dest: "t", Args: []string{"i", "bound"}},
			ir.Instruction{Op: ir.OpJmp, Args: []string{"loop"}},
		),
		blk("exit", ir.Instruction{Op: ir.OpRet}),
	}
}

// negatedLoopBlocks builds a decreasing loop, "for i := 5; bound < i; i
// -= 1", whose condition carries the constant operand first — the
// mirror shape TripCount resolves via its negate path.
func negatedLoopBlocks() []*cfgbuild.BasicBlock {
	return []*cfgbuild.BasicBlock{
		blk("entry",
			ir.Instruction{Op: ir.OpConst, Dest: "i", Value: int64(5)},
			ir.Instruction{Op: ir.OpConst, Dest: "bound", Value: int64(2)},
			ir.Instruction{Op: ir.OpConst, Dest: "one", Value: int64(1)},
			ir.Instruction{Op: ir.OpLt, Dest: "t", Args: []string{"bound", "i"}},
			ir.Instruction{Op: ir.OpJmp, Args: []string{"loop"}},
		),
		blk("loop",
			ir.Instruction{Op: ir.OpBr, Args: []string{"t", "body", "exit"}},
		),
		blk("body",
			ir.Instruction{Op: ir.OpPrint, Args: []string{"i"}},
			ir.Instruction{Op: ir.OpSub, Dest: "i", Args: []string{"i", "one"}},
			ir.Instruction{Op: ir.OpLt, Dest: "t", Args: []string{"bound", "i"}},
			ir.Instruction{Op: ir.OpJmp, Args: []string{"loop"}},
		),
		blk("exit", ir.Instruction{Op: ir.OpRet}),
	}
}

func TestFindLoopsDetectsCanonicalForLoop(t *testing.T) {
	bm, cfg, dm := buildCFG(t, forLoopBlocks())
	loops := FindLoops(bm, cfg, dm)
	if len(loops) != 1 {
		t.Fatalf("want 1 loop, got %d: %v", len(loops), loops)
	}
	l := loops[0]
	if l.Entry != "loop" || l.Exit != "body" {
		t.Fatalf("want entry=loop exit=body, got entry=%s exit=%s", l.Entry, l.Exit)
	}
	if l.ExitFromExit {
		t.Fatal("this loop's only way out is from the header, not the exit block")
	}
	if _, ok := l.Nodes["loop"]; !ok {
		t.Error("nodes should include the header")
	}
	if _, ok := l.Nodes["body"]; !ok {
		t.Error("nodes should include the body")
	}
	if _, ok := l.Nodes["entry"]; ok {
		t.Error("nodes should not include the pre-header")
	}
}

func TestFindLoopsIgnoresAcyclicCFG(t *testing.T) {
	bm, cfg, dm := buildCFG(t, []*cfgbuild.BasicBlock{
		blk("entry", ir.Instruction{Op: ir.OpBr, Args: []string{"c", "left", "right"}}),
		blk("left", ir.Instruction{Op: ir.OpJmp, Args: []string{"join"}}),
		blk("right", ir.Instruction{Op: ir.OpJmp, Args: []string{"join"}}),
		blk("join", ir.Instruction{Op: ir.OpRet}),
	})
	loops := FindLoops(bm, cfg, dm)
	if len(loops) != 0 {
		t.Fatalf("a diamond with no back edge should report no loops, got %d", len(loops))
	}
}

func TestFindLoopsRejectsMultiExitLoop(t *testing.T) {
	// Both the header and the latch have an edge leaving the loop: not
	// the "exactly one outgoing edge" shape unrolling requires.
	bm, cfg, dm := buildCFG(t, []*cfgbuild.BasicBlock{
		blk("entry", ir.Instruction{Op: ir.OpBr, Args: []string{"c", "body", "exitA"}}),
		blk("body", ir.Instruction{Op: ir.OpBr, Args: []string{"c2", "entry", "exitB"}}),
		blk("exitA", ir.Instruction{Op: ir.OpRet}),
		blk("exitB", ir.Instruction{Op: ir.OpRet}),
	})
	loops := FindLoops(bm, cfg, dm)
	if len(loops) != 0 {
		t.Fatalf("want a multi-exit loop rejected, got %d loops", len(loops))
	}
}

func TestFilterInnermostDropsOuterLoop(t *testing.T) {
	inner := &Loop{Name: "L0", Entry: "h1", Exit: "b1", Nodes: map[string]struct{}{"h1": {}, "b1": {}}}
	outer := &Loop{Name: "L1", Entry: "h0", Exit: "b0", Nodes: map[string]struct{}{"h0": {}, "h1": {}, "b1": {}, "b0": {}}}

	out := FilterInnermost([]*Loop{inner, outer})
	if len(out) != 1 || out[0] != inner {
		t.Fatalf("want only the inner loop to survive, got %v", out)
	}
}

func TestFilterInnermostKeepsDisjointLoops(t *testing.T) {
	a := &Loop{Name: "L0", Nodes: map[string]struct{}{"a": {}}}
	b := &Loop{Name: "L1", Nodes: map[string]struct{}{"b": {}}}
	out := FilterInnermost([]*Loop{a, b})
	if len(out) != 2 {
		t.Fatalf("want both disjoint loops kept, got %d", len(out))
	}
}

func TestLoopStringIncludesIdentity(t *testing.T) {
	l := &Loop{Name: "L0", Entry: "h", Exit: "e", Nodes: map[string]struct{}{"h": {}, "e": {}}}
	s := l.String()
	if s == "" {
		t.Fatal("want a non-empty diagnostic string")
	}
}
