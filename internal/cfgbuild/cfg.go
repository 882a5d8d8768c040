package cfgbuild

import "github.com/tacpass/tacpass/internal/ir"

// BlockMap is an order-preserving mapping from block name to
// BasicBlock: iteration order equals program order, and the first key
// is the function's entry block.
type BlockMap struct {
	order  []string
	blocks map[string]*BasicBlock
}

// NewBlockMap builds a BlockMap from an ordered slice of blocks,
// preserving their order and erroring (via the bool) on a duplicate
// block name, which would otherwise silently shadow an earlier block.
func NewBlockMap(blocks []*BasicBlock) (*BlockMap, bool) {
	bm := &BlockMap{blocks: make(map[string]*BasicBlock, len(blocks))}
	for _, b := range blocks {
		if _, dup := bm.blocks[b.Name]; dup {
			return nil, false
		}
		bm.order = append(bm.order, b.Name)
		bm.blocks[b.Name] = b
	}
	return bm, true
}

// Keys returns the block names in program order.
func (bm *BlockMap) Keys() []string { return bm.order }

// Get returns the block named name, if any.
func (bm *BlockMap) Get(name string) (*BasicBlock, bool) {
	b, ok := bm.blocks[name]
	return b, ok
}

// MustGet returns the block named name, panicking if absent. Callers
// use this only after the block map's keys have already been validated
// against every branch target (see ValidateTargets).
func (bm *BlockMap) MustGet(name string) *BasicBlock {
	b, ok := bm.blocks[name]
	if !ok {
		panic("cfgbuild: no such block " + name)
	}
	return b
}

// Entry returns the name of the first block, the function's entry point.
func (bm *BlockMap) Entry() string {
	if len(bm.order) == 0 {
		return ""
	}
	return bm.order[0]
}

// Len returns the number of blocks.
func (bm *BlockMap) Len() int { return len(bm.order) }

// CFG holds the predecessor/successor adjacency of a BlockMap. Both
// maps are ordered-deduplicated per target, and L2 is in Succs[L1] iff
// L1 is in Preds[L2].
type CFG struct {
	Preds map[string][]string
	Succs map[string][]string
}

// Build constructs the CFG for bm: jmp contributes one successor, br
// contributes two (true-target, false-target), ret contributes none,
// and a block with no terminator falls through to the next block in
// program order (or has no successor if it is last). Preds is the
// transpose of Succs.
func Build(bm *BlockMap) *CFG {
	succs := make(map[string][]string, bm.Len())
	preds := make(map[string][]string, bm.Len())
	keys := bm.Keys()

	for _, name := range keys {
		preds[name] = nil
	}

	for i, name := range keys {
		block := bm.MustGet(name)
		var out []string
		if term, ok := block.Terminator(); ok {
			out = successorsOf(term)
		} else if i+1 < len(keys) {
			out = []string{keys[i+1]}
		}
		succs[name] = dedup(out)
		for _, s := range succs[name] {
			if !contains(preds[s], name) {
				preds[s] = append(preds[s], name)
			}
		}
	}
	return &CFG{Preds: preds, Succs: succs}
}

func successorsOf(term ir.Instruction) []string {
	switch term.Op {
	case ir.OpJmp:
		return []string{term.Args[0]}
	case ir.OpBr:
		return []string{term.Args[1], term.Args[2]}
	case ir.OpRet:
		return nil
	default:
		return nil
	}
}

// AddTerminators makes Succs total by mutating bm in place: any block
// lacking a terminator gets an explicit jmp to the next block in
// program order, or a ret if it is last.
func AddTerminators(bm *BlockMap) {
	keys := bm.Keys()
	for i, name := range keys {
		block := bm.MustGet(name)
		if _, ok := block.Terminator(); ok {
			continue
		}
		if i+1 < len(keys) {
			block.Instrs = append(block.Instrs, ir.Instruction{
				Op:   ir.OpJmp,
				Args: []string{keys[i+1]},
			})
		} else {
			block.Instrs = append(block.Instrs, ir.Instruction{Op: ir.OpRet})
		}
	}
}

func dedup(ss []string) []string {
	if ss == nil {
		return nil
	}
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if !contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// BranchTargets returns every label a jmp/br instruction in bm refers to,
// in no particular order, for dangling-target validation.
func BranchTargets(bm *BlockMap) []string {
	var targets []string
	for _, name := range bm.Keys() {
		block := bm.MustGet(name)
		term, ok := block.Terminator()
		if !ok {
			continue
		}
		switch term.Op {
		case ir.OpJmp:
			targets = append(targets, term.Args[0])
		case ir.OpBr:
			targets = append(targets, term.Args[1], term.Args[2])
		}
	}
	return targets
}

// ValidateTargets reports the first branch target with no matching
// block in bm, wrapped in a *tacerr.DanglingTarget by the caller.
func ValidateTargets(bm *BlockMap) (from, to string, ok bool) {
	for _, name := range bm.Keys() {
		block := bm.MustGet(name)
		term, hasTerm := block.Terminator()
		if !hasTerm {
			continue
		}
		var targets []string
		switch term.Op {
		case ir.OpJmp:
			targets = []string{term.Args[0]}
		case ir.OpBr:
			targets = []string{term.Args[1], term.Args[2]}
		}
		for _, t := range targets {
			if _, exists := bm.Get(t); !exists {
				return name, t, false
			}
		}
	}
	return "", "", true
}
