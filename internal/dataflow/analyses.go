package dataflow

import (
	"github.com/tacpass/tacpass/internal/cfgbuild"
	"github.com/tacpass/tacpass/internal/ir"
)

// VarSet is a set of variable names, the value domain of Defined and Live.
type VarSet map[string]struct{}

func unionVarSets(vals []VarSet) VarSet {
	out := make(VarSet)
	for _, v := range vals {
		for k := range v {
			out[k] = struct{}{}
		}
	}
	return out
}

func equalVarSets(a, b VarSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func withVarSet(base VarSet, extra VarSet) VarSet {
	out := make(VarSet, len(base)+len(extra))
	for k := range base {
		out[k] = struct{}{}
	}
	for k := range extra {
		out[k] = struct{}{}
	}
	return out
}

// gen returns the variables written by some instruction in the block.
func gen(block *cfgbuild.BasicBlock) VarSet {
	out := make(VarSet)
	for _, in := range block.Instrs {
		if !in.IsLabel() && in.Dest != "" {
			out[in.Dest] = struct{}{}
		}
	}
	return out
}

// use returns the variables read in the block before being written
// locally (local use-before-def).
func use(block *cfgbuild.BasicBlock) VarSet {
	defined := make(VarSet)
	out := make(VarSet)
	for _, in := range block.Instrs {
		if in.IsLabel() {
			continue
		}
		for _, a := range in.Args {
			if _, ok := defined[a]; !ok {
				out[a] = struct{}{}
			}
		}
		if in.Dest != "" {
			defined[in.Dest] = struct{}{}
		}
	}
	return out
}

// Defined is the forward analysis accumulating all variables defined
// on any path reaching a block.
var Defined = Analysis[VarSet]{
	Forward: true,
	Init:    VarSet{},
	Merge:   unionVarSets,
	Transfer: func(block *cfgbuild.BasicBlock, in VarSet, _ string) VarSet {
		return withVarSet(in, gen(block))
	},
	Equal: equalVarSets,
}

// Live is the backward live-variables analysis:
// transfer(b, out) = use(b) ∪ (out ∖ gen(b)).
var Live = Analysis[VarSet]{
	Forward: false,
	Init:    VarSet{},
	Merge:   unionVarSets,
	Transfer: func(block *cfgbuild.BasicBlock, out VarSet, _ string) VarSet {
		g := gen(block)
		kept := make(VarSet)
		for v := range out {
			if _, killed := g[v]; !killed {
				kept[v] = struct{}{}
			}
		}
		return withVarSet(use(block), kept)
	},
	Equal: equalVarSets,
}

// ReachingDef pairs a variable name with the label of a block that
// writes a value of it which may still be live at a use point.
type ReachingDef struct {
	Var   string
	Block string
}

// RDSet is a set of reaching definitions, the value domain of ReachingDefs.
type RDSet map[ReachingDef]struct{}

func unionRDSets(vals []RDSet) RDSet {
	out := make(RDSet)
	for _, v := range vals {
		for k := range v {
			out[k] = struct{}{}
		}
	}
	return out
}

func equalRDSets(a, b RDSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// ReachingDefs is the forward reaching-definitions analysis:
// gen(b) = {(v, b) : v written in b}; a definition reaching a
// block is killed by any redefinition of the same variable in that block.
var ReachingDefs = Analysis[RDSet]{
	Forward: true,
	Init:    RDSet{},
	Merge:   unionRDSets,
	Transfer: func(block *cfgbuild.BasicBlock, in RDSet, label string) RDSet {
		genVars := gen(block)
		out := make(RDSet)
		for rd := range in {
			if _, killed := genVars[rd.Var]; !killed {
				out[rd] = struct{}{}
			}
		}
		for v := range genVars {
			out[ReachingDef{Var: v, Block: label}] = struct{}{}
		}
		return out
	},
	Equal: equalRDSets,
}

// ConstMap maps a variable name to either a concrete literal
// (int64/float64/bool/string) or ir.Top. Absence of a key means "not
// yet defined on this path".
type ConstMap map[string]any

func mergeConstMaps(vals []ConstMap) ConstMap {
	out := make(ConstMap)
	for _, cm := range vals {
		for name, val := range cm {
			if ir.IsTop(val) {
				out[name] = ir.Top
				continue
			}
			if existing, seen := out[name]; seen {
				if ir.IsTop(existing) {
					continue
				}
				if existing != val {
					out[name] = ir.Top
				}
			} else {
				out[name] = val
			}
		}
	}
	return out
}

func equalConstMaps(a, b ConstMap) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		if ir.IsTop(v) && ir.IsTop(bv) {
			continue
		}
		if v != bv {
			return false
		}
	}
	return true
}

// cpropTransfer walks the block sequentially, maintaining and returning
// an environment. It never mutates the block's instructions: the
// worklist calls Transfer repeatedly, on successively refined input
// envs, before reaching a fixed point, so any rewrite performed here
// would fold on facts the analysis hasn't finished revising — exactly
// what would freeze a loop's induction-variable update into a const
// from its very first (not yet fixed-point) pass. Folding instructions
// from converged facts is FoldConstants' job, not this one's.
func cpropTransfer(block *cfgbuild.BasicBlock, in ConstMap, _ string) ConstMap {
	env := make(ConstMap, len(in))
	for k, v := range in {
		env[k] = v
	}
	for i := range block.Instrs {
		cpropStep(&block.Instrs[i], env, false)
	}
	return env
}

// cpropStep updates env for the effect of a single instruction. When
// mutate is true it also rewrites an id or add/sub/mul/div instr in
// place to a const whenever its value resolves to a concrete one (other
// opcodes are never rewritten); callers must only pass
// mutate=true with an env that has already reached its fixed point.
func cpropStep(instr *ir.Instruction, env ConstMap, mutate bool) {
	if instr.IsLabel() || instr.Dest == "" {
		return
	}
	switch instr.Op {
	case ir.OpConst:
		env[instr.Dest] = instr.Value
	case ir.OpID:
		if v, ok := env[instr.Args[0]]; ok && !ir.IsTop(v) {
			if mutate {
				*instr = ir.Instruction{Op: ir.OpConst, Dest: instr.Dest, Type: instr.Type, Value: v}
			}
			env[instr.Dest] = v
		} else {
			env[instr.Dest] = ir.Top
		}
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv:
		if folded, ok := foldArith(instr, env); ok {
			if mutate {
				*instr = ir.Instruction{Op: ir.OpConst, Dest: instr.Dest, Type: instr.Type, Value: folded}
			}
			env[instr.Dest] = folded
		} else {
			env[instr.Dest] = ir.Top
		}
	default:
		env[instr.Dest] = ir.Top
	}
}

// foldArith evaluates a binary add/sub/mul/div when both operands resolve
// to concrete integers. Anything else — non-integer or unknown
// operands — leaves the instruction untouched and marks the result Top.
func foldArith(in *ir.Instruction, env ConstMap) (any, bool) {
	x, okX := env[in.Args[0]]
	y, okY := env[in.Args[1]]
	if !okX || !okY || ir.IsTop(x) || ir.IsTop(y) {
		return nil, false
	}
	xi, okXi := x.(int64)
	yi, okYi := y.(int64)
	if !okXi || !okYi {
		return nil, false
	}
	switch in.Op {
	case ir.OpAdd:
		return xi + yi, true
	case ir.OpSub:
		return xi - yi, true
	case ir.OpMul:
		return xi * yi, true
	case ir.OpDiv:
		if yi == 0 {
			return nil, false // division by zero: leave the instruction, mark Top
		}
		return xi / yi, true
	}
	return nil, false
}

// ConstProp is the forward constant-propagation analysis.
var ConstProp = Analysis[ConstMap]{
	Forward:  true,
	Init:     ConstMap{},
	Merge:    mergeConstMaps,
	Transfer: cpropTransfer,
	Equal:    equalConstMaps,
}

// FoldConstants runs ConstProp to a fixed point and then rewrites each
// block's instructions in place, once, using the converged in-facts:
// any id or add/sub/mul/div instruction whose operands are constant at
// that fixed point folds to a const. This is constant propagation's role as a rewrite,
// kept strictly separate from its role as an analysis (cpropTransfer)
// so that a value only folds once the worklist has actually settled on
// it being constant — a loop's induction-variable update, which is
// constant on the first pass through the loop body but not at the
// fixed point, is never mistakenly frozen.
func FoldConstants(bm *cfgbuild.BlockMap, cfg *cfgbuild.CFG) Result[ConstMap] {
	res := Run(bm, cfg, ConstProp)
	for _, name := range bm.Keys() {
		block, _ := bm.Get(name)
		env := make(ConstMap, len(res.In[name]))
		for k, v := range res.In[name] {
			env[k] = v
		}
		for i := range block.Instrs {
			cpropStep(&block.Instrs[i], env, true)
		}
	}
	return res
}
