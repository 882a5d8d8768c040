package loopopt

import (
	"github.com/tacpass/tacpass/internal/cfgbuild"
	"github.com/tacpass/tacpass/internal/dataflow"
	"github.com/tacpass/tacpass/internal/ir"
)

// Facts bundles the dataflow results TripCount needs: reaching
// definitions and constant propagation, both oriented in/out.
type Facts struct {
	InRD, OutRD map[string]dataflow.RDSet
	InCP, OutCP map[string]dataflow.ConstMap
}

// TripCount infers a loop's trip count, combining reaching-definitions
// and constant propagation exactly as original_source/loop_unroll.py's
// get_tripcount does, including its handling of the bound appearing on
// either side of the lt (see DESIGN.md). ok is false whenever any
// precondition is unmet, the loop bound cannot be established, or the
// loop is statically infinite.
func TripCount(bm *cfgbuild.BlockMap, cfg *cfgbuild.CFG, l *Loop, f Facts) (trip int, ok bool) {
	source := l.Entry
	if l.ExitFromExit {
		source = l.Exit
	}

	sourceBlock, exists := bm.Get(source)
	if !exists {
		return 0, false
	}
	term, hasTerm := sourceBlock.Terminator()
	if !hasTerm || term.Op != ir.OpBr {
		return 0, false
	}
	cond := term.Args[0]

	condInst, condBlock, ok := findCondInst(bm, l.Nodes, cond, f.InRD[source])
	if !ok {
		return 0, false
	}

	cp := f.InCP[condBlock]
	x, okX := resolveInt(cp, condInst.Args[0])
	y, okY := resolveInt(cp, condInst.Args[1])

	var indvar string
	var bound int64
	var negate bool
	switch {
	case !okX && okY:
		indvar, bound, negate = condInst.Args[0], y, false
	case okX && !okY:
		indvar, bound, negate = condInst.Args[1], x, true
	case okX && okY:
		return handleTrivialCase(x, y, source == l.Entry)
	default:
		return 0, false
	}

	init, ok := initialValue(cfg, l, f.OutCP, indvar)
	if !ok {
		return 0, false
	}

	step, ok := indvarStep(bm, l, f.InCP, indvar)
	if !ok {
		return 0, false
	}

	return computeTripCount(init, bound, step, negate)
}

// findCondInst locates the unique reaching definition of cond that
// originates inside the loop body, then the instruction defining it,
// requiring it to be an lt — the only comparison this inference
// handles.
func findCondInst(bm *cfgbuild.BlockMap, nodes map[string]struct{}, cond string, inRD dataflow.RDSet) (ir.Instruction, string, bool) {
	var block string
	count := 0
	for rd := range inRD {
		if rd.Var != cond {
			continue
		}
		if _, inLoop := nodes[rd.Block]; !inLoop {
			continue
		}
		count++
		block = rd.Block
	}
	if count != 1 {
		return ir.Instruction{}, "", false
	}

	b, exists := bm.Get(block)
	if !exists {
		return ir.Instruction{}, "", false
	}
	for i := len(b.Instrs) - 1; i >= 0; i-- {
		in := b.Instrs[i]
		if in.IsLabel() || in.Dest != cond {
			continue
		}
		if in.Op != ir.OpLt {
			return ir.Instruction{}, "", false
		}
		return in, block, true
	}
	return ir.Instruction{}, "", false
}

func resolveInt(cp dataflow.ConstMap, name string) (int64, bool) {
	v, ok := cp[name]
	if !ok || ir.IsTop(v) {
		return 0, false
	}
	i, ok := v.(int64)
	return i, ok
}

// handleTrivialCase handles both operands of the lt resolving to
// constants: the loop is statically infinite (disqualified) if the
// condition is always true, 0 if the guard is tested at the loop
// entry and already false, or 1 if it is tested at the loop exit (the
// body always runs once before the exit check fails), per
// original_source/loop_unroll.py's handle_trivial_case.
func handleTrivialCase(x, y int64, guardAtEntry bool) (int, bool) {
	if x < y {
		return 0, false // condition always true: unbounded, disqualify
	}
	if guardAtEntry {
		return 0, true
	}
	return 1, true
}

// initialValue finds the induction variable's value on entry to the
// loop: the unique concrete value constant propagation resolves it to
// across every predecessor of the loop's entry that lies outside the loop.
func initialValue(cfg *cfgbuild.CFG, l *Loop, outCP map[string]dataflow.ConstMap, indvar string) (int64, bool) {
	var found []int64
	for _, p := range cfg.Preds[l.Entry] {
		if _, inLoop := l.Nodes[p]; inLoop {
			continue
		}
		if v, ok := resolveInt(outCP[p], indvar); ok {
			found = append(found, v)
		}
	}
	if len(found) == 0 {
		return 0, false
	}
	for _, v := range found[1:] {
		if v != found[0] {
			return 0, false
		}
	}
	return found[0], true
}

// indvarStep locates the loop's unique update of indvar (add or sub,
// with indvar itself among the arguments) and resolves its step via
// constant propagation.
func indvarStep(bm *cfgbuild.BlockMap, l *Loop, inCP map[string]dataflow.ConstMap, indvar string) (int64, bool) {
	type update struct {
		inst  ir.Instruction
		block string
	}
	var updates []update
	for node := range l.Nodes {
		b, exists := bm.Get(node)
		if !exists {
			continue
		}
		for _, in := range b.Instrs {
			if !in.IsLabel() && in.Dest == indvar {
				updates = append(updates, update{in, node})
			}
		}
	}
	if len(updates) != 1 {
		return 0, false
	}
	u := updates[0]
	if u.inst.Op != ir.OpAdd && u.inst.Op != ir.OpSub {
		return 0, false
	}
	if !containsArg(u.inst.Args, indvar) {
		return 0, false
	}

	var other string
	for _, a := range u.inst.Args {
		if a != indvar {
			other = a
			break
		}
	}
	raw, ok := resolveInt(inCP[u.block], other)
	if !ok {
		return 0, false
	}
	if u.inst.Op == ir.OpSub {
		return -raw, true
	}
	return raw, true
}

func containsArg(args []string, name string) bool {
	for _, a := range args {
		if a == name {
			return true
		}
	}
	return false
}

// computeTripCount mirrors original_source/loop_unroll.py's
// compute_tripcount: negate flips lt to the symmetric gt case used
// when the bound was found on the condition's left argument.
func computeTripCount(init, bound, step int64, negate bool) (int, bool) {
	if step == 0 {
		return 0, false
	}

	isLt := !negate
	var trip int64
	if isLt {
		if init >= bound {
			trip = 0
		} else {
			trip = ceilDiv(bound-init, step)
		}
	} else {
		if init <= bound {
			trip = 0
		} else {
			trip = ceilDiv(init-bound, -step)
		}
	}
	if trip < 0 {
		return 0, false
	}
	return int(trip), true
}

func ceilDiv(num, den int64) int64 {
	if den <= 0 {
		return -1 // signals "unbounded/invalid" to the caller via the negative check
	}
	return (num + den - 1) / den
}
