// Package dataflow implements a generic worklist fixed-point iterator
// and its four concrete instances: defined variables, live variables,
// reaching definitions, and constant propagation.
package dataflow

import "github.com/tacpass/tacpass/internal/cfgbuild"

// Analysis is a single dataflow analysis: a direction, an initial
// lattice value, a merge (meet) operation, and a block-local transfer
// function. In the Python original this was a 4-tuple relying on native
// set/dict equality to detect a fixed point; Go's generic V isn't
// `comparable` when it is backed by a map (our sets and ConstMaps both
// are), so Analysis carries an explicit Equal alongside Merge/Transfer.
type Analysis[V any] struct {
	// Forward is true for a forward analysis, false for backward.
	Forward bool
	// Init is the initial per-block boundary value.
	Init V
	// Merge combines incoming values; must be associative, commutative,
	// and idempotent over its input multiset.
	Merge func(vals []V) V
	// Transfer computes a block's local effect. label is the block's
	// name, passed through for analyses (like constant propagation)
	// that need it only incidentally.
	Transfer func(block *cfgbuild.BasicBlock, in V, label string) V
	// Equal reports whether two analysis values are identical, used to
	// detect the worklist's fixed point.
	Equal func(a, b V) bool
}

// Result holds the per-block in/out values of a completed analysis run.
type Result[V any] struct {
	In  map[string]V
	Out map[string]V
}

// Run executes the worklist algorithm to a fixed point and returns
// (in, out) oriented to the analysis's natural input side
// regardless of direction: for a backward analysis, the processing
// direction's in/out are swapped before being returned.
func Run[V any](bm *cfgbuild.BlockMap, cfg *cfgbuild.CFG, a Analysis[V]) Result[V] {
	keys := bm.Keys()

	inEdges, outEdges := cfg.Preds, cfg.Succs
	if !a.Forward {
		inEdges, outEdges = cfg.Succs, cfg.Preds
	}

	procIn := make(map[string]V, len(keys))
	procOut := make(map[string]V, len(keys))
	for _, k := range keys {
		procOut[k] = a.Init
	}

	start := keys[0]
	if !a.Forward {
		start = keys[len(keys)-1]
	}
	procIn[start] = a.Init

	worklist := append([]string{}, keys...)
	for len(worklist) > 0 {
		node := worklist[0]
		worklist = worklist[1:]

		vals := make([]V, 0, len(inEdges[node]))
		for _, p := range inEdges[node] {
			vals = append(vals, procOut[p])
		}
		inval := a.Merge(vals)
		procIn[node] = inval

		block := bm.MustGet(node)
		outval := a.Transfer(block, inval, node)
		if !a.Equal(outval, procOut[node]) {
			procOut[node] = outval
			worklist = append(worklist, outEdges[node]...)
		}
	}

	if a.Forward {
		return Result[V]{In: procIn, Out: procOut}
	}
	return Result[V]{In: procOut, Out: procIn}
}
