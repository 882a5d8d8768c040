// Package dom computes the dominator sets of a control-flow graph:
// dom[b] = {b} ∪ ⋂_{p in preds[b]} dom[p], with dom[entry] = {entry}.
package dom

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/tacpass/tacpass/internal/cfgbuild"
)

// Map is a mapping from block name to the set of block names that
// dominate it (inclusive of itself).
type Map map[string]map[string]struct{}

// Dominates reports whether a dominates b (a == b counts).
func (m Map) Dominates(a, b string) bool {
	_, ok := m[b][a]
	return ok
}

// Compute computes the full dominator sets of bm's CFG. Unreachable
// blocks (no path from the entry) keep the universe of all block
// names; downstream code must not assume reachability.
func Compute(bm *cfgbuild.BlockMap, cfg *cfgbuild.CFG) Map {
	keys := bm.Keys()
	n := len(keys)
	index := make(map[string]uint, n)
	for i, k := range keys {
		index[k] = uint(i)
	}

	entry := bm.Entry()
	universe := bitset.New(uint(n))
	for i := uint(0); i < uint(n); i++ {
		universe.Set(i)
	}

	sets := make(map[string]*bitset.BitSet, n)
	for _, k := range keys {
		if k == entry {
			b := bitset.New(uint(n))
			b.Set(index[k])
			sets[k] = b
		} else {
			sets[k] = universe.Clone()
		}
	}

	for changed := true; changed; {
		changed = false
		for _, b := range keys {
			if b == entry {
				continue
			}
			preds := cfg.Preds[b]
			var next *bitset.BitSet
			for _, p := range preds {
				if next == nil {
					next = sets[p].Clone()
				} else {
					next = next.Intersection(sets[p])
				}
			}
			if next == nil {
				// No predecessors (unreachable): keep the universe per
				// explicit carve-out.
				continue
			}
			next.Set(index[b])
			if !next.Equal(sets[b]) {
				sets[b] = next
				changed = true
			}
		}
	}

	out := make(Map, n)
	for _, b := range keys {
		dominators := make(map[string]struct{})
		for _, other := range keys {
			if sets[b].Test(index[other]) {
				dominators[other] = struct{}{}
			}
		}
		out[b] = dominators
	}
	return out
}
