package loopopt

import (
	"github.com/tacpass/tacpass/internal/cfgbuild"
	"github.com/tacpass/tacpass/internal/dataflow"
	"github.com/tacpass/tacpass/internal/dom"
	"github.com/tacpass/tacpass/internal/ir"
)

// Report describes what happened to one candidate loop, for CLI
// diagnostics.
type Report struct {
	Loop      *Loop
	TripCount int
	Unrolled  bool
	Reason    string
}

// RunLoopUnroll fully unrolls every eligible innermost loop in fn, in
// discovery order. It recomputes the CFG,
// dominators, and dataflow facts fresh after each unroll, since
// unrolling changes block names and edges out from under any loop
// found later in the same pass.
func RunLoopUnroll(fn *ir.Function, budget int) (*ir.Function, []Report, error) {
	bm, cfg, err := cfgbuild.Prepare(fn)
	if err != nil {
		return nil, nil, err
	}

	var reports []Report
	for {
		dm := dom.Compute(bm, cfg)
		loops := FilterInnermost(FindLoops(bm, cfg, dm))

		candidate := nextUnreported(loops, reports)
		if candidate == nil {
			break
		}

		rd := dataflow.Run(bm, cfg, dataflow.ReachingDefs)
		cp := dataflow.Run(bm, cfg, dataflow.ConstProp)
		facts := Facts{InRD: rd.In, OutRD: rd.Out, InCP: cp.In, OutCP: cp.Out}

		trip, ok := TripCount(bm, cfg, candidate, facts)
		if !ok {
			reports = append(reports, Report{Loop: candidate, Unrolled: false, Reason: "trip count could not be determined"})
			continue
		}
		if !CheckUnroll(bm, candidate, trip, budget) {
			reports = append(reports, Report{Loop: candidate, TripCount: trip, Unrolled: false, Reason: "unroll budget exceeded"})
			continue
		}

		bm = Unroll(bm, cfg, candidate, trip)
		cfgbuild.AddTerminators(bm)
		cfg = cfgbuild.Build(bm)
		reports = append(reports, Report{Loop: candidate, TripCount: trip, Unrolled: true})
	}

	out := *fn
	out.Instrs = cfgbuild.Flatten(bm)
	return &out, reports, nil
}

// nextUnreported returns the first loop not already reflected in
// reports, matched by entry/exit (a stable identity across the
// recomputation that follows each unroll, unlike the discovery-order
// name which can shift as earlier loops are removed).
func nextUnreported(loops []*Loop, reports []Report) *Loop {
	seen := make(map[[2]string]bool, len(reports))
	for _, r := range reports {
		seen[[2]string{r.Loop.Entry, r.Loop.Exit}] = true
	}
	for _, l := range loops {
		if !seen[[2]string{l.Entry, l.Exit}] {
			return l
		}
	}
	return nil
}
