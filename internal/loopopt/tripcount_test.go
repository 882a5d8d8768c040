package loopopt

import (
	"testing"

	"github.com/tacpass/tacpass/internal/dataflow"
	"github.com/tacpass/tacpass/internal/ir"
)

// These tests hand-construct Facts rather than running the real
// dataflow engine, so they exercise TripCount's own branching logic in
// isolation from CFG/dominator/dataflow plumbing. The end-to-end path
// against a live dataflow.Run is covered separately by
// TestRunLoopUnrollCanonicalCountableLoop in run_test.go, which drives
// the whole RunLoopUnroll pipeline over the same loop shape.

func TestTripCountCanonicalIncreasingLoop(t *testing.T) {
	bm, cfg, _ := buildCFG(t, forLoopBlocks())
	l := canonicalLoop()

	facts := Facts{
		InRD: map[string]dataflow.RDSet{
			"loop": {dataflow.ReachingDef{Var: "t", Block: "body"}: {}},
		},
		InCP: map[string]dataflow.ConstMap{
			"body": {"i": ir.Top, "bound": int64(3), "step": int64(1)},
		},
		OutCP: map[string]dataflow.ConstMap{
			"entry": {"i": int64(0), "bound": int64(3), "step": int64(1)},
		},
	}

	trip, ok := TripCount(bm, cfg, l, facts)
	if !ok {
		t.Fatal("want a trip count to be inferred")
	}
	if trip != 3 {
		t.Errorf("for i := 0; i < 3; i++ want trip=3, got %d", trip)
	}
}

func TestTripCountNegatedBoundOperand(t *testing.T) {
	// t = bound < i: the constant operand is the condition's first
	// argument, so the induction variable is the second and the
	// comparison direction must flip (negate=true).
	bm, cfg, _ := buildCFG(t, negatedLoopBlocks())
	l := canonicalLoop()

	facts := Facts{
		InRD: map[string]dataflow.RDSet{
			"loop": {dataflow.ReachingDef{Var: "t", Block: "body"}: {}},
		},
		InCP: map[string]dataflow.ConstMap{
			"body": {"bound": int64(2), "i": ir.Top, "one": int64(1)},
		},
		OutCP: map[string]dataflow.ConstMap{
			"entry": {"i": int64(5), "bound": int64(2), "one": int64(1)},
		},
	}

	trip, ok := TripCount(bm, cfg, l, facts)
	if !ok {
		t.Fatal("want a trip count to be inferred")
	}
	if trip != 3 {
		t.Errorf("for i := 5; bound < i; i -= 1 (bound=2) want trip=3, got %d", trip)
	}
}

func TestHandleTrivialCaseGuardAtEntry(t *testing.T) {
	trip, ok := handleTrivialCase(5, 2, true)
	if !ok || trip != 0 {
		t.Fatalf("guard tested at entry and already false: want (0, true), got (%d, %v)", trip, ok)
	}
}

func TestHandleTrivialCaseGuardAtExit(t *testing.T) {
	trip, ok := handleTrivialCase(5, 2, false)
	if !ok || trip != 1 {
		t.Fatalf("guard tested at exit: body always runs once, want (1, true), got (%d, %v)", trip, ok)
	}
}

func TestHandleTrivialCaseAlwaysTrueIsUnbounded(t *testing.T) {
	_, ok := handleTrivialCase(1, 5, true)
	if ok {
		t.Fatal("x < y with both constant means the condition never fails: should be disqualified as unbounded")
	}
}

func TestComputeTripCountZeroWhenAlreadyPastBound(t *testing.T) {
	trip, ok := computeTripCount(5, 3, 1, false)
	if !ok || trip != 0 {
		t.Fatalf("init already >= bound: want (0, true), got (%d, %v)", trip, ok)
	}
}

func TestComputeTripCountRejectsZeroStep(t *testing.T) {
	_, ok := computeTripCount(0, 3, 0, false)
	if ok {
		t.Fatal("a zero step never reaches the bound: should be rejected")
	}
}
