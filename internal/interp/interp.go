// Package interp is a minimal reference interpreter for the
// three-address IR, grounded on original_source/dyn.py. It exists
// solely so package tests can assert that a pass (constant propagation
// folding, loop unrolling) preserves a program's observable behavior —
// it is not part of the toolkit's external interface.
package interp

import (
	"fmt"

	"github.com/tacpass/tacpass/internal/cfgbuild"
	"github.com/tacpass/tacpass/internal/ir"
)

// Result is the outcome of interpreting a function to completion.
type Result struct {
	Vars   map[string]any
	Output []string
}

// maxSteps bounds execution so a malformed or mis-transformed program
// (a dangling jump cycling forever) fails fast instead of hanging a
// test run.
const maxSteps = 1_000_000

// Run interprets fn to its ret instruction, starting with each entry of
// args bound as a variable under its map key (fn.Args is not
// consulted), and returns the final variable store and anything printed.
func Run(fn *ir.Function, args map[string]any) (*Result, error) {
	bm, cfg, err := cfgbuild.Prepare(fn)
	if err != nil {
		return nil, err
	}
	_ = cfg // only block lookups are needed; control flow is driven by terminators directly

	vars := make(map[string]any, len(args))
	for k, v := range args {
		vars[k] = v
	}
	var output []string

	name := bm.Entry()
	steps := 0
	for name != "" {
		block, ok := bm.Get(name)
		if !ok {
			return nil, fmt.Errorf("interp: jump to undefined block %q", name)
		}
		next := ""
		for _, in := range block.Instrs {
			if in.IsLabel() {
				continue
			}
			steps++
			if steps > maxSteps {
				return nil, fmt.Errorf("interp: exceeded %d steps, likely a non-terminating unroll", maxSteps)
			}
			target, printed, stop, err := step(in, vars)
			if err != nil {
				return nil, err
			}
			if printed != "" {
				output = append(output, printed)
			}
			if stop {
				return &Result{Vars: vars, Output: output}, nil
			}
			if target != "" {
				next = target
				break
			}
		}
		name = next
	}
	return &Result{Vars: vars, Output: output}, nil
}

// step executes one instruction, returning a non-empty target when it
// transferred control, a printed line when it printed, and stop=true
// when it was a ret.
func step(in ir.Instruction, vars map[string]any) (target string, printed string, stop bool, err error) {
	switch in.Op {
	case ir.OpConst:
		vars[in.Dest] = in.Value
	case ir.OpID:
		vars[in.Dest] = vars[in.Args[0]]
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv:
		v, err := arith(in.Op, vars[in.Args[0]], vars[in.Args[1]])
		if err != nil {
			return "", "", false, err
		}
		vars[in.Dest] = v
	case ir.OpAnd, ir.OpOr:
		vars[in.Dest] = boolOp(in.Op, vars[in.Args[0]], vars[in.Args[1]])
	case ir.OpNot:
		vars[in.Dest] = !asBool(vars[in.Args[0]])
	case ir.OpEq, ir.OpLt, ir.OpGt, ir.OpLe, ir.OpGe:
		vars[in.Dest] = compare(in.Op, vars[in.Args[0]], vars[in.Args[1]])
	case ir.OpNop:
	case ir.OpPrint:
		printed = fmt.Sprint(vars[in.Args[0]])
	case ir.OpJmp:
		target = in.Args[0]
	case ir.OpBr:
		if asBool(vars[in.Args[0]]) {
			target = in.Args[1]
		} else {
			target = in.Args[2]
		}
	case ir.OpRet:
		stop = true
	case ir.OpNew:
		size := 0
		if in.Type != nil && in.Type.Array != nil {
			size = in.Type.Array.Size
		}
		vars[in.Dest] = make([]any, size)
	case ir.OpSet:
		arr, ok := vars[in.Args[0]].([]any)
		if !ok {
			return "", "", false, fmt.Errorf("interp: set on non-array %q", in.Args[0])
		}
		idx := asInt(vars[in.Args[1]])
		if idx < 0 || int(idx) >= len(arr) {
			return "", "", false, fmt.Errorf("interp: index %d out of range for %q", idx, in.Args[0])
		}
		arr[idx] = vars[in.Args[2]]
	case ir.OpIndex:
		arr, ok := vars[in.Args[0]].([]any)
		if !ok {
			return "", "", false, fmt.Errorf("interp: index on non-array %q", in.Args[0])
		}
		idx := asInt(vars[in.Args[1]])
		if idx < 0 || int(idx) >= len(arr) {
			return "", "", false, fmt.Errorf("interp: index %d out of range for %q", idx, in.Args[0])
		}
		vars[in.Dest] = arr[idx]
	default:
		return "", "", false, fmt.Errorf("interp: unhandled opcode %q", in.Op)
	}
	return target, printed, stop, nil
}

func asInt(v any) int64 {
	if i, ok := v.(int64); ok {
		return i
	}
	return 0
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	}
	return false
}

func arith(op ir.Op, x, y any) (any, error) {
	if xf, ok := x.(float64); ok {
		yf, _ := y.(float64)
		return arithFloat(op, xf, yf), nil
	}
	xi, _ := x.(int64)
	yi, _ := y.(int64)
	if op == ir.OpDiv && yi == 0 {
		return nil, fmt.Errorf("interp: division by zero")
	}
	switch op {
	case ir.OpAdd:
		return xi + yi, nil
	case ir.OpSub:
		return xi - yi, nil
	case ir.OpMul:
		return xi * yi, nil
	case ir.OpDiv:
		return xi / yi, nil
	}
	return nil, fmt.Errorf("interp: unreachable arith op %q", op)
}

func arithFloat(op ir.Op, x, y float64) float64 {
	switch op {
	case ir.OpAdd:
		return x + y
	case ir.OpSub:
		return x - y
	case ir.OpMul:
		return x * y
	case ir.OpDiv:
		return x / y
	}
	return 0
}

func boolOp(op ir.Op, x, y any) bool {
	if op == ir.OpAnd {
		return asBool(x) && asBool(y)
	}
	return asBool(x) || asBool(y)
}

func compare(op ir.Op, x, y any) bool {
	xf, yf := toFloat(x), toFloat(y)
	switch op {
	case ir.OpEq:
		return xf == yf
	case ir.OpLt:
		return xf < yf
	case ir.OpGt:
		return xf > yf
	case ir.OpLe:
		return xf <= yf
	case ir.OpGe:
		return xf >= yf
	}
	return false
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	case bool:
		if n {
			return 1
		}
		return 0
	}
	return 0
}
