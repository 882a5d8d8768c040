package cfgbuild

import (
	"github.com/tacpass/tacpass/internal/ir"
	"github.com/tacpass/tacpass/internal/tacerr"
)

// Prepare runs the full front end for a function: block formation,
// terminator normalization, and CFG construction, failing with
// *tacerr.MalformedIR or *tacerr.DanglingTarget rather
// than panicking on bad input.
func Prepare(fn *ir.Function) (*BlockMap, *CFG, error) {
	if err := validate(fn); err != nil {
		return nil, nil, err
	}

	blocks := FormBlocks(fn.Instrs)
	bm, ok := NewBlockMap(blocks)
	if !ok {
		return nil, nil, &tacerr.MalformedIR{Reason: "duplicate block label"}
	}
	AddTerminators(bm)

	if from, to, ok := ValidateTargets(bm); !ok {
		return nil, nil, &tacerr.DanglingTarget{From: from, To: to}
	}

	return bm, Build(bm), nil
}

// validate checks the malformed-IR conditions that are detectable
// purely from the linear instruction stream: an empty label, and a
// jmp or br with the wrong number of label/target arguments. A
// destination assigned by more than one instruction is not rejected.
func validate(fn *ir.Function) error {
	for _, in := range fn.Instrs {
		if in.IsLabel() {
			if in.Label == "" {
				return &tacerr.MalformedIR{Instr: in, Reason: "empty label"}
			}
			continue
		}
		switch in.Op {
		case ir.OpJmp:
			if len(in.Args) != 1 {
				return &tacerr.MalformedIR{Instr: in, Reason: "jmp requires exactly one label argument"}
			}
		case ir.OpBr:
			if len(in.Args) != 3 {
				return &tacerr.MalformedIR{Instr: in, Reason: "br requires one condition and two labels"}
			}
		}
	}
	return nil
}
