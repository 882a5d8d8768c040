// Package tacerr holds the two error conditions the toolkit's core can
// raise on malformed input. Every other analyzable failure
// — an irregular loop, an abandoned trip-count inference, an unroll
// budget overrun — is encoded as a value, never an error; see
// internal/loopopt.
package tacerr

import (
	"fmt"

	"github.com/tacpass/tacpass/internal/ir"
)

// MalformedIR reports input that cannot be reconciled with the IR's
// invariants: an empty label, a jmp/br with the wrong number of
// arguments, or a block label used twice.
type MalformedIR struct {
	Instr  ir.Instruction
	Reason string
}

func (e *MalformedIR) Error() string {
	return fmt.Sprintf("malformed IR: %s (instruction: %+v)", e.Reason, e.Instr)
}

// DanglingTarget reports a jmp/br whose target label has no
// corresponding block in the function.
type DanglingTarget struct {
	From string // label of the block containing the branch
	To   string // the missing target label
}

func (e *DanglingTarget) Error() string {
	return fmt.Sprintf("dangling branch target: %s -> %s", e.From, e.To)
}
