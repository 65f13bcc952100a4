// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package asm

import (
	"fmt"

	"github.com/fml-lang/fml/internal/code"
)

// extendedLength returns how many additional EXTENDED_ARG prefixes are
// needed to encode n as a chain of 8-bit groups, most significant first.
func extendedLength(n int) int {
	count := 0
	for n > 0 {
		count++
		n >>= 8
	}
	return count
}

// lengthOfInst returns the number of bytes inst occupies once EXTENDED_ARG
// prefixes are accounted for: one (opcode, operand-byte) pair per 8-bit
// group of the resolved argument, always at least one pair.
func lengthOfInst(arg int) int {
	return 2 * (extendedLength(arg>>8) + 1)
}

// resolvedArg computes the operand inst should encode given its
// (already assigned) Offset, resolving jump targets through targets.
func resolvedArg(inst *code.Instruction, targets map[*code.Label]*code.Instruction) (int, error) {
	switch {
	case inst.Op.HasJumpAbsolute():
		target, ok := targets[inst.Jump]
		if !ok {
			return 0, fmt.Errorf("jump to unplaced label")
		}
		if target == nil {
			return 0, fmt.Errorf("jump to end of instruction stream")
		}
		return target.Offset, nil
	case inst.Op.HasJumpRelative():
		target, ok := targets[inst.Jump]
		if !ok {
			return 0, fmt.Errorf("jump to unplaced label")
		}
		end := inst.Offset + lengthOfInst(inst.Arg)
		if target == nil {
			return 0, nil
		}
		rel := target.Offset - end
		if rel < 0 {
			rel = 0
		}
		return rel, nil
	default:
		return inst.Arg, nil
	}
}

// resolveOffsets assigns each instruction its final byte Offset, growing
// operands that need EXTENDED_ARG prefixes until a fixpoint is reached.
// Because growing one instruction can push later labels further away
// (possibly requiring yet another instruction to grow), this is an
// iterative fixpoint rather than a single pass.
func resolveOffsets(insts []*code.Instruction, targets map[*code.Label]*code.Instruction) error {
	for i, inst := range insts {
		inst.Offset = i // placeholder, corrected below
	}
	for pass := 0; ; pass++ {
		if pass > len(insts)+4 {
			return fmt.Errorf("offset resolution did not converge")
		}
		offset := 0
		changed := false
		for _, inst := range insts {
			if inst.Offset != offset {
				changed = true
			}
			inst.Offset = offset
			arg, err := resolvedArg(inst, targets)
			if err != nil {
				return err
			}
			offset += lengthOfInst(arg)
		}
		if !changed {
			// One more pass to make sure arguments computed against the
			// now-stable offsets don't themselves demand more room.
			stable := true
			offset = 0
			for _, inst := range insts {
				arg, err := resolvedArg(inst, targets)
				if err != nil {
					return err
				}
				if offset != inst.Offset {
					stable = false
				}
				offset += lengthOfInst(arg)
			}
			if stable {
				return finalizeJumpArgs(insts, targets)
			}
		}
	}
}

// finalizeJumpArgs overwrites each jump instruction's Arg with its
// resolved numeric operand now that offsets are stable, so later passes
// (stack-size resolution, serialization) don't need the label map.
func finalizeJumpArgs(insts []*code.Instruction, targets map[*code.Label]*code.Instruction) error {
	for _, inst := range insts {
		if !inst.Op.HasJump() {
			continue
		}
		arg, err := resolvedArg(inst, targets)
		if err != nil {
			return err
		}
		inst.Arg = arg
	}
	return nil
}
