// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package asm

import (
	"fmt"

	"github.com/fml-lang/fml/internal/code"
	"github.com/fml-lang/fml/internal/deque"
)

// resolveStackSize symbolically executes insts along every reachable
// path, starting from each instruction with the stack depth it is known
// to be entered with, and returns the maximum depth observed. Branches
// fork into both successors with their respective stack-effect deltas;
// RETURN_VALUE terminates a path (and must be entered with depth 1);
// JUMP_ABSOLUTE terminates a path at its origin and schedules its
// target.
func resolveStackSize(insts []*code.Instruction) (int, error) {
	if len(insts) == 0 {
		return 0, nil
	}
	indexByOffset := make(map[int]int, len(insts))
	for i, inst := range insts {
		indexByOffset[inst.Offset] = i
	}

	type work struct {
		index int
		depth int
	}
	visited := make(map[int]int) // index -> depth already explored with
	pending := new(deque.Deque[work])
	pending.PushBack(work{0, 0})
	maxDepth := 0

	for {
		w, ok := pending.Front()
		if !ok {
			break
		}
		pending.PopFront(1)
		i, depth := w.index, w.depth
		if i >= len(insts) {
			continue
		}
		if prev, ok := visited[i]; ok && prev >= depth {
			continue
		}
		visited[i] = depth

		for i < len(insts) {
			inst := insts[i]
			if depth > maxDepth {
				maxDepth = depth
			}

			if branch, ok := branchStackEffectFor(inst.Op); ok {
				notTaken, taken := branch[0], branch[1]
				pending.PushBack(work{i + 1, depth + notTaken})
				targetIdx, err := jumpTargetIndex(inst, indexByOffset)
				if err != nil {
					return 0, err
				}
				pending.PushBack(work{targetIdx, depth + taken})
				break
			}

			if inst.Op == code.OpReturnValue {
				if depth != 1 {
					return 0, fmt.Errorf("stack depth %d at RETURN_VALUE, want 1", depth)
				}
				break
			}
			if inst.Op == code.OpJumpAbsolute {
				targetIdx, err := jumpTargetIndex(inst, indexByOffset)
				if err != nil {
					return 0, err
				}
				pending.PushBack(work{targetIdx, depth})
				break
			}

			delta, ok := stackEffectLookup(inst)
			if !ok {
				return 0, fmt.Errorf("no stack effect known for %v", inst.Op)
			}
			depth += delta
			if depth > maxDepth {
				maxDepth = depth
			}
			if depth < 0 {
				return 0, fmt.Errorf("stack underflow at offset %d (%v)", inst.Offset, inst.Op)
			}
			i++
		}
	}
	return maxDepth, nil
}

func branchStackEffectFor(op code.OpCode) ([2]int, bool) {
	v, ok := code.BranchStackEffect[op]
	return v, ok
}

func stackEffectLookup(inst *code.Instruction) (int, bool) {
	return code.StackEffect(inst.Op, inst.Arg)
}

// jumpTargetIndex maps a jump instruction (whose Arg resolveOffsets
// has already finalized to its numeric operand) to the instruction
// index of its target.
func jumpTargetIndex(inst *code.Instruction, indexByOffset map[int]int) (int, error) {
	target := inst.Arg
	if inst.Op.HasJumpRelative() {
		target += inst.Offset + lengthOfInst(inst.Arg)
	}
	idx, ok := indexByOffset[target]
	if !ok {
		return 0, fmt.Errorf("jump target offset %d does not land on an instruction boundary", target)
	}
	return idx, nil
}
