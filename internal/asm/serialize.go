// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package asm

import "github.com/fml-lang/fml/internal/code"

// assembleCode serializes insts (already offset-resolved, with jump
// Arg fields already finalized to numeric operands) into the wordcode
// byte stream an [code.Object]'s Code field holds: one (opcode,
// operand) byte pair per instruction, preceded by as many
// EXTENDED_ARG prefix pairs as its operand's high-order 8-bit groups
// require, most significant group first.
func assembleCode(insts []*code.Instruction) ([]byte, error) {
	var buf []byte
	for _, inst := range insts {
		for _, b := range extendedArgBytes(inst.Arg >> 8) {
			buf = append(buf, byte(code.OpExtendedArg), b)
		}
		buf = append(buf, byte(inst.Op), byte(inst.Arg))
	}
	return buf, nil
}

// extendedArgBytes returns hi's 8-bit groups, most significant first,
// matching the growth lengthOfInst already assumed while resolving
// offsets.
func extendedArgBytes(hi int) []byte {
	if hi == 0 {
		return nil
	}
	return append(extendedArgBytes(hi>>8), byte(hi))
}

// assembleLineTable builds the run-length-encoded offset-to-line
// mapping for insts, whose Offset and Line fields must already be
// final.
func assembleLineTable(insts []*code.Instruction, firstLine int) []byte {
	offsets := make([]int, len(insts))
	lines := make([]int, len(insts))
	for i, inst := range insts {
		offsets[i] = inst.Offset
		lines[i] = inst.Line
	}
	return code.EncodeLineTable(offsets, lines, firstLine)
}
