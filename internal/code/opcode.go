// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

// Package code defines the instruction set and code-object layout of the
// stack-based virtual machine that compiled chunks target.
//
// The instruction set mirrors a CPython-style "wordcode": every instruction
// is one opcode byte plus one operand byte, and operands wider than a
// byte are built up by prefixing one or more EXTENDED_ARG instructions that
// each contribute eight more bits, most significant first.
package code

//go:generate go tool stringer -type=OpCode -trimprefix=Op

// OpCode identifies a single virtual machine instruction.
type OpCode byte

// Opcode values. Opcodes at or above [HaveArgument] carry an operand;
// opcodes below it ignore their operand byte.
const (
	OpPopTop OpCode = iota
	OpRotTwo
	OpRotThree
	OpRotFour
	OpDupTop
	OpBinarySubscr
	OpStoreSubscr
	OpBinaryAdd
	OpBinaryMultiply
	OpGetIter
	OpReturnValue

	numArgumentlessOpCodes
)

// HaveArgument marks the boundary: opcodes at or above this value
// carry a meaningful one-byte operand.
const HaveArgument = numArgumentlessOpCodes

const (
	OpLoadConst OpCode = iota + HaveArgument
	OpLoadFast
	OpStoreFast
	OpLoadDeref
	OpStoreDeref
	OpLoadGlobal
	OpStoreGlobal
	OpLoadClosure
	OpMakeFunction
	OpBuildTuple
	OpBuildTupleUnpack
	OpUnpackEx
	OpBuildMap
	OpMapAdd
	OpCallFunction
	OpCallFunctionEx
	OpForIter
	OpCompareOp
	OpJumpAbsolute
	OpPopJumpIfFalse
	OpPopJumpIfTrue
	OpJumpIfTrueOrPop
	OpExtendedArg
)

// COMPARE_OP operand values.
const (
	CmpLess = iota
	CmpLessEqual
	CmpGreater
	CmpGreaterEqual
	CmpEqual
	CmpNotEqual
)

// hasConst is the set of opcodes whose operand indexes the constant pool.
var hasConst = map[OpCode]bool{
	OpLoadConst: true,
}

// hasJumpAbsolute is the set of opcodes whose operand is an absolute
// instruction offset.
var hasJumpAbsolute = map[OpCode]bool{
	OpJumpAbsolute:      true,
	OpPopJumpIfFalse:    true,
	OpPopJumpIfTrue:     true,
	OpJumpIfTrueOrPop:   true,
}

// hasJumpRelative is the set of opcodes whose operand is an instruction
// offset relative to the instruction's own (post-operand) offset.
var hasJumpRelative = map[OpCode]bool{
	OpForIter: true,
}

// HasConst reports whether op's operand indexes the constant pool.
func (op OpCode) HasConst() bool { return hasConst[op] }

// HasJumpAbsolute reports whether op's operand is an absolute jump target.
func (op OpCode) HasJumpAbsolute() bool { return hasJumpAbsolute[op] }

// HasJumpRelative reports whether op's operand is a relative jump target.
func (op OpCode) HasJumpRelative() bool { return hasJumpRelative[op] }

// HasJump reports whether op's operand is a jump target of any kind.
func (op OpCode) HasJump() bool {
	return op.HasJumpAbsolute() || op.HasJumpRelative()
}

// HasArgument reports whether op's operand byte is meaningful.
func (op OpCode) HasArgument() bool {
	return op >= HaveArgument
}

// BranchStackEffect holds the (not-taken, taken) stack-depth deltas for
// opcodes whose effect on the stack depends on which way a conditional
// branch goes.
var BranchStackEffect = map[OpCode][2]int{
	OpJumpIfTrueOrPop: {-1, 0},
	OpPopJumpIfFalse:  {-1, -1},
	OpPopJumpIfTrue:   {-1, -1},
}

// StackEffect holds the net stack-depth delta of opcodes whose effect does
// not depend on the operand value (or depends on it in a way accounted for
// by the caller, as with BUILD_TUPLE/CALL_FUNCTION/BUILD_MAP/UNPACK_EX).
func StackEffect(op OpCode, arg int) (delta int, ok bool) {
	switch op {
	case OpPopTop:
		return -1, true
	case OpRotTwo, OpRotThree, OpRotFour:
		return 0, true
	case OpDupTop:
		return 1, true
	case OpBinarySubscr:
		return -1, true
	case OpStoreSubscr:
		return -3, true
	case OpBinaryAdd, OpBinaryMultiply:
		return -1, true
	case OpGetIter:
		return 0, true
	case OpReturnValue:
		return -1, true
	case OpLoadConst, OpLoadFast, OpLoadDeref, OpLoadGlobal, OpLoadClosure:
		return 1, true
	case OpStoreFast, OpStoreDeref, OpStoreGlobal:
		return -1, true
	case OpBuildTuple:
		return 1 - arg, true
	case OpBuildTupleUnpack:
		return 1 - arg, true
	case OpUnpackEx:
		return 1, true
	case OpBuildMap:
		return 1 - 2*arg, true
	case OpMapAdd:
		return -3, true
	case OpCallFunction:
		return -arg, true
	case OpCallFunctionEx:
		return -1, true
	case OpCompareOp:
		return -1, true
	case OpMakeFunction:
		delta := -1
		if arg&0x8 != 0 {
			delta--
		}
		return delta, true
	case OpExtendedArg:
		return 0, true
	default:
		return 0, false
	}
}
