// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package asm

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fml-lang/fml/internal/code"
)

// returnConst builds the smallest complete function: LOAD_CONST k,
// BUILD_TUPLE 1, RETURN_VALUE.
func returnConst(a *Assembler, v code.Value) {
	a.EmitConst(code.OpLoadConst, v)
	a.Emit(code.OpBuildTuple, 1)
	a.Emit(code.OpReturnValue, 0)
}

func TestBuildMinimalFunction(t *testing.T) {
	a := New("test.lua", "f", 1, 0, true)
	returnConst(a, code.IntValue(7))
	obj, err := a.Build(Pools{})
	if err != nil {
		t.Fatal(err)
	}
	wantCode := []byte{
		byte(code.OpLoadConst), 0,
		byte(code.OpBuildTuple), 1,
		byte(code.OpReturnValue), 0,
	}
	if diff := cmp.Diff(wantCode, obj.Code); diff != "" {
		t.Errorf("code (-want +got):\n%s", diff)
	}
	if obj.StackSize != 1 {
		t.Errorf("StackSize = %d, want 1", obj.StackSize)
	}
	if obj.Flags&code.FlagNoFree == 0 {
		t.Errorf("Flags = %#x, want FlagNoFree set", obj.Flags)
	}
}

func TestConstantPoolDeduplicates(t *testing.T) {
	a := New("test.lua", "f", 1, 0, true)
	a.EmitConst(code.OpLoadConst, code.StringValue("x"))
	a.EmitConst(code.OpLoadConst, code.StringValue("x"))
	a.EmitConst(code.OpLoadConst, code.IntValue(1))
	a.Emit(code.OpBuildTuple, 3)
	a.Emit(code.OpReturnValue, 0)
	obj, err := a.Build(Pools{})
	if err != nil {
		t.Fatal(err)
	}
	if len(obj.Constants) != 2 {
		t.Errorf("len(Constants) = %d, want 2", len(obj.Constants))
	}
	if obj.Code[1] != 0 || obj.Code[3] != 0 {
		t.Errorf("duplicate loads should share slot 0: code = %v", obj.Code)
	}
}

func TestJumpBackward(t *testing.T) {
	// while true do end: an infinite loop followed by an unreachable
	// return. The backward jump targets offset 0.
	a := New("test.lua", "f", 1, 0, true)
	top := a.NewLabel()
	a.PlaceLabel(top)
	a.EmitConst(code.OpLoadConst, code.BoolValue(true))
	end := a.NewLabel()
	a.EmitJump(code.OpPopJumpIfFalse, end)
	a.EmitJump(code.OpJumpAbsolute, top)
	a.PlaceLabel(end)
	a.Emit(code.OpBuildTuple, 0)
	a.Emit(code.OpReturnValue, 0)
	obj, err := a.Build(Pools{})
	if err != nil {
		t.Fatal(err)
	}
	wantCode := []byte{
		byte(code.OpLoadConst), 0,
		byte(code.OpPopJumpIfFalse), 6,
		byte(code.OpJumpAbsolute), 0,
		byte(code.OpBuildTuple), 0,
		byte(code.OpReturnValue), 0,
	}
	if diff := cmp.Diff(wantCode, obj.Code); diff != "" {
		t.Errorf("code (-want +got):\n%s", diff)
	}
}

func TestOffsetResolutionIsAFixpoint(t *testing.T) {
	a := New("test.lua", "f", 1, 0, true)
	end := a.NewLabel()
	a.EmitConst(code.OpLoadConst, code.BoolValue(false))
	a.EmitJump(code.OpPopJumpIfFalse, end)
	for i := 0; i < 200; i++ {
		a.EmitConst(code.OpLoadConst, code.IntValue(int64(i)))
		a.Emit(code.OpPopTop, 0)
	}
	a.PlaceLabel(end)
	a.Emit(code.OpBuildTuple, 0)
	a.Emit(code.OpReturnValue, 0)

	insts, targets := a.flatten()
	if err := resolveOffsets(insts, targets); err != nil {
		t.Fatal(err)
	}
	first := make([]int, len(insts))
	for i, inst := range insts {
		first[i] = inst.Offset
	}
	// Re-running the pass on an already-resolved program must not move
	// anything.
	if err := resolveOffsets(insts, targets); err != nil {
		t.Fatal(err)
	}
	for i, inst := range insts {
		if inst.Offset != first[i] {
			t.Fatalf("instruction %d moved from %d to %d on second resolution", i, first[i], inst.Offset)
		}
	}
}

func TestExtendedArgGrowth(t *testing.T) {
	// Enough padding that the forward jump target exceeds one byte,
	// forcing an EXTENDED_ARG prefix on the jump.
	a := New("test.lua", "f", 1, 0, true)
	end := a.NewLabel()
	a.EmitConst(code.OpLoadConst, code.BoolValue(true))
	a.EmitJump(code.OpPopJumpIfTrue, end)
	for i := 0; i < 200; i++ {
		a.Emit(code.OpBuildTuple, 0)
		a.Emit(code.OpPopTop, 0)
	}
	a.PlaceLabel(end)
	a.Emit(code.OpBuildTuple, 0)
	a.Emit(code.OpReturnValue, 0)
	obj, err := a.Build(Pools{})
	if err != nil {
		t.Fatal(err)
	}
	if code.OpCode(obj.Code[2]) != code.OpExtendedArg {
		t.Fatalf("expected EXTENDED_ARG prefix at offset 2, got %v", code.OpCode(obj.Code[2]))
	}
	target := int(obj.Code[3])<<8 | int(obj.Code[5])
	wantTarget := len(obj.Code) - 4
	if target != wantTarget {
		t.Errorf("extended jump target = %d, want %d", target, wantTarget)
	}
}

func TestStackDepthMismatchIsAnError(t *testing.T) {
	a := New("test.lua", "f", 1, 0, true)
	// RETURN_VALUE with two values on the stack: depth 2, not 1.
	a.EmitConst(code.OpLoadConst, code.IntValue(1))
	a.EmitConst(code.OpLoadConst, code.IntValue(2))
	a.Emit(code.OpReturnValue, 0)
	if _, err := a.Build(Pools{}); err == nil {
		t.Error("Build succeeded with unbalanced stack, want error")
	}
}

func TestStackDepthBranches(t *testing.T) {
	// if c then return (1,) else return (2,) end: both arms must end
	// at depth 1, and the maximum observed depth is 1.
	a := New("test.lua", "f", 1, 0, true)
	elseL := a.NewLabel()
	a.EmitConst(code.OpLoadConst, code.BoolValue(true))
	a.EmitJump(code.OpPopJumpIfFalse, elseL)
	returnConst(a, code.IntValue(1))
	a.PlaceLabel(elseL)
	returnConst(a, code.IntValue(2))
	obj, err := a.Build(Pools{})
	if err != nil {
		t.Fatal(err)
	}
	if obj.StackSize != 1 {
		t.Errorf("StackSize = %d, want 1", obj.StackSize)
	}
}
