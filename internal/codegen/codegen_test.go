// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package codegen

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fml-lang/fml/internal/code"
	"github.com/fml-lang/fml/internal/parser"
	"github.com/fml-lang/fml/internal/scope"
)

func compile(t *testing.T, src string) *code.Object {
	t.Helper()
	f, err := parser.Parse(parser.Source("test.lua"), strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	if err := scope.Resolve(f); err != nil {
		t.Fatalf("Resolve(%q): %v", src, err)
	}
	obj, err := Generate("test.lua", f)
	if err != nil {
		t.Fatalf("Generate(%q): %v", src, err)
	}
	return obj
}

func TestReturnConstantBytecode(t *testing.T) {
	obj := compile(t, "return 1")
	want := []byte{
		byte(code.OpLoadConst), 0, // 1
		byte(code.OpBuildTuple), 1,
		byte(code.OpBuildTupleUnpack), 1,
		byte(code.OpReturnValue), 0,
		byte(code.OpLoadConst), 1, // true, the implicit chunk result
		byte(code.OpBuildTuple), 1,
		byte(code.OpReturnValue), 0,
	}
	if diff := cmp.Diff(want, obj.Code); diff != "" {
		t.Errorf("code (-want +got):\n%s", diff)
	}
	if len(obj.Constants) != 2 {
		t.Errorf("constants = %d entries, want 2", len(obj.Constants))
	}
}

func TestLocalUsesFastSlots(t *testing.T) {
	obj := compile(t, "local x = 1\nreturn x")
	want := []byte{
		byte(code.OpLoadConst), 0,
		byte(code.OpBuildTuple), 1,
		byte(code.OpBuildTupleUnpack), 1,
		byte(code.OpUnpackEx), 0,
		byte(code.OpStoreFast), 1, // slot 0 is the hidden "..."
		byte(code.OpPopTop), 0,
		byte(code.OpLoadFast), 1,
		byte(code.OpBuildTuple), 1,
		byte(code.OpBuildTupleUnpack), 1,
		byte(code.OpReturnValue), 0,
		byte(code.OpLoadConst), 1,
		byte(code.OpBuildTuple), 1,
		byte(code.OpReturnValue), 0,
	}
	if diff := cmp.Diff(want, obj.Code); diff != "" {
		t.Errorf("code (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"...", "x"}, obj.VarNames); diff != "" {
		t.Errorf("VarNames (-want +got):\n%s", diff)
	}
}

func TestCapturedLocalUsesCellSlot(t *testing.T) {
	obj := compile(t, "local x = 1\nlocal f = function() return x end\nreturn f()")
	if diff := cmp.Diff([]string{"x"}, obj.CellNames); diff != "" {
		t.Errorf("CellNames (-want +got):\n%s", diff)
	}
	if obj.Flags&code.FlagNoFree != 0 {
		t.Error("chunk with a cell variable still flagged NOFREE")
	}

	var inner *code.Object
	for _, c := range obj.Constants {
		if c.IsCode() {
			inner = c.Code()
		}
	}
	if inner == nil {
		t.Fatal("no nested code object in constant pool")
	}
	if diff := cmp.Diff([]string{"x"}, inner.FreeNames); diff != "" {
		t.Errorf("inner FreeNames (-want +got):\n%s", diff)
	}
	if inner.Flags&code.FlagNested == 0 {
		t.Error("inner closure not flagged NESTED")
	}

	// The outer stream must build the closure tuple: LOAD_CLOSURE on
	// x's cell, then MAKE_FUNCTION with the closure bit.
	sawLoadClosure := false
	sawClosureFlag := false
	for i := 0; i+1 < len(obj.Code); i += 2 {
		switch code.OpCode(obj.Code[i]) {
		case code.OpLoadClosure:
			sawLoadClosure = true
		case code.OpMakeFunction:
			if obj.Code[i+1]&0x8 != 0 {
				sawClosureFlag = true
			}
		}
	}
	if !sawLoadClosure || !sawClosureFlag {
		t.Errorf("closure construction missing: LOAD_CLOSURE=%t, MAKE_FUNCTION|8=%t",
			sawLoadClosure, sawClosureFlag)
	}
}

func TestShortCircuitEmitsNoBuiltinCall(t *testing.T) {
	obj := compile(t, "return a and b or c")
	for i := 0; i+1 < len(obj.Code); i += 2 {
		if code.OpCode(obj.Code[i]) == code.OpCallFunctionEx {
			t.Fatal("and/or lowered to a function call; must short-circuit with jumps")
		}
	}
}

func TestAddAndMultiplyUseDedicatedOpcodes(t *testing.T) {
	obj := compile(t, "return 1 + 2 * 3")
	var ops []code.OpCode
	for i := 0; i+1 < len(obj.Code); i += 2 {
		ops = append(ops, code.OpCode(obj.Code[i]))
	}
	sawAdd, sawMul := false, false
	for _, op := range ops {
		if op == code.OpBinaryAdd {
			sawAdd = true
		}
		if op == code.OpBinaryMultiply {
			sawMul = true
		}
		if op == code.OpCallFunctionEx {
			t.Fatal("+/* lowered to a builtin call, want dedicated opcodes")
		}
	}
	if !sawAdd || !sawMul {
		t.Errorf("BINARY_ADD=%t, BINARY_MULTIPLY=%t, want both", sawAdd, sawMul)
	}
}

func TestNumberDecoding(t *testing.T) {
	tests := []struct {
		lit  string
		want code.Value
	}{
		{"1", code.IntValue(1)},
		{"0x10", code.IntValue(16)},
		{"0.5", code.FloatValue(0.5)},
		{"1e2", code.FloatValue(100)},
		{"0xFFp-2", code.FloatValue(63.75)},
		{"3.", code.FloatValue(3)},
		{"9223372036854775808", code.FloatValue(9223372036854775808)}, // int64 overflow -> float
	}
	for _, test := range tests {
		got, err := decodeNumber(test.lit)
		if err != nil {
			t.Errorf("decodeNumber(%q): %v", test.lit, err)
			continue
		}
		if !got.Equal(test.want) {
			t.Errorf("decodeNumber(%q) = %#v, want %#v", test.lit, got, test.want)
		}
	}
	if _, err := decodeNumber("0xZZ"); err == nil {
		t.Error("decodeNumber(0xZZ) succeeded, want error")
	}
}

func TestLineTableAttributesLines(t *testing.T) {
	obj := compile(t, "local x = 1\nreturn x")
	if got := code.LineForOffset(obj.LineTable, obj.FirstLine, 0); got != 1 {
		t.Errorf("line at offset 0 = %d, want 1", got)
	}
	// The LOAD_FAST for the return sits on line 2.
	returnOffset := 12
	if got := code.LineForOffset(obj.LineTable, obj.FirstLine, returnOffset); got != 2 {
		t.Errorf("line at offset %d = %d, want 2", returnOffset, got)
	}
}
