// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

// Package asm assembles a stream of logical instructions into a
// serialized [code.Object]: it deduplicates the constant pool, assigns
// byte offsets (growing operands into EXTENDED_ARG prefixes as needed),
// computes the maximum operand stack depth, and encodes the line table.
package asm

import (
	"fmt"

	"github.com/fml-lang/fml/internal/code"
)

// Label is a jump target: see [code.Label]. Exported here as an alias
// so callers that only need to hold and compare label identities (the
// scope resolver, the AST) don't need to import package code directly.
type Label = code.Label

// item is either a *code.Instruction or a *code.Label placed inline in
// the stream.
type item interface{}

// Assembler accumulates instructions for a single function body and
// builds the resulting [code.Object].
type Assembler struct {
	name      string
	filename  string
	firstLine int
	argCount  int
	varargs   bool

	items []item
	line  int

	constants []code.Value
	constSlot map[code.Value]int // keyed by value; code objects key by pointer identity, see addConst
}

// New returns an Assembler for a function named name, defined at
// firstLine in filename, declaring argCount positional parameters.
func New(filename, name string, firstLine, argCount int, varargs bool) *Assembler {
	return &Assembler{
		name:      name,
		filename:  filename,
		firstLine: firstLine,
		argCount:  argCount,
		varargs:   varargs,
		line:      firstLine,
		constSlot: make(map[code.Value]int),
	}
}

// SetLine records the source line subsequent Emit calls should be
// attributed to.
func (a *Assembler) SetLine(line int) {
	if line > 0 {
		a.line = line
	}
}

// NewLabel returns a fresh, unplaced jump target.
func (a *Assembler) NewLabel() *code.Label { return new(code.Label) }

// PlaceLabel marks the current stream position as l's target.
func (a *Assembler) PlaceLabel(l *code.Label) {
	a.items = append(a.items, l)
}

// Emit appends an instruction with a plain integer operand (ignored if
// op doesn't take an argument).
func (a *Assembler) Emit(op code.OpCode, arg int) {
	a.items = append(a.items, &code.Instruction{Op: op, Arg: arg, Line: a.line})
}

// EmitJump appends a jump instruction targeting l.
func (a *Assembler) EmitJump(op code.OpCode, l *code.Label) {
	a.items = append(a.items, &code.Instruction{Op: op, Jump: l, Line: a.line})
}

// EmitConst appends an instruction whose operand is a constant-pool slot
// for v (LOAD_CONST).
func (a *Assembler) EmitConst(op code.OpCode, v code.Value) {
	a.Emit(op, a.addConst(v))
}

// addConst deduplicates by value (scalars) the way the reference
// assembler deduplicates by identity: every distinct nested code object
// gets its own slot since two Values wrapping different *code.Object
// pointers never compare equal.
func (a *Assembler) addConst(v code.Value) int {
	if i, ok := a.constSlot[v]; ok {
		return i
	}
	i := len(a.constants)
	a.constants = append(a.constants, v)
	a.constSlot[v] = i
	return i
}

// Pools holds the name pools a [symbol.FuncTable.Finalize] computes for a
// function: the slot arithmetic that assigns every LOAD_FAST/LOAD_DEREF/
// LOAD_GLOBAL/LOAD_CLOSURE instruction its operand. Local slots, fast and
// cell alike, are never deduplicated by name (two shadowed locals in
// disjoint blocks get distinct slots); Global, attribute, and Free names
// are deduplicated by name.
type Pools struct {
	Names     []string // global/attribute names, LOAD_GLOBAL/STORE_GLOBAL
	VarNames  []string // fast-local slots, LOAD_FAST/STORE_FAST, one per Local symbol (no dedup)
	FreeNames []string // captured-from-enclosing-function slots, numbered after CellNames
	CellNames []string // locals captured by a nested function, LOAD_DEREF/STORE_DEREF

	// ParamSlots records which pool (and which slot within it) each
	// declared parameter landed in, plus the hidden vararg local for a
	// varargs function; see [code.ParamSlot].
	ParamSlots []code.ParamSlot
}

// Build resolves offsets, computes the stack size, encodes the line
// table, and serializes the instruction stream into a [*code.Object].
// pools supplies the name tables computed ahead of time for this
// function; Emit calls must already carry the slot indices those pools
// imply.
func (a *Assembler) Build(pools Pools) (*code.Object, error) {
	insts, targets := a.flatten()
	if err := resolveOffsets(insts, targets); err != nil {
		return nil, fmt.Errorf("assemble %s: %w", a.name, err)
	}
	stackSize, err := resolveStackSize(insts)
	if err != nil {
		return nil, fmt.Errorf("assemble %s: %w", a.name, err)
	}
	codeBytes, err := assembleCode(insts)
	if err != nil {
		return nil, fmt.Errorf("assemble %s: %w", a.name, err)
	}

	flags := code.FlagVarargs | code.FlagOptimized | code.FlagNewLocals
	if len(pools.FreeNames) == 0 && len(pools.CellNames) == 0 {
		flags |= code.FlagNoFree
	} else if len(pools.FreeNames) > 0 {
		flags |= code.FlagNested
	}

	obj := &code.Object{
		ArgCount:  a.argCount,
		NumLocals: len(pools.VarNames) + len(pools.CellNames),
		StackSize: stackSize,
		Flags:     flags,
		Code:      codeBytes,
		Constants: a.constants,
		Names:     pools.Names,
		VarNames:  pools.VarNames,
		FreeNames:  pools.FreeNames,
		CellNames:  pools.CellNames,
		ParamSlots: pools.ParamSlots,
		Filename:  a.filename,
		Name:      a.name,
		FirstLine: a.firstLine,
		LineTable: assembleLineTable(insts, a.firstLine),
	}
	return obj, nil
}

// flatten resolves Label placements to the instruction they precede,
// dropping Label items from the returned slice. The returned map has a
// nil value for any label placed at the very end of the stream (it
// targets the position past the last instruction, i.e. a fallthrough
// return).
func (a *Assembler) flatten() ([]*code.Instruction, map[*code.Label]*code.Instruction) {
	insts := make([]*code.Instruction, 0, len(a.items))
	targets := make(map[*code.Label]*code.Instruction)
	var pendingLabels []*code.Label
	for _, it := range a.items {
		switch v := it.(type) {
		case *code.Label:
			pendingLabels = append(pendingLabels, v)
		case *code.Instruction:
			insts = append(insts, v)
			for _, l := range pendingLabels {
				targets[l] = v
			}
			pendingLabels = nil
		}
	}
	for _, l := range pendingLabels {
		targets[l] = nil
	}
	return insts, targets
}
