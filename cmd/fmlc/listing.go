// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/fml-lang/fml/internal/code"
	"github.com/fml-lang/fml/internal/sets"
)

// printFunction writes a luac-style listing of proto and every
// distinct nested function reachable from its constant pool. full
// additionally lists the constant and name pools.
func printFunction(w io.Writer, proto *code.Object, full bool) {
	seen := sets.New[*code.Object]()
	queue := []*code.Object{proto}
	seen.Add(proto)
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		printOne(w, p, full)
		for _, c := range p.Constants {
			if c.IsCode() && !seen.Has(c.Code()) {
				seen.Add(c.Code())
				queue = append(queue, c.Code())
			}
		}
	}
}

func printOne(w io.Writer, p *code.Object, full bool) {
	kind := "function"
	if p.Name == "main chunk" {
		kind = "main"
	}
	header := fmt.Sprintf("%s <%s:%d> (%d bytes at %p)", kind, p.Filename, p.FirstLine, len(p.Code), p)
	if w == os.Stdout && term.IsTerminal(int(os.Stdout.Fd())) {
		header = "\x1b[1m" + header + "\x1b[0m"
	}
	fmt.Fprintln(w, header)
	fmt.Fprintf(w, "%d params, %d locals, %d stack, %d constants, %d upvalues\n",
		p.ArgCount, p.NumLocals, p.StackSize, len(p.Constants), len(p.FreeNames))

	offset := 0
	ext := 0
	for offset+1 < len(p.Code) {
		op := code.OpCode(p.Code[offset])
		arg := ext<<8 | int(p.Code[offset+1])
		if op == code.OpExtendedArg {
			ext = arg
			offset += 2
			continue
		}
		ext = 0
		line := code.LineForOffset(p.LineTable, p.FirstLine, offset)
		fmt.Fprintf(w, "\t%d\t[%d]\t%-20v", offset, line, op)
		if op.HasArgument() {
			fmt.Fprintf(w, "\t%d", arg)
			if note := operandNote(p, op, arg); note != "" {
				fmt.Fprintf(w, "\t; %s", note)
			}
		}
		fmt.Fprintln(w)
		offset += 2
	}

	if full {
		fmt.Fprintf(w, "constants (%d):\n", len(p.Constants))
		for i, c := range p.Constants {
			fmt.Fprintf(w, "\t%d\t%s\n", i, c.GoString())
		}
		fmt.Fprintf(w, "names (%d):\n", len(p.Names))
		for i, n := range p.Names {
			fmt.Fprintf(w, "\t%d\t%s\n", i, n)
		}
		fmt.Fprintf(w, "locals (%d):\n", len(p.VarNames))
		for i, n := range p.VarNames {
			fmt.Fprintf(w, "\t%d\t%s\n", i, n)
		}
		fmt.Fprintf(w, "cells (%d), upvalues (%d):\n", len(p.CellNames), len(p.FreeNames))
		for i, n := range p.CellNames {
			fmt.Fprintf(w, "\t%d\t%s\n", i, n)
		}
		for i, n := range p.FreeNames {
			fmt.Fprintf(w, "\t%d\t%s\n", len(p.CellNames)+i, n)
		}
	}
	fmt.Fprintln(w)
}

// operandNote resolves an operand to what it refers to, for the
// listing's trailing comment.
func operandNote(p *code.Object, op code.OpCode, arg int) string {
	switch {
	case op.HasConst():
		if arg < len(p.Constants) {
			return p.Constants[arg].GoString()
		}
	case op == code.OpLoadGlobal || op == code.OpStoreGlobal:
		if arg < len(p.Names) {
			return p.Names[arg]
		}
	case op == code.OpLoadFast || op == code.OpStoreFast:
		if arg < len(p.VarNames) {
			return p.VarNames[arg]
		}
	case op == code.OpLoadDeref || op == code.OpStoreDeref || op == code.OpLoadClosure:
		if arg < len(p.CellNames) {
			return p.CellNames[arg]
		}
		if i := arg - len(p.CellNames); i < len(p.FreeNames) {
			return p.FreeNames[i]
		}
	case op.HasJump():
		return fmt.Sprintf("to %d", arg)
	}
	return ""
}
