// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package scope

import (
	"strings"
	"testing"

	"github.com/fml-lang/fml/internal/ast"
	"github.com/fml-lang/fml/internal/parser"
	"github.com/fml-lang/fml/internal/symbol"
)

func resolve(t *testing.T, src string) *ast.File {
	t.Helper()
	f, err := parser.Parse(parser.Source("test.lua"), strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	if err := Resolve(f); err != nil {
		t.Fatalf("Resolve(%q): %v", src, err)
	}
	return f
}

func resolveErr(t *testing.T, src string) error {
	t.Helper()
	f, err := parser.Parse(parser.Source("test.lua"), strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return Resolve(f)
}

func TestNameClassification(t *testing.T) {
	f := resolve(t, "local a = 1\nb = a")
	assign := f.Body[1].(*ast.Assign)
	if _, ok := assign.Targets[0].(*ast.Name).Symbol.(*symbol.Global); !ok {
		t.Errorf("b resolved to %T, want *symbol.Global", assign.Targets[0].(*ast.Name).Symbol)
	}
	if _, ok := assign.Values[0].(*ast.Name).Symbol.(*symbol.Local); !ok {
		t.Errorf("a resolved to %T, want *symbol.Local", assign.Values[0].(*ast.Name).Symbol)
	}
}

func TestBlockShadowing(t *testing.T) {
	f := resolve(t, "local a = 1\ndo local a = 2 return a end\nreturn a")
	inner := f.Body[1].(*ast.Block).Body[1].(*ast.Return).Values[0].(*ast.Name).Symbol
	outer := f.Body[2].(*ast.Return).Values[0].(*ast.Name).Symbol
	if inner == outer {
		t.Error("inner and outer a share a symbol; shadowing must allocate a fresh binding")
	}
}

func TestFreePromotion(t *testing.T) {
	f := resolve(t, "local x = 1\nlocal function f() return x end")
	decl := f.Body[1].(*ast.FunctionLocal)
	ret := decl.Body[0].(*ast.Return).Values[0].(*ast.Name)
	free, ok := ret.Symbol.(*symbol.Free)
	if !ok {
		t.Fatalf("captured x resolved to %T, want *symbol.Free", ret.Symbol)
	}
	parent, ok := free.Parent.(*symbol.Local)
	if !ok {
		t.Fatalf("free parent is %T, want *symbol.Local", free.Parent)
	}
	if !parent.IsReferenced {
		t.Error("captured local not marked referenced")
	}
	outer := f.Body[0].(*ast.AssignLocal).Targets[0].Symbol
	if parent != outer {
		t.Error("free parent is not the declaring local")
	}

	// The captured local gets a cell slot; the chunk's own pools say so.
	pools := f.Table.Finalize()
	found := false
	for _, n := range pools.CellNames {
		if n == "x" {
			found = true
		}
	}
	if !found {
		t.Errorf("CellNames = %v, want to contain x", pools.CellNames)
	}
}

func TestTransitiveCapture(t *testing.T) {
	f := resolve(t, "local x = 1\nlocal function f()\nlocal function g() return x end\nend")
	fDecl := f.Body[1].(*ast.FunctionLocal)
	gDecl := fDecl.Body[0].(*ast.FunctionLocal)
	ret := gDecl.Body[0].(*ast.Return).Values[0].(*ast.Name)
	gFree, ok := ret.Symbol.(*symbol.Free)
	if !ok {
		t.Fatalf("x in g resolved to %T, want *symbol.Free", ret.Symbol)
	}
	fFree, ok := gFree.Parent.(*symbol.Free)
	if !ok {
		t.Fatalf("g's free parent is %T, want the intermediate *symbol.Free in f", gFree.Parent)
	}
	if _, ok := fFree.Parent.(*symbol.Local); !ok {
		t.Fatalf("chain does not bottom out at a Local: %T", fFree.Parent)
	}
}

func TestRepeatTestSeesBodyLocals(t *testing.T) {
	f := resolve(t, "repeat local x = 1 until x > 0")
	rep := f.Body[0].(*ast.Repeat)
	cond := rep.Test.(*ast.BinOp).Left.(*ast.Name)
	if _, ok := cond.Symbol.(*symbol.Local); !ok {
		t.Errorf("x in until-condition resolved to %T, want the body's *symbol.Local", cond.Symbol)
	}
}

func TestOperatorBuiltinBinding(t *testing.T) {
	f := resolve(t, "return 1 - 2, 1 + 2, -x, {1, f()}")
	values := f.Body[0].(*ast.Return).Values
	sub := values[0].(*ast.BinOp)
	if sub.OpSymbol == nil || sub.OpSymbol.Name() != ".b-" {
		t.Errorf("operator - bound to %v, want .b-", sub.OpSymbol)
	}
	add := values[1].(*ast.BinOp)
	if add.OpSymbol != nil {
		t.Errorf("operator + bound to %v, want none (dedicated opcode)", add.OpSymbol)
	}
	neg := values[2].(*ast.UnaryOp)
	if neg.OpSymbol == nil || neg.OpSymbol.Name() != ".u-" {
		t.Errorf("unary - bound to %v, want .u-", neg.OpSymbol)
	}
	tbl := values[3].(*ast.Table)
	if tbl.AppendSymbol == nil || tbl.AppendSymbol.Name() != ".tappend" {
		t.Errorf("table spread bound to %v, want .tappend", tbl.AppendSymbol)
	}
}

func TestGotoEnclosingBlock(t *testing.T) {
	f := resolve(t, "::top::\ndo goto top end")
	g := f.Body[1].(*ast.Block).Body[0].(*ast.Goto)
	if g.ResolvedLabel == nil {
		t.Fatal("goto into enclosing block did not resolve")
	}
	if g.ResolvedLabel.Name != "top" {
		t.Errorf("resolved to label %q, want top", g.ResolvedLabel.Name)
	}
}

func TestScopeErrors(t *testing.T) {
	tests := []struct {
		src     string
		wantSub string
	}{
		{"::a::\n::a::", "label 'a' already defined on line 1"},
		{"function a() return ... end", "cannot use '...' outside a vararg function"},
		{"goto a", "no visible label 'a'"},
		{"goto b\nlocal x = 1\n::b::", "jumps into the scope of local 'x'"},
		{"do ::a:: end\ndo goto a end", "no visible label 'a'"},
		{"break", "break outside a loop"},
	}
	for _, test := range tests {
		err := resolveErr(t, test.src)
		if err == nil {
			t.Errorf("Resolve(%q) succeeded, want error", test.src)
			continue
		}
		if !strings.Contains(err.Error(), test.wantSub) {
			t.Errorf("Resolve(%q) error = %q, want substring %q", test.src, err, test.wantSub)
		}
	}
}

func TestVarargAllowed(t *testing.T) {
	for _, src := range []string{
		"return ...",
		"local f = function(...) return ... end",
		"function f(...) return ... end",
	} {
		if err := resolveErr(t, src); err != nil {
			t.Errorf("Resolve(%q) = %v, want success", src, err)
		}
	}
}
