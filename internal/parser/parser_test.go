// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/fml-lang/fml/internal/ast"
)

func parseString(t *testing.T, src string) (*ast.File, error) {
	t.Helper()
	return Parse(Source("test.lua"), strings.NewReader(src))
}

func mustParse(t *testing.T, src string) *ast.File {
	t.Helper()
	f, err := parseString(t, src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return f
}

// astCmpOptions ignores positions and the fields later passes fill
// in, so tests compare pure syntactic structure.
var astCmpOptions = cmp.Options{
	cmpopts.IgnoreTypes(ast.Base{}),
	cmpopts.IgnoreFields(ast.Name{}, "Symbol"),
	cmp.AllowUnexported(parenExpr{}),
	cmpopts.EquateEmpty(),
}

func TestParseReturn(t *testing.T) {
	f := mustParse(t, "return 1, x")
	want := []ast.Statement{
		&ast.Return{Values: []ast.Expression{
			&ast.Number{Literal: "1"},
			&ast.Name{ID: "x"},
		}},
	}
	if diff := cmp.Diff(want, f.Body, astCmpOptions); diff != "" {
		t.Errorf("body (-want +got):\n%s", diff)
	}
}

func TestParseElseifDesugarsToNestedIf(t *testing.T) {
	f := mustParse(t, "if a then elseif b then else end")
	outer, ok := f.Body[0].(*ast.If)
	if !ok {
		t.Fatalf("statement is %T, want *ast.If", f.Body[0])
	}
	if len(outer.Else) != 1 {
		t.Fatalf("outer else has %d statements, want 1", len(outer.Else))
	}
	inner, ok := outer.Else[0].(*ast.If)
	if !ok {
		t.Fatalf("else arm is %T, want nested *ast.If", outer.Else[0])
	}
	if inner.Else != nil && len(inner.Else) != 0 {
		t.Errorf("inner else = %v, want empty", inner.Else)
	}
}

func TestParseNumericForInjectsStep(t *testing.T) {
	f := mustParse(t, "for i = 1, 10 do end")
	loop := f.Body[0].(*ast.For)
	step, ok := loop.Step.(*ast.Number)
	if !ok || step.Literal != "1" {
		t.Errorf("step = %#v, want Number{1}", loop.Step)
	}
}

func TestParseMethodDeclarationInjectsSelf(t *testing.T) {
	f := mustParse(t, "function t.a:m(x) end")
	fn := f.Body[0].(*ast.Function)
	m, ok := fn.Name.(*ast.Method)
	if !ok {
		t.Fatalf("name is %T, want *ast.Method", fn.Name)
	}
	attr, ok := m.Value.(*ast.Attribute)
	if !ok || attr.Attr.ID != "a" {
		t.Fatalf("method receiver = %#v, want t.a", m.Value)
	}
	var names []string
	for _, p := range fn.Pars.Names {
		names = append(names, p.ID)
	}
	if diff := cmp.Diff([]string{"self", "x"}, names); diff != "" {
		t.Errorf("parameters (-want +got):\n%s", diff)
	}
}

func TestParsePrecedence(t *testing.T) {
	// 1 + 2 * 3 parses as 1 + (2 * 3); 2 ^ 3 ^ 2 as 2 ^ (3 ^ 2);
	// "a" .. "b" .. "c" as "a" .. ("b" .. "c"); -x ^ 2 as -(x ^ 2).
	tests := []struct {
		src      string
		topOp    string
		rightOp  string
	}{
		{"return 1 + 2 * 3", "+", "*"},
		{"return 2 ^ 3 ^ 2", "^", "^"},
		{`return "a" .. "b" .. "c"`, "..", ".."},
	}
	for _, test := range tests {
		f := mustParse(t, test.src)
		top := f.Body[0].(*ast.Return).Values[0].(*ast.BinOp)
		if top.Op != test.topOp {
			t.Errorf("%s: top operator = %q, want %q", test.src, top.Op, test.topOp)
			continue
		}
		right, ok := top.Right.(*ast.BinOp)
		if !ok || right.Op != test.rightOp {
			t.Errorf("%s: right operand = %#v, want BinOp %q", test.src, top.Right, test.rightOp)
		}
	}

	f := mustParse(t, "return -x ^ 2")
	neg := f.Body[0].(*ast.Return).Values[0].(*ast.UnaryOp)
	if neg.Op != "-" {
		t.Fatalf("top = %q, want unary -", neg.Op)
	}
	if pow, ok := neg.Operand.(*ast.BinOp); !ok || pow.Op != "^" {
		t.Errorf("operand of unary - = %#v, want x ^ 2", neg.Operand)
	}
}

func TestParseSuffixedChain(t *testing.T) {
	// a.b[c]:m(1) builds Call(Method(Subscript(Attribute(a, b), c), m), 1).
	f := mustParse(t, "a.b[c]:m(1)")
	call := f.Body[0].(*ast.CallStatement).Body
	m, ok := call.Func.(*ast.Method)
	if !ok || m.Method.ID != "m" {
		t.Fatalf("callee = %#v, want method m", call.Func)
	}
	sub, ok := m.Value.(*ast.Subscript)
	if !ok {
		t.Fatalf("method receiver = %T, want *ast.Subscript", m.Value)
	}
	if attr, ok := sub.Value.(*ast.Attribute); !ok || attr.Attr.ID != "b" {
		t.Errorf("subscript base = %#v, want a.b", sub.Value)
	}
}

func TestParseTableConstructor(t *testing.T) {
	f := mustParse(t, "return {1, x = 2, [3] = 4}")
	tbl := f.Body[0].(*ast.Return).Values[0].(*ast.Table)
	if len(tbl.Fields) != 3 {
		t.Fatalf("got %d fields, want 3", len(tbl.Fields))
	}
	if tbl.Fields[0].Key != nil {
		t.Errorf("field 0 has key %#v, want positional", tbl.Fields[0].Key)
	}
	if k, ok := tbl.Fields[1].Key.(*ast.String); !ok || k.Value != "x" {
		t.Errorf("field 1 key = %#v, want string x", tbl.Fields[1].Key)
	}
	if _, ok := tbl.Fields[2].Key.(*ast.Number); !ok {
		t.Errorf("field 2 key = %#v, want number", tbl.Fields[2].Key)
	}
}

func TestParseParenTruncation(t *testing.T) {
	// (f()) must not be a bare Call: the parentheses wrap it.
	f := mustParse(t, "return (f())")
	v := f.Body[0].(*ast.Return).Values[0]
	if _, ok := v.(*ast.Call); ok {
		t.Error("parenthesized call parsed as bare Call")
	}
	inner, ok := v.(interface{ Inner() ast.Expression })
	if !ok {
		t.Fatalf("value is %T, want paren wrapper", v)
	}
	if _, ok := inner.Inner().(*ast.Call); !ok {
		t.Errorf("inner is %T, want *ast.Call", inner.Inner())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src     string
		wantSub string
	}{
		{")", "expected"},
		{"!", "Bad character"},
		{"local 1 = 2", "<name> expected"},
		{"if x then", "'end' expected"},
		{"return return", "expected"},
		{"a, f() = 1, 2", "syntax error"},
		{"f() = 1", "syntax error"},
	}
	for _, test := range tests {
		_, err := parseString(t, test.src)
		if err == nil {
			t.Errorf("Parse(%q) succeeded, want error", test.src)
			continue
		}
		if !strings.Contains(err.Error(), test.wantSub) {
			t.Errorf("Parse(%q) error = %q, want substring %q", test.src, err, test.wantSub)
		}
	}
}

func TestParseShebang(t *testing.T) {
	f := mustParse(t, "#!/usr/bin/env fml\nreturn 1")
	if len(f.Body) != 1 {
		t.Fatalf("got %d statements, want 1", len(f.Body))
	}
	if _, ok := f.Body[0].(*ast.Return); !ok {
		t.Errorf("statement is %T, want *ast.Return", f.Body[0])
	}
}
