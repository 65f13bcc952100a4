// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package fml_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fml-lang/fml"
	"github.com/fml-lang/fml/internal/code"
	"github.com/fml-lang/fml/internal/interp"
)

func run(t *testing.T, src string, args ...fml.Value) []fml.Value {
	t.Helper()
	st := fml.NewState()
	st.OpenLibs()
	got, err := st.Run([]byte(src), "test.lua", args...)
	if err != nil {
		t.Fatalf("Run(%q): %v", src, err)
	}
	return got
}

func values(vs ...fml.Value) []fml.Value { return vs }

func diffValues(want, got []fml.Value) string {
	return cmp.Diff(want, got, cmp.Comparer(func(a, b fml.Value) bool {
		return a.Kind() == b.Kind() && a.Equal(b)
	}), cmp.Transformer("string", func(v fml.Value) string { return v.TypeName() + ":" + v.String() }))
}

func checkRun(t *testing.T, src string, want []fml.Value, args ...fml.Value) {
	t.Helper()
	got := run(t, src, args...)
	if len(got) != len(want) {
		t.Fatalf("Run(%q) = %v, want %v", src, got, want)
	}
	for i := range want {
		if got[i].Kind() != want[i].Kind() || !got[i].Equal(want[i]) {
			t.Errorf("Run(%q)[%d] = %s %v, want %s %v",
				src, i, got[i].TypeName(), got[i], want[i].TypeName(), want[i])
		}
	}
}

func TestEmptyChunkReturnsTrue(t *testing.T) {
	checkRun(t, "", values(interp.Bool(true)))
}

func TestScalarReturns(t *testing.T) {
	tests := []struct {
		src  string
		want []fml.Value
	}{
		{"return nil", values(interp.Nil)},
		{"return true", values(interp.Bool(true))},
		{"return false", values(interp.Bool(false))},
		{"return 0", values(interp.Int(0))},
		{"return 0.5", values(interp.Float(0.5))},
		{"return 0xFFp-2", values(interp.Float(63.75))},
		{`return "abc\n"`, values(interp.String("abc\n"))},
		{`return 'a' .. 'b'`, values(interp.String("ab"))},
		{"return 1", values(interp.Int(1))},
	}
	for _, test := range tests {
		checkRun(t, test.src, test.want)
	}
}

func TestVarargs(t *testing.T) {
	checkRun(t, "return ...",
		values(interp.Int(1), interp.Int(2), interp.Int(3)),
		interp.Int(1), interp.Int(2), interp.Int(3))

	// Parenthesizing truncates to the first value.
	checkRun(t, "return (...), 9",
		values(interp.Int(1), interp.Int(9)),
		interp.Int(1), interp.Int(2))
}

func TestMultipleAssignmentFromVarargs(t *testing.T) {
	src := "a, b = ...\nreturn b, a"
	checkRun(t, src, values(interp.Int(2), interp.Int(1)), interp.Int(1), interp.Int(2))
	checkRun(t, src, values(interp.Nil, interp.Int(1)), interp.Int(1))
}

func TestIfElseifElse(t *testing.T) {
	src := "local a = 1\nif a > 1 then return 1 elseif a > 0 then return 2 else return 3 end"
	checkRun(t, src, values(interp.Int(2)))

	src = "local a = 5\nif a > 1 then return 1 elseif a > 0 then return 2 else return 3 end"
	checkRun(t, src, values(interp.Int(1)))

	src = "local a = -1\nif a > 1 then return 1 elseif a > 0 then return 2 else return 3 end"
	checkRun(t, src, values(interp.Int(3)))
}

func TestWhileAndRepeat(t *testing.T) {
	checkRun(t, "local i = 0\nwhile i < 10 do i = i + 1 end\nreturn i", values(interp.Int(10)))
	checkRun(t, "local i = 0\nrepeat i = i + 1 until i > 10\nreturn i", values(interp.Int(11)))
}

func TestNumericFor(t *testing.T) {
	checkRun(t, "local a = 0\nfor i = 0, 10 do a = a + i end\nreturn a", values(interp.Int(55)))
	checkRun(t, "local a = 0\nfor i = 10, 1, -1 do a = a + i end\nreturn a", values(interp.Int(55)))
	checkRun(t, "local a = 0\nfor i = 1, 10, 2 do a = a + 1 end\nreturn a", values(interp.Int(5)))
	// Nested loops use disjoint hidden control slots.
	checkRun(t, "local a = 0\nfor i = 1, 3 do for j = 1, 4 do a = a + 1 end end\nreturn a",
		values(interp.Int(12)))
}

func TestGenericFor(t *testing.T) {
	src := `local a = 0
for i in function(s, v) if v < s then return v + 1 end end, 10, 0 do
  a = a + i
end
return a`
	checkRun(t, src, values(interp.Int(55)))
}

func TestBreak(t *testing.T) {
	src := "local i = 0\nwhile true do i = i + 1 if i > 4 then break end end\nreturn i"
	checkRun(t, src, values(interp.Int(5)))
}

func TestGotoLoop(t *testing.T) {
	src := "local i = 0\n::top::\ni = i + 1\nif i < 3 then goto top end\nreturn i"
	checkRun(t, src, values(interp.Int(3)))
}

func TestClosuresShareCells(t *testing.T) {
	src := `local function counter()
  local n = 0
  return function() n = n + 1 return n end
end
local c = counter()
c()
c()
return c(), counter()()`
	checkRun(t, src, values(interp.Int(3), interp.Int(1)))
}

func TestLocalFunctionRecursion(t *testing.T) {
	src := `local function fib(n)
  if n < 2 then return n end
  return fib(n - 1) + fib(n - 2)
end
return fib(10)`
	checkRun(t, src, values(interp.Int(55)))
}

func TestMethodCallAndDottedDefinition(t *testing.T) {
	src := `local t = {a = {b = {}}}
function t.a.b:c() return self.v end
t.a.b.v = 42
return t.a.b:c()`
	checkRun(t, src, values(interp.Int(42)))
}

func TestTableConstructors(t *testing.T) {
	checkRun(t, "local t = {x = 5, [10] = 7}\nreturn t.x, t[10]",
		values(interp.Int(5), interp.Int(7)))

	src := `local function two() return 2, 3 end
local t = {1, two()}
return #t, t[2], t[3]`
	checkRun(t, src, values(interp.Int(3), interp.Int(2), interp.Int(3)))

	// A non-final call contributes only its first value.
	src = `local function two() return 2, 3 end
local t = {two(), 9}
return #t, t[1], t[2]`
	checkRun(t, src, values(interp.Int(2), interp.Int(2), interp.Int(9)))
}

func TestSubscriptAssignment(t *testing.T) {
	checkRun(t, `local t = {}
t[1] = "x"
local a
t.k, a = 1, 2
return t[1], t.k, a`, values(interp.String("x"), interp.Int(1), interp.Int(2)))
}

func TestAndOr(t *testing.T) {
	checkRun(t, "return 1 and 2, nil and 1, false or 'x', nil or false",
		values(interp.Int(2), interp.Nil, interp.String("x"), interp.Bool(false)))
}

func TestComparisons(t *testing.T) {
	checkRun(t, `return "a" < "b", 2 <= 2, 3 > 4, 1 == 1.0, 1 ~= "1"`,
		values(interp.Bool(true), interp.Bool(true), interp.Bool(false),
			interp.Bool(true), interp.Bool(true)))
}

func TestStringEscapes(t *testing.T) {
	checkRun(t, `return "a\tb", "\x41", "\65", "\u{2603}", "\z
   done"`,
		values(interp.String("a\tb"), interp.String("A"), interp.String("A"),
			interp.String("☃"), interp.String("done")))
}

func TestGlobalsResolveThroughEnv(t *testing.T) {
	checkRun(t, "x = 5\nreturn _ENV.x, x", values(interp.Int(5), interp.Int(5)))
}

func TestTonumberAtRuntime(t *testing.T) {
	checkRun(t, `return tonumber("21") * 2, tonumber("ff", 16), tonumber("zz")`,
		values(interp.Int(42), interp.Int(255), interp.Nil))
}

func TestLoad(t *testing.T) {
	checkRun(t, `local f = load("return 40 + 2")
return f()`, values(interp.Int(42)))

	// A compile failure follows the (nil, message) protocol instead of
	// raising.
	checkRun(t, `local f, err = load("return 1 +")
return f, err ~= nil`, values(interp.Nil, interp.Bool(true)))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunk.lua")
	if err := os.WriteFile(path, []byte("return 7"), 0o666); err != nil {
		t.Fatal(err)
	}
	st := fml.NewState()
	st.OpenLibs()
	fn, err := st.LoadFile(path, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	c, ok := fn.AsCallable()
	if !ok {
		t.Fatalf("LoadFile returned %s, want callable", fn.TypeName())
	}
	got, err := interp.Call(c, nil, st.Globals())
	if err != nil {
		t.Fatal(err)
	}
	if diff := diffValues(values(interp.Int(7)), got); diff != "" {
		t.Errorf("results (-want +got):\n%s", diff)
	}
}

func TestDumpedChunkRunsIdentically(t *testing.T) {
	proto, err := fml.Compile([]byte("return 6 * 7"), "test.lua")
	if err != nil {
		t.Fatal(err)
	}
	st := fml.NewState()
	st.OpenLibs()
	fn, err := st.Load(code.Dump(proto), "dumped", "b", nil)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := fn.AsCallable()
	got, err := interp.Call(c, nil, st.Globals())
	if err != nil {
		t.Fatal(err)
	}
	if diff := diffValues(values(interp.Int(42)), got); diff != "" {
		t.Errorf("results (-want +got):\n%s", diff)
	}

	// Binary chunks are rejected in text-only mode.
	if _, err := st.Load(code.Dump(proto), "dumped", "t", nil); err == nil {
		t.Error("text-only load of a binary chunk succeeded, want error")
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		src     string
		wantSub string
	}{
		{"!", "Bad character"},
		{")", "expected"},
		{"::a::\n::a::", "label 'a' already defined on line 1"},
		{"function a() return ... end", "cannot use '...' outside a vararg function"},
		{"goto a", "no visible label 'a'"},
		{"goto b\nlocal x = 1\n::b::", "jumps into the scope of local 'x'"},
		{"break", "break outside a loop"},
		{`return "\300"`, "decimal escape too large"},
	}
	for _, test := range tests {
		_, err := fml.Compile([]byte(test.src), "test.lua")
		if err == nil {
			t.Errorf("Compile(%q) succeeded, want error", test.src)
			continue
		}
		if !fml.IsSyntaxError(err) {
			t.Errorf("Compile(%q) error %v is not a SyntaxError", test.src, err)
		}
		if !strings.Contains(err.Error(), test.wantSub) {
			t.Errorf("Compile(%q) error = %q, want substring %q", test.src, err, test.wantSub)
		}
	}
}

func TestRuntimeErrors(t *testing.T) {
	st := fml.NewState()
	st.OpenLibs()
	tests := []struct {
		src     string
		wantSub string
	}{
		{"return 1 + {}", "arithmetic"},
		{"local x\nreturn x.y", "attempt to index a nil value"},
		{"local x\nreturn x()", "attempt to call a nil value"},
		{"return 1 < 'a'", "attempt to compare"},
		{"for i = 1, 10, 0 do end", "'for' step is zero"},
	}
	for _, test := range tests {
		_, err := st.Run([]byte(test.src), "test.lua")
		if err == nil {
			t.Errorf("Run(%q) succeeded, want error", test.src)
			continue
		}
		if !strings.Contains(err.Error(), test.wantSub) {
			t.Errorf("Run(%q) error = %q, want substring %q", test.src, err, test.wantSub)
		}
	}
}

func TestCompiledObjectShape(t *testing.T) {
	proto, err := fml.Compile([]byte("local x = 1\nreturn x"), "shape.lua")
	if err != nil {
		t.Fatal(err)
	}
	if proto.Name != "main chunk" {
		t.Errorf("Name = %q, want main chunk", proto.Name)
	}
	if proto.Filename != "shape.lua" {
		t.Errorf("Filename = %q, want shape.lua", proto.Filename)
	}
	if !proto.IsVarargs() {
		t.Error("main chunk is not flagged varargs")
	}
	// "..." and x both live in fast slots; nothing is captured.
	if len(proto.CellNames) != 0 || len(proto.FreeNames) != 0 {
		t.Errorf("CellNames = %v, FreeNames = %v, want both empty", proto.CellNames, proto.FreeNames)
	}
	if len(proto.VarNames) != 2 {
		t.Errorf("VarNames = %v, want 2 entries", proto.VarNames)
	}
}

func TestConcurrentCompilation(t *testing.T) {
	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := fml.Compile([]byte("local a = 0\nfor i = 0, 10 do a = a + i end\nreturn a"), "c.lua")
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
}
