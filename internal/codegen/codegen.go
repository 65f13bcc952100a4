// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

// Package codegen lowers a scope-resolved [ast.File] into a
// [*code.Object] tree: one Object per Lua function (the chunk itself
// compiles to a parameterless, vararg top-level function), built by
// walking the syntax tree and emitting into an [asm.Assembler].
//
// A "value" always occupies exactly one stack slot. A Call or an
// Ellipsis can produce several Lua values at once; those are carried
// as a single stack slot holding a tuple, built and torn down with
// BUILD_TUPLE/BUILD_TUPLE_UNPACK/UNPACK_EX. exprScalar always leaves
// one Lua value; exprMulti always leaves one tuple value, used
// wherever a trailing expression in a list can spread (call arguments,
// return values, combined assignment right-hand sides).
//
// Arithmetic, comparison, and table-construction semantics that the
// target instruction set has no dedicated opcode for are lowered into
// calls to hidden global builtin functions the embedded runtime
// installs (see internal/builtins), resolved once during scope
// resolution onto the operator node itself (BinOp.OpSymbol,
// UnaryOp.OpSymbol, For.TestSymbol) rather than during code
// generation: every captured-variable slot in the whole chunk must
// already be known before any function's Finalize runs, so codegen
// cannot introduce a symbol the name pools haven't accounted for.
package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fml-lang/fml/internal/asm"
	"github.com/fml-lang/fml/internal/ast"
	"github.com/fml-lang/fml/internal/code"
	"github.com/fml-lang/fml/internal/symbol"
	"github.com/fml-lang/fml/internal/xslices"
)

func comparatorCode(op string) int {
	switch op {
	case "<":
		return code.CmpLess
	case "<=":
		return code.CmpLessEqual
	case ">":
		return code.CmpGreater
	case ">=":
		return code.CmpGreaterEqual
	case "==":
		return code.CmpEqual
	case "~=":
		return code.CmpNotEqual
	default:
		panic("codegen: comparatorCode: not a comparison operator: " + op)
	}
}

// Generate compiles a scope-resolved chunk into its top-level code
// object. Resolve must already have been run on file.
func Generate(filename string, file *ast.File) (*code.Object, error) {
	g := &generator{filename: filename}
	return g.functionBody("main chunk", file.Line, file.Table, file.Body, true)
}

type generator struct {
	filename string
}

// funcgen holds the state for compiling one function body.
type funcgen struct {
	g  *generator
	asm *asm.Assembler
	ft *symbol.FuncTable

	// breakTargets is a stack of labels a `break` should jump to, one
	// per loop currently being compiled.
	breakTargets []*code.Label
	// labels lazily maps a source Label to the asm label it compiles
	// to, created by whichever of the Label or a forward Goto
	// referencing it is compiled first.
	labels map[*ast.Label]*code.Label
}

func (g *generator) function(name string, firstLine int, ft *symbol.FuncTable, body []ast.Statement) (*code.Object, error) {
	return g.functionBody(name, firstLine, ft, body, false)
}

func (g *generator) functionBody(name string, firstLine int, ft *symbol.FuncTable, body []ast.Statement, mainChunk bool) (*code.Object, error) {
	// Every symbol this function's body or any nested closure could
	// mark as captured was already discovered by the (already
	// complete) scope-resolution pass, so slots can be finalized
	// before emitting a single instruction: no forward-patching needed.
	pools := ft.Finalize()

	a := asm.New(g.filename, name, firstLine, ft.ParamCount, ft.Varargs != nil)
	fg := &funcgen{g: g, asm: a, ft: ft}
	for _, stmt := range body {
		if err := fg.stmt(stmt); err != nil {
			return nil, err
		}
	}
	// Fall-through return: a function implicitly returns no values if
	// control reaches the end of its body; the main chunk returns a
	// single true so a host can tell a completed chunk from one that
	// returned nothing explicitly.
	if mainChunk {
		a.EmitConst(code.OpLoadConst, code.BoolValue(true))
		a.Emit(code.OpBuildTuple, 1)
	} else {
		fg.loadNilTuple()
	}
	a.Emit(code.OpReturnValue, 0)
	return a.Build(pools)
}

func (fg *funcgen) setLine(n ast.Node) { fg.asm.SetLine(n.Pos().Line) }

func (fg *funcgen) labelFor(n *ast.Label) *code.Label {
	if fg.labels == nil {
		fg.labels = make(map[*ast.Label]*code.Label)
	}
	if l, ok := fg.labels[n]; ok {
		return l
	}
	l := fg.asm.NewLabel()
	fg.labels[n] = l
	return l
}

func (fg *funcgen) stmt(s ast.Statement) error {
	fg.setLine(s)
	switch n := s.(type) {
	case *ast.AssignLocal:
		return fg.assignLocal(n)
	case *ast.Assign:
		return fg.assign(n)
	case *ast.CallStatement:
		if err := fg.exprMulti(n.Body); err != nil {
			return err
		}
		fg.asm.Emit(code.OpPopTop, 0)
		return nil
	case *ast.Block:
		return fg.stmts(n.Body)
	case *ast.If:
		return fg.ifStmt(n)
	case *ast.While:
		return fg.whileStmt(n)
	case *ast.Repeat:
		return fg.repeatStmt(n)
	case *ast.For:
		return fg.forStmt(n)
	case *ast.ForEach:
		return fg.forEachStmt(n)
	case *ast.Function:
		return fg.functionDecl(n)
	case *ast.FunctionLocal:
		return fg.functionLocalDecl(n)
	case *ast.Return:
		return fg.returnStmt(n)
	case *ast.Break:
		if len(fg.breakTargets) == 0 {
			return fmt.Errorf("%d: break outside a loop", s.Pos().Line)
		}
		fg.asm.EmitJump(code.OpJumpAbsolute, xslices.Last(fg.breakTargets))
		return nil
	case *ast.Label:
		l := fg.labelFor(n)
		fg.asm.PlaceLabel(l)
		n.Place = l
		return nil
	case *ast.Goto:
		if n.ResolvedLabel == nil {
			return fmt.Errorf("%d: goto '%s': no matching label", s.Pos().Line, n.Target)
		}
		fg.asm.EmitJump(code.OpJumpAbsolute, fg.labelFor(n.ResolvedLabel))
		return nil
	default:
		return fmt.Errorf("%d: codegen: unhandled statement %T", s.Pos().Line, s)
	}
}

func (fg *funcgen) stmts(body []ast.Statement) error {
	for _, s := range body {
		if err := fg.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

// loadSymbol emits the load instruction for a resolved binding.
func (fg *funcgen) loadSymbol(s symbol.Symbol) error {
	switch sym := s.(type) {
	case *symbol.Local:
		if sym.IsReferenced {
			fg.asm.Emit(code.OpLoadDeref, sym.Slot)
		} else {
			fg.asm.Emit(code.OpLoadFast, sym.Slot)
		}
		return nil
	case *symbol.Free:
		fg.asm.Emit(code.OpLoadDeref, sym.Slot)
		return nil
	case *symbol.Global:
		fg.asm.Emit(code.OpLoadGlobal, sym.Slot)
		return nil
	default:
		return fmt.Errorf("codegen: loadSymbol: unexpected symbol %T", s)
	}
}

// storeSymbol emits the store instruction for a resolved binding,
// consuming the one value on top of the stack.
func (fg *funcgen) storeSymbol(s symbol.Symbol) error {
	switch sym := s.(type) {
	case *symbol.Local:
		if sym.IsReferenced {
			fg.asm.Emit(code.OpStoreDeref, sym.Slot)
		} else {
			fg.asm.Emit(code.OpStoreFast, sym.Slot)
		}
		return nil
	case *symbol.Free:
		fg.asm.Emit(code.OpStoreDeref, sym.Slot)
		return nil
	case *symbol.Global:
		fg.asm.Emit(code.OpStoreGlobal, sym.Slot)
		return nil
	default:
		return fmt.Errorf("codegen: storeSymbol: unexpected symbol %T", s)
	}
}

// firstFromTuple pops a tuple value and pushes only its first
// element (nil if the tuple is empty), for truncating a Call or
// Ellipsis result down to one value.
func (fg *funcgen) firstFromTuple() error {
	fg.asm.Emit(code.OpUnpackEx, 0)
	fg.asm.Emit(code.OpRotTwo, 0)
	fg.asm.Emit(code.OpPopTop, 0)
	return nil
}

// destructureTuple pops a combined tuple value and stores its leading
// elements into symbols in order, discarding the (possibly empty)
// remainder.
func (fg *funcgen) destructureTuple(symbols []symbol.Symbol) error {
	for _, s := range symbols {
		fg.asm.Emit(code.OpUnpackEx, 0)
		if err := fg.storeSymbol(s); err != nil {
			return err
		}
	}
	fg.asm.Emit(code.OpPopTop, 0)
	return nil
}

// buildValueTuple builds one combined tuple value from exprs: every
// expression but the last contributes exactly one value; the last
// contributes every value it can produce (a Call or Ellipsis; any
// other expression, including a parenthesized one, still contributes
// exactly one).
func (fg *funcgen) buildValueTuple(exprs []ast.Expression) error {
	if len(exprs) == 0 {
		fg.asm.Emit(code.OpBuildTuple, 0)
		return nil
	}
	for _, e := range exprs[:len(exprs)-1] {
		if err := fg.exprScalar(e); err != nil {
			return err
		}
		fg.asm.Emit(code.OpBuildTuple, 1)
	}
	if err := fg.exprMulti(exprs[len(exprs)-1]); err != nil {
		return err
	}
	fg.asm.Emit(code.OpBuildTupleUnpack, len(exprs))
	return nil
}

func (fg *funcgen) loadNilTuple() { fg.asm.Emit(code.OpBuildTuple, 0) }

func (fg *funcgen) loadVarargsTuple() error {
	if fg.ft.Varargs == nil {
		return fmt.Errorf("codegen: '...' used outside a vararg function")
	}
	return fg.loadSymbol(fg.ft.Varargs)
}

// exprScalar emits e, leaving exactly one Lua value on the stack.
func (fg *funcgen) exprScalar(e ast.Expression) error {
	switch x := e.(type) {
	case *ast.Nil:
		fg.asm.EmitConst(code.OpLoadConst, code.NilValue)
		return nil
	case *ast.True:
		fg.asm.EmitConst(code.OpLoadConst, code.BoolValue(true))
		return nil
	case *ast.False:
		fg.asm.EmitConst(code.OpLoadConst, code.BoolValue(false))
		return nil
	case *ast.Number:
		v, err := decodeNumber(x.Literal)
		if err != nil {
			return fmt.Errorf("%d: %w", x.Line, err)
		}
		fg.asm.EmitConst(code.OpLoadConst, v)
		return nil
	case *ast.String:
		fg.asm.EmitConst(code.OpLoadConst, code.StringValue(x.Value))
		return nil
	case *ast.Name:
		return fg.loadSymbol(x.Symbol)
	case *ast.Subscript:
		if err := fg.exprScalar(x.Value); err != nil {
			return err
		}
		if err := fg.exprScalar(x.Index); err != nil {
			return err
		}
		fg.asm.Emit(code.OpBinarySubscr, 0)
		return nil
	case *ast.Attribute:
		if err := fg.exprScalar(x.Value); err != nil {
			return err
		}
		fg.asm.EmitConst(code.OpLoadConst, code.StringValue(x.Attr.ID))
		fg.asm.Emit(code.OpBinarySubscr, 0)
		return nil
	case *ast.Table:
		return fg.tableCtor(x)
	case *ast.FunctionExpr:
		return fg.closure(x.SymTable, "<anonymous>", x.Line, x.Body)
	case *ast.BinOp:
		return fg.binOp(x)
	case *ast.UnaryOp:
		return fg.unaryOp(x)
	case *ast.Call:
		if err := fg.callExpr(x); err != nil {
			return err
		}
		return fg.firstFromTuple()
	case *ast.Ellipsis:
		if err := fg.loadVarargsTuple(); err != nil {
			return err
		}
		return fg.firstFromTuple()
	case interface{ Inner() ast.Expression }:
		return fg.exprScalar(x.Inner())
	default:
		return fmt.Errorf("%d: codegen: unhandled expression %T", e.Pos().Line, e)
	}
}

// exprMulti emits e, leaving exactly one tuple value on the stack: a
// Call's or Ellipsis's full result, or a singleton tuple wrapping any
// other expression's one value. A parenthesized expression is always
// truncated to a singleton, even if it wraps a Call or Ellipsis.
func (fg *funcgen) exprMulti(e ast.Expression) error {
	switch x := e.(type) {
	case *ast.Call:
		return fg.callExpr(x)
	case *ast.Ellipsis:
		return fg.loadVarargsTuple()
	case interface{ Inner() ast.Expression }:
		if err := fg.exprScalar(x.Inner()); err != nil {
			return err
		}
		fg.asm.Emit(code.OpBuildTuple, 1)
		return nil
	default:
		if err := fg.exprScalar(e); err != nil {
			return err
		}
		fg.asm.Emit(code.OpBuildTuple, 1)
		return nil
	}
}

// callExpr compiles a call to a single result tuple on the stack,
// left for the caller to either truncate (exprScalar) or use directly
// (exprMulti, a CallStatement).
func (fg *funcgen) callExpr(c *ast.Call) error {
	if m, ok := c.Func.(*ast.Method); ok {
		if err := fg.exprScalar(m.Value); err != nil {
			return err
		}
		// Look the method up without re-evaluating the receiver: dup
		// it, index it, then rotate the receiver back under the
		// looked-up function so it can be wrapped as the implicit
		// first argument.
		fg.asm.Emit(code.OpDupTop, 0)
		fg.asm.EmitConst(code.OpLoadConst, code.StringValue(m.Method.ID))
		fg.asm.Emit(code.OpBinarySubscr, 0)
		fg.asm.Emit(code.OpRotTwo, 0)
		fg.asm.Emit(code.OpBuildTuple, 1)
		if err := fg.buildValueTuple(c.Args); err != nil {
			return err
		}
		fg.asm.Emit(code.OpBuildTupleUnpack, 2)
		fg.asm.Emit(code.OpCallFunctionEx, 0)
		return nil
	}
	if err := fg.exprScalar(c.Func); err != nil {
		return err
	}
	if err := fg.buildValueTuple(c.Args); err != nil {
		return err
	}
	fg.asm.Emit(code.OpCallFunctionEx, 0)
	return nil
}

// callGlobal calls the hidden builtin g with args, a fixed list of
// already-bound symbols, leaving one scalar result.
func (fg *funcgen) callGlobal(g *symbol.Global, args ...symbol.Symbol) error {
	if err := fg.loadSymbol(g); err != nil {
		return err
	}
	if err := fg.loadSymbol(args[0]); err != nil {
		return err
	}
	fg.asm.Emit(code.OpBuildTuple, 1)
	for _, a := range args[1:] {
		if err := fg.loadSymbol(a); err != nil {
			return err
		}
		fg.asm.Emit(code.OpBuildTuple, 1)
		fg.asm.Emit(code.OpBuildTupleUnpack, 2)
	}
	fg.asm.Emit(code.OpCallFunctionEx, 0)
	return fg.firstFromTuple()
}

func (fg *funcgen) binOp(x *ast.BinOp) error {
	switch x.Op {
	case "and":
		return fg.andOp(x)
	case "or":
		return fg.orOp(x)
	case "+":
		if err := fg.exprScalar(x.Left); err != nil {
			return err
		}
		if err := fg.exprScalar(x.Right); err != nil {
			return err
		}
		fg.asm.Emit(code.OpBinaryAdd, 0)
		return nil
	case "*":
		if err := fg.exprScalar(x.Left); err != nil {
			return err
		}
		if err := fg.exprScalar(x.Right); err != nil {
			return err
		}
		fg.asm.Emit(code.OpBinaryMultiply, 0)
		return nil
	case "<", "<=", ">", ">=", "==", "~=":
		if err := fg.exprScalar(x.Left); err != nil {
			return err
		}
		if err := fg.exprScalar(x.Right); err != nil {
			return err
		}
		fg.asm.Emit(code.OpCompareOp, comparatorCode(x.Op))
		return nil
	default:
		// Every other binary operator lowers to a call to the hidden
		// builtin the scope resolver bound onto x.OpSymbol.
		if x.OpSymbol == nil {
			return fmt.Errorf("%d: codegen: binary operator %q has no builtin bound", x.Line, x.Op)
		}
		if err := fg.exprScalar(x.Left); err != nil {
			return err
		}
		return fg.binOpBuiltinCall(x)
	}
}

// binOpBuiltinCall emits the call for an operator already routed
// through a hidden builtin, with its left operand already evaluated
// and sitting on the stack.
func (fg *funcgen) binOpBuiltinCall(x *ast.BinOp) error {
	// Stack currently holds [left]. Build the call as
	// builtin(left, right) without re-deriving left from a symbol: the
	// already-evaluated value is rotated under the loaded builtin.
	if err := fg.loadSymbol(x.OpSymbol); err != nil {
		return err
	}
	fg.asm.Emit(code.OpRotTwo, 0)
	fg.asm.Emit(code.OpBuildTuple, 1)
	if err := fg.exprScalar(x.Right); err != nil {
		return err
	}
	fg.asm.Emit(code.OpBuildTuple, 1)
	fg.asm.Emit(code.OpBuildTupleUnpack, 2)
	fg.asm.Emit(code.OpCallFunctionEx, 0)
	return fg.firstFromTuple()
}

func (fg *funcgen) andOp(x *ast.BinOp) error {
	if err := fg.exprScalar(x.Left); err != nil {
		return err
	}
	fg.asm.Emit(code.OpDupTop, 0)
	end := fg.asm.NewLabel()
	fg.asm.EmitJump(code.OpPopJumpIfFalse, end)
	fg.asm.Emit(code.OpPopTop, 0)
	if err := fg.exprScalar(x.Right); err != nil {
		return err
	}
	fg.asm.PlaceLabel(end)
	return nil
}

func (fg *funcgen) orOp(x *ast.BinOp) error {
	if err := fg.exprScalar(x.Left); err != nil {
		return err
	}
	end := fg.asm.NewLabel()
	fg.asm.EmitJump(code.OpJumpIfTrueOrPop, end)
	// OpJumpIfTrueOrPop already popped the falsy left value.
	if err := fg.exprScalar(x.Right); err != nil {
		return err
	}
	fg.asm.PlaceLabel(end)
	return nil
}

func (fg *funcgen) unaryOp(x *ast.UnaryOp) error {
	if x.OpSymbol == nil {
		return fmt.Errorf("%d: codegen: unary operator %q has no builtin bound", x.Line, x.Op)
	}
	if err := fg.loadSymbol(x.OpSymbol); err != nil {
		return err
	}
	if err := fg.exprScalar(x.Operand); err != nil {
		return err
	}
	fg.asm.Emit(code.OpBuildTuple, 1)
	fg.asm.Emit(code.OpCallFunctionEx, 0)
	return fg.firstFromTuple()
}

func (fg *funcgen) tableCtor(t *ast.Table) error {
	fields := t.Fields
	var spread *ast.Field
	if t.AppendSymbol != nil {
		spread = fields[len(fields)-1]
		fields = fields[:len(fields)-1]
	}

	fg.asm.Emit(code.OpBuildMap, 0)
	arrayIndex := int64(1)
	for _, f := range fields {
		fg.asm.Emit(code.OpDupTop, 0)
		if f.Key != nil {
			if err := fg.exprScalar(f.Key); err != nil {
				return err
			}
		} else {
			fg.asm.EmitConst(code.OpLoadConst, code.IntValue(arrayIndex))
			arrayIndex++
		}
		if err := fg.exprScalar(f.Value); err != nil {
			return err
		}
		fg.asm.Emit(code.OpMapAdd, 0)
	}

	if spread == nil {
		return nil
	}
	// A trailing call or '...' spreads its whole result into successive
	// integer keys: .tappend(t, firstIndex, results...) returns t.
	if err := fg.loadSymbol(t.AppendSymbol); err != nil {
		return err
	}
	fg.asm.Emit(code.OpRotTwo, 0)
	fg.asm.Emit(code.OpBuildTuple, 1)
	fg.asm.EmitConst(code.OpLoadConst, code.IntValue(arrayIndex))
	fg.asm.Emit(code.OpBuildTuple, 1)
	fg.asm.Emit(code.OpBuildTupleUnpack, 2)
	if err := fg.exprMulti(spread.Value); err != nil {
		return err
	}
	fg.asm.Emit(code.OpBuildTupleUnpack, 2)
	fg.asm.Emit(code.OpCallFunctionEx, 0)
	return fg.firstFromTuple()
}

// closure compiles ft/body as a nested function and leaves the
// resulting closure value on the stack.
func (fg *funcgen) closure(ft *symbol.FuncTable, qualname string, firstLine int, body []ast.Statement) error {
	obj, err := fg.g.function(qualname, firstLine, ft, body)
	if err != nil {
		return err
	}
	freeSlots := ft.FreeParentSlots()
	flags := 0
	if len(freeSlots) > 0 {
		for _, slot := range freeSlots {
			fg.asm.Emit(code.OpLoadClosure, slot)
		}
		fg.asm.Emit(code.OpBuildTuple, len(freeSlots))
		flags |= 0x8
	}
	fg.asm.EmitConst(code.OpLoadConst, code.CodeValue(obj))
	fg.asm.EmitConst(code.OpLoadConst, code.StringValue(qualname))
	fg.asm.Emit(code.OpMakeFunction, flags)
	return nil
}

func (fg *funcgen) assignLocal(n *ast.AssignLocal) error {
	if err := fg.buildValueTuple(n.Values); err != nil {
		return err
	}
	symbols := make([]symbol.Symbol, len(n.Targets))
	for i, t := range n.Targets {
		symbols[i] = t.Symbol
	}
	return fg.destructureTuple(symbols)
}

func (fg *funcgen) assign(n *ast.Assign) error {
	allNames := true
	for _, t := range n.Targets {
		if _, ok := t.(*ast.Name); !ok {
			allNames = false
			break
		}
	}
	if allNames {
		if err := fg.buildValueTuple(n.Values); err != nil {
			return err
		}
		symbols := make([]symbol.Symbol, len(n.Targets))
		for i, t := range n.Targets {
			symbols[i] = t.(*ast.Name).Symbol
		}
		return fg.destructureTuple(symbols)
	}
	// A mix of Subscript/Attribute targets falls back to simple
	// pairwise scalar assignment instead of full tuple spreading: see
	// DESIGN.md.
	if len(n.Targets) != len(n.Values) {
		return fmt.Errorf("%d: codegen: assignment to a subscript or attribute alongside a value-count mismatch is unsupported", n.Line)
	}
	for i, t := range n.Targets {
		if err := fg.assignOne(t, n.Values[i]); err != nil {
			return err
		}
	}
	return nil
}

// assignOne stores the single value v into target, using a fixed
// (obj, key, value) stack order for STORE_SUBSCR, the same
// convention BINARY_SUBSCR's (obj, key) read order extends to writes.
func (fg *funcgen) assignOne(t ast.Var, v ast.Expression) error {
	switch target := t.(type) {
	case *ast.Name:
		if err := fg.exprScalar(v); err != nil {
			return err
		}
		return fg.storeSymbol(target.Symbol)
	case *ast.Subscript:
		if err := fg.exprScalar(target.Value); err != nil {
			return err
		}
		if err := fg.exprScalar(target.Index); err != nil {
			return err
		}
		if err := fg.exprScalar(v); err != nil {
			return err
		}
		fg.asm.Emit(code.OpStoreSubscr, 0)
		return nil
	case *ast.Attribute:
		if err := fg.exprScalar(target.Value); err != nil {
			return err
		}
		fg.asm.EmitConst(code.OpLoadConst, code.StringValue(target.Attr.ID))
		if err := fg.exprScalar(v); err != nil {
			return err
		}
		fg.asm.Emit(code.OpStoreSubscr, 0)
		return nil
	default:
		return fmt.Errorf("%d: codegen: invalid assignment target %T", t.Pos().Line, t)
	}
}

func (fg *funcgen) ifStmt(n *ast.If) error {
	if err := fg.exprScalar(n.Test); err != nil {
		return err
	}
	elseLabel := fg.asm.NewLabel()
	fg.asm.EmitJump(code.OpPopJumpIfFalse, elseLabel)
	if err := fg.stmts(n.Body); err != nil {
		return err
	}
	if len(n.Else) > 0 {
		end := fg.asm.NewLabel()
		fg.asm.EmitJump(code.OpJumpAbsolute, end)
		fg.asm.PlaceLabel(elseLabel)
		if err := fg.stmts(n.Else); err != nil {
			return err
		}
		fg.asm.PlaceLabel(end)
		return nil
	}
	fg.asm.PlaceLabel(elseLabel)
	return nil
}

func (fg *funcgen) whileStmt(n *ast.While) error {
	top := fg.asm.NewLabel()
	end := fg.asm.NewLabel()
	fg.asm.PlaceLabel(top)
	if err := fg.exprScalar(n.Test); err != nil {
		return err
	}
	fg.asm.EmitJump(code.OpPopJumpIfFalse, end)

	fg.breakTargets = append(fg.breakTargets, end)
	err := fg.stmts(n.Body)
	fg.breakTargets = xslices.Pop(fg.breakTargets, 1)
	if err != nil {
		return err
	}

	fg.asm.EmitJump(code.OpJumpAbsolute, top)
	fg.asm.PlaceLabel(end)
	return nil
}

func (fg *funcgen) repeatStmt(n *ast.Repeat) error {
	top := fg.asm.NewLabel()
	end := fg.asm.NewLabel()
	fg.asm.PlaceLabel(top)

	fg.breakTargets = append(fg.breakTargets, end)
	err := fg.stmts(n.Body)
	fg.breakTargets = xslices.Pop(fg.breakTargets, 1)
	if err != nil {
		return err
	}

	if err := fg.exprScalar(n.Test); err != nil {
		return err
	}
	fg.asm.EmitJump(code.OpPopJumpIfFalse, top)
	fg.asm.PlaceLabel(end)
	return nil
}

// forStmt compiles a numeric for loop. Its hidden control triple
// holds the running counter, the limit, and the step; continuation is
// tested each iteration through the .fortest builtin, since no
// opcode encodes a step-direction-aware bounds check, and the counter
// advances with the ordinary BINARY_ADD opcode.
func (fg *funcgen) forStmt(n *ast.For) error {
	lv := n.LoopTable.LoopVar
	if err := fg.exprScalar(n.Start); err != nil {
		return err
	}
	if err := fg.storeSymbol(lv[0]); err != nil {
		return err
	}
	if err := fg.exprScalar(n.Stop); err != nil {
		return err
	}
	if err := fg.storeSymbol(lv[1]); err != nil {
		return err
	}
	if err := fg.exprScalar(n.Step); err != nil {
		return err
	}
	if err := fg.storeSymbol(lv[2]); err != nil {
		return err
	}

	top := fg.asm.NewLabel()
	end := fg.asm.NewLabel()
	fg.asm.PlaceLabel(top)

	if err := fg.callGlobal(n.TestSymbol, lv[0], lv[1], lv[2]); err != nil {
		return err
	}
	fg.asm.EmitJump(code.OpPopJumpIfFalse, end)

	if err := fg.loadSymbol(lv[0]); err != nil {
		return err
	}
	if err := fg.storeSymbol(n.Target.Symbol); err != nil {
		return err
	}

	fg.breakTargets = append(fg.breakTargets, end)
	err := fg.stmts(n.Body)
	fg.breakTargets = xslices.Pop(fg.breakTargets, 1)
	if err != nil {
		return err
	}

	if err := fg.loadSymbol(lv[0]); err != nil {
		return err
	}
	if err := fg.loadSymbol(lv[2]); err != nil {
		return err
	}
	fg.asm.Emit(code.OpBinaryAdd, 0)
	if err := fg.storeSymbol(lv[0]); err != nil {
		return err
	}

	fg.asm.EmitJump(code.OpJumpAbsolute, top)
	fg.asm.PlaceLabel(end)
	return nil
}

// forEachStmt compiles a generic for loop: Iter evaluates once to an
// (iterator function, state, initial control value) triple, which the
// loop calls as f(s, control) each iteration, stopping when the first
// result is nil.
func (fg *funcgen) forEachStmt(n *ast.ForEach) error {
	lv := n.LoopTable.LoopVar
	if err := fg.buildValueTuple(n.Iter); err != nil {
		return err
	}
	if err := fg.destructureTuple([]symbol.Symbol{lv[0], lv[1], lv[2]}); err != nil {
		return err
	}

	top := fg.asm.NewLabel()
	end := fg.asm.NewLabel()
	fg.asm.PlaceLabel(top)

	if err := fg.loadSymbol(lv[0]); err != nil {
		return err
	}
	if err := fg.loadSymbol(lv[1]); err != nil {
		return err
	}
	fg.asm.Emit(code.OpBuildTuple, 1)
	if err := fg.loadSymbol(lv[2]); err != nil {
		return err
	}
	fg.asm.Emit(code.OpBuildTuple, 1)
	fg.asm.Emit(code.OpBuildTupleUnpack, 2)
	fg.asm.Emit(code.OpCallFunctionEx, 0)

	targetSymbols := make([]symbol.Symbol, len(n.Targets))
	for i, t := range n.Targets {
		targetSymbols[i] = t.Symbol
	}
	if err := fg.destructureTuple(targetSymbols); err != nil {
		return err
	}

	if err := fg.loadSymbol(n.Targets[0].Symbol); err != nil {
		return err
	}
	fg.asm.EmitConst(code.OpLoadConst, code.NilValue)
	fg.asm.Emit(code.OpCompareOp, code.CmpEqual)
	fg.asm.EmitJump(code.OpPopJumpIfTrue, end)

	if err := fg.loadSymbol(n.Targets[0].Symbol); err != nil {
		return err
	}
	if err := fg.storeSymbol(lv[2]); err != nil {
		return err
	}

	fg.breakTargets = append(fg.breakTargets, end)
	err := fg.stmts(n.Body)
	fg.breakTargets = xslices.Pop(fg.breakTargets, 1)
	if err != nil {
		return err
	}

	fg.asm.EmitJump(code.OpJumpAbsolute, top)
	fg.asm.PlaceLabel(end)
	return nil
}

func (fg *funcgen) functionDecl(n *ast.Function) error {
	qualname := funcNameString(n.Name)
	if err := fg.closure(n.SymTable, qualname, n.Line, n.Body); err != nil {
		return err
	}
	return fg.storeFuncName(n.Name)
}

func (fg *funcgen) functionLocalDecl(n *ast.FunctionLocal) error {
	if err := fg.closure(n.SymTable, n.Name.ID, n.Line, n.Body); err != nil {
		return err
	}
	return fg.storeSymbol(n.Name.Symbol)
}

// storeFuncName stores the closure value already on top of the stack
// into the (possibly dotted) left-hand side of a `function ...`
// declaration.
func (fg *funcgen) storeFuncName(name ast.FuncName) error {
	switch nm := name.(type) {
	case *ast.Name:
		return fg.storeSymbol(nm.Symbol)
	case *ast.Attribute:
		if err := fg.exprScalar(nm.Value); err != nil {
			return err
		}
		fg.asm.Emit(code.OpRotTwo, 0)
		fg.asm.EmitConst(code.OpLoadConst, code.StringValue(nm.Attr.ID))
		fg.asm.Emit(code.OpRotTwo, 0)
		fg.asm.Emit(code.OpStoreSubscr, 0)
		return nil
	case *ast.Method:
		if err := fg.exprScalar(nm.Value); err != nil {
			return err
		}
		fg.asm.Emit(code.OpRotTwo, 0)
		fg.asm.EmitConst(code.OpLoadConst, code.StringValue(nm.Method.ID))
		fg.asm.Emit(code.OpRotTwo, 0)
		fg.asm.Emit(code.OpStoreSubscr, 0)
		return nil
	default:
		return fmt.Errorf("%d: codegen: invalid function name target %T", name.Pos().Line, name)
	}
}

func funcNameString(name ast.FuncName) string {
	switch n := name.(type) {
	case *ast.Name:
		return n.ID
	case *ast.Attribute:
		return funcNameString(n.Value.(ast.FuncName)) + "." + n.Attr.ID
	case *ast.Method:
		return funcNameString(n.Value.(ast.FuncName)) + ":" + n.Method.ID
	default:
		return "?"
	}
}

func (fg *funcgen) returnStmt(n *ast.Return) error {
	if err := fg.buildValueTuple(n.Values); err != nil {
		return err
	}
	fg.asm.Emit(code.OpReturnValue, 0)
	return nil
}

// decodeNumber decodes a numeral literal's raw source lexeme into a
// constant-pool value: a decimal or hexadecimal integer when it has
// no fractional or exponent part and fits in 64 bits, a float
// otherwise. A decimal integer literal too large for 64 bits becomes a
// float; a hexadecimal one is rejected with an error.
func decodeNumber(lit string) (code.Value, error) {
	if strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X") {
		if !strings.ContainsAny(lit, ".pP") {
			u, err := strconv.ParseUint(lit[2:], 16, 64)
			if err != nil {
				return code.Value{}, fmt.Errorf("malformed hex integer %q: %w", lit, err)
			}
			return code.IntValue(int64(u)), nil
		}
		hex := lit
		if !strings.ContainsAny(hex, "pP") {
			// strconv.ParseFloat requires a binary exponent on hex floats.
			hex += "p0"
		}
		f, err := strconv.ParseFloat(hex, 64)
		if err != nil {
			return code.Value{}, fmt.Errorf("malformed hex float %q: %w", lit, err)
		}
		return code.FloatValue(f), nil
	}
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return code.IntValue(i), nil
		}
		// Falls through to float on overflow, matching the reference
		// manual's integer-literal-overflow rule.
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return code.Value{}, fmt.Errorf("malformed number %q: %w", lit, err)
	}
	return code.FloatValue(f), nil
}
