// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

// Package scope resolves every name in a parsed chunk to a
// [symbol.Symbol] and builds the [symbol.Table] chain the code
// generator walks. Resolution runs in two passes, both driven by
// Resolve: the first assigns every Name, Attribute, and Method its
// symbol and builds each function's and block's Table; the second
// (resolveGotos) then validates every `goto` against the labels
// visible to it.
package scope

import (
	"fmt"

	"github.com/fml-lang/fml/internal/ast"
	"github.com/fml-lang/fml/internal/symbol"
)

// Resolve walks file, assigning every name a symbol and building the
// Table chain used by code generation. It also validates every
// `goto` against the labels visible to it once the whole tree (and
// so every label) has been seen.
func Resolve(file *ast.File) error {
	v := &visitor{labels: make(map[labelKey]*ast.Label)}
	ft := symbol.NewFunctionTable(nil)
	ft.DeclareVarargs()
	file.Table = ft
	if err := v.block(file.Body, ft); err != nil {
		return err
	}
	return v.resolveGotos()
}

type labelKey struct {
	table symbol.Table
	name  string
}

type visitor struct {
	loopDepth int
	labels    map[labelKey]*ast.Label
	gotos     []*ast.Goto
}

// resolveGotos matches every goto collected during the main walk
// against the label it names, searching the goto's own block and then
// every enclosing block of the same function. It runs only after the
// whole tree has been visited, so backward and forward gotos resolve
// alike. A label declared after more locals than were live at the
// goto would jump into those locals' scope and is rejected.
func (v *visitor) resolveGotos() error {
	for _, g := range v.gotos {
		label, info := v.findLabel(g.Table, g.Target)
		if label == nil {
			return fmt.Errorf("%d: no visible label '%s'", g.Line, g.Target)
		}
		if info.NLocals > g.NLocals {
			local := g.Table.OwnerFunc().LocalNameAt(g.NLocals)
			return fmt.Errorf("%d: goto '%s' jumps into the scope of local '%s'", g.Line, g.Target, local)
		}
		g.ResolvedLabel = label
	}
	return nil
}

// findLabel walks from table outward through its enclosing blocks
// (stopping at the function boundary) for a label named name.
func (v *visitor) findLabel(table symbol.Table, name string) (*ast.Label, *symbol.LabelInfo) {
	for t := table; t != nil; t = t.Parent() {
		if info, ok := t.FindLabel(name); ok {
			return v.labels[labelKey{t, name}], info
		}
	}
	return nil, nil
}

func (v *visitor) block(body []ast.Statement, table symbol.Table) error {
	for _, stmt := range body {
		if err := v.stmt(stmt, table); err != nil {
			return err
		}
	}
	return nil
}

func (v *visitor) stmt(stmt ast.Statement, table symbol.Table) error {
	switch s := stmt.(type) {
	case *ast.Assign:
		for _, val := range s.Values {
			if err := v.expr(val, table); err != nil {
				return err
			}
		}
		for _, tgt := range s.Targets {
			if err := v.assignTarget(tgt, table); err != nil {
				return err
			}
		}
		return nil

	case *ast.AssignLocal:
		for _, val := range s.Values {
			if err := v.expr(val, table); err != nil {
				return err
			}
		}
		for _, name := range s.Targets {
			name.Symbol = declare(table, name.ID)
		}
		return nil

	case *ast.CallStatement:
		return v.expr(s.Body, table)

	case *ast.Label:
		if prev, ok := table.FindLabel(s.Name); ok {
			return fmt.Errorf("%d: label '%s' already defined on line %d", s.Line, s.Name, prev.Line)
		}
		table.AddLabel(s.Name, currentNLocals(table), s.Line)
		info, _ := table.FindLabel(s.Name)
		s.Info = info
		v.labels[labelKey{table, s.Name}] = s
		return nil

	case *ast.Goto:
		s.Table = table
		s.NLocals = currentNLocals(table)
		v.gotos = append(v.gotos, s)
		return nil // validated by resolveGotos once every label exists

	case *ast.Block:
		s.Table = symbol.NewBlockTable(table)
		return v.block(s.Body, s.Table)

	case *ast.While:
		if err := v.expr(s.Test, table); err != nil {
			return err
		}
		s.Table = symbol.NewBlockTable(table)
		v.loopDepth++
		defer func() { v.loopDepth-- }()
		return v.block(s.Body, s.Table)

	case *ast.Repeat:
		s.Table = symbol.NewBlockTable(table)
		v.loopDepth++
		if err := v.block(s.Body, s.Table); err != nil {
			v.loopDepth--
			return err
		}
		v.loopDepth--
		// The until-condition runs in the body's own scope: a local
		// declared in the body is visible to it.
		return v.expr(s.Test, s.Table)

	case *ast.If:
		if err := v.expr(s.Test, table); err != nil {
			return err
		}
		s.BodyTable = symbol.NewBlockTable(table)
		if err := v.block(s.Body, s.BodyTable); err != nil {
			return err
		}
		if len(s.Else) > 0 {
			s.ElseTable = symbol.NewBlockTable(table)
			if err := v.block(s.Else, s.ElseTable); err != nil {
				return err
			}
		}
		return nil

	case *ast.For:
		if err := v.expr(s.Start, table); err != nil {
			return err
		}
		if err := v.expr(s.Stop, table); err != nil {
			return err
		}
		if err := v.expr(s.Step, table); err != nil {
			return err
		}
		s.LoopTable = symbol.NewForLoopBlockTable(table, s.Target.ID)
		s.TestSymbol = globalFor(table, ".fortest")
		s.BodyTable = symbol.NewBlockTable(s.LoopTable)
		s.Target.Symbol = declare(s.BodyTable, s.Target.ID)
		v.loopDepth++
		defer func() { v.loopDepth-- }()
		return v.block(s.Body, s.BodyTable)

	case *ast.ForEach:
		for _, e := range s.Iter {
			if err := v.expr(e, table); err != nil {
				return err
			}
		}
		s.LoopTable = symbol.NewForLoopBlockTable(table, s.Targets[0].ID)
		s.BodyTable = symbol.NewBlockTable(s.LoopTable)
		for _, name := range s.Targets {
			name.Symbol = declare(s.BodyTable, name.ID)
		}
		v.loopDepth++
		defer func() { v.loopDepth-- }()
		return v.block(s.Body, s.BodyTable)

	case *ast.Function:
		if err := v.funcName(s.Name, table); err != nil {
			return err
		}
		// For a method declaration the parser already injected the
		// implicit self parameter into s.Pars.
		return v.funcBody(s.Pars, s.Body, &s.SymTable, table)

	case *ast.FunctionLocal:
		s.Name.Symbol = declare(table, s.Name.ID)
		return v.funcBody(s.Pars, s.Body, &s.SymTable, table)

	case *ast.Return:
		for _, e := range s.Values {
			if err := v.expr(e, table); err != nil {
				return err
			}
		}
		return nil

	case *ast.Break:
		if v.loopDepth == 0 {
			return fmt.Errorf("%d: break outside a loop", stmt.Pos().Line)
		}
		return nil

	default:
		return fmt.Errorf("%d: scope: unhandled statement %T", stmt.Pos().Line, stmt)
	}
}

func declare(table symbol.Table, name string) *symbol.Local {
	return table.Declare(name)
}

// currentNLocals is a coarse proxy for how many locals are in scope
// at a program point: the count of locals declared so far in the
// enclosing function. It is used only to flag a goto jumping into a
// local's scope; see resolveGotos.
func currentNLocals(table symbol.Table) int {
	return table.OwnerFunc().LocalCount()
}

// builtinNameForBinOp reports the hidden global builtin function a
// binary operator lowers to, for every operator without a dedicated
// opcode: + and * have OP_BINARY_ADD/OP_BINARY_MULTIPLY, the
// comparisons have OP_COMPARE_OP, and "and"/"or" short-circuit
// without ever calling anything. The names start with a dot, which
// the lexer can never produce as an identifier, so user code cannot
// shadow them with a local or parameter of the same spelling.
func builtinNameForBinOp(op string) (string, bool) {
	switch op {
	case "-", "/", "//", "%", "^", "..", "&", "|", "~", "<<", ">>":
		return ".b" + op, true
	default:
		return "", false
	}
}

// builtinNameForUnaryOp reports the hidden global builtin function a
// unary operator lowers to. Every unary operator calls one: none has
// a dedicated opcode.
func builtinNameForUnaryOp(op string) (string, bool) {
	switch op {
	case "-", "not", "#", "~":
		return ".u" + op, true
	default:
		return "", false
	}
}

// isMultiValue reports whether e can produce more than one value in a
// spreading position: a bare (unparenthesized) call or '...'.
func isMultiValue(e ast.Expression) bool {
	switch e.(type) {
	case *ast.Call, *ast.Ellipsis:
		return true
	default:
		return false
	}
}

// globalFor resolves name to a Global symbol in the function table
// owning table, registering it if this is the first reference. The
// hidden builtin names used here are not lexable as identifiers, so
// resolution can never find a user binding for them.
func globalFor(table symbol.Table, name string) *symbol.Global {
	sym := table.OwnerFunc().Resolve(name)
	g, ok := sym.(*symbol.Global)
	if !ok {
		panic("scope: builtin name resolved to non-global: " + name)
	}
	return g
}

func (v *visitor) assignTarget(target ast.Var, table symbol.Table) error {
	switch t := target.(type) {
	case *ast.Name:
		t.Symbol = table.Resolve(t.ID)
		return nil
	case *ast.Subscript:
		if err := v.expr(t.Value, table); err != nil {
			return err
		}
		return v.expr(t.Index, table)
	case *ast.Attribute:
		if err := v.expr(t.Value, table); err != nil {
			return err
		}
		t.AttrSymbol = table.OwnerFunc().Attribute(t.Attr.ID)
		return nil
	default:
		return fmt.Errorf("%d: scope: invalid assignment target %T", target.Pos().Line, target)
	}
}

// funcName resolves the (possibly dotted) left-hand side of a
// `function name(...) end` declaration, recording Attribute/Method
// symbols along the way, but does not declare anything: a bare Name
// must already exist (it resolves to a Global like any other
// undeclared identifier would).
func (v *visitor) funcName(name ast.FuncName, table symbol.Table) error {
	switch n := name.(type) {
	case *ast.Name:
		n.Symbol = table.Resolve(n.ID)
		return nil
	case *ast.Attribute:
		if err := v.funcNameValue(n.Value, table); err != nil {
			return err
		}
		n.AttrSymbol = table.OwnerFunc().Attribute(n.Attr.ID)
		return nil
	case *ast.Method:
		if err := v.funcNameValue(n.Value, table); err != nil {
			return err
		}
		n.MethodSymbol = table.OwnerFunc().Attribute(n.Method.ID)
		return nil
	default:
		return fmt.Errorf("%d: scope: invalid function name %T", name.Pos().Line, name)
	}
}

// funcNameValue resolves the (non-FuncName) expression a FuncName
// chain is rooted in or passes through.
func (v *visitor) funcNameValue(e ast.Expression, table symbol.Table) error {
	if fn, ok := e.(ast.FuncName); ok {
		return v.funcName(fn, table)
	}
	return v.expr(e, table)
}

func (v *visitor) funcBody(pars *ast.Parameters, body []ast.Statement, slot **symbol.FuncTable, enclosing symbol.Table) error {
	ft := symbol.NewFunctionTable(enclosing.OwnerFunc())
	*slot = ft
	for _, p := range pars.Names {
		p.Symbol = ft.Declare(p.ID)
	}
	ft.ParamCount = len(pars.Names)
	if pars.Varargs {
		ft.DeclareVarargs()
	}
	saved := v.loopDepth
	v.loopDepth = 0
	err := v.block(body, ft)
	v.loopDepth = saved
	return err
}

func (v *visitor) expr(e ast.Expression, table symbol.Table) error {
	switch x := e.(type) {
	case nil:
		return nil
	case *ast.Nil, *ast.True, *ast.False, *ast.Number, *ast.String:
		return nil
	case *ast.Ellipsis:
		// '...' refers to the current function's own vararg local; it is
		// never inherited from an enclosing function.
		if table.OwnerFunc().Varargs == nil {
			return fmt.Errorf("%d: cannot use '...' outside a vararg function", x.Line)
		}
		return nil
	case *ast.Name:
		x.Symbol = table.Resolve(x.ID)
		return nil
	case *ast.Subscript:
		if err := v.expr(x.Value, table); err != nil {
			return err
		}
		return v.expr(x.Index, table)
	case *ast.Attribute:
		if err := v.expr(x.Value, table); err != nil {
			return err
		}
		x.AttrSymbol = table.OwnerFunc().Attribute(x.Attr.ID)
		return nil
	case *ast.Method:
		if err := v.expr(x.Value, table); err != nil {
			return err
		}
		x.MethodSymbol = table.OwnerFunc().Attribute(x.Method.ID)
		return nil
	case *ast.Call:
		if err := v.expr(x.Func, table); err != nil {
			return err
		}
		for _, a := range x.Args {
			if err := v.expr(a, table); err != nil {
				return err
			}
		}
		return nil
	case *ast.Table:
		for _, f := range x.Fields {
			if f.Key != nil {
				if err := v.expr(f.Key, table); err != nil {
					return err
				}
			}
			if err := v.expr(f.Value, table); err != nil {
				return err
			}
		}
		if n := len(x.Fields); n > 0 {
			last := x.Fields[n-1]
			if last.Key == nil && isMultiValue(last.Value) {
				x.AppendSymbol = globalFor(table, ".tappend")
			}
		}
		return nil
	case *ast.FunctionExpr:
		return v.funcBody(x.Pars, x.Body, &x.SymTable, table)
	case *ast.BinOp:
		if err := v.expr(x.Left, table); err != nil {
			return err
		}
		if err := v.expr(x.Right, table); err != nil {
			return err
		}
		if name, ok := builtinNameForBinOp(x.Op); ok {
			x.OpSymbol = globalFor(table, name)
		}
		return nil
	case *ast.UnaryOp:
		if err := v.expr(x.Operand, table); err != nil {
			return err
		}
		if name, ok := builtinNameForUnaryOp(x.Op); ok {
			x.OpSymbol = globalFor(table, name)
		}
		return nil
	case interface{ Inner() ast.Expression }:
		return v.expr(x.Inner(), table)
	default:
		return fmt.Errorf("%d: scope: unhandled expression %T", e.Pos().Line, e)
	}
}
