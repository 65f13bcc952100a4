// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

// Package ast defines the syntax tree the parser produces and the
// scope resolver and code generator decorate in place. Nodes carry
// their resolved [symbol.Symbol]/[symbol.Table] bindings directly as
// exported fields once scope resolution runs, rather than through a
// side table keyed by node identity.
package ast

import (
	"github.com/fml-lang/fml/internal/asm"
	"github.com/fml-lang/fml/internal/symbol"
)

// Position is a source location: a 1-based line number and a 0-based
// byte index into the chunk, the latter used only for diagnostics
// that need to point within a line.
type Position struct {
	Line  int
	Index int
}

// Node is any syntax tree node.
type Node interface {
	Pos() Position
}

// Statement is a node that can appear in a block's body.
type Statement interface {
	Node
	stmtNode()
}

// Expression is a node that produces a value (or, for a Call or
// Ellipsis, potentially several).
type Expression interface {
	Node
	exprNode()
}

// Var is an expression that can also appear as an assignment target:
// a bare name, an indexing expression, or (as a FuncName) a dotted
// path.
type Var interface {
	Expression
	varNode()
}

// FuncName is the name half of a `function a.b.c:d() ... end`
// declaration: a chain of Attribute accesses optionally ending in a
// Method, or a bare Name.
type FuncName interface {
	Var
	funcNameNode()
}

// Base holds the source position every node embeds.
type Base struct {
	Line  int
	Index int
}

func (b Base) Pos() Position { return Position{Line: b.Line, Index: b.Index} }

// NewBase constructs the embeddable position info every node carries.
func NewBase(line, index int) Base { return Base{Line: line, Index: index} }

// Name is a bare identifier, either an expression (a variable
// reference) or an assignment target.
type Name struct {
	Base
	ID string

	// Symbol is the binding the scope resolver found for ID: a
	// *symbol.Local, *symbol.Free, or *symbol.Global.
	Symbol symbol.Symbol
}

func (*Name) exprNode()     {}
func (*Name) varNode()      {}
func (*Name) funcNameNode() {}

// Parameters is a function's declared parameter list.
type Parameters struct {
	Base
	Names   []*Name
	Varargs bool
}

// File is a parsed chunk: Lua source is always a sequence of
// statements executed as the body of an implicit vararg function.
type File struct {
	Base
	Body []Statement

	// Table is the chunk's own function-level scope, set once scope
	// resolution runs.
	Table *symbol.FuncTable
}

func (*File) stmtNode() {}

// Assign is `target1, target2 = value1, value2`, possibly assigning
// into table subscripts or attributes rather than plain locals.
type Assign struct {
	Base
	Targets []Var
	Values  []Expression
}

func (*Assign) stmtNode() {}

// AssignLocal is `local target1, target2 = value1, value2`,
// introducing fresh bindings (as opposed to Assign, which only ever
// writes to existing ones).
type AssignLocal struct {
	Base
	Targets []*Name
	Values  []Expression
}

func (*AssignLocal) stmtNode() {}

// Call is a function or method invocation, used both as an expression
// (possibly producing multiple values) and, wrapped in CallStatement,
// as a standalone statement.
type Call struct {
	Base
	Func Expression
	Args []Expression
}

func (*Call) exprNode() {}

// CallStatement is a Call used as a statement, its results (if any)
// discarded.
type CallStatement struct {
	Base
	Body *Call
}

func (*CallStatement) stmtNode() {}

// Label is a `::name::` goto target.
type Label struct {
	Base
	Name string

	// Place is the assembler label this source label was pinned to,
	// set during code generation.
	Place *asm.Label
	// Info is filled in by the scope resolver: the local count live at
	// this label's declaration, for validating any goto targeting it.
	Info *symbol.LabelInfo
}

func (*Label) stmtNode() {}

// Goto is a `goto name` jump.
type Goto struct {
	Base
	Target string

	// Table is the block this goto appears directly in, recorded by
	// the scope resolver for the goto-resolution pass that follows it.
	Table symbol.Table
	// NLocals is the number of locals declared in the enclosing
	// function up to this goto, snapshotted at resolution time: a
	// target label declared after more locals than this would jump
	// into those locals' scope.
	NLocals int
	// ResolvedLabel is filled in by the goto-resolution pass.
	ResolvedLabel *Label
}

func (*Goto) stmtNode() {}

// Block is a `do ... end` statement, introducing a fresh lexical
// scope with no other control-flow meaning.
type Block struct {
	Base
	Body []Statement

	Table symbol.Table
}

func (*Block) stmtNode() {}

// While is a `while test do body end` loop.
type While struct {
	Base
	Test Expression
	Body []Statement

	Table symbol.Table
}

func (*While) stmtNode() {}

// Repeat is a `repeat body until test` loop. Unlike While, Test is
// evaluated in the scope of Body: a local declared in Body is visible
// to Test.
type Repeat struct {
	Base
	Body []Statement
	Test Expression

	Table symbol.Table
}

func (*Repeat) stmtNode() {}

// If is an `if test then body [else orelse] end` statement. A source
// `elseif` chain is desugared by the parser into a single-statement
// Else slice holding a nested If.
type If struct {
	Base
	Test Expression
	Body []Statement
	Else []Statement

	BodyTable, ElseTable symbol.Table
}

func (*If) stmtNode() {}

// For is a numeric `for target = start, stop[, step] do body end`
// loop. A source loop with no step has Step set to a synthesized
// Number{Literal: "1"}.
type For struct {
	Base
	Start, Stop, Step Expression
	Target            *Name
	Body              []Statement

	// LoopTable is the hidden scope owning the loop's control-variable
	// triple; BodyTable is the visible scope Target and Body run in.
	LoopTable *symbol.ForLoopBlockTable
	BodyTable symbol.Table
	// TestSymbol is the hidden "should this iteration run" builtin the
	// scope resolver binds, since no opcode encodes the step-direction-
	// aware bounds check a numeric for loop needs.
	TestSymbol *symbol.Global
}

func (*For) stmtNode() {}

// ForEach is a generic `for targets in iter do body end` loop.
type ForEach struct {
	Base
	Iter    []Expression
	Targets []*Name
	Body    []Statement

	LoopTable *symbol.ForLoopBlockTable
	BodyTable symbol.Table
}

func (*ForEach) stmtNode() {}

// Function is a `function name(pars) body end` declaration, where
// name may be a dotted path and, for a method declaration
// (`function t:m()`), implicitly binds a leading `self` parameter.
type Function struct {
	Base
	Name FuncName
	Pars *Parameters
	Body []Statement

	SymTable *symbol.FuncTable
}

func (*Function) stmtNode() {}

// FunctionLocal is `local function name(pars) body end`. Unlike
// Function, name is always a bare identifier, and (distinct from
// AssignLocal) the name is visible inside its own body, allowing
// direct recursion.
type FunctionLocal struct {
	Base
	Name *Name
	Pars *Parameters
	Body []Statement

	SymTable *symbol.FuncTable
}

func (*FunctionLocal) stmtNode() {}

// Return is a `return [values]` statement; it must be the last
// statement in its block.
type Return struct {
	Base
	Values []Expression
}

func (*Return) stmtNode() {}

// Break is a `break` statement.
type Break struct {
	Base
}

func (*Break) stmtNode() {}

// Subscript is `value[index]`.
type Subscript struct {
	Base
	Value Expression
	Index Expression
}

func (*Subscript) exprNode() {}
func (*Subscript) varNode()  {}

// Attribute is `value.attr`, usable both as an expression and (inside
// a Function's Name) as part of a dotted function-name path.
type Attribute struct {
	Base
	Value Expression
	Attr  *Name

	AttrSymbol *symbol.Attribute
}

func (*Attribute) exprNode()    {}
func (*Attribute) varNode()     {}
func (*Attribute) funcNameNode() {}

// Method is `value:method`, which may only appear as the callee of a
// Call (producing a method call that implicitly passes value as the
// first argument) or as the name of a `function t:m()` declaration.
type Method struct {
	Base
	Value  Expression
	Method *Name

	MethodSymbol *symbol.Attribute
}

func (*Method) exprNode()     {}
func (*Method) varNode()      {}
func (*Method) funcNameNode() {}

// Nil is the `nil` literal.
type Nil struct{ Base }

func (*Nil) exprNode() {}

// False is the `false` literal.
type False struct{ Base }

func (*False) exprNode() {}

// True is the `true` literal.
type True struct{ Base }

func (*True) exprNode() {}

// Number is a numeral literal. Literal holds the raw source lexeme
// (decimal or 0x-prefixed hex, integer or with fractional/exponent
// parts); decoding into an int64 or float64 constant is deferred to
// code generation.
type Number struct {
	Base
	Literal string
}

func (*Number) exprNode() {}

// String is a string literal, already decoded (escapes resolved, long
// brackets stripped) by the lexer.
type String struct {
	Base
	Value string
}

func (*String) exprNode() {}

// Ellipsis is the `...` vararg expression, valid only directly inside
// a vararg function.
type Ellipsis struct{ Base }

func (*Ellipsis) exprNode() {}

// Field is one entry of a Table constructor: `[key] = value` or
// `name = value` (Key is a String literal built from name) or a bare
// positional `value` (Key is nil).
type Field struct {
	Base
	Key   Expression
	Value Expression
}

// Table is a `{ fields }` table constructor.
type Table struct {
	Base
	Fields []*Field

	// AppendSymbol is the hidden global builtin that absorbs a trailing
	// multi-value field (`{1, f()}`) into successive integer keys, bound
	// by the scope resolver only when the last field can spread.
	AppendSymbol *symbol.Global
}

func (*Table) exprNode() {}

// FunctionExpr is an anonymous `function(pars) body end` expression.
type FunctionExpr struct {
	Base
	Pars *Parameters
	Body []Statement

	SymTable *symbol.FuncTable
}

func (*FunctionExpr) exprNode() {}

// BinOp is a binary operator expression. Op is the operator's source
// spelling ("+", "..", "==", "and", ...).
type BinOp struct {
	Base
	Op          string
	Left, Right Expression

	// OpSymbol is the hidden global builtin this operator lowers to,
	// set by the scope resolver for operators with no dedicated
	// opcode (everything but +, *, and the comparisons).
	OpSymbol *symbol.Global
}

func (*BinOp) exprNode() {}

// UnaryOp is a unary operator expression ("-", "not", "#", "~").
type UnaryOp struct {
	Base
	Op      string
	Operand Expression

	// OpSymbol is the hidden global builtin this operator lowers to
	// (every unary operator calls one: see codegen).
	OpSymbol *symbol.Global
}

func (*UnaryOp) exprNode() {}
