// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

// Package interp is a small tree-walking-over-bytecode interpreter for
// the instruction set internal/code defines: enough to run a compiled
// chunk end to end, exercising the host API the compiler promises.
// It is not a production Lua VM: it has no metatables, no coroutines,
// no string library, and no garbage-collection finalizers, matching
// the non-goals the front end itself observes.
package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fml-lang/fml/internal/code"
)

// Kind discriminates the dynamic type of a Value.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTable
	KindCallable
	// KindTuple and KindCellRef never appear in a surface Lua value:
	// they are how the interpreter's operand stack carries a multi-value
	// result (BUILD_TUPLE/UNPACK_EX/BUILD_TUPLE_UNPACK) and a raw
	// captured-variable cell (LOAD_CLOSURE, pending MAKE_FUNCTION)
	// through the same []Value stack as ordinary values.
	KindTuple
	KindCellRef
	// KindCode never appears in a surface Lua value either: it carries
	// a nested *code.Object from LOAD_CONST to the MAKE_FUNCTION that
	// immediately follows it.
	KindCode
)

// Value is a dynamically-typed Lua value. The zero Value is nil.
type Value struct {
	kind     Kind
	b        bool
	i        int64
	f        float64
	s        string
	table    *Table
	callable Callable
	tuple    *Tuple
	cell     *Cell
	codeObj  *code.Object
}

// Tuple is the boxed payload of a KindTuple Value: a pointer, not a
// bare slice, so Value itself stays comparable (usable as a Table
// key) even though it can carry a tuple.
type Tuple struct {
	Values []Value
}

// FromTuple returns a tuple value wrapping vs.
func FromTuple(vs []Value) Value { return Value{kind: KindTuple, tuple: &Tuple{Values: vs}} }

// AsTuple returns the slice a tuple value wraps and whether v was one.
func (v Value) AsTuple() (_ []Value, ok bool) {
	if v.kind != KindTuple {
		return nil, false
	}
	return v.tuple.Values, true
}

// FromCellRef returns a value wrapping a raw captured-variable cell,
// used only to carry LOAD_CLOSURE's result to a following
// MAKE_FUNCTION.
func FromCellRef(c *Cell) Value { return Value{kind: KindCellRef, cell: c} }

// AsCellRef returns the cell a KindCellRef value wraps and whether v
// was one.
func (v Value) AsCellRef() (_ *Cell, ok bool) { return v.cell, v.kind == KindCellRef }

// FromCode returns a value wrapping a nested code object, used only to
// carry a LOAD_CONST result to a following MAKE_FUNCTION.
func FromCode(obj *code.Object) Value { return Value{kind: KindCode, codeObj: obj} }

// AsCode returns the code object a KindCode value wraps and whether v
// was one.
func (v Value) AsCode() (_ *code.Object, ok bool) { return v.codeObj, v.kind == KindCode }

// Nil is the Lua nil value.
var Nil = Value{}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating-point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// FromTable returns a table value.
func FromTable(t *Table) Value { return Value{kind: KindTable, table: t} }

// FromCallable returns a function value wrapping c (a *Closure or a
// *GoFunction).
func FromCallable(c Callable) Value { return Value{kind: KindCallable, callable: c} }

// Kind reports v's dynamic type.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v is nil.
func (v Value) IsNil() bool { return v.kind == KindNil }

// Truthy reports whether v counts as true in a Lua boolean context:
// everything except nil and false.
func (v Value) Truthy() bool { return v.kind != KindNil && !(v.kind == KindBool && !v.b) }

// AsBool returns the boolean v holds and whether v was a boolean.
func (v Value) AsBool() (_ bool, ok bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer v holds (without float conversion) and
// whether v was an integer.
func (v Value) AsInt() (_ int64, ok bool) { return v.i, v.kind == KindInt }

// AsFloat returns v as a float64, converting from an integer, and
// whether v was numeric at all.
func (v Value) AsFloat() (_ float64, ok bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// AsString returns the string v holds and whether v was a string.
func (v Value) AsString() (_ string, ok bool) { return v.s, v.kind == KindString }

// AsTable returns the table v holds and whether v was a table.
func (v Value) AsTable() (_ *Table, ok bool) { return v.table, v.kind == KindTable }

// AsCallable returns the callable v holds and whether v was callable.
func (v Value) AsCallable() (_ Callable, ok bool) { return v.callable, v.kind == KindCallable }

// IsNumber reports whether v is an integer or a float.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// TypeName returns the Lua type name for v, as `type()` would report.
func (v Value) TypeName() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindInt, KindFloat:
		return "number"
	case KindString:
		return "string"
	case KindTable:
		return "table"
	case KindCallable:
		return "function"
	case KindTuple, KindCellRef, KindCode:
		return "internal"
	default:
		return "unknown"
	}
}

// Equal reports whether v and other are equal by Lua's `==` rule: no
// coercion between strings and numbers, but integers and floats with
// the same mathematical value compare equal.
func (v Value) Equal(other Value) bool {
	if v.kind == other.kind {
		switch v.kind {
		case KindNil:
			return true
		case KindBool:
			return v.b == other.b
		case KindInt:
			return v.i == other.i
		case KindFloat:
			return v.f == other.f
		case KindString:
			return v.s == other.s
		case KindTable:
			return v.table == other.table
		case KindCallable:
			return v.callable == other.callable
		case KindTuple:
			return v.tuple == other.tuple
		case KindCellRef:
			return v.cell == other.cell
		}
	}
	if v.kind == KindInt && other.kind == KindFloat {
		return float64(v.i) == other.f
	}
	if v.kind == KindFloat && other.kind == KindInt {
		return v.f == float64(other.i)
	}
	return false
}

// String formats v the way Lua's `tostring` would for the types this
// runtime supports.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindString:
		return v.s
	case KindTable:
		return fmt.Sprintf("table: %p", v.table)
	case KindCallable:
		return fmt.Sprintf("function: %p", v.callable)
	case KindTuple:
		return fmt.Sprintf("tuple: %p", v.tuple)
	case KindCellRef:
		return fmt.Sprintf("cell: %p", v.cell)
	case KindCode:
		return fmt.Sprintf("code: %s", v.codeObj.Name)
	default:
		return "?"
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	default:
		s := strconv.FormatFloat(f, 'g', 14, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	}
}
