// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package code

import "fmt"

// Flag bits recorded in an [Object]'s Flags field.
const (
	// FlagVarargs marks a function that accepts a variable number of
	// arguments (every fml function does: Lua's own vararg mechanism is
	// layered on top by the parameter list).
	FlagVarargs uint32 = 1 << iota
	// FlagOptimized marks a function whose locals live in fast slots
	// rather than a name-indexed mapping.
	FlagOptimized
	// FlagNewLocals marks a function that allocates a fresh local frame
	// on every call (as opposed to sharing one with its caller).
	FlagNewLocals
	// FlagNoFree marks a function with no free variables and no cell
	// variables: it can be constructed without a closure tuple.
	FlagNoFree
	// FlagNested marks a function that captures free variables from an
	// enclosing function.
	FlagNested
)

// Object is an immutable, fully assembled unit of compiled code: the
// product of compiling one Lua function body (or a whole chunk, which
// compiles to a parameterless function).
//
// An Object owns its constant pool, which may in turn hold nested
// Objects for closures, and decoded string values.
type Object struct {
	// ArgCount is the number of declared positional parameters.
	ArgCount int
	// NumLocals is the total count of fast-slot and cell-slot locals
	// (len(VarNames) + len(CellNames)).
	NumLocals int
	// StackSize is the maximum operand stack depth reached while
	// executing Code.
	StackSize int
	// Flags is a bitwise-or of Flag* values.
	Flags uint32

	// Code is the serialized instruction stream.
	Code []byte
	// Constants is the constant pool, indexed by LOAD_CONST operands.
	Constants []Value
	// Names is the pool of global/attribute names, indexed by
	// LOAD_GLOBAL/STORE_GLOBAL operands.
	Names []string
	// VarNames holds the names of locals assigned fast slots, in slot
	// order.
	VarNames []string
	// FreeNames holds the names of captured free variables, in slot
	// order (slots start after CellNames).
	FreeNames []string
	// CellNames holds the names of locals captured by a nested function,
	// in slot order.
	CellNames []string
	// ParamSlots maps each declared parameter, in declaration order, to
	// the fast or cell slot it was finalized into; for a varargs
	// function the final entry is the hidden "..." local. VarNames and
	// CellNames are disjoint pools filled in declaration order, so a
	// parameter's slot cannot be recovered from ArgCount alone.
	ParamSlots []ParamSlot

	// Filename is the source file this code object was compiled from.
	Filename string
	// Name is the function's name ("main chunk" for a top-level chunk,
	// "<anonymous>" for an anonymous function literal).
	Name string
	// FirstLine is the source line the function begins on.
	FirstLine int
	// LineTable is the run-length-encoded mapping from instruction
	// offset to source line, in the same layout [DecodeLineTable] reads.
	LineTable []byte
}

// ParamSlot records where one declared parameter (or, as the final
// entry of a varargs function's ParamSlots, the hidden vararg local)
// was finalized: Cell reports whether Slot indexes CellNames (a
// parameter captured by a nested function) rather than VarNames.
type ParamSlot struct {
	Name string
	Cell bool
	Slot int
}

// IsVarargs reports whether the chunk-level varargs flag is set.
func (o *Object) IsVarargs() bool { return o.Flags&FlagVarargs != 0 }

// IsNested reports whether the function captures any free variables.
func (o *Object) IsNested() bool { return o.Flags&FlagNested != 0 }

// Value is a constant-pool entry: either a scalar stored directly by the
// compiler (nil, a bool, a number, a string) or a nested *[Object] for a
// closure literal.
type Value struct {
	kind valueKind
	b    bool
	n    float64
	i    int64
	isI  bool
	s    string
	code *Object
}

type valueKind int

const (
	valueNil valueKind = iota
	valueBool
	valueNumber
	valueString
	valueCode
)

// NilValue is the constant-pool representation of Lua's nil.
var NilValue = Value{kind: valueNil}

// BoolValue returns a constant-pool boolean.
func BoolValue(b bool) Value { return Value{kind: valueBool, b: b} }

// IntValue returns a constant-pool integer number.
func IntValue(i int64) Value { return Value{kind: valueNumber, i: i, isI: true} }

// FloatValue returns a constant-pool floating-point number.
func FloatValue(f float64) Value { return Value{kind: valueNumber, n: f} }

// StringValue returns a constant-pool byte string.
func StringValue(s string) Value { return Value{kind: valueString, s: s} }

// CodeValue returns a constant-pool nested code object.
func CodeValue(o *Object) Value { return Value{kind: valueCode, code: o} }

// IsNil reports whether v holds nil.
func (v Value) IsNil() bool { return v.kind == valueNil }

// IsCode reports whether v holds a nested [*Object].
func (v Value) IsCode() bool { return v.kind == valueCode }

// Code returns the nested object held by v. It panics if !v.IsCode().
func (v Value) Code() *Object {
	if v.kind != valueCode {
		panic("code.Value.Code: not a code object")
	}
	return v.code
}

// Bool returns the boolean held by v and whether v held a boolean.
func (v Value) Bool() (_ bool, ok bool) { return v.b, v.kind == valueBool }

// Int returns the integer held by v and whether v held an integer.
func (v Value) Int() (_ int64, ok bool) { return v.i, v.kind == valueNumber && v.isI }

// Float returns the floating-point number held by v (converting from an
// integer if necessary) and whether v held any number.
func (v Value) Float() (_ float64, ok bool) {
	if v.kind != valueNumber {
		return 0, false
	}
	if v.isI {
		return float64(v.i), true
	}
	return v.n, true
}

// String returns the string held by v and whether v held a string.
func (v Value) String() (_ string, ok bool) {
	if v.kind != valueString {
		return "", false
	}
	return v.s, true
}

// GoString implements fmt.GoStringer for debugging and test failure output.
func (v Value) GoString() string {
	switch v.kind {
	case valueNil:
		return "nil"
	case valueBool:
		return fmt.Sprintf("%t", v.b)
	case valueNumber:
		if v.isI {
			return fmt.Sprintf("%d", v.i)
		}
		return fmt.Sprintf("%g", v.n)
	case valueString:
		return fmt.Sprintf("%q", v.s)
	case valueCode:
		return fmt.Sprintf("<code %s>", v.code.Name)
	default:
		return "<invalid>"
	}
}

// Equal reports whether v and other hold the same scalar value.
// Code values are never equal to anything but themselves by identity,
// matching the constant pool's identity-based deduplication.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case valueNil:
		return true
	case valueBool:
		return v.b == other.b
	case valueNumber:
		return v.isI == other.isI && v.i == other.i && v.n == other.n
	case valueString:
		return v.s == other.s
	case valueCode:
		return v.code == other.code
	default:
		return false
	}
}
