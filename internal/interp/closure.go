// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package interp

import "github.com/fml-lang/fml/internal/code"

// Callable is a Lua callable value: a compiled closure or a builtin Go
// function. Both are pointer types, so Value's Equal and map-key use
// hold by identity.
type Callable interface {
	callableTag()
}

// Cell is a shared, boxed storage location for a captured local: every
// closure over the same variable holds the same *Cell.
type Cell struct {
	Value Value
}

// Closure is a compiled function paired with the cells it captured
// from its enclosing function at creation time.
type Closure struct {
	Proto *code.Object
	Free  []*Cell
	// Name is the qualified name MAKE_FUNCTION recorded. Value.String
	// does not show it: a function prints as its address.
	Name string
}

func (*Closure) callableTag() {}

// GoFunction is a builtin implemented in Go: the hidden operator
// routines internal/builtins installs, plus the host-facing library
// functions (tonumber, load, ...).
type GoFunction struct {
	Name string
	Fn   func(args []Value) ([]Value, error)
}

func (*GoFunction) callableTag() {}
