// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

// Package symbol implements the symbol model the scope resolver builds
// and the code generator consumes: every name a Lua chunk binds is
// classified as a Local, a Free (upvalue) reference to an enclosing
// function's Local, a Global (routed through _ENV), or a reserved
// Attribute, and assigned the bytecode slot [FuncTable.Finalize] works
// out for it.
package symbol

// Symbol is a resolved binding for a name: the result of the scope
// resolver walking the symbol-table chain for every identifier in a
// chunk.
type Symbol interface {
	// Name returns the identifier this symbol binds.
	Name() string

	symbol()
}

// Local is a name bound within the function that owns it: a parameter,
// a `local` declaration, or a compiler-synthesized hidden variable (a
// for-loop control triple, an upvalue cell, ...).
//
// Two Locals with the same Name never share a slot: Lua's block
// scoping lets an inner `local x` shadow an outer one, and each gets
// its own storage cell so the outer binding survives the inner block.
type Local struct {
	name string
	// IsReferenced marks a Local captured by a nested function as an
	// upvalue. Captured locals are assigned a cell slot (LOAD_DEREF/
	// STORE_DEREF) instead of a fast slot (LOAD_FAST/STORE_FAST), so a
	// nested closure can see writes after the declaring scope exits the
	// expression that created the closure.
	IsReferenced bool

	// Slot is filled in by FuncTable.Finalize: an index into VarNames
	// if !IsReferenced, otherwise into CellNames.
	Slot int
}

// NewLocal returns a fresh Local symbol bound to name.
func NewLocal(name string) *Local { return &Local{name: name} }

func (l *Local) Name() string { return l.name }
func (*Local) symbol()        {}

// Free is a reference, from a nested function, to a Local (or another
// Free) declared in an enclosing function. The reference chain bottoms
// out at the Local that actually owns storage.
type Free struct {
	name   string
	Parent Symbol // the Local or Free this upvalue closes over

	// Slot is filled in by FuncTable.Finalize: cellCount + index into
	// FreeNames, matching how codegen numbers LOAD_DEREF operands after
	// a function's own cell slots.
	Slot int
}

// NewFree returns a Free symbol named name closing over parent.
func NewFree(name string, parent Symbol) *Free { return &Free{name: name, Parent: parent} }

func (f *Free) Name() string { return f.name }
func (*Free) symbol()        {}

// Global is a name with no enclosing Local or Free binding: it
// resolves through _ENV, i.e. LOAD_GLOBAL/STORE_GLOBAL against the
// name pool.
type Global struct {
	name string
	Slot int
}

// NewGlobal returns a Global symbol named name.
func NewGlobal(name string) *Global { return &Global{name: name} }

func (g *Global) Name() string { return g.name }
func (*Global) symbol()        {}

// Attribute is a reserved slot in the name pool for a table field or
// method name that never itself becomes a variable binding (e.g. the
// right-hand side of `t.field` or the name in `function t:m()`).
// Attributes share the Global name pool (LOAD_ATTR is encoded the same
// way as LOAD_GLOBAL: a name-pool index), so they dedupe by name
// against Globals too.
type Attribute struct {
	name string
	Slot int
}

// NewAttribute returns an Attribute symbol named name.
func NewAttribute(name string) *Attribute { return &Attribute{name: name} }

func (a *Attribute) Name() string { return a.name }
func (*Attribute) symbol()        {}
