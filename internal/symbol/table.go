// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package symbol

import (
	"github.com/fml-lang/fml/internal/asm"
	"github.com/fml-lang/fml/internal/code"
)

// LabelInfo records what the scope resolver needs to validate a
// `goto` against the label it targets: the number of locals live at
// the point of declaration, so a jump into a later local's scope can
// be rejected, and the declaring line for the duplicate diagnostic.
type LabelInfo struct {
	NLocals int
	Line    int
}

// Table is a lexical scope: either a function's top-level scope or a
// nested block within one. Declarations and label lookups are scoped
// to a Table; name resolution walks outward through Parent to the
// owning FuncTable and, for free variables, beyond it to enclosing
// functions.
type Table interface {
	// Parent returns the lexically enclosing Table, or nil for a
	// function's own top-level Table.
	Parent() Table
	// OwnerFunc returns the FuncTable this Table belongs to (itself, if
	// it is one).
	OwnerFunc() *FuncTable

	// Declare binds a fresh Local named name in this Table, shadowing
	// any outer binding of the same name for the remainder of the
	// block.
	Declare(name string) *Local
	// Resolve looks up name against this Table's local bindings, then
	// outward through Parent, then (crossing into enclosing functions)
	// as a Free, and finally falls back to a Global.
	Resolve(name string) Symbol

	// AddLabel records a label declared directly in this block, on the
	// given source line, with nlocals locals live in the enclosing
	// function at the point of declaration.
	AddLabel(name string, nlocals, line int)
	// FindLabel looks up a label declared directly in this block. It
	// does not search parent blocks itself; goto resolution walks the
	// Parent chain, calling FindLabel at each level, so that a goto may
	// target a label in its own block or any enclosing block of the
	// same function.
	FindLabel(name string) (*LabelInfo, bool)
}

type baseTable struct {
	parent Table
	locals map[string]*Local
	labels map[string]*LabelInfo
	// order records every Local declared in this table, in declaration
	// order, for Finalize's slot assignment.
	order []*Local
}

func newBaseTable(parent Table) baseTable {
	return baseTable{
		parent: parent,
		locals: make(map[string]*Local),
		labels: make(map[string]*LabelInfo),
	}
}

func (t *baseTable) declareLocal(name string) *Local {
	l := NewLocal(name)
	t.locals[name] = l
	t.order = append(t.order, l)
	return l
}

func (t *baseTable) resolveLocal(name string) (*Local, bool) {
	l, ok := t.locals[name]
	return l, ok
}

func (t *baseTable) AddLabel(name string, nlocals, line int) {
	t.labels[name] = &LabelInfo{NLocals: nlocals, Line: line}
}

func (t *baseTable) FindLabel(name string) (*LabelInfo, bool) {
	info, ok := t.labels[name]
	return info, ok
}

// FuncTable is the top-level scope of a Lua function body: it owns
// the function's locals, free-variable (upvalue) bindings, and the
// name pools Finalize computes from them.
type FuncTable struct {
	baseTable
	enclosing *FuncTable // nil for the outermost chunk

	frees   map[string]*Free
	freeOrd []*Free
	globals map[string]*Global
	globalOrd []*Global
	attrs   map[string]*Attribute
	attrOrd []*Attribute

	// Varargs is the hidden local holding a vararg function's extra
	// arguments, or nil if the function does not declare `...`.
	Varargs *Local
	// ParamCount is the number of declared positional parameters
	// (excluding the hidden varargs local), set once by the scope
	// resolver while declaring the parameter list.
	ParamCount int

	loopDepth int // raised only for the duration of one NewForLoopTriple call, so every hidden name carries depth 1

	// Pools is populated by Finalize.
	Pools asm.Pools
}

// NewFunctionTable returns the top-level scope for a function nested
// inside enclosing (nil for the main chunk).
func NewFunctionTable(enclosing *FuncTable) *FuncTable {
	ft := &FuncTable{
		enclosing: enclosing,
		frees:     make(map[string]*Free),
		globals:   make(map[string]*Global),
		attrs:     make(map[string]*Attribute),
	}
	ft.baseTable = newBaseTable(nil)
	return ft
}

func (ft *FuncTable) Parent() Table        { return nil }
func (ft *FuncTable) OwnerFunc() *FuncTable { return ft }

func (ft *FuncTable) Declare(name string) *Local { return ft.declareLocal(name) }

func (ft *FuncTable) Resolve(name string) Symbol {
	if l, ok := ft.resolveLocal(name); ok {
		return l
	}
	return ft.resolveOuter(name)
}

// resolveOuter looks up name in the enclosing function, wrapping
// whatever it finds as a Free bound to this function, or falls back
// to a deduplicated Global.
func (ft *FuncTable) resolveOuter(name string) Symbol {
	if ft.enclosing != nil {
		if outer := ft.enclosing.resolveForFree(name); outer != nil {
			if f, ok := ft.frees[name]; ok {
				return f
			}
			f := NewFree(name, outer)
			ft.frees[name] = f
			ft.freeOrd = append(ft.freeOrd, f)
			return f
		}
	}
	if g, ok := ft.globals[name]; ok {
		return g
	}
	g := NewGlobal(name)
	ft.globals[name] = g
	ft.globalOrd = append(ft.globalOrd, g)
	return g
}

// resolveForFree looks up name within ft for the purpose of a nested
// function capturing it as an upvalue: a Local owned directly by ft,
// or (recursively) a Free ft itself already captures from a further
// enclosing function. It returns nil if name isn't bound by an
// enclosing function at all, meaning the innermost nested function
// should fall back to a Global.
func (ft *FuncTable) resolveForFree(name string) Symbol {
	if l, ok := ft.resolveLocal(name); ok {
		l.IsReferenced = true
		return l
	}
	if f, ok := ft.frees[name]; ok {
		return f
	}
	if ft.enclosing != nil {
		if outer := ft.enclosing.resolveForFree(name); outer != nil {
			f := NewFree(name, outer)
			ft.frees[name] = f
			ft.freeOrd = append(ft.freeOrd, f)
			return f
		}
	}
	return nil
}

// Attribute returns the deduplicated Attribute symbol for name (a
// table field or method name that never becomes a variable binding).
func (ft *FuncTable) Attribute(name string) *Attribute {
	if a, ok := ft.attrs[name]; ok {
		return a
	}
	a := NewAttribute(name)
	ft.attrs[name] = a
	ft.attrOrd = append(ft.attrOrd, a)
	return a
}

// LocalCount returns how many Local symbols have been declared
// anywhere in this function so far, used by the scope resolver as a
// coarse proxy for "locals currently in scope" when validating a
// goto.
func (ft *FuncTable) LocalCount() int { return len(ft.order) }

// LocalNameAt returns the name of the i-th Local declared in this
// function, counting in declaration order, or "?" if out of range.
// Used to name the local a rejected goto would jump over.
func (ft *FuncTable) LocalNameAt(i int) string {
	if i < 0 || i >= len(ft.order) {
		return "?"
	}
	return ft.order[i].name
}

// DeclareVarargs records the hidden local that stores a vararg
// function's trailing arguments. Called once per vararg function: for
// the main chunk, and for a function whose parameter list ends in
// `...`.
func (ft *FuncTable) DeclareVarargs() *Local {
	ft.Varargs = ft.declareLocal("...")
	return ft.Varargs
}

// NewForLoopTriple allocates three disjoint hidden locals for one
// level of numeric or generic `for` loop control state, keeping
// nested loops' hidden state in distinct slots.
func (ft *FuncTable) NewForLoopTriple(label string) [3]*Local {
	ft.loopDepth++
	n := ft.loopDepth
	names := [3]string{
		forHiddenName(label, n, 0),
		forHiddenName(label, n, 1),
		forHiddenName(label, n, 2),
	}
	var triple [3]*Local
	for i, nm := range names {
		triple[i] = NewLocal(nm)
		ft.order = append(ft.order, triple[i])
	}
	ft.loopDepth--
	return triple
}

func forHiddenName(label string, depth, slot int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	suffix := alphabet[slot%len(alphabet)]
	return "(for " + label + " " + string(rune('0'+depth)) + string(suffix) + ")"
}

// LocalOrFreeSlot returns the bytecode slot already assigned to a
// *Local or *Free symbol (valid only after the owning function's
// Finalize has run). It panics for any other Symbol kind: only Local
// and Free bindings have a LOAD_DEREF/LOAD_CLOSURE-style slot.
func LocalOrFreeSlot(s Symbol) int {
	switch v := s.(type) {
	case *Local:
		return v.Slot
	case *Free:
		return v.Slot
	default:
		panic("symbol: LocalOrFreeSlot: not a Local or Free")
	}
}

// FreeParentSlots returns, in the same order as Pools.FreeNames, the
// slot each captured variable is addressed by in the enclosing
// function: a LOAD_CLOSURE operand in the enclosing function's own
// frame.
func (ft *FuncTable) FreeParentSlots() []int {
	slots := make([]int, len(ft.freeOrd))
	for i, f := range ft.freeOrd {
		slots[i] = LocalOrFreeSlot(f.Parent)
	}
	return slots
}

// Finalize computes the assembler name pools for this function,
// assigning every Local a slot (VarNames if plain, CellNames if
// captured by a nested function), every Free a slot numbered after
// the cell slots, and every Global/Attribute a slot in the shared
// Names pool. Locals are never deduplicated by name: every distinct
// Local symbol gets its own slot, so shadowed block-local variables
// with the same spelling do not collide. It must run after the whole
// function body (and any nested functions, which may mark a Local as
// referenced) has been visited.
func (ft *FuncTable) Finalize() asm.Pools {
	var cellNames, varNames []string
	for _, l := range ft.order {
		if l.IsReferenced {
			l.Slot = len(cellNames)
			cellNames = append(cellNames, l.name)
		} else {
			l.Slot = len(varNames)
			varNames = append(varNames, l.name)
		}
	}
	freeNames := make([]string, len(ft.freeOrd))
	for i, f := range ft.freeOrd {
		f.Slot = len(cellNames) + i
		freeNames[i] = f.name
	}

	var names []string
	nameSlot := make(map[string]int)
	addName := func(n string) int {
		if i, ok := nameSlot[n]; ok {
			return i
		}
		i := len(names)
		names = append(names, n)
		nameSlot[n] = i
		return i
	}
	for _, g := range ft.globalOrd {
		g.Slot = addName(g.name)
	}
	for _, a := range ft.attrOrd {
		a.Slot = addName(a.name)
	}

	// Parameters are always the first locals declared in a function
	// (followed, for a varargs function, by the hidden "..." local), so
	// their finalized slots are the leading entries of ft.order.
	var paramSlots []code.ParamSlot
	nparams := ft.ParamCount
	if ft.Varargs != nil {
		nparams++
	}
	for i := 0; i < nparams && i < len(ft.order); i++ {
		l := ft.order[i]
		paramSlots = append(paramSlots, code.ParamSlot{
			Name: l.name,
			Cell: l.IsReferenced,
			Slot: l.Slot,
		})
	}

	ft.Pools = asm.Pools{
		Names:      names,
		VarNames:   varNames,
		FreeNames:  freeNames,
		CellNames:  cellNames,
		ParamSlots: paramSlots,
	}
	return ft.Pools
}

// BlockTable is a nested lexical scope within a function: a `do...end`
// block, a loop body, or an `if`/`elseif`/`else` arm. Declarations
// shadow the parent scope for the remainder of the block; resolution
// not satisfied locally is forwarded to Parent.
type BlockTable struct {
	baseTable
	owner *FuncTable
}

// NewBlockTable returns a block scope nested directly inside parent.
func NewBlockTable(parent Table) *BlockTable {
	return &BlockTable{
		baseTable: newBaseTable(parent),
		owner:     parent.OwnerFunc(),
	}
}

func (b *BlockTable) Parent() Table         { return b.parent }
func (b *BlockTable) OwnerFunc() *FuncTable { return b.owner }

func (b *BlockTable) Declare(name string) *Local { return b.declareLocal(name) }

func (b *BlockTable) Resolve(name string) Symbol {
	if l, ok := b.resolveLocal(name); ok {
		return l
	}
	return b.parent.Resolve(name)
}

// ForLoopBlockTable is the block scope introduced by a `for` loop's
// own hidden control variables (the init/limit/step triple for a
// numeric for, or the f/s/var triple for a generic for), distinct from
// the block scope of the loop body itself.
type ForLoopBlockTable struct {
	BlockTable
	LoopVar [3]*Local
}

// NewForLoopBlockTable returns the hidden-control-variable scope for
// one `for` loop nested inside parent, labeled (for diagnostics and
// hidden-slot naming) by label.
func NewForLoopBlockTable(parent Table, label string) *ForLoopBlockTable {
	t := &ForLoopBlockTable{BlockTable: *NewBlockTable(parent)}
	t.LoopVar = parent.OwnerFunc().NewForLoopTriple(label)
	return t
}
