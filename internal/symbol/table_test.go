// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package symbol

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFinalizeSlotAssignment(t *testing.T) {
	ft := NewFunctionTable(nil)
	a := ft.Declare("a")
	b := ft.Declare("b")
	c := ft.Declare("c")

	inner := NewFunctionTable(ft)
	sym := inner.Resolve("b")
	free, ok := sym.(*Free)
	if !ok {
		t.Fatalf("inner b resolved to %T, want *Free", sym)
	}

	pools := ft.Finalize()
	if diff := cmp.Diff([]string{"a", "c"}, pools.VarNames); diff != "" {
		t.Errorf("VarNames (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b"}, pools.CellNames); diff != "" {
		t.Errorf("CellNames (-want +got):\n%s", diff)
	}
	if a.Slot != 0 || c.Slot != 1 {
		t.Errorf("fast slots a=%d c=%d, want 0 and 1", a.Slot, c.Slot)
	}
	if !b.IsReferenced || b.Slot != 0 {
		t.Errorf("b: referenced=%t slot=%d, want captured cell slot 0", b.IsReferenced, b.Slot)
	}

	innerPools := inner.Finalize()
	if diff := cmp.Diff([]string{"b"}, innerPools.FreeNames); diff != "" {
		t.Errorf("inner FreeNames (-want +got):\n%s", diff)
	}
	// Free slots number after the inner function's own cells (none).
	if free.Slot != 0 {
		t.Errorf("free slot = %d, want 0", free.Slot)
	}
	if diff := cmp.Diff([]int{0}, inner.FreeParentSlots()); diff != "" {
		t.Errorf("FreeParentSlots (-want +got):\n%s", diff)
	}
}

func TestGlobalAndAttributeShareNamePool(t *testing.T) {
	ft := NewFunctionTable(nil)
	g := ft.Resolve("print").(*Global)
	a := ft.Attribute("print")
	other := ft.Resolve("io").(*Global)
	pools := ft.Finalize()

	if diff := cmp.Diff([]string{"print", "io"}, pools.Names); diff != "" {
		t.Errorf("Names (-want +got):\n%s", diff)
	}
	if g.Slot != a.Slot {
		t.Errorf("global slot %d != attribute slot %d for the same name", g.Slot, a.Slot)
	}
	if other.Slot != 1 {
		t.Errorf("io slot = %d, want 1", other.Slot)
	}
}

func TestRepeatedResolveReusesSymbols(t *testing.T) {
	ft := NewFunctionTable(nil)
	inner := NewFunctionTable(ft)
	ft.Declare("x")
	first := inner.Resolve("x")
	second := inner.Resolve("x")
	if first != second {
		t.Error("two lookups of the same free name made distinct symbols")
	}
	g1 := ft.Resolve("g")
	g2 := ft.Resolve("g")
	if g1 != g2 {
		t.Error("two lookups of the same global made distinct symbols")
	}
}

func TestParamSlotsRecordCells(t *testing.T) {
	ft := NewFunctionTable(nil)
	ft.Declare("a")
	ft.Declare("b")
	ft.ParamCount = 2
	ft.DeclareVarargs()

	// A nested function captures parameter b, forcing it into a cell.
	inner := NewFunctionTable(ft)
	inner.Resolve("b")

	pools := ft.Finalize()
	if len(pools.ParamSlots) != 3 {
		t.Fatalf("ParamSlots has %d entries, want 3 (a, b, ...)", len(pools.ParamSlots))
	}
	if pools.ParamSlots[0].Cell || pools.ParamSlots[0].Name != "a" {
		t.Errorf("param 0 = %+v, want fast a", pools.ParamSlots[0])
	}
	if !pools.ParamSlots[1].Cell || pools.ParamSlots[1].Name != "b" {
		t.Errorf("param 1 = %+v, want cell b", pools.ParamSlots[1])
	}
	if pools.ParamSlots[2].Name != "..." || pools.ParamSlots[2].Cell {
		t.Errorf("param 2 = %+v, want fast ...", pools.ParamSlots[2])
	}
}

func TestForLoopTriplesAreDisjoint(t *testing.T) {
	ft := NewFunctionTable(nil)
	outer := ft.NewForLoopTriple("i")
	innerTriple := ft.NewForLoopTriple("j")
	seen := make(map[*Local]bool)
	for _, l := range outer {
		seen[l] = true
	}
	for _, l := range innerTriple {
		if seen[l] {
			t.Fatal("nested loop triple shares a hidden local with the outer loop")
		}
	}
	ft.Finalize()
	slots := make(map[int]bool)
	for _, l := range append(outer[:], innerTriple[:]...) {
		if slots[l.Slot] {
			t.Fatalf("hidden local %q reuses slot %d", l.Name(), l.Slot)
		}
		slots[l.Slot] = true
	}
}
