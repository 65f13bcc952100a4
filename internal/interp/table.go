// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package interp

import (
	"fmt"
	"sort"
)

// Table is a Lua table: a hash map from Value to Value, with no
// distinct array part. A real Lua implementation keeps a dense array
// part for integer keys as a performance optimization; this runtime
// keeps a single map and derives a "border" length by probing, which
// is simpler and sufficient for the chunks this interpreter runs.
type Table struct {
	entries map[Value]Value
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[Value]Value)}
}

// normalizeKey canonicalizes a table key the way Lua does: a float
// with an exact integer value is treated as that integer, so t[1] and
// t[1.0] address the same entry.
func normalizeKey(key Value) Value {
	if key.kind == KindFloat {
		if i := int64(key.f); float64(i) == key.f {
			return Int(i)
		}
	}
	return key
}

// Get returns the value stored at key, or nil if there is none.
func (t *Table) Get(key Value) Value {
	v, ok := t.entries[normalizeKey(key)]
	if !ok {
		return Nil
	}
	return v
}

// Set stores value at key, or removes the entry if value is nil.
// Setting a nil key is a no-op, matching Lua's prohibition on nil
// keys without raising an error here: callers that need the error are
// expected to check beforehand.
func (t *Table) Set(key, value Value) {
	key = normalizeKey(key)
	if key.IsNil() {
		return
	}
	if value.IsNil() {
		delete(t.entries, key)
		return
	}
	t.entries[key] = value
}

// Len returns a border of t: an integer n such that t[n] is non-nil
// and t[n+1] is nil (0 if t[1] is already nil), matching Lua's `#`
// operator on sequence-like tables.
func (t *Table) Len() int64 {
	var n int64
	for {
		if _, ok := t.entries[Int(n+1)]; !ok {
			return n
		}
		n++
	}
}

// Next returns the table's entries in an unspecified but deterministic
// order (stable while the table's key set is unchanged), for a generic
// for loop driven by `pairs`. cur is the previous key returned (Nil to
// start), and ok is false once iteration is exhausted.
//
// This is a simplified stand-in for Lua's actual next() semantics
// (which must tolerate removal of the current key mid-traversal): each
// call recomputes the sorted key order and returns the entry after cur
// in it, so mutating t during a pairs loop has undefined effect on
// later iterations, same as vanilla Lua warns against.
func (t *Table) Next(cur Value) (key, value Value, ok bool) {
	order := t.keyOrder()
	if cur.IsNil() {
		if len(order) == 0 {
			return Nil, Nil, false
		}
		return order[0], t.entries[order[0]], true
	}
	cur = normalizeKey(cur)
	for i, k := range order {
		if k.Equal(cur) {
			if i+1 >= len(order) {
				return Nil, Nil, false
			}
			return order[i+1], t.entries[order[i+1]], true
		}
	}
	return Nil, Nil, false
}

// keyOrder returns this table's keys in a deterministic order derived
// from their own values, not Go's randomized map iteration order: so
// that two calls against an unchanged table agree, which Next's
// key-then-successor walk depends on.
func (t *Table) keyOrder() []Value {
	order := make([]Value, 0, len(t.entries))
	for k := range t.entries {
		order = append(order, k)
	}
	sort.Slice(order, func(i, j int) bool {
		return sortKey(order[i]) < sortKey(order[j])
	})
	return order
}

func sortKey(v Value) string {
	return fmt.Sprintf("%d:%020d:%s", v.kind, v.i, v.String())
}
