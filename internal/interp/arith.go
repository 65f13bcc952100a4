// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package interp

import (
	"fmt"

	"github.com/fml-lang/fml/internal/code"
)

// subscript implements BINARY_SUBSCR: reading obj[key].
func subscript(obj, key Value) (Value, error) {
	t, ok := obj.AsTable()
	if !ok {
		return Nil, fmt.Errorf("attempt to index a %s value", obj.TypeName())
	}
	return t.Get(key), nil
}

// storeSubscript implements STORE_SUBSCR: writing obj[key] = value.
func storeSubscript(obj, key, value Value) error {
	t, ok := obj.AsTable()
	if !ok {
		return fmt.Errorf("attempt to index a %s value", obj.TypeName())
	}
	if key.IsNil() {
		return fmt.Errorf("table index is nil")
	}
	t.Set(key, value)
	return nil
}

func arithAdd(l, r Value) (Value, error) {
	if li, ok := l.AsInt(); ok {
		if ri, ok := r.AsInt(); ok {
			return Int(li + ri), nil
		}
	}
	lf, lok := l.AsFloat()
	rf, rok := r.AsFloat()
	if !lok || !rok {
		return Nil, arithTypeError(l, r)
	}
	return Float(lf + rf), nil
}

func arithMul(l, r Value) (Value, error) {
	if li, ok := l.AsInt(); ok {
		if ri, ok := r.AsInt(); ok {
			return Int(li * ri), nil
		}
	}
	lf, lok := l.AsFloat()
	rf, rok := r.AsFloat()
	if !lok || !rok {
		return Nil, arithTypeError(l, r)
	}
	return Float(lf * rf), nil
}

func arithTypeError(l, r Value) error {
	bad := l
	if l.IsNumber() {
		bad = r
	}
	return fmt.Errorf("attempt to perform arithmetic on a %s value", bad.TypeName())
}

// compare implements COMPARE_OP. Equality follows Lua's `==` (no
// string/number coercion); ordering is defined for two numbers or two
// strings only.
func compare(op int, l, r Value) (Value, error) {
	switch op {
	case code.CmpEqual:
		return Bool(l.Equal(r)), nil
	case code.CmpNotEqual:
		return Bool(!l.Equal(r)), nil
	}

	if l.IsNumber() && r.IsNumber() {
		lf, _ := l.AsFloat()
		rf, _ := r.AsFloat()
		return orderResult(op, lf < rf, lf == rf)
	}
	ls, lok := l.AsString()
	rs, rok := r.AsString()
	if lok && rok {
		return orderResult(op, ls < rs, ls == rs)
	}
	return Nil, fmt.Errorf("attempt to compare %s with %s", l.TypeName(), r.TypeName())
}

func orderResult(op int, less, equal bool) (Value, error) {
	switch op {
	case code.CmpLess:
		return Bool(less), nil
	case code.CmpLessEqual:
		return Bool(less || equal), nil
	case code.CmpGreater:
		return Bool(!less && !equal), nil
	case code.CmpGreaterEqual:
		return Bool(!less), nil
	default:
		return Nil, fmt.Errorf("internal error: unknown comparison operand %d", op)
	}
}
