// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

// Package builtins implements the function library compiled chunks
// assume: the hidden operator routines the code generator lowers
// arithmetic, comparison, and table-constructor forms onto, plus the
// user-visible tonumber. The host-facing load/loadfile functions live
// in the root package, next to the compiler they need.
//
// Hidden names start with a dot, which the lexer can never produce as
// an identifier, so user code cannot shadow them with a local: they
// are only ever resolved by the scope resolver itself.
package builtins

import (
	"fmt"
	"math"
	"strings"

	"github.com/fml-lang/fml/internal/interp"
	"github.com/fml-lang/fml/internal/xmaps"
)

type fn = func(args []interp.Value) ([]interp.Value, error)

// Open installs every builtin into env, in sorted name order so two
// runs register identically.
func Open(env *interp.Table) {
	for name, f := range xmaps.Sorted(table()) {
		env.Set(interp.String(name), interp.FromCallable(&interp.GoFunction{Name: name, Fn: f}))
	}
}

func table() map[string]fn {
	return map[string]fn{
		".b-":  arith2(opSub),
		".b/":  arith2(opDiv),
		".b//": arith2(opIDiv),
		".b%":  arith2(opMod),
		".b^":  arith2(opPow),
		".b..": opConcat,
		".b&":  bitwise2(func(a, b int64) int64 { return a & b }),
		".b|":  bitwise2(func(a, b int64) int64 { return a | b }),
		".b~":  bitwise2(func(a, b int64) int64 { return a ^ b }),
		".b<<": shift(false),
		".b>>": shift(true),
		".u-":  opUnm,
		".unot": opNot,
		".u#":  opLen,
		".u~":  opBnot,

		".fortest": forTest,
		".tappend": tableAppend,

		"tonumber": tonumber,
	}
}

func arg(args []interp.Value, i int) interp.Value {
	if i < len(args) {
		return args[i]
	}
	return interp.Nil
}

func one(v interp.Value) []interp.Value { return []interp.Value{v} }

// arith2 wraps a binary arithmetic rule with the shared operand
// checking: both operands must be numbers.
func arith2(f func(l, r interp.Value) (interp.Value, error)) fn {
	return func(args []interp.Value) ([]interp.Value, error) {
		l, r := arg(args, 0), arg(args, 1)
		if !l.IsNumber() {
			return nil, fmt.Errorf("attempt to perform arithmetic on a %s value", l.TypeName())
		}
		if !r.IsNumber() {
			return nil, fmt.Errorf("attempt to perform arithmetic on a %s value", r.TypeName())
		}
		v, err := f(l, r)
		if err != nil {
			return nil, err
		}
		return one(v), nil
	}
}

func opSub(l, r interp.Value) (interp.Value, error) {
	if li, ok := l.AsInt(); ok {
		if ri, ok := r.AsInt(); ok {
			return interp.Int(li - ri), nil
		}
	}
	lf, _ := l.AsFloat()
	rf, _ := r.AsFloat()
	return interp.Float(lf - rf), nil
}

// opDiv always divides as floats, matching Lua's `/`.
func opDiv(l, r interp.Value) (interp.Value, error) {
	lf, _ := l.AsFloat()
	rf, _ := r.AsFloat()
	return interp.Float(lf / rf), nil
}

// opIDiv floors toward negative infinity, matching Lua's `//`.
func opIDiv(l, r interp.Value) (interp.Value, error) {
	if li, ok := l.AsInt(); ok {
		if ri, ok := r.AsInt(); ok {
			if ri == 0 {
				return interp.Nil, fmt.Errorf("attempt to perform 'n//0'")
			}
			q := li / ri
			if (li%ri != 0) && ((li < 0) != (ri < 0)) {
				q--
			}
			return interp.Int(q), nil
		}
	}
	lf, _ := l.AsFloat()
	rf, _ := r.AsFloat()
	return interp.Float(math.Floor(lf / rf)), nil
}

// opMod takes the sign of the divisor, matching Lua's `%`.
func opMod(l, r interp.Value) (interp.Value, error) {
	if li, ok := l.AsInt(); ok {
		if ri, ok := r.AsInt(); ok {
			if ri == 0 {
				return interp.Nil, fmt.Errorf("attempt to perform 'n%%0'")
			}
			m := li % ri
			if m != 0 && ((m < 0) != (ri < 0)) {
				m += ri
			}
			return interp.Int(m), nil
		}
	}
	lf, _ := l.AsFloat()
	rf, _ := r.AsFloat()
	m := math.Mod(lf, rf)
	if m != 0 && ((m < 0) != (rf < 0)) {
		m += rf
	}
	return interp.Float(m), nil
}

func opPow(l, r interp.Value) (interp.Value, error) {
	lf, _ := l.AsFloat()
	rf, _ := r.AsFloat()
	return interp.Float(math.Pow(lf, rf)), nil
}

func opConcat(args []interp.Value) ([]interp.Value, error) {
	sb := new(strings.Builder)
	for i := 0; i < 2; i++ {
		v := arg(args, i)
		if _, ok := v.AsString(); !ok && !v.IsNumber() {
			return nil, fmt.Errorf("attempt to concatenate a %s value", v.TypeName())
		}
		sb.WriteString(v.String())
	}
	return one(interp.String(sb.String())), nil
}

// toInteger converts v to an int64 for a bitwise operand: an integer,
// or a float with an exact integer value.
func toInteger(v interp.Value) (int64, error) {
	if i, ok := v.AsInt(); ok {
		return i, nil
	}
	if f, ok := v.AsFloat(); ok {
		if i := int64(f); float64(i) == f {
			return i, nil
		}
		return 0, fmt.Errorf("number has no integer representation")
	}
	return 0, fmt.Errorf("attempt to perform bitwise operation on a %s value", v.TypeName())
}

func bitwise2(f func(a, b int64) int64) fn {
	return func(args []interp.Value) ([]interp.Value, error) {
		a, err := toInteger(arg(args, 0))
		if err != nil {
			return nil, err
		}
		b, err := toInteger(arg(args, 1))
		if err != nil {
			return nil, err
		}
		return one(interp.Int(f(a, b))), nil
	}
}

// shift implements << and >> as logical shifts; a shift of 64 bits or
// more, in either direction, is zero.
func shift(right bool) fn {
	return func(args []interp.Value) ([]interp.Value, error) {
		a, err := toInteger(arg(args, 0))
		if err != nil {
			return nil, err
		}
		n, err := toInteger(arg(args, 1))
		if err != nil {
			return nil, err
		}
		if right {
			n = -n
		}
		var v int64
		switch {
		case n <= -64 || n >= 64:
			v = 0
		case n >= 0:
			v = int64(uint64(a) << uint(n))
		default:
			v = int64(uint64(a) >> uint(-n))
		}
		return one(interp.Int(v)), nil
	}
}

func opUnm(args []interp.Value) ([]interp.Value, error) {
	v := arg(args, 0)
	if i, ok := v.AsInt(); ok {
		return one(interp.Int(-i)), nil
	}
	if f, ok := v.AsFloat(); ok {
		return one(interp.Float(-f)), nil
	}
	return nil, fmt.Errorf("attempt to perform arithmetic on a %s value", v.TypeName())
}

func opNot(args []interp.Value) ([]interp.Value, error) {
	return one(interp.Bool(!arg(args, 0).Truthy())), nil
}

func opLen(args []interp.Value) ([]interp.Value, error) {
	v := arg(args, 0)
	if s, ok := v.AsString(); ok {
		return one(interp.Int(int64(len(s)))), nil
	}
	if t, ok := v.AsTable(); ok {
		return one(interp.Int(t.Len())), nil
	}
	return nil, fmt.Errorf("attempt to get length of a %s value", v.TypeName())
}

func opBnot(args []interp.Value) ([]interp.Value, error) {
	a, err := toInteger(arg(args, 0))
	if err != nil {
		return nil, err
	}
	return one(interp.Int(^a)), nil
}

// forTest reports whether a numeric for loop should run another
// iteration: counter <= limit for a positive step, counter >= limit
// for a negative one.
func forTest(args []interp.Value) ([]interp.Value, error) {
	v, limit, step := arg(args, 0), arg(args, 1), arg(args, 2)
	if !v.IsNumber() || !limit.IsNumber() || !step.IsNumber() {
		return nil, fmt.Errorf("'for' initial value must be a number")
	}
	sf, _ := step.AsFloat()
	if sf == 0 {
		return nil, fmt.Errorf("'for' step is zero")
	}
	vf, _ := v.AsFloat()
	lf, _ := limit.AsFloat()
	if sf > 0 {
		return one(interp.Bool(vf <= lf)), nil
	}
	return one(interp.Bool(vf >= lf)), nil
}

// tableAppend absorbs a spread tail into a table constructor: it
// stores each trailing value at successive integer keys starting at
// args[1] and returns the table.
func tableAppend(args []interp.Value) ([]interp.Value, error) {
	t, ok := arg(args, 0).AsTable()
	if !ok {
		return nil, fmt.Errorf("internal error: .tappend of a %s value", arg(args, 0).TypeName())
	}
	next, ok := arg(args, 1).AsInt()
	if !ok {
		return nil, fmt.Errorf("internal error: .tappend index is not an integer")
	}
	for i, v := range args[2:] {
		t.Set(interp.Int(next+int64(i)), v)
	}
	return one(interp.FromTable(t)), nil
}
