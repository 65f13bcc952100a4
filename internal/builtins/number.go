// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package builtins

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fml-lang/fml/internal/interp"
)

// tonumber converts its argument to a number: a number passes
// through, a string is parsed as a Lua numeral (or, with an explicit
// base between 2 and 36, as an integer in that base), anything else
// yields nil rather than an error.
func tonumber(args []interp.Value) ([]interp.Value, error) {
	v := arg(args, 0)
	base := arg(args, 1)

	if base.IsNil() {
		if v.IsNumber() {
			return one(v), nil
		}
		if s, ok := v.AsString(); ok {
			if n, ok := ParseNumeral(strings.TrimSpace(s)); ok {
				return one(n), nil
			}
		}
		return one(interp.Nil), nil
	}

	b, ok := base.AsInt()
	if !ok || b < 2 || b > 36 {
		return nil, fmt.Errorf("bad argument #2 to 'tonumber' (base out of range)")
	}
	s, ok := v.AsString()
	if !ok {
		return nil, fmt.Errorf("bad argument #1 to 'tonumber' (string expected, got %s)", v.TypeName())
	}
	i, err := strconv.ParseInt(strings.TrimSpace(strings.ToLower(s)), int(b), 64)
	if err != nil {
		return one(interp.Nil), nil
	}
	return one(interp.Int(i)), nil
}

// ParseNumeral parses s as a Lua numeral: a decimal or 0x-prefixed
// hexadecimal literal, yielding an integer when it has no fractional
// or exponent part and fits in 64 bits, a float otherwise. A decimal
// integer too large for 64 bits becomes a float; a hexadecimal one is
// rejected.
func ParseNumeral(s string) (interp.Value, bool) {
	if s == "" {
		return interp.Nil, false
	}
	neg := false
	body := s
	switch body[0] {
	case '-':
		neg = true
		body = body[1:]
	case '+':
		body = body[1:]
	}
	v, ok := parseUnsignedNumeral(body)
	if !ok {
		return interp.Nil, false
	}
	if neg {
		if i, ok := v.AsInt(); ok {
			return interp.Int(-i), true
		}
		f, _ := v.AsFloat()
		return interp.Float(-f), true
	}
	return v, true
}

func parseUnsignedNumeral(s string) (interp.Value, bool) {
	if s == "" {
		return interp.Nil, false
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if !strings.ContainsAny(s, ".pP") {
			u, err := strconv.ParseUint(s[2:], 16, 64)
			if err != nil {
				return interp.Nil, false
			}
			return interp.Int(int64(u)), true
		}
		// strconv.ParseFloat requires a binary exponent on hex floats.
		if !strings.ContainsAny(s, "pP") {
			s += "p0"
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return interp.Nil, false
		}
		return interp.Float(f), true
	}
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return interp.Int(i), true
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return interp.Nil, false
	}
	return interp.Float(f), true
}
