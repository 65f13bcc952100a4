// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package code

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/fml-lang/fml/internal/bytewriter"
)

// Signature is the header that marks a dumped code object, chosen so
// no text chunk can start with it (0x1b is not a printable byte).
const Signature = "\x1bFml"

const dumpVersion = 1

// Dump serializes o (and, recursively, every nested code object in
// its constant pool) into a self-contained byte form [Undump] can
// reload.
func Dump(o *Object) []byte {
	w := bytewriter.New(nil)
	io.WriteString(w, Signature)
	w.Write([]byte{dumpVersion})
	dumpObject(w, o)
	w.Seek(0, io.SeekStart)
	data, err := io.ReadAll(w)
	if err != nil {
		// Reading back an in-memory buffer cannot fail.
		panic("code.Dump: " + err.Error())
	}
	return data
}

// Undump reloads a code object previously serialized by [Dump].
func Undump(data []byte) (*Object, error) {
	r := bytewriter.New(data)
	sig := make([]byte, len(Signature))
	if _, err := io.ReadFull(r, sig); err != nil || string(sig) != Signature {
		return nil, fmt.Errorf("undump: bad signature")
	}
	version, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("undump: truncated header")
	}
	if version != dumpVersion {
		return nil, fmt.Errorf("undump: version %d not supported", version)
	}
	o, err := undumpObject(r)
	if err != nil {
		return nil, fmt.Errorf("undump: %w", err)
	}
	return o, nil
}

func dumpInt(w io.Writer, n int) { dumpInt64(w, int64(n)) }

func dumpInt64(w io.Writer, n int64) {
	var buf [binary.MaxVarintLen64]byte
	w.Write(buf[:binary.PutVarint(buf[:], n)])
}

func dumpString(w io.Writer, s string) {
	dumpInt(w, len(s))
	io.WriteString(w, s)
}

func dumpStrings(w io.Writer, ss []string) {
	dumpInt(w, len(ss))
	for _, s := range ss {
		dumpString(w, s)
	}
}

func dumpBytes(w io.Writer, b []byte) {
	dumpInt(w, len(b))
	w.Write(b)
}

func dumpObject(w io.Writer, o *Object) {
	dumpInt(w, o.ArgCount)
	dumpInt(w, o.NumLocals)
	dumpInt(w, o.StackSize)
	dumpInt(w, int(o.Flags))
	dumpBytes(w, o.Code)
	dumpInt(w, len(o.Constants))
	for _, c := range o.Constants {
		dumpValue(w, c)
	}
	dumpStrings(w, o.Names)
	dumpStrings(w, o.VarNames)
	dumpStrings(w, o.FreeNames)
	dumpStrings(w, o.CellNames)
	dumpInt(w, len(o.ParamSlots))
	for _, p := range o.ParamSlots {
		dumpString(w, p.Name)
		cell := 0
		if p.Cell {
			cell = 1
		}
		dumpInt(w, cell)
		dumpInt(w, p.Slot)
	}
	dumpString(w, o.Filename)
	dumpString(w, o.Name)
	dumpInt(w, o.FirstLine)
	dumpBytes(w, o.LineTable)
}

func dumpValue(w io.Writer, v Value) {
	w.Write([]byte{byte(v.kind)})
	switch v.kind {
	case valueNil:
	case valueBool:
		b := byte(0)
		if v.b {
			b = 1
		}
		w.Write([]byte{b})
	case valueNumber:
		if v.isI {
			w.Write([]byte{1})
			dumpInt64(w, v.i)
		} else {
			w.Write([]byte{0})
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], math.Float64bits(v.n))
			w.Write(buf[:])
		}
	case valueString:
		dumpString(w, v.s)
	case valueCode:
		dumpObject(w, v.code)
	}
}

type undumpReader interface {
	io.Reader
	io.ByteReader
}

func undumpInt(r undumpReader) (int, error) {
	n, err := binary.ReadVarint(r)
	return int(n), err
}

func undumpString(r undumpReader) (string, error) {
	b, err := undumpBytes(r)
	return string(b), err
}

func undumpBytes(r undumpReader) ([]byte, error) {
	n, err := undumpInt(r)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("negative length")
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func undumpStrings(r undumpReader) ([]string, error) {
	n, err := undumpInt(r)
	if err != nil {
		return nil, err
	}
	var ss []string
	for i := 0; i < n; i++ {
		s, err := undumpString(r)
		if err != nil {
			return nil, err
		}
		ss = append(ss, s)
	}
	return ss, nil
}

func undumpObject(r undumpReader) (*Object, error) {
	o := new(Object)
	var err error
	read := func(dst *int) {
		if err == nil {
			*dst, err = undumpInt(r)
		}
	}
	read(&o.ArgCount)
	read(&o.NumLocals)
	read(&o.StackSize)
	var flags int
	read(&flags)
	o.Flags = uint32(flags)
	if err != nil {
		return nil, err
	}
	if o.Code, err = undumpBytes(r); err != nil {
		return nil, err
	}
	nconst, err := undumpInt(r)
	if err != nil {
		return nil, err
	}
	for i := 0; i < nconst; i++ {
		v, err := undumpValue(r)
		if err != nil {
			return nil, err
		}
		o.Constants = append(o.Constants, v)
	}
	if o.Names, err = undumpStrings(r); err != nil {
		return nil, err
	}
	if o.VarNames, err = undumpStrings(r); err != nil {
		return nil, err
	}
	if o.FreeNames, err = undumpStrings(r); err != nil {
		return nil, err
	}
	if o.CellNames, err = undumpStrings(r); err != nil {
		return nil, err
	}
	nparams, err := undumpInt(r)
	if err != nil {
		return nil, err
	}
	for i := 0; i < nparams; i++ {
		var p ParamSlot
		if p.Name, err = undumpString(r); err != nil {
			return nil, err
		}
		cell, err := undumpInt(r)
		if err != nil {
			return nil, err
		}
		p.Cell = cell != 0
		if p.Slot, err = undumpInt(r); err != nil {
			return nil, err
		}
		o.ParamSlots = append(o.ParamSlots, p)
	}
	if o.Filename, err = undumpString(r); err != nil {
		return nil, err
	}
	if o.Name, err = undumpString(r); err != nil {
		return nil, err
	}
	read(&o.FirstLine)
	if err != nil {
		return nil, err
	}
	if o.LineTable, err = undumpBytes(r); err != nil {
		return nil, err
	}
	return o, nil
}

func undumpValue(r undumpReader) (Value, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return Value{}, err
	}
	switch valueKind(kind) {
	case valueNil:
		return NilValue, nil
	case valueBool:
		b, err := r.ReadByte()
		if err != nil {
			return Value{}, err
		}
		return BoolValue(b != 0), nil
	case valueNumber:
		isInt, err := r.ReadByte()
		if err != nil {
			return Value{}, err
		}
		if isInt != 0 {
			i, err := binary.ReadVarint(r)
			if err != nil {
				return Value{}, err
			}
			return IntValue(i), nil
		}
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Value{}, err
		}
		return FloatValue(math.Float64frombits(binary.BigEndian.Uint64(buf[:]))), nil
	case valueString:
		s, err := undumpString(r)
		if err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	case valueCode:
		o, err := undumpObject(r)
		if err != nil {
			return Value{}, err
		}
		return CodeValue(o), nil
	default:
		return Value{}, fmt.Errorf("unknown constant tag %d", kind)
	}
}
