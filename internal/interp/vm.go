// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package interp

import (
	"fmt"

	"github.com/fml-lang/fml/internal/code"
)

// frame holds the mutable state of one function activation: its
// operand stack, fast locals, and captured-variable cells.
type frame struct {
	proto   *code.Object
	globals *Table
	consts  []Value // proto.Constants, converted afresh on each activation (closures share the code.Value, each activation builds its own Closure)

	fast  []Value // VarNames-indexed
	deref []*Cell // [0:len(CellNames)) own cells, [len(CellNames):) copied from the enclosing closure's Free, in FreeNames order

	stack []Value
}

// Exec runs proto as a fresh top-level activation with args bound the
// way a Lua call binds a parameter list (missing arguments become
// nil, extra ones go to the hidden vararg local), and returns the
// tuple it returns.
func Exec(proto *code.Object, args []Value, globals *Table) ([]Value, error) {
	return execClosure(&Closure{Proto: proto}, args, globals)
}

// Call invokes any Callable value with args, dispatching to the
// bytecode interpreter for a *Closure or straight through to Go for a
// *GoFunction.
func Call(c Callable, args []Value, globals *Table) ([]Value, error) {
	switch fn := c.(type) {
	case *Closure:
		return execClosure(fn, args, globals)
	case *GoFunction:
		return fn.Fn(args)
	default:
		return nil, fmt.Errorf("interp: unsupported callable %T", c)
	}
}

func execClosure(cl *Closure, args []Value, globals *Table) ([]Value, error) {
	proto := cl.Proto
	fr := &frame{
		proto:   proto,
		globals: globals,
		consts:  convertConstants(proto.Constants),
		fast:    make([]Value, len(proto.VarNames)),
		deref:   make([]*Cell, len(proto.CellNames)+len(proto.FreeNames)),
	}
	for i := range proto.CellNames {
		fr.deref[i] = new(Cell)
	}
	copy(fr.deref[len(proto.CellNames):], cl.Free)
	if err := bindArgs(fr, proto, args); err != nil {
		return nil, err
	}
	return fr.run()
}

// bindArgs copies the leading proto.ArgCount values of args into the
// slots proto.ParamSlots assigns them and, if proto is varargs,
// collects the remainder into the hidden "..." local (always the final
// ParamSlots entry).
func bindArgs(fr *frame, proto *code.Object, args []Value) error {
	slots := proto.ParamSlots
	n := proto.ArgCount
	if n > len(slots) {
		return fmt.Errorf("internal error: %d parameters but only %d parameter slots", n, len(slots))
	}
	for i := 0; i < n; i++ {
		var v Value
		if i < len(args) {
			v = args[i]
		}
		storeParamSlot(fr, slots[i], v)
	}
	if proto.IsVarargs() && len(slots) > n {
		var extra []Value
		if len(args) > n {
			extra = append(extra, args[n:]...)
		}
		storeParamSlot(fr, slots[len(slots)-1], FromTuple(extra))
	}
	return nil
}

func storeParamSlot(fr *frame, slot code.ParamSlot, v Value) {
	if slot.Cell {
		fr.deref[slot.Slot].Value = v
	} else {
		fr.fast[slot.Slot] = v
	}
}

func convertConstants(consts []code.Value) []Value {
	out := make([]Value, len(consts))
	for i, c := range consts {
		out[i] = convertConstant(c)
	}
	return out
}

func convertConstant(c code.Value) Value {
	if c.IsNil() {
		return Nil
	}
	if b, ok := c.Bool(); ok {
		return Bool(b)
	}
	if i, ok := c.Int(); ok {
		return Int(i)
	}
	if f, ok := c.Float(); ok {
		return Float(f)
	}
	if s, ok := c.String(); ok {
		return String(s)
	}
	if c.IsCode() {
		return FromCode(c.Code())
	}
	return Nil
}

// run executes fr's function body to completion and returns its
// RETURN_VALUE tuple.
func (fr *frame) run() ([]Value, error) {
	pc := 0
	codeBytes := fr.proto.Code
	for pc < len(codeBytes) {
		op := code.OpCode(codeBytes[pc])
		arg := int(codeBytes[pc+1])
		pc += 2
		for op == code.OpExtendedArg {
			op = code.OpCode(codeBytes[pc])
			arg = arg<<8 | int(codeBytes[pc+1])
			pc += 2
		}
		line := lineForOffset(fr.proto, pc-2)
		next, ret, err := fr.step(op, arg, pc)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", fr.proto.Filename, line, err)
		}
		if ret != nil {
			return ret, nil
		}
		pc = next
	}
	return nil, fmt.Errorf("%s: fell off the end of the instruction stream", fr.proto.Filename)
}

func lineForOffset(proto *code.Object, offset int) int {
	return code.LineForOffset(proto.LineTable, proto.FirstLine, offset)
}

func (fr *frame) push(v Value)  { fr.stack = append(fr.stack, v) }
func (fr *frame) pop() Value {
	v := fr.stack[len(fr.stack)-1]
	fr.stack = fr.stack[:len(fr.stack)-1]
	return v
}
func (fr *frame) top() Value { return fr.stack[len(fr.stack)-1] }

// step executes one instruction (already positioned at byte offset
// pc, the position of whatever comes next) and returns either the
// next pc to resume at, or a non-nil return tuple if the instruction
// was RETURN_VALUE.
func (fr *frame) step(op code.OpCode, arg int, pc int) (next int, ret []Value, err error) {
	switch op {
	case code.OpPopTop:
		fr.pop()
	case code.OpRotTwo:
		n := len(fr.stack)
		fr.stack[n-1], fr.stack[n-2] = fr.stack[n-2], fr.stack[n-1]
	case code.OpRotThree:
		n := len(fr.stack)
		fr.stack[n-1], fr.stack[n-2], fr.stack[n-3] = fr.stack[n-2], fr.stack[n-3], fr.stack[n-1]
	case code.OpRotFour:
		n := len(fr.stack)
		fr.stack[n-1], fr.stack[n-2], fr.stack[n-3], fr.stack[n-4] =
			fr.stack[n-2], fr.stack[n-3], fr.stack[n-4], fr.stack[n-1]
	case code.OpDupTop:
		fr.push(fr.top())
	case code.OpBinarySubscr:
		key := fr.pop()
		obj := fr.pop()
		v, err := subscript(obj, key)
		if err != nil {
			return 0, nil, err
		}
		fr.push(v)
	case code.OpStoreSubscr:
		value := fr.pop()
		key := fr.pop()
		obj := fr.pop()
		if err := storeSubscript(obj, key, value); err != nil {
			return 0, nil, err
		}
	case code.OpBinaryAdd:
		r := fr.pop()
		l := fr.pop()
		v, err := arithAdd(l, r)
		if err != nil {
			return 0, nil, err
		}
		fr.push(v)
	case code.OpBinaryMultiply:
		r := fr.pop()
		l := fr.pop()
		v, err := arithMul(l, r)
		if err != nil {
			return 0, nil, err
		}
		fr.push(v)
	case code.OpGetIter:
		// Unused by this codegen (for loops never emit GET_ITER/FOR_ITER);
		// kept only so an instruction stream containing it fails loudly
		// rather than silently misbehaving.
		return 0, nil, fmt.Errorf("internal error: GET_ITER is not implemented")
	case code.OpReturnValue:
		v := fr.pop()
		vs, ok := v.AsTuple()
		if !ok {
			return 0, nil, fmt.Errorf("internal error: RETURN_VALUE of a non-tuple")
		}
		return 0, vs, nil
	case code.OpLoadConst:
		fr.push(fr.consts[arg])
	case code.OpLoadFast:
		fr.push(fr.fast[arg])
	case code.OpStoreFast:
		fr.fast[arg] = fr.pop()
	case code.OpLoadDeref:
		fr.push(fr.deref[arg].Value)
	case code.OpStoreDeref:
		fr.deref[arg].Value = fr.pop()
	case code.OpLoadGlobal:
		fr.push(fr.globals.Get(String(fr.proto.Names[arg])))
	case code.OpStoreGlobal:
		fr.globals.Set(String(fr.proto.Names[arg]), fr.pop())
	case code.OpLoadClosure:
		fr.push(FromCellRef(fr.deref[arg]))
	case code.OpMakeFunction:
		if err := fr.makeFunction(arg); err != nil {
			return 0, nil, err
		}
	case code.OpBuildTuple:
		vs := make([]Value, arg)
		for i := arg - 1; i >= 0; i-- {
			vs[i] = fr.pop()
		}
		fr.push(FromTuple(vs))
	case code.OpBuildTupleUnpack:
		var parts [][]Value
		for i := 0; i < arg; i++ {
			parts = append(parts, nil)
		}
		for i := arg - 1; i >= 0; i-- {
			vs, ok := fr.pop().AsTuple()
			if !ok {
				return 0, nil, fmt.Errorf("internal error: BUILD_TUPLE_UNPACK of a non-tuple")
			}
			parts[i] = vs
		}
		var out []Value
		for _, p := range parts {
			out = append(out, p...)
		}
		fr.push(FromTuple(out))
	case code.OpUnpackEx:
		vs, ok := fr.pop().AsTuple()
		if !ok {
			return 0, nil, fmt.Errorf("internal error: UNPACK_EX of a non-tuple")
		}
		var head Value
		var rest []Value
		if len(vs) > 0 {
			head = vs[0]
			rest = vs[1:]
		}
		fr.push(FromTuple(rest))
		fr.push(head)
	case code.OpBuildMap:
		for i := 0; i < arg; i++ {
			fr.pop()
			fr.pop()
		}
		fr.push(FromTable(NewTable()))
	case code.OpMapAdd:
		value := fr.pop()
		key := fr.pop()
		fr.pop() // the duplicated table reference; the original stays underneath
		t, ok := fr.top().AsTable()
		if !ok {
			return 0, nil, fmt.Errorf("internal error: MAP_ADD target is not a table")
		}
		t.Set(key, value)
	case code.OpCallFunction:
		args := make([]Value, arg)
		for i := arg - 1; i >= 0; i-- {
			args[i] = fr.pop()
		}
		fn := fr.pop()
		vs, err := fr.call(fn, args)
		if err != nil {
			return 0, nil, err
		}
		fr.push(FromTuple(vs))
	case code.OpCallFunctionEx:
		argsTuple, ok := fr.pop().AsTuple()
		if !ok {
			return 0, nil, fmt.Errorf("internal error: CALL_FUNCTION_EX args are not a tuple")
		}
		fn := fr.pop()
		vs, err := fr.call(fn, argsTuple)
		if err != nil {
			return 0, nil, err
		}
		fr.push(FromTuple(vs))
	case code.OpCompareOp:
		r := fr.pop()
		l := fr.pop()
		v, err := compare(arg, l, r)
		if err != nil {
			return 0, nil, err
		}
		fr.push(v)
	case code.OpJumpAbsolute:
		return arg, nil, nil
	case code.OpPopJumpIfFalse:
		v := fr.pop()
		if !v.Truthy() {
			return arg, nil, nil
		}
	case code.OpPopJumpIfTrue:
		v := fr.pop()
		if v.Truthy() {
			return arg, nil, nil
		}
	case code.OpJumpIfTrueOrPop:
		if fr.top().Truthy() {
			return arg, nil, nil
		}
		fr.pop()
	default:
		return 0, nil, fmt.Errorf("internal error: unhandled opcode %v", op)
	}
	return pc, nil, nil
}

func (fr *frame) call(fn Value, args []Value) ([]Value, error) {
	c, ok := fn.AsCallable()
	if !ok {
		return nil, fmt.Errorf("attempt to call a %s value", fn.TypeName())
	}
	return Call(c, args, fr.globals)
}

// makeFunction pops the qualname, the code constant, and (if flags&0x8)
// a tuple of captured cells, building a *Closure wrapping the nested
// [*code.Object].
func (fr *frame) makeFunction(flags int) error {
	qualnameV := fr.pop()
	codeV := fr.pop()
	qualname, _ := qualnameV.AsString()
	proto, ok := codeV.AsCode()
	if !ok {
		return fmt.Errorf("internal error: MAKE_FUNCTION code operand is not a code object")
	}
	cl := &Closure{Proto: proto, Name: qualname}
	if flags&0x8 != 0 {
		cellsV := fr.pop()
		tuple, ok := cellsV.AsTuple()
		if !ok {
			return fmt.Errorf("internal error: MAKE_FUNCTION closure operand is not a tuple")
		}
		cl.Free = make([]*Cell, len(tuple))
		for i, v := range tuple {
			c, ok := v.AsCellRef()
			if !ok {
				return fmt.Errorf("internal error: MAKE_FUNCTION closure element is not a cell")
			}
			cl.Free[i] = c
		}
	}
	fr.push(FromCallable(cl))
	return nil
}

