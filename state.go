// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package fml

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fml-lang/fml/internal/bufseek"
	"github.com/fml-lang/fml/internal/builtins"
	"github.com/fml-lang/fml/internal/code"
	"github.com/fml-lang/fml/internal/interp"
)

// Value is a runtime Lua value; see [interp.Value].
type Value = interp.Value

// LuaState is an embedded runtime instance: a global environment
// (_ENV) plus the bookkeeping the base library needs. A LuaState is
// not safe for concurrent use; create one per goroutine.
type LuaState struct {
	env    *interp.Table
	loaded map[string]Value
}

// NewState returns a LuaState with an empty environment. Call
// [LuaState.OpenLibs] to populate it before running chunks that use
// any library function (including every chunk containing an operator
// the code generator lowers to a library call).
func NewState() *LuaState {
	return &LuaState{
		env:    interp.NewTable(),
		loaded: make(map[string]Value),
	}
}

// Globals returns the state's environment table, through which every
// global read and write in compiled chunks resolves.
func (st *LuaState) Globals() *interp.Table { return st.env }

// OpenLibs registers the base library: the hidden operator builtins,
// tonumber, load, loadfile, and the _ENV/_G self references.
func (st *LuaState) OpenLibs() {
	builtins.Open(st.env)
	self := interp.FromTable(st.env)
	st.env.Set(interp.String("_ENV"), self)
	st.env.Set(interp.String("_G"), self)
	st.loaded["_G"] = self
	st.registerGo("load", st.luaLoad)
	st.registerGo("loadfile", st.luaLoadfile)
	st.registerGo("print", st.luaPrint)
}

func (st *LuaState) registerGo(name string, fn func(args []Value) ([]Value, error)) {
	st.env.Set(interp.String(name), interp.FromCallable(&interp.GoFunction{Name: name, Fn: fn}))
}

// Load turns chunk into a callable value. A chunk beginning with the
// dump signature is undumped (if mode contains 'b'); anything else is
// compiled as source (if mode contains 't'). mode defaults to "bt";
// env defaults to the state's own environment.
func (st *LuaState) Load(chunk []byte, chunkname, mode string, env *interp.Table) (Value, error) {
	if mode == "" {
		mode = "bt"
	}
	if env == nil {
		env = st.env
	}

	var proto *code.Object
	var err error
	if strings.HasPrefix(string(chunk), code.Signature) {
		if !strings.Contains(mode, "b") {
			return interp.Nil, fmt.Errorf("attempt to load a binary chunk (mode is '%s')", mode)
		}
		proto, err = code.Undump(chunk)
	} else {
		if !strings.Contains(mode, "t") {
			return interp.Nil, fmt.Errorf("attempt to load a text chunk (mode is '%s')", mode)
		}
		if chunkname == "" {
			chunkname = "=(load)"
		}
		proto, err = Compile(chunk, chunkname)
	}
	if err != nil {
		return interp.Nil, err
	}
	return st.wrap(proto, env), nil
}

// LoadFile reads path and loads it like [LuaState.Load]. The file is
// sniffed through a buffered seeking reader: the first bytes decide
// binary versus text, then the read restarts from the top.
func (st *LuaState) LoadFile(path, mode string, env *interp.Table) (Value, error) {
	f, err := os.Open(path)
	if err != nil {
		return interp.Nil, err
	}
	defer f.Close()

	r := bufseek.NewReader(f)
	sig := make([]byte, len(code.Signature))
	if _, err := io.ReadFull(r, sig); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return interp.Nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return interp.Nil, err
	}
	chunk, err := io.ReadAll(r)
	if err != nil {
		return interp.Nil, err
	}
	return st.Load(chunk, "@"+path, mode, env)
}

// wrap binds proto to env as a callable value.
func (st *LuaState) wrap(proto *code.Object, env *interp.Table) Value {
	return interp.FromCallable(&interp.GoFunction{
		Name: proto.Name,
		Fn: func(args []Value) ([]Value, error) {
			return interp.Exec(proto, args, env)
		},
	})
}

// Run compiles source and executes it immediately with the given
// arguments, returning the chunk's value tuple.
func (st *LuaState) Run(source []byte, chunkname string, args ...Value) ([]Value, error) {
	proto, err := Compile(source, chunkname)
	if err != nil {
		return nil, err
	}
	return st.Exec(proto, args...)
}

// Exec executes an already-compiled code object against the state's
// environment.
func (st *LuaState) Exec(proto *CodeObject, args ...Value) ([]Value, error) {
	return interp.Exec(proto, args, st.env)
}

// luaLoad is the Lua-visible load(chunk [, chunkname [, mode [, env]]]).
// Following the reference behavior, a failure returns (nil, message)
// rather than raising.
func (st *LuaState) luaLoad(args []Value) ([]Value, error) {
	chunkArg := argOrNil(args, 0)
	s, ok := chunkArg.AsString()
	if !ok {
		return nil, fmt.Errorf("bad argument #1 to 'load' (string expected, got %s)", chunkArg.TypeName())
	}
	chunkname, _ := argOrNil(args, 1).AsString()
	mode, _ := argOrNil(args, 2).AsString()
	env := st.env
	if t, ok := argOrNil(args, 3).AsTable(); ok {
		env = t
	}
	fn, err := st.Load([]byte(s), chunkname, mode, env)
	if err != nil {
		return []Value{interp.Nil, interp.String(err.Error())}, nil
	}
	return []Value{fn}, nil
}

// luaLoadfile is the Lua-visible loadfile(path [, mode [, env]]).
func (st *LuaState) luaLoadfile(args []Value) ([]Value, error) {
	path, ok := argOrNil(args, 0).AsString()
	if !ok {
		return nil, fmt.Errorf("bad argument #1 to 'loadfile' (string expected, got %s)", argOrNil(args, 0).TypeName())
	}
	mode, _ := argOrNil(args, 1).AsString()
	env := st.env
	if t, ok := argOrNil(args, 2).AsTable(); ok {
		env = t
	}
	fn, err := st.LoadFile(path, mode, env)
	if err != nil {
		return []Value{interp.Nil, interp.String(err.Error())}, nil
	}
	return []Value{fn}, nil
}

func (st *LuaState) luaPrint(args []Value) ([]Value, error) {
	parts := make([]string, len(args))
	for i, v := range args {
		parts[i] = v.String()
	}
	fmt.Println(strings.Join(parts, "\t"))
	return nil, nil
}

func argOrNil(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return interp.Nil
}
