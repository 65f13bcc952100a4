// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

// Package fml compiles Lua 5.3 source text into code objects for a
// small stack-based virtual machine, and embeds just enough of a
// runtime (a global environment, load/loadfile, the operator library)
// to execute the chunks it compiles.
package fml

import (
	"errors"
	"fmt"

	"github.com/fml-lang/fml/internal/bytewriter"
	"github.com/fml-lang/fml/internal/code"
	"github.com/fml-lang/fml/internal/codegen"
	"github.com/fml-lang/fml/internal/parser"
	"github.com/fml-lang/fml/internal/scope"
)

// CodeObject is a fully compiled function body; see [code.Object].
type CodeObject = code.Object

// SyntaxError is the error kind [Compile] reports for any failure in
// the chunk itself: a lexical error, a malformed production, or a
// scope violation. Internal assembler failures are returned as plain
// errors instead; those are compiler bugs, not problems with the
// chunk.
type SyntaxError struct {
	msg string
}

func (e *SyntaxError) Error() string { return e.msg }

// IsSyntaxError reports whether err (or an error it wraps) is a
// [SyntaxError].
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

// Compile compiles a Lua chunk into its top-level code object,
// running the lexer, parser, scope resolver, and code generator to
// completion. filename is recorded in the resulting debug info and
// prefixes error messages.
func Compile(source []byte, filename string) (*CodeObject, error) {
	file, err := parser.Parse(parser.Source(filename), bytewriter.New(source))
	if err != nil {
		return nil, &SyntaxError{msg: err.Error()}
	}
	if err := scope.Resolve(file); err != nil {
		// Scope diagnostics carry only a line; qualify them with the
		// chunk name the way parse errors already are.
		return nil, &SyntaxError{msg: fmt.Sprintf("%s:%v", filename, err)}
	}
	return codegen.Generate(filename, file)
}
