// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

// Package parser turns a token stream from [lexer] into an [ast.File].
// It is a hand-written recursive-descent parser with precedence
// climbing for binary operators, shaped like Lua's own single-pass
// parser: the grammar is expressed directly as Go control flow rather
// than through generated tables.
package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fml-lang/fml/internal/ast"
	"github.com/fml-lang/fml/internal/lexer"
)

// depthLimit bounds recursive-descent nesting (parenthesized
// expressions, nested blocks) to avoid blowing the Go call stack on
// pathological input.
const depthLimit = 200

var errDepthExceeded = errors.New("chunk has too many syntax levels")

// Source identifies the chunk being parsed, for error messages and
// the resulting debug info.
type Source string

func (s Source) String() string { return string(s) }

// Parse reads a complete Lua chunk from r and returns its syntax
// tree.
func Parse(source Source, r io.ByteScanner) (*ast.File, error) {
	p := &parser{source: source, ls: lexer.NewScanner(r)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.curr.Kind == lexer.ShebangToken {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if p.curr.Kind != lexer.ErrorToken {
		return nil, p.syntaxErrorf("unexpected %s", p.curr)
	}
	return &ast.File{
		Base: ast.NewBase(1, 0),
		Body: body,
	}, nil
}

type parser struct {
	source Source
	ls     *lexer.Scanner

	curr, next lexer.Token
	hasNext    bool

	depth int
}

func (p *parser) advance() error {
	if p.hasNext {
		p.curr = p.next
		p.hasNext = false
		return nil
	}
	tok, err := p.ls.Scan()
	if err != nil {
		if err == io.EOF {
			p.curr = lexer.Token{Kind: lexer.ErrorToken}
			return nil
		}
		return fmt.Errorf("%s: %w", p.source, err)
	}
	p.curr = tok
	return nil
}

func (p *parser) peek() (lexer.Token, error) {
	if !p.hasNext {
		tok, err := p.ls.Scan()
		if err != nil {
			if err == io.EOF {
				tok = lexer.Token{Kind: lexer.ErrorToken}
			} else {
				return lexer.Token{}, fmt.Errorf("%s: %w", p.source, err)
			}
		}
		p.next = tok
		p.hasNext = true
	}
	return p.next, nil
}

func (p *parser) pos() ast.Position {
	return ast.Position{Line: p.curr.Position.Line, Index: p.curr.Position.Column}
}

func (p *parser) base() ast.Base { return ast.NewBase(p.curr.Position.Line, p.curr.Position.Column) }

func (p *parser) syntaxErrorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return syntaxError(p.source, p.curr, msg)
}

func syntaxError(source Source, tok lexer.Token, msg string) error {
	sb := new(strings.Builder)
	if source == "" {
		sb.WriteString("?")
	} else {
		sb.WriteString(source.String())
	}
	if tok.Position.IsValid() {
		sb.WriteString(":")
		sb.WriteString(tok.Position.String())
	}
	sb.WriteString(": ")
	sb.WriteString(msg)
	if tok.Kind != lexer.ErrorToken {
		sb.WriteString(" near ")
		sb.WriteString(tok.String())
	}
	return errors.New(sb.String())
}

// expect consumes the current token if it has kind k, otherwise
// reports a syntax error naming what.
func (p *parser) expect(k lexer.TokenKind, what string) (lexer.Token, error) {
	if p.curr.Kind != k {
		return lexer.Token{}, p.syntaxErrorf("%s expected", what)
	}
	tok := p.curr
	if err := p.advance(); err != nil {
		return lexer.Token{}, err
	}
	return tok, nil
}

// checkMatch consumes a closing token k, reporting which opening
// token (at openLine) it was supposed to match if absent.
func (p *parser) checkMatch(k lexer.TokenKind, what string, open lexer.TokenKind, openLine int) error {
	if p.curr.Kind == k {
		return p.advance()
	}
	if openLine == p.curr.Position.Line {
		return p.syntaxErrorf("%s expected", what)
	}
	return p.syntaxErrorf("%s expected (to close %s at line %d)", what, tokenDescription(open), openLine)
}

func tokenDescription(k lexer.TokenKind) string {
	return fmt.Sprintf("'%s'", lexer.Token{Kind: k}.String())
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > depthLimit {
		return errDepthExceeded
	}
	return nil
}

func (p *parser) leave() { p.depth-- }
