// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package parser

import (
	"github.com/fml-lang/fml/internal/ast"
	"github.com/fml-lang/fml/internal/lexer"
)

const unaryPrec = 12

// binOpInfo reports the precedence and associativity of a binary
// operator token, following the reference manual's table (lowest to
// highest): or, and, comparisons, |, ~, &, << >>, .. (right-assoc),
// + -, * / // %, unary (handled separately), ^ (right-assoc, binds
// tighter than unary).
func binOpInfo(k lexer.TokenKind) (op string, prec int, rightAssoc bool, ok bool) {
	switch k {
	case lexer.OrToken:
		return "or", 1, false, true
	case lexer.AndToken:
		return "and", 2, false, true
	case lexer.LessToken:
		return "<", 3, false, true
	case lexer.GreaterToken:
		return ">", 3, false, true
	case lexer.LessEqualToken:
		return "<=", 3, false, true
	case lexer.GreaterEqualToken:
		return ">=", 3, false, true
	case lexer.NotEqualToken:
		return "~=", 3, false, true
	case lexer.EqualToken:
		return "==", 3, false, true
	case lexer.BitOrToken:
		return "|", 4, false, true
	case lexer.BitXorToken:
		return "~", 5, false, true
	case lexer.BitAndToken:
		return "&", 6, false, true
	case lexer.LShiftToken:
		return "<<", 7, false, true
	case lexer.RShiftToken:
		return ">>", 7, false, true
	case lexer.ConcatToken:
		return "..", 9, true, true
	case lexer.AddToken:
		return "+", 10, false, true
	case lexer.SubToken:
		return "-", 10, false, true
	case lexer.MulToken:
		return "*", 11, false, true
	case lexer.DivToken:
		return "/", 11, false, true
	case lexer.IntDivToken:
		return "//", 11, false, true
	case lexer.ModToken:
		return "%", 11, false, true
	case lexer.PowToken:
		return "^", 14, true, true
	default:
		return "", 0, false, false
	}
}

// expr parses a full expression at the lowest precedence.
func (p *parser) expr() (ast.Expression, error) { return p.binExpr(0) }

func (p *parser) binExpr(minPrec int) (ast.Expression, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.unaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		op, prec, rightAssoc, ok := binOpInfo(p.curr.Kind)
		if !ok || prec < minPrec {
			return left, nil
		}
		b := p.base()
		if err := p.advance(); err != nil {
			return nil, err
		}
		nextMin := prec + 1
		if rightAssoc {
			nextMin = prec
		}
		right, err := p.binExpr(nextMin)
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Base: b, Op: op, Left: left, Right: right}
	}
}

func (p *parser) unaryExpr() (ast.Expression, error) {
	var op string
	switch p.curr.Kind {
	case lexer.NotToken:
		op = "not"
	case lexer.LenToken:
		op = "#"
	case lexer.SubToken:
		op = "-"
	case lexer.BitXorToken:
		op = "~"
	default:
		return p.simpleExpr()
	}
	b := p.base()
	if err := p.advance(); err != nil {
		return nil, err
	}
	operand, err := p.binExpr(unaryPrec)
	if err != nil {
		return nil, err
	}
	return &ast.UnaryOp{Base: b, Op: op, Operand: operand}, nil
}

// simpleExpr parses a literal, a function literal, a table
// constructor, or (falling through) a prefixexp.
func (p *parser) simpleExpr() (ast.Expression, error) {
	b := p.base()
	switch p.curr.Kind {
	case lexer.NilToken:
		return p.consume(&ast.Nil{Base: b})
	case lexer.FalseToken:
		return p.consume(&ast.False{Base: b})
	case lexer.TrueToken:
		return p.consume(&ast.True{Base: b})
	case lexer.NumeralToken:
		n := &ast.Number{Base: b, Literal: p.curr.Value}
		return p.consume(n)
	case lexer.StringToken:
		s := &ast.String{Base: b, Value: p.curr.Value}
		return p.consume(s)
	case lexer.VarargToken:
		return p.consume(&ast.Ellipsis{Base: b})
	case lexer.FunctionToken:
		if err := p.advance(); err != nil {
			return nil, err
		}
		pars, body, err := p.funcBody(false)
		if err != nil {
			return nil, err
		}
		return &ast.FunctionExpr{Base: b, Pars: pars, Body: body}, nil
	case lexer.LBraceToken:
		return p.tableConstructor()
	default:
		return p.suffixedExpr()
	}
}

// consume returns n after advancing past the current token, for
// single-token literal productions.
func (p *parser) consume(n ast.Expression) (ast.Expression, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	return n, nil
}

// primaryExpr parses a parenthesized expression or a bare Name.
func (p *parser) primaryExpr() (ast.Expression, error) {
	b := p.base()
	if p.curr.Kind == lexer.LParenToken {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.checkMatch(lexer.RParenToken, "')'", lexer.LParenToken, b.Line); err != nil {
			return nil, err
		}
		// A parenthesized expression is truncated to exactly one value,
		// even if it wraps a Call or Ellipsis; codegen distinguishes
		// this from the bare, possibly-multivalued form.
		return &parenExpr{Expression: e}, nil
	}
	name, err := p.expect(lexer.IdentifierToken, "<name>")
	if err != nil {
		return nil, err
	}
	return &ast.Name{Base: b, ID: name.Value}, nil
}

// parenExpr wraps an expression in source parentheses, truncating it
// to a single value regardless of how many the inner expression could
// produce.
type parenExpr struct {
	ast.Expression
}

// Inner returns the wrapped expression, for codegen to special-case
// Call/Ellipsis truncation.
func (p *parenExpr) Inner() ast.Expression { return p.Expression }

// suffixedExpr parses a prefixexp: a primary expression followed by
// any number of '.', '[', ':', or call suffixes.
func (p *parser) suffixedExpr() (ast.Expression, error) {
	e, err := p.primaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		b := p.base()
		switch p.curr.Kind {
		case lexer.DotToken:
			if err := p.advance(); err != nil {
				return nil, err
			}
			name, err := p.expect(lexer.IdentifierToken, "<name>")
			if err != nil {
				return nil, err
			}
			e = &ast.Attribute{Base: b, Value: e, Attr: &ast.Name{Base: b, ID: name.Value}}
		case lexer.LBracketToken:
			if err := p.advance(); err != nil {
				return nil, err
			}
			idx, err := p.expr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBracketToken, "']'"); err != nil {
				return nil, err
			}
			e = &ast.Subscript{Base: b, Value: e, Index: idx}
		case lexer.ColonToken:
			if err := p.advance(); err != nil {
				return nil, err
			}
			name, err := p.expect(lexer.IdentifierToken, "<name>")
			if err != nil {
				return nil, err
			}
			method := &ast.Method{Base: b, Value: e, Method: &ast.Name{Base: b, ID: name.Value}}
			args, err := p.callArgs()
			if err != nil {
				return nil, err
			}
			e = &ast.Call{Base: b, Func: method, Args: args}
		case lexer.LParenToken, lexer.LBraceToken, lexer.StringToken:
			args, err := p.callArgs()
			if err != nil {
				return nil, err
			}
			e = &ast.Call{Base: b, Func: e, Args: args}
		default:
			return e, nil
		}
	}
}

// callArgs parses '(' [explist] ')' | tableconstructor | LiteralString.
func (p *parser) callArgs() ([]ast.Expression, error) {
	switch p.curr.Kind {
	case lexer.StringToken:
		s := &ast.String{Base: p.base(), Value: p.curr.Value}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return []ast.Expression{s}, nil
	case lexer.LBraceToken:
		t, err := p.tableConstructor()
		if err != nil {
			return nil, err
		}
		return []ast.Expression{t}, nil
	case lexer.LParenToken:
		b := p.base()
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.curr.Kind == lexer.RParenToken {
			return nil, p.advance()
		}
		args, err := p.exprList()
		if err != nil {
			return nil, err
		}
		if err := p.checkMatch(lexer.RParenToken, "')'", lexer.LParenToken, b.Line); err != nil {
			return nil, err
		}
		return args, nil
	default:
		return nil, p.syntaxErrorf("function arguments expected")
	}
}

// tableConstructor parses '{' fields '}'.
func (p *parser) tableConstructor() (ast.Expression, error) {
	b := p.base()
	if err := p.advance(); err != nil {
		return nil, err
	}
	var fields []*ast.Field
	for p.curr.Kind != lexer.RBraceToken {
		field, err := p.tableField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
		if p.curr.Kind == lexer.CommaToken || p.curr.Kind == lexer.SemiToken {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.checkMatch(lexer.RBraceToken, "'}'", lexer.LBraceToken, b.Line); err != nil {
		return nil, err
	}
	return &ast.Table{Base: b, Fields: fields}, nil
}

func (p *parser) tableField() (*ast.Field, error) {
	b := p.base()
	if p.curr.Kind == lexer.LBracketToken {
		if err := p.advance(); err != nil {
			return nil, err
		}
		key, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBracketToken, "']'"); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.AssignToken, "'='"); err != nil {
			return nil, err
		}
		value, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &ast.Field{Base: b, Key: key, Value: value}, nil
	}
	if p.curr.Kind == lexer.IdentifierToken {
		next, err := p.peek()
		if err != nil {
			return nil, err
		}
		if next.Kind == lexer.AssignToken {
			name := p.curr.Value
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			value, err := p.expr()
			if err != nil {
				return nil, err
			}
			return &ast.Field{Base: b, Key: &ast.String{Base: b, Value: name}, Value: value}, nil
		}
	}
	value, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &ast.Field{Base: b, Value: value}, nil
}
