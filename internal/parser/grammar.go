// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package parser

import (
	"github.com/fml-lang/fml/internal/ast"
	"github.com/fml-lang/fml/internal/lexer"
)

// block parses {stat} [retstat], stopping at a token that follows a
// block (end/else/elseif/until/eof).
func (p *parser) block() ([]ast.Statement, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	var body []ast.Statement
	for !isBlockFollow(p.curr.Kind) {
		if p.curr.Kind == lexer.ReturnToken {
			stmt, err := p.returnStatement()
			if err != nil {
				return nil, err
			}
			body = append(body, stmt)
			break
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			body = append(body, stmt)
		}
	}
	return body, nil
}

func isBlockFollow(k lexer.TokenKind) bool {
	switch k {
	case lexer.ElseToken, lexer.ElseifToken, lexer.EndToken, lexer.UntilToken, lexer.ErrorToken:
		return true
	default:
		return false
	}
}

func (p *parser) statement() (ast.Statement, error) {
	b := p.base()
	switch p.curr.Kind {
	case lexer.SemiToken:
		return nil, p.advance()
	case lexer.IfToken:
		return p.ifStatement()
	case lexer.WhileToken:
		return p.whileStatement()
	case lexer.DoToken:
		if err := p.advance(); err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		if err := p.checkMatch(lexer.EndToken, "'end'", lexer.DoToken, b.Line); err != nil {
			return nil, err
		}
		return &ast.Block{Base: b, Body: body}, nil
	case lexer.ForToken:
		return p.forStatement()
	case lexer.RepeatToken:
		return p.repeatStatement()
	case lexer.FunctionToken:
		return p.functionStatement()
	case lexer.LocalToken:
		return p.localStatement()
	case lexer.LabelToken:
		return p.labelStatement()
	case lexer.BreakToken:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Break{Base: b}, nil
	case lexer.GotoToken:
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.expect(lexer.IdentifierToken, "<name>")
		if err != nil {
			return nil, err
		}
		return &ast.Goto{Base: b, Target: name.Value}, nil
	default:
		return p.exprStatement()
	}
}

func (p *parser) ifStatement() (ast.Statement, error) {
	b := p.base()
	if err := p.advance(); err != nil {
		return nil, err
	}
	test, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ThenToken, "'then'"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	var elseBody []ast.Statement
	switch p.curr.Kind {
	case lexer.ElseifToken:
		stmt, err := p.ifStatement()
		if err != nil {
			return nil, err
		}
		elseBody = []ast.Statement{stmt}
		return &ast.If{Base: b, Test: test, Body: body, Else: elseBody}, nil
	case lexer.ElseToken:
		if err := p.advance(); err != nil {
			return nil, err
		}
		elseBody, err = p.block()
		if err != nil {
			return nil, err
		}
	}
	if err := p.checkMatch(lexer.EndToken, "'end'", lexer.IfToken, b.Line); err != nil {
		return nil, err
	}
	return &ast.If{Base: b, Test: test, Body: body, Else: elseBody}, nil
}

func (p *parser) whileStatement() (ast.Statement, error) {
	b := p.base()
	if err := p.advance(); err != nil {
		return nil, err
	}
	test, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.DoToken, "'do'"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if err := p.checkMatch(lexer.EndToken, "'end'", lexer.WhileToken, b.Line); err != nil {
		return nil, err
	}
	return &ast.While{Base: b, Test: test, Body: body}, nil
}

func (p *parser) repeatStatement() (ast.Statement, error) {
	b := p.base()
	if err := p.advance(); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if err := p.checkMatch(lexer.UntilToken, "'until'", lexer.RepeatToken, b.Line); err != nil {
		return nil, err
	}
	test, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &ast.Repeat{Base: b, Body: body, Test: test}, nil
}

func (p *parser) forStatement() (ast.Statement, error) {
	b := p.base()
	if err := p.advance(); err != nil {
		return nil, err
	}
	first, err := p.expect(lexer.IdentifierToken, "<name>")
	if err != nil {
		return nil, err
	}
	firstName := &ast.Name{Base: b, ID: first.Value}
	if p.curr.Kind == lexer.AssignToken {
		return p.numericFor(b, firstName)
	}
	return p.genericFor(b, firstName)
}

func (p *parser) numericFor(b ast.Base, target *ast.Name) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	start, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.CommaToken, "','"); err != nil {
		return nil, err
	}
	stop, err := p.expr()
	if err != nil {
		return nil, err
	}
	var step ast.Expression
	if p.curr.Kind == lexer.CommaToken {
		if err := p.advance(); err != nil {
			return nil, err
		}
		step, err = p.expr()
		if err != nil {
			return nil, err
		}
	} else {
		step = &ast.Number{Base: b, Literal: "1"}
	}
	if _, err := p.expect(lexer.DoToken, "'do'"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if err := p.checkMatch(lexer.EndToken, "'end'", lexer.ForToken, b.Line); err != nil {
		return nil, err
	}
	return &ast.For{Base: b, Start: start, Stop: stop, Step: step, Target: target, Body: body}, nil
}

func (p *parser) genericFor(b ast.Base, first *ast.Name) (ast.Statement, error) {
	targets := []*ast.Name{first}
	for p.curr.Kind == lexer.CommaToken {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.expect(lexer.IdentifierToken, "<name>")
		if err != nil {
			return nil, err
		}
		targets = append(targets, &ast.Name{Base: p.base(), ID: n.Value})
	}
	if _, err := p.expect(lexer.InToken, "'in'"); err != nil {
		return nil, err
	}
	iter, err := p.exprList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.DoToken, "'do'"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if err := p.checkMatch(lexer.EndToken, "'end'", lexer.ForToken, b.Line); err != nil {
		return nil, err
	}
	return &ast.ForEach{Base: b, Iter: iter, Targets: targets, Body: body}, nil
}

func (p *parser) functionStatement() (ast.Statement, error) {
	b := p.base()
	if err := p.advance(); err != nil {
		return nil, err
	}
	n, err := p.expect(lexer.IdentifierToken, "<name>")
	if err != nil {
		return nil, err
	}
	var name ast.FuncName = &ast.Name{Base: b, ID: n.Value}
	isMethod := false
	for p.curr.Kind == lexer.DotToken {
		if err := p.advance(); err != nil {
			return nil, err
		}
		attr, err := p.expect(lexer.IdentifierToken, "<name>")
		if err != nil {
			return nil, err
		}
		name = &ast.Attribute{Base: b, Value: name, Attr: &ast.Name{Base: b, ID: attr.Value}}
	}
	if p.curr.Kind == lexer.ColonToken {
		if err := p.advance(); err != nil {
			return nil, err
		}
		meth, err := p.expect(lexer.IdentifierToken, "<name>")
		if err != nil {
			return nil, err
		}
		name = &ast.Method{Base: b, Value: name, Method: &ast.Name{Base: b, ID: meth.Value}}
		isMethod = true
	}
	pars, body, err := p.funcBody(isMethod)
	if err != nil {
		return nil, err
	}
	return &ast.Function{Base: b, Name: name, Pars: pars, Body: body}, nil
}

// funcBody parses '(' [parlist] ')' block 'end'. If isMethod, an
// implicit leading "self" parameter is injected.
func (p *parser) funcBody(isMethod bool) (*ast.Parameters, []ast.Statement, error) {
	b := p.base()
	if _, err := p.expect(lexer.LParenToken, "'('"); err != nil {
		return nil, nil, err
	}
	var names []*ast.Name
	if isMethod {
		names = append(names, &ast.Name{Base: b, ID: "self"})
	}
	varargs := false
	if p.curr.Kind != lexer.RParenToken {
		for {
			if p.curr.Kind == lexer.VarargToken {
				varargs = true
				if err := p.advance(); err != nil {
					return nil, nil, err
				}
				break
			}
			n, err := p.expect(lexer.IdentifierToken, "<name>")
			if err != nil {
				return nil, nil, err
			}
			names = append(names, &ast.Name{Base: p.base(), ID: n.Value})
			if p.curr.Kind != lexer.CommaToken {
				break
			}
			if err := p.advance(); err != nil {
				return nil, nil, err
			}
		}
	}
	if _, err := p.expect(lexer.RParenToken, "')'"); err != nil {
		return nil, nil, err
	}
	pars := &ast.Parameters{Base: b, Names: names, Varargs: varargs}
	body, err := p.block()
	if err != nil {
		return nil, nil, err
	}
	if err := p.checkMatch(lexer.EndToken, "'end'", lexer.FunctionToken, b.Line); err != nil {
		return nil, nil, err
	}
	return pars, body, nil
}

func (p *parser) localStatement() (ast.Statement, error) {
	b := p.base()
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.curr.Kind == lexer.FunctionToken {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.expect(lexer.IdentifierToken, "<name>")
		if err != nil {
			return nil, err
		}
		name := &ast.Name{Base: b, ID: n.Value}
		pars, body, err := p.funcBody(false)
		if err != nil {
			return nil, err
		}
		return &ast.FunctionLocal{Base: b, Name: name, Pars: pars, Body: body}, nil
	}
	var targets []*ast.Name
	for {
		n, err := p.expect(lexer.IdentifierToken, "<name>")
		if err != nil {
			return nil, err
		}
		targets = append(targets, &ast.Name{Base: p.base(), ID: n.Value})
		if p.curr.Kind == lexer.LessToken {
			// attrib: local x <const> / <close>. Attributes are parsed
			// and discarded: neither affects code generation here.
			if err := p.advance(); err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.IdentifierToken, "<name>"); err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.GreaterToken, "'>'"); err != nil {
				return nil, err
			}
		}
		if p.curr.Kind != lexer.CommaToken {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	var values []ast.Expression
	if p.curr.Kind == lexer.AssignToken {
		if err := p.advance(); err != nil {
			return nil, err
		}
		var err error
		values, err = p.exprList()
		if err != nil {
			return nil, err
		}
	}
	return &ast.AssignLocal{Base: b, Targets: targets, Values: values}, nil
}

func (p *parser) labelStatement() (ast.Statement, error) {
	b := p.base()
	if err := p.advance(); err != nil {
		return nil, err
	}
	n, err := p.expect(lexer.IdentifierToken, "<name>")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LabelToken, "'::'"); err != nil {
		return nil, err
	}
	return &ast.Label{Base: b, Name: n.Value}, nil
}

func (p *parser) returnStatement() (ast.Statement, error) {
	b := p.base()
	if err := p.advance(); err != nil {
		return nil, err
	}
	var values []ast.Expression
	if !isBlockFollow(p.curr.Kind) && p.curr.Kind != lexer.SemiToken {
		var err error
		values, err = p.exprList()
		if err != nil {
			return nil, err
		}
	}
	if p.curr.Kind == lexer.SemiToken {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return &ast.Return{Base: b, Values: values}, nil
}

// exprStatement parses a statement beginning with a prefixexp: either
// an assignment (possibly to several targets) or a bare function
// call.
func (p *parser) exprStatement() (ast.Statement, error) {
	b := p.base()
	first, err := p.suffixedExpr()
	if err != nil {
		return nil, err
	}
	if p.curr.Kind != lexer.AssignToken && p.curr.Kind != lexer.CommaToken {
		call, ok := first.(*ast.Call)
		if !ok {
			return nil, p.syntaxErrorf("syntax error")
		}
		return &ast.CallStatement{Base: b, Body: call}, nil
	}
	firstVar, ok := first.(ast.Var)
	if !ok {
		return nil, p.syntaxErrorf("syntax error")
	}
	targets := []ast.Var{firstVar}
	for p.curr.Kind == lexer.CommaToken {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.suffixedExpr()
		if err != nil {
			return nil, err
		}
		v, ok := next.(ast.Var)
		if !ok {
			return nil, p.syntaxErrorf("syntax error")
		}
		targets = append(targets, v)
	}
	if _, err := p.expect(lexer.AssignToken, "'='"); err != nil {
		return nil, err
	}
	values, err := p.exprList()
	if err != nil {
		return nil, err
	}
	return &ast.Assign{Base: b, Targets: targets, Values: values}, nil
}

func (p *parser) exprList() ([]ast.Expression, error) {
	var list []ast.Expression
	first, err := p.expr()
	if err != nil {
		return nil, err
	}
	list = append(list, first)
	for p.curr.Kind == lexer.CommaToken {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, nil
}
