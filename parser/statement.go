package parser

import (
	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/token"
)

// parseStatement dispatches on the leading token per spec.md §4.2's
// statement grammar: block, if/while/for, return, defer, push_context,
// loop control, #run, inline, then declarations, then bare expressions.
func (p *Parser) parseStatement() (ast.Stmt, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	switch tok.Kind {
	case token.LBrace:
		return p.parseBlock()
	case token.Keyword:
		switch tok.Keyword {
		case token.KwIf:
			return p.parseIf()
		case token.KwWhile:
			return p.parseWhile()
		case token.KwFor:
			return p.parseFor()
		case token.KwReturn:
			return p.parseReturn()
		case token.KwDefer:
			return p.parseDefer()
		case token.KwPushContext:
			return p.parsePushContext()
		case token.KwContinue:
			p.next()
			n := &ast.LoopControl{Kind: ast.Continue}
			n.Range = rng(tok, tok.EndPos)
			return p.register(n).(ast.Stmt), nil
		case token.KwBreak:
			p.next()
			n := &ast.LoopControl{Kind: ast.Break}
			n.Range = rng(tok, tok.EndPos)
			return p.register(n).(ast.Stmt), nil
		case token.KwUsing:
			return p.parseUsingOrDeclaration()
		case token.KwDelete:
			return p.parseDelete()
		case token.KwRemove:
			return p.parseRemove()
		case token.KwInline:
			return p.parseInlineStmt()
		case token.KwDirRun:
			return p.parseRunStmt()
		}
	}

	// Declaration or bare expression: decided by two-token lookahead
	// (spec.md §4.2).
	if tok.Kind == token.Identifier {
		if isDecl, err := p.looksLikeDeclaration(); err != nil {
			return nil, err
		} else if isDecl {
			return p.parseDeclaration()
		}
	}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	return expr.(ast.Stmt), nil
}

// looksLikeDeclaration peeks two tokens to decide whether the statement
// is `ident :` / `ident ::` / `ident :=` / `ident, ident, ... :`.
func (p *Parser) looksLikeDeclaration() (bool, error) {
	second, err := p.peek2()
	if err != nil {
		return false, err
	}

	if second.Kind == token.Operator && (second.Op == ":" || second.Op == "::" || second.Op == ":=") {
		return true, nil
	}

	if second.Kind == token.Comma {
		return true, nil
	}

	return false, nil
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	begin, err := p.expect(token.LBrace)
	if err != nil {
		return nil, err
	}

	blk := &ast.Block{}

	for {
		if err := p.skipTerminators(); err != nil {
			return nil, err
		}

		tok, err := p.peek()
		if err != nil {
			return nil, err
		}

		if tok.Kind == token.RBrace {
			p.next()
			blk.Range = rng(begin, tok.EndPos)
			return p.register(blk).(*ast.Block), nil
		}

		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}

		blk.Stmts = append(blk.Stmts, stmt)
	}
}

// parseBlockOrStmt accepts either `{ ... }` or a single statement, for
// if/while/for bodies that don't require braces.
func (p *Parser) parseBlockOrStmt() (ast.Stmt, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	if tok.Kind == token.LBrace {
		return p.parseBlock()
	}

	return p.parseStatement()
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	begin, _ := p.next()

	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if tok, err := p.peek(); err == nil && tok.Kind == token.Keyword && tok.Keyword == token.KwThen {
		p.next()
	}

	body, err := p.parseBlockOrStmt()
	if err != nil {
		return nil, err
	}

	n := &ast.If{Cond: cond, Body: body}

	if err := p.skipNewlinesBeforeElse(); err != nil {
		return nil, err
	}

	if tok, err := p.peek(); err == nil && tok.Kind == token.Keyword && tok.Keyword == token.KwElse {
		p.next()
		elseBody, err := p.parseBlockOrStmt()
		if err != nil {
			return nil, err
		}
		n.ElseBody = elseBody
	}

	n.Range = rng(begin, p.lastEnd())

	return p.register(n).(ast.Stmt), nil
}

// skipNewlinesBeforeElse allows `else` to appear on the next line after a
// brace-terminated if-body. Consuming the newlines here is safe even
// when no `else` follows: every statement-sequence loop calls
// skipTerminators before parsing its next statement, so any newlines
// "used up" looking for `else` are redundant, not load-bearing.
func (p *Parser) skipNewlinesBeforeElse() error {
	for {
		tok, err := p.peek()
		if err != nil {
			return nil
		}
		if tok.Kind != token.NewLine {
			return nil
		}
		p.next()
	}
}

func (p *Parser) lastEnd() token.Pos {
	tok, err := p.peek()
	if err != nil {
		return token.Pos{}
	}

	return tok.BeginPos
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	begin, _ := p.next()

	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	body, err := p.parseBlockOrStmt()
	if err != nil {
		return nil, err
	}

	n := &ast.While{Cond: cond, Body: body}
	n.Range = rng(begin, p.lastEnd())

	return p.register(n).(ast.Stmt), nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	begin, _ := p.next()

	n := &ast.For{}

	if tok, _ := p.peek(); tok.Kind == token.Operator && tok.Op == "*" {
		p.next()
		n.IterIsPtr = true
	}

	if id, _ := p.peek(); id.Kind == token.Identifier {
		if colon, _ := p.peek2(); colon.Kind == token.Operator && colon.Op == ":" {
			p.next()
			p.next()
			n.IterName = id.Name
		}
	}

	rangeExpr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	n.Iterable = rangeExpr

	body, err := p.parseBlockOrStmt()
	if err != nil {
		return nil, err
	}
	n.Body = body
	n.Range = rng(begin, p.lastEnd())

	return p.register(n).(ast.Stmt), nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	begin, _ := p.next()

	n := &ast.Return{}

	if tok, _ := p.peek(); tok.Kind != token.NewLine && tok.Kind != token.Semicolon && tok.Kind != token.RBrace && tok.Kind != token.EndOfFile {
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Values = append(n.Values, val)

		for {
			tok, _ := p.peek()
			if tok.Kind != token.Comma {
				break
			}
			p.next()
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			n.Values = append(n.Values, val)
		}
	}

	n.Range = rng(begin, p.lastEnd())

	return p.register(n).(ast.Stmt), nil
}

func (p *Parser) parseDefer() (ast.Stmt, error) {
	begin, _ := p.next()

	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	n := &ast.Defer{Stmt: stmt}
	n.Range = rng(begin, p.lastEnd())

	return p.register(n).(ast.Stmt), nil
}

func (p *Parser) parsePushContext() (ast.Stmt, error) {
	begin, _ := p.next()

	id, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	n := &ast.PushContext{ContextName: id.Name, Body: body}
	n.Range = rng(begin, p.lastEnd())

	return p.register(n).(ast.Stmt), nil
}

func (p *Parser) parseUsing() (ast.Stmt, error) {
	begin, _ := p.next()

	target, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	n := &ast.Using{Target: target}
	n.Range = rng(begin, p.lastEnd())

	return p.register(n).(ast.Stmt), nil
}

func (p *Parser) parseDelete() (ast.Stmt, error) {
	begin, _ := p.next()

	target, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	n := &ast.Delete{Target: target}
	n.Range = rng(begin, p.lastEnd())

	return p.register(n).(ast.Stmt), nil
}

func (p *Parser) parseRemove() (ast.Stmt, error) {
	begin, _ := p.next()

	target, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	n := &ast.Remove{Target: target}
	n.Range = rng(begin, p.lastEnd())

	return p.register(n).(ast.Stmt), nil
}

func (p *Parser) parseInlineStmt() (ast.Stmt, error) {
	begin, _ := p.next()

	target, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	n := &ast.Inline{Target: target}
	n.Range = rng(begin, p.lastEnd())

	return p.register(n).(ast.Stmt), nil
}

func (p *Parser) parseRunStmt() (ast.Stmt, error) {
	begin, _ := p.next()

	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	n := &ast.RunDirective{}
	if tok.Kind == token.LBrace {
		blk, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		n.Body = blk
	} else {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Body = e
	}
	n.Range = rng(begin, p.lastEnd())

	return p.register(n).(ast.Stmt), nil
}
