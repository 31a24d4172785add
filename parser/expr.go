package parser

import (
	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/lexer"
	"github.com/golangee/rook/token"
)

// parseExpr parses a value expression: the precedence-climbing binary
// grammar of spec.md §4.1/§4.2 over the operator table the lexer already
// assigned precedence levels to, seeded by parseUnary.
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseBinary(0)
}

// parseBinary climbs the precedence table starting at minPrec, the usual
// "precedence climbing" shape: a unary/postfix left operand, then fold in
// every following operator whose precedence clears minPrec. Assignment-
// like operators (level precAssignLike) are right-associative, every
// other level is left-associative, matching spec.md §4.1.
func (p *Parser) parseBinary(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for depth := 0; depth < maxOperatorStack; depth++ {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != token.Operator || !lexer.IsBinaryOperator(tok.Op) {
			break
		}
		if tok.OpPrecedence < minPrec {
			break
		}

		p.next()

		nextMin := tok.OpPrecedence + 1
		if tok.OpPrecedence == precAssignLikeLevel(tok.Op) {
			nextMin = tok.OpPrecedence
		}

		right, err := p.parseBinary(nextMin)
		if err != nil {
			return nil, err
		}

		n := &ast.Operator{Op: tok.Op, Left: left, Right: right}
		n.Range = token.Range{BeginPos: left.Pos().BeginPos, EndPos: right.Pos().EndPos}
		left = p.register(n).(ast.Expr)
	}

	return left, nil
}

// precAssignLikeLevel reports op's precedence if op is right-associative
// (assignment and compound-assignment), else -1. Mirrors the guard in
// lexer.precedenceOfWord that routes these operators to precAssignLike.
func precAssignLikeLevel(op string) int {
	switch op {
	case "=", "+=", "-=", "*=", "/=", "%=":
		return precAssignLike
	default:
		return -1
	}
}

const (
	precAssignLike = 1
)

// parseUnary handles the prefix operators (spec.md §4.6 checkUnary: `!`,
// `-`, `++`, `--`, `*` address-of, `<<` pointer-dereference), `cast`/`xx`,
// then falls to parsePostfix.
func (p *Parser) parseUnary() (ast.Expr, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	if tok.Kind == token.Operator {
		switch tok.Op {
		case "!", "-", "++", "--", "*", "<<", "~", "&":
			p.next()
			operand, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			n := &ast.Operator{Op: tok.Op, Right: operand}
			n.Range = rng(tok, operand.Pos().EndPos)
			return p.register(n).(ast.Expr), nil
		}
	}

	if tok.Kind == token.Keyword {
		switch tok.Keyword {
		case token.KwCast:
			return p.parseCast()
		case token.KwXx:
			p.next()
			value, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			n := &ast.Cast{Kind: ast.CastAuto, Value: value}
			n.Range = rng(tok, value.Pos().EndPos)
			return p.register(n).(ast.Expr), nil
		}
	}

	return p.parsePostfix()
}

func (p *Parser) parseCast() (ast.Expr, error) {
	begin, _ := p.next()

	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	target, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}

	value, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	n := &ast.Cast{Kind: ast.CastExplicit, Target: target, Value: value}
	n.Range = rng(begin, value.Pos().EndPos)

	return p.register(n).(ast.Expr), nil
}

// parsePostfix handles call, array-index, and member-access (`.`) chains
// applied to a primary expression. `.` is also reachable through the
// generic binary climb at precDot, but handling it here too lets
// `a.b(c)[d]` chain without an extra climb level per link.
func (p *Parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}

		switch tok.Kind {
		case token.LParen:
			e, err = p.parseCallArgs(e)
		case token.LBracket:
			e, err = p.parseIndex(e)
		case token.Operator:
			if tok.Op != "." {
				return e, nil
			}
			p.next()
			var member token.Token
			if member, err = p.expect(token.Identifier); err == nil {
				id := &ast.Identifier{Name: member.Name}
				id.Range = member.Range
				n := &ast.Operator{Op: ".", Left: e, Right: p.register(id).(ast.Expr)}
				n.Range = token.Range{BeginPos: e.Pos().BeginPos, EndPos: member.EndPos}
				e = p.register(n).(ast.Expr)
			}
		default:
			return e, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseCallArgs(callee ast.Expr) (ast.Expr, error) {
	p.next() // consume '('

	n := &ast.Call{Callee: callee}

	if tok, _ := p.peek(); tok.Kind != token.RParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			n.Args = append(n.Args, arg)

			tok, _ := p.peek()
			if tok.Kind != token.Comma {
				break
			}
			p.next()
		}
	}

	end, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}

	n.Range = token.Range{BeginPos: callee.Pos().BeginPos, EndPos: end.EndPos}

	return p.register(n).(ast.Expr), nil
}

func (p *Parser) parseIndex(target ast.Expr) (ast.Expr, error) {
	p.next() // consume '['

	index, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	end, err := p.expect(token.RBracket)
	if err != nil {
		return nil, err
	}

	n := &ast.ArrayIndex{Target: target, Index: index}
	n.Range = token.Range{BeginPos: target.Pos().BeginPos, EndPos: end.EndPos}

	return p.register(n).(ast.Expr), nil
}

// parsePrimary parses literals, identifiers, `null`, `---`, `new T`,
// `sizeof`/`alignof`, parenthesized expressions, and the type-expression
// forms that can also stand in value position (a type is itself a value
// of kind TypeOf, per spec.md §4.6).
func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	switch tok.Kind {
	case token.Literal:
		p.next()
		n := &ast.Literal{Lit: tok.Lit}
		n.Range = tok.Range
		return p.register(n).(ast.Expr), nil
	case token.Identifier:
		p.next()
		n := &ast.Identifier{Name: tok.Name}
		n.Range = tok.Range
		return p.register(n).(ast.Expr), nil
	case token.LParen:
		isProc, err := p.looksLikeProcedureValue()
		if err != nil {
			return nil, err
		}
		if isProc {
			return p.parseProcedureValue()
		}

		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return inner, nil
	case token.LBracket:
		return p.parseTypeExpr()
	case token.Operator:
		if tok.Op == "---" {
			p.next()
			n := &ast.UninitializedValue{}
			n.Range = tok.Range
			return p.register(n).(ast.Expr), nil
		}
		if tok.Op == "$" {
			return p.parseTypeExpr()
		}
	case token.Keyword:
		switch tok.Keyword {
		case token.KwNull:
			p.next()
			n := &ast.Null{}
			n.Range = tok.Range
			return p.register(n).(ast.Expr), nil
		case token.KwTrue, token.KwFalse:
			p.next()
			n := &ast.Literal{Lit: token.Literal{Kind: token.LitBool, Bool: tok.Keyword == token.KwTrue}}
			n.Range = tok.Range
			return p.register(n).(ast.Expr), nil
		case token.KwNew:
			return p.parseNew()
		case token.KwSizeof:
			return p.parseBuiltinCall(tok, "sizeof")
		case token.KwAlignof:
			return p.parseBuiltinCall(tok, "alignof")
		case token.KwStruct:
			return p.parseStructValue()
		case token.KwEnum:
			return p.parseEnumValue()
		case token.KwInline:
			return p.parseProcedureValue()
		case token.KwDirChar:
			p.next()
			str, err := p.expect(token.Literal)
			if err != nil {
				return nil, err
			}
			if str.Lit.Kind != token.LitString || len(str.Lit.String) != 1 {
				return nil, p.errorf(str, "#char expects a one-character string")
			}
			n := &ast.Literal{Lit: token.Literal{Kind: token.LitInt, Int: int64(str.Lit.String[0])}}
			n.Range = rng(tok, str.EndPos)
			return p.register(n).(ast.Expr), nil
		}
	}

	return nil, p.errorf(tok, "unexpected token %s in expression", tok)
}

func (p *Parser) parseNew() (ast.Expr, error) {
	begin, _ := p.next()

	te, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}

	n := &ast.New{TypeExpr: te}
	n.Range = rng(begin, te.Pos().EndPos)

	return p.register(n).(ast.Expr), nil
}

func (p *Parser) parseBuiltinCall(begin token.Token, name string) (ast.Expr, error) {
	p.next()

	callee := &ast.Identifier{Name: name}
	callee.Range = begin.Range
	p.register(callee)

	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	arg, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	end, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}

	n := &ast.Call{Callee: callee, Args: []ast.Expr{arg}}
	n.Range = rng(begin, end.EndPos)

	return p.register(n).(ast.Expr), nil
}
