package parser

import (
	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/token"
)

// parseTypeExpr parses the type-expression grammar: `*T`/`*soa T`,
// `[N]T`/`[]T`/`[..]T`, a bare procedure type `(args) -> rets`, `$T`, or a
// plain identifier/member-chain naming an existing type. Types are
// themselves expressions in this language (spec.md §4.6: a type is a
// TypeOf-wrapped value), but declaration types, cast targets, and `new`
// targets always parse through this grammar rather than the general
// value grammar, so `*` means pointer-to and not address-of here.
func (p *Parser) parseTypeExpr() (ast.Expr, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	switch {
	case tok.Kind == token.Operator && tok.Op == "*":
		return p.parsePointerType()
	case tok.Kind == token.LBracket:
		return p.parseArrayType()
	case tok.Kind == token.Operator && tok.Op == "$":
		return p.parsePolymorphicType()
	case tok.Kind == token.LParen:
		return p.parseProcedureType()
	}

	return p.parseTypeNameChain()
}

func (p *Parser) parsePointerType() (ast.Expr, error) {
	begin, _ := p.next()

	soa, err := p.consumeSOA()
	if err != nil {
		return nil, err
	}

	inner, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}

	n := &ast.TypePointer{SOA: soa, Inner: inner}
	n.Range = rng(begin, inner.Pos().EndPos)

	return p.register(n).(ast.Expr), nil
}

// consumeSOA recognizes the contextual keyword "soa" (not a reserved
// word; it only means anything directly after `*` or `[...]`).
func (p *Parser) consumeSOA() (bool, error) {
	tok, err := p.peek()
	if err != nil {
		return false, err
	}
	if tok.Kind == token.Identifier && tok.Name == "soa" {
		p.next()
		return true, nil
	}
	return false, nil
}

func (p *Parser) parseArrayType() (ast.Expr, error) {
	begin, _ := p.next() // consume '['

	n := &ast.TypeArray{}

	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	switch {
	case tok.Kind == token.RBracket:
		// slice: []T
	case tok.Kind == token.Operator && tok.Op == "..":
		p.next()
		n.Dynamic = true
	default:
		size, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Size = size
	}

	if _, err := p.expect(token.RBracket); err != nil {
		return nil, err
	}

	soa, err := p.consumeSOA()
	if err != nil {
		return nil, err
	}
	n.SOA = soa

	inner, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	n.Inner = inner
	n.Range = rng(begin, inner.Pos().EndPos)

	return p.register(n).(ast.Expr), nil
}

func (p *Parser) parsePolymorphicType() (ast.Expr, error) {
	begin, _ := p.next() // consume '$'

	id, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}

	n := &ast.TypePolymorphic{Name: id.Name}
	n.Range = rng(begin, id.EndPos)

	return p.register(n).(ast.Expr), nil
}

func (p *Parser) parseProcedureType() (ast.Expr, error) {
	begin, _ := p.next() // consume '('

	n := &ast.TypeProcedure{}

	if tok, _ := p.peek(); tok.Kind != token.RParen {
		for {
			arg, err := p.parseTypeExpr()
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
	n.Range = rng(begin, end.EndPos)

	if tok, _ := p.peek(); tok.Kind == token.Operator && tok.Op == "->" {
		p.next()
		rets, err := p.parseRetList()
		if err != nil {
			return nil, err
		}
		n.Rets = rets
		n.Range = rng(begin, p.lastEnd())
	}

	return p.register(n).(ast.Expr), nil
}

func (p *Parser) parseRetList() ([]ast.Expr, error) {
	var rets []ast.Expr
	for {
		ret, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		rets = append(rets, ret)

		tok, _ := p.peek()
		if tok.Kind != token.Comma {
			break
		}
		p.next()
	}

	return rets, nil
}

// parseTypeNameChain parses a bare type name or a `.`-qualified chain
// (e.g. `module.Type`), represented the same way a value member-access
// expression is: a chain of Operator{".", left, right} nodes with the
// innermost leaf an Identifier.
func (p *Parser) parseTypeNameChain() (ast.Expr, error) {
	tok, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}

	var e ast.Expr = func() ast.Expr {
		n := &ast.Identifier{Name: tok.Name}
		n.Range = tok.Range
		return p.register(n).(ast.Expr)
	}()

	for {
		dot, err := p.peek()
		if err != nil {
			return nil, err
		}
		if dot.Kind != token.Operator || dot.Op != "." {
			break
		}
		p.next()

		member, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}

		id := &ast.Identifier{Name: member.Name}
		id.Range = member.Range
		p.register(id)

		n := &ast.Operator{Op: ".", Left: e, Right: id}
		n.Range = rng(tok, member.EndPos)
		e = p.register(n).(ast.Expr)
	}

	return e, nil
}
