package parser

import (
	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/token"
)

// parseUsingOrDeclaration disambiguates `using expr` (an ast.Using
// statement injecting expr's members) from `using name := value` (a
// Using-flagged declaration), by peeking past the `using` keyword.
func (p *Parser) parseUsingOrDeclaration() (ast.Stmt, error) {
	second, err := p.peekN(1)
	if err != nil {
		return nil, err
	}
	third, err := p.peekN(2)
	if err != nil {
		return nil, err
	}

	looksDecl := second.Kind == token.Identifier &&
		((third.Kind == token.Operator && (third.Op == ":" || third.Op == "::" || third.Op == ":=")) ||
			third.Kind == token.Comma)

	if !looksDecl {
		return p.parseUsing()
	}

	p.next() // consume 'using'
	return p.parseDeclarationUsing(true)
}

// parseDeclaration parses `name[, name]* (":" type? | "::" | ":=") value[,
// value]*` (spec.md §4.2), producing a *ast.DeclareSingle for one name or
// a *ast.DeclareMulti for several. parseDeclarationUsing takes a using flag
// that is true when the declaration was introduced by a leading `using`
// keyword (`using x := foo()`).
func (p *Parser) parseDeclaration() (ast.Stmt, error) {
	return p.parseDeclarationUsing(false)
}

func (p *Parser) parseDeclarationUsing(using bool) (ast.Stmt, error) {
	first, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}

	names := []string{first.Name}
	for {
		tok, _ := p.peek()
		if tok.Kind != token.Comma {
			break
		}
		p.next()
		id, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		names = append(names, id.Name)
	}

	op, err := p.expect(token.Operator)
	if err != nil {
		return nil, err
	}

	var typeExpr ast.Expr
	constant := false

	switch op.Op {
	case "::":
		constant = true
	case ":=":
		// inferred, no type expression
	case ":":
		if tok, _ := p.peek(); !(tok.Kind == token.Operator && (tok.Op == "=" || tok.Op == ":")) {
			te, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			typeExpr = te
		}
		switch tok, _ := p.peek(); {
		case tok.Kind == token.Operator && tok.Op == "=":
			p.next()
		case tok.Kind == token.Operator && tok.Op == ":":
			// `name : Type : value` — an explicitly-typed constant.
			p.next()
			constant = true
		default:
			// `name : Type` with no initializer.
			if len(names) > 1 {
				n := &ast.DeclareMulti{Names: names, TypeExpr: typeExpr}
				n.Range = rng(first, p.lastEnd())
				return p.register(n).(ast.Stmt), nil
			}
			n := &ast.DeclareSingle{Name: names[0], TypeExpr: typeExpr, Using: using}
			n.Range = rng(first, p.lastEnd())
			return p.register(n).(ast.Stmt), nil
		}
	default:
		return nil, p.errorf(op, "expected ':', '::', or ':=' in declaration")
	}

	values, err := p.parseExprListCommaOrStruct(len(names))
	if err != nil {
		return nil, err
	}

	if len(names) > 1 {
		n := &ast.DeclareMulti{Names: names, TypeExpr: typeExpr, Values: values, Constant: constant}
		n.Range = rng(first, p.lastEnd())
		return p.register(n).(ast.Stmt), nil
	}

	n := &ast.DeclareSingle{Name: names[0], TypeExpr: typeExpr, Value: values[0], Constant: constant, Using: using}
	n.Range = rng(first, p.lastEnd())

	if proc, ok := n.Value.(*ast.Procedure); ok {
		proc.Name = n.Name
		proc.Polymorphic = procedureIsPolymorphic(proc)
		if proc.Foreign && proc.ForeignName == "" {
			proc.ForeignName = n.Name
		}
	}

	return p.register(n).(ast.Stmt), nil
}

// parseExprListCommaOrStruct parses one or more comma-separated value
// expressions, as required on the right of `::`/`:=`/`: T =`.
func (p *Parser) parseExprListCommaOrStruct(_ int) ([]ast.Expr, error) {
	var values []ast.Expr
	for {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		values = append(values, v)

		tok, _ := p.peek()
		if tok.Kind != token.Comma {
			break
		}
		p.next()
	}

	return values, nil
}

func procedureIsPolymorphic(proc *ast.Procedure) bool {
	for _, a := range proc.Args {
		if a.TypeExpr != nil && containsPolymorphic(a.TypeExpr) {
			return true
		}
	}
	return false
}

func containsPolymorphic(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.TypePolymorphic:
		return true
	case *ast.TypePointer:
		return containsPolymorphic(n.Inner)
	case *ast.TypeArray:
		return containsPolymorphic(n.Inner)
	case *ast.TypeProcedure:
		for _, a := range n.Args {
			if containsPolymorphic(a) {
				return true
			}
		}
		for _, r := range n.Rets {
			if containsPolymorphic(r) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// looksLikeProcedureValue decides whether a `(` at the current position
// opens a procedure type/value (`(args) -> rets ...`) rather than a
// parenthesized expression, by scanning ahead (without consuming) to the
// matching `)` and checking what follows it.
func (p *Parser) looksLikeProcedureValue() (bool, error) {
	depth := 0
	i := 0

	for {
		tok, err := p.peekN(i)
		if err != nil {
			return false, err
		}
		if tok.Kind == token.EndOfFile {
			return false, nil
		}

		switch tok.Kind {
		case token.LParen:
			depth++
		case token.RParen:
			depth--
			if depth == 0 {
				after, err := p.peekN(i + 1)
				if err != nil {
					return false, err
				}
				if after.Kind == token.Operator && after.Op == "->" {
					return true, nil
				}
				if after.Kind == token.LBrace {
					return true, nil
				}
				if after.Kind == token.Keyword && after.Keyword == token.KwDirForeign {
					return true, nil
				}
				// An empty `()` is never a valid value expression on its
				// own, so treat it as a zero-argument procedure value.
				second, err := p.peekN(1)
				if err != nil {
					return false, err
				}
				return i == 1 && second.Kind == token.RParen, nil
			}
		}

		i++
		if i > 4096 {
			return false, nil
		}
	}
}

func (p *Parser) parseProcedureValue() (ast.Expr, error) {
	begin, err := p.peek()
	if err != nil {
		return nil, err
	}

	n := &ast.Procedure{}

	if begin.Kind == token.Keyword && begin.Keyword == token.KwInline {
		p.next()
		n.Inline = true
	}

	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	if tok, _ := p.peek(); tok.Kind != token.RParen {
		for {
			arg, err := p.parseProcArg()
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

	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}

	if tok, _ := p.peek(); tok.Kind == token.Operator && tok.Op == "->" {
		p.next()
		rets, err := p.parseRetList()
		if err != nil {
			return nil, err
		}
		n.Rets = rets
	}

	if tok, _ := p.peek(); tok.Kind == token.Keyword && tok.Keyword == token.KwDirForeign {
		p.next()
		n.Foreign = true
		if lit, _ := p.peek(); lit.Kind == token.Literal && lit.Lit.Kind == token.LitString {
			p.next()
			n.ForeignName = lit.Lit.String
		}
	} else {
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		n.Body = body
	}

	n.Range = rng(begin, p.lastEnd())

	return p.register(n).(ast.Expr), nil
}

func (p *Parser) parseProcArg() (*ast.DeclareSingle, error) {
	begin, err := p.peek()
	if err != nil {
		return nil, err
	}

	if begin.Kind == token.Operator && begin.Op == ".." {
		p.next()
		vararg := &ast.TypeVararg{}
		vararg.Range = begin.Range
		p.register(vararg)

		n := &ast.DeclareSingle{TypeExpr: vararg}
		n.Range = begin.Range
		return p.register(n).(*ast.DeclareSingle), nil
	}

	name, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.Operator); err != nil { // ':'
		return nil, err
	}

	te, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}

	n := &ast.DeclareSingle{Name: name.Name, TypeExpr: te}
	n.Range = rng(name, te.Pos().EndPos)

	return p.register(n).(*ast.DeclareSingle), nil
}

func (p *Parser) parseStructValue() (ast.Expr, error) {
	begin, _ := p.next() // consume 'struct'

	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}

	n := &ast.Struct{}

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
			break
		}

		decl, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		n.Decls = append(n.Decls, decl)
	}

	n.Range = rng(begin, p.lastEnd())

	return p.register(n).(ast.Expr), nil
}

func (p *Parser) parseEnumValue() (ast.Expr, error) {
	begin, _ := p.next() // consume 'enum'

	n := &ast.Enum{}

	if tok, _ := p.peek(); tok.Kind != token.LBrace {
		backing, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		n.Backing = backing
	}

	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}

	var lastValues []ast.Expr
	row := int64(0)

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
			break
		}

		var rowNames []string
		for {
			id, err := p.expect(token.Identifier)
			if err != nil {
				return nil, err
			}
			rowNames = append(rowNames, id.Name)

			c, _ := p.peek()
			if c.Kind != token.Comma {
				break
			}
			p.next()
		}

		if eq, _ := p.peek(); eq.Kind == token.Operator && eq.Op == "=" {
			p.next()
			values, err := p.parseExprListCommaOrStruct(len(rowNames))
			if err != nil {
				return nil, err
			}
			lastValues = values
		}

		for i, name := range rowNames {
			var template ast.Expr
			if len(lastValues) > 0 {
				template = lastValues[i%len(lastValues)]
			} else {
				iotaID := &ast.Identifier{Name: "iota"}
				template = p.register(iotaID).(ast.Expr)
			}

			value := substituteIota(ast.Clone(template), row)

			d := &ast.DeclareSingle{Name: name, Constant: true, Value: value}
			d.Range = value.Pos()
			n.Decls = append(n.Decls, p.register(d).(ast.Stmt))

			row++
		}
	}

	n.Range = rng(begin, p.lastEnd())

	return p.register(n).(ast.Expr), nil
}

// substituteIota replaces every bare `iota` identifier in e with an
// integer literal holding row, the enum-member row index (spec.md §4.2:
// "substituting the identifier iota with the current row index").
func substituteIota(e ast.Expr, row int64) ast.Expr {
	switch n := e.(type) {
	case *ast.Identifier:
		if n.Name == "iota" {
			lit := &ast.Literal{Lit: token.Literal{Kind: token.LitInt, Int: row}}
			lit.Range = n.Range
			return lit
		}
		return n
	case *ast.Operator:
		if n.Left != nil {
			n.Left = substituteIota(n.Left, row)
		}
		n.Right = substituteIota(n.Right, row)
		return n
	case *ast.Cast:
		n.Value = substituteIota(n.Value, row)
		return n
	case *ast.Call:
		n.Callee = substituteIota(n.Callee, row)
		for i, a := range n.Args {
			n.Args[i] = substituteIota(a, row)
		}
		return n
	case *ast.ArrayIndex:
		n.Target = substituteIota(n.Target, row)
		n.Index = substituteIota(n.Index, row)
		return n
	default:
		return e
	}
}
