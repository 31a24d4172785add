// Package parser turns a lexer.Lexer token stream into a package ast
// tree: recursive-descent for statements/declarations, Pratt-style
// precedence climbing for operator expressions (spec.md §4.2). The climb
// keeps no explicit operator stack: it recurses on the Go call stack once
// per operator's right operand, and one parseBinary call folds in at most
// maxOperatorStack (32) operators at its own level.
package parser

import (
	"fmt"

	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/lexer"
	"github.com/golangee/rook/token"
)

const maxOperatorStack = 32

// Parser holds a growable lookahead buffer over the lexer and the
// global AST-node registry (spec.md §4.2: "every AST node is arena-
// allocated... the parser records every AST pointer in one global list").
// Most decisions need only one or two tokens of lookahead; disambiguating
// a parenthesized expression from a procedure-type/value literal is the
// one place that needs to scan ahead to the matching `)` (peekN grows the
// buffer as far as asked).
type Parser struct {
	lex   *lexer.Lexer
	buf   []token.Token
	Nodes []ast.Node
	file  string
}

// New creates a Parser over l.
func New(file string, l *lexer.Lexer) *Parser {
	return &Parser{lex: l, file: file}
}

func (p *Parser) register(n ast.Node) ast.Node {
	p.Nodes = append(p.Nodes, n)
	return n
}

func (p *Parser) fill(n int) error {
	for len(p.buf) < n {
		tok, err := p.lex.Token()
		if err != nil {
			return err
		}

		p.buf = append(p.buf, tok)
	}

	return nil
}

func (p *Parser) peek() (token.Token, error) {
	if err := p.fill(1); err != nil {
		return token.Token{}, err
	}

	return p.buf[0], nil
}

func (p *Parser) peek2() (token.Token, error) {
	if err := p.fill(2); err != nil {
		return token.Token{}, err
	}

	return p.buf[1], nil
}

// peekN returns the token n positions ahead (peekN(0) == peek()),
// growing the lookahead buffer as needed.
func (p *Parser) peekN(n int) (token.Token, error) {
	if err := p.fill(n + 1); err != nil {
		return token.Token{}, err
	}

	return p.buf[n], nil
}

func (p *Parser) next() (token.Token, error) {
	if err := p.fill(1); err != nil {
		return token.Token{}, err
	}

	tok := p.buf[0]
	p.buf = p.buf[1:]

	return tok, nil
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	tok, err := p.next()
	if err != nil {
		return token.Token{}, err
	}
	if tok.Kind != k {
		return token.Token{}, p.errorf(tok, "expected %s, got %s", k, tok.Kind)
	}

	return tok, nil
}

func (p *Parser) errorf(at token.Token, format string, args ...interface{}) error {
	return token.NewPosError(token.NewNode(at.BeginPos, at.EndPos), fmt.Sprintf(format, args...))
}

func rng(begin token.Token, end token.Pos) token.Range {
	return token.Range{BeginPos: begin.BeginPos, EndPos: end}
}

// ParseFile parses an entire source file into an *ast.File.
func (p *Parser) ParseFile() (*ast.File, error) {
	f := &ast.File{Path: p.file}

	for {
		if err := p.skipTerminators(); err != nil {
			return nil, err
		}

		tok, err := p.peek()
		if err != nil {
			return nil, err
		}

		if tok.Kind == token.EndOfFile {
			break
		}

		stmt, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}

		f.Decls = append(f.Decls, stmt)
	}

	return f, nil
}

// skipTerminators consumes newlines and semicolons between statements.
func (p *Parser) skipTerminators() error {
	for {
		tok, err := p.peek()
		if err != nil {
			return err
		}
		if tok.Kind != token.NewLine && tok.Kind != token.Semicolon {
			return nil
		}
		p.next()
	}
}

func (p *Parser) parseTopLevel() (ast.Stmt, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	if tok.Kind == token.Keyword {
		switch tok.Keyword {
		case token.KwDirImport:
			return p.parseImportDirective()
		case token.KwDirForeignLibrary:
			return p.parseForeignLibraryDirective()
		}
	}

	return p.parseStatement()
}

func (p *Parser) parseImportDirective() (ast.Stmt, error) {
	begin, _ := p.next()
	str, err := p.expect(token.Literal)
	if err != nil {
		return nil, err
	}

	n := &ast.ImportDirective{Name: str.Lit.String}
	n.Range = rng(begin, str.EndPos)

	return p.register(n).(ast.Stmt), nil
}

func (p *Parser) parseForeignLibraryDirective() (ast.Stmt, error) {
	begin, _ := p.next()
	str, err := p.expect(token.Literal)
	if err != nil {
		return nil, err
	}

	n := &ast.ForeignLibraryDirective{Name: str.Lit.String}
	n.Range = rng(begin, str.EndPos)

	return p.register(n).(ast.Stmt), nil
}
