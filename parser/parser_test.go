package parser

import (
	"strings"
	"testing"

	"github.com/golangee/rook/ast"
	"github.com/golangee/rook/lexer"
)

func parseFile(t *testing.T, src string) *ast.File {
	t.Helper()

	l := lexer.New("test.rook", strings.NewReader(src))
	p := New("test.rook", l)

	file, err := p.ParseFile()
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	return file
}

func TestParseExplicitlyTypedConstant(t *testing.T) {
	// spec.md §8 scenario 1's own input: a typed constant declaration,
	// not just a typed variable.
	file := parseFile(t, "a := b; b : int : 5;")
	if len(file.Decls) != 2 {
		t.Fatalf("got %d decls, want 2", len(file.Decls))
	}

	b, ok := file.Decls[1].(*ast.DeclareSingle)
	if !ok {
		t.Fatalf("second decl is %T, want *ast.DeclareSingle", file.Decls[1])
	}
	if b.Name != "b" || !b.Constant {
		t.Fatalf("got %+v, want constant declaration named b", b)
	}
	if b.TypeExpr == nil {
		t.Fatalf("expected an explicit type expression on b")
	}
}

func TestParseTypedVariableNoInitializer(t *testing.T) {
	file := parseFile(t, "a : int;")
	ds, ok := file.Decls[0].(*ast.DeclareSingle)
	if !ok || ds.Constant || ds.Value != nil {
		t.Fatalf("got %+v, want a non-constant, uninitialized declaration", ds)
	}
}

func TestParseInferredConstant(t *testing.T) {
	file := parseFile(t, "N :: 4;")
	ds, ok := file.Decls[0].(*ast.DeclareSingle)
	if !ok || !ds.Constant || ds.TypeExpr != nil {
		t.Fatalf("got %+v, want an inferred constant", ds)
	}
}

func TestParseForeignVarargProcedure(t *testing.T) {
	file := parseFile(t, "printf :: (format : *char, ..) -> int #foreign;")
	ds := file.Decls[0].(*ast.DeclareSingle)
	proc, ok := ds.Value.(*ast.Procedure)
	if !ok || !proc.Foreign {
		t.Fatalf("got %+v, want a #foreign procedure", ds.Value)
	}
	if len(proc.Args) != 2 {
		t.Fatalf("got %d args, want 2 (format, vararg marker)", len(proc.Args))
	}
	if _, ok := proc.Args[1].TypeExpr.(*ast.TypeVararg); !ok {
		t.Fatalf("got %T, want *ast.TypeVararg for the trailing '..'", proc.Args[1].TypeExpr)
	}
}

func TestParseStructWithConstantMember(t *testing.T) {
	file := parseFile(t, `S :: struct { a :: "6.0"; } a :: S.a;`)
	if len(file.Decls) != 2 {
		t.Fatalf("got %d decls, want 2", len(file.Decls))
	}

	sDecl := file.Decls[0].(*ast.DeclareSingle)
	st, ok := sDecl.Value.(*ast.Struct)
	if !ok || len(st.Decls) != 1 {
		t.Fatalf("got %+v, want a struct with one member", sDecl.Value)
	}
}

func TestParseCompoundAssignment(t *testing.T) {
	file := parseFile(t, "Add :: (n : int) -> int { n += 5; return n; }")
	ds := file.Decls[0].(*ast.DeclareSingle)
	proc := ds.Value.(*ast.Procedure)
	if len(proc.Rets) != 1 {
		t.Fatalf("got %d return types, want 1", len(proc.Rets))
	}
	if len(proc.Body.Stmts) != 2 {
		t.Fatalf("got %d body statements, want 2 (+=, return)", len(proc.Body.Stmts))
	}

	op, ok := proc.Body.Stmts[0].(*ast.Operator)
	if !ok || op.Op != "+=" {
		t.Fatalf("got %+v, want a '+=' operator statement", proc.Body.Stmts[0])
	}
}
