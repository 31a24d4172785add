package lexer

import (
	"strings"
	"testing"

	"github.com/golangee/rook/token"
)

func tokenize(t *testing.T, src string) []token.Token {
	t.Helper()

	l := New("test.rook", strings.NewReader(src))

	var toks []token.Token
	for {
		tok, err := l.Token()
		if err != nil {
			t.Fatalf("unexpected lex error: %v", err)
		}

		toks = append(toks, tok)
		if tok.Kind == token.EndOfFile {
			return toks
		}
	}
}

func TestLexerBasicDeclarations(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []token.Kind
	}{
		{
			name: "constant decl",
			src:  "a :: 5",
			want: []token.Kind{token.Identifier, token.Operator, token.Literal, token.EndOfFile},
		},
		{
			name: "typed var decl",
			src:  "a : int = 5",
			want: []token.Kind{token.Identifier, token.Operator, token.Identifier, token.Operator, token.Literal, token.EndOfFile},
		},
		{
			name: "inferred decl",
			src:  "a := 5 + 1028",
			want: []token.Kind{token.Identifier, token.Operator, token.Literal, token.Operator, token.Literal, token.EndOfFile},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := tokenize(t, tt.src)
			if len(toks) != len(tt.want) {
				t.Fatalf("got %d tokens, want %d (%v)", len(toks), len(tt.want), toks)
			}

			for i, k := range tt.want {
				if toks[i].Kind != k {
					t.Errorf("token %d: got kind %v, want %v", i, toks[i].Kind, k)
				}
			}
		})
	}
}

func TestLexerOperatorNormalization(t *testing.T) {
	toks := tokenize(t, "a && b || c")

	var ops []string
	for _, tok := range toks {
		if tok.Kind == token.Operator {
			ops = append(ops, tok.Op)
		}
	}

	want := []string{"and", "or"}
	if len(ops) != len(want) {
		t.Fatalf("got ops %v, want %v", ops, want)
	}

	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op %d: got %q, want %q", i, ops[i], want[i])
		}
	}
}

func TestLexerNumericBases(t *testing.T) {
	tests := []struct {
		src     string
		wantInt int64
	}{
		{"0x1F", 31},
		{"017", 15},
		{"42", 42},
	}

	for _, tt := range tests {
		toks := tokenize(t, tt.src)
		if toks[0].Kind != token.Literal || toks[0].Lit.Kind != token.LitInt {
			t.Fatalf("%s: got %v, want an int literal", tt.src, toks[0])
		}

		if toks[0].Lit.Int != tt.wantInt {
			t.Errorf("%s: got %d, want %d", tt.src, toks[0].Lit.Int, tt.wantInt)
		}
	}
}

func TestLexerFloatVsRange(t *testing.T) {
	toks := tokenize(t, "5.0")
	if toks[0].Lit.Kind != token.LitFloat || toks[0].Lit.Float != 5.0 {
		t.Fatalf("got %v, want float 5.0", toks[0])
	}

	toks = tokenize(t, "5..10")
	if toks[0].Lit.Kind != token.LitInt || toks[0].Lit.Int != 5 {
		t.Fatalf("got %v, want int 5 before range operator", toks[0])
	}
	if toks[1].Kind != token.Operator || toks[1].Op != ".." {
		t.Fatalf("got %v, want '..' operator", toks[1])
	}
}

func TestLexerNestedBlockComment(t *testing.T) {
	toks := tokenize(t, "/* outer /* inner */ still outer */ a")
	if len(toks) != 2 {
		t.Fatalf("got %d tokens, want 2 (identifier + eof), got %v", len(toks), toks)
	}
	if toks[0].Kind != token.Identifier || toks[0].Name != "a" {
		t.Fatalf("got %v, want identifier 'a'", toks[0])
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	l := New("test.rook", strings.NewReader(`"abc`))
	_, err := l.Token()
	if err == nil {
		t.Fatal("expected an error for unterminated string")
	}
}

func TestLexerDirectiveKeyword(t *testing.T) {
	toks := tokenize(t, `#import "basic"`)
	if toks[0].Kind != token.Keyword || toks[0].Keyword != token.KwDirImport {
		t.Fatalf("got %v, want #import keyword", toks[0])
	}
	if toks[1].Kind != token.Literal || toks[1].Lit.String != "basic" {
		t.Fatalf("got %v, want string literal \"basic\"", toks[1])
	}
}
