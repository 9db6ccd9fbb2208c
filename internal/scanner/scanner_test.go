package scanner

import (
	"testing"

	"github.com/chazu/loxlang/internal/token"
)

func TestScanBasicTokens(t *testing.T) {
	input := `( ) { } , . - + ; * / ! != = == < <= > >=`
	expected := []struct {
		typ   token.Type
		lexeme string
	}{
		{token.LeftParen, "("},
		{token.RightParen, ")"},
		{token.LeftBrace, "{"},
		{token.RightBrace, "}"},
		{token.Comma, ","},
		{token.Dot, "."},
		{token.Minus, "-"},
		{token.Plus, "+"},
		{token.Semicolon, ";"},
		{token.Star, "*"},
		{token.Slash, "/"},
		{token.Bang, "!"},
		{token.BangEqual, "!="},
		{token.Equal, "="},
		{token.EqualEqual, "=="},
		{token.Less, "<"},
		{token.LessEqual, "<="},
		{token.Greater, ">"},
		{token.GreaterEqual, ">="},
		{token.EOF, ""},
	}

	s := New(input)
	for i, exp := range expected {
		tok := s.Scan()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Lexeme != exp.lexeme {
			t.Errorf("token[%d] lexeme = %q, want %q", i, tok.Lexeme, exp.lexeme)
		}
	}
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	input := "var fun class this super nil true false foo bar2 _baz"
	want := []token.Type{
		token.Var, token.Fun, token.Class, token.This, token.Super,
		token.Nil, token.True, token.False,
		token.Identifier, token.Identifier, token.Identifier, token.EOF,
	}
	s := New(input)
	for i, typ := range want {
		tok := s.Scan()
		if tok.Type != typ {
			t.Errorf("token[%d] = %v, want %v (%q)", i, tok.Type, typ, tok.Lexeme)
		}
	}
}

func TestScanNumbers(t *testing.T) {
	for _, src := range []string{"0", "42", "3.14", "1234.5678"} {
		s := New(src)
		tok := s.Scan()
		if tok.Type != token.Number || tok.Lexeme != src {
			t.Errorf("Scan(%q) = %v %q", src, tok.Type, tok.Lexeme)
		}
	}
}

func TestScanStrings(t *testing.T) {
	s := New(`"hello world"`)
	tok := s.Scan()
	if tok.Type != token.String || tok.Lexeme != `"hello world"` {
		t.Fatalf("got %v %q", tok.Type, tok.Lexeme)
	}

	s = New(`"unterminated`)
	tok = s.Scan()
	if tok.Type != token.Error {
		t.Fatalf("expected Error token for unterminated string, got %v", tok.Type)
	}
}

func TestScanSkipsLineComments(t *testing.T) {
	s := New("// a comment\n1")
	tok := s.Scan()
	if tok.Type != token.Number || tok.Lexeme != "1" {
		t.Fatalf("got %v %q", tok.Type, tok.Lexeme)
	}
}

func TestScanTracksLines(t *testing.T) {
	s := New("1\n2\n\n3")
	var lines []int
	for {
		tok := s.Scan()
		if tok.Type == token.EOF {
			break
		}
		lines = append(lines, tok.Line)
	}
	want := []int{1, 2, 4}
	if len(lines) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(lines), len(want))
	}
	for i, l := range lines {
		if l != want[i] {
			t.Errorf("line[%d] = %d, want %d", i, l, want[i])
		}
	}
}
