package lexer

import (
	"testing"

	"github.com/chazu/loxvm/internal/token"
)

func collect(src string) []token.Token {
	l := New(src)
	var toks []token.Token
	for {
		t := l.Next()
		toks = append(toks, t)
		if t.Kind == token.EOF {
			break
		}
	}
	return toks
}

func TestPunctuationAndOperators(t *testing.T) {
	toks := collect("(){}[];,.+-*!!====<=<>>=/")
	wantKinds := []token.Kind{
		token.LeftParen, token.RightParen, token.LeftBrace, token.RightBrace,
		token.LeftSquare, token.RightSquare, token.Semicolon, token.Comma,
		token.Dot, token.Plus, token.Minus, token.Star, token.Bang,
		token.BangEqual, token.EqualEqual, token.Equal, token.LessEqual,
		token.Less, token.Greater, token.GreaterEqual, token.Slash, token.EOF,
	}
	if len(toks) != len(wantKinds) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(wantKinds), toks)
	}
	for i, k := range wantKinds {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestKeywordsVsIdentifiers(t *testing.T) {
	toks := collect("class orbit forest classify")
	want := []token.Kind{token.Class, token.Identifier, token.Identifier, token.Identifier, token.EOF}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestNumberLexemes(t *testing.T) {
	toks := collect("123 45.67 0.5")
	for i, want := range []string{"123", "45.67", "0.5"} {
		if toks[i].Kind != token.Number || toks[i].Lexeme != want {
			t.Errorf("token %d: got %v, want NUMBER %q", i, toks[i], want)
		}
	}
}

func TestStringSpansNewlinesAndTracksLine(t *testing.T) {
	l := New("\"a\nb\" 1")
	str := l.Next()
	if str.Kind != token.String || str.Lexeme != "\"a\nb\"" {
		t.Fatalf("got %v", str)
	}
	num := l.Next()
	if num.Line != 2 {
		t.Errorf("expected line 2 after embedded newline, got %d", num.Line)
	}
}

func TestUnterminatedString(t *testing.T) {
	toks := collect("\"abc")
	if toks[0].Kind != token.Error {
		t.Fatalf("got %v, want Error", toks[0])
	}
}

func TestLineCommentSkipped(t *testing.T) {
	toks := collect("1 // a comment\n2")
	if toks[0].Lexeme != "1" || toks[1].Lexeme != "2" {
		t.Fatalf("got %v", toks)
	}
	if toks[1].Line != 2 {
		t.Errorf("expected second number on line 2, got %d", toks[1].Line)
	}
}

func TestUnexpectedCharacter(t *testing.T) {
	toks := collect("@")
	if toks[0].Kind != token.Error {
		t.Fatalf("got %v, want Error", toks[0])
	}
}
