// Package lexer implements the Scanner external collaborator: it turns
// source text into the token stream the compiler consumes (see
// internal/token for the contract).
package lexer

import "github.com/chazu/loxvm/internal/token"

// Lexer tokenizes Lox source code one token at a time.
type Lexer struct {
	src   string
	start int
	pos   int
	line  int
}

// New creates a Lexer over the given source text.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1}
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.src)
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	return c
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.src[l.pos] != expected {
		return false
	}
	l.pos++
	return true
}

func (l *Lexer) make(kind token.Kind) token.Token {
	return token.Token{Kind: kind, Lexeme: l.src[l.start:l.pos], Line: l.line}
}

func (l *Lexer) errorToken(msg string) token.Token {
	return token.Token{Kind: token.Error, Lexeme: msg, Line: l.line}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlphaNumeric(c byte) bool {
	return isAlpha(c) || isDigit(c)
}

// Next scans and returns the next token, advancing past it.
func (l *Lexer) Next() token.Token {
	l.skipWhitespace()
	l.start = l.pos

	if l.isAtEnd() {
		return l.make(token.EOF)
	}

	c := l.advance()
	if isAlpha(c) {
		return l.identifier()
	}
	if isDigit(c) {
		return l.number()
	}

	switch c {
	case '(':
		return l.make(token.LeftParen)
	case ')':
		return l.make(token.RightParen)
	case '{':
		return l.make(token.LeftBrace)
	case '}':
		return l.make(token.RightBrace)
	case '[':
		return l.make(token.LeftSquare)
	case ']':
		return l.make(token.RightSquare)
	case ';':
		return l.make(token.Semicolon)
	case ',':
		return l.make(token.Comma)
	case '.':
		return l.make(token.Dot)
	case '-':
		return l.make(token.Minus)
	case '+':
		return l.make(token.Plus)
	case '/':
		return l.make(token.Slash)
	case '*':
		return l.make(token.Star)
	case '!':
		if l.match('=') {
			return l.make(token.BangEqual)
		}
		return l.make(token.Bang)
	case '=':
		if l.match('=') {
			return l.make(token.EqualEqual)
		}
		return l.make(token.Equal)
	case '<':
		if l.match('=') {
			return l.make(token.LessEqual)
		}
		return l.make(token.Less)
	case '>':
		if l.match('=') {
			return l.make(token.GreaterEqual)
		}
		return l.make(token.Greater)
	case '"':
		return l.string()
	}

	return l.errorToken("Unexpected character.")
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.peek() {
		case ' ', '\r', '\t':
			l.advance()
		case '\n':
			l.line++
			l.advance()
		case '/':
			if l.peekNext() == '/' {
				for l.peek() != '\n' && !l.isAtEnd() {
					l.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) string() token.Token {
	for l.peek() != '"' && !l.isAtEnd() {
		if l.peek() == '\n' {
			l.line++
		}
		l.advance()
	}
	if l.isAtEnd() {
		return l.errorToken("Unterminated string.")
	}
	l.advance() // closing quote
	return l.make(token.String)
}

func (l *Lexer) number() token.Token {
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	return l.make(token.Number)
}

func (l *Lexer) identifier() token.Token {
	for isAlphaNumeric(l.peek()) {
		l.advance()
	}
	text := l.src[l.start:l.pos]
	if kind, ok := token.Keywords[text]; ok {
		return l.make(kind)
	}
	return l.make(token.Identifier)
}
