package lexer_test

import (
	"testing"

	"github.com/kcorder/vesper/pkg/lexer"
	"github.com/kcorder/vesper/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(t *testing.T, src string) []token.Kind {
	t.Helper()
	l := lexer.New(src)
	var out []token.Kind
	for {
		tok := l.Advance()
		out = append(out, tok.Kind)
		if tok.Kind == token.EOF {
			break
		}
	}
	return out
}

func TestLexerStructuralAndOperators(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []token.Kind
	}{
		{"empty", "", []token.Kind{token.EOF}},
		{"parens and braces", "(){};,.", []token.Kind{
			token.LParen, token.RParen, token.LBrace, token.RBrace,
			token.Semicolon, token.Comma, token.Dot, token.EOF,
		}},
		{"maximal munch equality", "= == ! != > >= < <=", []token.Kind{
			token.Assign, token.EqEq, token.Bang, token.BangEq,
			token.Greater, token.GreaterEq, token.Less, token.LessEq, token.EOF,
		}},
		{"maximal munch logical", "&& ||", []token.Kind{token.AmpAmp, token.PipePipe, token.EOF}},
		{"arithmetic", "+ - * / %", []token.Kind{
			token.Plus, token.Minus, token.Star, token.Slash, token.Percent, token.EOF,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kinds(t, tt.src))
		})
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		src  string
		text string
	}{
		{"42", "42"},
		{"3.14", "3.14"},
		{"5.", "5."},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			l := lexer.New(tt.src)
			tok := l.Advance()
			require.Equal(t, token.Number, tok.Kind)
			assert.Equal(t, tt.text, tt.src[tok.Span.Start:tok.Span.End])
		})
	}
}

func TestLexerStrings(t *testing.T) {
	l := lexer.New(`"hello world"`)
	tok := l.Advance()
	require.Equal(t, token.String, tok.Kind)
	assert.Equal(t, `"hello world"`, `"hello world"`[tok.Span.Start:tok.Span.End])
}

func TestLexerUnterminatedString(t *testing.T) {
	l := lexer.New(`"unterminated`)
	tok := l.Advance()
	assert.Equal(t, token.String, tok.Kind)
	assert.Equal(t, token.EOF, l.Advance().Kind)
}

func TestLexerIdentifiersAndKeywords(t *testing.T) {
	assert.Equal(t, []token.Kind{token.Let, token.Ident, token.Assign, token.Number, token.Semicolon, token.EOF},
		kinds(t, "let x_1 = 10;"))
	assert.Equal(t, []token.Kind{token.If, token.Ident, token.LBrace, token.RBrace, token.Else, token.LBrace, token.RBrace, token.EOF},
		kinds(t, "if cond {} else {}"))
}

func TestLexerWhitespaceSkipped(t *testing.T) {
	assert.Equal(t, []token.Kind{token.Number, token.Plus, token.Number, token.EOF},
		kinds(t, "  1 \t+\n 2  \r\n"))
}

func TestLexerPeekIsIdempotent(t *testing.T) {
	l := lexer.New("let x")
	first := l.Peek()
	second := l.Peek()
	assert.Equal(t, first, second)
	assert.Equal(t, first, l.Advance())
}

func TestLexerIllegalToken(t *testing.T) {
	assert.Equal(t, []token.Kind{token.Illegal, token.EOF}, kinds(t, "@"))
}
