package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"minilang/diag"
	"minilang/token"
)

func tokenTypes(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestTokenizeFunctionSignature(t *testing.T) {
	bus := &diag.Bus{}
	toks := New("fn int add(a: int, b: int) {", bus).Tokenize()
	assert.Equal(t, []token.Type{
		token.Fn, token.IntKw, token.Identifier, token.LeftParen,
		token.Identifier, token.Colon, token.IntKw, token.Comma,
		token.Identifier, token.Colon, token.IntKw, token.RightParen,
		token.LeftBrace, token.End,
	}, tokenTypes(toks))
}

func TestTokenizeNumbers(t *testing.T) {
	bus := &diag.Bus{}
	toks := New("42 3.14 0", bus).Tokenize()
	assert.Equal(t, token.Number, toks[0].Type)
	assert.Equal(t, "42", toks[0].Lexeme)
	assert.Equal(t, token.FloatLiteral, toks[1].Type)
	assert.Equal(t, "3.14", toks[1].Lexeme)
	assert.Equal(t, token.Number, toks[2].Type)
}

func TestTokenizeStringEscape(t *testing.T) {
	bus := &diag.Bus{}
	toks := New(`"hi\n"`, bus).Tokenize()
	assert.Equal(t, token.StringLiteral, toks[0].Type)
	assert.Equal(t, "hi\n", toks[0].Lexeme)
}

func TestTokenizeCompoundAssign(t *testing.T) {
	bus := &diag.Bus{}
	toks := New("x += 1; y -= 2; z *= 3; w /= 4;", bus).Tokenize()
	assert.Equal(t, token.PlusEq, toks[1].Type)
	assert.Equal(t, token.MinusEq, toks[5].Type)
	assert.Equal(t, token.StarEq, toks[9].Type)
	assert.Equal(t, token.SlashEq, toks[13].Type)
}

func TestTokenizeLoneAmpersandReportsLexicalError(t *testing.T) {
	bus := &diag.Bus{}
	New("a & b", bus).Tokenize()
	assert.True(t, bus.HasErrors(diag.Lexical))
}

func TestTokenizeUnterminatedStringReportsError(t *testing.T) {
	bus := &diag.Bus{}
	New(`"abc`, bus).Tokenize()
	assert.True(t, bus.HasErrors(diag.Lexical))
}

func TestTokenizeSkipsComments(t *testing.T) {
	bus := &diag.Bus{}
	toks := New("// comment\nvar /* inline */ x", bus).Tokenize()
	assert.Equal(t, []token.Type{token.Var, token.Identifier, token.End}, tokenTypes(toks))
}

func TestTokenizeKeywordsAndBooleans(t *testing.T) {
	bus := &diag.Bus{}
	toks := New("if else while return true false", bus).Tokenize()
	assert.Equal(t, []token.Type{
		token.If, token.Else, token.While, token.Return,
		token.BoolLiteral, token.BoolLiteral, token.End,
	}, tokenTypes(toks))
}
