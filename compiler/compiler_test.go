package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minilang/diag"
)

func TestCompileWellFormedProgram(t *testing.T) {
	res := New().Compile(`
		fn int add(a: int, b: int) {
			return a + b;
		}
		fn int main() {
			return add(1, 2);
		}
	`)
	require.False(t, res.Bus.HasErrors())
	require.NotNil(t, res.Module)
	_, ok := res.Module.FindFunction("main")
	assert.True(t, ok)
}

func TestCompileStopsAtLexicalError(t *testing.T) {
	res := New().Compile(`fn int f() { return 1 & 2; }`)
	assert.True(t, res.Bus.HasErrors(diag.Lexical))
	assert.Nil(t, res.Program)
	assert.Nil(t, res.Module)
}

func TestCompileStopsAtSyntaxError(t *testing.T) {
	res := New().Compile(`fn f(: int { return 1; }`)
	assert.True(t, res.Bus.HasErrors(diag.Syntax))
	assert.Nil(t, res.Module)
}

func TestCompileStopsAtSemanticError(t *testing.T) {
	res := New().Compile(`
		fn int main() {
			return y;
		}
	`)
	require.NotNil(t, res.Program)
	assert.True(t, res.Bus.HasErrors(diag.Semantic))
	assert.Nil(t, res.Module)
}
