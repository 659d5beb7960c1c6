package sema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minilang/ast"
	"minilang/diag"
	"minilang/lexer"
	"minilang/parser"
	"minilang/types"
)

func analyze(t *testing.T, src string) (*ast.Program, *Analyzer, *diag.Bus) {
	t.Helper()
	bus := &diag.Bus{}
	toks := lexer.New(src, bus).Tokenize()
	prog := parser.New(toks, bus).ParseProgram()
	require.False(t, bus.HasErrors())
	an := New(bus)
	an.Analyze(prog)
	return prog, an, bus
}

func TestAnalyzeWellTypedProgram(t *testing.T) {
	_, _, bus := analyze(t, `
		fn int add(a: int, b: int) {
			return a + b;
		}
		fn int main() {
			var x: int = add(1, 2);
			return x;
		}
	`)
	assert.False(t, bus.HasErrors(diag.Semantic))
}

func TestAnalyzeUndeclaredVariable(t *testing.T) {
	_, _, bus := analyze(t, `
		fn int main() {
			return y;
		}
	`)
	assert.True(t, bus.HasErrors(diag.Semantic))
}

func TestAnalyzeTypeMismatchOnVarDecl(t *testing.T) {
	_, _, bus := analyze(t, `
		fn int main() {
			var s: str = 1;
			return 0;
		}
	`)
	assert.True(t, bus.HasErrors(diag.Semantic))
}

func TestAnalyzeIntWidensToFloat(t *testing.T) {
	_, _, bus := analyze(t, `
		fn int main() {
			var f: float = 1;
			return 0;
		}
	`)
	assert.False(t, bus.HasErrors(diag.Semantic))
}

func TestAnalyzeRedeclarationInSameScope(t *testing.T) {
	_, _, bus := analyze(t, `
		fn int main() {
			var x: int = 1;
			var x: int = 2;
			return x;
		}
	`)
	assert.True(t, bus.HasErrors(diag.Semantic))
}

func TestAnalyzeBuiltinRedeclarationRejected(t *testing.T) {
	_, _, bus := analyze(t, `
		fn void print(x: int) {
			return;
		}
		fn int main() {
			return 0;
		}
	`)
	assert.True(t, bus.HasErrors(diag.Semantic))
}

func TestAnalyzeMainWithSingleParamRejected(t *testing.T) {
	_, _, bus := analyze(t, `
		fn int main(a: int) {
			return 0;
		}
	`)
	assert.True(t, bus.HasErrors(diag.Semantic))
}

func TestAnalyzeIfConditionMustBeBool(t *testing.T) {
	_, _, bus := analyze(t, `
		fn int main() {
			if (1) {
				return 1;
			}
			return 0;
		}
	`)
	assert.True(t, bus.HasErrors(diag.Semantic))
}

func TestAnalyzeMallocInitializerKeepsDeclaredType(t *testing.T) {
	prog, _, bus := analyze(t, `
		fn int main() {
			var buf: int[] = malloc(10);
			return buf[0];
		}
	`)
	assert.False(t, bus.HasErrors(diag.Semantic))
	decl := prog.Functions[0].Body.Stmts[0].(*ast.VarDeclStmt)
	assert.Equal(t, types.DynamicArray(types.Int), decl.Type)
}

func TestAnalyzeArrayIndexMustBeInt(t *testing.T) {
	_, _, bus := analyze(t, `
		fn int main() {
			var buf: int[] = malloc(10);
			return buf["x"];
		}
	`)
	assert.True(t, bus.HasErrors(diag.Semantic))
}

func TestAnalyzeCallArgCountMismatch(t *testing.T) {
	_, _, bus := analyze(t, `
		fn int add(a: int, b: int) {
			return a + b;
		}
		fn int main() {
			return add(1);
		}
	`)
	assert.True(t, bus.HasErrors(diag.Semantic))
}

func TestAnalyzeStringConcatenation(t *testing.T) {
	_, _, bus := analyze(t, `
		fn int main() {
			var s: str = "a" + "b";
			return 0;
		}
	`)
	assert.False(t, bus.HasErrors(diag.Semantic))
}
