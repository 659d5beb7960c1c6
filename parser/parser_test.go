package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minilang/ast"
	"minilang/diag"
	"minilang/lexer"
)

func parse(t *testing.T, src string) (*ast.Program, *diag.Bus) {
	t.Helper()
	bus := &diag.Bus{}
	toks := lexer.New(src, bus).Tokenize()
	prog := New(toks, bus).ParseProgram()
	return prog, bus
}

func TestParseSimpleFunction(t *testing.T) {
	prog, bus := parse(t, `
		fn int add(a: int, b: int) {
			return a + b;
		}
	`)
	require.False(t, bus.HasErrors())
	require.Len(t, prog.Functions, 1)

	fn := prog.Functions[0]
	assert.Equal(t, "add", fn.Name.Lexeme)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name.Lexeme)
	require.Len(t, fn.Body.Stmts, 1)

	ret, ok := fn.Body.Stmts[0].(*ast.ReturnStmt)
	require.True(t, ok)
	bin, ok := ret.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.Add, bin.Op)
}

func TestParseVarDeclWithMallocSetsWeakParent(t *testing.T) {
	prog, bus := parse(t, `
		fn void main() {
			var buf: int[] = malloc(10);
		}
	`)
	require.False(t, bus.HasErrors())
	decl := prog.Functions[0].Body.Stmts[0].(*ast.VarDeclStmt)
	call, ok := decl.Initializer.(*ast.CallExpr)
	require.True(t, ok)
	assert.Same(t, decl, call.Parent)
}

func TestParseArrayAllocationExpression(t *testing.T) {
	prog, bus := parse(t, `
		fn void main() {
			var buf: int[] = int[5];
		}
	`)
	require.False(t, bus.HasErrors())
	decl := prog.Functions[0].Body.Stmts[0].(*ast.VarDeclStmt)
	alloc, ok := decl.Initializer.(*ast.ArrayAllocExpr)
	require.True(t, ok)
	assert.Equal(t, "int", alloc.ElementType.Name)
}

func TestParseIfElseAndWhile(t *testing.T) {
	prog, bus := parse(t, `
		fn void f() {
			if (true) {
				while (false) { }
			} else {
				return;
			}
		}
	`)
	require.False(t, bus.HasErrors())
	ifStmt, ok := prog.Functions[0].Body.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
	assert.NotNil(t, ifStmt.Else)
}

func TestParsePrecedence(t *testing.T) {
	prog, bus := parse(t, `
		fn int f() {
			return 1 + 2 * 3;
		}
	`)
	require.False(t, bus.HasErrors())
	ret := prog.Functions[0].Body.Stmts[0].(*ast.ReturnStmt)
	top, ok := ret.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.Add, top.Op)
	_, rightIsMul := top.Right.(*ast.BinaryExpr)
	assert.True(t, rightIsMul)
}

func TestParseCompoundAssignment(t *testing.T) {
	prog, bus := parse(t, `
		fn void f() {
			var x: int = 0;
			x += 1;
		}
	`)
	require.False(t, bus.HasErrors())
	stmt := prog.Functions[0].Body.Stmts[1].(*ast.ExprStmt)
	assign, ok := stmt.X.(*ast.AssignExpr)
	require.True(t, ok)
	assert.Equal(t, ast.AddSet, assign.Op)
}

func TestParseErrorRecoversAtNextFunction(t *testing.T) {
	prog, bus := parse(t, `
		fn broken( {
			return 1;
		}

		fn int ok() {
			return 2;
		}
	`)
	assert.True(t, bus.HasErrors(diag.Syntax))
	var names []string
	for _, fn := range prog.Functions {
		names = append(names, fn.Name.Lexeme)
	}
	assert.Contains(t, names, "ok")
}

func TestParseSizeofWithTypeArgument(t *testing.T) {
	prog, bus := parse(t, `
		fn int f() {
			return sizeof(int);
		}
	`)
	require.False(t, bus.HasErrors())
	ret := prog.Functions[0].Body.Stmts[0].(*ast.ReturnStmt)
	call, ok := ret.Value.(*ast.CallExpr)
	require.True(t, ok)
	require.Len(t, call.Args, 1)
	_, isTypeRef := call.Args[0].(*ast.TypeRefExpr)
	assert.True(t, isTypeRef)
}

func TestParseArrayAccessOnVariable(t *testing.T) {
	prog, bus := parse(t, `
		fn int f() {
			var a: int[] = malloc(3);
			return a[0];
		}
	`)
	require.False(t, bus.HasErrors())
	ret := prog.Functions[0].Body.Stmts[1].(*ast.ReturnStmt)
	access, ok := ret.Value.(*ast.ArrayAccessExpr)
	require.True(t, ok)
	_, baseIsVar := access.Base.(*ast.VariableExpr)
	assert.True(t, baseIsVar)
}

func TestParseEmptyFunctionBody(t *testing.T) {
	prog, bus := parse(t, `fn void f() { }`)
	require.False(t, bus.HasErrors())
	require.Len(t, prog.Functions, 1)
	assert.Empty(t, prog.Functions[0].Body.Stmts)
}
