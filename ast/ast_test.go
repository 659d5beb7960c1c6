package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"minilang/token"
	"minilang/types"
)

func TestPrintSimpleFunction(t *testing.T) {
	prog := &Program{
		Functions: []*FunctionDecl{
			{
				Name:       token.New(token.Identifier, "main", 1, 1),
				ReturnType: types.Scalar(types.Int),
				Body: &BlockStmt{
					FuncBody: true,
					Stmts: []Stmt{
						&VarDeclStmt{
							Name: token.New(token.Identifier, "x", 2, 2),
							Type: types.Scalar(types.Int),
							Initializer: &NumberExpr{
								Lexeme: "1",
								Type:   types.Scalar(types.Int),
							},
						},
						&ReturnStmt{
							Value: &VariableExpr{Name: token.New(token.Identifier, "x", 3, 2)},
						},
					},
				},
			},
		},
	}

	out := Print(prog)
	assert.Contains(t, out, "fn int main(")
	assert.Contains(t, out, "var x: int")
	assert.Contains(t, out, "number 1")
	assert.Contains(t, out, "return")
	assert.Contains(t, out, "var-ref x")
}

func TestCallExprWeakParentLink(t *testing.T) {
	call := &CallExpr{Callee: token.New(token.Identifier, "malloc", 1, 1)}
	decl := &VarDeclStmt{
		Name:        token.New(token.Identifier, "buf", 1, 1),
		Type:        types.DynamicArray(types.Int),
		Initializer: call,
	}
	call.Parent = decl

	assert.Same(t, decl, call.Parent)
	assert.Equal(t, decl.Initializer, Expr(call))
}

func TestOpStringers(t *testing.T) {
	assert.Equal(t, "+", Add.String())
	assert.Equal(t, "&&", And.String())
	assert.Equal(t, "!", Not.String())
	assert.Equal(t, "+=", AddSet.String())
}
