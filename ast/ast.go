// Package ast defines minilang's abstract syntax tree. Every node variant
// carries a span; parent back-references (where present) are weak —
// observation only, never lifetime-owning.
package ast

import (
	"minilang/token"
	"minilang/types"
)

// Program owns an ordered sequence of function declarations.
type Program struct {
	Functions []*FunctionDecl
	Span      token.Span
}

// Parameter is a function parameter: name token plus declared type.
type Parameter struct {
	Name token.Token
	Type types.Type
	Span token.Span
}

// FunctionDecl is a top-level function: name, return type, params, body.
type FunctionDecl struct {
	Name       token.Token
	ReturnType types.Type
	Params     []*Parameter
	Body       *BlockStmt
	Span       token.Span
}

// Stmt is the sum type of statement variants. Every variant carries a span.
type Stmt interface {
	stmtNode()
	SpanOf() token.Span
}

// Expr is the sum type of expression variants. Every variant carries a
// span and, once typed by the semantic analyzer, its inferred Type.
type Expr interface {
	exprNode()
	SpanOf() token.Span
}

// ---- statements ----------------------------------------------------------

type VarDeclStmt struct {
	Name        token.Token
	Type        types.Type
	Initializer Expr // nil if absent
	Span        token.Span
}

type ExprStmt struct {
	X    Expr
	Span token.Span
}

type BlockStmt struct {
	Stmts []Stmt
	Span  token.Span
	// FuncBody is true when this block is the direct body of a
	// FunctionDecl: its scope is the function's parameter scope, not a
	// fresh nested one.
	FuncBody bool
}

type IfStmt struct {
	Cond Expr
	Then Stmt
	Else Stmt // nil if absent
	Span token.Span
}

type WhileStmt struct {
	Cond Expr
	Body Stmt
	Span token.Span
}

type ReturnStmt struct {
	Value Expr // nil if bare `return;`
	Span  token.Span
}

func (*VarDeclStmt) stmtNode() {}
func (*ExprStmt) stmtNode()    {}
func (*BlockStmt) stmtNode()   {}
func (*IfStmt) stmtNode()      {}
func (*WhileStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode()  {}

func (s *VarDeclStmt) SpanOf() token.Span { return s.Span }
func (s *ExprStmt) SpanOf() token.Span    { return s.Span }
func (s *BlockStmt) SpanOf() token.Span   { return s.Span }
func (s *IfStmt) SpanOf() token.Span      { return s.Span }
func (s *WhileStmt) SpanOf() token.Span   { return s.Span }
func (s *ReturnStmt) SpanOf() token.Span  { return s.Span }

// ---- expressions ----------------------------------------------------------

type NumberExpr struct {
	Lexeme  string
	IsFloat bool
	Type    types.Type
	Span    token.Span
}

type StringLitExpr struct {
	Lexeme string
	Type   types.Type
	Span   token.Span
}

type BoolLitExpr struct {
	Value bool
	Type  types.Type
	Span  token.Span
}

type VariableExpr struct {
	Name token.Token
	Type types.Type
	Span token.Span
}

type ArrayAccessExpr struct {
	Base  Expr
	Index Expr
	Type  types.Type
	Span  token.Span
}

type UnaryOp int

const (
	Neg UnaryOp = iota
	Not
)

type UnaryExpr struct {
	Op   UnaryOp
	X    Expr
	Type types.Type
	Span token.Span
}

type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	EqOp
	NotEqOp
	Lt
	LtEq
	Gt
	GtEq
	And
	Or
)

type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	Type  types.Type
	Span  token.Span
}

type AssignOp int

const (
	Set AssignOp = iota
	AddSet
	SubSet
	MulSet
	DivSet
)

type AssignExpr struct {
	Target Expr // *VariableExpr or *ArrayAccessExpr
	Op     AssignOp
	Value  Expr
	Type   types.Type
	Span   token.Span
}

// CallExpr has a weak Parent back-reference: when a call is the direct
// initializer of a VarDecl, the IR generator consults Parent to resolve
// malloc's element type. Never set in any other position.
type CallExpr struct {
	Callee token.Token
	Args   []Expr
	Type   types.Type
	Span   token.Span
	Parent *VarDeclStmt
}

type ArrayInitExpr struct {
	Elements []Expr
	Type     types.Type
	Span     token.Span
}

type ArrayAllocExpr struct {
	ElementType types.Type
	Size        Expr
	Type        types.Type
	Span        token.Span
}

// TypeRefExpr occurs only as the argument to sizeof.
type TypeRefExpr struct {
	Ref  types.Type
	Span token.Span
}

func (*NumberExpr) exprNode()      {}
func (*StringLitExpr) exprNode()   {}
func (*BoolLitExpr) exprNode()     {}
func (*VariableExpr) exprNode()    {}
func (*ArrayAccessExpr) exprNode() {}
func (*UnaryExpr) exprNode()       {}
func (*BinaryExpr) exprNode()      {}
func (*AssignExpr) exprNode()      {}
func (*CallExpr) exprNode()        {}
func (*ArrayInitExpr) exprNode()   {}
func (*ArrayAllocExpr) exprNode()  {}
func (*TypeRefExpr) exprNode()     {}

func (e *NumberExpr) SpanOf() token.Span      { return e.Span }
func (e *StringLitExpr) SpanOf() token.Span   { return e.Span }
func (e *BoolLitExpr) SpanOf() token.Span     { return e.Span }
func (e *VariableExpr) SpanOf() token.Span    { return e.Span }
func (e *ArrayAccessExpr) SpanOf() token.Span { return e.Span }
func (e *UnaryExpr) SpanOf() token.Span       { return e.Span }
func (e *BinaryExpr) SpanOf() token.Span      { return e.Span }
func (e *AssignExpr) SpanOf() token.Span      { return e.Span }
func (e *CallExpr) SpanOf() token.Span        { return e.Span }
func (e *ArrayInitExpr) SpanOf() token.Span   { return e.Span }
func (e *ArrayAllocExpr) SpanOf() token.Span  { return e.Span }
func (e *TypeRefExpr) SpanOf() token.Span     { return e.Span }

func (op BinaryOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case EqOp:
		return "=="
	case NotEqOp:
		return "!="
	case Lt:
		return "<"
	case LtEq:
		return "<="
	case Gt:
		return ">"
	case GtEq:
		return ">="
	case And:
		return "&&"
	case Or:
		return "||"
	}
	return "?"
}

func (op UnaryOp) String() string {
	switch op {
	case Neg:
		return "-"
	case Not:
		return "!"
	}
	return "?"
}

func (op AssignOp) String() string {
	switch op {
	case Set:
		return "="
	case AddSet:
		return "+="
	case SubSet:
		return "-="
	case MulSet:
		return "*="
	case DivSet:
		return "/="
	}
	return "?"
}
