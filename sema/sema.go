// Package sema is minilang's two-pass semantic analyzer: a declaration
// pass that registers every function signature before any body is
// checked, then a body pass that type-checks statements and expressions
// and annotates every ast.Expr with its resolved types.Type.
package sema

import (
	"minilang/ast"
	"minilang/diag"
	"minilang/symtab"
	"minilang/types"
)

// Analyzer walks a Program twice against one shared symbol table.
type Analyzer struct {
	bus              *diag.Bus
	tbl              *symtab.Table
	currentReturn    types.Type
	currentReturnSet bool
}

// New builds an Analyzer reporting to bus over a fresh symbol table.
func New(bus *diag.Bus) *Analyzer {
	return &Analyzer{bus: bus, tbl: symtab.New()}
}

// Table exposes the symbol table built during analysis so the IR
// generator can resolve the same function signatures. Variable scopes
// are all closed once analysis finishes, so only functions resolve.
func (a *Analyzer) Table() *symtab.Table { return a.tbl }

// Analyze runs both passes and reports whether the program is free of
// semantic errors.
func (a *Analyzer) Analyze(prog *ast.Program) bool {
	a.declarePass(prog)
	a.bodyPass(prog)
	return !a.bus.HasErrors(diag.Semantic)
}

func (a *Analyzer) declarePass(prog *ast.Program) {
	for _, b := range builtins {
		// Pre-declaration can never collide at this point; ignore the
		// (impossible) error return.
		_, _ = a.tbl.DeclareFunction(b.name, b.paramTypes, b.returnType)
	}

	var sawMain *ast.FunctionDecl
	for _, fn := range prog.Functions {
		if isBuiltinName(fn.Name.Lexeme) {
			a.bus.Reportf(diag.Semantic, fn.Name.Span.Line, fn.Name.Span.Col,
				"'%s' is a built-in function and cannot be redeclared", fn.Name.Lexeme)
			continue
		}
		paramTypes := make([]types.Type, len(fn.Params))
		for i, p := range fn.Params {
			paramTypes[i] = p.Type
		}
		if _, err := a.tbl.DeclareFunction(fn.Name.Lexeme, paramTypes, fn.ReturnType); err != nil {
			a.bus.Reportf(diag.Semantic, fn.Name.Span.Line, fn.Name.Span.Col, "%s", err.Error())
			continue
		}
		if fn.Name.Lexeme == "main" {
			sawMain = fn
		}
	}
	if sawMain != nil {
		a.checkMainSignature(sawMain)
	}
}

// checkMainSignature accepts either no parameters or exactly
// (argc: int, argv: str[]), and requires an int return type.
func (a *Analyzer) checkMainSignature(fn *ast.FunctionDecl) {
	if fn.ReturnType.Name != types.Int {
		a.bus.Reportf(diag.Semantic, fn.Name.Span.Line, fn.Name.Span.Col,
			"Main function must return int")
	}

	switch len(fn.Params) {
	case 0:
	case 2:
		argc, argv := fn.Params[0], fn.Params[1]
		if argc.Type.Name != types.Int || argc.Type.IsArray {
			a.bus.Reportf(diag.Semantic, argc.Span.Line, argc.Span.Col,
				"'main's first parameter must be 'argc: int', found %s", argc.Type)
		}
		if argv.Type.Name != types.Str || !argv.Type.IsArray {
			a.bus.Reportf(diag.Semantic, argv.Span.Line, argv.Span.Col,
				"'main's second parameter must be 'argv: str[]', found %s", argv.Type)
		}
	default:
		a.bus.Reportf(diag.Semantic, fn.Name.Span.Line, fn.Name.Span.Col,
			"'main' must take no parameters, or exactly (argc: int, argv: str[])")
	}
}

func (a *Analyzer) bodyPass(prog *ast.Program) {
	for _, fn := range prog.Functions {
		if isBuiltinName(fn.Name.Lexeme) {
			continue
		}
		a.tbl.Enter()
		for _, p := range fn.Params {
			if _, err := a.tbl.Declare(p.Name.Lexeme, p.Type); err != nil {
				a.bus.Reportf(diag.Semantic, p.Name.Span.Line, p.Name.Span.Col, "%s", err.Error())
			}
		}
		prevReturn, prevSet := a.currentReturn, a.currentReturnSet
		a.currentReturn, a.currentReturnSet = fn.ReturnType, true
		a.checkStmt(fn.Body)
		a.currentReturn, a.currentReturnSet = prevReturn, prevSet
		a.tbl.Exit()
	}
}

func (a *Analyzer) checkStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.BlockStmt:
		if !n.FuncBody {
			a.tbl.Enter()
			defer a.tbl.Exit()
		}
		for _, st := range n.Stmts {
			a.checkStmt(st)
		}

	case *ast.VarDeclStmt:
		if n.Initializer != nil {
			initT := a.checkExpr(n.Initializer)
			if !types.IsCompatible(n.Type, initT) {
				a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col,
					"cannot initialize '%s' of type %s with value of type %s", n.Name.Lexeme, n.Type, initT)
			}
		}
		if _, err := a.tbl.Declare(n.Name.Lexeme, n.Type); err != nil {
			a.bus.Reportf(diag.Semantic, n.Name.Span.Line, n.Name.Span.Col, "%s", err.Error())
		}

	case *ast.ExprStmt:
		a.checkExpr(n.X)

	case *ast.IfStmt:
		condT := a.checkExpr(n.Cond)
		if !types.IsBool(condT) {
			a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col, "if condition must be bool, found %s", condT)
		}
		a.checkStmt(n.Then)
		if n.Else != nil {
			a.checkStmt(n.Else)
		}

	case *ast.WhileStmt:
		condT := a.checkExpr(n.Cond)
		if !types.IsBool(condT) {
			a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col, "while condition must be bool, found %s", condT)
		}
		a.checkStmt(n.Body)

	case *ast.ReturnStmt:
		if n.Value == nil {
			if a.currentReturnSet && a.currentReturn.Name != types.Void {
				a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col,
					"missing return value, function returns %s", a.currentReturn)
			}
			return
		}
		valT := a.checkExpr(n.Value)
		if a.currentReturnSet && !types.IsCompatible(a.currentReturn, valT) {
			a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col,
				"cannot return value of type %s from function returning %s", valT, a.currentReturn)
		}
	}
}

func (a *Analyzer) checkExpr(e ast.Expr) types.Type {
	switch n := e.(type) {
	case *ast.NumberExpr:
		if n.IsFloat {
			n.Type = types.Scalar(types.Float)
		} else {
			n.Type = types.Scalar(types.Int)
		}
		return n.Type

	case *ast.StringLitExpr:
		n.Type = types.Scalar(types.Str)
		return n.Type

	case *ast.BoolLitExpr:
		n.Type = types.Scalar(types.Bool)
		return n.Type

	case *ast.VariableExpr:
		sym, ok := a.tbl.Resolve(n.Name.Lexeme)
		if !ok {
			a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col, "undeclared variable '%s'", n.Name.Lexeme)
			n.Type = types.Scalar(types.Any)
			return n.Type
		}
		n.Type = sym.Type
		return n.Type

	case *ast.ArrayAccessExpr:
		baseT := a.checkExpr(n.Base)
		idxT := a.checkExpr(n.Index)
		if !baseT.IsArray && baseT.Name != types.Any {
			a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col, "cannot index non-array type %s", baseT)
		}
		if idxT.Name != types.Int && idxT.Name != types.Any {
			a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col, "array index must be int, found %s", idxT)
		}
		n.Type = types.Scalar(baseT.Name)
		return n.Type

	case *ast.UnaryExpr:
		xt := a.checkExpr(n.X)
		switch n.Op {
		case ast.Neg:
			if !types.IsNumeric(xt) && xt.Name != types.Any {
				a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col, "unary '-' requires a numeric operand, found %s", xt)
			}
		case ast.Not:
			if !types.IsBool(xt) && xt.Name != types.Any {
				a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col, "unary '!' requires a bool operand, found %s", xt)
			}
		}
		n.Type = xt
		return n.Type

	case *ast.BinaryExpr:
		lt := a.checkExpr(n.Left)
		rt := a.checkExpr(n.Right)
		switch n.Op {
		case ast.Add, ast.Sub, ast.Mul, ast.Div:
			if n.Op == ast.Add && lt.Name == types.Str && rt.Name == types.Str {
				n.Type = types.Scalar(types.Str)
				return n.Type
			}
			if !types.IsNumeric(lt) && lt.Name != types.Any || !types.IsNumeric(rt) && rt.Name != types.Any {
				a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col, "operator '%s' requires numeric operands, found %s and %s", n.Op, lt, rt)
			}
			n.Type = types.Common(lt, rt)
		case ast.Lt, ast.LtEq, ast.Gt, ast.GtEq:
			if !types.IsNumeric(lt) && lt.Name != types.Any || !types.IsNumeric(rt) && rt.Name != types.Any {
				a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col, "operator '%s' requires numeric operands, found %s and %s", n.Op, lt, rt)
			}
			n.Type = types.Scalar(types.Bool)
		case ast.EqOp, ast.NotEqOp:
			if !types.IsCompatible(lt, rt) && !types.IsCompatible(rt, lt) {
				a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col, "cannot compare incompatible types %s and %s", lt, rt)
			}
			n.Type = types.Scalar(types.Bool)
		case ast.And, ast.Or:
			if !types.IsBool(lt) && lt.Name != types.Any || !types.IsBool(rt) && rt.Name != types.Any {
				a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col, "operator '%s' requires bool operands, found %s and %s", n.Op, lt, rt)
			}
			n.Type = types.Scalar(types.Bool)
		}
		return n.Type

	case *ast.AssignExpr:
		targetT := a.checkExpr(n.Target)
		switch n.Target.(type) {
		case *ast.VariableExpr, *ast.ArrayAccessExpr:
		default:
			a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col, "invalid assignment target")
		}
		valueT := a.checkExpr(n.Value)
		if n.Op != ast.Set && targetT.Name == types.Str && valueT.Name == types.Str && n.Op == ast.AddSet {
			n.Type = targetT
			return n.Type
		}
		if n.Op != ast.Set {
			if !types.IsNumeric(targetT) && targetT.Name != types.Any {
				a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col, "operator '%s' requires a numeric target, found %s", n.Op, targetT)
			}
		}
		if !types.IsCompatible(targetT, valueT) {
			a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col, "cannot assign value of type %s to target of type %s", valueT, targetT)
		}
		n.Type = targetT
		return n.Type

	case *ast.CallExpr:
		return a.checkCall(n)

	case *ast.ArrayInitExpr:
		elemType := types.Scalar(types.Any)
		for i, el := range n.Elements {
			t := a.checkExpr(el)
			if i == 0 {
				elemType = types.Scalar(t.Name)
			} else {
				elemType = types.Scalar(types.Common(elemType, types.Scalar(t.Name)).Name)
			}
		}
		n.Type = types.FixedArray(elemType.Name, len(n.Elements))
		return n.Type

	case *ast.ArrayAllocExpr:
		sizeT := a.checkExpr(n.Size)
		if sizeT.Name != types.Int && sizeT.Name != types.Any {
			a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col, "array allocation size must be int, found %s", sizeT)
		}
		n.Type = types.DynamicArray(n.ElementType.Name)
		return n.Type

	case *ast.TypeRefExpr:
		return n.Ref
	}
	return types.Scalar(types.Any)
}

func (a *Analyzer) checkCall(n *ast.CallExpr) types.Type {
	name := n.Callee.Lexeme
	fn, ok := a.tbl.ResolveFunction(name)
	if !ok {
		a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col, "call to undeclared function '%s'", name)
		for _, arg := range n.Args {
			a.checkExpr(arg)
		}
		n.Type = types.Scalar(types.Any)
		return n.Type
	}

	if b, isBuiltin := lookupBuiltin(name); isBuiltin && b.variadic {
		for _, arg := range n.Args {
			a.checkExpr(arg)
		}
		n.Type = fn.ReturnType
		return n.Type
	}

	if len(n.Args) != len(fn.ParamTypes) {
		a.bus.Reportf(diag.Semantic, n.Span.Line, n.Span.Col,
			"'%s' expects %d argument(s), found %d", name, len(fn.ParamTypes), len(n.Args))
	}
	for i, arg := range n.Args {
		argT := a.checkExpr(arg)
		if i >= len(fn.ParamTypes) {
			continue
		}
		want := fn.ParamTypes[i]
		if want.Name == types.Any {
			continue
		}
		if !types.IsCompatible(want, argT) {
			a.bus.Reportf(diag.Semantic, arg.SpanOf().Line, arg.SpanOf().Col,
				"argument %d to '%s' has type %s, expected %s", i+1, name, argT, want)
		}
	}
	n.Type = fn.ReturnType
	return n.Type
}
