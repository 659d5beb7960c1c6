// Package irgen lowers a type-checked ast.Program into an ir.Module. It
// walks each function body post-order, keeping one active ir.Function and
// ir.BasicBlock on the Generator while it does.
package irgen

import (
	"strconv"

	"minilang/ast"
	"minilang/ir"
	"minilang/symtab"
	"minilang/types"
)

// Generator holds the lowering state for one module.
type Generator struct {
	tbl    *symtab.Table
	module *ir.Module
	fn     *ir.Function
	block  *ir.BasicBlock
}

// New builds a Generator that resolves function signatures against tbl,
// the same table the semantic analyzer populated.
func New(tbl *symtab.Table) *Generator {
	return &Generator{tbl: tbl}
}

// Generate lowers prog into a fresh Module.
func (g *Generator) Generate(prog *ast.Program) *ir.Module {
	g.module = ir.NewModule("minilang")
	for _, fn := range prog.Functions {
		g.module.Functions = append(g.module.Functions, g.genFunction(fn))
	}
	return g.module
}

func (g *Generator) genFunction(decl *ast.FunctionDecl) *ir.Function {
	fn := ir.NewFunction(decl.Name.Lexeme, decl.ReturnType)
	for _, p := range decl.Params {
		v := fn.NewValue(p.Type)
		fn.Params = append(fn.Params, ir.Param{Name: p.Name.Lexeme, Value: v})
	}

	prevFn, prevBlock := g.fn, g.block
	g.fn = fn
	g.block = fn.NewBlock("entry")

	g.genStmt(decl.Body)

	if g.block.Term == nil {
		if decl.ReturnType.Name == types.Void {
			g.block.Term = ir.Ret{}
		} else {
			g.block.Term = ir.Ret{HasValue: true, Value: g.zeroValue(decl.ReturnType)}
		}
	}

	g.fn, g.block = prevFn, prevBlock
	return fn
}

// zeroValue emits a const instruction producing t's default value —
// used for declarations with no initializer and for the implicit
// trailing return a well-typed but control-flow-incomplete function
// body leaves behind.
func (g *Generator) zeroValue(t types.Type) ir.Value {
	if t.IsArray {
		result := g.fn.NewValue(t)
		zero := g.constInt(0)
		return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: ir.OpArrayNew, Args: []ir.Value{zero}, Name: t.Name})
	}
	switch t.Name {
	case types.Float:
		return g.emitConst(t, float64(0))
	case types.Bool:
		return g.emitConst(t, false)
	case types.Str:
		return g.emitConst(t, "")
	case types.Void:
		return ir.Value{Type: types.Scalar(types.Void)}
	default:
		return g.emitConst(types.Scalar(types.Int), int64(0))
	}
}

func (g *Generator) constInt(n int64) ir.Value { return g.emitConst(types.Scalar(types.Int), n) }

func (g *Generator) emitConst(t types.Type, v interface{}) ir.Value {
	result := g.fn.NewValue(t)
	return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: ir.OpConst, Const: v})
}

func (g *Generator) emitAssign(name string, v ir.Value) {
	result := g.fn.NewValue(v.Type)
	g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: ir.OpAssign, Name: name, Args: []ir.Value{v}})
}

// ---- statements -----------------------------------------------------------

func (g *Generator) genStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.BlockStmt:
		for _, st := range n.Stmts {
			g.genStmt(st)
			if g.block.Term != nil {
				return
			}
		}

	case *ast.VarDeclStmt:
		if n.Initializer != nil {
			v := g.genExprExpect(n.Initializer, n.Type)
			v = g.widenIfNeeded(v, n.Type)
			g.emitAssign(n.Name.Lexeme, v)
		} else {
			g.emitAssign(n.Name.Lexeme, g.zeroValue(n.Type))
		}

	case *ast.ExprStmt:
		g.genExpr(n.X)

	case *ast.IfStmt:
		cond := g.genExpr(n.Cond)
		thenBlk := g.fn.NewBlock("if_then")
		elseBlk := g.fn.NewBlock("if_else")
		mergeBlk := g.fn.NewBlock("if_merge")
		g.block.Term = ir.Branch{Cond: cond, Then: thenBlk, Else: elseBlk}

		g.block = thenBlk
		g.genStmt(n.Then)
		if g.block.Term == nil {
			g.block.Term = ir.Jump{Target: mergeBlk}
		}

		g.block = elseBlk
		if n.Else != nil {
			g.genStmt(n.Else)
		}
		if g.block.Term == nil {
			g.block.Term = ir.Jump{Target: mergeBlk}
		}

		g.block = mergeBlk

	case *ast.WhileStmt:
		condBlk := g.fn.NewBlock("while_cond")
		bodyBlk := g.fn.NewBlock("while_body")
		afterBlk := g.fn.NewBlock("while_after")
		g.block.Term = ir.Jump{Target: condBlk}

		g.block = condBlk
		cond := g.genExpr(n.Cond)
		g.block.Term = ir.Branch{Cond: cond, Then: bodyBlk, Else: afterBlk}

		g.block = bodyBlk
		g.genStmt(n.Body)
		if g.block.Term == nil {
			g.block.Term = ir.Jump{Target: condBlk}
		}

		g.block = afterBlk

	case *ast.ReturnStmt:
		if n.Value == nil {
			g.block.Term = ir.Ret{}
			return
		}
		v := g.genExprExpect(n.Value, g.fn.ReturnType)
		v = g.widenIfNeeded(v, g.fn.ReturnType)
		g.block.Term = ir.Ret{HasValue: true, Value: v}
	}
}

// ---- expressions ------------------------------------------------------

// genExpr lowers e with no expected-type context.
func (g *Generator) genExpr(e ast.Expr) ir.Value {
	return g.genExprExpect(e, types.Type{})
}

// genExprExpect lowers e, threading the type the surrounding context
// expects of it down into the call. malloc/realloc calls use it to
// recover their element type in preference to their CallExpr.Parent
// back-reference, which only covers the direct-VarDecl-initializer case.
func (g *Generator) genExprExpect(e ast.Expr, expected types.Type) ir.Value {
	switch n := e.(type) {
	case *ast.NumberExpr:
		if n.IsFloat {
			f, _ := strconv.ParseFloat(n.Lexeme, 64)
			return g.emitConst(types.Scalar(types.Float), f)
		}
		i, _ := strconv.ParseInt(n.Lexeme, 10, 64)
		return g.emitConst(types.Scalar(types.Int), i)

	case *ast.StringLitExpr:
		return g.emitConst(types.Scalar(types.Str), n.Lexeme)

	case *ast.BoolLitExpr:
		return g.emitConst(types.Scalar(types.Bool), n.Value)

	case *ast.VariableExpr:
		result := g.fn.NewValue(n.Type)
		return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: ir.OpVarRef, Name: n.Name.Lexeme})

	case *ast.ArrayAccessExpr:
		base := g.genExpr(n.Base)
		idx := g.genExpr(n.Index)
		result := g.fn.NewValue(n.Type)
		return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: ir.OpIndex, Args: []ir.Value{base, idx}})

	case *ast.UnaryExpr:
		x := g.genExpr(n.X)
		op := ir.OpNeg
		if n.Op == ast.Not {
			op = ir.OpNot
		}
		result := g.fn.NewValue(n.Type)
		return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: op, Args: []ir.Value{x}})

	case *ast.BinaryExpr:
		return g.genBinary(n)

	case *ast.AssignExpr:
		return g.genAssign(n)

	case *ast.CallExpr:
		return g.genCall(n, expected)

	case *ast.ArrayInitExpr:
		elemType := types.Scalar(n.Type.Name)
		args := make([]ir.Value, len(n.Elements))
		for i, el := range n.Elements {
			args[i] = g.genExprExpect(el, elemType)
		}
		result := g.fn.NewValue(n.Type)
		return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: ir.OpArrayLit, Args: args, Name: elemType.Name})

	case *ast.ArrayAllocExpr:
		size := g.genExpr(n.Size)
		result := g.fn.NewValue(n.Type)
		return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: ir.OpArrayNew, Args: []ir.Value{size}, Name: n.ElementType.Name})

	case *ast.TypeRefExpr:
		return g.emitConst(types.Scalar(types.Int), int64(sizeOfType(n.Ref)))
	}
	return ir.Value{}
}

var binaryOpcodes = map[ast.BinaryOp]ir.Opcode{
	ast.Add: ir.OpAdd, ast.Sub: ir.OpSub, ast.Mul: ir.OpMul, ast.Div: ir.OpDiv,
	ast.EqOp: ir.OpEq, ast.NotEqOp: ir.OpNotEq,
	ast.Lt: ir.OpLt, ast.LtEq: ir.OpLtEq, ast.Gt: ir.OpGt, ast.GtEq: ir.OpGtEq,
}

func (g *Generator) genBinary(n *ast.BinaryExpr) ir.Value {
	if n.Op == ast.And || n.Op == ast.Or {
		return g.genShortCircuit(n)
	}

	left := g.genExpr(n.Left)
	right := g.genExpr(n.Right)
	left = g.widenIfNeeded(left, n.Type)
	right = g.widenIfNeeded(right, n.Type)

	if n.Op == ast.Add && n.Type.Name == types.Str {
		result := g.fn.NewValue(n.Type)
		return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: ir.OpConcat, Args: []ir.Value{left, right}})
	}

	op := binaryOpcodes[n.Op]
	result := g.fn.NewValue(n.Type)
	return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: op, Args: []ir.Value{left, right}})
}

// genShortCircuit lowers && / || with control flow rather than eager
// evaluation of both operands.
func (g *Generator) genShortCircuit(n *ast.BinaryExpr) ir.Value {
	left := g.genExpr(n.Left)
	rhsBlk := g.fn.NewBlock("sc_rhs")
	mergeBlk := g.fn.NewBlock("sc_merge")

	shortCircuitBlk := g.fn.NewBlock("sc_short")
	if n.Op == ast.And {
		g.block.Term = ir.Branch{Cond: left, Then: rhsBlk, Else: shortCircuitBlk}
	} else {
		g.block.Term = ir.Branch{Cond: left, Then: shortCircuitBlk, Else: rhsBlk}
	}
	shortCircuitBlk.Term = ir.Jump{Target: mergeBlk}

	g.block = rhsBlk
	right := g.genExpr(n.Right)
	g.block.Term = ir.Jump{Target: mergeBlk}

	// The merge block reads whichever operand decided the result; since
	// this IR has no phi nodes, stash it through a synthetic variable
	// slot instead.
	slot := scTempName(n)
	prevBlock := g.block
	g.block = shortCircuitBlk
	g.emitAssign(slot, left)
	g.block = rhsBlk
	g.emitAssign(slot, right)
	g.block = mergeBlk
	_ = prevBlock

	result := g.fn.NewValue(n.Type)
	return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: ir.OpVarRef, Name: slot})
}

func scTempName(n *ast.BinaryExpr) string {
	return "$sc_" + strconv.Itoa(n.Span.Line) + "_" + strconv.Itoa(n.Span.Col)
}

func (g *Generator) widenIfNeeded(v ir.Value, target types.Type) ir.Value {
	if target.IsArray || v.Type.IsArray {
		return v
	}
	if v.Type.Name == types.Int && target.Name == types.Float {
		result := g.fn.NewValue(types.Scalar(types.Float))
		return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: ir.OpConvert, Args: []ir.Value{v}})
	}
	return v
}

var compoundOpcodes = map[ast.AssignOp]ir.Opcode{
	ast.AddSet: ir.OpAdd, ast.SubSet: ir.OpSub, ast.MulSet: ir.OpMul, ast.DivSet: ir.OpDiv,
}

func (g *Generator) genAssign(n *ast.AssignExpr) ir.Value {
	value := g.genExprExpect(n.Value, n.Type)
	value = g.widenIfNeeded(value, n.Type)

	switch target := n.Target.(type) {
	case *ast.VariableExpr:
		if n.Op != ast.Set {
			old := g.genExpr(target)
			value = g.combine(n.Op, old, value, n.Type)
		}
		g.emitAssign(target.Name.Lexeme, value)
		return value

	case *ast.ArrayAccessExpr:
		base := g.genExpr(target.Base)
		idx := g.genExpr(target.Index)
		if n.Op != ast.Set {
			old := g.fn.Emit(g.block, &ir.Instruction{Result: g.fn.NewValue(n.Type), Op: ir.OpIndex, Args: []ir.Value{base, idx}})
			value = g.combine(n.Op, old, value, n.Type)
		}
		result := g.fn.NewValue(n.Type)
		g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: ir.OpIndexSet, Args: []ir.Value{base, idx, value}})
		return value
	}
	return value
}

func (g *Generator) combine(op ast.AssignOp, old, value ir.Value, t types.Type) ir.Value {
	if op == ast.AddSet && t.Name == types.Str {
		result := g.fn.NewValue(t)
		return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: ir.OpConcat, Args: []ir.Value{old, value}})
	}
	opcode := compoundOpcodes[op]
	result := g.fn.NewValue(t)
	return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: opcode, Args: []ir.Value{old, value}})
}

// ---- calls, including the built-ins ---------------------------------------

func (g *Generator) genCall(n *ast.CallExpr, expected types.Type) ir.Value {
	switch n.Callee.Lexeme {
	case "print":
		for _, a := range n.Args {
			v := g.genExpr(a)
			g.fn.Emit(g.block, &ir.Instruction{Result: g.fn.NewValue(types.Scalar(types.Void)), Op: ir.OpCall, Name: "print", Args: []ir.Value{v}})
		}
		return ir.Value{Type: types.Scalar(types.Void)}

	case "input":
		result := g.fn.NewValue(types.Scalar(types.Str))
		return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: ir.OpCall, Name: "input"})

	case "sizeof":
		if len(n.Args) == 1 {
			if tr, ok := n.Args[0].(*ast.TypeRefExpr); ok {
				return g.emitConst(types.Scalar(types.Int), int64(sizeOfType(tr.Ref)))
			}
			v := g.genExpr(n.Args[0])
			return g.emitConst(types.Scalar(types.Int), int64(sizeOfType(v.Type)))
		}
		return g.emitConst(types.Scalar(types.Int), int64(0))

	case "malloc":
		elemType := g.mallocElementType(n, expected)
		size := g.genExpr(n.Args[0])
		result := g.fn.NewValue(types.DynamicArray(elemType))
		return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: ir.OpArrayNew, Args: []ir.Value{size}, Name: elemType})

	case "free":
		v := g.genExpr(n.Args[0])
		g.fn.Emit(g.block, &ir.Instruction{Result: g.fn.NewValue(types.Scalar(types.Void)), Op: ir.OpCall, Name: "free", Args: []ir.Value{v}})
		return ir.Value{Type: types.Scalar(types.Void)}

	case "realloc":
		elemType := g.mallocElementType(n, expected)
		arr := g.genExpr(n.Args[0])
		size := g.genExpr(n.Args[1])
		result := g.fn.NewValue(types.DynamicArray(elemType))
		return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: ir.OpCall, Name: "realloc", Args: []ir.Value{arr, size}})

	default:
		retType := n.Type
		if sig, ok := g.tbl.ResolveFunction(n.Callee.Lexeme); ok {
			retType = sig.ReturnType
		}
		args := make([]ir.Value, len(n.Args))
		for i, a := range n.Args {
			args[i] = g.genExpr(a)
		}
		result := g.fn.NewValue(retType)
		return g.fn.Emit(g.block, &ir.Instruction{Result: result, Op: ir.OpCall, Name: n.Callee.Lexeme, Args: args})
	}
}

// mallocElementType resolves the element type a raw malloc/realloc call
// should be tagged with. The expected-type parameter threaded down from
// the call site (a VarDecl initializer, a return value, an assignment
// value) wins when it is an array type; call arguments carry no expected
// type. The weak Parent back-reference on the CallExpr node, set only for
// a VarDecl's direct initializer, is consulted only as a fallback.
func (g *Generator) mallocElementType(n *ast.CallExpr, expected types.Type) string {
	if expected.IsArray {
		return expected.Name
	}
	if n.Parent != nil && n.Parent.Type.IsArray {
		return n.Parent.Type.Name
	}
	return types.Any
}

func sizeOfType(t types.Type) int {
	if t.IsArray {
		return 8
	}
	switch t.Name {
	case types.Int, types.Float, types.Str:
		return 8
	case types.Bool:
		return 1
	default:
		return 8
	}
}
