// Package parser builds an AST from a token stream by recursive descent,
// using precedence climbing for expressions and panic-mode recovery for
// statement-level syntax errors.
package parser

import (
	"fmt"

	"minilang/ast"
	"minilang/diag"
	"minilang/token"
	"minilang/types"
)

// Parser consumes a token slice produced by the lexer. It never backs up:
// the read position only moves forward.
type Parser struct {
	tokens []token.Token
	pos    int
	bus    *diag.Bus
}

// New builds a Parser over toks, reporting syntax errors to bus.
func New(toks []token.Token, bus *diag.Bus) *Parser {
	return &Parser{tokens: toks, bus: bus}
}

func (p *Parser) cur() token.Token  { return p.tokens[p.pos] }
func (p *Parser) atEnd() bool       { return p.cur().Type == token.End }
func (p *Parser) check(tp token.Type) bool {
	return p.cur().Type == tp
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if !p.atEnd() {
		p.pos++
	}
	return t
}

func (p *Parser) match(types ...token.Type) bool {
	for _, tp := range types {
		if p.check(tp) {
			p.advance()
			return true
		}
	}
	return false
}

// expect consumes the current token if it has type tp, else reports a
// syntax error at the current position and returns the zero Token.
func (p *Parser) expect(tp token.Type, context string) (token.Token, bool) {
	if p.check(tp) {
		return p.advance(), true
	}
	p.makeError("expected %s %s, found %q", tp, context, p.cur().Lexeme)
	return token.Token{}, false
}

func (p *Parser) makeError(format string, args ...interface{}) {
	cur := p.cur()
	p.bus.Reportf(diag.Syntax, cur.Span.Line, cur.Span.Col, format, args...)
}

// synchronize discards tokens until a likely statement boundary, always
// advancing at least one token so panic-mode recovery makes progress.
func (p *Parser) synchronize() {
	p.advance()
	for !p.atEnd() {
		if p.tokens[p.pos-1].Type == token.Semicolon {
			return
		}
		switch p.cur().Type {
		case token.Fn, token.Var, token.If, token.While, token.Return, token.RightBrace:
			return
		}
		p.advance()
	}
}

// ParseProgram parses a whole source file into a Program, recovering at
// function boundaries so one malformed function does not abort the rest.
func (p *Parser) ParseProgram() *ast.Program {
	start := p.cur().Span
	prog := &ast.Program{Span: start}
	for !p.atEnd() {
		if !p.check(token.Fn) {
			p.makeError("expected function declaration, found %q", p.cur().Lexeme)
			p.synchronizeToFn()
			continue
		}
		fn := p.parseFunctionDecl()
		if fn != nil {
			prog.Functions = append(prog.Functions, fn)
		}
	}
	return prog
}

func (p *Parser) synchronizeToFn() {
	for !p.atEnd() && !p.check(token.Fn) {
		p.advance()
	}
}

// parseFunctionDecl parses `fn <returnType> <name>(params) block`, the
// return type coming before the function name rather than after the
// parameter list.
func (p *Parser) parseFunctionDecl() *ast.FunctionDecl {
	fnTok := p.advance() // 'fn'
	retType, ok := p.parseReturnType()
	if !ok {
		p.synchronize()
		return nil
	}
	name, ok := p.expect(token.Identifier, "as function name")
	if !ok {
		p.synchronize()
		return nil
	}
	if _, ok := p.expect(token.LeftParen, "after function name"); !ok {
		p.synchronize()
		return nil
	}
	var params []*ast.Parameter
	if !p.check(token.RightParen) {
		for {
			pname, ok := p.expect(token.Identifier, "as parameter name")
			if !ok {
				p.synchronize()
				return nil
			}
			if _, ok := p.expect(token.Colon, "after parameter name"); !ok {
				p.synchronize()
				return nil
			}
			ptyp, ok := p.parseVarType()
			if !ok {
				p.synchronize()
				return nil
			}
			params = append(params, &ast.Parameter{Name: pname, Type: ptyp, Span: pname.Span})
			if !p.match(token.Comma) {
				break
			}
		}
	}
	if _, ok := p.expect(token.RightParen, "to close parameter list"); !ok {
		p.synchronize()
		return nil
	}
	body := p.parseBlock(true)
	if body == nil {
		return nil
	}
	return &ast.FunctionDecl{Name: name, ReturnType: retType, Params: params, Body: body, Span: fnTok.Span}
}

// parseReturnType parses a type in function-return position, where void
// is admitted.
func (p *Parser) parseReturnType() (types.Type, bool) {
	return p.parseTypeAllowVoid(true)
}

// parseVarType parses a type in variable or parameter position, where
// void is rejected as a syntax error.
func (p *Parser) parseVarType() (types.Type, bool) {
	return p.parseTypeAllowVoid(false)
}

func (p *Parser) parseTypeAllowVoid(allowVoid bool) (types.Type, bool) {
	var base string
	switch p.cur().Type {
	case token.IntKw:
		base = types.Int
	case token.FloatKw:
		base = types.Float
	case token.BoolKw:
		base = types.Bool
	case token.StrKw:
		base = types.Str
	case token.VoidKw:
		if !allowVoid {
			p.makeError("'void' is not a valid variable type")
			p.advance()
			return types.Type{}, false
		}
		base = types.Void
	default:
		p.makeError("expected a type, found %q", p.cur().Lexeme)
		return types.Type{}, false
	}
	p.advance()
	if p.check(token.LeftBracket) {
		la := p.tokens[p.pos+1]
		if la.Type == token.RightBracket {
			p.advance()
			p.advance()
			return types.DynamicArray(base), true
		}
	}
	return types.Scalar(base), true
}

func (p *Parser) parseBlock(isFuncBody bool) *ast.BlockStmt {
	open, ok := p.expect(token.LeftBrace, "to open a block")
	if !ok {
		p.synchronize()
		return nil
	}
	blk := &ast.BlockStmt{Span: open.Span, FuncBody: isFuncBody}
	for !p.atEnd() && !p.check(token.RightBrace) {
		before := p.pos
		st := p.parseStatement()
		if st != nil {
			blk.Stmts = append(blk.Stmts, st)
		}
		if p.pos == before {
			// parseStatement made no progress; force it so we terminate.
			p.synchronize()
		}
	}
	p.expect(token.RightBrace, "to close a block")
	return blk
}

func (p *Parser) parseStatement() ast.Stmt {
	switch p.cur().Type {
	case token.LeftBrace:
		return p.parseBlock(false)
	case token.Var:
		return p.parseVarDecl()
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.Return:
		return p.parseReturn()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseVarDecl() ast.Stmt {
	kw := p.advance() // 'var'
	name, ok := p.expect(token.Identifier, "as variable name")
	if !ok {
		p.synchronize()
		return nil
	}
	if _, ok := p.expect(token.Colon, "after variable name"); !ok {
		p.synchronize()
		return nil
	}
	typ, ok := p.parseVarType()
	if !ok {
		p.synchronize()
		return nil
	}
	decl := &ast.VarDeclStmt{Name: name, Type: typ, Span: kw.Span}
	if p.match(token.Assign) {
		init := p.parseExpression()
		decl.Initializer = init
		if call, isCall := init.(*ast.CallExpr); isCall {
			call.Parent = decl
		}
	}
	p.expect(token.Semicolon, "after variable declaration")
	return decl
}

func (p *Parser) parseIf() ast.Stmt {
	kw := p.advance()
	if _, ok := p.expect(token.LeftParen, "after if"); !ok {
		p.synchronize()
		return nil
	}
	cond := p.parseExpression()
	p.expect(token.RightParen, "to close if condition")
	then := p.parseStatement()
	stmt := &ast.IfStmt{Cond: cond, Then: then, Span: kw.Span}
	if p.match(token.Else) {
		stmt.Else = p.parseStatement()
	}
	return stmt
}

func (p *Parser) parseWhile() ast.Stmt {
	kw := p.advance()
	if _, ok := p.expect(token.LeftParen, "after while"); !ok {
		p.synchronize()
		return nil
	}
	cond := p.parseExpression()
	p.expect(token.RightParen, "to close while condition")
	body := p.parseStatement()
	return &ast.WhileStmt{Cond: cond, Body: body, Span: kw.Span}
}

func (p *Parser) parseReturn() ast.Stmt {
	kw := p.advance()
	stmt := &ast.ReturnStmt{Span: kw.Span}
	if !p.check(token.Semicolon) {
		stmt.Value = p.parseExpression()
	}
	p.expect(token.Semicolon, "after return statement")
	return stmt
}

func (p *Parser) parseExprStmt() ast.Stmt {
	span := p.cur().Span
	x := p.parseExpression()
	p.expect(token.Semicolon, "after expression statement")
	return &ast.ExprStmt{X: x, Span: span}
}

// ---- expressions, by ascending precedence --------------------------------

func (p *Parser) parseExpression() ast.Expr {
	return p.parseAssignment()
}

var assignOps = map[token.Type]ast.AssignOp{
	token.Assign:  ast.Set,
	token.PlusEq:  ast.AddSet,
	token.MinusEq: ast.SubSet,
	token.StarEq:  ast.MulSet,
	token.SlashEq: ast.DivSet,
}

func (p *Parser) parseAssignment() ast.Expr {
	left := p.parseLogicalOr()
	if op, ok := assignOps[p.cur().Type]; ok {
		span := p.cur().Span
		p.advance()
		value := p.parseAssignment()
		return &ast.AssignExpr{Target: left, Op: op, Value: value, Span: span}
	}
	return left
}

func (p *Parser) parseLogicalOr() ast.Expr {
	left := p.parseLogicalAnd()
	for p.check(token.OrOr) {
		span := p.cur().Span
		p.advance()
		right := p.parseLogicalAnd()
		left = &ast.BinaryExpr{Op: ast.Or, Left: left, Right: right, Span: span}
	}
	return left
}

func (p *Parser) parseLogicalAnd() ast.Expr {
	left := p.parseEquality()
	for p.check(token.AndAnd) {
		span := p.cur().Span
		p.advance()
		right := p.parseEquality()
		left = &ast.BinaryExpr{Op: ast.And, Left: left, Right: right, Span: span}
	}
	return left
}

var equalityOps = map[token.Type]ast.BinaryOp{token.Eq: ast.EqOp, token.NotEq: ast.NotEqOp}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseComparison()
	for {
		op, ok := equalityOps[p.cur().Type]
		if !ok {
			return left
		}
		span := p.cur().Span
		p.advance()
		right := p.parseComparison()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Span: span}
	}
}

var comparisonOps = map[token.Type]ast.BinaryOp{
	token.Less: ast.Lt, token.LessEq: ast.LtEq, token.Greater: ast.Gt, token.GreaterEq: ast.GtEq,
}

func (p *Parser) parseComparison() ast.Expr {
	left := p.parseTerm()
	for {
		op, ok := comparisonOps[p.cur().Type]
		if !ok {
			return left
		}
		span := p.cur().Span
		p.advance()
		right := p.parseTerm()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Span: span}
	}
}

var termOps = map[token.Type]ast.BinaryOp{token.Plus: ast.Add, token.Minus: ast.Sub}

func (p *Parser) parseTerm() ast.Expr {
	left := p.parseFactor()
	for {
		op, ok := termOps[p.cur().Type]
		if !ok {
			return left
		}
		span := p.cur().Span
		p.advance()
		right := p.parseFactor()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Span: span}
	}
}

var factorOps = map[token.Type]ast.BinaryOp{token.Star: ast.Mul, token.Slash: ast.Div}

func (p *Parser) parseFactor() ast.Expr {
	left := p.parseUnary()
	for {
		op, ok := factorOps[p.cur().Type]
		if !ok {
			return left
		}
		span := p.cur().Span
		p.advance()
		right := p.parseUnary()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Span: span}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.cur().Type {
	case token.Minus:
		span := p.cur().Span
		p.advance()
		return &ast.UnaryExpr{Op: ast.Neg, X: p.parseUnary(), Span: span}
	case token.Not:
		span := p.cur().Span
		p.advance()
		return &ast.UnaryExpr{Op: ast.Not, X: p.parseUnary(), Span: span}
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	for p.check(token.LeftBracket) {
		span := p.cur().Span
		p.advance()
		idx := p.parseExpression()
		p.expect(token.RightBracket, "to close array index")
		expr = &ast.ArrayAccessExpr{Base: expr, Index: idx, Span: span}
	}
	return expr
}

func (p *Parser) parsePrimary() ast.Expr {
	cur := p.cur()
	switch cur.Type {
	case token.Number:
		p.advance()
		return &ast.NumberExpr{Lexeme: cur.Lexeme, IsFloat: false, Span: cur.Span}
	case token.FloatLiteral:
		p.advance()
		return &ast.NumberExpr{Lexeme: cur.Lexeme, IsFloat: true, Span: cur.Span}
	case token.StringLiteral:
		p.advance()
		return &ast.StringLitExpr{Lexeme: cur.Lexeme, Span: cur.Span}
	case token.BoolLiteral:
		p.advance()
		return &ast.BoolLitExpr{Value: cur.Lexeme == "true", Span: cur.Span}
	case token.LeftParen:
		p.advance()
		inner := p.parseExpression()
		p.expect(token.RightParen, "to close parenthesized expression")
		return inner
	case token.LeftBracket:
		p.advance()
		arr := &ast.ArrayInitExpr{Span: cur.Span}
		if !p.check(token.RightBracket) {
			for {
				arr.Elements = append(arr.Elements, p.parseExpression())
				if !p.match(token.Comma) {
					break
				}
			}
		}
		p.expect(token.RightBracket, "to close array literal")
		return arr
	case token.IntKw, token.FloatKw, token.BoolKw, token.StrKw:
		typ, ok := p.parseBaseTypeOnly()
		if !ok {
			return &ast.NumberExpr{Lexeme: "0", Span: cur.Span}
		}
		if _, ok := p.expect(token.LeftBracket, "to start array allocation"); !ok {
			return &ast.TypeRefExpr{Ref: typ, Span: cur.Span}
		}
		size := p.parseExpression()
		p.expect(token.RightBracket, "to close array allocation")
		return &ast.ArrayAllocExpr{ElementType: typ, Size: size, Span: cur.Span}
	case token.Identifier:
		p.advance()
		if p.check(token.LeftParen) {
			return p.parseCallArgs(cur)
		}
		return &ast.VariableExpr{Name: cur, Span: cur.Span}
	default:
		p.makeError("unexpected token %q in expression", cur.Lexeme)
		p.advance()
		return &ast.NumberExpr{Lexeme: "0", Span: cur.Span}
	}
}

func (p *Parser) parseBaseTypeOnly() (types.Type, bool) {
	switch p.cur().Type {
	case token.IntKw:
		p.advance()
		return types.Scalar(types.Int), true
	case token.FloatKw:
		p.advance()
		return types.Scalar(types.Float), true
	case token.BoolKw:
		p.advance()
		return types.Scalar(types.Bool), true
	case token.StrKw:
		p.advance()
		return types.Scalar(types.Str), true
	}
	p.makeError("expected a type")
	return types.Type{}, false
}

func (p *Parser) parseCallArgs(callee token.Token) ast.Expr {
	p.advance() // '('
	call := &ast.CallExpr{Callee: callee, Span: callee.Span}
	if !p.check(token.RightParen) {
		for {
			if callee.Lexeme == "sizeof" && isTypeStart(p.cur().Type) {
				typ, ok := p.parseBaseTypeOnly()
				if ok {
					call.Args = append(call.Args, &ast.TypeRefExpr{Ref: typ, Span: p.cur().Span})
				}
			} else {
				call.Args = append(call.Args, p.parseExpression())
			}
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RightParen, fmt.Sprintf("to close call to %q", callee.Lexeme))
	return call
}

func isTypeStart(tp token.Type) bool {
	switch tp {
	case token.IntKw, token.FloatKw, token.BoolKw, token.StrKw:
		return true
	}
	return false
}
