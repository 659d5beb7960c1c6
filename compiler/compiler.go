// Package compiler sequences minilang's stages: lex, parse, analyze,
// lower. It stops at the first stage that reports an error rather than
// feeding a broken tree forward.
package compiler

import (
	"fmt"
	"os"

	"minilang/ast"
	"minilang/diag"
	"minilang/ir"
	"minilang/irgen"
	"minilang/lexer"
	"minilang/parser"
	"minilang/sema"
)

// Result carries every artifact a caller might want to inspect, even
// when compilation stopped early — Program is set once parsing has run
// (even if it reported syntax errors), Module only once lowering completes.
type Result struct {
	Program *ast.Program
	Module  *ir.Module
	Bus     *diag.Bus
}

// Verbose, when set on a Compiler, makes Compile print one progress line
// per stage to stderr.
type Compiler struct {
	Verbose bool
}

// New returns a non-verbose Compiler.
func New() *Compiler { return &Compiler{} }

// Compile runs every stage over source and returns whatever it managed
// to produce. Check res.Bus.HasErrors() to see whether Module is usable.
func (c *Compiler) Compile(source string) *Result {
	bus := diag.NewBus()
	res := &Result{Bus: bus}

	c.logf("lexing")
	toks := lexer.New(source, bus).Tokenize()
	if bus.HasErrors(diag.Lexical) {
		return res
	}

	c.logf("parsing")
	prog := parser.New(toks, bus).ParseProgram()
	res.Program = prog
	if bus.HasErrors(diag.Syntax) {
		return res
	}

	c.logf("analyzing")
	analyzer := sema.New(bus)
	if !analyzer.Analyze(prog) {
		return res
	}

	c.logf("lowering to ir")
	res.Module = irgen.New(analyzer.Table()).Generate(prog)
	return res
}

func (c *Compiler) logf(format string, args ...interface{}) {
	if !c.Verbose {
		return
	}
	fmt.Fprintf(os.Stderr, "minilangc: "+format+"\n", args...)
}
