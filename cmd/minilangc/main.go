// Command minilangc compiles (and optionally runs) a minilang source file.
package main

import (
	"flag"
	"fmt"
	"os"

	"minilang/ast"
	"minilang/compiler"
	"minilang/executor"
	"minilang/ir"
)

var (
	outputPath = flag.String("o", "", "write the textual IR to this path instead of stdout")
	execute    = flag.Bool("e", false, "execute the program after a successful compile")
	printAST   = flag.Bool("print-ast", false, "print the parsed AST to stderr")
	printIR    = flag.Bool("print-ir", false, "print the generated IR to stderr")
	verbose    = flag.Bool("v", false, "print one progress line per compiler stage")
)

func main() {
	flag.StringVar(outputPath, "output", "", "same as -o")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: minilangc [flags] <source-file>")
		os.Exit(2)
	}

	srcPath := flag.Arg(0)
	src, err := os.ReadFile(srcPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "minilangc: failed to read %s: %v\n", srcPath, err)
		os.Exit(1)
	}

	c := &compiler.Compiler{Verbose: *verbose}
	res := c.Compile(string(src))

	if *printAST && res.Program != nil {
		fmt.Fprintln(os.Stderr, ast.Print(res.Program))
	}

	if res.Bus.HasErrors() {
		os.Exit(1)
	}

	if *printIR {
		ir.WriteText(os.Stderr, res.Module)
	}

	if err := writeModule(res.Module, *outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "minilangc: %v\n", err)
		os.Exit(1)
	}

	if *execute {
		val, err := executor.New(res.Module).RunMain()
		if err != nil {
			fmt.Fprintf(os.Stderr, "minilangc: runtime error: %v\n", err)
			os.Exit(1)
		}
		if n, ok := val.(int64); ok {
			os.Exit(int(n))
		}
	}
}

func writeModule(m *ir.Module, path string) error {
	if path == "" {
		return ir.WriteText(os.Stdout, m)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return ir.WriteText(f, m)
}
