package ir

import (
	"fmt"
	"io"
	"strings"

	"minilang/types"
)

// WriteText renders a Module as a line-oriented textual form, one
// instruction or terminator per line, the way a -print-ir debug flag
// would dump it.
func WriteText(w io.Writer, m *Module) error {
	for _, ext := range m.Externs {
		if _, err := fmt.Fprintf(w, "extern %s(%s) %s\n", ext.Name, joinTypes(ext.ParamTypes), ext.ReturnType); err != nil {
			return err
		}
	}
	for _, fn := range m.Functions {
		if err := writeFunction(w, fn); err != nil {
			return err
		}
	}
	return nil
}

func writeFunction(w io.Writer, fn *Function) error {
	var params []string
	for _, p := range fn.Params {
		params = append(params, fmt.Sprintf("%s:%s", p.Name, p.Value.Type))
	}
	if _, err := fmt.Fprintf(w, "\nfunc %s(%s) %s {\n", fn.Name, strings.Join(params, ", "), fn.ReturnType); err != nil {
		return err
	}
	for _, b := range fn.Blocks {
		if _, err := fmt.Fprintf(w, "%s:\n", b.Name); err != nil {
			return err
		}
		for _, instr := range b.Instrs {
			if _, err := fmt.Fprintf(w, "  %s\n", instr); err != nil {
				return err
			}
		}
		if b.Term != nil {
			if _, err := fmt.Fprintf(w, "  %s\n", b.Term); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

func joinTypes(ts []types.Type) string {
	var parts []string
	for _, t := range ts {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, ", ")
}
