package ir

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"minilang/types"
)

func TestNewModuleHasRuntimeExterns(t *testing.T) {
	m := NewModule("test")
	_, ok := findExtern(m, "malloc")
	assert.True(t, ok)
	_, ok = findExtern(m, "atof")
	assert.True(t, ok)
}

func findExtern(m *Module, name string) (ExternDecl, bool) {
	for _, e := range m.Externs {
		if e.Name == name {
			return e, true
		}
	}
	return ExternDecl{}, false
}

func TestFunctionEmitAndBlocks(t *testing.T) {
	fn := NewFunction("add", types.Scalar(types.Int))
	entry := fn.NewBlock("entry")
	a := fn.NewValue(types.Scalar(types.Int))
	b := fn.NewValue(types.Scalar(types.Int))
	sum := fn.NewValue(types.Scalar(types.Int))
	fn.Emit(entry, &Instruction{Result: sum, Op: OpAdd, Args: []Value{a, b}})
	entry.Term = Ret{HasValue: true, Value: sum}

	assert.Len(t, fn.Blocks, 1)
	assert.Len(t, entry.Instrs, 1)
	assert.Equal(t, OpAdd, entry.Instrs[0].Op)
}

func TestWriteTextRendersFunctionAndExterns(t *testing.T) {
	m := NewModule("test")
	fn := NewFunction("main", types.Scalar(types.Int))
	entry := fn.NewBlock("entry")
	zero := fn.NewValue(types.Scalar(types.Int))
	fn.Emit(entry, &Instruction{Result: zero, Op: OpConst, Const: int64(0)})
	entry.Term = Ret{HasValue: true, Value: zero}
	m.Functions = append(m.Functions, fn)

	var buf bytes.Buffer
	err := WriteText(&buf, m)
	assert.NoError(t, err)
	out := buf.String()
	assert.True(t, strings.Contains(out, "extern malloc"))
	assert.True(t, strings.Contains(out, "func main"))
	assert.True(t, strings.Contains(out, "const 0"))
	assert.True(t, strings.Contains(out, "ret"))
}

func TestFindFunction(t *testing.T) {
	m := NewModule("test")
	fn := NewFunction("helper", types.Scalar(types.Void))
	m.Functions = append(m.Functions, fn)

	got, ok := m.FindFunction("helper")
	assert.True(t, ok)
	assert.Same(t, fn, got)

	_, ok = m.FindFunction("missing")
	assert.False(t, ok)
}
