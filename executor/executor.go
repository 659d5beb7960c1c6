// Package executor is a tree-walking interpreter over ir.Module: it
// decodes one ir.Instruction at a time and dispatches on its Opcode, the
// same decode-dispatch-mutate shape the assembler and VM translator use
// for their own instruction streams, adapted here to walk blocks of
// typed IR values instead of translating one line of text to another.
package executor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"minilang/ir"
	"minilang/types"
)

// Array is a minilang dynamic array's runtime representation: an element
// type tag (for zero-filling on grow) plus its backing slice.
type Array struct {
	Elem string
	Data []interface{}
}

// Machine holds one program's runtime state: the compiled module and the
// I/O streams its print/input built-ins read and write.
type Machine struct {
	module *ir.Module
	stdin  *bufio.Reader
	stdout io.Writer
}

// New builds a Machine over module using os.Stdin/os.Stdout.
func New(module *ir.Module) *Machine {
	return &Machine{module: module, stdin: bufio.NewReader(os.Stdin), stdout: os.Stdout}
}

// NewWithIO builds a Machine over explicit I/O streams, for tests.
func NewWithIO(module *ir.Module, stdin io.Reader, stdout io.Writer) *Machine {
	return &Machine{module: module, stdin: bufio.NewReader(stdin), stdout: stdout}
}

// RunMain locates and calls "main" with no arguments.
func (m *Machine) RunMain() (interface{}, error) {
	fn, ok := m.module.FindFunction("main")
	if !ok {
		return nil, fmt.Errorf("executor: no 'main' function in module")
	}
	return m.call(fn, nil)
}

// frame is one function activation: named variable slots plus a
// register file addressed by Value.ID for instruction results.
type frame struct {
	vars map[string]interface{}
	regs map[int]interface{}
}

func newFrame() *frame {
	return &frame{vars: make(map[string]interface{}), regs: make(map[int]interface{})}
}

func (f *frame) read(v ir.Value) interface{} { return f.regs[v.ID] }
func (f *frame) write(v ir.Value, val interface{}) {
	f.regs[v.ID] = val
}

func (m *Machine) call(fn *ir.Function, args []interface{}) (interface{}, error) {
	f := newFrame()
	for i, p := range fn.Params {
		if i < len(args) {
			f.vars[p.Name] = args[i]
		}
	}

	block := fn.Blocks[0]
	for {
		for _, instr := range block.Instrs {
			val, err := m.eval(instr, f)
			if err != nil {
				return nil, err
			}
			f.write(instr.Result, val)
		}
		switch term := block.Term.(type) {
		case ir.Ret:
			if !term.HasValue {
				return nil, nil
			}
			return f.read(term.Value), nil
		case ir.Jump:
			block = term.Target
		case ir.Branch:
			if truthy(f.read(term.Cond)) {
				block = term.Then
			} else {
				block = term.Else
			}
		default:
			return nil, fmt.Errorf("executor: block %q has no terminator", block.Name)
		}
	}
}

func truthy(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func (m *Machine) eval(instr *ir.Instruction, f *frame) (interface{}, error) {
	arg := func(i int) interface{} { return f.read(instr.Args[i]) }

	switch instr.Op {
	case ir.OpConst:
		return instr.Const, nil

	case ir.OpVarRef:
		return f.vars[instr.Name], nil

	case ir.OpAssign:
		v := arg(0)
		f.vars[instr.Name] = v
		return v, nil

	case ir.OpAdd:
		return arith(arg(0), arg(1), func(a, b int64) interface{} { return a + b }, func(a, b float64) interface{} { return a + b })
	case ir.OpSub:
		return arith(arg(0), arg(1), func(a, b int64) interface{} { return a - b }, func(a, b float64) interface{} { return a - b })
	case ir.OpMul:
		return arith(arg(0), arg(1), func(a, b int64) interface{} { return a * b }, func(a, b float64) interface{} { return a * b })
	case ir.OpDiv:
		return divide(arg(0), arg(1))

	case ir.OpConcat:
		return arg(0).(string) + arg(1).(string), nil

	case ir.OpEq:
		return valuesEqual(arg(0), arg(1)), nil
	case ir.OpNotEq:
		return !valuesEqual(arg(0), arg(1)), nil
	case ir.OpLt:
		return compareNumeric(arg(0), arg(1), func(c int) bool { return c < 0 })
	case ir.OpLtEq:
		return compareNumeric(arg(0), arg(1), func(c int) bool { return c <= 0 })
	case ir.OpGt:
		return compareNumeric(arg(0), arg(1), func(c int) bool { return c > 0 })
	case ir.OpGtEq:
		return compareNumeric(arg(0), arg(1), func(c int) bool { return c >= 0 })

	case ir.OpAnd:
		return arg(0).(bool) && arg(1).(bool), nil
	case ir.OpOr:
		return arg(0).(bool) || arg(1).(bool), nil
	case ir.OpNot:
		return !arg(0).(bool), nil
	case ir.OpNeg:
		switch v := arg(0).(type) {
		case int64:
			return -v, nil
		case float64:
			return -v, nil
		}
		return nil, fmt.Errorf("executor: neg of non-numeric value")

	case ir.OpConvert:
		switch v := arg(0).(type) {
		case int64:
			return float64(v), nil
		case float64:
			return v, nil
		}
		return nil, fmt.Errorf("executor: convert of non-numeric value")

	case ir.OpIndex:
		arr, idx, err := indexArgs(arg(0), arg(1))
		if err != nil {
			return nil, err
		}
		return arr.Data[idx], nil

	case ir.OpIndexSet:
		arr, idx, err := indexArgs(arg(0), arg(1))
		if err != nil {
			return nil, err
		}
		val := arg(2)
		arr.Data[idx] = val
		return val, nil

	case ir.OpArrayNew:
		size, ok := arg(0).(int64)
		if !ok {
			return nil, fmt.Errorf("executor: array size must be int")
		}
		data := make([]interface{}, size)
		zero := zeroRuntimeValue(instr.Name)
		for i := range data {
			data[i] = zero
		}
		return &Array{Elem: instr.Name, Data: data}, nil

	case ir.OpArrayLit:
		data := make([]interface{}, len(instr.Args))
		for i := range instr.Args {
			data[i] = arg(i)
		}
		return &Array{Elem: instr.Name, Data: data}, nil

	case ir.OpCall:
		return m.callBuiltinOrUser(instr, f)
	}
	return nil, fmt.Errorf("executor: unhandled opcode %s", instr.Op)
}

func indexArgs(base, idx interface{}) (*Array, int64, error) {
	arr, ok := base.(*Array)
	if !ok {
		return nil, 0, fmt.Errorf("executor: indexing a non-array value")
	}
	i, ok := idx.(int64)
	if !ok {
		return nil, 0, fmt.Errorf("executor: array index must be int")
	}
	if i < 0 || int(i) >= len(arr.Data) {
		return nil, 0, fmt.Errorf("executor: array index %d out of range [0,%d)", i, len(arr.Data))
	}
	return arr, i, nil
}

func zeroRuntimeValue(elemType string) interface{} {
	switch elemType {
	case types.Float:
		return float64(0)
	case types.Bool:
		return false
	case types.Str:
		return ""
	default:
		return int64(0)
	}
}

func arith(a, b interface{}, iop func(int64, int64) interface{}, fop func(float64, float64) interface{}) (interface{}, error) {
	if ai, ok := a.(int64); ok {
		if bi, ok := b.(int64); ok {
			return iop(ai, bi), nil
		}
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return fop(af, bf), nil
	}
	return nil, fmt.Errorf("executor: arithmetic on non-numeric operands")
}

func divide(a, b interface{}) (interface{}, error) {
	if ai, ok := a.(int64); ok {
		if bi, ok := b.(int64); ok {
			if bi == 0 {
				return nil, fmt.Errorf("executor: integer division by zero")
			}
			return ai / bi, nil
		}
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af / bf, nil
	}
	return nil, fmt.Errorf("executor: arithmetic on non-numeric operands")
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func compareNumeric(a, b interface{}, pred func(int) bool) (interface{}, error) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return nil, fmt.Errorf("executor: comparison on non-numeric operands")
	}
	switch {
	case af < bf:
		return pred(-1), nil
	case af > bf:
		return pred(1), nil
	default:
		return pred(0), nil
	}
}

func valuesEqual(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return a == b
}

func formatValue(v interface{}) string {
	switch n := v.(type) {
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', 6, 64)
	case bool:
		return strconv.FormatBool(n)
	case string:
		return n
	case *Array:
		parts := make([]string, len(n.Data))
		for i, el := range n.Data {
			parts[i] = formatValue(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", n)
	}
}

func (m *Machine) callBuiltinOrUser(instr *ir.Instruction, f *frame) (interface{}, error) {
	arg := func(i int) interface{} { return f.read(instr.Args[i]) }

	switch instr.Name {
	case "print":
		fmt.Fprint(m.stdout, formatValue(arg(0)))
		return nil, nil

	case "input":
		line, _ := m.stdin.ReadString('\n')
		return strings.TrimRight(line, "\r\n"), nil

	case "free":
		return nil, nil

	case "realloc":
		arr, ok := arg(0).(*Array)
		if !ok {
			return nil, fmt.Errorf("executor: realloc of non-array value")
		}
		newSize, ok := arg(1).(int64)
		if !ok {
			return nil, fmt.Errorf("executor: realloc size must be int")
		}
		data := make([]interface{}, newSize)
		zero := zeroRuntimeValue(arr.Elem)
		for i := range data {
			if i < len(arr.Data) {
				data[i] = arr.Data[i]
			} else {
				data[i] = zero
			}
		}
		return &Array{Elem: arr.Elem, Data: data}, nil

	case "atoi":
		n, err := strconv.ParseInt(strings.TrimSpace(arg(0).(string)), 10, 64)
		if err != nil {
			return int64(0), nil
		}
		return n, nil

	case "atof":
		v, err := strconv.ParseFloat(strings.TrimSpace(arg(0).(string)), 64)
		if err != nil {
			return float64(0), nil
		}
		return v, nil

	case "itoa":
		return strconv.FormatInt(arg(0).(int64), 10), nil

	case "ftoa":
		return strconv.FormatFloat(arg(0).(float64), 'f', 6, 64), nil

	case "strlen":
		return int64(len(arg(0).(string))), nil

	default:
		fn, ok := m.module.FindFunction(instr.Name)
		if !ok {
			return nil, fmt.Errorf("executor: call to undefined function '%s'", instr.Name)
		}
		args := make([]interface{}, len(instr.Args))
		for i := range instr.Args {
			args[i] = arg(i)
		}
		return m.call(fn, args)
	}
}
