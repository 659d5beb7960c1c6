// Package ir is minilang's block-structured intermediate representation:
// a Module of Functions, each a sequence of BasicBlocks ending in an
// explicit terminator, with typed Values flowing between instructions.
package ir

import (
	"fmt"

	"minilang/types"
)

// Value is a handle to an instruction's result or a function parameter.
// It carries its own type so downstream passes never need to re-derive it.
type Value struct {
	ID   int
	Type types.Type
}

func (v Value) String() string { return fmt.Sprintf("%%%d", v.ID) }

// Opcode enumerates the instruction set. Arithmetic and comparison
// opcodes are type-generic: the executor dispatches on the dynamic type
// of the runtime operand values rather than the IR carrying separate
// int/float opcodes.
type Opcode int

const (
	OpConst Opcode = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNotEq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
	OpAnd
	OpOr
	OpNot
	OpNeg
	OpConvert // widen int -> float
	OpVarRef  // read a named local/param slot
	OpAssign  // write a named local/param slot
	OpIndex
	OpIndexSet
	OpCall
	OpArrayNew
	OpArrayLit
	OpConcat
)

var opNames = map[Opcode]string{
	OpConst: "const", OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div",
	OpEq: "eq", OpNotEq: "ne", OpLt: "lt", OpLtEq: "le", OpGt: "gt", OpGtEq: "ge",
	OpAnd: "and", OpOr: "or", OpNot: "not", OpNeg: "neg", OpConvert: "convert",
	OpVarRef: "varref", OpAssign: "assign", OpIndex: "index", OpIndexSet: "indexset",
	OpCall: "call", OpArrayNew: "arraynew", OpArrayLit: "arraylit", OpConcat: "concat",
}

func (op Opcode) String() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return "unknown"
}

// Instruction is one three-address-style operation. Const carries an
// immediate (int64, float64, string, or bool) for OpConst; Name carries
// the slot name for OpVarRef/OpAssign and the callee for OpCall.
type Instruction struct {
	Result Value
	Op     Opcode
	Args   []Value
	Const  interface{}
	Name   string
}

func (i *Instruction) String() string {
	s := fmt.Sprintf("%s = %s", i.Result, i.Op)
	if i.Name != "" {
		s += " " + i.Name
	}
	if i.Const != nil {
		s += fmt.Sprintf(" %v", i.Const)
	}
	for _, a := range i.Args {
		s += " " + a.String()
	}
	return s
}

// Terminator ends a BasicBlock: exactly one of Jump, Branch, or Ret.
type Terminator interface {
	terminator()
	String() string
}

type Jump struct{ Target *BasicBlock }

type Branch struct {
	Cond Value
	Then *BasicBlock
	Else *BasicBlock
}

type Ret struct {
	HasValue bool
	Value    Value
}

func (Jump) terminator()   {}
func (Branch) terminator() {}
func (Ret) terminator()    {}

func (j Jump) String() string   { return "jump " + j.Target.Name }
func (b Branch) String() string { return fmt.Sprintf("branch %s %s %s", b.Cond, b.Then.Name, b.Else.Name) }
func (r Ret) String() string {
	if !r.HasValue {
		return "ret"
	}
	return "ret " + r.Value.String()
}

// BasicBlock is a straight-line instruction sequence ending in a
// Terminator. Term is nil until the generator closes the block.
type BasicBlock struct {
	Name   string
	Instrs []*Instruction
	Term   Terminator
}

func (b *BasicBlock) emit(i *Instruction) { b.Instrs = append(b.Instrs, i) }

// Param is a function parameter: its name (for OpVarRef/OpAssign lookup)
// and its Value handle.
type Param struct {
	Name  string
	Value Value
}

// Function is one compiled function: its parameter slots, return type,
// and block-structured body.
type Function struct {
	Name       string
	Params     []Param
	ReturnType types.Type
	Blocks     []*BasicBlock

	nextValueID int
	nextBlockID int
}

// NewFunction allocates an (initially block-less) function.
func NewFunction(name string, returnType types.Type) *Function {
	return &Function{Name: name, ReturnType: returnType}
}

// NewValue allocates a fresh SSA-style value handle of type t.
func (f *Function) NewValue(t types.Type) Value {
	f.nextValueID++
	return Value{ID: f.nextValueID, Type: t}
}

// NewBlock appends and returns a new, terminator-less basic block. prefix
// is a human-readable label stem; the actual name is suffixed with a
// per-function counter to keep labels unique.
func (f *Function) NewBlock(prefix string) *BasicBlock {
	f.nextBlockID++
	b := &BasicBlock{Name: fmt.Sprintf("%s_%d", prefix, f.nextBlockID)}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Emit appends instr to block and returns instr.Result for chaining.
func (f *Function) Emit(block *BasicBlock, instr *Instruction) Value {
	block.emit(instr)
	return instr.Result
}

// ExternDecl is a runtime function the generated code calls but does not
// define — the C runtime surface minilang programs are linked against.
type ExternDecl struct {
	Name       string
	ParamTypes []types.Type
	ReturnType types.Type
}

// Module is a whole compiled program: user functions plus the runtime
// externs any of them call.
type Module struct {
	Name      string
	Functions []*Function
	Externs   []ExternDecl
}

// NewModule returns an empty module pre-declaring the runtime externs
// every minilang program may call.
func NewModule(name string) *Module {
	m := &Module{Name: name}
	m.Externs = runtimeExterns()
	return m
}

func runtimeExterns() []ExternDecl {
	str := types.Scalar(types.Str)
	i := types.Scalar(types.Int)
	f := types.Scalar(types.Float)
	anyArr := types.DynamicArray(types.Any)
	return []ExternDecl{
		{Name: "printf", ParamTypes: []types.Type{str}, ReturnType: types.Scalar(types.Void)},
		{Name: "malloc", ParamTypes: []types.Type{i}, ReturnType: anyArr},
		{Name: "free", ParamTypes: []types.Type{anyArr}, ReturnType: types.Scalar(types.Void)},
		{Name: "realloc", ParamTypes: []types.Type{anyArr, i}, ReturnType: anyArr},
		{Name: "strlen", ParamTypes: []types.Type{str}, ReturnType: i},
		{Name: "atoi", ParamTypes: []types.Type{str}, ReturnType: i},
		{Name: "atof", ParamTypes: []types.Type{str}, ReturnType: f},
		{Name: "itoa", ParamTypes: []types.Type{i}, ReturnType: str},
		{Name: "ftoa", ParamTypes: []types.Type{f}, ReturnType: str},
		{Name: "fgets", ParamTypes: nil, ReturnType: str},
	}
}

// FindFunction looks up a user function by name.
func (m *Module) FindFunction(name string) (*Function, bool) {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return nil, false
}
