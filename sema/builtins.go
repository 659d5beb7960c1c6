package sema

import "minilang/types"

// builtinSignature is a pre-declared function the analyzer seeds the
// symbol table with before looking at user declarations. minilang has no
// variadic user functions, so built-ins that vary their arity (print)
// are checked by hand in checkCall rather than expressed here.
type builtinSignature struct {
	name       string
	paramTypes []types.Type
	returnType types.Type
	variadic   bool
}

var builtins = []builtinSignature{
	{name: "print", variadic: true, returnType: types.Scalar(types.Void)},
	{name: "input", returnType: types.Scalar(types.Str)},
	{name: "sizeof", paramTypes: []types.Type{types.Scalar(types.Any)}, returnType: types.Scalar(types.Int)},
	{name: "malloc", paramTypes: []types.Type{types.Scalar(types.Int)}, returnType: types.DynamicArray(types.Any)},
	{name: "free", paramTypes: []types.Type{types.DynamicArray(types.Any)}, returnType: types.Scalar(types.Void)},
	{name: "realloc", paramTypes: []types.Type{types.DynamicArray(types.Any), types.Scalar(types.Int)}, returnType: types.DynamicArray(types.Any)},
}

func isBuiltinName(name string) bool {
	for _, b := range builtins {
		if b.name == name {
			return true
		}
	}
	return false
}

func lookupBuiltin(name string) (builtinSignature, bool) {
	for _, b := range builtins {
		if b.name == name {
			return b, true
		}
	}
	return builtinSignature{}, false
}
