package vm

import (
	"github.com/chazu/loxlang/internal/chunk"
	"github.com/chazu/loxlang/internal/object"
	"github.com/chazu/loxlang/internal/value"
)

// chunk.FunctionEncoder implementation: the VM is the natural owner since
// decoding a dumped chunk has to re-intern every string and re-allocate
// every Function through the same tracked allocator live code goes
// through.

func (vm *VM) EncodeString(v value.Value) (string, bool) {
	if !v.IsString() {
		return "", false
	}
	return v.AsObj().(*value.String).Chars, true
}

func (vm *VM) DecodeString(s string) value.Value {
	return value.FromObj(vm.Intern(s))
}

func (vm *VM) EncodeFunction(v value.Value) (name string, arity, upvalueCount int, body *chunk.Chunk, ok bool) {
	fn, isFn := v.AsObj().(*object.Function)
	if !v.IsObject() || !isFn {
		return "", 0, 0, nil, false
	}
	if fn.Name != nil {
		name = fn.Name.Chars
	}
	return name, fn.Arity, fn.UpvalueCount, fn.Chunk, true
}

func (vm *VM) DecodeFunction(name string, arity, upvalueCount int, body *chunk.Chunk) value.Value {
	fn := vm.newFunction()
	if name != "" {
		fn.Name = vm.Intern(name)
	}
	fn.Arity = arity
	fn.UpvalueCount = upvalueCount
	fn.Chunk = body
	return value.FromObj(fn)
}
