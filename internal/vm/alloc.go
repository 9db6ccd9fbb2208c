package vm

import (
	"github.com/chazu/loxlang/internal/object"
	"github.com/chazu/loxlang/internal/value"
)

// Rough per-kind size estimates used to drive the allocator's bytesAllocated
// counter. Go's own runtime does the real memory management; these numbers
// exist purely so the collector's trigger policy (nextGC, growth factor)
// has something meaningful to threshold against, matching the reference
// allocator's "total bytes the VM has allocated" bookkeeping.
const (
	sizeString      = 32
	sizeFunction    = 96
	sizeNative      = 48
	sizeClosure     = 64
	sizeUpvalue     = 40
	sizeClass       = 64
	sizeInstance    = 56
	sizeBoundMethod = 48
)

func (vm *VM) track(o value.Obj, size int) {
	o.GCHeader().Next = vm.objects
	vm.objects = o
	vm.bytesAllocated += size
	if vm.config.StressGC || vm.bytesAllocated > vm.nextGC {
		vm.collectGarbage()
	}
}

// Intern implements compiler.Interner: it returns the canonical *value.String
// for chars, allocating one only if this exact content hasn't been seen
// before.
func (vm *VM) Intern(chars string) *value.String {
	hash := value.HashString(chars)
	if s := vm.strings.FindString(chars, hash); s != nil {
		return s
	}
	str := &value.String{Chars: chars, Hash: hash}
	vm.track(str, sizeString+len(chars))
	vm.strings.Set(str, value.Nil)
	return str
}

func (vm *VM) newFunction() *object.Function {
	fn := &object.Function{}
	vm.track(fn, sizeFunction)
	return fn
}

func (vm *VM) newNative(name string, arity int, fn object.NativeFn) *object.Native {
	n := &object.Native{Name: name, Arity: arity, Fn: fn}
	vm.track(n, sizeNative)
	return n
}

func (vm *VM) newClosure(fn *object.Function) *object.Closure {
	c := &object.Closure{Function: fn, Upvalues: make([]*object.Upvalue, fn.UpvalueCount)}
	vm.track(c, sizeClosure)
	return c
}

func (vm *VM) newUpvalue(slot int) *object.Upvalue {
	u := &object.Upvalue{Location: &vm.stack[slot], StackSlot: slot}
	vm.track(u, sizeUpvalue)
	return u
}

func (vm *VM) newClass(name *value.String) *object.Class {
	c := object.NewClass(name)
	vm.track(c, sizeClass)
	return c
}

func (vm *VM) newInstance(class *object.Class) *object.Instance {
	i := object.NewInstance(class)
	vm.track(i, sizeInstance)
	return i
}

func (vm *VM) newBoundMethod(receiver value.Value, method *object.Closure) *object.BoundMethod {
	b := &object.BoundMethod{Receiver: receiver, Method: method}
	vm.track(b, sizeBoundMethod)
	return b
}

// PushCompilingFunction and PopCompilingFunction implement
// compiler.CompileRootTracker: the VM keeps the compiler's in-progress
// Function chain alive across any allocation compiling can trigger.
func (vm *VM) PushCompilingFunction(fn *object.Function) {
	vm.compilingFunctions = append(vm.compilingFunctions, fn)
}

func (vm *VM) PopCompilingFunction() {
	vm.compilingFunctions = vm.compilingFunctions[:len(vm.compilingFunctions)-1]
}

func (vm *VM) logAlloc(kind string, size int) {
	if vm.config.LogGC {
		vm.logger.Debugf("alloc %s (%d bytes), total=%d next=%d", kind, size, vm.bytesAllocated, vm.nextGC)
	}
}
