package vm

import (
	"fmt"

	"github.com/chazu/loxlang/internal/object"
	"github.com/chazu/loxlang/internal/value"
)

// defineNatives installs the VM's native function table as globals, the
// same way the reference implementation wires clock() in before running
// any user source.
func (vm *VM) defineNatives() {
	vm.defineNative("clock", 0, nativeClock)
	vm.defineNative("assertEq", 2, nativeAssertEq)
}

func (vm *VM) defineNative(name string, arity int, fn object.NativeFn) {
	native := vm.newNative(name, arity, fn)
	vm.globals.Set(vm.Intern(name), value.FromObj(native))
}

func nativeClock(args []value.Value) (value.Value, error) {
	return value.Number(clockSeconds()), nil
}

// nativeAssertEq exercises the native error-propagation convention: a
// native isn't limited to returning a value, it can also fail the call
// with a runtime error exactly like user LoxLang code would, which is
// what the test corpus uses it for.
func nativeAssertEq(args []value.Value) (value.Value, error) {
	a, b := args[0], args[1]
	if !a.Equal(b) {
		return value.Nil, fmt.Errorf("assertion failed: %s != %s", a.String(), b.String())
	}
	return value.Nil, nil
}
