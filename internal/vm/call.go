package vm

import (
	"github.com/chazu/loxlang/internal/object"
	"github.com/chazu/loxlang/internal/value"
)

// callValue dispatches a call to whatever callable sits at vm.peek(argCount):
// a Closure, a Native, a Class (constructing an Instance), or a BoundMethod.
// Anything else is a runtime error, matching spec.md's "call on a
// non-callable" fault.
func (vm *VM) callValue(callee value.Value, argCount int) error {
	if !callee.IsObject() {
		return vm.runtimeError("can only call functions and classes")
	}
	switch obj := callee.AsObj().(type) {
	case *object.Closure:
		_, err := vm.call(obj, argCount)
		return err
	case *object.Native:
		return vm.callNative(obj, argCount)
	case *object.Class:
		instance := vm.newInstance(obj)
		vm.stack[vm.stackTop-argCount-1] = value.FromObj(instance)
		if initializer, ok := obj.Methods.Get(vm.initString); ok {
			_, err := vm.call(initializer.AsObj().(*object.Closure), argCount)
			return err
		}
		if argCount != 0 {
			return vm.runtimeError("expected 0 arguments but got %d", argCount)
		}
		return nil
	case *object.BoundMethod:
		vm.stack[vm.stackTop-argCount-1] = obj.Receiver
		_, err := vm.call(obj.Method, argCount)
		return err
	default:
		return vm.runtimeError("can only call functions and classes")
	}
}

func (vm *VM) call(closure *object.Closure, argCount int) (*Frame, error) {
	if argCount != closure.Function.Arity {
		return nil, vm.runtimeError("expected %d arguments but got %d", closure.Function.Arity, argCount)
	}
	if vm.frameCount == framesMax {
		return nil, vm.runtimeError("stack overflow")
	}
	f := &vm.frames[vm.frameCount]
	f.closure = closure
	f.ip = 0
	f.slotsBase = vm.stackTop - argCount - 1
	vm.frameCount++
	return f, nil
}

func (vm *VM) callNative(native *object.Native, argCount int) error {
	if native.Arity >= 0 && argCount != native.Arity {
		return vm.runtimeError("expected %d arguments but got %d", native.Arity, argCount)
	}
	args := vm.stack[vm.stackTop-argCount : vm.stackTop]
	result, err := native.Fn(args)
	if err != nil {
		return vm.runtimeError("%s", err.Error())
	}
	vm.stackTop -= argCount + 1
	vm.push(result)
	return nil
}

// invoke fuses OP_GET_PROPERTY + OP_CALL into one instruction when the
// property resolves to a method, avoiding the intermediate BoundMethod
// allocation the naive get-then-call path would otherwise need for every
// ordinary method call.
func (vm *VM) invoke(name *value.String, argCount int) error {
	receiver := vm.peek(argCount)
	instance, ok := receiver.AsObj().(*object.Instance)
	if !ok {
		return vm.runtimeError("only instances have methods")
	}
	if field, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = field
		return vm.callValue(field, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *object.Class, name *value.String, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("undefined property '%s'", name.Chars)
	}
	_, err := vm.call(method.AsObj().(*object.Closure), argCount)
	return err
}

func (vm *VM) getProperty(f *Frame) error {
	name := vm.readConstant(f, vm.readByte(f)).AsObj().(*value.String)
	instance, ok := vm.peek(0).AsObj().(*object.Instance)
	if !ok {
		return vm.runtimeError("Only instances have properties")
	}
	if v, ok := instance.Fields.Get(name); ok {
		vm.pop()
		vm.push(v)
		return nil
	}
	return vm.bindMethod(instance.Class, name, vm.pop())
}

func (vm *VM) setProperty(f *Frame) error {
	name := vm.readConstant(f, vm.readByte(f)).AsObj().(*value.String)
	instance, ok := vm.peek(1).AsObj().(*object.Instance)
	if !ok {
		return vm.runtimeError("only instances have fields")
	}
	instance.Fields.Set(name, vm.peek(0))
	v := vm.pop()
	vm.pop()
	vm.push(v)
	return nil
}

func (vm *VM) bindMethod(class *object.Class, name *value.String, receiver value.Value) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("undefined property '%s'", name.Chars)
	}
	bound := vm.newBoundMethod(receiver, method.AsObj().(*object.Closure))
	vm.push(value.FromObj(bound))
	return nil
}

// captureUpvalue returns an Upvalue aliasing stack slot, reusing an
// already-open one for the same slot if this closure isn't the first to
// capture it.
func (vm *VM) captureUpvalue(slot int) *object.Upvalue {
	for _, u := range vm.openUpvalues {
		if u.StackSlot == slot {
			return u
		}
	}
	u := vm.newUpvalue(slot)
	vm.openUpvalues = append(vm.openUpvalues, u)
	return u
}

// closeUpvalues snapshots and detaches every open upvalue whose slot is at
// or above floor, which is what happens to locals falling out of scope
// (OP_CLOSE_UPVALUE) and to a whole frame's locals on return.
func (vm *VM) closeUpvalues(floor int) {
	kept := vm.openUpvalues[:0]
	for _, u := range vm.openUpvalues {
		if u.StackSlot >= floor {
			u.Close()
		} else {
			kept = append(kept, u)
		}
	}
	vm.openUpvalues = kept
}
