package vm

import (
	"fmt"

	"github.com/chazu/loxlang/internal/chunk"
	"github.com/chazu/loxlang/internal/object"
	"github.com/chazu/loxlang/internal/value"
)

// run is the VM's main fetch-decode-execute loop. It runs until the
// outermost call frame returns or a runtime error unwinds the stack.
func (vm *VM) run() error {
	f := vm.frame()
	for {
		op := chunk.Opcode(vm.readByte(f))
		switch op {
		case chunk.OpConstant:
			vm.push(vm.readConstant(f, vm.readByte(f)))

		case chunk.OpNil:
			vm.push(value.Nil)
		case chunk.OpTrue:
			vm.push(value.Bool(true))
		case chunk.OpFalse:
			vm.push(value.Bool(false))

		case chunk.OpPop:
			vm.pop()

		case chunk.OpGetLocal:
			slot := vm.readByte(f)
			vm.push(vm.stack[f.slotsBase+int(slot)])
		case chunk.OpSetLocal:
			slot := vm.readByte(f)
			vm.stack[f.slotsBase+int(slot)] = vm.peek(0)

		case chunk.OpGetGlobal:
			name := vm.readConstant(f, vm.readByte(f)).AsObj().(*value.String)
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("undefined variable '%s'", name.Chars)
			}
			vm.push(v)
		case chunk.OpDefineGlobal:
			name := vm.readConstant(f, vm.readByte(f)).AsObj().(*value.String)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case chunk.OpSetGlobal:
			name := vm.readConstant(f, vm.readByte(f)).AsObj().(*value.String)
			if _, ok := vm.globals.Get(name); !ok {
				return vm.runtimeError("undefined variable '%s'", name.Chars)
			}
			vm.globals.Set(name, vm.peek(0))

		case chunk.OpGetUpvalue:
			slot := vm.readByte(f)
			vm.push(*f.closure.Upvalues[slot].Location)
		case chunk.OpSetUpvalue:
			slot := vm.readByte(f)
			*f.closure.Upvalues[slot].Location = vm.peek(0)

		case chunk.OpGetProperty:
			if err := vm.getProperty(f); err != nil {
				return err
			}
		case chunk.OpSetProperty:
			if err := vm.setProperty(f); err != nil {
				return err
			}
		case chunk.OpGetSuper:
			name := vm.readConstant(f, vm.readByte(f)).AsObj().(*value.String)
			superclass := vm.pop().AsObj().(*object.Class)
			receiver := vm.pop()
			if err := vm.bindMethod(superclass, name, receiver); err != nil {
				return err
			}

		case chunk.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(a.Equal(b)))
		case chunk.OpGreater:
			if err := vm.binaryNumeric(f, func(a, b float64) value.Value { return value.Bool(a > b) }); err != nil {
				return err
			}
		case chunk.OpLess:
			if err := vm.binaryNumeric(f, func(a, b float64) value.Value { return value.Bool(a < b) }); err != nil {
				return err
			}
		case chunk.OpAdd:
			if err := vm.add(f); err != nil {
				return err
			}
		case chunk.OpSubtract:
			if err := vm.binaryNumeric(f, func(a, b float64) value.Value { return value.Number(a - b) }); err != nil {
				return err
			}
		case chunk.OpMultiply:
			if err := vm.binaryNumeric(f, func(a, b float64) value.Value { return value.Number(a * b) }); err != nil {
				return err
			}
		case chunk.OpDivide:
			if err := vm.binaryNumeric(f, func(a, b float64) value.Value { return value.Number(a / b) }); err != nil {
				return err
			}
		case chunk.OpNot:
			vm.push(value.Bool(vm.pop().IsFalsey()))
		case chunk.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("operand must be a number")
			}
			vm.push(value.Number(-vm.pop().AsNumber()))

		case chunk.OpPrint:
			fmt.Fprintln(vm.Stdout, vm.pop().String())

		case chunk.OpJump:
			offset := vm.readUint16(f)
			f.ip += int(offset)
		case chunk.OpJumpIfFalse:
			offset := vm.readUint16(f)
			if vm.peek(0).IsFalsey() {
				f.ip += int(offset)
			}
		case chunk.OpLoop:
			offset := vm.readUint16(f)
			f.ip -= int(offset)

		case chunk.OpCall:
			argCount := int(vm.readByte(f))
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			f = vm.frame()
		case chunk.OpInvoke:
			name := vm.readConstant(f, vm.readByte(f)).AsObj().(*value.String)
			argCount := int(vm.readByte(f))
			if err := vm.invoke(name, argCount); err != nil {
				return err
			}
			f = vm.frame()
		case chunk.OpSuperInvoke:
			name := vm.readConstant(f, vm.readByte(f)).AsObj().(*value.String)
			argCount := int(vm.readByte(f))
			superclass := vm.pop().AsObj().(*object.Class)
			if err := vm.invokeFromClass(superclass, name, argCount); err != nil {
				return err
			}
			f = vm.frame()

		case chunk.OpClosure:
			fn := vm.readConstant(f, vm.readByte(f)).AsObj().(*object.Function)
			closure := vm.newClosure(fn)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(f)
				index := vm.readByte(f)
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(f.slotsBase + int(index))
				} else {
					closure.Upvalues[i] = f.closure.Upvalues[index]
				}
			}
			vm.push(value.FromObj(closure))
		case chunk.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case chunk.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(f.slotsBase)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = f.slotsBase
			vm.push(result)
			f = vm.frame()

		case chunk.OpClass:
			name := vm.readConstant(f, vm.readByte(f)).AsObj().(*value.String)
			vm.push(value.FromObj(vm.newClass(name)))
		case chunk.OpInherit:
			superVal := vm.peek(1)
			superclass, ok := superVal.AsObj().(*object.Class)
			if !ok {
				return vm.runtimeError("superclass must be a class")
			}
			subclass := vm.peek(0).AsObj().(*object.Class)
			subclass.Methods.AddAll(superclass.Methods)
			vm.pop() // subclass
		case chunk.OpMethod:
			name := vm.readConstant(f, vm.readByte(f)).AsObj().(*value.String)
			method := vm.pop().AsObj().(*object.Closure)
			class := vm.peek(0).AsObj().(*object.Class)
			class.Methods.Set(name, value.FromObj(method))

		default:
			return vm.runtimeError("unknown opcode 0x%02X", byte(op))
		}
	}
}

func (vm *VM) binaryNumeric(f *Frame, op func(a, b float64) value.Value) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(op(a, b))
	return nil
}

// add peeks both operands rather than popping them up front: the string
// branch allocates (and interns), which can trigger collectGarbage, so the
// operands must stay rooted on the stack until the result is safely pushed.
func (vm *VM) add(f *Frame) error {
	bv, av := vm.peek(0), vm.peek(1)
	switch {
	case av.IsNumber() && bv.IsNumber():
		result := value.Number(av.AsNumber() + bv.AsNumber())
		vm.pop()
		vm.pop()
		vm.push(result)
	case av.IsString() && bv.IsString():
		a, b := av.AsObj().(*value.String), bv.AsObj().(*value.String)
		interned := vm.Intern(a.Chars + b.Chars)
		vm.pop()
		vm.pop()
		vm.push(value.FromObj(interned))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings")
	}
	return nil
}
