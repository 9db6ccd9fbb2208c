package vm

import (
	"github.com/chazu/loxlang/internal/object"
	"github.com/chazu/loxlang/internal/value"
)

// collectGarbage runs one full mark-sweep cycle: mark every root, trace
// outward from the gray worklist until nothing new turns up, drop the
// intern table's entries for strings nothing marked (they'd otherwise keep
// every string alive forever, since the intern table itself is not a
// root), then sweep the all-objects list freeing anything still white.
func (vm *VM) collectGarbage() {
	before := vm.bytesAllocated
	if vm.config.LogGC {
		vm.logger.Debugf("gc begin")
	}

	vm.markRoots()
	vm.traceReferences()
	vm.removeWhiteStrings()
	vm.sweep()

	vm.nextGC = vm.bytesAllocated * vm.config.GrowthFactor
	if vm.nextGC < vm.config.InitialThreshold {
		vm.nextGC = vm.config.InitialThreshold
	}

	if vm.config.LogGC {
		vm.logger.Debugf("gc end: collected %d bytes (%d -> %d), next at %d",
			before-vm.bytesAllocated, before, vm.bytesAllocated, vm.nextGC)
	}
}

func (vm *VM) markRoots() {
	for i := 0; i < vm.stackTop; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}
	for _, u := range vm.openUpvalues {
		vm.markObject(u)
	}
	vm.markTable(vm.globals)
	if vm.initString != nil {
		vm.markObject(vm.initString)
	}
	for _, fn := range vm.compilingFunctions {
		vm.markObject(fn)
	}
}

func (vm *VM) markValue(v value.Value) {
	if v.IsObject() {
		vm.markObject(v.AsObj())
	}
}

func (vm *VM) markObject(o value.Obj) {
	if o == nil {
		return
	}
	h := o.GCHeader()
	if h.Marked {
		return
	}
	h.Marked = true
	vm.grayStack = append(vm.grayStack, o)
}

func (vm *VM) markTable(t *value.Table) {
	t.Each(func(key *value.String, v value.Value) {
		vm.markObject(key)
		vm.markValue(v)
	})
}

// traceReferences drains the gray worklist, marking every object each gray
// object points to until the worklist runs dry — the "trace" phase of
// tri-color marking.
func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		o := vm.grayStack[len(vm.grayStack)-1]
		vm.grayStack = vm.grayStack[:len(vm.grayStack)-1]
		vm.blacken(o)
	}
}

func (vm *VM) blacken(o value.Obj) {
	switch obj := o.(type) {
	case *value.String:
		// no outgoing references
	case *object.Native:
		// no outgoing references
	case *object.Function:
		if obj.Name != nil { // the top-level script has no name
			vm.markObject(obj.Name)
		}
		for _, c := range obj.Chunk.Constants {
			vm.markValue(c)
		}
	case *object.Upvalue:
		vm.markValue(obj.Closed)
	case *object.Closure:
		vm.markObject(obj.Function)
		for _, u := range obj.Upvalues {
			vm.markObject(u)
		}
	case *object.Class:
		vm.markObject(obj.Name)
		vm.markTable(obj.Methods)
	case *object.Instance:
		vm.markObject(obj.Class)
		vm.markTable(obj.Fields)
	case *object.BoundMethod:
		vm.markValue(obj.Receiver)
		vm.markObject(obj.Method)
	}
}

// removeWhiteStrings drops intern-table entries whose key didn't get
// marked this cycle, so a string with no other referents can actually be
// collected instead of being kept alive forever by its own intern slot.
func (vm *VM) removeWhiteStrings() {
	var dead []*value.String
	vm.strings.Each(func(key *value.String, _ value.Value) {
		if !key.Marked {
			dead = append(dead, key)
		}
	})
	for _, key := range dead {
		vm.strings.Delete(key)
	}
}

// sweep walks the intrusive all-objects list, freeing (unlinking) every
// object that wasn't marked and clearing the mark bit on everything that
// survives, ready for the next cycle.
func (vm *VM) sweep() {
	var prev value.Obj
	cur := vm.objects
	for cur != nil {
		h := cur.GCHeader()
		if h.Marked {
			h.Marked = false
			prev = cur
			cur = h.Next
			continue
		}
		unreached := cur
		cur = h.Next
		if prev != nil {
			prev.GCHeader().Next = cur
		} else {
			vm.objects = cur
		}
		vm.bytesAllocated -= sizeOf(unreached)
	}
}

func sizeOf(o value.Obj) int {
	switch v := o.(type) {
	case *value.String:
		return sizeString + len(v.Chars)
	case *object.Function:
		return sizeFunction
	case *object.Native:
		return sizeNative
	case *object.Closure:
		return sizeClosure
	case *object.Upvalue:
		return sizeUpvalue
	case *object.Class:
		return sizeClass
	case *object.Instance:
		return sizeInstance
	case *object.BoundMethod:
		return sizeBoundMethod
	default:
		return 0
	}
}
