// Package object defines the heap object variants the bytecode VM and
// compiler deal in: functions, native callables, closures, upvalues,
// classes, instances, and bound methods. It sits above package value (for
// Value/Obj/Header) and package chunk (a compiled function owns a *chunk.Chunk)
// so that value and chunk never need to know these concrete types exist —
// the same layering the reference implementation gets for free from C's
// forward declarations across object.h/chunk.h/value.h.
package object

import (
	"fmt"
	"strings"

	"github.com/chazu/loxlang/internal/chunk"
	"github.com/chazu/loxlang/internal/value"
)

// Function is a compiled, not-yet-closed-over function body. The top-level
// script is itself a Function with Arity 0 and no name.
type Function struct {
	value.Header
	Name         *value.String // nil for the implicit top-level script
	Arity        int
	UpvalueCount int
	Chunk        *chunk.Chunk
}

func (f *Function) ObjKind() value.ObjKind  { return value.ObjFunctionKind }
func (f *Function) GCHeader() *value.Header { return &f.Header }
func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// NativeFn is a host function exposed to LoxLang code. It follows the
// supplemented native calling convention: a non-nil error is surfaced to
// the caller as a runtime error exactly like a fault raised by LoxLang
// code itself, rather than being silently swallowed.
type NativeFn func(args []value.Value) (value.Value, error)

// Native wraps a NativeFn as a callable LoxLang value.
type Native struct {
	value.Header
	Name  string
	Arity int // -1 means variadic / unchecked
	Fn    NativeFn
}

func (n *Native) ObjKind() value.ObjKind  { return value.ObjNativeKind }
func (n *Native) GCHeader() *value.Header { return &n.Header }
func (n *Native) String() string          { return fmt.Sprintf("<native fn %s>", n.Name) }

// Upvalue is a closure's reference to a variable captured from an enclosing
// scope. While open, Location points directly into a live VM stack slot;
// closing copies that slot's value into Closed and repoints Location at it,
// so reads/writes go on working uniformly either way.
type Upvalue struct {
	value.Header
	Location  *value.Value
	Closed    value.Value
	StackSlot int // index into the VM's value stack while open; meaningless once Closed
}

func (u *Upvalue) ObjKind() value.ObjKind  { return value.ObjUpvalueKind }
func (u *Upvalue) GCHeader() *value.Header { return &u.Header }
func (u *Upvalue) String() string          { return "<upvalue>" }

// Close snapshots the current value of the captured slot and repoints
// Location at the snapshot, severing the upvalue from the stack slot it
// used to alias.
func (u *Upvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

// Closure pairs a compiled Function with the live upvalue cells it
// captured at creation time. Every callable LoxLang value the VM actually
// invokes is a Closure, even for functions that capture nothing.
type Closure struct {
	value.Header
	Function *Function
	Upvalues []*Upvalue
}

func (c *Closure) ObjKind() value.ObjKind  { return value.ObjClosureKind }
func (c *Closure) GCHeader() *value.Header { return &c.Header }
func (c *Closure) String() string          { return c.Function.String() }

// Class is a LoxLang class. Methods holds Closures keyed by name; single
// inheritance is implemented by copying the superclass's method table into
// the subclass's at class-definition time (OP_INHERIT), not by a linked
// lookup chain, so a method lookup never has to walk a superclass pointer.
type Class struct {
	value.Header
	Name    *value.String
	Methods *value.Table
}

func NewClass(name *value.String) *Class {
	return &Class{Name: name, Methods: value.NewTable()}
}

func (c *Class) ObjKind() value.ObjKind  { return value.ObjClassKind }
func (c *Class) GCHeader() *value.Header { return &c.Header }
func (c *Class) String() string          { return c.Name.Chars }

// Instance is a runtime instance of a Class, holding its own field table.
type Instance struct {
	value.Header
	Class  *Class
	Fields *value.Table
}

func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, Fields: value.NewTable()}
}

func (i *Instance) ObjKind() value.ObjKind  { return value.ObjInstanceKind }
func (i *Instance) GCHeader() *value.Header { return &i.Header }
func (i *Instance) String() string          { return i.Class.Name.Chars + " instance" }

// BoundMethod pairs a receiver instance with one of its class's closures,
// produced by OP_GET_PROPERTY when the property named resolves to a
// method rather than a field.
type BoundMethod struct {
	value.Header
	Receiver value.Value
	Method   *Closure
}

func (b *BoundMethod) ObjKind() value.ObjKind  { return value.ObjBoundMethodKind }
func (b *BoundMethod) GCHeader() *value.Header { return &b.Header }
func (b *BoundMethod) String() string          { return b.Method.String() }

// Disassemble returns a full-depth disassembly of fn's chunk followed by
// the disassembly of every function constant nested in its pool, matching
// clox's disassembleChunk behavior of recursing into OP_CLOSURE targets
// rather than leaving them as opaque "CONSTANT n" lines.
func Disassemble(fn *Function) string {
	var sb strings.Builder
	sb.WriteString(fn.Chunk.Disassemble(fnLabel(fn)))
	for _, c := range fn.Chunk.Constants {
		if nested, ok := c.AsObj().(*Function); c.IsObject() && ok {
			sb.WriteString(Disassemble(nested))
		}
	}
	return sb.String()
}

func fnLabel(fn *Function) string {
	if fn.Name == nil {
		return "<script>"
	}
	return fn.Name.Chars
}
