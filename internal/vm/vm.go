// Package vm is LoxLang's bytecode virtual machine: a stack-based
// interpreter for chunk.Chunk programs, with call frames, closures,
// classes via method copy-down, and a tri-color mark-sweep collector
// (gc.go) managing every heap object it allocates (alloc.go).
package vm

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/loxlang/internal/compiler"
	"github.com/chazu/loxlang/internal/object"
	"github.com/chazu/loxlang/internal/value"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// Config carries the collector's tunable knobs, normally populated from
// loxlang.toml by internal/config.
type Config struct {
	StressGC         bool
	LogGC            bool
	GrowthFactor     int
	InitialThreshold int
}

// DefaultConfig matches spec.md's stated defaults.
func DefaultConfig() Config {
	return Config{GrowthFactor: 2, InitialThreshold: 1 << 20}
}

// Frame is one active call on the VM's call stack.
type Frame struct {
	closure   *object.Closure
	ip        int
	slotsBase int // index into vm.stack where this call's locals begin
}

// RuntimeError is a single runtime fault, carrying the formatted traceback
// the way spec.md's error-reporting contract requires: a message plus a
// "[line N] in <function>" trace for every frame still active when it was
// raised.
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string {
	s := e.Message
	for _, line := range e.Trace {
		s += "\n" + line
	}
	return s
}

// VM executes compiled LoxLang programs. Every VM is independent and may
// run concurrently with others. ID is a random identifier set by New; the
// VM's log lines do not include it.
type VM struct {
	ID uuid.UUID

	stack     [stackMax]value.Value
	stackTop  int
	frames    [framesMax]Frame
	frameCount int

	globals *value.Table
	strings *value.Table

	openUpvalues []*object.Upvalue

	objects        value.Obj
	grayStack      []value.Obj
	bytesAllocated int
	nextGC         int

	initString *value.String

	// compilingFunctions is the in-progress compiler's chain of Functions,
	// pushed/popped by compiler.Compile via the CompileRootTracker
	// interface. Kept as a root (see markRoots) because an allocation
	// triggered mid-compile — interning an identifier, say — must not let
	// the collector free a Function that isn't reachable any other way yet.
	compilingFunctions []*object.Function

	config Config
	logger commonlog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

// New creates a VM ready to Interpret source. cfg controls the collector;
// pass DefaultConfig() for spec.md's stated defaults.
func New(cfg Config) *VM {
	if cfg.GrowthFactor == 0 {
		cfg.GrowthFactor = 2
	}
	if cfg.InitialThreshold == 0 {
		cfg.InitialThreshold = 1 << 20
	}
	vm := &VM{
		ID:      uuid.New(),
		globals: value.NewTable(),
		strings: value.NewTable(),
		config:  cfg,
		nextGC:  cfg.InitialThreshold,
		logger:  commonlog.GetLogger("loxlang.vm"),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	vm.initString = vm.Intern("init")
	vm.defineNatives()
	return vm
}

// Interpret compiles and runs source as a new top-level script. Compile
// errors are returned without executing anything; a runtime error is
// returned only after partial output (print statements before the fault)
// has already reached Stdout, matching a real interpreter's behavior.
func (vm *VM) Interpret(source string) error {
	fn, errs := compiler.Compile(source, vm)
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("compile error:\n%s", joinLines(msgs))
	}

	closure := vm.newClosure(fn)
	vm.push(value.FromObj(closure))
	if _, err := vm.call(closure, 0); err != nil {
		return err
	}
	return vm.run()
}

func joinLines(lines []string) string {
	s := ""
	for i, l := range lines {
		if i > 0 {
			s += "\n"
		}
		s += l
	}
	return s
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) frame() *Frame { return &vm.frames[vm.frameCount-1] }

func (vm *VM) readByte(f *Frame) byte {
	b := f.closure.Function.Chunk.Code[f.ip]
	f.ip++
	return b
}

func (vm *VM) readUint16(f *Frame) uint16 {
	hi := vm.readByte(f)
	lo := vm.readByte(f)
	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) readConstant(f *Frame, idx byte) value.Value {
	return f.closure.Function.Chunk.Constants[idx]
}

// runtimeError builds a RuntimeError carrying the current call stack's
// traceback and unwinds the VM's own stack pointers so a REPL can recover
// and accept another line after one.
func (vm *VM) runtimeError(format string, args ...interface{}) *RuntimeError {
	err := &RuntimeError{Message: fmt.Sprintf(format, args...)}
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		fn := f.closure.Function
		line := 0
		if f.ip-1 >= 0 && f.ip-1 < len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[f.ip-1]
		}
		name := "script"
		if fn.Name != nil {
			name = fn.Name.Chars + "()"
		}
		err.Trace = append(err.Trace, fmt.Sprintf("[line %d] in %s", line, name))
	}
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
	return err
}

func clockSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
