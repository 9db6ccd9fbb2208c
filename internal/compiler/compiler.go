// Package compiler is LoxLang's single-pass bytecode compiler: a Pratt
// (precedence-climbing) parser that emits chunk.Chunk instructions directly
// as it recognizes expressions and statements, with no intermediate AST.
//
// The token-stream bookkeeping (current/previous token, advance, a
// accumulated error list) follows the same shape as the tree-walking
// front end's recursive-descent parser; the precedence-table dispatch
// itself has no analogue there or anywhere else in the retrieval set — it
// is implemented directly from the algorithm, which is standard for a
// single-pass expression compiler and is documented here rather than
// traced to a borrowed file.
package compiler

import (
	"fmt"

	"github.com/chazu/loxlang/internal/chunk"
	"github.com/chazu/loxlang/internal/object"
	"github.com/chazu/loxlang/internal/scanner"
	"github.com/chazu/loxlang/internal/token"
	"github.com/chazu/loxlang/internal/value"
)

// Interner lets the compiler deduplicate identifier and string-literal
// text into the VM's shared intern table without owning that table
// itself.
type Interner interface {
	Intern(chars string) *value.String
}

// CompileRootTracker lets an Interner double as a GC root for the
// compiler's own in-progress Function chain. spec.md §4.3 lists "the
// compile-time chain of compiling Functions" as a root precisely because
// interning an identifier or string literal mid-compile can itself
// allocate and trigger a collection, at a point where the Function being
// built isn't yet referenced by anything else. vm.VM implements this;
// test doubles that never trigger a real collection can leave it
// unimplemented.
type CompileRootTracker interface {
	PushCompilingFunction(fn *object.Function)
	PopCompilingFunction()
}

// CompileError is one error recovered during compilation. Compile keeps
// going after reporting one (panic-mode recovery, synchronizing at the
// next statement boundary) so a single run surfaces more than the first
// mistake.
type CompileError struct {
	Line    int
	Where   string
	Message string
}

func (e *CompileError) Error() string {
	if e.Where != "" {
		return fmt.Sprintf("[line %d] Error at %s: %s", e.Line, e.Where, e.Message)
	}
	return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
}

// FunctionType distinguishes what kind of callable body is being compiled,
// which changes how the implicit "no return value" case is lowered and
// whether `this`/`super` are in scope.
type FunctionType int

const (
	TypeScript FunctionType = iota
	TypeFunction
	TypeMethod
	TypeInitializer
)

type local struct {
	name       string
	depth      int // -1 means declared but not yet defined
	isCaptured bool
}

type upvalueRef struct {
	index   uint8
	isLocal bool
}

// classState tracks the class currently being compiled, chained through
// enclosing classes the way *Compiler chains through enclosing functions,
// so nested class/method declarations know whether `super` is valid.
type classState struct {
	enclosing      *classState
	hasSuperclass  bool
}

// Compiler compiles one function body (or the top-level script) into a
// chunk.Chunk. Compiling a nested `fun` pushes a new Compiler whose
// enclosing field links back to the function it's nested in, exactly the
// call-stack-shaped compiler chain clox uses so OP_GET_UPVALUE can walk
// outward.
type Compiler struct {
	enclosing *Compiler

	scanner *scanner.Scanner
	intern  Interner

	current  token.Token
	previous token.Token
	hadError bool
	panicMode bool
	errors   []*CompileError

	function *object.Function
	fnType   FunctionType

	locals     []local
	scopeDepth int
	upvalues   []upvalueRef

	class *classState
}

// Compile compiles an entire source program as the implicit top-level
// script function. It returns every error collected (nil when there are
// none); callers must check len(errors) == 0 before running the result.
func Compile(source string, intern Interner) (*object.Function, []*CompileError) {
	c := &Compiler{
		scanner: scanner.New(source),
		intern:  intern,
		function: &object.Function{
			Chunk: chunk.New(),
		},
		fnType: TypeScript,
	}
	c.locals = append(c.locals, local{name: "", depth: 0}) // slot 0 reserved for the callee itself

	if t, ok := intern.(CompileRootTracker); ok {
		t.PushCompilingFunction(c.function)
	}

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	fn := c.endCompiler()
	return fn, c.errors
}

// --- token stream -----------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.Scan()
		if c.current.Type != token.Error {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(t token.Type) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t token.Type) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.Type, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

func (c *Compiler) errorAtCurrent(message string) { c.errorAt(c.current, message) }
func (c *Compiler) error(message string)           { c.errorAt(c.previous, message) }

func (c *Compiler) errorAt(tok token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	where := ""
	switch tok.Type {
	case token.EOF:
		where = "end"
	case token.Error:
		where = ""
	default:
		where = fmt.Sprintf("'%s'", tok.Lexeme)
	}
	c.errors = append(c.errors, &CompileError{Line: tok.Line, Where: where, Message: message})
	c.hadError = true
}

// synchronize skips tokens until it reaches something that plausibly
// starts a new statement, so one syntax error doesn't cascade into a wall
// of spurious follow-on errors.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != token.EOF {
		if c.previous.Type == token.Semicolon {
			return
		}
		switch c.current.Type {
		case token.Class, token.Fun, token.Var, token.For, token.If, token.While, token.Print, token.Return:
			return
		}
		c.advance()
	}
}

// --- emission -----------------------------------------------------

func (c *Compiler) emitByte(b byte) {
	c.function.Chunk.Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op chunk.Opcode) {
	c.function.Chunk.WriteOp(op, c.previous.Line)
}

func (c *Compiler) emitOpByte(op chunk.Opcode, b byte) {
	c.emitOp(op)
	c.emitByte(b)
}

func (c *Compiler) emitConstant(v value.Value) {
	idx := c.makeConstant(v)
	c.emitOpByte(chunk.OpConstant, idx)
}

func (c *Compiler) makeConstant(v value.Value) byte {
	idx := c.function.Chunk.AddConstant(v)
	if idx > 0xFF {
		c.error("too many constants in one chunk")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitJump(op chunk.Opcode) int {
	return c.function.Chunk.EmitJump(op, c.previous.Line)
}

func (c *Compiler) patchJump(offset int) {
	if err := c.function.Chunk.PatchJump(offset); err != nil {
		c.error(err.Error())
	}
}

func (c *Compiler) emitLoop(loopStart int) {
	if err := c.function.Chunk.EmitLoop(loopStart, c.previous.Line); err != nil {
		c.error(err.Error())
	}
}

func (c *Compiler) emitReturn() {
	if c.fnType == TypeInitializer {
		// `init` implicitly returns `this`, which always lives in slot 0.
		c.emitOpByte(chunk.OpGetLocal, 0)
	} else {
		c.emitOp(chunk.OpNil)
	}
	c.emitOp(chunk.OpReturn)
}

func (c *Compiler) endCompiler() *object.Function {
	c.emitReturn()
	if t, ok := c.intern.(CompileRootTracker); ok {
		t.PopCompilingFunction()
	}
	return c.function
}

func (c *Compiler) identifierConstant(name string) byte {
	return c.makeConstant(value.FromObj(c.intern.Intern(name)))
}
