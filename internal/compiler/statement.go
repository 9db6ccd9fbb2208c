package compiler

import (
	"github.com/chazu/loxlang/internal/chunk"
	"github.com/chazu/loxlang/internal/object"
	"github.com/chazu/loxlang/internal/token"
)

func (c *Compiler) declaration() {
	switch {
	case c.match(token.Class):
		c.classDeclaration()
	case c.match(token.Fun):
		c.funDeclaration()
	case c.match(token.Var):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.Print):
		c.printStatement()
	case c.match(token.For):
		c.forStatement()
	case c.match(token.If):
		c.ifStatement()
	case c.match(token.Return):
		c.returnStatement()
	case c.match(token.While):
		c.whileStatement()
	case c.match(token.LeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RightBrace) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RightBrace, "expect '}' after block")
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("expect variable name")
	if c.match(token.Equal) {
		c.expression()
	} else {
		c.emitOp(chunk.OpNil)
	}
	c.consume(token.Semicolon, "expect ';' after variable declaration")
	c.defineVariable(global)
}

// parseVariable consumes an identifier and declares it, returning the
// constant-pool index of its name for globals (ignored for locals).
func (c *Compiler) parseVariable(message string) byte {
	c.consume(token.Identifier, message)
	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous.Lexeme)
}

func (c *Compiler) defineVariable(global byte) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(chunk.OpDefineGlobal, global)
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.Semicolon, "expect ';' after value")
	c.emitOp(chunk.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.Semicolon, "expect ';' after expression")
	c.emitOp(chunk.OpPop)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LeftParen, "expect '(' after 'if'")
	c.expression()
	c.consume(token.RightParen, "expect ')' after condition")

	thenJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.statement()

	elseJump := c.emitJump(chunk.OpJump)
	c.patchJump(thenJump)
	c.emitOp(chunk.OpPop)

	if c.match(token.Else) {
		c.statement()
	}
	c.patchJump(elseJump)
}

// Conditions and logical `and`/`or` (see expression.go) are the two spots
// the reference jlox implementation is known to get wrong — an `if` that
// tests its condition's AST node rather than the value it evaluates to,
// and the left operand of `and`/`or` re-evaluated instead of reused.
// Neither can happen here: a condition is compiled once into bytecode that
// computes its value every time control reaches it (there's no AST node at
// run time), and and/or each evaluate their left operand exactly once (see
// and_/or_).
func (c *Compiler) whileStatement() {
	loopStart := c.function.Chunk.Len()
	c.consume(token.LeftParen, "expect '(' after 'while'")
	c.expression()
	c.consume(token.RightParen, "expect ')' after condition")

	exitJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(chunk.OpPop)
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LeftParen, "expect '(' after 'for'")

	switch {
	case c.match(token.Semicolon):
		// no initializer
	case c.match(token.Var):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := c.function.Chunk.Len()
	exitJump := -1
	if !c.match(token.Semicolon) {
		c.expression()
		c.consume(token.Semicolon, "expect ';' after loop condition")
		exitJump = c.emitJump(chunk.OpJumpIfFalse)
		c.emitOp(chunk.OpPop)
	}

	if !c.match(token.RightParen) {
		bodyJump := c.emitJump(chunk.OpJump)
		incrementStart := c.function.Chunk.Len()
		c.expression()
		c.emitOp(chunk.OpPop)
		c.consume(token.RightParen, "expect ')' after for clauses")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(chunk.OpPop)
	}
	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.fnType == TypeScript {
		c.error("can't return from top-level code")
	}
	if c.match(token.Semicolon) {
		c.emitReturn()
		return
	}
	if c.fnType == TypeInitializer {
		c.error("can't return a value from an initializer")
	}
	c.expression()
	c.consume(token.Semicolon, "expect ';' after return value")
	c.emitOp(chunk.OpReturn)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("expect function name")
	c.markInitialized()
	c.function_(TypeFunction)
	c.defineVariable(global)
}

// function_ compiles a function body as a nested Compiler, emitting the
// OP_CLOSURE that creates a runtime Closure from the resulting Function
// constant back into the enclosing chunk.
func (c *Compiler) function_(fnType FunctionType) {
	name := c.previous.Lexeme
	fc := newNestedCompiler(c, fnType, name)

	fc.beginScope()
	fc.consume(token.LeftParen, "expect '(' after function name")
	if !fc.check(token.RightParen) {
		for {
			fc.function.Arity++
			if fc.function.Arity > 255 {
				fc.error("can't have more than 255 parameters")
			}
			constant := fc.parseVariable("expect parameter name")
			fc.defineVariable(constant)
			if !fc.match(token.Comma) {
				break
			}
		}
	}
	fc.consume(token.RightParen, "expect ')' after parameters")
	fc.consume(token.LeftBrace, "expect '{' before function body")
	fc.block()

	fn := fc.endCompiler()
	c.errors = append(c.errors, fc.errors...)
	// The nested compiler shares our scanner; pull its token cursor back so
	// we resume parsing exactly where it left off.
	c.current = fc.current
	c.previous = fc.previous

	idx := c.makeConstant(valueFromFunction(fn))
	c.function.Chunk.RecordUpvalueCount(int(idx), len(fc.upvalues))
	c.emitOpByte(chunk.OpClosure, idx)
	for _, u := range fc.upvalues {
		if u.isLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(u.index)
	}
}

func newNestedCompiler(enclosing *Compiler, fnType FunctionType, name string) *Compiler {
	fc := &Compiler{
		enclosing: enclosing,
		scanner:   enclosing.scanner,
		intern:    enclosing.intern,
		fnType:    fnType,
		class:     enclosing.class,
		function: &object.Function{
			Chunk: chunk.New(),
		},
	}
	if t, ok := enclosing.intern.(CompileRootTracker); ok {
		t.PushCompilingFunction(fc.function)
	}
	if name != "" {
		fc.function.Name = enclosing.intern.Intern(name)
	}
	// Carry the token cursor over so the nested compiler continues reading
	// from exactly where the enclosing one left off.
	fc.current = enclosing.current
	fc.previous = enclosing.previous

	slotZeroName := ""
	if fnType == TypeMethod || fnType == TypeInitializer {
		slotZeroName = "this"
	}
	fc.locals = append(fc.locals, local{name: slotZeroName, depth: 0})
	return fc
}

// classDeclaration compiles `class Name (< Super)? { methods }`, binding
// the class name and, for a subclass, a `super` local in its own scope.
func (c *Compiler) classDeclaration() {
	c.consume(token.Identifier, "expect class name")
	nameTok := c.previous
	nameConstant := c.identifierConstant(nameTok.Lexeme)
	c.declareVariable()

	c.emitOpByte(chunk.OpClass, nameConstant)
	c.defineVariable(nameConstant)

	cs := &classState{enclosing: c.class}
	c.class = cs

	if c.match(token.Less) {
		c.consume(token.Identifier, "expect superclass name")
		c.variableNamed(c.previous.Lexeme, false)
		if c.previous.Lexeme == nameTok.Lexeme {
			c.error("a class can't inherit from itself")
		}

		c.beginScope()
		c.addLocal("super")
		c.markInitialized()

		c.variableNamed(nameTok.Lexeme, false)
		c.emitOp(chunk.OpInherit)
		cs.hasSuperclass = true
	}

	c.variableNamed(nameTok.Lexeme, false)
	c.consume(token.LeftBrace, "expect '{' before class body")
	for !c.check(token.RightBrace) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RightBrace, "expect '}' after class body")
	c.emitOp(chunk.OpPop) // pop the class itself, left by variableNamed above

	if cs.hasSuperclass {
		c.endScope()
	}
	c.class = cs.enclosing
}

func (c *Compiler) method() {
	c.consume(token.Identifier, "expect method name")
	name := c.previous.Lexeme
	nameConstant := c.identifierConstant(name)

	fnType := TypeMethod
	if name == "init" {
		fnType = TypeInitializer
	}
	c.function_(fnType)
	c.emitOpByte(chunk.OpMethod, nameConstant)
}
