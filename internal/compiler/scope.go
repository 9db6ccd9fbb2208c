package compiler

import "github.com/chazu/loxlang/internal/chunk"

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		last := c.locals[len(c.locals)-1]
		if last.isCaptured {
			c.emitOp(chunk.OpCloseUpvalue)
		} else {
			c.emitOp(chunk.OpPop)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// declareVariable binds the identifier just consumed (c.previous) as a
// local if we're inside a scope, or leaves it to be defined as a global
// otherwise.
func (c *Compiler) declareVariable() {
	if c.scopeDepth == 0 {
		return
	}
	name := c.previous.Lexeme
	for i := len(c.locals) - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if l.name == name {
			c.error("already a variable with this name in this scope")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name string) {
	if len(c.locals) >= 256 {
		c.error("too many local variables in function")
		return
	}
	c.locals = append(c.locals, local{name: name, depth: -1})
}

// markInitialized completes a local declared by declareVariable, making it
// visible to subsequent reads. Globals have no equivalent bookkeeping.
func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				c.error("can't read local variable in its own initializer")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue walks outward through enclosing compilers looking for
// name as a local there, threading an upvalue descriptor through every
// intermediate function so a doubly-nested closure can still reach a
// variable two scopes up.
func (c *Compiler) resolveUpvalue(name string) int {
	if c.enclosing == nil {
		return -1
	}
	if local := c.enclosing.resolveLocal(name); local != -1 {
		c.enclosing.locals[local].isCaptured = true
		return c.addUpvalue(uint8(local), true)
	}
	if up := c.enclosing.resolveUpvalue(name); up != -1 {
		return c.addUpvalue(uint8(up), false)
	}
	return -1
}

func (c *Compiler) addUpvalue(index uint8, isLocal bool) int {
	for i, u := range c.upvalues {
		if u.index == index && u.isLocal == isLocal {
			return i
		}
	}
	if len(c.upvalues) >= 256 {
		c.error("too many closure variables in function")
		return 0
	}
	c.upvalues = append(c.upvalues, upvalueRef{index: index, isLocal: isLocal})
	c.function.UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1
}
