package compiler

import (
	"strconv"
	"strings"

	"github.com/chazu/loxlang/internal/chunk"
	"github.com/chazu/loxlang/internal/object"
	"github.com/chazu/loxlang/internal/token"
	"github.com/chazu/loxlang/internal/value"
)

// Precedence levels, lowest to highest. Pratt parsing climbs this ladder:
// parsePrecedence(p) consumes everything whose operator binds at least as
// tightly as p.
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LeftParen:  {prefix: (*Compiler).grouping, infix: (*Compiler).call, precedence: precCall},
		token.Dot:        {infix: (*Compiler).dot, precedence: precCall},
		token.Minus:      {prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: precTerm},
		token.Plus:       {infix: (*Compiler).binary, precedence: precTerm},
		token.Slash:      {infix: (*Compiler).binary, precedence: precFactor},
		token.Star:       {infix: (*Compiler).binary, precedence: precFactor},
		token.Bang:       {prefix: (*Compiler).unary},
		token.BangEqual:  {infix: (*Compiler).binary, precedence: precEquality},
		token.Equal:      {},
		token.EqualEqual: {infix: (*Compiler).binary, precedence: precEquality},
		token.Greater:      {infix: (*Compiler).binary, precedence: precComparison},
		token.GreaterEqual: {infix: (*Compiler).binary, precedence: precComparison},
		token.Less:         {infix: (*Compiler).binary, precedence: precComparison},
		token.LessEqual:    {infix: (*Compiler).binary, precedence: precComparison},
		token.Identifier: {prefix: (*Compiler).variable},
		token.String:     {prefix: (*Compiler).string_},
		token.Number:     {prefix: (*Compiler).number},
		token.And:        {infix: (*Compiler).and_, precedence: precAnd},
		token.Or:         {infix: (*Compiler).or_, precedence: precOr},
		token.False:      {prefix: (*Compiler).literal},
		token.Nil:        {prefix: (*Compiler).literal},
		token.True:       {prefix: (*Compiler).literal},
		token.This:       {prefix: (*Compiler).this_},
		token.Super:      {prefix: (*Compiler).super_},
	}
}

func getRule(t token.Type) parseRule {
	if r, ok := rules[t]; ok {
		return r
	}
	return parseRule{}
}

func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		c.error("expect expression")
		return
	}
	canAssign := prec <= precAssignment
	prefix(c, canAssign)

	for prec <= getRule(c.current.Type).precedence {
		c.advance()
		infix := getRule(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.Equal) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) number(canAssign bool) {
	n, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("invalid number literal")
		return
	}
	c.emitConstant(value.Number(n))
}

func (c *Compiler) string_(canAssign bool) {
	raw := c.previous.Lexeme
	text := strings.TrimSuffix(strings.TrimPrefix(raw, `"`), `"`)
	c.emitConstant(value.FromObj(c.intern.Intern(text)))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.previous.Type {
	case token.False:
		c.emitOp(chunk.OpFalse)
	case token.Nil:
		c.emitOp(chunk.OpNil)
	case token.True:
		c.emitOp(chunk.OpTrue)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(token.RightParen, "expect ')' after expression")
}

func (c *Compiler) unary(canAssign bool) {
	opType := c.previous.Type
	c.parsePrecedence(precUnary)
	switch opType {
	case token.Bang:
		c.emitOp(chunk.OpNot)
	case token.Minus:
		c.emitOp(chunk.OpNegate)
	}
}

func (c *Compiler) binary(canAssign bool) {
	opType := c.previous.Type
	rule := getRule(opType)
	c.parsePrecedence(rule.precedence + 1)

	switch opType {
	case token.BangEqual:
		c.emitOp(chunk.OpEqual)
		c.emitOp(chunk.OpNot)
	case token.EqualEqual:
		c.emitOp(chunk.OpEqual)
	case token.Greater:
		c.emitOp(chunk.OpGreater)
	case token.GreaterEqual:
		c.emitOp(chunk.OpLess)
		c.emitOp(chunk.OpNot)
	case token.Less:
		c.emitOp(chunk.OpLess)
	case token.LessEqual:
		c.emitOp(chunk.OpGreater)
		c.emitOp(chunk.OpNot)
	case token.Plus:
		c.emitOp(chunk.OpAdd)
	case token.Minus:
		c.emitOp(chunk.OpSubtract)
	case token.Star:
		c.emitOp(chunk.OpMultiply)
	case token.Slash:
		c.emitOp(chunk.OpDivide)
	}
}

// and_ and or_ are why `and`/`or` each evaluate their left operand exactly
// once: the value is already on the stack from the left-hand parse, and
// these only ever peek it via a conditional jump before popping it off the
// one time it isn't needed as the result.
func (c *Compiler) and_(canAssign bool) {
	endJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or_(canAssign bool) {
	elseJump := c.emitJump(chunk.OpJumpIfFalse)
	endJump := c.emitJump(chunk.OpJump)

	c.patchJump(elseJump)
	c.emitOp(chunk.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) call(canAssign bool) {
	argCount := c.argumentList()
	c.emitOpByte(chunk.OpCall, argCount)
}

func (c *Compiler) argumentList() byte {
	var count int
	if !c.check(token.RightParen) {
		for {
			c.expression()
			if count == 255 {
				c.error("can't have more than 255 arguments")
			}
			count++
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RightParen, "expect ')' after arguments")
	return byte(count)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(token.Identifier, "expect property name after '.'")
	name := c.identifierConstant(c.previous.Lexeme)

	if canAssign && c.match(token.Equal) {
		c.expression()
		c.emitOpByte(chunk.OpSetProperty, name)
		return
	}
	if c.match(token.LeftParen) {
		argCount := c.argumentList()
		c.emitOpByte(chunk.OpInvoke, name)
		c.emitByte(argCount)
		return
	}
	c.emitOpByte(chunk.OpGetProperty, name)
}

func (c *Compiler) variable(canAssign bool) {
	c.variableNamed(c.previous.Lexeme, canAssign)
}

// variableNamed resolves name as a local, upvalue, or global and emits the
// matching get (or, if canAssign and an '=' follows, set) instruction. It
// is also used directly by classDeclaration to reference the class and
// superclass by name without going through a token the parser hasn't
// actually seen as an expression.
func (c *Compiler) variableNamed(name string, canAssign bool) {
	var getOp, setOp chunk.Opcode
	arg := c.resolveLocal(name)
	if arg != -1 {
		getOp, setOp = chunk.OpGetLocal, chunk.OpSetLocal
	} else if arg = c.resolveUpvalue(name); arg != -1 {
		getOp, setOp = chunk.OpGetUpvalue, chunk.OpSetUpvalue
	} else {
		arg = int(c.identifierConstant(name))
		getOp, setOp = chunk.OpGetGlobal, chunk.OpSetGlobal
	}

	if canAssign && c.match(token.Equal) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}

func (c *Compiler) this_(canAssign bool) {
	if c.class == nil {
		c.error("can't use 'this' outside of a class")
		return
	}
	c.variableNamed("this", false)
}

func (c *Compiler) super_(canAssign bool) {
	if c.class == nil {
		c.error("can't use 'super' outside of a class")
	} else if !c.class.hasSuperclass {
		c.error("can't use 'super' in a class with no superclass")
	}
	c.consume(token.Dot, "expect '.' after 'super'")
	c.consume(token.Identifier, "expect superclass method name")
	name := c.identifierConstant(c.previous.Lexeme)

	c.variableNamed("this", false)
	if c.match(token.LeftParen) {
		argCount := c.argumentList()
		c.variableNamed("super", false)
		c.emitOpByte(chunk.OpSuperInvoke, name)
		c.emitByte(argCount)
		return
	}
	c.variableNamed("super", false)
	c.emitOpByte(chunk.OpGetSuper, name)
}

func valueFromFunction(fn *object.Function) value.Value {
	return value.FromObj(fn)
}
