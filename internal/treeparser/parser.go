// Package treeparser builds an ast.Stmt/ast.Expr tree by recursive descent,
// the way a second front end for the same grammar would: it pulls tokens
// from the same scanner the bytecode compiler uses, but instead of emitting
// bytecode directly it builds nodes for a later resolver and tree-walking
// evaluator to visit.
package treeparser

import (
	"fmt"
	"strconv"

	"github.com/chazu/loxlang/internal/ast"
	"github.com/chazu/loxlang/internal/scanner"
	"github.com/chazu/loxlang/internal/token"
)

// ParseError is a single syntax error, with enough context for a CLI or
// REPL to report "[line N] Error at 'X': message".
type ParseError struct {
	Line    int
	Where   string
	Message string
}

func (e *ParseError) Error() string {
	if e.Where == "" {
		return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("[line %d] Error at '%s': %s", e.Line, e.Where, e.Message)
}

// Parser turns a token stream into a list of top-level statements.
type Parser struct {
	scanner  *scanner.Scanner
	current  token.Token
	previous token.Token
	hadError bool
	panicMode bool
	errors   []*ParseError
}

// Parse scans and parses source in full, returning every top-level
// statement along with any syntax errors encountered. Parsing continues
// past an error by synchronizing to the next statement boundary, so a
// single source file can report more than one mistake.
func Parse(source string) ([]ast.Stmt, []*ParseError) {
	p := &Parser{scanner: scanner.New(source)}
	p.advance()

	var stmts []ast.Stmt
	for !p.check(token.EOF) {
		if s := p.declaration(); s != nil {
			stmts = append(stmts, s)
		}
	}
	return stmts, p.errors
}

func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scanner.Scan()
		if p.current.Type != token.Error {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) check(t token.Type) bool { return p.current.Type == t }

func (p *Parser) match(t token.Type) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t token.Type, message string) token.Token {
	if p.check(t) {
		tok := p.current
		p.advance()
		return tok
	}
	p.errorAtCurrent(message)
	return p.current
}

func (p *Parser) errorAtCurrent(message string) { p.errorAt(p.current, message) }
func (p *Parser) error(message string)          { p.errorAt(p.previous, message) }

func (p *Parser) errorAt(tok token.Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	where := tok.Lexeme
	if tok.Type == token.EOF {
		where = ""
	}
	p.errors = append(p.errors, &ParseError{Line: tok.Line, Where: where, Message: message})
}

// synchronize skips tokens until it reaches a likely statement boundary,
// the same recovery point set the bytecode compiler uses.
func (p *Parser) synchronize() {
	p.panicMode = false
	for !p.check(token.EOF) {
		if p.previous.Type == token.Semicolon {
			return
		}
		switch p.current.Type {
		case token.Class, token.Fun, token.Var, token.For, token.If, token.While, token.Print, token.Return:
			return
		}
		p.advance()
	}
}

// ---------------------------------------------------------------------------
// Declarations and statements
// ---------------------------------------------------------------------------

func (p *Parser) declaration() ast.Stmt {
	var s ast.Stmt
	switch {
	case p.match(token.Class):
		s = p.classDeclaration()
	case p.match(token.Fun):
		s = p.function("function")
	case p.match(token.Var):
		s = p.varDeclaration()
	default:
		s = p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
	return s
}

func (p *Parser) classDeclaration() ast.Stmt {
	line := p.previous.Line
	name := p.consume(token.Identifier, "expect class name")

	var superclass *ast.Variable
	if p.match(token.Less) {
		p.consume(token.Identifier, "expect superclass name")
		superclass = &ast.Variable{LineVal: p.previous.Line, Name: p.previous, Depth: -1}
	}

	p.consume(token.LeftBrace, "expect '{' before class body")
	var methods []*ast.FunctionStmt
	for !p.check(token.RightBrace) && !p.check(token.EOF) {
		methods = append(methods, p.function("method"))
	}
	p.consume(token.RightBrace, "expect '}' after class body")

	return &ast.ClassStmt{LineVal: line, Name: name, Superclass: superclass, Methods: methods}
}

func (p *Parser) function(kind string) *ast.FunctionStmt {
	name := p.consume(token.Identifier, "expect "+kind+" name")
	line := p.previous.Line
	p.consume(token.LeftParen, "expect '(' after "+kind+" name")
	var params []token.Token
	if !p.check(token.RightParen) {
		for {
			if len(params) >= 255 {
				p.error("can't have more than 255 parameters")
			}
			params = append(params, p.consume(token.Identifier, "expect parameter name"))
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.consume(token.RightParen, "expect ')' after parameters")
	p.consume(token.LeftBrace, "expect '{' before "+kind+" body")
	body := p.block()
	return &ast.FunctionStmt{LineVal: line, Name: name, Params: params, Body: body}
}

func (p *Parser) varDeclaration() ast.Stmt {
	name := p.consume(token.Identifier, "expect variable name")
	line := p.previous.Line
	var init ast.Expr
	if p.match(token.Equal) {
		init = p.expression()
	}
	p.consume(token.Semicolon, "expect ';' after variable declaration")
	return &ast.VarStmt{LineVal: line, Name: name, Initializer: init}
}

func (p *Parser) statement() ast.Stmt {
	switch {
	case p.match(token.Print):
		return p.printStatement()
	case p.match(token.LeftBrace):
		line := p.previous.Line
		return &ast.BlockStmt{LineVal: line, Statements: p.block()}
	case p.match(token.If):
		return p.ifStatement()
	case p.match(token.While):
		return p.whileStatement()
	case p.match(token.For):
		return p.forStatement()
	case p.match(token.Return):
		return p.returnStatement()
	default:
		return p.expressionStatement()
	}
}

func (p *Parser) block() []ast.Stmt {
	var stmts []ast.Stmt
	for !p.check(token.RightBrace) && !p.check(token.EOF) {
		if s := p.declaration(); s != nil {
			stmts = append(stmts, s)
		}
	}
	p.consume(token.RightBrace, "expect '}' after block")
	return stmts
}

func (p *Parser) printStatement() ast.Stmt {
	line := p.previous.Line
	value := p.expression()
	p.consume(token.Semicolon, "expect ';' after value")
	return &ast.PrintStmt{LineVal: line, Expr: value}
}

func (p *Parser) expressionStatement() ast.Stmt {
	expr := p.expression()
	line := expr.Line()
	p.consume(token.Semicolon, "expect ';' after expression")
	return &ast.ExprStmt{LineVal: line, Expr: expr}
}

func (p *Parser) ifStatement() ast.Stmt {
	line := p.previous.Line
	p.consume(token.LeftParen, "expect '(' after 'if'")
	cond := p.expression()
	p.consume(token.RightParen, "expect ')' after condition")
	thenBranch := p.statement()
	var elseBranch ast.Stmt
	if p.match(token.Else) {
		elseBranch = p.statement()
	}
	return &ast.IfStmt{LineVal: line, Condition: cond, Then: thenBranch, Else: elseBranch}
}

func (p *Parser) whileStatement() ast.Stmt {
	line := p.previous.Line
	p.consume(token.LeftParen, "expect '(' after 'while'")
	cond := p.expression()
	p.consume(token.RightParen, "expect ')' after condition")
	body := p.statement()
	return &ast.WhileStmt{LineVal: line, Condition: cond, Body: body}
}

// forStatement desugars `for (init; cond; incr) body` into the equivalent
// block-plus-while tree; there is no dedicated ast.ForStmt.
func (p *Parser) forStatement() ast.Stmt {
	line := p.previous.Line
	p.consume(token.LeftParen, "expect '(' after 'for'")

	var initializer ast.Stmt
	switch {
	case p.match(token.Semicolon):
		// no initializer
	case p.match(token.Var):
		initializer = p.varDeclaration()
	default:
		initializer = p.expressionStatement()
	}

	var condition ast.Expr
	if !p.check(token.Semicolon) {
		condition = p.expression()
	}
	p.consume(token.Semicolon, "expect ';' after loop condition")

	var increment ast.Expr
	if !p.check(token.RightParen) {
		increment = p.expression()
	}
	p.consume(token.RightParen, "expect ')' after for clauses")

	body := p.statement()

	if increment != nil {
		body = &ast.BlockStmt{LineVal: line, Statements: []ast.Stmt{body, &ast.ExprStmt{LineVal: line, Expr: increment}}}
	}
	if condition == nil {
		condition = &ast.Literal{LineVal: line, Value: true}
	}
	body = &ast.WhileStmt{LineVal: line, Condition: condition, Body: body}
	if initializer != nil {
		body = &ast.BlockStmt{LineVal: line, Statements: []ast.Stmt{initializer, body}}
	}
	return body
}

func (p *Parser) returnStatement() ast.Stmt {
	keyword := p.previous
	var value ast.Expr
	if !p.check(token.Semicolon) {
		value = p.expression()
	}
	p.consume(token.Semicolon, "expect ';' after return value")
	return &ast.ReturnStmt{LineVal: keyword.Line, Keyword: keyword, Value: value}
}

// ---------------------------------------------------------------------------
// Expressions, by descending precedence
// ---------------------------------------------------------------------------

func (p *Parser) expression() ast.Expr { return p.assignment() }

func (p *Parser) assignment() ast.Expr {
	expr := p.or()

	if p.match(token.Equal) {
		value := p.assignment()
		switch target := expr.(type) {
		case *ast.Variable:
			return &ast.Assign{LineVal: target.LineVal, Name: target.Name, Value: value, Depth: -1}
		case *ast.Get:
			return &ast.Set{LineVal: target.LineVal, Object: target.Object, Name: target.Name, Value: value}
		default:
			p.error("invalid assignment target")
		}
	}
	return expr
}

func (p *Parser) or() ast.Expr {
	expr := p.and()
	for p.match(token.Or) {
		op := p.previous
		right := p.and()
		expr = &ast.Logical{LineVal: expr.Line(), Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) and() ast.Expr {
	expr := p.equality()
	for p.match(token.And) {
		op := p.previous
		right := p.equality()
		expr = &ast.Logical{LineVal: expr.Line(), Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) equality() ast.Expr {
	expr := p.comparison()
	for p.match(token.BangEqual) || p.match(token.EqualEqual) {
		op := p.previous
		right := p.comparison()
		expr = &ast.Binary{LineVal: expr.Line(), Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) comparison() ast.Expr {
	expr := p.term()
	for p.match(token.Greater) || p.match(token.GreaterEqual) || p.match(token.Less) || p.match(token.LessEqual) {
		op := p.previous
		right := p.term()
		expr = &ast.Binary{LineVal: expr.Line(), Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) term() ast.Expr {
	expr := p.factor()
	for p.match(token.Minus) || p.match(token.Plus) {
		op := p.previous
		right := p.factor()
		expr = &ast.Binary{LineVal: expr.Line(), Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) factor() ast.Expr {
	expr := p.unary()
	for p.match(token.Slash) || p.match(token.Star) {
		op := p.previous
		right := p.unary()
		expr = &ast.Binary{LineVal: expr.Line(), Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) unary() ast.Expr {
	if p.match(token.Bang) || p.match(token.Minus) {
		op := p.previous
		right := p.unary()
		return &ast.Unary{LineVal: op.Line, Operator: op, Right: right}
	}
	return p.call()
}

func (p *Parser) call() ast.Expr {
	expr := p.primary()
	for {
		switch {
		case p.match(token.LeftParen):
			expr = p.finishCall(expr)
		case p.match(token.Dot):
			name := p.consume(token.Identifier, "expect property name after '.'")
			expr = &ast.Get{LineVal: expr.Line(), Object: expr, Name: name}
		default:
			return expr
		}
	}
}

func (p *Parser) finishCall(callee ast.Expr) ast.Expr {
	var args []ast.Expr
	if !p.check(token.RightParen) {
		for {
			if len(args) >= 255 {
				p.error("can't have more than 255 arguments")
			}
			args = append(args, p.expression())
			if !p.match(token.Comma) {
				break
			}
		}
	}
	paren := p.consume(token.RightParen, "expect ')' after arguments")
	return &ast.Call{LineVal: paren.Line, Callee: callee, Arguments: args}
}

func (p *Parser) primary() ast.Expr {
	switch {
	case p.match(token.False):
		return &ast.Literal{LineVal: p.previous.Line, Value: false}
	case p.match(token.True):
		return &ast.Literal{LineVal: p.previous.Line, Value: true}
	case p.match(token.Nil):
		return &ast.Literal{LineVal: p.previous.Line, Value: nil}
	case p.match(token.Number):
		v, err := strconv.ParseFloat(p.previous.Lexeme, 64)
		if err != nil {
			p.error("invalid number literal")
		}
		return &ast.Literal{LineVal: p.previous.Line, Value: v}
	case p.match(token.String):
		s := p.previous.Lexeme
		return &ast.Literal{LineVal: p.previous.Line, Value: s[1 : len(s)-1]}
	case p.match(token.Super):
		keyword := p.previous
		p.consume(token.Dot, "expect '.' after 'super'")
		method := p.consume(token.Identifier, "expect superclass method name")
		return &ast.Super{LineVal: keyword.Line, Keyword: keyword, Method: method, Depth: -1}
	case p.match(token.This):
		return &ast.This{LineVal: p.previous.Line, Keyword: p.previous, Depth: -1}
	case p.match(token.Identifier):
		return &ast.Variable{LineVal: p.previous.Line, Name: p.previous, Depth: -1}
	case p.match(token.LeftParen):
		line := p.previous.Line
		expr := p.expression()
		p.consume(token.RightParen, "expect ')' after expression")
		return &ast.Grouping{LineVal: line, Expression: expr}
	default:
		p.errorAtCurrent("expect expression")
		return &ast.Literal{LineVal: p.current.Line, Value: nil}
	}
}
