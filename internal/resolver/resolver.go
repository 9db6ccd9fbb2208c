// Package resolver performs the tree-walking evaluator's static scope-
// distance analysis: a second pass over the AST, between parsing and
// evaluation, that precomputes how many enclosing scopes separate each
// variable reference from its declaration so the evaluator can jump
// straight to the right environment instead of walking names at runtime.
package resolver

import (
	"fmt"

	"github.com/chazu/loxlang/internal/ast"
)

// FunctionType tracks what kind of function body is currently being
// resolved, the way the bytecode compiler's own FunctionType distinguishes
// plain functions from methods and initializers.
type FunctionType int

const (
	FuncNone FunctionType = iota
	FuncFunction
	FuncMethod
	FuncInitializer
)

// ClassType tracks whether `this`/`super` are legal at the current point.
type ClassType int

const (
	ClassNone ClassType = iota
	ClassClass
	ClassSubclass
)

// Error is a single resolution error.
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("[line %d] %s", e.Line, e.Message) }

// scope maps a name to whether its declaration has finished (true) or is
// still mid-initializer (false) — the tree-walker analogue of the bytecode
// compiler's local.depth == -1 sentinel.
type scope map[string]bool

// Resolver walks a parsed program once, annotating ast.Variable/Assign/
// This/Super nodes in place with their scope-distance and reporting any
// static misuse of return/this/super it finds along the way.
type Resolver struct {
	scopes      []scope
	currentFn   FunctionType
	currentCls  ClassType
	errors      []*Error
}

// New creates a Resolver ready to walk a program.
func New() *Resolver {
	return &Resolver{}
}

// Resolve walks every top-level statement and returns any static errors
// found. Annotated depths are written directly onto the AST nodes.
func Resolve(program []ast.Stmt) []*Error {
	r := New()
	r.resolveStmts(program)
	return r.errors
}

func (r *Resolver) errorAt(line int, format string, args ...interface{}) {
	r.errors = append(r.errors, &Error{Line: line, Message: fmt.Sprintf(format, args...)})
}

func (r *Resolver) beginScope() { r.scopes = append(r.scopes, scope{}) }
func (r *Resolver) endScope()   { r.scopes = r.scopes[:len(r.scopes)-1] }

func (r *Resolver) declare(name string, line int) {
	if len(r.scopes) == 0 {
		return
	}
	sc := r.scopes[len(r.scopes)-1]
	if _, ok := sc[name]; ok {
		r.errorAt(line, "already a variable named '%s' in this scope", name)
	}
	sc[name] = false
}

func (r *Resolver) define(name string) {
	if len(r.scopes) == 0 {
		return
	}
	r.scopes[len(r.scopes)-1][name] = true
}

// resolveLocal walks scopes from innermost to outermost looking for name,
// writing the hop count into depth if found. depth stays -1 (its starting
// value from the parser) when nothing is found, which the evaluator treats
// as "look it up as a global".
func (r *Resolver) resolveLocal(name string, setDepth func(int)) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name]; ok {
			setDepth(len(r.scopes) - 1 - i)
			return
		}
	}
}

func (r *Resolver) resolveStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		r.resolveStmt(s)
	}
}

func (r *Resolver) resolveStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.BlockStmt:
		r.beginScope()
		r.resolveStmts(st.Statements)
		r.endScope()
	case *ast.VarStmt:
		r.declare(st.Name.Lexeme, st.LineVal)
		if st.Initializer != nil {
			r.resolveExpr(st.Initializer)
		}
		r.define(st.Name.Lexeme)
	case *ast.FunctionStmt:
		r.declare(st.Name.Lexeme, st.LineVal)
		r.define(st.Name.Lexeme)
		r.resolveFunction(st, FuncFunction)
	case *ast.ClassStmt:
		r.resolveClass(st)
	case *ast.ExprStmt:
		r.resolveExpr(st.Expr)
	case *ast.PrintStmt:
		r.resolveExpr(st.Expr)
	case *ast.IfStmt:
		r.resolveExpr(st.Condition)
		r.resolveStmt(st.Then)
		if st.Else != nil {
			r.resolveStmt(st.Else)
		}
	case *ast.WhileStmt:
		r.resolveExpr(st.Condition)
		r.resolveStmt(st.Body)
	case *ast.ReturnStmt:
		if r.currentFn == FuncNone {
			r.errorAt(st.LineVal, "can't return from top-level code")
		}
		if st.Value != nil {
			if r.currentFn == FuncInitializer {
				r.errorAt(st.LineVal, "can't return a value from an initializer")
			}
			r.resolveExpr(st.Value)
		}
	}
}

func (r *Resolver) resolveClass(st *ast.ClassStmt) {
	enclosingCls := r.currentCls
	r.currentCls = ClassClass
	defer func() { r.currentCls = enclosingCls }()

	r.declare(st.Name.Lexeme, st.LineVal)
	r.define(st.Name.Lexeme)

	if st.Superclass != nil {
		if st.Superclass.Name.Lexeme == st.Name.Lexeme {
			r.errorAt(st.LineVal, "a class can't inherit from itself")
		}
		r.currentCls = ClassSubclass
		r.resolveExpr(st.Superclass)
		r.beginScope()
		r.scopes[len(r.scopes)-1]["super"] = true
	}

	r.beginScope()
	r.scopes[len(r.scopes)-1]["this"] = true

	for _, method := range st.Methods {
		fnType := FuncMethod
		if method.Name.Lexeme == "init" {
			fnType = FuncInitializer
		}
		r.resolveFunction(method, fnType)
	}

	r.endScope()
	if st.Superclass != nil {
		r.endScope()
	}
}

func (r *Resolver) resolveFunction(fn *ast.FunctionStmt, fnType FunctionType) {
	enclosingFn := r.currentFn
	r.currentFn = fnType
	defer func() { r.currentFn = enclosingFn }()

	r.beginScope()
	for _, param := range fn.Params {
		r.declare(param.Lexeme, param.Line)
		r.define(param.Lexeme)
	}
	r.resolveStmts(fn.Body)
	r.endScope()
}

func (r *Resolver) resolveExpr(e ast.Expr) {
	switch ex := e.(type) {
	case *ast.Variable:
		if len(r.scopes) > 0 {
			if defined, ok := r.scopes[len(r.scopes)-1][ex.Name.Lexeme]; ok && !defined {
				r.errorAt(ex.LineVal, "can't read local variable '%s' in its own initializer", ex.Name.Lexeme)
			}
		}
		r.resolveLocal(ex.Name.Lexeme, func(d int) { ex.Depth = d })
	case *ast.Assign:
		r.resolveExpr(ex.Value)
		r.resolveLocal(ex.Name.Lexeme, func(d int) { ex.Depth = d })
	case *ast.Binary:
		r.resolveExpr(ex.Left)
		r.resolveExpr(ex.Right)
	case *ast.Logical:
		r.resolveExpr(ex.Left)
		r.resolveExpr(ex.Right)
	case *ast.Unary:
		r.resolveExpr(ex.Right)
	case *ast.Grouping:
		r.resolveExpr(ex.Expression)
	case *ast.Call:
		r.resolveExpr(ex.Callee)
		for _, a := range ex.Arguments {
			r.resolveExpr(a)
		}
	case *ast.Get:
		r.resolveExpr(ex.Object)
	case *ast.Set:
		r.resolveExpr(ex.Value)
		r.resolveExpr(ex.Object)
	case *ast.This:
		if r.currentCls == ClassNone {
			r.errorAt(ex.LineVal, "can't use 'this' outside of a class")
			return
		}
		r.resolveLocal("this", func(d int) { ex.Depth = d })
	case *ast.Super:
		if r.currentCls == ClassNone {
			r.errorAt(ex.LineVal, "can't use 'super' outside of a class")
		} else if r.currentCls != ClassSubclass {
			r.errorAt(ex.LineVal, "can't use 'super' in a class with no superclass")
		}
		r.resolveLocal("super", func(d int) { ex.Depth = d })
	case *ast.Literal:
		// nothing to resolve
	}
}
