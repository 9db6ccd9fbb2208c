// Package treewalk is LoxLang's tree-walking evaluator: a direct visitor
// over the parser's AST, using Go's own interface{} as its value
// representation and Go's own call stack as its control-flow mechanism
// (recursion for nested blocks, a sentinel error type for `return`).
//
// It exists alongside the bytecode VM as the second of the two
// implementations: same language, same resolver-computed scope distances,
// but no compilation step and no garbage collector of its own — Go's GC
// already reclaims every Environment and Instance this package allocates.
package treewalk

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chazu/loxlang/internal/ast"
	"github.com/chazu/loxlang/internal/resolver"
	"github.com/chazu/loxlang/internal/token"
	"github.com/chazu/loxlang/internal/treeparser"
)

// RuntimeError is a single tree-walker runtime fault, carrying the source
// line it was raised at so a CLI can format it the same way the bytecode
// VM formats its own runtime errors.
type RuntimeError struct {
	Line    int
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d] in script", e.Message, e.Line)
}

// Interpreter evaluates a resolved AST. Create one per program run; its
// globals persist across successive Interpret calls, which is what lets a
// REPL build up state line by line.
type Interpreter struct {
	globals *Environment
	env     *Environment

	Stdout io.Writer
	Stderr io.Writer
}

// New creates an Interpreter with clock() installed as a global native,
// mirroring the bytecode VM's own native table.
func New() *Interpreter {
	globals := NewEnvironment()
	globals.Define("clock", &Native{ArityVal: 0, Fn: func(args []interface{}) (interface{}, error) {
		return float64(time.Now().UnixNano()) / 1e9, nil
	}})
	return &Interpreter{globals: globals, env: globals, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Interpret parses, resolves, and evaluates source as a sequence of
// top-level statements. Parse and resolve errors are returned without
// evaluating anything; a *RuntimeError is returned only after whatever
// output preceded the fault has already reached Stdout.
func (in *Interpreter) Interpret(source string) error {
	program, parseErrs := treeparser.Parse(source)
	if len(parseErrs) > 0 {
		msgs := make([]string, len(parseErrs))
		for i, e := range parseErrs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("compile error:\n%s", joinLines(msgs))
	}

	if resolveErrs := resolver.Resolve(program); len(resolveErrs) > 0 {
		msgs := make([]string, len(resolveErrs))
		for i, e := range resolveErrs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("compile error:\n%s", joinLines(msgs))
	}

	for _, stmt := range program {
		if err := in.execute(stmt); err != nil {
			return err
		}
	}
	return nil
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

func (in *Interpreter) execute(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.ExprStmt:
		_, err := in.eval(st.Expr)
		return err
	case *ast.PrintStmt:
		v, err := in.eval(st.Expr)
		if err != nil {
			return err
		}
		fmt.Fprintln(in.Stdout, stringify(v))
		return nil
	case *ast.VarStmt:
		var v interface{}
		if st.Initializer != nil {
			var err error
			v, err = in.eval(st.Initializer)
			if err != nil {
				return err
			}
		}
		in.env.Define(st.Name.Lexeme, v)
		return nil
	case *ast.BlockStmt:
		return in.executeBlock(st.Statements, NewChildEnvironment(in.env))
	case *ast.IfStmt:
		cond, err := in.eval(st.Condition)
		if err != nil {
			return err
		}
		if isTruthy(cond) {
			return in.execute(st.Then)
		}
		if st.Else != nil {
			return in.execute(st.Else)
		}
		return nil
	case *ast.WhileStmt:
		for {
			cond, err := in.eval(st.Condition)
			if err != nil {
				return err
			}
			if !isTruthy(cond) {
				return nil
			}
			if err := in.execute(st.Body); err != nil {
				return err
			}
		}
	case *ast.ReturnStmt:
		var v interface{}
		if st.Value != nil {
			var err error
			v, err = in.eval(st.Value)
			if err != nil {
				return err
			}
		}
		return &returnSignal{value: v}
	case *ast.FunctionStmt:
		fn := &Function{decl: st, closure: in.env}
		in.env.Define(st.Name.Lexeme, fn)
		return nil
	case *ast.ClassStmt:
		return in.executeClass(st)
	default:
		return nil
	}
}

func (in *Interpreter) executeClass(st *ast.ClassStmt) error {
	var superclass *Class
	if st.Superclass != nil {
		v, err := in.eval(st.Superclass)
		if err != nil {
			return err
		}
		sc, ok := v.(*Class)
		if !ok {
			return in.runtimeErr(st.LineVal, "superclass must be a class")
		}
		superclass = sc
	}

	in.env.Define(st.Name.Lexeme, nil)

	classEnv := in.env
	if superclass != nil {
		classEnv = NewChildEnvironment(in.env)
		classEnv.Define("super", superclass)
	}

	methods := make(map[string]*Function)
	for _, m := range st.Methods {
		methods[m.Name.Lexeme] = &Function{
			decl:          m,
			closure:       classEnv,
			isInitializer: m.Name.Lexeme == "init",
		}
	}

	class := &Class{Name: st.Name.Lexeme, Superclass: superclass, Methods: methods}
	in.env.Assign(st.Name.Lexeme, class)
	return nil
}

// executeBlock runs stmts in env, restoring the interpreter's previous
// environment on the way out even if a statement returns early or errors.
func (in *Interpreter) executeBlock(stmts []ast.Stmt, env *Environment) error {
	previous := in.env
	in.env = env
	defer func() { in.env = previous }()

	for _, stmt := range stmts {
		if err := in.execute(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) runtimeErr(line int, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Line: line, Message: fmt.Sprintf(format, args...)}
}

func (in *Interpreter) eval(e ast.Expr) (interface{}, error) {
	switch ex := e.(type) {
	case *ast.Literal:
		return ex.Value, nil
	case *ast.Grouping:
		return in.eval(ex.Expression)
	case *ast.Variable:
		return in.lookupVariable(ex.Name, ex.Depth)
	case *ast.Assign:
		v, err := in.eval(ex.Value)
		if err != nil {
			return nil, err
		}
		if ex.Depth >= 0 {
			in.env.AssignAt(ex.Depth, ex.Name.Lexeme, v)
		} else if err := in.globals.Assign(ex.Name.Lexeme, v); err != nil {
			return nil, in.runtimeErr(ex.LineVal, "%s", err.Error())
		}
		return v, nil
	case *ast.Unary:
		return in.evalUnary(ex)
	case *ast.Binary:
		return in.evalBinary(ex)
	case *ast.Logical:
		return in.evalLogical(ex)
	case *ast.Call:
		return in.evalCall(ex)
	case *ast.Get:
		return in.evalGet(ex)
	case *ast.Set:
		return in.evalSet(ex)
	case *ast.This:
		return in.lookupVariable(ex.Keyword, ex.Depth)
	case *ast.Super:
		return in.evalSuper(ex)
	default:
		return nil, in.runtimeErr(e.Line(), "unknown expression")
	}
}

func (in *Interpreter) lookupVariable(name token.Token, depth int) (interface{}, error) {
	if depth >= 0 {
		v, err := in.env.GetAt(depth, name.Lexeme)
		if err != nil {
			return nil, in.runtimeErr(name.Line, "%s", err.Error())
		}
		return v, nil
	}
	v, err := in.globals.Get(name.Lexeme)
	if err != nil {
		return nil, in.runtimeErr(name.Line, "%s", err.Error())
	}
	return v, nil
}

func (in *Interpreter) evalUnary(ex *ast.Unary) (interface{}, error) {
	right, err := in.eval(ex.Right)
	if err != nil {
		return nil, err
	}
	switch ex.Operator.Type {
	case token.Minus:
		n, ok := right.(float64)
		if !ok {
			return nil, in.runtimeErr(ex.LineVal, "operand must be a number")
		}
		return -n, nil
	case token.Bang:
		return !isTruthy(right), nil
	default:
		return nil, in.runtimeErr(ex.LineVal, "unknown unary operator")
	}
}

func (in *Interpreter) evalBinary(ex *ast.Binary) (interface{}, error) {
	left, err := in.eval(ex.Left)
	if err != nil {
		return nil, err
	}
	right, err := in.eval(ex.Right)
	if err != nil {
		return nil, err
	}

	switch ex.Operator.Type {
	case token.EqualEqual:
		return isEqual(left, right), nil
	case token.BangEqual:
		return !isEqual(left, right), nil
	case token.Plus:
		if ln, lok := left.(float64); lok {
			if rn, rok := right.(float64); rok {
				return ln + rn, nil
			}
		}
		if ls, lok := left.(string); lok {
			if rs, rok := right.(string); rok {
				return ls + rs, nil
			}
		}
		return nil, in.runtimeErr(ex.LineVal, "Operands must be two numbers or two strings")
	}

	ln, lok := left.(float64)
	rn, rok := right.(float64)
	if !lok || !rok {
		return nil, in.runtimeErr(ex.LineVal, "Operands must be numbers")
	}
	switch ex.Operator.Type {
	case token.Minus:
		return ln - rn, nil
	case token.Star:
		return ln * rn, nil
	case token.Slash:
		return ln / rn, nil
	case token.Greater:
		return ln > rn, nil
	case token.GreaterEqual:
		return ln >= rn, nil
	case token.Less:
		return ln < rn, nil
	case token.LessEqual:
		return ln <= rn, nil
	default:
		return nil, in.runtimeErr(ex.LineVal, "unknown binary operator")
	}
}

// evalLogical evaluates the left operand exactly once and short-circuits
// without re-evaluating it, unlike a reference `visitLogicalExpr` that
// re-evaluates the left side when building its result.
func (in *Interpreter) evalLogical(ex *ast.Logical) (interface{}, error) {
	left, err := in.eval(ex.Left)
	if err != nil {
		return nil, err
	}
	if ex.Operator.Type == token.Or {
		if isTruthy(left) {
			return left, nil
		}
	} else if !isTruthy(left) {
		return left, nil
	}
	return in.eval(ex.Right)
}

func (in *Interpreter) evalCall(ex *ast.Call) (interface{}, error) {
	callee, err := in.eval(ex.Callee)
	if err != nil {
		return nil, err
	}
	args := make([]interface{}, len(ex.Arguments))
	for i, a := range ex.Arguments {
		v, err := in.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	fn, ok := callee.(Callable)
	if !ok {
		return nil, in.runtimeErr(ex.LineVal, "can only call functions and classes")
	}
	if len(args) != fn.Arity() {
		return nil, in.runtimeErr(ex.LineVal, "expected %d arguments but got %d", fn.Arity(), len(args))
	}
	return fn.Call(in, args)
}

func (in *Interpreter) evalGet(ex *ast.Get) (interface{}, error) {
	obj, err := in.eval(ex.Object)
	if err != nil {
		return nil, err
	}
	instance, ok := obj.(*Instance)
	if !ok {
		return nil, in.runtimeErr(ex.LineVal, "Only instances have properties")
	}
	v, err := instance.get(ex.Name.Lexeme)
	if err != nil {
		return nil, in.runtimeErr(ex.LineVal, "%s", err.Error())
	}
	return v, nil
}

func (in *Interpreter) evalSet(ex *ast.Set) (interface{}, error) {
	obj, err := in.eval(ex.Object)
	if err != nil {
		return nil, err
	}
	instance, ok := obj.(*Instance)
	if !ok {
		return nil, in.runtimeErr(ex.LineVal, "only instances have fields")
	}
	v, err := in.eval(ex.Value)
	if err != nil {
		return nil, err
	}
	instance.set(ex.Name.Lexeme, v)
	return v, nil
}

func (in *Interpreter) evalSuper(ex *ast.Super) (interface{}, error) {
	superVal, err := in.env.GetAt(ex.Depth, "super")
	if err != nil {
		return nil, in.runtimeErr(ex.LineVal, "%s", err.Error())
	}
	superclass := superVal.(*Class)

	thisVal, err := in.env.GetAt(ex.Depth-1, "this")
	if err != nil {
		return nil, in.runtimeErr(ex.LineVal, "%s", err.Error())
	}
	instance := thisVal.(*Instance)

	method, ok := superclass.findMethod(ex.Method.Lexeme)
	if !ok {
		return nil, in.runtimeErr(ex.LineVal, "undefined property '%s'", ex.Method.Lexeme)
	}
	return method.bind(instance), nil
}
