package treewalk

import (
	"fmt"

	"github.com/chazu/loxlang/internal/ast"
)

// stringify renders a tree-walker value the way `print` does, matching the
// bytecode VM's Value.String() number formatting so both front ends agree
// on output for identical programs.
func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return formatNumber(val)
	case string:
		return val
	case *Function:
		return val.String()
	case *Class:
		return val.Name
	case *Instance:
		return val.Class.Name + " instance"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}

// isTruthy implements LoxLang's truthiness rule: nil and false are falsey,
// everything else is truthy.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

// isEqual implements `==`. Numbers and bools compare by value; strings
// compare by content (Go strings are themselves value types, so there is no
// interning to do on this side); everything else compares by identity,
// which for *Instance and *Function pointers is exactly what's wanted.
func isEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a == b
}

// Callable is anything that can sit on the left of a Call expression:
// user-defined functions/methods and natives.
type Callable interface {
	Arity() int
	Call(in *Interpreter, args []interface{}) (interface{}, error)
}

// Function is a user-defined function or method, closing over the
// environment active where it was declared.
type Function struct {
	decl          *ast.FunctionStmt
	closure       *Environment
	isInitializer bool
}

func (f *Function) Arity() int { return len(f.decl.Params) }

func (f *Function) String() string { return fmt.Sprintf("<fn %s>", f.decl.Name.Lexeme) }

// Call runs the function body in a fresh environment parented to its
// closure, with parameters bound to args. A *returnSignal unwinds the call
// the way a `return` statement does; every other error propagates as a
// genuine runtime fault.
func (f *Function) Call(in *Interpreter, args []interface{}) (interface{}, error) {
	env := NewChildEnvironment(f.closure)
	for i, param := range f.decl.Params {
		env.Define(param.Lexeme, args[i])
	}
	err := in.executeBlock(f.decl.Body, env)
	if ret, ok := err.(*returnSignal); ok {
		if f.isInitializer {
			this, _ := f.closure.GetAt(0, "this")
			return this, nil
		}
		return ret.value, nil
	}
	if err != nil {
		return nil, err
	}
	if f.isInitializer {
		this, _ := f.closure.GetAt(0, "this")
		return this, nil
	}
	return nil, nil
}

// bind produces a copy of the method bound to a particular receiver, the
// tree-walker's equivalent of the VM's BoundMethod.
func (f *Function) bind(instance *Instance) *Function {
	env := NewChildEnvironment(f.closure)
	env.Define("this", instance)
	return &Function{decl: f.decl, closure: env, isInitializer: f.isInitializer}
}

// returnSignal carries a return statement's value up the call stack via
// Go's own error-propagation path, the tree-walker's substitute for the
// reference implementation's thrown/caught control-flow exception.
type returnSignal struct {
	value interface{}
}

func (r *returnSignal) Error() string { return "return" }

// Class is a runtime class value: a name and a method table, with single
// inheritance implemented by chaining a Superclass pointer that findMethod
// walks on a miss — unlike the bytecode VM's OP_INHERIT, which copies the
// superclass's methods down into the subclass's own table at class-creation
// time instead of keeping a pointer to walk. Lookup order is the same
// either way: the subclass's own table first, then its ancestors.
type Class struct {
	Name       string
	Superclass *Class
	Methods    map[string]*Function
}

func (c *Class) Arity() int {
	if init, ok := c.findMethod("init"); ok {
		return init.Arity()
	}
	return 0
}

func (c *Class) Call(in *Interpreter, args []interface{}) (interface{}, error) {
	instance := &Instance{Class: c, Fields: make(map[string]interface{})}
	if init, ok := c.findMethod("init"); ok {
		if _, err := init.bind(instance).Call(in, args); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

func (c *Class) findMethod(name string) (*Function, bool) {
	if m, ok := c.Methods[name]; ok {
		return m, true
	}
	if c.Superclass != nil {
		return c.Superclass.findMethod(name)
	}
	return nil, false
}

// Instance is a runtime object: a class handle and a field table. Every
// property access checks the fields first, then the class's methods.
type Instance struct {
	Class  *Class
	Fields map[string]interface{}
}

func (i *Instance) get(name string) (interface{}, error) {
	if v, ok := i.Fields[name]; ok {
		return v, nil
	}
	if m, ok := i.Class.findMethod(name); ok {
		return m.bind(i), nil
	}
	return nil, fmt.Errorf("undefined property '%s'", name)
}

func (i *Instance) set(name string, value interface{}) {
	i.Fields[name] = value
}

// Native wraps a host Go function (e.g. clock) as a Callable.
type Native struct {
	ArityVal int
	Fn       func(args []interface{}) (interface{}, error)
}

func (n *Native) Arity() int { return n.ArityVal }
func (n *Native) Call(in *Interpreter, args []interface{}) (interface{}, error) {
	return n.Fn(args)
}
