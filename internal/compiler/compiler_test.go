package compiler

import (
	"strings"
	"testing"

	"github.com/chazu/loxlang/internal/object"
	"github.com/chazu/loxlang/internal/value"
)

// testInterner is a minimal Interner for tests: no dedup, just allocates.
type testInterner struct {
	seen map[string]*value.String
}

func newTestInterner() *testInterner { return &testInterner{seen: map[string]*value.String{}} }

func (t *testInterner) Intern(chars string) *value.String {
	if s, ok := t.seen[chars]; ok {
		return s
	}
	s := &value.String{Chars: chars, Hash: value.HashString(chars)}
	t.seen[chars] = s
	return s
}

func compileOK(t *testing.T, src string) *object.Function {
	t.Helper()
	fn, errs := Compile(src, newTestInterner())
	if len(errs) != 0 {
		t.Fatalf("Compile(%q) returned errors: %v", src, errs)
	}
	return fn
}

func TestCompileArithmeticExpression(t *testing.T) {
	fn := compileOK(t, "print 1 + 2 * 3;")
	dis := fn.Chunk.Disassemble("")
	for _, want := range []string{"OP_CONSTANT", "OP_MULTIPLY", "OP_ADD", "OP_PRINT"} {
		if !strings.Contains(dis, want) {
			t.Errorf("disassembly missing %s:\n%s", want, dis)
		}
	}
}

func TestCompilePrecedence(t *testing.T) {
	// "*" should bind tighter than "+", so MULTIPLY must appear before ADD.
	fn := compileOK(t, "print 1 + 2 * 3;")
	dis := fn.Chunk.Disassemble("")
	mulIdx := strings.Index(dis, "OP_MULTIPLY")
	addIdx := strings.Index(dis, "OP_ADD")
	if mulIdx == -1 || addIdx == -1 || mulIdx > addIdx {
		t.Errorf("expected OP_MULTIPLY before OP_ADD, got:\n%s", dis)
	}
}

func TestCompileVarDeclarationAndGlobal(t *testing.T) {
	fn := compileOK(t, "var a = 1; print a;")
	dis := fn.Chunk.Disassemble("")
	if !strings.Contains(dis, "OP_DEFINE_GLOBAL") || !strings.Contains(dis, "OP_GET_GLOBAL") {
		t.Errorf("expected global define/get, got:\n%s", dis)
	}
}

func TestCompileLocalScope(t *testing.T) {
	fn := compileOK(t, "{ var a = 1; print a; }")
	dis := fn.Chunk.Disassemble("")
	if !strings.Contains(dis, "OP_GET_LOCAL") {
		t.Errorf("expected local get inside block, got:\n%s", dis)
	}
	if strings.Contains(dis, "OP_DEFINE_GLOBAL") {
		t.Errorf("locals must not be defined as globals, got:\n%s", dis)
	}
}

func TestCompileIfElse(t *testing.T) {
	fn := compileOK(t, `if (true) { print 1; } else { print 2; }`)
	dis := fn.Chunk.Disassemble("")
	if !strings.Contains(dis, "OP_JUMP_IF_FALSE") || !strings.Contains(dis, "OP_JUMP") {
		t.Errorf("expected conditional and unconditional jumps, got:\n%s", dis)
	}
}

func TestCompileWhileLoop(t *testing.T) {
	fn := compileOK(t, `while (false) { print 1; }`)
	dis := fn.Chunk.Disassemble("")
	if !strings.Contains(dis, "OP_LOOP") {
		t.Errorf("expected OP_LOOP for backward branch, got:\n%s", dis)
	}
}

func TestCompileFunctionAndClosure(t *testing.T) {
	fn := compileOK(t, `
		fun makeCounter() {
			var i = 0;
			fun count() {
				i = i + 1;
				return i;
			}
			return count;
		}
	`)
	dis := object.Disassemble(fn)
	if !strings.Contains(dis, "OP_CLOSURE") {
		t.Errorf("expected OP_CLOSURE for nested function, got:\n%s", dis)
	}
	if !strings.Contains(dis, "upvalue") && !strings.Contains(dis, "local") {
		t.Errorf("expected an upvalue descriptor line, got:\n%s", dis)
	}
}

func TestCompileClassWithMethodsAndInheritance(t *testing.T) {
	fn := compileOK(t, `
		class Animal {
			speak() { print "..."; }
		}
		class Dog < Animal {
			speak() { super.speak(); print "Woof"; }
			bark() { return super.speak; }
		}
	`)
	dis := object.Disassemble(fn)
	for _, want := range []string{"OP_CLASS", "OP_METHOD", "OP_INHERIT", "OP_GET_SUPER", "OP_SUPER_INVOKE"} {
		if !strings.Contains(dis, want) {
			t.Errorf("disassembly missing %s:\n%s", want, dis)
		}
	}
}

func TestCompileReportsErrorAtTopLevelReturn(t *testing.T) {
	_, errs := Compile("return 1;", newTestInterner())
	if len(errs) == 0 {
		t.Fatal("expected a compile error for top-level return")
	}
}

func TestCompileReportsInvalidAssignmentTarget(t *testing.T) {
	_, errs := Compile("a + b = c;", newTestInterner())
	if len(errs) == 0 {
		t.Fatal("expected a compile error for an invalid assignment target")
	}
	found := false
	for _, e := range errs {
		if strings.Contains(e.Error(), "Invalid assignment target") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an 'Invalid assignment target' error, got: %v", errs)
	}
}

func TestCompileSynchronizesAfterError(t *testing.T) {
	// A missing semicolon on the first statement shouldn't stop the second
	// statement from compiling and reporting cleanly too.
	_, errs := Compile("var a = 1\nvar b = 2;", newTestInterner())
	if len(errs) == 0 {
		t.Fatal("expected at least one compile error")
	}
}
