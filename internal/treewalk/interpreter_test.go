package treewalk

import (
	"strings"
	"testing"
)

func run(t *testing.T, source string) (string, error) {
	t.Helper()
	in := New()
	var out strings.Builder
	in.Stdout = &out
	err := in.Interpret(source)
	return out.String(), err
}

func TestArithmeticAndPrint(t *testing.T) {
	out, err := run(t, `print 1 + 2 * 3;`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "7\n" {
		t.Errorf("got %q, want %q", out, "7\n")
	}
}

func TestStringConcatenation(t *testing.T) {
	out, err := run(t, `print "foo" + "bar";`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "foobar\n" {
		t.Errorf("got %q, want %q", out, "foobar\n")
	}
}

func TestScopingShadowing(t *testing.T) {
	out, err := run(t, `
		var a = "global";
		{
			var a = "local";
			print a;
		}
		print a;
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "local\nglobal\n" {
		t.Errorf("got %q, want %q", out, "local\nglobal\n")
	}
}

func TestIfElseAndFor(t *testing.T) {
	out, err := run(t, `
		for (var i = 0; i < 3; i = i + 1) {
			if (i == 1) {
				print "one";
			} else {
				print i;
			}
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "0\none\n2\n" {
		t.Errorf("got %q, want %q", out, "0\none\n2\n")
	}
}

func TestAndOrShortCircuitEvaluatesLeftOnce(t *testing.T) {
	out, err := run(t, `
		fun sideEffect(v) {
			print v;
			return v;
		}
		if (false and sideEffect("should not print")) {}
		if (true or sideEffect("should not print either")) {}
		if (sideEffect(false) or false) {}
		print "done";
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "false\ndone\n" {
		t.Errorf("got %q, want %q", out, "false\ndone\n")
	}
}

func TestClosures(t *testing.T) {
	out, err := run(t, `
		fun makeCounter() {
			var count = 0;
			fun increment() {
				count = count + 1;
				return count;
			}
			return increment;
		}
		var counter = makeCounter();
		print counter();
		print counter();
		print counter();
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "1\n2\n3\n" {
		t.Errorf("got %q, want %q", out, "1\n2\n3\n")
	}
}

func TestClassesAndMethods(t *testing.T) {
	out, err := run(t, `
		class Greeter {
			init(name) {
				this.name = name;
			}
			greet() {
				return "hello " + this.name;
			}
		}
		var g = Greeter("world");
		print g.greet();
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello world\n" {
		t.Errorf("got %q, want %q", out, "hello world\n")
	}
}

func TestInheritanceAndSuper(t *testing.T) {
	out, err := run(t, `
		class Animal {
			speak() {
				return "...";
			}
			describe() {
				return "an animal that says " + this.speak();
			}
		}
		class Dog < Animal {
			speak() {
				return "woof";
			}
			describe() {
				return super.describe() + "!";
			}
		}
		print Dog().describe();
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "an animal that says woof!\n" {
		t.Errorf("got %q, want %q", out, "an animal that says woof!\n")
	}
}

func TestIfRevisitsCorrectBranchEachIteration(t *testing.T) {
	// A regression check for the stale-branch bug: each loop iteration must
	// re-evaluate the condition against that iteration's bindings, not reuse
	// whichever branch a previous iteration took.
	out, err := run(t, `
		var i = 0;
		while (i < 4) {
			if (i == 2) {
				print "two";
			} else {
				print i;
			}
			i = i + 1;
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "0\n1\ntwo\n3\n" {
		t.Errorf("got %q, want %q", out, "0\n1\ntwo\n3\n")
	}
}

func TestUndefinedVariableIsRuntimeError(t *testing.T) {
	_, err := run(t, `print nope;`)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "undefined variable") {
		t.Errorf("error %q does not mention undefined variable", err.Error())
	}
}

func TestReturnOutsideFunctionIsCompileError(t *testing.T) {
	_, err := run(t, `return 1;`)
	if err == nil {
		t.Fatal("expected a compile error")
	}
	if !strings.Contains(err.Error(), "compile error") {
		t.Errorf("expected a compile error, got %v", err)
	}
}

func TestThisOutsideClassIsCompileError(t *testing.T) {
	_, err := run(t, `print this;`)
	if err == nil {
		t.Fatal("expected a compile error")
	}
}

func TestVariableSelfReferenceInInitializerIsCompileError(t *testing.T) {
	_, err := run(t, `
		var a = "outer";
		{
			var a = a;
		}
	`)
	if err == nil {
		t.Fatal("expected a compile error")
	}
}

func TestRepeatedInterpretSharesGlobals(t *testing.T) {
	in := New()
	var out strings.Builder
	in.Stdout = &out

	if err := in.Interpret(`var x = 1;`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := in.Interpret(`print x + 1;`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "2\n" {
		t.Errorf("got %q, want %q", out.String(), "2\n")
	}
}
