package vm

import (
	"strings"
	"testing"

	"github.com/chazu/loxlang/internal/chunk"
	"github.com/chazu/loxlang/internal/compiler"
)

func run(t *testing.T, source string) (string, error) {
	t.Helper()
	m := New(DefaultConfig())
	var out strings.Builder
	m.Stdout = &out
	err := m.Interpret(source)
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

func TestGlobalAndLocalVariables(t *testing.T) {
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

func TestIfElse(t *testing.T) {
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

func TestWhileLoop(t *testing.T) {
	out, err := run(t, `
		var i = 0;
		while (i < 3) {
			print i;
			i = i + 1;
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "0\n1\n2\n" {
		t.Errorf("got %q, want %q", out, "0\n1\n2\n")
	}
}

func TestAndOrShortCircuit(t *testing.T) {
	out, err := run(t, `
		fun sideEffect(v) {
			print v;
			return v;
		}
		if (false and sideEffect("should not print")) {}
		if (true or sideEffect("should not print either")) {}
		print "done";
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "done\n" {
		t.Errorf("got %q, want %q", out, "done\n")
	}
}

func TestClosureCapturesUpvalue(t *testing.T) {
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

func TestFieldShadowsMethodOnInvoke(t *testing.T) {
	out, err := run(t, `
		class Box {
			value() {
				return "method";
			}
		}
		fun asField() {
			return "field";
		}
		var b = Box();
		b.value = asField;
		print b.value();
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "field\n" {
		t.Errorf("got %q, want %q", out, "field\n")
	}
}

func TestNativeClockAndAssertEq(t *testing.T) {
	_, err := run(t, `
		assertEq(1 + 1, 2);
		assertEq(clock() >= 0, true);
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNativeAssertEqFailureSurfacesAsRuntimeError(t *testing.T) {
	_, err := run(t, `assertEq(1, 2);`)
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	if _, ok := err.(*RuntimeError); !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
}

func TestRuntimeErrorUndefinedVariable(t *testing.T) {
	_, err := run(t, `print nope;`)
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if !strings.Contains(rerr.Message, "undefined variable") {
		t.Errorf("message %q does not mention undefined variable", rerr.Message)
	}
	if len(rerr.Trace) == 0 {
		t.Error("expected a non-empty traceback")
	}
}

func TestRuntimeErrorTracebackIncludesCallStack(t *testing.T) {
	_, err := run(t, `
		fun inner() {
			return 1 + "nope";
		}
		fun outer() {
			return inner();
		}
		outer();
	`)
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if len(rerr.Trace) < 3 {
		t.Errorf("expected at least 3 frames in traceback, got %d: %v", len(rerr.Trace), rerr.Trace)
	}
}

func TestVMRecoversAfterRuntimeError(t *testing.T) {
	m := New(DefaultConfig())
	var out strings.Builder
	m.Stdout = &out

	if err := m.Interpret(`print nope;`); err == nil {
		t.Fatal("expected first interpret to fail")
	}
	if m.frameCount != 0 || m.stackTop != 0 {
		t.Fatalf("VM state not reset after error: frameCount=%d stackTop=%d", m.frameCount, m.stackTop)
	}
	if err := m.Interpret(`print "recovered";`); err != nil {
		t.Fatalf("expected recovery to succeed, got %v", err)
	}
	if out.String() != "recovered\n" {
		t.Errorf("got %q, want %q", out.String(), "recovered\n")
	}
}

func TestRecursiveFibonacci(t *testing.T) {
	out, err := run(t, `
		fun fib(n) {
			if (n < 2) return n;
			return fib(n - 1) + fib(n - 2);
		}
		print fib(10);
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "55\n" {
		t.Errorf("got %q, want %q", out, "55\n")
	}
}

func TestStressGCDoesNotCorruptChainedStringConcat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StressGC = true
	m := New(cfg)
	var out strings.Builder
	m.Stdout = &out

	err := m.Interpret(`
		fun build(n) {
			var s = "";
			var i = 0;
			while (i < n) {
				s = s + "a" + "b" + "c";
				i = i + 1;
			}
			return s;
		}
		print build(20);
		print build(20) == build(20);
	`)
	if err != nil {
		t.Fatalf("unexpected error under stress GC: %v", err)
	}
	want := strings.Repeat("abc", 20) + "\ntrue\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func TestStressGCDoesNotCorruptState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StressGC = true
	m := New(cfg)
	var out strings.Builder
	m.Stdout = &out

	err := m.Interpret(`
		class Node {
			init(value, next) {
				this.value = value;
				this.next = next;
			}
		}
		fun buildList(n) {
			var head = nil;
			var i = 0;
			while (i < n) {
				head = Node(i, head);
				i = i + 1;
			}
			return head;
		}
		fun sum(node) {
			if (node == nil) return 0;
			return node.value + sum(node.next);
		}
		var list = buildList(50);
		print sum(list);
	`)
	if err != nil {
		t.Fatalf("unexpected error under stress GC: %v", err)
	}
	if out.String() != "1225\n" {
		t.Errorf("got %q, want %q", out.String(), "1225\n")
	}
}

func TestChunkSerializeRoundTrip(t *testing.T) {
	m := New(DefaultConfig())
	fn, errs := compiler.Compile(`
		class Counter {
			init(start) {
				this.n = start;
			}
			next() {
				this.n = this.n + 1;
				return this.n;
			}
		}
		fun makeCounter(start) {
			var c = Counter(start);
			return c;
		}
	`, m)
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	want := fn.Chunk.Disassemble("script")

	data, err := chunk.Marshal(fn.Chunk, m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	m2 := New(DefaultConfig())
	decoded, err := chunk.Unmarshal(data, m2)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got := decoded.Disassemble("script")

	if got != want {
		t.Errorf("round-tripped chunk disassembly differs:\n--- want ---\n%s\n--- got ---\n%s", want, got)
	}

	data2, err := chunk.Marshal(decoded, m2)
	if err != nil {
		t.Fatalf("re-Marshal: %v", err)
	}
	if string(data2) != string(data) {
		t.Error("re-marshaling a round-tripped chunk should reproduce identical CBOR bytes (canonical encoding)")
	}
}

func TestStringInterningReusesIdenticalLiterals(t *testing.T) {
	m := New(DefaultConfig())
	a := m.Intern("hello")
	b := m.Intern("hello")
	if a != b {
		t.Error("expected interning to return the same *value.String for identical content")
	}
}
