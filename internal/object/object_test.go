package object

import (
	"strings"
	"testing"

	"github.com/chazu/loxlang/internal/chunk"
	"github.com/chazu/loxlang/internal/value"
)

func TestFunctionString(t *testing.T) {
	anon := &Function{}
	if anon.String() != "<script>" {
		t.Errorf("anonymous Function.String() = %q, want <script>", anon.String())
	}
	named := &Function{Name: &value.String{Chars: "add"}}
	if named.String() != "<fn add>" {
		t.Errorf("named Function.String() = %q, want <fn add>", named.String())
	}
}

func TestClassCopyDownInheritance(t *testing.T) {
	base := NewClass(&value.String{Chars: "Animal"})
	speakName := &value.String{Chars: "speak", Hash: value.HashString("speak")}
	speak := &Closure{Function: &Function{Name: speakName}}
	base.Methods.Set(speakName, value.FromObj(speak))

	sub := NewClass(&value.String{Chars: "Dog"})
	sub.Methods.AddAll(base.Methods)

	got, ok := sub.Methods.Get(speakName)
	if !ok {
		t.Fatal("subclass should have copied down the superclass method")
	}
	if got.AsObj().(*Closure) != speak {
		t.Error("copied method should be the same Closure, not a clone")
	}
}

func TestUpvalueClose(t *testing.T) {
	slot := value.Number(42)
	up := &Upvalue{Location: &slot}
	up.Close()

	slot = value.Number(99) // mutating the original stack slot must no longer be visible
	if up.Closed.AsNumber() != 42 {
		t.Errorf("Closed = %v, want 42", up.Closed.AsNumber())
	}
	if up.Location != &up.Closed {
		t.Error("Location should repoint at Closed after Close")
	}
}

func TestInstanceFields(t *testing.T) {
	class := NewClass(&value.String{Chars: "Point"})
	inst := NewInstance(class)
	xName := &value.String{Chars: "x", Hash: value.HashString("x")}
	inst.Fields.Set(xName, value.Number(3))

	got, ok := inst.Fields.Get(xName)
	if !ok || got.AsNumber() != 3 {
		t.Fatalf("Fields.Get(x) = %v, %v, want 3, true", got, ok)
	}
	if !strings.Contains(inst.String(), "Point instance") {
		t.Errorf("Instance.String() = %q", inst.String())
	}
}

func TestDisassembleRecursesIntoNestedFunctions(t *testing.T) {
	inner := &Function{Name: &value.String{Chars: "inner"}, Chunk: chunk.New()}
	inner.Chunk.WriteOp(chunk.OpReturn, 1)

	outer := &Function{Name: &value.String{Chars: "outer"}, Chunk: chunk.New()}
	outer.Chunk.AddConstant(value.FromObj(inner))
	outer.Chunk.WriteOp(chunk.OpReturn, 1)

	out := Disassemble(outer)
	if !strings.Contains(out, "outer") || !strings.Contains(out, "inner") {
		t.Errorf("Disassemble should mention both outer and inner, got:\n%s", out)
	}
}
