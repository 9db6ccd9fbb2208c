package chunk

import (
	"strings"
	"testing"

	"github.com/chazu/loxlang/internal/value"
)

func TestNewChunk(t *testing.T) {
	c := New()
	if c.Code == nil {
		t.Error("Code is nil")
	}
	if c.Constants == nil {
		t.Error("Constants is nil")
	}
}

func TestChunkAddConstant(t *testing.T) {
	c := New()
	idx0 := c.AddConstant(value.Number(1))
	idx1 := c.AddConstant(value.Number(2))
	if idx0 != 0 || idx1 != 1 {
		t.Fatalf("AddConstant indices = %d, %d, want 0, 1", idx0, idx1)
	}
	if len(c.Constants) != 2 {
		t.Fatalf("len(Constants) = %d, want 2", len(c.Constants))
	}
}

func TestChunkWriteTracksLines(t *testing.T) {
	c := New()
	c.WriteOp(OpNil, 1)
	c.WriteOp(OpTrue, 1)
	c.WriteOp(OpPop, 2)

	want := []int{1, 1, 2}
	for i, line := range want {
		if c.Lines[i] != line {
			t.Errorf("Lines[%d] = %d, want %d", i, c.Lines[i], line)
		}
	}
}

func TestEmitJumpAndPatch(t *testing.T) {
	c := New()
	c.WriteOp(OpNil, 1)
	jmp := c.EmitJump(OpJump, 1)
	c.WriteOp(OpTrue, 1)
	if err := c.PatchJump(jmp); err != nil {
		t.Fatalf("PatchJump: %v", err)
	}

	// The jump offset should point exactly past OP_TRUE.
	got := c.readUint16(jmp)
	if int(got) != 1 {
		t.Errorf("patched jump offset = %d, want 1", got)
	}
}

func TestEmitLoop(t *testing.T) {
	c := New()
	loopStart := c.Len()
	c.WriteOp(OpNil, 1)
	if err := c.EmitLoop(loopStart, 1); err != nil {
		t.Fatalf("EmitLoop: %v", err)
	}
	if Opcode(c.Code[1]) != OpLoop {
		t.Fatalf("expected OP_LOOP at offset 1, got %v", Opcode(c.Code[1]))
	}
}

func TestDisassembleSimpleChunk(t *testing.T) {
	c := New()
	idx := c.AddConstant(value.Number(1))
	c.WriteOp(OpConstant, 1)
	c.Write(byte(idx), 1)
	c.WriteOp(OpReturn, 1)

	out := c.Disassemble("test")
	if !strings.Contains(out, "== test ==") {
		t.Errorf("Disassemble missing header, got:\n%s", out)
	}
	if !strings.Contains(out, "OP_CONSTANT") {
		t.Errorf("Disassemble missing OP_CONSTANT, got:\n%s", out)
	}
	if !strings.Contains(out, "OP_RETURN") {
		t.Errorf("Disassemble missing OP_RETURN, got:\n%s", out)
	}
}

func TestDisassembleCollapsesRepeatedLines(t *testing.T) {
	c := New()
	c.WriteOp(OpNil, 1)
	c.WriteOp(OpNil, 1)
	out := c.Disassemble("")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 instruction lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "   |") {
		t.Errorf("second instruction on same source line should show '|' column, got: %q", lines[1])
	}
}
