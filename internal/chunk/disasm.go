package chunk

import (
	"fmt"
	"strings"
)

// Disassemble returns a full human-readable listing of the chunk, annotated
// with name and source line, collapsing runs of instructions on the same
// line into a "|" the way the reference disassembler does so the line
// column doesn't repeat the same number down a whole loop body.
func (c *Chunk) Disassemble(name string) string {
	var sb strings.Builder
	if name != "" {
		sb.WriteString(fmt.Sprintf("== %s ==\n", name))
	}
	offset := 0
	lastLine := -1
	for offset < len(c.Code) {
		line := c.Lines[offset]
		lineCol := "   |"
		if line != lastLine {
			lineCol = fmt.Sprintf("%4d", line)
			lastLine = line
		}
		text, next := c.disassembleInstruction(offset)
		sb.WriteString(fmt.Sprintf("%04X %s %s\n", offset, lineCol, text))
		offset = next
	}
	return sb.String()
}

// disassembleInstruction renders the instruction at offset and returns the
// offset of the next instruction.
func (c *Chunk) disassembleInstruction(offset int) (string, int) {
	op := Opcode(c.Code[offset])

	switch op {
	case OpConstant, OpGetGlobal, OpDefineGlobal, OpSetGlobal, OpGetProperty, OpSetProperty, OpGetSuper, OpClass, OpMethod:
		return c.constantInstruction(op, offset)
	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall:
		return c.byteInstruction(op, offset)
	case OpJump, OpJumpIfFalse:
		return c.jumpInstruction(op, offset, 1)
	case OpLoop:
		return c.jumpInstruction(op, offset, -1)
	case OpInvoke, OpSuperInvoke:
		return c.invokeInstruction(op, offset)
	case OpClosure:
		return c.closureInstruction(offset)
	default:
		return op.String(), offset + 1
	}
}

func (c *Chunk) constantInstruction(op Opcode, offset int) (string, int) {
	idx := c.Code[offset+1]
	return fmt.Sprintf("%-16s %4d '%s'", op, idx, c.Constants[idx]), offset + 2
}

func (c *Chunk) byteInstruction(op Opcode, offset int) (string, int) {
	slot := c.Code[offset+1]
	return fmt.Sprintf("%-16s %4d", op, slot), offset + 2
}

func (c *Chunk) jumpInstruction(op Opcode, offset int, sign int) (string, int) {
	jump := int(c.readUint16(offset + 1))
	target := offset + 3 + sign*jump
	return fmt.Sprintf("%-16s %4d -> %04X", op, offset, target), offset + 3
}

func (c *Chunk) invokeInstruction(op Opcode, offset int) (string, int) {
	idx := c.Code[offset+1]
	argCount := c.Code[offset+2]
	return fmt.Sprintf("%-16s %4d '%s' (%d args)", op, idx, c.Constants[idx], argCount), offset + 3
}

func (c *Chunk) closureInstruction(offset int) (string, int) {
	idx := c.Code[offset+1]
	next := offset + 2
	text := fmt.Sprintf("%-16s %4d '%s'", OpClosure, idx, c.Constants[idx])
	// Each upvalue the compiler recorded for this closure contributes two
	// more bytes (isLocal flag, index) that aren't part of the generic
	// opcode table because the count is per-function, not per-opcode.
	upvalueCount := c.closureUpvalueCount(idx)
	for i := 0; i < upvalueCount; i++ {
		isLocal := c.Code[next]
		index := c.Code[next+1]
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		text += fmt.Sprintf("\n%04X      |                     %s %d", next, kind, index)
		next += 2
	}
	return text, next
}

// closureUpvalueCount is supplied by the compiler via UpvalueCounts so the
// disassembler can walk OP_CLOSURE's variable-length tail without needing
// the Function object itself.
func (c *Chunk) closureUpvalueCount(constIdx byte) int {
	if c.UpvalueCounts == nil {
		return 0
	}
	return c.UpvalueCounts[int(constIdx)]
}
