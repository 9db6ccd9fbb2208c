package chunk

import "fmt"

// Opcode is a single bytecode instruction. Opcodes are grouped into ranges
// by category, the same organizing convention the reference bytecode pack
// uses for its own instruction set.
type Opcode byte

const (
	// Constants and literals (0x00-0x0F)
	OpConstant Opcode = 0x00 // push constant from pool: OpConstant <index:u8>
	OpNil      Opcode = 0x01
	OpTrue     Opcode = 0x02
	OpFalse    Opcode = 0x03

	// Stack manipulation (0x10-0x1F)
	OpPop Opcode = 0x10

	// Variables (0x20-0x2F)
	OpGetLocal    Opcode = 0x20 // <slot:u8>
	OpSetLocal    Opcode = 0x21 // <slot:u8>
	OpGetGlobal   Opcode = 0x22 // <name_const:u8>
	OpDefineGlobal Opcode = 0x23 // <name_const:u8>
	OpSetGlobal   Opcode = 0x24 // <name_const:u8>
	OpGetUpvalue  Opcode = 0x25 // <slot:u8>
	OpSetUpvalue  Opcode = 0x26 // <slot:u8>
	OpGetProperty Opcode = 0x27 // <name_const:u8>
	OpSetProperty Opcode = 0x28 // <name_const:u8>
	OpGetSuper    Opcode = 0x29 // <name_const:u8>

	// Arithmetic and comparison (0x30-0x3F)
	OpEqual        Opcode = 0x30
	OpGreater      Opcode = 0x31
	OpLess         Opcode = 0x32
	OpAdd          Opcode = 0x33
	OpSubtract     Opcode = 0x34
	OpMultiply     Opcode = 0x35
	OpDivide       Opcode = 0x36
	OpNot          Opcode = 0x37
	OpNegate       Opcode = 0x38

	// Side effects (0x40-0x4F)
	OpPrint Opcode = 0x40

	// Control flow (0x50-0x5F)
	OpJump         Opcode = 0x50 // <offset:u16>
	OpJumpIfFalse  Opcode = 0x51 // <offset:u16>
	OpLoop         Opcode = 0x52 // <offset:u16> (backward)

	// Calls and closures (0x60-0x6F)
	OpCall        Opcode = 0x60 // <argCount:u8>
	OpInvoke      Opcode = 0x61 // <name_const:u8> <argCount:u8>
	OpSuperInvoke Opcode = 0x62 // <name_const:u8> <argCount:u8>
	OpClosure     Opcode = 0x63 // <function_const:u8> <upvalue descriptors...>
	OpCloseUpvalue Opcode = 0x64
	OpReturn      Opcode = 0x65

	// Classes (0x70-0x7F)
	OpClass   Opcode = 0x70 // <name_const:u8>
	OpInherit Opcode = 0x71
	OpMethod  Opcode = 0x72 // <name_const:u8>
)

// OpcodeInfo describes an instruction's static shape for the disassembler
// and for sanity-checking emitted code.
type OpcodeInfo struct {
	Name       string
	OperandLen int // bytes following the opcode, not counting closure's variable tail
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpConstant: {"OP_CONSTANT", 1},
	OpNil:      {"OP_NIL", 0},
	OpTrue:     {"OP_TRUE", 0},
	OpFalse:    {"OP_FALSE", 0},

	OpPop: {"OP_POP", 0},

	OpGetLocal:     {"OP_GET_LOCAL", 1},
	OpSetLocal:     {"OP_SET_LOCAL", 1},
	OpGetGlobal:    {"OP_GET_GLOBAL", 1},
	OpDefineGlobal: {"OP_DEFINE_GLOBAL", 1},
	OpSetGlobal:    {"OP_SET_GLOBAL", 1},
	OpGetUpvalue:   {"OP_GET_UPVALUE", 1},
	OpSetUpvalue:   {"OP_SET_UPVALUE", 1},
	OpGetProperty:  {"OP_GET_PROPERTY", 1},
	OpSetProperty:  {"OP_SET_PROPERTY", 1},
	OpGetSuper:     {"OP_GET_SUPER", 1},

	OpEqual:    {"OP_EQUAL", 0},
	OpGreater:  {"OP_GREATER", 0},
	OpLess:     {"OP_LESS", 0},
	OpAdd:      {"OP_ADD", 0},
	OpSubtract: {"OP_SUBTRACT", 0},
	OpMultiply: {"OP_MULTIPLY", 0},
	OpDivide:   {"OP_DIVIDE", 0},
	OpNot:      {"OP_NOT", 0},
	OpNegate:   {"OP_NEGATE", 0},

	OpPrint: {"OP_PRINT", 0},

	OpJump:        {"OP_JUMP", 2},
	OpJumpIfFalse: {"OP_JUMP_IF_FALSE", 2},
	OpLoop:        {"OP_LOOP", 2},

	OpCall:         {"OP_CALL", 1},
	OpInvoke:       {"OP_INVOKE", 2},
	OpSuperInvoke:  {"OP_SUPER_INVOKE", 2},
	OpClosure:      {"OP_CLOSURE", 1}, // variable tail handled specially by the disassembler
	OpCloseUpvalue: {"OP_CLOSE_UPVALUE", 0},
	OpReturn:       {"OP_RETURN", 0},

	OpClass:   {"OP_CLASS", 1},
	OpInherit: {"OP_INHERIT", 0},
	OpMethod:  {"OP_METHOD", 1},
}

// GetOpcodeInfo returns metadata for op, or a placeholder if op is unknown.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("OP_UNKNOWN(0x%02X)", byte(op)), OperandLen: 0}
}

func (op Opcode) String() string { return GetOpcodeInfo(op).Name }
