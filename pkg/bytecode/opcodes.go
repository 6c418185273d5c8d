package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop  Opcode = 0x00 // No operation
	OpPop  Opcode = 0x01 // Pop top of stack
	OpDup  Opcode = 0x02 // Duplicate top of stack
	OpSwap Opcode = 0x03 // Swap top two stack elements

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpNil   Opcode = 0x10 // Push nil
	OpConst Opcode = 0x11 // Push constant from pool: OpConst <index:u16>

	// ========================================================================
	// Variables (0x20-0x2F)
	// ========================================================================

	OpLoad   Opcode = 0x20 // Push frame local: OpLoad <slot:u16>
	OpStore  Opcode = 0x21 // Pop into frame local: OpStore <slot:u16>
	OpGLoad  Opcode = 0x22 // Push top-level local: OpGLoad <slot:u16>
	OpGStore Opcode = 0x23 // Pop into top-level local: OpGStore <slot:u16>

	// ========================================================================
	// Arithmetic (0x30-0x3F)
	// ========================================================================

	OpAdd Opcode = 0x30 // Pop two, push sum
	OpSub Opcode = 0x31 // Pop two, push difference (a - b where b is TOS)
	OpMul Opcode = 0x32 // Pop two, push product
	OpDiv Opcode = 0x33 // Pop two, push quotient
	OpMod Opcode = 0x34 // Pop two, push remainder
	OpPow Opcode = 0x35 // Pop two, push a ^ b
	OpNeg Opcode = 0x36 // Negate top of stack
	OpCat Opcode = 0x37 // Pop two, push concatenation (~)

	// ========================================================================
	// Comparison (0x40-0x4F)
	// ========================================================================

	OpEq  Opcode = 0x40 // Pop two, push 1 if equal, nil otherwise
	OpNe  Opcode = 0x41 // Pop two, push 1 if not equal
	OpLt  Opcode = 0x42 // Pop two, push 1 if a < b
	OpLe  Opcode = 0x43 // Pop two, push 1 if a <= b
	OpGt  Opcode = 0x44 // Pop two, push 1 if a > b
	OpGe  Opcode = 0x45 // Pop two, push 1 if a >= b
	OpNot Opcode = 0x46 // Push 1 if TOS is nil, nil otherwise

	// ========================================================================
	// Lists (0x50-0x5F)
	// ========================================================================

	OpSize  Opcode = 0x50 // Size of string or list (&)
	OpList  Opcode = 0x51 // Build list from top n values: OpList <n:u16>
	OpAt    Opcode = 0x52 // obj[index]
	OpSetAt Opcode = 0x53 // obj[index] = value (pops list, index, value)

	// ========================================================================
	// Control flow (0x60-0x6F)
	// ========================================================================

	OpJump      Opcode = 0x60 // Unconditional jump: OpJump <target:u32>
	OpJumpFalse Opcode = 0x61 // Pop, jump if nil: OpJumpFalse <target:u32>
	OpJumpTrue  Opcode = 0x62 // Pop, jump if not nil: OpJumpTrue <target:u32>
	OpCall      Opcode = 0x63 // Call subroutine: OpCall <target:u32> <argc:u8>
	OpEnter     Opcode = 0x64 // Subroutine prologue: OpEnter <locals:u16>
	OpReturn    Opcode = 0x65 // Return top of stack to caller

	// ========================================================================
	// Host and library calls (0x70-0x7F)
	// ========================================================================

	OpNative Opcode = 0x70 // Call host native: OpNative <name:u16> <argc:u8>
	OpLib    Opcode = 0x71 // Call library op: OpLib <name:u16> <argc:u8>

	// ========================================================================
	// IO and termination (0x80-0x8F)
	// ========================================================================

	OpSay   Opcode = 0x80 // say argc values: OpSay <argc:u8>
	OpWarn  Opcode = 0x81 // warn argc values: OpWarn <argc:u8>
	OpAsk   Opcode = 0x82 // ask with argc prompt values: OpAsk <argc:u8>
	OpExit  Opcode = 0x83 // say argc values and pass: OpExit <argc:u8>
	OpAbort Opcode = 0x84 // abort with argc values: OpAbort <argc:u8>
	OpHalt  Opcode = 0x8F // Stop with pass
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop:  {"NOP", 0},
	OpPop:  {"POP", 0},
	OpDup:  {"DUP", 0},
	OpSwap: {"SWAP", 0},

	OpNil:   {"NIL", 0},
	OpConst: {"CONST", 2},

	OpLoad:   {"LOAD", 2},
	OpStore:  {"STORE", 2},
	OpGLoad:  {"GLOAD", 2},
	OpGStore: {"GSTORE", 2},

	OpAdd: {"ADD", 0},
	OpSub: {"SUB", 0},
	OpMul: {"MUL", 0},
	OpDiv: {"DIV", 0},
	OpMod: {"MOD", 0},
	OpPow: {"POW", 0},
	OpNeg: {"NEG", 0},
	OpCat: {"CAT", 0},

	OpEq:  {"EQ", 0},
	OpNe:  {"NE", 0},
	OpLt:  {"LT", 0},
	OpLe:  {"LE", 0},
	OpGt:  {"GT", 0},
	OpGe:  {"GE", 0},
	OpNot: {"NOT", 0},

	OpSize:  {"SIZE", 0},
	OpList:  {"LIST", 2},
	OpAt:    {"AT", 0},
	OpSetAt: {"SET_AT", 0},

	OpJump:      {"JUMP", 4},
	OpJumpFalse: {"JUMP_FALSE", 4},
	OpJumpTrue:  {"JUMP_TRUE", 4},
	OpCall:      {"CALL", 5},
	OpEnter:     {"ENTER", 2},
	OpReturn:    {"RETURN", 0},

	OpNative: {"NATIVE", 3},
	OpLib:    {"LIB", 3},

	OpSay:   {"SAY", 1},
	OpWarn:  {"WARN", 1},
	OpAsk:   {"ASK", 1},
	OpExit:  {"EXIT", 1},
	OpAbort: {"ABORT", 1},
	OpHalt:  {"HALT", 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsJump returns true if this opcode transfers control to an absolute target.
func (op Opcode) IsJump() bool {
	return op >= OpJump && op <= OpCall
}

// IsTerminal returns true if this opcode ends the program.
func (op Opcode) IsTerminal() bool {
	return op == OpExit || op == OpAbort || op == OpHalt
}

// AllOpcodes returns a slice of all defined opcodes.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}
