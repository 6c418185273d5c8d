package bytecode

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the chunk.
func (c *Chunk) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable bytecode listing with a name header.
func (c *Chunk) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; sink bytecode v%d", c.Version))
	if c.REPL {
		sb.WriteString(" [REPL]")
	}
	if c.Closed {
		sb.WriteString(" [CLOSED]")
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("; Committed: %d of %d bytes\n\n", c.Committed, len(c.Code)))

	if len(c.Consts) > 0 {
		sb.WriteString("; Constants:\n")
		for i := range c.Consts {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, c.constString(uint16(i))))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("; Code:\n")
	offset := 0
	lastLine := uint32(0)
	for offset < len(c.Code) {
		line, instrLen := c.disassembleInstruction(offset)
		file, srcLine := c.Position(offset)
		if srcLine > 0 && srcLine != lastLine {
			sb.WriteString(fmt.Sprintf("%04X  %-32s ; %s:%d\n", offset, line, file, srcLine))
			lastLine = srcLine
		} else {
			sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
		}
		if instrLen == 0 {
			break
		}
		offset += instrLen
	}

	return sb.String()
}

func (c *Chunk) constString(idx uint16) string {
	if int(idx) >= len(c.Consts) {
		return "<bad const>"
	}
	k := c.Consts[idx]
	if k.Kind == ConstNum {
		return strconv.FormatFloat(k.Num, 'g', -1, 64)
	}
	display := k.Str
	if len(display) > 40 {
		display = display[:37] + "..."
	}
	return strconv.Quote(display)
}

// disassembleInstruction disassembles a single instruction at the given offset.
// Returns the formatted string and the instruction length.
func (c *Chunk) disassembleInstruction(offset int) (string, int) {
	if offset >= len(c.Code) {
		return "<end of code>", 0
	}

	op := Opcode(c.Code[offset])
	info := GetOpcodeInfo(op)
	if offset+op.InstructionLen() > len(c.Code) {
		return fmt.Sprintf("%s <truncated>", info.Name), len(c.Code) - offset
	}

	switch op {
	case OpConst:
		idx := c.readUint16(offset + 1)
		return fmt.Sprintf("CONST %d ; %s", idx, c.constString(idx)), 3

	case OpNative, OpLib:
		idx := c.readUint16(offset + 1)
		argc := c.Code[offset+3]
		return fmt.Sprintf("%s %d (%s) argc=%d", info.Name, idx, c.constString(idx), argc), 4

	case OpJump, OpJumpFalse, OpJumpTrue:
		target := binary.BigEndian.Uint32(c.Code[offset+1:])
		return fmt.Sprintf("%s -> %04X", info.Name, target), 5

	case OpCall:
		target := binary.BigEndian.Uint32(c.Code[offset+1:])
		argc := c.Code[offset+5]
		return fmt.Sprintf("CALL -> %04X argc=%d", target, argc), 6

	default:
		switch info.OperandLen {
		case 0:
			return info.Name, 1
		case 1:
			return fmt.Sprintf("%s %d", info.Name, c.Code[offset+1]), 2
		case 2:
			return fmt.Sprintf("%s %d", info.Name, c.readUint16(offset+1)), 3
		}
		return info.Name, op.InstructionLen()
	}
}

// DisassembleInstruction returns a human-readable representation of a single instruction.
func (c *Chunk) DisassembleInstruction(offset int) string {
	line, _ := c.disassembleInstruction(offset)
	return line
}

// readUint16 reads a big-endian uint16 from the code at the given offset.
func (c *Chunk) readUint16(offset int) uint16 {
	if offset+1 >= len(c.Code) {
		return 0
	}
	return binary.BigEndian.Uint16(c.Code[offset:])
}

// InstructionCount returns the number of instructions in the chunk.
func (c *Chunk) InstructionCount() int {
	count := 0
	offset := 0
	for offset < len(c.Code) {
		op := Opcode(c.Code[offset])
		offset += op.InstructionLen()
		count++
	}
	return count
}
