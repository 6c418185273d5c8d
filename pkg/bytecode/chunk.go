package bytecode

import (
	"encoding/binary"
	"fmt"
)

// BytecodeVersion is the current bytecode format version.
// Increment when making incompatible changes to the format.
const BytecodeVersion uint16 = 1

// ConstKind distinguishes the two kinds of literal a chunk can carry.
type ConstKind uint8

const (
	ConstNum ConstKind = 1
	ConstStr ConstKind = 2
)

// Const is a literal in the constant pool. Strings are materialized on the
// executing context's heap the first time they are pushed.
type Const struct {
	Kind ConstKind `cbor:"1,keyasint"`
	Num  float64   `cbor:"2,keyasint,omitempty"`
	Str  string    `cbor:"3,keyasint,omitempty"`
}

// SourceLocation maps bytecode position to source location for debugging.
type SourceLocation struct {
	Offset uint32 `cbor:"1,keyasint"` // Offset in code section
	File   uint16 `cbor:"2,keyasint"` // Index into Chunk.Files
	Line   uint32 `cbor:"3,keyasint"` // Source line number (1-based)
}

// Chunk is a compiled unit: the artifact a compiler hands to a context.
//
// Code past Committed belongs to a statement that is still being written
// (for example an unterminated block in a REPL) and must not execute.
type Chunk struct {
	Version   uint16           `cbor:"1,keyasint"`
	Code      []byte           `cbor:"2,keyasint"`
	Consts    []Const          `cbor:"3,keyasint"`
	Committed int              `cbor:"4,keyasint"`
	REPL      bool             `cbor:"5,keyasint,omitempty"`
	Closed    bool             `cbor:"6,keyasint,omitempty"`
	Files     []string         `cbor:"7,keyasint,omitempty"`
	SourceMap []SourceLocation `cbor:"8,keyasint,omitempty"`
}

// NewChunk creates a new empty chunk with the current version.
func NewChunk(repl bool) *Chunk {
	return &Chunk{
		Version: BytecodeVersion,
		Code:    make([]byte, 0, 64),
		REPL:    repl,
	}
}

// AddNum adds a numeric constant to the pool and returns its index.
// If the constant already exists, returns the existing index.
func (c *Chunk) AddNum(n float64) uint16 {
	for i, k := range c.Consts {
		if k.Kind == ConstNum && k.Num == n {
			return uint16(i)
		}
	}
	return c.addConst(Const{Kind: ConstNum, Num: n})
}

// AddStr adds a string constant to the pool and returns its index.
// If the constant already exists, returns the existing index.
func (c *Chunk) AddStr(s string) uint16 {
	for i, k := range c.Consts {
		if k.Kind == ConstStr && k.Str == s {
			return uint16(i)
		}
	}
	return c.addConst(Const{Kind: ConstStr, Str: s})
}

func (c *Chunk) addConst(k Const) uint16 {
	if len(c.Consts) >= 0xFFFF {
		panic("bytecode: constant pool overflow")
	}
	idx := uint16(len(c.Consts))
	c.Consts = append(c.Consts, k)
	return idx
}

// Emit appends a single-byte opcode to the code section.
func (c *Chunk) Emit(op Opcode) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	return offset
}

// EmitU8 appends an opcode with a one byte operand.
func (c *Chunk) EmitU8(op Opcode, a uint8) int {
	offset := c.Emit(op)
	c.Code = append(c.Code, a)
	return offset
}

// EmitU16 appends an opcode with a two byte operand.
func (c *Chunk) EmitU16(op Opcode, a uint16) int {
	offset := c.Emit(op)
	c.Code = binary.BigEndian.AppendUint16(c.Code, a)
	return offset
}

// EmitU16U8 appends an opcode with a two byte and a one byte operand.
func (c *Chunk) EmitU16U8(op Opcode, a uint16, b uint8) int {
	offset := c.EmitU16(op, a)
	c.Code = append(c.Code, b)
	return offset
}

// EmitJump emits a jump instruction with a placeholder target.
// Returns the offset of the placeholder for later patching.
func (c *Chunk) EmitJump(op Opcode) int {
	c.Emit(op)
	offset := len(c.Code)
	c.Code = append(c.Code, 0xFF, 0xFF, 0xFF, 0xFF)
	return offset
}

// EmitCall emits a call with a placeholder target.
// Returns the offset of the placeholder for later patching.
func (c *Chunk) EmitCall(argc uint8) int {
	at := c.EmitJump(OpCall)
	c.Code = append(c.Code, argc)
	return at
}

// PatchJump patches a jump instruction's target to the current position.
func (c *Chunk) PatchJump(placeholderOffset int) {
	c.PatchJumpTo(placeholderOffset, len(c.Code))
}

// PatchJumpTo patches a jump to go to a specific offset.
func (c *Chunk) PatchJumpTo(placeholderOffset int, target int) {
	binary.BigEndian.PutUint32(c.Code[placeholderOffset:], uint32(target))
}

// PatchU16 overwrites a two byte operand.
func (c *Chunk) PatchU16(offset int, v uint16) {
	binary.BigEndian.PutUint16(c.Code[offset:], v)
}

// CurrentOffset returns the current offset in the code section.
func (c *Chunk) CurrentOffset() int {
	return len(c.Code)
}

// Commit marks all code written so far as runnable.
func (c *Chunk) Commit() {
	c.Committed = len(c.Code)
}

// Rollback discards code written after the last commit.
func (c *Chunk) Rollback() {
	c.Code = c.Code[:c.Committed]
	for len(c.SourceMap) > 0 && int(c.SourceMap[len(c.SourceMap)-1].Offset) >= c.Committed {
		c.SourceMap = c.SourceMap[:len(c.SourceMap)-1]
	}
}

// AddFile registers a source file name and returns its index.
func (c *Chunk) AddFile(name string) uint16 {
	for i, f := range c.Files {
		if f == name {
			return uint16(i)
		}
	}
	c.Files = append(c.Files, name)
	return uint16(len(c.Files) - 1)
}

// AddSourceLocation adds a debug source location mapping for the current offset.
func (c *Chunk) AddSourceLocation(file uint16, line uint32) {
	off := uint32(len(c.Code))
	if n := len(c.SourceMap); n > 0 && c.SourceMap[n-1].Offset == off {
		c.SourceMap[n-1] = SourceLocation{Offset: off, File: file, Line: line}
		return
	}
	c.SourceMap = append(c.SourceMap, SourceLocation{Offset: off, File: file, Line: line})
}

// Position returns the file and line for a bytecode offset, or "" and 0 when
// no mapping exists.
func (c *Chunk) Position(offset int) (string, uint32) {
	for i := len(c.SourceMap) - 1; i >= 0; i-- {
		loc := c.SourceMap[i]
		if int(loc.Offset) <= offset {
			if int(loc.File) < len(c.Files) {
				return c.Files[loc.File], loc.Line
			}
			return "", loc.Line
		}
	}
	return "", 0
}

// Validate checks that every instruction in the committed region decodes,
// that constant references are in range, and that jump targets land inside
// the code section.
func (c *Chunk) Validate() error {
	if c.Committed > len(c.Code) || c.Committed < 0 {
		return fmt.Errorf("bytecode: committed length %d out of range", c.Committed)
	}
	for ip := 0; ip < c.Committed; {
		op := Opcode(c.Code[ip])
		if !op.Valid() {
			return fmt.Errorf("bytecode: invalid opcode 0x%02X at %d", byte(op), ip)
		}
		n := op.InstructionLen()
		if ip+n > len(c.Code) {
			return fmt.Errorf("bytecode: truncated %s at %d", op, ip)
		}
		switch op {
		case OpConst, OpNative, OpLib:
			idx := int(binary.BigEndian.Uint16(c.Code[ip+1:]))
			if idx >= len(c.Consts) {
				return fmt.Errorf("bytecode: constant %d out of range at %d", idx, ip)
			}
			if op != OpConst && c.Consts[idx].Kind != ConstStr {
				return fmt.Errorf("bytecode: %s name is not a string at %d", op, ip)
			}
		case OpJump, OpJumpFalse, OpJumpTrue, OpCall:
			target := int(binary.BigEndian.Uint32(c.Code[ip+1:]))
			if target > len(c.Code) {
				return fmt.Errorf("bytecode: jump target %d out of range at %d", target, ip)
			}
		}
		ip += n
	}
	return nil
}
