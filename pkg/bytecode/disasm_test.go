package bytecode

import (
	"strings"
	"testing"
)

func TestDisassembleHeader(t *testing.T) {
	c := NewChunk(true)
	out := c.DisassembleWithName("repl")

	for _, want := range []string{"; === repl ===", "sink bytecode v1", "[REPL]", "Committed: 0 of 0"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestDisassembleInstructions(t *testing.T) {
	c := NewChunk(false)
	f := c.AddFile("t.sink")
	c.AddSourceLocation(f, 4)
	c.EmitU16(OpConst, c.AddStr("hi"))
	c.EmitU16U8(OpNative, c.AddStr("host.log"), 1)
	at := c.EmitJump(OpJump)
	c.PatchJump(at)
	c.EmitU8(OpSay, 1)
	c.Emit(OpHalt)
	c.Commit()

	out := c.Disassemble()
	for _, want := range []string{
		"Constants:",
		`CONST 0 ; "hi"`,
		`NATIVE 1 ("host.log") argc=1`,
		"JUMP -> 000C",
		"SAY 1",
		"HALT",
		"; t.sink:4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}

	if n := c.InstructionCount(); n != 5 {
		t.Errorf("InstructionCount() = %d, want 5", n)
	}
}

func TestDisassembleTruncated(t *testing.T) {
	c := NewChunk(false)
	c.Code = append(c.Code, byte(OpJump), 0, 0)
	if got := c.DisassembleInstruction(0); !strings.Contains(got, "truncated") {
		t.Errorf("DisassembleInstruction = %q, want truncated marker", got)
	}
	if got := c.DisassembleInstruction(10); got != "<end of code>" {
		t.Errorf("past end = %q", got)
	}
}
