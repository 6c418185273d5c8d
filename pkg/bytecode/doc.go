// Package bytecode defines the compiled unit a sink context executes.
//
// A Chunk carries a flat code section, a constant pool of numbers and
// strings, and a commit mark. Only code below the commit mark is runnable;
// anything after it belongs to a statement that is still being written, which
// is how an interactive session can feed a context one line at a time.
//
// # Instruction format
//
// Every instruction is a one byte opcode followed by fixed-width big-endian
// operands:
//
//	CONST  <index:u16>             push constant
//	LOAD   <slot:u16>              push frame local
//	JUMP   <target:u32>            absolute jump
//	CALL   <target:u32> <argc:u8>  call subroutine
//	NATIVE <name:u16> <argc:u8>    call host native by name constant
//	LIB    <name:u16> <argc:u8>    call standard library op by name constant
//
// # Serialization
//
// Dump and Load move chunks in and out of files. The encoding is a "SINKBC"
// magic followed by canonical CBOR of the Chunk struct.
//
//	var buf bytes.Buffer
//	if err := bytecode.Dump(&buf, chunk); err != nil {
//		return err
//	}
//	loaded, err := bytecode.Load(&buf)
package bytecode
