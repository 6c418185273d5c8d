// Package asm assembles sink bytecode from a line-oriented text form.
//
// Each line holds at most one instruction; ';' starts a comment.
//
//	def greet 1 name      ; subroutine with one named parameter
//	  push "hello"
//	  load name
//	  say 2
//	end
//	push "world"
//	call greet
//	pop
//
// Structured forms (if/else/end, loop/break/breakf/end, def/end) nest;
// Level reports the current nesting depth. Code is committed to the chunk
// only when every block is closed and every label is resolved, so a Script
// fed one line at a time by a REPL always leaves a runnable prefix.
//
// Named locals are allocated on first use. Outside a def they are
// top-level variables shared by every subroutine.
package asm
