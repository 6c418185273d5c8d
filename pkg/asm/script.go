package asm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chazu/sink/pkg/bytecode"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("sink.asm")

// ErrIncomplete is wrapped by Close when blocks are still open.
var ErrIncomplete = errors.New("asm: incomplete input")

// Error is an assembly error at a source position.
type Error struct {
	File string
	Line int
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

type blockKind int

const (
	blockIf blockKind = iota
	blockElse
	blockLoop
	blockDef
)

func (k blockKind) String() string {
	switch k {
	case blockIf:
		return "if"
	case blockElse:
		return "else"
	case blockLoop:
		return "loop"
	}
	return "def"
}

type block struct {
	kind   blockKind
	jumpAt int
	start  int
	breaks []int
	fn     *function
}

type function struct {
	name    string
	argc    int
	addr    int
	enterAt int
	locals  map[string]int
	nlocals int
}

type source struct {
	name    string
	dir     string
	line    int
	partial []byte
	fileIdx uint16
}

// Script assembles source text into a chunk, one line at a time.
type Script struct {
	inc      Includer
	chunk    *bytecode.Chunk
	paths    []string
	embedded map[string]string
	files    []*source
	blocks   []block

	globals map[string]int
	funcs   map[string]*function
	labels  map[string]int
	pending map[string][]int

	newLabels []string
	newFuncs  []string

	closed bool
}

// New creates a script. file names the root source for positions and
// relative includes. A repl script produces a chunk that keeps accepting
// input until Close.
func New(inc Includer, file string, repl bool) *Script {
	s := &Script{
		inc:      inc,
		chunk:    bytecode.NewChunk(repl),
		embedded: make(map[string]string),
		globals:  make(map[string]int),
		funcs:    make(map[string]*function),
		labels:   make(map[string]int),
		pending:  make(map[string][]int),
	}
	s.files = []*source{{name: file, dir: filepath.Dir(file), fileIdx: s.chunk.AddFile(file)}}
	return s
}

// Assemble is a convenience for a complete, include-free program.
func Assemble(file, src string) (*bytecode.Chunk, error) {
	s := New(Includer{}, file, false)
	if err := s.Write([]byte(src)); err != nil {
		return nil, err
	}
	if err := s.Close(); err != nil {
		return nil, err
	}
	return s.Chunk(), nil
}

// AddPath adds a directory searched by include after the including file's
// own directory.
func (s *Script) AddPath(path string) {
	s.paths = append(s.paths, path)
}

// Inc registers an in-memory body served for include name before any
// filesystem lookup.
func (s *Script) Inc(name, body string) {
	s.embedded[name] = body
}

// Chunk returns the chunk being assembled.
func (s *Script) Chunk() *bytecode.Chunk { return s.chunk }

// Dump writes the chunk with bytecode.Dump.
func (s *Script) Dump(w io.Writer) error { return bytecode.Dump(w, s.chunk) }

// Level returns the number of open blocks.
func (s *Script) Level() int { return len(s.blocks) }

// Reset discards everything written since the last commit.
func (s *Script) Reset() {
	s.rollback()
	s.files[0].partial = nil
}

// Write feeds source text. Complete lines are assembled immediately; a
// trailing partial line waits for more input or Close. On error, the
// uncommitted statement is discarded.
func (s *Script) Write(data []byte) error {
	if s.closed {
		return errors.New("asm: write after close")
	}
	src := s.files[len(s.files)-1]
	src.partial = append(src.partial, data...)
	for {
		i := bytes.IndexByte(src.partial, '\n')
		if i < 0 {
			return nil
		}
		text := string(src.partial[:i])
		src.partial = src.partial[i+1:]
		src.line++
		if err := s.line(text); err != nil {
			s.rollback()
			if len(s.files) == 1 {
				src.partial = nil
			}
			return err
		}
	}
}

// Close assembles any final partial line and seals the chunk. Open blocks
// yield an error wrapping ErrIncomplete.
func (s *Script) Close() error {
	if s.closed {
		return errors.New("asm: script already closed")
	}
	root := s.files[0]
	if len(root.partial) > 0 {
		text := string(root.partial)
		root.partial = nil
		root.line++
		if err := s.line(text); err != nil {
			s.rollback()
			return err
		}
	}
	if n := len(s.blocks); n > 0 {
		err := &Error{File: root.name, Line: root.line, Msg: fmt.Sprintf("unterminated %s", s.blocks[n-1].kind), Err: ErrIncomplete}
		s.rollback()
		return err
	}
	for name := range s.pending {
		err := s.errorf("undefined label %s", name)
		s.rollback()
		return err
	}
	s.chunk.Closed = true
	s.closed = true
	log.Debugf("assembled %s: %d bytes, %d constants", root.name, len(s.chunk.Code), len(s.chunk.Consts))
	return nil
}

func (s *Script) errorf(format string, args ...any) *Error {
	src := s.files[len(s.files)-1]
	return &Error{File: src.name, Line: src.line, Msg: fmt.Sprintf(format, args...)}
}

func (s *Script) tryCommit() {
	if len(s.blocks) > 0 || len(s.pending) > 0 {
		return
	}
	s.chunk.Commit()
	s.newLabels = s.newLabels[:0]
	s.newFuncs = s.newFuncs[:0]
}

func (s *Script) rollback() {
	s.chunk.Rollback()
	s.blocks = nil
	clear(s.pending)
	for _, name := range s.newLabels {
		delete(s.labels, name)
	}
	for _, name := range s.newFuncs {
		delete(s.funcs, name)
	}
	s.newLabels = s.newLabels[:0]
	s.newFuncs = s.newFuncs[:0]
}

// ---------------------------------------------------------------------------
// Lines
// ---------------------------------------------------------------------------

func (s *Script) line(text string) error {
	toks, err := tokenize(text)
	if err != nil {
		return s.errorf("%v", err)
	}
	if len(toks) == 0 {
		return nil
	}
	src := s.files[len(s.files)-1]
	s.chunk.AddSourceLocation(src.fileIdx, uint32(src.line))

	if toks[0].kind == tokWord && strings.HasSuffix(toks[0].text, ":") && len(toks[0].text) > 1 {
		if err := s.defineLabel(strings.TrimSuffix(toks[0].text, ":")); err != nil {
			return err
		}
		toks = toks[1:]
	}
	if len(toks) > 0 {
		if err := s.instr(toks); err != nil {
			return err
		}
	}
	s.tryCommit()
	return nil
}

var simpleOps = map[string]bytecode.Opcode{
	"nop":   bytecode.OpNop,
	"pop":   bytecode.OpPop,
	"dup":   bytecode.OpDup,
	"swap":  bytecode.OpSwap,
	"nil":   bytecode.OpNil,
	"add":   bytecode.OpAdd,
	"sub":   bytecode.OpSub,
	"mul":   bytecode.OpMul,
	"div":   bytecode.OpDiv,
	"mod":   bytecode.OpMod,
	"pow":   bytecode.OpPow,
	"neg":   bytecode.OpNeg,
	"cat":   bytecode.OpCat,
	"eq":    bytecode.OpEq,
	"ne":    bytecode.OpNe,
	"lt":    bytecode.OpLt,
	"le":    bytecode.OpLe,
	"gt":    bytecode.OpGt,
	"ge":    bytecode.OpGe,
	"not":   bytecode.OpNot,
	"size":  bytecode.OpSize,
	"at":    bytecode.OpAt,
	"setat": bytecode.OpSetAt,
	"ret":   bytecode.OpReturn,
	"halt":  bytecode.OpHalt,
}

var ioOps = map[string]struct {
	op   bytecode.Opcode
	argc int
}{
	"say":   {bytecode.OpSay, 1},
	"warn":  {bytecode.OpWarn, 1},
	"ask":   {bytecode.OpAsk, 0},
	"exit":  {bytecode.OpExit, 0},
	"abort": {bytecode.OpAbort, 0},
}

func (s *Script) instr(toks []token) error {
	head := toks[0]
	args := toks[1:]
	if head.kind != tokWord {
		return s.errorf("expected instruction, got %s", head)
	}
	name := head.text
	c := s.chunk

	if op, ok := simpleOps[name]; ok {
		if len(args) != 0 {
			return s.errorf("%s takes no operands", name)
		}
		c.Emit(op)
		return nil
	}
	if spec, ok := ioOps[name]; ok {
		argc := spec.argc
		if len(args) > 1 {
			return s.errorf("%s takes at most one operand", name)
		}
		if len(args) == 1 {
			n, err := s.count(args[0], 255)
			if err != nil {
				return err
			}
			argc = n
		}
		c.EmitU8(spec.op, uint8(argc))
		return nil
	}

	switch name {
	case "push":
		if len(args) != 1 {
			return s.errorf("push takes one operand")
		}
		switch a := args[0]; {
		case a.kind == tokNum:
			c.EmitU16(bytecode.OpConst, c.AddNum(a.num))
		case a.kind == tokStr:
			c.EmitU16(bytecode.OpConst, c.AddStr(a.text))
		case a.text == "nil":
			c.Emit(bytecode.OpNil)
		default:
			return s.errorf("cannot push %s", a)
		}

	case "load", "store":
		if len(args) != 1 || args[0].kind != tokWord {
			return s.errorf("%s takes a variable name", name)
		}
		global, slot, err := s.variable(args[0].text)
		if err != nil {
			return err
		}
		op := map[[2]bool]bytecode.Opcode{
			{false, false}: bytecode.OpLoad,
			{false, true}:  bytecode.OpStore,
			{true, false}:  bytecode.OpGLoad,
			{true, true}:   bytecode.OpGStore,
		}[[2]bool{global, name == "store"}]
		c.EmitU16(op, uint16(slot))

	case "list":
		if len(args) != 1 {
			return s.errorf("list takes a count")
		}
		n, err := s.count(args[0], 0xFFFF)
		if err != nil {
			return err
		}
		c.EmitU16(bytecode.OpList, uint16(n))

	case "jump", "jumpf", "jumpt":
		if len(args) != 1 || args[0].kind != tokWord {
			return s.errorf("%s takes a label", name)
		}
		op := map[string]bytecode.Opcode{"jump": bytecode.OpJump, "jumpf": bytecode.OpJumpFalse, "jumpt": bytecode.OpJumpTrue}[name]
		s.jumpTo(op, args[0].text)

	case "call":
		if len(args) != 1 || args[0].kind != tokWord {
			return s.errorf("call takes a subroutine name")
		}
		fn, ok := s.funcs[args[0].text]
		if !ok {
			return s.errorf("unknown subroutine %s", args[0].text)
		}
		at := c.EmitCall(uint8(fn.argc))
		c.PatchJumpTo(at, fn.addr)

	case "native", "lib":
		if len(args) < 1 || len(args) > 2 || args[0].kind == tokNum {
			return s.errorf("%s takes a name and an argument count", name)
		}
		argc := 0
		if len(args) == 2 {
			n, err := s.count(args[1], 255)
			if err != nil {
				return err
			}
			argc = n
		}
		op := bytecode.OpNative
		if name == "lib" {
			op = bytecode.OpLib
		}
		c.EmitU16U8(op, c.AddStr(args[0].text), uint8(argc))

	case "if":
		if len(args) != 0 {
			return s.errorf("if takes no operands")
		}
		s.blocks = append(s.blocks, block{kind: blockIf, jumpAt: c.EmitJump(bytecode.OpJumpFalse)})

	case "else":
		n := len(s.blocks)
		if n == 0 || s.blocks[n-1].kind != blockIf {
			return s.errorf("else without if")
		}
		skip := c.EmitJump(bytecode.OpJump)
		c.PatchJump(s.blocks[n-1].jumpAt)
		s.blocks[n-1] = block{kind: blockElse, jumpAt: skip}

	case "loop":
		if len(args) != 0 {
			return s.errorf("loop takes no operands")
		}
		s.blocks = append(s.blocks, block{kind: blockLoop, start: c.CurrentOffset()})

	case "break", "breakf", "continue":
		b := s.innerLoop()
		if b == nil {
			return s.errorf("%s outside loop", name)
		}
		switch name {
		case "break":
			b.breaks = append(b.breaks, c.EmitJump(bytecode.OpJump))
		case "breakf":
			b.breaks = append(b.breaks, c.EmitJump(bytecode.OpJumpFalse))
		default:
			c.PatchJumpTo(c.EmitJump(bytecode.OpJump), b.start)
		}

	case "def":
		return s.def(args)

	case "end":
		return s.end()

	case "include":
		if len(args) != 1 || args[0].kind != tokStr {
			return s.errorf("include takes a quoted file name")
		}
		return s.include(args[0].text)

	default:
		return s.errorf("unknown instruction %s", name)
	}
	return nil
}

func (s *Script) count(t token, limit int) (int, error) {
	if t.kind != tokNum || t.num < 0 || t.num > float64(limit) || t.num != float64(int(t.num)) {
		return 0, s.errorf("expected count from 0 to %d, got %s", limit, t)
	}
	return int(t.num), nil
}

func (s *Script) currentFn() *function {
	for i := len(s.blocks) - 1; i >= 0; i-- {
		if s.blocks[i].kind == blockDef {
			return s.blocks[i].fn
		}
	}
	return nil
}

func (s *Script) innerLoop() *block {
	for i := len(s.blocks) - 1; i >= 0; i-- {
		switch s.blocks[i].kind {
		case blockLoop:
			return &s.blocks[i]
		case blockDef:
			return nil
		}
	}
	return nil
}

// variable resolves a name to a frame-local or top-level slot, allocating
// on first use.
func (s *Script) variable(name string) (global bool, slot int, err error) {
	if fn := s.currentFn(); fn != nil {
		if slot, ok := fn.locals[name]; ok {
			return false, slot, nil
		}
		if slot, ok := s.globals[name]; ok {
			return true, slot, nil
		}
		if fn.nlocals >= 0xFFFF {
			return false, 0, s.errorf("too many locals in %s", fn.name)
		}
		fn.locals[name] = fn.nlocals
		fn.nlocals++
		return false, fn.locals[name], nil
	}
	if slot, ok := s.globals[name]; ok {
		return true, slot, nil
	}
	if len(s.globals) >= 0xFFFF {
		return true, 0, s.errorf("too many variables")
	}
	slot = len(s.globals)
	s.globals[name] = slot
	return true, slot, nil
}

func (s *Script) defineLabel(name string) error {
	if _, dup := s.labels[name]; dup {
		return s.errorf("duplicate label %s", name)
	}
	here := s.chunk.CurrentOffset()
	s.labels[name] = here
	s.newLabels = append(s.newLabels, name)
	for _, at := range s.pending[name] {
		s.chunk.PatchJumpTo(at, here)
	}
	delete(s.pending, name)
	return nil
}

func (s *Script) jumpTo(op bytecode.Opcode, label string) {
	at := s.chunk.EmitJump(op)
	if target, ok := s.labels[label]; ok {
		s.chunk.PatchJumpTo(at, target)
		return
	}
	s.pending[label] = append(s.pending[label], at)
}

func (s *Script) def(args []token) error {
	if s.currentFn() != nil {
		return s.errorf("nested def")
	}
	if len(args) < 2 || args[0].kind != tokWord {
		return s.errorf("def takes a name, an argument count and parameter names")
	}
	argc, err := s.count(args[1], 255)
	if err != nil {
		return err
	}
	params := args[2:]
	if len(params) > argc {
		return s.errorf("def %s declares %d parameters but takes %d", args[0].text, len(params), argc)
	}
	c := s.chunk
	skip := c.EmitJump(bytecode.OpJump)
	fn := &function{
		name:    args[0].text,
		argc:    argc,
		addr:    c.CurrentOffset(),
		locals:  make(map[string]int),
		nlocals: argc,
	}
	fn.enterAt = c.EmitU16(bytecode.OpEnter, 0) + 1
	for i, p := range params {
		if p.kind != tokWord {
			return s.errorf("bad parameter name %s", p)
		}
		fn.locals[p.text] = i
	}
	s.funcs[fn.name] = fn
	s.newFuncs = append(s.newFuncs, fn.name)
	s.blocks = append(s.blocks, block{kind: blockDef, jumpAt: skip, fn: fn})
	return nil
}

func (s *Script) end() error {
	n := len(s.blocks)
	if n == 0 {
		return s.errorf("end without block")
	}
	b := s.blocks[n-1]
	s.blocks = s.blocks[:n-1]
	c := s.chunk
	switch b.kind {
	case blockIf, blockElse:
		c.PatchJump(b.jumpAt)
	case blockLoop:
		c.PatchJumpTo(c.EmitJump(bytecode.OpJump), b.start)
		for _, at := range b.breaks {
			c.PatchJump(at)
		}
	case blockDef:
		c.Emit(bytecode.OpNil)
		c.Emit(bytecode.OpReturn)
		c.PatchU16(b.fn.enterAt, uint16(b.fn.nlocals))
		c.PatchJump(b.jumpAt)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Includes
// ---------------------------------------------------------------------------

func (s *Script) include(name string) error {
	if body, ok := s.embedded[name]; ok {
		return s.feed(name, s.files[len(s.files)-1].dir, func() error {
			return s.Write([]byte(body))
		})
	}
	if s.inc.FixPath == nil || s.inc.FSType == nil || s.inc.FSRead == nil {
		return s.errorf("cannot include %q: no includer", name)
	}
	path, ok := s.resolve(name)
	if !ok {
		return s.errorf("cannot find include %q", name)
	}
	return s.feed(path, filepath.Dir(path), func() error {
		return s.inc.FSRead(s, path)
	})
}

func (s *Script) resolve(name string) (string, bool) {
	dirs := append([]string{s.files[len(s.files)-1].dir}, s.paths...)
	if filepath.IsAbs(name) {
		dirs = []string{""}
	}
	for _, dir := range dirs {
		p := s.inc.FixPath(name, dir)
		switch s.inc.FSType(p) {
		case FSFile:
			return p, true
		case FSDir:
			if q := s.inc.FixPath("index.sink", p); s.inc.FSType(q) == FSFile {
				return q, true
			}
		}
		if !strings.HasSuffix(p, ".sink") {
			if q := p + ".sink"; s.inc.FSType(q) == FSFile {
				return q, true
			}
		}
	}
	return "", false
}

func (s *Script) feed(name, dir string, read func() error) error {
	for _, f := range s.files {
		if f.name == name {
			return s.errorf("include cycle through %s", name)
		}
	}
	site := s.errorf("")
	depth := len(s.blocks)
	src := &source{name: name, dir: dir, fileIdx: s.chunk.AddFile(name)}
	s.files = append(s.files, src)
	defer func() { s.files = s.files[:len(s.files)-1] }()

	if err := read(); err != nil {
		var ae *Error
		if errors.As(err, &ae) {
			return err
		}
		site.Msg = fmt.Sprintf("cannot read include %s: %v", name, err)
		site.Err = err
		return site
	}
	if len(src.partial) > 0 {
		text := string(src.partial)
		src.partial = nil
		src.line++
		if err := s.line(text); err != nil {
			return err
		}
	}
	if len(s.blocks) != depth {
		return s.errorf("unbalanced blocks at end of include")
	}
	return nil
}
