package vm

import (
	"encoding/binary"
	"math"

	"github.com/chazu/sink/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Stack helpers
// ---------------------------------------------------------------------------

func (ctx *Context) push(v Value) {
	ctx.stack = append(ctx.stack, v)
}

func (ctx *Context) pop() Value {
	n := len(ctx.stack)
	if n <= ctx.frames[len(ctx.frames)-1].stackBase {
		panic("vm: stack underflow")
	}
	v := ctx.stack[n-1]
	ctx.stack = ctx.stack[:n-1]
	return v
}

func (ctx *Context) top() Value {
	if len(ctx.stack) == 0 {
		panic("vm: stack underflow")
	}
	return ctx.stack[len(ctx.stack)-1]
}

// args returns a copy of the top n values. They stay on the stack, and so
// stay rooted, until dropArgs.
func (ctx *Context) args(n int) []Value {
	if n > len(ctx.stack)-ctx.frames[len(ctx.frames)-1].stackBase {
		panic("vm: stack underflow")
	}
	out := make([]Value, n)
	copy(out, ctx.stack[len(ctx.stack)-n:])
	return out
}

func (ctx *Context) dropArgs(n int) {
	clear(ctx.stack[len(ctx.stack)-n:])
	ctx.stack = ctx.stack[:len(ctx.stack)-n]
}

func (ctx *Context) readU8() int {
	v := ctx.chunk.Code[ctx.ip]
	ctx.ip++
	return int(v)
}

func (ctx *Context) readU16() int {
	v := binary.BigEndian.Uint16(ctx.chunk.Code[ctx.ip:])
	ctx.ip += 2
	return int(v)
}

func (ctx *Context) readU32() int {
	v := binary.BigEndian.Uint32(ctx.chunk.Code[ctx.ip:])
	ctx.ip += 4
	return int(v)
}

// constant pushes the value of constant idx, interning strings on first use.
func (ctx *Context) constant(idx int) Value {
	k := ctx.chunk.Consts[idx]
	if k.Kind == bytecode.ConstNum {
		return Num(k.Num)
	}
	if idx >= len(ctx.strConsts) {
		grown := make([]Value, len(ctx.chunk.Consts))
		copy(grown, ctx.strConsts)
		ctx.strConsts = grown
	}
	if v := ctx.strConsts[idx]; v.IsStr() {
		return v
	}
	v := ctx.NewStrString(k.Str)
	ctx.strConsts[idx] = v
	return v
}

func (ctx *Context) constName(idx int) string {
	return ctx.chunk.Consts[idx].Str
}

func (ctx *Context) local(slot int) *Value {
	f := &ctx.frames[len(ctx.frames)-1]
	if slot >= len(f.locals) {
		f.locals = append(f.locals, make([]Value, slot+1-len(f.locals))...)
	}
	return &f.locals[slot]
}

func (ctx *Context) global(slot int) *Value {
	f := &ctx.frames[0]
	if slot >= len(f.locals) {
		f.locals = append(f.locals, make([]Value, slot+1-len(f.locals))...)
	}
	return &f.locals[slot]
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

// Run advances the program until it passes, fails, suspends on an async
// native, exhausts its budget, or (for REPL chunks) runs out of committed
// code. Calling Run from inside a native panics.
func (ctx *Context) Run() RunResult {
	ctx.checkOpen()
	switch ctx.state {
	case StateRunning:
		panic("vm: re-entrant Run")
	case StatePass:
		return RunPass
	case StateFail:
		return RunFail
	case StateAsync:
		return RunInvalid
	case StateTimeout:
		if !ctx.budgetLeft() {
			return RunTimeout
		}
	}
	ctx.setState(StateRunning)
	res := ctx.execute()
	return res
}

func (ctx *Context) finish(res RunResult) RunResult {
	switch res {
	case RunPass:
		ctx.setState(StatePass)
	case RunFail:
		ctx.setState(StateFail)
	case RunAsync:
		ctx.setState(StateAsync)
	case RunTimeout:
		ctx.setState(StateTimeout)
	case RunREPLMore:
		ctx.setState(StateREPLMore)
	}
	return res
}

// after checks the flags an instruction may have raised.
func (ctx *Context) after() (RunResult, bool) {
	switch {
	case ctx.failed:
		return RunFail, true
	case ctx.exited:
		return RunPass, true
	}
	return 0, false
}

func (ctx *Context) execute() RunResult {
	code := ctx.chunk
	for {
		if ctx.ip >= code.Committed {
			if code.REPL && !code.Closed {
				return ctx.finish(RunREPLMore)
			}
			return ctx.finish(RunPass)
		}
		if ctx.forceYield {
			ctx.forceYield = false
			return ctx.finish(RunTimeout)
		}
		if ctx.limit > 0 {
			if ctx.remaining <= 0 {
				return ctx.finish(RunTimeout)
			}
			ctx.remaining--
		}
		if ctx.heap.NeedsCollect() {
			ctx.GC()
		}

		at := ctx.ip
		op := bytecode.Opcode(code.Code[ctx.ip])
		if !op.Valid() || at+op.InstructionLen() > code.Committed {
			ctx.Abortf("bad instruction 0x%02X at %d", byte(op), at)
			return ctx.finish(RunFail)
		}
		ctx.ip++

		switch op {
		case bytecode.OpNop:

		case bytecode.OpPop:
			ctx.pop()

		case bytecode.OpDup:
			ctx.push(ctx.top())

		case bytecode.OpSwap:
			b := ctx.pop()
			a := ctx.pop()
			ctx.push(b)
			ctx.push(a)

		case bytecode.OpNil:
			ctx.push(Nil)

		case bytecode.OpConst:
			ctx.push(ctx.constant(ctx.readU16()))

		case bytecode.OpLoad:
			ctx.push(*ctx.local(ctx.readU16()))

		case bytecode.OpStore:
			v := ctx.pop()
			*ctx.local(ctx.readU16()) = v

		case bytecode.OpGLoad:
			ctx.push(*ctx.global(ctx.readU16()))

		case bytecode.OpGStore:
			v := ctx.pop()
			*ctx.global(ctx.readU16()) = v

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow:
			b := ctx.pop()
			a := ctx.pop()
			ctx.push(ctx.arith(op, a, b))

		case bytecode.OpNeg:
			ctx.push(ctx.NumNeg(ctx.pop()))

		case bytecode.OpCat:
			b := ctx.pop()
			a := ctx.pop()
			ctx.push(ctx.Cat(a, b))

		case bytecode.OpEq:
			b := ctx.pop()
			a := ctx.pop()
			ctx.push(Bool(ctx.Equal(a, b)))

		case bytecode.OpNe:
			b := ctx.pop()
			a := ctx.pop()
			ctx.push(Bool(!ctx.Equal(a, b)))

		case bytecode.OpLt:
			b := ctx.pop()
			a := ctx.pop()
			ctx.push(Bool(ctx.Less(a, b)))

		case bytecode.OpLe:
			b := ctx.pop()
			a := ctx.pop()
			ctx.push(Bool(ctx.LessEqual(a, b)))

		case bytecode.OpGt:
			b := ctx.pop()
			a := ctx.pop()
			ctx.push(Bool(ctx.Less(b, a)))

		case bytecode.OpGe:
			b := ctx.pop()
			a := ctx.pop()
			ctx.push(Bool(ctx.LessEqual(b, a)))

		case bytecode.OpNot:
			ctx.push(Bool(ctx.pop().IsFalse()))

		case bytecode.OpSize:
			ctx.push(ctx.Size(ctx.pop()))

		case bytecode.OpList:
			n := ctx.readU16()
			vals := ctx.args(n)
			ctx.dropArgs(n)
			ctx.push(ctx.NewListGive(vals))

		case bytecode.OpAt:
			idx := ctx.pop()
			obj := ctx.pop()
			ctx.push(ctx.index(obj, idx))

		case bytecode.OpSetAt:
			v := ctx.pop()
			idx := ctx.pop()
			obj := ctx.pop()
			ctx.setIndex(obj, idx, v)

		case bytecode.OpJump:
			ctx.ip = ctx.readU32()

		case bytecode.OpJumpFalse:
			target := ctx.readU32()
			if ctx.pop().IsFalse() {
				ctx.ip = target
			}

		case bytecode.OpJumpTrue:
			target := ctx.readU32()
			if ctx.pop().IsTrue() {
				ctx.ip = target
			}

		case bytecode.OpCall:
			target := ctx.readU32()
			argc := ctx.readU8()
			if len(ctx.frames) >= maxFrames {
				ctx.Abortf("call stack overflow")
				break
			}
			locals := ctx.args(argc)
			ctx.dropArgs(argc)
			ctx.frames = append(ctx.frames, frame{
				locals:    locals,
				ret:       ctx.ip,
				stackBase: len(ctx.stack),
			})
			ctx.ip = target

		case bytecode.OpEnter:
			n := ctx.readU16()
			if n > 0 {
				ctx.local(n - 1)
			}

		case bytecode.OpReturn:
			v := ctx.pop()
			if len(ctx.frames) == 1 {
				return ctx.finish(RunPass)
			}
			f := ctx.frames[len(ctx.frames)-1]
			ctx.frames[len(ctx.frames)-1] = frame{}
			ctx.frames = ctx.frames[:len(ctx.frames)-1]
			clear(ctx.stack[f.stackBase:])
			ctx.stack = ctx.stack[:f.stackBase]
			ctx.ip = f.ret
			ctx.push(v)

		case bytecode.OpNative:
			name := ctx.constName(ctx.readU16())
			argc := ctx.readU8()
			args := ctx.args(argc)
			v := ctx.callNative(name, args)
			ctx.dropArgs(argc)
			if res, done := ctx.after(); done {
				return ctx.finish(res)
			}
			if v.IsAsync() {
				return ctx.finish(RunAsync)
			}
			if !ctx.heap.Valid(v) {
				panic("vm: native " + name + " returned a value from another context")
			}
			ctx.push(v)
			continue

		case bytecode.OpLib:
			name := ctx.constName(ctx.readU16())
			argc := ctx.readU8()
			args := ctx.args(argc)
			v := ctx.CallLib(name, args)
			ctx.dropArgs(argc)
			ctx.push(v)

		case bytecode.OpSay, bytecode.OpWarn, bytecode.OpAsk, bytecode.OpExit, bytecode.OpAbort:
			argc := ctx.readU8()
			args := ctx.args(argc)
			var v Value
			switch op {
			case bytecode.OpSay:
				ctx.Say(args...)
			case bytecode.OpWarn:
				ctx.Warn(args...)
			case bytecode.OpAsk:
				v = ctx.Ask(args...)
			case bytecode.OpExit:
				ctx.Exit(args...)
			case bytecode.OpAbort:
				if argc == 0 {
					ctx.Abortf("abort")
				} else {
					ctx.Abort(args...)
				}
			}
			ctx.dropArgs(argc)
			if op == bytecode.OpAsk {
				ctx.push(v)
			}

		case bytecode.OpHalt:
			return ctx.finish(RunPass)
		}

		if res, done := ctx.after(); done {
			return ctx.finish(res)
		}
	}
}

// ---------------------------------------------------------------------------
// Operator helpers
// ---------------------------------------------------------------------------

func (ctx *Context) arith(op bytecode.Opcode, a, b Value) Value {
	switch op {
	case bytecode.OpAdd:
		return ctx.NumAdd(a, b)
	case bytecode.OpSub:
		return ctx.NumSub(a, b)
	case bytecode.OpMul:
		return ctx.NumMul(a, b)
	case bytecode.OpDiv:
		return ctx.NumDiv(a, b)
	case bytecode.OpMod:
		return ctx.NumMod(a, b)
	}
	return ctx.NumPow(a, b)
}

// Cat concatenates two lists into a new list; any other pairing joins the
// string forms of both values.
func (ctx *Context) Cat(a, b Value) Value {
	if a.IsList() && b.IsList() {
		la, lb := ctx.heap.List(a).Vals, ctx.heap.List(b).Vals
		vals := make([]Value, 0, len(la)+len(lb))
		vals = append(vals, la...)
		vals = append(vals, lb...)
		return ctx.NewListGive(vals)
	}
	return ctx.NewStrString(ctx.ToString(a) + ctx.ToString(b))
}

func (ctx *Context) index(obj, idx Value) Value {
	if !idx.IsNum() {
		return ctx.Abortf("Expecting number for index")
	}
	switch obj.kind {
	case KindList:
		l := ctx.heap.List(obj)
		i, ok := resolveIndex(idx.Float(), l.Len())
		if !ok {
			return Nil
		}
		return l.Vals[i]
	case KindStr:
		s := ctx.heap.Str(obj)
		i, ok := resolveIndex(idx.Float(), s.Len())
		if !ok {
			return Nil
		}
		return ctx.NewStr(s.Bytes[i : i+1])
	}
	return ctx.Abortf("Expecting list or string when indexing")
}

// maxListLen bounds the length a program can grow a list or string to.
const maxListLen = 1 << 28

func (ctx *Context) setIndex(obj, idx, v Value) {
	if !obj.IsList() {
		ctx.Abortf("Expecting list when setting index")
		return
	}
	if !idx.IsNum() {
		ctx.Abortf("Expecting number for index")
		return
	}
	l := ctx.heap.List(obj)
	f := math.Floor(idx.Float())
	if math.IsNaN(f) || f >= maxListLen {
		ctx.Abortf("Index out of range")
		return
	}
	if f < 0 {
		f += float64(l.Len())
		if f < 0 {
			ctx.Abortf("Index out of range")
			return
		}
	}
	i := int(f)
	if i >= l.Len() {
		l.Resize(i + 1)
	}
	l.Vals[i] = v
}

// resolveIndex maps a program index (negative counts from the end) onto
// [0, size).
func resolveIndex(f float64, size int) (int, bool) {
	f = math.Floor(f)
	if math.IsNaN(f) {
		return 0, false
	}
	if f < 0 {
		f += float64(size)
	}
	if f < 0 || f >= float64(size) {
		return 0, false
	}
	return int(f), true
}
