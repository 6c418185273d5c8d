package vm

import (
	"fmt"

	"github.com/chazu/sink/pkg/bytecode"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("sink.vm")

// State is the position of a Context in its run state machine.
type State int

const (
	StateReady State = iota
	StateRunning
	StatePass
	StateFail
	StateAsync
	StateTimeout
	StateREPLMore
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StatePass:
		return "pass"
	case StateFail:
		return "fail"
	case StateAsync:
		return "async"
	case StateTimeout:
		return "timeout"
	case StateREPLMore:
		return "replmore"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// RunResult is what a single call to Run reports.
type RunResult int

const (
	RunPass RunResult = iota
	RunFail
	RunAsync
	RunTimeout
	RunREPLMore
	RunInvalid
)

func (r RunResult) String() string {
	switch r {
	case RunPass:
		return "pass"
	case RunFail:
		return "fail"
	case RunAsync:
		return "async"
	case RunTimeout:
		return "timeout"
	case RunREPLMore:
		return "replmore"
	case RunInvalid:
		return "invalid"
	}
	return fmt.Sprintf("RunResult(%d)", int(r))
}

// maxFrames bounds subroutine nesting.
const maxFrames = 10000

// frame is one activation record. Frame 0 holds the top-level locals.
type frame struct {
	locals    []Value
	ret       int
	stackBase int
}

// Context executes one compiled program. It is not safe for concurrent use;
// every method must be called from the goroutine that drives Run.
type Context struct {
	id    uuid.UUID
	chunk *bytecode.Chunk
	io    IO
	heap  *Heap

	natives   map[uint64]NativeFunc
	userTypes []userTypeInfo
	user      any
	userFree  func(user any)
	cleanups  []func()
	pins      map[Value]int

	state  State
	failed bool
	exited bool
	errMsg string

	limit      int
	remaining  int
	forceYield bool

	rand randState

	ip        int
	stack     []Value
	frames    []frame
	strConsts []Value

	closed bool
}

// New creates a context for chunk. The chunk may keep growing after New
// returns when it is fed incrementally by a REPL.
func New(chunk *bytecode.Chunk, io IO) *Context {
	if chunk == nil {
		panic("vm: nil chunk")
	}
	ctx := &Context{
		id:      uuid.New(),
		chunk:   chunk,
		io:      io,
		heap:    NewHeap(),
		natives: make(map[uint64]NativeFunc),
		pins:    make(map[Value]int),
		stack:   make([]Value, 0, 256),
		frames:  []frame{{ret: -1}},
	}
	ctx.heap.onFree = ctx.freeUser
	ctx.SeedAuto()
	log.Debugf("context %s created (repl=%v)", ctx.id, chunk.REPL)
	return ctx
}

// ID returns the context's unique id.
func (ctx *Context) ID() uuid.UUID { return ctx.id }

// Heap returns the context's heap.
func (ctx *Context) Heap() *Heap { return ctx.heap }

// Chunk returns the program being executed.
func (ctx *Context) Chunk() *bytecode.Chunk { return ctx.chunk }

// State returns the current run state.
func (ctx *Context) State() State { return ctx.state }

// Closed reports whether Close has been called.
func (ctx *Context) Closed() bool { return ctx.closed }

func (ctx *Context) checkOpen() {
	if ctx.closed {
		panic("vm: context used after Close")
	}
}

func (ctx *Context) setState(s State) {
	if ctx.state != s {
		log.Debugf("context %s: %s -> %s", ctx.id, ctx.state, s)
	}
	ctx.state = s
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// SetUser attaches an opaque host value released by free at Close.
func (ctx *Context) SetUser(user any, free func(user any)) {
	ctx.checkOpen()
	ctx.user = user
	ctx.userFree = free
}

// User returns the value set by SetUser.
func (ctx *Context) User() any { return ctx.user }

// Cleanup registers fn to run at Close. Hooks run in registration order.
func (ctx *Context) Cleanup(fn func()) {
	ctx.checkOpen()
	ctx.cleanups = append(ctx.cleanups, fn)
}

// Close releases every heap object, calling each usertype free hook once,
// then runs cleanup hooks and finally the context-user free hook. Closing
// twice panics.
func (ctx *Context) Close() {
	ctx.checkOpen()
	if ctx.state == StateRunning {
		panic("vm: Close called while running")
	}
	ctx.stack = nil
	ctx.frames = nil
	ctx.strConsts = nil
	ctx.pins = nil
	ctx.heap.FreeAll()
	for _, fn := range ctx.cleanups {
		fn()
	}
	ctx.cleanups = nil
	if ctx.userFree != nil {
		ctx.userFree(ctx.user)
	}
	ctx.user = nil
	ctx.userFree = nil
	ctx.closed = true
	log.Debugf("context %s closed", ctx.id)
}

// ---------------------------------------------------------------------------
// Roots and collection
// ---------------------------------------------------------------------------

// Pin keeps v alive across collections until a matching Unpin.
func (ctx *Context) Pin(v Value) {
	ctx.checkOpen()
	if v.IsStr() || v.IsList() {
		ctx.heap.checkOwner(v)
		ctx.pins[v]++
	}
}

// Unpin releases one Pin of v.
func (ctx *Context) Unpin(v Value) {
	ctx.checkOpen()
	n, ok := ctx.pins[v]
	if !ok {
		return
	}
	if n <= 1 {
		delete(ctx.pins, v)
		return
	}
	ctx.pins[v] = n - 1
}

func (ctx *Context) markRoots(mark func(Value)) {
	for _, v := range ctx.stack {
		mark(v)
	}
	for _, f := range ctx.frames {
		for _, v := range f.locals {
			mark(v)
		}
	}
	for _, v := range ctx.strConsts {
		mark(v)
	}
	for v := range ctx.pins {
		mark(v)
	}
}

// GC runs a full collection immediately.
func (ctx *Context) GC() GCStats {
	ctx.checkOpen()
	stats := ctx.heap.Collect(ctx.markRoots)
	log.Debugf("context %s gc: swept %d strs %d lists, live %d strs %d lists in %s",
		ctx.id, stats.StrsSwept, stats.ListsSwept, stats.StrsLive, stats.ListsLive, stats.SweepDuration)
	return stats
}

// GCLevel returns the heap's collection level.
func (ctx *Context) GCLevel() GCLevel { return ctx.heap.Level() }

// SetGCLevel changes the heap's collection level.
func (ctx *Context) SetGCLevel(l GCLevel) { ctx.heap.SetLevel(l) }

// ---------------------------------------------------------------------------
// Budget
// ---------------------------------------------------------------------------

// SetTimeout sets the instruction budget for subsequent runs. n <= 0 means
// unlimited. A timed-out context becomes ready again.
func (ctx *Context) SetTimeout(n int) {
	ctx.checkOpen()
	if n < 0 {
		n = 0
	}
	ctx.limit = n
	ctx.remaining = n
	if ctx.state == StateTimeout {
		ctx.setState(StateReady)
	}
}

// Timeout returns the remaining budget (0 when unlimited).
func (ctx *Context) Timeout() int { return ctx.remaining }

// ForceTimeout makes the running program yield with RunTimeout at the next
// instruction boundary without consuming budget.
func (ctx *Context) ForceTimeout() {
	ctx.checkOpen()
	ctx.forceYield = true
}

func (ctx *Context) budgetLeft() bool {
	return ctx.limit == 0 || ctx.remaining > 0
}

// ---------------------------------------------------------------------------
// Async and readiness
// ---------------------------------------------------------------------------

// AsyncResult delivers the value a suspended native produced. It must be
// called exactly once per suspension.
func (ctx *Context) AsyncResult(v Value) {
	ctx.checkOpen()
	if ctx.state != StateAsync {
		panic(fmt.Sprintf("vm: AsyncResult called in state %s", ctx.state))
	}
	if v.IsAsync() {
		panic("vm: AsyncResult cannot deliver Async")
	}
	if !ctx.heap.Valid(v) {
		panic("vm: AsyncResult value does not belong to this context")
	}
	ctx.push(v)
	ctx.setState(StateReady)
}

// Ready reports whether Run would make progress.
func (ctx *Context) Ready() bool {
	if ctx.closed {
		return false
	}
	switch ctx.state {
	case StateReady:
		return true
	case StateTimeout:
		return ctx.budgetLeft()
	case StateREPLMore:
		return ctx.ip < ctx.chunk.Committed || ctx.chunk.Closed
	}
	return false
}

// Err returns the abort message of a failed context, or nil.
func (ctx *Context) Err() error {
	if ctx.state != StateFail {
		return nil
	}
	return &AbortError{Message: ctx.errMsg}
}
