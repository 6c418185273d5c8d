package hostlib

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/sink/vm"
)

var log = commonlog.GetLogger("sink.hostlib")

// ErrNoPending is returned by Resolve when the context is not waiting on a
// native started by this host.
var ErrNoPending = errors.New("hostlib: no pending operation")

// pendingOp is an asynchronous native waiting to complete. result runs on
// the goroutine that calls Resolve.
type pendingOp struct {
	done   <-chan struct{}
	stop   func()
	result func(ctx *vm.Context) vm.Value
}

// Host owns the resources natives use and the operations they leave
// pending. One Host may serve several contexts.
type Host struct {
	Store *Store

	mu      sync.Mutex
	pending map[*vm.Context]*pendingOp
	now     func() time.Time
}

// NewHost creates a host. store may be nil to leave the store natives out.
func NewHost(store *Store) *Host {
	return &Host{
		Store:   store,
		pending: make(map[*vm.Context]*pendingOp),
		now:     time.Now,
	}
}

func (h *Host) suspend(ctx *vm.Context, op *pendingOp) vm.Value {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, busy := h.pending[ctx]; busy {
		op.stop()
		return ctx.Abortf("native suspended twice without a result")
	}
	h.pending[ctx] = op
	return vm.Async
}

// after schedules a pending operation that completes once d has elapsed.
func (h *Host) after(ctx *vm.Context, d time.Duration, result func(ctx *vm.Context) vm.Value) vm.Value {
	t := time.NewTimer(d)
	done := make(chan struct{})
	cancel := make(chan struct{})
	go func() {
		select {
		case <-t.C:
			close(done)
		case <-cancel:
			t.Stop()
		}
	}()
	var once sync.Once
	return h.suspend(ctx, &pendingOp{
		done:   done,
		stop:   func() { once.Do(func() { close(cancel) }) },
		result: result,
	})
}

// Pending reports whether ctx is waiting on an operation from this host.
func (h *Host) Pending(ctx *vm.Context) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.pending[ctx]
	return ok
}

// Resolve blocks until the operation ctx is waiting on completes and
// delivers its result. If c is cancelled first the operation is dropped
// and the context stays suspended.
func (h *Host) Resolve(c context.Context, ctx *vm.Context) error {
	h.mu.Lock()
	op, ok := h.pending[ctx]
	h.mu.Unlock()
	if !ok {
		return ErrNoPending
	}

	select {
	case <-op.done:
	case <-c.Done():
		op.stop()
		h.forget(ctx)
		return c.Err()
	}
	h.forget(ctx)
	ctx.AsyncResult(op.result(ctx))
	return nil
}

// Cancel drops the operation ctx is waiting on, if any. Call it before
// closing a suspended context.
func (h *Host) Cancel(ctx *vm.Context) {
	h.mu.Lock()
	op, ok := h.pending[ctx]
	delete(h.pending, ctx)
	h.mu.Unlock()
	if ok {
		op.stop()
	}
}

func (h *Host) forget(ctx *vm.Context) {
	h.mu.Lock()
	delete(h.pending, ctx)
	h.mu.Unlock()
}

// RunOptions controls Host.Run.
type RunOptions struct {
	// ResumeTimeout re-arms the instruction budget with this many
	// instructions each time the program times out. 0 returns RunTimeout
	// to the caller instead.
	ResumeTimeout int

	// Yield, when set, is called each time the program times out and is
	// resumed.
	Yield func(ctx *vm.Context)
}

// Run drives ctx until it passes, fails, needs more REPL input, or times
// out without ResumeTimeout. Async natives from this host are resolved
// in between.
func (h *Host) Run(c context.Context, ctx *vm.Context, opts RunOptions) (vm.RunResult, error) {
	for {
		if err := c.Err(); err != nil {
			return vm.RunInvalid, err
		}
		res := ctx.Run()
		switch res {
		case vm.RunAsync:
			if err := h.Resolve(c, ctx); err != nil {
				return res, err
			}
		case vm.RunTimeout:
			if opts.ResumeTimeout <= 0 {
				return res, nil
			}
			if opts.Yield != nil {
				opts.Yield(ctx)
			}
			ctx.SetTimeout(opts.ResumeTimeout)
		case vm.RunInvalid:
			return res, fmt.Errorf("hostlib: context %s is not runnable in state %s", ctx.ID(), ctx.State())
		default:
			return res, nil
		}
	}
}
