package hostlib

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chazu/sink/pkg/asm"
	"github.com/chazu/sink/vm"
)

type output struct{ lines []string }

func (o *output) io() vm.IO {
	return vm.IO{
		Say: func(ctx *vm.Context, text string) { o.lines = append(o.lines, text) },
	}
}

func newContext(t *testing.T, h *Host, src string) (*vm.Context, *output) {
	t.Helper()
	chunk, err := asm.Assemble("test.sink", src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	out := &output{}
	ctx := vm.New(chunk, out.io())
	Register(ctx, h)
	t.Cleanup(func() {
		if !ctx.Closed() && ctx.State() != vm.StateRunning {
			ctx.Close()
		}
	})
	return ctx, out
}

func TestSleepResolves(t *testing.T) {
	h := NewHost(nil)
	ctx, out := newContext(t, h, "push 1\nnative sleep 1\nsay\npush \"done\"\nsay")

	if res := ctx.Run(); res != vm.RunAsync {
		t.Fatalf("Run = %s, want async", res)
	}
	if !h.Pending(ctx) {
		t.Fatal("no pending operation after sleep")
	}
	if err := h.Resolve(context.Background(), ctx); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if h.Pending(ctx) {
		t.Error("operation still pending after Resolve")
	}
	if res := ctx.Run(); res != vm.RunPass {
		t.Fatalf("Run = %s, want pass", res)
	}
	if got := strings.Join(out.lines, "|"); got != "nil|done" {
		t.Errorf("output = %q", got)
	}
}

func TestResolveWithoutPending(t *testing.T) {
	h := NewHost(nil)
	ctx, _ := newContext(t, h, "halt")
	if err := h.Resolve(context.Background(), ctx); !errors.Is(err, ErrNoPending) {
		t.Errorf("Resolve = %v, want ErrNoPending", err)
	}
}

func TestResolveCancelled(t *testing.T) {
	h := NewHost(nil)
	ctx, _ := newContext(t, h, "push 60000\nnative sleep 1\nhalt")
	if res := ctx.Run(); res != vm.RunAsync {
		t.Fatalf("Run = %s, want async", res)
	}
	c, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := h.Resolve(c, ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Resolve = %v, want deadline exceeded", err)
	}
	if h.Pending(ctx) {
		t.Error("cancelled operation still pending")
	}
	if ctx.State() != vm.StateAsync {
		t.Errorf("state = %s, want async", ctx.State())
	}
}

func TestSleepBadArgs(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"push -1\nnative sleep 1", "Expecting non-negative number of milliseconds"},
		{"push \"x\"\nnative sleep 1", "Expecting non-negative number of milliseconds"},
		{"lib num.inf 0\nnative sleep 1", "Cannot sleep forever"},
	}
	for _, tt := range tests {
		h := NewHost(nil)
		ctx, _ := newContext(t, h, tt.src)
		if res := ctx.Run(); res != vm.RunFail {
			t.Errorf("%q: Run = %s, want fail", tt.src, res)
			continue
		}
		if err := ctx.Err(); err == nil || err.Error() != tt.want {
			t.Errorf("%q: error = %v, want %q", tt.src, err, tt.want)
		}
	}
}

func TestTimeNow(t *testing.T) {
	h := NewHost(nil)
	h.now = func() time.Time { return time.UnixMilli(1700000000123) }
	ctx, out := newContext(t, h, "native time.now 0\nsay")
	if res := ctx.Run(); res != vm.RunPass {
		t.Fatalf("Run = %s", res)
	}
	if len(out.lines) != 1 || out.lines[0] != "1700000000123" {
		t.Errorf("output = %v", out.lines)
	}
}

func TestHostRun(t *testing.T) {
	const src = `push 0
store i
loop
  load i
  push 3
  lt
  breakf
  push 0
  native sleep 1
  pop
  load i
  push 1
  add
  store i
end
load i
say`
	h := NewHost(nil)
	ctx, out := newContext(t, h, src)
	res, err := h.Run(context.Background(), ctx, RunOptions{})
	if err != nil || res != vm.RunPass {
		t.Fatalf("Run = %s, %v", res, err)
	}
	if len(out.lines) != 1 || out.lines[0] != "3" {
		t.Errorf("output = %v", out.lines)
	}
}

func TestHostRunTimeout(t *testing.T) {
	const src = `push 0
store i
loop
  load i
  push 200
  lt
  breakf
  load i
  push 1
  add
  store i
end
load i
say`
	h := NewHost(nil)

	ctx, _ := newContext(t, h, src)
	ctx.SetTimeout(50)
	res, err := h.Run(context.Background(), ctx, RunOptions{})
	if err != nil || res != vm.RunTimeout {
		t.Fatalf("Run without resume = %s, %v", res, err)
	}

	ctx, out := newContext(t, h, src)
	ctx.SetTimeout(50)
	yields := 0
	res, err = h.Run(context.Background(), ctx, RunOptions{
		ResumeTimeout: 50,
		Yield:         func(*vm.Context) { yields++ },
	})
	if err != nil || res != vm.RunPass {
		t.Fatalf("Run with resume = %s, %v", res, err)
	}
	if yields == 0 {
		t.Error("program never yielded")
	}
	if len(out.lines) != 1 || out.lines[0] != "200" {
		t.Errorf("output = %v", out.lines)
	}
}

func TestHostRunCancelled(t *testing.T) {
	h := NewHost(nil)
	ctx, _ := newContext(t, h, "push 60000\nnative sleep 1\nhalt")
	c, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	res, err := h.Run(c, ctx, RunOptions{})
	if res != vm.RunAsync || !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %s, %v; want async, canceled", res, err)
	}
}

func TestCloseCancelsPending(t *testing.T) {
	h := NewHost(nil)
	ctx, _ := newContext(t, h, "push 60000\nnative sleep 1\nhalt")
	if res := ctx.Run(); res != vm.RunAsync {
		t.Fatalf("Run = %s", res)
	}
	ctx.Close()
	if h.Pending(ctx) {
		t.Error("pending operation survived Close")
	}
}

func TestStoreNatives(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()
	h := NewHost(store)

	ctx, out := newContext(t, h, `push "a:1"
push 1
push "two"
list 2
native store.set 2
pop
push "a:2"
push 5
native store.set 2
pop
push "b"
nil
native store.set 2
pop
push "a:1"
native store.get 1
say
push "missing"
native store.get 1
say
push "a:"
native store.keys 1
say
native store.keys 0
say
push "a:2"
native store.del 1
say
push "a:2"
native store.del 1
say`)
	if res := ctx.Run(); res != vm.RunPass {
		t.Fatalf("Run = %s, %v", res, ctx.Err())
	}
	want := []string{"{1, 'two'}", "nil", "{'a:1', 'a:2'}", "{'a:1', 'a:2', 'b'}", "1", "nil"}
	if strings.Join(out.lines, "|") != strings.Join(want, "|") {
		t.Errorf("output = %q, want %q", out.lines, want)
	}

	// values outlive the context that wrote them
	ctx2, out2 := newContext(t, h, "push \"a:1\"\nnative store.get 1\nsay")
	if res := ctx2.Run(); res != vm.RunPass {
		t.Fatalf("Run = %s", res)
	}
	if len(out2.lines) != 1 || out2.lines[0] != "{1, 'two'}" {
		t.Errorf("second context output = %v", out2.lines)
	}
}

func TestStoreNativesNeedStore(t *testing.T) {
	h := NewHost(nil)
	ctx, _ := newContext(t, h, "halt")
	if ctx.HasNative("store.get") {
		t.Error("store natives registered without a store")
	}
	if !ctx.HasNative("sleep") || !ctx.HasNative("time.now") {
		t.Error("core natives missing")
	}
}

func TestStoreKeyMustBeString(t *testing.T) {
	store, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()
	h := NewHost(store)
	ctx, _ := newContext(t, h, "push 1\nnative store.get 1")
	if res := ctx.Run(); res != vm.RunFail {
		t.Fatalf("Run = %s, want fail", res)
	}
	if err := ctx.Err(); err == nil || err.Error() != "Expecting string key" {
		t.Errorf("error = %v", err)
	}
}
