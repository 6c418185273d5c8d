package vm

import (
	"fmt"

	"github.com/spaolacci/murmur3"
)

// NativeFunc is a host function callable from a program. It returns a value,
// Async to suspend, or calls ctx.Abort to fail the program.
type NativeFunc func(ctx *Context, args []Value) Value

// NativeHashOf returns the 64-bit hash a name is registered under.
func NativeHashOf(name string) uint64 {
	h1, _ := murmur3.Sum128WithSeed([]byte(name), 0)
	return h1
}

// Native registers fn under name. Registering a name twice panics.
func (ctx *Context) Native(name string, fn NativeFunc) {
	ctx.NativeHash(NativeHashOf(name), fn)
}

// NativeHash registers fn under a precomputed NativeHashOf value.
func (ctx *Context) NativeHash(hash uint64, fn NativeFunc) {
	ctx.checkOpen()
	if fn == nil {
		panic("vm: nil native function")
	}
	if _, dup := ctx.natives[hash]; dup {
		panic(fmt.Sprintf("vm: native %016x already registered", hash))
	}
	ctx.natives[hash] = fn
}

// HasNative reports whether name resolves to a registered native.
func (ctx *Context) HasNative(name string) bool {
	_, ok := ctx.natives[NativeHashOf(name)]
	return ok
}

func (ctx *Context) callNative(name string, args []Value) Value {
	fn, ok := ctx.natives[NativeHashOf(name)]
	if !ok {
		return ctx.Abortf("native function not implemented: %s", name)
	}
	return fn(ctx, args)
}
