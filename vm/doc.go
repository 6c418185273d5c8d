// Package vm implements the sink embeddable runtime.
//
// This package contains:
//   - Tagged value representation (Value) with NaN-boxing at the boundary
//   - Heap of strings and lists with handle tables and mark-sweep GC
//   - Execution Context: run state machine, timeouts, async suspension
//   - Native function registry and argument helpers
//   - Standard operations: num, int, rand, str, utf8, list, struct, pickle, gc
//
// An embedder creates a Context from a compiled bytecode.Chunk and an IO set,
// registers natives, and calls Run until it reports a terminal result:
//
//	ctx := vm.New(chunk, vm.StdIO(os.Stdin, os.Stdout, os.Stderr))
//	defer ctx.Close()
//	ctx.Native("host.now", func(ctx *vm.Context, args []vm.Value) vm.Value {
//		return vm.Num(float64(time.Now().Unix()))
//	})
//	switch ctx.Run() {
//	case vm.RunPass:
//	case vm.RunFail:
//		log.Print(ctx.Err())
//	}
package vm
