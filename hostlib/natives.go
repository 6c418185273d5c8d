package hostlib

import (
	"errors"
	"math"
	"time"

	"github.com/chazu/sink/vm"
)

// Register installs the host natives on ctx.
func Register(ctx *vm.Context, h *Host) {
	ctx.Native("sleep", h.sleep)
	ctx.Native("time.now", h.timeNow)
	if h.Store != nil {
		ctx.Native("store.get", h.storeGet)
		ctx.Native("store.set", h.storeSet)
		ctx.Native("store.del", h.storeDel)
		ctx.Native("store.keys", h.storeKeys)
	}
	ctx.Cleanup(func() { h.Cancel(ctx) })
}

func (h *Host) sleep(ctx *vm.Context, args []vm.Value) vm.Value {
	ms, ok := ctx.ArgNum(args, 0)
	if !ok || math.IsNaN(ms) || ms < 0 {
		return ctx.Abortf("Expecting non-negative number of milliseconds")
	}
	if math.IsInf(ms, 1) {
		return ctx.Abortf("Cannot sleep forever")
	}
	d := time.Duration(ms * float64(time.Millisecond))
	return h.after(ctx, d, func(*vm.Context) vm.Value { return vm.Nil })
}

func (h *Host) timeNow(ctx *vm.Context, args []vm.Value) vm.Value {
	return vm.Num(float64(h.now().UnixMilli()))
}

func storeKey(ctx *vm.Context, args []vm.Value) (string, bool) {
	s, ok := ctx.ArgStr(args, 0)
	if !ok {
		ctx.Abortf("Expecting string key")
		return "", false
	}
	return s.String(), true
}

func (h *Host) storeGet(ctx *vm.Context, args []vm.Value) vm.Value {
	key, ok := storeKey(ctx, args)
	if !ok {
		return vm.Nil
	}
	data, err := h.Store.Get(key)
	if errors.Is(err, ErrNotFound) {
		return vm.Nil
	}
	if err != nil {
		return ctx.Abortf("store: %v", err)
	}
	return ctx.PickleVal(ctx.NewStr(data))
}

func (h *Host) storeSet(ctx *vm.Context, args []vm.Value) vm.Value {
	key, ok := storeKey(ctx, args)
	if !ok {
		return vm.Nil
	}
	v := vm.Nil
	if len(args) > 1 {
		v = args[1]
	}
	if err := h.Store.Set(key, ctx.PickleBinaryBytes(v)); err != nil {
		return ctx.Abortf("store: %v", err)
	}
	return v
}

func (h *Host) storeDel(ctx *vm.Context, args []vm.Value) vm.Value {
	key, ok := storeKey(ctx, args)
	if !ok {
		return vm.Nil
	}
	existed, err := h.Store.Delete(key)
	if err != nil {
		return ctx.Abortf("store: %v", err)
	}
	return vm.Bool(existed)
}

func (h *Host) storeKeys(ctx *vm.Context, args []vm.Value) vm.Value {
	prefix := ""
	if len(args) > 0 && !args[0].IsNil() {
		s, ok := ctx.ArgStr(args, 0)
		if !ok {
			return ctx.Abortf("Expecting string prefix")
		}
		prefix = s.String()
	}
	keys, err := h.Store.Keys(prefix)
	if err != nil {
		return ctx.Abortf("store: %v", err)
	}
	vals := make([]vm.Value, len(keys))
	for i, k := range keys {
		vals[i] = ctx.NewStrString(k)
	}
	return ctx.NewList(vals...)
}
