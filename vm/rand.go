package vm

import (
	"math"
	"time"
)

// randState is the generator state: a 32-bit seed mixed with a counter.
type randState struct {
	seed uint32
	i    uint32
}

// Seed resets the generator.
func (ctx *Context) Seed(n uint32) {
	ctx.rand.seed = n
	ctx.rand.i = 0
}

// SeedAuto seeds the generator from the clock.
func (ctx *Context) SeedAuto() {
	now := uint64(time.Now().UnixNano())
	ctx.Seed(uint32(now) ^ uint32(now>>32))
	for i := 0; i < 1000; i++ {
		ctx.RandInt()
	}
	ctx.rand.i = 0
}

// RandInt returns the next 32-bit output.
func (ctx *Context) RandInt() uint32 {
	const m = 0x5bd1e995
	k := ctx.rand.i * m
	ctx.rand.i++
	ctx.rand.seed = (k ^ (k >> 24) ^ (ctx.rand.seed * m)) * m
	return ctx.rand.seed ^ (ctx.rand.seed >> 13)
}

// RandNum returns a number in [0, 1) built from 52 random bits.
func (ctx *Context) RandNum() float64 {
	m1 := uint64(ctx.RandInt())
	m2 := uint64(ctx.RandInt())
	m := m1<<20 | m2>>12
	return math.Float64frombits(0x3FF<<52|m) - 1
}

// RandState exports the generator state as {seed, i}.
func (ctx *Context) RandState() Value {
	return ctx.NewList(Num(float64(ctx.rand.seed)), Num(float64(ctx.rand.i)))
}

// SetRandState imports a state produced by RandState.
func (ctx *Context) SetRandState(v Value) Value {
	if !v.IsList() {
		return ctx.Abortf("Expecting list of two integers")
	}
	l := ctx.heap.List(v)
	if l.Len() != 2 || !l.Vals[0].IsNum() || !l.Vals[1].IsNum() {
		return ctx.Abortf("Expecting list of two integers")
	}
	ctx.rand.seed = uint32(ToInt32(l.Vals[0].Float()))
	ctx.rand.i = uint32(ToInt32(l.Vals[1].Float()))
	return Nil
}

// randIndex draws a uniform index in [0, n) by rejection sampling on 32-bit
// outputs.
func (ctx *Context) randIndex(n int) int {
	if n <= 1 {
		return 0
	}
	bound := uint64(n)
	limit := (1 << 32) - (1<<32)%bound
	for {
		r := uint64(ctx.RandInt())
		if r < limit {
			return int(r % bound)
		}
	}
}

// RandPick returns a random element of a list, or nil for an empty list.
func (ctx *Context) RandPick(v Value) Value {
	if !v.IsList() {
		return ctx.Abortf("Expecting list")
	}
	l := ctx.heap.List(v)
	if l.Len() == 0 {
		return Nil
	}
	return l.Vals[ctx.randIndex(l.Len())]
}

// RandShuffle shuffles a list in place (Fisher-Yates) and returns it.
func (ctx *Context) RandShuffle(v Value) Value {
	if !v.IsList() {
		return ctx.Abortf("Expecting list")
	}
	vals := ctx.heap.List(v).Vals
	for i := len(vals) - 1; i > 0; i-- {
		j := ctx.randIndex(i + 1)
		vals[i], vals[j] = vals[j], vals[i]
	}
	return v
}

func init() {
	registerLib(map[string]LibFunc{
		"rand.seed": func(ctx *Context, args []Value) Value {
			n, ok := ctx.ArgNum(args, 0)
			if !ok {
				return ctx.Abortf("Expecting number")
			}
			ctx.Seed(uint32(ToInt32(n)))
			return Nil
		},
		"rand.seedauto": func(ctx *Context, args []Value) Value {
			ctx.SeedAuto()
			return Nil
		},
		"rand.int": func(ctx *Context, args []Value) Value {
			return Num(float64(ctx.RandInt()))
		},
		"rand.num": func(ctx *Context, args []Value) Value {
			return Num(ctx.RandNum())
		},
		"rand.getstate": func(ctx *Context, args []Value) Value {
			return ctx.RandState()
		},
		"rand.setstate": func(ctx *Context, args []Value) Value {
			return ctx.SetRandState(arg(args, 0))
		},
		"rand.pick": func(ctx *Context, args []Value) Value {
			return ctx.RandPick(arg(args, 0))
		},
		"rand.shuffle": func(ctx *Context, args []Value) Value {
			return ctx.RandShuffle(arg(args, 0))
		},
	})
}
