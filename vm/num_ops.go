package vm

import (
	"math"
	"math/big"
	"strings"
)

const errNumOrList = "Expecting number or list of numbers"

// ---------------------------------------------------------------------------
// Broadcasting
// ---------------------------------------------------------------------------

// unop applies f to a number or to every element of a list of numbers.
func (ctx *Context) unop(v Value, f func(x float64) float64) Value {
	if v.IsNum() {
		return Num(f(v.Float()))
	}
	if !v.IsList() {
		return ctx.Abortf(errNumOrList)
	}
	src := ctx.heap.List(v).Vals
	out := make([]Value, len(src))
	for i, e := range src {
		if !e.IsNum() {
			return ctx.Abortf(errNumOrList)
		}
		out[i] = Num(f(e.Float()))
	}
	return ctx.NewListGive(out)
}

// broadcastLen returns the result length when any operand is a list, or -1
// when every operand is a number.
func (ctx *Context) broadcastLen(vals ...Value) (int, bool) {
	n := -1
	for _, v := range vals {
		switch v.kind {
		case KindNum:
		case KindList:
			n = max(n, ctx.heap.List(v).Len())
		default:
			return 0, false
		}
	}
	return n, true
}

func (ctx *Context) elem(v Value, i int) (float64, bool) {
	if v.IsNum() {
		return v.Float(), true
	}
	e := ctx.heap.List(v).At(i)
	if !e.IsNum() {
		return 0, false
	}
	return e.Float(), true
}

// binop applies f elementwise. A number paired with a list is applied to
// every element; two lists pair by index and a missing element aborts.
func (ctx *Context) binop(a, b Value, f func(x, y float64) float64) Value {
	if a.IsNum() && b.IsNum() {
		return Num(f(a.Float(), b.Float()))
	}
	n, ok := ctx.broadcastLen(a, b)
	if !ok {
		return ctx.Abortf(errNumOrList)
	}
	out := make([]Value, n)
	for i := range out {
		x, ok1 := ctx.elem(a, i)
		y, ok2 := ctx.elem(b, i)
		if !ok1 || !ok2 {
			return ctx.Abortf(errNumOrList)
		}
		out[i] = Num(f(x, y))
	}
	return ctx.NewListGive(out)
}

// triop is the three operand form of binop.
func (ctx *Context) triop(a, b, c Value, f func(x, y, z float64) float64) Value {
	if a.IsNum() && b.IsNum() && c.IsNum() {
		return Num(f(a.Float(), b.Float(), c.Float()))
	}
	n, ok := ctx.broadcastLen(a, b, c)
	if !ok {
		return ctx.Abortf(errNumOrList)
	}
	out := make([]Value, n)
	for i := range out {
		x, ok1 := ctx.elem(a, i)
		y, ok2 := ctx.elem(b, i)
		z, ok3 := ctx.elem(c, i)
		if !ok1 || !ok2 || !ok3 {
			return ctx.Abortf(errNumOrList)
		}
		out[i] = Num(f(x, y, z))
	}
	return ctx.NewListGive(out)
}

// ---------------------------------------------------------------------------
// Arithmetic
// ---------------------------------------------------------------------------

func (ctx *Context) NumNeg(a Value) Value {
	return ctx.unop(a, func(x float64) float64 { return -x })
}

func (ctx *Context) NumAdd(a, b Value) Value {
	return ctx.binop(a, b, func(x, y float64) float64 { return x + y })
}

func (ctx *Context) NumSub(a, b Value) Value {
	return ctx.binop(a, b, func(x, y float64) float64 { return x - y })
}

func (ctx *Context) NumMul(a, b Value) Value {
	return ctx.binop(a, b, func(x, y float64) float64 { return x * y })
}

func (ctx *Context) NumDiv(a, b Value) Value {
	return ctx.binop(a, b, func(x, y float64) float64 { return x / y })
}

// NumMod is the floating-point remainder with the sign of the dividend.
func (ctx *Context) NumMod(a, b Value) Value {
	return ctx.binop(a, b, math.Mod)
}

func (ctx *Context) NumPow(a, b Value) Value {
	return ctx.binop(a, b, math.Pow)
}

func numSign(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return x
	case x < 0:
		return -1
	case x > 0:
		return 1
	}
	return 0
}

func numLerp(a, b, t float64) float64 { return a + (b-a)*t }

func numClamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// NumMax returns the largest number among the arguments. Lists are searched
// one level deep; non-numbers are skipped. No numbers yields nil.
func (ctx *Context) NumMax(vals ...Value) Value {
	return ctx.numPick(vals, func(x, best float64) bool { return x > best })
}

// NumMin is NumMax for the smallest number.
func (ctx *Context) NumMin(vals ...Value) Value {
	return ctx.numPick(vals, func(x, best float64) bool { return x < best })
}

func (ctx *Context) numPick(vals []Value, better func(x, best float64) bool) Value {
	found := false
	var best float64
	consider := func(v Value) {
		if !v.IsNum() {
			return
		}
		if !found || better(v.Float(), best) {
			best = v.Float()
			found = true
		}
	}
	for _, v := range vals {
		if v.IsList() {
			for _, e := range ctx.heap.List(v).Vals {
				consider(e)
			}
			continue
		}
		consider(v)
	}
	if !found {
		return Nil
	}
	return Num(best)
}

// NumBase formats the integer part of v in base 16, 8 or 2 with the "0x",
// "0c" or "0b" prefix, uppercase digits, and at least digits digits.
func (ctx *Context) NumBase(v Value, digits int, base int) Value {
	if !v.IsNum() {
		return ctx.Abortf("Expecting number")
	}
	f := v.Float()
	switch {
	case math.IsNaN(f):
		return ctx.NewStrString("nan")
	case math.IsInf(f, 1):
		return ctx.NewStrString("inf")
	case math.IsInf(f, -1):
		return ctx.NewStrString("-inf")
	}
	var prefix string
	switch base {
	case 16:
		prefix = "0x"
	case 8:
		prefix = "0c"
	case 2:
		prefix = "0b"
	default:
		panic("vm: unsupported base")
	}
	neg := f < 0
	n, _ := big.NewFloat(math.Trunc(math.Abs(f))).Int(nil)
	text := strings.ToUpper(n.Text(base))
	if pad := digits - len(text); pad > 0 {
		text = strings.Repeat("0", pad) + text
	}
	if neg && n.Sign() != 0 {
		return ctx.NewStrString("-" + prefix + text)
	}
	return ctx.NewStrString(prefix + text)
}

// ---------------------------------------------------------------------------
// Library table
// ---------------------------------------------------------------------------

func libUnary(f func(float64) float64) LibFunc {
	return func(ctx *Context, args []Value) Value {
		return ctx.unop(arg(args, 0), f)
	}
}

func libBinary(f func(x, y float64) float64) LibFunc {
	return func(ctx *Context, args []Value) Value {
		return ctx.binop(arg(args, 0), arg(args, 1), f)
	}
}

func libTernary(f func(x, y, z float64) float64) LibFunc {
	return func(ctx *Context, args []Value) Value {
		return ctx.triop(arg(args, 0), arg(args, 1), arg(args, 2), f)
	}
}

func libConst(f float64) LibFunc {
	return func(ctx *Context, args []Value) Value { return Num(f) }
}

func libNumBase(base int) LibFunc {
	return func(ctx *Context, args []Value) Value {
		digits := 0
		if d, ok := ctx.ArgNum(args, 1); ok && d > 0 {
			digits = int(min(d, 256))
		}
		return ctx.NumBase(arg(args, 0), digits, base)
	}
}

func init() {
	registerLib(map[string]LibFunc{
		"num.neg": func(ctx *Context, args []Value) Value { return ctx.NumNeg(arg(args, 0)) },
		"num.add": func(ctx *Context, args []Value) Value { return ctx.NumAdd(arg(args, 0), arg(args, 1)) },
		"num.sub": func(ctx *Context, args []Value) Value { return ctx.NumSub(arg(args, 0), arg(args, 1)) },
		"num.mul": func(ctx *Context, args []Value) Value { return ctx.NumMul(arg(args, 0), arg(args, 1)) },
		"num.div": func(ctx *Context, args []Value) Value { return ctx.NumDiv(arg(args, 0), arg(args, 1)) },
		"num.mod": func(ctx *Context, args []Value) Value { return ctx.NumMod(arg(args, 0), arg(args, 1)) },
		"num.pow": func(ctx *Context, args []Value) Value { return ctx.NumPow(arg(args, 0), arg(args, 1)) },

		"num.abs":   libUnary(math.Abs),
		"num.sign":  libUnary(numSign),
		"num.floor": libUnary(math.Floor),
		"num.ceil":  libUnary(math.Ceil),
		"num.round": libUnary(math.Round),
		"num.trunc": libUnary(math.Trunc),
		"num.sin":   libUnary(math.Sin),
		"num.cos":   libUnary(math.Cos),
		"num.tan":   libUnary(math.Tan),
		"num.asin":  libUnary(math.Asin),
		"num.acos":  libUnary(math.Acos),
		"num.atan":  libUnary(math.Atan),
		"num.log":   libUnary(math.Log),
		"num.log2":  libUnary(math.Log2),
		"num.log10": libUnary(math.Log10),
		"num.exp":   libUnary(math.Exp),
		"num.atan2": libBinary(math.Atan2),
		"num.clamp": libTernary(numClamp),
		"num.lerp":  libTernary(numLerp),

		"num.max": func(ctx *Context, args []Value) Value { return ctx.NumMax(args...) },
		"num.min": func(ctx *Context, args []Value) Value { return ctx.NumMin(args...) },

		"num.nan": func(ctx *Context, args []Value) Value { return NaN() },
		"num.inf": func(ctx *Context, args []Value) Value { return Inf() },
		"num.e":   libConst(math.E),
		"num.pi":  libConst(math.Pi),
		"num.tau": libConst(2 * math.Pi),

		"num.isnan": func(ctx *Context, args []Value) Value {
			v := arg(args, 0)
			return Bool(v.IsNum() && math.IsNaN(v.Float()))
		},
		"num.isfinite": func(ctx *Context, args []Value) Value {
			v := arg(args, 0)
			return Bool(v.IsNum() && !math.IsNaN(v.Float()) && !math.IsInf(v.Float(), 0))
		},

		"num.hex": libNumBase(16),
		"num.oct": libNumBase(8),
		"num.bin": libNumBase(2),
	})
}
