package vm

import (
	"math"
	"math/bits"
)

// ToInt32 converts a number to a 32-bit two's-complement integer by
// truncating toward zero and wrapping modulo 2^32. NaN and infinities
// become 0.
func ToInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(uint32(int64(math.Mod(math.Trunc(f), 1<<32))))
}

func intUnary(f func(a int32) int32) LibFunc {
	return func(ctx *Context, args []Value) Value {
		return ctx.unop(arg(args, 0), func(x float64) float64 {
			return float64(f(ToInt32(x)))
		})
	}
}

func intBinary(f func(a, b int32) int32) LibFunc {
	return func(ctx *Context, args []Value) Value {
		return ctx.binop(arg(args, 0), arg(args, 1), func(x, y float64) float64 {
			return float64(f(ToInt32(x), ToInt32(y)))
		})
	}
}

func init() {
	registerLib(map[string]LibFunc{
		"int.new": intUnary(func(a int32) int32 { return a }),
		"int.not": intUnary(func(a int32) int32 { return ^a }),
		"int.clz": intUnary(func(a int32) int32 { return int32(bits.LeadingZeros32(uint32(a))) }),
		"int.pop": intUnary(func(a int32) int32 { return int32(bits.OnesCount32(uint32(a))) }),

		"int.bswap": intUnary(func(a int32) int32 {
			return int32(bits.ReverseBytes32(uint32(a)))
		}),

		"int.and": intBinary(func(a, b int32) int32 { return a & b }),
		"int.or":  intBinary(func(a, b int32) int32 { return a | b }),
		"int.xor": intBinary(func(a, b int32) int32 { return a ^ b }),
		"int.shl": intBinary(func(a, b int32) int32 { return a << (uint32(b) & 31) }),
		"int.shr": intBinary(func(a, b int32) int32 { return int32(uint32(a) >> (uint32(b) & 31)) }),
		"int.sar": intBinary(func(a, b int32) int32 { return a >> (uint32(b) & 31) }),
		"int.add": intBinary(func(a, b int32) int32 { return a + b }),
		"int.sub": intBinary(func(a, b int32) int32 { return a - b }),
		"int.mul": intBinary(func(a, b int32) int32 { return a * b }),
		"int.div": intBinary(func(a, b int32) int32 {
			if b == 0 {
				return 0
			}
			return a / b
		}),
		"int.mod": intBinary(func(a, b int32) int32 {
			if b == 0 {
				return 0
			}
			return a % b
		}),
	})
}
