package vm

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"
)

const errExpectingString = "Expecting string"

// fixSlice clamps a (start, length) pair against size. A nil start means 0
// and a nil length means "to the end". A negative start counts from the end;
// a start still before 0 shortens the length by the overshoot.
func fixSlice(start, length Value, size int) (int, int) {
	st := 0.0
	if start.IsNum() {
		st = math.Round(start.Float())
		if math.IsNaN(st) {
			st = 0
		}
	}
	ln := float64(size) - st
	if length.IsNum() {
		ln = math.Round(length.Float())
		if math.IsNaN(ln) {
			ln = 0
		}
	}
	if st < 0 {
		st += float64(size)
		if st < 0 {
			ln += st
			st = 0
		}
	}
	if st >= float64(size) {
		return 0, 0
	}
	if ln < 0 {
		ln = 0
	}
	if st+ln > float64(size) {
		ln = float64(size) - st
	}
	return int(st), int(ln)
}

func validSliceArgs(start, length Value) bool {
	return (start.IsNil() || start.IsNum()) && (length.IsNil() || length.IsNum())
}

func (ctx *Context) strArg(args []Value, i int) ([]byte, bool) {
	s, ok := ctx.ArgStr(args, i)
	if !ok {
		return nil, false
	}
	return s.Bytes, true
}

// ---------------------------------------------------------------------------
// Go-facing operations
// ---------------------------------------------------------------------------

// StrSlice returns the clamped byte range of s.
func (ctx *Context) StrSlice(s, start, length Value) Value {
	if !s.IsStr() {
		return ctx.Abortf(errExpectingString)
	}
	if !validSliceArgs(start, length) {
		return ctx.Abortf("Expecting number")
	}
	b := ctx.heap.Str(s).Bytes
	st, ln := fixSlice(start, length, len(b))
	if st == 0 && ln == len(b) {
		return s
	}
	return ctx.NewStr(b[st : st+ln])
}

// StrSplice replaces the clamped range of s with ins, returning a new string.
func (ctx *Context) StrSplice(s, start, length, ins Value) Value {
	if !s.IsStr() {
		return ctx.Abortf(errExpectingString)
	}
	if !validSliceArgs(start, length) {
		return ctx.Abortf("Expecting number")
	}
	b := ctx.heap.Str(s).Bytes
	st, ln := fixSlice(start, length, len(b))
	var mid []byte
	if !ins.IsNil() {
		mid = []byte(ctx.ToString(ins))
	}
	out := make([]byte, 0, len(b)-ln+len(mid))
	out = append(out, b[:st]...)
	out = append(out, mid...)
	out = append(out, b[st+ln:]...)
	return ctx.NewStrGive(out)
}

// StrLower maps ASCII letters to lower case.
func (ctx *Context) StrLower(s Value) Value {
	return ctx.strMap(s, func(c byte) byte {
		if c >= 'A' && c <= 'Z' {
			return c + ('a' - 'A')
		}
		return c
	})
}

// StrUpper maps ASCII letters to upper case.
func (ctx *Context) StrUpper(s Value) Value {
	return ctx.strMap(s, func(c byte) byte {
		if c >= 'a' && c <= 'z' {
			return c - ('a' - 'A')
		}
		return c
	})
}

func (ctx *Context) strMap(s Value, f func(c byte) byte) Value {
	if !s.IsStr() {
		return ctx.Abortf(errExpectingString)
	}
	b := ctx.heap.Str(s).Bytes
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = f(c)
	}
	return ctx.NewStrGive(out)
}

// findFrom resolves the starting position of a search. Nil and NaN give
// def; negative positions count back from size. The result is unclamped.
func findFrom(from Value, size int, def float64) float64 {
	if !from.IsNum() {
		return def
	}
	f := math.Round(from.Float())
	if math.IsNaN(f) {
		return def
	}
	if f < 0 {
		f += float64(size)
	}
	return f
}

// StrFind returns the index of the first occurrence of needle at or after
// from, or nil.
func (ctx *Context) StrFind(s, needle, from Value) Value {
	if !s.IsStr() || !needle.IsStr() {
		return ctx.Abortf(errExpectingString)
	}
	hay := ctx.heap.Str(s).Bytes
	nb := ctx.heap.Str(needle).Bytes
	f := findFrom(from, len(hay), 0)
	if f > float64(len(hay)) {
		return Nil
	}
	st := int(math.Max(0, f))
	i := bytes.Index(hay[st:], nb)
	if i < 0 {
		return Nil
	}
	return Num(float64(st + i))
}

// StrRFind returns the index of the last occurrence of needle starting at
// or before from, or nil.
func (ctx *Context) StrRFind(s, needle, from Value) Value {
	if !s.IsStr() || !needle.IsStr() {
		return ctx.Abortf(errExpectingString)
	}
	hay := ctx.heap.Str(s).Bytes
	nb := ctx.heap.Str(needle).Bytes
	f := findFrom(from, len(hay), float64(len(hay)))
	if f < 0 {
		return Nil
	}
	end := int(math.Min(f, float64(len(hay)))) + len(nb)
	if end > len(hay) {
		end = len(hay)
	}
	i := bytes.LastIndex(hay[:end], nb)
	if i < 0 {
		return Nil
	}
	return Num(float64(i))
}

// StrSplit splits s on sep. An empty separator splits into single bytes.
func (ctx *Context) StrSplit(s, sep Value) Value {
	if !s.IsStr() || !sep.IsStr() {
		return ctx.Abortf(errExpectingString)
	}
	b := ctx.heap.Str(s).Bytes
	sb := ctx.heap.Str(sep).Bytes
	var parts [][]byte
	if len(sb) == 0 {
		parts = make([][]byte, len(b))
		for i := range b {
			parts[i] = b[i : i+1]
		}
	} else {
		parts = bytes.Split(b, sb)
	}
	vals := make([]Value, len(parts))
	for i, p := range parts {
		vals[i] = ctx.NewStr(p)
	}
	return ctx.NewListGive(vals)
}

// StrReplace replaces every occurrence of old with repl. An empty old
// leaves s unchanged.
func (ctx *Context) StrReplace(s, old, repl Value) Value {
	if !s.IsStr() || !old.IsStr() || !repl.IsStr() {
		return ctx.Abortf(errExpectingString)
	}
	ob := ctx.heap.Str(old).Bytes
	if len(ob) == 0 {
		return s
	}
	return ctx.NewStrGive(bytes.ReplaceAll(ctx.heap.Str(s).Bytes, ob, ctx.heap.Str(repl).Bytes))
}

// StrPad pads s with spaces to width n: on the right for positive n, on
// the left for negative n.
func (ctx *Context) StrPad(s Value, n float64) Value {
	if !s.IsStr() {
		return ctx.Abortf(errExpectingString)
	}
	b := ctx.heap.Str(s).Bytes
	width := math.Abs(math.Round(n))
	if math.IsNaN(width) || width <= float64(len(b)) {
		return s
	}
	if width > maxListLen {
		return ctx.Abortf("Padding too large")
	}
	fill := bytes.Repeat([]byte{' '}, int(width)-len(b))
	if n < 0 {
		return ctx.NewStrGive(append(fill, b...))
	}
	return ctx.NewStrGive(append(append([]byte{}, b...), fill...))
}

// StrHash returns the 128-bit murmur3 hash of s as four 32-bit numbers.
func (ctx *Context) StrHash(s Value, seed uint32) Value {
	if !s.IsStr() {
		return ctx.Abortf(errExpectingString)
	}
	h1, h2 := murmur3.Sum128WithSeed(ctx.heap.Str(s).Bytes, seed)
	return ctx.NewList(
		Num(float64(uint32(h1))),
		Num(float64(uint32(h1>>32))),
		Num(float64(uint32(h2))),
		Num(float64(uint32(h2>>32))),
	)
}

// ParseNum parses a number literal: decimal with optional exponent, or an
// integer with a 0x, 0c or 0b prefix. Underscores separate digits.
func ParseNum(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if s == "" {
		return 0, false
	}
	var f float64
	if len(s) > 2 && s[0] == '0' && strings.ContainsRune("xcb", rune(s[1])) {
		base := map[byte]float64{'x': 16, 'c': 8, 'b': 2}[s[1]]
		digits := 0
		for _, c := range s[2:] {
			if c == '_' {
				continue
			}
			d := strings.IndexRune("0123456789abcdef", c|0x20)
			if d < 0 || float64(d) >= base {
				return 0, false
			}
			f = f*base + float64(d)
			digits++
		}
		if digits == 0 {
			return 0, false
		}
	} else {
		clean := strings.ReplaceAll(s, "_", "")
		for _, c := range clean {
			if !strings.ContainsRune("0123456789.eE+-", c) {
				return 0, false
			}
		}
		if clean == "" || clean[0] < '0' && clean[0] != '.' {
			return 0, false
		}
		var err error
		f, err = strconv.ParseFloat(clean, 64)
		if err != nil && !isRangeErr(err) {
			return 0, false
		}
	}
	if neg {
		f = -f
	}
	return f, true
}

func isRangeErr(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

// ---------------------------------------------------------------------------
// Library table
// ---------------------------------------------------------------------------

func libStrUnary(f func(ctx *Context, s Value) Value) LibFunc {
	return func(ctx *Context, args []Value) Value { return f(ctx, arg(args, 0)) }
}

func init() {
	registerLib(map[string]LibFunc{
		"str.new": func(ctx *Context, args []Value) Value {
			return ctx.NewStrString(ctx.joinStr(args))
		},
		"str.cat": func(ctx *Context, args []Value) Value {
			var sb strings.Builder
			for _, v := range args {
				ctx.writeStr(&sb, v, false, nil)
			}
			return ctx.NewStrString(sb.String())
		},
		"str.at": func(ctx *Context, args []Value) Value {
			if !arg(args, 0).IsStr() {
				return ctx.Abortf(errExpectingString)
			}
			return ctx.index(arg(args, 0), arg(args, 1))
		},
		"str.tonum": func(ctx *Context, args []Value) Value {
			b, ok := ctx.strArg(args, 0)
			if !ok {
				return ctx.Abortf(errExpectingString)
			}
			f, ok := ParseNum(string(b))
			if !ok {
				return Nil
			}
			return Num(f)
		},
		"str.slice": func(ctx *Context, args []Value) Value {
			return ctx.StrSlice(arg(args, 0), arg(args, 1), arg(args, 2))
		},
		"str.splice": func(ctx *Context, args []Value) Value {
			return ctx.StrSplice(arg(args, 0), arg(args, 1), arg(args, 2), arg(args, 3))
		},
		"str.split": func(ctx *Context, args []Value) Value {
			return ctx.StrSplit(arg(args, 0), arg(args, 1))
		},
		"str.replace": func(ctx *Context, args []Value) Value {
			return ctx.StrReplace(arg(args, 0), arg(args, 1), arg(args, 2))
		},
		"str.begins": func(ctx *Context, args []Value) Value {
			a, ok1 := ctx.strArg(args, 0)
			b, ok2 := ctx.strArg(args, 1)
			if !ok1 || !ok2 {
				return ctx.Abortf(errExpectingString)
			}
			return Bool(bytes.HasPrefix(a, b))
		},
		"str.ends": func(ctx *Context, args []Value) Value {
			a, ok1 := ctx.strArg(args, 0)
			b, ok2 := ctx.strArg(args, 1)
			if !ok1 || !ok2 {
				return ctx.Abortf(errExpectingString)
			}
			return Bool(bytes.HasSuffix(a, b))
		},
		"str.pad": func(ctx *Context, args []Value) Value {
			n, _ := ctx.ArgNum(args, 1)
			return ctx.StrPad(arg(args, 0), n)
		},
		"str.find": func(ctx *Context, args []Value) Value {
			return ctx.StrFind(arg(args, 0), arg(args, 1), arg(args, 2))
		},
		"str.rfind": func(ctx *Context, args []Value) Value {
			return ctx.StrRFind(arg(args, 0), arg(args, 1), arg(args, 2))
		},
		"str.lower": libStrUnary((*Context).StrLower),
		"str.upper": libStrUnary((*Context).StrUpper),
		"str.trim": func(ctx *Context, args []Value) Value {
			b, ok := ctx.strArg(args, 0)
			if !ok {
				return ctx.Abortf(errExpectingString)
			}
			return ctx.NewStr(bytes.Trim(b, " \t\r\n\v\f"))
		},
		"str.rev": func(ctx *Context, args []Value) Value {
			b, ok := ctx.strArg(args, 0)
			if !ok {
				return ctx.Abortf(errExpectingString)
			}
			out := make([]byte, len(b))
			for i, c := range b {
				out[len(b)-1-i] = c
			}
			return ctx.NewStrGive(out)
		},
		"str.rep": func(ctx *Context, args []Value) Value {
			b, ok := ctx.strArg(args, 0)
			if !ok {
				return ctx.Abortf(errExpectingString)
			}
			n, _ := ctx.ArgNum(args, 1)
			n = math.Floor(n)
			if math.IsNaN(n) || n <= 0 || len(b) == 0 {
				return ctx.NewStrString("")
			}
			if n*float64(len(b)) > maxListLen {
				return ctx.Abortf("Constructed string is too large")
			}
			return ctx.NewStrGive(bytes.Repeat(b, int(n)))
		},
		"str.list": func(ctx *Context, args []Value) Value {
			b, ok := ctx.strArg(args, 0)
			if !ok {
				return ctx.Abortf(errExpectingString)
			}
			vals := make([]Value, len(b))
			for i, c := range b {
				vals[i] = Num(float64(c))
			}
			return ctx.NewListGive(vals)
		},
		"str.byte": func(ctx *Context, args []Value) Value {
			b, ok := ctx.strArg(args, 0)
			if !ok {
				return ctx.Abortf(errExpectingString)
			}
			f, _ := ctx.ArgNum(args, 1)
			i, ok := resolveIndex(f, len(b))
			if !ok {
				return Nil
			}
			return Num(float64(b[i]))
		},
		"str.hash": func(ctx *Context, args []Value) Value {
			seed, _ := ctx.ArgNum(args, 1)
			return ctx.StrHash(arg(args, 0), uint32(ToInt32(seed)))
		},
	})
}
