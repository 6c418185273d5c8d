package vm

import (
	"math"
	"strconv"
	"strings"
)

// NumToStr formats a number the way programs print it: integral values
// without a decimal point, nan/inf by name, others in shortest form.
func NumToStr(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == 0:
		return "0"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ToStr converts v to a new string value.
func (ctx *Context) ToStr(v Value) Value {
	if v.IsStr() {
		return v
	}
	return ctx.NewStrString(ctx.ToString(v))
}

// ToString renders v as text. Strings print raw at the top level and quoted
// inside lists; a list containing itself prints {circular}.
func (ctx *Context) ToString(v Value) string {
	var sb strings.Builder
	ctx.writeStr(&sb, v, false, nil)
	return sb.String()
}

func (ctx *Context) writeStr(sb *strings.Builder, v Value, quoted bool, path []uint32) {
	switch v.kind {
	case KindNil, KindAsync:
		sb.WriteString("nil")
	case KindNum:
		sb.WriteString(NumToStr(v.Float()))
	case KindStr:
		s := ctx.heap.Str(v)
		if !quoted {
			sb.Write(s.Bytes)
			return
		}
		writeQuoted(sb, s.Bytes)
	case KindList:
		for _, p := range path {
			if p == v.slot() {
				sb.WriteString("{circular}")
				return
			}
		}
		path = append(path, v.slot())
		sb.WriteByte('{')
		for i, e := range ctx.heap.List(v).Vals {
			if i > 0 {
				sb.WriteString(", ")
			}
			ctx.writeStr(sb, e, true, path)
		}
		sb.WriteByte('}')
	}
}

const hexDigits = "0123456789ABCDEF"

func writeQuoted(sb *strings.Builder, b []byte) {
	sb.WriteByte('\'')
	for _, c := range b {
		switch {
		case c == '\'' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c < 0x20 || c >= 0x7F:
			sb.WriteString(`\x`)
			sb.WriteByte(hexDigits[c>>4])
			sb.WriteByte(hexDigits[c&15])
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('\'')
}
