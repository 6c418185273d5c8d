package vm

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// PickleJSON serializes v as JSON. Strings are byte strings: bytes outside
// printable ASCII are written as \u00XX and read back as single bytes.
// Circular lists and non-finite numbers abort.
func (ctx *Context) PickleJSON(v Value) Value {
	var sb strings.Builder
	if !ctx.writeJSON(&sb, v, nil) {
		return Nil
	}
	return ctx.NewStrString(sb.String())
}

func (ctx *Context) writeJSON(sb *strings.Builder, v Value, path []uint32) bool {
	switch v.kind {
	case KindNum:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			ctx.Abortf("Cannot pickle non-finite number")
			return false
		}
		if f == math.Trunc(f) && math.Abs(f) < 1e21 {
			sb.WriteString(NumToStr(f))
		} else {
			sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		}
	case KindStr:
		writeJSONString(sb, ctx.heap.Str(v).Bytes)
	case KindList:
		for _, p := range path {
			if p == v.slot() {
				ctx.Abortf("Cannot pickle circular structure")
				return false
			}
		}
		path = append(path, v.slot())
		sb.WriteByte('[')
		for i, e := range ctx.heap.List(v).Vals {
			if i > 0 {
				sb.WriteByte(',')
			}
			if !ctx.writeJSON(sb, e, path) {
				return false
			}
		}
		sb.WriteByte(']')
	default:
		sb.WriteString("null")
	}
	return true
}

func writeJSONString(sb *strings.Builder, b []byte) {
	const hex = "0123456789abcdef"
	sb.WriteByte('"')
	for _, c := range b {
		switch c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if c < 0x20 || c >= 0x7F {
				sb.WriteString(`\u00`)
				sb.WriteByte(hex[c>>4])
				sb.WriteByte(hex[c&15])
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
}

// jsonParser reads the JSON pickle form. With a nil ctx it only validates
// and allocates nothing on the heap.
type jsonParser struct {
	b   []byte
	pos int
	ctx *Context
}

func (p *jsonParser) document() (Value, bool) {
	p.skipSpace()
	v, ok := p.value()
	if !ok {
		return Nil, false
	}
	p.skipSpace()
	return v, p.pos == len(p.b)
}

func (p *jsonParser) skipSpace() {
	for p.pos < len(p.b) {
		switch p.b[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *jsonParser) value() (Value, bool) {
	if p.pos >= len(p.b) {
		return Nil, false
	}
	switch c := p.b[p.pos]; {
	case c == 'n':
		if strings.HasPrefix(string(p.b[p.pos:min(p.pos+4, len(p.b))]), "null") {
			p.pos += 4
			return Nil, true
		}
		return Nil, false
	case c == '"':
		s, ok := p.str()
		if !ok {
			return Nil, false
		}
		if p.ctx == nil {
			return Nil, true
		}
		return p.ctx.NewStrGive(s), true
	case c == '[':
		return p.array()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.number()
	}
	return Nil, false
}

func (p *jsonParser) number() (Value, bool) {
	start := p.pos
	if p.b[p.pos] == '-' {
		p.pos++
	}
	digits := func() int {
		n := 0
		for p.pos < len(p.b) && p.b[p.pos] >= '0' && p.b[p.pos] <= '9' {
			p.pos++
			n++
		}
		return n
	}
	if p.pos < len(p.b) && p.b[p.pos] == '0' {
		p.pos++
	} else if digits() == 0 {
		return Nil, false
	}
	if p.pos < len(p.b) && p.b[p.pos] == '.' {
		p.pos++
		if digits() == 0 {
			return Nil, false
		}
	}
	if p.pos < len(p.b) && (p.b[p.pos] == 'e' || p.b[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.b) && (p.b[p.pos] == '+' || p.b[p.pos] == '-') {
			p.pos++
		}
		if digits() == 0 {
			return Nil, false
		}
	}
	f, err := strconv.ParseFloat(string(p.b[start:p.pos]), 64)
	if err != nil && !isRangeErr(err) {
		return Nil, false
	}
	return Num(f), true
}

func hexVal(b []byte) (rune, bool) {
	var r rune
	for _, c := range b {
		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		default:
			return 0, false
		}
		r = r<<4 | rune(d)
	}
	return r, true
}

func (p *jsonParser) hex4() (rune, bool) {
	if p.pos+4 > len(p.b) {
		return 0, false
	}
	r, ok := hexVal(p.b[p.pos : p.pos+4])
	p.pos += 4
	return r, ok
}

// str reads a quoted string. \u escapes below 0x100 decode to one byte;
// larger codepoints decode to UTF-8.
func (p *jsonParser) str() ([]byte, bool) {
	p.pos++
	var out []byte
	for p.pos < len(p.b) {
		c := p.b[p.pos]
		p.pos++
		switch {
		case c == '"':
			return out, true
		case c < 0x20:
			return nil, false
		case c != '\\':
			out = append(out, c)
			continue
		}
		if p.pos >= len(p.b) {
			return nil, false
		}
		esc := p.b[p.pos]
		p.pos++
		switch esc {
		case '"', '\\', '/':
			out = append(out, esc)
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'u':
			r, ok := p.hex4()
			if !ok {
				return nil, false
			}
			switch {
			case r < 0x100:
				out = append(out, byte(r))
			case utf16.IsSurrogate(r):
				if p.pos+2 > len(p.b) || p.b[p.pos] != '\\' || p.b[p.pos+1] != 'u' {
					return nil, false
				}
				p.pos += 2
				r2, ok := p.hex4()
				if !ok {
					return nil, false
				}
				full := utf16.DecodeRune(r, r2)
				if full == utf8.RuneError {
					return nil, false
				}
				out = utf8.AppendRune(out, full)
			default:
				out = utf8.AppendRune(out, r)
			}
		default:
			return nil, false
		}
	}
	return nil, false
}

func (p *jsonParser) array() (Value, bool) {
	p.pos++
	var vals []Value
	p.skipSpace()
	if p.pos < len(p.b) && p.b[p.pos] == ']' {
		p.pos++
		return p.list(vals), true
	}
	for {
		p.skipSpace()
		v, ok := p.value()
		if !ok {
			return Nil, false
		}
		if p.ctx != nil {
			vals = append(vals, v)
		}
		p.skipSpace()
		if p.pos >= len(p.b) {
			return Nil, false
		}
		switch p.b[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return p.list(vals), true
		default:
			return Nil, false
		}
	}
}

func (p *jsonParser) list(vals []Value) Value {
	if p.ctx == nil {
		return Nil
	}
	return p.ctx.NewListGive(vals)
}
