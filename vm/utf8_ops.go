package vm

import "unicode/utf8"

// UTF8Valid reports whether a string holds valid UTF-8, or whether a list
// holds only valid codepoints.
func (ctx *Context) UTF8Valid(v Value) bool {
	switch v.kind {
	case KindStr:
		return utf8.Valid(ctx.heap.Str(v).Bytes)
	case KindList:
		for _, e := range ctx.heap.List(v).Vals {
			if !validCodepoint(e) {
				return false
			}
		}
		return true
	}
	return false
}

func validCodepoint(v Value) bool {
	if !v.IsNum() {
		return false
	}
	f := v.Float()
	if f != float64(int64(f)) || f < 0 || f > utf8.MaxRune {
		return false
	}
	return utf8.ValidRune(rune(f))
}

// UTF8List decodes a string into a list of codepoints, or nil if the string
// is not valid UTF-8.
func (ctx *Context) UTF8List(v Value) Value {
	if !v.IsStr() {
		return ctx.Abortf(errExpectingString)
	}
	b := ctx.heap.Str(v).Bytes
	if !utf8.Valid(b) {
		return Nil
	}
	vals := make([]Value, 0, utf8.RuneCount(b))
	for len(b) > 0 {
		r, n := utf8.DecodeRune(b)
		vals = append(vals, Num(float64(r)))
		b = b[n:]
	}
	return ctx.NewListGive(vals)
}

// UTF8Str encodes a list of codepoints, or returns nil if any element is not
// a valid codepoint.
func (ctx *Context) UTF8Str(v Value) Value {
	if !v.IsList() {
		return ctx.Abortf("Expecting list")
	}
	var out []byte
	for _, e := range ctx.heap.List(v).Vals {
		if !validCodepoint(e) {
			return Nil
		}
		out = utf8.AppendRune(out, rune(e.Float()))
	}
	return ctx.NewStrGive(out)
}

func init() {
	registerLib(map[string]LibFunc{
		"utf8.valid": func(ctx *Context, args []Value) Value { return Bool(ctx.UTF8Valid(arg(args, 0))) },
		"utf8.list":  func(ctx *Context, args []Value) Value { return ctx.UTF8List(arg(args, 0)) },
		"utf8.str":   func(ctx *Context, args []Value) Value { return ctx.UTF8Str(arg(args, 0)) },
	})
}
