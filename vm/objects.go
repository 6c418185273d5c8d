package vm

// Shorthands over the context heap.

// NewStr allocates a string holding a copy of b.
func (ctx *Context) NewStr(b []byte) Value { return ctx.heap.NewStr(b) }

// NewStrGive allocates a string that takes ownership of b.
func (ctx *Context) NewStrGive(b []byte) Value { return ctx.heap.NewStrGive(b) }

// NewStrString allocates a string from a Go string.
func (ctx *Context) NewStrString(s string) Value { return ctx.heap.NewStrString(s) }

// NewList allocates a list holding a copy of vals.
func (ctx *Context) NewList(vals ...Value) Value { return ctx.heap.NewList(vals) }

// NewListGive allocates a list that takes ownership of vals.
func (ctx *Context) NewListGive(vals []Value) Value { return ctx.heap.NewListGive(vals) }

// Str resolves a string handle.
func (ctx *Context) Str(v Value) *StrObject { return ctx.heap.Str(v) }

// List resolves a list handle.
func (ctx *Context) List(v Value) *ListObject { return ctx.heap.List(v) }

// GoString returns the bytes of a string value as a Go string, or "" for
// any other kind.
func (ctx *Context) GoString(v Value) string {
	if !v.IsStr() {
		return ""
	}
	return string(ctx.heap.Str(v).Bytes)
}

// Size returns the length of a string or list, aborting on other kinds.
func (ctx *Context) Size(v Value) Value {
	switch v.kind {
	case KindStr:
		return Num(float64(ctx.heap.Str(v).Len()))
	case KindList:
		return Num(float64(ctx.heap.List(v).Len()))
	}
	return ctx.Abort(ctx.NewStrString("Expecting string or list for size"))
}

// TypeOf returns "nil", "num", "str" or "list".
func (ctx *Context) TypeOf(v Value) string {
	if v.IsAsync() {
		return "nil"
	}
	return v.kind.String()
}
