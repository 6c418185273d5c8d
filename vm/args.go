package vm

// Argument helpers validate position and kind without aborting, so the
// calling native can choose its own error message.

// ArgBool returns the truthiness of args[i]; missing arguments are false.
func (ctx *Context) ArgBool(args []Value, i int) bool {
	if i < 0 || i >= len(args) {
		return false
	}
	return args[i].IsTrue()
}

// ArgNum returns args[i] when it is a number.
func (ctx *Context) ArgNum(args []Value, i int) (float64, bool) {
	if i < 0 || i >= len(args) || !args[i].IsNum() {
		return 0, false
	}
	return args[i].Float(), true
}

// ArgStr returns the string object at args[i].
func (ctx *Context) ArgStr(args []Value, i int) (*StrObject, bool) {
	if i < 0 || i >= len(args) || !args[i].IsStr() {
		return nil, false
	}
	return ctx.heap.Str(args[i]), true
}

// ArgList returns the list object at args[i].
func (ctx *Context) ArgList(args []Value, i int) (*ListObject, bool) {
	if i < 0 || i >= len(args) || !args[i].IsList() {
		return nil, false
	}
	return ctx.heap.List(args[i]), true
}

// ArgUser returns the host value of args[i] when it is tagged with ut.
func (ctx *Context) ArgUser(args []Value, i int, ut UserType) (any, bool) {
	if i < 0 || i >= len(args) {
		return nil, false
	}
	return ctx.ListGetUser(args[i], ut)
}

func arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Nil
}
