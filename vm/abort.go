package vm

import "fmt"

// AbortError is the failure recorded by a program abort.
type AbortError struct {
	Message string
}

func (e *AbortError) Error() string {
	return e.Message
}

// Abort fails the running program with the values joined by spaces. It
// returns nil so natives can write `return ctx.Abort(...)`. The first abort
// wins.
func (ctx *Context) Abort(vals ...Value) Value {
	ctx.checkOpen()
	if ctx.failed {
		return Nil
	}
	ctx.failed = true
	ctx.errMsg = ctx.joinStr(vals)
	log.Debugf("context %s abort: %s", ctx.id, ctx.errMsg)
	return Nil
}

// Abortf fails the running program with a formatted message.
func (ctx *Context) Abortf(format string, args ...any) Value {
	ctx.checkOpen()
	if ctx.failed {
		return Nil
	}
	ctx.failed = true
	ctx.errMsg = fmt.Sprintf(format, args...)
	log.Debugf("context %s abort: %s", ctx.id, ctx.errMsg)
	return Nil
}

// Aborted reports whether an abort is pending or has ended the program.
func (ctx *Context) Aborted() bool { return ctx.failed }

// Exit says the values and ends the program with a pass.
func (ctx *Context) Exit(vals ...Value) Value {
	ctx.checkOpen()
	if len(vals) > 0 {
		ctx.Say(vals...)
	}
	ctx.exited = true
	return Nil
}
