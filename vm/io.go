package vm

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// IO is the set of callbacks a context uses for program output and input.
// Nil callbacks discard output and make Ask return nil.
type IO struct {
	Say  func(ctx *Context, text string)
	Warn func(ctx *Context, text string)
	Ask  func(ctx *Context, prompt string) Value
}

// StdIO builds an IO set over the given streams. Ask writes the prompt to
// out and reads one line from in.
func StdIO(in io.Reader, out, errOut io.Writer) IO {
	r := bufio.NewReader(in)
	return IO{
		Say: func(ctx *Context, text string) {
			io.WriteString(out, text+"\n")
		},
		Warn: func(ctx *Context, text string) {
			io.WriteString(errOut, text+"\n")
		},
		Ask: func(ctx *Context, prompt string) Value {
			io.WriteString(out, prompt)
			line, err := r.ReadString('\n')
			if err != nil && (!errors.Is(err, io.EOF) || line == "") {
				return Nil
			}
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			return ctx.NewStrString(line)
		},
	}
}

func (ctx *Context) joinStr(vals []Value) string {
	var sb strings.Builder
	for i, v := range vals {
		if i > 0 {
			sb.WriteByte(' ')
		}
		ctx.writeStr(&sb, v, false, nil)
	}
	return sb.String()
}

// Say writes the values, joined by spaces, through the say callback.
func (ctx *Context) Say(vals ...Value) Value {
	ctx.checkOpen()
	if ctx.io.Say != nil {
		ctx.io.Say(ctx, ctx.joinStr(vals))
	}
	return Nil
}

// Warn writes the values, joined by spaces, through the warn callback.
func (ctx *Context) Warn(vals ...Value) Value {
	ctx.checkOpen()
	if ctx.io.Warn != nil {
		ctx.io.Warn(ctx, ctx.joinStr(vals))
	}
	return Nil
}

// Ask prompts with the values and returns the line read, or nil at end of
// input.
func (ctx *Context) Ask(vals ...Value) Value {
	ctx.checkOpen()
	if ctx.io.Ask == nil {
		return Nil
	}
	v := ctx.io.Ask(ctx, ctx.joinStr(vals))
	if v.IsAsync() {
		panic("vm: ask callback returned Async")
	}
	return v
}
