package vm

import (
	"fmt"
	"math"
	"sort"
)

// LibFunc is a standard library operation callable by name from bytecode.
type LibFunc func(ctx *Context, args []Value) Value

var libTable = make(map[string]LibFunc)

func registerLib(fns map[string]LibFunc) {
	for name, fn := range fns {
		if _, dup := libTable[name]; dup {
			panic(fmt.Sprintf("vm: library function %s registered twice", name))
		}
		libTable[name] = fn
	}
}

// LibNames returns every library function name in sorted order.
func LibNames() []string {
	names := make([]string, 0, len(libTable))
	for name := range libTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasLib reports whether name is a library function.
func HasLib(name string) bool {
	_, ok := libTable[name]
	return ok
}

// CallLib invokes library function name. Unknown names abort.
func (ctx *Context) CallLib(name string, args []Value) Value {
	fn, ok := libTable[name]
	if !ok {
		return ctx.Abortf("unknown library function: %s", name)
	}
	return fn(ctx, args)
}

// Range builds the list start, start+step, ... stopping before stop.
func (ctx *Context) Range(start, stop, step float64) Value {
	if step == 0 || math.IsNaN(step) || math.IsNaN(start) || math.IsNaN(stop) {
		return ctx.Abortf("Invalid range")
	}
	count := math.Ceil((stop - start) / step)
	if count <= 0 {
		return ctx.NewListGive(nil)
	}
	if count > 1<<26 {
		return ctx.Abortf("Range too large")
	}
	vals := make([]Value, int(count))
	for i := range vals {
		vals[i] = Num(start + float64(i)*step)
	}
	return ctx.NewListGive(vals)
}

func libRange(ctx *Context, args []Value) Value {
	start, ok := ctx.ArgNum(args, 0)
	if !ok {
		return ctx.Abortf("Expecting number for range")
	}
	if len(args) < 2 {
		return ctx.Range(0, start, 1)
	}
	stop, ok := ctx.ArgNum(args, 1)
	if !ok {
		return ctx.Abortf("Expecting number for range")
	}
	step := 1.0
	if len(args) >= 3 {
		if step, ok = ctx.ArgNum(args, 2); !ok {
			return ctx.Abortf("Expecting number for range")
		}
	}
	return ctx.Range(start, stop, step)
}

func init() {
	registerLib(map[string]LibFunc{
		"tostr": func(ctx *Context, args []Value) Value { return ctx.ToStr(arg(args, 0)) },
		"size":  func(ctx *Context, args []Value) Value { return ctx.Size(arg(args, 0)) },
		"type":  func(ctx *Context, args []Value) Value { return ctx.NewStrString(ctx.TypeOf(arg(args, 0))) },
		"isnil": func(ctx *Context, args []Value) Value { return Bool(arg(args, 0).IsNil()) },
		"isnum": func(ctx *Context, args []Value) Value { return Bool(arg(args, 0).IsNum()) },
		"isstr": func(ctx *Context, args []Value) Value { return Bool(arg(args, 0).IsStr()) },
		"islist": func(ctx *Context, args []Value) Value {
			return Bool(arg(args, 0).IsList())
		},
		"isnative": func(ctx *Context, args []Value) Value {
			s, ok := ctx.ArgStr(args, 0)
			return Bool(ok && ctx.HasNative(s.String()))
		},
		"order": func(ctx *Context, args []Value) Value {
			return Num(float64(ctx.Order(arg(args, 0), arg(args, 1))))
		},
		"range": libRange,

		"gc.getlevel": func(ctx *Context, args []Value) Value {
			return ctx.NewStrString(ctx.GCLevel().String())
		},
		"gc.setlevel": func(ctx *Context, args []Value) Value {
			s, ok := ctx.ArgStr(args, 0)
			if !ok {
				return ctx.Abortf("Expecting one of 'none', 'default', or 'lowmem'")
			}
			level, err := ParseGCLevel(s.String())
			if err != nil || s.Len() == 0 {
				return ctx.Abortf("Expecting one of 'none', 'default', or 'lowmem'")
			}
			ctx.SetGCLevel(level)
			return Nil
		},
		"gc.run": func(ctx *Context, args []Value) Value {
			ctx.GC()
			return Nil
		},
	})
}
