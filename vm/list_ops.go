package vm

import (
	"math"
	"strings"
)

const errExpectingList = "Expecting list"

// ListSlice copies the clamped range of a list into a new list.
func (ctx *Context) ListSlice(ls, start, length Value) Value {
	if !ls.IsList() {
		return ctx.Abortf(errExpectingList)
	}
	if !validSliceArgs(start, length) {
		return ctx.Abortf("Expecting number")
	}
	vals := ctx.heap.List(ls).Vals
	st, ln := fixSlice(start, length, len(vals))
	return ctx.heap.NewList(vals[st : st+ln])
}

// ListSplice removes the clamped range from ls in place and inserts the
// elements of ins (a list, or nil for none). It returns ls.
func (ctx *Context) ListSplice(ls, start, length, ins Value) Value {
	if !ls.IsList() {
		return ctx.Abortf(errExpectingList)
	}
	if !validSliceArgs(start, length) {
		return ctx.Abortf("Expecting number")
	}
	if !ins.IsNil() && !ins.IsList() {
		return ctx.Abortf("Expecting list or nil for insertion")
	}
	l := ctx.heap.List(ls)
	st, ln := fixSlice(start, length, l.Len())
	var insVals []Value
	if ins.IsList() {
		src := ctx.heap.List(ins).Vals
		insVals = make([]Value, len(src))
		copy(insVals, src)
	}
	l.Splice(st, ln, insVals)
	return ls
}

// ListFind returns the index of the first element equal to v at or after
// from, or nil.
func (ctx *Context) ListFind(ls, v, from Value) Value {
	if !ls.IsList() {
		return ctx.Abortf(errExpectingList)
	}
	vals := ctx.heap.List(ls).Vals
	f := findFrom(from, len(vals), 0)
	st := int(math.Max(0, math.Min(f, float64(len(vals)))))
	for i := st; i < len(vals); i++ {
		if ctx.Equal(vals[i], v) {
			return Num(float64(i))
		}
	}
	return Nil
}

// ListRFind returns the index of the last element equal to v at or before
// from, or nil.
func (ctx *Context) ListRFind(ls, v, from Value) Value {
	if !ls.IsList() {
		return ctx.Abortf(errExpectingList)
	}
	vals := ctx.heap.List(ls).Vals
	f := findFrom(from, len(vals), float64(len(vals)-1))
	if f < 0 {
		return Nil
	}
	st := int(math.Min(f, float64(len(vals)-1)))
	for i := st; i >= 0; i-- {
		if ctx.Equal(vals[i], v) {
			return Num(float64(i))
		}
	}
	return Nil
}

// ListJoin joins the string forms of the elements with sep.
func (ctx *Context) ListJoin(ls, sep Value) Value {
	if !ls.IsList() {
		return ctx.Abortf(errExpectingList)
	}
	s := ""
	if !sep.IsNil() {
		s = ctx.ToString(sep)
	}
	var sb strings.Builder
	for i, v := range ctx.heap.List(ls).Vals {
		if i > 0 {
			sb.WriteString(s)
		}
		ctx.writeStr(&sb, v, false, nil)
	}
	return ctx.NewStrString(sb.String())
}

// ListSort sorts ls in place, stable, under Order. It returns ls.
func (ctx *Context) ListSort(ls Value, reverse bool) Value {
	if !ls.IsList() {
		return ctx.Abortf(errExpectingList)
	}
	if !ctx.sortValues(ctx.heap.List(ls).Vals, reverse) {
		return ctx.Abortf("Cannot sort circular lists")
	}
	return ls
}

// ListStr builds a string from a list of byte values.
func (ctx *Context) ListStr(ls Value) Value {
	if !ls.IsList() {
		return ctx.Abortf(errExpectingList)
	}
	vals := ctx.heap.List(ls).Vals
	out := make([]byte, len(vals))
	for i, v := range vals {
		if !v.IsNum() {
			return ctx.Abortf("Expecting list of integers from 0 to 255")
		}
		f := math.Floor(v.Float())
		if !(f >= 0 && f < 256) {
			return ctx.Abortf("Expecting list of integers from 0 to 255")
		}
		out[i] = byte(f)
	}
	return ctx.NewStrGive(out)
}

func (ctx *Context) listArg(args []Value, i int) (*ListObject, bool) {
	l, ok := ctx.ArgList(args, i)
	if !ok {
		ctx.Abortf(errExpectingList)
	}
	return l, ok
}

func init() {
	registerLib(map[string]LibFunc{
		"list.new": func(ctx *Context, args []Value) Value {
			n, ok := ctx.ArgNum(args, 0)
			n = math.Floor(n)
			if !ok || !(n >= 0) || n > maxListLen {
				return ctx.Abortf("Expecting size for list")
			}
			vals := make([]Value, int(n))
			fill := arg(args, 1)
			for i := range vals {
				vals[i] = fill
			}
			return ctx.NewListGive(vals)
		},
		"list.at": func(ctx *Context, args []Value) Value {
			if !arg(args, 0).IsList() {
				return ctx.Abortf(errExpectingList)
			}
			return ctx.index(arg(args, 0), arg(args, 1))
		},
		"list.cat": func(ctx *Context, args []Value) Value {
			var vals []Value
			for i := range args {
				l, ok := ctx.listArg(args, i)
				if !ok {
					return Nil
				}
				vals = append(vals, l.Vals...)
			}
			return ctx.NewListGive(vals)
		},
		"list.slice": func(ctx *Context, args []Value) Value {
			return ctx.ListSlice(arg(args, 0), arg(args, 1), arg(args, 2))
		},
		"list.splice": func(ctx *Context, args []Value) Value {
			return ctx.ListSplice(arg(args, 0), arg(args, 1), arg(args, 2), arg(args, 3))
		},
		"list.shift": func(ctx *Context, args []Value) Value {
			l, ok := ctx.listArg(args, 0)
			if !ok {
				return Nil
			}
			v, _ := l.Shift()
			return v
		},
		"list.pop": func(ctx *Context, args []Value) Value {
			l, ok := ctx.listArg(args, 0)
			if !ok {
				return Nil
			}
			v, _ := l.Pop()
			return v
		},
		"list.push": func(ctx *Context, args []Value) Value {
			l, ok := ctx.listArg(args, 0)
			if !ok {
				return Nil
			}
			l.Push(arg(args, 1))
			return args[0]
		},
		"list.unshift": func(ctx *Context, args []Value) Value {
			l, ok := ctx.listArg(args, 0)
			if !ok {
				return Nil
			}
			l.Unshift(arg(args, 1))
			return args[0]
		},
		"list.append": func(ctx *Context, args []Value) Value {
			l, ok := ctx.listArg(args, 0)
			if !ok {
				return Nil
			}
			other, ok := ctx.listArg(args, 1)
			if !ok {
				return Nil
			}
			l.Append(append([]Value(nil), other.Vals...))
			return args[0]
		},
		"list.prepend": func(ctx *Context, args []Value) Value {
			l, ok := ctx.listArg(args, 0)
			if !ok {
				return Nil
			}
			other, ok := ctx.listArg(args, 1)
			if !ok {
				return Nil
			}
			l.Prepend(append([]Value(nil), other.Vals...))
			return args[0]
		},
		"list.find": func(ctx *Context, args []Value) Value {
			return ctx.ListFind(arg(args, 0), arg(args, 1), arg(args, 2))
		},
		"list.rfind": func(ctx *Context, args []Value) Value {
			return ctx.ListRFind(arg(args, 0), arg(args, 1), arg(args, 2))
		},
		"list.join": func(ctx *Context, args []Value) Value {
			return ctx.ListJoin(arg(args, 0), arg(args, 1))
		},
		"list.rev": func(ctx *Context, args []Value) Value {
			l, ok := ctx.listArg(args, 0)
			if !ok {
				return Nil
			}
			for i, j := 0, len(l.Vals)-1; i < j; i, j = i+1, j-1 {
				l.Vals[i], l.Vals[j] = l.Vals[j], l.Vals[i]
			}
			return args[0]
		},
		"list.str": func(ctx *Context, args []Value) Value {
			return ctx.ListStr(arg(args, 0))
		},
		"list.sort": func(ctx *Context, args []Value) Value {
			return ctx.ListSort(arg(args, 0), false)
		},
		"list.rsort": func(ctx *Context, args []Value) Value {
			return ctx.ListSort(arg(args, 0), true)
		},
		"list.sortcmp": func(ctx *Context, args []Value) Value {
			return Num(float64(ctx.Order(arg(args, 0), arg(args, 1))))
		},
	})
}
