package vm

import (
	"bytes"
	"math"
	"sort"
)

// Equal compares numbers by value, strings by content and lists by identity.
func (ctx *Context) Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNum:
		return a.Float() == b.Float()
	case KindStr:
		return a == b || bytes.Equal(ctx.heap.Str(a).Bytes, ctx.heap.Str(b).Bytes)
	}
	return a == b
}

// Less orders two numbers or two strings. Any other pairing aborts.
func (ctx *Context) Less(a, b Value) bool {
	switch {
	case a.IsNum() && b.IsNum():
		return a.Float() < b.Float()
	case a.IsStr() && b.IsStr():
		return bytes.Compare(ctx.heap.Str(a).Bytes, ctx.heap.Str(b).Bytes) < 0
	}
	ctx.Abortf("Expecting numbers or strings")
	return false
}

// LessEqual is the non-strict form of Less.
func (ctx *Context) LessEqual(a, b Value) bool {
	switch {
	case a.IsNum() && b.IsNum():
		return a.Float() <= b.Float()
	case a.IsStr() && b.IsStr():
		return bytes.Compare(ctx.heap.Str(a).Bytes, ctx.heap.Str(b).Bytes) <= 0
	}
	ctx.Abortf("Expecting numbers or strings")
	return false
}

func kindRank(k Kind) int {
	switch k {
	case KindNum:
		return 1
	case KindStr:
		return 2
	case KindList:
		return 3
	}
	return 0
}

type listPair struct{ a, b uint32 }

// Order returns -1, 0 or 1 under the total order nil < num < str < list.
// Numbers order by value with NaN first, strings bytewise, and lists
// elementwise then by length. Comparing circular lists aborts and yields 0.
func (ctx *Context) Order(a, b Value) int {
	n, ok := ctx.order(a, b, nil)
	if !ok {
		ctx.Abortf("Cannot sort circular lists")
		return 0
	}
	return n
}

func (ctx *Context) order(a, b Value, path []listPair) (int, bool) {
	ra, rb := kindRank(a.kind), kindRank(b.kind)
	if ra != rb {
		if ra < rb {
			return -1, true
		}
		return 1, true
	}
	switch a.kind {
	case KindNum:
		x, y := a.Float(), b.Float()
		xn, yn := math.IsNaN(x), math.IsNaN(y)
		switch {
		case xn && yn:
			return 0, true
		case xn:
			return -1, true
		case yn:
			return 1, true
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case KindStr:
		return bytes.Compare(ctx.heap.Str(a).Bytes, ctx.heap.Str(b).Bytes), true
	case KindList:
		if a == b {
			return 0, true
		}
		p := listPair{a.slot(), b.slot()}
		for _, q := range path {
			if q == p {
				return 0, false
			}
		}
		path = append(path, p)
		la, lb := ctx.heap.List(a).Vals, ctx.heap.List(b).Vals
		for i := 0; i < len(la) && i < len(lb); i++ {
			n, ok := ctx.order(la[i], lb[i], path)
			if !ok || n != 0 {
				return n, ok
			}
		}
		switch {
		case len(la) < len(lb):
			return -1, true
		case len(la) > len(lb):
			return 1, true
		}
	}
	return 0, true
}

// sortValues stably sorts vals in place. reverse flips the order. Returns
// false if a circular comparison was found.
func (ctx *Context) sortValues(vals []Value, reverse bool) bool {
	ok := true
	sort.SliceStable(vals, func(i, j int) bool {
		if !ok {
			return false
		}
		n, good := ctx.order(vals[i], vals[j], nil)
		if !good {
			ok = false
			return false
		}
		if reverse {
			return n > 0
		}
		return n < 0
	})
	return ok
}
