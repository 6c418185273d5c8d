package vm

import (
	"math"
	"testing"
)

func TestNumToStr(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{42, "42"},
		{-7, "-7"},
		{0.5, "0.5"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{1.0 / 3, "0.3333333333333333"},
		{math.NaN(), "nan"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
	}
	for _, tt := range tests {
		if got := NumToStr(tt.in); got != tt.want {
			t.Errorf("NumToStr(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToString(t *testing.T) {
	ctx := newBareContext(t)
	tests := []struct {
		v    Value
		want string
	}{
		{Nil, "nil"},
		{ctx.NewStrString("raw 'text'"), "raw 'text'"},
		{ctx.NewList(), "{}"},
		{ctx.NewList(Nil, Num(1.5), ctx.NewStrString("it's\\\n\x7f")), `{nil, 1.5, 'it\'s\\\x0A\x7F'}`},
		{ctx.NewList(ctx.NewList(Num(1)), ctx.NewList()), "{{1}, {}}"},
	}
	for _, tt := range tests {
		if got := ctx.ToString(tt.v); got != tt.want {
			t.Errorf("ToString = %s, want %s", got, tt.want)
		}
	}

	loop := ctx.NewList(Num(1))
	ctx.List(loop).Push(loop)
	if got := ctx.ToString(loop); got != "{1, {circular}}" {
		t.Errorf("circular = %s", got)
	}
	shared := ctx.NewList(Num(2))
	if got := ctx.ToString(ctx.NewList(shared, shared)); got != "{{2}, {2}}" {
		t.Errorf("shared = %s", got)
	}
	if s := ctx.NewStrString("x"); ctx.ToStr(s) != s {
		t.Error("ToStr copied a string")
	}
}

func TestOrder(t *testing.T) {
	ctx := newBareContext(t)
	a := ctx.NewStrString("a")
	b := ctx.NewStrString("b")
	tests := []struct {
		name string
		x, y Value
		want int
	}{
		{"nil first", Nil, Num(-1e300), -1},
		{"num before str", Num(5), a, -1},
		{"str before list", a, ctx.NewList(), -1},
		{"nan lowest", NaN(), Num(math.Inf(-1)), -1},
		{"nan equal", NaN(), NaN(), 0},
		{"nums", Num(2), Num(1), 1},
		{"strings", b, a, 1},
		{"string prefix", a, ctx.NewStrString("ab"), -1},
		{"equal strings", a, ctx.NewStrString("a"), 0},
		{"list elements", ctx.NewList(Num(1), Num(9)), ctx.NewList(Num(2)), -1},
		{"list length", ctx.NewList(Num(1)), ctx.NewList(Num(1), Nil), -1},
		{"first difference wins", ctx.NewList(a, Num(1)), ctx.NewList(b, Num(0)), -1},
		{"list after nil", ctx.NewList(Num(1)), Nil, 1},
	}
	for _, tt := range tests {
		if got := ctx.Order(tt.x, tt.y); got != tt.want {
			t.Errorf("%s: Order = %d, want %d", tt.name, got, tt.want)
		}
		if got := ctx.Order(tt.y, tt.x); got != -tt.want {
			t.Errorf("%s: reversed Order = %d, want %d", tt.name, got, -tt.want)
		}
	}
	if ctx.Aborted() {
		t.Fatalf("unexpected abort: %s", ctx.errMsg)
	}
}

func TestOrderCircularAborts(t *testing.T) {
	ctx := newBareContext(t)
	x := ctx.NewList()
	ctx.List(x).Push(x)
	y := ctx.NewList()
	ctx.List(y).Push(y)
	if got := ctx.Order(x, y); got != 0 {
		t.Errorf("Order = %d, want 0", got)
	}
	if ctx.errMsg != "Cannot sort circular lists" {
		t.Errorf("error = %q", ctx.errMsg)
	}
}

func TestEqualAndLess(t *testing.T) {
	ctx := newBareContext(t)
	l := ctx.NewList()
	if !ctx.Equal(ctx.NewStrString("x"), ctx.NewStrString("x")) {
		t.Error("strings with equal content differ")
	}
	if ctx.Equal(ctx.NewList(), ctx.NewList()) {
		t.Error("distinct empty lists are equal")
	}
	if !ctx.Equal(l, l) {
		t.Error("list not equal to itself")
	}
	if ctx.Equal(NaN(), NaN()) {
		t.Error("nan equals nan")
	}
	if ctx.Equal(Num(0), Nil) {
		t.Error("0 equals nil")
	}
	if !ctx.Less(ctx.NewStrString("A"), ctx.NewStrString("a")) {
		t.Error("'A' < 'a' is false")
	}
	ctx.Less(Num(1), ctx.NewStrString("1"))
	if ctx.errMsg != "Expecting numbers or strings" {
		t.Errorf("mixed Less error = %q", ctx.errMsg)
	}
}

func TestCoreLib(t *testing.T) {
	checkPrograms(t, []progCase{
		{"push 5\nlib range 1\nsay", "{0, 1, 2, 3, 4}"},
		{"push 1\npush 2\npush 0.5\nlib range 3\nsay", "{1, 1.5}"},
		{"push 5\npush 0\npush -2\nlib range 3\nsay", "{5, 3, 1}"},
		{"push 3\npush 1\nlib range 2\nsay", "{}"},
		{"nil\nlib type 1\nsay", "nil"},
		{"push 1\nlib type 1\nsay", "num"},
		{"push \"s\"\nlib type 1\nsay", "str"},
		{"list 0\nlib type 1\nsay", "list"},
		{"push 1\npush 2\nlist 2\nlib tostr 1\nsay", "{1, 2}"},
		{"push \"x\"\nlib tostr 1\nsay", "x"},
		{"push \"b\"\npush \"a\"\nlib order 2\nsay", "1"},
		{"nil\npush 0\nlib order 2\nsay", "-1"},
		{"list 0\nlib islist 1\nsay", "1"},
		{"push 1\nlib isstr 1\nsay", "nil"},
		{"push \"no.such\"\nlib isnative 1\nsay", "nil"},
	})
	checkFailures(t, []progCase{
		{"push 1\npush 2\npush 0\nlib range 3", "Invalid range"},
		{"push \"x\"\nlib range 1", "Expecting number for range"},
		{"lib no.such 0", "unknown library function"},
	})
}
