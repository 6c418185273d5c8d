package vm

import (
	"bytes"
	"math"
	"testing"
)

func template(ctx *Context, codes ...string) Value {
	return ctx.NewList(strs(ctx, codes...)...)
}

func TestStructRoundTrip(t *testing.T) {
	ctx := newBareContext(t)
	tpl := template(ctx, "U8", "S16", "UB32", "F64", "FB32")
	vals := ctx.NewList(nums(200, -300, 0xDEADBEEF, math.Pi, 1.5, 1, 2, 3, 4, 5)...)

	packed := ctx.StructStr(vals, tpl)
	if ctx.Aborted() {
		t.Fatalf("StructStr aborted: %s", ctx.errMsg)
	}
	b := ctx.Str(packed).Bytes
	if len(b) != 2*(1+2+4+8+4) {
		t.Fatalf("packed %d bytes", len(b))
	}
	if !bytes.Equal(b[3:7], []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Errorf("UB32 bytes = % X", b[3:7])
	}
	if !bytes.Equal(b[1:3], []byte{0xD4, 0xFE}) {
		t.Errorf("S16 bytes = % X, want little-endian", b[1:3])
	}

	back := ctx.StructList(packed, tpl)
	if got := ctx.ToString(back); got != ctx.ToString(vals) {
		t.Errorf("round trip = %s, want %s", got, ctx.ToString(vals))
	}
	if ctx.StructSize(tpl).Float() != 19 {
		t.Errorf("StructSize = %v", ctx.StructSize(tpl).Float())
	}
}

func TestStructSaturation(t *testing.T) {
	tests := []struct {
		code string
		in   float64
		want float64
	}{
		{"U8", 300, 255},
		{"U8", -5, 0},
		{"U8", 7.9, 7},
		{"S8", 200, 127},
		{"S8", -200, -128},
		{"U16", 70000, 65535},
		{"SB16", -40000, -32768},
		{"U32", -1, 0},
		{"S32", 1e12, math.MaxInt32},
		{"U8", math.NaN(), 0},
		{"F32", 0.1, float64(float32(0.1))},
	}
	for _, tt := range tests {
		ctx := newBareContext(t)
		tpl := template(ctx, tt.code)
		s := ctx.StructStr(ctx.NewList(Num(tt.in)), tpl)
		got := ctx.List(ctx.StructList(s, tpl)).Vals[0].Float()
		if got != tt.want {
			t.Errorf("%s(%v) = %v, want %v", tt.code, tt.in, got, tt.want)
		}
	}
}

func TestStructLib(t *testing.T) {
	checkPrograms(t, []progCase{
		{"push \"U8\"\npush \"UB16\"\nlist 2\nlib struct.size 1\nsay", "3"},
		{"push \"X9\"\nlist 1\nlib struct.size 1\nsay", "nil"},
		{"list 0\nlib struct.size 1\nsay", "nil"},
		{"push 65\npush 66\nlist 2\npush \"U8\"\nlist 1\nlib struct.str 2\nsay", "AB"},
		{"push \"AB\"\npush \"UB16\"\nlist 1\nlib struct.list 2\nsay", "{16706}"},
		{"lib struct.isLE 0\nsay", "1"},
	})
	checkFailures(t, []progCase{
		{"push 1\nlist 1\npush \"Q\"\nlist 1\nlib struct.str 2", "Invalid struct template"},
		{"push 1\nlist 1\npush \"U8\"\npush \"U8\"\nlist 2\nlib struct.str 2", "multiple of the template size"},
		{"push \"ABC\"\npush \"U16\"\nlist 1\nlib struct.list 2", "multiple of the struct size"},
		{"push \"x\"\nlist 1\npush \"U8\"\nlist 1\nlib struct.str 2", "Expecting list of numbers"},
	})
}
