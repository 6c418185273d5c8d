package vm

import (
	"math"
	"testing"
)

func TestToInt32(t *testing.T) {
	tests := []struct {
		in   float64
		want int32
	}{
		{0, 0},
		{1.9, 1},
		{-1.9, -1},
		{1 << 31, math.MinInt32},
		{1 << 32, 0},
		{1<<32 + 5, 5},
		{-(1 << 31) - 1, math.MaxInt32},
		{-1, -1},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
	}
	for _, tt := range tests {
		if got := ToInt32(tt.in); got != tt.want {
			t.Errorf("ToInt32(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestIntLib(t *testing.T) {
	checkPrograms(t, []progCase{
		{"push 12\npush 10\nlib int.and 2\nsay", "8"},
		{"push 12\npush 10\nlib int.or 2\nsay", "14"},
		{"push 12\npush 10\nlib int.xor 2\nsay", "6"},
		{"push 0\nlib int.not 1\nsay", "-1"},
		{"push 1\npush 33\nlib int.shl 2\nsay", "2"},
		{"push -1\npush 28\nlib int.shr 2\nsay", "15"},
		{"push -16\npush 2\nlib int.sar 2\nsay", "-4"},
		{"push 2147483647\npush 1\nlib int.add 2\nsay", "-2147483648"},
		{"push 0\npush 1\nlib int.sub 2\nsay", "-1"},
		{"push 65536\npush 65536\nlib int.mul 2\nsay", "0"},
		{"push -7\npush 2\nlib int.div 2\nsay", "-3"},
		{"push -7\npush 2\nlib int.mod 2\nsay", "-1"},
		{"push 7\npush 0\nlib int.div 2\nsay", "0"},
		{"push 7\npush 0\nlib int.mod 2\nsay", "0"},
		{"push 1\nlib int.clz 1\nsay", "31"},
		{"push 0\nlib int.clz 1\nsay", "32"},
		{"push 255\nlib int.pop 1\nsay", "8"},
		{"push 1\nlib int.bswap 1\nsay", "16777216"},
		{"push 4294967295\nlib int.new 1\nsay", "-1"},
		{"push 1\npush 2\nlist 2\npush 1\nlib int.shl 2\nsay", "{2, 4}"},
	})
}
