package vm

import "testing"

func TestStrLib(t *testing.T) {
	checkPrograms(t, []progCase{
		{`push "Hello"` + "\nlib str.lower 1\nsay", "hello"},
		{`push "Hello"` + "\nlib str.upper 1\nsay", "HELLO"},
		{`push "Hello"` + "\npush \"l\"\nlib str.find 2\nsay", "2"},
		{`push "Hello"` + "\npush \"l\"\npush 3\nlib str.find 3\nsay", "3"},
		{`push "Hello"` + "\npush \"l\"\npush -2\nlib str.find 3\nsay", "3"},
		{`push "Hello"` + "\npush \"z\"\nlib str.find 2\nsay", "nil"},
		{`push "Hello"` + "\npush \"l\"\nlib str.rfind 2\nsay", "3"},
		{`push "Hello"` + "\npush \"l\"\npush 2\nlib str.rfind 3\nsay", "2"},
		{`push "hello"` + "\npush 1\npush 3\nlib str.slice 3\nsay", "ell"},
		{`push "hello"` + "\npush -3\nlib str.slice 2\nsay", "llo"},
		{`push "hello"` + "\npush 10\nlib str.slice 2\nsize\nsay", "0"},
		{`push "hello"` + "\npush -10\npush 7\nlib str.slice 3\nsay", "he"},
		{`push "hello"` + "\npush 1\npush 3\npush \"ipp\"\nlib str.splice 4\nsay", "hippo"},
		{`push "hello"` + "\npush 0\npush 1\npush nil\nlib str.splice 4\nsay", "ello"},
		{`push "a,b,,c"` + "\npush \",\"\nlib str.split 2\nsay", "{'a', 'b', '', 'c'}"},
		{`push "abc"` + "\npush \"\"\nlib str.split 2\nsay", "{'a', 'b', 'c'}"},
		{`push "aXbX"` + "\npush \"X\"\npush \"yy\"\nlib str.replace 3\nsay", "ayybyy"},
		{`push "ab"` + "\npush 4\nlib str.pad 2\npush \"|\"\ncat\nsay", "ab  |"},
		{`push "ab"` + "\npush -4\nlib str.pad 2\nsay", "  ab"},
		{`push "abc"` + "\npush 2\nlib str.pad 2\nsay", "abc"},
		{`push "0x1F"` + "\nlib str.tonum 1\nsay", "31"},
		{`push "1_000"` + "\nlib str.tonum 1\nsay", "1000"},
		{`push " 1e3 "` + "\nlib str.tonum 1\nsay", "1000"},
		{`push "-0b11"` + "\nlib str.tonum 1\nsay", "-3"},
		{`push "0c17"` + "\nlib str.tonum 1\nsay", "15"},
		{`push "abc"` + "\nlib str.tonum 1\nsay", "nil"},
		{`push ""` + "\nlib str.tonum 1\nsay", "nil"},
		{`push "0x"` + "\nlib str.tonum 1\nsay", "nil"},
		{`push "ab"` + "\npush 3\nlib str.rep 2\nsay", "ababab"},
		{`push "ab"` + "\npush 0\nlib str.rep 2\nsize\nsay", "0"},
		{`push "abc"` + "\nlib str.rev 1\nsay", "cba"},
		{`push "  x \t"` + "\nlib str.trim 1\nsay", "x"},
		{`push "hello"` + "\npush \"he\"\nlib str.begins 2\nsay", "1"},
		{`push "hello"` + "\npush \"lo\"\nlib str.ends 2\nsay", "1"},
		{`push "hello"` + "\npush \"x\"\nlib str.ends 2\nsay", "nil"},
		{`push "AB"` + "\nlib str.list 1\nsay", "{65, 66}"},
		{`push "AB"` + "\npush -1\nlib str.byte 2\nsay", "66"},
		{`push "AB"` + "\npush 2\nlib str.byte 2\nsay", "nil"},
		{`push "abc"` + "\npush -1\nlib str.at 2\nsay", "c"},
		{"push 1\npush \"a\"\npush 2\nlist 1\nlib str.new 3\nsay", "1 a {2}"},
		{"push 1\npush \"a\"\nlib str.cat 2\nsay", "1a"},
		{`push ""` + "\nlib str.hash 1\nsay", "{0, 0, 0, 0}"},
	})
	checkFailures(t, []progCase{
		{"push 1\nlib str.lower 1", "Expecting string"},
		{`push "a"` + "\npush 1\nlib str.find 2", "Expecting string"},
		{`push "a"` + "\npush \"x\"\nlib str.slice 2", "Expecting number"},
	})
}

func TestStrHashDeterministic(t *testing.T) {
	ctx := newBareContext(t)
	s := ctx.NewStrString("hello")
	a := ctx.ToString(ctx.StrHash(s, 0))
	b := ctx.ToString(ctx.StrHash(s, 0))
	c := ctx.ToString(ctx.StrHash(s, 1))
	if a != b {
		t.Errorf("hash not deterministic: %s vs %s", a, b)
	}
	if a == c {
		t.Error("seed has no effect")
	}
	l := ctx.List(ctx.StrHash(s, 0))
	for _, v := range l.Vals {
		if f := v.Float(); f < 0 || f > 0xFFFFFFFF || f != float64(uint32(f)) {
			t.Errorf("hash word %v is not a 32-bit unsigned integer", f)
		}
	}
}

func TestParseNum(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12", 12, true},
		{"-12.5", -12.5, true},
		{".5", 0.5, true},
		{"+7", 7, true},
		{"1e400", 0, true},
		{"0xff", 255, true},
		{"0XFF", 0, false},
		{"0b102", 0, false},
		{"--1", 0, false},
		{"1.2.3", 0, false},
		{"inf", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNum(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseNum(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && tt.in != "1e400" && got != tt.want {
			t.Errorf("ParseNum(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStrFindPositionBounds(t *testing.T) {
	find := func(op, from string) string {
		return `push "Hello"` + "\npush \"l\"\n" + from + "\nlib " + op + " 3\nsay"
	}
	checkPrograms(t, []progCase{
		{find("str.find", "lib num.nan 0"), "2"},
		{find("str.find", "push 1e300"), "nil"},
		{find("str.find", "push -1e300"), "2"},
		{find("str.find", "push 5"), "nil"},
		{find("str.rfind", "lib num.nan 0"), "3"},
		{find("str.rfind", "push 1e300"), "3"},
		{find("str.rfind", "push -1e300"), "nil"},
		{find("str.rfind", "push -4"), "nil"},
	})
}
