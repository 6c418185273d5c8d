package vm

import (
	"strings"
	"testing"
)

type progCase struct {
	src  string
	want string
}

// checkPrograms runs each program and compares what it said.
func checkPrograms(t *testing.T, cases []progCase) {
	t.Helper()
	for _, tc := range cases {
		ctx, tio := newTestContext(t, tc.src)
		if res := ctx.Run(); res != RunPass {
			t.Errorf("%q: Run = %s: %v", tc.src, res, ctx.Err())
			continue
		}
		if got := joined(tio.said); got != tc.want {
			t.Errorf("%q: said %q, want %q", tc.src, got, tc.want)
		}
	}
}

// checkFailures runs each program and compares its abort message.
func checkFailures(t *testing.T, cases []progCase) {
	t.Helper()
	for _, tc := range cases {
		ctx, _ := newTestContext(t, tc.src)
		if res := ctx.Run(); res != RunFail {
			t.Errorf("%q: Run = %s, want fail", tc.src, res)
			continue
		}
		if got := ctx.Err().Error(); !strings.Contains(got, tc.want) {
			t.Errorf("%q: error %q, want containing %q", tc.src, got, tc.want)
		}
	}
}

func TestStackOps(t *testing.T) {
	checkPrograms(t, []progCase{
		{"push 1\ndup\nadd\nsay", "2"},
		{"push 1\npush 2\nswap\nsub\nsay", "1"},
		{"push 1\npush 2\npop\nsay", "1"},
		{"nop\npush nil\nsay", "nil"},
		{`push "s"` + "\nsay", "s"},
	})
}

func TestArithmeticOps(t *testing.T) {
	checkPrograms(t, []progCase{
		{"push 7\npush 2\nsub\nsay", "5"},
		{"push 7\npush 2\nmul\nsay", "14"},
		{"push 7\npush 2\ndiv\nsay", "3.5"},
		{"push 7\npush 2\nmod\nsay", "1"},
		{"push -7\npush 2\nmod\nsay", "-1"},
		{"push 2\npush 10\npow\nsay", "1024"},
		{"push 3\nneg\nsay", "-3"},
		{"push 1\npush 0\ndiv\nsay", "inf"},
		{"push -1\npush 0\ndiv\nsay", "-inf"},
		{"push 0\npush 0\ndiv\nsay", "nan"},
		{"push 1\npush 2\npush 3\nlist 3\npush 10\nmul\nsay", "{10, 20, 30}"},
		{"push 1\npush 2\nlist 2\npush 10\npush 20\nlist 2\nadd\nsay", "{11, 22}"},
		{"push 1\npush 2\nlist 2\nneg\nsay", "{-1, -2}"},
		{"push 1e21\nsay", "1e+21"},
		{"push 0.1\npush 0.2\nadd\nsay", "0.30000000000000004"},
	})
	checkFailures(t, []progCase{
		{"push 1\npush 2\nlist 2\npush 1\nlist 1\nadd", "Expecting number or list of numbers"},
		{`push "a"` + "\nneg", "Expecting number or list of numbers"},
	})
}

func TestComparisonOps(t *testing.T) {
	checkPrograms(t, []progCase{
		{"push 1\npush 1\neq\nsay", "1"},
		{"push 1\npush 2\neq\nsay", "nil"},
		{`push "ab"` + "\npush \"a\"\npush \"b\"\ncat\neq\nsay", "1"},
		{"push 1\nlist 1\npush 1\nlist 1\neq\nsay", "nil"},
		{"push 1\nlist 1\ndup\neq\nsay", "1"},
		{"push nil\npush nil\neq\nsay", "1"},
		{"push 1\npush \"1\"\nne\nsay", "1"},
		{"push 1\npush 2\nlt\nsay", "1"},
		{"push 2\npush 2\nle\nsay", "1"},
		{"push 3\npush 2\ngt\nsay", "1"},
		{"push 1\npush 2\nge\nsay", "nil"},
		{`push "a"` + "\npush \"b\"\nlt\nsay", "1"},
		{"push nil\nnot\nsay", "1"},
		{"push 0\nnot\nsay", "nil"},
	})
}

func TestListAndStringOps(t *testing.T) {
	checkPrograms(t, []progCase{
		{`push "hello"` + "\nsize\nsay", "5"},
		{"list 0\nsize\nsay", "0"},
		{"push 1\npush 2\npush 3\nlist 3\npush -1\nat\nsay", "3"},
		{"push 1\npush 2\npush 3\nlist 3\npush 1.7\nat\nsay", "2"},
		{"push 1\nlist 1\npush 5\nat\nsay", "nil"},
		{`push "abc"` + "\npush 1\nat\nsay", "b"},
		{`push "abc"` + "\npush -4\nat\nsay", "nil"},
		{"list 0\nstore l\nload l\npush 2\npush 5\nsetat\nload l\nsay", "{nil, nil, 5}"},
		{"push 1\npush 2\nlist 2\nstore l\nload l\npush -1\npush 9\nsetat\nload l\nsay", "{1, 9}"},
		{"push 1\nlist 1\npush 2\nlist 1\ncat\nsay", "{1, 2}"},
		{`push "a"` + "\npush 1\ncat\nsay", "a1"},
		{"push 1\nlist 1\npush \"x\"\ncat\nsay", "{1}x"},
	})
	checkFailures(t, []progCase{
		{"push 1\npush 0\nat", "Expecting list or string when indexing"},
		{"push 1\nlist 1\npush \"x\"\nat", "Expecting number for index"},
		{`push "s"` + "\npush 0\npush 1\nsetat", "Expecting list when setting index"},
	})
}

func TestControlFlow(t *testing.T) {
	checkPrograms(t, []progCase{
		{"push 1\nif\npush \"yes\"\nsay\nelse\npush \"no\"\nsay\nend", "yes"},
		{"push nil\nif\npush \"yes\"\nsay\nelse\npush \"no\"\nsay\nend", "no"},
		{"push nil\nif\npush \"yes\"\nsay\nend\npush \"after\"\nsay", "after"},
		{"push 1\njumpt skip\npush \"no\"\nsay\nskip:\npush \"done\"\nsay", "done"},
		{"push nil\njumpf skip\npush \"no\"\nsay\nskip: push \"done\"\nsay", "done"},
		{"jump end\nback:\npush 2\nsay\nhalt\nend:\npush 1\nsay\njump back", "1\n2"},
		{countTo1000, "1000"},
		{`
push 0
store n
loop
  load n
  push 1
  add
  store n
  load n
  push 3
  lt
  if
    continue
  end
  break
end
load n
say
`, "3"},
	})
}

func TestLibDispatch(t *testing.T) {
	ctx := newBareContext(t)
	if !HasLib("str.lower") || HasLib("str.nope") {
		t.Error("HasLib wrong")
	}
	names := LibNames()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("LibNames not sorted at %d", i)
		}
	}
	for _, prefix := range []string{"num.", "int.", "rand.", "str.", "utf8.", "list.", "struct.", "pickle.", "gc."} {
		found := false
		for _, n := range names {
			found = found || strings.HasPrefix(n, prefix)
		}
		if !found {
			t.Errorf("no library functions with prefix %s", prefix)
		}
	}
	v := ctx.CallLib("num.abs", nums(-2))
	if v.Float() != 2 {
		t.Errorf("num.abs(-2) = %v", v.Float())
	}
}
