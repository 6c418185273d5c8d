package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// sinkTest holds a temp dir with a sink.toml so runs never pick up a
// config from the surrounding tree.
type sinkTest struct {
	t   *testing.T
	dir string
	cfg string
}

func newSinkTest(t *testing.T, toml string) *sinkTest {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "sink.toml")
	if err := os.WriteFile(cfg, []byte(toml), 0644); err != nil {
		t.Fatal(err)
	}
	return &sinkTest{t: t, dir: dir, cfg: cfg}
}

func (st *sinkTest) write(name, content string) string {
	st.t.Helper()
	path := filepath.Join(st.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		st.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		st.t.Fatal(err)
	}
	return path
}

func (st *sinkTest) run(stdin string, args ...string) (int, string, string) {
	st.t.Helper()
	var out, errOut bytes.Buffer
	args = append([]string{"-c", st.cfg}, args...)
	code := run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunFile(t *testing.T) {
	st := newSinkTest(t, "")
	prog := st.write("hello.sink", `push "hello"
say
push 2
push 3
mul
say
`)
	code, out, errOut := st.run("", prog)
	if code != exitPass {
		t.Fatalf("exit = %d, stderr = %s", code, errOut)
	}
	if out != "hello\n6\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestRunFailure(t *testing.T) {
	st := newSinkTest(t, "")
	prog := st.write("bad.sink", "push \"boom\"\nabort 1\n")
	code, _, errOut := st.run("", prog)
	if code != exitFail {
		t.Errorf("exit = %d, want %d", code, exitFail)
	}
	if !strings.Contains(errOut, "boom") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestAssembleError(t *testing.T) {
	st := newSinkTest(t, "")
	prog := st.write("bad.sink", "push 1\nfrobnicate\n")
	code, _, errOut := st.run("", prog)
	if code != exitFail || !strings.Contains(errOut, "unknown instruction") {
		t.Errorf("exit = %d, stderr = %q", code, errOut)
	}
}

func TestAskReadsStdin(t *testing.T) {
	st := newSinkTest(t, "")
	prog := st.write("ask.sink", "push \"name? \"\nask 1\nsay\n")
	code, out, _ := st.run("world\n", prog)
	if code != exitPass || out != "name? world\n" {
		t.Errorf("exit = %d, stdout = %q", code, out)
	}
}

func TestIncludePathsFromConfig(t *testing.T) {
	st := newSinkTest(t, "[runtime]\npaths = [\"lib\"]\n")
	st.write("lib/greet.sink", "push \"from lib\"\nsay\n")
	prog := st.write("src/main.sink", "include \"greet\"\n")
	code, out, errOut := st.run("", prog)
	if code != exitPass || out != "from lib\n" {
		t.Errorf("exit = %d, stdout = %q, stderr = %q", code, out, errOut)
	}
}

func TestDisassemble(t *testing.T) {
	st := newSinkTest(t, "")
	prog := st.write("p.sink", "push 1\nsay\n")
	code, out, _ := st.run("", "-S", prog)
	if code != exitPass {
		t.Fatalf("exit = %d", code)
	}
	for _, want := range []string{"SAY", "p.sink"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestDumpAndRunBinary(t *testing.T) {
	st := newSinkTest(t, "")
	prog := st.write("p.sink", "push \"dumped\"\nsay\n")
	chunk := filepath.Join(st.dir, "p.sb")
	if code, _, errOut := st.run("", "-dump", chunk, prog); code != exitPass {
		t.Fatalf("dump exit = %d, stderr = %s", code, errOut)
	}

	for _, args := range [][]string{{"-b", chunk}, {chunk}} {
		code, out, errOut := st.run("", args...)
		if code != exitPass || out != "dumped\n" {
			t.Errorf("%v: exit = %d, stdout = %q, stderr = %q", args, code, out, errOut)
		}
	}

	notChunk := st.write("plain.txt", "push 1\n")
	if code, _, _ := st.run("", "-b", notChunk); code != exitFail {
		t.Errorf("-b on source exit = %d, want %d", code, exitFail)
	}
}

const loopProgram = `push 0
store i
loop
  load i
  push 500
  lt
  breakf
  load i
  push 1
  add
  store i
end
load i
say
`

func TestTimeoutFlags(t *testing.T) {
	st := newSinkTest(t, "")
	prog := st.write("loop.sink", loopProgram)

	code, _, errOut := st.run("", "-timeout", "100", prog)
	if code != exitTimeout || !strings.Contains(errOut, "budget of 100") {
		t.Errorf("exit = %d, stderr = %q", code, errOut)
	}

	code, out, _ := st.run("", "-timeout", "100", "-timeout-resume", prog)
	if code != exitPass || out != "500\n" {
		t.Errorf("resume: exit = %d, stdout = %q", code, out)
	}
}

func TestFlagErrors(t *testing.T) {
	st := newSinkTest(t, "")
	tests := [][]string{
		{"-gc", "turbo", "x.sink"},
		{"-S"},
		{"a.sink", "b.sink"},
		{"-nosuchflag"},
	}
	for _, args := range tests {
		if code, _, _ := st.run("", args...); code != exitUsage {
			t.Errorf("%v: exit = %d, want %d", args, code, exitUsage)
		}
	}
	if code, _, _ := st.run("", filepath.Join(st.dir, "missing.sink")); code != exitFail {
		t.Errorf("missing file exit = %d", code)
	}
}

func TestStoreFromConfig(t *testing.T) {
	st := newSinkTest(t, "[store]\npath = \"data/kv.db\"\n")
	set := st.write("set.sink", "push \"k\"\npush 42\nnative store.set 2\npop\n")
	get := st.write("get.sink", "push \"k\"\nnative store.get 1\nsay\n")

	if code, _, errOut := st.run("", set); code != exitPass {
		t.Fatalf("set exit = %d, stderr = %s", code, errOut)
	}
	code, out, _ := st.run("", get)
	if code != exitPass || out != "42\n" {
		t.Errorf("get exit = %d, stdout = %q", code, out)
	}
	if _, err := os.Stat(filepath.Join(st.dir, "data", "kv.db")); err != nil {
		t.Errorf("store file: %v", err)
	}
}

func TestREPL(t *testing.T) {
	st := newSinkTest(t, "")
	input := `push 1
say
push 5
store n
load n
if
  push "in block"
  say
end
load n
say
`
	code, out, errOut := st.run(input)
	if code != exitPass {
		t.Fatalf("exit = %d, stderr = %s", code, errOut)
	}
	if out != "1\nin block\n5\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestREPLRecoversFromErrors(t *testing.T) {
	st := newSinkTest(t, "")
	input := `bogus
push "x"
abort 1
push "after"
say
`
	code, out, errOut := st.run(input, "-i")
	if code != exitPass {
		t.Fatalf("exit = %d", code)
	}
	if out != "after\n" {
		t.Errorf("stdout = %q", out)
	}
	if !strings.Contains(errOut, "unknown instruction") || !strings.Contains(errOut, "Error: x") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestREPLExitAndQuit(t *testing.T) {
	st := newSinkTest(t, "")
	code, out, _ := st.run("push \"bye\"\nexit 1\npush \"never\"\nsay\n")
	if code != exitPass || out != "bye\n" {
		t.Errorf("exit: code = %d, stdout = %q", code, out)
	}
	code, out, _ = st.run("push 1\nsay\n:quit\npush 2\nsay\n")
	if code != exitPass || out != "1\n" {
		t.Errorf("quit: code = %d, stdout = %q", code, out)
	}
}

func TestREPLUnterminatedBlock(t *testing.T) {
	st := newSinkTest(t, "")
	code, _, errOut := st.run("loop\npush 1\n")
	if code != exitFail || !strings.Contains(errOut, "unterminated") {
		t.Errorf("exit = %d, stderr = %q", code, errOut)
	}
}
