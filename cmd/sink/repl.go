package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/chazu/sink/config"
	"github.com/chazu/sink/hostlib"
	"github.com/chazu/sink/pkg/asm"
	"github.com/chazu/sink/vm"
)

const historyFile = ".sink_history"

// lineReader is the REPL's source of input lines.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// newLineReader uses liner when stdin is a terminal and a plain buffered
// reader otherwise.
func newLineReader(stdin io.Reader) lineReader {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return newTermReader()
	}
	return &pipeReader{r: bufio.NewReader(stdin)}
}

type termReader struct {
	ln       *liner.State
	histPath string
}

func newTermReader() *termReader {
	r := &termReader{ln: liner.NewLiner()}
	r.ln.SetCtrlCAborts(true)
	if home, err := os.UserHomeDir(); err == nil {
		r.histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(r.histPath); err == nil {
			_, _ = r.ln.ReadHistory(f)
			_ = f.Close()
		}
	}
	return r
}

func (r *termReader) Prompt(prompt string) (string, error) {
	line, err := r.ln.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	return line, err
}

func (r *termReader) AppendHistory(line string) { r.ln.AppendHistory(line) }

func (r *termReader) Close() error {
	if r.histPath != "" {
		if f, err := os.Create(r.histPath); err == nil {
			_, _ = r.ln.WriteHistory(f)
			_ = f.Close()
		}
	}
	return r.ln.Close()
}

// pipeReader reads lines from a non-terminal without echoing prompts.
type pipeReader struct {
	r *bufio.Reader
}

func (p *pipeReader) Prompt(string) (string, error) {
	line, err := p.r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), nil
}

func (p *pipeReader) AppendHistory(string) {}

func (p *pipeReader) Close() error { return nil }

// session is one REPL program: a script fed line by line and the context
// running its committed prefix.
type session struct {
	cfg    *config.Config
	host   *hostlib.Host
	in     lineReader
	out    io.Writer
	errOut io.Writer

	script *asm.Script
	ctx    *vm.Context
}

func (s *session) reset() {
	if s.ctx != nil && !s.ctx.Closed() {
		s.ctx.Close()
	}
	s.script = asm.New(asm.OSIncluder(), filepath.Join(s.cfg.Dir, "(repl)"), true)
	for _, p := range s.cfg.IncludePaths() {
		s.script.AddPath(p)
	}
	s.ctx = vm.New(s.script.Chunk(), vm.IO{
		Say:  func(_ *vm.Context, text string) { fmt.Fprintln(s.out, text) },
		Warn: func(_ *vm.Context, text string) { fmt.Fprintln(s.errOut, text) },
		Ask: func(ctx *vm.Context, prompt string) vm.Value {
			line, err := s.in.Prompt(prompt)
			if err != nil {
				return vm.Nil
			}
			return ctx.NewStrString(line)
		},
	})
	s.cfg.Apply(s.ctx)
	hostlib.Register(s.ctx, s.host)
}

func (s *session) prompt() string {
	if n := s.script.Level(); n > 0 {
		return strings.Repeat("..", n) + " "
	}
	return "> "
}

// step runs whatever input has been committed. A failed program is
// reported and replaced by a fresh session.
func (s *session) step(c context.Context) vm.RunResult {
	if !s.ctx.Ready() {
		return vm.RunREPLMore
	}
	res, err := s.host.Run(c, s.ctx, runOptions(s.cfg))
	if err != nil {
		fmt.Fprintf(s.errOut, "Error: %v\n", err)
		s.reset()
		return vm.RunFail
	}
	switch res {
	case vm.RunTimeout:
		fmt.Fprintf(s.errOut, "Timed out after %d instructions; enter more input to continue\n", s.cfg.Runtime.Timeout)
		s.ctx.SetTimeout(s.cfg.Runtime.Timeout)
	case vm.RunFail:
		fmt.Fprintf(s.errOut, "Error: %v\n", s.ctx.Err())
		s.reset()
	}
	return res
}

func runREPL(c context.Context, cfg *config.Config, host *hostlib.Host, in lineReader, stdout, stderr io.Writer) int {
	s := &session{cfg: cfg, host: host, in: in, out: stdout, errOut: stderr}
	s.reset()
	defer func() {
		if !s.ctx.Closed() {
			s.ctx.Close()
		}
	}()

	for {
		line, err := in.Prompt(s.prompt())
		if err != nil {
			break
		}
		if strings.TrimSpace(line) == ":quit" {
			return exitPass
		}
		if err := s.script.Write([]byte(line + "\n")); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			continue
		}
		if strings.TrimSpace(line) != "" {
			in.AppendHistory(line)
		}
		if s.step(c) == vm.RunPass {
			return exitPass
		}
	}

	if err := s.script.Close(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFail
	}
	switch s.step(c) {
	case vm.RunFail:
		return exitFail
	case vm.RunTimeout:
		return exitTimeout
	}
	return exitPass
}
