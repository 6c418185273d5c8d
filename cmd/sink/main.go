// Sink CLI - assembles and runs sink programs, or starts a REPL
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/sink/config"
	"github.com/chazu/sink/hostlib"
	"github.com/chazu/sink/pkg/asm"
	"github.com/chazu/sink/pkg/bytecode"
	"github.com/chazu/sink/vm"
)

var log = commonlog.GetLogger("sink.cli")

// Exit codes.
const (
	exitPass    = 0
	exitFail    = 1
	exitUsage   = 2
	exitTimeout = 3
)

func main() {
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(c, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	configPath    string
	verbose       int
	interactive   bool
	binary        bool
	dumpPath      string
	disasm        bool
	timeout       int
	gc            string
	timeoutResume bool
	file          string

	// set records the flags given on the command line.
	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("sink", flag.ContinueOnError)
	fs.SetOutput(stderr)
	o := &options{set: make(map[string]bool)}
	fs.StringVar(&o.configPath, "c", "", "Config file (default: nearest sink.toml)")
	fs.IntVar(&o.verbose, "v", 0, "Log verbosity, -4 to 2 (overrides config)")
	fs.BoolVar(&o.interactive, "i", false, "Start interactive REPL")
	fs.BoolVar(&o.binary, "b", false, "Treat the input file as a dumped chunk")
	fs.StringVar(&o.dumpPath, "dump", "", "Write the compiled chunk to this file instead of running")
	fs.BoolVar(&o.disasm, "S", false, "Print the disassembly instead of running")
	fs.IntVar(&o.timeout, "timeout", 0, "Instruction budget per run, 0 for unlimited (overrides config)")
	fs.StringVar(&o.gc, "gc", "", "GC level: none, default or lowmem (overrides config)")
	fs.BoolVar(&o.timeoutResume, "timeout-resume", false, "Re-arm the budget and keep running after a timeout")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: sink [options] [file]\n\n")
		fmt.Fprintf(stderr, "Assembles and runs a sink program. With no file, starts a REPL.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  sink prog.sink                  # Run a program\n")
		fmt.Fprintf(stderr, "  sink -S prog.sink               # Show bytecode\n")
		fmt.Fprintf(stderr, "  sink -dump prog.sb prog.sink    # Compile to a chunk file\n")
		fmt.Fprintf(stderr, "  sink -b prog.sb                 # Run a compiled chunk\n")
		fmt.Fprintf(stderr, "  sink -timeout 10000 -timeout-resume prog.sink\n")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	switch fs.NArg() {
	case 0:
	case 1:
		o.file = fs.Arg(0)
	default:
		fs.Usage()
		return nil, errors.New("too many arguments")
	}
	if o.file == "" && (o.binary || o.disasm || o.dumpPath != "") {
		return nil, errors.New("-b, -S and -dump need an input file")
	}
	return o, nil
}

// loadConfig reads the config and applies flag overrides.
func loadConfig(o *options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}

	if o.set["v"] {
		cfg.Log.Verbosity = o.verbose
	}
	if o.set["timeout"] {
		if o.timeout < 0 {
			return nil, fmt.Errorf("-timeout must not be negative, got %d", o.timeout)
		}
		cfg.Runtime.Timeout = o.timeout
	}
	if o.gc != "" {
		if _, err := vm.ParseGCLevel(o.gc); err != nil {
			return nil, err
		}
		cfg.Runtime.GC = o.gc
	}
	if o.timeoutResume {
		cfg.Runtime.TimeoutResume = true
	}
	return cfg, nil
}

func run(c context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitPass
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	cfg.ConfigureLogging()

	var store *hostlib.Store
	if path := cfg.StorePath(); path != "" {
		store, err = hostlib.OpenStore(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFail
		}
		defer store.Close()
	}
	host := hostlib.NewHost(store)

	if o.file == "" || o.interactive {
		r := newLineReader(stdin)
		defer r.Close()
		return runREPL(c, cfg, host, r, stdout, stderr)
	}

	chunk, err := compileFile(cfg, o.file, o.binary)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFail
	}
	if o.disasm {
		fmt.Fprint(stdout, chunk.DisassembleWithName(o.file))
		return exitPass
	}
	if o.dumpPath != "" {
		if err := dumpChunk(chunk, o.dumpPath); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFail
		}
		return exitPass
	}

	ctx := vm.New(chunk, vm.StdIO(stdin, stdout, stderr))
	defer ctx.Close()
	return execute(c, cfg, host, ctx, stderr)
}

// compileFile assembles a source file, or loads a dumped chunk when binary
// is set or the file starts with the dump magic.
func compileFile(cfg *config.Config, path string, binary bool) (*bytecode.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if binary || bytecode.IsDump(data) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return bytecode.Load(f)
	}

	s := asm.New(asm.OSIncluder(), path, false)
	for _, p := range cfg.IncludePaths() {
		s.AddPath(p)
	}
	if err := s.Write(data); err != nil {
		return nil, err
	}
	if err := s.Close(); err != nil {
		return nil, err
	}
	log.Debugf("compiled %s", path)
	return s.Chunk(), nil
}

func dumpChunk(chunk *bytecode.Chunk, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bytecode.Dump(f, chunk); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runOptions(cfg *config.Config) hostlib.RunOptions {
	var opts hostlib.RunOptions
	if cfg.Runtime.TimeoutResume {
		opts.ResumeTimeout = cfg.Runtime.Timeout
	}
	return opts
}

// execute runs a non-interactive program to completion.
func execute(c context.Context, cfg *config.Config, host *hostlib.Host, ctx *vm.Context, stderr io.Writer) int {
	cfg.Apply(ctx)
	hostlib.Register(ctx, host)

	res, err := host.Run(c, ctx, runOptions(cfg))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFail
	}
	switch res {
	case vm.RunPass:
		return exitPass
	case vm.RunTimeout:
		fmt.Fprintf(stderr, "Error: instruction budget of %d exhausted\n", cfg.Runtime.Timeout)
		return exitTimeout
	}
	fmt.Fprintf(stderr, "Error: %v\n", ctx.Err())
	return exitFail
}
