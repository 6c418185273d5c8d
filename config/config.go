// Package config handles sink.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/chazu/sink/vm"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "sink.toml"

// Config represents a sink.toml file.
type Config struct {
	Runtime Runtime `toml:"runtime"`
	Log     Log     `toml:"log"`
	Store   Store   `toml:"store"`

	// Dir is the directory containing the sink.toml file (set at load time).
	Dir string `toml:"-"`
}

// Runtime configures contexts created by the host.
type Runtime struct {
	GC            string   `toml:"gc"`
	Timeout       int      `toml:"timeout"`
	TimeoutResume bool     `toml:"timeout-resume"`
	Paths         []string `toml:"paths"`
}

// Log configures commonlog output.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Store configures the sqlite-backed store natives.
type Store struct {
	Path string `toml:"path"`
}

// Default returns the configuration used when no sink.toml exists.
func Default() *Config {
	dir, _ := os.Getwd()
	return &Config{
		Runtime: Runtime{GC: "default", Paths: []string{"."}},
		Dir:     dir,
	}
}

// Parse decodes sink.toml content. dir anchors relative paths.
func Parse(data []byte, dir string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s", undecoded[0])
	}
	if _, err := vm.ParseGCLevel(c.Runtime.GC); err != nil {
		return nil, err
	}
	if c.Runtime.Timeout < 0 {
		return nil, fmt.Errorf("runtime.timeout must not be negative, got %d", c.Runtime.Timeout)
	}
	if len(c.Runtime.Paths) == 0 {
		c.Runtime.Paths = []string{"."}
	}
	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return c, nil
}

// Load parses a sink.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c, err := Parse(data, dir)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return c, nil
}

// LoadFile parses the named file, anchoring relative paths at its directory.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a sink.toml file, then loads
// and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// IncludePaths returns absolute include search paths.
func (c *Config) IncludePaths() []string {
	paths := make([]string, 0, len(c.Runtime.Paths))
	for _, p := range c.Runtime.Paths {
		paths = append(paths, c.abs(p))
	}
	return paths
}

// StorePath returns the absolute sqlite path, or "" when the store is off.
func (c *Config) StorePath() string {
	if c.Store.Path == "" {
		return ""
	}
	return c.abs(c.Store.Path)
}

func (c *Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// GCLevel returns the configured collection level.
func (c *Config) GCLevel() vm.GCLevel {
	l, _ := vm.ParseGCLevel(c.Runtime.GC)
	return l
}

// Apply sets the GC level and instruction budget on ctx.
func (c *Config) Apply(ctx *vm.Context) {
	ctx.SetGCLevel(c.GCLevel())
	ctx.SetTimeout(c.Runtime.Timeout)
}

// ConfigureLogging sets commonlog verbosity and output file.
func (c *Config) ConfigureLogging() {
	var path *string
	if c.Log.File != "" {
		p := c.abs(c.Log.File)
		path = &p
	}
	commonlog.Configure(c.Log.Verbosity, path)
}
