package asm

import (
	"os"
	"path/filepath"
)

// FSType classifies a path.
type FSType int

const (
	FSNone FSType = iota
	FSFile
	FSDir
)

// Includer resolves include directives. FixPath canonicalizes file relative
// to the directory cwd; FSType classifies a canonical path; FSRead reads a
// file and feeds it to the script with Write.
type Includer struct {
	FixPath func(file, cwd string) string
	FSType  func(path string) FSType
	FSRead  func(s *Script, path string) error
}

// OSIncluder resolves includes against the local filesystem.
func OSIncluder() Includer {
	return Includer{
		FixPath: func(file, cwd string) string {
			if filepath.IsAbs(file) {
				return filepath.Clean(file)
			}
			return filepath.Clean(filepath.Join(cwd, file))
		},
		FSType: func(path string) FSType {
			info, err := os.Stat(path)
			switch {
			case err != nil:
				return FSNone
			case info.IsDir():
				return FSDir
			}
			return FSFile
		},
		FSRead: func(s *Script, path string) error {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			return s.Write(data)
		},
	}
}
