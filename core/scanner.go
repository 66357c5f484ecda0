package core

import (
	"os"
	"path/filepath"
)

// Scanner answers questions about the node's own serving directory, used
// by download orchestration to decide whether a local copy can be trusted
// or must be (re-)fetched.
type Scanner struct {
	dir string
}

func NewScanner(dir string) *Scanner {
	return &Scanner{dir: dir}
}

// ExistsLocal reports whether filename is present as a regular file.
func (s *Scanner) ExistsLocal(filename string) bool {
	info, err := os.Stat(filepath.Join(s.dir, filename))
	return err == nil && info.Mode().IsRegular()
}

// LocalSize returns the size of filename, or -1 if it is absent.
func (s *Scanner) LocalSize(filename string) int64 {
	info, err := os.Stat(filepath.Join(s.dir, filename))
	if err != nil || !info.Mode().IsRegular() {
		return -1
	}
	return info.Size()
}
