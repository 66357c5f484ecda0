package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScannerExistsAndSize(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "present.bin"), []byte("12345"), 0644)

	s := NewScanner(dir)
	if !s.ExistsLocal("present.bin") {
		t.Fatalf("expected present.bin to exist")
	}
	if s.LocalSize("present.bin") != 5 {
		t.Fatalf("expected size 5, got %d", s.LocalSize("present.bin"))
	}

	if s.ExistsLocal("absent.bin") {
		t.Fatalf("expected absent.bin to not exist")
	}
	if s.LocalSize("absent.bin") != -1 {
		t.Fatalf("expected -1 for absent file, got %d", s.LocalSize("absent.bin"))
	}
}
