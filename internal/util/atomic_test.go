package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content []byte
	}{
		{"text", []byte("hello world")},
		{"empty", []byte{}},
		{"binary", []byte{0x00, 0xFF, 0x7F, 0x80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := AtomicWriteFile(path, tt.content, 0644); err != nil {
				t.Fatalf("AtomicWriteFile() error = %v", err)
			}
			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("reading file: %v", err)
			}
			if string(got) != string(tt.content) {
				t.Errorf("content = %q, want %q", got, tt.content)
			}
		})
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "maestro-atomic-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestAtomicWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := AtomicWriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := AtomicWriteFile(path, []byte("new content"), 0600); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "new content" {
		t.Errorf("content = %q, want %q", got, "new content")
	}
}

func TestAtomicWriteFile_MissingParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "file")
	if err := AtomicWriteFile(path, []byte("x"), 0644); err == nil {
		t.Error("expected error when the parent directory does not exist")
	}
}
