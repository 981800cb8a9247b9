package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

func TestExportText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := exportText(path, "first", time.Second); err != nil {
		t.Fatal(err)
	}
	if err := exportText(path, "second", time.Second); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "second" {
		t.Fatalf("got %q", b)
	}
}

func TestExportTextLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	held := flock.New(path + ".lock")
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("take lock: %t %v", locked, err)
	}
	defer held.Unlock()

	err = exportText(path, "blocked", 50*time.Millisecond)
	if !errors.Is(err, ErrExportLocked) {
		t.Fatalf("got %v, want ErrExportLocked", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file written while locked: %v", err)
	}
}
