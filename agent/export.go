package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrExportLocked is returned when another process holds the export lock.
var ErrExportLocked = errors.New("export target is locked")

const exportPollInterval = 10 * time.Millisecond

// exportText writes text to path while holding an exclusive lock on
// path+".lock". The file is replaced atomically.
func exportText(path, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fl := flock.New(path + ".lock")
	locked, err := fl.TryLockContext(ctx, exportPollInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrExportLocked
		}
		return fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return ErrExportLocked
	}
	defer fl.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".notepad-*")
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return nil
}
