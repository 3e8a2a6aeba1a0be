package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nordlow/isobox/sandbox"
)

// newFileLogger opens "<cacheDir>/all.log" (or "<home>/.isobox/all.log"
// when cacheDir is empty) and returns a structured logger writing to it, a
// closer to call when the invocation is done, and any error encountered
// while resolving or opening the log file. This is the ambient logging
// destination; the sandbox package itself never touches a log file path.
func newFileLogger(cacheDir string) (*slog.Logger, func(), error) {
	dir := cacheDir

	if dir == "" {
		var err error

		dir, err = sandbox.DefaultLogDir("isobox")
		if err != nil {
			return nil, func() {}, err
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, func() {}, err
	}

	f, err := os.OpenFile(filepath.Join(dir, "all.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, func() {}, err
	}

	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(handler), func() { _ = f.Close() }, nil
}
