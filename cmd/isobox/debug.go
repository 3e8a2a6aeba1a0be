package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nordlow/isobox/sandbox"
)

// DebugLogger provides structured debug output for an invocation. A nil
// output makes every method a no-op, so callers never need an Enabled()
// guard around a whole block just to skip formatting work.
type DebugLogger struct {
	output io.Writer
}

// NewDebugLogger creates a DebugLogger. If output is nil, the logger is
// disabled and all methods are no-ops.
func NewDebugLogger(output io.Writer) *DebugLogger {
	return &DebugLogger{output: output}
}

// Enabled reports whether debug output is active.
func (d *DebugLogger) Enabled() bool {
	return d.output != nil
}

// Section outputs a section header.
func (d *DebugLogger) Section(name string) {
	if d.output == nil {
		return
	}

	_, _ = fmt.Fprintf(d.output, "\n=== %s ===\n", name)
}

// Logf outputs a formatted debug message.
func (d *DebugLogger) Logf(format string, args ...any) {
	if d.output == nil {
		return
	}

	_, _ = fmt.Fprintf(d.output, format+"\n", args...)
}

// Bulletf outputs an indented bullet point item.
func (d *DebugLogger) Bulletf(format string, args ...any) {
	if d.output == nil {
		return
	}

	_, _ = fmt.Fprintf(d.output, "  • "+format+"\n", args...)
}

// Version outputs the binary version.
func (d *DebugLogger) Version() {
	if d.output == nil {
		return
	}

	d.Logf("%s", formatVersion())
}

// Fingerprint outputs the computed invocation fingerprint.
func (d *DebugLogger) Fingerprint(hexdig, hashName string) {
	d.Bulletf("fingerprint (%s): %s", hashName, hexdig)
}

// Outcome outputs whether the invocation succeeded and how long it took.
// Cache hit/miss detail lives in the structured log and the metrics, not
// here: the driver reports only the exit status to its caller.
func (d *DebugLogger) Outcome(ok bool, elapsed time.Duration) {
	if ok {
		d.Bulletf("succeeded in %s", elapsed)

		return
	}

	d.Bulletf("failed after %s", elapsed)
}

// ArtifactStored outputs a stored artifact's size, human-readable.
func (d *DebugLogger) ArtifactStored(name string, size int64) {
	d.Bulletf("stored %s (%s)", name, humanize.Bytes(uint64(size)))
}

// ArtifactSizes reports the on-disk size of every declared output, once the
// invocation has harvested them back into the caller's working directory.
func (d *DebugLogger) ArtifactSizes(outputs []sandbox.TypedArg) {
	if d.output == nil {
		return
	}

	for _, o := range outputs {
		info, err := os.Stat(o.UnboxedPath())
		if err != nil {
			continue
		}

		d.ArtifactStored(o.BoxedPath(), info.Size())
	}
}

// Outputs lists the declared outputs of an invocation.
func (d *DebugLogger) Outputs(outputs []sandbox.TypedArg) {
	if d.output == nil {
		return
	}

	d.Section("Declared Outputs")

	if len(outputs) == 0 {
		d.Logf("  (none)")

		return
	}

	for _, o := range outputs {
		d.Bulletf("%s", o.BoxedPath())
	}
}
