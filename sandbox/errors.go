package sandbox

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is classification. The concrete error values
// returned by this package wrap one of these.
var (
	// ErrOverlap indicates declared input/output/temp name sets are not
	// disjoint.
	ErrOverlap = errors.New("sandbox: declared path sets overlap")

	// ErrUndeclaredOutput indicates the command created files under out/
	// that were never declared.
	ErrUndeclaredOutput = errors.New("sandbox: undeclared outputs")

	// ErrFingerprint indicates a referenced input or executable could not
	// be read while computing the fingerprint.
	ErrFingerprint = errors.New("sandbox: fingerprint read failed")
)

// OverlapError reports a non-empty intersection between two of the declared
// input/output/temp-dir name sets.
type OverlapError struct {
	SetA, SetB string // e.g. "input files", "output files"
	Names      []string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s and %s overlap for %v", e.SetA, e.SetB, e.Names)
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

// UndeclaredOutputError reports files left in out/ that were never declared.
type UndeclaredOutputError struct {
	BoxOutDir string
	Entries   []string
}

func (e *UndeclaredOutputError) Error() string {
	return fmt.Sprintf("Box output directory %s contain undeclared outputs %v", e.BoxOutDir, e.Entries)
}

func (e *UndeclaredOutputError) Unwrap() error { return ErrUndeclaredOutput }

// FingerprintError reports an I/O failure while hashing an Input or Exec
// file's contents.
type FingerprintError struct {
	Path string
	Err  error
}

func (e *FingerprintError) Error() string {
	return fmt.Sprintf("sandbox: reading %s for fingerprint: %v", e.Path, e.Err)
}

func (e *FingerprintError) Unwrap() error { return errors.Join(ErrFingerprint, e.Err) }
