//go:build !unix

package sandbox

import "os"

// checkExecutable is the portable fallback for platforms without access(2)
// semantics; it only verifies the file exists and is not a directory.
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if info.IsDir() {
		return &os.PathError{Op: "checkExecutable", Path: path, Err: os.ErrInvalid}
	}

	return nil
}
