//go:build unix

package sandbox

import "golang.org/x/sys/unix"

// checkExecutable verifies that path is executable by the current user,
// using the platform's access(2) semantics rather than re-deriving
// executability from os.FileMode bits (which do not account for ACLs or
// filesystem-specific execute semantics).
func checkExecutable(path string) error {
	return unix.Access(path, unix.X_OK)
}
