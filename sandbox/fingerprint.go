package sandbox

import (
	"encoding/hex"
	"io"
	"os"
	"sort"
)

// Fingerprint computes the deterministic hex digest that keys the cache for
// spec. Iteration order is preserved exactly: Args in caller order,
// ExtraInputs in caller order, Env keys sorted lexicographically.
//
// Only identity-defining bytes contribute: argument string forms, Input/Exec
// file contents, extra-input bytes or (boxed name + file contents), and
// sorted (name, value) environment pairs. Temp dirs, outputs, Shell,
// Timeout, and extra-output declarations never contribute.
func Fingerprint(spec InvocationSpec) (string, error) {
	h, err := newHash(spec.hashNameOrDefault())
	if err != nil {
		return "", err
	}

	for _, a := range spec.Args {
		if _, err := io.WriteString(h, a.String()); err != nil {
			return "", err
		}

		if isExecOrInput(a) {
			if err := hashFileInto(h, a.UnboxedPath()); err != nil {
				return "", err
			}
		}
	}

	for _, e := range spec.ExtraInputs {
		if e.isBytes() {
			if _, err := h.Write(e.bytes); err != nil {
				return "", err
			}

			continue
		}

		if _, err := io.WriteString(h, e.input.BoxedPath()); err != nil {
			return "", err
		}

		if err := hashFileInto(h, e.input.UnboxedPath()); err != nil {
			return "", err
		}
	}

	names := make([]string, 0, len(spec.Env))
	for name := range spec.Env {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if _, err := io.WriteString(h, name); err != nil {
			return "", err
		}

		if _, err := io.WriteString(h, spec.Env[name].resolvedArgString()); err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashFileInto streams path's contents into h, wrapping any read failure as
// a FingerprintError so a missing referenced file never silently hashes as
// empty.
func hashFileInto(h io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &FingerprintError{Path: path, Err: err}
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return &FingerprintError{Path: path, Err: err}
	}

	return nil
}
