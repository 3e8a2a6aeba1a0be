package sandbox

import "fmt"

// validateExecutables checks that every Exec-kind typed argument names a
// file the current user can execute, using the platform's access(2)
// semantics (golang.org/x/sys/unix on unix, a portable existence check
// elsewhere; see exec_unix.go / exec_other.go). This runs before staging so
// a missing or non-executable command fails fast with a clear message
// rather than surfacing as an opaque spawn error.
func validateExecutables(spec InvocationSpec) error {
	for _, e := range spec.allExecs() {
		if err := checkExecutable(e.UnboxedPath()); err != nil {
			return fmt.Errorf("sandbox: exec path %q is not executable: %w", e.UnboxedPath(), err)
		}
	}

	return nil
}

// validateOverlap enforces that the declared input, output, and temp-dir
// name sets are pairwise disjoint, checked before any staging or
// spawning. It checks the pairs in a fixed order (input×output, input×temp,
// output×temp) and returns an *OverlapError, with that pair's own set
// names, for the first non-empty intersection.
func validateOverlap(spec InvocationSpec) error {
	inputs := namesOf(spec.allInputs())
	outputs := namesOf(spec.allOutputs())
	temps := namesOf(spec.allTempDirs())

	if common := intersect(inputs, outputs); len(common) > 0 {
		return &OverlapError{SetA: "Input files", SetB: "output files", Names: common}
	}

	if common := intersect(inputs, temps); len(common) > 0 {
		return &OverlapError{SetA: "Input files", SetB: "temp directories", Names: common}
	}

	if common := intersect(outputs, temps); len(common) > 0 {
		return &OverlapError{SetA: "Output files", SetB: "temp directories", Names: common}
	}

	return nil
}

// namesOf returns the set of string forms of a slice of typed paths.
func namesOf(args []TypedArg) map[string]bool {
	set := make(map[string]bool, len(args))
	for _, a := range args {
		set[a.String()] = true
	}

	return set
}

// intersect returns the common elements of a and b in map iteration order,
// which is unspecified. Order is not significant; callers only display the set.
func intersect(a, b map[string]bool) []string {
	var common []string

	for name := range a {
		if b[name] {
			common = append(common, name)
		}
	}

	return common
}
