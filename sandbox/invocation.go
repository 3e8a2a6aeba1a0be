package sandbox

import "time"

// Sandbox subtree names.
const (
	inDirName   = "in"
	outDirName  = "out"
	tempDirName = "temp"
)

// Cache directory layout names.
const (
	manifestsDirName = "manifests"
	artifactsDirName = "artifacts"
	logFileName      = "all.log"
)

// EnvValue is an environment variable's value: either a literal string or a
// TempDir typed path, whose boxed location is substituted in.
type EnvValue struct {
	literal string
	tempDir TypedArg // kind() == kindTempDir, or nil when literal is set
}

// EnvLiteral wraps a literal environment variable value.
func EnvLiteral(value string) EnvValue { return EnvValue{literal: value} }

// EnvTempDir wraps a TempDir typed path as an environment variable value; the
// process observes the sandboxed temp/ location.
func EnvTempDir(dir TypedArg) EnvValue { return EnvValue{tempDir: dir} }

// isTempDir reports whether the value is a TempDir reference rather than a
// literal string.
func (v EnvValue) isTempDir() bool { return v.tempDir != nil }

// resolvedArgString returns the value as it should be written into the
// process's environment: the raw literal, or the prefixed boxed path of a
// TempDir reference.
func (v EnvValue) resolvedArgString() string {
	if v.tempDir != nil {
		return argString(v.tempDir)
	}

	return v.literal
}

// ExtraInput is an additional fingerprint/staging input beyond typed_args:
// either raw bytes or an Input typed path.
type ExtraInput struct {
	bytes []byte
	input TypedArg // kind() == kindInput, or nil when bytes is set
}

// ExtraBytes wraps raw bytes that contribute only to the fingerprint.
func ExtraBytes(b []byte) ExtraInput { return ExtraInput{bytes: append([]byte(nil), b...)} }

// ExtraFile wraps an Input typed path that is staged into the sandbox in
// addition to contributing to the fingerprint.
func ExtraFile(input TypedArg) ExtraInput { return ExtraInput{input: input} }

// isBytes reports whether the extra input is raw bytes rather than a file.
func (e ExtraInput) isBytes() bool { return e.input == nil }

// InvocationSpec is the full description of one IsolatedCall invocation.
type InvocationSpec struct {
	// Args is the ordered argument vector: executable, declared inputs and
	// outputs, temp files/dirs, and literal strings, in invocation order.
	Args []TypedArg

	// Env is the environment mapping. Iteration for fingerprinting and for
	// building the child's environment is always by key, sorted
	// lexicographically as byte strings.
	Env map[string]EnvValue

	// ExtraInputs are additional fingerprint/staging inputs not already
	// named in Args, in the given order.
	ExtraInputs []ExtraInput

	// ExtraOutputs are additional declared outputs not already named in
	// Args (Output typed paths only).
	ExtraOutputs []TypedArg

	// CacheDir enables caching when non-empty. See DefaultCacheDir.
	CacheDir string

	// HashName selects the algorithm used for the fingerprint and for
	// content-addressing artifacts. See RegisterHash / the built-in
	// "sha256", "sha1", "md5", "blake2b-256" names. Defaults to "sha256".
	HashName string

	// Shell requests that Spawn interpret Args through a shell.
	Shell bool

	// Timeout bounds the spawned process's runtime. Zero means no timeout.
	Timeout time.Duration

	// StripBoxInDirPrefix enables the prefix scrubber on all
	// declared outputs after a successful call.
	StripBoxInDirPrefix bool
}

// hashNameOrDefault returns spec.HashName, defaulting to "sha256".
func (spec InvocationSpec) hashNameOrDefault() string {
	if spec.HashName == "" {
		return "sha256"
	}

	return spec.HashName
}

// HashNameOrDefault returns spec.HashName, defaulting to "sha256". Exported
// for callers (e.g. a CLI's debug output) that want to display the
// effective hash algorithm without duplicating the default.
func (spec InvocationSpec) HashNameOrDefault() string {
	return spec.hashNameOrDefault()
}

// Outputs returns the declared outputs named in Args plus ExtraOutputs, for
// callers (e.g. a CLI's debug output) that want to display them without
// reaching into package-private classification helpers.
func (spec InvocationSpec) Outputs() []TypedArg {
	return spec.allOutputs()
}

// allOutputs returns the declared outputs named in Args plus ExtraOutputs.
func (spec InvocationSpec) allOutputs() []TypedArg {
	out := make([]TypedArg, 0, len(spec.Args)+len(spec.ExtraOutputs))

	for _, a := range spec.Args {
		if isOutput(a) {
			out = append(out, a)
		}
	}

	out = append(out, spec.ExtraOutputs...)

	return out
}

// allInputs returns the declared inputs named in Args plus file-backed
// ExtraInputs.
func (spec InvocationSpec) allInputs() []TypedArg {
	var ins []TypedArg

	for _, a := range spec.Args {
		if isInput(a) {
			ins = append(ins, a)
		}
	}

	for _, e := range spec.ExtraInputs {
		if !e.isBytes() {
			ins = append(ins, e.input)
		}
	}

	return ins
}

// allTempDirs returns the declared temp dirs named in Args plus any
// referenced from Env.
func (spec InvocationSpec) allTempDirs() []TypedArg {
	var dirs []TypedArg

	for _, a := range spec.Args {
		if isTempDir(a) {
			dirs = append(dirs, a)
		}
	}

	for _, v := range spec.Env {
		if v.isTempDir() {
			dirs = append(dirs, v.tempDir)
		}
	}

	return dirs
}

// allExecs returns the executable typed paths named in Args (ordinarily
// exactly one, Args[0], but nothing in the data model forbids more than
// one Exec-kind argument).
func (spec InvocationSpec) allExecs() []TypedArg {
	var execs []TypedArg

	for _, a := range spec.Args {
		if a.kind() == kindExec {
			execs = append(execs, a)
		}
	}

	return execs
}
