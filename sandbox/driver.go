package sandbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Option configures an IsolatedCall invocation beyond InvocationSpec: the
// ambient logger and domain metrics, both optional and both no-ops when
// omitted (spec's design notes: no global logger singleton, no global
// metrics registry installed by library code).
type Option func(*options)

type options struct {
	logger      *slog.Logger
	metrics     *Metrics
	sandboxBase string // base dir for sandbox roots; empty means os.TempDir()
	stdout      io.Writer
}

// WithLogger attaches a structured logger. IsolatedCall emits Debug/Info
// records for routine cache misses and Warn records for best-effort
// cache-store failures; it never installs a process-wide logger itself.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics attaches a Metrics recorder for cache hit/miss/store-failure
// counters and call-duration observations.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithSandboxBaseDir overrides the directory under which transient sandbox
// roots are created (default os.TempDir()).
func WithSandboxBaseDir(dir string) Option {
	return func(o *options) { o.sandboxBase = dir }
}

// WithStdout directs the spawned process's merged stdout/stderr to w
// (default: discarded).
func WithStdout(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

func buildOptions(opts []Option) *options {
	o := &options{logger: slog.New(slog.DiscardHandler), stdout: io.Discard}
	for _, apply := range opts {
		apply(o)
	}

	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	if o.stdout == nil {
		o.stdout = io.Discard
	}

	return o
}

// IsolatedCall is the single entry point of this package. It
// classifies spec's arguments, validates disjointness, computes the
// fingerprint, probes the cache, and, on a miss, stages a transient
// sandbox, invokes spawn, harvests outputs, and rejects any undeclared ones.
//
// It returns the process exit status (zero on success, non-zero as reported
// by spawn) or a non-nil error for violations the driver itself detects
// (overlap, undeclared output, I/O failure, fingerprint failure). A
// non-zero exit status reported by spawn comes with a nil error: the
// taxonomy's ChildFailure is simply the returned exit code. Whenever the
// error is non-nil, the returned status is -1.
func IsolatedCall(ctx context.Context, spec InvocationSpec, spawn Spawn, opts ...Option) (int, error) {
	o := buildOptions(opts)

	if err := validateOverlap(spec); err != nil {
		return -1, err
	}

	workDir, err := os.Getwd()
	if err != nil {
		return -1, fmt.Errorf("sandbox: determining working directory: %w", err)
	}

	hexdig, err := Fingerprint(spec)
	if err != nil {
		return -1, err
	}

	hashName := spec.hashNameOrDefault()
	outputs := spec.allOutputs()
	cachingEnabled := spec.CacheDir != ""

	if cachingEnabled {
		if loadFromCache(spec.CacheDir, hexdig, hashName, outputs, workDir) {
			o.logger.Info("sandbox: cache hit", "fingerprint", hexdig)
			o.metrics.observeCacheHit()

			return 0, nil
		}

		o.logger.Debug("sandbox: cache miss", "fingerprint", hexdig)
		o.metrics.observeCacheMiss()
	}

	return runInSandbox(ctx, spec, spawn, workDir, hexdig, hashName, outputs, o)
}

// runInSandbox is the cache-miss path: stage the sandbox, invoke spawn,
// scrub, verify no undeclared outputs exist, store into the cache, and
// harvest the declared outputs back into the working directory.
func runInSandbox(
	ctx context.Context,
	spec InvocationSpec,
	spawn Spawn,
	workDir, hexdig, hashName string,
	outputs []TypedArg,
	o *options,
) (int, error) {
	if err := validateExecutables(spec); err != nil {
		return -1, err
	}

	root, err := newSandboxRoot(o.sandboxBase)
	if err != nil {
		return -1, fmt.Errorf("sandbox: creating sandbox root: %w", err)
	}
	defer func() {
		if err := root.remove(); err != nil {
			o.logger.Warn("sandbox: removing sandbox root", "root", root.root, "error", err)
		}
	}()

	if err := root.stageInputs(workDir, spec.allInputs()); err != nil {
		return -1, fmt.Errorf("sandbox: staging inputs: %w", err)
	}

	if err := root.prepareOutputs(outputs); err != nil {
		return -1, fmt.Errorf("sandbox: preparing output directories: %w", err)
	}

	if err := root.prepareTemp(); err != nil {
		return -1, fmt.Errorf("sandbox: preparing temp directory: %w", err)
	}

	if err := root.lockInputsReadOnly(); err != nil {
		return -1, fmt.Errorf("sandbox: locking input directory: %w", err)
	}
	// Deferred after root.remove, so it runs first, even when spawn panics.
	defer func() { _ = root.unlockInputs() }()

	sc := SpawnCommand{
		Args:   rewriteArgs(spec.Args),
		Env:    rewriteEnv(spec.Env),
		Dir:    root.in,
		Stdout: o.stdout,
		Shell:  spec.Shell,
	}

	callCtx := ctx
	var cancel context.CancelFunc

	if spec.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	start := time.Now()
	exitCode, spawnErr := spawn.Run(callCtx, sc)
	o.metrics.observeCallDuration(time.Since(start))

	// Input-dir permission: Writable -> ReadExec (during call) -> Writable
	// (for teardown). This must run on every exit path, including spawn
	// errors, so it lives here rather than only on the success path.
	if err := root.unlockInputs(); err != nil {
		return -1, fmt.Errorf("sandbox: unlocking input directory: %w", err)
	}

	if spawnErr != nil {
		return -1, spawnErr
	}

	if exitCode != 0 {
		return exitCode, nil
	}

	if spec.StripBoxInDirPrefix {
		prefix := root.in + string(os.PathSeparator)
		if err := scrubOutputs(root.out, outputs, prefix); err != nil {
			return -1, fmt.Errorf("sandbox: scrubbing outputs: %w", err)
		}
	}

	// The undeclared-output check runs before the store and the harvest:
	// an invocation that produced files it never declared must not reach
	// the caller's working directory with any of its outputs, and must not
	// leave a manifest behind that would let an identical re-invocation
	// replay from cache and mask the failure.
	undeclared, err := undeclaredOutputEntries(root.out, outputs)
	if err != nil {
		return -1, fmt.Errorf("sandbox: verifying output directory: %w", err)
	}

	if len(undeclared) > 0 {
		return -1, &UndeclaredOutputError{BoxOutDir: root.out, Entries: undeclared}
	}

	if spec.CacheDir != "" {
		if !storeIntoCache(spec.CacheDir, hexdig, hashName, outputs, root.out, o.logger) {
			o.metrics.observeStoreFailure()
		}
	}

	if err := root.harvestOutputs(workDir, outputs); err != nil {
		return -1, fmt.Errorf("sandbox: harvesting outputs: %w", err)
	}

	return 0, nil
}

// Argv returns the argument vector the spawned process sees, with outputs
// prefixed by "../out" and temp files/dirs by "../temp". Exposed
// for callers (e.g. a CLI's dry-run mode) that want to display the vector
// without executing it.
func (spec InvocationSpec) Argv() []string {
	return rewriteArgs(spec.Args)
}

// rewriteArgs renders every typed argument to the string the spawned
// process should see: outputs prefixed with "../out", temp files/dirs with
// "../temp", everything else unprefixed.
func rewriteArgs(args []TypedArg) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = argString(a)
	}

	return out
}

// rewriteEnv renders spec's environment to a sorted KEY=VALUE slice,
// resolving TempDir references to their prefixed boxed path.
func rewriteEnv(env map[string]EnvValue) []string {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}

	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, name+"="+env[name].resolvedArgString())
	}

	return out
}

// DefaultCacheDir returns "<home>/.cache/<appName>".
func DefaultCacheDir(appName string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".cache", appName), nil
}

// DefaultLogDir returns "<home>/.<appName>", the log directory used when
// caching is disabled.
func DefaultLogDir(appName string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, "."+appName), nil
}
