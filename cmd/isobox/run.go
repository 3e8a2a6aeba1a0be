package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/nordlow/isobox/sandbox"
)

const (
	isoboxExecutableName = "isobox"

	// exitCodeSIGINT is the exit code when the process is interrupted by SIGINT (128 + 2).
	exitCodeSIGINT = 130
)

// Run is the entry point isolated from global state like stdin/stdout/stderr
// and env. Returns the process exit code. sigCh may be nil when signal
// handling is not needed (e.g. in tests).
func Run(stdin io.Reader, stdout, stderr io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	_ = stdin

	flags := flag.NewFlagSet(isoboxExecutableName, flag.ContinueOnError)
	flags.Usage = func() {}
	flags.SetOutput(&strings.Builder{})

	flagHelp := flags.BoolP("help", "h", false, "Show help")
	flagVersion := flags.BoolP("version", "v", false, "Show version and exit")
	flagSpec := flags.StringP("spec", "s", "", "Invocation document `file` (HUJSON)")
	flagDryRun := flags.Bool("dry-run", false, "Print the resolved argument vector without executing")
	flagDebug := flags.Bool("debug", false, "Print invocation details to stderr")
	flagMetricsAddr := flags.String("metrics-addr", "", "Expose Prometheus metrics on `addr` for the duration of the call")
	flagNoCache := flags.Bool("no-cache", false, "Disable caching for this invocation")
	flags.String("cache-dir", "", "Override the invocation document's cache_dir")
	flags.String("hash", "", "Override the invocation document's hash_name")
	flags.Bool("shell", false, "Override the invocation document's shell flag")
	flags.Bool("strip-in-prefix", false, "Override the invocation document's strip_box_in_dir_prefix flag")

	if err := flags.Parse(args[1:]); err != nil {
		fprintError(stderr, err)
		fprintln(stderr)
		printUsage(stderr)

		return 1
	}

	if *flagVersion {
		fprintf(stdout, "%s\n", formatVersion())

		return 0
	}

	if *flagHelp {
		printUsage(stdout)

		return 0
	}

	if *flagSpec == "" {
		printUsage(stderr)

		return 1
	}

	doc, err := loadInvocationDoc(*flagSpec)
	if err != nil {
		fprintError(stderr, err)

		return 1
	}

	spec, err := doc.toInvocationSpec()
	if err != nil {
		fprintError(stderr, fmt.Errorf("building invocation spec: %w", err))

		return 1
	}

	spec = applyFlags(spec, flags)

	if *flagNoCache {
		spec.CacheDir = ""
	} else if spec.CacheDir == "" {
		spec.CacheDir, err = resolveCacheDir(spec)
		if err != nil {
			fprintError(stderr, fmt.Errorf("resolving default cache directory: %w", err))

			return 1
		}
	}

	var debug *DebugLogger
	if *flagDebug {
		debug = NewDebugLogger(stderr)
		debug.Version()
	} else {
		debug = NewDebugLogger(nil)
	}

	logger, logClose, err := newFileLogger(spec.CacheDir)
	if err != nil {
		fprintError(stderr, fmt.Errorf("opening log file: %w", err))

		return 1
	}
	defer logClose()

	if *flagDryRun {
		fprintf(stdout, "%s\n", strings.Join(spec.Argv(), " "))

		return 0
	}

	metrics := sandbox.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *flagMetricsAddr != "" {
		go func() {
			if err := serveMetrics(ctx, *flagMetricsAddr, metrics); err != nil {
				logger.Warn("isobox: metrics server stopped", "error", err)
			}
		}()
	}

	debug.Outputs(spec.Outputs())

	if hexdig, err := sandbox.Fingerprint(spec); err == nil {
		debug.Fingerprint(hexdig, spec.HashNameOrDefault())
	}

	type callResult struct {
		exitCode int
		err      error
	}

	done := make(chan callResult, 1)

	go func() {
		start := time.Now()
		exitCode, callErr := sandbox.IsolatedCall(ctx, spec, sandbox.DefaultSpawn{},
			sandbox.WithLogger(logger),
			sandbox.WithMetrics(metrics),
			sandbox.WithStdout(stdout),
		)
		debug.Outcome(callErr == nil && exitCode == 0, time.Since(start))

		if callErr == nil && exitCode == 0 {
			debug.ArtifactSizes(spec.Outputs())
		}

		done <- callResult{exitCode: exitCode, err: callErr}
	}()

	if sigCh == nil {
		result := <-done
		return finish(stderr, result.exitCode, result.err)
	}

	select {
	case result := <-done:
		return finish(stderr, result.exitCode, result.err)
	case <-sigCh:
		fprintln(stderr, "Interrupted.")
		cancel()
		<-done

		return exitCodeSIGINT
	}
}

func finish(stderr io.Writer, exitCode int, err error) int {
	if err != nil {
		fprintError(stderr, err)

		return 1
	}

	return exitCode
}

const usageHelp = `isobox - hermetic directory-sandboxed command execution with content-addressed caching

Usage: isobox --spec <file> [flags]

Flags:
  -h, --help                 Show help
  -v, --version              Show version and exit
  -s, --spec <file>          Invocation document (HUJSON)
      --cache-dir <dir>      Override the document's cache_dir
      --no-cache             Disable caching for this invocation
      --hash <name>          Override the document's hash_name
      --shell                Override the document's shell flag
      --strip-in-prefix      Override the document's strip_box_in_dir_prefix flag
      --dry-run              Print the resolved argument vector without executing
      --debug                Print invocation details to stderr
      --metrics-addr <addr>  Expose Prometheus metrics for the duration of the call

Examples:
  isobox --spec build.json
  isobox --spec build.json --cache-dir /var/cache/isobox --debug`

func printUsage(output io.Writer) {
	fprintln(output, usageHelp)
}

func fprintln(out io.Writer, a ...any) {
	_, _ = fmt.Fprintln(out, a...)
}

func fprintf(out io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(out, format, a...)
}

func fprintError(out io.Writer, err error) {
	if isTerminal() {
		fprintln(out, "\033[31misobox: error:\033[0m", err)
	} else {
		fprintln(out, "isobox: error:", err)
	}
}

func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}

	return (stat.Mode() & os.ModeCharDevice) != 0
}
