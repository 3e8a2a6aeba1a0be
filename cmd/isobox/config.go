package main

import (
	flag "github.com/spf13/pflag"

	"github.com/nordlow/isobox/sandbox"
)

// applyFlags overrides fields of spec with CLI flag values, but only for
// flags the user actually set, so an unset flag's zero value never clobbers
// a document-sourced value.
func applyFlags(spec sandbox.InvocationSpec, flags *flag.FlagSet) sandbox.InvocationSpec {
	if flags.Changed("cache-dir") {
		if v, err := flags.GetString("cache-dir"); err == nil {
			spec.CacheDir = v
		}
	}

	if flags.Changed("hash") {
		if v, err := flags.GetString("hash"); err == nil {
			spec.HashName = v
		}
	}

	if flags.Changed("shell") {
		if v, err := flags.GetBool("shell"); err == nil {
			spec.Shell = v
		}
	}

	if flags.Changed("strip-in-prefix") {
		if v, err := flags.GetBool("strip-in-prefix"); err == nil {
			spec.StripBoxInDirPrefix = v
		}
	}

	return spec
}

// resolveCacheDir returns spec's cache directory, or the default
// "<home>/.cache/isobox" when neither the document nor a flag set one.
func resolveCacheDir(spec sandbox.InvocationSpec) (string, error) {
	if spec.CacheDir != "" {
		return spec.CacheDir, nil
	}

	return sandbox.DefaultCacheDir("isobox")
}
