package sandbox

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// manifestPath returns the manifest file for a fingerprint under cacheDir:
// manifests/<hex[0:2]>/<hex>-output.manifest.
func manifestPath(cacheDir, hexdig string) string {
	prefix := hexdig
	if len(hexdig) >= 2 {
		prefix = hexdig[0:2]
	}

	return filepath.Join(cacheDir, manifestsDirName, prefix, hexdig+"-output.manifest")
}

// artifactPath returns the content-addressed artifact file for digest under
// cacheDir's hashName subtree.
func artifactPath(cacheDir, hashName, digest string) string {
	return filepath.Join(cacheDir, artifactsDirName, hashName, digest)
}

// manifestEntry is one parsed line of a manifest file.
type manifestEntry struct {
	digest string
	mtime  string
	name   string // boxed output name, relative, no leading "/", no "\n"
}

func (e manifestEntry) line() string {
	return e.digest + " " + e.mtime + " " + e.name + "\n"
}

// parseManifest reads and parses every line of the manifest at path, keyed by boxed output
// name. Malformed lines are skipped (a corrupt manifest degrades to a cache
// miss for the entries it could not parse, never a fatal error).
func parseManifest(path string) (map[string]manifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries := make(map[string]manifestEntry)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			continue
		}

		entries[parts[2]] = manifestEntry{digest: parts[0], mtime: parts[1], name: parts[2]}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// writeManifestAtomic writes entries to path via a temp file plus rename, so
// a concurrent reader never observes a partial manifest.
func writeManifestAtomic(path string, entries []manifestEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, e := range entries {
		if _, err := w.WriteString(e.line()); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)

			return err
		}
	}

	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)

		return err
	}

	return os.Rename(tmpPath, path)
}

// storeIntoCache writes every declared output's content into the artifact
// store and records it in a freshly-written manifest.
//
// A file-not-found for any output degrades to a logged warning and a false
// return; the cache remains consistent (no partial manifest is ever
// observed) and the overall invocation still succeeds via the outputs it
// already harvested.
func storeIntoCache(cacheDir, hexdig, hashName string, outputs []TypedArg, outDir string, logger *slog.Logger) bool {
	entries := make([]manifestEntry, 0, len(outputs))

	artifactDir := filepath.Join(cacheDir, artifactsDirName, hashName)
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		logger.Warn("sandbox: cache store: preparing artifact dir", "error", err)

		return false
	}

	now := strconv.FormatFloat(timeNowUnix(), 'f', 6, 64)

	for _, o := range outputs {
		src := filepath.Join(outDir, o.BoxedPath())

		digest, err := FileHexDigest(src, hashName)
		if err != nil {
			logger.Warn("sandbox: cache store: could not store output into cache", "output", o.BoxedPath(), "error", err)

			return false
		}

		dst := artifactPath(cacheDir, hashName, digest)
		if ok, err := AtomicCopyErr(src, dst, false); !ok {
			logger.Warn("sandbox: cache store: copying artifact", "output", o.BoxedPath(), "error", err)

			return false
		}

		entries = append(entries, manifestEntry{digest: digest, mtime: now, name: o.BoxedPath()})
	}

	if err := writeManifestAtomic(manifestPath(cacheDir, hexdig), entries); err != nil {
		logger.Warn("sandbox: cache store: writing manifest", "error", err)

		return false
	}

	return true
}

// loadFromCache restores every declared output directly into workDir from
// the artifact store, replaying the manifest recorded for hexdig. It
// returns false for any reason the manifest cannot satisfy every declared
// output: that is always a cache miss, never a fatal error.
func loadFromCache(cacheDir, hexdig, hashName string, outputs []TypedArg, workDir string) bool {
	entries, err := parseManifest(manifestPath(cacheDir, hexdig))
	if err != nil {
		return false
	}

	consumed := make(map[string]bool, len(outputs))

	for _, o := range outputs {
		entry, ok := entries[o.BoxedPath()]
		if !ok {
			return false
		}

		consumed[o.BoxedPath()] = true

		dst := filepath.Join(workDir, o.BoxedPath())

		if existingDigest, err := FileHexDigest(dst, hashName); err == nil && existingDigest == entry.digest {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return false
		}

		src := artifactPath(cacheDir, hashName, entry.digest)
		if ok, _ := AtomicCopyErr(src, dst, true); !ok {
			return false
		}
	}

	// Any manifest entry left unconsumed indicates the manifest is out of
	// sync with the declared outputs: treated as a load miss, not fatal.
	if len(consumed) != len(entries) {
		return false
	}

	return true
}

// timeNowUnix is a seam so tests can avoid depending on wall-clock time
// indirectly through manifest content; production code always calls
// time.Now().
var timeNowUnix = func() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
