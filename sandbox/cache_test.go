package sandbox

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func Test_manifestPath_UsesFirstTwoHexCharsAsDir(t *testing.T) {
	t.Parallel()

	got := manifestPath("/cache", "abcdef0123")
	want := filepath.Join("/cache", "manifests", "ab", "abcdef0123-output.manifest")

	if got != want {
		t.Fatalf("manifestPath = %q, want %q", got, want)
	}
}

func Test_artifactPath_NestsUnderHashName(t *testing.T) {
	t.Parallel()

	got := artifactPath("/cache", "sha256", "deadbeef")
	want := filepath.Join("/cache", "artifacts", "sha256", "deadbeef")

	if got != want {
		t.Fatalf("artifactPath = %q, want %q", got, want)
	}
}

func Test_storeIntoCache_WritesArtifactAndManifest(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	outDir := t.TempDir()

	writeFile(t, filepath.Join(outDir, "foo.o"), "object bytes")

	outputs := []TypedArg{Output("foo.o")}

	ok := storeIntoCache(cacheDir, "fingerprint123", "sha256", outputs, outDir, discardLogger())
	if !ok {
		t.Fatal("storeIntoCache returned false")
	}

	entries, err := parseManifest(manifestPath(cacheDir, "fingerprint123"))
	if err != nil {
		t.Fatalf("parseManifest: %v", err)
	}

	entry, ok := entries["foo.o"]
	if !ok {
		t.Fatal("manifest missing foo.o entry")
	}

	digest, err := FileHexDigest(filepath.Join(outDir, "foo.o"), "sha256")
	if err != nil {
		t.Fatalf("FileHexDigest: %v", err)
	}

	if entry.digest != digest {
		t.Fatalf("manifest digest = %s, want %s", entry.digest, digest)
	}

	if _, err := os.Stat(artifactPath(cacheDir, "sha256", digest)); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
}

func Test_storeIntoCache_PreExistingArtifactLeftUntouched(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	outDir := t.TempDir()

	writeFile(t, filepath.Join(outDir, "foo.o"), "object bytes")

	digest, err := FileHexDigest(filepath.Join(outDir, "foo.o"), "sha256")
	if err != nil {
		t.Fatalf("FileHexDigest: %v", err)
	}

	artifact := artifactPath(cacheDir, "sha256", digest)
	if err := os.MkdirAll(filepath.Dir(artifact), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	writeFile(t, artifact, "pre-existing, assumed identical")

	if ok := storeIntoCache(cacheDir, "fp", "sha256", []TypedArg{Output("foo.o")}, outDir, discardLogger()); !ok {
		t.Fatal("storeIntoCache returned false")
	}

	got, err := os.ReadFile(artifact)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != "pre-existing, assumed identical" {
		t.Fatal("a pre-existing artifact must not be overwritten")
	}
}

func Test_storeIntoCache_MissingOutputDegradesToFalse(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	outDir := t.TempDir()

	ok := storeIntoCache(cacheDir, "fp", "sha256", []TypedArg{Output("missing.o")}, outDir, discardLogger())
	if ok {
		t.Fatal("storeIntoCache should return false when an output is missing")
	}

	if _, err := os.Stat(manifestPath(cacheDir, "fp")); !os.IsNotExist(err) {
		t.Fatal("no manifest should be written when store fails")
	}
}

func Test_loadFromCache_RestoresDeclaredOutputs(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	outDir := t.TempDir()
	workDir := t.TempDir()

	writeFile(t, filepath.Join(outDir, "foo.o"), "object bytes")

	outputs := []TypedArg{Output("foo.o")}

	if ok := storeIntoCache(cacheDir, "fp", "sha256", outputs, outDir, discardLogger()); !ok {
		t.Fatal("storeIntoCache returned false")
	}

	if ok := loadFromCache(cacheDir, "fp", "sha256", outputs, workDir); !ok {
		t.Fatal("loadFromCache returned false for a populated cache")
	}

	assertFileContent(t, filepath.Join(workDir, "foo.o"), "object bytes")
}

func Test_loadFromCache_SkipsWhenWorkingCopyAlreadyMatches(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	outDir := t.TempDir()
	workDir := t.TempDir()

	writeFile(t, filepath.Join(outDir, "foo.o"), "object bytes")
	writeFile(t, filepath.Join(workDir, "foo.o"), "object bytes")

	outputs := []TypedArg{Output("foo.o")}

	if ok := storeIntoCache(cacheDir, "fp", "sha256", outputs, outDir, discardLogger()); !ok {
		t.Fatal("storeIntoCache returned false")
	}

	// Replace the artifact so a copy-on-mismatch would be observable, then
	// confirm load still reports success without touching the (already
	// correct) working copy.
	info, err := os.Stat(filepath.Join(workDir, "foo.o"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	if ok := loadFromCache(cacheDir, "fp", "sha256", outputs, workDir); !ok {
		t.Fatal("loadFromCache returned false")
	}

	after, err := os.Stat(filepath.Join(workDir, "foo.o"))
	if err != nil {
		t.Fatalf("Stat after load: %v", err)
	}

	if !after.ModTime().Equal(info.ModTime()) {
		t.Fatal("loadFromCache must not rewrite a working copy that already matches the manifest digest")
	}
}

func Test_loadFromCache_MissingManifestIsAMiss(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()

	if loadFromCache(cacheDir, "no-such-fingerprint", "sha256", []TypedArg{Output("foo.o")}, t.TempDir()) {
		t.Fatal("loadFromCache should miss when no manifest exists")
	}
}

func Test_loadFromCache_UnsatisfiedOutputIsAMiss(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	outDir := t.TempDir()

	writeFile(t, filepath.Join(outDir, "foo.o"), "object bytes")

	if ok := storeIntoCache(cacheDir, "fp", "sha256", []TypedArg{Output("foo.o")}, outDir, discardLogger()); !ok {
		t.Fatal("storeIntoCache returned false")
	}

	// A declared output the manifest never recorded (e.g. a newly added
	// ExtraOutput) must miss entirely, not load the outputs it does have.
	outputs := []TypedArg{Output("foo.o"), Output("foo.su")}

	if loadFromCache(cacheDir, "fp", "sha256", outputs, t.TempDir()) {
		t.Fatal("loadFromCache should miss when a declared output has no manifest entry")
	}
}

func Test_loadFromCache_UnconsumedManifestEntryIsAMiss(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	outDir := t.TempDir()

	writeFile(t, filepath.Join(outDir, "foo.o"), "object bytes")
	writeFile(t, filepath.Join(outDir, "foo.su"), "stack-usage bytes")

	outputs := []TypedArg{Output("foo.o"), Output("foo.su")}

	if ok := storeIntoCache(cacheDir, "fp", "sha256", outputs, outDir, discardLogger()); !ok {
		t.Fatal("storeIntoCache returned false")
	}

	// The manifest has two entries but the declared-outputs set this
	// invocation asks for has shrunk to one: out of sync, so it's a miss.
	if loadFromCache(cacheDir, "fp", "sha256", []TypedArg{Output("foo.o")}, t.TempDir()) {
		t.Fatal("loadFromCache should miss when the manifest has unconsumed entries")
	}
}

func Test_writeManifestAtomic_NeverLeavesPartialFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "x-output.manifest")

	entries := []manifestEntry{
		{digest: "aaaa", mtime: "1.000000", name: "a.o"},
		{digest: "bbbb", mtime: "2.000000", name: "b.o"},
	}

	if err := writeManifestAtomic(path, entries); err != nil {
		t.Fatalf("writeManifestAtomic: %v", err)
	}

	parsed, err := parseManifest(path)
	if err != nil {
		t.Fatalf("parseManifest: %v", err)
	}

	if len(parsed) != 2 {
		t.Fatalf("parsed %d entries, want 2", len(parsed))
	}

	if parsed["a.o"].digest != "aaaa" || parsed["b.o"].digest != "bbbb" {
		t.Fatalf("unexpected parsed entries: %+v", parsed)
	}
}

func Test_parseManifest_SkipsMalformedLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "x-output.manifest")

	writeFile(t, path, "onlyonefield\ndeadbeef 1.5 a.o\n\nstillbroken 2.0\n")

	entries, err := parseManifest(path)
	if err != nil {
		t.Fatalf("parseManifest: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("parsed %d entries, want 1 (malformed lines must be skipped)", len(entries))
	}

	if entries["a.o"].digest != "deadbeef" {
		t.Fatalf("entries[a.o].digest = %q, want deadbeef", entries["a.o"].digest)
	}
}
