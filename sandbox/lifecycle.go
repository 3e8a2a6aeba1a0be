package sandbox

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// sandboxRoot is the transient "in/ out/ temp/" directory tree for one
// invocation.
type sandboxRoot struct {
	root, in, out, temp string
}

// newSandboxRoot creates a unique, empty root directory under base (os.TempDir
// when base is empty), named with a random v4 UUID rather than a hand-rolled
// random suffix.
func newSandboxRoot(base string) (*sandboxRoot, error) {
	if base == "" {
		base = os.TempDir()
	}

	root := filepath.Join(base, "isobox-"+uuid.NewString())

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}

	return &sandboxRoot{
		root: root,
		in:   filepath.Join(root, inDirName),
		out:  filepath.Join(root, outDirName),
		temp: filepath.Join(root, tempDirName),
	}, nil
}

// remove deletes the entire sandbox root. It is always called, success or
// failure, as the final step of IsolatedCall.
func (r *sandboxRoot) remove() error {
	return os.RemoveAll(r.root)
}

// stageInputs creates in/ and, for every declared input (from Args and
// file-backed ExtraInputs), pre-creates its parent directories and
// link-or-copies it from the caller's working directory.
func (r *sandboxRoot) stageInputs(workDir string, inputs []TypedArg) error {
	if err := os.MkdirAll(r.in, 0o755); err != nil {
		return err
	}

	for _, in := range inputs {
		dst := filepath.Join(r.in, in.BoxedPath())

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}

		src := in.UnboxedPath()
		if !filepath.IsAbs(src) {
			src = filepath.Join(workDir, src)
		}

		if err := LinkOrCopy(src, dst); err != nil {
			return err
		}
	}

	return nil
}

// prepareOutputs creates out/ and pre-creates the parent directories for
// every declared output.
func (r *sandboxRoot) prepareOutputs(outputs []TypedArg) error {
	if err := os.MkdirAll(r.out, 0o755); err != nil {
		return err
	}

	for _, o := range outputs {
		dst := filepath.Join(r.out, o.BoxedPath())
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
	}

	return nil
}

// prepareTemp creates temp/.
func (r *sandboxRoot) prepareTemp() error {
	return os.MkdirAll(r.temp, 0o755)
}

// lockInputsReadOnly sets in/ to read+execute only for the owner, so the
// spawned command cannot create or modify anything in its own working
// directory.
func (r *sandboxRoot) lockInputsReadOnly() error {
	return os.Chmod(r.in, 0o500)
}

// unlockInputs restores in/ to read+write+execute so the sandbox root can be
// removed. It must run on every exit path, including
// failure ones, which is why runInSandbox both defers it and calls it
// directly once spawn returns, rather than only on the success path.
func (r *sandboxRoot) unlockInputs() error {
	return os.Chmod(r.in, 0o700)
}

// harvestOutputs moves every declared output from out/<boxed> to
// workDir/<boxed>.
func (r *sandboxRoot) harvestOutputs(workDir string, outputs []TypedArg) error {
	for _, o := range outputs {
		src := filepath.Join(r.out, o.BoxedPath())
		dst := filepath.Join(workDir, o.BoxedPath())

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}

		if err := MoveBack(src, dst); err != nil {
			return err
		}
	}

	return nil
}

// undeclaredOutputEntries lists every file under out/ whose path relative
// to out/ is not in the declared output set. A non-empty result is fatal
// (UndeclaredOutputError) and means nothing is harvested.
func undeclaredOutputEntries(outDir string, declared []TypedArg) ([]string, error) {
	declaredSet := make(map[string]bool, len(declared))
	for _, o := range declared {
		declaredSet[o.BoxedPath()] = true
	}

	var entries []string

	err := filepath.WalkDir(outDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path == outDir {
			return nil
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(outDir, path)
		if err != nil {
			return err
		}

		if !declaredSet[rel] {
			entries = append(entries, rel)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}
