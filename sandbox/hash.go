package sandbox

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// hashFactory constructs a fresh hash.Hash for one fingerprint or digest
// computation.
type hashFactory func() hash.Hash

var (
	hashRegistryMu sync.RWMutex
	hashRegistry   = map[string]hashFactory{
		"sha256": sha256.New,
		"sha1":   sha1.New,
		"md5":    md5.New,
		"blake2b-256": func() hash.Hash {
			h, err := blake2b.New256(nil)
			if err != nil {
				// blake2b.New256 only fails for a bad key, and we pass none.
				panic(fmt.Errorf("sandbox: blake2b-256: %w", err))
			}

			return h
		},
	}
)

// RegisterHash makes name available as an InvocationSpec.HashName /
// file-digest algorithm. It is safe for concurrent use. Registering over an
// existing name replaces it.
func RegisterHash(name string, factory func() hash.Hash) {
	hashRegistryMu.Lock()
	defer hashRegistryMu.Unlock()

	hashRegistry[name] = factory
}

// newHash looks up name in the registry.
func newHash(name string) (hash.Hash, error) {
	hashRegistryMu.RLock()
	factory, ok := hashRegistry[name]
	hashRegistryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("sandbox: unknown hash name %q", name)
	}

	return factory(), nil
}
