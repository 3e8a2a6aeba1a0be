// Package sandbox executes an external command inside a transient filesystem
// sandbox and memoizes its declared outputs in a content-addressed cache, so
// that a later invocation with byte-identical inputs can replay its outputs
// without spawning the command again.
//
// # Planning vs Execution
//
// [IsolatedCall] is the single entry point. It classifies the supplied
// [TypedArg] values, computes a deterministic [Fingerprint], probes the cache,
// and, on a miss, stages a transient "in/ out/ temp/" directory tree,
// invokes the command through the injected [Spawn], harvests declared
// outputs, and rejects any undeclared ones.
//
// # Security Note
//
// This package is a directory-layout convention plus read-only permission
// bits, not a kernel-enforced jail. It provides no namespace isolation, no
// seccomp filtering, and no network or resource limits. Concurrent
// invocations against the same cache directory are coordinated only by POSIX
// rename atomicity, never by explicit locks.
package sandbox
