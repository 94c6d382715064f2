// Package memory implements the persistent memory file store.
//
// The provider exposes six tools over the /memories virtual namespace: view,
// create, str_replace, insert, delete and rename. Every operation resolves
// its path through the containment validator, then runs its body under the
// cross-process concurrency coordinator; writes additionally pass an
// optimistic timestamp check so a lost update aborts instead of clobbering
// another process's change.
//
// Error messages are literal and actionable: the calling agent is expected
// to parse phrases like "Must be unique" or "has been modified by another
// process" to decide whether to re-read and retry.
package memory
