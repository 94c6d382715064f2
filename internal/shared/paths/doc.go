// Package paths maps virtual memory paths onto the physical storage root.
//
// Callers only ever see virtual paths under the fixed /memories namespace.
// Resolve translates a virtual path into an absolute physical path and
// guarantees the result stays inside the configured storage root; ToVirtual
// inverts the mapping for human-readable messages.
//
// Containment is checked lexically against the normalized absolute path,
// component-wise rather than by raw string prefix, so a sibling directory
// such as /data/memories-evil never passes a check against /data/memories.
// Symbolic links inside the root are not re-resolved.
//
// # Usage
//
//	physical, err := paths.Resolve("/memories/notes/a.txt", cfg.Storage.Root)
//	virtual, err := paths.ToVirtual(physical, cfg.Storage.Root)
package paths
