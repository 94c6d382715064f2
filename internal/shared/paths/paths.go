package paths

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Namespace is the fixed virtual prefix exposed to callers.
const Namespace = "/memories"

// PathValidationError indicates a virtual path that is malformed or would
// escape the storage root.
type PathValidationError struct {
	Path   string
	Reason string
}

func (e *PathValidationError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

// NotWithinRootError indicates a physical path outside the storage root.
type NotWithinRootError struct {
	Path string
	Root string
}

func (e *NotWithinRootError) Error() string {
	return fmt.Sprintf("path %q is not within storage root %q", e.Path, e.Root)
}

// Resolve translates a virtual path into an absolute physical path under root.
//
// The virtual path must be the namespace itself or a descendant of it; the
// resolved result must stay equal to, or a proper descendant of, the
// normalized root. Traversal segments are resolved lexically before the
// containment check, so "/memories/a/../b" is fine while "/memories/../etc"
// is rejected. Backslashes are ordinary filename bytes, never separators.
func Resolve(virtual, root string) (string, error) {
	rel, ok := stripNamespace(virtual)
	if !ok {
		return "", &PathValidationError{
			Path:   virtual,
			Reason: fmt.Sprintf("path must begin with %s", Namespace),
		}
	}

	cleanRoot := filepath.Clean(root)
	physical := filepath.Join(cleanRoot, rel)

	if !isWithin(cleanRoot, physical) {
		return "", &PathValidationError{
			Path:   virtual,
			Reason: "path escapes the storage root",
		}
	}

	return physical, nil
}

// ToVirtual translates a physical path back into the virtual namespace.
// Used only for producing messages, never for containment decisions.
func ToVirtual(physical, root string) (string, error) {
	cleanRoot := filepath.Clean(root)
	cleanPhys := filepath.Clean(physical)

	if cleanPhys == cleanRoot {
		return Namespace, nil
	}
	prefix := cleanRoot + string(filepath.Separator)
	if !strings.HasPrefix(cleanPhys, prefix) {
		return "", &NotWithinRootError{Path: physical, Root: root}
	}

	rel := filepath.ToSlash(strings.TrimPrefix(cleanPhys, prefix))
	return Namespace + "/" + rel, nil
}

// stripNamespace removes the namespace prefix, requiring a path boundary
// after it: "/memories" and "/memories/..." match, "/memories-evil" does not.
func stripNamespace(virtual string) (string, bool) {
	if virtual == Namespace {
		return "", true
	}
	if rest, ok := strings.CutPrefix(virtual, Namespace+"/"); ok {
		return rest, true
	}
	return "", false
}

// isWithin reports whether physical is root itself or a proper descendant,
// compared component-wise on normalized absolute paths.
func isWithin(root, physical string) bool {
	if physical == root {
		return true
	}
	return strings.HasPrefix(physical, root+string(filepath.Separator))
}
