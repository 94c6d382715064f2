package lock

import (
	"fmt"
	"time"
)

// ConflictError indicates the optimistic check failed: the target changed
// between the caller's snapshot and lock acquisition.
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s has been modified by another process. Please re-read the file and retry", e.Path)
}

// LockTimeoutError indicates the acquisition budget elapsed without the lock
// being obtained.
type LockTimeoutError struct {
	Target string
	Waited time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for lock on %s", e.Waited.Round(time.Millisecond), e.Target)
}
