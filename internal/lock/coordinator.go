package lock

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/GriffinCanCode/memstore/internal/shared/id"
)

// Mode selects the coordination behavior for an operation.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// Config holds acquisition budgets and the stale-lock threshold.
type Config struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	StaleThreshold time.Duration
	RetryInterval  time.Duration

	// Root, when set, identifies the storage root so its marker can be
	// placed inside it; every other target gets a sibling marker.
	Root string

	// WaitObserver, when set, receives the time spent waiting for each
	// successful acquisition. Used for metrics; must not block.
	WaitObserver func(time.Duration)
}

// DefaultConfig returns coordination defaults. Writes get the longer budget:
// they are less frequent but costlier to retry.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:    2 * time.Second,
		WriteTimeout:   5 * time.Second,
		StaleThreshold: 30 * time.Second,
		RetryInterval:  25 * time.Millisecond,
	}
}

// Coordinator serializes operations per lock target.
type Coordinator struct {
	cfg Config
}

// NewCoordinator creates a coordinator with the given configuration.
// Zero-valued fields fall back to defaults.
func NewCoordinator(cfg Config) *Coordinator {
	def := DefaultConfig()
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = def.StaleThreshold
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.Root != "" {
		cfg.Root = filepath.Clean(cfg.Root)
	}
	return &Coordinator{cfg: cfg}
}

// snapshot captures a target's last-modified time, or absence.
type snapshot struct {
	mtime  time.Time
	exists bool
}

func takeSnapshot(path string) snapshot {
	info, err := os.Stat(path)
	if err != nil {
		return snapshot{}
	}
	return snapshot{mtime: info.ModTime(), exists: true}
}

func (s snapshot) differs(other snapshot) bool {
	if s.exists != other.exists {
		return true
	}
	return s.exists && !s.mtime.Equal(other.mtime)
}

// WithCoordination runs fn while holding the exclusive lock for target.
//
// In write mode the target's timestamp is snapshotted before the lock is
// requested and re-checked once the lock is held; a difference (including
// absent/present transitions) aborts with ConflictError without running fn.
// The lock is released on every exit path.
func (c *Coordinator) WithCoordination(target string, mode Mode, fn func() error) error {
	var snap snapshot
	if mode == ModeWrite {
		snap = takeSnapshot(target)
	}

	budget := c.cfg.ReadTimeout
	if mode == ModeWrite {
		budget = c.cfg.WriteTimeout
	}

	release, err := c.acquire(lockTargetFor(target), budget)
	if err != nil {
		return err
	}
	defer release()

	if mode == ModeWrite && snap.differs(takeSnapshot(target)) {
		return &ConflictError{Path: target}
	}

	return fn()
}

// WithRenameCoordination runs fn while holding locks for both the source and
// destination targets. Locks are taken in sorted path order so two
// overlapping renames cannot deadlock each other. The conflict check uses
// the source snapshot, since the source is the entity being mutated.
func (c *Coordinator) WithRenameCoordination(source, dest string, fn func() error) error {
	snap := takeSnapshot(source)

	targets := []string{lockTargetFor(source), lockTargetFor(dest)}
	sort.Strings(targets)
	if targets[0] == targets[1] {
		targets = targets[:1]
	}

	var releases []func()
	defer func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}()

	for _, target := range targets {
		release, err := c.acquire(target, c.cfg.WriteTimeout)
		if err != nil {
			return err
		}
		releases = append(releases, release)
	}

	if snap.differs(takeSnapshot(source)) {
		return &ConflictError{Path: source}
	}

	return fn()
}

// lockTargetFor picks the filesystem entity that actually holds the lock
// marker: the target itself if it exists, else its nearest existing ancestor
// directory. A non-existent entity cannot carry a marker.
func lockTargetFor(target string) string {
	path := filepath.Clean(target)
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

// lockPathFor places the marker file for a lock target: a hidden sibling in
// the target's parent. Creating the marker must never perturb the target's
// own timestamp, or the conflict check would trip on the coordinator's own
// acquisition. The storage root is the one exception; its parent lies
// outside the tree, so its marker sits inside it. The root is never a write
// target, so its timestamp is not snapshotted.
func (c *Coordinator) lockPathFor(target string) string {
	if c.cfg.Root != "" && filepath.Clean(target) == c.cfg.Root {
		return filepath.Join(target, ".memstore.lock")
	}
	return filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".memstore.lock")
}

// holderInfo is written into the marker for post-mortem debugging.
type holderInfo struct {
	PID       int    `json:"pid"`
	Instance  string `json:"instance"`
	CreatedAt string `json:"created_at"`
}

// acquire obtains the exclusive lock for target, retrying with a bounded
// wait. Markers older than the stale threshold are reclaimed, so a crashed
// holder cannot deadlock the target forever.
func (c *Coordinator) acquire(target string, budget time.Duration) (func(), error) {
	lockPath := c.lockPathFor(target)
	start := time.Now()

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			meta := holderInfo{
				PID:       os.Getpid(),
				Instance:  id.Instance().String(),
				CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
			}
			if encoded, merr := json.Marshal(meta); merr == nil {
				_, _ = f.Write(append(encoded, '\n'))
			}
			_ = f.Close()
			if c.cfg.WaitObserver != nil {
				c.cfg.WaitObserver(time.Since(start))
			}
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}

		if staleAt, stale := c.staleAt(lockPath); stale {
			c.reclaim(lockPath, staleAt)
			continue
		}

		waited := time.Since(start)
		if waited >= budget {
			return nil, &LockTimeoutError{Target: target, Waited: waited}
		}
		time.Sleep(c.cfg.RetryInterval)
	}
}

// staleAt reports whether the marker has outlived its holder's budget,
// returning the timestamp that judgment was based on.
func (c *Coordinator) staleAt(lockPath string) (time.Time, bool) {
	info, err := os.Stat(lockPath)
	if err != nil {
		// Holder released between our create attempt and this stat.
		return time.Time{}, false
	}
	mtime := info.ModTime()
	return mtime, time.Since(mtime) > c.cfg.StaleThreshold
}

// reclaim removes the marker only if it still carries the timestamp that was
// judged stale. A contender that lost the reclamation race sees a fresh
// marker here and leaves it alone; this narrows, not closes, the window
// between the judgment and the removal.
func (c *Coordinator) reclaim(lockPath string, seen time.Time) {
	info, err := os.Stat(lockPath)
	if err != nil || !info.ModTime().Equal(seen) {
		return
	}
	_ = os.Remove(lockPath)
}
