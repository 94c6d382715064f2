package lock

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		ReadTimeout:    500 * time.Millisecond,
		WriteTimeout:   time.Second,
		StaleThreshold: 10 * time.Second,
		RetryInterval:  5 * time.Millisecond,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadRunsBody(t *testing.T) {
	c := NewCoordinator(testConfig())
	target := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, target, "hello")

	ran := false
	err := c.WithCoordination(target, ModeRead, func() error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
}

func TestWriteRunsBodyWhenUnchanged(t *testing.T) {
	c := NewCoordinator(testConfig())
	target := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, target, "hello")

	err := c.WithCoordination(target, ModeWrite, func() error {
		return os.WriteFile(target, []byte("world"), 0o644)
	})

	require.NoError(t, err)
}

func TestLockIsExclusiveAcrossModes(t *testing.T) {
	c := NewCoordinator(testConfig())
	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	writeFile(t, target, "hello")

	holding := make(chan struct{})
	releaseNow := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- c.WithCoordination(target, ModeWrite, func() error {
			close(holding)
			<-releaseNow
			return nil
		})
	}()

	<-holding

	// A reader against the same target must wait: the lock makes no
	// read/write distinction.
	var order []string
	var mu sync.Mutex
	readDone := make(chan error, 1)
	go func() {
		readDone <- c.WithCoordination(target, ModeRead, func() error {
			mu.Lock()
			order = append(order, "read")
			mu.Unlock()
			return nil
		})
	}()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	order = append(order, "release")
	mu.Unlock()
	close(releaseNow)

	require.NoError(t, <-done)
	require.NoError(t, <-readDone)
	assert.Equal(t, []string{"release", "read"}, order)
}

func TestWriteConflictAborts(t *testing.T) {
	c := NewCoordinator(testConfig())
	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	writeFile(t, target, "hello")

	// Hold the lock externally so the writer's snapshot goes stale while
	// it waits for acquisition.
	lockPath := c.lockPathFor(target)
	require.NoError(t, os.WriteFile(lockPath, nil, 0o600))

	done := make(chan error, 1)
	ran := false
	go func() {
		done <- c.WithCoordination(target, ModeWrite, func() error {
			ran = true
			return nil
		})
	}()

	time.Sleep(50 * time.Millisecond)

	// Simulate a concurrent modification, then release the lock.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(target, future, future))
	require.NoError(t, os.Remove(lockPath))

	err := <-done
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, err.Error(), "has been modified by another process")
	assert.Contains(t, err.Error(), "re-read the file and retry")
	assert.False(t, ran, "body must not run after a failed conflict check")
}

func TestWriteConflictOnDeletion(t *testing.T) {
	c := NewCoordinator(testConfig())
	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	writeFile(t, target, "hello")

	lockPath := c.lockPathFor(target)
	require.NoError(t, os.WriteFile(lockPath, nil, 0o600))

	done := make(chan error, 1)
	go func() {
		done <- c.WithCoordination(target, ModeWrite, func() error { return nil })
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.Remove(target))
	require.NoError(t, os.Remove(lockPath))

	var conflict *ConflictError
	require.ErrorAs(t, <-done, &conflict)
}

func TestReadSkipsConflictCheck(t *testing.T) {
	c := NewCoordinator(testConfig())
	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	writeFile(t, target, "hello")

	lockPath := c.lockPathFor(target)
	require.NoError(t, os.WriteFile(lockPath, nil, 0o600))

	done := make(chan error, 1)
	go func() {
		done <- c.WithCoordination(target, ModeRead, func() error { return nil })
	}()

	time.Sleep(50 * time.Millisecond)
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(target, future, future))
	require.NoError(t, os.Remove(lockPath))

	// A read after the writer finishes observes the fresh state, no error.
	require.NoError(t, <-done)
}

func TestAcquisitionTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.ReadTimeout = 100 * time.Millisecond
	c := NewCoordinator(cfg)

	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	writeFile(t, target, "hello")

	lockPath := c.lockPathFor(target)
	require.NoError(t, os.WriteFile(lockPath, nil, 0o600))

	err := c.WithCoordination(target, ModeRead, func() error { return nil })

	var timeout *LockTimeoutError
	require.ErrorAs(t, err, &timeout)
}

func TestWriteOnDirectoryDoesNotSelfConflict(t *testing.T) {
	c := NewCoordinator(testConfig())
	parent := t.TempDir()
	target := filepath.Join(parent, "sub")
	require.NoError(t, os.Mkdir(target, 0o755))

	// The marker lives beside the directory, so acquiring the lock must not
	// perturb the directory's own timestamp and trip the conflict check.
	ran := false
	err := c.WithCoordination(target, ModeWrite, func() error {
		ran = true
		return os.RemoveAll(target)
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// The sibling marker survived the removal and was released.
	_, err = os.Stat(filepath.Join(parent, ".sub.memstore.lock"))
	assert.True(t, os.IsNotExist(err))
}

func TestRenameDirectoryDoesNotSelfConflict(t *testing.T) {
	c := NewCoordinator(testConfig())
	parent := t.TempDir()
	source := filepath.Join(parent, "d")
	dest := filepath.Join(parent, "e")
	require.NoError(t, os.Mkdir(source, 0o755))

	err := c.WithRenameCoordination(source, dest, func() error {
		return os.Rename(source, dest)
	})
	require.NoError(t, err)

	_, err = os.Stat(dest)
	require.NoError(t, err)
}

func TestMarkerPlacement(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "sub")
	require.NoError(t, os.Mkdir(dir, 0o755))

	c := NewCoordinator(testConfig())
	assert.Equal(t, filepath.Join(parent, ".sub.memstore.lock"), c.lockPathFor(dir))

	// Only the configured root keeps its marker inside itself.
	cfg := testConfig()
	cfg.Root = parent
	rooted := NewCoordinator(cfg)
	assert.Equal(t, filepath.Join(parent, ".memstore.lock"), rooted.lockPathFor(parent))
	assert.Equal(t, filepath.Join(parent, ".sub.memstore.lock"), rooted.lockPathFor(dir))
}

func TestStaleLockReclaimed(t *testing.T) {
	c := NewCoordinator(testConfig())
	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	writeFile(t, target, "hello")

	// An abandoned marker well past the stale threshold.
	lockPath := c.lockPathFor(target)
	require.NoError(t, os.WriteFile(lockPath, nil, 0o600))
	old := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(lockPath, old, old))

	err := c.WithCoordination(target, ModeRead, func() error { return nil })
	require.NoError(t, err)
}

func TestReclaimSparesRefreshedMarker(t *testing.T) {
	c := NewCoordinator(testConfig())
	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	writeFile(t, target, "hello")

	lockPath := c.lockPathFor(target)
	require.NoError(t, os.WriteFile(lockPath, nil, 0o600))
	stale := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(lockPath, stale, stale))

	// A faster contender reclaimed the old marker and created its own
	// before this one got to the removal.
	now := time.Now()
	require.NoError(t, os.Chtimes(lockPath, now, now))

	c.reclaim(lockPath, stale)
	_, err := os.Stat(lockPath)
	require.NoError(t, err, "a refreshed marker must survive reclamation")
}

func TestReleaseOnBodyError(t *testing.T) {
	c := NewCoordinator(testConfig())
	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	writeFile(t, target, "hello")

	boom := errors.New("boom")
	err := c.WithCoordination(target, ModeWrite, func() error { return boom })
	require.ErrorIs(t, err, boom)

	// The lock must be gone: a second acquisition succeeds immediately.
	err = c.WithCoordination(target, ModeRead, func() error { return nil })
	require.NoError(t, err)
}

func TestReleaseOnPanic(t *testing.T) {
	c := NewCoordinator(testConfig())
	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	writeFile(t, target, "hello")

	func() {
		defer func() { _ = recover() }()
		_ = c.WithCoordination(target, ModeWrite, func() error { panic("boom") })
	}()

	err := c.WithCoordination(target, ModeRead, func() error { return nil })
	require.NoError(t, err)
}

func TestWaitObserverReceivesAcquisitions(t *testing.T) {
	cfg := testConfig()
	var observed int
	cfg.WaitObserver = func(time.Duration) { observed++ }
	c := NewCoordinator(cfg)

	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	writeFile(t, target, "hello")

	require.NoError(t, c.WithCoordination(target, ModeRead, func() error { return nil }))
	require.NoError(t, c.WithCoordination(target, ModeWrite, func() error { return nil }))
	assert.Equal(t, 2, observed)
}

func TestLockTargetFallsBackToAncestor(t *testing.T) {
	dir := t.TempDir()

	target := filepath.Join(dir, "missing", "deep", "a.txt")
	assert.Equal(t, dir, lockTargetFor(target))

	existing := filepath.Join(dir, "a.txt")
	writeFile(t, existing, "hello")
	assert.Equal(t, existing, lockTargetFor(existing))
}

func TestRenameCoordinationLocksBothTargets(t *testing.T) {
	c := NewCoordinator(testConfig())
	dir := t.TempDir()
	source := filepath.Join(dir, "a.txt")
	dest := filepath.Join(dir, "sub", "b.txt")
	writeFile(t, source, "hello")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))

	err := c.WithRenameCoordination(source, dest, func() error {
		return os.Rename(source, dest)
	})
	require.NoError(t, err)

	_, err = os.Stat(dest)
	require.NoError(t, err)

	// Both locks released.
	require.NoError(t, c.WithCoordination(dest, ModeRead, func() error { return nil }))
}

func TestRenameCoordinationConflictOnSource(t *testing.T) {
	cfg := testConfig()
	c := NewCoordinator(cfg)
	dir := t.TempDir()
	source := filepath.Join(dir, "a.txt")
	dest := filepath.Join(dir, "b.txt")
	writeFile(t, source, "hello")

	lockPath := c.lockPathFor(source)
	require.NoError(t, os.WriteFile(lockPath, nil, 0o600))

	done := make(chan error, 1)
	go func() {
		done <- c.WithRenameCoordination(source, dest, func() error { return nil })
	}()

	time.Sleep(50 * time.Millisecond)
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(source, future, future))
	require.NoError(t, os.Remove(lockPath))

	var conflict *ConflictError
	require.ErrorAs(t, <-done, &conflict)
}
