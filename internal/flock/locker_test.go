//go:build unix

package flock_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/matrixbuild/internal/flock"
)

func TestExclusiveLockPrimitives(t *testing.T) {
	t.Parallel()

	lockFilePath := filepath.Join(t.TempDir(), "test.lock")

	firstHandle, openError := os.OpenFile(lockFilePath, os.O_RDWR|os.O_CREATE, 0o600) // #nosec G304 -- test temp dir
	require.NoError(t, openError)
	defer func() { require.NoError(t, firstHandle.Close()) }()

	secondHandle, openError := os.OpenFile(lockFilePath, os.O_RDWR, 0o600) // #nosec G304 -- test temp dir
	require.NoError(t, openError)
	defer func() { require.NoError(t, secondHandle.Close()) }()

	require.NoError(t, flock.Exclusive(firstHandle.Fd()))
	require.Error(t, flock.Exclusive(secondHandle.Fd()))
	require.NoError(t, flock.Unlock(firstHandle.Fd()))
	require.NoError(t, flock.Exclusive(secondHandle.Fd()))
	require.NoError(t, flock.Unlock(secondHandle.Fd()))
}

func TestLockerLockCheckout(t *testing.T) {
	t.Parallel()

	lockDirectory := t.TempDir()
	checkoutPath := filepath.Join(t.TempDir(), "Adobe Illustrator 2021 SDK", "LaTeX2AI")
	locker := flock.NewLocker(lockDirectory)

	release, lockError := locker.LockCheckout(checkoutPath)
	require.NoError(t, lockError)

	_, secondLockError := locker.LockCheckout(checkoutPath)
	require.ErrorIs(t, secondLockError, flock.ErrLocked)

	otherRelease, otherLockError := locker.LockCheckout(filepath.Join(checkoutPath, "..", "Other"))
	require.NoError(t, otherLockError)
	require.NoError(t, otherRelease())

	require.NoError(t, release())

	reacquiredRelease, reacquireError := locker.LockCheckout(checkoutPath)
	require.NoError(t, reacquireError)
	require.NoError(t, reacquiredRelease())
}

func TestLockerLockFilePathIsStable(t *testing.T) {
	t.Parallel()

	locker := flock.NewLocker("/var/lock/matrixbuild")

	firstPath, firstError := locker.LockFilePath("/work/LaTeX2AI")
	require.NoError(t, firstError)
	secondPath, secondError := locker.LockFilePath("/work/scripts/../LaTeX2AI")
	require.NoError(t, secondError)

	require.Equal(t, firstPath, secondPath)
	require.Equal(t, "/var/lock/matrixbuild", filepath.Dir(firstPath))
	require.Regexp(t, `^matrixbuild-[0-9a-f]{16}\.lock$`, filepath.Base(firstPath))
}

func TestLockerCreatesMissingLockDirectory(t *testing.T) {
	t.Parallel()

	lockDirectory := filepath.Join(t.TempDir(), "missing", "locks")
	checkoutPath := filepath.Join(t.TempDir(), "LaTeX2AI")
	locker := flock.NewLocker(lockDirectory)

	release, lockError := locker.LockCheckout(checkoutPath)
	require.NoError(t, lockError)

	lockFilePath, pathError := locker.LockFilePath(checkoutPath)
	require.NoError(t, pathError)
	_, statError := os.Stat(lockFilePath)
	require.NoError(t, statError)

	require.NoError(t, release())
}

func TestLockerUnusableLockDirectoryIsNotContention(t *testing.T) {
	t.Parallel()

	blockingFile := filepath.Join(t.TempDir(), "not-a-directory")
	require.NoError(t, os.WriteFile(blockingFile, []byte("x"), 0o600))

	locker := flock.NewLocker(filepath.Join(blockingFile, "locks"))
	release, lockError := locker.LockCheckout(filepath.Join(t.TempDir(), "LaTeX2AI"))
	require.Error(t, lockError)
	require.NotErrorIs(t, lockError, flock.ErrLocked)
	require.Nil(t, release)
}
