package flock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	lockFileNameTemplate           = "matrixbuild-%s.lock"
	lockFileHashLength             = 16
	lockFilePermissions            = 0o600
	lockDirectoryPermissions       = 0o700
	windowsOperatingSystemName     = "windows"
	lockedMessage                  = "checkout is locked by another process"
	lockFileOpenErrorTemplate      = "open lock file %s: %w"
	lockDirectoryErrorTemplate     = "create lock directory %s: %w"
	lockAcquireErrorTemplate       = "lock %s (%s): %w"
	checkoutPathResolveErrTemplate = "resolve checkout path %s: %w"
)

// ErrLocked indicates another process already holds the checkout lock.
var ErrLocked = errors.New(lockedMessage)

// Locker hands out one exclusive lock file per checkout, named from the checkout's absolute path.
type Locker struct {
	directory string
}

// NewLocker constructs a Locker that stores lock files in directory, or in the system temporary
// directory when directory is empty.
func NewLocker(directory string) *Locker {
	if len(strings.TrimSpace(directory)) == 0 {
		directory = os.TempDir()
	}
	return &Locker{directory: directory}
}

// LockFilePath returns the lock file used for checkoutPath.
func (locker *Locker) LockFilePath(checkoutPath string) (string, error) {
	absoluteCheckoutPath, absoluteError := filepath.Abs(checkoutPath)
	if absoluteError != nil {
		return "", fmt.Errorf(checkoutPathResolveErrTemplate, checkoutPath, absoluteError)
	}

	identity := filepath.Clean(absoluteCheckoutPath)
	if runtime.GOOS == windowsOperatingSystemName {
		identity = strings.ToLower(identity)
	}

	digest := sha256.Sum256([]byte(identity))
	lockFileName := fmt.Sprintf(lockFileNameTemplate, hex.EncodeToString(digest[:])[:lockFileHashLength])
	return filepath.Join(locker.directory, lockFileName), nil
}

// LockCheckout acquires the lock for checkoutPath without blocking. The returned function
// releases it. The lock directory is created when missing. A lock held elsewhere yields an error
// wrapping ErrLocked.
func (locker *Locker) LockCheckout(checkoutPath string) (func() error, error) {
	lockFilePath, pathError := locker.LockFilePath(checkoutPath)
	if pathError != nil {
		return nil, pathError
	}

	if mkdirError := os.MkdirAll(locker.directory, lockDirectoryPermissions); mkdirError != nil {
		return nil, fmt.Errorf(lockDirectoryErrorTemplate, locker.directory, mkdirError)
	}

	lockFile, openError := os.OpenFile(lockFilePath, os.O_RDWR|os.O_CREATE, lockFilePermissions) // #nosec G304 -- path derived from a hash
	if openError != nil {
		return nil, fmt.Errorf(lockFileOpenErrorTemplate, lockFilePath, openError)
	}

	if lockError := Exclusive(lockFile.Fd()); lockError != nil {
		_ = lockFile.Close()
		return nil, fmt.Errorf(lockAcquireErrorTemplate, checkoutPath, lockFilePath, errors.Join(ErrLocked, lockError))
	}

	return func() error {
		unlockError := Unlock(lockFile.Fd())
		closeError := lockFile.Close()
		return errors.Join(unlockError, closeError)
	}, nil
}
