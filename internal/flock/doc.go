// Package flock guards checkouts against concurrent release runs.
//
// Exclusive and Unlock wrap the platform primitives (flock on Unix, LockFileEx
// on Windows). Locker builds on them to hand out one lock file per checkout:
//
//	locker := flock.NewLocker("")
//	release, err := locker.LockCheckout(checkoutPath)
//	if err != nil {
//	    // another process is building this checkout
//	}
//	defer release()
package flock
