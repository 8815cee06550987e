// OS-level file locking for record files.
//
// Every record file is written under an exclusive lock and read under a
// shared one. The lock is held on that file's handle only, for the length
// of the single read or write, so no lock ever spans a commit. Acquisition
// blocks.
package shelf

import "os"

// LockMode selects shared (read) or exclusive (write) locking.
type LockMode int

const (
	LockShared LockMode = iota
	LockExclusive
)

// withLock runs fn while holding a lock of the given mode on f. The lock
// is released before withLock returns; f stays open.
func withLock(f *os.File, mode LockMode, fn func() error) error {
	if err := lockFile(f, mode); err != nil {
		return err
	}
	err := fn()
	if uerr := unlockFile(f); err == nil {
		err = uerr
	}
	return err
}
