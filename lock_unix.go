//go:build unix

package shelf

import (
	"os"

	"golang.org/x/sys/unix"
)

func lockFile(f *os.File, mode LockMode) error {
	op := unix.LOCK_SH
	if mode == LockExclusive {
		op = unix.LOCK_EX
	}
	for {
		err := unix.Flock(int(f.Fd()), op)
		if err != unix.EINTR {
			return err
		}
	}
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
