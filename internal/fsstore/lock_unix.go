//go:build !windows

package fsstore

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// tryLockFile takes a non-blocking flock on lockPath. The file itself stays
// on disk after release.
func tryLockFile(lockPath string) (*os.File, func(*os.File) error, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, privateFilePerm)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open %s: %v", ErrLockUnavailable, lockPath, err)
	}
	if err := flockNB(int(f.Fd())); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			return nil, nil, errLockBusy
		}
		return nil, nil, fmt.Errorf("%w: flock %s: %v", ErrLockUnavailable, lockPath, err)
	}
	return f, func(f *os.File) error {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		return f.Close()
	}, nil
}

func flockNB(fd int) error {
	for {
		err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}
