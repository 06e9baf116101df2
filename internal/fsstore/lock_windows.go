//go:build windows

package fsstore

import (
	"errors"
	"fmt"
	"os"
)

// tryLockFile emulates the lock with an O_EXCL sidecar that is removed on
// release. A crashed holder leaves the file behind and must be cleaned up by
// hand.
func tryLockFile(lockPath string) (*os.File, func(*os.File) error, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, privateFilePerm)
	switch {
	case errors.Is(err, os.ErrExist):
		return nil, nil, errLockBusy
	case err != nil:
		return nil, nil, fmt.Errorf("%w: open %s: %v", ErrLockUnavailable, lockPath, err)
	}
	return f, func(f *os.File) error {
		closeErr := f.Close()
		_ = os.Remove(lockPath)
		return closeErr
	}, nil
}
