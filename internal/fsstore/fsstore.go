// Package fsstore holds the on-disk primitives behind the moderation state:
// atomic snapshot replacement, the append-only audit log and the
// single-instance lock.
package fsstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath       = errors.New("fsstore: invalid path")
	ErrLockTimeout       = errors.New("fsstore: lock timeout")
	ErrLockUnavailable   = errors.New("fsstore: lock unavailable")
	ErrEncodeFailed      = errors.New("fsstore: encode failed")
	ErrDecodeFailed      = errors.New("fsstore: decode failed")
	ErrAtomicWriteFailed = errors.New("fsstore: atomic write failed")
	ErrClosed            = errors.New("fsstore: closed")
)

const (
	privateDirPerm  os.FileMode = 0o700
	privateFilePerm os.FileMode = 0o600

	defaultRotateBytes int64 = 16 << 20
)

// FileOptions sets the permissions of created files and their parent
// directories. Zero values keep both private to the owner.
type FileOptions struct {
	DirPerm  os.FileMode
	FilePerm os.FileMode
}

func (o FileOptions) dirPerm() os.FileMode {
	if o.DirPerm == 0 {
		return privateDirPerm
	}
	return o.DirPerm
}

func (o FileOptions) filePerm() os.FileMode {
	if o.FilePerm == 0 {
		return privateFilePerm
	}
	return o.FilePerm
}

type JSONLogOptions struct {
	FileOptions
	// RotateBytes is the size after which the log is renamed aside and
	// restarted. Zero uses 16 MiB.
	RotateBytes int64
	// Sync fsyncs after every appended line.
	Sync bool
}

func (o JSONLogOptions) rotateBytes() int64 {
	if o.RotateBytes <= 0 {
		return defaultRotateBytes
	}
	return o.RotateBytes
}

func cleanPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	return filepath.Clean(path), nil
}

// LockPathFor returns the sidecar lock file guarding the file at path.
func LockPathFor(path string) (string, error) {
	p, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	return p + ".lock", nil
}

func EnsureDir(path string, perm os.FileMode) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	if perm == 0 {
		perm = privateDirPerm
	}
	if err := os.MkdirAll(p, perm); err != nil {
		return fmt.Errorf("fsstore: mkdir %s: %w", p, err)
	}
	return nil
}
