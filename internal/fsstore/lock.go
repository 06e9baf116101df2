package fsstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const lockPollInterval = 50 * time.Millisecond

var errLockBusy = errors.New("fsstore: lock busy")

// Lock is an exclusive advisory lock on a sidecar file, held until Release or
// process exit. It keeps two bot instances from writing the same snapshot.
type Lock struct {
	path string

	mu     sync.Mutex
	file   *os.File
	unlock func(*os.File) error
}

// lockOwner is written into the lock file to help operators find the holder.
type lockOwner struct {
	PID        int    `json:"pid"`
	Hostname   string `json:"hostname,omitempty"`
	AcquiredAt string `json:"acquired_at"`
}

// Acquire takes the lock at lockPath. Without a ctx deadline it fails at once
// with ErrLockUnavailable when another process holds it; with a deadline it
// polls until the deadline and then returns ErrLockTimeout.
func Acquire(ctx context.Context, lockPath string) (*Lock, error) {
	p, err := cleanPath(lockPath)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := EnsureDir(filepath.Dir(p), privateDirPerm); err != nil {
		return nil, err
	}
	_, bounded := ctx.Deadline()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		f, unlock, err := tryLockFile(p)
		if err == nil {
			recordOwner(f)
			return &Lock{path: p, file: f, unlock: unlock}, nil
		}
		if err != errLockBusy {
			return nil, err
		}
		if !bounded {
			return nil, fmt.Errorf("%w: %s is held by another process", ErrLockUnavailable, p)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, p, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release drops the lock. Extra calls are no-ops.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.unlock(l.file)
	l.file = nil
	return err
}

func recordOwner(f *os.File) {
	host, _ := os.Hostname()
	raw, err := json.Marshal(lockOwner{
		PID:        os.Getpid(),
		Hostname:   host,
		AcquiredAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := f.Truncate(0); err != nil {
		return
	}
	_, _ = f.WriteAt(append(raw, '\n'), 0)
	_ = f.Sync()
}
