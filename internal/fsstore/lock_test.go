package fsstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireExclusive(t *testing.T) {
	t.Parallel()

	lockPath, err := LockPathFor(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("LockPathFor() error = %v", err)
	}

	first, err := Acquire(context.Background(), lockPath)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if _, err := Acquire(context.Background(), lockPath); !errors.Is(err, ErrLockUnavailable) {
		t.Fatalf("second Acquire() error = %v, want ErrLockUnavailable", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	if _, err := Acquire(ctx, lockPath); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("Acquire(deadline) error = %v, want ErrLockTimeout", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second Release() error = %v", err)
	}

	again, err := Acquire(context.Background(), lockPath)
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	_ = again.Release()
}
