package fsstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ReadJSON decodes the snapshot at path into out. A missing or blank file
// reports found=false with a nil error; undecodable content wraps
// ErrDecodeFailed.
func ReadJSON(path string, out any) (found bool, err error) {
	p, err := cleanPath(path)
	if err != nil {
		return false, err
	}
	raw, err := os.ReadFile(p)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("fsstore: read %s: %w", p, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, p, err)
	}
	return true, nil
}

// WriteJSONAtomic encodes v as indented JSON and replaces path with it. An
// encode failure leaves the previous file untouched.
func WriteJSONAtomic(path string, v any, opts FileOptions) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncodeFailed, p, err)
	}
	return WriteFileAtomic(p, append(raw, '\n'), opts)
}

// WriteFileAtomic replaces path with content through a fsynced sibling temp
// file and a rename, so readers see the old file or the new one in full.
func WriteFileAtomic(path string, content []byte, opts FileOptions) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := EnsureDir(dir, opts.dirPerm()); err != nil {
		return err
	}
	tmpPath, err := writeTemp(dir, filepath.Base(p), content, opts.filePerm())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAtomicWriteFailed, p, err)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: rename %s: %v", ErrAtomicWriteFailed, p, err)
	}
	syncDir(dir)
	return nil
}

func writeTemp(dir, base string, content []byte, perm os.FileMode) (string, error) {
	f, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	fail := func(err error) (string, error) {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if _, err := f.Write(content); err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Chmod(perm); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// syncDir flushes the directory entry so a completed rename survives a crash.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
