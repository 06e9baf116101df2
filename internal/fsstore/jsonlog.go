package fsstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONLog appends one JSON document per line. Once the file would grow past
// RotateBytes it is renamed to "<path>.<UTC timestamp>" and a fresh file is
// started.
type JSONLog struct {
	path string
	opts JSONLogOptions
	now  func() time.Time

	mu     sync.Mutex
	file   *os.File
	size   int64
	closed bool
}

func OpenJSONLog(path string, opts JSONLogOptions) (*JSONLog, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	l := &JSONLog{path: p, opts: opts, now: time.Now}
	if err := l.openLocked(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *JSONLog) Path() string {
	return l.path
}

func (l *JSONLog) AppendJSON(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncodeFailed, l.path, err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if l.size > 0 && l.size+int64(len(line)) > l.opts.rotateBytes() {
		if err := l.rotateLocked(); err != nil {
			return err
		}
	}
	n, err := l.file.Write(line)
	l.size += int64(n)
	if err != nil {
		return fmt.Errorf("fsstore: append %s: %w", l.path, err)
	}
	if l.opts.Sync {
		return l.file.Sync()
	}
	return nil
}

func (l *JSONLog) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *JSONLog) rotateLocked() error {
	_ = l.file.Close()
	l.file = nil
	target, err := l.rotatedName()
	if err != nil {
		return err
	}
	if err := os.Rename(l.path, target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("fsstore: rotate %s: %w", l.path, err)
	}
	return l.openLocked()
}

// rotatedName picks the first free "<path>.<stamp>[.N]" name.
func (l *JSONLog) rotatedName() (string, error) {
	base := l.path + "." + l.now().UTC().Format("20060102T150405Z")
	name := base
	for i := 1; ; i++ {
		_, err := os.Stat(name)
		if errors.Is(err, os.ErrNotExist) {
			return name, nil
		}
		if err != nil {
			return "", err
		}
		name = fmt.Sprintf("%s.%d", base, i)
	}
}

func (l *JSONLog) openLocked() error {
	if err := EnsureDir(filepath.Dir(l.path), l.opts.dirPerm()); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, l.opts.filePerm())
	if err != nil {
		return fmt.Errorf("fsstore: open %s: %w", l.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	l.file = f
	l.size = info.Size()
	return nil
}
