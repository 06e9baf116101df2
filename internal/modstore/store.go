// Package modstore holds the durable moderation state: moderated chats with
// their per-user warning counters and the global keyword list. Every
// successful mutation is flushed to a single JSON snapshot before returning.
package modstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/quailyquaily/modguard/internal/fsstore"
	"github.com/quailyquaily/modguard/internal/keywords"
)

var ErrChatNotModerated = errors.New("modstore: chat is not moderated")

// Chat is a detached copy of one moderated chat.
type Chat struct {
	Title    string
	Warnings map[int64]int
}

type Options struct {
	// Lock takes an exclusive lock next to the snapshot for the lifetime of
	// the store.
	Lock   bool
	Logger *slog.Logger
	File   fsstore.FileOptions
}

type Store struct {
	path   string
	logger *slog.Logger
	lock   *fsstore.Lock

	mu      sync.Mutex
	state   snapshot
	closed  bool
	persist func(snapshot) error
}

// Open loads the snapshot at path. A missing file starts empty; an
// undecodable one is logged and replaced by an empty state on the next write.
func Open(path string, opts Options) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("modstore: path is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{path: path, logger: logger}
	if opts.Lock {
		lockPath, err := fsstore.LockPathFor(path)
		if err != nil {
			return nil, err
		}
		lock, err := fsstore.Acquire(context.Background(), lockPath)
		if err != nil {
			return nil, err
		}
		s.lock = lock
	}
	fileOpts := opts.File
	s.persist = func(snap snapshot) error {
		return fsstore.WriteJSONAtomic(s.path, snap, fileOpts)
	}

	var loaded snapshot
	ok, err := fsstore.ReadJSON(path, &loaded)
	switch {
	case errors.Is(err, fsstore.ErrDecodeFailed):
		// Corrupt snapshot: start empty, the next persist overwrites it.
		logger.Warn("modstore_snapshot_corrupt", "path", path, "error", err.Error())
		s.state = emptySnapshot()
	case err != nil:
		_ = s.lock.Release()
		return nil, err
	case !ok:
		s.state = emptySnapshot()
	default:
		s.state = loaded.normalized()
	}
	logger.Debug("modstore_opened",
		"path", path,
		"chats", len(s.state.ModeratedChats),
		"keywords", len(s.state.GlobalKeywords),
	)
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

// Close releases the instance lock. Later mutations fail with fsstore.ErrClosed.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.lock.Release()
}

// mutate applies fn to a copy of the state, persists the copy when fn reports
// a change and only then makes it current.
func (s *Store) mutate(fn func(*snapshot) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fsstore.ErrClosed
	}
	next := s.state.clone()
	changed, err := fn(&next)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := s.persist(next); err != nil {
		return fmt.Errorf("modstore: persist %s: %w", s.path, err)
	}
	s.state = next
	return nil
}

// AddChat registers id. A non-empty title replaces the stored one. created
// reports whether the chat was new.
func (s *Store) AddChat(id int64, title string) (bool, error) {
	title = strings.TrimSpace(title)
	var created bool
	err := s.mutate(func(st *snapshot) (bool, error) {
		rec, ok := st.ModeratedChats[id]
		if !ok {
			created = true
			st.ModeratedChats[id] = chatRecord{Title: title, Warnings: map[int64]int{}}
			return true, nil
		}
		if title == "" || rec.Title == title {
			return false, nil
		}
		rec.Title = title
		st.ModeratedChats[id] = rec
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// RemoveChat drops id together with all of its warning counters.
func (s *Store) RemoveChat(id int64) (bool, error) {
	var present bool
	err := s.mutate(func(st *snapshot) (bool, error) {
		if _, ok := st.ModeratedChats[id]; !ok {
			return false, nil
		}
		present = true
		delete(st.ModeratedChats, id)
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return present, nil
}

// UpdateTitle refreshes the title of a moderated chat. Unknown chats and
// empty titles are ignored.
func (s *Store) UpdateTitle(id int64, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	return s.mutate(func(st *snapshot) (bool, error) {
		rec, ok := st.ModeratedChats[id]
		if !ok || rec.Title == title {
			return false, nil
		}
		rec.Title = title
		st.ModeratedChats[id] = rec
		return true, nil
	})
}

func (s *Store) ListChats() map[int64]Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]Chat, len(s.state.ModeratedChats))
	for id, rec := range s.state.ModeratedChats {
		out[id] = Chat{Title: rec.Title, Warnings: copyWarnings(rec.Warnings)}
	}
	return out
}

func (s *Store) ChatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.ModeratedChats)
}

func (s *Store) IsModerated(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.state.ModeratedChats[id]
	return ok
}

// AddKeywords appends the words not already present under case folding and
// returns how many were added.
func (s *Store) AddKeywords(words []string) (int, error) {
	var added int
	err := s.mutate(func(st *snapshot) (bool, error) {
		seen := make(map[string]struct{}, len(st.GlobalKeywords)+len(words))
		for _, kw := range st.GlobalKeywords {
			seen[keywords.Fold(kw)] = struct{}{}
		}
		for _, w := range words {
			w = strings.TrimSpace(w)
			if w == "" {
				continue
			}
			key := keywords.Fold(w)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			st.GlobalKeywords = append(st.GlobalKeywords, w)
			added++
		}
		return added > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// RemoveKeywords drops every stored keyword equal under case folding to one
// of words and returns how many were removed.
func (s *Store) RemoveKeywords(words []string) (int, error) {
	var removed int
	err := s.mutate(func(st *snapshot) (bool, error) {
		drop := make(map[string]struct{}, len(words))
		for _, w := range words {
			if w = strings.TrimSpace(w); w != "" {
				drop[keywords.Fold(w)] = struct{}{}
			}
		}
		if len(drop) == 0 {
			return false, nil
		}
		kept := st.GlobalKeywords[:0]
		for _, kw := range st.GlobalKeywords {
			if _, ok := drop[keywords.Fold(kw)]; ok {
				removed++
				continue
			}
			kept = append(kept, kw)
		}
		st.GlobalKeywords = kept
		return removed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) ListKeywords() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.state.GlobalKeywords...)
}

// IncrementWarning bumps the counter of user in chat and returns the new
// value. It fails with ErrChatNotModerated when chat is not registered.
func (s *Store) IncrementWarning(chat, user int64) (int, error) {
	var count int
	err := s.mutate(func(st *snapshot) (bool, error) {
		rec, ok := st.ModeratedChats[chat]
		if !ok {
			return false, fmt.Errorf("%w: %d", ErrChatNotModerated, chat)
		}
		if rec.Warnings == nil {
			rec.Warnings = map[int64]int{}
		}
		rec.Warnings[user]++
		count = rec.Warnings[user]
		st.ModeratedChats[chat] = rec
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ResetWarning removes the counter of user in chat. present is false when
// there was nothing to reset.
func (s *Store) ResetWarning(chat, user int64) (bool, error) {
	var present bool
	err := s.mutate(func(st *snapshot) (bool, error) {
		rec, ok := st.ModeratedChats[chat]
		if !ok {
			return false, nil
		}
		if _, ok := rec.Warnings[user]; !ok {
			return false, nil
		}
		present = true
		delete(rec.Warnings, user)
		st.ModeratedChats[chat] = rec
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return present, nil
}

func (s *Store) Warning(chat, user int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ModeratedChats[chat].Warnings[user]
}

func (s *Store) AllWarnings(chat int64) map[int64]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyWarnings(s.state.ModeratedChats[chat].Warnings)
}
