// Package ratelimit implements the per-(chat, user) sliding-window flood
// limiter. Windows live in memory only.
package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultWindow      = 60 * time.Second
	DefaultMaxMessages = 10
)

type key struct {
	chat int64
	user int64
}

type Limiter struct {
	window time.Duration
	max    int

	mu        sync.Mutex
	buckets   map[key][]time.Time
	lastSweep time.Time
}

func New(window time.Duration, maxMessages int) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Limiter{
		window:  window,
		max:     maxMessages,
		buckets: make(map[key][]time.Time),
	}
}

// CheckAndRecord reports whether the user is over the limit at now. While
// over the limit now is not recorded, so the cooldown stays anchored to the
// oldest surviving timestamp.
func (l *Limiter) CheckAndRecord(chat, user int64, now time.Time) bool {
	k := key{chat: chat, user: user}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)
	stamps := trim(l.buckets[k], now, l.window)
	if len(stamps) >= l.max && now.Sub(stamps[0]) <= l.window {
		l.buckets[k] = stamps
		return true
	}
	l.buckets[k] = append(stamps, now)
	return false
}

// Len returns the number of tracked (chat, user) windows.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweepLocked drops idle windows at most once per window duration.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for k, stamps := range l.buckets {
		if len(trim(stamps, now, l.window)) == 0 {
			delete(l.buckets, k)
		}
	}
}

// trim drops timestamps older than window from the front.
func trim(stamps []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(stamps) && now.Sub(stamps[i]) > window {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}
