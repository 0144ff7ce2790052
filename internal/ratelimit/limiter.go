// Package ratelimit bounds how often a key may perform an action per window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether one more action for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Unlimited allows everything.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }

type window struct {
	start time.Time
	count int
}

// Window is an in-process fixed-window limiter keyed by string. It is safe for
// concurrent use. A non-positive limit allows everything.
type Window struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// NewWindow returns a limiter allowing limit actions per period for each key.
func NewWindow(limit int, period time.Duration) *Window {
	return &Window{
		limit:   limit,
		period:  period,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow never returns an error.
func (w *Window) Allow(_ context.Context, key string) (bool, error) {
	return w.allow(key), nil
}

// Take is Allow without the context for callers on a hot path.
func (w *Window) Take(key string) bool {
	return w.allow(key)
}

func (w *Window) allow(key string) bool {
	if w == nil || w.limit <= 0 {
		return true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	win, ok := w.windows[key]
	if !ok || now.Sub(win.start) >= w.period {
		w.sweep(now)
		w.windows[key] = &window{start: now, count: 1}
		return true
	}
	win.count++
	return win.count <= w.limit
}

// sweep drops expired windows so idle keys do not accumulate.
func (w *Window) sweep(now time.Time) {
	for k, win := range w.windows {
		if now.Sub(win.start) >= w.period {
			delete(w.windows, k)
		}
	}
}
