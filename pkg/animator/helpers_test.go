package animator

import (
	"context"
	"sync"
	"time"

	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/frames"
)

// fakeClock advances virtual time on every uninterrupted Sleep.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return true
}

// recordingSink records every request. onFrame, if set, runs after a frame
// is recorded.
type recordingSink struct {
	mu        sync.Mutex
	frames    []frames.ID
	subtitles []string
	onFrame   func(n int)
}

func (s *recordingSink) RequestFrame(id frames.ID) {
	s.mu.Lock()
	s.frames = append(s.frames, id)
	n := len(s.frames)
	s.mu.Unlock()

	if s.onFrame != nil {
		s.onFrame(n)
	}
}

func (s *recordingSink) RequestSubtitle(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subtitles = append(s.subtitles, text)
}

func (s *recordingSink) Frames() []frames.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]frames.ID(nil), s.frames...)
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
}

// fixedRand always returns v wrapped into [0,n).
type fixedRand int

func (r fixedRand) IntN(n int) int { return int(r) % n }

func repeat(d time.Duration, n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = d
	}
	return out
}
