package espeak

import (
	"sync"
	"time"
)

// stopwatch measures speaking time, excluding pauses.
type stopwatch struct {
	now func() time.Time

	mu       sync.Mutex
	started  time.Time
	pausedAt time.Time
	paused   time.Duration
}

func newStopwatch(now func() time.Time) *stopwatch {
	return &stopwatch{now: now, started: now()}
}

func (s *stopwatch) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pausedAt.IsZero() {
		s.pausedAt = s.now()
	}
}

func (s *stopwatch) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pausedAt.IsZero() {
		s.paused += s.now().Sub(s.pausedAt)
		s.pausedAt = time.Time{}
	}
}

func (s *stopwatch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	end := s.now()
	if !s.pausedAt.IsZero() {
		end = s.pausedAt
	}
	return end.Sub(s.started) - s.paused
}
