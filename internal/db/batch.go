package db

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultSaveDelay is the debounce window between a mutation and its flush.
const DefaultSaveDelay = 500 * time.Millisecond

// BatchSaver coalesces bursts of mutations into one disk flush. Schedule
// (re)arms a single debounce timer; when it fires, the pending image is
// flushed once. Flush can also be called directly for durability-critical
// moments (shutdown), bypassing the window.
type BatchSaver struct {
	mu      sync.Mutex
	pending bool
	timer   *time.Timer
	delay   time.Duration
	flush   func() error
	logger  *slog.Logger
}

// NewBatchSaver wraps flush with debouncing; delay <= 0 uses DefaultSaveDelay.
func NewBatchSaver(delay time.Duration, flush func() error, log *slog.Logger) *BatchSaver {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	if log == nil {
		log = slog.Default()
	}
	return &BatchSaver{delay: delay, flush: flush, logger: log}
}

// Schedule marks the image dirty and re-arms the debounce timer, cancelling
// any previously armed one. Calling it while a flush is already pending only
// resets the timer; it never queues a second flush.
func (s *BatchSaver) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.pending = true
	s.timer = time.AfterFunc(s.delay, func() {
		if err := s.Flush(); err != nil {
			s.logger.Error("batch flush failed", "error", err)
		}
	})
}

// Flush writes the image now if a save is pending; otherwise it is a no-op.
// The lock is held across the write, so two flushes can never overlap.
func (s *BatchSaver) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pending {
		return nil
	}
	if err := s.flush(); err != nil {
		return err
	}
	s.pending = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return nil
}

// Cancel disarms the pending flush without writing.
func (s *BatchSaver) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
}

// Pending reports whether a flush is scheduled.
func (s *BatchSaver) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
