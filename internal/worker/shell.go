// Package worker runs the ranking pipeline off the caller's goroutine behind
// a typed message protocol, with a single-flight operation slot, performance
// counters, and stuck-operation detection.
package worker

import (
	"sync"
	"time"

	"github.com/jonathan/bullet-ranker/internal/apperr"
)

// Health thresholds
const (
	// DefaultStuckThreshold marks an in-flight operation as stuck.
	DefaultStuckThreshold = 10 * time.Second

	maxTimeoutRate    = 0.10
	minSuccessRate    = 0.90
	minOpsForRateCalc = 10
)

// State of the single shared operation slot.
type State string

// Slot states
const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
)

// Stats is a snapshot of the performance counters.
type Stats struct {
	Total     int64 `json:"total"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	TimedOut  int64 `json:"timed_out"`
}

// Health reports the shell's health assessment.
type Health struct {
	Healthy bool     `json:"healthy"`
	Reasons []string `json:"reasons,omitempty"`
	State   State    `json:"state"`
	Stats   Stats    `json:"stats"`
}

// Shell owns the single-flight operation slot. At most one heavy operation
// is in progress at a time; there is no queuing at this layer.
type Shell struct {
	mu sync.Mutex

	state     State
	opKind    string
	opToken   uint64
	opStarted time.Time
	nextToken uint64

	stats          Stats
	stuckThreshold time.Duration
	nowFunc        func() time.Time
}

// NewShell creates an idle shell.
func NewShell() *Shell {
	return &Shell{
		state:          StateIdle,
		stuckThreshold: DefaultStuckThreshold,
		nowFunc:        time.Now,
	}
}

// StartOperation claims the slot for an operation of the given kind. It
// returns an opaque token that must be passed to Complete. If the slot is
// already processing, it fails with WorkerBusy and never overwrites the
// in-flight operation.
func (s *Shell) StartOperation(kind string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateProcessing {
		return 0, apperr.Newf(apperr.KindWorkerBusy, "operation %q already in progress", s.opKind)
	}

	s.nextToken++
	s.state = StateProcessing
	s.opKind = kind
	s.opToken = s.nextToken
	s.opStarted = s.nowFunc()
	return s.opToken, nil
}

// Complete releases the slot and bumps the counters. A stale token (an
// operation already force-completed by a timeout) is ignored so a late
// handler cannot corrupt the counters or a newer operation's slot.
func (s *Shell) Complete(token uint64, success, timedOut bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateProcessing || token != s.opToken {
		return
	}
	s.complete(success, timedOut)
}

// ForceTimeout completes any in-flight operation as failed and timed out.
// It returns true if an operation was force-completed.
func (s *Shell) ForceTimeout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateProcessing {
		return false
	}
	s.complete(false, true)
	return true
}

// complete transitions to Idle. Caller must hold s.mu.
func (s *Shell) complete(success, timedOut bool) {
	s.stats.Total++
	switch {
	case timedOut:
		s.stats.TimedOut++
		s.stats.Failed++
	case success:
		s.stats.Succeeded++
	default:
		s.stats.Failed++
	}

	s.state = StateIdle
	s.opKind = ""
	s.opToken = 0
	s.opStarted = time.Time{}
}

// CheckOperationTimeout reports whether the in-flight operation has been
// running longer than threshold. It is a pure query: observing an overrun
// does not cancel anything, that is the caller's job.
func (s *Shell) CheckOperationTimeout(threshold time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateProcessing {
		return false
	}
	return s.nowFunc().Sub(s.opStarted) > threshold
}

// CheckHealth evaluates the timeout rate, success rate, and stuck-operation
// condition.
func (s *Shell) CheckHealth() Health {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := Health{Healthy: true, State: s.state, Stats: s.stats}

	if s.stats.Total > 0 {
		timeoutRate := float64(s.stats.TimedOut) / float64(s.stats.Total)
		if timeoutRate > maxTimeoutRate {
			h.Healthy = false
			h.Reasons = append(h.Reasons, "timeout rate above 10%")
		}
	}
	if s.stats.Total > minOpsForRateCalc {
		successRate := float64(s.stats.Succeeded) / float64(s.stats.Total)
		if successRate < minSuccessRate {
			h.Healthy = false
			h.Reasons = append(h.Reasons, "success rate below 90%")
		}
	}
	if s.state == StateProcessing && s.nowFunc().Sub(s.opStarted) > s.stuckThreshold {
		h.Healthy = false
		h.Reasons = append(h.Reasons, "operation appears stuck")
	}

	return h
}

// CurrentState returns the slot state.
func (s *Shell) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the performance counters.
func (s *Shell) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ResetPerformance zeroes the counters. The in-flight operation, if any, is
// unaffected.
func (s *Shell) ResetPerformance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = Stats{}
}

// PrepareShutdown force-completes any in-flight operation as failed and
// timed out, guaranteeing the slot is never left permanently locked, then
// reports readiness.
func (s *Shell) PrepareShutdown() {
	s.ForceTimeout()
}
