package connect

import (
	"sync"
	"time"
)

type (
	// Status is the process-wide rolling connection-health state. All
	// mutations funnel through its methods; every update carries the
	// timestamp of the call it resulted from, and updates older than the
	// current LastChecked are discarded so a late-resolving stale call can
	// never overwrite fresher knowledge.
	Status struct {
		mu                sync.Mutex
		online            bool
		lastChecked       time.Time
		errorCount        int
		consecutiveErrors int
		retryAttempt      int
		lastError         *Error
	}

	// StatusSnapshot is a point-in-time copy of Status for callers.
	StatusSnapshot struct {
		Online            bool      `json:"online"`
		LastChecked       time.Time `json:"last_checked"`
		ErrorCount        int       `json:"error_count"`
		ConsecutiveErrors int       `json:"consecutive_errors"`
		RetryAttempt      int       `json:"retry_attempt"`
		LastError         *Error    `json:"last_error,omitempty"`
	}
)

// NewStatus starts optimistically online: reachability is only revised
// pessimistically by network-classified failures or an explicit offline signal.
func NewStatus() *Status {
	return &Status{online: true}
}

func (s *Status) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *Status) Snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatusSnapshot{
		Online:            s.online,
		LastChecked:       s.lastChecked,
		ErrorCount:        s.errorCount,
		ConsecutiveErrors: s.consecutiveErrors,
		RetryAttempt:      s.retryAttempt,
		LastError:         s.lastError,
	}
}

// recordSuccess resets the failure counters together and flips online true.
func (s *Status) recordSuccess(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at.Before(s.lastChecked) {
		return // stale result
	}
	s.online = true
	s.lastChecked = at
	s.consecutiveErrors = 0
	s.retryAttempt = 0
}

// recordFailure counts the failure and goes pessimistic on reachability only
// for network-classified errors.
func (s *Status) recordFailure(e *Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Timestamp.Before(s.lastChecked) {
		return // stale result
	}
	s.lastChecked = e.Timestamp
	s.errorCount++
	s.consecutiveErrors++
	s.lastError = e
	if e.Kind == KindNetwork {
		s.online = false
	}
}

// markOffline applies an explicit offline signal, regardless of error kind.
func (s *Status) markOffline(e *Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = false
	s.lastChecked = e.Timestamp
	s.errorCount++
	s.consecutiveErrors++
	s.lastError = e
}

func (s *Status) setRetryAttempt(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryAttempt = n
}

func (s *Status) consecutive() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveErrors
}
