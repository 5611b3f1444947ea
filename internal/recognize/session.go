package recognize

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusIdle Status = "idle"
	StatusLive Status = "live"
)

// Session is one live attendance window. The present set only grows while the
// session is Live; stopping freezes it until the next Start overwrites it.
// All methods are safe for concurrent use.
type Session struct {
	mu                sync.RWMutex
	status            Status
	uid               string
	startedAt         time.Time
	present           map[string]struct{}
	sightings         map[string]int
	sightingThreshold int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSightingThreshold requires an identity to be observed in n distinct
// frames before it is marked present. The default of 1 marks on the first
// sighting; 5 reproduces the debouncing the deployed classroom setup uses
// against single-frame misidentifications.
func WithSightingThreshold(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.sightingThreshold = n
		}
	}
}

// NewSession creates a session in the Idle state.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		status:            StatusIdle,
		present:           make(map[string]struct{}),
		sightings:         make(map[string]int),
		sightingThreshold: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start transitions to Live, clearing the present set and stamping a fresh
// start time. Returns the new session UID. Starting an already-Live session
// resets it.
func (s *Session) Start() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusLive
	s.uid = uuid.NewString()
	s.startedAt = time.Now()
	s.present = make(map[string]struct{})
	s.sightings = make(map[string]int)
	return s.uid
}

// Stop transitions to Idle. The present set stays queryable until the next
// Start overwrites it. Stopping an Idle session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusIdle
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// UID returns the identifier of the current (or last) window.
func (s *Session) UID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uid
}

// StartedAt returns when the current (or last) window started.
func (s *Session) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// Observe registers one sighting of an identity. Returns true when this
// observation newly marked the student present. Unknown identities and
// observations against an Idle session are no-ops; late frames racing a Stop
// must not resurrect a stopped session's present set.
func (s *Session) Observe(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observeLocked(identity)
}

// ObserveAll registers one frame's sightings in a single critical section, so
// a frame commits all of its identities or (when the session went Idle) none.
// Returns the identities that became present through this frame.
func (s *Session) ObserveAll(identities []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var newly []string
	seen := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		// Two faces resolving to the same student count as one sighting.
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if s.observeLocked(id) {
			newly = append(newly, id)
		}
	}
	return newly
}

func (s *Session) observeLocked(identity string) bool {
	if s.status != StatusLive || identity == Unknown || identity == "" {
		return false
	}
	if _, ok := s.present[identity]; ok {
		return false
	}

	s.sightings[identity]++
	if s.sightings[identity] < s.sightingThreshold {
		return false
	}

	s.present[identity] = struct{}{}
	return true
}

// PresentIDs returns the committed present set, sorted. Safe in either state
// and never torn: a racing Observe is seen entirely or not at all.
func (s *Session) PresentIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.present))
	for id := range s.present {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PresentCount returns the number of students marked present.
func (s *Session) PresentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.present)
}

// IsPresent reports whether a student is in the present set.
func (s *Session) IsPresent(studentID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.present[studentID]
	return ok
}
