// Package session holds the runtime state of a live voice session.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xiaot623/solace/internal/conversation"
	"github.com/xiaot623/solace/internal/domain"
	"github.com/xiaot623/solace/internal/protocol"
)

// Link is the live connection pair bound to a session.
type Link interface {
	// Stop halts forwarding and closes the upstream side. Idempotent.
	Stop()
	// Close sends notice to the client, when possible, and closes the client side. Idempotent.
	Close(notice protocol.Frame) error
	// Submit forwards a message upstream and waits for the completed reply.
	Submit(ctx context.Context, f protocol.Frame) (string, error)
}

// Session is one bounded voice-therapy conversation. Identity, emotion and context are
// immutable after New; status only moves along the transition table.
type Session struct {
	ID        string
	OwnerID   string
	Emotion   string
	Intensity int
	StartTime time.Time
	Context   domain.TherapeuticContext
	Log       *conversation.Log

	mu      sync.Mutex
	status  domain.SessionStatus
	endTime time.Time
	link    Link

	lastActivity atomic.Int64

	finalizeOnce sync.Once
	finalized    chan struct{}
	result       domain.FinalizeResult
	resultErr    error
}

// New creates a session in the initializing state.
func New(id, ownerID, emotion string, intensity int, ctx domain.TherapeuticContext, now time.Time) *Session {
	s := &Session{
		ID:        id,
		OwnerID:   ownerID,
		Emotion:   emotion,
		Intensity: intensity,
		StartTime: now,
		Context:   ctx,
		Log:       conversation.NewLog(),
		status:    domain.SessionStatusInitializing,
		finalized: make(chan struct{}),
	}
	s.lastActivity.Store(now.UnixNano())
	return s
}

// Status returns the current status.
func (s *Session) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Fire applies ev to the state machine. It returns the resulting status and whether a
// transition happened; events not in the table for the current status are ignored.
func (s *Session) Fire(ev Event) (domain.SessionStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := transitions[s.status][ev]
	if !ok {
		return s.status, false
	}
	s.status = next
	return next, true
}

// Attach binds a relay to the session. Only one relay may ever attach.
func (s *Session) Attach(link Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.IsTerminal() {
		return fmt.Errorf("%w: session %s is %s", domain.ErrConflict, s.ID, s.status)
	}
	if s.link != nil {
		return fmt.Errorf("%w: session %s already has a live connection", domain.ErrConflict, s.ID)
	}
	s.link = link
	return nil
}

// Link returns the attached relay, or nil.
func (s *Session) Link() Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link
}

// StopLink halts the attached relay, if any.
func (s *Session) StopLink() {
	if link := s.Link(); link != nil {
		link.Stop()
	}
}

// CloseLink notifies and closes the client side of the attached relay, if any.
func (s *Session) CloseLink(notice protocol.Frame) error {
	if link := s.Link(); link != nil {
		return link.Close(notice)
	}
	return nil
}

// Touch records traffic on the session.
func (s *Session) Touch(t time.Time) {
	s.lastActivity.Store(t.UnixNano())
}

// LastActivity returns the time of the last recorded traffic.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// SetEndTime sets the end time. Only the first call has an effect.
func (s *Session) SetEndTime(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.endTime.IsZero() {
		return false
	}
	s.endTime = t
	return true
}

// EndTime returns the end time and whether it has been set.
func (s *Session) EndTime() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endTime, !s.endTime.IsZero()
}

// Duration returns the elapsed time up to now, or up to the end time once set.
func (s *Session) Duration(now time.Time) time.Duration {
	if end, ok := s.EndTime(); ok {
		return end.Sub(s.StartTime)
	}
	return now.Sub(s.StartTime)
}

// Finalize runs fn exactly once for the lifetime of the session. Concurrent and later callers
// block until the first run completes and receive its result.
func (s *Session) Finalize(fn func() (domain.FinalizeResult, error)) (domain.FinalizeResult, error) {
	s.finalizeOnce.Do(func() {
		defer close(s.finalized)
		s.result, s.resultErr = fn()
	})
	return s.result, s.resultErr
}

// Done is closed once finalization has completed.
func (s *Session) Done() <-chan struct{} {
	return s.finalized
}
