package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/solace/internal/domain"
	"github.com/xiaot623/solace/internal/protocol"
)

type fakeLink struct {
	stops   atomic.Int32
	closes  atomic.Int32
	notices []protocol.Frame
}

func (l *fakeLink) Stop() { l.stops.Add(1) }

func (l *fakeLink) Close(notice protocol.Frame) error {
	l.closes.Add(1)
	l.notices = append(l.notices, notice)
	return nil
}

func (l *fakeLink) Submit(context.Context, protocol.Frame) (string, error) { return "", nil }

func newTestSession() *Session {
	return New("sess_1", "u1", "anxiety", 7, domain.TherapeuticContext{}, time.Now())
}

func TestTransitionsFollowTable(t *testing.T) {
	s := newTestSession()
	assert.Equal(t, domain.SessionStatusInitializing, s.Status())

	status, ok := s.Fire(EventUpstreamClosed)
	assert.False(t, ok, "upstream_closed is not valid while initializing")
	assert.Equal(t, domain.SessionStatusInitializing, status)

	status, ok = s.Fire(EventUpstreamConnected)
	require.True(t, ok)
	assert.Equal(t, domain.SessionStatusActive, status)

	status, ok = s.Fire(EventEndCommand)
	require.True(t, ok)
	assert.Equal(t, domain.SessionStatusEnded, status)
}

func TestTerminalStatusIsFinal(t *testing.T) {
	events := []Event{
		EventUpstreamConnected, EventUpstreamConnectFailed, EventClientClosed,
		EventUpstreamClosed, EventEndCommand, EventIdleTimeout, EventShutdown,
	}

	s := newTestSession()
	s.Fire(EventUpstreamConnected)
	_, ok := s.Fire(EventUpstreamClosed)
	require.True(t, ok)

	for _, ev := range events {
		status, ok := s.Fire(ev)
		assert.False(t, ok, "event %s", ev)
		assert.Equal(t, domain.SessionStatusInterrupted, status)
	}
}

func TestConcurrentInterruptionsTransitionOnce(t *testing.T) {
	s := newTestSession()
	s.Fire(EventUpstreamConnected)

	var transitioned atomic.Int32
	var wg sync.WaitGroup
	for _, ev := range []Event{EventClientClosed, EventUpstreamClosed, EventIdleTimeout, EventEndCommand} {
		wg.Add(1)
		go func(ev Event) {
			defer wg.Done()
			if _, ok := s.Fire(ev); ok {
				transitioned.Add(1)
			}
		}(ev)
	}
	wg.Wait()

	assert.Equal(t, int32(1), transitioned.Load())
	assert.True(t, s.Status().IsTerminal())
}

func TestAttachOnlyOnce(t *testing.T) {
	s := newTestSession()
	link := &fakeLink{}

	s.StopLink()
	require.NoError(t, s.CloseLink(protocol.Pong()))

	require.NoError(t, s.Attach(link))
	assert.ErrorIs(t, s.Attach(&fakeLink{}), domain.ErrConflict)
	assert.Same(t, link, s.Link())

	s.StopLink()
	require.NoError(t, s.CloseLink(protocol.Ended("sess_1", "rec_1", true)))
	assert.Equal(t, int32(1), link.stops.Load())
	assert.Equal(t, int32(1), link.closes.Load())
	assert.Equal(t, protocol.TypeEnded, link.notices[0].Type)
}

func TestAttachRejectedAfterTermination(t *testing.T) {
	s := newTestSession()
	s.Fire(EventEndCommand)
	assert.ErrorIs(t, s.Attach(&fakeLink{}), domain.ErrConflict)
}

func TestFinalizeRunsOnce(t *testing.T) {
	s := newTestSession()
	var calls atomic.Int32
	boom := errors.New("boom")

	var wg sync.WaitGroup
	results := make([]domain.FinalizeResult, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Finalize(func() (domain.FinalizeResult, error) {
				calls.Add(1)
				time.Sleep(10 * time.Millisecond)
				return domain.FinalizeResult{RecordID: "rec_1"}, boom
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := range results {
		assert.Equal(t, "rec_1", results[i].RecordID)
		assert.ErrorIs(t, errs[i], boom)
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("expected done channel to be closed")
	}
}

func TestEndTimeSetOnce(t *testing.T) {
	s := newTestSession()
	first := s.StartTime.Add(time.Minute)

	assert.True(t, s.SetEndTime(first))
	assert.False(t, s.SetEndTime(first.Add(time.Hour)))

	end, ok := s.EndTime()
	require.True(t, ok)
	assert.Equal(t, first, end)
	assert.Equal(t, time.Minute, s.Duration(time.Now()))
}
