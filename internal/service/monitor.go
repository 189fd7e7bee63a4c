package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/xiaot623/solace/internal/session"
)

const (
	noticeTimeout      = 5 * time.Second
	maxMonitorInterval = 30 * time.Second
)

// RunIdleMonitor interrupts sessions without traffic for the idle timeout and evicts old
// tombstones. It returns when ctx is done.
func (s *Service) RunIdleMonitor(ctx context.Context) {
	interval := s.config.Session.IdleTimeout() / 4
	if interval > maxMonitorInterval {
		interval = maxMonitorInterval
	}
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepIdleSessions(ctx)
		}
	}
}

func (s *Service) sweepIdleSessions(ctx context.Context) {
	now := s.now()
	idle := s.config.Session.IdleTimeout()

	var expired []*session.Session
	s.registry.Range(func(sess *session.Session) bool {
		if now.Sub(sess.LastActivity()) >= idle {
			expired = append(expired, sess)
		}
		return true
	})

	for _, sess := range expired {
		log.Info().Str("session_id", sess.ID).Str("status", string(sess.Status())).Msg("session idle, interrupting")
		if _, err := s.finalizer.Finalize(ctx, sess, session.EventIdleTimeout); err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("idle session finalized with error")
		}
	}

	if n := s.registry.EvictRetired(s.config.Session.RetiredTTL()); n > 0 {
		log.Debug().Int("evicted", n).Msg("evicted retired sessions")
	}
}

// Shutdown stops admitting sessions and connections, then finalizes every live session as
// interrupted.
func (s *Service) Shutdown(ctx context.Context) {
	s.admit.Lock()
	s.draining = true
	s.admit.Unlock()

	var live []*session.Session
	s.registry.Range(func(sess *session.Session) bool {
		live = append(live, sess)
		return true
	})
	if len(live) == 0 {
		return
	}
	log.Info().Int("sessions", len(live)).Msg("finalizing live sessions")

	var wg conc.WaitGroup
	for _, sess := range live {
		wg.Go(func() {
			if _, err := s.finalizer.Finalize(ctx, sess, session.EventShutdown); err != nil {
				log.Warn().Err(err).Str("session_id", sess.ID).Msg("session finalized with error during shutdown")
			}
		})
	}
	wg.Wait()
}
