// Package service composes the session registry, relay and finalizer behind the command surface.
package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/xiaot623/solace/internal/adapter/upstream"
	"github.com/xiaot623/solace/internal/config"
	"github.com/xiaot623/solace/internal/domain"
	"github.com/xiaot623/solace/internal/events"
	"github.com/xiaot623/solace/internal/metrics"
	"github.com/xiaot623/solace/internal/policy"
	"github.com/xiaot623/solace/internal/registry"
	"github.com/xiaot623/solace/internal/repository"
	"github.com/xiaot623/solace/internal/therapy"
)

type Service struct {
	store     repository.Store
	registry  *registry.Registry
	builder   *therapy.Builder
	dialer    upstream.Dialer
	finalizer *Finalizer
	safety    *policy.Engine
	metrics   metrics.Recorder
	events    events.Publisher
	config    *config.Config
	now       func() time.Time

	// admit guards draining; registrations hold it shared so Shutdown sees every session.
	admit    sync.RWMutex
	draining bool
}

type Option func(*Service)

// WithSafetyPolicy enables the safety policy for new sessions and finalized turns.
func WithSafetyPolicy(engine *policy.Engine) Option {
	return func(s *Service) { s.safety = engine }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

func WithEvents(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

// New creates the service. A nil dialer means no upstream is configured and every start is
// rejected with ErrServiceUnavailable.
func New(store repository.Store, dialer upstream.Dialer, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		store:    store,
		registry: registry.New(),
		dialer:   dialer,
		metrics:  metrics.NoOpRecorder{},
		events:   events.NoOpPublisher{},
		config:   cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	var safety therapy.SafetyPolicy
	if s.safety != nil {
		safety = s.safety
	}
	s.builder = therapy.NewBuilder(store, safety, cfg.Session.HistoryLookback())
	s.finalizer = &Finalizer{
		store:          store,
		registry:       s.registry,
		safety:         safety,
		metrics:        s.metrics,
		events:         s.events,
		persistTimeout: cfg.Session.PersistTimeout(),
		now:            s.now,
	}
	return s
}

// acceptingLocked reports whether new sessions and connections are admitted. Callers hold admit.
func (s *Service) acceptingLocked() error {
	if s.draining {
		return fmt.Errorf("%w: server is shutting down", domain.ErrServiceUnavailable)
	}
	return nil
}

// LiveSessions returns the number of sessions in the registry.
func (s *Service) LiveSessions() int {
	return s.registry.Count()
}
