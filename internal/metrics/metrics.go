// Package metrics exports session metrics over OTLP.
package metrics

import (
	"context"
	"time"
)

// SessionMetrics describes one finalized session.
type SessionMetrics struct {
	Status   string
	Emotion  string
	Duration time.Duration
	Turns    int
	Saved    bool
}

// Recorder records session lifecycle metrics.
type Recorder interface {
	SessionStarted(ctx context.Context, emotion string)
	SessionFinalized(ctx context.Context, m SessionMetrics)
	Close(ctx context.Context) error
}

// NoOpRecorder is a recorder that does nothing.
type NoOpRecorder struct{}

var _ Recorder = NoOpRecorder{}

func (NoOpRecorder) SessionStarted(context.Context, string) {}

func (NoOpRecorder) SessionFinalized(context.Context, SessionMetrics) {}

func (NoOpRecorder) Close(context.Context) error { return nil }
