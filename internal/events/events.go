// Package events publishes session lifecycle events.
package events

import (
	"context"
	"time"
)

const (
	SubjectSessionStarted = "therapy.session.started"
	SubjectSessionEnded   = "therapy.session.ended"
)

// SessionEvent is the payload of every lifecycle event.
type SessionEvent struct {
	SessionID  string    `json:"sessionId"`
	OwnerID    string    `json:"ownerId"`
	Emotion    string    `json:"emotion"`
	Intensity  int       `json:"intensity"`
	Status     string    `json:"status"`
	RecordID   string    `json:"recordId,omitempty"`
	Saved      bool      `json:"saved,omitempty"`
	TurnCount  int       `json:"turnCount,omitempty"`
	DurationMs int64     `json:"durationMs,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher publishes lifecycle events. Publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, subject string, event SessionEvent) error
	Close() error
}

// NoOpPublisher drops every event.
type NoOpPublisher struct{}

var _ Publisher = NoOpPublisher{}

func (NoOpPublisher) Publish(context.Context, string, SessionEvent) error { return nil }

func (NoOpPublisher) Close() error { return nil }
