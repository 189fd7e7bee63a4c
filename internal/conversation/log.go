// Package conversation provides the append-only turn log of a session.
package conversation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xiaot623/solace/internal/domain"
)

// ErrEmptyTurn is returned for a turn without text or audio.
var ErrEmptyTurn = errors.New("turn has no content")

// Stats are the running aggregates of a log, maintained on every append.
type Stats struct {
	TotalMessages     int       `json:"totalMessages"`
	UserMessages      int       `json:"userMessages"`
	AssistantMessages int       `json:"assistantMessages"`
	LastTimestamp     time.Time `json:"lastTimestamp"`
}

// Snapshot is an immutable copy of the log.
type Snapshot struct {
	Turns []domain.Turn
	Stats Stats
}

// Log is an ordered, append-only record of turns. Safe for concurrent use.
type Log struct {
	mu    sync.RWMutex
	turns []domain.Turn
	stats Stats
	now   func() time.Time
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Append records a turn and returns it as stored.
// A timestamp that does not advance past the last recorded one is clamped to last+1ms,
// so the log stays strictly increasing without dropping content.
func (l *Log) Append(turn domain.Turn) (domain.Turn, error) {
	if !turn.Role.Valid() {
		return domain.Turn{}, fmt.Errorf("invalid role %q", turn.Role)
	}
	if turn.Content == "" && turn.AudioRef == "" {
		return domain.Turn{}, ErrEmptyTurn
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if turn.Timestamp.IsZero() {
		turn.Timestamp = l.now()
	}
	if len(l.turns) > 0 && !turn.Timestamp.After(l.stats.LastTimestamp) {
		turn.Timestamp = l.stats.LastTimestamp.Add(time.Millisecond)
	}

	l.turns = append(l.turns, turn)
	l.stats.TotalMessages++
	switch turn.Role {
	case domain.RoleUser:
		l.stats.UserMessages++
	case domain.RoleAssistant:
		l.stats.AssistantMessages++
	}
	l.stats.LastTimestamp = turn.Timestamp

	return turn, nil
}

// Snapshot returns a copy of the turns and aggregates.
func (l *Log) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	turns := make([]domain.Turn, len(l.turns))
	copy(turns, l.turns)
	return Snapshot{Turns: turns, Stats: l.stats}
}

// Stats returns the running aggregates without copying turns.
func (l *Log) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}

// Len returns the number of recorded turns.
func (l *Log) Len() int {
	return l.Stats().TotalMessages
}
