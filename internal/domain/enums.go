// Package domain defines the core domain models for voice therapy sessions.
package domain

// SessionStatus represents the lifecycle status of a session.
type SessionStatus string

const (
	SessionStatusInitializing SessionStatus = "initializing"
	SessionStatusActive       SessionStatus = "active"
	SessionStatusEnded        SessionStatus = "ended"
	SessionStatusInterrupted  SessionStatus = "interrupted"
)

// IsTerminal reports whether no further transition is possible from s.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusEnded || s == SessionStatusInterrupted
}

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// HistoryKind selects a family of historical user data.
type HistoryKind string

const (
	HistoryKindMood    HistoryKind = "mood"
	HistoryKindJournal HistoryKind = "journal"
	HistoryKindSession HistoryKind = "session"
)

// SafetyLevel is the outcome of the safety policy for a session.
type SafetyLevel string

const (
	SafetyLevelStandard SafetyLevel = "standard"
	SafetyLevelElevated SafetyLevel = "elevated"
)

// Sentiment labels derived at finalization.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

const (
	MinIntensity = 1
	MaxIntensity = 10
)
