package domain

import "time"

// Turn is one logged message exchange.
type Turn struct {
	Timestamp time.Time `json:"timestamp"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	// AudioRef describes an audio payload that accompanied the turn (mime type and size),
	// the raw bytes are forwarded but not retained.
	AudioRef string `json:"audioRef,omitempty"`
}

// HistorySummary condenses the user's recent history for the session context.
type HistorySummary struct {
	LookbackDays     int      `json:"lookbackDays"`
	MoodEntries      int      `json:"moodEntries"`
	AverageIntensity float64  `json:"averageIntensity"`
	DominantEmotions []string `json:"dominantEmotions,omitempty"`
	PriorSessions    int      `json:"priorSessions"`
	JournalEntries   int      `json:"journalEntries"`
	Summary          string   `json:"summary"`
}

// TherapeuticContext is computed once when a session starts and never changes afterwards.
type TherapeuticContext struct {
	PrimaryConcern        string         `json:"primaryConcern"`
	RecommendedTechniques []string       `json:"recommendedTechniques"`
	SessionGoals          []string       `json:"sessionGoals"`
	RecentHistory         HistorySummary `json:"recentHistory"`
	SafetyLevel           SafetyLevel    `json:"safetyLevel"`
	// Degraded is set when history could not be read and defaults were used.
	Degraded bool `json:"degraded"`
}

// Metadata holds the derived aggregates of a conversation.
type Metadata struct {
	TotalMessages     int      `json:"totalMessages"`
	UserMessages      int      `json:"userMessages"`
	AssistantMessages int      `json:"assistantMessages"`
	Sentiment         string   `json:"sentiment,omitempty"`
	SentimentScore    float64  `json:"sentimentScore"`
	Themes            []string `json:"themes,omitempty"`
	SafetyFlags       int      `json:"safetyFlags"`
}

// SessionRecord is the durable record written when a session is finalized.
type SessionRecord struct {
	RecordID   string             `json:"recordId"`
	SessionID  string             `json:"sessionId"`
	OwnerID    string             `json:"ownerId"`
	Emotion    string             `json:"emotion"`
	Intensity  int                `json:"intensity"`
	Status     SessionStatus      `json:"status"`
	StartTime  time.Time          `json:"startTime"`
	EndTime    time.Time          `json:"endTime"`
	DurationMs int64              `json:"durationMs"`
	Turns      []Turn             `json:"turns"`
	Context    TherapeuticContext `json:"therapeuticContext"`
	Metadata   Metadata           `json:"metadata"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// HistoryEntry is one item of historical user data read by the context builder.
type HistoryEntry struct {
	EntryID   string      `json:"entryId"`
	OwnerID   string      `json:"ownerId"`
	Kind      HistoryKind `json:"kind"`
	Emotion   string      `json:"emotion,omitempty"`
	Intensity int         `json:"intensity,omitempty"`
	Content   string      `json:"content,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}
