package domain

import "time"

// StartRequest represents the request to start a voice session.
type StartRequest struct {
	// SessionID is optional; one is generated when empty.
	SessionID string `json:"sessionId,omitempty"`
	OwnerID   string `json:"ownerId"`
	Emotion   string `json:"emotion"`
	Intensity int    `json:"intensity"`
}

// StartResponse represents the response from starting a session.
type StartResponse struct {
	SessionID          string             `json:"sessionId"`
	TherapeuticContext TherapeuticContext `json:"therapeuticContext"`
	ConnectionEndpoint string             `json:"connectionEndpoint"`
}

// StatusResponse is a read-only snapshot of a session.
type StatusResponse struct {
	SessionID          string             `json:"sessionId"`
	Status             SessionStatus      `json:"status"`
	Emotion            string             `json:"emotion"`
	Intensity          int                `json:"intensity"`
	TherapeuticContext TherapeuticContext `json:"therapeuticContext"`
	TurnCount          int                `json:"turnCount"`
	DurationMs         int64              `json:"durationMs"`
}

// SubmitRequest carries a text message or an audio chunk submitted outside the stream.
type SubmitRequest struct {
	Text      string `json:"text,omitempty"`
	AudioData string `json:"audioData,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
}

// SubmitResponse carries the assistant's reply to a submitted message.
type SubmitResponse struct {
	Response string `json:"response"`
}

// FinalizeResult describes the outcome of finalizing a session.
type FinalizeResult struct {
	SessionID string        `json:"sessionId"`
	RecordID  string        `json:"recordId,omitempty"`
	Status    SessionStatus `json:"status"`
	TurnCount int           `json:"turnCount"`
	Duration  time.Duration `json:"-"`
	// Saved is false when the durable write failed; the session is still torn down.
	Saved bool `json:"saved"`
}

// EndResponse acknowledges the end of a session.
type EndResponse struct {
	SessionID         string        `json:"sessionId"`
	PersistedRecordID string        `json:"persistedRecordId,omitempty"`
	Status            SessionStatus `json:"status"`
	TurnCount         int           `json:"turnCount"`
	DurationMs        int64         `json:"durationMs"`
	Saved             bool          `json:"saved"`
	Warning           string        `json:"warning,omitempty"`
}
