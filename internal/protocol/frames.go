// Package protocol defines the streaming frame protocol shared by clients, the gateway and upstreams.
package protocol

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/xiaot623/solace/internal/domain"
)

// Frame types from client to gateway
const (
	TypeText  = "text"
	TypeAudio = "audio"
	TypeEnd   = "end"
)

// Frame types from gateway to client
const (
	TypeConnected = "connected"
	TypeResponse  = "response"
	TypeEnded     = "ended"
)

// Frame types valid in either direction
const (
	TypePing  = "ping"
	TypePong  = "pong"
	TypeError = "error"
)

// TypeSetup is sent by the gateway to a websocket upstream right after dialing.
const TypeSetup = "setup"

// Error codes
const (
	ErrorCodeInvalidFrame  = "invalid_frame"
	ErrorCodeUnknownType   = "unknown_type"
	ErrorCodeNotActive     = "not_active"
	ErrorCodeUpstreamError = "upstream_error"
	ErrorCodeUnsupported   = "unsupported"
)

// Frame is the single JSON object exchanged on a stream, discriminated by Type.
type Frame struct {
	Type         string                     `json:"type"`
	Ts           int64                      `json:"ts,omitempty"`
	SessionID    string                     `json:"sessionId,omitempty"`
	Context      *domain.TherapeuticContext `json:"context,omitempty"`
	Instructions string                     `json:"instructions,omitempty"`
	Text         string                     `json:"text,omitempty"`
	AudioData    string                     `json:"audioData,omitempty"`
	MimeType     string                     `json:"mimeType,omitempty"`
	TurnComplete bool                       `json:"turnComplete,omitempty"`
	Code         string                     `json:"code,omitempty"`
	Message      string                     `json:"message,omitempty"`
	RecordID     string                     `json:"recordId,omitempty"`
	Saved        *bool                      `json:"saved,omitempty"`
}

// ErrMissingType is returned by Decode for objects without a type discriminator.
var ErrMissingType = errors.New("frame type is required")

// Decode parses a raw frame.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, err
	}
	if f.Type == "" {
		return Frame{}, ErrMissingType
	}
	return f, nil
}

// Encode serializes a frame, stamping it when no timestamp is set.
func Encode(f Frame) ([]byte, error) {
	if f.Ts == 0 {
		f.Ts = time.Now().UnixMilli()
	}
	return json.Marshal(f)
}

// Connected is sent once when a session becomes active.
func Connected(sessionID string, ctx domain.TherapeuticContext) Frame {
	return Frame{Type: TypeConnected, SessionID: sessionID, Context: &ctx}
}

// Response carries upstream output to the client.
func Response(text string, turnComplete bool) Frame {
	return Frame{Type: TypeResponse, Text: text, TurnComplete: turnComplete}
}

// Error is a non-fatal error frame.
func Error(code, message string) Frame {
	return Frame{Type: TypeError, Code: code, Message: message}
}

// Pong answers a ping.
func Pong() Frame {
	return Frame{Type: TypePong}
}

// Ended tells the client that the session has been finalized.
func Ended(sessionID, recordID string, saved bool) Frame {
	return Frame{Type: TypeEnded, SessionID: sessionID, RecordID: recordID, Saved: &saved}
}
