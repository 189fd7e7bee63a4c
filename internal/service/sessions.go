package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/solace/internal/domain"
	"github.com/xiaot623/solace/internal/events"
	"github.com/xiaot623/solace/internal/protocol"
	"github.com/xiaot623/solace/internal/relay"
	"github.com/xiaot623/solace/internal/session"
)

const maxSessionIDLength = 128

// Start creates a session and returns where the client should connect.
func (s *Service) Start(ctx context.Context, req *domain.StartRequest) (*domain.StartResponse, error) {
	if err := validateStart(req); err != nil {
		return nil, err
	}
	if s.dialer == nil {
		return nil, fmt.Errorf("%w: no upstream provider configured", domain.ErrServiceUnavailable)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "sess_" + uuid.New().String()
	}
	if _, err := s.registry.Lookup(sessionID); err == nil {
		return nil, fmt.Errorf("%w: session %s already exists", domain.ErrConflict, sessionID)
	}

	tc := s.builder.Build(ctx, req.OwnerID, req.Emotion, req.Intensity)
	sess := session.New(sessionID, req.OwnerID, req.Emotion, req.Intensity, tc, s.now())
	s.admit.RLock()
	err := s.acceptingLocked()
	if err == nil {
		err = s.registry.Create(sess)
	}
	s.admit.RUnlock()
	if err != nil {
		return nil, err
	}

	s.metrics.SessionStarted(ctx, req.Emotion)
	if err := s.events.Publish(ctx, events.SubjectSessionStarted, events.SessionEvent{
		SessionID: sess.ID,
		OwnerID:   sess.OwnerID,
		Emotion:   sess.Emotion,
		Intensity: sess.Intensity,
		Status:    string(sess.Status()),
		Timestamp: sess.StartTime,
	}); err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to publish session started event")
	}

	log.Info().
		Str("session_id", sess.ID).
		Str("owner_id", sess.OwnerID).
		Str("emotion", sess.Emotion).
		Int("intensity", sess.Intensity).
		Bool("degraded", tc.Degraded).
		Str("safety_level", string(tc.SafetyLevel)).
		Msg("session started")

	return &domain.StartResponse{
		SessionID:          sess.ID,
		TherapeuticContext: tc,
		ConnectionEndpoint: s.endpoint(sess.ID),
	}, nil
}

func validateStart(req *domain.StartRequest) error {
	if strings.TrimSpace(req.OwnerID) == "" {
		return fmt.Errorf("%w: ownerId is required", domain.ErrValidation)
	}
	if strings.TrimSpace(req.Emotion) == "" {
		return fmt.Errorf("%w: emotion is required", domain.ErrValidation)
	}
	if req.Intensity < domain.MinIntensity || req.Intensity > domain.MaxIntensity {
		return fmt.Errorf("%w: intensity must be between %d and %d", domain.ErrValidation, domain.MinIntensity, domain.MaxIntensity)
	}
	if len(req.SessionID) > maxSessionIDLength || strings.ContainsAny(req.SessionID, "/?# ") {
		return fmt.Errorf("%w: invalid sessionId", domain.ErrValidation)
	}
	return nil
}

func (s *Service) endpoint(sessionID string) string {
	return strings.TrimRight(s.config.Server.PublicWSURL, "/") + "/v1/sessions/" + sessionID + "/live"
}

// Status returns a snapshot of a live or finalized session.
func (s *Service) Status(ctx context.Context, sessionID string) (*domain.StatusResponse, error) {
	sess, err := s.registry.Lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return &domain.StatusResponse{
		SessionID:          sess.ID,
		Status:             sess.Status(),
		Emotion:            sess.Emotion,
		Intensity:          sess.Intensity,
		TherapeuticContext: sess.Context,
		TurnCount:          sess.Log.Len(),
		DurationMs:         sess.Duration(s.now()).Milliseconds(),
	}, nil
}

// Submit forwards a text message or audio chunk to an active session and waits for the reply.
func (s *Service) Submit(ctx context.Context, sessionID string, req *domain.SubmitRequest) (*domain.SubmitResponse, error) {
	var frame protocol.Frame
	switch {
	case strings.TrimSpace(req.Text) != "":
		frame = protocol.Frame{Type: protocol.TypeText, Text: req.Text}
	case req.AudioData != "":
		frame = protocol.Frame{Type: protocol.TypeAudio, AudioData: req.AudioData, MimeType: req.MimeType}
	default:
		return nil, fmt.Errorf("%w: text or audioData is required", domain.ErrValidation)
	}

	sess, err := s.registry.Lookup(sessionID)
	if err != nil {
		return nil, err
	}
	link := sess.Link()
	if status := sess.Status(); status != domain.SessionStatusActive || link == nil {
		return nil, fmt.Errorf("%w: session %s is %s", domain.ErrConflict, sessionID, status)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Session.SubmitTimeout())
	defer cancel()

	reply, err := link.Submit(ctx, frame)
	if err != nil {
		return nil, err
	}
	return &domain.SubmitResponse{Response: reply}, nil
}

// End finalizes a session. Ending an already finalized session returns the same result.
// When the record could not be saved the response is still returned, with Saved false,
// together with an ErrPersistenceFailure error.
func (s *Service) End(ctx context.Context, sessionID string) (*domain.EndResponse, error) {
	sess, err := s.registry.Lookup(sessionID)
	if err != nil {
		return nil, err
	}

	result, err := s.finalizer.Finalize(ctx, sess, session.EventEndCommand)
	resp := &domain.EndResponse{
		SessionID:         result.SessionID,
		PersistedRecordID: result.RecordID,
		Status:            result.Status,
		TurnCount:         result.TurnCount,
		DurationMs:        result.Duration.Milliseconds(),
		Saved:             result.Saved,
	}
	if err != nil {
		if errors.Is(err, domain.ErrPersistenceFailure) {
			resp.Warning = "session ended but the conversation could not be saved"
		}
		return resp, err
	}
	return resp, nil
}

// CheckConnectable reports whether a client may open the live stream of a session.
func (s *Service) CheckConnectable(sessionID string) (*session.Session, error) {
	s.admit.RLock()
	err := s.acceptingLocked()
	s.admit.RUnlock()
	if err != nil {
		return nil, err
	}
	sess, err := s.registry.Lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if status := sess.Status(); status.IsTerminal() {
		return nil, fmt.Errorf("%w: session %s is %s; start a new session", domain.ErrConflict, sessionID, status)
	}
	if sess.Link() != nil {
		return nil, fmt.Errorf("%w: session %s already has a live connection", domain.ErrConflict, sessionID)
	}
	return sess, nil
}

// Serve relays between client and the upstream until the session terminates.
func (s *Service) Serve(ctx context.Context, sess *session.Session, client relay.Peer) error {
	r := relay.New(sess, client, s.dialer, func(ev session.Event) {
		_, _ = s.finalizer.Finalize(context.Background(), sess, ev)
	})
	if err := sess.Attach(r); err != nil {
		sendCtx, cancel := context.WithTimeout(ctx, noticeTimeout)
		defer cancel()
		_ = client.Send(sendCtx, protocol.Error(protocol.ErrorCodeNotActive, err.Error()))
		_ = client.Close()
		return err
	}
	r.Run(ctx)
	return nil
}
