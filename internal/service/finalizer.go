package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/solace/internal/conversation"
	"github.com/xiaot623/solace/internal/domain"
	"github.com/xiaot623/solace/internal/events"
	"github.com/xiaot623/solace/internal/metrics"
	"github.com/xiaot623/solace/internal/protocol"
	"github.com/xiaot623/solace/internal/registry"
	"github.com/xiaot623/solace/internal/repository"
	"github.com/xiaot623/solace/internal/session"
	"github.com/xiaot623/solace/internal/therapy"
)

// Finalizer terminates sessions and turns their conversation into a persisted record.
type Finalizer struct {
	store          repository.Store
	registry       *registry.Registry
	safety         therapy.SafetyPolicy
	metrics        metrics.Recorder
	events         events.Publisher
	persistTimeout time.Duration
	now            func() time.Time
}

// Finalize runs at most once per session; every caller gets the result of the first run.
// A failed durable write still tears the session down and is reported as ErrPersistenceFailure
// alongside a result with Saved set to false.
func (f *Finalizer) Finalize(ctx context.Context, sess *session.Session, ev session.Event) (domain.FinalizeResult, error) {
	return sess.Finalize(func() (domain.FinalizeResult, error) {
		return f.finalize(context.WithoutCancel(ctx), sess, ev)
	})
}

func (f *Finalizer) finalize(ctx context.Context, sess *session.Session, ev session.Event) (domain.FinalizeResult, error) {
	logger := log.With().Str("session_id", sess.ID).Str("owner_id", sess.OwnerID).Str("event", string(ev)).Logger()

	status, _ := sess.Fire(ev)
	if !status.IsTerminal() {
		status, _ = sess.Fire(session.EventShutdown)
	}

	sess.StopLink()

	end := f.now()
	sess.SetEndTime(end)
	duration := sess.Duration(end)

	snap := sess.Log.Snapshot()
	analysis := conversation.Analyze(snap.Turns)

	record := &domain.SessionRecord{
		RecordID:   "rec_" + uuid.New().String(),
		SessionID:  sess.ID,
		OwnerID:    sess.OwnerID,
		Emotion:    sess.Emotion,
		Intensity:  sess.Intensity,
		Status:     status,
		StartTime:  sess.StartTime,
		EndTime:    end,
		DurationMs: duration.Milliseconds(),
		Turns:      snap.Turns,
		Context:    sess.Context,
		Metadata: domain.Metadata{
			TotalMessages:     snap.Stats.TotalMessages,
			UserMessages:      snap.Stats.UserMessages,
			AssistantMessages: snap.Stats.AssistantMessages,
			Sentiment:         analysis.Sentiment,
			SentimentScore:    analysis.Score,
			Themes:            analysis.Themes,
			SafetyFlags:       f.safetyFlags(ctx, sess, snap.Turns),
		},
		CreatedAt: end,
	}

	result := domain.FinalizeResult{
		SessionID: sess.ID,
		RecordID:  record.RecordID,
		Status:    status,
		TurnCount: len(snap.Turns),
		Duration:  duration,
		Saved:     true,
	}

	var finalErr error
	saveCtx, cancel := context.WithTimeout(ctx, f.persistTimeout)
	err := f.store.SaveSessionRecord(saveCtx, record)
	cancel()
	if err != nil {
		logger.Error().Err(err).Msg("failed to persist session record")
		result.RecordID = ""
		result.Saved = false
		finalErr = fmt.Errorf("%w: session %s: %v", domain.ErrPersistenceFailure, sess.ID, err)
	}

	f.registry.Retire(sess.ID)

	if err := sess.CloseLink(protocol.Ended(sess.ID, result.RecordID, result.Saved)); err != nil {
		logger.Debug().Err(err).Msg("client close")
	}

	f.metrics.SessionFinalized(ctx, metrics.SessionMetrics{
		Status:   string(status),
		Emotion:  sess.Emotion,
		Duration: duration,
		Turns:    result.TurnCount,
		Saved:    result.Saved,
	})
	if err := f.events.Publish(ctx, events.SubjectSessionEnded, events.SessionEvent{
		SessionID:  sess.ID,
		OwnerID:    sess.OwnerID,
		Emotion:    sess.Emotion,
		Intensity:  sess.Intensity,
		Status:     string(status),
		RecordID:   result.RecordID,
		Saved:      result.Saved,
		TurnCount:  result.TurnCount,
		DurationMs: duration.Milliseconds(),
		Timestamp:  end,
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to publish session ended event")
	}

	logger.Info().
		Str("status", string(status)).
		Str("record_id", result.RecordID).
		Int("turns", result.TurnCount).
		Dur("duration", duration).
		Bool("saved", result.Saved).
		Msg("session finalized")

	return result, finalErr
}

// safetyFlags counts user turns the safety policy escalates.
func (f *Finalizer) safetyFlags(ctx context.Context, sess *session.Session, turns []domain.Turn) int {
	if f.safety == nil {
		return 0
	}
	flags := 0
	for _, t := range turns {
		if t.Role != domain.RoleUser || t.Content == "" {
			continue
		}
		escalate, err := f.safety.Escalate(ctx, sess.Emotion, 0, t.Content)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("safety policy evaluation failed")
			return flags
		}
		if escalate {
			flags++
		}
	}
	return flags
}
