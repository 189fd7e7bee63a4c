// Package therapy assembles the clinical context a voice session starts with.
package therapy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xiaot623/solace/internal/domain"
)

// DefaultLookback is the history window used when none is configured.
const DefaultLookback = 14 * 24 * time.Hour

// HistoryReader is the read-only view of the persistence collaborator.
type HistoryReader interface {
	FindRecent(ctx context.Context, ownerID string, kind domain.HistoryKind, window time.Duration) ([]domain.HistoryEntry, error)
}

// SafetyPolicy decides whether a declared state needs an elevated safety level.
type SafetyPolicy interface {
	Escalate(ctx context.Context, emotion string, intensity int, text string) (bool, error)
}

// Builder builds therapeutic contexts. It never writes to the store.
type Builder struct {
	history  HistoryReader
	safety   SafetyPolicy
	lookback time.Duration
}

// NewBuilder creates a builder. safety may be nil.
func NewBuilder(history HistoryReader, safety SafetyPolicy, lookback time.Duration) *Builder {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Builder{history: history, safety: safety, lookback: lookback}
}

// Build returns the therapeutic context for a new session. History failures degrade the
// context instead of failing it.
func (b *Builder) Build(ctx context.Context, ownerID, emotion string, intensity int) domain.TherapeuticContext {
	p := lookupProfile(emotion)
	tc := domain.TherapeuticContext{
		PrimaryConcern:        p.concern,
		RecommendedTechniques: append([]string(nil), p.techniques...),
		SessionGoals:          append([]string(nil), p.goals...),
		SafetyLevel:           domain.SafetyLevelStandard,
	}

	summary, err := b.summarize(ctx, ownerID)
	if err != nil {
		log.Warn().Err(err).Str("owner_id", ownerID).Msg("history lookup failed, using default context")
		tc.Degraded = true
		tc.RecentHistory = domain.HistorySummary{
			LookbackDays: b.lookbackDays(),
			Summary:      "History unavailable.",
		}
	} else {
		tc.RecentHistory = summary
	}

	if intensity >= 8 {
		tc.SessionGoals = append([]string{"Stabilize before exploring"}, tc.SessionGoals...)
	}

	if b.safety != nil {
		escalate, err := b.safety.Escalate(ctx, emotion, intensity, "")
		if err != nil {
			log.Warn().Err(err).Str("owner_id", ownerID).Msg("safety policy evaluation failed")
		} else if escalate {
			tc.SafetyLevel = domain.SafetyLevelElevated
			tc.SessionGoals = append([]string{"Check in on immediate safety"}, tc.SessionGoals...)
		}
	}

	return tc
}

func (b *Builder) lookbackDays() int {
	return int(b.lookback / (24 * time.Hour))
}

func (b *Builder) summarize(ctx context.Context, ownerID string) (domain.HistorySummary, error) {
	summary := domain.HistorySummary{LookbackDays: b.lookbackDays()}
	if b.history == nil {
		return summary, fmt.Errorf("no history reader configured")
	}

	moods, err := b.history.FindRecent(ctx, ownerID, domain.HistoryKindMood, b.lookback)
	if err != nil {
		return summary, fmt.Errorf("find moods: %w", err)
	}
	journals, err := b.history.FindRecent(ctx, ownerID, domain.HistoryKindJournal, b.lookback)
	if err != nil {
		return summary, fmt.Errorf("find journal entries: %w", err)
	}
	sessions, err := b.history.FindRecent(ctx, ownerID, domain.HistoryKindSession, b.lookback)
	if err != nil {
		return summary, fmt.Errorf("find sessions: %w", err)
	}

	summary.MoodEntries = len(moods)
	summary.JournalEntries = len(journals)
	summary.PriorSessions = len(sessions)

	counts := make(map[string]int)
	total := 0
	for _, m := range moods {
		total += m.Intensity
		if m.Emotion != "" {
			counts[strings.ToLower(m.Emotion)]++
		}
	}
	if len(moods) > 0 {
		summary.AverageIntensity = float64(total) / float64(len(moods))
	}
	summary.DominantEmotions = topEmotions(counts, 3)
	summary.Summary = describe(summary)
	return summary, nil
}

func topEmotions(counts map[string]int, n int) []string {
	emotions := make([]string, 0, len(counts))
	for e := range counts {
		emotions = append(emotions, e)
	}
	sort.Slice(emotions, func(i, j int) bool {
		if counts[emotions[i]] != counts[emotions[j]] {
			return counts[emotions[i]] > counts[emotions[j]]
		}
		return emotions[i] < emotions[j]
	})
	if len(emotions) > n {
		emotions = emotions[:n]
	}
	return emotions
}

func describe(s domain.HistorySummary) string {
	if s.MoodEntries == 0 && s.JournalEntries == 0 && s.PriorSessions == 0 {
		return fmt.Sprintf("No recorded activity in the last %d days.", s.LookbackDays)
	}
	parts := []string{fmt.Sprintf("In the last %d days: %d mood entries", s.LookbackDays, s.MoodEntries)}
	if s.MoodEntries > 0 {
		parts[0] += fmt.Sprintf(" (average intensity %.1f)", s.AverageIntensity)
	}
	parts = append(parts,
		fmt.Sprintf("%d journal entries", s.JournalEntries),
		fmt.Sprintf("%d prior sessions", s.PriorSessions),
	)
	out := strings.Join(parts, ", ") + "."
	if len(s.DominantEmotions) > 0 {
		out += " Most frequent: " + strings.Join(s.DominantEmotions, ", ") + "."
	}
	return out
}
