package conversation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/xiaot623/solace/internal/domain"
)

func TestAppendClampsSkewedTimestamp(t *testing.T) {
	l := NewLog()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	first, err := l.Append(domain.Turn{Timestamp: base, Role: domain.RoleUser, Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, base, first.Timestamp)

	second, err := l.Append(domain.Turn{Timestamp: base.Add(-time.Second), Role: domain.RoleAssistant, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Millisecond), second.Timestamp)

	third, err := l.Append(domain.Turn{Timestamp: base.Add(time.Millisecond), Role: domain.RoleUser, Content: "again"})
	require.NoError(t, err)
	assert.Equal(t, base.Add(2*time.Millisecond), third.Timestamp)

	snap := l.Snapshot()
	require.Len(t, snap.Turns, 3)
	assert.Equal(t, "hello", snap.Turns[0].Content)
	assert.Equal(t, "hi", snap.Turns[1].Content)
	assert.Equal(t, 2, snap.Stats.UserMessages)
	assert.Equal(t, 1, snap.Stats.AssistantMessages)
}

func TestAppendRejectsInvalidTurns(t *testing.T) {
	l := NewLog()

	_, err := l.Append(domain.Turn{Role: domain.RoleUser})
	assert.ErrorIs(t, err, ErrEmptyTurn)

	_, err = l.Append(domain.Turn{Role: "system", Content: "x"})
	assert.Error(t, err)

	assert.Equal(t, 0, l.Len())
}

func TestAppendFillsZeroTimestamp(t *testing.T) {
	l := NewLog()
	turn, err := l.Append(domain.Turn{Role: domain.RoleUser, AudioRef: "audio/pcm 320B"})
	require.NoError(t, err)
	assert.False(t, turn.Timestamp.IsZero())
}

func TestSnapshotIsACopy(t *testing.T) {
	l := NewLog()
	_, err := l.Append(domain.Turn{Role: domain.RoleUser, Content: "original"})
	require.NoError(t, err)

	snap := l.Snapshot()
	snap.Turns[0].Content = "mutated"

	assert.Equal(t, "original", l.Snapshot().Turns[0].Content)
}

func TestTimestampsIncreaseUnderConcurrentAppends(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := NewLog()
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		writers := rapid.IntRange(1, 6).Draw(t, "writers")
		perWriter := rapid.IntRange(1, 20).Draw(t, "per_writer")

		batches := make([][]domain.Turn, writers)
		users := 0
		for w := range batches {
			for i := 0; i < perWriter; i++ {
				offset := rapid.IntRange(-5000, 5000).Draw(t, "offset_ms")
				role := domain.RoleAssistant
				if rapid.Bool().Draw(t, "is_user") {
					role = domain.RoleUser
					users++
				}
				batches[w] = append(batches[w], domain.Turn{
					Timestamp: base.Add(time.Duration(offset) * time.Millisecond),
					Role:      role,
					Content:   rapid.StringN(1, 20, -1).Draw(t, "content"),
				})
			}
		}

		errs := make(chan error, writers*perWriter)
		var wg sync.WaitGroup
		for _, batch := range batches {
			wg.Add(1)
			go func(batch []domain.Turn) {
				defer wg.Done()
				for _, turn := range batch {
					if _, err := l.Append(turn); err != nil {
						errs <- err
					}
				}
			}(batch)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("append failed: %v", err)
		}

		snap := l.Snapshot()
		if len(snap.Turns) != writers*perWriter {
			t.Fatalf("expected %d turns, got %d", writers*perWriter, len(snap.Turns))
		}
		for i := 1; i < len(snap.Turns); i++ {
			if !snap.Turns[i].Timestamp.After(snap.Turns[i-1].Timestamp) {
				t.Fatalf("turn %d timestamp %v does not follow %v", i, snap.Turns[i].Timestamp, snap.Turns[i-1].Timestamp)
			}
		}
		if snap.Stats.UserMessages != users {
			t.Fatalf("expected %d user messages, got %d", users, snap.Stats.UserMessages)
		}
		if snap.Stats.UserMessages+snap.Stats.AssistantMessages != snap.Stats.TotalMessages {
			t.Fatalf("aggregates do not add up: %+v", snap.Stats)
		}
	})
}
