// Package repository persists session records and reads the user history that seeds new sessions.
package repository

import (
	"context"
	"time"

	"github.com/xiaot623/solace/internal/domain"
)

//go:generate mockgen -source $GOFILE -destination store_mocks.go -package $GOPACKAGE

// Store defines the interface for data persistence.
type Store interface {
	// History operations
	FindRecent(ctx context.Context, ownerID string, kind domain.HistoryKind, window time.Duration) ([]domain.HistoryEntry, error)
	CreateHistoryEntry(ctx context.Context, entry *domain.HistoryEntry) error

	// Session record operations
	SaveSessionRecord(ctx context.Context, record *domain.SessionRecord) error
	GetSessionRecord(ctx context.Context, recordID string) (*domain.SessionRecord, error)
	ListSessionRecords(ctx context.Context, ownerID string, limit int) ([]domain.SessionRecord, error)

	Close() error
}
