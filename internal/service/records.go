package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/solace/internal/domain"
)

const maxRecordsLimit = 100

// GetRecord returns a persisted session record.
func (s *Service) GetRecord(ctx context.Context, recordID string) (*domain.SessionRecord, error) {
	record, err := s.store.GetSessionRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: record %s", domain.ErrNotFound, recordID)
	}
	return record, nil
}

// ListRecords lists an owner's persisted session records, newest first.
func (s *Service) ListRecords(ctx context.Context, ownerID string, limit int) ([]domain.SessionRecord, error) {
	if limit <= 0 || limit > maxRecordsLimit {
		limit = 20
	}
	records, err := s.store.ListSessionRecords(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	if records == nil {
		records = []domain.SessionRecord{}
	}
	return records, nil
}
