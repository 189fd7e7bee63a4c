// Package testutil provides shared helpers for tests.
package testutil

import (
	"testing"

	"github.com/xiaot623/solace/internal/repository"
)

// NewTestSQLiteStore creates an in-memory SQLite store that is closed when the test ends.
func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	store, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
