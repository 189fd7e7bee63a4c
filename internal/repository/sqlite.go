package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/xiaot623/solace/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS mood_entries (
			entry_id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			emotion TEXT NOT NULL,
			intensity INTEGER NOT NULL,
			note TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mood_owner_created ON mood_entries(owner_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS journal_entries (
			entry_id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_owner_created ON journal_entries(owner_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS session_records (
			record_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			emotion TEXT NOT NULL,
			intensity INTEGER NOT NULL,
			status TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL,
			turns TEXT NOT NULL,
			context TEXT NOT NULL,
			metadata TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_owner_start ON session_records(owner_id, start_time)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateHistoryEntry inserts a mood or journal entry.
func (s *SQLiteStore) CreateHistoryEntry(ctx context.Context, entry *domain.HistoryEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	var err error
	switch entry.Kind {
	case domain.HistoryKindMood:
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO mood_entries (entry_id, owner_id, emotion, intensity, note, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			entry.EntryID, entry.OwnerID, entry.Emotion, entry.Intensity, nullString(entry.Content), createdAt.UTC())
	case domain.HistoryKindJournal:
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO journal_entries (entry_id, owner_id, content, created_at) VALUES (?, ?, ?, ?)`,
			entry.EntryID, entry.OwnerID, entry.Content, createdAt.UTC())
	default:
		return fmt.Errorf("%w: unsupported history kind %q", domain.ErrValidation, entry.Kind)
	}
	return err
}

// FindRecent returns the owner's entries of the given kind created within window, newest first.
func (s *SQLiteStore) FindRecent(ctx context.Context, ownerID string, kind domain.HistoryKind, window time.Duration) ([]domain.HistoryEntry, error) {
	cutoff := s.now().Add(-window).UTC()

	var query string
	switch kind {
	case domain.HistoryKindMood:
		query = `SELECT entry_id, emotion, intensity, COALESCE(note, ''), created_at FROM mood_entries
			WHERE owner_id = ? AND created_at >= ? ORDER BY created_at DESC`
	case domain.HistoryKindJournal:
		query = `SELECT entry_id, '', 0, content, created_at FROM journal_entries
			WHERE owner_id = ? AND created_at >= ? ORDER BY created_at DESC`
	case domain.HistoryKindSession:
		query = `SELECT record_id, emotion, intensity, status, start_time FROM session_records
			WHERE owner_id = ? AND start_time >= ? ORDER BY start_time DESC`
	default:
		return nil, fmt.Errorf("%w: unsupported history kind %q", domain.ErrValidation, kind)
	}

	rows, err := s.db.QueryContext(ctx, query, ownerID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		e := domain.HistoryEntry{OwnerID: ownerID, Kind: kind}
		if err := rows.Scan(&e.EntryID, &e.Emotion, &e.Intensity, &e.Content, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveSessionRecord writes a finalized session. A second record for the same session is a conflict.
func (s *SQLiteStore) SaveSessionRecord(ctx context.Context, record *domain.SessionRecord) error {
	turns, err := json.Marshal(record.Turns)
	if err != nil {
		return fmt.Errorf("marshal turns: %w", err)
	}
	tc, err := json.Marshal(record.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_records (record_id, session_id, owner_id, emotion, intensity, status, start_time, end_time, duration_ms, turns, context, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RecordID, record.SessionID, record.OwnerID, record.Emotion, record.Intensity, string(record.Status),
		record.StartTime.UTC(), record.EndTime.UTC(), record.DurationMs, string(turns), string(tc), string(metadata), record.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: record for session %s already exists", domain.ErrConflict, record.SessionID)
	}
	return err
}

const recordColumns = `record_id, session_id, owner_id, emotion, intensity, status, start_time, end_time, duration_ms, turns, context, metadata, created_at`

// GetSessionRecord retrieves a record by ID. It returns nil when the record does not exist.
func (s *SQLiteStore) GetSessionRecord(ctx context.Context, recordID string) (*domain.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM session_records WHERE record_id = ?`, recordID)
	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListSessionRecords lists an owner's records, newest first.
func (s *SQLiteStore) ListSessionRecords(ctx context.Context, ownerID string, limit int) ([]domain.SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM session_records WHERE owner_id = ? ORDER BY start_time DESC LIMIT ?`,
		ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.SessionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*domain.SessionRecord, error) {
	var r domain.SessionRecord
	var status, turns, tc, metadata string
	err := row.Scan(&r.RecordID, &r.SessionID, &r.OwnerID, &r.Emotion, &r.Intensity, &status,
		&r.StartTime, &r.EndTime, &r.DurationMs, &turns, &tc, &metadata, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Status = domain.SessionStatus(status)
	if err := json.Unmarshal([]byte(turns), &r.Turns); err != nil {
		return nil, fmt.Errorf("unmarshal turns: %w", err)
	}
	if err := json.Unmarshal([]byte(tc), &r.Context); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &r.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &r, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
