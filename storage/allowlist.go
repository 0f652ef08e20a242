package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"argus/core"
)

// AllowlistStorage handles allowlist entry persistence.
type AllowlistStorage struct {
	db     *SQLite
	logger *zap.SugaredLogger
}

// NewAllowlistStorage creates an allowlist storage handler.
func NewAllowlistStorage(db *SQLite, logger *zap.SugaredLogger) *AllowlistStorage {
	return &AllowlistStorage{db: db, logger: logger}
}

const allowlistColumns = "id, entry_type, entry_value, reason, rule_id, expires_at, created_by, created_at"

// CreateEntry validates and persists an allowlist entry, filling in its ID
// and creation time.
func (s *AllowlistStorage) CreateEntry(ctx context.Context, entry *core.AllowlistEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var expiresAt interface{}
	if entry.ExpiresAt != nil {
		expiresAt = entry.ExpiresAt.UTC()
	}

	query := `
		INSERT INTO allowlist_entries (` + allowlistColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.WriteDB.ExecContext(ctx, query,
		entry.ID,
		string(entry.EntryType),
		entry.EntryValue,
		entry.Reason,
		entry.RuleID,
		expiresAt,
		entry.CreatedBy,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert allowlist entry: %w", err)
	}

	s.logger.Infow("allowlist entry created",
		"entry_type", entry.EntryType, "entry_value", entry.EntryValue, "rule_id", entry.RuleID)
	return nil
}

// GetEntries returns all allowlist entries, expired ones included, newest
// first.
func (s *AllowlistStorage) GetEntries(ctx context.Context) ([]core.AllowlistEntry, error) {
	return s.queryEntries(ctx,
		"SELECT "+allowlistColumns+" FROM allowlist_entries ORDER BY created_at DESC")
}

// ActiveEntries returns the entries in force at the given instant.
func (s *AllowlistStorage) ActiveEntries(ctx context.Context, at time.Time) ([]core.AllowlistEntry, error) {
	return s.queryEntries(ctx,
		"SELECT "+allowlistColumns+" FROM allowlist_entries WHERE expires_at IS NULL OR expires_at > ? ORDER BY created_at DESC",
		at.UTC())
}

// DeleteEntry removes an allowlist entry by ID.
func (s *AllowlistStorage) DeleteEntry(ctx context.Context, id string) error {
	result, err := s.db.WriteDB.ExecContext(ctx, "DELETE FROM allowlist_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete allowlist entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAllowlistEntryNotFound
	}

	s.logger.Infow("allowlist entry deleted", "entry_id", id)
	return nil
}

func (s *AllowlistStorage) queryEntries(ctx context.Context, query string, args ...interface{}) ([]core.AllowlistEntry, error) {
	rows, err := s.db.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allowlist entries: %w", err)
	}
	defer rows.Close()

	entries := make([]core.AllowlistEntry, 0)
	for rows.Next() {
		var entry core.AllowlistEntry
		var entryType string
		var ruleID, createdBy sql.NullString
		var expiresAt sql.NullTime

		err := rows.Scan(
			&entry.ID,
			&entryType,
			&entry.EntryValue,
			&entry.Reason,
			&ruleID,
			&expiresAt,
			&createdBy,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allowlist entry: %w", err)
		}

		entry.EntryType = core.SubjectType(entryType)
		entry.RuleID = ruleID.String
		entry.CreatedBy = createdBy.String
		if expiresAt.Valid {
			t := expiresAt.Time.UTC()
			entry.ExpiresAt = &t
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allowlist entries: %w", err)
	}

	return entries, nil
}
